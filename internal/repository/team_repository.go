package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/events-api/internal/models"
)

// TeamRepository handles persistence of teams and their member registration
// records.
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository constructs the repository.
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

const teamColumns = `team_registration_id, event_id, name, leader_enrollment_id, roster, created_at, updated_at`

// FindByID loads a team by its registration id.
func (r *TeamRepository) FindByID(ctx context.Context, teamRegistrationID string) (*models.Team, error) {
	query := fmt.Sprintf("SELECT %s FROM teams WHERE team_registration_id = $1", teamColumns)
	var team models.Team
	if err := r.db.GetContext(ctx, &team, query, teamRegistrationID); err != nil {
		return nil, err
	}
	return &team, nil
}

// ListByEvent returns all teams registered for an event.
func (r *TeamRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Team, error) {
	query := fmt.Sprintf("SELECT %s FROM teams WHERE event_id = $1 ORDER BY created_at ASC", teamColumns)
	var teams []models.Team
	if err := r.db.SelectContext(ctx, &teams, query, eventID); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// Create inserts a new team record.
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	now := time.Now().UTC()
	team.CreatedAt = now
	team.UpdatedAt = now
	query := `INSERT INTO teams (team_registration_id, event_id, name, leader_enrollment_id, roster, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		team.TeamRegistrationID, team.EventID, team.Name, team.LeaderEnrollmentID, team.Roster,
		team.CreatedAt, team.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

// UpdateRoster replaces the embedded roster.
func (r *TeamRepository) UpdateRoster(ctx context.Context, teamRegistrationID string, roster models.TeamRoster) error {
	query := `UPDATE teams SET roster = $2, updated_at = $3 WHERE team_registration_id = $1`
	if _, err := r.db.ExecContext(ctx, query, teamRegistrationID, roster, time.Now().UTC()); err != nil {
		return fmt.Errorf("update roster: %w", err)
	}
	return nil
}

// CreateMemberRecord inserts a member's individual registration record.
func (r *TeamRepository) CreateMemberRecord(ctx context.Context, record *models.TeamMemberRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC()
	query := `INSERT INTO team_member_records (id, team_registration_id, event_id, enrollment_id, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.TeamRegistrationID, record.EventID, record.EnrollmentID, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("create member record: %w", err)
	}
	return nil
}

// DeleteMemberRecord removes a member's individual registration record.
func (r *TeamRepository) DeleteMemberRecord(ctx context.Context, teamRegistrationID, enrollmentID string) error {
	query := `DELETE FROM team_member_records WHERE team_registration_id = $1 AND enrollment_id = $2`
	if _, err := r.db.ExecContext(ctx, query, teamRegistrationID, enrollmentID); err != nil {
		return fmt.Errorf("delete member record: %w", err)
	}
	return nil
}

// ListMemberRecords returns the individual member registration records for a
// team.
func (r *TeamRepository) ListMemberRecords(ctx context.Context, teamRegistrationID string) ([]models.TeamMemberRecord, error) {
	query := `SELECT id, team_registration_id, event_id, enrollment_id, created_at
FROM team_member_records WHERE team_registration_id = $1 ORDER BY created_at ASC`
	var records []models.TeamMemberRecord
	if err := r.db.SelectContext(ctx, &records, query, teamRegistrationID); err != nil {
		return nil, fmt.Errorf("list member records: %w", err)
	}
	return records, nil
}
