package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campushub/events-api/internal/models"
)

// ParticipationRepository handles persistence of participation records.
type ParticipationRepository struct {
	db *sqlx.DB
}

// NewParticipationRepository constructs the repository.
func NewParticipationRepository(db *sqlx.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

const participationColumns = `registration_id, enrollment_id, event_id, registration_type, team_registration_id, status,
attendance_id, attendance_marked_at, attendance_present,
feedback_id, feedback_submitted_at, feedback_rating, feedback_comments,
certificate_id, certificate_issued_at, certificate_path,
created_at, updated_at`

// FindByRegistrationID loads a record by its idempotency key.
func (r *ParticipationRepository) FindByRegistrationID(ctx context.Context, registrationID string) (*models.Participation, error) {
	query := fmt.Sprintf("SELECT %s FROM participations WHERE registration_id = $1", participationColumns)
	var p models.Participation
	if err := r.db.GetContext(ctx, &p, query, registrationID); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByEnrollmentAndEvent loads the record for an (enrollment, event) pair
// regardless of status.
func (r *ParticipationRepository) FindByEnrollmentAndEvent(ctx context.Context, enrollmentID, eventID string) (*models.Participation, error) {
	query := fmt.Sprintf("SELECT %s FROM participations WHERE enrollment_id = $1 AND event_id = $2", participationColumns)
	var p models.Participation
	if err := r.db.GetContext(ctx, &p, query, enrollmentID, eventID); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns participation records filtered by the provided criteria.
func (r *ParticipationRepository) List(ctx context.Context, filter models.ParticipationFilter) ([]models.Participation, int, error) {
	var conditions []string
	var args []interface{}

	if filter.EventID != "" {
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", len(args)+1))
		args = append(args, filter.EventID)
	}
	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.TeamRegistrationID != "" {
		conditions = append(conditions, fmt.Sprintf("team_registration_id = $%d", len(args)+1))
		args = append(args, filter.TeamRegistrationID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM participations%s ORDER BY created_at ASC LIMIT %d OFFSET %d",
		participationColumns, clause, size, offset)

	var records []models.Participation
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list participations: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM participations" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count participations: %w", err)
	}
	return records, total, nil
}

// ListByTeam returns all records sharing a team registration id, leader
// included.
func (r *ParticipationRepository) ListByTeam(ctx context.Context, teamRegistrationID string) ([]models.Participation, error) {
	query := fmt.Sprintf("SELECT %s FROM participations WHERE team_registration_id = $1 AND status = $2 ORDER BY created_at ASC", participationColumns)
	var records []models.Participation
	if err := r.db.SelectContext(ctx, &records, query, teamRegistrationID, models.ParticipationStatusRegistered); err != nil {
		return nil, fmt.Errorf("list team participations: %w", err)
	}
	return records, nil
}

// Create inserts a new participation record.
func (r *ParticipationRepository) Create(ctx context.Context, p *models.Participation) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	query := `INSERT INTO participations (registration_id, enrollment_id, event_id, registration_type, team_registration_id, status,
created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		p.RegistrationID, p.EnrollmentID, p.EventID, p.RegistrationType, p.TeamRegistrationID, p.Status,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create participation: %w", err)
	}
	return nil
}

// SetStatus flips the registered/cancelled flag. Records are never deleted.
func (r *ParticipationRepository) SetStatus(ctx context.Context, registrationID string, status models.ParticipationStatus) error {
	query := `UPDATE participations SET status = $2, updated_at = $3 WHERE registration_id = $1`
	if _, err := r.db.ExecContext(ctx, query, registrationID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set participation status: %w", err)
	}
	return nil
}

// SetAttendance records the attendance outcome. An absence carries a NULL
// attendance id.
func (r *ParticipationRepository) SetAttendance(ctx context.Context, registrationID string, attendanceID *string, markedAt time.Time, present bool) error {
	query := `UPDATE participations SET attendance_id = $2, attendance_marked_at = $3, attendance_present = $4, updated_at = $5
WHERE registration_id = $1`
	if _, err := r.db.ExecContext(ctx, query, registrationID, attendanceID, markedAt, present, time.Now().UTC()); err != nil {
		return fmt.Errorf("set attendance: %w", err)
	}
	return nil
}

// SetFeedback records the feedback allocation.
func (r *ParticipationRepository) SetFeedback(ctx context.Context, registrationID, feedbackID string, submittedAt time.Time, rating int, comments string) error {
	query := `UPDATE participations SET feedback_id = $2, feedback_submitted_at = $3, feedback_rating = $4, feedback_comments = $5, updated_at = $6
WHERE registration_id = $1`
	if _, err := r.db.ExecContext(ctx, query, registrationID, feedbackID, submittedAt, rating, comments, time.Now().UTC()); err != nil {
		return fmt.Errorf("set feedback: %w", err)
	}
	return nil
}

// SetCertificate records the certificate allocation.
func (r *ParticipationRepository) SetCertificate(ctx context.Context, registrationID, certificateID string, issuedAt time.Time, path string) error {
	query := `UPDATE participations SET certificate_id = $2, certificate_issued_at = $3, certificate_path = $4, updated_at = $5
WHERE registration_id = $1`
	if _, err := r.db.ExecContext(ctx, query, registrationID, certificateID, issuedAt, path, time.Now().UTC()); err != nil {
		return fmt.Errorf("set certificate: %w", err)
	}
	return nil
}

// Delete removes a participation record. Used only by team member removal;
// individual cancellations soft-cancel instead.
func (r *ParticipationRepository) Delete(ctx context.Context, registrationID string) error {
	query := `DELETE FROM participations WHERE registration_id = $1`
	if _, err := r.db.ExecContext(ctx, query, registrationID); err != nil {
		return fmt.Errorf("delete participation: %w", err)
	}
	return nil
}
