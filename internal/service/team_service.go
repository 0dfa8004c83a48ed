package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushub/events-api/internal/models"
	appErrors "github.com/campushub/events-api/pkg/errors"
)

type teamRepository interface {
	FindByID(ctx context.Context, teamRegistrationID string) (*models.Team, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Team, error)
	Create(ctx context.Context, team *models.Team) error
	UpdateRoster(ctx context.Context, teamRegistrationID string, roster models.TeamRoster) error
	CreateMemberRecord(ctx context.Context, record *models.TeamMemberRecord) error
	DeleteMemberRecord(ctx context.Context, teamRegistrationID, enrollmentID string) error
	ListMemberRecords(ctx context.Context, teamRegistrationID string) ([]models.TeamMemberRecord, error)
}

type teamParticipationRepository interface {
	FindByEnrollmentAndEvent(ctx context.Context, enrollmentID, eventID string) (*models.Participation, error)
	Create(ctx context.Context, p *models.Participation) error
	Delete(ctx context.Context, registrationID string) error
	ListByTeam(ctx context.Context, teamRegistrationID string) ([]models.Participation, error)
}

// TeamRegistrationID derives the deterministic id for a team registered by a
// leader for an event.
func TeamRegistrationID(leaderEnrollmentID, eventID string) string {
	return uuid.NewSHA1(registrationNamespace, []byte(fmt.Sprintf("team:%s:%s", leaderEnrollmentID, eventID))).String()
}

// RegisterTeamRequest describes a team registration payload.
type RegisterTeamRequest struct {
	EventID            string `json:"event_id" validate:"required"`
	TeamName           string `json:"team_name" validate:"required"`
	LeaderEnrollmentID string `json:"leader_enrollment_id" validate:"required"`
}

// AddMemberRequest describes the add-member payload.
type AddMemberRequest struct {
	TeamRegistrationID string `json:"team_registration_id" validate:"required"`
	EnrollmentID       string `json:"enrollment_id" validate:"required"`
	Name               string `json:"name" validate:"required"`
	Contact            string `json:"contact"`
}

// RemoveMemberRequest describes the remove-member payload.
type RemoveMemberRequest struct {
	TeamRegistrationID string `json:"team_registration_id" validate:"required"`
	EnrollmentID       string `json:"enrollment_id" validate:"required"`
}

// TeamService keeps the leader's embedded roster and the individually-owned
// member records consistent, and audits drift between them. The three linked
// writes are deliberately not transactional; the validate audit is the
// compensating control.
type TeamService struct {
	teams     teamRepository
	records   teamParticipationRepository
	events    eventReader
	students  studentReader
	counters  counterApplier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeamService constructs TeamService.
func NewTeamService(teams teamRepository, records teamParticipationRepository, events eventReader, students studentReader, counters counterApplier, validate *validator.Validate, logger *zap.Logger) *TeamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamService{teams: teams, records: records, events: events, students: students, counters: counters, validator: validate, logger: logger}
}

// RegisterTeam creates a team and the leader's participation record.
func (s *TeamService) RegisterTeam(ctx context.Context, req RegisterTeamRequest) (*models.Team, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid team registration payload")
	}
	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.Status != models.EventStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrRegistrationClosed, "event registration is not open")
	}
	if !event.RegistrationMode.Allows(models.RegistrationTypeTeamLeader) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event does not accept team registrations")
	}
	if err := s.requireActiveStudent(ctx, req.LeaderEnrollmentID); err != nil {
		return nil, err
	}

	existing, err := s.records.FindByEnrollmentAndEvent(ctx, req.LeaderEnrollmentID, req.EventID)
	if err != nil && !isNoRows(err) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing registration")
	}
	if existing != nil && existing.Status == models.ParticipationStatusRegistered {
		return nil, appErrors.Clone(appErrors.ErrDuplicateRegistration, "leader already registered for this event")
	}

	teamID := TeamRegistrationID(req.LeaderEnrollmentID, req.EventID)
	team := &models.Team{
		TeamRegistrationID: teamID,
		EventID:            req.EventID,
		Name:               req.TeamName,
		LeaderEnrollmentID: req.LeaderEnrollmentID,
		Roster:             models.TeamRoster{},
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create team")
	}

	leaderRecord := &models.Participation{
		RegistrationID:     RegistrationID(req.LeaderEnrollmentID, req.EventID),
		EnrollmentID:       req.LeaderEnrollmentID,
		EventID:            req.EventID,
		RegistrationType:   models.RegistrationTypeTeamLeader,
		TeamRegistrationID: &teamID,
		Status:             models.ParticipationStatusRegistered,
	}
	if err := s.records.Create(ctx, leaderRecord); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leader registration")
	}
	s.applyDelta(ctx, req.EventID, models.CounterDelta{Registered: 1})

	s.logger.Info("team registered",
		zap.String("team", teamID),
		zap.String("event", req.EventID),
		zap.String("leader", req.LeaderEnrollmentID),
	)
	return team, nil
}

// AddMember performs the three linked writes: roster append, member
// registration record, member participation record. A partial failure between
// steps is possible and is surfaced by Validate rather than hidden.
func (s *TeamService) AddMember(ctx context.Context, req AddMemberRequest) (*models.Team, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid add member payload")
	}
	team, err := s.loadTeam(ctx, req.TeamRegistrationID)
	if err != nil {
		return nil, err
	}
	if err := s.requireActiveStudent(ctx, req.EnrollmentID); err != nil {
		return nil, err
	}
	if team.Roster.Contains(req.EnrollmentID) || team.LeaderEnrollmentID == req.EnrollmentID {
		return nil, appErrors.Clone(appErrors.ErrDuplicateRegistration, "enrollment already part of this team")
	}
	existing, err := s.records.FindByEnrollmentAndEvent(ctx, req.EnrollmentID, team.EventID)
	if err != nil && !isNoRows(err) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing registration")
	}
	if existing != nil && existing.Status == models.ParticipationStatusRegistered {
		return nil, appErrors.Clone(appErrors.ErrDuplicateRegistration, "enrollment already registered for this event")
	}

	// Step 1: append to the leader's embedded roster.
	roster := append(models.TeamRoster{}, team.Roster...)
	roster = append(roster, models.TeamMember{EnrollmentID: req.EnrollmentID, Name: req.Name, Contact: req.Contact})
	if err := s.teams.UpdateRoster(ctx, team.TeamRegistrationID, roster); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update roster")
	}
	team.Roster = roster

	// Step 2: the member's own registration record.
	memberRecord := &models.TeamMemberRecord{
		TeamRegistrationID: team.TeamRegistrationID,
		EventID:            team.EventID,
		EnrollmentID:       req.EnrollmentID,
	}
	if err := s.teams.CreateMemberRecord(ctx, memberRecord); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConsistencyDrift.Code, appErrors.ErrConsistencyDrift.Status,
			"roster updated but member record creation failed; run team validation")
	}

	// Step 3: the member's participation record.
	participation := &models.Participation{
		RegistrationID:     RegistrationID(req.EnrollmentID, team.EventID),
		EnrollmentID:       req.EnrollmentID,
		EventID:            team.EventID,
		RegistrationType:   models.RegistrationTypeTeamMember,
		TeamRegistrationID: &team.TeamRegistrationID,
		Status:             models.ParticipationStatusRegistered,
	}
	if err := s.records.Create(ctx, participation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConsistencyDrift.Code, appErrors.ErrConsistencyDrift.Status,
			"roster and member record updated but participation creation failed; run team validation")
	}
	s.applyDelta(ctx, team.EventID, models.CounterDelta{Registered: 1})

	s.logger.Info("team member added",
		zap.String("team", team.TeamRegistrationID),
		zap.String("enrollment", req.EnrollmentID),
	)
	return team, nil
}

// RemoveMember mirrors AddMember in reverse: roster pull, member record
// delete, participation delete.
func (s *TeamService) RemoveMember(ctx context.Context, req RemoveMemberRequest) (*models.Team, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid remove member payload")
	}
	team, err := s.loadTeam(ctx, req.TeamRegistrationID)
	if err != nil {
		return nil, err
	}
	if !team.Roster.Contains(req.EnrollmentID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment is not in this team's roster")
	}

	participation, err := s.records.FindByEnrollmentAndEvent(ctx, req.EnrollmentID, team.EventID)
	if err != nil && !isNoRows(err) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member participation")
	}
	if participation != nil && participation.AttendanceID != nil {
		return nil, appErrors.Clone(appErrors.ErrStateViolation, "cannot remove a member whose attendance is already marked")
	}

	// Step 1: pull from the roster.
	roster := make(models.TeamRoster, 0, len(team.Roster))
	for _, m := range team.Roster {
		if m.EnrollmentID != req.EnrollmentID {
			roster = append(roster, m)
		}
	}
	if err := s.teams.UpdateRoster(ctx, team.TeamRegistrationID, roster); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update roster")
	}
	team.Roster = roster

	// Step 2: delete the member's registration record.
	if err := s.teams.DeleteMemberRecord(ctx, team.TeamRegistrationID, req.EnrollmentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConsistencyDrift.Code, appErrors.ErrConsistencyDrift.Status,
			"roster updated but member record deletion failed; run team validation")
	}

	// Step 3: delete the member's participation record.
	if participation != nil {
		if err := s.records.Delete(ctx, participation.RegistrationID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrConsistencyDrift.Code, appErrors.ErrConsistencyDrift.Status,
				"roster and member record updated but participation deletion failed; run team validation")
		}
		s.applyDelta(ctx, team.EventID, models.CounterDelta{Registered: -1})
	}

	s.logger.Info("team member removed",
		zap.String("team", team.TeamRegistrationID),
		zap.String("enrollment", req.EnrollmentID),
	)
	return team, nil
}

// Validate audits every team registered for an event, reporting set
// differences between the roster, the member records and the participation
// records. Drift is reported, never auto-corrected.
func (s *TeamService) Validate(ctx context.Context, eventID string) (*models.TeamValidationReport, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	teams, err := s.teams.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teams")
	}

	report := &models.TeamValidationReport{EventID: eventID, Consistent: true}
	for _, team := range teams {
		drift, err := s.auditTeam(ctx, &team)
		if err != nil {
			return nil, err
		}
		if !drift.Consistent {
			report.Consistent = false
		}
		report.Teams = append(report.Teams, *drift)
	}
	return report, nil
}

func (s *TeamService) auditTeam(ctx context.Context, team *models.Team) (*models.TeamDrift, error) {
	memberRecords, err := s.teams.ListMemberRecords(ctx, team.TeamRegistrationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list member records")
	}
	participations, err := s.records.ListByTeam(ctx, team.TeamRegistrationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list team participations")
	}

	rosterSet := map[string]struct{}{}
	for _, m := range team.Roster {
		rosterSet[m.EnrollmentID] = struct{}{}
	}
	recordSet := map[string]struct{}{}
	for _, r := range memberRecords {
		recordSet[r.EnrollmentID] = struct{}{}
	}
	participationSet := map[string]struct{}{}
	for _, p := range participations {
		participationSet[p.EnrollmentID] = struct{}{}
	}
	// Participation records include the leader; the roster does not.
	expectedParticipants := map[string]struct{}{team.LeaderEnrollmentID: {}}
	for id := range rosterSet {
		expectedParticipants[id] = struct{}{}
	}

	drift := &models.TeamDrift{
		TeamRegistrationID:    team.TeamRegistrationID,
		LeaderEnrollmentID:    team.LeaderEnrollmentID,
		MissingMemberRecords:  setDifference(rosterSet, recordSet),
		ExtraMemberRecords:    setDifference(recordSet, rosterSet),
		MissingParticipations: setDifference(expectedParticipants, participationSet),
		ExtraParticipations:   setDifference(participationSet, expectedParticipants),
	}
	drift.Consistent = len(drift.MissingMemberRecords) == 0 && len(drift.ExtraMemberRecords) == 0 &&
		len(drift.MissingParticipations) == 0 && len(drift.ExtraParticipations) == 0
	if !drift.Consistent {
		s.logger.Warn("team drift detected",
			zap.String("team", team.TeamRegistrationID),
			zap.Strings("missing_member_records", drift.MissingMemberRecords),
			zap.Strings("extra_member_records", drift.ExtraMemberRecords),
			zap.Strings("missing_participations", drift.MissingParticipations),
			zap.Strings("extra_participations", drift.ExtraParticipations),
		)
	}
	return drift, nil
}

func (s *TeamService) loadTeam(ctx context.Context, teamRegistrationID string) (*models.Team, error) {
	team, err := s.teams.FindByID(ctx, teamRegistrationID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	return team, nil
}

func (s *TeamService) requireActiveStudent(ctx context.Context, enrollmentID string) error {
	student, err := s.students.FindByEnrollmentID(ctx, enrollmentID)
	if err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return appErrors.Clone(appErrors.ErrValidation, "student is not active")
	}
	return nil
}

func (s *TeamService) applyDelta(ctx context.Context, eventID string, delta models.CounterDelta) {
	if err := s.counters.ApplyCounterDelta(ctx, eventID, delta); err != nil {
		s.logger.Warn("failed to apply counter delta", zap.String("event", eventID), zap.Error(err))
	}
}

func setDifference(a, b map[string]struct{}) []string {
	diff := make([]string, 0)
	for id := range a {
		if _, ok := b[id]; !ok {
			diff = append(diff, id)
		}
	}
	sort.Strings(diff)
	return diff
}
