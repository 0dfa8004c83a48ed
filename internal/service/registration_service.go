package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushub/events-api/internal/models"
	appErrors "github.com/campushub/events-api/pkg/errors"
)

// registrationNamespace seeds deterministic registration ids. A retried
// register request for the same (enrollment, event) pair lands on the same
// record instead of duplicating it.
var registrationNamespace = uuid.MustParse("8f0a1b44-3c8d-4a56-9d1e-2b7f9c5e6a10")

// RegistrationID derives the idempotency key for an (enrollment, event) pair.
func RegistrationID(enrollmentID, eventID string) string {
	return uuid.NewSHA1(registrationNamespace, []byte(fmt.Sprintf("%s:%s", enrollmentID, eventID))).String()
}

type participationRepository interface {
	FindByRegistrationID(ctx context.Context, registrationID string) (*models.Participation, error)
	FindByEnrollmentAndEvent(ctx context.Context, enrollmentID, eventID string) (*models.Participation, error)
	List(ctx context.Context, filter models.ParticipationFilter) ([]models.Participation, int, error)
	ListByTeam(ctx context.Context, teamRegistrationID string) ([]models.Participation, error)
	Create(ctx context.Context, p *models.Participation) error
	SetStatus(ctx context.Context, registrationID string, status models.ParticipationStatus) error
}

type eventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type studentReader interface {
	FindByEnrollmentID(ctx context.Context, enrollmentID string) (*models.Student, error)
}

type counterApplier interface {
	ApplyCounterDelta(ctx context.Context, id string, delta models.CounterDelta) error
}

// RegisterRequest describes an individual registration payload.
type RegisterRequest struct {
	EnrollmentID string `json:"enrollment_id" validate:"required"`
	EventID      string `json:"event_id" validate:"required"`
}

// RegisterResult carries the registration outcome. AlreadyRegistered marks an
// idempotent retry that landed on the existing record.
type RegisterResult struct {
	Participation     *models.Participation `json:"-"`
	AlreadyRegistered bool                  `json:"already_registered"`
}

// RegistrationService is the thin orchestration façade over participation
// creation, cancellation and status queries.
type RegistrationService struct {
	repo      participationRepository
	events    eventReader
	students  studentReader
	counters  counterApplier
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs RegistrationService. cache may be nil.
func NewRegistrationService(repo participationRepository, events eventReader, students studentReader, counters counterApplier, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{repo: repo, events: events, students: students, counters: counters, cache: cache, validator: validate, logger: logger}
}

// Register creates an individual participation record. Retrying with the same
// (enrollment, event) pair returns the existing record and the same
// registration id.
func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}

	event, err := s.loadOpenEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.RegistrationMode.Allows(models.RegistrationTypeIndividual) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event does not accept individual registrations")
	}
	if err := s.requireActiveStudent(ctx, req.EnrollmentID); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEnrollmentAndEvent(ctx, req.EnrollmentID, req.EventID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing registration")
	}
	if existing != nil {
		switch {
		case existing.Status == models.ParticipationStatusRegistered && existing.RegistrationType == models.RegistrationTypeIndividual:
			// Idempotent retry: same record, same registration id.
			return &RegisterResult{Participation: existing, AlreadyRegistered: true}, nil
		case existing.Status == models.ParticipationStatusRegistered:
			return nil, appErrors.Clone(appErrors.ErrDuplicateRegistration,
				fmt.Sprintf("already registered for this event as %s", existing.RegistrationType))
		default:
			// Soft-cancelled record for the pair: reactivate it under the
			// same deterministic id. Records carrying an attendance mark are
			// terminal and never resurrected.
			if existing.AttendancePresent != nil {
				return nil, appErrors.Clone(appErrors.ErrStateViolation, "cannot re-register after attendance has been marked")
			}
			if err := s.repo.SetStatus(ctx, existing.RegistrationID, models.ParticipationStatusRegistered); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate registration")
			}
			existing.Status = models.ParticipationStatusRegistered
			s.applyDelta(ctx, event.ID, models.CounterDelta{Registered: 1, Cancelled: -1})
			s.cache.InvalidateStatus(ctx, existing.RegistrationID)
			return &RegisterResult{Participation: existing}, nil
		}
	}

	record := &models.Participation{
		RegistrationID:   RegistrationID(req.EnrollmentID, req.EventID),
		EnrollmentID:     req.EnrollmentID,
		EventID:          req.EventID,
		RegistrationType: models.RegistrationTypeIndividual,
		Status:           models.ParticipationStatusRegistered,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
	}
	s.applyDelta(ctx, event.ID, models.CounterDelta{Registered: 1})

	s.logger.Info("participant registered",
		zap.String("registration", record.RegistrationID),
		zap.String("event", event.ID),
		zap.String("enrollment", req.EnrollmentID),
	)
	return &RegisterResult{Participation: record}, nil
}

// Cancel soft-cancels a registration still in REGISTERED state. Records are
// never deleted; the cancelled row remains for audit.
func (s *RegistrationService) Cancel(ctx context.Context, registrationID string) (*models.Participation, error) {
	record, err := s.loadParticipation(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	switch {
	case record.State() == models.StateCancelled:
		return nil, appErrors.Clone(appErrors.ErrStateViolation, "registration already cancelled")
	case record.AttendancePresent != nil, record.State() != models.StateRegistered:
		// An absence marker counts as a mark even though it keeps the derived
		// state at REGISTERED; marked records stay for audit either way.
		return nil, appErrors.Clone(appErrors.ErrStateViolation, "cannot cancel after attendance has been marked")
	}
	if record.RegistrationType == models.RegistrationTypeTeamMember {
		return nil, appErrors.Clone(appErrors.ErrStateViolation, "team members are removed through their team")
	}

	if err := s.repo.SetStatus(ctx, registrationID, models.ParticipationStatusCancelled); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel registration")
	}
	record.Status = models.ParticipationStatusCancelled
	s.applyDelta(ctx, record.EventID, models.CounterDelta{Registered: -1, Cancelled: 1})
	s.cache.InvalidateStatus(ctx, registrationID)

	s.logger.Info("registration cancelled", zap.String("registration", registrationID))
	return record, nil
}

// GetStatus answers a status query, served from cache when possible.
func (s *RegistrationService) GetStatus(ctx context.Context, registrationID string) (*models.ParticipationView, error) {
	if view, ok := s.cache.GetStatus(ctx, registrationID); ok {
		return view, nil
	}
	record, err := s.loadParticipation(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	view := record.View()
	s.cache.SetStatus(ctx, registrationID, &view)
	return &view, nil
}

// ListByEvent returns an event's participation records.
func (s *RegistrationService) ListByEvent(ctx context.Context, eventID string, page, pageSize int) ([]models.ParticipationView, *models.Pagination, error) {
	filter := models.ParticipationFilter{EventID: eventID, Page: page, PageSize: pageSize}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participations")
	}
	views := make([]models.ParticipationView, len(records))
	for i := range records {
		views[i] = records[i].View()
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return views, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *RegistrationService) loadOpenEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.Status != models.EventStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrRegistrationClosed, "event registration is not open")
	}
	return event, nil
}

func (s *RegistrationService) requireActiveStudent(ctx context.Context, enrollmentID string) error {
	student, err := s.students.FindByEnrollmentID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return appErrors.Clone(appErrors.ErrValidation, "student is not active")
	}
	return nil
}

func (s *RegistrationService) loadParticipation(ctx context.Context, registrationID string) (*models.Participation, error) {
	record, err := s.repo.FindByRegistrationID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	return record, nil
}

// applyDelta funnels counter mutations through the event service. Counter
// drift is tolerable; the write that matters is the participation record.
func (s *RegistrationService) applyDelta(ctx context.Context, eventID string, delta models.CounterDelta) {
	if err := s.counters.ApplyCounterDelta(ctx, eventID, delta); err != nil {
		s.logger.Warn("failed to apply counter delta", zap.String("event", eventID), zap.Error(err))
	}
}
