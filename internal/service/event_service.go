package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/events-api/internal/models"
	appErrors "github.com/campushub/events-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id string, status models.EventStatus) error
	UpdateClassification(ctx context.Context, id string, strategy models.AttendanceStrategy, timeline models.Timeline) error
	ApplyCounterDelta(ctx context.Context, id string, delta models.CounterDelta) error
}

type classifier interface {
	Classify(event *models.Event) (models.AttendanceStrategy, models.Timeline)
	Timeline(strategy models.AttendanceStrategy, event *models.Event) models.Timeline
}

// CreateEventRequest describes event creation payload.
type CreateEventRequest struct {
	Name             string     `json:"name" validate:"required"`
	EventType        string     `json:"event_type" validate:"required"`
	Description      string     `json:"description"`
	StartAt          *time.Time `json:"start_at"`
	EndAt            *time.Time `json:"end_at"`
	RegistrationMode string     `json:"registration_mode" validate:"required,oneof=individual team both"`
}

// UpdateEventRequest describes edits to a draft event. Edits to the type or
// the timestamps trigger re-classification; the cached strategy is immutable
// once registration opens. StrategyOverride pins the strategy instead of
// classifying, which is the only route to PERIODIC tracking.
type UpdateEventRequest struct {
	Name             string     `json:"name"`
	EventType        string     `json:"event_type"`
	Description      string     `json:"description"`
	StartAt          *time.Time `json:"start_at"`
	EndAt            *time.Time `json:"end_at"`
	StrategyOverride string     `json:"strategy_override" validate:"omitempty,oneof=SINGLE_MARK SESSION_BASED DAY_BASED MILESTONE_BASED PERIODIC"`
}

// EventService owns event publication and the event-level counters.
type EventService struct {
	repo       eventRepository
	classifier classifier
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEventService constructs EventService.
func NewEventService(repo eventRepository, classifier classifier, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, classifier: classifier, validator: validate, logger: logger}
}

// List returns events with pagination metadata.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return events, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single event including its cached strategy and timeline.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Create publishes a draft event. The classifier runs exactly once here and
// its result is cached on the record.
func (s *EventService) Create(ctx context.Context, createdBy string, req CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid event payload")
	}
	event := &models.Event{
		Name:             req.Name,
		EventType:        req.EventType,
		Description:      req.Description,
		StartAt:          req.StartAt,
		EndAt:            req.EndAt,
		RegistrationMode: models.RegistrationMode(req.RegistrationMode),
		Status:           models.EventStatusDraft,
		CreatedBy:        createdBy,
	}
	strategy, timeline := s.classifier.Classify(event)
	event.Strategy = strategy
	event.Timeline = timeline

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.logger.Info("event created",
		zap.String("event", event.ID),
		zap.String("strategy", string(strategy)),
	)
	return event, nil
}

// Update edits a draft event and re-runs the classifier. Rejected once
// registration has opened.
func (s *EventService) Update(ctx context.Context, id string, req UpdateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid event payload")
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Status != models.EventStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrStateViolation, "event can only be edited before registration opens")
	}

	if req.Name != "" {
		event.Name = req.Name
	}
	if req.EventType != "" {
		event.EventType = req.EventType
	}
	if req.Description != "" {
		event.Description = req.Description
	}
	if req.StartAt != nil {
		event.StartAt = req.StartAt
	}
	if req.EndAt != nil {
		event.EndAt = req.EndAt
	}

	strategy, timeline := s.classifier.Classify(event)
	if req.StrategyOverride != "" {
		strategy = models.AttendanceStrategy(req.StrategyOverride)
		timeline = s.classifier.Timeline(strategy, event)
		s.logger.Info("strategy overridden",
			zap.String("event", id),
			zap.String("strategy", string(strategy)),
		)
	}
	event.Strategy = strategy
	event.Timeline = timeline
	if err := s.repo.UpdateClassification(ctx, id, strategy, timeline); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return event, nil
}

// OpenRegistration moves a draft event into open registration, freezing the
// cached strategy.
func (s *EventService) OpenRegistration(ctx context.Context, id string) (*models.Event, error) {
	return s.transition(ctx, id, models.EventStatusDraft, models.EventStatusOpen, "only draft events can open registration")
}

// CloseRegistration moves an open event to closed.
func (s *EventService) CloseRegistration(ctx context.Context, id string) (*models.Event, error) {
	return s.transition(ctx, id, models.EventStatusOpen, models.EventStatusClosed, "only open events can close registration")
}

// Complete marks a closed event as completed.
func (s *EventService) Complete(ctx context.Context, id string) (*models.Event, error) {
	return s.transition(ctx, id, models.EventStatusClosed, models.EventStatusCompleted, "only closed events can be completed")
}

func (s *EventService) transition(ctx context.Context, id string, from, to models.EventStatus, msg string) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Status != from {
		return nil, appErrors.Clone(appErrors.ErrStateViolation, msg)
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event status")
	}
	event.Status = to
	return event, nil
}

// ApplyCounterDelta is the single funnel for event counter mutations.
func (s *EventService) ApplyCounterDelta(ctx context.Context, id string, delta models.CounterDelta) error {
	if err := s.repo.ApplyCounterDelta(ctx, id, delta); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply counter delta")
	}
	s.logger.Debug("counter delta applied",
		zap.String("event", id),
		zap.Int("registered", delta.Registered),
		zap.Int("attended", delta.Attended),
		zap.Int("cancelled", delta.Cancelled),
	)
	return nil
}
