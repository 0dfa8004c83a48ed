package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/events-api/internal/models"
)

// EventRepository handles persistence of events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, name, event_type, description, start_at, end_at, registration_mode, status,
strategy, timeline, registered_count, attended_count, cancelled_count, created_by, created_at, updated_at`

// List returns events filtered by the provided criteria.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.EventType != "" {
		conditions = append(conditions, fmt.Sprintf("event_type ILIKE $%d", len(args)+1))
		args = append(args, filter.EventType)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"start_at":   "start_at",
		"name":       "name",
		"created_at": "created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM events%s ORDER BY %s %s LIMIT %d OFFSET %d",
		eventColumns, clause, orderBy, order, size, offset)

	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM events" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// FindByID loads a single event.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE id = $1", eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	query := `INSERT INTO events (id, name, event_type, description, start_at, end_at, registration_mode, status,
strategy, timeline, registered_count, attended_count, cancelled_count, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Name, event.EventType, event.Description, event.StartAt, event.EndAt,
		event.RegistrationMode, event.Status, event.Strategy, event.Timeline,
		event.RegisteredCount, event.AttendedCount, event.CancelledCount,
		event.CreatedBy, event.CreatedAt, event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// UpdateStatus moves the event to a new lifecycle status.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	query := `UPDATE events SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	return nil
}

// UpdateClassification replaces the cached strategy and timeline, plus the
// metadata fields the classifier depends on.
func (r *EventRepository) UpdateClassification(ctx context.Context, id string, strategy models.AttendanceStrategy, timeline models.Timeline) error {
	query := `UPDATE events SET strategy = $2, timeline = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, strategy, timeline, time.Now().UTC()); err != nil {
		return fmt.Errorf("update event classification: %w", err)
	}
	return nil
}

// ApplyCounterDelta mutates the event counters in a single write.
func (r *EventRepository) ApplyCounterDelta(ctx context.Context, id string, delta models.CounterDelta) error {
	query := `UPDATE events SET
registered_count = registered_count + $2,
attended_count = attended_count + $3,
cancelled_count = cancelled_count + $4,
updated_at = $5
WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, delta.Registered, delta.Attended, delta.Cancelled, time.Now().UTC()); err != nil {
		return fmt.Errorf("apply counter delta: %w", err)
	}
	return nil
}
