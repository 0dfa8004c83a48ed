package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campushub/events-api/internal/models"
)

var eventRows = []string{
	"id", "name", "event_type", "description", "start_at", "end_at", "registration_mode", "status",
	"strategy", "timeline", "registered_count", "attended_count", "cancelled_count", "created_by", "created_at", "updated_at",
}

func TestEventRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(eventRows).
		AddRow("evt-1", "Intro to Git", "Workshop", "", nil, nil, models.RegistrationModeIndividual, models.EventStatusOpen,
			models.StrategySingleMark, []byte(`[]`), 0, 0, 0, "user-1", now, now)
	mock.ExpectQuery("SELECT (.+) FROM events WHERE id = \\$1").
		WithArgs("evt-1").
		WillReturnRows(rows)

	event, err := repo.FindByID(context.Background(), "evt-1")
	require.NoError(t, err)
	require.Equal(t, models.EventStatusOpen, event.Status)
	require.Equal(t, models.StrategySingleMark, event.Strategy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := &models.Event{
		Name:             "Weekend Hackathon",
		EventType:        "Hackathon",
		RegistrationMode: models.RegistrationModeTeam,
		Status:           models.EventStatusDraft,
		Strategy:         models.StrategySessionBased,
	}
	require.NoError(t, repo.Create(context.Background(), event))
	require.NotEmpty(t, event.ID)
	require.False(t, event.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(eventRows).
		AddRow("evt-1", "Intro to Git", "Workshop", "", nil, nil, models.RegistrationModeIndividual, models.EventStatusOpen,
			models.StrategySingleMark, []byte(`[]`), 3, 0, 0, "user-1", now, now)
	mock.ExpectQuery("SELECT (.+) FROM events WHERE status = \\$1 ORDER BY created_at DESC").
		WithArgs(models.EventStatusOpen).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM events WHERE status = $1")).
		WithArgs(models.EventStatusOpen).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	events, total, err := repo.List(context.Background(), models.EventFilter{Status: models.EventStatusOpen})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryApplyCounterDelta(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("registered_count = registered_count + $2")).
		WithArgs("evt-1", 1, 0, -1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyCounterDelta(context.Background(), "evt-1", models.CounterDelta{Registered: 1, Cancelled: -1})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
