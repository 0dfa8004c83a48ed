package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/events-api/internal/models"
	"github.com/campushub/events-api/internal/service"
	"github.com/campushub/events-api/pkg/response"
)

type memoryParticipationStore struct {
	records map[string]*models.Participation
}

func (m *memoryParticipationStore) FindByRegistrationID(_ context.Context, id string) (*models.Participation, error) {
	record, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (m *memoryParticipationStore) FindByEnrollmentAndEvent(_ context.Context, enrollmentID, eventID string) (*models.Participation, error) {
	for _, record := range m.records {
		if record.EnrollmentID == enrollmentID && record.EventID == eventID {
			clone := *record
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryParticipationStore) List(_ context.Context, filter models.ParticipationFilter) ([]models.Participation, int, error) {
	out := make([]models.Participation, 0)
	for _, record := range m.records {
		if filter.EventID == "" || record.EventID == filter.EventID {
			out = append(out, *record)
		}
	}
	return out, len(out), nil
}

func (m *memoryParticipationStore) ListByTeam(_ context.Context, _ string) ([]models.Participation, error) {
	return nil, nil
}

func (m *memoryParticipationStore) Create(_ context.Context, p *models.Participation) error {
	if m.records == nil {
		m.records = make(map[string]*models.Participation)
	}
	clone := *p
	m.records[p.RegistrationID] = &clone
	return nil
}

func (m *memoryParticipationStore) SetStatus(_ context.Context, id string, status models.ParticipationStatus) error {
	record, ok := m.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	record.Status = status
	return nil
}

type memoryEventStore struct {
	events map[string]*models.Event
}

func (m *memoryEventStore) FindByID(_ context.Context, id string) (*models.Event, error) {
	event, ok := m.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *event
	return &clone, nil
}

func (m *memoryEventStore) ApplyCounterDelta(_ context.Context, _ string, _ models.CounterDelta) error {
	return nil
}

type memoryStudentStore struct {
	students map[string]*models.Student
}

func (m *memoryStudentStore) FindByEnrollmentID(_ context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *student
	return &clone, nil
}

func newRegistrationHandlerFixture() (*RegistrationHandler, *memoryParticipationStore, *service.MetricsService) {
	gin.SetMode(gin.TestMode)
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	events := &memoryEventStore{events: map[string]*models.Event{
		"evt-1": {
			ID:               "evt-1",
			Name:             "Intro to Git",
			EventType:        "Workshop",
			RegistrationMode: models.RegistrationModeIndividual,
			Status:           models.EventStatusOpen,
			StartAt:          &start,
			EndAt:            &end,
		},
	}}
	students := &memoryStudentStore{students: map[string]*models.Student{
		"STU-1": {EnrollmentID: "STU-1", FullName: "Student One", Active: true},
	}}
	store := &memoryParticipationStore{records: make(map[string]*models.Participation)}
	svc := service.NewRegistrationService(store, events, students, events, nil, nil, nil)
	metrics := service.NewMetricsService()
	return NewRegistrationHandler(svc, metrics), store, metrics
}

// scrape renders the metrics registry as Prometheus exposition text.
func scrape(t *testing.T, metrics *service.MetricsService) string {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/metrics", nil)
	require.NoError(t, err)
	metrics.Handler().ServeHTTP(w, req)
	return w.Body.String()
}

func postJSON(t *testing.T, h gin.HandlerFunc, path string, payload interface{}, params gin.Params) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params
	h(c)
	return w
}

func TestRegistrationHandlerRegister(t *testing.T) {
	handler, _, metrics := newRegistrationHandlerFixture()
	payload := service.RegisterRequest{EnrollmentID: "STU-1", EventID: "evt-1"}

	w := postJSON(t, handler.Register, "/registrations", payload, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "registered", envelope.Message)

	// Retrying the identical request lands on the existing record.
	w = postJSON(t, handler.Register, "/registrations", payload, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "already registered", envelope.Message)

	// Only the first request counts; idempotent retries do not inflate it.
	assert.Contains(t, scrape(t, metrics), `registrations_total{type="individual"} 1`)
}

func TestRegistrationHandlerRegisterInvalidBody(t *testing.T) {
	handler, _, _ := newRegistrationHandlerFixture()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/registrations", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
}

func TestRegistrationHandlerCancelConflict(t *testing.T) {
	handler, store, metrics := newRegistrationHandlerFixture()

	w := postJSON(t, handler.Register, "/registrations", service.RegisterRequest{EnrollmentID: "STU-1", EventID: "evt-1"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var regID string
	for id := range store.records {
		regID = id
	}
	params := gin.Params{{Key: "id", Value: regID}}

	w = postJSON(t, handler.Cancel, "/registrations/"+regID+"/cancel", nil, params)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, handler.Cancel, "/registrations/"+regID+"/cancel", nil, params)
	require.Equal(t, http.StatusConflict, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "STATE_VIOLATION", envelope.Error.Code)

	// The rejected second cancel must not count.
	assert.Contains(t, scrape(t, metrics), "cancellations_total 1")
}

func TestRegistrationHandlerStatusNotFound(t *testing.T) {
	handler, _, _ := newRegistrationHandlerFixture()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/registrations/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Status(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
