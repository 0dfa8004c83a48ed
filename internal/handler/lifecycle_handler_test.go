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

func (m *memoryParticipationStore) SetAttendance(_ context.Context, id string, attendanceID *string, markedAt time.Time, present bool) error {
	record, ok := m.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	record.AttendanceID = attendanceID
	record.AttendanceMarkedAt = &markedAt
	record.AttendancePresent = &present
	return nil
}

func (m *memoryParticipationStore) SetFeedback(_ context.Context, id, feedbackID string, submittedAt time.Time, rating int, comments string) error {
	record, ok := m.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	record.FeedbackID = &feedbackID
	record.FeedbackSubmittedAt = &submittedAt
	record.FeedbackRating = &rating
	record.FeedbackComments = &comments
	return nil
}

func (m *memoryParticipationStore) SetCertificate(_ context.Context, id, certificateID string, issuedAt time.Time, path string) error {
	record, ok := m.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	record.CertificateID = &certificateID
	record.CertificateIssuedAt = &issuedAt
	record.CertificatePath = &path
	return nil
}

func newLifecycleHandlerFixture() (*LifecycleHandler, *memoryParticipationStore) {
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
	store := &memoryParticipationStore{records: map[string]*models.Participation{
		"reg-1": {
			RegistrationID:   "reg-1",
			EnrollmentID:     "STU-1",
			EventID:          "evt-1",
			RegistrationType: models.RegistrationTypeIndividual,
			Status:           models.ParticipationStatusRegistered,
		},
	}}
	svc := service.NewLifecycleService(store, events, students, events, nil, nil, nil, nil, nil, nil, nil)
	return NewLifecycleHandler(svc, nil), store
}

func TestLifecycleHandlerMarkAttendance(t *testing.T) {
	handler, store := newLifecycleHandlerFixture()
	present := true
	params := gin.Params{{Key: "id", Value: "reg-1"}}

	w := postJSON(t, handler.MarkAttendance, "/registrations/reg-1/attendance", service.MarkAttendanceRequest{Present: &present}, params)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "attendance recorded", envelope.Message)
	require.NotNil(t, store.records["reg-1"].AttendanceID)
}

func TestLifecycleHandlerMarkAttendanceRequiresPresent(t *testing.T) {
	handler, _ := newLifecycleHandlerFixture()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/registrations/reg-1/attendance", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "reg-1"}}
	handler.MarkAttendance(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLifecycleHandlerFeedbackBeforeAttendance(t *testing.T) {
	handler, _ := newLifecycleHandlerFixture()
	params := gin.Params{{Key: "id", Value: "reg-1"}}
	payload := service.SubmitFeedbackRequest{Rating: 5, Comments: "great workshop"}

	w := postJSON(t, handler.SubmitFeedback, "/registrations/reg-1/feedback", payload, params)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "STATE_VIOLATION", envelope.Error.Code)
}
