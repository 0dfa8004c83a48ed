package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/events-api/internal/models"
	appErrors "github.com/campushub/events-api/pkg/errors"
)

type lifecycleFixture struct {
	svc      *LifecycleService
	store    *fakeParticipationStore
	events   *fakeEventStore
	files    *stubFiles
	notifier *stubNotifier
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	store := newFakeParticipationStore()
	events := newFakeEventStore(openEvent("evt-1", models.RegistrationModeIndividual))
	students := newFakeStudentStore("STU-1", "STU-2")
	files := &stubFiles{}
	notifier := &stubNotifier{}
	svc := NewLifecycleService(store, events, students, events,
		&stubRenderer{}, files, stubSigner{}, notifier, nil, nil, nil)
	return &lifecycleFixture{svc: svc, store: store, events: events, files: files, notifier: notifier}
}

func (f *lifecycleFixture) seedRegistration(t *testing.T, enrollmentID string) string {
	t.Helper()
	record := &models.Participation{
		RegistrationID:   RegistrationID(enrollmentID, "evt-1"),
		EnrollmentID:     enrollmentID,
		EventID:          "evt-1",
		RegistrationType: models.RegistrationTypeIndividual,
		Status:           models.ParticipationStatusRegistered,
	}
	require.NoError(t, f.store.Create(context.Background(), record))
	return record.RegistrationID
}

func boolPtr(v bool) *bool { return &v }

func TestMarkAttendance(t *testing.T) {
	ctx := context.Background()

	t.Run("present mark sets id and counter", func(t *testing.T) {
		f := newLifecycleFixture(t)
		id := f.seedRegistration(t, "STU-1")

		result, err := f.svc.MarkAttendance(ctx, MarkAttendanceRequest{RegistrationID: id, Present: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, result.Present)
		require.NotNil(t, result.AttendanceID)
		assert.Equal(t, models.StateAttended, f.store.get(id).State())
		assert.Equal(t, 1, f.events.events["evt-1"].AttendedCount)
	})

	t.Run("absent mark stores null id and stays terminal", func(t *testing.T) {
		f := newLifecycleFixture(t)
		id := f.seedRegistration(t, "STU-1")

		result, err := f.svc.MarkAttendance(ctx, MarkAttendanceRequest{RegistrationID: id, Present: boolPtr(false)})
		require.NoError(t, err)
		assert.False(t, result.Present)
		assert.Nil(t, result.AttendanceID)
		// No attendance id means the record never leaves REGISTERED.
		assert.Equal(t, models.StateRegistered, f.store.get(id).State())
		assert.Equal(t, 0, f.events.events["evt-1"].AttendedCount)

		_, err = f.svc.SubmitFeedback(ctx, SubmitFeedbackRequest{RegistrationID: id, Rating: 5, Comments: "great"})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrStateViolation.Code, appErrors.FromError(err).Code)
	})

	t.Run("second mark is a no-op returning the first outcome", func(t *testing.T) {
		f := newLifecycleFixture(t)
		id := f.seedRegistration(t, "STU-1")

		first, err := f.svc.MarkAttendance(ctx, MarkAttendanceRequest{RegistrationID: id, Present: boolPtr(true)})
		require.NoError(t, err)
		second, err := f.svc.MarkAttendance(ctx, MarkAttendanceRequest{RegistrationID: id, Present: boolPtr(false)})
		require.NoError(t, err)

		assert.True(t, second.AlreadyMarked)
		assert.True(t, second.Present)
		assert.Equal(t, first.AttendanceID, second.AttendanceID)
		assert.Equal(t, 1, f.events.events["evt-1"].AttendedCount)
	})

	t.Run("cancelled registration rejects attendance", func(t *testing.T) {
		f := newLifecycleFixture(t)
		id := f.seedRegistration(t, "STU-1")
		require.NoError(t, f.store.SetStatus(ctx, id, models.ParticipationStatusCancelled))

		_, err := f.svc.MarkAttendance(ctx, MarkAttendanceRequest{RegistrationID: id, Present: boolPtr(true)})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrStateViolation.Code, appErrors.FromError(err).Code)
	})
}

func TestSubmitFeedbackGate(t *testing.T) {
	ctx := context.Background()

	t.Run("requires attendance first", func(t *testing.T) {
		f := newLifecycleFixture(t)
		id := f.seedRegistration(t, "STU-1")

		_, err := f.svc.SubmitFeedback(ctx, SubmitFeedbackRequest{RegistrationID: id, Rating: 4, Comments: "good session"})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrStateViolation.Code, appErrors.FromError(err).Code)
	})

	t.Run("attended record accepts feedback once", func(t *testing.T) {
		f := newLifecycleFixture(t)
		id := f.seedRegistration(t, "STU-1")
		_, err := f.svc.MarkAttendance(ctx, MarkAttendanceRequest{RegistrationID: id, Present: boolPtr(true)})
		require.NoError(t, err)

		first, err := f.svc.SubmitFeedback(ctx, SubmitFeedbackRequest{RegistrationID: id, Rating: 4, Comments: "good session"})
		require.NoError(t, err)
		assert.NotEmpty(t, first.FeedbackID)
		assert.Equal(t, models.StateFeedbackSubmitted, f.store.get(id).State())

		second, err := f.svc.SubmitFeedback(ctx, SubmitFeedbackRequest{RegistrationID: id, Rating: 1, Comments: "changed my mind"})
		require.NoError(t, err)
		assert.True(t, second.AlreadySubmitted)
		assert.Equal(t, first.FeedbackID, second.FeedbackID)
	})

	t.Run("rejects out-of-range rating", func(t *testing.T) {
		f := newLifecycleFixture(t)
		id := f.seedRegistration(t, "STU-1")
		_, err := f.svc.MarkAttendance(ctx, MarkAttendanceRequest{RegistrationID: id, Present: boolPtr(true)})
		require.NoError(t, err)

		_, err = f.svc.SubmitFeedback(ctx, SubmitFeedbackRequest{RegistrationID: id, Rating: 6, Comments: "x"})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

		_, err = f.svc.SubmitFeedback(ctx, SubmitFeedbackRequest{RegistrationID: id, Rating: 3})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	})
}

func TestIssueCertificateGate(t *testing.T) {
	ctx := context.Background()

	t.Run("requires feedback first", func(t *testing.T) {
		f := newLifecycleFixture(t)
		id := f.seedRegistration(t, "STU-1")

		_, err := f.svc.IssueCertificate(ctx, id)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrStateViolation.Code, appErrors.FromError(err).Code)

		_, err = f.svc.MarkAttendance(ctx, MarkAttendanceRequest{RegistrationID: id, Present: boolPtr(true)})
		require.NoError(t, err)
		_, err = f.svc.IssueCertificate(ctx, id)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrStateViolation.Code, appErrors.FromError(err).Code)
	})

	t.Run("issues once and retries return the same id", func(t *testing.T) {
		f := newLifecycleFixture(t)
		id := f.seedRegistration(t, "STU-1")
		_, err := f.svc.MarkAttendance(ctx, MarkAttendanceRequest{RegistrationID: id, Present: boolPtr(true)})
		require.NoError(t, err)
		_, err = f.svc.SubmitFeedback(ctx, SubmitFeedbackRequest{RegistrationID: id, Rating: 5, Comments: "excellent"})
		require.NoError(t, err)

		first, err := f.svc.IssueCertificate(ctx, id)
		require.NoError(t, err)
		assert.NotEmpty(t, first.CertificateID)
		assert.Equal(t, "token-"+first.CertificateID, first.DownloadToken)
		assert.Equal(t, models.StateCertified, f.store.get(id).State())
		assert.Len(t, f.files.saved, 1)
		assert.Len(t, f.notifier.sent, 1)

		second, err := f.svc.IssueCertificate(ctx, id)
		require.NoError(t, err)
		assert.True(t, second.AlreadyIssued)
		assert.Equal(t, first.CertificateID, second.CertificateID)
		// No second render or notification on retry.
		assert.Len(t, f.files.saved, 1)
		assert.Equal(t, 1, f.notifier.calls)
	})

	t.Run("notification failure never unwinds issuance", func(t *testing.T) {
		f := newLifecycleFixture(t)
		f.notifier.fail = true
		id := f.seedRegistration(t, "STU-1")
		_, err := f.svc.MarkAttendance(ctx, MarkAttendanceRequest{RegistrationID: id, Present: boolPtr(true)})
		require.NoError(t, err)
		_, err = f.svc.SubmitFeedback(ctx, SubmitFeedbackRequest{RegistrationID: id, Rating: 5, Comments: "excellent"})
		require.NoError(t, err)

		result, err := f.svc.IssueCertificate(ctx, id)
		require.NoError(t, err)
		assert.NotEmpty(t, result.CertificateID)
		assert.Equal(t, models.StateCertified, f.store.get(id).State())
	})
}

func TestBulkMarkAttendanceNeverAborts(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t)
	a := f.seedRegistration(t, "STU-1")
	b := f.seedRegistration(t, "STU-2")

	result, err := f.svc.BulkMarkAttendance(ctx, BulkMarkAttendanceRequest{Items: []BulkMarkAttendanceItem{
		{RegistrationID: a, Present: boolPtr(true)},
		{RegistrationID: "missing", Present: boolPtr(true)},
		{RegistrationID: b, Present: boolPtr(false)},
	}})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.Results, 3)
	assert.True(t, result.Results[0].Success)
	assert.False(t, result.Results[1].Success)
	assert.True(t, result.Results[2].Success)
	require.Len(t, result.ErrorDetails, 1)
	assert.Equal(t, "missing", result.ErrorDetails[0].RegistrationID)

	assert.Equal(t, models.StateAttended, f.store.get(a).State())
	assert.Equal(t, models.StateRegistered, f.store.get(b).State())
}
