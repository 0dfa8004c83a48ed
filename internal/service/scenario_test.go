package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/events-api/internal/models"
)

// Full journey: a short workshop participant registers, attends, submits
// feedback and walks away with a certificate.
func TestWorkshopParticipantJourney(t *testing.T) {
	ctx := context.Background()

	eventRepo := newMockEventRepo()
	eventSvc := NewEventService(eventRepo, NewStrategyService(nil), nil, nil)

	start := time.Date(2026, time.September, 7, 14, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	event, err := eventSvc.Create(ctx, "organizer-1", CreateEventRequest{
		Name:             "Intro to Git",
		EventType:        "Workshop",
		StartAt:          &start,
		EndAt:            &end,
		RegistrationMode: "individual",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StrategySingleMark, event.Strategy)

	_, err = eventSvc.OpenRegistration(ctx, event.ID)
	require.NoError(t, err)

	store := newFakeParticipationStore()
	students := newFakeStudentStore("STU-42")
	registrations := NewRegistrationService(store, eventRepo, students, eventSvc, nil, nil, nil)
	notifier := &stubNotifier{}
	lifecycle := NewLifecycleService(store, eventRepo, students, eventSvc,
		&stubRenderer{}, &stubFiles{}, stubSigner{}, notifier, nil, nil, nil)

	registered, err := registrations.Register(ctx, RegisterRequest{EnrollmentID: "STU-42", EventID: event.ID})
	require.NoError(t, err)
	regID := registered.Participation.RegistrationID

	_, err = lifecycle.MarkAttendance(ctx, MarkAttendanceRequest{RegistrationID: regID, Present: boolPtr(true)})
	require.NoError(t, err)
	_, err = lifecycle.SubmitFeedback(ctx, SubmitFeedbackRequest{RegistrationID: regID, Rating: 5, Comments: "clear and hands-on"})
	require.NoError(t, err)
	issued, err := lifecycle.IssueCertificate(ctx, regID)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.CertificateID)

	view, err := registrations.GetStatus(ctx, regID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCertified, view.State)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, issued.CertificateID, notifier.sent[0].CertificateID)

	final := eventRepo.events[event.ID]
	assert.Equal(t, 1, final.RegisteredCount)
	assert.Equal(t, 1, final.AttendedCount)
}

// A 48 hour hackathon gets checkpoint sessions and a team roster whose three
// representations stay consistent through add and remove.
func TestHackathonTeamJourney(t *testing.T) {
	ctx := context.Background()

	eventRepo := newMockEventRepo()
	eventSvc := NewEventService(eventRepo, NewStrategyService(nil), nil, nil)

	start := time.Date(2026, time.October, 9, 18, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	event, err := eventSvc.Create(ctx, "organizer-1", CreateEventRequest{
		Name:             "Weekend Hackathon",
		EventType:        "Hackathon",
		Description:      "48 hour build sprint",
		StartAt:          &start,
		EndAt:            &end,
		RegistrationMode: "team",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StrategySessionBased, event.Strategy)
	assert.GreaterOrEqual(t, len(event.Timeline), 2)

	_, err = eventSvc.OpenRegistration(ctx, event.ID)
	require.NoError(t, err)

	store := newFakeParticipationStore()
	teamsRepo := newFakeTeamStore()
	students := newFakeStudentStore("LEAD-1", "STU-1", "STU-2")
	teams := NewTeamService(teamsRepo, store, eventRepo, students, eventSvc, nil, nil)

	team, err := teams.RegisterTeam(ctx, RegisterTeamRequest{
		EventID:            event.ID,
		TeamName:           "Null Pointers",
		LeaderEnrollmentID: "LEAD-1",
	})
	require.NoError(t, err)

	_, err = teams.AddMember(ctx, AddMemberRequest{TeamRegistrationID: team.TeamRegistrationID, EnrollmentID: "STU-1", Name: "Student One"})
	require.NoError(t, err)
	_, err = teams.AddMember(ctx, AddMemberRequest{TeamRegistrationID: team.TeamRegistrationID, EnrollmentID: "STU-2", Name: "Student Two"})
	require.NoError(t, err)

	report, err := teams.Validate(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 3, eventRepo.events[event.ID].RegisteredCount)

	_, err = teams.RemoveMember(ctx, RemoveMemberRequest{TeamRegistrationID: team.TeamRegistrationID, EnrollmentID: "STU-2"})
	require.NoError(t, err)

	report, err = teams.Validate(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 2, eventRepo.events[event.ID].RegisteredCount)
}
