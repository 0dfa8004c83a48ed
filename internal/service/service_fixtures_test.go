package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/campushub/events-api/internal/models"
	"github.com/campushub/events-api/pkg/export"
)

// fakeParticipationStore is an in-memory stand-in for the participation
// repository shared by the registration, lifecycle and team tests.
type fakeParticipationStore struct {
	mu      sync.Mutex
	records map[string]*models.Participation

	createErr error
	deleteErr error
}

func newFakeParticipationStore() *fakeParticipationStore {
	return &fakeParticipationStore{records: make(map[string]*models.Participation)}
}

func (f *fakeParticipationStore) FindByRegistrationID(_ context.Context, registrationID string) (*models.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[registrationID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (f *fakeParticipationStore) FindByEnrollmentAndEvent(_ context.Context, enrollmentID, eventID string) (*models.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.EnrollmentID == enrollmentID && record.EventID == eventID {
			clone := *record
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeParticipationStore) List(_ context.Context, filter models.ParticipationFilter) ([]models.Participation, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Participation, 0)
	for _, record := range f.records {
		if filter.EventID != "" && record.EventID != filter.EventID {
			continue
		}
		if filter.EnrollmentID != "" && record.EnrollmentID != filter.EnrollmentID {
			continue
		}
		out = append(out, *record)
	}
	return out, len(out), nil
}

func (f *fakeParticipationStore) ListByTeam(_ context.Context, teamRegistrationID string) ([]models.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Participation, 0)
	for _, record := range f.records {
		if record.TeamRegistrationID != nil && *record.TeamRegistrationID == teamRegistrationID &&
			record.Status == models.ParticipationStatusRegistered {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (f *fakeParticipationStore) Create(_ context.Context, p *models.Participation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	clone := *p
	f.records[p.RegistrationID] = &clone
	return nil
}

func (f *fakeParticipationStore) SetStatus(_ context.Context, registrationID string, status models.ParticipationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[registrationID]
	if !ok {
		return sql.ErrNoRows
	}
	record.Status = status
	return nil
}

func (f *fakeParticipationStore) SetAttendance(_ context.Context, registrationID string, attendanceID *string, markedAt time.Time, present bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[registrationID]
	if !ok {
		return sql.ErrNoRows
	}
	record.AttendanceID = attendanceID
	record.AttendanceMarkedAt = &markedAt
	record.AttendancePresent = &present
	return nil
}

func (f *fakeParticipationStore) SetFeedback(_ context.Context, registrationID, feedbackID string, submittedAt time.Time, rating int, comments string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[registrationID]
	if !ok {
		return sql.ErrNoRows
	}
	record.FeedbackID = &feedbackID
	record.FeedbackSubmittedAt = &submittedAt
	record.FeedbackRating = &rating
	record.FeedbackComments = &comments
	return nil
}

func (f *fakeParticipationStore) SetCertificate(_ context.Context, registrationID, certificateID string, issuedAt time.Time, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[registrationID]
	if !ok {
		return sql.ErrNoRows
	}
	record.CertificateID = &certificateID
	record.CertificateIssuedAt = &issuedAt
	record.CertificatePath = &path
	return nil
}

func (f *fakeParticipationStore) Delete(_ context.Context, registrationID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[registrationID]; !ok {
		return sql.ErrNoRows
	}
	delete(f.records, registrationID)
	return nil
}

func (f *fakeParticipationStore) get(registrationID string) *models.Participation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[registrationID]
}

// fakeEventStore serves events and records counter deltas.
type fakeEventStore struct {
	mu     sync.Mutex
	events map[string]*models.Event
	deltas []models.CounterDelta
}

func newFakeEventStore(events ...*models.Event) *fakeEventStore {
	store := &fakeEventStore{events: make(map[string]*models.Event)}
	for _, e := range events {
		store.events[e.ID] = e
	}
	return store
}

func (f *fakeEventStore) FindByID(_ context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *event
	return &clone, nil
}

func (f *fakeEventStore) ApplyCounterDelta(_ context.Context, id string, delta models.CounterDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := f.events[id]; ok {
		event.RegisteredCount += delta.Registered
		event.AttendedCount += delta.Attended
		event.CancelledCount += delta.Cancelled
	}
	f.deltas = append(f.deltas, delta)
	return nil
}

// fakeStudentStore serves the student directory.
type fakeStudentStore struct {
	students map[string]*models.Student
}

func newFakeStudentStore(enrollmentIDs ...string) *fakeStudentStore {
	store := &fakeStudentStore{students: make(map[string]*models.Student)}
	for _, id := range enrollmentIDs {
		store.students[id] = &models.Student{EnrollmentID: id, FullName: "Student " + id, Active: true}
	}
	return store
}

func (f *fakeStudentStore) FindByEnrollmentID(_ context.Context, enrollmentID string) (*models.Student, error) {
	student, ok := f.students[enrollmentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *student
	return &clone, nil
}

// fakeTeamStore is the in-memory team repository.
type fakeTeamStore struct {
	mu              sync.Mutex
	teams           map[string]*models.Team
	memberRecords   map[string][]models.TeamMemberRecord
	memberCreateErr error
}

func newFakeTeamStore() *fakeTeamStore {
	return &fakeTeamStore{
		teams:         make(map[string]*models.Team),
		memberRecords: make(map[string][]models.TeamMemberRecord),
	}
}

func (f *fakeTeamStore) FindByID(_ context.Context, teamRegistrationID string) (*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	team, ok := f.teams[teamRegistrationID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *team
	clone.Roster = append(models.TeamRoster{}, team.Roster...)
	return &clone, nil
}

func (f *fakeTeamStore) ListByEvent(_ context.Context, eventID string) ([]models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Team, 0)
	for _, team := range f.teams {
		if team.EventID == eventID {
			clone := *team
			clone.Roster = append(models.TeamRoster{}, team.Roster...)
			out = append(out, clone)
		}
	}
	return out, nil
}

func (f *fakeTeamStore) Create(_ context.Context, team *models.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *team
	f.teams[team.TeamRegistrationID] = &clone
	return nil
}

func (f *fakeTeamStore) UpdateRoster(_ context.Context, teamRegistrationID string, roster models.TeamRoster) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	team, ok := f.teams[teamRegistrationID]
	if !ok {
		return sql.ErrNoRows
	}
	team.Roster = append(models.TeamRoster{}, roster...)
	return nil
}

func (f *fakeTeamStore) CreateMemberRecord(_ context.Context, record *models.TeamMemberRecord) error {
	if f.memberCreateErr != nil {
		return f.memberCreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberRecords[record.TeamRegistrationID] = append(f.memberRecords[record.TeamRegistrationID], *record)
	return nil
}

func (f *fakeTeamStore) DeleteMemberRecord(_ context.Context, teamRegistrationID, enrollmentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := f.memberRecords[teamRegistrationID]
	out := records[:0]
	for _, r := range records {
		if r.EnrollmentID != enrollmentID {
			out = append(out, r)
		}
	}
	f.memberRecords[teamRegistrationID] = out
	return nil
}

func (f *fakeTeamStore) ListMemberRecords(_ context.Context, teamRegistrationID string) ([]models.TeamMemberRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TeamMemberRecord{}, f.memberRecords[teamRegistrationID]...), nil
}

// stubRenderer returns fixed PDF bytes.
type stubRenderer struct{ calls int }

func (r *stubRenderer) Render(export.CertificateData) ([]byte, error) {
	r.calls++
	return []byte("%PDF-1.4 stub"), nil
}

// stubFiles records saved certificate files.
type stubFiles struct {
	saved map[string][]byte
}

func (f *stubFiles) Save(filename string, data []byte) (string, error) {
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[filename] = data
	return filename, nil
}

// stubSigner issues predictable tokens.
type stubSigner struct{}

func (stubSigner) Generate(certificateID, relPath string) (string, time.Time, error) {
	return "token-" + certificateID, time.Now().UTC().Add(time.Hour), nil
}

// stubNotifier records notifications.
type stubNotifier struct {
	mu    sync.Mutex
	sent  []CertificateNotification
	fail  bool
	calls int
}

func (n *stubNotifier) CertificateIssued(_ context.Context, notice CertificateNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.fail {
		return context.DeadlineExceeded
	}
	n.sent = append(n.sent, notice)
	return nil
}

func openEvent(id string, mode models.RegistrationMode) *models.Event {
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	return &models.Event{
		ID:               id,
		Name:             "Event " + id,
		EventType:        "Workshop",
		RegistrationMode: mode,
		Status:           models.EventStatusOpen,
		StartAt:          &start,
		EndAt:            &end,
		Strategy:         models.StrategySingleMark,
	}
}
