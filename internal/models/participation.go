package models

import "time"

// RegistrationType distinguishes the participant representations.
type RegistrationType string

const (
	RegistrationTypeIndividual RegistrationType = "individual"
	RegistrationTypeTeamLeader RegistrationType = "team_leader"
	RegistrationTypeTeamMember RegistrationType = "team_member"
)

// Valid returns true when the type is a supported value.
func (t RegistrationType) Valid() bool {
	switch t {
	case RegistrationTypeIndividual, RegistrationTypeTeamLeader, RegistrationTypeTeamMember:
		return true
	default:
		return false
	}
}

// ParticipationStatus tracks whether a registration is live or soft-cancelled.
type ParticipationStatus string

const (
	ParticipationStatusRegistered ParticipationStatus = "registered"
	ParticipationStatusCancelled  ParticipationStatus = "cancelled"
)

// LifecycleState is the derived stage of a participation record.
type LifecycleState string

const (
	StateRegistered        LifecycleState = "REGISTERED"
	StateAttended          LifecycleState = "ATTENDED"
	StateFeedbackSubmitted LifecycleState = "FEEDBACK_SUBMITTED"
	StateCertified         LifecycleState = "CERTIFIED"
	StateCancelled         LifecycleState = "CANCELLED"
)

// Participation is the per-(enrollment, event) record tracking
// registration, attendance, feedback and certificate state. Stage ids are
// nullable: a set id is the proof the stage happened. An absence is stored
// with present=false and a NULL attendance id, which permanently blocks the
// feedback and certificate stages.
type Participation struct {
	RegistrationID     string              `db:"registration_id" json:"registration_id"`
	EnrollmentID       string              `db:"enrollment_id" json:"enrollment_id"`
	EventID            string              `db:"event_id" json:"event_id"`
	RegistrationType   RegistrationType    `db:"registration_type" json:"registration_type"`
	TeamRegistrationID *string             `db:"team_registration_id" json:"team_registration_id"`
	Status             ParticipationStatus `db:"status" json:"status"`

	AttendanceID       *string    `db:"attendance_id" json:"-"`
	AttendanceMarkedAt *time.Time `db:"attendance_marked_at" json:"-"`
	AttendancePresent  *bool      `db:"attendance_present" json:"-"`

	FeedbackID          *string    `db:"feedback_id" json:"-"`
	FeedbackSubmittedAt *time.Time `db:"feedback_submitted_at" json:"-"`
	FeedbackRating      *int       `db:"feedback_rating" json:"-"`
	FeedbackComments    *string    `db:"feedback_comments" json:"-"`

	CertificateID       *string    `db:"certificate_id" json:"-"`
	CertificateIssuedAt *time.Time `db:"certificate_issued_at" json:"-"`
	CertificatePath     *string    `db:"certificate_path" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// State derives the lifecycle stage from the stage ids.
func (p *Participation) State() LifecycleState {
	switch {
	case p.Status == ParticipationStatusCancelled:
		return StateCancelled
	case p.CertificateID != nil:
		return StateCertified
	case p.FeedbackID != nil:
		return StateFeedbackSubmitted
	case p.AttendanceID != nil:
		return StateAttended
	default:
		return StateRegistered
	}
}

// AttendanceBlock is the attendance section of the external record shape.
type AttendanceBlock struct {
	ID       *string    `json:"id"`
	MarkedAt *time.Time `json:"marked_at"`
	Present  *bool      `json:"present"`
}

// FeedbackBlock is the feedback section of the external record shape.
type FeedbackBlock struct {
	ID          *string    `json:"id"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

// CertificateBlock is the certificate section of the external record shape.
type CertificateBlock struct {
	ID       *string    `json:"id"`
	IssuedAt *time.Time `json:"issued_at"`
}

// ParticipationView is the record shape produced for API consumers.
type ParticipationView struct {
	RegistrationID     string              `json:"registration_id"`
	EnrollmentID       string              `json:"enrollment_id"`
	EventID            string              `json:"event_id"`
	RegistrationType   RegistrationType    `json:"registration_type"`
	TeamRegistrationID *string             `json:"team_registration_id"`
	Status             ParticipationStatus `json:"status"`
	State              LifecycleState      `json:"state"`
	Attendance         AttendanceBlock     `json:"attendance"`
	Feedback           FeedbackBlock       `json:"feedback"`
	Certificate        CertificateBlock    `json:"certificate"`
}

// View projects the record into its external shape.
func (p *Participation) View() ParticipationView {
	return ParticipationView{
		RegistrationID:     p.RegistrationID,
		EnrollmentID:       p.EnrollmentID,
		EventID:            p.EventID,
		RegistrationType:   p.RegistrationType,
		TeamRegistrationID: p.TeamRegistrationID,
		Status:             p.Status,
		State:              p.State(),
		Attendance:         AttendanceBlock{ID: p.AttendanceID, MarkedAt: p.AttendanceMarkedAt, Present: p.AttendancePresent},
		Feedback:           FeedbackBlock{ID: p.FeedbackID, SubmittedAt: p.FeedbackSubmittedAt},
		Certificate:        CertificateBlock{ID: p.CertificateID, IssuedAt: p.CertificateIssuedAt},
	}
}

// ParticipationFilter captures filtering criteria for listing participations.
type ParticipationFilter struct {
	EventID            string
	EnrollmentID       string
	TeamRegistrationID string
	Status             ParticipationStatus
	Page               int
	PageSize           int
}

// BulkItemResult captures one item's outcome inside a bulk operation summary.
type BulkItemResult struct {
	RegistrationID string      `json:"registration_id"`
	Success        bool        `json:"success"`
	Message        string      `json:"message"`
	Data           interface{} `json:"data,omitempty"`
}

// BulkResult aggregates per-item outcomes of a bulk operation.
type BulkResult struct {
	Processed    int              `json:"processed"`
	Errors       int              `json:"errors"`
	Results      []BulkItemResult `json:"results"`
	ErrorDetails []BulkItemResult `json:"error_details"`
}
