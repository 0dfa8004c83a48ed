package models

import "time"

// EventStatus tracks where an event is in its publishing lifecycle.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusOpen      EventStatus = "OPEN"
	EventStatusClosed    EventStatus = "CLOSED"
	EventStatusCompleted EventStatus = "COMPLETED"
)

// RegistrationMode controls which participant representations an event accepts.
type RegistrationMode string

const (
	RegistrationModeIndividual RegistrationMode = "individual"
	RegistrationModeTeam       RegistrationMode = "team"
	RegistrationModeBoth       RegistrationMode = "both"
)

// Allows reports whether the mode admits the given registration type.
func (m RegistrationMode) Allows(t RegistrationType) bool {
	switch m {
	case RegistrationModeIndividual:
		return t == RegistrationTypeIndividual
	case RegistrationModeTeam:
		return t == RegistrationTypeTeamLeader || t == RegistrationTypeTeamMember
	case RegistrationModeBoth:
		return true
	default:
		return false
	}
}

// Event represents a campus event. The event type label is free text supplied
// by organizers and is expected to be noisy.
type Event struct {
	ID               string             `db:"id" json:"id"`
	Name             string             `db:"name" json:"name"`
	EventType        string             `db:"event_type" json:"event_type"`
	Description      string             `db:"description" json:"description"`
	StartAt          *time.Time         `db:"start_at" json:"start_at,omitempty"`
	EndAt            *time.Time         `db:"end_at" json:"end_at,omitempty"`
	RegistrationMode RegistrationMode   `db:"registration_mode" json:"registration_mode"`
	Status           EventStatus        `db:"status" json:"status"`
	Strategy         AttendanceStrategy `db:"strategy" json:"strategy"`
	Timeline         Timeline           `db:"timeline" json:"timeline"`
	RegisteredCount  int                `db:"registered_count" json:"registered_count"`
	AttendedCount    int                `db:"attended_count" json:"attended_count"`
	CancelledCount   int                `db:"cancelled_count" json:"cancelled_count"`
	CreatedBy        string             `db:"created_by" json:"created_by"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// CounterDelta captures a single auditable mutation to the event counters.
// All counter writes funnel through EventService.ApplyCounterDelta.
type CounterDelta struct {
	Registered int
	Attended   int
	Cancelled  int
}

// EventFilter captures filtering criteria for listing events.
type EventFilter struct {
	Status    EventStatus
	EventType string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
