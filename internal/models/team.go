package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TeamMember is one entry in a leader's embedded roster.
type TeamMember struct {
	EnrollmentID string `json:"enrollment_id"`
	Name         string `json:"name"`
	Contact      string `json:"contact"`
}

// TeamRoster is the embedded member list stored as JSONB on the team record.
// The leader is not part of the roster.
type TeamRoster []TeamMember

// Value implements driver.Valuer for JSONB storage.
func (r TeamRoster) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB storage.
func (r *TeamRoster) Scan(src interface{}) error {
	if src == nil {
		*r = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported roster source type %T", src)
	}
	return json.Unmarshal(raw, r)
}

// Contains reports whether the roster holds the enrollment id.
func (r TeamRoster) Contains(enrollmentID string) bool {
	for _, m := range r {
		if m.EnrollmentID == enrollmentID {
			return true
		}
	}
	return false
}

// Team is the leader-owned team record. The embedded roster must mirror the
// individually-owned member registration and participation records; the
// mirror is maintained by three linked writes that are not transactional.
type Team struct {
	TeamRegistrationID string     `db:"team_registration_id" json:"team_registration_id"`
	EventID            string     `db:"event_id" json:"event_id"`
	Name               string     `db:"name" json:"name"`
	LeaderEnrollmentID string     `db:"leader_enrollment_id" json:"leader_enrollment_id"`
	Roster             TeamRoster `db:"roster" json:"roster"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// TeamMemberRecord is a member's individually-owned registration row linked to
// a team. Created and deleted alongside the roster entry and the member's
// participation record.
type TeamMemberRecord struct {
	ID                 string    `db:"id" json:"id"`
	TeamRegistrationID string    `db:"team_registration_id" json:"team_registration_id"`
	EventID            string    `db:"event_id" json:"event_id"`
	EnrollmentID       string    `db:"enrollment_id" json:"enrollment_id"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// TeamDrift reports set differences between the three team representations
// for one team. Empty slices and Consistent=true mean no drift.
type TeamDrift struct {
	TeamRegistrationID    string   `json:"team_registration_id"`
	LeaderEnrollmentID    string   `json:"leader_enrollment_id"`
	Consistent            bool     `json:"consistent"`
	MissingMemberRecords  []string `json:"missing_member_records"`
	ExtraMemberRecords    []string `json:"extra_member_records"`
	MissingParticipations []string `json:"missing_participations"`
	ExtraParticipations   []string `json:"extra_participations"`
}

// TeamValidationReport is the on-demand audit result for an event.
type TeamValidationReport struct {
	EventID    string      `json:"event_id"`
	Consistent bool        `json:"consistent"`
	Teams      []TeamDrift `json:"teams"`
}
