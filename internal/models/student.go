package models

import "time"

// Student represents an enrolled student able to participate in events.
type Student struct {
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	Department   string    `db:"department" json:"department"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	Department string
	Active     *bool
	Search     string
	Page       int
	PageSize   int
}
