package models

import "time"

// Enrollment links a client to a program under a generated identifier.
type Enrollment struct {
	ID           string    `db:"id" json:"id"`
	ClientID     string    `db:"client_id" json:"client_id"`
	ProgramID    string    `db:"program_id" json:"program_id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	EnrolledAt   time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail joins an enrollment with client and program labels.
type EnrollmentDetail struct {
	Enrollment
	ClientFirstName  string `db:"client_first_name" json:"client_first_name"`
	ClientLastName   string `db:"client_last_name" json:"client_last_name"`
	ProgramName      string `db:"program_name" json:"program_name"`
	ProgramShortCode string `db:"program_short_code" json:"program_short_code"`
}

// EnrollmentFilter captures listing options for enrollments.
type EnrollmentFilter struct {
	ClientID     string
	ProgramID    string
	Search       string
	EnrolledFrom *time.Time
	EnrolledTo   *time.Time
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
