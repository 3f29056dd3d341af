package models

import "time"

// Program is an offering clients can enroll in.
type Program struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	ShortCode   string    `db:"short_code" json:"short_code"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramDetail adds aggregate information to a program.
type ProgramDetail struct {
	Program
	EnrollmentCount int `db:"enrollment_count" json:"enrollment_count"`
}

// ProgramFilter captures listing options for programs.
type ProgramFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
