package models

import "time"

// AnalyticsFilter bounds analytics and export queries by creation date.
type AnalyticsFilter struct {
	From *time.Time
	To   *time.Time
}

// AnalyticsTotals counts the primary entities.
type AnalyticsTotals struct {
	Clients     int `db:"clients" json:"clients"`
	Programs    int `db:"programs" json:"programs"`
	Enrollments int `db:"enrollments" json:"enrollments"`
}

// LabelCount is a generic bucket used by distributions.
type LabelCount struct {
	Label string `db:"label" json:"label"`
	Count int    `db:"count" json:"count"`
}

// MonthlyGrowth counts clients registered in a month.
type MonthlyGrowth struct {
	Month      string `db:"month" json:"month"`
	NewClients int    `db:"new_clients" json:"new_clients"`
	Cumulative int    `db:"-" json:"cumulative"`
}

// ProgramEnrollmentCount counts enrollments per program.
type ProgramEnrollmentCount struct {
	ProgramID   string `db:"program_id" json:"program_id"`
	ProgramName string `db:"program_name" json:"program_name"`
	ShortCode   string `db:"short_code" json:"short_code"`
	Count       int    `db:"count" json:"count"`
}
