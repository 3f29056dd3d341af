package dto

import "github.com/noah-isme/healthcare-admin-api/internal/models"

// AnalyticsSummary aggregates registry statistics for the admin dashboard.
type AnalyticsSummary struct {
	Totals                 models.AnalyticsTotals          `json:"totals"`
	AgeDistribution        []models.LabelCount             `json:"age_distribution"`
	ResidenceDistribution  []models.LabelCount             `json:"residence_distribution"`
	ProfessionDistribution []models.LabelCount             `json:"profession_distribution"`
	MonthlyGrowth          []models.MonthlyGrowth          `json:"monthly_growth"`
	EnrollmentsByProgram   []models.ProgramEnrollmentCount `json:"enrollments_by_program"`
	From                   string                          `json:"from,omitempty"`
	To                     string                          `json:"to,omitempty"`
}

// AnalyticsQuery captures the date range accepted by analytics and export endpoints.
type AnalyticsQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}
