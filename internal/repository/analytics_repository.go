package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
)

// AnalyticsRepository exposes read-only aggregates over clients and enrollments.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func rangeConditions(column string, filter models.AnalyticsFilter, args []interface{}) ([]string, []interface{}) {
	var conditions []string
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", column, len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("%s < $%d", column, len(args)))
	}
	return conditions, args
}

// Totals counts clients and enrollments in range plus all programs.
func (r *AnalyticsRepository) Totals(ctx context.Context, filter models.AnalyticsFilter) (models.AnalyticsTotals, error) {
	clientConds, args := rangeConditions("created_at", filter, nil)
	enrollConds, args := rangeConditions("enrolled_at", filter, args)

	query := fmt.Sprintf(`SELECT
        (SELECT COUNT(*) FROM clients%s) AS clients,
        (SELECT COUNT(*) FROM programs) AS programs,
        (SELECT COUNT(*) FROM enrollments%s) AS enrollments`, whereClause(clientConds), whereClause(enrollConds))

	var totals models.AnalyticsTotals
	if err := r.db.GetContext(ctx, &totals, query, args...); err != nil {
		return totals, fmt.Errorf("analytics totals: %w", err)
	}
	return totals, nil
}

// ClientAges returns the age of every client in range.
func (r *AnalyticsRepository) ClientAges(ctx context.Context, filter models.AnalyticsFilter) ([]int, error) {
	conds, args := rangeConditions("created_at", filter, nil)
	ages := []int{}
	if err := r.db.SelectContext(ctx, &ages, "SELECT age FROM clients"+whereClause(conds), args...); err != nil {
		return nil, fmt.Errorf("analytics client ages: %w", err)
	}
	return ages, nil
}

// ResidenceDistribution counts clients per area of residence.
func (r *AnalyticsRepository) ResidenceDistribution(ctx context.Context, filter models.AnalyticsFilter) ([]models.LabelCount, error) {
	conds, args := rangeConditions("created_at", filter, nil)
	query := "SELECT area_of_residence AS label, COUNT(*) AS count FROM clients" + whereClause(conds) +
		" GROUP BY area_of_residence ORDER BY count DESC, label ASC"
	rows := []models.LabelCount{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("analytics residence: %w", err)
	}
	return rows, nil
}

// ProfessionDistribution counts clients per trimmed profession; blanks collapse into one empty label.
func (r *AnalyticsRepository) ProfessionDistribution(ctx context.Context, filter models.AnalyticsFilter) ([]models.LabelCount, error) {
	conds, args := rangeConditions("created_at", filter, nil)
	query := "SELECT TRIM(profession) AS label, COUNT(*) AS count FROM clients" + whereClause(conds) +
		" GROUP BY TRIM(profession) ORDER BY count DESC, label ASC"
	rows := []models.LabelCount{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("analytics professions: %w", err)
	}
	return rows, nil
}

// MonthlyGrowth counts new clients per calendar month (UTC).
func (r *AnalyticsRepository) MonthlyGrowth(ctx context.Context, filter models.AnalyticsFilter) ([]models.MonthlyGrowth, error) {
	conds, args := rangeConditions("created_at", filter, nil)
	query := "SELECT TO_CHAR(created_at AT TIME ZONE 'UTC', 'YYYY-MM') AS month, COUNT(*) AS new_clients FROM clients" +
		whereClause(conds) + " GROUP BY month ORDER BY month ASC"
	rows := []models.MonthlyGrowth{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("analytics monthly growth: %w", err)
	}
	return rows, nil
}

// ClientsBefore counts clients registered before at.
func (r *AnalyticsRepository) ClientsBefore(ctx context.Context, at time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM clients WHERE created_at < $1", at); err != nil {
		return 0, fmt.Errorf("analytics clients before: %w", err)
	}
	return count, nil
}

// EnrollmentsByProgram counts enrollments in range for every program, including empty ones.
func (r *AnalyticsRepository) EnrollmentsByProgram(ctx context.Context, filter models.AnalyticsFilter) ([]models.ProgramEnrollmentCount, error) {
	conds, args := rangeConditions("e.enrolled_at", filter, nil)
	join := "LEFT JOIN enrollments e ON e.program_id = p.id"
	for _, cond := range conds {
		join += " AND " + cond
	}
	query := fmt.Sprintf(`SELECT p.id AS program_id, p.name AS program_name, p.short_code, COUNT(e.id) AS count
        FROM programs p %s
        GROUP BY p.id, p.name, p.short_code
        ORDER BY count DESC, p.name ASC`, join)
	rows := []models.ProgramEnrollmentCount{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("analytics enrollments by program: %w", err)
	}
	return rows, nil
}

// ExportClients returns every client created in range, ordered by name.
func (r *AnalyticsRepository) ExportClients(ctx context.Context, filter models.AnalyticsFilter) ([]models.Client, error) {
	conds, args := rangeConditions("c.created_at", filter, nil)
	query := fmt.Sprintf("SELECT %s FROM clients c%s ORDER BY c.last_name ASC, c.first_name ASC", clientColumns, whereClause(conds))
	rows := []models.Client{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("export clients: %w", err)
	}
	return rows, nil
}

// ExportEnrollments returns every enrollment made in range, newest first.
func (r *AnalyticsRepository) ExportEnrollments(ctx context.Context, filter models.AnalyticsFilter) ([]models.EnrollmentDetail, error) {
	conds, args := rangeConditions("e.enrolled_at", filter, nil)
	query := enrollmentDetailSelect + whereClause(conds) + " ORDER BY e.enrolled_at DESC"
	rows := []models.EnrollmentDetail{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("export enrollments: %w", err)
	}
	return rows, nil
}
