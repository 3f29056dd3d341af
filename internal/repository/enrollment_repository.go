package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	"github.com/noah-isme/healthcare-admin-api/pkg/database"
)

const enrollmentDetailSelect = `SELECT e.id, e.client_id, e.program_id, e.enrollment_id, e.enrolled_at,
        c.first_name AS client_first_name, c.last_name AS client_last_name,
        p.name AS program_name, p.short_code AS program_short_code
        FROM enrollments e
        JOIN clients c ON c.id = e.client_id
        JOIN programs p ON p.id = e.program_id`

// EnrollmentWriter exposes the statements that run inside one enrollment transaction.
type EnrollmentWriter interface {
	FindClient(ctx context.Context, id string) (*models.Client, error)
	FindProgram(ctx context.Context, id string) (*models.Program, error)
	PairExists(ctx context.Context, clientID, programID string) (bool, error)
	Insert(ctx context.Context, enrollment *models.Enrollment) error
}

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// WithinTx runs fn with a writer bound to a fresh transaction.
func (r *EnrollmentRepository) WithinTx(ctx context.Context, fn func(EnrollmentWriter) error) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&enrollmentTx{tx: tx})
	})
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("e.client_id = $%d", len(args)))
	}
	if filter.ProgramID != "" {
		args = append(args, filter.ProgramID)
		conditions = append(conditions, fmt.Sprintf("e.program_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, containsPattern(filter.Search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(e.enrollment_id) LIKE $%d OR LOWER(c.first_name) LIKE $%d OR LOWER(c.last_name) LIKE $%d OR LOWER(p.name) LIKE $%d)", n, n, n, n))
	}
	if filter.EnrolledFrom != nil {
		args = append(args, *filter.EnrolledFrom)
		conditions = append(conditions, fmt.Sprintf("e.enrolled_at >= $%d", len(args)))
	}
	if filter.EnrolledTo != nil {
		args = append(args, *filter.EnrolledTo)
		conditions = append(conditions, fmt.Sprintf("e.enrolled_at < $%d", len(args)))
	}
	where := whereClause(conditions)

	allowedSorts := map[string]string{
		"enrolled_at":   "e.enrolled_at",
		"enrollment_id": "e.enrollment_id",
		"client_name":   "c.last_name",
		"program_name":  "p.name",
	}
	order := orderClause(allowedSorts, filter.SortBy, filter.SortOrder, "e.enrolled_at DESC", "DESC")
	size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", enrollmentDetailSelect, where, order, size, offset)
	enrollments := []models.EnrollmentDetail{}
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := `SELECT COUNT(*) FROM enrollments e
        JOIN clients c ON c.id = e.client_id
        JOIN programs p ON p.id = e.program_id` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListByClient returns every enrollment of a client ordered by enrollment date.
func (r *EnrollmentRepository) ListByClient(ctx context.Context, clientID string) ([]models.EnrollmentDetail, error) {
	enrollments := []models.EnrollmentDetail{}
	query := enrollmentDetailSelect + " WHERE e.client_id = $1 ORDER BY e.enrolled_at DESC"
	if err := r.db.SelectContext(ctx, &enrollments, query, clientID); err != nil {
		return nil, fmt.Errorf("list client enrollments: %w", err)
	}
	return enrollments, nil
}

// FindDetailByID returns an enrollment joined with its client and program.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, enrollmentDetailSelect+" WHERE e.id = $1", id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Delete removes a single enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return affectedOne(res, "delete enrollment")
}

type enrollmentTx struct {
	tx *sqlx.Tx
}

// FindClient locks and returns the client row for the remainder of the transaction.
func (w *enrollmentTx) FindClient(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	query := fmt.Sprintf("SELECT %s FROM clients c WHERE c.id = $1 FOR SHARE", clientColumns)
	if err := w.tx.GetContext(ctx, &client, query, id); err != nil {
		return nil, err
	}
	return &client, nil
}

// FindProgram locks and returns the program row.
func (w *enrollmentTx) FindProgram(ctx context.Context, id string) (*models.Program, error) {
	var program models.Program
	const query = `SELECT id, name, short_code, description, created_at, updated_at FROM programs WHERE id = $1 FOR SHARE`
	if err := w.tx.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

func (w *enrollmentTx) PairExists(ctx context.Context, clientID, programID string) (bool, error) {
	var found int
	const query = `SELECT 1 FROM enrollments WHERE client_id = $1 AND program_id = $2 LIMIT 1`
	if err := w.tx.GetContext(ctx, &found, query, clientID, programID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment pair: %w", err)
	}
	return true, nil
}

func (w *enrollmentTx) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, client_id, program_id, enrollment_id, enrolled_at)
        VALUES (:id, :client_id, :program_id, :enrollment_id, :enrolled_at)`
	if _, err := w.tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}
