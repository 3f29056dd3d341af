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
)

const programDetailSelect = `SELECT p.id, p.name, p.short_code, p.description, p.created_at, p.updated_at,
        (SELECT COUNT(*) FROM enrollments e WHERE e.program_id = p.id) AS enrollment_count
        FROM programs p`

// ProgramRepository manages persistence for programs.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs a ProgramRepository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// List returns programs with their enrollment counts.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Search != "" {
		args = append(args, containsPattern(filter.Search))
		conditions = append(conditions, fmt.Sprintf("LOWER(p.name) LIKE $%d", len(args)))
	}
	where := whereClause(conditions)

	allowedSorts := map[string]string{
		"name":       "p.name",
		"short_code": "p.short_code",
		"created_at": "p.created_at",
	}
	order := orderClause(allowedSorts, filter.SortBy, filter.SortOrder, "p.name ASC", "ASC")
	size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", programDetailSelect, where, order, size, offset)
	programs := []models.ProgramDetail{}
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM programs p"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}
	return programs, total, nil
}

// FindByID returns a program with its enrollment count.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.ProgramDetail, error) {
	var program models.ProgramDetail
	if err := r.db.GetContext(ctx, &program, programDetailSelect+" WHERE p.id = $1", id); err != nil {
		return nil, err
	}
	return &program, nil
}

// ExistsByName checks for a case-sensitive name match optionally excluding an ID.
func (r *ProgramRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	return r.exists(ctx, "name", name, excludeID)
}

// ExistsByShortCode checks for a short code match optionally excluding an ID.
func (r *ProgramRepository) ExistsByShortCode(ctx context.Context, code, excludeID string) (bool, error) {
	return r.exists(ctx, "short_code", code, excludeID)
}

func (r *ProgramRepository) exists(ctx context.Context, column, value, excludeID string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM programs WHERE %s = $1", column)
	args := []interface{}{value}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var found int
	if err := r.db.GetContext(ctx, &found, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check program %s: %w", column, err)
	}
	return true, nil
}

// Create inserts a new program.
func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if program.CreatedAt.IsZero() {
		program.CreatedAt = now
	}
	program.UpdatedAt = now
	const query = `INSERT INTO programs (id, name, short_code, description, created_at, updated_at)
        VALUES (:id, :name, :short_code, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of a program.
func (r *ProgramRepository) Update(ctx context.Context, program *models.Program) error {
	program.UpdatedAt = time.Now().UTC()
	const query = `UPDATE programs SET name = :name, short_code = :short_code, description = :description, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, program)
	if err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	return affectedOne(res, "update program")
}

// Delete removes a program. Enrollments are removed by the foreign key cascade.
func (r *ProgramRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM programs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	return affectedOne(res, "delete program")
}
