package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
)

const clientColumns = "c.id, c.first_name, c.last_name, c.age, c.phone_number, c.area_of_residence, c.profession, c.created_at, c.updated_at"

// ClientRepository manages persistence for client records.
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository constructs a ClientRepository.
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// List returns clients matching the provided filters.
func (r *ClientRepository) List(ctx context.Context, filter models.ClientFilter) ([]models.Client, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		args = append(args, containsPattern(filter.Search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.first_name) LIKE $%d OR LOWER(c.last_name) LIKE $%d OR LOWER(c.phone_number) LIKE $%d)", n, n, n))
	}
	if filter.AreaOfResidence != "" {
		args = append(args, filter.AreaOfResidence)
		conditions = append(conditions, fmt.Sprintf("LOWER(c.area_of_residence) = LOWER($%d)", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		conditions = append(conditions, fmt.Sprintf("c.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		conditions = append(conditions, fmt.Sprintf("c.created_at < $%d", len(args)))
	}

	base := "FROM clients c" + whereClause(conditions)

	allowedSorts := map[string]string{
		"first_name": "c.first_name",
		"last_name":  "c.last_name",
		"age":        "c.age",
		"created_at": "c.created_at",
	}
	order := orderClause(allowedSorts, filter.SortBy, filter.SortOrder, "c.last_name ASC, c.first_name ASC", "ASC")
	size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", clientColumns, base, order, size, offset)

	clients := []models.Client{}
	if err := r.db.SelectContext(ctx, &clients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}
	return clients, total, nil
}

// Search returns clients whose first name, last name or phone number contains q.
func (r *ClientRepository) Search(ctx context.Context, q string, limit int) ([]models.Client, error) {
	size, _ := pageWindow(1, limit)
	query := fmt.Sprintf(`SELECT %s FROM clients c
        WHERE LOWER(c.first_name) LIKE $1 OR LOWER(c.last_name) LIKE $1 OR LOWER(c.phone_number) LIKE $1
        ORDER BY c.last_name ASC, c.first_name ASC LIMIT %d`, clientColumns, size)

	clients := []models.Client{}
	if err := r.db.SelectContext(ctx, &clients, query, containsPattern(q)); err != nil {
		return nil, fmt.Errorf("search clients: %w", err)
	}
	return clients, nil
}

// FindByID fetches a client by ID.
func (r *ClientRepository) FindByID(ctx context.Context, id string) (*models.Client, error) {
	query := fmt.Sprintf("SELECT %s FROM clients c WHERE c.id = $1", clientColumns)
	var client models.Client
	if err := r.db.GetContext(ctx, &client, query, id); err != nil {
		return nil, err
	}
	return &client, nil
}

// Create inserts a new client record.
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	client.UpdatedAt = now
	const query = `INSERT INTO clients (id, first_name, last_name, age, phone_number, area_of_residence, profession, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :age, :phone_number, :area_of_residence, :profession, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, client); err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of a client.
func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	client.UpdatedAt = time.Now().UTC()
	const query = `UPDATE clients SET first_name = :first_name, last_name = :last_name, age = :age, phone_number = :phone_number,
        area_of_residence = :area_of_residence, profession = :profession, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, client)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return affectedOne(res, "update client")
}

// Delete removes a client. Enrollments are removed by the foreign key cascade.
func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return affectedOne(res, "delete client")
}
