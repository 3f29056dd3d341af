package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
)

const clientSearchLimit = 100

type clientRepository interface {
	List(ctx context.Context, filter models.ClientFilter) ([]models.Client, int, error)
	Search(ctx context.Context, q string, limit int) ([]models.Client, error)
	FindByID(ctx context.Context, id string) (*models.Client, error)
	Create(ctx context.Context, client *models.Client) error
	Update(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, id string) error
}

type clientEnrollmentLister interface {
	ListByClient(ctx context.Context, clientID string) ([]models.EnrollmentDetail, error)
}

// ClientRequest holds the full client payload used by create and replace.
type ClientRequest struct {
	FirstName       string `json:"first_name" validate:"required,max=50"`
	LastName        string `json:"last_name" validate:"required,max=50"`
	Age             *int   `json:"age" validate:"required,gte=0,lte=150"`
	PhoneNumber     string `json:"phone_number" validate:"required,max=15,phone"`
	AreaOfResidence string `json:"area_of_residence" validate:"required,max=100"`
	Profession      string `json:"profession" validate:"max=100"`
}

// PatchClientRequest carries only the fields a partial update touches.
type PatchClientRequest struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Age             *int    `json:"age"`
	PhoneNumber     *string `json:"phone_number"`
	AreaOfResidence *string `json:"area_of_residence"`
	Profession      *string `json:"profession"`
}

func (r *ClientRequest) normalise() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.AreaOfResidence = strings.TrimSpace(r.AreaOfResidence)
	r.Profession = strings.TrimSpace(r.Profession)
}

// ClientService handles client registry use-cases.
type ClientService struct {
	repo        clientRepository
	enrollments clientEnrollmentLister
	cache       cacheInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClientService constructs the client service.
func NewClientService(repo clientRepository, enrollments clientEnrollmentLister, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ClientService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{repo: repo, enrollments: enrollments, cache: cache, validator: validate, logger: logger}
}

// List returns clients and pagination metadata.
func (s *ClientService) List(ctx context.Context, filter models.ClientFilter) ([]models.Client, *models.Pagination, error) {
	clients, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list clients")
	}
	return clients, paginate(filter.Page, filter.PageSize, total), nil
}

// Search matches q against first name, last name and phone number. A blank
// query returns no results rather than every client.
func (s *ClientService) Search(ctx context.Context, q string) (*models.ClientSearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return &models.ClientSearchResult{Results: []models.Client{}}, nil
	}
	clients, err := s.repo.Search(ctx, q, clientSearchLimit)
	if err != nil {
		return nil, internalError(err, "failed to search clients")
	}
	return &models.ClientSearchResult{Results: clients}, nil
}

// Get returns the client profile including its enrollments.
func (s *ClientService) Get(ctx context.Context, id string) (*models.ClientProfile, error) {
	client, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByClient(ctx, client.ID)
	if err != nil {
		return nil, internalError(err, "failed to load client enrollments")
	}
	return &models.ClientProfile{Client: *client, Enrollments: enrollments}, nil
}

// Create registers a new client.
func (s *ClientService) Create(ctx context.Context, req ClientRequest) (*models.Client, error) {
	req.normalise()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid client payload")
	}
	client := &models.Client{}
	applyClientRequest(client, req)
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, internalError(err, "failed to create client")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return client, nil
}

// Update replaces every editable field of a client.
func (s *ClientService) Update(ctx context.Context, id string, req ClientRequest) (*models.Client, error) {
	req.normalise()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid client payload")
	}
	client, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, client, req)
}

// Patch applies the provided fields and re-validates the merged client.
func (s *ClientService) Patch(ctx context.Context, id string, req PatchClientRequest) (*models.Client, error) {
	client, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	age := client.Age
	merged := ClientRequest{
		FirstName:       client.FirstName,
		LastName:        client.LastName,
		Age:             &age,
		PhoneNumber:     client.PhoneNumber,
		AreaOfResidence: client.AreaOfResidence,
		Profession:      client.Profession,
	}
	if req.FirstName != nil {
		merged.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		merged.LastName = *req.LastName
	}
	if req.Age != nil {
		merged.Age = req.Age
	}
	if req.PhoneNumber != nil {
		merged.PhoneNumber = *req.PhoneNumber
	}
	if req.AreaOfResidence != nil {
		merged.AreaOfResidence = *req.AreaOfResidence
	}
	if req.Profession != nil {
		merged.Profession = *req.Profession
	}
	merged.normalise()
	if err := s.validator.Struct(merged); err != nil {
		return nil, validationError(err, "invalid client payload")
	}
	return s.save(ctx, client, merged)
}

func (s *ClientService) save(ctx context.Context, client *models.Client, req ClientRequest) (*models.Client, error) {
	applyClientRequest(client, req)
	if err := s.repo.Update(ctx, client); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, internalError(err, "failed to update client")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return client, nil
}

// Delete removes a client and, through the cascade, its enrollments.
func (s *ClientService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "client not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return internalError(err, "failed to delete client")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return nil
}

func (s *ClientService) find(ctx context.Context, id string) (*models.Client, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
	}
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, internalError(err, "failed to load client")
	}
	return client, nil
}

func applyClientRequest(client *models.Client, req ClientRequest) {
	client.FirstName = req.FirstName
	client.LastName = req.LastName
	client.Age = *req.Age
	client.PhoneNumber = req.PhoneNumber
	client.AreaOfResidence = req.AreaOfResidence
	client.Profession = req.Profession
}
