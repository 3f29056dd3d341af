package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	"github.com/noah-isme/healthcare-admin-api/pkg/database"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
)

const (
	programNameTaken      = "program with this name already exists."
	programShortCodeTaken = "program with this short code already exists."
)

type programRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ProgramDetail, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	ExistsByShortCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program) error
	Delete(ctx context.Context, id string) error
}

// ProgramRequest holds the full program payload used by create and replace.
type ProgramRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	ShortCode   string `json:"short_code" validate:"required,max=10,shortcode"`
	Description string `json:"description"`
}

// PatchProgramRequest carries only the fields a partial update touches.
type PatchProgramRequest struct {
	Name        *string `json:"name"`
	ShortCode   *string `json:"short_code"`
	Description *string `json:"description"`
}

// ProgramService handles program registry use-cases.
type ProgramService struct {
	repo      programRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgramService constructs the program service.
func NewProgramService(repo programRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns programs and pagination metadata.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, *models.Pagination, error) {
	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list programs")
	}
	return programs, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a program with its enrollment count.
func (s *ProgramService) Get(ctx context.Context, id string) (*models.ProgramDetail, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
	}
	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, internalError(err, "failed to load program")
	}
	return program, nil
}

// Create registers a new program.
func (s *ProgramService) Create(ctx context.Context, req ProgramRequest) (*models.Program, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid program payload")
	}
	if err := s.checkUnique(ctx, req, ""); err != nil {
		return nil, err
	}

	program := &models.Program{Name: req.Name, ShortCode: req.ShortCode, Description: req.Description}
	if err := s.repo.Create(ctx, program); err != nil {
		if conflict := programConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, internalError(err, "failed to create program")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return program, nil
}

// Update replaces every editable field of a program.
func (s *ProgramService) Update(ctx context.Context, id string, req ProgramRequest) (*models.Program, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid program payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, current.Program, req)
}

// Patch applies the provided fields and re-validates the merged program.
func (s *ProgramService) Patch(ctx context.Context, id string, req PatchProgramRequest) (*models.Program, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := ProgramRequest{
		Name:        current.Name,
		ShortCode:   current.ShortCode,
		Description: current.Description,
	}
	if req.Name != nil {
		merged.Name = strings.TrimSpace(*req.Name)
	}
	if req.ShortCode != nil {
		merged.ShortCode = *req.ShortCode
	}
	if req.Description != nil {
		merged.Description = *req.Description
	}
	if err := s.validator.Struct(merged); err != nil {
		return nil, validationError(err, "invalid program payload")
	}
	return s.save(ctx, current.Program, merged)
}

func (s *ProgramService) save(ctx context.Context, program models.Program, req ProgramRequest) (*models.Program, error) {
	if err := s.checkUnique(ctx, req, program.ID); err != nil {
		return nil, err
	}
	program.Name = req.Name
	program.ShortCode = req.ShortCode
	program.Description = req.Description
	if err := s.repo.Update(ctx, &program); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		if conflict := programConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, internalError(err, "failed to update program")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return &program, nil
}

// Delete removes a program and, through the cascade, its enrollments.
func (s *ProgramService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "program not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return internalError(err, "failed to delete program")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return nil
}

func (s *ProgramService) checkUnique(ctx context.Context, req ProgramRequest, excludeID string) error {
	details := map[string]string{}
	nameTaken, err := s.repo.ExistsByName(ctx, req.Name, excludeID)
	if err != nil {
		return internalError(err, "failed to validate program name")
	}
	if nameTaken {
		details["name"] = programNameTaken
	}
	codeTaken, err := s.repo.ExistsByShortCode(ctx, req.ShortCode, excludeID)
	if err != nil {
		return internalError(err, "failed to validate program short code")
	}
	if codeTaken {
		details["short_code"] = programShortCodeTaken
	}
	if len(details) > 0 {
		return appErrors.WithDetails(appErrors.ErrConflict, "program already exists", details)
	}
	return nil
}

// programConflict translates a store-level unique violation raised by a concurrent writer.
func programConflict(err error) *appErrors.Error {
	constraint, ok := database.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch constraint {
	case database.ConstraintProgramName:
		return appErrors.Field(appErrors.ErrConflict, "name", programNameTaken)
	case database.ConstraintProgramShortCode:
		return appErrors.Field(appErrors.ErrConflict, "short_code", programShortCodeTaken)
	default:
		return appErrors.Clone(appErrors.ErrConflict, "program already exists")
	}
}
