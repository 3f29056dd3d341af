package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	"github.com/noah-isme/healthcare-admin-api/internal/repository"
	"github.com/noah-isme/healthcare-admin-api/pkg/database"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
)

const (
	defaultEnrollmentIDAttempts = 5

	msgClientMissing    = "Client does not exist"
	msgProgramMissing   = "Program does not exist"
	msgAlreadyEnrolled  = "Client is already enrolled in this program"
	fieldNonFieldErrors = "non_field_errors"
)

type enrollmentRepository interface {
	WithinTx(ctx context.Context, fn func(repository.EnrollmentWriter) error) error
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Delete(ctx context.Context, id string) error
}

// CreateEnrollmentRequest links a client to a program.
type CreateEnrollmentRequest struct {
	ClientID  string `json:"client_id" validate:"required"`
	ProgramID string `json:"program_id" validate:"required"`
}

// EnrollmentConfig tunes identifier allocation.
type EnrollmentConfig struct {
	IDAttempts int
	Now        func() time.Time
	GenerateID IDGenerator
}

// EnrollmentService is the ledger: it allocates identifiers and guards the one
// enrollment per client and program rule.
type EnrollmentService struct {
	repo       enrollmentRepository
	cache      cacheInvalidator
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	attempts   int
	now        func() time.Time
	generateID IDGenerator
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg EnrollmentConfig) *EnrollmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IDAttempts <= 0 {
		cfg.IDAttempts = defaultEnrollmentIDAttempts
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.GenerateID == nil {
		cfg.GenerateID = NewEnrollmentID
	}
	return &EnrollmentService{
		repo:       repo,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		attempts:   cfg.IDAttempts,
		now:        cfg.Now,
		generateID: cfg.GenerateID,
	}
}

// Create enrolls a client in a program. Existence checks, the duplicate check,
// identifier generation and the insert share one transaction; an identifier
// collision restarts the whole transaction with a fresh suffix.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}
	if !validID(req.ClientID) {
		return nil, appErrors.Field(appErrors.ErrReferenceNotFound, "client_id", msgClientMissing)
	}
	if !validID(req.ProgramID) {
		return nil, appErrors.Field(appErrors.ErrReferenceNotFound, "program_id", msgProgramMissing)
	}

	for attempt := 1; ; attempt++ {
		created, err := s.createOnce(ctx, req)
		if err == nil {
			s.metrics.RecordEnrollmentCreated()
			invalidateAnalytics(ctx, s.cache, s.logger)
			return created, nil
		}

		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}

		constraint, unique := database.UniqueViolation(err)
		switch {
		case unique && constraint == database.ConstraintEnrollmentPair:
			return nil, duplicateEnrollment()
		case unique && constraint == database.ConstraintEnrollmentID:
			s.metrics.RecordEnrollmentIDCollision()
			if attempt >= s.attempts {
				s.logger.Error("enrollment id allocation exhausted",
					zap.String("client_id", req.ClientID),
					zap.String("program_id", req.ProgramID),
					zap.Int("attempts", attempt))
				return nil, appErrors.Wrap(err, appErrors.ErrEnrollmentIDExhausted.Code, appErrors.ErrEnrollmentIDExhausted.Status, appErrors.ErrEnrollmentIDExhausted.Message)
			}
			s.logger.Warn("enrollment id collision, retrying", zap.Int("attempt", attempt))
		default:
			return nil, internalError(err, "failed to create enrollment")
		}
	}
}

func (s *EnrollmentService) createOnce(ctx context.Context, req CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	var created *models.EnrollmentDetail
	err := s.repo.WithinTx(ctx, func(w repository.EnrollmentWriter) error {
		client, err := w.FindClient(ctx, req.ClientID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Field(appErrors.ErrReferenceNotFound, "client_id", msgClientMissing)
			}
			return err
		}
		program, err := w.FindProgram(ctx, req.ProgramID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Field(appErrors.ErrReferenceNotFound, "program_id", msgProgramMissing)
			}
			return err
		}
		enrolled, err := w.PairExists(ctx, client.ID, program.ID)
		if err != nil {
			return err
		}
		if enrolled {
			return duplicateEnrollment()
		}

		now := s.now().UTC()
		enrollmentID, err := s.generateID(program.ShortCode, now)
		if err != nil {
			return internalError(err, "failed to generate enrollment id")
		}
		enrollment := models.Enrollment{
			ClientID:     client.ID,
			ProgramID:    program.ID,
			EnrollmentID: enrollmentID,
			EnrolledAt:   now,
		}
		if err := w.Insert(ctx, &enrollment); err != nil {
			return err
		}
		created = &models.EnrollmentDetail{
			Enrollment:       enrollment,
			ClientFirstName:  client.FirstName,
			ClientLastName:   client.LastName,
			ProgramName:      program.Name,
			ProgramShortCode: program.ShortCode,
		}
		return nil
	})
	return created, err
}

// List returns enrollments and pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if (filter.ClientID != "" && !validID(filter.ClientID)) || (filter.ProgramID != "" && !validID(filter.ProgramID)) {
		return []models.EnrollmentDetail{}, paginate(filter.Page, filter.PageSize, 0), nil
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list enrollments")
	}
	return enrollments, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns an enrollment with client and program labels.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	enrollment, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, internalError(err, "failed to load enrollment")
	}
	return enrollment, nil
}

// Delete removes a single enrollment.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return internalError(err, "failed to delete enrollment")
	}
	invalidateAnalytics(ctx, s.cache, s.logger)
	return nil
}

func duplicateEnrollment() *appErrors.Error {
	return appErrors.Field(appErrors.ErrConflict, fieldNonFieldErrors, msgAlreadyEnrolled)
}
