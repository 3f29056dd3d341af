package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	"github.com/noah-isme/healthcare-admin-api/pkg/database"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
)

type userCreator interface {
	Create(ctx context.Context, user *models.User) error
}

// CreateUserRequest describes an operator-created account.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	FullName string          `json:"full_name" validate:"required,max=150"`
	Role     models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN ADMIN STAFF"`
}

// UserService manages user accounts.
type UserService struct {
	repo      userCreator
	validator *validator.Validate
	logger    *zap.Logger
	cost      int
}

// NewUserService constructs a UserService.
func NewUserService(repo userCreator, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger, cost: bcrypt.DefaultCost}
}

// Create hashes the password and stores a new active account.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid user payload")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if constraint, ok := database.UniqueViolation(err); ok && constraint == database.ConstraintUserEmail {
			return nil, appErrors.Field(appErrors.ErrConflict, "email", "user with this email already exists.")
		}
		return nil, internalError(err, "failed to create user")
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}
