package service

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	"github.com/noah-isme/healthcare-admin-api/pkg/database"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
)

type mockUserCreator struct {
	created []*models.User
	err     error
}

func (m *mockUserCreator) Create(ctx context.Context, user *models.User) error {
	if m.err != nil {
		return m.err
	}
	user.ID = "user-1"
	m.created = append(m.created, user)
	return nil
}

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserCreator{}
	svc := NewUserService(repo, NewValidator(), zap.NewNop())
	svc.cost = bcrypt.MinCost

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    " Admin@Example.com ",
		Password: "s3cret-pass",
		FullName: "Grace Admin",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))
}

func TestUserServiceCreateValidation(t *testing.T) {
	svc := NewUserService(&mockUserCreator{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{Email: "a@b.co", Password: "short", FullName: "A", Role: "ROOT"})
	require.Error(t, err)
	details := appErrors.FromError(err).Details
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "role")
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserCreator{err: &pq.Error{Code: "23505", Constraint: database.ConstraintUserEmail}}
	svc := NewUserService(repo, nil, nil)
	svc.cost = bcrypt.MinCost

	_, err := svc.Create(context.Background(), CreateUserRequest{Email: "a@b.co", Password: "long-enough", FullName: "A", Role: models.RoleAdmin})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Contains(t, appErrors.FromError(err).Details, "email")
}
