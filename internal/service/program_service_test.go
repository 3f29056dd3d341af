package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	"github.com/noah-isme/healthcare-admin-api/pkg/database"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
)

const programID = "5f3c1d2e-8a8b-4b7c-9d3e-1a2b3c4d5e6f"

type mockProgramRepo struct {
	programs   map[string]*models.ProgramDetail
	nameTaken  bool
	codeTaken  bool
	createErr  error
	updateErr  error
	deleteErr  error
	created    []*models.Program
	updated    []*models.Program
	excludeIDs []string
}

func (m *mockProgramRepo) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error) {
	out := make([]models.ProgramDetail, 0, len(m.programs))
	for _, p := range m.programs {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockProgramRepo) FindByID(ctx context.Context, id string) (*models.ProgramDetail, error) {
	if p, ok := m.programs[id]; ok {
		found := *p
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProgramRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	m.excludeIDs = append(m.excludeIDs, excludeID)
	return m.nameTaken, nil
}

func (m *mockProgramRepo) ExistsByShortCode(ctx context.Context, code, excludeID string) (bool, error) {
	return m.codeTaken, nil
}

func (m *mockProgramRepo) Create(ctx context.Context, program *models.Program) error {
	if m.createErr != nil {
		return m.createErr
	}
	program.ID = programID
	m.created = append(m.created, program)
	return nil
}

func (m *mockProgramRepo) Update(ctx context.Context, program *models.Program) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, program)
	return nil
}

func (m *mockProgramRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.programs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.programs, id)
	return nil
}

func newProgramFixture() (*ProgramService, *mockProgramRepo, *recordingInvalidator) {
	repo := &mockProgramRepo{programs: map[string]*models.ProgramDetail{
		programID: {Program: models.Program{ID: programID, Name: "HIV Care", ShortCode: "HIV", Description: "ART"}},
	}}
	cache := &recordingInvalidator{}
	return NewProgramService(repo, cache, NewValidator(), zap.NewNop()), repo, cache
}

func TestProgramServiceCreate(t *testing.T) {
	svc, repo, cache := newProgramFixture()

	program, err := svc.Create(context.Background(), ProgramRequest{Name: "  Malaria  ", ShortCode: "MAL"})
	require.NoError(t, err)
	assert.Equal(t, "Malaria", program.Name)
	assert.Len(t, repo.created, 1)
	assert.Equal(t, []string{analyticsCachePattern}, cache.patterns)
}

func TestProgramServiceCreateRejectsLowercaseShortCode(t *testing.T) {
	svc, repo, _ := newProgramFixture()

	_, err := svc.Create(context.Background(), ProgramRequest{Name: "Malaria", ShortCode: "mal"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "Only uppercase letters and numbers are allowed.", appErr.Details["short_code"])
	assert.Empty(t, repo.created)
}

func TestProgramServiceCreateDuplicate(t *testing.T) {
	svc, repo, _ := newProgramFixture()
	repo.nameTaken = true
	repo.codeTaken = true

	_, err := svc.Create(context.Background(), ProgramRequest{Name: "HIV Care", ShortCode: "HIV"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, programNameTaken, appErr.Details["name"])
	assert.Equal(t, programShortCodeTaken, appErr.Details["short_code"])
}

func TestProgramServiceCreateRaceHitsConstraint(t *testing.T) {
	svc, repo, _ := newProgramFixture()
	repo.createErr = &pq.Error{Code: "23505", Constraint: database.ConstraintProgramShortCode}

	_, err := svc.Create(context.Background(), ProgramRequest{Name: "TB", ShortCode: "TB"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, programShortCodeTaken, appErr.Details["short_code"])
}

func TestProgramServiceGetNotFound(t *testing.T) {
	svc, _, _ := newProgramFixture()

	_, err := svc.Get(context.Background(), "0f8fad5b-d9cb-469f-a165-70867728950e")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Get(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestProgramServicePatchKeepsUntouchedFields(t *testing.T) {
	svc, repo, _ := newProgramFixture()

	program, err := svc.Patch(context.Background(), programID, PatchProgramRequest{Description: strPtr("Antiretroviral therapy")})
	require.NoError(t, err)
	assert.Equal(t, "HIV Care", program.Name)
	assert.Equal(t, "HIV", program.ShortCode)
	assert.Equal(t, "Antiretroviral therapy", program.Description)
	require.Len(t, repo.updated, 1)
	assert.Contains(t, repo.excludeIDs, programID)
}

func TestProgramServicePatchValidatesProvidedField(t *testing.T) {
	svc, repo, _ := newProgramFixture()

	_, err := svc.Patch(context.Background(), programID, PatchProgramRequest{ShortCode: strPtr("hiv-2")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, repo.updated)
}

func TestProgramServiceUpdateRequiresAllFields(t *testing.T) {
	svc, _, _ := newProgramFixture()

	_, err := svc.Update(context.Background(), programID, ProgramRequest{Name: "HIV Care"})
	require.Error(t, err)
	assert.Equal(t, "This field is required.", appErrors.FromError(err).Details["short_code"])
}

func TestProgramServiceDelete(t *testing.T) {
	svc, repo, cache := newProgramFixture()

	require.NoError(t, svc.Delete(context.Background(), programID))
	assert.Empty(t, repo.programs)
	assert.Len(t, cache.patterns, 1)

	err := svc.Delete(context.Background(), programID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
