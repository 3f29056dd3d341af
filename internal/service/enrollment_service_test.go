package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	"github.com/noah-isme/healthcare-admin-api/internal/repository"
	"github.com/noah-isme/healthcare-admin-api/pkg/database"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
)

type fakeEnrollmentWriter struct {
	repo *mockEnrollmentRepo
}

func (w *fakeEnrollmentWriter) FindClient(ctx context.Context, id string) (*models.Client, error) {
	if c, ok := w.repo.clients[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (w *fakeEnrollmentWriter) FindProgram(ctx context.Context, id string) (*models.Program, error) {
	if p, ok := w.repo.programs[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (w *fakeEnrollmentWriter) PairExists(ctx context.Context, clientID, programID string) (bool, error) {
	return w.repo.pairs[clientID+"|"+programID], nil
}

func (w *fakeEnrollmentWriter) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	w.repo.inserts = append(w.repo.inserts, enrollment.EnrollmentID)
	if len(w.repo.insertErrs) > 0 {
		err := w.repo.insertErrs[0]
		w.repo.insertErrs = w.repo.insertErrs[1:]
		if err != nil {
			return fmt.Errorf("insert enrollment: %w", err)
		}
	}
	enrollment.ID = "e-" + enrollment.EnrollmentID
	w.repo.pairs[enrollment.ClientID+"|"+enrollment.ProgramID] = true
	return nil
}

type mockEnrollmentRepo struct {
	clients    map[string]*models.Client
	programs   map[string]*models.Program
	pairs      map[string]bool
	insertErrs []error
	inserts    []string
	txCount    int
	details    map[string]*models.EnrollmentDetail
	listCalls  int
}

func (m *mockEnrollmentRepo) WithinTx(ctx context.Context, fn func(repository.EnrollmentWriter) error) error {
	m.txCount++
	return fn(&fakeEnrollmentWriter{repo: m})
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.listCalls++
	return []models.EnrollmentDetail{}, 0, nil
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if d, ok := m.details[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.details[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.details, id)
	return nil
}

const enrollmentDetailID = "c4b1d7e2-1111-4a2b-9c3d-4e5f6a7b8c9d"

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newEnrollmentFixture(cfg EnrollmentConfig) (*EnrollmentService, *mockEnrollmentRepo, *recordingInvalidator) {
	repo := &mockEnrollmentRepo{
		clients:  map[string]*models.Client{clientID: {ID: clientID, FirstName: "Jane", LastName: "Doe"}},
		programs: map[string]*models.Program{programID: {ID: programID, Name: "HIV Care", ShortCode: "HIV"}},
		pairs:    map[string]bool{},
		details:  map[string]*models.EnrollmentDetail{enrollmentDetailID: {Enrollment: models.Enrollment{ID: enrollmentDetailID}}},
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return fixedNow }
	}
	cache := &recordingInvalidator{}
	return NewEnrollmentService(repo, cache, NewMetricsService(), NewValidator(), zap.NewNop(), cfg), repo, cache
}

func idCollision() error {
	return &pq.Error{Code: "23505", Constraint: database.ConstraintEnrollmentID}
}

func TestEnrollmentServiceCreate(t *testing.T) {
	svc, repo, cache := newEnrollmentFixture(EnrollmentConfig{})

	created, err := svc.Create(context.Background(), CreateEnrollmentRequest{ClientID: clientID, ProgramID: programID})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^HIV/2025/[A-Za-z0-9]{8}$`), created.EnrollmentID)
	assert.Equal(t, fixedNow, created.EnrolledAt)
	assert.Equal(t, "Jane", created.ClientFirstName)
	assert.Equal(t, "HIV Care", created.ProgramName)
	assert.Equal(t, 1, repo.txCount)
	assert.Equal(t, []string{analyticsCachePattern}, cache.patterns)
}

func TestEnrollmentServiceCreateMissingReferences(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(EnrollmentConfig{})
	missing := "0f8fad5b-d9cb-469f-a165-70867728950e"

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{ClientID: missing, ProgramID: programID})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, appErrors.ErrReferenceNotFound.Code, appErr.Code)
	assert.Equal(t, "Client does not exist", appErr.Details["client_id"])

	_, err = svc.Create(context.Background(), CreateEnrollmentRequest{ClientID: clientID, ProgramID: missing})
	require.Error(t, err)
	assert.Equal(t, "Program does not exist", appErrors.FromError(err).Details["program_id"])

	_, err = svc.Create(context.Background(), CreateEnrollmentRequest{ClientID: "42", ProgramID: programID})
	require.Error(t, err)
	assert.Equal(t, "Client does not exist", appErrors.FromError(err).Details["client_id"])

	assert.Empty(t, repo.inserts)
}

func TestEnrollmentServiceCreateRequiresFields(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(EnrollmentConfig{})

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "client_id")
	assert.Contains(t, appErr.Details, "program_id")
}

func TestEnrollmentServiceCreateDuplicate(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(EnrollmentConfig{})

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{ClientID: clientID, ProgramID: programID})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateEnrollmentRequest{ClientID: clientID, ProgramID: programID})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "Client is already enrolled in this program", appErr.Details["non_field_errors"])
	assert.Len(t, repo.inserts, 1)
}

func TestEnrollmentServiceCreatePairConstraintIsDuplicate(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(EnrollmentConfig{})
	repo.insertErrs = []error{&pq.Error{Code: "23505", Constraint: database.ConstraintEnrollmentPair}}

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{ClientID: clientID, ProgramID: programID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, 1, repo.txCount)
}

func TestEnrollmentServiceCreateRetriesIDCollision(t *testing.T) {
	ids := []string{"HIV/2025/AAAAAAAA", "HIV/2025/BBBBBBBB", "HIV/2025/CCCCCCCC"}
	calls := 0
	svc, repo, _ := newEnrollmentFixture(EnrollmentConfig{GenerateID: func(string, time.Time) (string, error) {
		id := ids[calls]
		calls++
		return id, nil
	}})
	repo.insertErrs = []error{idCollision(), idCollision()}

	created, err := svc.Create(context.Background(), CreateEnrollmentRequest{ClientID: clientID, ProgramID: programID})
	require.NoError(t, err)
	assert.Equal(t, "HIV/2025/CCCCCCCC", created.EnrollmentID)
	assert.Equal(t, 3, repo.txCount)
	assert.Equal(t, ids, repo.inserts)
}

func TestEnrollmentServiceCreateExhaustsIDAttempts(t *testing.T) {
	svc, repo, cache := newEnrollmentFixture(EnrollmentConfig{IDAttempts: 2})
	repo.insertErrs = []error{idCollision(), idCollision(), idCollision()}

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{ClientID: clientID, ProgramID: programID})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrEnrollmentIDExhausted.Code, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, 2, repo.txCount)
	assert.Empty(t, cache.patterns)
}

func TestEnrollmentServiceCreateUnexpectedStoreError(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(EnrollmentConfig{})
	repo.insertErrs = []error{errors.New("connection reset")}

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{ClientID: clientID, ProgramID: programID})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
	assert.Equal(t, 1, repo.txCount)
}

func TestEnrollmentServiceListSkipsInvalidFilterIDs(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(EnrollmentConfig{})

	items, pagination, err := svc.List(context.Background(), models.EnrollmentFilter{ClientID: "bogus"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, pagination.TotalCount)
	assert.Zero(t, repo.listCalls)

	_, _, err = svc.List(context.Background(), models.EnrollmentFilter{ClientID: clientID})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestEnrollmentServiceGetAndDelete(t *testing.T) {
	svc, _, cache := newEnrollmentFixture(EnrollmentConfig{})

	detail, err := svc.Get(context.Background(), enrollmentDetailID)
	require.NoError(t, err)
	assert.Equal(t, enrollmentDetailID, detail.ID)

	require.NoError(t, svc.Delete(context.Background(), enrollmentDetailID))
	assert.Len(t, cache.patterns, 1)

	_, err = svc.Get(context.Background(), enrollmentDetailID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.True(t, errors.Is(svc.Delete(context.Background(), enrollmentDetailID), appErrors.ErrNotFound))
}
