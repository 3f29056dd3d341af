package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
)

type tokenStub struct{}

func (tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "admin":
		return &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, nil
	case "staff":
		return &models.JWTClaims{UserID: "u2", Role: models.RoleStaff}, nil
	}
	return nil, appErrors.ErrUnauthorized
}

type auditStub struct {
	entries []models.AuditLog
}

func (a *auditStub) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	a.entries = append(a.entries, *entry)
	return nil
}

func testRouter(audit *auditStub, checks map[string]Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(testRouterConfig(audit, checks))
}

func testRouterConfig(audit *auditStub, checks map[string]Pinger) RouterConfig {
	return RouterConfig{
		Tokens:      tokenStub{},
		Audit:       audit,
		Auth:        NewAuthHandler(&fakeAuthSrv{}),
		Clients:     NewClientHandler(&fakeClientSrv{}),
		Programs:    NewProgramHandler(nil),
		Enrollments: NewEnrollmentHandler(&fakeEnrollmentSrv{}),
		Analytics:   NewAnalyticsHandler(&fakeAnalyticsSrv{}),
		Exports:     NewExportHandler(&fakeExportSrv{}),
		Ops:         NewMetricsHandler(nil, checks),
	}
}

func do(r http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouterRequiresToken(t *testing.T) {
	r := testRouter(&auditStub{}, nil)

	rec := do(r, http.MethodGet, "/api/v1/clients", "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterRejectsStaff(t *testing.T) {
	r := testRouter(&auditStub{}, nil)

	rec := do(r, http.MethodGet, "/api/v1/clients", "staff", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterEnrollmentUpdateNotAllowed(t *testing.T) {
	r := testRouter(&auditStub{}, nil)

	rec := do(r, http.MethodPut, "/api/v1/enrollments/abc", "admin", `{}`)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "METHOD_NOT_ALLOWED")
}

func TestRouterUnknownRoute(t *testing.T) {
	r := testRouter(&auditStub{}, nil)

	rec := do(r, http.MethodGet, "/api/v1/nowhere", "admin", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterAuditsWrites(t *testing.T) {
	audit := &auditStub{}
	r := testRouter(audit, nil)

	rec := do(r, http.MethodDelete, "/api/v1/clients/c1", "admin", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	do(r, http.MethodGet, "/api/v1/clients/c1", "admin", "")

	require.Len(t, audit.entries, 1)
	require.NotNil(t, audit.entries[0].ResourceID)
	assert.Equal(t, "c1", *audit.entries[0].ResourceID)
	assert.Equal(t, models.AuditResourceClient, audit.entries[0].Resource)
}

func deleteFromProxy(r http.Handler) {
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/clients/c1", nil)
	req.Header.Set("Authorization", "Bearer admin")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	r.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRouterIgnoresForwardedForByDefault(t *testing.T) {
	audit := &auditStub{}
	deleteFromProxy(testRouter(audit, nil))

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "192.0.2.1", audit.entries[0].IPAddress)
}

func TestRouterHonoursForwardedForFromTrustedProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	audit := &auditStub{}
	cfg := testRouterConfig(audit, nil)
	cfg.TrustedProxies = []string{"192.0.2.1"}
	deleteFromProxy(NewRouter(cfg))

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "203.0.113.9", audit.entries[0].IPAddress)
}

func TestRouterLoginIsPublic(t *testing.T) {
	r := testRouter(&auditStub{}, nil)

	rec := do(r, http.MethodPost, "/api/v1/admin/login", "", `{"email":"a@b.co","password":"x"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access":"a"`)
}

func TestRouterReadyReportsFailingDependency(t *testing.T) {
	checks := map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return nil }),
		"cache":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}
	r := testRouter(&auditStub{}, checks)

	rec := do(r, http.MethodGet, "/ready", "", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cache":"connection refused"`)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
}

func TestRouterReadyHealthy(t *testing.T) {
	r := testRouter(&auditStub{}, map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return nil }),
	})

	rec := do(r, http.MethodGet, "/ready", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}
