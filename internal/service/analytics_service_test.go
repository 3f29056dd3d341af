package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/healthcare-admin-api/internal/dto"
	"github.com/noah-isme/healthcare-admin-api/internal/models"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
)

type stubAnalyticsRepo struct {
	calls    int32
	filter   atomic.Value
	growErr  error
	before   int
	beforeAt atomic.Value
}

func (s *stubAnalyticsRepo) Totals(ctx context.Context, filter models.AnalyticsFilter) (models.AnalyticsTotals, error) {
	atomic.AddInt32(&s.calls, 1)
	s.filter.Store(filter)
	return models.AnalyticsTotals{Clients: 9, Programs: 2, Enrollments: 4}, nil
}

func (s *stubAnalyticsRepo) ClientAges(ctx context.Context, filter models.AnalyticsFilter) ([]int, error) {
	return []int{0, 18, 19, 25, 30, 45, 60, 66, 90}, nil
}

func (s *stubAnalyticsRepo) ResidenceDistribution(ctx context.Context, filter models.AnalyticsFilter) ([]models.LabelCount, error) {
	return []models.LabelCount{{Label: "Nairobi", Count: 6}, {Label: "Kisumu", Count: 3}}, nil
}

func (s *stubAnalyticsRepo) ProfessionDistribution(ctx context.Context, filter models.AnalyticsFilter) ([]models.LabelCount, error) {
	return []models.LabelCount{
		{Label: "", Count: 3},
		{Label: "Teacher", Count: 2},
		{Label: "Nurse", Count: 1},
		{Label: "Farmer", Count: 1},
		{Label: "Driver", Count: 1},
		{Label: "Chef", Count: 1},
		{Label: "Pilot", Count: 1},
	}, nil
}

func (s *stubAnalyticsRepo) MonthlyGrowth(ctx context.Context, filter models.AnalyticsFilter) ([]models.MonthlyGrowth, error) {
	if s.growErr != nil {
		return nil, s.growErr
	}
	return []models.MonthlyGrowth{{Month: "2025-01", NewClients: 4}, {Month: "2025-02", NewClients: 5}}, nil
}

func (s *stubAnalyticsRepo) ClientsBefore(ctx context.Context, at time.Time) (int, error) {
	s.beforeAt.Store(at)
	return s.before, nil
}

func (s *stubAnalyticsRepo) EnrollmentsByProgram(ctx context.Context, filter models.AnalyticsFilter) ([]models.ProgramEnrollmentCount, error) {
	return []models.ProgramEnrollmentCount{{ProgramName: "HIV Care", ShortCode: "HIV", Count: 4}}, nil
}

type memorySummaryCache struct {
	values map[string]dto.AnalyticsSummary
}

func (m *memorySummaryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	value, ok := m.values[key]
	if !ok {
		return false, nil
	}
	*dest.(*dto.AnalyticsSummary) = value
	return true, nil
}

func (m *memorySummaryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.values[key] = *value.(*dto.AnalyticsSummary)
	return nil
}

func TestAnalyticsServiceSummary(t *testing.T) {
	repo := &stubAnalyticsRepo{}
	svc := NewAnalyticsService(repo, nil, zap.NewNop())

	summary, hit, err := svc.Summary(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 9, summary.Totals.Clients)

	require.Len(t, summary.AgeDistribution, 7)
	counts := map[string]int{}
	for _, bucket := range summary.AgeDistribution {
		counts[bucket.Label] = bucket.Count
	}
	assert.Equal(t, 2, counts["0-18"])
	assert.Equal(t, 2, counts["19-25"])
	assert.Equal(t, 1, counts["26-35"])
	assert.Equal(t, 1, counts["36-45"])
	assert.Equal(t, 0, counts["46-55"])
	assert.Equal(t, 1, counts["56-65"])
	assert.Equal(t, 2, counts["66+"])
	assert.Equal(t, "0-18", summary.AgeDistribution[0].Label)

	require.Len(t, summary.ProfessionDistribution, 6)
	assert.Equal(t, "Not Specified", summary.ProfessionDistribution[0].Label)

	require.Len(t, summary.MonthlyGrowth, 2)
	assert.Equal(t, 4, summary.MonthlyGrowth[0].Cumulative)
	assert.Equal(t, 9, summary.MonthlyGrowth[1].Cumulative)
}

func TestAnalyticsServiceSummaryUsesCache(t *testing.T) {
	repo := &stubAnalyticsRepo{}
	cache := &memorySummaryCache{values: map[string]dto.AnalyticsSummary{}}
	svc := NewAnalyticsService(repo, cache, zap.NewNop())

	_, hit, err := svc.Summary(context.Background(), "2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Contains(t, cache.values, "analytics:summary:2025-01-01:2025-01-31")

	summary, hit, err := svc.Summary(context.Background(), "2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "2025-01-01", summary.From)
	assert.Equal(t, int32(1), atomic.LoadInt32(&repo.calls))
}

func TestAnalyticsServiceSummaryRangeIsInclusive(t *testing.T) {
	repo := &stubAnalyticsRepo{}
	svc := NewAnalyticsService(repo, nil, zap.NewNop())

	_, _, err := svc.Summary(context.Background(), "2025-01-01", "2025-01-31")
	require.NoError(t, err)
	filter := repo.filter.Load().(models.AnalyticsFilter)
	require.NotNil(t, filter.From)
	require.NotNil(t, filter.To)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *filter.From)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), *filter.To)
}

func TestAnalyticsServiceGrowthIncludesEarlierClients(t *testing.T) {
	repo := &stubAnalyticsRepo{before: 10}
	svc := NewAnalyticsService(repo, nil, zap.NewNop())

	summary, _, err := svc.Summary(context.Background(), "2025-01-01", "")
	require.NoError(t, err)
	require.Len(t, summary.MonthlyGrowth, 2)
	assert.Equal(t, 14, summary.MonthlyGrowth[0].Cumulative)
	assert.Equal(t, 19, summary.MonthlyGrowth[1].Cumulative)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), repo.beforeAt.Load().(time.Time))
}

func TestAnalyticsServiceGrowthWithoutLowerBound(t *testing.T) {
	repo := &stubAnalyticsRepo{before: 10}
	svc := NewAnalyticsService(repo, nil, zap.NewNop())

	summary, _, err := svc.Summary(context.Background(), "", "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.MonthlyGrowth[0].Cumulative)
	assert.Nil(t, repo.beforeAt.Load())
}

func TestAnalyticsServiceSummaryErrors(t *testing.T) {
	repo := &stubAnalyticsRepo{growErr: errors.New("db down")}
	svc := NewAnalyticsService(repo, nil, zap.NewNop())

	_, _, err := svc.Summary(context.Background(), "", "")
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	_, _, err = svc.Summary(context.Background(), "01/02/2025", "")
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Details, "from")

	_, _, err = svc.Summary(context.Background(), "2025-02-01", "2025-01-01")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestParseDateRangeSameDay(t *testing.T) {
	filter, err := ParseDateRange("2025-03-10", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, filter.To.Sub(*filter.From))
}
