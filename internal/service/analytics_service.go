package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/healthcare-admin-api/internal/dto"
	"github.com/noah-isme/healthcare-admin-api/internal/models"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
)

const (
	dateLayout        = "2006-01-02"
	topProfessions    = 6
	unknownProfession = "Not Specified"
)

type ageBucket struct {
	label    string
	min, max int
}

var ageBuckets = []ageBucket{
	{"0-18", 0, 18},
	{"19-25", 19, 25},
	{"26-35", 26, 35},
	{"36-45", 36, 45},
	{"46-55", 46, 55},
	{"56-65", 56, 65},
	{"66+", 66, 1 << 30},
}

// AnalyticsRepository describes the aggregate queries required by AnalyticsService.
type AnalyticsRepository interface {
	Totals(ctx context.Context, filter models.AnalyticsFilter) (models.AnalyticsTotals, error)
	ClientAges(ctx context.Context, filter models.AnalyticsFilter) ([]int, error)
	ResidenceDistribution(ctx context.Context, filter models.AnalyticsFilter) ([]models.LabelCount, error)
	ProfessionDistribution(ctx context.Context, filter models.AnalyticsFilter) ([]models.LabelCount, error)
	MonthlyGrowth(ctx context.Context, filter models.AnalyticsFilter) ([]models.MonthlyGrowth, error)
	ClientsBefore(ctx context.Context, at time.Time) (int, error)
	EnrollmentsByProgram(ctx context.Context, filter models.AnalyticsFilter) ([]models.ProgramEnrollmentCount, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AnalyticsService computes dashboard aggregates with cache integration.
type AnalyticsService struct {
	repo   AnalyticsRepository
	cache  summaryCache
	logger *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, cache summaryCache, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, logger: logger}
}

// ParseDateRange parses inclusive YYYY-MM-DD bounds into a filter whose To is
// the start of the following day.
func ParseDateRange(from, to string) (models.AnalyticsFilter, error) {
	var filter models.AnalyticsFilter
	details := map[string]string{}
	if from = strings.TrimSpace(from); from != "" {
		t, err := time.ParseInLocation(dateLayout, from, time.UTC)
		if err != nil {
			details["from"] = "Enter a valid date (YYYY-MM-DD)."
		} else {
			filter.From = &t
		}
	}
	if to = strings.TrimSpace(to); to != "" {
		t, err := time.ParseInLocation(dateLayout, to, time.UTC)
		if err != nil {
			details["to"] = "Enter a valid date (YYYY-MM-DD)."
		} else {
			end := t.AddDate(0, 0, 1)
			filter.To = &end
		}
	}
	if len(details) > 0 {
		return filter, appErrors.WithDetails(appErrors.ErrValidation, "invalid date range", details)
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return filter, appErrors.Field(appErrors.ErrValidation, "to", "End date must not be before start date.")
	}
	return filter, nil
}

// Summary returns the dashboard aggregates for the date range. The boolean
// reports whether the payload came from cache.
func (s *AnalyticsService) Summary(ctx context.Context, from, to string) (*dto.AnalyticsSummary, bool, error) {
	filter, err := ParseDateRange(from, to)
	if err != nil {
		return nil, false, err
	}

	key := analyticsSummaryKey(strings.TrimSpace(from), strings.TrimSpace(to))
	if s.cache != nil {
		var cached dto.AnalyticsSummary
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	summary, err := s.compute(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	summary.From = strings.TrimSpace(from)
	summary.To = strings.TrimSpace(to)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, 0); err != nil {
			s.logger.Warn("cache analytics summary", zap.Error(err))
		}
	}
	return summary, false, nil
}

func (s *AnalyticsService) compute(ctx context.Context, filter models.AnalyticsFilter) (*dto.AnalyticsSummary, error) {
	var (
		summary     dto.AnalyticsSummary
		ages        []int
		professions []models.LabelCount
		baseline    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.repo.Totals(gctx, filter)
		summary.Totals = totals
		return err
	})
	g.Go(func() error {
		var err error
		ages, err = s.repo.ClientAges(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		summary.ResidenceDistribution, err = s.repo.ResidenceDistribution(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		professions, err = s.repo.ProfessionDistribution(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		summary.MonthlyGrowth, err = s.repo.MonthlyGrowth(gctx, filter)
		return err
	})
	if filter.From != nil {
		g.Go(func() error {
			var err error
			baseline, err = s.repo.ClientsBefore(gctx, *filter.From)
			return err
		})
	}
	g.Go(func() error {
		var err error
		summary.EnrollmentsByProgram, err = s.repo.EnrollmentsByProgram(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, internalError(err, "failed to compute analytics")
	}

	summary.AgeDistribution = bucketAges(ages)
	summary.ProfessionDistribution = topProfessionCounts(professions)
	accumulateGrowth(summary.MonthlyGrowth, baseline)
	if summary.ResidenceDistribution == nil {
		summary.ResidenceDistribution = []models.LabelCount{}
	}
	if summary.MonthlyGrowth == nil {
		summary.MonthlyGrowth = []models.MonthlyGrowth{}
	}
	if summary.EnrollmentsByProgram == nil {
		summary.EnrollmentsByProgram = []models.ProgramEnrollmentCount{}
	}
	return &summary, nil
}

// bucketAges always returns every bucket, in order, even when empty.
func bucketAges(ages []int) []models.LabelCount {
	out := make([]models.LabelCount, len(ageBuckets))
	for i, b := range ageBuckets {
		out[i].Label = b.label
	}
	for _, age := range ages {
		for i, b := range ageBuckets {
			if age >= b.min && age <= b.max {
				out[i].Count++
				break
			}
		}
	}
	return out
}

func topProfessionCounts(rows []models.LabelCount) []models.LabelCount {
	out := make([]models.LabelCount, 0, topProfessions)
	for _, row := range rows {
		if len(out) == topProfessions {
			break
		}
		label := strings.TrimSpace(row.Label)
		if label == "" {
			label = unknownProfession
		}
		out = append(out, models.LabelCount{Label: label, Count: row.Count})
	}
	return out
}

// accumulateGrowth fills running totals starting from the clients registered
// before the first month in rows.
func accumulateGrowth(rows []models.MonthlyGrowth, baseline int) {
	total := baseline
	for i := range rows {
		total += rows[i].NewClients
		rows[i].Cumulative = total
	}
}
