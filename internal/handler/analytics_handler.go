package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/healthcare-admin-api/internal/dto"
	"github.com/noah-isme/healthcare-admin-api/internal/middleware"
	"github.com/noah-isme/healthcare-admin-api/pkg/response"
)

type analyticsService interface {
	Summary(ctx context.Context, from, to string) (*dto.AnalyticsSummary, bool, error)
}

// AnalyticsHandler exposes dashboard aggregates.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Summary godoc
// @Summary Dashboard summary
// @Description Totals, age, residence and profession distributions, monthly growth and enrollments per program.
// @Tags Analytics
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date inclusive (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /analytics/summary [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	var query dto.AnalyticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	summary, cacheHit, err := h.analytics.Summary(c.Request.Context(), query.From, query.To)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ResponseMeta(c))
}
