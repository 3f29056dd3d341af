package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowBurstThenBlock(t *testing.T) {
	l := New(60, 2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("1.1.1.1"))
}

func TestLimiterEvictsIdleVisitors(t *testing.T) {
	l := New(60, 1)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("1.1.1.1")
	now = now.Add(time.Hour)
	l.Allow("2.2.2.2")
	assert.Len(t, l.visitors, 1)
}

func TestLimiterSweepsOncePerIdleInterval(t *testing.T) {
	l := New(60, 1)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = start.Add(5 * time.Minute)
	l.Allow("b")
	now = start.Add(11 * time.Minute)
	l.Allow("c")
	assert.Len(t, l.visitors, 2)
	assert.Equal(t, now, l.lastSweep)

	// b is idle past the TTL but the previous sweep was only six minutes ago.
	now = start.Add(17 * time.Minute)
	l.Allow("d")
	assert.Len(t, l.visitors, 3)
	assert.Contains(t, l.visitors, "b")

	now = start.Add(22 * time.Minute)
	l.Allow("e")
	assert.Len(t, l.visitors, 2)
	assert.Contains(t, l.visitors, "d")
	assert.Contains(t, l.visitors, "e")
}

func TestMiddlewareReturns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/admin/login", New(1, 1).Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/admin/login", nil)
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
