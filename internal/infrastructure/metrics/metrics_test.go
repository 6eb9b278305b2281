package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(applicationsRejected.WithLabelValues("deadline_passed"))
	RecordRejection("deadline_passed")
	assert.Equal(t, before+1, testutil.ToFloat64(applicationsRejected.WithLabelValues("deadline_passed")))

	beforeCreated := testutil.ToFloat64(applicationsCreated)
	RecordApplicationCreated()
	assert.Equal(t, beforeCreated+1, testutil.ToFloat64(applicationsCreated))
}

func TestEventObserver(t *testing.T) {
	var o EventObserver
	before := testutil.ToFloat64(eventsPublished.WithLabelValues("application.created"))
	o.EventPublished("application.created")
	assert.Equal(t, before+1, testutil.ToFloat64(eventsPublished.WithLabelValues("application.created")))

	o.HandlerFinished("application.created", time.Millisecond, errors.New("boom"))
	assert.Equal(t, 1, testutil.CollectAndCount(eventHandlerDuration, "placement_portal_events_handler_duration_seconds"))
}

func TestSetBreakerState(t *testing.T) {
	SetBreakerState("redis-cache", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(breakerState.WithLabelValues("redis-cache")))

	SetBreakerState("redis-cache", 0)
	assert.Zero(t, testutil.ToFloat64(breakerState.WithLabelValues("redis-cache")))
}

func TestGinMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/v1/applications/:id/audit", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/applications/17/audit", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/applications/:id/audit", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "placement_portal_http_requests_total"))
}
