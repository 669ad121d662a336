package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.SessionCreated()
	m.SessionCreated()
	m.RatingSubmitted(4)
	m.PartialCompletion()
	m.SetLedgerDivergent(3)
	m.ObserveMatches(0, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ratingsSubmitted.WithLabelValues("4")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.partialLedger))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ledgerDivergent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.matchFallbacks))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/v1/matches", "200", 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `skillswap_http_requests_total{method="GET",route="/v1/matches",status="200"} 1`)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionCreated()
		m.RatingSubmitted(5)
		m.ObserveHTTP("GET", "/", "200", time.Second)
		m.ListenerOpened("sse")
	})
}

func TestRatingLabel(t *testing.T) {
	assert.Equal(t, "1", ratingLabel(1))
	assert.Equal(t, "5", ratingLabel(5))
	assert.Equal(t, "invalid", ratingLabel(0))
}

func TestRegisterDB_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.RegisterDB(nil) })
	assert.NotPanics(t, func() { New().RegisterDB(nil) })
}
