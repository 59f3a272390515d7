package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x1-token-verifier/internal/domain"
)

func TestMetrics_ObserveRPC(t *testing.T) {
	m := NewMetrics("test", nil)

	m.ObserveRPC("primary", "getAccountInfo", 20*time.Millisecond, nil)
	m.ObserveRPC("primary", "getAccountInfo", 30*time.Millisecond, errors.New("boom"))
	m.ObserveRPC("backup", "getAccountInfo", 10*time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCallErrors.WithLabelValues("primary", "getAccountInfo")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RPCCallErrors.WithLabelValues("backup", "getAccountInfo")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RPCCallLatency))
}

func TestMetrics_ObserveAssessment(t *testing.T) {
	m := NewMetrics("test", nil)

	m.ObserveAssessment(domain.RiskAssessment{RiskScore: 90, Status: domain.StatusFlagged}, domain.TriggerRequest)
	m.ObserveAssessment(domain.RiskAssessment{RiskScore: 10, Status: domain.StatusAutoVerified}, domain.TriggerReanalysis)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues("flagged", "request")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues("auto_verified", "reanalysis")))
}

func TestMetrics_Reports(t *testing.T) {
	m := NewMetrics("test", nil)
	m.ObserveReport("accepted")
	m.ObserveReport("accepted")
	m.ObserveReport("rate_limited")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReportsTotal.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsTotal.WithLabelValues("rate_limited")))
}

func TestMetrics_Watch(t *testing.T) {
	m := NewMetrics("test", nil)
	m.ObserveWatch("reanalyzed")
	m.SetWatchedMints(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WatchNotifications.WithLabelValues("reanalyzed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.WatchedMints))
}

func TestMetrics_InstrumentHandler(t *testing.T) {
	m := NewMetrics("test", nil)

	h := m.InstrumentHandler("/api/verify", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/verify", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/verify", "400")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("test", nil)
	m.ObserveReport("accepted")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_reports_submitted_total"))
}
