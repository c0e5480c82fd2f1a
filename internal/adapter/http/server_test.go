package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/coastal-threat-service/internal/adapter/http"
	"github.com/couchcryptid/coastal-threat-service/internal/adapter/postgres"
	"github.com/couchcryptid/coastal-threat-service/internal/stats"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockStatus struct {
	running bool
}

func (m *mockStatus) Running() bool { return m.running }

type mockAlerts struct {
	alerts []postgres.StoredAlert
	err    error
	limit  int
}

func (m *mockAlerts) RecentAlerts(_ context.Context, limit int) ([]postgres.StoredAlert, error) {
	m.limit = limit
	return m.alerts, m.err
}

func newTestServer(readyErr error, alerts httpadapter.AlertReader) *httpadapter.Server {
	monitor := stats.NewMonitor(11, nil, nil, nil)
	monitor.RecordCycle(11, 20*time.Millisecond)

	return httpadapter.NewServer(":0", httpadapter.Options{
		Ready:   &mockReadiness{err: readyErr},
		Status:  &mockStatus{running: true},
		StatsFn: monitor.Snapshot,
		Alerts:  alerts,
		Regions: map[string][]string{"East Coast": {"Chennai"}, "West Coast": {"Kochi", "Goa"}},
	}, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("no ingest cycle has completed yet"), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no ingest cycle has completed yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var snap stats.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "running", snap.SystemStatus)
	assert.Equal(t, int64(11), snap.TotalProcessed)
	assert.Equal(t, 11, snap.LocationsMonitored)
}

func TestRegionsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/regions", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Regions map[string][]string `json:"regions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"Kochi", "Goa"}, body.Regions["West Coast"])
}

func TestRecentAlertsEndpoint(t *testing.T) {
	reader := &mockAlerts{alerts: []postgres.StoredAlert{
		{ID: "severe_storm_surge-abc", Location: "Chennai", ThreatLevel: "CRITICAL", Severity: 0.8},
	}}
	srv := newTestServer(nil, reader)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/alerts/recent?limit=5", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, reader.limit)

	var body struct {
		Alerts []postgres.StoredAlert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Alerts, 1)
	assert.Equal(t, "Chennai", body.Alerts[0].Location)
}

func TestRecentAlertsRejectsBadLimit(t *testing.T) {
	srv := newTestServer(nil, &mockAlerts{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/alerts/recent?limit=-1", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecentAlertsWithoutStore(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/alerts/recent", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
