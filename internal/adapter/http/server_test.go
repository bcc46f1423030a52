package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/zonewatch/riskcore/internal/adapter/http"
	"github.com/zonewatch/riskcore/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRecords struct {
	records map[string]domain.FusedRiskRecord
	err     error
}

func (m *mockRecords) LatestRecords(_ context.Context) (map[string]domain.FusedRiskRecord, error) {
	return m.records, m.err
}

func newTestServer(readyErr error, records *mockRecords) *httpadapter.Server {
	if records == nil {
		records = &mockRecords{}
	}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, records, slog.Default())
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
	srv := newTestServer(fmt.Errorf("no assessment cycle has completed yet"), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no assessment cycle has completed yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRecordsReturnsSortedZones(t *testing.T) {
	records := &mockRecords{records: map[string]domain.FusedRiskRecord{
		"zone-b": {ZoneID: "zone-b", FinalCombinedRisk: 30, RiskCategory: domain.RiskModerate},
		"zone-a": {ZoneID: "zone-a", FinalCombinedRisk: 85, RiskCategory: domain.RiskCritical},
	}}
	srv := newTestServer(nil, records)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body []domain.FusedRiskRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "zone-a", body[0].ZoneID)
	assert.Equal(t, "zone-b", body[1].ZoneID)
}

func TestRecordByZone(t *testing.T) {
	records := &mockRecords{records: map[string]domain.FusedRiskRecord{
		"zone-a": {ZoneID: "zone-a", FinalCombinedRisk: 85, RiskCategory: domain.RiskCritical},
	}}
	srv := newTestServer(nil, records)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/zone-a", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body domain.FusedRiskRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.RiskCritical, body.RiskCategory)
}

func TestRecordByZoneNotFound(t *testing.T) {
	srv := newTestServer(nil, &mockRecords{records: map[string]domain.FusedRiskRecord{}})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/zone-x", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordsSourceError(t *testing.T) {
	srv := newTestServer(nil, &mockRecords{err: fmt.Errorf("db closed")})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
