package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/EdenYYT/RapidGMPE/internal/adapter/http"
	"github.com/EdenYYT/RapidGMPE/internal/domain"
	"github.com/EdenYYT/RapidGMPE/internal/engine"
	"github.com/EdenYYT/RapidGMPE/internal/gmpe"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockEstimator struct {
	got     []byte
	summary domain.EstimateSummary
	err     error
}

func (m *mockEstimator) Transform(_ context.Context, raw domain.RawEvent) (domain.EstimateSummary, error) {
	m.got = raw.Value
	return m.summary, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(readyErr error, api httpadapter.API) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, api, discardLogger())
}

func serve(srv *httpadapter.Server, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil, httpadapter.API{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReflectsReadiness(t *testing.T) {
	rec := serve(newTestServer(nil, httpadapter.API{}), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(newTestServer(fmt.Errorf("not ready yet"), httpadapter.API{}), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, httpadapter.API{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestModelsEndpoint(t *testing.T) {
	srv := newTestServer(nil, httpadapter.API{Models: gmpe.Default()})
	rec := serve(srv, http.MethodGet, "/models", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	names := make([]string, len(body))
	for i, m := range body {
		names[i] = m.Name
	}
	assert.Equal(t, gmpe.Default().Names(), names)
}

func TestOptionalRoutesUnregistered(t *testing.T) {
	srv := newTestServer(nil, httpadapter.API{})
	assert.Equal(t, http.StatusNotFound, serve(srv, http.MethodGet, "/models", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(srv, http.MethodPost, "/estimate", "{}").Code)
}

func TestEstimateEndpoint_Success(t *testing.T) {
	est := &mockEstimator{summary: domain.EstimateSummary{ID: "eq-1", Status: "selected"}}
	srv := newTestServer(nil, httpadapter.API{Estimator: est})

	payload := `{"lon":103.0,"lat":30.3,"depth_km":13,"radius_km":100,"ms":7.0,"mw":6.6}`
	rec := serve(srv, http.MethodPost, "/estimate", payload)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, payload, string(est.got))
	var got domain.EstimateSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "eq-1", got.ID)
	assert.Equal(t, "selected", got.Status)
}

func TestEstimateEndpoint_ErrorStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantStage string
	}{
		{"invalid report", fmt.Errorf("%w: bad lat", domain.ErrInvalidReport), http.StatusBadRequest, ""},
		{"no models", &engine.StageError{Stage: engine.StageModels, Err: gmpe.ErrNoActiveModels}, http.StatusUnprocessableEntity, engine.StageModels},
		{"bad input", &engine.StageError{Stage: engine.StageInput, Err: errors.New("depth")}, http.StatusUnprocessableEntity, engine.StageInput},
		{"timeout", &engine.StageError{Stage: engine.StageModels, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, engine.StageModels},
		{"grid failure", &engine.StageError{Stage: engine.StageGrid, Err: errors.New("missing raster")}, http.StatusInternalServerError, engine.StageGrid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(nil, httpadapter.API{Estimator: &mockEstimator{err: tt.err}})
			rec := serve(srv, http.MethodPost, "/estimate", "{}")

			assert.Equal(t, tt.wantCode, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.err.Error(), body["error"])
			assert.Equal(t, tt.wantStage, body["stage"])
		})
	}
}

func TestEstimateEndpoint_BodyTooLarge(t *testing.T) {
	srv := newTestServer(nil, httpadapter.API{Estimator: &mockEstimator{}})
	rec := serve(srv, http.MethodPost, "/estimate", strings.Repeat("x", 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
