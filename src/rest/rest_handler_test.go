package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stream-processor/src/config"
	"stream-processor/src/logger"
	"stream-processor/src/metrics"
	"stream-processor/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	results        []models.MProcessedResult
	limits         []int
	resubscribeErr error
	resubscribes   int
}

func (f *fakeController) GetStatus() *models.MStreamStatus {
	return &models.MStreamStatus{
		SourceName: "trades",
		Provider:   "polygon",
		State:      models.StateConnected,
		Running:    true,
		Results:    len(f.results),
	}
}

func (f *fakeController) GetProcessedResults(limit int) []models.MProcessedResult {
	f.limits = append(f.limits, limit)
	if limit > 0 && limit < len(f.results) {
		return f.results[len(f.results)-limit:]
	}
	return f.results
}

func (f *fakeController) FlushNow(context.Context) *models.MProcessedResult {
	return nil
}

func (f *fakeController) Resubscribe() error {
	f.resubscribes++
	return f.resubscribeErr
}

func newHandler(controller *fakeController) (*APIHandler, *metrics.Metrics) {
	m := metrics.NewTestMetrics()
	return NewAPIHandler(logger.NewNopLogger(), controller, m.Gatherer()), m
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// -----------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	h, _ := newHandler(&fakeController{})
	rec := get(t, h, "/rest/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["healthy"])
	assert.Equal(t, "CONNECTED", body["state"])
}

func TestStatus(t *testing.T) {
	h, _ := newHandler(&fakeController{})
	rec := get(t, h, "/rest/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status models.MStreamStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "polygon", status.Provider)
	assert.True(t, status.Running)
}

func TestResults(t *testing.T) {
	controller := &fakeController{results: []models.MProcessedResult{
		{ID: "a", Series: []float64{1}},
		{ID: "b", Series: []float64{2}},
		{ID: "c", Series: []float64{3}},
	}}
	h, _ := newHandler(controller)

	rec := get(t, h, "/rest/results?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count   int                       `json:"count"`
		Results []models.MProcessedResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "b", body.Results[0].ID)
	assert.Equal(t, "c", body.Results[1].ID)

	rec = get(t, h, "/rest/results")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{2, 0}, controller.limits)

	for _, bad := range []string{"-1", "ten"} {
		rec = get(t, h, "/rest/results?limit="+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, m := newHandler(&fakeController{})
	m.TicksEnqueued.Add(3)

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stream_processor_ticks_enqueued_total 3")
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h, _ := newHandler(&fakeController{})
	assert.Equal(t, http.StatusNotFound, get(t, h, "/rest/nope").Code)

	for _, target := range []string{"/rest/status", "/rest/results", "/rest/health", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, target)
	}

	assert.Equal(t, http.StatusMethodNotAllowed, get(t, h, "/rest/resubscribe").Code)
}

func TestResubscribe(t *testing.T) {
	controller := &fakeController{}
	h, _ := newHandler(controller)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rest/resubscribe", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"resubscribed":true}`, rec.Body.String())
	assert.Equal(t, 1, controller.resubscribes)

	controller.resubscribeErr = errors.New("websocket not connected")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rest/resubscribe", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not connected")
	assert.Equal(t, 2, controller.resubscribes)
}

func TestRESTServiceLifecycle(t *testing.T) {
	cfg := config.Default()
	cfg.REST.Host = "127.0.0.1"
	cfg.REST.Port = 0
	h, _ := newHandler(&fakeController{})

	svc, err := NewRESTService(cfg, logger.NewNopLogger(), h)
	require.NoError(t, err)
	require.NoError(t, svc.Start())

	resp, err := http.Get("http://" + svc.Addr().String() + "/rest/health")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, svc.Stop(ctx))
}
