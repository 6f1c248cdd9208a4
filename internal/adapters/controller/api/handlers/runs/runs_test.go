package runs_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/handlers/runs"
	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"github.com/Badsnus/outage-alerts/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunService struct {
	report *dto.RunReport
	err    error
}

func (f fakeRunService) LatestRun(context.Context) (*dto.RunReport, error) {
	return f.report, f.err
}

type fakeTrigger struct {
	running   atomic.Bool
	triggered chan struct{}
}

func newFakeTrigger() *fakeTrigger {
	return &fakeTrigger{triggered: make(chan struct{}, 1)}
}

func (f *fakeTrigger) Running() bool {
	return f.running.Load()
}

func (f *fakeTrigger) Trigger(ctx context.Context) error {
	f.triggered <- struct{}{}
	return ctx.Err()
}

func serve(h *runs.Handler, method, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Setup(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestLatest(t *testing.T) {
	report := &dto.RunReport{RunID: 7, Status: entity.RunStatusSucceeded, OutagesStored: 3, AlertsSent: 2}
	h := runs.NewHandler(logger.Nop(), fakeRunService{report: report}, newFakeTrigger())

	w := serve(h, http.MethodGet, "/runs/latest")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data dto.RunReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint(7), body.Data.RunID)
	assert.Equal(t, entity.RunStatusSucceeded, body.Data.Status)
	assert.Equal(t, 3, body.Data.OutagesStored)
}

func TestLatest_NeverRan(t *testing.T) {
	h := runs.NewHandler(logger.Nop(), fakeRunService{}, newFakeTrigger())
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/runs/latest").Code)
}

func TestLatest_Error(t *testing.T) {
	h := runs.NewHandler(logger.Nop(), fakeRunService{err: errors.New("db down")}, newFakeTrigger())
	assert.Equal(t, http.StatusInternalServerError, serve(h, http.MethodGet, "/runs/latest").Code)
}

func TestStart(t *testing.T) {
	trigger := newFakeTrigger()
	h := runs.NewHandler(logger.Nop(), fakeRunService{}, trigger)

	w := serve(h, http.MethodPost, "/runs")
	assert.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-trigger.triggered:
	case <-time.After(time.Second):
		t.Fatal("run was not triggered")
	}
}

func TestStart_AlreadyRunning(t *testing.T) {
	trigger := newFakeTrigger()
	trigger.running.Store(true)
	h := runs.NewHandler(logger.Nop(), fakeRunService{}, trigger)

	w := serve(h, http.MethodPost, "/runs")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, trigger.triggered)
}
