package runs

import (
	"context"
	"errors"
	"net/http"

	"github.com/Badsnus/outage-alerts/cmd/app"
	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/response"
	"github.com/Badsnus/outage-alerts/internal/adapters/database/postgres"
	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	"github.com/Badsnus/outage-alerts/internal/domain/service"
	"github.com/Badsnus/outage-alerts/pkg/logger/types"
	"github.com/go-chi/chi/v5"
)

type runService interface {
	LatestRun(ctx context.Context) (*dto.RunReport, error)
}

type trigger interface {
	Running() bool
	Trigger(ctx context.Context) error
}

type Handler struct {
	logger     *types.Logger
	runService runService
	trigger    trigger
}

func New(a *app.App) *Handler {
	runService := service.NewOutageService(
		postgres.NewOutageStorage(a.DB),
		postgres.NewRunStorage(a.DB),
		a.Settings.Pipeline.ThresholdKm,
	)
	return NewHandler(a.Logger, runService, a.Scheduler)
}

func NewHandler(logger *types.Logger, runService runService, trigger trigger) *Handler {
	return &Handler{
		logger:     logger,
		runService: runService,
		trigger:    trigger,
	}
}

func (h Handler) Setup(r chi.Router) {
	r.Get("/runs/latest", h.Latest)
	r.Post("/runs", h.Start)
}

func (h Handler) Latest(w http.ResponseWriter, r *http.Request) {
	report, err := h.runService.LatestRun(r.Context())
	if err != nil {
		h.logger.Errorf("failed to load latest run: %v", err)
		response.Internal(w)
		return
	}
	if report == nil {
		response.NotFound(w, "the pipeline has not run yet")
		return
	}
	response.JSON(w, report)
}

// Start launches a pipeline run in the background. The run outlives the request.
func (h Handler) Start(w http.ResponseWriter, r *http.Request) {
	if h.trigger.Running() {
		response.Error(w, http.StatusConflict, "conflict", errorz.ErrRunInProgress.Error())
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		err := h.trigger.Trigger(ctx)
		switch {
		case errors.Is(err, errorz.ErrRunInProgress):
			h.logger.Info("manual pipeline run skipped, another run is in progress")
		case err != nil:
			h.logger.Errorf("manual pipeline run failed: %v", err)
		}
	}()

	response.Accepted(w, map[string]string{"status": "started"})
}
