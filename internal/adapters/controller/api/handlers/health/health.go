package health

import (
	"context"
	"net/http"
	"time"

	"github.com/Badsnus/outage-alerts/cmd/app"
	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/response"
	"github.com/Badsnus/outage-alerts/pkg/logger/types"
	"github.com/go-chi/chi/v5"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	logger   *types.Logger
	database pinger
}

func New(a *app.App) *Handler {
	sqlDB, err := a.DB.DB()
	if err != nil {
		a.Logger.Panicf("Failed to get database handle: %v", err)
	}
	return NewHandler(a.Logger, sqlDB)
}

func NewHandler(logger *types.Logger, database pinger) *Handler {
	return &Handler{
		logger:   logger,
		database: database,
	}
}

func (h Handler) Setup(r chi.Router) {
	r.Get("/healthz", h.Healthz)
}

func (h Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.database.PingContext(ctx); err != nil {
		h.logger.Warnf("health check failed: %v", err)
		response.Error(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
		return
	}
	response.JSON(w, map[string]string{"status": "ok"})
}
