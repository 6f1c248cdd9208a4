package middlewares

import (
	"net/http"
	"time"

	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/response"
	"github.com/Badsnus/outage-alerts/pkg/logger/types"
	"github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	logger *types.Logger
}

func New(logger *types.Logger) *Handler {
	return &Handler{logger: logger}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h Handler) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		h.logger.Infow("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// Recoverer turns a handler panic into a 500 envelope.
func (h Handler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				response.Internal(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
