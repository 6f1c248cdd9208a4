package setup

import (
	"github.com/Badsnus/outage-alerts/cmd/app"
	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/handlers/health"
	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/handlers/middlewares"
	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/handlers/outages"
	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/handlers/runs"
	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/handlers/subscribers"
	"github.com/Badsnus/outage-alerts/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(a *app.App) {
	apiLogger, err := logger.Named("api")
	if err != nil {
		a.Logger.Panicf("Failed to create api logger: %v", err)
	}

	middle := middlewares.New(apiLogger)
	outageHandler := outages.New(a)
	runHandler := runs.New(a)
	subscriberHandler := subscribers.New(a)
	healthHandler := health.New(a)

	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(middle.Logger)
	a.Router.Use(middle.Recoverer)

	healthHandler.Setup(a.Router)
	a.Router.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	a.Router.Route("/api", func(r chi.Router) {
		outageHandler.Setup(r)
		runHandler.Setup(r)
		subscriberHandler.Setup(r)
	})
}
