package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Badsnus/outage-alerts/internal/adapters/config"
	"github.com/Badsnus/outage-alerts/internal/adapters/controller/scheduler"
	"github.com/Badsnus/outage-alerts/internal/adapters/database/postgres"
	redisStorage "github.com/Badsnus/outage-alerts/internal/adapters/database/redis"
	"github.com/Badsnus/outage-alerts/internal/adapters/database/redis/geocache"
	"github.com/Badsnus/outage-alerts/internal/adapters/database/redis/locks"
	"github.com/Badsnus/outage-alerts/internal/adapters/geocoder/nominatim"
	"github.com/Badsnus/outage-alerts/internal/adapters/metrics"
	"github.com/Badsnus/outage-alerts/internal/adapters/source/uedcl"
	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	"github.com/Badsnus/outage-alerts/internal/domain/service"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/location"
	"github.com/Badsnus/outage-alerts/pkg/logger"
	"github.com/Badsnus/outage-alerts/pkg/logger/types"
	"github.com/Badsnus/outage-alerts/pkg/smtp"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

type geocoder interface {
	Search(ctx context.Context, area string) (geo.Point, error)
}

type App struct {
	Router     chi.Router
	DB         *gorm.DB
	Redis      *redisStorage.Client
	SMTPDialer *gomail.Dialer
	Mailer     *smtp.Client
	Fetcher    *uedcl.Fetcher
	Locator    *service.Locator
	Scheduler  *scheduler.PipelineScheduler
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
	Clock      clockwork.Clock
	Settings   *config.Settings
	Logger     *types.Logger

	dbOptions      postgres.Options
	pipelineLogger *types.Logger
}

func New(cfg *config.Config) (*App, error) {
	appLogger, err := logger.Named("app")
	if err != nil {
		return nil, err
	}
	settings := cfg.Settings

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)
	logger.SetLogHook(m.LogHook())

	sourceLogger, err := logger.Named("source")
	if err != nil {
		return nil, err
	}
	fetcher := uedcl.NewFetcher(uedcl.Options{
		URL:     settings.Source.URL,
		Timeout: settings.Source.Timeout,
		Policy: uedcl.RetryPolicy{
			MaxAttempts: settings.Source.MaxAttempts,
			Backoff:     settings.Source.Backoff,
		},
		Location: location.Location(),
		Logger:   sourceLogger,
		Metrics:  m,
	})

	geocoderLogger, err := logger.Named("geocoder")
	if err != nil {
		return nil, err
	}
	var upstream geocoder = nominatim.NewClient(nominatim.Options{
		URL:       settings.Geocoder.URL,
		UserAgent: settings.Geocoder.UserAgent,
		Country:   settings.Geocoder.Country,
		Timeout:   settings.Geocoder.Timeout,
		Delay:     settings.Geocoder.Delay,
	})
	if cfg.Redis != nil && settings.Geocoder.CacheTTL > 0 {
		upstream = geocache.NewCached(upstream, cfg.Redis.Geocache, geocoderLogger, m)
	}

	credentials := settings.SMTPCredentials()
	dialer := smtp.NewDialer(credentials)

	a := &App{
		Router:     chi.NewRouter(),
		DB:         cfg.Database,
		Redis:      cfg.Redis,
		SMTPDialer: dialer,
		Mailer:     smtp.NewClient(dialer, credentials).WithCalendar(location.Location()),
		Fetcher:    fetcher,
		Locator:    service.NewLocator(geocoderLogger, m, upstream),
		Metrics:    m,
		Registry:   registry,
		Clock:      clockwork.NewRealClock(),
		Settings:   settings,
		Logger:     appLogger,
		dbOptions: postgres.Options{
			URL:        settings.Database.URL,
			SQLitePath: settings.Database.SQLitePath,
			Debug:      settings.Settings.Debug,
		},
	}

	a.pipelineLogger, err = logger.Named("pipeline")
	if err != nil {
		return nil, err
	}

	var lock scheduler.Lock
	if cfg.Redis != nil {
		redisLock, errLock := locks.NewRedisLock(cfg.Redis.Locks, redisStorage.PipelineLockKey, settings.Interval())
		if errLock != nil {
			return nil, errLock
		}
		lock = redisLock
	}

	schedulerLogger, err := logger.Named("scheduler")
	if err != nil {
		return nil, err
	}
	a.Scheduler = scheduler.NewPipelineScheduler(
		schedulerLogger,
		a.Clock,
		postgres.NewRunStorage(a.DB),
		lock,
		func(ctx context.Context) error {
			_, errRun := a.RunPipeline(ctx, a.PipelineSession())
			return errRun
		},
		scheduler.Options{
			Interval:     settings.Interval(),
			MisfireGrace: settings.MisfireGrace(),
		},
	)

	return a, nil
}

// PipelineSession gives each run its own single-connection handle, closed
// when the run ends.
func (a *App) PipelineSession() postgres.Session {
	return postgres.OwnedSessionFactory(func(ctx context.Context) (*gorm.DB, error) {
		db, err := postgres.Connect(a.dbOptions)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	})
}

// RunPipeline runs one fetch, store, match and notify cycle on the database
// handle described by session.
func (a *App) RunPipeline(ctx context.Context, session postgres.Session) (*dto.RunReport, error) {
	db, release, err := session.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if errRelease := release(); errRelease != nil {
			a.Logger.Warnf("failed to close pipeline database handle: %v", errRelease)
		}
	}()

	pipelineLogger := a.pipelineLogger
	if pipelineLogger == nil {
		pipelineLogger = a.Logger
	}

	pipeline := service.NewPipelineService(
		pipelineLogger,
		a.Metrics,
		a.Clock,
		service.PipelineOptions{
			ThresholdKm: a.Settings.Pipeline.ThresholdKm,
			LedgerKey:   a.Settings.LedgerKey(),
		},
		a.Fetcher,
		a.Locator,
		postgres.NewOutageStorage(db),
		postgres.NewSubscriberStorage(db),
		postgres.NewNotificationStorage(db),
		postgres.NewRunStorage(db),
		a.Mailer,
	)
	return pipeline.Run(ctx)
}

// Start runs the scheduler and, when http.addr is set, the ops API until ctx
// is cancelled.
func (a *App) Start(ctx context.Context) error {
	a.Scheduler.Start(ctx)
	defer a.Scheduler.Stop()

	if a.Settings.HTTP.Addr == "" {
		a.Logger.Info("Ops API disabled")
		<-ctx.Done()
		return nil
	}

	srv := &http.Server{
		Addr:              a.Settings.HTTP.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Infof("Ops API listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops api: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown ops api: %w", err)
	}
	a.Logger.Info("Ops API stopped")
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}
