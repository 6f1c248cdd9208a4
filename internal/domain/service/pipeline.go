package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Badsnus/outage-alerts/internal/adapters/metrics"
	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
	"github.com/Badsnus/outage-alerts/pkg/logger/types"
	"github.com/jonboulle/clockwork"
)

const DefaultThresholdKm = 20.0

type outageSource interface {
	Fetch(ctx context.Context) ([]dto.OutageRecord, error)
}

type outageLocator interface {
	Locate(ctx context.Context, area string) (geo.Point, bool)
}

type pipelineOutageStorage interface {
	Replace(ctx context.Context, outages []entity.Outage) ([]entity.Outage, error)
}

type pipelineSubscriberStorage interface {
	GetNotifiable(ctx context.Context) ([]entity.Subscriber, error)
}

type notificationStorage interface {
	NotifiedKeys(ctx context.Context, subscriberID uint, keys []string) (map[string]struct{}, error)
	CreateMany(ctx context.Context, records []entity.NotificationRecord) (int64, error)
}

type pipelineRunStorage interface {
	Start(ctx context.Context, startedAt time.Time) (*entity.PipelineRun, error)
	Finish(ctx context.Context, run *entity.PipelineRun) error
}

type alertMailer interface {
	SendOutageAlert(to string, alerts []dto.Alert) error
}

type PipelineOptions struct {
	ThresholdKm float64
	LedgerKey   entity.LedgerKey
}

// PipelineService runs one scrape, store, match and notify cycle.
type PipelineService struct {
	source              outageSource
	locator             outageLocator
	outageStorage       pipelineOutageStorage
	subscriberStorage   pipelineSubscriberStorage
	notificationStorage notificationStorage
	runStorage          pipelineRunStorage
	mailer              alertMailer

	opts    PipelineOptions
	clock   clockwork.Clock
	logger  *types.Logger
	metrics *metrics.Metrics
}

func NewPipelineService(
	logger *types.Logger,
	m *metrics.Metrics,
	clock clockwork.Clock,
	opts PipelineOptions,
	source outageSource,
	locator outageLocator,
	outageStorage pipelineOutageStorage,
	subscriberStorage pipelineSubscriberStorage,
	notificationStorage notificationStorage,
	runStorage pipelineRunStorage,
	mailer alertMailer,
) *PipelineService {
	if opts.ThresholdKm <= 0 {
		opts.ThresholdKm = DefaultThresholdKm
	}
	if opts.LedgerKey == "" {
		opts.LedgerKey = entity.LedgerKeyContent
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if m == nil {
		m = metrics.NewMetricsForTesting()
	}

	return &PipelineService{
		source:              source,
		locator:             locator,
		outageStorage:       outageStorage,
		subscriberStorage:   subscriberStorage,
		notificationStorage: notificationStorage,
		runStorage:          runStorage,
		mailer:              mailer,
		opts:                opts,
		clock:               clock,
		logger:              logger,
		metrics:             m,
	}
}

// Run executes one cycle and always returns a report. The error is non-nil
// when the cycle was aborted (nothing fetched) or failed (store not replaced
// or subscribers not loaded). Per-subscriber problems are only counted.
func (s *PipelineService) Run(ctx context.Context) (*dto.RunReport, error) {
	report := &dto.RunReport{
		Status:    entity.RunStatusRunning,
		StartedAt: s.clock.Now(),
	}
	run := s.startRun(ctx, report.StartedAt)

	err := s.run(ctx, report)
	switch {
	case err == nil:
		report.Status = entity.RunStatusSucceeded
	case errors.Is(err, errorz.ErrNoSourceData):
		report.Status = entity.RunStatusAborted
		report.Error = err.Error()
	default:
		report.Status = entity.RunStatusFailed
		report.Error = err.Error()
	}
	report.FinishedAt = s.clock.Now()

	s.metrics.Runs.WithLabelValues(string(report.Status)).Inc()
	s.metrics.RunDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	s.finishRun(ctx, run, report)

	if err != nil {
		s.logger.Errorf("pipeline run %s: %v", report.Status, err)
		return report, err
	}
	s.logger.Infof(
		"pipeline run succeeded (outages=%d, geocoded=%d, subscribers=%d, notified=%d, alerts=%d, mail_failures=%d, errors=%d)",
		report.OutagesStored,
		report.Geocoded,
		report.SubscribersChecked,
		report.SubscribersNotified,
		report.AlertsSent,
		report.MailFailures,
		report.SubscriberErrors,
	)
	return report, nil
}

func (s *PipelineService) run(ctx context.Context, report *dto.RunReport) error {
	records, err := s.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", errorz.ErrNoSourceData, err)
	}
	report.Fetched = len(records)
	if len(records) == 0 {
		return errorz.ErrNoSourceData
	}

	// Geocoding happens before the replace transaction so that slow upstream
	// calls never hold it open.
	outages := s.buildOutages(ctx, records, report)

	stored, err := s.outageStorage.Replace(ctx, outages)
	if err != nil {
		return fmt.Errorf("replace outages: %w", err)
	}
	report.OutagesStored = len(stored)
	s.metrics.OutagesStored.Set(float64(len(stored)))
	s.logger.Infof("stored %d outages", len(stored))

	return s.notify(ctx, stored, report)
}

func (s *PipelineService) buildOutages(ctx context.Context, records []dto.OutageRecord, report *dto.RunReport) []entity.Outage {
	outages := make([]entity.Outage, 0, len(records))
	for _, record := range records {
		outage := entity.Outage{
			Area:       record.District,
			SubAreas:   record.Areas,
			Status:     record.Status,
			OutageDate: record.Date,
			OutageTime: record.Time,
		}
		if p, ok := s.locator.Locate(ctx, record.District); ok {
			outage.SetPoint(p)
			report.Geocoded++
		}
		outages = append(outages, outage)
	}
	return outages
}

func (s *PipelineService) startRun(ctx context.Context, startedAt time.Time) *entity.PipelineRun {
	if s.runStorage == nil {
		return nil
	}
	run, err := s.runStorage.Start(ctx, startedAt)
	if err != nil {
		s.logger.Warnf("failed to record pipeline run start: %v", err)
		return nil
	}
	return run
}

func (s *PipelineService) finishRun(ctx context.Context, run *entity.PipelineRun, report *dto.RunReport) {
	if run == nil {
		return
	}
	report.RunID = run.ID

	finishedAt := report.FinishedAt
	run.FinishedAt = &finishedAt
	run.Status = report.Status
	run.OutagesStored = report.OutagesStored
	run.SubscribersNotified = report.SubscribersNotified
	run.AlertsSent = report.AlertsSent
	run.Error = report.Error

	// the cycle's own context may already be cancelled
	if err := s.runStorage.Finish(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warnf("failed to record pipeline run %d result: %v", run.ID, err)
	}
}
