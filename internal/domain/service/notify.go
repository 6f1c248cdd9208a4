package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
)

// notify alerts every notifiable subscriber about the freshly stored outages
// within range that they have not been told about yet.
func (s *PipelineService) notify(ctx context.Context, outages []entity.Outage, report *dto.RunReport) error {
	located := make([]entity.Outage, 0, len(outages))
	for _, outage := range outages {
		if _, ok := outage.Point(); ok {
			located = append(located, outage)
		}
	}

	subscribers, err := s.subscriberStorage.GetNotifiable(ctx)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}
	s.logger.Debugf("matching %d located outages against %d subscribers", len(located), len(subscribers))

	for _, subscriber := range subscribers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		report.SubscribersChecked++

		sent, errNotify := s.notifySubscriber(ctx, subscriber, located)
		switch {
		case errNotify == nil:
		case errors.Is(errNotify, errorz.ErrMailNotSent):
			report.MailFailures++
			s.logger.Errorf("failed to notify subscriber (subscriber_id=%d): %v", subscriber.ID, errNotify)
		default:
			report.SubscriberErrors++
			s.logger.Errorf("failed to process subscriber (subscriber_id=%d): %v", subscriber.ID, errNotify)
		}
		if sent > 0 {
			report.SubscribersNotified++
			report.AlertsSent += sent
		}
	}
	return nil
}

// notifySubscriber sends at most one digest and returns the number of alerts
// it carried. Ledger records are written only after a successful send.
func (s *PipelineService) notifySubscriber(ctx context.Context, subscriber entity.Subscriber, outages []entity.Outage) (int, error) {
	origin, ok := subscriber.Point()
	if !ok || len(outages) == 0 {
		return 0, nil
	}

	keys := make([]string, len(outages))
	for i := range outages {
		keys[i] = s.opts.LedgerKey.Of(&outages[i])
	}

	notified, err := s.notificationStorage.NotifiedKeys(ctx, subscriber.ID, keys)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}

	var alerts []dto.Alert
	for i, outage := range outages {
		key := keys[i]
		if _, done := notified[key]; done {
			continue
		}
		p, _ := outage.Point()
		distance, near := geo.Within(origin, p, s.opts.ThresholdKm)
		if !near {
			continue
		}
		// the same key twice in one batch is one alert
		notified[key] = struct{}{}
		alerts = append(alerts, dto.NewAlertFromEntity(outage, key, distance))
	}
	if len(alerts) == 0 {
		return 0, nil
	}

	s.logger.Infof("sending %d outage alerts (subscriber_id=%d)", len(alerts), subscriber.ID)
	if err = s.mailer.SendOutageAlert(subscriber.Email, alerts); err != nil {
		s.metrics.EmailsSent.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("%w: %w", errorz.ErrMailNotSent, err)
	}
	s.metrics.EmailsSent.WithLabelValues("success").Inc()

	sentAt := s.clock.Now()
	records := make([]entity.NotificationRecord, 0, len(alerts))
	for _, alert := range alerts {
		records = append(records, entity.NotificationRecord{
			SubscriberID: subscriber.ID,
			OutageKey:    alert.OutageKey,
			OutageID:     alert.OutageID,
			SentAt:       sentAt,
		})
	}

	// a shutdown signal must not drop the ledger for mail that already left
	created, err := s.notificationStorage.CreateMany(context.WithoutCancel(ctx), records)
	s.metrics.NotificationsLog.Add(float64(created))
	if err != nil {
		// the mail is out; without records the next run alerts again
		return len(alerts), fmt.Errorf("record notifications: %w", err)
	}
	return len(alerts), nil
}
