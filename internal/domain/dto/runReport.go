package dto

import (
	"time"

	"github.com/Badsnus/outage-alerts/internal/domain/entity"
)

// RunReport summarises one pipeline cycle.
type RunReport struct {
	RunID               uint             `json:"run_id,omitempty"`
	Status              entity.RunStatus `json:"status"`
	StartedAt           time.Time        `json:"started_at"`
	FinishedAt          time.Time        `json:"finished_at"`
	Fetched             int              `json:"fetched"`
	OutagesStored       int              `json:"outages_stored"`
	Geocoded            int              `json:"geocoded"`
	SubscribersChecked  int              `json:"subscribers_checked"`
	SubscribersNotified int              `json:"subscribers_notified"`
	AlertsSent          int              `json:"alerts_sent"`
	MailFailures        int              `json:"mail_failures"`
	SubscriberErrors    int              `json:"subscriber_errors"`
	Error               string           `json:"error,omitempty"`
}

func NewRunReportFromEntity(run entity.PipelineRun) RunReport {
	report := RunReport{
		RunID:               run.ID,
		Status:              run.Status,
		StartedAt:           run.StartedAt,
		OutagesStored:       run.OutagesStored,
		SubscribersNotified: run.SubscribersNotified,
		AlertsSent:          run.AlertsSent,
		Error:               run.Error,
	}
	if run.FinishedAt != nil {
		report.FinishedAt = *run.FinishedAt
	}
	return report
}
