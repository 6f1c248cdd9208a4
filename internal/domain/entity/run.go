package entity

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusAborted   RunStatus = "aborted"
	RunStatusFailed    RunStatus = "failed"
)

// PipelineRun is the history entry of one fetch-store-match-notify cycle
type PipelineRun struct {
	ID                  uint      `gorm:"primaryKey"`
	StartedAt           time.Time `gorm:"not null;index"`
	FinishedAt          *time.Time
	Status              RunStatus `gorm:"size:16;not null"`
	OutagesStored       int
	SubscribersNotified int
	AlertsSent          int
	Error               string
}
