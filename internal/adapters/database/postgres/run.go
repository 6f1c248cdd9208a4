package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"gorm.io/gorm"
)

type RunStorage struct {
	db *gorm.DB
}

func NewRunStorage(db *gorm.DB) *RunStorage {
	return &RunStorage{
		db: db,
	}
}

// Start records a new running cycle.
func (s *RunStorage) Start(ctx context.Context, startedAt time.Time) (*entity.PipelineRun, error) {
	run := &entity.PipelineRun{
		StartedAt: startedAt,
		Status:    entity.RunStatusRunning,
	}
	err := s.db.WithContext(ctx).Create(run).Error
	return run, err
}

// Finish stores the final state of run.
func (s *RunStorage) Finish(ctx context.Context, run *entity.PipelineRun) error {
	return s.db.WithContext(ctx).Save(run).Error
}

// LastRun returns the most recently started cycle, or nil when none ran yet.
func (s *RunStorage) LastRun(ctx context.Context) (*entity.PipelineRun, error) {
	var run entity.PipelineRun
	err := s.db.WithContext(ctx).Order("started_at DESC, id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
