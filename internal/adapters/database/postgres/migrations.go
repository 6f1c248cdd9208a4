package postgres

import (
	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"gorm.io/gorm"
)

// Migrations is a list of all gorm migrations for the database.
var Migrations = []interface{}{
	&entity.Subscriber{},
	&entity.Outage{},
	&entity.NotificationRecord{},
	&entity.PipelineRun{},
}

// Migrate creates or updates every table in Migrations.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Migrations...)
}
