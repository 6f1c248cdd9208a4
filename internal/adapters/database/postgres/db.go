package postgres

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Options describe how to reach the datastore.
type Options struct {
	// URL is a postgres connection URL. When empty the sqlite file at SQLitePath is used.
	URL        string
	SQLitePath string
	Debug      bool
}

// Dialector picks the gorm driver for opts.
func Dialector(opts Options) gorm.Dialector {
	if opts.URL != "" {
		return postgres.Open(NormalizeURL(opts.URL))
	}
	path := opts.SQLitePath
	if path == "" {
		path = "outages.db"
	}
	return sqlite.Open(fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
}

// NormalizeURL rewrites the legacy postgres:// scheme some hosts still hand out.
func NormalizeURL(url string) string {
	if strings.HasPrefix(url, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(url, "postgres://")
	}
	return url
}

// Connect opens a handle without touching the schema.
func Connect(opts Options) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	}
	if opts.Debug {
		gormConfig.Logger = gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold: time.Second,
				LogLevel:      gormLogger.Info,
				Colorful:      true,
			},
		)
	}

	db, err := gorm.Open(Dialector(opts), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// Open connects to the datastore and applies Migrations.
func Open(opts Options) (*gorm.DB, error) {
	db, err := Connect(opts)
	if err != nil {
		return nil, err
	}
	if err = Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}
