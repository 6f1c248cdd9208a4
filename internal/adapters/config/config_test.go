package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
smtp:
  username: alerts@example.com
`

func TestLoad_Defaults(t *testing.T) {
	settings, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "Africa/Kampala", settings.Settings.Timezone)
	assert.Equal(t, "outages.db", settings.Database.SQLitePath)
	assert.Empty(t, settings.Database.URL)
	assert.Equal(t, 587, settings.SMTP.Port)
	assert.Equal(t, "https://www.uedcl.co.ug/outage-alerts/", settings.Source.URL)
	assert.Equal(t, 3, settings.Source.MaxAttempts)
	assert.Equal(t, 5*time.Second, settings.Source.Backoff)
	assert.Equal(t, time.Second, settings.Geocoder.Delay)
	assert.Equal(t, 20.0, settings.Pipeline.ThresholdKm)
	assert.Equal(t, 24*time.Hour, settings.Interval())
	assert.Equal(t, 36*time.Hour, settings.MisfireGrace())
	assert.Equal(t, entity.LedgerKeyContent, settings.LedgerKey())
	assert.Equal(t, ":8080", settings.HTTP.Addr)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
settings:
  debug: true
  timezone: UTC
database:
  url: postgres://outages:secret@db:5432/outages
smtp:
  host: smtp.example.com
  port: 465
  username: alerts@example.com
  ssl: true
source:
  timeout: 30s
  backoff: 2s
pipeline:
  dedup-key: outage-id
  threshold-km: 15
`)
	t.Setenv("SMTP_PASSWORD", "app-password")
	t.Setenv("PIPELINE_THRESHOLD_KM", "25.5")
	t.Setenv("PIPELINE_INTERVAL_HOURS", "12")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.True(t, settings.Settings.Debug)
	assert.Equal(t, "UTC", settings.Settings.Timezone)
	assert.Equal(t, "postgres://outages:secret@db:5432/outages", settings.Database.URL)
	assert.Equal(t, 30*time.Second, settings.Source.Timeout)
	assert.Equal(t, 25.5, settings.Pipeline.ThresholdKm)
	assert.Equal(t, 12*time.Hour, settings.Interval())
	assert.Equal(t, entity.LedgerKeyOutageID, settings.LedgerKey())

	creds := settings.SMTPCredentials()
	assert.Equal(t, "smtp.example.com", creds.Host)
	assert.Equal(t, 465, creds.Port)
	assert.Equal(t, "app-password", creds.Password)
	assert.True(t, creds.SSL)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SMTP_USERNAME", "alerts@example.com")

	settings, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "alerts@example.com", settings.SMTP.Username)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"no smtp user", `smtp: {username: ""}`},
		{"bad timezone", minimalConfig + "settings: {timezone: Mars/Olympus}"},
		{"bad dedup key", minimalConfig + "pipeline: {dedup-key: email}"},
		{"zero threshold", minimalConfig + "pipeline: {threshold-km: 0}"},
		{"zero attempts", minimalConfig + "source: {max-attempts: 0}"},
		{"bad sender", minimalConfig[:len(minimalConfig)-1] + "\n  email: not-an-address\n"},
		{"no database", minimalConfig + "database: {sqlite-path: \"\"}"},
		{"zero geocoder delay", minimalConfig + "geocoder: {delay: 0s}"},
		{"sub-second geocoder delay", minimalConfig + "geocoder: {delay: 500ms}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.config))
			assert.Error(t, err)
		})
	}
}
