package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Badsnus/outage-alerts/internal/adapters/config"
	"github.com/Badsnus/outage-alerts/internal/adapters/database/postgres"
	"github.com/Badsnus/outage-alerts/internal/adapters/geocoder/nominatim"
	"github.com/Badsnus/outage-alerts/internal/adapters/metrics"
	"github.com/Badsnus/outage-alerts/internal/adapters/source/uedcl"
	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"github.com/Badsnus/outage-alerts/internal/domain/service"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
	"github.com/Badsnus/outage-alerts/pkg/logger"
	"github.com/Badsnus/outage-alerts/pkg/smtp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

const page = `<table>
<tr><th>Date</th><th>District</th><th>Status</th><th>Areas</th></tr>
<tr><td>2026-10-20 09:00</td><td>Wakiso</td><td>Planned</td><td>Kira, Namugongo</td></tr>
<tr><td>2026-10-21 10:00</td><td>Gulu</td><td>Planned</td><td>Layibi</td></tr>
</table>`

var places = map[string]string{
	"Wakiso, Uganda": `[{"lat":"0.4044","lon":"32.4594"}]`,
	"Gulu, Uganda":   `[{"lat":"2.7724","lon":"32.2881"}]`,
}

type recordingSender struct {
	sent []*gomail.Message
}

func (r *recordingSender) DialAndSend(m ...*gomail.Message) error {
	r.sent = append(r.sent, m...)
	return nil
}

func testApp(t *testing.T, sender smtp.Sender) *App {
	t.Helper()

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	t.Cleanup(source.Close)

	geocoder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := places[r.URL.Query().Get("q")]
		if !ok {
			body = `[]`
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(geocoder.Close)

	db, err := postgres.Open(postgres.Options{SQLitePath: filepath.Join(t.TempDir(), "outages.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, errDB := db.DB(); errDB == nil {
			_ = sqlDB.Close()
		}
	})

	m := metrics.NewMetricsForTesting()
	return &App{
		DB:     db,
		Mailer: smtp.NewClient(sender, smtp.Credentials{Username: "alerts@example.com", Host: "example.com"}),
		Fetcher: uedcl.NewFetcher(uedcl.Options{
			URL:     source.URL,
			Policy:  uedcl.RetryPolicy{MaxAttempts: 1, Backoff: time.Millisecond},
			Logger:  logger.Nop(),
			Metrics: m,
		}),
		Locator: service.NewLocator(logger.Nop(), m, nominatim.NewClient(nominatim.Options{URL: geocoder.URL, Country: "Uganda", Delay: time.Millisecond})),
		Metrics: m,
		Clock:   clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)),
		Settings: &config.Settings{Pipeline: config.Pipeline{
			ThresholdKm: 20,
			DedupKey:    string(entity.LedgerKeyContent),
		}},
		Logger: logger.Nop(),
	}
}

func TestRunPipeline_ExternalSession(t *testing.T) {
	sender := &recordingSender{}
	a := testApp(t, sender)
	ctx := context.Background()

	subscriber := &entity.Subscriber{Email: "amara@example.com", IsSubscribed: true}
	subscriber.SetPoint(geo.Point{Lat: 0.3476, Lon: 32.5825})
	_, err := postgres.NewSubscriberStorage(a.DB).Create(ctx, subscriber)
	require.NoError(t, err)

	report, err := a.RunPipeline(ctx, postgres.ExternalSession(a.DB))
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusSucceeded, report.Status)
	assert.Equal(t, 2, report.OutagesStored)
	assert.Equal(t, 2, report.Geocoded)
	assert.Equal(t, 1, report.SubscribersNotified)
	assert.Equal(t, 1, report.AlertsSent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"amara@example.com"}, sender.sent[0].GetHeader("To"))

	outages, err := postgres.NewOutageStorage(a.DB).GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, outages, 2)

	// the handle stays usable after an external session
	sqlDB, err := a.DB.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())

	report, err = a.RunPipeline(ctx, postgres.ExternalSession(a.DB))
	require.NoError(t, err)
	assert.Equal(t, 0, report.AlertsSent)
	assert.Len(t, sender.sent, 1)

	count, err := postgres.NewNotificationStorage(a.DB).CountBySubscriber(ctx, subscriber.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	last, err := postgres.NewRunStorage(a.DB).LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, entity.RunStatusSucceeded, last.Status)
}

func TestRunPipeline_OwnedSession(t *testing.T) {
	a := testApp(t, &recordingSender{})
	path := filepath.Join(t.TempDir(), "owned.db")
	opts := postgres.Options{SQLitePath: path}

	migrated, err := postgres.Open(opts)
	require.NoError(t, err)
	sqlDB, err := migrated.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	a.dbOptions = opts
	report, err := a.RunPipeline(context.Background(), a.PipelineSession())
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusSucceeded, report.Status)
	assert.Equal(t, 2, report.OutagesStored)
}
