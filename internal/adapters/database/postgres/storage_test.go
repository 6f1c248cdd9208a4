package postgres

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func testOutage(area string, day int, located bool) entity.Outage {
	o := entity.Outage{
		Area:       area,
		SubAreas:   area + " Central, " + area + " East",
		Status:     "Planned",
		OutageDate: time.Date(2026, 10, day, 0, 0, 0, 0, time.UTC),
		OutageTime: "09:00",
	}
	if located {
		o.SetPoint(geo.Point{Lat: 0.3, Lon: 32.5})
	}
	return o
}

func testSubscriber(email string, subscribed, located bool) *entity.Subscriber {
	s := &entity.Subscriber{Email: email, IsSubscribed: subscribed}
	if located {
		s.SetPoint(geo.Point{Lat: 0.31, Lon: 32.51})
	}
	return s
}

func areas(outages []entity.Outage) []string {
	names := make([]string, 0, len(outages))
	for _, o := range outages {
		names = append(names, o.Area)
	}
	return names
}

func TestOutageStorage_ReplaceOverwritesPreviousGeneration(t *testing.T) {
	ctx := context.Background()
	storage := NewOutageStorage(newTestDB(t))

	_, err := storage.Replace(ctx, []entity.Outage{testOutage("Old", 1, true), testOutage("Older", 2, false)})
	require.NoError(t, err)

	stored, err := storage.Replace(ctx, []entity.Outage{
		testOutage("Wakiso", 20, true),
		testOutage("Mukono", 21, false),
		testOutage("Jinja", 22, true),
	})
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, o := range stored {
		assert.NotZero(t, o.ID)
	}

	all, err := storage.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Wakiso", "Mukono", "Jinja"}, areas(all))

	count, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	located, err := storage.GetLocated(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Wakiso", "Jinja"}, areas(located))
}

func TestOutageStorage_ReplaceRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	storage := NewOutageStorage(newTestDB(t))

	before, err := storage.Replace(ctx, []entity.Outage{testOutage("Kampala", 20, true), testOutage("Entebbe", 20, false)})
	require.NoError(t, err)

	clash1 := testOutage("Wakiso", 21, true)
	clash1.ID = 999
	clash2 := testOutage("Mukono", 21, true)
	clash2.ID = 999

	_, err = storage.Replace(ctx, []entity.Outage{clash1, clash2})
	require.Error(t, err)

	after, err := storage.GetAll(ctx)
	require.NoError(t, err)
	// GetAll orders by schedule, Replace returns input order
	assert.ElementsMatch(t, snapshot(before), snapshot(after))
}

type outageRow struct {
	ID       uint
	Area     string
	SubAreas string
	Latitude *float64
}

func snapshot(outages []entity.Outage) []outageRow {
	rows := make([]outageRow, 0, len(outages))
	for _, o := range outages {
		rows = append(rows, outageRow{ID: o.ID, Area: o.Area, SubAreas: o.SubAreas, Latitude: o.Latitude})
	}
	return rows
}

func TestOutageStorage_ReplaceWithEmptyClears(t *testing.T) {
	ctx := context.Background()
	storage := NewOutageStorage(newTestDB(t))

	_, err := storage.Replace(ctx, []entity.Outage{testOutage("Kampala", 20, true)})
	require.NoError(t, err)

	stored, err := storage.Replace(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, stored)

	count, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOutageStorage_GetMissingReturnsNil(t *testing.T) {
	outage, err := NewOutageStorage(newTestDB(t)).Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, outage)
}

func TestSubscriberStorage_GetByEmail(t *testing.T) {
	ctx := context.Background()
	storage := NewSubscriberStorage(newTestDB(t))

	missing, err := storage.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := storage.Create(ctx, testSubscriber("amara@example.com", true, true))
	require.NoError(t, err)

	found, err := storage.GetByEmail(ctx, "amara@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	_, err = storage.Create(ctx, testSubscriber("amara@example.com", false, false))
	assert.Error(t, err)
}

func TestSubscriberStorage_GetNotifiable(t *testing.T) {
	ctx := context.Background()
	storage := NewSubscriberStorage(newTestDB(t))

	for _, s := range []*entity.Subscriber{
		testSubscriber("ready@example.com", true, true),
		testSubscriber("nolocation@example.com", true, false),
		testSubscriber("unsubscribed@example.com", false, true),
	} {
		_, err := storage.Create(ctx, s)
		require.NoError(t, err)
	}

	notifiable, err := storage.GetNotifiable(ctx)
	require.NoError(t, err)
	require.Len(t, notifiable, 1)
	assert.Equal(t, "ready@example.com", notifiable[0].Email)

	user, err := storage.GetByEmail(ctx, "nolocation@example.com")
	require.NoError(t, err)
	user.SetPoint(geo.Point{Lat: 1, Lon: 32})
	_, err = storage.Update(ctx, user)
	require.NoError(t, err)

	notifiable, err = storage.GetNotifiable(ctx)
	require.NoError(t, err)
	assert.Len(t, notifiable, 2)
}

func TestNotificationStorage_CreateManyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	subscribers := NewSubscriberStorage(db)
	ledger := NewNotificationStorage(db)

	sub, err := subscribers.Create(ctx, testSubscriber("amara@example.com", true, true))
	require.NoError(t, err)

	sentAt := time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)
	records := []entity.NotificationRecord{
		{SubscriberID: sub.ID, OutageKey: "k1", OutageID: 1, SentAt: sentAt},
		{SubscriberID: sub.ID, OutageKey: "k2", OutageID: 2, SentAt: sentAt},
	}

	created, err := ledger.CreateMany(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), created)

	created, err = ledger.CreateMany(ctx, records)
	require.NoError(t, err)
	assert.Zero(t, created)

	count, err := ledger.CountBySubscriber(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	notified, err := ledger.NotifiedKeys(ctx, sub.ID, []string{"k1", "k3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"k1": {}}, notified)

	none, err := ledger.NotifiedKeys(ctx, sub.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSubscriberStorage_DeleteCascadesToLedger(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	subscribers := NewSubscriberStorage(db)
	ledger := NewNotificationStorage(db)

	sub, err := subscribers.Create(ctx, testSubscriber("amara@example.com", true, true))
	require.NoError(t, err)
	_, err = ledger.CreateMany(ctx, []entity.NotificationRecord{
		{SubscriberID: sub.ID, OutageKey: "k1", OutageID: 1, SentAt: time.Now()},
	})
	require.NoError(t, err)

	require.NoError(t, subscribers.Delete(ctx, sub.ID))

	gone, err := subscribers.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	count, err := ledger.CountBySubscriber(ctx, sub.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRunStorage_LastRun(t *testing.T) {
	ctx := context.Background()
	storage := NewRunStorage(newTestDB(t))

	last, err := storage.LastRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	first, err := storage.Start(ctx, time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	second, err := storage.Start(ctx, time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	finished := time.Date(2026, 10, 18, 6, 5, 0, 0, time.UTC)
	second.Status = entity.RunStatusSucceeded
	second.FinishedAt = &finished
	second.OutagesStored = 4
	require.NoError(t, storage.Finish(ctx, second))

	last, err = storage.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, second.ID, last.ID)
	assert.NotEqual(t, first.ID, last.ID)
	assert.Equal(t, entity.RunStatusSucceeded, last.Status)
	assert.Equal(t, 4, last.OutagesStored)
}

func TestSession_External(t *testing.T) {
	db := newTestDB(t)
	session := ExternalSession(db)
	assert.False(t, session.Owned())

	handle, release, err := session.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, release())

	// the shared handle must survive release
	_, err = NewOutageStorage(handle).Count(context.Background())
	assert.NoError(t, err)
	_, err = NewOutageStorage(db).Count(context.Background())
	assert.NoError(t, err)
}

func TestSession_OwnedFactory(t *testing.T) {
	opened := 0
	session := OwnedSessionFactory(func(context.Context) (*gorm.DB, error) {
		opened++
		return gorm.Open(sqlite.Open("file:owned?mode=memory"), &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)})
	})
	assert.True(t, session.Owned())

	handle, release, err := session.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, opened)

	require.NoError(t, release())
	sqlDB, err := handle.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}

func TestSession_Empty(t *testing.T) {
	_, _, err := Session{}.Open(context.Background())
	assert.Error(t, err)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "postgresql://u:p@db:5432/outages", NormalizeURL("postgres://u:p@db:5432/outages"))
	assert.Equal(t, "postgresql://u:p@db:5432/outages", NormalizeURL("postgresql://u:p@db:5432/outages"))
}
