package uedcl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Badsnus/outage-alerts/internal/adapters/metrics"
	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	"github.com/Badsnus/outage-alerts/pkg/logger"
	"github.com/Badsnus/outage-alerts/pkg/logger/types"
	"github.com/PuerkitoBio/goquery"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultURL     = "https://www.uedcl.co.ug/outage-alerts/"
	DefaultTimeout = 10 * time.Second

	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	accept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.9"
)

// RetryPolicy bounds fetch attempts. Waits grow linearly: Backoff, 2*Backoff, ...
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 5 * time.Second}
}

type Options struct {
	URL      string
	Client   *http.Client
	Timeout  time.Duration
	Policy   RetryPolicy
	Location *time.Location
	Logger   *types.Logger
	Metrics  *metrics.Metrics
}

// Fetcher downloads and parses the UEDCL outage-alert table.
type Fetcher struct {
	url      string
	client   *http.Client
	policy   RetryPolicy
	location *time.Location
	logger   *types.Logger
	metrics  *metrics.Metrics
}

func NewFetcher(opts Options) *Fetcher {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}

	def := DefaultRetryPolicy()
	if opts.Policy.MaxAttempts < 1 {
		opts.Policy.MaxAttempts = def.MaxAttempts
	}
	if opts.Policy.Backoff <= 0 {
		opts.Policy.Backoff = def.Backoff
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	return &Fetcher{
		url:      opts.URL,
		client:   opts.Client,
		policy:   opts.Policy,
		location: opts.Location,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Fetch returns the current outage records. Network errors, non-200 responses
// and a page without a table are all retried; after the last attempt the
// error is returned and no records are.
func (f *Fetcher) Fetch(ctx context.Context) ([]dto.OutageRecord, error) {
	backoff := retry.WithMaxRetries(uint64(f.policy.MaxAttempts-1), linearBackoff(f.policy.Backoff))

	var (
		records []dto.OutageRecord
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		result, err := f.fetchOnce(ctx)
		if err != nil {
			f.observe("error")
			f.logger.Warnf("fetch attempt %d/%d failed: %v", attempt, f.policy.MaxAttempts, err)
			return retry.RetryableError(err)
		}
		f.observe("success")
		records = result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch outage page after %d attempts: %w", attempt, err)
	}

	f.logger.Infof("fetched %d outage records", len(records))
	return records, nil
}

// linearBackoff waits base, 2*base, 3*base and so on. It never stops by
// itself; the caller caps the number of retries.
func linearBackoff(base time.Duration) retry.Backoff {
	var attempt int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * base, false
	})
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]dto.OutageRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", errorz.ErrUnexpectedStatus, resp.StatusCode)
	}

	return Parse(resp.Body, f.location, f.logger)
}

func (f *Fetcher) observe(outcome string) {
	if f.metrics != nil {
		f.metrics.FetchAttempts.WithLabelValues(outcome).Inc()
	}
}

// Parse reads the first table of an outage-alert page.
func Parse(r io.Reader, loc *time.Location, log *types.Logger) ([]dto.OutageRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, errorz.ErrTableNotFound
	}

	var (
		order   []string
		byPlace = make(map[string]dto.OutageRecord)
	)
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		record, ok, reason := parseRow(row.Find("td"), loc)
		if !ok {
			if reason != "" {
				log.Debugf("skipping row %d: %s", i, reason)
			}
			return
		}
		if _, seen := byPlace[record.District]; !seen {
			order = append(order, record.District)
		}
		byPlace[record.District] = record
	})

	records := make([]dto.OutageRecord, 0, len(order))
	for _, district := range order {
		records = append(records, byPlace[district])
	}
	return records, nil
}

func parseRow(cells *goquery.Selection, loc *time.Location) (dto.OutageRecord, bool, string) {
	// header rows use <th> and are dropped silently
	if cells.Length() == 0 {
		return dto.OutageRecord{}, false, ""
	}
	if cells.Length() < 4 {
		return dto.OutageRecord{}, false, fmt.Sprintf("%d cells", cells.Length())
	}

	when := strings.Fields(cells.Eq(0).Text())
	if len(when) < 2 {
		return dto.OutageRecord{}, false, fmt.Sprintf("no date and time in %q", cells.Eq(0).Text())
	}
	district := strings.TrimSpace(cells.Eq(1).Text())
	if district == "" {
		return dto.OutageRecord{}, false, "empty district"
	}

	date, err := parseDate(when[0], loc)
	if err != nil {
		return dto.OutageRecord{}, false, err.Error()
	}
	clock, err := parseClock(when[1])
	if err != nil {
		return dto.OutageRecord{}, false, err.Error()
	}

	return dto.OutageRecord{
		District: district,
		Status:   strings.TrimSpace(cells.Eq(2).Text()),
		Areas:    strippedText(cells.Eq(3)),
		Date:     date,
		Time:     clock,
	}, true, ""
}

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, s, loc); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}

var clockLayouts = []string{"15:04", "15:04:05"}

// parseClock normalizes the time token to HH:MM.
func parseClock(s string) (string, error) {
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("bad time %q", s)
}
