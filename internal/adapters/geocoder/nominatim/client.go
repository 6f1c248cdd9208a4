package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
	"golang.org/x/time/rate"
)

const (
	DefaultURL       = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "outage-alerts/1.0"
	DefaultCountry   = "Uganda"
	DefaultTimeout   = 10 * time.Second
	DefaultDelay     = time.Second
)

type Options struct {
	URL       string
	UserAgent string
	Country   string
	Timeout   time.Duration
	// Delay is the minimum gap between two upstream calls. Zero or less
	// falls back to DefaultDelay; the public instance allows one call a second.
	Delay  time.Duration
	Client *http.Client
}

// Client resolves place names with the Nominatim search API.
type Client struct {
	baseURL    string
	userAgent  string
	country    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(opts Options) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.URL, "/"),
		userAgent:  opts.UserAgent,
		country:    opts.Country,
		httpClient: opts.Client,
		limiter:    rate.NewLimiter(rate.Every(opts.Delay), 1),
	}
}

// Search returns the best match for area. errorz.ErrNoGeocodeMatch is
// returned when Nominatim knows no such place.
func (c *Client) Search(ctx context.Context, area string) (geo.Point, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return geo.Point{}, fmt.Errorf("wait for rate limit: %w", err)
	}

	query := strings.TrimSpace(area)
	if c.country != "" {
		query = fmt.Sprintf("%s, %s", query, c.country)
	}
	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return geo.Point{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return geo.Point{}, fmt.Errorf("%w: %d: %s", errorz.ErrUnexpectedStatus, resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return geo.Point{}, fmt.Errorf("decode response: %w", err)
	}
	if len(places) == 0 {
		return geo.Point{}, fmt.Errorf("%w: %q", errorz.ErrNoGeocodeMatch, query)
	}

	return places[0].point()
}

// Nominatim sends coordinates as strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p place) point() (geo.Point, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse longitude %q: %w", p.Lon, err)
	}
	return geo.Point{Lat: lat, Lon: lon}, nil
}
