// Package correlate implements the correlation query client: spatial and
// temporal nearby-event lookups against the catalog query service, e.g.
// "earthquakes within 150 km and 60 days of this eruption". Failures are
// non-fatal by contract; callers degrade to "no related events".
package correlate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/hazard-overlay/internal/hazard"
	"github.com/couchcryptid/hazard-overlay/internal/observability"
)

// ErrEmptyResult marks a successful lookup that matched nothing. A zero
// count is a valid upstream response; the sentinel lets callers branch with
// errors.Is without inspecting slices.
var ErrEmptyResult = errors.New("correlation query matched no events")

// Window bounds a lookup in time around a reference instant. When the
// reference event only has a coarse year, At is Jan 1 of that year.
type Window struct {
	At         time.Time
	DaysBefore int
	DaysAfter  int
}

// Finder is the lookup contract the sequence player consumes.
type Finder interface {
	FindNearby(ctx context.Context, target hazard.Type, lat, lon, radiusKm float64, w Window) ([]hazard.Feature, error)
}

// Client queries the correlation endpoint over HTTP, guarded by a circuit
// breaker so a flapping upstream cannot stall interaction handling.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]hazard.Feature]
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a correlation client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	settings := gobreaker.Settings{
		Name: "correlation",
		// Empty results are successes; only transport/protocol failures
		// should open the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrEmptyResult)
		},
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker[[]hazard.Feature](settings),
		logger:     logger,
		metrics:    metrics,
	}
}

// FindNearby looks up events of the target type within radiusKm of the
// point and inside the time window. Returns ErrEmptyResult when the
// upstream reports a zero count.
func (c *Client) FindNearby(ctx context.Context, target hazard.Type, lat, lon, radiusKm float64, w Window) ([]hazard.Feature, error) {
	params := url.Values{
		"type":        {string(target)},
		"lat":         {strconv.FormatFloat(lat, 'f', 4, 64)},
		"lon":         {strconv.FormatFloat(lon, 'f', 4, 64)},
		"radius_km":   {strconv.FormatFloat(radiusKm, 'f', 0, 64)},
		"days_before": {strconv.Itoa(w.DaysBefore)},
		"days_after":  {strconv.Itoa(w.DaysAfter)},
	}
	if !w.At.IsZero() {
		params.Set("timestamp", w.At.UTC().Format(time.RFC3339))
	}
	fullURL := c.baseURL + "/v1/nearby?" + params.Encode()

	start := time.Now()
	features, err := c.breaker.Execute(func() ([]hazard.Feature, error) {
		return c.doRequest(ctx, fullURL)
	})
	c.metrics.CorrelationDuration.WithLabelValues(string(target)).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrEmptyResult):
		c.metrics.CorrelationRequests.WithLabelValues("empty").Inc()
	case err != nil:
		c.metrics.CorrelationRequests.WithLabelValues("error").Inc()
	default:
		c.metrics.CorrelationRequests.WithLabelValues("success").Inc()
	}
	return features, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]hazard.Feature, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("correlation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("correlation API error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if envelope.Count == 0 {
		return nil, ErrEmptyResult
	}

	collection, err := hazard.ParseCollection(body)
	if err != nil {
		return nil, err
	}
	if len(collection.Features) == 0 {
		return nil, ErrEmptyResult
	}
	return collection.Features, nil
}
