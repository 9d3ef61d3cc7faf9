package correlate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-overlay/internal/hazard"
	"github.com/couchcryptid/hazard-overlay/internal/observability"
)

var (
	testLogger = slog.New(slog.DiscardHandler)
	t0         = time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second, testLogger, observability.NewMetricsForTesting())
}

func TestClientFindNearby(t *testing.T) {
	t.Run("returns parsed features", func(t *testing.T) {
		var gotQuery map[string]string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/nearby", r.URL.Path)
			gotQuery = map[string]string{}
			for k := range r.URL.Query() {
				gotQuery[k] = r.URL.Query().Get(k)
			}
			fmt.Fprint(w, `{
				"count": 1,
				"hazard_type": "volcano",
				"features": [{
					"id": "vo1",
					"geometry": {"type": "Point", "coordinates": [14.99, 37.75]},
					"properties": {"vei": 4, "timestamp": "2024-04-20T00:00:00Z"}
				}]
			}`)
		})

		features, err := client.FindNearby(context.Background(), hazard.Volcano, 37.17, 37.03, 150, Window{At: t0, DaysBefore: 60})
		require.NoError(t, err)
		require.Len(t, features, 1)
		assert.Equal(t, "vo1", features[0].ID)
		assert.Equal(t, hazard.Volcano, features[0].Type)
		assert.Equal(t, 4.0, features[0].Magnitude)

		assert.Equal(t, "volcano", gotQuery["type"])
		assert.Equal(t, "37.1700", gotQuery["lat"])
		assert.Equal(t, "37.0300", gotQuery["lon"])
		assert.Equal(t, "150", gotQuery["radius_km"])
		assert.Equal(t, "60", gotQuery["days_before"])
		assert.Equal(t, "0", gotQuery["days_after"])
		assert.Equal(t, "2024-04-26T12:00:00Z", gotQuery["timestamp"])
	})

	t.Run("zero count maps to the empty sentinel", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"count": 0, "hazard_type": "volcano", "features": []}`)
		})

		features, err := client.FindNearby(context.Background(), hazard.Volcano, 0, 0, 150, Window{At: t0})
		require.ErrorIs(t, err, ErrEmptyResult)
		assert.Empty(t, features)
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})

		_, err := client.FindNearby(context.Background(), hazard.Volcano, 0, 0, 150, Window{At: t0})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrEmptyResult)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("unreachable upstream is an error", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", 100*time.Millisecond, testLogger, observability.NewMetricsForTesting())
		_, err := client.FindNearby(context.Background(), hazard.Volcano, 0, 0, 150, Window{At: t0})
		require.Error(t, err)
	})

	t.Run("empty results never open the breaker", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"count": 0, "hazard_type": "volcano", "features": []}`)
		})

		for i := 0; i < 20; i++ {
			_, err := client.FindNearby(context.Background(), hazard.Volcano, 0, 0, 150, Window{At: t0})
			require.ErrorIs(t, err, ErrEmptyResult, "request %d", i)
		}
	})
}
