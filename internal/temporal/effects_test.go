package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/hazard-overlay/internal/hazard"
)

var t0 = time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)

func TestRecencyPolicy(t *testing.T) {
	p := DefaultRecency()

	t.Run("peaks at event time", func(t *testing.T) {
		assert.InDelta(t, 1.5, p.At(t0, t0), 1e-9)
	})

	t.Run("monotonically non-increasing", func(t *testing.T) {
		prev := p.At(t0, t0)
		for _, dt := range []time.Duration{time.Minute, 10 * time.Minute, 30 * time.Minute, 59 * time.Minute, time.Hour, 2 * time.Hour} {
			cur := p.At(t0, t0.Add(dt))
			assert.LessOrEqual(t, cur, prev, "recency must not grow with elapsed time (dt=%s)", dt)
			prev = cur
		}
	})

	t.Run("floor after window", func(t *testing.T) {
		assert.Equal(t, 1.0, p.At(t0, t0.Add(time.Hour)))
		assert.Equal(t, 1.0, p.At(t0, t0.Add(24*time.Hour)))
	})

	t.Run("floor for future events", func(t *testing.T) {
		assert.Equal(t, 1.0, p.At(t0, t0.Add(-time.Minute)))
	})

	t.Run("floor for events without timestamps", func(t *testing.T) {
		assert.Equal(t, 1.0, p.At(time.Time{}, t0))
	})

	t.Run("degenerate policies collapse to floor", func(t *testing.T) {
		assert.Equal(t, 1.0, RecencyPolicy{Peak: 0.5, Window: time.Hour}.At(t0, t0))
		assert.Equal(t, 1.0, RecencyPolicy{Peak: 2, Window: 0}.At(t0, t0))
	})
}

func TestRecencyScaling(t *testing.T) {
	t.Run("opacity is capped at 1", func(t *testing.T) {
		assert.Equal(t, 1.0, OpacityWithRecency(0.9, 1.5))
		assert.InDelta(t, 0.45, OpacityWithRecency(0.3, 1.5), 1e-9)
	})

	t.Run("size is inflated but never shrunk", func(t *testing.T) {
		assert.InDelta(t, 7.5, SizeWithRecency(5, 1.5), 1e-9)
		assert.Equal(t, 5.0, SizeWithRecency(5, 0.2))
	})
}

func TestLifecycleOpacity(t *testing.T) {
	t.Run("defaults to full display", func(t *testing.T) {
		assert.Equal(t, 1.0, LifecycleOpacity(hazard.Feature{}))
	})

	t.Run("uses attached fade", func(t *testing.T) {
		v := 0.35
		assert.Equal(t, 0.35, LifecycleOpacity(hazard.Feature{Lifecycle: &v}))
	})

	t.Run("clamps out-of-range fades", func(t *testing.T) {
		hi, lo := 3.0, -1.0
		assert.Equal(t, 1.0, LifecycleOpacity(hazard.Feature{Lifecycle: &hi}))
		assert.Equal(t, 0.0, LifecycleOpacity(hazard.Feature{Lifecycle: &lo}))
	})
}

func TestWavefrontRadiusKm(t *testing.T) {
	t.Run("zero at and before event time", func(t *testing.T) {
		assert.Equal(t, 0.0, WavefrontRadiusKm(hazard.Earthquake, 6.5, 0, t0, t0))
		assert.Equal(t, 0.0, WavefrontRadiusKm(hazard.Earthquake, 6.5, 0, t0, t0.Add(-time.Hour)))
	})

	t.Run("non-decreasing as the cursor advances", func(t *testing.T) {
		prev := 0.0
		for hours := 1; hours <= 48; hours *= 2 {
			r := WavefrontRadiusKm(hazard.Earthquake, 6.5, 0, t0, t0.Add(time.Duration(hours)*time.Hour))
			assert.GreaterOrEqual(t, r, prev)
			prev = r
		}
	})

	t.Run("clamped at the terminal radius", func(t *testing.T) {
		terminal := TerminalRadiusKm(hazard.Earthquake, 6.5, 0)
		assert.Greater(t, terminal, 0.0)
		r := WavefrontRadiusKm(hazard.Earthquake, 6.5, 0, t0, t0.Add(1000*time.Hour))
		assert.Equal(t, terminal, r)
	})

	t.Run("tsunami terminal is the max observed runup", func(t *testing.T) {
		r := WavefrontRadiusKm(hazard.Tsunami, 9.0, 120, t0, t0.Add(48*time.Hour))
		assert.Equal(t, 120.0, r)
	})

	t.Run("tsunami travels at open-ocean speed early on", func(t *testing.T) {
		r := WavefrontRadiusKm(hazard.Tsunami, 9.0, 8000, t0, t0.Add(time.Hour))
		assert.InDelta(t, 765, r, 1e-9)
	})

	t.Run("no wavefront for hazards without propagation", func(t *testing.T) {
		assert.Equal(t, 0.0, WavefrontRadiusKm(hazard.Tornado, 4, 0, t0, t0.Add(time.Hour)))
		assert.Equal(t, 0.0, WavefrontRadiusKm(hazard.Wildfire, 500, 0, t0, t0.Add(time.Hour)))
	})

	t.Run("no wavefront without an event time", func(t *testing.T) {
		assert.Equal(t, 0.0, WavefrontRadiusKm(hazard.Earthquake, 6.5, 0, time.Time{}, t0))
	})
}

func TestTerminalRadiusKm(t *testing.T) {
	t.Run("volcano VEI table", func(t *testing.T) {
		assert.Equal(t, 23.0, TerminalRadiusKm(hazard.Volcano, 2, 0))
		assert.Equal(t, 105.0, TerminalRadiusKm(hazard.Volcano, 4, 0))
		assert.Equal(t, 478.0, TerminalRadiusKm(hazard.Volcano, 6, 0))
		assert.Equal(t, 1021.0, TerminalRadiusKm(hazard.Volcano, 7, 0))
	})

	t.Run("VEI beyond the table clamps to the top entry", func(t *testing.T) {
		assert.Equal(t, 2183.0, TerminalRadiusKm(hazard.Volcano, 12, 0))
	})

	t.Run("aftershock zone grows with magnitude", func(t *testing.T) {
		m5 := TerminalRadiusKm(hazard.Earthquake, 5, 0)
		m7 := TerminalRadiusKm(hazard.Earthquake, 7, 0)
		assert.Greater(t, m7, m5)
		assert.Equal(t, 0.0, TerminalRadiusKm(hazard.Earthquake, 0, 0))
	})
}
