// Package temporal computes the time-driven paint parameters for hazard
// features: recency flash multipliers, lifecycle fade, and wavefront radius
// growth. Everything here is a pure function of (feature, cursor time) so
// overlays can recompute display state on every cursor tick.
package temporal

import (
	"math"
	"time"

	"github.com/couchcryptid/hazard-overlay/internal/hazard"
)

// RecencyPolicy controls the flash emphasis for newly arrived events: a
// multiplier that starts at Peak when the cursor sits on the event time and
// decays linearly to Floor across Window.
type RecencyPolicy struct {
	Peak   float64
	Floor  float64
	Window time.Duration
}

// DefaultRecency is the steady 1.5x flash fading over one hour.
func DefaultRecency() RecencyPolicy {
	return RecencyPolicy{Peak: 1.5, Floor: 1.0, Window: time.Hour}
}

// At returns the recency multiplier for an event at the given cursor time.
// Events in the future, older than the window, or with no usable timestamp
// get the floor. The result is monotonically non-increasing in elapsed time.
func (p RecencyPolicy) At(eventTime, cursor time.Time) float64 {
	floor := p.Floor
	if floor < 1.0 {
		floor = 1.0
	}
	if p.Peak <= floor || p.Window <= 0 || eventTime.IsZero() {
		return floor
	}
	elapsed := cursor.Sub(eventTime)
	if elapsed < 0 || elapsed >= p.Window {
		return floor
	}
	frac := 1 - float64(elapsed)/float64(p.Window)
	return floor + (p.Peak-floor)*frac
}

// OpacityWithRecency scales a base opacity by the recency multiplier,
// capped at full opacity.
func OpacityWithRecency(base, recency float64) float64 {
	return min(1.0, base*recency)
}

// SizeWithRecency inflates a base size by the recency multiplier. Unlike
// opacity the inflation is uncapped; recency never shrinks size.
func SizeWithRecency(base, recency float64) float64 {
	return base * math.Max(1.0, recency)
}

// LifecycleOpacity returns the externally attached rolling-window fade for
// a feature, defaulting to full display when absent.
func LifecycleOpacity(f hazard.Feature) float64 {
	if f.Lifecycle == nil {
		return 1.0
	}
	return min(max(*f.Lifecycle, 0), 1)
}

// propagationRateKmH is the wavefront expansion rate per hazard type.
// Hazards without a physical propagation model are absent (no wavefront).
var propagationRateKmH = map[hazard.Type]float64{
	hazard.Earthquake: 4,   // aftershock-zone creep
	hazard.Volcano:    30,  // ash/fallout drift
	hazard.Tsunami:    765, // open-ocean wave speed
}

// veiTerminalKm maps Volcanic Explosivity Index to the terminal fallout
// radius. Empirical values inherited from the source catalog with no
// documented derivation; treat as configuration pending domain review.
var veiTerminalKm = [...]float64{
	0: 1,
	1: 10,
	2: 23,
	3: 49,
	4: 105,
	5: 224,
	6: 478,
	7: 1021,
	8: 2183,
}

// WavefrontRadiusKm returns the wavefront ring radius at cursor time:
// zero at (or before) the event instant, growing at the hazard's
// propagation rate, clamped to the hazard-specific terminal radius.
// maxRunupKm is the tsunami terminal (farthest observed runup); ignored
// for other types. A zero return means the ring is not drawn.
func WavefrontRadiusKm(t hazard.Type, magnitude, maxRunupKm float64, eventTime, cursor time.Time) float64 {
	rate, ok := propagationRateKmH[t]
	if !ok || eventTime.IsZero() {
		return 0
	}
	elapsed := cursor.Sub(eventTime)
	if elapsed <= 0 {
		return 0
	}
	terminal := TerminalRadiusKm(t, magnitude, maxRunupKm)
	if terminal <= 0 {
		return 0
	}
	radius := rate * elapsed.Hours()
	return min(radius, terminal)
}

// TerminalRadiusKm returns the clamp radius for a hazard's wavefront.
func TerminalRadiusKm(t hazard.Type, magnitude, maxRunupKm float64) float64 {
	switch t {
	case hazard.Earthquake:
		return aftershockZoneKm(magnitude)
	case hazard.Volcano:
		vei := int(math.Round(magnitude))
		if vei < 0 {
			return 0
		}
		if vei >= len(veiTerminalKm) {
			vei = len(veiTerminalKm) - 1
		}
		return veiTerminalKm[vei]
	case hazard.Tsunami:
		return maxRunupKm
	default:
		return 0
	}
}

// aftershockZoneKm approximates the aftershock-zone extent from moment
// magnitude via the subsurface rupture-length relation L = 10^(0.59M - 2.44),
// doubled to cover the zone on both sides of the rupture.
func aftershockZoneKm(magnitude float64) float64 {
	if magnitude <= 0 {
		return 0
	}
	return 2 * math.Pow(10, 0.59*magnitude-2.44)
}
