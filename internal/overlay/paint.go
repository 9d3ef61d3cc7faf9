package overlay

import (
	"math"
	"time"

	"github.com/couchcryptid/hazard-overlay/internal/hazard"
	"github.com/couchcryptid/hazard-overlay/internal/render"
	"github.com/couchcryptid/hazard-overlay/internal/temporal"
)

// highImpactRunupThreshold is the downstream-observation count past which a
// tsunami source gets the inner high-impact ring.
const highImpactRunupThreshold = 100

// buildPasses constructs the render passes for a hazard type given the
// geometry kinds present in the bound data. Order matters: later passes
// draw on top. Pass ids derive from binding id and role, so rebuilding the
// same overlay produces the same ids and ApplyPass stays idempotent.
func buildPasses(t hazard.Type, bindingID string, features []hazard.Feature) []render.Pass {
	has := geomKinds(features)

	mk := func(kind render.PassKind, role render.Role) render.Pass {
		return render.Pass{
			ID:        bindingID + "/" + string(role),
			BindingID: bindingID,
			Kind:      kind,
			Role:      role,
			Style:     string(t) + "-" + string(role),
		}
	}

	var passes []render.Pass
	switch t {
	case hazard.Earthquake, hazard.Volcano, hazard.Tornado:
		passes = append(passes,
			mk(render.KindGlow, render.RoleGlow),
			mk(render.KindCircleOutline, render.RoleWaveRing),
			mk(render.KindCircleOutline, render.RoleFeltRing),
			mk(render.KindCircleOutline, render.RoleDamageRing),
			mk(render.KindCircleFill, render.RoleMarker),
		)
	case hazard.Tsunami:
		passes = append(passes,
			mk(render.KindCircleOutline, render.RoleWaveRing),
			mk(render.KindCircleOutline, render.RoleSourceRing),
			mk(render.KindCircleOutline, render.RoleImpactRing),
			mk(render.KindCircleFill, render.RoleMarker),
			mk(render.KindCircleFill, render.RoleRunupMarker),
		)
	case hazard.StormTrack:
		if has[hazard.GeomLine] {
			passes = append(passes,
				mk(render.KindLine, render.RoleTrack),
				mk(render.KindLabel, render.RoleTrackLabel),
			)
		}
		if has[hazard.GeomPoint] {
			passes = append(passes,
				mk(render.KindGlow, render.RoleGlow),
				mk(render.KindCircleFill, render.RoleMarker),
			)
		}
	case hazard.Wildfire, hazard.Flood:
		if has[hazard.GeomPolygon] {
			passes = append(passes,
				mk(render.KindPolygonFill, render.RolePerimeter),
				mk(render.KindPolygonStroke, render.RoleOutline),
			)
		}
		if has[hazard.GeomPoint] {
			// Severity-sized circle fallback when no perimeter is known yet.
			passes = append(passes, mk(render.KindCircleFill, render.RoleMarker))
		}
	}

	// Selection highlight always draws on top, matching nothing until a
	// feature is selected.
	highlight := mk(render.KindCircleFill, render.RoleHighlight)
	highlight.Filter = render.MatchNothing()
	passes = append(passes, highlight)

	return passes
}

func geomKinds(features []hazard.Feature) map[hazard.GeomKind]bool {
	has := make(map[hazard.GeomKind]bool, 3)
	for _, f := range features {
		has[f.Geometry.Kind] = true
	}
	return has
}

// evaluateDisplay computes the per-tick render state for one feature. Rings
// are attached only when their radius is present and positive; missing
// optional data skips the visual and never errors.
func evaluateDisplay(f hazard.Feature, cursor time.Time, recency temporal.RecencyPolicy, selectedID string) render.FeatureDisplay {
	r := recency.At(f.EffectiveTime(), cursor)
	base := temporal.LifecycleOpacity(f)

	d := render.FeatureDisplay{
		Feature:    f,
		Recency:    r,
		Opacity:    temporal.OpacityWithRecency(base, r),
		SizeScale:  temporal.SizeWithRecency(1, r),
		MarkerSize: markerSize(f),
		Selected:   f.ID == selectedID,
	}

	if f.FeltRadiusKm > 0 {
		d.FeltRing = &render.Ring{RadiusKm: f.FeltRadiusKm}
	}
	if f.DamageRadiusKm > 0 {
		d.DamageRing = &render.Ring{RadiusKm: f.DamageRadiusKm}
	}

	var maxRunup float64
	if f.Tsunami != nil {
		maxRunup = f.Tsunami.MaxRunupKm
	}
	if wave := temporal.WavefrontRadiusKm(f.Type, f.Magnitude, maxRunup, f.EffectiveTime(), cursor); wave > 0 {
		d.WaveRadiusKm = wave
		d.WaveRing = &render.Ring{RadiusKm: wave}
	}

	if f.Tsunami != nil && f.Tsunami.Kind == hazard.TsunamiSource {
		if ring := sourceRingKm(f.Tsunami.RunupCount); ring > 0 {
			d.SourceRing = &render.Ring{RadiusKm: ring}
		}
		if f.Tsunami.RunupCount >= highImpactRunupThreshold {
			d.ImpactRing = &render.Ring{RadiusKm: impactRingKm(f.Tsunami.RunupCount)}
		}
	}

	return d
}

// markerSize derives the unitless severity-scaled marker size. The scale
// constants match the source catalog's visual tuning; color comes from the
// external style table keyed by the pass style.
func markerSize(f hazard.Feature) float64 {
	switch f.Type {
	case hazard.Earthquake:
		return math.Max(2, f.Magnitude)
	case hazard.Volcano, hazard.Tornado:
		return f.Magnitude + 2
	case hazard.StormTrack:
		if f.Storm != nil {
			// -1 (depression) through 5 (cat 5) shifted positive.
			return float64(f.Storm.Category) + 3
		}
		return 2
	case hazard.Tsunami:
		if f.Tsunami == nil {
			return 2
		}
		if f.Tsunami.Kind == hazard.TsunamiSource {
			return 3 * math.Log10(float64(f.Tsunami.RunupCount)+1)
		}
		return math.Max(2, f.Tsunami.HeightM)
	case hazard.Wildfire, hazard.Flood:
		// Severity-sized fallback for bare points with no perimeter.
		return math.Max(2, math.Sqrt(f.Magnitude))
	default:
		return 2
	}
}

// sourceRingKm sizes the tsunami-source impact-radius ring by the log of
// the downstream observation count; monotonically increasing in the count.
func sourceRingKm(runupCount int) float64 {
	if runupCount <= 0 {
		return 0
	}
	return 25 * math.Log10(float64(runupCount)+1)
}

// impactRingKm sizes the inner high-impact ring, always smaller than the
// source ring for the same count.
func impactRingKm(runupCount int) float64 {
	return 10 * math.Log10(float64(runupCount)+1)
}
