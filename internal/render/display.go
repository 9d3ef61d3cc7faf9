package render

import "github.com/couchcryptid/hazard-overlay/internal/hazard"

// Ring is an unfilled circle at a radius around a point feature. Presence
// of the pointer means the ring is drawn; absent rings were skipped because
// the underlying radius was missing or zero.
type Ring struct {
	RadiusKm float64 `json:"radius_km"`
}

// FeatureDisplay is the per-tick evaluated render state for one bound
// feature. The temporal fields are ephemeral: recomputed from the cursor on
// every tick, never persisted, and carrying no state of their own.
type FeatureDisplay struct {
	Feature hazard.Feature `json:"feature"`

	// Recency is the flash multiplier, >= 1.0.
	Recency float64 `json:"_recency"`
	// Opacity folds lifecycle fade and recency together, capped at 1.
	Opacity float64 `json:"_opacity"`
	// SizeScale inflates marker size by recency, never below 1.
	SizeScale float64 `json:"_size_scale"`
	// WaveRadiusKm is the current wavefront radius, 0 when not drawn.
	WaveRadiusKm float64 `json:"_wave_radius_km"`

	FeltRing   *Ring `json:"felt_ring,omitempty"`
	DamageRing *Ring `json:"damage_ring,omitempty"`
	WaveRing   *Ring `json:"wave_ring,omitempty"`
	// SourceRing is the tsunami-source impact-radius ring, sized by the log
	// of the downstream observation count. ImpactRing is the inner
	// high-impact ring, present only past the runup-count threshold.
	SourceRing *Ring `json:"source_ring,omitempty"`
	ImpactRing *Ring `json:"impact_ring,omitempty"`

	// MarkerSize is the unitless severity-derived marker size before the
	// rendering engine's zoom projection.
	MarkerSize float64 `json:"marker_size,omitempty"`

	Selected bool `json:"selected,omitempty"`
}
