package hazard

import "time"

// Type identifies a natural-hazard category. The set matches the upstream
// catalog producers; unknown values are rejected at ingestion.
type Type string

const (
	Earthquake Type = "earthquake"
	Volcano    Type = "volcano"
	Tsunami    Type = "tsunami"
	Tornado    Type = "tornado"
	Wildfire   Type = "wildfire"
	Flood      Type = "flood"
	StormTrack Type = "storm_track"
)

// Valid reports whether t is a known hazard type.
func (t Type) Valid() bool {
	switch t {
	case Earthquake, Volcano, Tsunami, Tornado, Wildfire, Flood, StormTrack:
		return true
	}
	return false
}

// GeomKind is the geometry class of a feature, fixed at creation.
type GeomKind string

const (
	GeomPoint   GeomKind = "point"
	GeomLine    GeomKind = "line"
	GeomPolygon GeomKind = "polygon"
)

// Geometry holds a point, line, or polygon in lon/lat order (WGS-84).
// Only the field matching Kind is populated.
type Geometry struct {
	Kind  GeomKind       `json:"kind"`
	Lon   float64        `json:"lon,omitempty"`
	Lat   float64        `json:"lat,omitempty"`
	Path  [][2]float64   `json:"path,omitempty"`
	Rings [][][2]float64 `json:"rings,omitempty"`
}

// TsunamiKind distinguishes the two feature subtypes a tsunami binding
// carries. Resolved once at ingestion; paint logic switches on this tag
// instead of re-checking a boolean flag per expression.
type TsunamiKind string

const (
	TsunamiSource TsunamiKind = "source"
	TsunamiRunup  TsunamiKind = "runup"
)

// TsunamiInfo is present only on tsunami features.
type TsunamiInfo struct {
	Kind TsunamiKind `json:"kind"`
	// RunupCount is the number of downstream runup/observation records tied
	// to a source. Sizes the source marker on a log scale.
	RunupCount int `json:"runup_count,omitempty"`
	// MaxRunupKm is the farthest observed runup distance from the source.
	// Acts as the wavefront terminal radius.
	MaxRunupKm float64 `json:"max_runup_km,omitempty"`
	// HeightM is the local wave height for runup observations.
	HeightM float64 `json:"height_m,omitempty"`
}

// StormInfo is present only on storm-track features.
type StormInfo struct {
	// Category is the Saffir-Simpson-style ordinal: -1 tropical depression,
	// 0 tropical storm, 1-5 hurricane categories.
	Category int    `json:"category"`
	Name     string `json:"name,omitempty"`
}

// Feature is one hazard occurrence as bound into an overlay.
//
// Optional numeric fields use zero as "absent": a felt or damage radius of
// zero or less means the ring is simply not drawn. Lifecycle is a pointer
// because 0 is a meaningful fade value distinct from "not supplied".
type Feature struct {
	ID       string   `json:"event_id"`
	Type     Type     `json:"hazard_type"`
	Geometry Geometry `json:"geometry"`

	// Time is the event instant. Zero when only a coarse Year is known
	// (point-only historical estimates).
	Time time.Time `json:"timestamp,omitzero"`
	Year int       `json:"year,omitempty"`

	// Magnitude is the hazard-specific scalar: moment magnitude, VEI,
	// EF-scale ordinal, burned/flooded area, storm wind speed.
	Magnitude float64 `json:"magnitude"`

	FeltRadiusKm   float64 `json:"felt_radius_km,omitempty"`
	DamageRadiusKm float64 `json:"damage_radius_km,omitempty"`

	// SequenceID groups related events: aftershocks of one mainshock, one
	// storm system's tornado family. ParentID is the back-reference to the
	// triggering event (aftershock → mainshock, runup → source).
	SequenceID string `json:"sequence_id,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`

	// Lifecycle is the externally supplied [0,1] fade for rolling
	// time-window displays. Nil means full display (1.0).
	Lifecycle *float64 `json:"_opacity,omitempty"`

	Tsunami *TsunamiInfo `json:"tsunami,omitempty"`
	Storm   *StormInfo   `json:"storm,omitempty"`
}

// EffectiveTime returns the event instant, substituting midnight Jan 1 of
// Year (UTC) when only the year is known, and the zero time when neither
// is present.
func (f Feature) EffectiveTime() time.Time {
	if !f.Time.IsZero() {
		return f.Time
	}
	if f.Year != 0 {
		return time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}

// Collection is a set of features for one hazard type, the unit handed to
// the dispatcher by ingest adapters.
type Collection struct {
	Type     Type      `json:"hazard_type"`
	Features []Feature `json:"features"`
}
