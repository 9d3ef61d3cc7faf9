// Package render defines the contract between overlay instances and the
// rendering surface: pass descriptors, serializable feature filters, and the
// Sink interface a rendering engine implements. Actual rasterization,
// projection, and style/color tables live outside this module; passes carry
// style keys and radii in kilometers.
package render

import "time"

// PassKind is the drawing primitive a pass uses.
type PassKind string

const (
	KindCircleOutline PassKind = "circle-outline"
	KindCircleFill    PassKind = "circle-fill"
	KindGlow          PassKind = "glow"
	KindLine          PassKind = "line"
	KindLabel         PassKind = "label"
	KindPolygonFill   PassKind = "polygon-fill"
	KindPolygonStroke PassKind = "polygon-stroke"
)

// Role names what a pass draws within its overlay. Roles are stable within
// a binding, which keeps pass creation idempotent: re-applying a pass with
// the same binding and role replaces rather than duplicates it.
type Role string

const (
	RoleGlow        Role = "glow"
	RoleMarker      Role = "marker"
	RoleFeltRing    Role = "felt-ring"
	RoleDamageRing  Role = "damage-ring"
	RoleWaveRing    Role = "wave-ring"
	RoleHighlight   Role = "highlight"
	RoleTrack       Role = "track"
	RoleTrackLabel  Role = "track-label"
	RolePerimeter   Role = "perimeter"
	RoleOutline     Role = "outline"
	RoleSourceRing  Role = "source-ring"
	RoleImpactRing  Role = "impact-ring"
	RoleRunupMarker Role = "runup-marker"
)

// Pass describes one render pass. Later ApplyPass calls for new IDs draw on
// top of earlier ones; sinks must preserve insertion order.
type Pass struct {
	ID        string   `json:"id"`
	BindingID string   `json:"binding_id"`
	Kind      PassKind `json:"kind"`
	Role      Role     `json:"role"`
	// Style is a key into the externally owned style/color configuration.
	Style  string `json:"style"`
	Filter Filter `json:"filter"`
}

// Filter restricts which bound features a pass draws. The zero value
// matches everything. IDs and Before combine conjunctively.
type Filter struct {
	// MatchNone short-circuits to an empty selection regardless of the
	// other fields. The safe default for selection highlights.
	MatchNone bool `json:"match_none,omitempty"`
	// IDs, when non-nil, whitelists feature ids. An empty non-nil slice
	// matches nothing.
	IDs []string `json:"ids,omitempty"`
	// Before, when set, requires the feature timestamp to be at or before
	// this instant (sequence playback).
	Before time.Time `json:"before,omitzero"`
}

// MatchNothing is the selection-filter default.
func MatchNothing() Filter { return Filter{MatchNone: true} }

// MatchID matches exactly one feature id.
func MatchID(id string) Filter { return Filter{IDs: []string{id}} }

// Matches reports whether a feature with the given id and timestamp passes
// the filter.
func (f Filter) Matches(id string, ts time.Time) bool {
	if f.MatchNone {
		return false
	}
	if f.IDs != nil {
		found := false
		for _, want := range f.IDs {
			if want == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.Before.IsZero() && ts.After(f.Before) {
		return false
	}
	return true
}

// HandlerKind is an interaction handler class.
type HandlerKind string

const (
	HandlerClick HandlerKind = "click"
	HandlerHover HandlerKind = "hover"
)

// HandlerFunc receives the interacted feature id, or "" for a background
// interaction with no feature under the pointer.
type HandlerFunc func(featureID string)

// Sink is the rendering surface an overlay instance drives. Implementations
// must treat BindData for an existing binding as a data replacement and
// ApplyPass for an existing pass id as a descriptor replacement; neither may
// duplicate state.
type Sink interface {
	BindData(bindingID string, displays []FeatureDisplay)
	RemoveData(bindingID string)

	ApplyPass(p Pass)
	SetPassFilter(passID string, f Filter)
	RemovePass(passID string)

	// AddHandler registers an interaction handler scoped to a binding and
	// returns its id for removal by reference on teardown.
	AddHandler(bindingID string, kind HandlerKind, fn HandlerFunc) string
	RemoveHandler(handlerID string)
}
