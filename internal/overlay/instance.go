// Package overlay manages the visual bindings for one hazard type: a data
// binding, an ordered set of render passes, selection and playback filters,
// and interaction handlers. Instances are owned exclusively by the engine's
// dispatcher; they never share state with each other.
package overlay

import (
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-overlay/internal/hazard"
	"github.com/couchcryptid/hazard-overlay/internal/render"
	"github.com/couchcryptid/hazard-overlay/internal/temporal"
)

// Instance is the overlay for a single hazard type.
//
// Instances are not safe for concurrent use; the owning engine serializes
// access.
type Instance struct {
	hazardType hazard.Type
	sink       render.Sink
	recency    temporal.RecencyPolicy
	logger     *slog.Logger

	bindingID  string
	passIDs    []string
	handlerIDs []string

	features   []hazard.Feature
	selectedID string
	timeFilter *render.Filter
	lastCursor time.Time
	bound      bool
}

// New creates an unbound instance.
func New(t hazard.Type, sink render.Sink, recency temporal.RecencyPolicy, logger *slog.Logger) *Instance {
	return &Instance{
		hazardType: t,
		sink:       sink,
		recency:    recency,
		logger:     logger.With("hazard_type", t),
	}
}

// HazardType returns the type this instance renders.
func (i *Instance) HazardType() hazard.Type { return i.hazardType }

// Bound reports whether a data binding currently exists.
func (i *Instance) Bound() bool { return i.bound }

// BindingID returns the opaque binding handle, or "" when unbound.
func (i *Instance) BindingID() string {
	if !i.bound {
		return ""
	}
	return i.bindingID
}

// Features returns the currently bound features.
func (i *Instance) Features() []hazard.Feature { return i.features }

// SelectedID returns the highlighted feature id, or "".
func (i *Instance) SelectedID() string { return i.selectedID }

// Render binds the features, constructing the binding and render passes on
// first call. Subsequent calls replace the bound data only: pass creation
// is skipped, so rapid re-renders cannot flicker or duplicate passes.
// Returns whether a draw occurred.
func (i *Instance) Render(features []hazard.Feature, cursor time.Time, onClick render.HandlerFunc) bool {
	if len(features) == 0 {
		return false
	}

	if !i.bound {
		i.bindingID = "overlay-" + string(i.hazardType)
		i.bound = true
		for _, p := range buildPasses(i.hazardType, i.bindingID, features) {
			i.sink.ApplyPass(p)
			i.passIDs = append(i.passIDs, p.ID)
		}
		if onClick != nil {
			id := i.sink.AddHandler(i.bindingID, render.HandlerClick, onClick)
			i.handlerIDs = append(i.handlerIDs, id)
		}
		i.logger.Debug("overlay bound", "passes", len(i.passIDs), "features", len(features))
	}

	i.Update(features, cursor)
	return true
}

// Update replaces the bound data only. Cheap enough for the per-tick
// re-render loop; never touches pass or handler state.
func (i *Instance) Update(features []hazard.Feature, cursor time.Time) {
	if !i.bound {
		return
	}
	i.features = features
	i.lastCursor = cursor
	i.push(cursor)
}

// OnTick recomputes every feature's ephemeral display fields against the
// new cursor time and pushes them to the sink.
func (i *Instance) OnTick(cursor time.Time) {
	if !i.bound {
		return
	}
	i.lastCursor = cursor
	i.push(cursor)
}

// Select narrows the highlight filter to exactly one feature id, or to
// nothing when id is empty. Selecting an id with no bound match is a safe
// no-op visually: the filter simply matches nothing.
func (i *Instance) Select(id string) {
	if !i.bound {
		return
	}
	i.selectedID = id
	filter := render.MatchNothing()
	if id != "" {
		filter = render.MatchID(id)
	}
	i.sink.SetPassFilter(i.bindingID+"/"+string(render.RoleHighlight), filter)
	i.push(i.lastCursor)
}

// SetTimeFilter restricts every non-highlight pass to sequence members with
// a timestamp at or before the cursor, producing the appearing-one-by-one
// playback effect.
func (i *Instance) SetTimeFilter(memberIDs []string, before time.Time) {
	if !i.bound {
		return
	}
	f := render.Filter{IDs: memberIDs, Before: before}
	i.timeFilter = &f
	i.applyBaseFilters()
}

// ClearTimeFilter restores the full display after sequence playback.
func (i *Instance) ClearTimeFilter() {
	if !i.bound || i.timeFilter == nil {
		return
	}
	i.timeFilter = nil
	i.applyBaseFilters()
}

func (i *Instance) applyBaseFilters() {
	var f render.Filter
	if i.timeFilter != nil {
		f = *i.timeFilter
	}
	highlightID := i.bindingID + "/" + string(render.RoleHighlight)
	for _, passID := range i.passIDs {
		if passID == highlightID {
			continue
		}
		i.sink.SetPassFilter(passID, f)
	}
}

// Clear removes all render passes, the data binding, and the interaction
// handlers by reference, returning the instance to the unbound state.
// Idempotent.
func (i *Instance) Clear() {
	if !i.bound {
		return
	}
	for _, id := range i.handlerIDs {
		i.sink.RemoveHandler(id)
	}
	for _, id := range i.passIDs {
		i.sink.RemovePass(id)
	}
	i.sink.RemoveData(i.bindingID)

	i.handlerIDs = nil
	i.passIDs = nil
	i.features = nil
	i.selectedID = ""
	i.timeFilter = nil
	i.bound = false
	i.logger.Debug("overlay cleared")
}

func (i *Instance) push(cursor time.Time) {
	displays := make([]render.FeatureDisplay, len(i.features))
	for idx, f := range i.features {
		displays[idx] = evaluateDisplay(f, cursor, i.recency, i.selectedID)
	}
	i.sink.BindData(i.bindingID, displays)
}
