package engine

import (
	"time"

	"github.com/couchcryptid/hazard-overlay/internal/hazard"
	"github.com/couchcryptid/hazard-overlay/internal/sequence"
)

// overlaysView is the narrow registry surface handed to the sequence
// player. Its Teardown deliberately skips the player notification the
// public ClearType performs: the player calls it during its own exit
// cleanup and must not be re-entered.
type overlaysView struct {
	e *Engine
}

// OverlaysView returns the sequence player's view of this engine.
func (e *Engine) OverlaysView() sequence.Overlays {
	return overlaysView{e: e}
}

func (v overlaysView) Features(t hazard.Type) []hazard.Feature {
	return v.e.Features(t)
}

func (v overlaysView) HasOverlay(t hazard.Type) bool {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	_, ok := v.e.overlays[t]
	return ok
}

func (v overlaysView) Render(t hazard.Type, features []hazard.Feature) bool {
	return v.e.Render(t, features)
}

func (v overlaysView) Teardown(t hazard.Type) {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	v.e.teardownLocked(t)
}

func (v overlaysView) SetTimeFilter(t hazard.Type, memberIDs []string, before time.Time) {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	if inst, ok := v.e.overlays[t]; ok {
		inst.SetTimeFilter(memberIDs, before)
	}
}

func (v overlaysView) ClearTimeFilter(t hazard.Type) {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	if inst, ok := v.e.overlays[t]; ok {
		inst.ClearTimeFilter()
	}
}
