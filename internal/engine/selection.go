package engine

import (
	"errors"

	"github.com/couchcryptid/hazard-overlay/internal/hazard"
)

var errNotReady = errors.New("engine has not rendered any overlay yet")

// selectionState is the single system-wide selection: at most one
// (hazard type, event id) pair.
type selectionState struct {
	active     bool
	hazardType hazard.Type
	eventID    string
}

// Select makes (t, eventID) the active selection and updates the owning
// overlay's highlight filter. A selection held by a different hazard type
// is cleared first; the system never highlights two features. Selecting
// an id with no bound overlay is a no-op; an id that is bound but unknown
// simply highlights nothing (match-nothing is the safe default).
func (e *Engine) Select(t hazard.Type, eventID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.overlays[t]
	if !ok || eventID == "" {
		return
	}

	if e.selection.active && e.selection.hazardType != t {
		if prev, ok := e.overlays[e.selection.hazardType]; ok {
			prev.Select("")
		}
	}

	e.selection = selectionState{active: true, hazardType: t, eventID: eventID}
	inst.Select(eventID)
	e.metrics.SelectionChanges.Inc()
}

// Deselect clears the highlight on whichever type holds the selection.
// Idempotent.
func (e *Engine) Deselect() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.selection.active {
		return
	}
	if inst, ok := e.overlays[e.selection.hazardType]; ok {
		inst.Select("")
	}
	e.selection = selectionState{}
	e.metrics.SelectionChanges.Inc()
}

// Selection returns the active selection, if any.
func (e *Engine) Selection() (hazard.Type, string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.hazardType, e.selection.eventID, e.selection.active
}
