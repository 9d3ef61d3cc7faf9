// Package engine hosts the overlay dispatcher: the single entry point that
// routes feature collections, selection, and sequence requests to per-type
// overlay instances. All registry state lives on the Engine value; there
// are no package-level singletons, so tests and embedders can run multiple
// independent engines.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hazard-overlay/internal/hazard"
	"github.com/couchcryptid/hazard-overlay/internal/observability"
	"github.com/couchcryptid/hazard-overlay/internal/overlay"
	"github.com/couchcryptid/hazard-overlay/internal/render"
	"github.com/couchcryptid/hazard-overlay/internal/sequence"
	"github.com/couchcryptid/hazard-overlay/internal/temporal"
	"github.com/couchcryptid/hazard-overlay/internal/timecursor"
)

// Engine owns the hazard-type → overlay-instance registry and coordinates
// selection and sequence playback across instances.
//
// Lock ordering: the engine lock is the innermost. Engine methods never
// call into the sequence player while holding it; the player's Overlays
// view locks the engine per call.
type Engine struct {
	sink    render.Sink
	recency temporal.RecencyPolicy
	cursor  timecursor.Cursor
	logger  *slog.Logger
	metrics *observability.Metrics

	mu        sync.Mutex
	overlays  map[hazard.Type]*overlay.Instance
	selection selectionState

	player      *sequence.Player
	unsubCursor func()
	ready       atomic.Bool
}

// New creates an engine rendering into sink, with displays animated against
// the given cursor. Call AttachPlayer before requesting sequences.
func New(sink render.Sink, recency temporal.RecencyPolicy, cursor timecursor.Cursor, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	e := &Engine{
		sink:     sink,
		recency:  recency,
		cursor:   cursor,
		logger:   logger,
		metrics:  metrics,
		overlays: make(map[hazard.Type]*overlay.Instance),
	}
	if cursor != nil {
		e.unsubCursor = cursor.Subscribe(e.onTick)
	}
	return e
}

// AttachPlayer wires the sequence player. The player is constructed against
// this engine's Overlays view, so attachment happens after New.
func (e *Engine) AttachPlayer(p *sequence.Player) {
	e.player = p
}

// Close unsubscribes from the cursor and tears down all overlays.
func (e *Engine) Close() {
	if e.unsubCursor != nil {
		e.unsubCursor()
		e.unsubCursor = nil
	}
	e.ClearAll()
}

// CheckReadiness reports nil once at least one overlay render has occurred.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errNotReady
	}
	return nil
}

// Render routes a feature collection to the overlay instance for its type,
// creating the instance on first use. Empty input tears the type down:
// "no data" means "no overlay", never an empty shell. Returns whether a
// draw occurred.
func (e *Engine) Render(t hazard.Type, features []hazard.Feature) bool {
	if !t.Valid() {
		e.logger.Warn("render rejected", "hazard_type", t, "reason", "unknown type")
		return false
	}

	if len(features) == 0 {
		e.ClearType(t)
		return false
	}

	e.mu.Lock()
	inst, created := e.instanceLocked(t)
	drew := inst.Render(features, e.cursorNow(), e.clickHandler(t))
	if created {
		e.metrics.OverlaysActive.Set(float64(len(e.overlays)))
		e.metrics.Renders.WithLabelValues(string(t), "create").Inc()
	} else {
		e.metrics.Renders.WithLabelValues(string(t), "update").Inc()
	}
	e.mu.Unlock()

	if drew {
		e.ready.Store(true)
	}
	return drew
}

// RequestSequence dispatches sequence playback for the event, fire and
// forget: a missing feature or resolution failure is logged and degraded,
// never surfaced. Interaction must not crash on a failed lookup.
func (e *Engine) RequestSequence(ctx context.Context, t hazard.Type, eventID string) {
	e.mu.Lock()
	var seed *hazard.Feature
	if inst, ok := e.overlays[t]; ok {
		for _, f := range inst.Features() {
			if f.ID == eventID {
				cp := f
				seed = &cp
				break
			}
		}
	}
	e.mu.Unlock()

	if seed == nil {
		e.logger.Warn("sequence request ignored", "hazard_type", t, "event_id", eventID, "reason", "no bound feature")
		return
	}
	if e.player == nil {
		e.logger.Warn("sequence request ignored", "hazard_type", t, "event_id", eventID, "reason", "no player attached")
		return
	}
	e.player.Start(ctx, *seed)
}

// ExitSequence ends any active sequence playback.
func (e *Engine) ExitSequence() {
	if e.player != nil {
		e.player.Exit()
	}
}

// ClearType tears down one hazard type's overlay, releasing its selection
// and cancelling any sequence that referenced it. Idempotent.
func (e *Engine) ClearType(t hazard.Type) {
	e.mu.Lock()
	torn := e.teardownLocked(t)
	e.mu.Unlock()

	if torn {
		e.metrics.Renders.WithLabelValues(string(t), "teardown").Inc()
		if e.player != nil {
			e.player.HandleTeardown(t)
		}
	}
}

// ClearAll tears down every overlay instance. Idempotent.
func (e *Engine) ClearAll() {
	if e.player != nil {
		e.player.Exit()
	}

	e.mu.Lock()
	for t := range e.overlays {
		e.teardownLocked(t)
	}
	e.mu.Unlock()
}

// Features returns the bound features for a type, nil when absent.
func (e *Engine) Features(t hazard.Type) []hazard.Feature {
	e.mu.Lock()
	defer e.mu.Unlock()
	if inst, ok := e.overlays[t]; ok {
		return inst.Features()
	}
	return nil
}

// ActiveTypes returns the hazard types with live overlays.
func (e *Engine) ActiveTypes() []hazard.Type {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]hazard.Type, 0, len(e.overlays))
	for t := range e.overlays {
		types = append(types, t)
	}
	return types
}

// instanceLocked returns the instance for t, creating it when absent.
func (e *Engine) instanceLocked(t hazard.Type) (*overlay.Instance, bool) {
	if inst, ok := e.overlays[t]; ok {
		return inst, false
	}
	inst := overlay.New(t, e.sink, e.recency, e.logger)
	e.overlays[t] = inst
	return inst, true
}

// teardownLocked clears an instance and its selection. Reports whether an
// overlay existed.
func (e *Engine) teardownLocked(t hazard.Type) bool {
	inst, ok := e.overlays[t]
	if !ok {
		return false
	}
	inst.Clear()
	delete(e.overlays, t)
	e.metrics.OverlaysActive.Set(float64(len(e.overlays)))

	// Teardown must not leave a stale selection filter behind.
	if e.selection.active && e.selection.hazardType == t {
		e.selection = selectionState{}
		e.metrics.SelectionChanges.Inc()
	}
	return true
}

// clickHandler builds the interaction handler registered with a binding: a
// feature click selects it, a background click deselects.
func (e *Engine) clickHandler(t hazard.Type) render.HandlerFunc {
	return func(featureID string) {
		if featureID == "" {
			e.Deselect()
			return
		}
		e.Select(t, featureID)
	}
}

func (e *Engine) cursorNow() time.Time {
	if e.cursor == nil {
		return time.Time{}
	}
	return e.cursor.Current()
}

// onTick fans the cursor tick out to every overlay instance so ephemeral
// display fields are recomputed.
func (e *Engine) onTick(cursor time.Time) {
	start := time.Now()
	e.mu.Lock()
	for _, inst := range e.overlays {
		inst.OnTick(cursor)
	}
	e.mu.Unlock()
	e.metrics.TickDuration.Observe(time.Since(start).Seconds())
}
