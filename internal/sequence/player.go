// Package sequence detects and plays back multi-event families: aftershocks
// of a mainshock, one storm system's tornado paths, eruption-triggered
// earthquake clusters. Playback drives overlay time filters from a shared
// time cursor so members appear one by one.
package sequence

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/hazard-overlay/internal/correlate"
	"github.com/couchcryptid/hazard-overlay/internal/hazard"
	"github.com/couchcryptid/hazard-overlay/internal/observability"
	"github.com/couchcryptid/hazard-overlay/internal/timecursor"
)

// State is the player's lifecycle position.
type State string

const (
	StateIdle      State = "idle"
	StateResolving State = "resolving"
	StatePlaying   State = "playing"
	StateExiting   State = "exiting"
)

// EventKind classifies outbound player signals.
type EventKind string

const (
	EventResolved  EventKind = "resolved"
	EventNoRelated EventKind = "no_related_events"
	EventExited    EventKind = "exited"
)

// Event is an outbound signal for presentation layers.
type Event struct {
	Kind    EventKind
	SeedID  string
	Members int
}

// Overlays is the narrow view of the dispatcher the player drives. The
// implementation serializes access; the player never reaches the registry
// directly.
type Overlays interface {
	// Features returns the bound features for a type, nil when no overlay.
	Features(t hazard.Type) []hazard.Feature
	// HasOverlay reports whether the type currently has a binding.
	HasOverlay(t hazard.Type) bool
	// Render binds features for a type, creating the overlay if absent.
	Render(t hazard.Type, features []hazard.Feature) bool
	// Teardown removes a type's overlay entirely.
	Teardown(t hazard.Type)
	// SetTimeFilter restricts a type's display to the member ids with
	// timestamps at or before the cursor.
	SetTimeFilter(t hazard.Type, memberIDs []string, before time.Time)
	// ClearTimeFilter restores the type's full display.
	ClearTimeFilter(t hazard.Type)
}

// crossRule describes the correlation lookup used when a seed has no
// intra-type sequence: which hazard type to search, how far, and how many
// days around the seed instant.
type crossRule struct {
	target     hazard.Type
	radiusKm   float64
	daysBefore int
	daysAfter  int
}

// crossRules is configuration, mirroring the source catalog's pairings:
// quakes look back for a triggering eruption, eruptions look forward for
// triggered quakes, tsunami sources look back for the generating quake.
var crossRules = map[hazard.Type]crossRule{
	hazard.Earthquake: {target: hazard.Volcano, radiusKm: 150, daysBefore: 60},
	hazard.Volcano:    {target: hazard.Earthquake, radiusKm: 150, daysAfter: 60},
	hazard.Tsunami:    {target: hazard.Earthquake, radiusKm: 500, daysBefore: 2},
}

// Sequence is the resolved, time-ordered member set.
type Sequence struct {
	SeedID   string
	SeedType hazard.Type
	// MemberIDs is sorted ascending by member timestamp.
	MemberIDs []string
	MinTime   time.Time
	MaxTime   time.Time
	// Static marks degenerate playback: a single member, or all members
	// sharing one timestamp. The full set renders at once.
	Static bool

	// membersByType drives per-overlay time filters; cross-type sequences
	// span two overlays.
	membersByType map[hazard.Type][]string
	// injected is the overlay type this sequence created itself (from
	// correlation results) and must tear down on exit.
	injected hazard.Type
}

// Player is the sequence state machine. At most one sequence is active at a
// time; starting a new one force-exits the previous.
//
// Lock ordering: the player lock is always taken before any Overlays call
// (which may lock the engine). The engine must never call into the player
// while holding its own lock.
type Player struct {
	overlays Overlays
	finder   correlate.Finder   // nil disables cross-type resolution
	cursor   timecursor.Control // nil forces the static fallback
	notify   func(Event)        // nil is allowed
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu          sync.Mutex
	state       State
	seq         *Sequence
	gen         uint64 // incremented on every start/exit; stale async results are discarded
	unsubscribe func()

	// resolvingType and resolvingSeedID identify the seed while a
	// correlation query is in flight. Tearing down the seed's overlay
	// during RESOLVING must cancel the query; there is no seq yet to
	// carry that dependency.
	resolvingType   hazard.Type
	resolvingSeedID string
}

// NewPlayer creates an idle player. finder and cursor may be nil.
func NewPlayer(overlays Overlays, finder correlate.Finder, cursor timecursor.Control, notify func(Event), logger *slog.Logger, metrics *observability.Metrics) *Player {
	return &Player{
		overlays: overlays,
		finder:   finder,
		cursor:   cursor,
		notify:   notify,
		logger:   logger,
		metrics:  metrics,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Active returns a copy of the active sequence, or nil when idle.
func (p *Player) Active() *Sequence {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq == nil {
		return nil
	}
	cp := *p.seq
	cp.MemberIDs = append([]string(nil), p.seq.MemberIDs...)
	return &cp
}

// Start resolves and plays the sequence for the seed event. Any previous
// sequence is force-exited first. Errors never propagate: resolution
// failure degrades to a "no related events" signal and the idle state.
func (p *Player) Start(ctx context.Context, seed hazard.Feature) {
	p.mu.Lock()

	// A force-exited predecessor still signals its end, so presentation
	// layers holding controls for it hear the handover.
	var events []Event
	if p.state != StateIdle || p.seq != nil {
		prev := p.resolvingSeedID
		if p.seq != nil {
			prev = p.seq.SeedID
		}
		events = append(events, Event{Kind: EventExited, SeedID: prev})
	}
	p.exitLocked()

	p.state = StateResolving
	p.resolvingType = seed.Type
	p.resolvingSeedID = seed.ID
	p.metrics.SequenceActive.Set(1)
	gen := p.gen

	// A seed carrying a sequence id is a sequence even when it is the only
	// member found; the degenerate case renders statically.
	members := p.resolveIntra(seed)
	if len(members) > 1 || seed.SequenceID != "" {
		p.metrics.SequenceResolutions.WithLabelValues("intra", "resolved").Inc()
		events = append(events, p.beginPlaybackLocked(seed, members, "")...)
		p.mu.Unlock()
		p.emit(events...)
		return
	}

	rule, ok := crossRules[seed.Type]
	if !ok || p.finder == nil || seed.Geometry.Kind != hazard.GeomPoint {
		p.metrics.SequenceResolutions.WithLabelValues("intra", "empty").Inc()
		events = append(events, p.toIdleLocked(seed.ID)...)
		p.mu.Unlock()
		p.emit(events...)
		return
	}

	// Cross-type lookup. The query runs off the interaction path; its
	// completion re-enters with a generation check so a late response
	// never touches newer state.
	go p.resolveCross(ctx, gen, seed, rule)
	p.mu.Unlock()
	p.emit(events...)
}

// Exit ends the active sequence: playback filters are cleared, the cursor
// integration released, any sequence-created overlay removed, and the state
// returns to idle. Idempotent.
func (p *Player) Exit() {
	p.mu.Lock()
	if p.state == StateIdle {
		p.mu.Unlock()
		return
	}
	seedID := ""
	if p.seq != nil {
		seedID = p.seq.SeedID
	}
	p.exitLocked()
	p.mu.Unlock()
	p.emit(Event{Kind: EventExited, SeedID: seedID})
}

// HandleTeardown cancels the active sequence when an overlay it depends on
// is torn down, so filters never reference removed bindings.
func (p *Player) HandleTeardown(t hazard.Type) {
	p.mu.Lock()

	// Mid-resolution the dependency is the seed's own overlay: losing it
	// invalidates the in-flight query, so bump the generation and return
	// to idle before any result can land.
	if p.state == StateResolving && p.resolvingType == t {
		seedID := p.resolvingSeedID
		p.gen++
		p.state = StateIdle
		p.resolvingType = ""
		p.resolvingSeedID = ""
		p.metrics.SequenceActive.Set(0)
		p.mu.Unlock()
		p.emit(Event{Kind: EventExited, SeedID: seedID})
		return
	}

	if p.seq == nil {
		p.mu.Unlock()
		return
	}
	_, involved := p.seq.membersByType[t]
	if !involved {
		p.mu.Unlock()
		return
	}
	seedID := p.seq.SeedID
	// The torn-down type must not be re-filtered or re-torn-down during
	// exit cleanup.
	delete(p.seq.membersByType, t)
	if p.seq.injected == t {
		p.seq.injected = ""
	}
	p.exitLocked()
	p.mu.Unlock()
	p.emit(Event{Kind: EventExited, SeedID: seedID})
}

// resolveIntra collects same-type members by sequence id, falling back to
// parent linkage. The seed itself is always a member.
func (p *Player) resolveIntra(seed hazard.Feature) []hazard.Feature {
	bound := p.overlays.Features(seed.Type)
	var members []hazard.Feature
	for _, f := range bound {
		if isRelated(seed, f) {
			members = append(members, f)
		}
	}
	if len(members) == 0 {
		members = append(members, seed)
	}
	return members
}

func isRelated(seed, f hazard.Feature) bool {
	if f.ID == seed.ID {
		return true
	}
	if seed.SequenceID != "" && f.SequenceID == seed.SequenceID {
		return true
	}
	if f.ParentID != "" && f.ParentID == seed.ID {
		return true
	}
	if seed.ParentID != "" && (f.ID == seed.ParentID || f.ParentID == seed.ParentID) {
		return true
	}
	return false
}

func (p *Player) resolveCross(ctx context.Context, gen uint64, seed hazard.Feature, rule crossRule) {
	w := correlate.Window{
		At:         seed.EffectiveTime(),
		DaysBefore: rule.daysBefore,
		DaysAfter:  rule.daysAfter,
	}
	related, err := p.finder.FindNearby(ctx, rule.target, seed.Geometry.Lat, seed.Geometry.Lon, rule.radiusKm, w)

	p.mu.Lock()
	if p.gen != gen || p.state != StateResolving {
		// Stale: a newer sequence started or the player exited while the
		// query was in flight.
		p.mu.Unlock()
		return
	}

	if err != nil || len(related) == 0 {
		outcome := "empty"
		if err != nil && !errors.Is(err, correlate.ErrEmptyResult) {
			outcome = "error"
			p.logger.Warn("correlation query failed", "seed_id", seed.ID, "target", rule.target, "error", err)
		}
		p.metrics.SequenceResolutions.WithLabelValues("cross", outcome).Inc()
		events := p.toIdleLocked(seed.ID)
		p.mu.Unlock()
		p.emit(events...)
		return
	}

	p.metrics.SequenceResolutions.WithLabelValues("cross", "resolved").Inc()
	members := append([]hazard.Feature{seed}, related...)
	events := p.beginPlaybackLocked(seed, members, rule.target)
	p.mu.Unlock()
	p.emit(events...)
}

// beginPlaybackLocked sorts members, installs overlay filters, and starts
// cursor-driven playback (or the static fallback). Returns events to emit
// after the lock is released.
func (p *Player) beginPlaybackLocked(seed hazard.Feature, members []hazard.Feature, crossTarget hazard.Type) []Event {
	sort.SliceStable(members, func(a, b int) bool {
		return members[a].EffectiveTime().Before(members[b].EffectiveTime())
	})

	seq := &Sequence{
		SeedID:        seed.ID,
		SeedType:      seed.Type,
		MinTime:       members[0].EffectiveTime(),
		MaxTime:       members[len(members)-1].EffectiveTime(),
		membersByType: make(map[hazard.Type][]string),
	}
	for _, m := range members {
		seq.MemberIDs = append(seq.MemberIDs, m.ID)
		seq.membersByType[m.Type] = append(seq.membersByType[m.Type], m.ID)
	}

	// Cross-type results may target a hazard with no overlay yet; render
	// one and remember to tear it down on exit.
	if crossTarget != "" {
		var crossFeatures []hazard.Feature
		for _, m := range members {
			if m.Type == crossTarget {
				crossFeatures = append(crossFeatures, m)
			}
		}
		if len(crossFeatures) > 0 {
			if !p.overlays.HasOverlay(crossTarget) {
				seq.injected = crossTarget
			}
			p.overlays.Render(crossTarget, crossFeatures)
		}
	}

	p.seq = seq
	p.state = StatePlaying
	p.resolvingType = ""
	p.resolvingSeedID = ""

	// Degenerate families play statically: no zero-duration animation.
	seq.Static = len(members) < 2 || seq.MinTime.Equal(seq.MaxTime) || p.cursor == nil

	if seq.Static {
		p.applyFiltersLocked(seq.MaxTime)
	} else {
		p.applyFiltersLocked(seq.MinTime)
		p.cursor.SetRange(seq.MinTime, seq.MaxTime)
		p.cursor.Seek(seq.MinTime)
		p.unsubscribe = p.cursor.Subscribe(p.onTick)
		p.cursor.Play()
	}

	p.logger.Info("sequence playing",
		"seed_id", seq.SeedID,
		"members", len(seq.MemberIDs),
		"static", seq.Static,
		"min_time", seq.MinTime,
		"max_time", seq.MaxTime,
	)
	return []Event{{Kind: EventResolved, SeedID: seq.SeedID, Members: len(seq.MemberIDs)}}
}

// onTick advances member visibility to "occurred by cursor time".
func (p *Player) onTick(cursor time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePlaying || p.seq == nil || p.seq.Static {
		return
	}
	p.applyFiltersLocked(cursor)
}

func (p *Player) applyFiltersLocked(before time.Time) {
	for t, ids := range p.seq.membersByType {
		p.overlays.SetTimeFilter(t, ids, before)
	}
}

// toIdleLocked handles resolution failure: no sequence was created.
func (p *Player) toIdleLocked(seedID string) []Event {
	p.state = StateIdle
	p.gen++
	p.resolvingType = ""
	p.resolvingSeedID = ""
	p.metrics.SequenceActive.Set(0)
	return []Event{{Kind: EventNoRelated, SeedID: seedID}}
}

// exitLocked performs EXITING cleanup and returns to idle.
func (p *Player) exitLocked() {
	p.gen++
	p.resolvingType = ""
	p.resolvingSeedID = ""
	if p.state == StateIdle && p.seq == nil {
		p.metrics.SequenceActive.Set(0)
		return
	}
	p.state = StateExiting

	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	if p.cursor != nil {
		p.cursor.Pause()
	}
	if p.seq != nil {
		for t := range p.seq.membersByType {
			p.overlays.ClearTimeFilter(t)
		}
		if p.seq.injected != "" {
			p.overlays.Teardown(p.seq.injected)
		}
	}
	p.seq = nil
	p.state = StateIdle
	p.metrics.SequenceActive.Set(0)
}

func (p *Player) emit(events ...Event) {
	if p.notify == nil {
		return
	}
	for _, e := range events {
		p.notify(e)
	}
}
