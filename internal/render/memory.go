package render

import (
	"sync"

	"github.com/google/uuid"
)

// MemorySink is a Sink that records the full render state in memory. It
// backs the service's state endpoint (clients poll it to draw) and the
// package tests. Safe for concurrent use.
type MemorySink struct {
	mu       sync.Mutex
	bindings map[string][]FeatureDisplay
	passes   []Pass
	handlers map[string]handlerEntry
}

type handlerEntry struct {
	bindingID string
	kind      HandlerKind
	fn        HandlerFunc
}

// NewMemorySink creates an empty in-memory rendering surface.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		bindings: make(map[string][]FeatureDisplay),
		handlers: make(map[string]handlerEntry),
	}
}

func (s *MemorySink) BindData(bindingID string, displays []FeatureDisplay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[bindingID] = displays
}

func (s *MemorySink) RemoveData(bindingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bindings, bindingID)
}

// ApplyPass adds the pass or, when the id already exists, replaces its
// descriptor in place keeping the original draw order.
func (s *MemorySink) ApplyPass(p Pass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.passes {
		if s.passes[i].ID == p.ID {
			s.passes[i] = p
			return
		}
	}
	s.passes = append(s.passes, p)
}

func (s *MemorySink) SetPassFilter(passID string, f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.passes {
		if s.passes[i].ID == passID {
			s.passes[i].Filter = f
			return
		}
	}
}

func (s *MemorySink) RemovePass(passID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.passes {
		if s.passes[i].ID == passID {
			s.passes = append(s.passes[:i], s.passes[i+1:]...)
			return
		}
	}
}

func (s *MemorySink) AddHandler(bindingID string, kind HandlerKind, fn HandlerFunc) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.handlers[id] = handlerEntry{bindingID: bindingID, kind: kind, fn: fn}
	return id
}

func (s *MemorySink) RemoveHandler(handlerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, handlerID)
}

// Dispatch invokes every handler of the given kind registered on the
// binding, simulating an interaction from the rendering surface. Handlers
// run outside the sink lock so they may re-enter the sink.
func (s *MemorySink) Dispatch(bindingID string, kind HandlerKind, featureID string) {
	s.mu.Lock()
	var fns []HandlerFunc
	for _, h := range s.handlers {
		if h.bindingID == bindingID && h.kind == kind {
			fns = append(fns, h.fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(featureID)
	}
}

// Snapshot is a copy of the sink state for serialization.
type Snapshot struct {
	Bindings map[string][]FeatureDisplay `json:"bindings"`
	Passes   []Pass                      `json:"passes"`
}

// Snapshot returns a deep-enough copy of the current render state.
func (s *MemorySink) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Bindings: make(map[string][]FeatureDisplay, len(s.bindings)),
		Passes:   append([]Pass(nil), s.passes...),
	}
	for id, displays := range s.bindings {
		snap.Bindings[id] = append([]FeatureDisplay(nil), displays...)
	}
	return snap
}

// Passes returns the passes bound to one binding, in draw order.
func (s *MemorySink) Passes(bindingID string) []Pass {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Pass
	for _, p := range s.passes {
		if p.BindingID == bindingID {
			out = append(out, p)
		}
	}
	return out
}

// PassCount reports the total number of passes across all bindings.
func (s *MemorySink) PassCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.passes)
}

// BindingCount reports the number of live data bindings.
func (s *MemorySink) BindingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bindings)
}

// HandlerCount reports the number of registered interaction handlers.
func (s *MemorySink) HandlerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// VisibleIDs evaluates a pass filter against its binding's displays and
// returns the ids the pass would draw, in binding order.
func (s *MemorySink) VisibleIDs(passID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.passes {
		if p.ID != passID {
			continue
		}
		var ids []string
		for _, d := range s.bindings[p.BindingID] {
			if p.Filter.Matches(d.Feature.ID, d.Feature.EffectiveTime()) {
				ids = append(ids, d.Feature.ID)
			}
		}
		return ids
	}
	return nil
}
