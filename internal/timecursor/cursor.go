// Package timecursor defines the shared time-cursor contract the overlay
// engine consumes. The engine never owns the cursor: it subscribes to tick
// notifications and, during sequence playback, asks the controlling side to
// set a range and play. Two implementations are provided: Manual (driven by
// explicit Seek calls, e.g. from an HTTP endpoint or a test) and Clocked
// (advances sim-time against a clockwork ticker).
package timecursor

import (
	"sync"
	"time"
)

// Cursor is the consumer-side view of the shared time cursor.
type Cursor interface {
	// Current returns the cursor's position.
	Current() time.Time
	// Subscribe registers a tick callback and returns its cancel func.
	// Callbacks run synchronously on the driving goroutine.
	Subscribe(fn func(time.Time)) (cancel func())
}

// Control extends Cursor with the play/pause/seek surface a playback
// component may request of the cursor's owner.
type Control interface {
	Cursor
	SetRange(min, max time.Time)
	Play()
	Pause()
	Seek(t time.Time)
}

// Manual is a Control driven entirely by explicit Seek calls. Play and
// Pause only toggle a flag; nothing advances on its own.
type Manual struct {
	mu       sync.Mutex
	current  time.Time
	min, max time.Time
	playing  bool
	nextSub  int
	subs     map[int]func(time.Time)
}

// NewManual creates a manual cursor positioned at start.
func NewManual(start time.Time) *Manual {
	return &Manual{current: start, subs: make(map[int]func(time.Time))}
}

func (m *Manual) Current() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manual) Subscribe(fn func(time.Time)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Manual) SetRange(min, max time.Time) {
	m.mu.Lock()
	m.min, m.max = min, max
	m.mu.Unlock()
}

func (m *Manual) Play() {
	m.mu.Lock()
	m.playing = true
	m.mu.Unlock()
}

func (m *Manual) Pause() {
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
}

// Seek moves the cursor, clamping into the configured range, and notifies
// subscribers. Callbacks run outside the lock so they may re-enter.
func (m *Manual) Seek(t time.Time) {
	m.mu.Lock()
	if !m.min.IsZero() && t.Before(m.min) {
		t = m.min
	}
	if !m.max.IsZero() && t.After(m.max) {
		t = m.max
	}
	m.current = t
	fns := make([]func(time.Time), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(t)
	}
}
