package timecursor

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clocked is a Control that advances sim-time against a real (or fake)
// clock while playing: every real tick moves the cursor forward by
// tick * speed, stopping at the end of the range.
type Clocked struct {
	clock clockwork.Clock
	tick  time.Duration
	speed float64

	mu       sync.Mutex
	current  time.Time
	min, max time.Time
	playing  bool
	nextSub  int
	subs     map[int]func(time.Time)
}

// NewClocked creates a clock-driven cursor. tick is the real-time cadence,
// speed the sim-seconds advanced per real second.
func NewClocked(clock clockwork.Clock, tick time.Duration, speed float64, start time.Time) *Clocked {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	if speed <= 0 {
		speed = 1
	}
	return &Clocked{
		clock:   clock,
		tick:    tick,
		speed:   speed,
		current: start,
		subs:    make(map[int]func(time.Time)),
	}
}

// Run drives the ticker until the context is cancelled. Ticks while paused
// are ignored.
func (c *Clocked) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.advance()
		}
	}
}

func (c *Clocked) advance() {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return
	}
	step := time.Duration(float64(c.tick) * c.speed)
	next := c.current.Add(step)
	if !c.max.IsZero() && next.After(c.max) {
		next = c.max
		c.playing = false
	}
	c.current = next
	fns := make([]func(time.Time), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

func (c *Clocked) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Clocked) Subscribe(fn func(time.Time)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Clocked) SetRange(min, max time.Time) {
	c.mu.Lock()
	c.min, c.max = min, max
	if !min.IsZero() && c.current.Before(min) {
		c.current = min
	}
	c.mu.Unlock()
}

func (c *Clocked) Play() {
	c.mu.Lock()
	c.playing = true
	c.mu.Unlock()
}

func (c *Clocked) Pause() {
	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()
}

func (c *Clocked) Seek(t time.Time) {
	c.mu.Lock()
	if !c.min.IsZero() && t.Before(c.min) {
		t = c.min
	}
	if !c.max.IsZero() && t.After(c.max) {
		t = c.max
	}
	c.current = t
	fns := make([]func(time.Time), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(t)
	}
}
