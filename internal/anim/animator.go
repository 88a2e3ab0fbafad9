package anim

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const driverTick = 20 * time.Millisecond

// Animator owns at most one timeline and drives it in real time while
// playing. Every transport operation is a no-op when no timeline exists.
type Animator struct {
	logger *zap.Logger

	mu       sync.Mutex
	timeline *Timeline
	speed    float64
	playing  bool
	stop     chan struct{}
	done     chan struct{}
}

// NewAnimator creates an animator with normal playback speed. The logger
// may be nil.
func NewAnimator(logger *zap.Logger) *Animator {
	return &Animator{logger: logger, speed: 1.0}
}

// CreateTimeline replaces the current timeline with a fresh one built from
// opts. Any previous timeline is stopped and released first; the new one
// starts paused.
func (a *Animator) CreateTimeline(opts Options) *Timeline {
	a.mu.Lock()
	old := a.timeline
	tl := NewTimeline(opts)
	a.timeline = tl
	a.playing = false
	a.mu.Unlock()

	if old != nil {
		old.Kill()
	}
	return tl
}

// Timeline returns the current timeline, or nil.
func (a *Animator) Timeline() *Timeline {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timeline
}

// Play starts or resumes real-time playback.
func (a *Animator) Play() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timeline == nil || a.playing {
		return
	}
	a.playing = true
	if a.stop == nil {
		a.stop = make(chan struct{})
		a.done = make(chan struct{})
		go a.drive(a.stop, a.done)
	}
}

// Pause suspends playback without moving the clock.
func (a *Animator) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timeline == nil {
		return
	}
	a.playing = false
}

// Reset seeks the timeline back to the start and pauses.
func (a *Animator) Reset() {
	a.mu.Lock()
	tl := a.timeline
	a.playing = false
	a.mu.Unlock()
	if tl != nil {
		tl.Seek(0)
	}
}

// SetSpeed scales playback rate for the current and any future timeline.
// Non-positive multipliers are ignored.
func (a *Animator) SetSpeed(multiplier float64) {
	if multiplier <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.speed = multiplier
}

// Speed reports the current playback multiplier.
func (a *Animator) Speed() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speed
}

// Playing reports whether the animator is in real-time playback.
func (a *Animator) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

// Advance steps the current timeline by dt seconds of virtual time, scaled
// by the speed multiplier. This is the manual counterpart to Play and what
// tests and headless callers use.
func (a *Animator) Advance(dt float64) {
	a.mu.Lock()
	tl := a.timeline
	speed := a.speed
	a.mu.Unlock()
	if tl == nil {
		return
	}
	tl.Advance(dt * speed)
}

// Destroy stops playback, waits for the driver to exit and releases the
// timeline. No timeline callback fires after Destroy returns. Safe to call
// repeatedly and without a timeline.
func (a *Animator) Destroy() {
	a.mu.Lock()
	tl := a.timeline
	a.timeline = nil
	a.playing = false
	stop, done := a.stop, a.done
	a.stop, a.done = nil, nil
	a.mu.Unlock()

	if tl != nil {
		tl.Kill()
	}
	if stop != nil {
		close(stop)
		<-done
	}
}

// drive ticks wall-clock time into the timeline while playing.
func (a *Animator) drive(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(driverTick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now

			a.mu.Lock()
			tl := a.timeline
			speed := a.speed
			playing := a.playing
			a.mu.Unlock()

			if !playing || tl == nil {
				continue
			}
			tl.Advance(elapsed * speed)
		}
	}
}
