// Package anim provides the animation engine behind lesson scenes: a
// repeating virtual-clock timeline of scheduled callbacks and tweens, an
// Animator that owns one timeline at a time and exposes transport controls,
// and a small set of motion helpers.
package anim

import (
	"math"
	"sort"
	"sync"
)

// Target is anything whose float-valued properties a tween can read and
// write. scene elements satisfy this.
type Target interface {
	// Prop returns the current value of a named property and whether it is set.
	Prop(name string) (float64, bool)
	// SetProp sets a named property.
	SetProp(name string, value float64)
}

// Options configures a timeline.
type Options struct {
	// Duration is the cycle length in seconds. Scheduled calls fire once per
	// cycle at their offset from cycle start.
	Duration float64
	// Repeat is the number of additional cycles after the first; RepeatInfinite
	// repeats forever.
	Repeat int
	// RepeatDelay is the pause in seconds between cycles.
	RepeatDelay float64
}

// RepeatInfinite makes a timeline cycle until destroyed.
const RepeatInfinite = -1

type call struct {
	at         float64
	seq        int
	fn         func()
	firedCycle int
}

type tween struct {
	start    float64
	duration float64
	update   func(progress float64)
	complete func()
	done     bool
}

// Timeline is a deterministic schedule over a virtual clock. It performs no
// timing of its own: Advance moves the clock, fires due callbacks in schedule
// order, and steps tween interpolation. The Animator drives it in real time;
// tests drive it manually.
type Timeline struct {
	opts Options

	mu      sync.Mutex
	now     float64 // position within the current cycle, including repeat delay
	cycle   int
	calls   []call
	tweens  []*tween
	nextSeq int
	killed  bool
	ended   bool
}

// NewTimeline builds an empty timeline. A non-positive duration yields a
// timeline whose cycle ends with its latest scheduled call.
func NewTimeline(opts Options) *Timeline {
	return &Timeline{opts: opts}
}

// Call schedules fn at the given offset (seconds) from cycle start. Calls
// fire once per cycle, in offset order, ties broken by scheduling order.
// Safe to invoke from inside a firing callback; a call scheduled strictly
// before the current position first fires on the next cycle.
func (tl *Timeline) Call(at float64, fn func()) {
	if fn == nil {
		return
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()

	c := call{at: at, seq: tl.nextSeq, firedCycle: -1}
	tl.nextSeq++
	if at < tl.now {
		c.firedCycle = tl.cycle
	}
	c.fn = fn
	tl.calls = append(tl.calls, c)
	sort.SliceStable(tl.calls, func(i, j int) bool {
		if tl.calls[i].at != tl.calls[j].at {
			return tl.calls[i].at < tl.calls[j].at
		}
		return tl.calls[i].seq < tl.calls[j].seq
	})
}

// Tween starts an interpolation at the current clock position. update
// receives eased progress in [0,1] and must not call back into the
// timeline; complete (optional) runs exactly once after the final update
// and may schedule freely. In-flight tweens are forced to completion at the
// end of the cycle so per-token cleanup always runs.
func (tl *Timeline) Tween(duration float64, update func(progress float64), complete func()) {
	if update == nil && complete == nil {
		return
	}
	tl.mu.Lock()
	tw := &tween{start: tl.now, duration: duration, update: update, complete: complete}
	tl.tweens = append(tl.tweens, tw)
	tl.mu.Unlock()

	if duration <= 0 {
		tl.finishTween(tw)
	}
}

// Advance moves the virtual clock forward by dt seconds, firing callbacks
// and stepping tweens in event order. It is the sole clock input and is
// fully deterministic.
func (tl *Timeline) Advance(dt float64) {
	remaining := dt
	for {
		step, fire := tl.nextStep(remaining)
		if fire == nil && step <= 0 {
			return
		}
		remaining -= step
		if remaining < 0 {
			remaining = 0
		}
		if fire != nil {
			fire()
		}
	}
}

// nextStep advances the clock to the next event boundary within budget and
// returns the time consumed plus an action to run outside the lock.
func (tl *Timeline) nextStep(budget float64) (float64, func()) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.killed || tl.ended {
		return 0, nil
	}

	cycleLen := tl.cycleLength()
	if cycleLen <= 0 {
		return 0, nil
	}
	boundary := tl.now + budget

	// Next unfired scheduled call.
	var due *call
	for i := range tl.calls {
		c := &tl.calls[i]
		if c.firedCycle >= tl.cycle {
			continue
		}
		if c.at <= boundary+1e-12 {
			due = c
		}
		break
	}

	// Next tween completion inside the budget.
	var finishing *tween
	finishAt := boundary
	for _, tw := range tl.tweens {
		if tw.done {
			continue
		}
		end := tw.start + tw.duration
		if end <= finishAt+1e-12 {
			if due == nil || end < due.at-1e-12 {
				finishing = tw
				finishAt = end
			}
		}
	}

	switch {
	case due != nil && (finishing == nil || due.at <= finishAt+1e-12):
		step := due.at - tl.now
		if step < 0 {
			step = 0
		}
		tl.now = due.at
		due.firedCycle = tl.cycle
		tl.updateTweensLocked()
		fn := due.fn
		return step, fn

	case finishing != nil:
		step := finishAt - tl.now
		if step < 0 {
			step = 0
		}
		tl.now = finishAt
		tl.updateTweensLocked()
		finishing.done = true
		return step, tl.completionLocked(finishing)

	case boundary+1e-12 >= cycleLen && tl.canRepeatLocked():
		step := cycleLen - tl.now
		if step < 0 {
			step = 0
		}
		return step, tl.wrapLocked()

	case boundary >= cycleLen:
		// Final cycle ran out; settle at the end.
		step := cycleLen - tl.now
		if step < 0 {
			step = 0
		}
		tl.now = cycleLen
		tl.updateTweensLocked()
		tl.ended = true
		return step, tl.flushTweensLocked()

	default:
		tl.now = boundary
		tl.updateTweensLocked()
		return budget, nil
	}
}

// cycleLength returns the effective cycle end, including the repeat delay.
func (tl *Timeline) cycleLength() float64 {
	d := tl.opts.Duration
	if d <= 0 {
		for _, c := range tl.calls {
			if c.at > d {
				d = c.at
			}
		}
	}
	return d + tl.opts.RepeatDelay
}

func (tl *Timeline) canRepeatLocked() bool {
	return tl.opts.Repeat == RepeatInfinite || tl.cycle < tl.opts.Repeat
}

// wrapLocked ends the current cycle: forces in-flight tweens to completion,
// then rewinds the clock for the next cycle. Completion hooks run outside
// the lock.
func (tl *Timeline) wrapLocked() func() {
	flush := tl.flushTweensLocked()
	tl.cycle++
	tl.now = 0
	return flush
}

// flushTweensLocked forces every unfinished tween to its final state and
// returns a closure running their updates and completion hooks.
func (tl *Timeline) flushTweensLocked() func() {
	var pending []func()
	for _, tw := range tl.tweens {
		if tw.done {
			continue
		}
		tw.done = true
		if fn := tl.completionLocked(tw); fn != nil {
			pending = append(pending, fn)
		}
	}
	tl.tweens = tl.tweens[:0]
	if len(pending) == 0 {
		return nil
	}
	return func() {
		for _, fn := range pending {
			fn()
		}
	}
}

func (tl *Timeline) completionLocked(tw *tween) func() {
	update, complete := tw.update, tw.complete
	return func() {
		if update != nil {
			update(1)
		}
		if complete != nil {
			complete()
		}
	}
}

// updateTweensLocked applies interpolation for the current clock position
// to every running tween and prunes finished ones.
func (tl *Timeline) updateTweensLocked() {
	live := tl.tweens[:0]
	for _, tw := range tl.tweens {
		if tw.done {
			continue
		}
		if tw.duration > 0 && tl.now >= tw.start {
			// The final update(1) is sequenced by nextStep's completion path.
			if p := (tl.now - tw.start) / tw.duration; p < 1 && tw.update != nil {
				tw.update(easeInOut(p))
			}
		}
		live = append(live, tw)
	}
	tl.tweens = live
}

// finishTween completes a zero-duration tween immediately.
func (tl *Timeline) finishTween(tw *tween) {
	tl.mu.Lock()
	if tw.done {
		tl.mu.Unlock()
		return
	}
	tw.done = true
	fn := tl.completionLocked(tw)
	tl.mu.Unlock()
	fn()
}

// Seek rewinds the clock to cycle start and drops in-flight tweens without
// running their completion hooks; callers reset their own bookkeeping.
func (tl *Timeline) Seek(to float64) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.now = to
	tl.cycle = 0
	tl.ended = false
	tl.tweens = tl.tweens[:0]
	for i := range tl.calls {
		tl.calls[i].firedCycle = -1
	}
}

// Kill permanently disables the timeline. No callback fires after Kill
// returns to a caller that is not itself inside an Advance.
func (tl *Timeline) Kill() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.killed = true
	tl.tweens = nil
	tl.calls = nil
}

// Position reports the clock offset within the current cycle.
func (tl *Timeline) Position() float64 {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.now
}

// Cycle reports how many full cycles have completed.
func (tl *Timeline) Cycle() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.cycle
}

// easeInOut is a symmetric smooth ease (quadratic in, quadratic out).
func easeInOut(p float64) float64 {
	if p < 0.5 {
		return 2 * p * p
	}
	return 1 - math.Pow(-2*p+2, 2)/2
}
