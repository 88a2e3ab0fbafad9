// Package scene provides the lifecycle contract shared by every lesson
// visualization: an element registry over a render root, an owned animator,
// and idempotent init/destroy, with all scene-to-shell communication going
// through the event bus.
package scene

import "context"

// Content is what a concrete lesson supplies on top of the Base lifecycle:
// descriptive metadata and a Setup that populates the element registry and
// builds the timeline. Setup runs exactly once per successful Init.
type Content interface {
	Title() string
	Description() string
	Setup(ctx context.Context) error
}

// Resetter is optionally implemented by lessons whose Reset must also
// rewind side bookkeeping (counters, in-flight tokens, gauges).
type Resetter interface {
	OnReset()
}

// Selector is optionally implemented by lessons that publish entity info
// when a rendered element is selected.
type Selector interface {
	// Select reports whether id named a selectable entity.
	Select(id string) bool
}

// Scene is a fully assembled lesson: its content plus the Base lifecycle.
type Scene interface {
	Content
	Init(ctx context.Context) error
	Play()
	Pause()
	Reset()
	SetSpeed(multiplier float64)
	Destroy()
	Root() *Element
}
