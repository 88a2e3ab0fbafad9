package scene

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kafkaviz/kafkaviz-server-go/internal/anim"
	"github.com/kafkaviz/kafkaviz-server-go/internal/bus"
)

// Config carries the collaborators a scene needs. Width and Height define
// the viewport in scene coordinates.
type Config struct {
	Bus    *bus.Bus
	Logger *zap.Logger
	Width  float64
	Height float64
}

// Base is the lifecycle helper every lesson embeds. It owns one animator
// and the identifier->element registry over the render root, and publishes
// readiness and transport state on the bus. Lessons compose it rather than
// inherit from it; Base calls back into the bound Content for Setup.
//
// Init is idempotent via the initialized flag, but two Init calls racing on
// the same instance are not serialized here; the director serializes lesson
// switches.
type Base struct {
	cfg      Config
	logger   *zap.Logger
	content  Content
	animator *anim.Animator

	mu          sync.Mutex
	root        *Element
	elements    map[string]*Element
	initialized bool
}

// NewBase builds the lifecycle helper bound to the given content.
func NewBase(cfg Config, content Content) *Base {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Base{
		cfg:      cfg,
		logger:   cfg.Logger,
		content:  content,
		animator: anim.NewAnimator(cfg.Logger),
		root:     NewElement(KindGroup),
		elements: make(map[string]*Element),
	}
}

// Init prepares the scene: clears stale render state, runs the content's
// Setup, marks the scene initialized and announces readiness. A second Init
// before Destroy is a no-op. If Setup fails the scene stays uninitialized
// and no readiness event is published.
func (b *Base) Init(ctx context.Context) error {
	b.mu.Lock()
	if b.initialized {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	b.Clear()

	if err := b.content.Setup(ctx); err != nil {
		return fmt.Errorf("scene %q setup: %w", b.content.Title(), err)
	}

	b.mu.Lock()
	b.initialized = true
	b.mu.Unlock()

	b.logger.Info("scene initialized", zap.String("title", b.content.Title()))
	b.publish(bus.TopicSceneReady, bus.SceneReady{
		Title:       b.content.Title(),
		Description: b.content.Description(),
	})
	return nil
}

// Initialized reports whether Init completed and Destroy has not run since.
func (b *Base) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// Play starts playback and announces it.
func (b *Base) Play() {
	b.animator.Play()
	b.publish(bus.TopicScenePlaying, nil)
}

// Pause suspends playback and announces it.
func (b *Base) Pause() {
	b.animator.Pause()
	b.publish(bus.TopicScenePaused, nil)
}

// Reset rewinds the timeline to the start, pauses, runs the lesson's
// OnReset hook if it has one, and announces the reset.
func (b *Base) Reset() {
	b.animator.Reset()
	if r, ok := b.content.(Resetter); ok {
		r.OnReset()
	}
	b.publish(bus.TopicSceneReset, nil)
}

// SetSpeed scales playback rate on the owned animator.
func (b *Base) SetSpeed(multiplier float64) {
	b.animator.SetSpeed(multiplier)
}

// Advance steps the owned animator by dt seconds of virtual time. Headless
// drivers and tests use this instead of real-time playback.
func (b *Base) Advance(dt float64) {
	b.animator.Advance(dt)
}

// Animator exposes the owned animator to the content's Setup.
func (b *Base) Animator() *anim.Animator {
	return b.animator
}

// Bus exposes the shared event bus.
func (b *Base) Bus() *bus.Bus {
	return b.cfg.Bus
}

// Viewport returns the scene's width and height.
func (b *Base) Viewport() (float64, float64) {
	return b.cfg.Width, b.cfg.Height
}

// Root returns the render root.
func (b *Base) Root() *Element {
	return b.root
}

// AddElement tags the element with id, stores it in the registry and
// attaches it to the render root. Ids must be unique within one scene
// instance; on misuse the previous element is detached before being
// replaced so the registry never holds a dangling entry.
func (b *Base) AddElement(id string, el *Element) *Element {
	if el == nil {
		return nil
	}
	el.SetID(id)

	b.mu.Lock()
	if old, ok := b.elements[id]; ok && old != el {
		b.root.Remove(old)
	}
	b.elements[id] = el
	b.mu.Unlock()

	b.root.Append(el)
	return el
}

// GetElement looks up a registered element; nil if absent, never an error.
// Timeline callbacks routinely query elements a faster-completing step has
// already removed.
func (b *Base) GetElement(id string) *Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.elements[id]
}

// RemoveElement detaches the element from the render root and drops it
// from the registry; no-op if absent.
func (b *Base) RemoveElement(id string) {
	b.mu.Lock()
	el, ok := b.elements[id]
	if ok {
		delete(b.elements, id)
	}
	b.mu.Unlock()

	if ok {
		b.root.Remove(el)
	}
}

// ElementCount reports the registry size.
func (b *Base) ElementCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.elements)
}

// ElementIDs returns the registered identifiers, unordered.
func (b *Base) ElementIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.elements))
	for id := range b.elements {
		ids = append(ids, id)
	}
	return ids
}

// Clear removes every element from the render root and empties the
// registry. Init calls it to drop stale state; Destroy calls it for teardown.
func (b *Base) Clear() {
	b.mu.Lock()
	b.elements = make(map[string]*Element)
	b.mu.Unlock()
	b.root.RemoveAll()
}

// Destroy stops the animator, clears all elements and returns the scene to
// the uninitialized state. Idempotent, and safe even if Init never ran.
func (b *Base) Destroy() {
	b.animator.Destroy()
	b.Clear()

	b.mu.Lock()
	b.initialized = false
	b.mu.Unlock()
}

func (b *Base) publish(topic string, payload any) {
	if b.cfg.Bus == nil {
		return
	}
	b.cfg.Bus.Publish(topic, payload)
}

// Shape factories. Each constructs a renderable primitive with the given
// geometry and style overrides; passing a non-empty id also registers and
// attaches it.

// NewText builds a text element anchored at x,y.
func (b *Base) NewText(id string, x, y float64, text string, attrs map[string]string) *Element {
	el := NewElement(KindText)
	el.SetProps(map[string]float64{"x": x, "y": y, "opacity": 1})
	el.SetAttrs(map[string]string{"fill": "#e2e8f0", "font-size": "13", "text-anchor": "middle"})
	el.SetAttrs(attrs)
	el.SetText(text)
	return b.autoRegister(id, el)
}

// NewRect builds a rectangle with its top-left corner at x,y.
func (b *Base) NewRect(id string, x, y, width, height float64, attrs map[string]string) *Element {
	el := NewElement(KindRect)
	el.SetProps(map[string]float64{"x": x, "y": y, "width": width, "height": height, "opacity": 1})
	el.SetAttrs(map[string]string{"fill": "#1e293b", "stroke": "#475569"})
	el.SetAttrs(attrs)
	return b.autoRegister(id, el)
}

// NewCircle builds a circle centered at x,y.
func (b *Base) NewCircle(id string, x, y, r float64, attrs map[string]string) *Element {
	el := NewElement(KindCircle)
	el.SetProps(map[string]float64{"x": x, "y": y, "r": r, "opacity": 1, "scale": 1})
	el.SetAttrs(map[string]string{"fill": "#38bdf8"})
	el.SetAttrs(attrs)
	return b.autoRegister(id, el)
}

// NewLine builds a line segment.
func (b *Base) NewLine(id string, x1, y1, x2, y2 float64, attrs map[string]string) *Element {
	el := NewElement(KindLine)
	el.SetProps(map[string]float64{"x1": x1, "y1": y1, "x2": x2, "y2": y2, "opacity": 1})
	el.SetAttrs(map[string]string{"stroke": "#475569", "stroke-width": "1.5"})
	el.SetAttrs(attrs)
	return b.autoRegister(id, el)
}

// NewGroup builds a translated group container.
func (b *Base) NewGroup(id string, x, y float64) *Element {
	el := NewElement(KindGroup)
	el.SetProps(map[string]float64{"x": x, "y": y, "opacity": 1, "scale": 1})
	return b.autoRegister(id, el)
}

func (b *Base) autoRegister(id string, el *Element) *Element {
	if id == "" {
		return el
	}
	return b.AddElement(id, el)
}
