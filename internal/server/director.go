// Package server hosts the lesson director, the websocket hub fanning
// rendered frames out to clients, and the HTTP API.
package server

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kafkaviz/kafkaviz-server-go/internal/bus"
	"github.com/kafkaviz/kafkaviz-server-go/internal/lesson"
	"github.com/kafkaviz/kafkaviz-server-go/internal/render"
	"github.com/kafkaviz/kafkaviz-server-go/internal/scene"
)

const (
	sceneWidth  = 800
	sceneHeight = 500
)

// Director owns the active lesson scene and serializes every lifecycle
// transition: lesson switches, transport commands and entity selection all
// go through its mutex, so a scene is never destroyed mid-switch.
type Director struct {
	logger   *zap.Logger
	bus      *bus.Bus
	catalog  *lesson.Catalog
	maxSpeed float64
	rng      *rand.Rand

	mu      sync.Mutex
	scene   scene.Scene
	slug    string
	playing bool
	speed   float64
}

// NewDirector builds a director over the given catalog. maxSpeed bounds
// what SetSpeed accepts; non-positive means no upper bound.
func NewDirector(b *bus.Bus, catalog *lesson.Catalog, maxSpeed float64, logger *zap.Logger) *Director {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Director{
		logger:   logger,
		bus:      b,
		catalog:  catalog,
		maxSpeed: maxSpeed,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		speed:    1,
	}
}

// SelectLesson switches to the named lesson. The outgoing scene is fully
// destroyed before the incoming one is constructed and initialized, so two
// live scenes never overlap. An unknown slug keeps the previous scene; a
// construction or Init failure leaves a blank state.
func (d *Director) SelectLesson(ctx context.Context, slug string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scene != nil && d.slug == slug {
		return nil
	}

	desc, ok := d.catalog.Get(slug)
	if !ok {
		return fmt.Errorf("%w: %q", lesson.ErrNotFound, slug)
	}

	if d.scene != nil {
		d.scene.Destroy()
		d.scene = nil
		d.slug = ""
	}

	next, err := lesson.New(slug, scene.Config{
		Bus:    d.bus,
		Logger: d.logger,
		Width:  sceneWidth,
		Height: sceneHeight,
	}, desc, d.rng)
	if err != nil {
		return err
	}
	if err := next.Init(ctx); err != nil {
		next.Destroy()
		return fmt.Errorf("init lesson %q: %w", slug, err)
	}

	d.scene = next
	d.slug = slug

	next.SetSpeed(d.speed)
	if d.playing {
		next.Play()
	}

	lessonSwitches.WithLabelValues(slug).Inc()
	d.logger.Info("lesson selected", zap.String("slug", slug))
	d.bus.Publish(bus.TopicLessonChanged, slug)
	return nil
}

// Play starts playback on the active scene.
func (d *Director) Play() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = true
	if d.scene != nil {
		d.scene.Play()
	}
}

// Pause suspends playback on the active scene.
func (d *Director) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	if d.scene != nil {
		d.scene.Pause()
	}
}

// Toggle flips between playing and paused and reports the new state.
func (d *Director) Toggle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = !d.playing
	if d.scene != nil {
		if d.playing {
			d.scene.Play()
		} else {
			d.scene.Pause()
		}
	}
	d.bus.Publish(bus.TopicPlayPauseToggled, d.playing)
	return d.playing
}

// Reset rewinds the active scene to its initial state, paused.
func (d *Director) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	d.bus.Publish(bus.TopicResetRequested, nil)
	if d.scene != nil {
		d.scene.Reset()
	}
}

// SetSpeed applies a playback speed multiplier, clamped to the configured
// maximum. Non-positive values are ignored.
func (d *Director) SetSpeed(multiplier float64) {
	if multiplier <= 0 {
		return
	}
	if d.maxSpeed > 0 && multiplier > d.maxSpeed {
		multiplier = d.maxSpeed
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.speed = multiplier
	if d.scene != nil {
		d.scene.SetSpeed(multiplier)
	}
	d.bus.Publish(bus.TopicSpeedChanged, multiplier)
}

// SelectEntity asks the active scene to publish details for the given
// element id; false when nothing selectable matched.
func (d *Director) SelectEntity(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel, ok := d.scene.(scene.Selector)
	if !ok {
		return false
	}
	return sel.Select(id)
}

// Rebalance forwards a consumer-count change to the active scene when it
// supports group rebalancing.
func (d *Director) Rebalance(ctx context.Context, consumers int) bool {
	d.mu.Lock()
	r, ok := d.scene.(Rebalancer)
	d.mu.Unlock()
	if !ok {
		return false
	}
	return r.Rebalance(ctx, consumers)
}

// Rebalancer is implemented by the consumer-group lesson.
type Rebalancer interface {
	Rebalance(ctx context.Context, consumers int) bool
}

// Frame renders the active scene as an SVG document. With no scene
// selected it renders an empty viewport.
func (d *Director) Frame() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scene == nil {
		return render.SVG(nil, sceneWidth, sceneHeight)
	}
	return render.SVG(d.scene.Root(), sceneWidth, sceneHeight)
}

// Advance steps the active scene by dt seconds of virtual time; headless
// drivers and tests use this instead of real-time playback.
func (d *Director) Advance(dt float64) {
	d.mu.Lock()
	s := d.scene
	d.mu.Unlock()
	if a, ok := s.(interface{ Advance(float64) }); ok {
		a.Advance(dt)
	}
}

// Scene returns the active scene, nil before the first selection.
func (d *Director) Scene() scene.Scene {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scene
}

// CurrentSlug returns the active lesson's slug, empty before the first
// selection.
func (d *Director) CurrentSlug() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.slug
}

// Playing reports the transport state.
func (d *Director) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// Speed returns the current playback multiplier.
func (d *Director) Speed() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speed
}

// Catalog exposes the lesson catalog to the HTTP layer.
func (d *Director) Catalog() *lesson.Catalog {
	return d.catalog
}

// Close destroys the active scene.
func (d *Director) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scene != nil {
		d.scene.Destroy()
		d.scene = nil
		d.slug = ""
	}
	d.playing = false
}
