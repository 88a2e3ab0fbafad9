package lesson

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/kafkaviz/kafkaviz-server-go/internal/scene"
)

// ErrNotFound is returned when a slug names no registered lesson.
var ErrNotFound = errors.New("lesson: unknown slug")

// Factory builds one lesson scene from shared scene wiring, its timing
// descriptor, and a randomness source for spawn jitter.
type Factory func(cfg scene.Config, d Descriptor, rng *rand.Rand) scene.Scene

var factories = map[string]Factory{
	SlugProducerConsumer: newProducerConsumer,
	SlugTopicsPartitions: newTopicsPartitions,
	SlugMessageKeys:      newMessageKeys,
	SlugStickyBatching:   newStickyBatching,
	SlugConsumerGroups:   newConsumerGroups,
	SlugOffsetsLag:       newOffsetsLag,
	SlugReplication:      newReplication,
}

// New constructs the lesson registered under slug. A nil rng gets a
// time-seeded source; tests inject a fixed seed for determinism.
func New(slug string, cfg scene.Config, d Descriptor, rng *rand.Rand) (scene.Scene, error) {
	factory, ok := factories[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return factory(cfg, d, rng), nil
}

// Slugs returns the registered lesson slugs in teaching order.
func Slugs() []string {
	out := make([]string, 0, len(Order))
	for _, slug := range Order {
		if _, ok := factories[slug]; ok {
			out = append(out, slug)
		}
	}
	return out
}
