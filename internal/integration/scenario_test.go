package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kafkaviz/kafkaviz-server-go/internal/bus"
	"github.com/kafkaviz/kafkaviz-server-go/internal/lesson"
	"github.com/kafkaviz/kafkaviz-server-go/internal/scene"
	"github.com/kafkaviz/kafkaviz-server-go/internal/server"
)

type env struct {
	bus      *bus.Bus
	director *server.Director
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zaptest.NewLogger(t)
	b := bus.New(logger)
	catalog := lesson.NewCatalog("", logger)
	require.NoError(t, catalog.Load())

	d := server.NewDirector(b, catalog, 4, logger)
	t.Cleanup(d.Close)
	return &env{bus: b, director: d}
}

// findElement walks the render tree for the element with the given id.
func findElement(el *scene.Element, id string) *scene.Element {
	if el == nil {
		return nil
	}
	if el.ID() == id {
		return el
	}
	for _, child := range el.Children() {
		if found := findElement(child, id); found != nil {
			return found
		}
	}
	return nil
}

// countTokens counts in-flight message tokens anywhere in the tree.
func countTokens(el *scene.Element) int {
	if el == nil {
		return 0
	}
	n := 0
	if strings.HasPrefix(el.ID(), "msg-") {
		n++
	}
	for _, child := range el.Children() {
		n += countTokens(child)
	}
	return n
}

// A full round-robin cycle spreads every record over the topic's lanes and
// leaves nothing behind: every token consumed, every load gauge back to
// zero, no token elements in the rendered scene.
func TestRoundRobinCycleRunsClean(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var ready bool
	e.bus.Subscribe(bus.TopicSceneReady, func(any) { ready = true })

	require.NoError(t, e.director.SelectLesson(ctx, lesson.SlugTopicsPartitions))
	require.True(t, ready)

	root := e.director.Scene().Root()
	require.NotNil(t, findElement(root, "topic"))

	// Defaults: 6 spawns at 1.2s apart with up to 0.2s jitter, flight 2.15s.
	// By t=9.0 every token has landed; the cycle itself ends at 9.35+.
	e.director.Advance(9.0)

	assert.Zero(t, countTokens(root))
	for _, id := range []string{"gauge-p0", "gauge-p1", "gauge-p2"} {
		gauge := findElement(root, id)
		require.NotNil(t, gauge, id)
		assert.Zero(t, gauge.PropOr("width", -1), id)
	}
	assert.NotContains(t, e.director.Frame(), "msg-")
}

// Sequential consumption keeps lag bouncing between one and zero: each
// record commits before the next spawn, so a full cycle ends with the
// committed offset caught up to the latest.
func TestOffsetsCommitSequentially(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.director.SelectLesson(context.Background(), lesson.SlugOffsetsLag))

	root := e.director.Scene().Root()
	offsets := findElement(root, "offsets")
	require.NotNil(t, offsets)

	// First record appended but not yet committed.
	e.director.Advance(0.01)
	assert.Equal(t, "latest 1 · committed 0", offsets.Text())
	assert.Equal(t, 1, countTokens(root))

	// Defaults: 5 spawns at 2.0s apart, flight 1.6s; the last commits at 9.6.
	e.director.Advance(9.8)
	assert.Equal(t, "latest 5 · committed 5", offsets.Text())
	assert.Zero(t, countTokens(root))

	// Lag gauge is back to zero width.
	lag := findElement(root, "gauge-lag")
	require.NotNil(t, lag)
	assert.Zero(t, lag.PropOr("width", -1))
}

// Growing the group from one consumer to two pauses spawning for the
// rebalance window, then hands partition 2 to the new member.
func TestRebalanceReassignsAndSuppressesSpawns(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.director.SelectLesson(ctx, lesson.SlugConsumerGroups))

	root := e.director.Scene().Root()
	assign := findElement(root, "assign-p2")
	require.NotNil(t, assign)
	require.Equal(t, "P2 -> C0", assign.Text())

	done := make(chan bool, 1)
	go func() { done <- e.director.Rebalance(ctx, 2) }()

	// The default rebalance pause is 1.5s; once the banner is up, spawns
	// are declined even as the clock advances.
	banner := findElement(root, "rebalance-banner")
	require.NotNil(t, banner)
	require.Eventually(t, func() bool {
		return banner.PropOr("opacity", 0) == 1
	}, 2*time.Second, 10*time.Millisecond)

	e.director.Advance(2.5)
	assert.Zero(t, countTokens(root))

	select {
	case changed := <-done:
		assert.True(t, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("rebalance did not finish")
	}

	assert.Equal(t, "P2 -> C1", assign.Text())
	assert.Equal(t, float64(0), banner.PropOr("opacity", -1))

	// A second identical rebalance changes nothing.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, e.director.Rebalance(cancelled, 2))
}
