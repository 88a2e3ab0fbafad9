package server

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kafkaviz/kafkaviz-server-go/internal/bus"
	"github.com/kafkaviz/kafkaviz-server-go/internal/entity"
	"github.com/kafkaviz/kafkaviz-server-go/internal/lesson"
)

func newTestDirector(t *testing.T) (*Director, *bus.Bus) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	b := bus.New(logger)
	catalog := lesson.NewCatalog("", logger)
	d := NewDirector(b, catalog, 4, logger)
	t.Cleanup(d.Close)
	return d, b
}

func TestSelectLessonUnknownSlugKeepsCurrentScene(t *testing.T) {
	d, _ := newTestDirector(t)
	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugProducerConsumer))

	err := d.SelectLesson(context.Background(), "no-such-lesson")
	require.ErrorIs(t, err, lesson.ErrNotFound)
	assert.Equal(t, lesson.SlugProducerConsumer, d.CurrentSlug())
}

func TestSelectLessonPublishesChange(t *testing.T) {
	d, b := newTestDirector(t)

	var changed []string
	b.Subscribe(bus.TopicLessonChanged, func(payload any) {
		changed = append(changed, payload.(string))
	})

	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugOffsetsLag))
	assert.Equal(t, []string{lesson.SlugOffsetsLag}, changed)
	assert.Equal(t, lesson.SlugOffsetsLag, d.CurrentSlug())

	// Re-selecting the active lesson is a no-op.
	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugOffsetsLag))
	assert.Len(t, changed, 1)
}

func TestTransportStateCarriesAcrossLessonSwitch(t *testing.T) {
	d, _ := newTestDirector(t)
	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugProducerConsumer))

	d.Play()
	d.SetSpeed(2)
	require.True(t, d.Playing())

	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugMessageKeys))
	assert.True(t, d.Playing())
	assert.Equal(t, 2.0, d.Speed())
}

func TestToggleFlipsPlayback(t *testing.T) {
	d, _ := newTestDirector(t)
	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugProducerConsumer))

	assert.True(t, d.Toggle())
	assert.True(t, d.Playing())
	assert.False(t, d.Toggle())
	assert.False(t, d.Playing())
}

func TestSetSpeedClampsToMax(t *testing.T) {
	d, _ := newTestDirector(t)
	d.SetSpeed(100)
	assert.Equal(t, 4.0, d.Speed())

	d.SetSpeed(-1)
	assert.Equal(t, 4.0, d.Speed())

	d.SetSpeed(0.5)
	assert.Equal(t, 0.5, d.Speed())
}

func TestSelectEntityPublishesInfo(t *testing.T) {
	d, b := newTestDirector(t)
	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugProducerConsumer))

	var got entity.Info
	b.Subscribe(bus.TopicEntitySelected, func(payload any) {
		got = payload.(entity.Info)
	})

	assert.True(t, d.SelectEntity("producer"))
	assert.Equal(t, "producer", got.Kind)
	assert.False(t, d.SelectEntity("nope"))
}

func TestSelectEntityWithoutSceneIsSafe(t *testing.T) {
	d, _ := newTestDirector(t)
	assert.False(t, d.SelectEntity("producer"))
}

func TestFrameRendersActiveScene(t *testing.T) {
	d, _ := newTestDirector(t)

	empty := d.Frame()
	assert.True(t, strings.HasPrefix(empty, "<svg"))

	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugProducerConsumer))
	frame := d.Frame()
	assert.Contains(t, frame, `id="producer"`)
	assert.Contains(t, frame, `id="consumer"`)
}

func TestSelectLessonDestroysOutgoingBeforeInit(t *testing.T) {
	d, b := newTestDirector(t)
	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugProducerConsumer))

	old := d.Scene().(interface {
		Initialized() bool
		ElementCount() int
	})

	// The ready announcement for the incoming scene fires inside Init; by
	// then the outgoing scene must already be torn down.
	oldLiveAtReady := false
	b.Subscribe(bus.TopicSceneReady, func(any) {
		oldLiveAtReady = old.Initialized() || old.ElementCount() > 0
	})

	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugOffsetsLag))
	assert.False(t, oldLiveAtReady)
	assert.Equal(t, lesson.SlugOffsetsLag, d.CurrentSlug())
}

func TestRebalanceForwardsToConsumerGroupLesson(t *testing.T) {
	d, _ := newTestDirector(t)
	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugProducerConsumer))
	assert.False(t, d.Rebalance(context.Background(), 2))

	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugConsumerGroups))

	// A cancelled context skips the rebalance pause.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, d.Rebalance(ctx, 2))
}

func TestCloseDestroysScene(t *testing.T) {
	d, _ := newTestDirector(t)
	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugProducerConsumer))
	d.Close()
	assert.Empty(t, d.CurrentSlug())
	assert.False(t, d.Playing())
}
