package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPublishWithoutSubscribersIsNoOp(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	assert.NotPanics(t, func() {
		b.Publish("never-registered", 42)
		b.Publish(TopicSceneReset, nil)
	})
}

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	var order []int
	b.Subscribe("tick", func(any) { order = append(order, 1) })
	b.Subscribe("tick", func(any) { order = append(order, 2) })
	b.Subscribe("tick", func(any) { order = append(order, 3) })

	b.Publish("tick", nil)

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestUnsubscribeRemovesExactlyOneRegistration(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	calls := 0
	handler := func(any) { calls++ }

	unsub1 := b.Subscribe("tick", handler)
	b.Subscribe("tick", handler)
	require.Equal(t, 2, b.SubscriberCount("tick"))

	unsub1()
	assert.Equal(t, 1, b.SubscriberCount("tick"))

	// A second call on the same handle must not remove the other registration.
	unsub1()
	assert.Equal(t, 1, b.SubscriberCount("tick"))

	b.Publish("tick", nil)
	assert.Equal(t, 1, calls)
}

func TestLastUnsubscribeDropsMapEntry(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	unsub := b.Subscribe("tick", func(any) {})
	unsub()

	b.mu.Lock()
	_, present := b.subs["tick"]
	b.mu.Unlock()
	assert.False(t, present, "empty subscriber list should be removed")
}

func TestSubscribeOnceFiresExactlyOnce(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	calls := 0
	b.SubscribeOnce("tick", func(any) { calls++ })

	b.Publish("tick", nil)
	b.Publish("tick", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.SubscriberCount("tick"))
}

func TestPanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	var delivered []string
	b.Subscribe("tick", func(any) { delivered = append(delivered, "first") })
	b.Subscribe("tick", func(any) { panic("boom") })
	b.Subscribe("tick", func(any) { delivered = append(delivered, "third") })

	assert.NotPanics(t, func() { b.Publish("tick", nil) })
	assert.Equal(t, []string{"first", "third"}, delivered)
}

func TestReentrantSubscribeDuringPublish(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	lateCalls := 0
	b.Subscribe("tick", func(any) {
		b.Subscribe("tick", func(any) { lateCalls++ })
	})

	// The handler registered mid-publish must not run in the same delivery.
	b.Publish("tick", nil)
	assert.Equal(t, 0, lateCalls)

	b.Publish("tick", nil)
	assert.Equal(t, 1, lateCalls)
}

func TestReentrantUnsubscribeDuringPublish(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	var unsubSecond func()
	secondCalls := 0

	b.Subscribe("tick", func(any) { unsubSecond() })
	unsubSecond = b.Subscribe("tick", func(any) { secondCalls++ })

	// Both handlers were registered when Publish started, so the snapshot
	// still delivers to the second one this time.
	b.Publish("tick", nil)
	assert.Equal(t, 1, secondCalls)

	b.Publish("tick", nil)
	assert.Equal(t, 1, secondCalls)
}

func TestPayloadPassedThroughOpaque(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	var got any
	b.Subscribe(TopicSceneReady, func(payload any) { got = payload })

	want := SceneReady{Title: "Producers & Consumers", Description: "the basics"}
	b.Publish(TopicSceneReady, want)

	assert.Equal(t, want, got)
}

func TestResetDropsAllRegistrations(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	calls := 0
	b.Subscribe("a", func(any) { calls++ })
	b.Subscribe("b", func(any) { calls++ })

	b.Reset()

	b.Publish("a", nil)
	b.Publish("b", nil)
	assert.Equal(t, 0, calls)
}

func TestNilHandlerIsIgnored(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	unsub := b.Subscribe("tick", nil)
	assert.NotPanics(t, unsub)
	assert.Equal(t, 0, b.SubscriberCount("tick"))

	unsub = b.SubscribeOnce("tick", nil)
	assert.NotPanics(t, unsub)
	assert.Equal(t, 0, b.SubscriberCount("tick"))
}

func TestNetRegistrationCountMatchesSubscribesMinusMatchedUnsubscribes(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	var unsubs []func()
	for i := 0; i < 5; i++ {
		unsubs = append(unsubs, b.Subscribe("tick", func(any) {}))
	}
	require.Equal(t, 5, b.SubscriberCount("tick"))

	unsubs[1]()
	unsubs[3]()
	assert.Equal(t, 3, b.SubscriberCount("tick"))

	// Repeats of already-matched unsubscribes do not change the count.
	unsubs[1]()
	unsubs[3]()
	assert.Equal(t, 3, b.SubscriberCount("tick"))
}
