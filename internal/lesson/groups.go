package lesson

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kafkaviz/kafkaviz-server-go/internal/anim"
	"github.com/kafkaviz/kafkaviz-server-go/internal/entity"
	"github.com/kafkaviz/kafkaviz-server-go/internal/scene"
	"github.com/kafkaviz/kafkaviz-server-go/internal/sim"
)

// consumerGroups shows group membership and rebalancing: partitions are
// reassigned contiguously as consumers join, and spawning pauses while the
// group rebalances. The rebalance pause runs on its own goroutine, so all
// runtime access is guarded by a mutex.
type consumerGroups struct {
	*scene.Base

	d  Descriptor
	mu sync.Mutex
	rt *sim.Runtime

	// ctx spans one Init/Destroy cycle and stops the detached rebalance
	// goroutine when the scene is torn down mid-pause.
	ctx    context.Context
	cancel context.CancelFunc

	active int

	producer  *entity.Producer
	topic     *entity.Topic
	consumers []*entity.Consumer
	infos     map[string]entity.Info
}

func newConsumerGroups(cfg scene.Config, d Descriptor, _ *rand.Rand) scene.Scene {
	l := &consumerGroups{d: d}
	l.Base = scene.NewBase(cfg, l)
	return l
}

func (l *consumerGroups) Title() string       { return l.d.Title }
func (l *consumerGroups) Description() string { return l.d.Description }

func (l *consumerGroups) Setup(ctx context.Context) error {
	// Not derived from the Setup ctx: that one ends with the select
	// request, while rebalances outlive it.
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.active = 1
	l.rt = sim.NewRuntime(l.d.Partitions, sim.NewRoundRobin(l.d.Partitions), l.active, l.d.HistoryLimit)

	l.NewText("title", 24, 36, l.d.Title, map[string]string{
		"font-size": "18", "fill": "#e7e5e4",
	})

	l.producer = entity.NewProducer("producer", 60, 190)
	l.AddElement("producer", l.producer.Element())
	l.topic = entity.NewTopic("orders", 290, 120, 240, l.d.Partitions)
	l.AddElement("topic", l.topic.Element())

	l.infos = map[string]entity.Info{
		"producer": l.producer.Describe(),
		"topic":    l.topic.Describe(),
	}

	l.consumers = make([]*entity.Consumer, l.d.Consumers)
	for i := range l.consumers {
		id := fmt.Sprintf("consumer-%d", i)
		c := entity.NewConsumer(id, "group-a", 640, 110+float64(i)*80)
		l.consumers[i] = c
		l.AddElement(id, c.Element())
		l.infos[id] = c.Describe()
	}

	banner := l.NewText("rebalance-banner", 290, 350, "rebalancing...", map[string]string{
		"font-size": "13", "fill": "#fbbf24",
	})
	banner.SetProp("opacity", 0)

	for p := 0; p < l.d.Partitions; p++ {
		addFlowLine(l.Base, fmt.Sprintf("flow-in-p%d", p), l.producer.OutputPoint(), l.topic.EntryPoint(p))
		addFlowLine(l.Base, fmt.Sprintf("flow-out-p%d", p), l.topic.ExitPoint(p), l.topic.ExitPoint(p))
	}

	for p := 0; p < l.d.Partitions; p++ {
		l.NewText(fmt.Sprintf("assign-p%d", p), 560, 130+float64(p)*float64(entity.LaneHeight)+8, "", map[string]string{
			"font-size": "11", "fill": "#94a3b8",
		})
	}
	l.redraw()

	tl := l.Animator().CreateTimeline(anim.Options{
		Duration:    l.d.CycleLength(),
		Repeat:      anim.RepeatInfinite,
		RepeatDelay: l.d.RepeatDelay,
	})
	for i := 0; i < l.d.SpawnsPerCycle; i++ {
		tl.Call(float64(i)*l.d.SpawnInterval, l.spawn)
	}
	// Grow the group one member per cycle, wrapping back to a single
	// consumer; the flight window leaves room before the cycle ends.
	tl.Call(float64(l.d.SpawnsPerCycle)*l.d.SpawnInterval, func() {
		l.mu.Lock()
		next := l.active%len(l.consumers) + 1
		l.mu.Unlock()
		go l.Rebalance(l.ctx, next)
	})
	return nil
}

// Rebalance pauses spawning, waits out the configured rebalance window,
// reassigns partitions for n consumers and resumes. It reports whether the
// assignment table changed. Concurrent calls beyond the first are dropped.
func (l *consumerGroups) Rebalance(ctx context.Context, n int) bool {
	if n < 1 {
		n = 1
	}
	if n > len(l.consumers) {
		n = len(l.consumers)
	}

	l.mu.Lock()
	if l.rt.Rebalancing() {
		l.mu.Unlock()
		return false
	}
	l.rt.BeginRebalance()
	l.setBanner(true)
	l.mu.Unlock()

	if l.d.RebalancePause > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(l.d.RebalancePause * float64(time.Second))):
		}
	}

	// The scene may have been destroyed during the pause; unwind without
	// touching its state.
	if l.ctx != nil && l.ctx.Err() != nil {
		l.mu.Lock()
		l.rt.EndRebalance()
		l.mu.Unlock()
		return false
	}

	l.mu.Lock()
	changed := l.rt.Reassign(n)
	l.active = n
	l.redraw()
	l.setBanner(false)
	l.rt.EndRebalance()
	l.mu.Unlock()
	return changed
}

// Active returns the current consumer count.
func (l *consumerGroups) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Assignments returns a copy of the current partition->consumer table.
func (l *consumerGroups) Assignments() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rt.AssignmentTable()
}

func (l *consumerGroups) spawn() {
	l.mu.Lock()
	rec, ok := l.rt.Spawn("")
	l.mu.Unlock()
	if !ok {
		return
	}
	consumer := l.consumers[rec.Consumer%len(l.consumers)]
	msg := entity.NewMessage(fmt.Sprintf("%d", rec.Seq), partitionColor(rec.Partition), l.producer.OutputPoint())
	launchToken(l.Base, l.d, msg, tokenPrefix+uuid.NewString(), flightPath{
		from: l.producer.OutputPoint(),
		rest: l.topic.RestPoint(rec.Partition),
		to:   consumer.InputPoint(),
	}, func() {
		l.mu.Lock()
		l.rt.Consume(rec)
		l.mu.Unlock()
	})
}

// redraw and setBanner require l.mu held (or single-threaded Setup).
func (l *consumerGroups) redraw() {
	for i, c := range l.consumers {
		c.SetVisible(i < l.active)
	}
	for p := 0; p < l.d.Partitions; p++ {
		owner := l.rt.ConsumerFor(p)
		setCounterText(l.Base, fmt.Sprintf("assign-p%d", p), "P%d -> C%d", p, owner)
		retargetFlowLine(l.Base, fmt.Sprintf("flow-out-p%d", p),
			l.consumers[owner%len(l.consumers)].InputPoint())
	}
}

func (l *consumerGroups) setBanner(visible bool) {
	if el := l.GetElement("rebalance-banner"); el != nil {
		opacity := 0.0
		if visible {
			opacity = 1
		}
		el.SetProp("opacity", opacity)
	}
}

// Destroy cancels any pending rebalance before the base teardown.
func (l *consumerGroups) Destroy() {
	if l.cancel != nil {
		l.cancel()
	}
	l.Base.Destroy()
}

func (l *consumerGroups) OnReset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rt.Reset()
	clearTokens(l.Base)
	l.setBanner(false)
	l.redraw()
}

func (l *consumerGroups) Select(id string) bool {
	return publishInfo(l.Base, l.infos, id)
}
