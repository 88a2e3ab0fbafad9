package lesson

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/kafkaviz/kafkaviz-server-go/internal/anim"
	"github.com/kafkaviz/kafkaviz-server-go/internal/entity"
	"github.com/kafkaviz/kafkaviz-server-go/internal/scene"
	"github.com/kafkaviz/kafkaviz-server-go/internal/sim"
)

// producerConsumer is the opening lesson: one producer, one single-partition
// topic, one consumer, and a steady stream of tokens between them.
type producerConsumer struct {
	*scene.Base

	d  Descriptor
	rt *sim.Runtime

	producer *entity.Producer
	topic    *entity.Topic
	consumer *entity.Consumer
	infos    map[string]entity.Info
}

func newProducerConsumer(cfg scene.Config, d Descriptor, _ *rand.Rand) scene.Scene {
	l := &producerConsumer{d: d}
	l.Base = scene.NewBase(cfg, l)
	return l
}

func (l *producerConsumer) Title() string       { return l.d.Title }
func (l *producerConsumer) Description() string { return l.d.Description }

func (l *producerConsumer) Setup(ctx context.Context) error {
	l.rt = sim.NewRuntime(1, sim.NewRoundRobin(1), 1, l.d.HistoryLimit)

	l.NewText("title", 24, 36, l.d.Title, map[string]string{
		"font-size": "18", "fill": "#e7e5e4",
	})

	l.producer = entity.NewProducer("producer", 60, 200)
	l.AddElement("producer", l.producer.Element())
	l.topic = entity.NewTopic("orders", 300, 180, 220, 1)
	l.AddElement("topic", l.topic.Element())
	l.consumer = entity.NewConsumer("consumer", "", 640, 200)
	l.AddElement("consumer", l.consumer.Element())

	addFlowLine(l.Base, "flow-in", l.producer.OutputPoint(), l.topic.EntryPoint(0))
	addFlowLine(l.Base, "flow-out", l.topic.ExitPoint(0), l.consumer.InputPoint())

	l.NewText("counter", 300, 320, "produced 0 · consumed 0", map[string]string{
		"font-size": "12", "fill": "#94a3b8",
	})

	l.infos = map[string]entity.Info{
		"producer": l.producer.Describe(),
		"topic":    l.topic.Describe(),
		"consumer": l.consumer.Describe(),
	}

	tl := l.Animator().CreateTimeline(anim.Options{
		Duration:    l.d.CycleLength(),
		Repeat:      anim.RepeatInfinite,
		RepeatDelay: l.d.RepeatDelay,
	})
	for i := 0; i < l.d.SpawnsPerCycle; i++ {
		tl.Call(float64(i)*l.d.SpawnInterval, l.spawn)
	}
	return nil
}

func (l *producerConsumer) spawn() {
	rec, ok := l.rt.Spawn("")
	if !ok {
		return
	}
	msg := entity.NewMessage(fmt.Sprintf("%d", rec.Seq), partitionColor(rec.Partition), l.producer.OutputPoint())
	launchToken(l.Base, l.d, msg, tokenPrefix+uuid.NewString(), flightPath{
		from: l.producer.OutputPoint(),
		rest: l.topic.RestPoint(rec.Partition),
		to:   l.consumer.InputPoint(),
	}, func() {
		l.rt.Consume(rec)
		l.updateCounter()
	})
	l.updateCounter()
}

func (l *producerConsumer) updateCounter() {
	setCounterText(l.Base, "counter", "produced %d · consumed %d", l.rt.Spawned(), l.rt.Consumed())
}

func (l *producerConsumer) OnReset() {
	l.rt.Reset()
	clearTokens(l.Base)
	l.updateCounter()
}

func (l *producerConsumer) Select(id string) bool {
	return publishInfo(l.Base, l.infos, id)
}
