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

// stickyBatching shows the sticky partitioner: unkeyed records stay on one
// partition for a full batch before the producer rotates to the next lane.
type stickyBatching struct {
	*scene.Base

	d  Descriptor
	rt *sim.Runtime

	producer  *entity.Producer
	topic     *entity.Topic
	consumers []*entity.Consumer
	infos     map[string]entity.Info
}

func newStickyBatching(cfg scene.Config, d Descriptor, _ *rand.Rand) scene.Scene {
	l := &stickyBatching{d: d}
	l.Base = scene.NewBase(cfg, l)
	return l
}

func (l *stickyBatching) Title() string       { return l.d.Title }
func (l *stickyBatching) Description() string { return l.d.Description }

func (l *stickyBatching) Setup(ctx context.Context) error {
	router := sim.NewStickyBatch(l.d.Partitions, l.d.BatchSize)
	l.rt = sim.NewRuntime(l.d.Partitions, router, l.d.Consumers, l.d.HistoryLimit)

	l.NewText("title", 24, 36, l.d.Title, map[string]string{
		"font-size": "18", "fill": "#e7e5e4",
	})
	l.NewText("batch-note", 24, 58, fmt.Sprintf("batch size %d", l.d.BatchSize), map[string]string{
		"font-size": "12", "fill": "#94a3b8",
	})

	l.producer = entity.NewProducer("producer", 60, 190)
	l.AddElement("producer", l.producer.Element())
	l.topic = entity.NewTopic("events", 290, 120, 240, l.d.Partitions)
	l.AddElement("topic", l.topic.Element())

	l.infos = map[string]entity.Info{
		"producer": l.producer.Describe(),
		"topic":    l.topic.Describe(),
	}

	l.consumers = make([]*entity.Consumer, l.d.Consumers)
	for i := range l.consumers {
		id := fmt.Sprintf("consumer-%d", i)
		c := entity.NewConsumer(id, "", 640, 110+float64(i)*80)
		l.consumers[i] = c
		l.AddElement(id, c.Element())
		l.infos[id] = c.Describe()
	}

	for p := 0; p < l.d.Partitions; p++ {
		addFlowLine(l.Base, fmt.Sprintf("flow-in-p%d", p), l.producer.OutputPoint(), l.topic.EntryPoint(p))
		addFlowLine(l.Base, fmt.Sprintf("flow-out-p%d", p), l.topic.ExitPoint(p),
			l.consumers[l.rt.ConsumerFor(p)%len(l.consumers)].InputPoint())
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

func (l *stickyBatching) spawn() {
	rec, ok := l.rt.Spawn("")
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
		l.rt.Consume(rec)
	})
}

func (l *stickyBatching) OnReset() {
	l.rt.Reset()
	clearTokens(l.Base)
}

func (l *stickyBatching) Select(id string) bool {
	return publishInfo(l.Base, l.infos, id)
}
