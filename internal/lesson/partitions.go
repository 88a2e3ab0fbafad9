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

// topicsPartitions shows round-robin spread over a multi-lane topic, with a
// per-partition load gauge tracking records still in flight.
type topicsPartitions struct {
	*scene.Base

	d   Descriptor
	rng *rand.Rand
	rt  *sim.Runtime

	producer  *entity.Producer
	topic     *entity.Topic
	consumers []*entity.Consumer
	infos     map[string]entity.Info
}

func newTopicsPartitions(cfg scene.Config, d Descriptor, rng *rand.Rand) scene.Scene {
	l := &topicsPartitions{d: d, rng: rng}
	l.Base = scene.NewBase(cfg, l)
	return l
}

func (l *topicsPartitions) Title() string       { return l.d.Title }
func (l *topicsPartitions) Description() string { return l.d.Description }

func (l *topicsPartitions) Setup(ctx context.Context) error {
	l.rt = sim.NewRuntime(l.d.Partitions, sim.NewRoundRobin(l.d.Partitions), l.d.Consumers, l.d.HistoryLimit)

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

	for p := 0; p < l.d.Partitions; p++ {
		addGauge(l.Base, fmt.Sprintf("gauge-p%d", p), fmt.Sprintf("P%d", p),
			360, 340+float64(p)*20, partitionColor(p))
	}

	tl := l.Animator().CreateTimeline(anim.Options{
		Duration:    l.d.CycleLength(),
		Repeat:      anim.RepeatInfinite,
		RepeatDelay: l.d.RepeatDelay,
	})
	for i := 0; i < l.d.SpawnsPerCycle; i++ {
		at := float64(i) * l.d.SpawnInterval
		if l.d.Jitter > 0 {
			at += l.rng.Float64() * l.d.Jitter
		}
		tl.Call(at, l.spawn)
	}
	return nil
}

func (l *topicsPartitions) spawn() {
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
		l.updateGauges()
	})
	l.updateGauges()
}

func (l *topicsPartitions) updateGauges() {
	for p := range l.rt.Partitions {
		setGauge(l.Base, fmt.Sprintf("gauge-p%d", p), l.rt.Partitions[p].Load)
	}
}

func (l *topicsPartitions) OnReset() {
	l.rt.Reset()
	clearTokens(l.Base)
	l.updateGauges()
}

func (l *topicsPartitions) Select(id string) bool {
	return publishInfo(l.Base, l.infos, id)
}
