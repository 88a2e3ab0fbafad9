package lesson

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/kafkaviz/kafkaviz-server-go/internal/anim"
	"github.com/kafkaviz/kafkaviz-server-go/internal/entity"
	"github.com/kafkaviz/kafkaviz-server-go/internal/scene"
	"github.com/kafkaviz/kafkaviz-server-go/internal/sim"
)

// offsetsLag shows the gap between latest and committed offsets. The spawn
// interval outlasts the flight time, so records commit one at a time and the
// lag gauge breathes between 1 and 0.
type offsetsLag struct {
	*scene.Base

	d  Descriptor
	rt *sim.Runtime

	producer *entity.Producer
	topic    *entity.Topic
	consumer *entity.Consumer
	infos    map[string]entity.Info
}

func newOffsetsLag(cfg scene.Config, d Descriptor, _ *rand.Rand) scene.Scene {
	l := &offsetsLag{d: d}
	l.Base = scene.NewBase(cfg, l)
	return l
}

func (l *offsetsLag) Title() string       { return l.d.Title }
func (l *offsetsLag) Description() string { return l.d.Description }

func (l *offsetsLag) Setup(ctx context.Context) error {
	l.rt = sim.NewRuntime(1, sim.NewRoundRobin(1), 1, l.d.HistoryLimit)

	l.NewText("title", 24, 36, l.d.Title, map[string]string{
		"font-size": "18", "fill": "#e7e5e4",
	})

	l.producer = entity.NewProducer("producer", 60, 200)
	l.AddElement("producer", l.producer.Element())
	l.topic = entity.NewTopic("orders", 290, 180, 240, 1)
	l.AddElement("topic", l.topic.Element())
	l.consumer = entity.NewConsumer("consumer", "group-a", 640, 200)
	l.AddElement("consumer", l.consumer.Element())

	addFlowLine(l.Base, "flow-in", l.producer.OutputPoint(), l.topic.EntryPoint(0))
	addFlowLine(l.Base, "flow-out", l.topic.ExitPoint(0), l.consumer.InputPoint())

	l.infos = map[string]entity.Info{
		"producer": l.producer.Describe(),
		"topic":    l.topic.Describe(),
		"consumer": l.consumer.Describe(),
	}

	l.NewText("offsets", 290, 300, "latest 0 · committed 0", map[string]string{
		"font-size": "12", "fill": "#94a3b8",
	})
	addGauge(l.Base, "gauge-lag", "lag", 360, 320, "#f87171")
	l.NewText("history", 290, 370, "history: -", map[string]string{
		"font-size": "11", "fill": "#78716c",
	})

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

func (l *offsetsLag) spawn() {
	rec, ok := l.rt.Spawn("")
	if !ok {
		return
	}
	msg := entity.NewMessage(fmt.Sprintf("%d", rec.Offset), partitionColor(rec.Partition), l.producer.OutputPoint())
	launchToken(l.Base, l.d, msg, tokenPrefix+uuid.NewString(), flightPath{
		from: l.producer.OutputPoint(),
		rest: l.topic.RestPoint(rec.Partition),
		to:   l.consumer.InputPoint(),
	}, func() {
		l.rt.Consume(rec)
		l.updateReadouts()
	})
	l.updateReadouts()
}

func (l *offsetsLag) updateReadouts() {
	p := &l.rt.Partitions[0]
	setCounterText(l.Base, "offsets", "latest %d · committed %d", p.LatestOffset, p.CommittedOffset)
	setGauge(l.Base, "gauge-lag", int(p.Lag()))

	entries := "-"
	if len(l.rt.Histories) > 0 {
		if got := l.rt.Histories[0].Entries(); len(got) > 0 {
			entries = strings.Join(got, "  ")
		}
	}
	setCounterText(l.Base, "history", "history: %s", entries)
}

func (l *offsetsLag) OnReset() {
	l.rt.Reset()
	clearTokens(l.Base)
	l.updateReadouts()
}

func (l *offsetsLag) Select(id string) bool {
	return publishInfo(l.Base, l.infos, id)
}
