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

// replication shows the broker side: writes land on the partition leader,
// then fan out to follower replicas, and the record only counts as fully
// replicated once every follower has its copy.
type replication struct {
	*scene.Base

	d  Descriptor
	rt *sim.Runtime

	producer  *entity.Producer
	leader    *entity.Broker
	followers []*entity.Broker
	infos     map[string]entity.Info
}

func newReplication(cfg scene.Config, d Descriptor, _ *rand.Rand) scene.Scene {
	l := &replication{d: d}
	l.Base = scene.NewBase(cfg, l)
	return l
}

func (l *replication) Title() string       { return l.d.Title }
func (l *replication) Description() string { return l.d.Description }

func (l *replication) Setup(ctx context.Context) error {
	l.rt = sim.NewRuntime(1, sim.NewRoundRobin(1), 1, l.d.HistoryLimit)

	l.NewText("title", 24, 36, l.d.Title, map[string]string{
		"font-size": "18", "fill": "#e7e5e4",
	})

	l.producer = entity.NewProducer("producer", 60, 200)
	l.AddElement("producer", l.producer.Element())

	l.leader = entity.NewBroker("broker-1", true, 340, 200)
	l.AddElement("broker-1", l.leader.Element())
	l.followers = []*entity.Broker{
		entity.NewBroker("broker-2", false, 620, 110),
		entity.NewBroker("broker-3", false, 620, 290),
	}
	l.infos = map[string]entity.Info{
		"producer": l.producer.Describe(),
		"broker-1": l.leader.Describe(),
	}
	for i, f := range l.followers {
		id := fmt.Sprintf("broker-%d", i+2)
		l.AddElement(id, f.Element())
		l.infos[id] = f.Describe()
		addFlowLine(l.Base, "flow-"+id, l.leader.OutputPoint(), f.InputPoint())
	}
	addFlowLine(l.Base, "flow-in", l.producer.OutputPoint(), l.leader.InputPoint())

	l.NewText("replicated", 340, 320, "replicated 0", map[string]string{
		"font-size": "12", "fill": "#94a3b8",
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

func (l *replication) spawn() {
	rec, ok := l.rt.Spawn("")
	if !ok {
		return
	}
	tl := l.Animator().Timeline()
	if tl == nil {
		return
	}

	label := fmt.Sprintf("%d", rec.Offset)
	msg := entity.NewMessage(label, partitionColor(0), l.producer.OutputPoint())
	id := tokenPrefix + uuid.NewString()
	el := l.AddElement(id, msg.Element())

	anim.MoveAlongArc(tl, el, l.d.TravelTime, l.producer.OutputPoint(), l.leader.InputPoint(), 24, func() {
		anim.Pulse(tl, el, l.d.BeatTime, 1, 0.25, func() {
			l.RemoveElement(id)
			l.replicate(rec, label)
		})
	})
}

// replicate fans one copy out to every follower; the record commits once
// all copies have landed.
func (l *replication) replicate(rec sim.Record, label string) {
	tl := l.Animator().Timeline()
	if tl == nil {
		return
	}
	pending := len(l.followers)
	for i, follower := range l.followers {
		curve := 24.0
		if i%2 == 1 {
			curve = -24
		}
		copyID := tokenPrefix + uuid.NewString()
		copyEl := l.AddElement(copyID, entity.NewMessage(label, "#a78bfa", l.leader.OutputPoint()).Element())
		anim.MoveAlongArc(tl, copyEl, l.d.TravelTime, l.leader.OutputPoint(), follower.InputPoint(), curve, func() {
			anim.AnimateTo(tl, copyEl, l.d.FadeTime, map[string]float64{"opacity": 0, "scale": 0.3}, func() {
				l.RemoveElement(copyID)
				pending--
				if pending == 0 {
					l.rt.Consume(rec)
					setCounterText(l.Base, "replicated", "replicated %d", l.rt.Consumed())
				}
			})
		})
	}
}

func (l *replication) OnReset() {
	l.rt.Reset()
	clearTokens(l.Base)
	setCounterText(l.Base, "replicated", "replicated 0")
}

func (l *replication) Select(id string) bool {
	return publishInfo(l.Base, l.infos, id)
}
