package lesson

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/kafkaviz/kafkaviz-server-go/internal/anim"
	"github.com/kafkaviz/kafkaviz-server-go/internal/entity"
	"github.com/kafkaviz/kafkaviz-server-go/internal/scene"
	"github.com/kafkaviz/kafkaviz-server-go/internal/sim"
)

// messageKeys shows key-based routing: records carrying the same key always
// land in the same partition, shown with a fixed key->partition legend.
type messageKeys struct {
	*scene.Base

	d    Descriptor
	rt   *sim.Runtime
	keys []string

	producer  *entity.Producer
	topic     *entity.Topic
	consumers []*entity.Consumer
	infos     map[string]entity.Info
}

func newMessageKeys(cfg scene.Config, d Descriptor, _ *rand.Rand) scene.Scene {
	l := &messageKeys{d: d}
	l.Base = scene.NewBase(cfg, l)
	return l
}

func (l *messageKeys) Title() string       { return l.d.Title }
func (l *messageKeys) Description() string { return l.d.Description }

func (l *messageKeys) Setup(ctx context.Context) error {
	table := l.d.KeyTable
	if len(table) == 0 {
		// A sparse descriptor override can drop the table entirely;
		// routing needs at least one key, so fall back to the built-in set.
		table = Defaults()[SlugMessageKeys].KeyTable
	}
	router := sim.NewKeyTable(table)
	l.rt = sim.NewRuntime(l.d.Partitions, router, l.d.Consumers, l.d.HistoryLimit)

	// Fixed key rotation so every cycle tells the same routing story.
	l.keys = router.Keys()
	sort.Strings(l.keys)

	l.NewText("title", 24, 36, l.d.Title, map[string]string{
		"font-size": "18", "fill": "#e7e5e4",
	})

	l.producer = entity.NewProducer("producer", 60, 190)
	l.AddElement("producer", l.producer.Element())
	l.topic = entity.NewTopic("users", 290, 120, 240, l.d.Partitions)
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

	for i, key := range l.keys {
		l.NewText(fmt.Sprintf("legend-%d", i), 290, 350+float64(i)*18,
			fmt.Sprintf("%s -> P%d", key, router.Route(key)), map[string]string{
				"font-size": "11", "fill": partitionColor(router.Route(key)),
			})
	}

	tl := l.Animator().CreateTimeline(anim.Options{
		Duration:    l.d.CycleLength(),
		Repeat:      anim.RepeatInfinite,
		RepeatDelay: l.d.RepeatDelay,
	})
	for i := 0; i < l.d.SpawnsPerCycle; i++ {
		key := l.keys[i%len(l.keys)]
		tl.Call(float64(i)*l.d.SpawnInterval, func() { l.spawn(key) })
	}
	return nil
}

func (l *messageKeys) spawn(key string) {
	rec, ok := l.rt.Spawn(key)
	if !ok {
		return
	}
	consumer := l.consumers[rec.Consumer%len(l.consumers)]
	label := key
	if len(label) > 0 {
		label = string(label[len(label)-1])
	}
	msg := entity.NewMessage(label, partitionColor(rec.Partition), l.producer.OutputPoint())
	launchToken(l.Base, l.d, msg, tokenPrefix+uuid.NewString(), flightPath{
		from: l.producer.OutputPoint(),
		rest: l.topic.RestPoint(rec.Partition),
		to:   consumer.InputPoint(),
	}, func() {
		l.rt.Consume(rec)
	})
}

func (l *messageKeys) OnReset() {
	l.rt.Reset()
	clearTokens(l.Base)
}

func (l *messageKeys) Select(id string) bool {
	return publishInfo(l.Base, l.infos, id)
}
