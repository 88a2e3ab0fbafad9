package entity

import (
	"fmt"

	"github.com/kafkaviz/kafkaviz-server-go/internal/anim"
	"github.com/kafkaviz/kafkaviz-server-go/internal/scene"
)

const (
	boxWidth  = 96
	boxHeight = 52
	laneGap   = 8
)

// LaneHeight is the height of one partition lane inside a topic.
const LaneHeight = 26

func newBox(kind, name, fill, stroke string, x, y float64) *scene.Element {
	group := scene.NewElement(scene.KindGroup)
	group.SetProps(map[string]float64{"x": x, "y": y, "opacity": 1, "scale": 1})

	body := scene.NewElement(scene.KindRect)
	body.SetProps(map[string]float64{"x": 0, "y": 0, "width": boxWidth, "height": boxHeight, "opacity": 1})
	body.SetAttrs(map[string]string{"fill": fill, "stroke": stroke, "rx": "6"})

	label := scene.NewElement(scene.KindText)
	label.SetProps(map[string]float64{"x": boxWidth / 2, "y": boxHeight/2 + 4, "opacity": 1})
	label.SetAttrs(map[string]string{"fill": "#f1f5f9", "font-size": "13", "text-anchor": "middle"})
	label.SetText(name)

	group.Append(body, label)
	group.SetAttr("entity", kind)
	return group
}

// Producer is the message source box.
type Producer struct {
	name string
	x, y float64
	el   *scene.Element
}

// NewProducer builds a producer at x,y (top-left).
func NewProducer(name string, x, y float64) *Producer {
	return &Producer{
		name: name,
		x:    x,
		y:    y,
		el:   newBox("producer", name, "#14532d", "#22c55e", x, y),
	}
}

// Element returns the rendered group.
func (p *Producer) Element() *scene.Element { return p.el }

// OutputPoint is where spawned tokens leave: the right edge midpoint.
func (p *Producer) OutputPoint() anim.Point {
	return anim.Point{X: p.x + boxWidth, Y: p.y + boxHeight/2}
}

// Describe returns the info-panel record.
func (p *Producer) Describe() Info {
	return Info{
		Kind:        "producer",
		Title:       p.name,
		Description: "Producers publish records to topics. They choose a partition per record: round-robin, by key, or in sticky batches.",
		Attributes: []Attr{
			{Label: "Role", Value: "Publishes records"},
			{Label: "Partitioning", Value: "Round-robin / key / sticky"},
			{Label: "Acks", Value: "Waits for broker acknowledgement"},
		},
	}
}

// Consumer is a message sink box with an optional group badge.
type Consumer struct {
	name  string
	group string
	x, y  float64
	el    *scene.Element
}

// NewConsumer builds a consumer at x,y. group names the consumer group for
// the info record; empty means standalone.
func NewConsumer(name, group string, x, y float64) *Consumer {
	return &Consumer{
		name:  name,
		group: group,
		x:     x,
		y:     y,
		el:    newBox("consumer", name, "#1e3a8a", "#3b82f6", x, y),
	}
}

// Element returns the rendered group.
func (c *Consumer) Element() *scene.Element { return c.el }

// InputPoint is where tokens arrive: the left edge midpoint.
func (c *Consumer) InputPoint() anim.Point {
	return anim.Point{X: c.x, Y: c.y + boxHeight/2}
}

// SetVisible toggles the consumer's rendering without detaching it;
// rebalancing shows and hides consumers as the group resizes.
func (c *Consumer) SetVisible(visible bool) {
	if visible {
		c.el.SetProp("opacity", 1)
	} else {
		c.el.SetProp("opacity", 0)
	}
}

// Visible reports whether the consumer is currently shown.
func (c *Consumer) Visible() bool {
	return c.el.PropOr("opacity", 1) > 0
}

// Describe returns the info-panel record.
func (c *Consumer) Describe() Info {
	group := c.group
	if group == "" {
		group = "none (standalone)"
	}
	return Info{
		Kind:        "consumer",
		Title:       c.name,
		Description: "Consumers poll assigned partitions and commit offsets as they process records.",
		Attributes: []Attr{
			{Label: "Group", Value: group},
			{Label: "Role", Value: "Fetches and processes records"},
			{Label: "Progress", Value: "Tracked by committed offset"},
		},
	}
}

// Topic is a named box of horizontal partition lanes.
type Topic struct {
	name       string
	x, y       float64
	width      float64
	partitions int
	el         *scene.Element
}

// NewTopic builds a topic at x,y with the given number of partition lanes.
func NewTopic(name string, x, y, width float64, partitions int) *Topic {
	if partitions < 1 {
		partitions = 1
	}
	t := &Topic{name: name, x: x, y: y, width: width, partitions: partitions}

	group := scene.NewElement(scene.KindGroup)
	group.SetProps(map[string]float64{"x": x, "y": y, "opacity": 1, "scale": 1})
	group.SetAttr("entity", "topic")

	title := scene.NewElement(scene.KindText)
	title.SetProps(map[string]float64{"x": width / 2, "y": -10, "opacity": 1})
	title.SetAttrs(map[string]string{"fill": "#f1f5f9", "font-size": "14", "text-anchor": "middle"})
	title.SetText(name)
	group.Append(title)

	for i := 0; i < partitions; i++ {
		laneY := float64(i) * (LaneHeight + laneGap)

		lane := scene.NewElement(scene.KindRect)
		lane.SetProps(map[string]float64{"x": 0, "y": laneY, "width": width, "height": LaneHeight, "opacity": 1})
		lane.SetAttrs(map[string]string{"fill": "#292524", "stroke": "#78716c", "rx": "4"})

		label := scene.NewElement(scene.KindText)
		label.SetProps(map[string]float64{"x": 8, "y": laneY + LaneHeight/2 + 4, "opacity": 1})
		label.SetAttrs(map[string]string{"fill": "#a8a29e", "font-size": "11", "text-anchor": "start"})
		label.SetText(fmt.Sprintf("P%d", i))

		group.Append(lane, label)
	}

	t.el = group
	return t
}

// Element returns the rendered group.
func (t *Topic) Element() *scene.Element { return t.el }

// Partitions returns the lane count.
func (t *Topic) Partitions() int { return t.partitions }

// Height returns the total rendered height of the lanes.
func (t *Topic) Height() float64 {
	return float64(t.partitions)*(LaneHeight+laneGap) - laneGap
}

// EntryPoint is where tokens enter partition i: the lane's left edge.
func (t *Topic) EntryPoint(i int) anim.Point {
	return anim.Point{X: t.x, Y: t.laneCenterY(i)}
}

// ExitPoint is where tokens leave partition i: the lane's right edge.
func (t *Topic) ExitPoint(i int) anim.Point {
	return anim.Point{X: t.x + t.width, Y: t.laneCenterY(i)}
}

// RestPoint is the brief in-lane pause position for partition i.
func (t *Topic) RestPoint(i int) anim.Point {
	return anim.Point{X: t.x + t.width*0.75, Y: t.laneCenterY(i)}
}

func (t *Topic) laneCenterY(i int) float64 {
	if i < 0 {
		i = 0
	}
	if i >= t.partitions {
		i = t.partitions - 1
	}
	return t.y + float64(i)*(LaneHeight+laneGap) + LaneHeight/2
}

// Describe returns the info-panel record.
func (t *Topic) Describe() Info {
	return Info{
		Kind:        "topic",
		Title:       t.name,
		Description: "A topic is a named stream of records, split into partitions. Ordering is guaranteed within a partition, not across the topic.",
		Attributes: []Attr{
			{Label: "Partitions", Value: fmt.Sprintf("%d", t.partitions)},
			{Label: "Ordering", Value: "Per partition"},
			{Label: "Retention", Value: "Records kept until expiry"},
		},
	}
}

// Broker is a Kafka server box; lessons mark one as leader.
type Broker struct {
	name   string
	leader bool
	x, y   float64
	el     *scene.Element
}

// NewBroker builds a broker at x,y.
func NewBroker(name string, leader bool, x, y float64) *Broker {
	fill, stroke := "#3f3f46", "#a1a1aa"
	if leader {
		fill, stroke = "#713f12", "#eab308"
	}
	return &Broker{
		name:   name,
		leader: leader,
		x:      x,
		y:      y,
		el:     newBox("broker", name, fill, stroke, x, y),
	}
}

// Element returns the rendered group.
func (b *Broker) Element() *scene.Element { return b.el }

// Leader reports whether this broker leads the partition.
func (b *Broker) Leader() bool { return b.leader }

// InputPoint is the left edge midpoint.
func (b *Broker) InputPoint() anim.Point {
	return anim.Point{X: b.x, Y: b.y + boxHeight/2}
}

// OutputPoint is the right edge midpoint.
func (b *Broker) OutputPoint() anim.Point {
	return anim.Point{X: b.x + boxWidth, Y: b.y + boxHeight/2}
}

// Center is the box midpoint, used as a replication fan-out origin.
func (b *Broker) Center() anim.Point {
	return anim.Point{X: b.x + boxWidth/2, Y: b.y + boxHeight/2}
}

// Describe returns the info-panel record.
func (b *Broker) Describe() Info {
	role := "Follower: replicates the leader's log"
	if b.leader {
		role = "Leader: serves reads and writes"
	}
	return Info{
		Kind:        "broker",
		Title:       b.name,
		Description: "Brokers store partition replicas. One replica leads; followers replicate it and stand by for failover.",
		Attributes: []Attr{
			{Label: "Role", Value: role},
			{Label: "Replication", Value: "Part of the ISR when caught up"},
		},
	}
}

// Message is a transient token flowing through the pipeline.
type Message struct {
	el *scene.Element
}

// NewMessage builds a token circle at the given point. label is drawn
// inside (a sequence number or key); fill picks the token color.
func NewMessage(label, fill string, at anim.Point) *Message {
	group := scene.NewElement(scene.KindGroup)
	group.SetProps(map[string]float64{"x": at.X, "y": at.Y, "opacity": 1, "scale": 1})
	group.SetAttr("entity", "message")

	dot := scene.NewElement(scene.KindCircle)
	dot.SetProps(map[string]float64{"x": 0, "y": 0, "r": 10, "opacity": 1})
	dot.SetAttrs(map[string]string{"fill": fill, "stroke": "#0f172a"})

	group.Append(dot)
	if label != "" {
		text := scene.NewElement(scene.KindText)
		text.SetProps(map[string]float64{"x": 0, "y": 4, "opacity": 1})
		text.SetAttrs(map[string]string{"fill": "#0f172a", "font-size": "10", "text-anchor": "middle"})
		text.SetText(label)
		group.Append(text)
	}

	return &Message{el: group}
}

// Element returns the rendered group, the tween target for motion.
func (m *Message) Element() *scene.Element { return m.el }

// Describe returns the info-panel record.
func (m *Message) Describe() Info {
	return Info{
		Kind:        "message",
		Title:       "Record",
		Description: "One unit of data in flight: an optional key, a value, and once written, a partition and offset.",
		Attributes: []Attr{
			{Label: "Key", Value: "Optional, drives partitioning"},
			{Label: "Offset", Value: "Assigned on append"},
		},
	}
}
