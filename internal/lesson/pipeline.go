package lesson

import (
	"fmt"
	"strings"

	"github.com/kafkaviz/kafkaviz-server-go/internal/anim"
	"github.com/kafkaviz/kafkaviz-server-go/internal/bus"
	"github.com/kafkaviz/kafkaviz-server-go/internal/entity"
	"github.com/kafkaviz/kafkaviz-server-go/internal/scene"
)

// tokenPrefix tags message-token element ids so reset can sweep them.
const tokenPrefix = "msg-"

// partitionColors cycles token fills per partition.
var partitionColors = []string{"#38bdf8", "#fbbf24", "#f472b6", "#4ade80", "#a78bfa"}

func partitionColor(i int) string {
	if i < 0 {
		i = 0
	}
	return partitionColors[i%len(partitionColors)]
}

// flightPath is one token's three-stop journey.
type flightPath struct {
	from anim.Point
	rest anim.Point
	to   anim.Point
}

// launchToken registers the token and chains its flight: an arc into the
// partition lane, a pulse beat, an arc to the consumer, then shrink/fade
// and removal. done runs after the element is gone.
func launchToken(b *scene.Base, d Descriptor, msg *entity.Message, id string, path flightPath, done func()) {
	tl := b.Animator().Timeline()
	if tl == nil {
		return
	}
	el := b.AddElement(id, msg.Element())

	anim.MoveAlongArc(tl, el, d.TravelTime, path.from, path.rest, 24, func() {
		anim.Pulse(tl, el, d.BeatTime, 1, 0.25, func() {
			anim.MoveAlongArc(tl, el, d.TravelTime, path.rest, path.to, -24, func() {
				anim.AnimateTo(tl, el, d.FadeTime, map[string]float64{"opacity": 0, "scale": 0.3}, func() {
					b.RemoveElement(id)
					if done != nil {
						done()
					}
				})
			})
		})
	})
}

// clearTokens removes every in-flight token element from the scene.
func clearTokens(b *scene.Base) {
	for _, id := range b.ElementIDs() {
		if strings.HasPrefix(id, tokenPrefix) {
			b.RemoveElement(id)
		}
	}
}

// publishInfo publishes the registered info record for id; false when the
// id names nothing selectable.
func publishInfo(b *scene.Base, infos map[string]entity.Info, id string) bool {
	info, ok := infos[id]
	if !ok {
		return false
	}
	if b.Bus() != nil {
		b.Bus().Publish(bus.TopicEntitySelected, info)
	}
	return true
}

// addFlowLine draws a muted dashed connector between two attachment points.
func addFlowLine(b *scene.Base, id string, from, to anim.Point) {
	b.NewLine(id, from.X, from.Y, to.X, to.Y, map[string]string{
		"stroke": "#44403c", "stroke-dasharray": "4 4",
	})
}

// retargetFlowLine moves an existing connector's far end.
func retargetFlowLine(b *scene.Base, id string, to anim.Point) {
	if el := b.GetElement(id); el != nil {
		el.SetProps(map[string]float64{"x2": to.X, "y2": to.Y})
	}
}

// gauge bar geometry.
const (
	gaugeUnit = 14
	gaugeMax  = 8
)

// addGauge draws a labeled horizontal bar whose width tracks a count.
func addGauge(b *scene.Base, id, label string, x, y float64, fill string) {
	b.NewText(id+"-label", x-8, y+9, label, map[string]string{
		"text-anchor": "end", "font-size": "11", "fill": "#94a3b8",
	})
	b.NewRect(id+"-track", x, y, gaugeUnit*gaugeMax, 12, map[string]string{
		"fill": "#1c1917", "stroke": "#44403c",
	})
	b.NewRect(id, x, y, 0, 12, map[string]string{"fill": fill, "stroke": ""})
}

// setGauge resizes a gauge bar to the given count.
func setGauge(b *scene.Base, id string, count int) {
	if count < 0 {
		count = 0
	}
	if count > gaugeMax {
		count = gaugeMax
	}
	if bar := b.GetElement(id); bar != nil {
		bar.SetProp("width", float64(count)*gaugeUnit)
	}
}

// setCounterText rewrites a counter label if it still exists.
func setCounterText(b *scene.Base, id, format string, args ...any) {
	if el := b.GetElement(id); el != nil {
		el.SetText(fmt.Sprintf(format, args...))
	}
}
