package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kafkaviz/kafkaviz-server-go/internal/scene"
)

func TestSVGDocumentShell(t *testing.T) {
	root := scene.NewElement(scene.KindGroup)

	out := SVG(root, 800, 500)
	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800 500"`))
	assert.True(t, strings.HasSuffix(out, "</svg>\n"))
}

func TestSVGNilRoot(t *testing.T) {
	out := SVG(nil, 100, 100)
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "</svg>")
}

func TestRectSerialization(t *testing.T) {
	root := scene.NewElement(scene.KindGroup)
	rect := scene.NewElement(scene.KindRect)
	rect.SetProps(map[string]float64{"x": 10, "y": 20.5, "width": 100, "height": 50})
	rect.SetAttrs(map[string]string{"fill": "#1e293b", "stroke": "#475569"})
	root.Append(rect)

	out := SVG(root, 800, 500)
	assert.Contains(t, out, `<rect x="10" y="20.5" width="100" height="50" fill="#1e293b" stroke="#475569"/>`)
}

func TestCircleUsesCenterCoordinatesAndScale(t *testing.T) {
	root := scene.NewElement(scene.KindGroup)
	circle := scene.NewElement(scene.KindCircle)
	circle.SetProps(map[string]float64{"x": 40, "y": 60, "r": 10, "scale": 1.5})
	circle.SetAttr("fill", "#38bdf8")
	root.Append(circle)

	out := SVG(root, 800, 500)
	assert.Contains(t, out, `<circle cx="40" cy="60" r="15" fill="#38bdf8"/>`)
}

func TestGroupTransformAndNesting(t *testing.T) {
	root := scene.NewElement(scene.KindGroup)
	group := scene.NewElement(scene.KindGroup)
	group.SetProps(map[string]float64{"x": 5, "y": 7})
	inner := scene.NewElement(scene.KindText)
	inner.SetText("P0")
	group.Append(inner)
	root.Append(group)

	out := SVG(root, 800, 500)
	assert.Contains(t, out, `<g transform="translate(5 7)">`)
	assert.Contains(t, out, ">P0</text>")
}

func TestTransparentSubtreeSkipped(t *testing.T) {
	root := scene.NewElement(scene.KindGroup)
	hidden := scene.NewElement(scene.KindRect)
	hidden.SetProps(map[string]float64{"opacity": 0, "width": 10, "height": 10})
	root.Append(hidden)

	out := SVG(root, 800, 500)
	assert.NotContains(t, out, "<rect")
}

func TestTextEscaping(t *testing.T) {
	root := scene.NewElement(scene.KindGroup)
	text := scene.NewElement(scene.KindText)
	text.SetText(`a<b & "c"`)
	root.Append(text)

	out := SVG(root, 800, 500)
	assert.Contains(t, out, "a&lt;b &amp; &quot;c&quot;")
}

func TestAttributesSortedDeterministically(t *testing.T) {
	root := scene.NewElement(scene.KindGroup)
	line := scene.NewElement(scene.KindLine)
	line.SetProps(map[string]float64{"x1": 0, "y1": 0, "x2": 10, "y2": 10})
	line.SetAttrs(map[string]string{"stroke-width": "2", "stroke": "#fff", "stroke-dasharray": "4 2"})
	root.Append(line)

	first := SVG(root, 800, 500)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, SVG(root, 800, 500))
	}
	assert.Contains(t, first, `stroke="#fff" stroke-dasharray="4 2" stroke-width="2"`)
}

func TestIDEmittedAndEntityAttrDropped(t *testing.T) {
	root := scene.NewElement(scene.KindGroup)
	rect := scene.NewElement(scene.KindRect)
	rect.SetID("producer-1")
	rect.SetAttr("entity", "producer")
	root.Append(rect)

	out := SVG(root, 800, 500)
	assert.Contains(t, out, `id="producer-1"`)
	assert.NotContains(t, out, `entity=`)
}
