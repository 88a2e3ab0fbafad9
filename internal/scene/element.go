package scene

import "sync"

// Kind identifies a renderable primitive.
type Kind string

const (
	KindGroup  Kind = "group"
	KindRect   Kind = "rect"
	KindCircle Kind = "circle"
	KindLine   Kind = "line"
	KindText   Kind = "text"
	KindPath   Kind = "path"
)

// Element is a pure description of a renderable node: a kind, float-valued
// geometry properties, string attributes for styling, optional text and
// children. It carries no rendering behavior; the render package turns an
// element tree into SVG and tests inspect it directly.
//
// Float properties are the tween surface (x, y, width, height, r, opacity,
// scale, x1..y2); Element satisfies anim.Target. All methods are safe for
// concurrent use: tween updates run on the animation driver while the
// server snapshots the tree.
type Element struct {
	mu       sync.RWMutex
	id       string
	kind     Kind
	props    map[string]float64
	attrs    map[string]string
	text     string
	children []*Element
}

// NewElement constructs an element of the given kind.
func NewElement(kind Kind) *Element {
	return &Element{
		kind:  kind,
		props: make(map[string]float64),
		attrs: make(map[string]string),
	}
}

// ID returns the registry identifier tag, empty if untagged.
func (e *Element) ID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.id
}

// SetID tags the element with a registry identifier.
func (e *Element) SetID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.id = id
}

// Kind returns the primitive kind.
func (e *Element) Kind() Kind {
	return e.kind
}

// Prop returns a float property and whether it is set.
func (e *Element) Prop(name string) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.props[name]
	return v, ok
}

// PropOr returns a float property, or fallback when unset.
func (e *Element) PropOr(name string, fallback float64) float64 {
	if v, ok := e.Prop(name); ok {
		return v
	}
	return fallback
}

// SetProp sets a float property.
func (e *Element) SetProp(name string, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.props[name] = value
}

// SetProps sets several float properties at once.
func (e *Element) SetProps(props map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, v := range props {
		e.props[name] = v
	}
}

// Props returns a copy of the float properties.
func (e *Element) Props() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]float64, len(e.props))
	for name, v := range e.props {
		out[name] = v
	}
	return out
}

// Attr returns a string attribute, empty if unset.
func (e *Element) Attr(name string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.attrs[name]
}

// SetAttr sets a string attribute (fill, stroke, font-size and the like).
func (e *Element) SetAttr(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
}

// SetAttrs sets several string attributes at once.
func (e *Element) SetAttrs(attrs map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, v := range attrs {
		e.attrs[name] = v
	}
}

// Attrs returns a copy of the string attributes.
func (e *Element) Attrs() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]string, len(e.attrs))
	for name, v := range e.attrs {
		out[name] = v
	}
	return out
}

// Text returns the text content (text elements only).
func (e *Element) Text() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.text
}

// SetText sets the text content.
func (e *Element) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
}

// Append adds children to the element.
func (e *Element) Append(children ...*Element) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.children = append(e.children, children...)
	return e
}

// Remove detaches a direct child; no-op if absent.
func (e *Element) Remove(child *Element) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

// RemoveAll detaches every child.
func (e *Element) RemoveAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.children = nil
}

// Children returns a snapshot of the direct children.
func (e *Element) Children() []*Element {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Element, len(e.children))
	copy(out, e.children)
	return out
}

// Contains reports whether child is a direct child of the element.
func (e *Element) Contains(child *Element) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, c := range e.children {
		if c == child {
			return true
		}
	}
	return false
}
