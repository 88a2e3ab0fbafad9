package anim

import "math"

// Point is a position in scene coordinates.
type Point struct {
	X float64
	Y float64
}

// AnimateTo tweens the named properties of target from their current values
// to the given end values over duration seconds.
func AnimateTo(tl *Timeline, target Target, duration float64, props map[string]float64, complete func()) {
	if tl == nil || target == nil {
		return
	}
	from := make(map[string]float64, len(props))
	for name := range props {
		if v, ok := target.Prop(name); ok {
			from[name] = v
		}
	}
	tl.Tween(duration, func(p float64) {
		for name, end := range props {
			start := from[name]
			target.SetProp(name, start+(end-start)*p)
		}
	}, complete)
}

// AnimateFrom sets the named properties to the given start values and
// tweens them back to the values the target held before the call.
func AnimateFrom(tl *Timeline, target Target, duration float64, props map[string]float64, complete func()) {
	if tl == nil || target == nil {
		return
	}
	to := make(map[string]float64, len(props))
	for name, start := range props {
		if v, ok := target.Prop(name); ok {
			to[name] = v
		}
		target.SetProp(name, start)
	}
	AnimateTo(tl, target, duration, to, complete)
}

// SetImmediate applies the property values without animation.
func SetImmediate(target Target, props map[string]float64) {
	if target == nil {
		return
	}
	for name, v := range props {
		target.SetProp(name, v)
	}
}

// MoveAlongArc tweens the target's x/y along a gentle quadratic arc from
// one point to another. The single control point sits at the midpoint,
// offset perpendicular to the straight line by curvature (scene units;
// sign picks the side).
func MoveAlongArc(tl *Timeline, target Target, duration float64, from, to Point, curvature float64, complete func()) {
	if tl == nil || target == nil {
		return
	}

	ctrl := arcControlPoint(from, to, curvature)
	tl.Tween(duration, func(p float64) {
		inv := 1 - p
		x := inv*inv*from.X + 2*inv*p*ctrl.X + p*p*to.X
		y := inv*inv*from.Y + 2*inv*p*ctrl.Y + p*p*to.Y
		target.SetProp("x", x)
		target.SetProp("y", y)
	}, complete)
}

// arcControlPoint computes the midpoint offset perpendicular to from->to.
func arcControlPoint(from, to Point, curvature float64) Point {
	midX := (from.X + to.X) / 2
	midY := (from.Y + to.Y) / 2

	dx := to.X - from.X
	dy := to.Y - from.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return Point{X: midX, Y: midY}
	}
	// Unit normal to the straight line.
	nx := -dy / length
	ny := dx / length
	return Point{X: midX + nx*curvature, Y: midY + ny*curvature}
}

// Pulse scales the target up and back down `times` times over duration,
// peaking at 1+amplitude. Used as a highlight beat.
func Pulse(tl *Timeline, target Target, duration float64, times int, amplitude float64, complete func()) {
	if tl == nil || target == nil {
		return
	}
	if times < 1 {
		times = 1
	}
	tl.Tween(duration, func(p float64) {
		scale := 1 + amplitude*math.Abs(math.Sin(math.Pi*float64(times)*p))
		if p >= 1 {
			scale = 1
		}
		target.SetProp("scale", scale)
	}, complete)
}
