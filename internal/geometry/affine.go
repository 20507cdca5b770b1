// Package geometry computes the affine transforms and opacity/volume ramps
// that place clip frames on the render canvas: fit/fill scaling, quarter-turn
// rotation, centering, Ken Burns motion on stills, and the directional slide
// and crossfade treatments applied inside transition windows.
package geometry

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Affine is a 2D affine transform using the column-vector convention
//
//	x' = A*x + C*y + Tx
//	y' = B*x + D*y + Ty
//
// which matches the transform layout of the platform renderers this plan
// is handed to.
type Affine struct {
	A, B, C, D, Tx, Ty float64
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{A: 1, D: 1}
}

// Translation returns a pure translation.
func Translation(tx, ty float64) Affine {
	return Affine{A: 1, D: 1, Tx: tx, Ty: ty}
}

// Scale returns a scale about the origin.
func Scale(sx, sy float64) Affine {
	return Affine{A: sx, D: sy}
}

// Then composes transforms in application order: the result applies m
// first, then n.
func (m Affine) Then(n Affine) Affine {
	return Affine{
		A:  n.A*m.A + n.C*m.B,
		B:  n.B*m.A + n.D*m.B,
		C:  n.A*m.C + n.C*m.D,
		D:  n.B*m.C + n.D*m.D,
		Tx: n.A*m.Tx + n.C*m.Ty + n.Tx,
		Ty: n.B*m.Tx + n.D*m.Ty + n.Ty,
	}
}

// Translated post-translates the transform.
func (m Affine) Translated(dx, dy float64) Affine {
	return m.Then(Translation(dx, dy))
}

// Apply maps a point.
func (m Affine) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.Tx, m.B*x + m.D*y + m.Ty
}

// ScaleAbout returns a scale around an arbitrary pivot.
func ScaleAbout(cx, cy, s float64) Affine {
	return Translation(-cx, -cy).Then(Scale(s, s)).Then(Translation(cx, cy))
}

// QuarterTurn maps a w*h rectangle rotated by the given clockwise quarter
// turns back into the positive quadrant, so a rotated frame occupies
// [0,h]x[0,w] for odd turns and [0,w]x[0,h] otherwise.
func QuarterTurn(turns int, w, h float64) Affine {
	switch ((turns % 4) + 4) % 4 {
	case 1:
		return Affine{A: 0, B: 1, C: -1, D: 0, Tx: h, Ty: 0}
	case 2:
		return Affine{A: -1, B: 0, C: 0, D: -1, Tx: w, Ty: h}
	case 3:
		return Affine{A: 0, B: -1, C: 1, D: 0, Tx: 0, Ty: w}
	default:
		return Identity()
	}
}

// MapRect returns the axis-aligned bounding box of the [0,w]x[0,h]
// rectangle under the transform.
func (m Affine) MapRect(w, h float64) (minX, minY, maxX, maxY float64) {
	xs := [4]float64{}
	ys := [4]float64{}
	xs[0], ys[0] = m.Apply(0, 0)
	xs[1], ys[1] = m.Apply(w, 0)
	xs[2], ys[2] = m.Apply(0, h)
	xs[3], ys[3] = m.Apply(w, h)

	minX, maxX = xs[0], xs[0]
	minY, maxY = ys[0], ys[0]
	for i := 1; i < 4; i++ {
		minX = math.Min(minX, xs[i])
		maxX = math.Max(maxX, xs[i])
		minY = math.Min(minY, ys[i])
		maxY = math.Max(maxY, ys[i])
	}
	return minX, minY, maxX, maxY
}

// Lerp performs linear interpolation between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Clamp bounds v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Progress converts elapsed seconds into normalized playback progress,
// guarding against zero and non-finite durations.
func Progress(elapsed, duration float64) float64 {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0
	}
	return Clamp(elapsed, 0, duration) / duration
}
