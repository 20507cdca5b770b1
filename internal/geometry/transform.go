package geometry

import (
	"math"

	"github.com/tapecut/tapecut/internal/tape"
)

// Canvas is the fixed render target in pixels.
type Canvas struct {
	Width  float64
	Height float64
}

// CanvasFor returns the canvas matching a tape orientation.
func CanvasFor(o tape.Orientation) Canvas {
	w, h := o.CanvasSize()
	return Canvas{Width: float64(w), Height: float64(h)}
}

// BaseTransform maps a clip's native pixel rectangle onto the canvas:
// quarter-turn rotation first (odd turns swap the effective width and
// height), then fit or fill scaling, then centering on both axes.
// naturalW and naturalH are the pre-rotation pixel dimensions.
func BaseTransform(naturalW, naturalH, rotation int, mode tape.ScaleMode, canvas Canvas) Affine {
	w, h := float64(naturalW), float64(naturalH)
	if w <= 0 || h <= 0 {
		return Identity()
	}

	m := QuarterTurn(rotation, w, h)
	rw, rh := w, h
	if rotation%2 == 1 {
		rw, rh = h, w
	}

	sx := canvas.Width / rw
	sy := canvas.Height / rh
	var s float64
	if mode == tape.ScaleFill {
		s = math.Max(sx, sy)
	} else {
		s = math.Min(sx, sy)
	}

	return m.
		Then(Scale(s, s)).
		Then(Translation((canvas.Width-s*rw)/2, (canvas.Height-s*rh)/2))
}

// KenBurns describes the deterministic pan/zoom motion applied to stills.
// Offsets are normalized to canvas dimensions.
type KenBurns struct {
	StartScale float64
	EndScale   float64
	StartX     float64
	StartY     float64
	EndX       float64
	EndY       float64
}

// DefaultKenBurns is the fixed reel motion: a slow push from 1.05x to 1.10x
// with a horizontal drift of 5% of the canvas width.
func DefaultKenBurns() KenBurns {
	return KenBurns{
		StartScale: 1.05,
		EndScale:   1.10,
		StartX:     0.0,
		StartY:     0.0,
		EndX:       0.05,
		EndY:       0.0,
	}
}

// At composes the motion at progress p (0..1) onto a base transform. The
// zoom pivots on the canvas center so the drift is the only lateral motion.
func (k KenBurns) At(base Affine, canvas Canvas, p float64) Affine {
	p = Clamp(p, 0, 1)
	s := Lerp(k.StartScale, k.EndScale, p)
	dx := Lerp(k.StartX, k.EndX, p) * canvas.Width
	dy := Lerp(k.StartY, k.EndY, p) * canvas.Height
	return base.
		Then(ScaleAbout(canvas.Width/2, canvas.Height/2, s)).
		Then(Translation(dx, dy))
}

// SlideOutgoing displaces the outgoing layer's transform at transition
// progress q: at q=0 the layer is in place, at q=1 it has traveled a full
// canvas width in the style's fixed direction.
func SlideOutgoing(cur Affine, style tape.TransitionStyle, canvas Canvas, q float64) Affine {
	q = Clamp(q, 0, 1)
	switch style {
	case tape.TransitionSlideLTR:
		return cur.Translated(canvas.Width*q, 0)
	case tape.TransitionSlideRTL:
		return cur.Translated(-canvas.Width*q, 0)
	default:
		return cur
	}
}

// SlideIncoming displaces the incoming layer's transform at transition
// progress q: it enters from the side opposite the travel direction and
// lands on its base at q=1.
func SlideIncoming(cur Affine, style tape.TransitionStyle, canvas Canvas, q float64) Affine {
	q = Clamp(q, 0, 1)
	switch style {
	case tape.TransitionSlideLTR:
		return cur.Translated(-canvas.Width*(1-q), 0)
	case tape.TransitionSlideRTL:
		return cur.Translated(canvas.Width*(1-q), 0)
	default:
		return cur
	}
}

// FadeOut is the outgoing opacity/volume ramp over a crossfade window.
func FadeOut(q float64) float64 {
	return 1 - Clamp(q, 0, 1)
}

// FadeIn is the incoming opacity/volume ramp over a crossfade window.
func FadeIn(q float64) float64 {
	return Clamp(q, 0, 1)
}
