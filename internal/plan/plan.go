// Package plan assembles the full render plan for a tape: it applies the
// transition policy, builds the segment timeline, and attaches per-segment
// transform, opacity and volume functions a renderer evaluates at playback
// or export time.
//
// Build is a plain synchronous function over already-resolved inputs. It
// holds no state, so re-invoking it with the same tape snapshot and the
// same resolved set yields an identical plan — callers may build from a
// prefix of resolved clips, start playback, and rebuild as more contexts
// arrive.
package plan

import (
	"fmt"

	"github.com/tapecut/tapecut/internal/geometry"
	"github.com/tapecut/tapecut/internal/resolve"
	"github.com/tapecut/tapecut/internal/tape"
	"github.com/tapecut/tapecut/internal/timeline"
	"github.com/tapecut/tapecut/internal/transition"
)

// Instruction is one renderable segment: an absolute time range on the
// composed timeline plus functions of normalized progress p in [0,1] over
// that range. VolumeAt is nil when the clip carries no audio.
type Instruction struct {
	Index  int
	ClipID string
	Source string
	Still  bool
	Start  float64
	End    float64

	TransformAt func(p float64) geometry.Affine
	OpacityAt   func(p float64) float64
	VolumeAt    func(p float64) float64
}

// Duration is the instruction's length in seconds.
func (in Instruction) Duration() float64 {
	return in.End - in.Start
}

// Plan is the engine's output: ordered instructions plus the timeline they
// were derived from and notices for clips that could not be placed.
type Plan struct {
	Canvas       geometry.Canvas
	Timeline     timeline.Timeline
	Instructions []Instruction
	Skipped      []resolve.Skip
}

// entry pairs a clip with its resolved context and effective duration.
type entry struct {
	clip     tape.Clip
	ctx      resolve.Context
	duration float64
}

// Build computes the render plan for a tape snapshot against a set of
// resolved contexts keyed by clip ID. Clips without a usable context are
// skipped with a notice; zero placeable clips produce a valid empty plan.
func Build(t tape.Tape, contexts map[string]resolve.Context) (Plan, error) {
	if err := t.Validate(); err != nil {
		return Plan{}, err
	}

	canvas := geometry.CanvasFor(t.Orientation)
	p := Plan{Canvas: canvas}

	var entries []entry
	for i, clip := range t.Clips {
		ctx, ok := contexts[clip.ID]
		if !ok {
			p.Skipped = append(p.Skipped, resolve.Skip{Index: i, ClipID: clip.ID, Reason: "unresolved"})
			continue
		}
		if ctx.Width <= 0 || ctx.Height <= 0 {
			p.Skipped = append(p.Skipped, resolve.Skip{Index: i, ClipID: clip.ID, Reason: "no dimensions"})
			continue
		}
		dur := effectiveDuration(clip, ctx)
		if dur <= 0 {
			p.Skipped = append(p.Skipped, resolve.Skip{Index: i, ClipID: clip.ID, Reason: "no duration"})
			continue
		}
		entries = append(entries, entry{clip: clip, ctx: ctx, duration: dur})
	}
	if len(entries) == 0 {
		return p, nil
	}

	policy := transition.NewPolicy(t, len(entries)-1)
	tlClips := make([]timeline.Clip, len(entries))
	for i, e := range entries {
		tlClips[i] = timeline.Clip{ID: e.clip.ID, Duration: e.duration}
	}
	p.Timeline = timeline.Build(tlClips, policy)

	p.Instructions = make([]Instruction, len(entries))
	for i, e := range entries {
		p.Instructions[i] = instructionFor(t, e, p.Timeline.Segments[i], canvas)
	}
	return p, nil
}

// BuildTimeline computes segment timing only, without transform assembly.
// Useful for callers that only need durations (e.g. progress display).
func BuildTimeline(t tape.Tape, contexts map[string]resolve.Context) (timeline.Timeline, error) {
	built, err := Build(t, contexts)
	if err != nil {
		return timeline.Timeline{}, err
	}
	return built.Timeline, nil
}

// effectiveDuration prefers the authored clip duration, falling back to
// the resolved media duration, then to the still default.
func effectiveDuration(clip tape.Clip, ctx resolve.Context) float64 {
	if clip.Duration > 0 {
		return clip.Duration
	}
	if ctx.Duration > 0 {
		return ctx.Duration
	}
	if ctx.Still {
		return tape.DefaultImageDuration
	}
	return 0
}

// rawSize undoes the rotation fold so the transform math sees the clip's
// native pixel rectangle.
func rawSize(ctx resolve.Context) (int, int) {
	if ctx.Rotation%2 == 1 {
		return ctx.Height, ctx.Width
	}
	return ctx.Width, ctx.Height
}

func instructionFor(t tape.Tape, e entry, seg timeline.Segment, canvas geometry.Canvas) Instruction {
	rawW, rawH := rawSize(e.ctx)
	base := geometry.BaseTransform(rawW, rawH, e.ctx.Rotation, t.EffectiveScaleMode(e.clip), canvas)

	segDur := seg.End - seg.Start
	in, out := seg.In, seg.Out
	still := e.ctx.Still

	var motion *geometry.KenBurns
	if still {
		kb := geometry.DefaultKenBurns()
		motion = &kb
	}

	transformAt := func(p float64) geometry.Affine {
		elapsed := geometry.Clamp(p, 0, 1) * segDur
		cur := base
		if motion != nil {
			cur = motion.At(base, canvas, geometry.Progress(elapsed, segDur))
		}
		if q, ok := windowProgress(elapsed, segDur, in, out); ok {
			switch {
			case in != nil && elapsed < in.Duration && isSlide(in.Style):
				cur = geometry.SlideIncoming(cur, in.Style, canvas, q)
			case out != nil && elapsed > segDur-out.Duration && isSlide(out.Style):
				cur = geometry.SlideOutgoing(cur, out.Style, canvas, q)
			}
		}
		return cur
	}

	opacityAt := func(p float64) float64 {
		elapsed := geometry.Clamp(p, 0, 1) * segDur
		if in != nil && in.Style == tape.TransitionCrossfade && elapsed < in.Duration {
			return geometry.FadeIn(geometry.Progress(elapsed, in.Duration))
		}
		if out != nil && out.Style == tape.TransitionCrossfade && elapsed > segDur-out.Duration {
			return geometry.FadeOut(geometry.Progress(elapsed-(segDur-out.Duration), out.Duration))
		}
		return 1
	}

	var volumeAt func(p float64) float64
	if e.ctx.HasAudio {
		volumeAt = func(p float64) float64 {
			elapsed := geometry.Clamp(p, 0, 1) * segDur
			if in != nil && in.Style == tape.TransitionCrossfade && elapsed < in.Duration {
				return geometry.FadeIn(geometry.Progress(elapsed, in.Duration))
			}
			if out != nil && elapsed > segDur-out.Duration {
				switch out.Style {
				case tape.TransitionCrossfade:
					return geometry.FadeOut(geometry.Progress(elapsed-(segDur-out.Duration), out.Duration))
				case tape.TransitionSlideLTR, tape.TransitionSlideRTL:
					// Slides animate content but cut audio cleanly at the
					// switch point, where the incoming clip takes over.
					return 0
				}
			}
			return 1
		}
	}

	return Instruction{
		Index:       seg.Index,
		ClipID:      e.clip.ID,
		Source:      e.clip.Source,
		Still:       still,
		Start:       seg.Start,
		End:         seg.End,
		TransformAt: transformAt,
		OpacityAt:   opacityAt,
		VolumeAt:    volumeAt,
	}
}

// windowProgress returns the normalized progress through whichever
// transition window the elapsed time falls in, if any.
func windowProgress(elapsed, segDur float64, in, out *transition.Descriptor) (float64, bool) {
	if in != nil && elapsed < in.Duration {
		return geometry.Progress(elapsed, in.Duration), true
	}
	if out != nil && elapsed > segDur-out.Duration {
		return geometry.Progress(elapsed-(segDur-out.Duration), out.Duration), true
	}
	return 0, false
}

func isSlide(s tape.TransitionStyle) bool {
	return s == tape.TransitionSlideLTR || s == tape.TransitionSlideRTL
}

// Describe renders a one-line summary per instruction, used by the CLI.
func (p Plan) Describe() []string {
	lines := make([]string, 0, len(p.Instructions)+len(p.Skipped))
	for _, in := range p.Instructions {
		kind := "video"
		if in.Still {
			kind = "image"
		}
		lines = append(lines, fmt.Sprintf("#%d %s [%.3fs - %.3fs] %s", in.Index, kind, in.Start, in.End, in.Source))
	}
	for _, s := range p.Skipped {
		lines = append(lines, fmt.Sprintf("#%d skipped: %s", s.Index, s.Reason))
	}
	return lines
}
