package plan

import (
	"math"
	"testing"

	"github.com/tapecut/tapecut/internal/resolve"
	"github.com/tapecut/tapecut/internal/tape"
)

func newTape(t *testing.T, style tape.TransitionStyle, dur float64) tape.Tape {
	t.Helper()
	tp := tape.New("plan-test")
	tp.TransitionStyle = style
	tp.TransitionDuration = dur
	return tp
}

func addVideo(t *testing.T, tp *tape.Tape, contexts resolve.Static, dur float64) tape.Clip {
	t.Helper()
	c, err := tape.NewClip(tape.MediaVideo, "clip.mp4", dur)
	if err != nil {
		t.Fatalf("NewClip: %v", err)
	}
	tp.Clips = append(tp.Clips, c)
	contexts[c.ID] = resolve.Context{Width: 1920, Height: 1080, Duration: dur, HasAudio: true}
	return c
}

func addImage(t *testing.T, tp *tape.Tape, contexts resolve.Static, dur float64) tape.Clip {
	t.Helper()
	c, err := tape.NewClip(tape.MediaImage, "photo.jpg", dur)
	if err != nil {
		t.Fatalf("NewClip: %v", err)
	}
	tp.Clips = append(tp.Clips, c)
	d := dur
	if d <= 0 {
		d = tape.DefaultImageDuration
	}
	contexts[c.ID] = resolve.Context{Width: 1080, Height: 1920, Duration: d, Still: true}
	return c
}

func TestEmptyTape(t *testing.T) {
	tp := newTape(t, tape.TransitionCrossfade, 0.5)
	p, err := Build(tp, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.Instructions) != 0 {
		t.Errorf("expected no instructions, got %d", len(p.Instructions))
	}
	if p.Timeline.Duration != 0 {
		t.Errorf("expected zero duration, got %f", p.Timeline.Duration)
	}
}

func TestSingleClip(t *testing.T) {
	tp := newTape(t, tape.TransitionCrossfade, 0.5)
	contexts := resolve.Static{}
	addVideo(t, &tp, contexts, 5.0)

	p, err := Build(tp, map[string]resolve.Context(contexts))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(p.Instructions))
	}
	if p.Timeline.Duration != 5.0 {
		t.Errorf("duration = %f, want 5.0", p.Timeline.Duration)
	}
	seg := p.Timeline.Segments[0]
	if seg.In != nil || seg.Out != nil {
		t.Error("single clip cannot transition")
	}
	// Opacity must be constant 1 across the segment.
	for _, q := range []float64{0, 0.3, 1} {
		if got := p.Instructions[0].OpacityAt(q); got != 1 {
			t.Errorf("opacity at %f = %f, want 1", q, got)
		}
	}
}

func TestTwoClipCrossfadePlan(t *testing.T) {
	tp := newTape(t, tape.TransitionCrossfade, 0.5)
	contexts := resolve.Static{}
	addVideo(t, &tp, contexts, 1.5)
	addVideo(t, &tp, contexts, 1.5)

	p, err := Build(tp, map[string]resolve.Context(contexts))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.Instructions) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(p.Instructions))
	}
	out := p.Timeline.Segments[0].Out
	if out == nil {
		t.Fatal("expected boundary transition")
	}
	if math.Abs(out.Duration-0.5) > 0.05 {
		t.Errorf("transition duration %f, want ~0.5", out.Duration)
	}
	if math.Abs(p.Timeline.Duration-2.5) > 0.05 {
		t.Errorf("total duration %f, want ~2.5", p.Timeline.Duration)
	}

	first, second := p.Instructions[0], p.Instructions[1]

	// Outgoing layer fades 1 -> 0 across its tail window.
	if got := first.OpacityAt(0); got != 1 {
		t.Errorf("outgoing opacity at start = %f", got)
	}
	if got := first.OpacityAt(1); math.Abs(got) > 1e-9 {
		t.Errorf("outgoing opacity at end = %f, want 0", got)
	}
	// Incoming layer fades 0 -> 1 across its head window.
	if got := second.OpacityAt(0); math.Abs(got) > 1e-9 {
		t.Errorf("incoming opacity at start = %f, want 0", got)
	}
	if got := second.OpacityAt(1); got != 1 {
		t.Errorf("incoming opacity at end = %f, want 1", got)
	}
	// Audio ramps mirror the crossfade.
	if first.VolumeAt == nil || second.VolumeAt == nil {
		t.Fatal("audio clips must carry volume functions")
	}
	if got := first.VolumeAt(1); math.Abs(got) > 1e-9 {
		t.Errorf("outgoing volume at end = %f, want 0", got)
	}
	if got := second.VolumeAt(0); math.Abs(got) > 1e-9 {
		t.Errorf("incoming volume at start = %f, want 0", got)
	}
}

func TestTwoClipSlidePlan(t *testing.T) {
	tp := newTape(t, tape.TransitionSlideLTR, 0.4)
	contexts := resolve.Static{}
	addVideo(t, &tp, contexts, 1.5)
	addVideo(t, &tp, contexts, 1.5)

	p, err := Build(tp, map[string]resolve.Context(contexts))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out := p.Timeline.Segments[0].Out
	if out == nil {
		t.Fatal("expected boundary transition")
	}
	if out.Style != tape.TransitionSlideLTR {
		t.Errorf("style = %s, want slide-ltr", out.Style)
	}
	if math.Abs(out.Duration-0.4) > 0.05 {
		t.Errorf("duration = %f, want ~0.4", out.Duration)
	}

	first, second := p.Instructions[0], p.Instructions[1]

	// Slides keep opacity at 1 throughout.
	for _, q := range []float64{0, 0.5, 0.9, 1} {
		if got := first.OpacityAt(q); got != 1 {
			t.Errorf("outgoing slide opacity at %f = %f, want 1", q, got)
		}
	}

	// The outgoing layer ends a full canvas width to the right of where
	// it started; the incoming layer starts a full width to the left.
	startX, _ := first.TransformAt(0).Apply(0, 0)
	endX, _ := first.TransformAt(1).Apply(0, 0)
	if math.Abs((endX-startX)-p.Canvas.Width) > 1e-6 {
		t.Errorf("outgoing slide traveled %f, want %f", endX-startX, p.Canvas.Width)
	}
	inStartX, _ := second.TransformAt(0).Apply(0, 0)
	inEndX, _ := second.TransformAt(1).Apply(0, 0)
	if math.Abs((inEndX-inStartX)-p.Canvas.Width) > 1e-6 {
		t.Errorf("incoming slide traveled %f, want %f", inEndX-inStartX, p.Canvas.Width)
	}

	// Slide audio hard-cuts at the switch point instead of ramping.
	if got := first.VolumeAt(0.5); got != 1 {
		t.Errorf("outgoing volume mid-clip = %f, want 1", got)
	}
	if got := first.VolumeAt(1); got != 0 {
		t.Errorf("outgoing volume inside overlap = %f, want 0", got)
	}
	if got := second.VolumeAt(0); got != 1 {
		t.Errorf("incoming volume at start = %f, want 1 (no ramp)", got)
	}
}

func TestStillClipGetsKenBurns(t *testing.T) {
	tp := newTape(t, tape.TransitionNone, 0.5)
	contexts := resolve.Static{}
	addImage(t, &tp, contexts, 0)

	p, err := Build(tp, map[string]resolve.Context(contexts))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	in := p.Instructions[0]
	if math.Abs(in.Duration()-tape.DefaultImageDuration) > 1e-9 {
		t.Errorf("still duration = %f, want default %.1f", in.Duration(), tape.DefaultImageDuration)
	}
	if in.VolumeAt != nil {
		t.Error("stills carry no volume function")
	}

	// Motion: the frame scale grows from 1.05 to 1.10 across playback.
	scaleAt := func(p float64) float64 {
		m := in.TransformAt(p)
		x0, _ := m.Apply(0, 0)
		x1, _ := m.Apply(1, 0)
		return x1 - x0
	}
	// The base transform here is identity-scale (clip matches canvas), so
	// the measured scale is the Ken Burns ramp itself.
	if got := scaleAt(0); math.Abs(got-1.05) > 0.001 {
		t.Errorf("scale at p=0: %f, want 1.05", got)
	}
	if got := scaleAt(1); math.Abs(got-1.10) > 0.001 {
		t.Errorf("scale at p=1: %f, want 1.10", got)
	}

	// Drift: the canvas center moves 5% of the width over the clip.
	cx0, _ := in.TransformAt(0).Apply(p.Canvas.Width/2, p.Canvas.Height/2)
	cx1, _ := in.TransformAt(1).Apply(p.Canvas.Width/2, p.Canvas.Height/2)
	if math.Abs((cx1-cx0)-0.05*p.Canvas.Width) > 0.0001*p.Canvas.Width {
		t.Errorf("pan drift = %f, want %f", cx1-cx0, 0.05*p.Canvas.Width)
	}
}

func TestUnresolvedClipsAreSkippedNotFatal(t *testing.T) {
	tp := newTape(t, tape.TransitionCrossfade, 0.5)
	contexts := resolve.Static{}
	addVideo(t, &tp, contexts, 2.0)
	missing, _ := tape.NewClip(tape.MediaVideo, "gone.mp4", 3.0)
	tp.Clips = append(tp.Clips, missing)
	addVideo(t, &tp, contexts, 2.0)

	p, err := Build(tp, map[string]resolve.Context(contexts))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.Instructions) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(p.Instructions))
	}
	if len(p.Skipped) != 1 {
		t.Fatalf("expected 1 skip, got %d", len(p.Skipped))
	}
	if p.Skipped[0].Index != 1 || p.Skipped[0].ClipID != missing.ID {
		t.Errorf("unexpected skip %+v", p.Skipped[0])
	}
	// The two placeable clips still form a continuous timeline.
	if math.Abs(p.Timeline.Duration-3.5) > 0.05 {
		t.Errorf("duration = %f, want ~3.5 (2 + 2 - 0.5 overlap)", p.Timeline.Duration)
	}
}

func TestAllClipsUnresolvedYieldsEmptyPlan(t *testing.T) {
	tp := newTape(t, tape.TransitionCrossfade, 0.5)
	a, _ := tape.NewClip(tape.MediaVideo, "a.mp4", 2.0)
	b, _ := tape.NewClip(tape.MediaVideo, "b.mp4", 2.0)
	tp.Clips = []tape.Clip{a, b}

	p, err := Build(tp, nil)
	if err != nil {
		t.Fatalf("zero resolvable clips must not be an error: %v", err)
	}
	if len(p.Instructions) != 0 || p.Timeline.Duration != 0 {
		t.Errorf("expected empty plan, got %d instructions, %.2fs", len(p.Instructions), p.Timeline.Duration)
	}
	if len(p.Skipped) != 2 {
		t.Errorf("expected 2 skips, got %d", len(p.Skipped))
	}
}

func TestRandomisedPlanIsIdempotent(t *testing.T) {
	tp := newTape(t, tape.TransitionRandom, 1.0)
	contexts := resolve.Static{}
	for i := 0; i < 9; i++ {
		addVideo(t, &tp, contexts, 3.0)
	}

	first, err := Build(tp, map[string]resolve.Context(contexts))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build(tp, map[string]resolve.Context(contexts))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for i := range first.Timeline.Segments {
		a, b := first.Timeline.Segments[i].Out, second.Timeline.Segments[i].Out
		if (a == nil) != (b == nil) {
			t.Fatalf("segment %d: transition presence diverged", i)
		}
		if a == nil {
			continue
		}
		if a.Style != b.Style || a.Duration != b.Duration {
			t.Fatalf("segment %d: %v vs %v", i, a, b)
		}
		if a.Duration > 0.5+1e-9 {
			t.Errorf("segment %d: randomised duration %f exceeds cap", i, a.Duration)
		}
	}
	if first.Timeline.Duration != second.Timeline.Duration {
		t.Error("rebuild must yield an identical timeline")
	}
}

func TestPartialThenExtendedBuildAgreeOnPrefix(t *testing.T) {
	tp := newTape(t, tape.TransitionNone, 0.5)
	contexts := resolve.Static{}
	addVideo(t, &tp, contexts, 2.0)
	addVideo(t, &tp, contexts, 3.0)
	late := addVideo(t, &tp, contexts, 4.0)

	partial := resolve.Static{}
	for id, c := range contexts {
		if id != late.ID {
			partial[id] = c
		}
	}

	p1, err := Build(tp, map[string]resolve.Context(partial))
	if err != nil {
		t.Fatalf("Build partial: %v", err)
	}
	p2, err := Build(tp, map[string]resolve.Context(contexts))
	if err != nil {
		t.Fatalf("Build full: %v", err)
	}

	if len(p1.Instructions) != 2 || len(p2.Instructions) != 3 {
		t.Fatalf("instruction counts %d/%d, want 2/3", len(p1.Instructions), len(p2.Instructions))
	}
	for i := range p1.Instructions {
		if p1.Instructions[i].Start != p2.Instructions[i].Start || p1.Instructions[i].End != p2.Instructions[i].End {
			t.Errorf("instruction %d timing diverged between partial and full build", i)
		}
	}
}

func TestPerClipScaleModeOverride(t *testing.T) {
	tp := newTape(t, tape.TransitionNone, 0.5)
	tp.ScaleMode = tape.ScaleFit
	contexts := resolve.Static{}
	addVideo(t, &tp, contexts, 2.0) // 1920x1080 on a portrait canvas
	tp.Clips[0] = tp.Clips[0].WithScaleMode(tape.ScaleFill)

	p, err := Build(tp, map[string]resolve.Context(contexts))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m := p.Instructions[0].TransformAt(0)
	minX, minY, maxX, maxY := m.MapRect(1920, 1080)
	if maxX-minX < p.Canvas.Width-1e-6 || maxY-minY < p.Canvas.Height-1e-6 {
		t.Errorf("fill override should cover the canvas, box %fx%f", maxX-minX, maxY-minY)
	}
	if minY > 1e-6 || maxY < p.Canvas.Height-1e-6 {
		t.Errorf("fill not centered vertically: %f..%f", minY, maxY)
	}
}
