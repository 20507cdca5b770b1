package timeline

import (
	"math"
	"testing"

	"github.com/tapecut/tapecut/internal/tape"
	"github.com/tapecut/tapecut/internal/transition"
)

func policyFor(style tape.TransitionStyle, requested float64, boundaries int) *transition.Policy {
	t := tape.New("timeline-test")
	t.TransitionStyle = style
	t.TransitionDuration = requested
	return transition.NewPolicy(t, boundaries)
}

func TestEmptyTimeline(t *testing.T) {
	tl := Build(nil, policyFor(tape.TransitionCrossfade, 0.5, 0))
	if len(tl.Segments) != 0 {
		t.Errorf("expected no segments, got %d", len(tl.Segments))
	}
	if tl.Duration != 0 {
		t.Errorf("expected zero duration, got %f", tl.Duration)
	}
}

func TestSingleClip(t *testing.T) {
	tl := Build([]Clip{{ID: "a", Duration: 5.0}}, policyFor(tape.TransitionCrossfade, 0.5, 0))
	if len(tl.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(tl.Segments))
	}
	seg := tl.Segments[0]
	if seg.Start != 0 || seg.End != 5.0 {
		t.Errorf("segment range [%f, %f], want [0, 5]", seg.Start, seg.End)
	}
	if seg.In != nil || seg.Out != nil {
		t.Error("single clip cannot have transitions")
	}
	if tl.Duration != 5.0 {
		t.Errorf("duration = %f, want 5.0", tl.Duration)
	}
}

func TestTwoClipCrossfade(t *testing.T) {
	clips := []Clip{{ID: "a", Duration: 1.5}, {ID: "b", Duration: 1.5}}
	tl := Build(clips, policyFor(tape.TransitionCrossfade, 0.5, 1))

	if len(tl.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(tl.Segments))
	}
	out := tl.Segments[0].Out
	if out == nil {
		t.Fatal("expected a transition at the boundary")
	}
	if math.Abs(out.Duration-0.5) > 0.05 {
		t.Errorf("transition duration = %f, want ~0.5", out.Duration)
	}
	if tl.Segments[1].In != out {
		t.Error("boundary descriptor must be shared by both segments")
	}
	if math.Abs(tl.Duration-2.5) > 0.05 {
		t.Errorf("total duration = %f, want ~2.5", tl.Duration)
	}
	if tl.Duration >= 3.0 {
		t.Errorf("overlap must shorten the timeline, got %f", tl.Duration)
	}
}

func TestSlideBoundaryStyleAndDuration(t *testing.T) {
	clips := []Clip{{ID: "a", Duration: 1.5}, {ID: "b", Duration: 1.5}}
	tl := Build(clips, policyFor(tape.TransitionSlideLTR, 0.4, 1))

	out := tl.Segments[0].Out
	if out == nil {
		t.Fatal("expected a transition")
	}
	if out.Style != tape.TransitionSlideLTR {
		t.Errorf("style = %s, want slide-ltr", out.Style)
	}
	if math.Abs(out.Duration-0.4) > 0.05 {
		t.Errorf("duration = %f, want ~0.4", out.Duration)
	}
}

func TestSegmentsOverlapByTransitionDuration(t *testing.T) {
	clips := []Clip{
		{ID: "a", Duration: 4.0},
		{ID: "b", Duration: 3.0},
		{ID: "c", Duration: 5.0},
	}
	tl := Build(clips, policyFor(tape.TransitionCrossfade, 0.5, 2))

	for i := 0; i < len(tl.Segments)-1; i++ {
		cur, next := tl.Segments[i], tl.Segments[i+1]
		if cur.Out == nil {
			t.Fatalf("boundary %d: expected transition", i)
		}
		gap := cur.End - next.Start
		if math.Abs(gap-cur.Out.Duration) > 1e-9 {
			t.Errorf("boundary %d: overlap %f, want %f", i, gap, cur.Out.Duration)
		}
		start, end, ok := cur.Overlap()
		if !ok {
			t.Fatalf("boundary %d: Overlap() reported none", i)
		}
		if math.Abs(start-next.Start) > 1e-9 || math.Abs(end-cur.End) > 1e-9 {
			t.Errorf("boundary %d: overlap window [%f, %f] disagrees with segments", i, start, end)
		}
	}
}

func TestDurationAdditivity(t *testing.T) {
	cases := [][]Clip{
		{{ID: "a", Duration: 2.0}},
		{{ID: "a", Duration: 2.0}, {ID: "b", Duration: 3.0}},
		{{ID: "a", Duration: 0.6}, {ID: "b", Duration: 8.0}, {ID: "c", Duration: 1.2}, {ID: "d", Duration: 4.4}},
	}

	for _, clips := range cases {
		p := policyFor(tape.TransitionCrossfade, 0.5, len(clips)-1)
		tl := Build(clips, p)

		clipSum := 0.0
		for _, c := range clips {
			clipSum += c.Duration
		}
		transitionSum := 0.0
		for _, s := range tl.Segments {
			if s.Out != nil {
				transitionSum += s.Out.Duration
			}
		}
		want := clipSum - transitionSum
		if math.Abs(tl.Duration-want) > 1e-9 {
			t.Errorf("%d clips: duration = %f, want %f", len(clips), tl.Duration, want)
		}
	}
}

func TestNoTransitionsIsPlainConcat(t *testing.T) {
	clips := []Clip{{ID: "a", Duration: 2.0}, {ID: "b", Duration: 3.0}, {ID: "c", Duration: 1.0}}
	tl := Build(clips, policyFor(tape.TransitionNone, 0.5, 2))

	if math.Abs(tl.Duration-6.0) > 1e-9 {
		t.Errorf("duration = %f, want 6.0", tl.Duration)
	}
	for i := 0; i < len(tl.Segments)-1; i++ {
		if tl.Segments[i].End != tl.Segments[i+1].Start {
			t.Errorf("boundary %d: segments should abut exactly", i)
		}
	}
}
