// Package timeline places clips on the composed time axis. Transitions
// overlap rather than add: a boundary transition of duration D starts the
// next clip D seconds before the previous one ends, so the total duration
// is the clip sum minus the transition sum.
package timeline

import "github.com/tapecut/tapecut/internal/transition"

// Clip is the minimal input the builder needs: identity plus effective
// duration (defaults already applied by the caller).
type Clip struct {
	ID       string
	Duration float64
}

// Segment is one clip's occupied range on the composed timeline. In and
// Out point at the boundary descriptors shared with the adjacent segments;
// nil means a hard cut.
type Segment struct {
	Index  int
	ClipID string
	Start  float64
	End    float64
	In     *transition.Descriptor
	Out    *transition.Descriptor
}

// Overlap reports the time range both this segment and its successor are
// visible, i.e. the outgoing transition window.
func (s Segment) Overlap() (start, end float64, ok bool) {
	if s.Out == nil {
		return 0, 0, false
	}
	return s.End - s.Out.Duration, s.End, true
}

// Timeline is the composed result. Zero clips produce a valid empty
// timeline, not an error.
type Timeline struct {
	Segments []Segment
	Duration float64
}

// Build computes segment ranges for the ordered clips, consulting the
// policy for each boundary. The policy sees the neighbors' effective
// durations so its clamps hold.
func Build(clips []Clip, policy *transition.Policy) Timeline {
	if len(clips) == 0 {
		return Timeline{}
	}

	segments := make([]Segment, len(clips))
	cursor := 0.0
	for i, c := range clips {
		segments[i] = Segment{
			Index:  i,
			ClipID: c.ID,
			Start:  cursor,
			End:    cursor + c.Duration,
		}
		cursor = segments[i].End

		if i < len(clips)-1 {
			if d := policy.At(i, c.Duration, clips[i+1].Duration); d != nil {
				segments[i].Out = d
				// The next clip starts inside this one's tail.
				cursor -= d.Duration
			}
		}
		if i > 0 {
			segments[i].In = segments[i-1].Out
		}
	}

	return Timeline{
		Segments: segments,
		Duration: segments[len(segments)-1].End,
	}
}
