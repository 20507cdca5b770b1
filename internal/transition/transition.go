// Package transition resolves the tape-global transition setting into a
// concrete per-boundary descriptor, applying the duration clamps that keep
// overlaps shorter than both neighboring clips.
package transition

import (
	"github.com/tapecut/tapecut/internal/sequence"
	"github.com/tapecut/tapecut/internal/tape"
)

// Descriptor is a resolved boundary transition. Style is always concrete,
// never the randomised placeholder, and Duration is always positive.
type Descriptor struct {
	Style    tape.TransitionStyle
	Duration float64
}

// Policy maps boundary indexes to descriptors for one tape snapshot.
// Construct a fresh policy per build; the random draw is pinned at
// construction so that every query for the same boundary agrees.
type Policy struct {
	style     tape.TransitionStyle
	requested float64
	drawn     []tape.TransitionStyle
}

// NewPolicy prepares the per-boundary resolution for a tape with the given
// number of boundaries (clip count minus one).
func NewPolicy(t tape.Tape, boundaries int) *Policy {
	p := &Policy{
		style:     t.TransitionStyle,
		requested: t.TransitionDuration,
	}
	if t.TransitionStyle == tape.TransitionRandom {
		p.drawn = sequence.Draw(t.ID, boundaries)
	}
	return p
}

// At resolves the transition for boundary i between clips of the given
// durations. A nil return means a hard cut.
//
// The duration rules: the requested duration is capped at 0.5s when the
// style was drawn from the random sequence, then clamped so the overlap
// consumes no more than half of either neighbor. A non-positive result
// drops the transition entirely.
func (p *Policy) At(i int, leftDur, rightDur float64) *Descriptor {
	style := p.style
	fromRandom := false
	if p.style == tape.TransitionRandom {
		if i < 0 || i >= len(p.drawn) {
			return nil
		}
		style = p.drawn[i]
		fromRandom = true
	}
	if style == tape.TransitionNone || style == "" {
		return nil
	}

	d := p.requested
	if fromRandom && d > tape.RandomTransitionCap {
		d = tape.RandomTransitionCap
	}
	if half := leftDur / 2; d > half {
		d = half
	}
	if half := rightDur / 2; d > half {
		d = half
	}
	if d <= 0 {
		return nil
	}
	return &Descriptor{Style: style, Duration: d}
}
