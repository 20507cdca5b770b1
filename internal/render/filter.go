// Package render turns a computed plan into an mp4 via ffmpeg. Each
// instruction becomes a uniform intermediate segment; segments are then
// joined with xfade for the video and delayed amix for the audio.
package render

import (
	"fmt"
	"strings"

	"github.com/tapecut/tapecut/internal/geometry"
	"github.com/tapecut/tapecut/internal/tape"
	"github.com/tapecut/tapecut/internal/timeline"
)

// XfadeTransition maps a transition style to its ffmpeg xfade name.
// Crossfade becomes "fade"; a left-to-right slide pushes content toward
// +x, which xfade calls "slideright".
func XfadeTransition(style tape.TransitionStyle) string {
	switch style {
	case tape.TransitionSlideLTR:
		return "slideright"
	case tape.TransitionSlideRTL:
		return "slideleft"
	default:
		return "fade"
	}
}

// rotationChain is the transpose stage correcting a clockwise quarter-turn
// count. It must run before any scaling so fit/fill sees the upright frame.
func rotationChain(rotation int) []string {
	switch ((rotation % 4) + 4) % 4 {
	case 1:
		return []string{"transpose=1"}
	case 2:
		return []string{"hflip,vflip"}
	case 3:
		return []string{"transpose=2"}
	default:
		return nil
	}
}

// VideoFilter builds the per-segment filter for a video clip: rotation
// correction, then fit or fill scaling onto the canvas, then frame rate
// and sample aspect normalization so all segments concat cleanly.
func VideoFilter(rotation int, mode tape.ScaleMode, canvas geometry.Canvas, fps int) string {
	w, h := int(canvas.Width), int(canvas.Height)

	parts := rotationChain(rotation)

	if mode == tape.ScaleFill {
		parts = append(parts,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", w, h),
			fmt.Sprintf("crop=%d:%d", w, h),
		)
	} else {
		parts = append(parts,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w, h),
		)
	}

	parts = append(parts, fmt.Sprintf("fps=%d", fps), "setsar=1")
	return strings.Join(parts, ",")
}

// StillFilter builds the filter for an image segment: rotation correction
// first (decoded pixels arrive unrotated), then the frame is oversampled
// to twice the canvas so zoompan has subpixel room, and the pan/zoom
// motion runs across the whole duration.
func StillFilter(rotation int, canvas geometry.Canvas, fps int, duration float64, kb geometry.KenBurns) string {
	w, h := int(canvas.Width), int(canvas.Height)
	frames := int(duration * float64(fps))
	if frames < 2 {
		frames = 2
	}

	// Linear ramp over the frame count; on is the output frame index.
	ramp := fmt.Sprintf("(on/%d)", frames-1)
	zoom := fmt.Sprintf("%.4f+%.4f*%s", kb.StartScale, kb.EndScale-kb.StartScale, ramp)

	// The crop window drifts opposite the content motion.
	panX := fmt.Sprintf("iw/2-(iw/zoom/2)-(%.4f*iw)*%s", kb.EndX-kb.StartX, ramp)
	panY := fmt.Sprintf("ih/2-(ih/zoom/2)-(%.4f*ih)*%s", kb.EndY-kb.StartY, ramp)

	parts := rotationChain(rotation)
	parts = append(parts,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w*2, h*2),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w*2, h*2),
		fmt.Sprintf("zoompan=z='%s':d=%d:s=%dx%d:x='%s':y='%s':fps=%d",
			zoom, frames, w, h, panX, panY, fps),
		"setsar=1",
	)
	return strings.Join(parts, ",")
}

// AudioFilter bakes the segment's volume envelope into its audio track.
// Crossfades ramp in and out across their windows; slides mute the
// outgoing tail so the cut lands exactly at the switch point. An empty
// string means the track passes through untouched.
func AudioFilter(seg timeline.Segment) string {
	segDur := seg.End - seg.Start
	var parts []string

	if in := seg.In; in != nil && in.Style == tape.TransitionCrossfade {
		parts = append(parts, fmt.Sprintf("afade=t=in:st=0:d=%.3f", in.Duration))
	}
	if out := seg.Out; out != nil {
		start := segDur - out.Duration
		switch out.Style {
		case tape.TransitionCrossfade:
			parts = append(parts, fmt.Sprintf("afade=t=out:st=%.3f:d=%.3f", start, out.Duration))
		case tape.TransitionSlideLTR, tape.TransitionSlideRTL:
			parts = append(parts, fmt.Sprintf("volume=0:enable='gte(t,%.3f)'", start))
		}
	}
	return strings.Join(parts, ",")
}

// concatGraph builds the filter_complex joining encoded segments into
// one stream. Input i is expected to be segment i with both a video and
// an audio track. It returns the graph plus the output pad labels.
func concatGraph(segments []timeline.Segment) (graph, videoOut, audioOut string) {
	var b strings.Builder

	lastV := "[0:v]"
	for i := 1; i < len(segments); i++ {
		next := fmt.Sprintf("[%d:v]", i)
		out := fmt.Sprintf("[v%d]", i)

		if tr := segments[i-1].Out; tr != nil {
			// xfade offsets are absolute in the combined stream, which
			// is exactly the next segment's start on the timeline.
			fmt.Fprintf(&b, "%s%sxfade=transition=%s:duration=%.3f:offset=%.3f%s;",
				lastV, next, XfadeTransition(tr.Style), tr.Duration, segments[i].Start, out)
		} else {
			fmt.Fprintf(&b, "%s%sconcat=n=2:v=1:a=0%s;", lastV, next, out)
		}
		lastV = out
	}

	// Audio: shift every track to its absolute start and mix. Overlaps
	// already carry their envelopes, so the mix must not renormalize.
	labels := make([]string, len(segments))
	for i, seg := range segments {
		delay := int(seg.Start * 1000)
		label := fmt.Sprintf("[a%d]", i)
		fmt.Fprintf(&b, "[%d:a]adelay=%d|%d%s;", i, delay, delay, label)
		labels[i] = label
	}
	lastA := labels[0]
	if len(labels) > 1 {
		lastA = "[aout]"
		fmt.Fprintf(&b, "%samix=inputs=%d:normalize=0:duration=longest%s;",
			strings.Join(labels, ""), len(labels), lastA)
	}

	return strings.TrimSuffix(b.String(), ";"), lastV, lastA
}
