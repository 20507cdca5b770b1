package resolve

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/tapecut/tapecut/internal/tape"
)

// FFProbe resolves video clips by probing the source file with ffprobe.
type FFProbe struct{}

func (FFProbe) Resolve(_ context.Context, clip tape.Clip) (Context, error) {
	if clip.Kind != tape.MediaVideo {
		return Context{}, errors.Wrapf(ErrUnsupportedMediaKind, "ffprobe resolver got %q", clip.Kind)
	}

	probe, err := ffmpeg.Probe(clip.Source)
	if err != nil {
		return Context{}, errors.Wrapf(ErrAssetUnavailable, "probe %s: %v", clip.Source, err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(probe), &data); err != nil {
		return Context{}, errors.Wrapf(ErrAssetUnavailable, "parse probe of %s: %v", clip.Source, err)
	}

	streams, _ := data["streams"].([]interface{})
	var videoStream map[string]interface{}
	hasAudio := false
	for _, raw := range streams {
		s, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		switch s["codec_type"] {
		case "video":
			if videoStream == nil {
				videoStream = s
			}
		case "audio":
			hasAudio = true
		}
	}
	if videoStream == nil {
		return Context{}, errors.Wrapf(ErrMissingVideoTrack, "%s", clip.Source)
	}

	width, _ := videoStream["width"].(float64)
	height, _ := videoStream["height"].(float64)
	if width <= 0 || height <= 0 {
		return Context{}, errors.Wrapf(ErrAssetUnavailable, "%s reports no dimensions", clip.Source)
	}

	duration := probeDuration(videoStream, data)
	if duration <= 0 {
		return Context{}, errors.Wrapf(ErrAssetUnavailable, "%s reports no duration", clip.Source)
	}

	// Container rotation wins over the importer's quarter-turn count; both
	// express the same correction.
	turns := clip.Rotation
	if t, ok := probeRotation(videoStream); ok {
		turns = t
	}
	w, h := int(width), int(height)
	if turns%2 == 1 {
		w, h = h, w
	}

	return Context{
		Width:    w,
		Height:   h,
		Rotation: turns,
		Duration: duration,
		HasAudio: hasAudio,
		Still:    false,
	}, nil
}

// probeDuration walks the fallback chain: video stream duration, container
// format duration, then frame count divided by frame rate.
func probeDuration(videoStream, data map[string]interface{}) float64 {
	if s, ok := videoStream["duration"].(string); ok {
		if d, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && d > 0 {
			return d
		}
	}
	if format, ok := data["format"].(map[string]interface{}); ok {
		if s, ok := format["duration"].(string); ok {
			if d, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && d > 0 {
				return d
			}
		}
	}
	frames, ok := videoStream["nb_frames"].(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseFloat(frames, 64)
	if err != nil {
		return 0
	}
	rate, ok := videoStream["r_frame_rate"].(string)
	if !ok {
		return 0
	}
	parts := strings.Split(rate, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 || num == 0 {
		return 0
	}
	return n / (num / den)
}

// probeRotation extracts display rotation as clockwise quarter turns from
// either the display-matrix side data or the legacy rotate tag.
func probeRotation(videoStream map[string]interface{}) (int, bool) {
	if sideData, ok := videoStream["side_data_list"].([]interface{}); ok {
		for _, raw := range sideData {
			sd, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if deg, ok := sd["rotation"].(float64); ok {
				return quarterTurns(int(deg)), true
			}
		}
	}
	if tags, ok := videoStream["tags"].(map[string]interface{}); ok {
		if s, ok := tags["rotate"].(string); ok {
			if deg, err := strconv.Atoi(s); err == nil {
				return quarterTurns(deg), true
			}
		}
	}
	return 0, false
}

// quarterTurns normalizes degrees to a 0-3 clockwise quarter-turn count.
// Display matrices report counter-clockwise rotation as negative degrees.
func quarterTurns(deg int) int {
	deg = ((deg % 360) + 360) % 360
	return (deg / 90) % 4
}
