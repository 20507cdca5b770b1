// Package tape holds the immutable data model of a reel project: an ordered
// list of clips plus the global render settings that drive timeline
// composition. The model is authored elsewhere; the engine only reads it.
package tape

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MediaKind distinguishes moving footage from still photos.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaImage MediaKind = "image"
)

// Orientation selects the render canvas.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// CanvasSize returns the fixed render canvas in pixels: 1080x1920 for
// portrait reels, 1920x1080 for landscape. Unknown values default to
// portrait, the dominant reel format.
func (o Orientation) CanvasSize() (width, height int) {
	if o == OrientationLandscape {
		return 1920, 1080
	}
	return 1080, 1920
}

// ScaleMode controls how a clip's frame maps onto the canvas.
type ScaleMode string

const (
	// ScaleFit letterboxes: the whole frame stays visible.
	ScaleFit ScaleMode = "fit"
	// ScaleFill crops: the frame covers the whole canvas.
	ScaleFill ScaleMode = "fill"
)

// TransitionStyle names the treatment applied at a clip boundary.
type TransitionStyle string

const (
	TransitionNone      TransitionStyle = "none"
	TransitionCrossfade TransitionStyle = "crossfade"
	TransitionSlideLTR  TransitionStyle = "slide-ltr"
	TransitionSlideRTL  TransitionStyle = "slide-rtl"
	// TransitionRandom draws a concrete style per boundary from the tape's
	// seeded sequence; it never reaches the renderer itself.
	TransitionRandom TransitionStyle = "random"
)

const (
	// DefaultImageDuration is applied to still clips that carry no explicit
	// duration.
	DefaultImageDuration = 4.0

	// MinTransitionDuration and MaxTransitionDuration bound the
	// user-configurable transition length.
	MinTransitionDuration = 0.2
	MaxTransitionDuration = 1.0

	// RandomTransitionCap is the hard ceiling applied to the requested
	// duration whenever the style was drawn from the random sequence.
	RandomTransitionCap = 0.5

	// MaxLongSide and MaxShortSide bound still-image dimensions before any
	// transform math, keeping decoded frames within memory budget.
	MaxLongSide  = 1920
	MaxShortSide = 1080
)

// Clip is one video or still-image unit placed on the tape. Clips are value
// records: mutators return a copy with a refreshed UpdatedAt, which doubles
// as the resolver cache invalidation key.
type Clip struct {
	ID       string
	Kind     MediaKind
	Source   string
	Duration float64
	// NaturalWidth and NaturalHeight are the source pixel dimensions before
	// rotation. Zero means unknown until the asset is resolved.
	NaturalWidth  int
	NaturalHeight int
	// Rotation counts clockwise quarter turns (0-3) the frame must make to
	// display upright. Importers set it from container or EXIF metadata.
	Rotation int
	// ScaleMode overrides the tape-global mode when non-empty.
	ScaleMode ScaleMode
	UpdatedAt time.Time
}

// NewClip builds a clip with a fresh identity. Structural errors (negative
// duration, out-of-range rotation) are rejected here so the timeline math
// never sees them.
func NewClip(kind MediaKind, source string, duration float64) (Clip, error) {
	if kind != MediaVideo && kind != MediaImage {
		return Clip{}, errors.Errorf("unknown media kind %q", kind)
	}
	if duration < 0 {
		return Clip{}, errors.Errorf("negative clip duration %.3f", duration)
	}
	return Clip{
		ID:        uuid.NewString(),
		Kind:      kind,
		Source:    source,
		Duration:  duration,
		UpdatedAt: time.Now(),
	}, nil
}

// WithDuration returns a copy with the duration replaced.
func (c Clip) WithDuration(d float64) (Clip, error) {
	if d < 0 {
		return Clip{}, errors.Errorf("negative clip duration %.3f", d)
	}
	c.Duration = d
	c.UpdatedAt = time.Now()
	return c, nil
}

// WithRotation returns a copy rotated to the given quarter-turn count.
func (c Clip) WithRotation(turns int) (Clip, error) {
	if turns < 0 || turns > 3 {
		return Clip{}, errors.Errorf("rotation %d out of range 0-3", turns)
	}
	c.Rotation = turns
	c.UpdatedAt = time.Now()
	return c, nil
}

// WithScaleMode returns a copy with a per-clip scale-mode override.
func (c Clip) WithScaleMode(mode ScaleMode) Clip {
	c.ScaleMode = mode
	c.UpdatedAt = time.Now()
	return c
}

// Tape is a user's project: ordered clips plus global render settings.
// Clip order is playback order. The ID is stable across sessions and seeds
// the deterministic transition sequence.
type Tape struct {
	ID                 string
	Clips              []Clip
	Orientation        Orientation
	ScaleMode          ScaleMode
	TransitionStyle    TransitionStyle
	TransitionDuration float64
}

// New builds a tape with sane defaults: portrait, fit, crossfade at 0.5s.
func New(id string) Tape {
	if id == "" {
		id = uuid.NewString()
	}
	return Tape{
		ID:                 id,
		Orientation:        OrientationPortrait,
		ScaleMode:          ScaleFit,
		TransitionStyle:    TransitionCrossfade,
		TransitionDuration: 0.5,
	}
}

// ClampTransitionDuration folds an arbitrary requested duration into the
// supported range.
func ClampTransitionDuration(d float64) float64 {
	if d < MinTransitionDuration {
		return MinTransitionDuration
	}
	if d > MaxTransitionDuration {
		return MaxTransitionDuration
	}
	return d
}

// EffectiveScaleMode resolves the per-clip override against the tape global.
func (t Tape) EffectiveScaleMode(c Clip) ScaleMode {
	if c.ScaleMode != "" {
		return c.ScaleMode
	}
	if t.ScaleMode != "" {
		return t.ScaleMode
	}
	return ScaleFit
}

// Validate checks the tape's global settings. Clips are validated at
// construction; this guards documents loaded from disk.
func (t Tape) Validate() error {
	if t.ID == "" {
		return errors.New("tape has no identifier")
	}
	switch t.Orientation {
	case OrientationPortrait, OrientationLandscape:
	default:
		return errors.Errorf("unknown orientation %q", t.Orientation)
	}
	switch t.ScaleMode {
	case ScaleFit, ScaleFill:
	default:
		return errors.Errorf("unknown scale mode %q", t.ScaleMode)
	}
	switch t.TransitionStyle {
	case TransitionNone, TransitionCrossfade, TransitionSlideLTR, TransitionSlideRTL, TransitionRandom:
	default:
		return errors.Errorf("unknown transition style %q", t.TransitionStyle)
	}
	if t.TransitionDuration < 0 {
		return errors.Errorf("negative transition duration %.3f", t.TransitionDuration)
	}
	for i, c := range t.Clips {
		if c.Duration < 0 {
			return errors.Errorf("clip %d has negative duration", i)
		}
		if c.Rotation < 0 || c.Rotation > 3 {
			return errors.Errorf("clip %d rotation out of range", i)
		}
	}
	return nil
}
