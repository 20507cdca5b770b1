package resolve

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"

	"github.com/tapecut/tapecut/internal/tape"
)

// ImageProbe resolves still-image clips: it probes dimensions without
// decoding pixels, honors the clip's quarter-turn orientation, and clamps
// oversized sources to the bounded frame size.
type ImageProbe struct{}

func (ImageProbe) Resolve(_ context.Context, clip tape.Clip) (Context, error) {
	if clip.Kind != tape.MediaImage {
		return Context{}, errors.Wrapf(ErrUnsupportedMediaKind, "image resolver got %q", clip.Kind)
	}

	f, err := os.Open(clip.Source)
	if err != nil {
		return Context{}, errors.Wrapf(ErrAssetUnavailable, "open %s: %v", clip.Source, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Context{}, errors.Wrapf(ErrAssetUnavailable, "decode %s: %v", clip.Source, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Context{}, errors.Wrapf(ErrAssetUnavailable, "%s reports no dimensions", clip.Source)
	}

	// Orientation correction first: a physically rotated photo reports
	// swapped natural dimensions.
	w, h := cfg.Width, cfg.Height
	if clip.Rotation%2 == 1 {
		w, h = h, w
	}
	w, h = ClampSize(w, h)

	duration := clip.Duration
	if duration <= 0 {
		duration = tape.DefaultImageDuration
	}

	return Context{
		Width:    w,
		Height:   h,
		Rotation: clip.Rotation,
		Duration: duration,
		HasAudio: false,
		Still:    true,
	}, nil
}

// ClampSize bounds dimensions so the long side is at most 1920 and the
// short side at most 1080, preserving aspect ratio. Sizes already within
// bounds pass through unchanged.
func ClampSize(w, h int) (int, int) {
	long, short := w, h
	if h > w {
		long, short = h, w
	}

	scale := 1.0
	if s := float64(tape.MaxLongSide) / float64(long); s < scale {
		scale = s
	}
	if s := float64(tape.MaxShortSide) / float64(short); s < scale {
		scale = s
	}
	if scale >= 1.0 {
		return w, h
	}

	cw := int(float64(w) * scale)
	ch := int(float64(h) * scale)
	if cw < 1 {
		cw = 1
	}
	if ch < 1 {
		ch = 1
	}
	return cw, ch
}

// LoadBounded decodes a still and downscales it to the clamped size when
// the source exceeds the frame bounds. Used by the export path, which has
// to hold decoded pixels; the resolver itself never decodes.
func LoadBounded(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrAssetUnavailable, "open %s: %v", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(ErrAssetUnavailable, "decode %s: %v", path, err)
	}

	b := img.Bounds()
	cw, ch := ClampSize(b.Dx(), b.Dy())
	if cw == b.Dx() && ch == b.Dy() {
		return img, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, cw, ch))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst, nil
}

// ByKind dispatches to a concrete resolver per media kind.
type ByKind struct {
	Video Resolver
	Image Resolver
}

// NewByKind builds the standard dispatch: ffprobe for videos, the image
// probe for stills.
func NewByKind() ByKind {
	return ByKind{Video: FFProbe{}, Image: ImageProbe{}}
}

func (r ByKind) Resolve(ctx context.Context, clip tape.Clip) (Context, error) {
	switch clip.Kind {
	case tape.MediaVideo:
		return r.Video.Resolve(ctx, clip)
	case tape.MediaImage:
		return r.Image.Resolve(ctx, clip)
	default:
		return Context{}, errors.Wrapf(ErrUnsupportedMediaKind, "%q", clip.Kind)
	}
}
