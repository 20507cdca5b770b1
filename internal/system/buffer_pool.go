package system

import (
	"image"
	"sync"
)

// framePool recycles the byte buffers behind the RGBA frames piped to
// ffmpeg during still encodes. Decoded stills vary in size, so buffers
// are pooled by capacity and re-sliced to the requested rectangle
// instead of being keyed by exact dimensions.
var framePool sync.Pool

// GetFrame returns an *image.RGBA for the rectangle, backed by a pooled
// buffer when a large enough one is available. The pixel contents are
// unspecified; callers draw over the full rectangle.
func GetFrame(rect image.Rectangle) *image.RGBA {
	w, h := rect.Dx(), rect.Dy()
	need := 4 * w * h

	if v := framePool.Get(); v != nil {
		if buf := v.([]byte); cap(buf) >= need {
			return &image.RGBA{
				Pix:    buf[:need],
				Stride: 4 * w,
				Rect:   rect,
			}
		}
		// Too small for this frame; drop it and allocate fresh.
	}
	return image.NewRGBA(rect)
}

// PutFrame returns a frame's buffer to the pool for reuse.
func PutFrame(img *image.RGBA) {
	if img == nil || cap(img.Pix) == 0 {
		return
	}
	framePool.Put(img.Pix[:0])
}
