package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sync/errgroup"

	"github.com/tapecut/tapecut/internal/geometry"
	"github.com/tapecut/tapecut/internal/plan"
	"github.com/tapecut/tapecut/internal/resolve"
	"github.com/tapecut/tapecut/internal/system"
	"github.com/tapecut/tapecut/internal/tape"
)

// Exporter encodes a plan into a single mp4 file.
type Exporter struct {
	Encoder string
	Quality int
	FPS     int
	Log     *slog.Logger
}

// NewExporter picks the best available encoder and default quality.
func NewExporter(log *slog.Logger) *Exporter {
	return &Exporter{
		Encoder: system.GetBestH264Encoder(),
		Quality: 23,
		FPS:     30,
		Log:     log,
	}
}

// Export encodes every instruction into a uniform intermediate segment
// in a worker pool, then joins the segments into the final file. The
// resolved contexts must be the same set the plan was built from.
func (e *Exporter) Export(ctx context.Context, t tape.Tape, p plan.Plan, contexts map[string]resolve.Context, outPath string) error {
	if len(p.Instructions) == 0 {
		return errors.New("plan has no renderable segments")
	}

	tmpDir, err := os.MkdirTemp("", "tapecut_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	clips := make(map[string]tape.Clip, len(t.Clips))
	for _, c := range t.Clips {
		clips[c.ID] = c
	}

	segs := make([]string, len(p.Instructions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(system.EncodeWorkers())

	for i, in := range p.Instructions {
		i, in := i, in
		g.Go(func() error {
			segPath := filepath.Join(tmpDir, fmt.Sprintf("s%d.mp4", i))
			var err error
			if in.Still {
				err = e.encodeStill(gctx, in, contexts[in.ClipID], p, segPath)
			} else {
				mode := t.EffectiveScaleMode(clips[in.ClipID])
				err = e.encodeVideo(in, contexts[in.ClipID], mode, p, segPath)
			}
			if err != nil {
				return errors.Wrapf(err, "segment %d (%s)", i, in.Source)
			}
			segs[i] = segPath
			e.Log.Info("segment encoded", "index", i, "source", in.Source)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return e.concatenate(ctx, p, segs, outPath, tmpDir)
}

// encodeStill decodes the image, pipes one raw RGBA frame to ffmpeg and
// lets zoompan stretch it across the segment with the pan/zoom motion.
// The decoded pixels are unrotated, so the filter applies the context's
// quarter turns before scaling, matching the plan's base transform. A
// silent stereo track is attached so concatenation sees uniform inputs.
func (e *Exporter) encodeStill(ctx context.Context, in plan.Instruction, rctx resolve.Context, p plan.Plan, segPath string) error {
	img, err := resolve.LoadBounded(in.Source)
	if err != nil {
		return err
	}

	dur := in.Duration()
	bounds := img.Bounds()

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
		"-i", "-",
		"-f", "lavfi",
		"-t", fmt.Sprintf("%f", dur),
		"-i", "anullsrc=r=44100:cl=stereo",
		"-vf", StillFilter(rctx.Rotation, p.Canvas, e.FPS, dur, geometry.DefaultKenBurns()),
		"-t", fmt.Sprintf("%f", dur),
		"-r", fmt.Sprintf("%d", e.FPS),
		"-pix_fmt", "yuv420p",
		"-c:v", e.Encoder,
	}
	args = append(args, e.qualityArgs()...)
	args = append(args, "-c:a", "aac", "-shortest", segPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "stdin pipe")
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "ffmpeg start")
	}
	if err := writeRawRGBA(stdin, img); err != nil {
		stdin.Close()
		return errors.Wrap(err, "write frame")
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return errors.Wrapf(err, "ffmpeg: %s", out.String())
	}
	return nil
}

// encodeVideo trims and normalizes a video clip onto the canvas. The
// container's display rotation is applied by our own transpose chain,
// so ffmpeg's automatic rotation is turned off to avoid doubling it.
func (e *Exporter) encodeVideo(in plan.Instruction, rctx resolve.Context, mode tape.ScaleMode, p plan.Plan, segPath string) error {
	vin := ffmpeg.Input(in.Source, ffmpeg.KwArgs{"noautorotate": ""})
	streams := []*ffmpeg.Stream{vin}

	kw := ffmpeg.KwArgs{
		"vf":      VideoFilter(rctx.Rotation, mode, p.Canvas, e.FPS),
		"t":       in.Duration(),
		"pix_fmt": "yuv420p",
		"c:v":     e.Encoder,
		"c:a":     "aac",
		"ar":      44100,
		"ac":      2,
	}
	for k, v := range e.qualityKwargs() {
		kw[k] = v
	}

	if rctx.HasAudio {
		if af := AudioFilter(p.Timeline.Segments[in.Index]); af != "" {
			kw["af"] = af
		}
	} else {
		silence := ffmpeg.Input("anullsrc=r=44100:cl=stereo",
			ffmpeg.KwArgs{"f": "lavfi", "t": in.Duration()})
		streams = append(streams, silence)
		kw["shortest"] = ""
	}

	return ffmpeg.Output(streams, segPath, kw).
		OverWriteOutput().
		ErrorToStdOut().
		Run()
}

// concatenate joins the encoded segments. With no transitions the
// segments are stream-copied through the concat demuxer; otherwise a
// filter_complex applies xfade at each boundary and mixes the delayed
// audio tracks.
func (e *Exporter) concatenate(ctx context.Context, p plan.Plan, segs []string, outPath, tmpDir string) error {
	if len(segs) == 1 {
		// Rename fails across devices when tmpDir is tmpfs; copy then.
		if err := os.Rename(segs[0], outPath); err != nil {
			return copyFile(segs[0], outPath)
		}
		return nil
	}

	hasTransitions := false
	for _, seg := range p.Timeline.Segments {
		if seg.Out != nil {
			hasTransitions = true
			break
		}
	}

	if !hasTransitions {
		listPath := filepath.Join(tmpDir, "inputs.txt")
		f, err := os.Create(listPath)
		if err != nil {
			return err
		}
		for _, s := range segs {
			abs, _ := filepath.Abs(s)
			fmt.Fprintf(f, "file '%s'\n", abs)
		}
		f.Close()

		cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
			"-f", "concat", "-safe", "0", "-i", listPath,
			"-c", "copy", outPath,
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			return errors.Wrapf(err, "ffmpeg concat: %s", string(out))
		}
		return nil
	}

	args := []string{"-y"}
	for _, s := range segs {
		args = append(args, "-i", s)
	}

	graph, videoOut, audioOut := concatGraph(p.Timeline.Segments)
	args = append(args,
		"-filter_complex", graph,
		"-map", videoOut,
		"-map", audioOut,
		"-c:v", e.Encoder,
		"-pix_fmt", "yuv420p",
	)
	args = append(args, e.qualityArgs()...)
	args = append(args, "-c:a", "aac", outPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "ffmpeg xfade: %s", string(out))
	}
	return nil
}

// qualityArgs returns the encoder-specific rate control flags.
// VideoToolbox does not honor -q:v consistently, so it gets a bitrate.
func (e *Exporter) qualityArgs() []string {
	switch e.Encoder {
	case "h264_videotoolbox":
		return []string{"-b:v", fmt.Sprintf("%dk", e.Quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", e.Quality)}
	default:
		return []string{"-crf", fmt.Sprintf("%d", e.Quality), "-preset", "medium"}
	}
}

func (e *Exporter) qualityKwargs() ffmpeg.KwArgs {
	switch e.Encoder {
	case "h264_videotoolbox":
		return ffmpeg.KwArgs{"b:v": fmt.Sprintf("%dk", e.Quality*100)}
	case "h264_nvenc":
		return ffmpeg.KwArgs{"cq": e.Quality}
	default:
		return ffmpeg.KwArgs{"crf": e.Quality, "preset": "medium"}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		frame := system.GetFrame(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		defer system.PutFrame(frame)
		draw.Draw(frame, frame.Bounds(), img, bounds.Min, draw.Src)
		rgba = frame
	}
	_, err := w.Write(rgba.Pix)
	return err
}
