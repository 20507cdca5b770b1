package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tapecut/tapecut/internal/logging"
	"github.com/tapecut/tapecut/internal/plan"
	"github.com/tapecut/tapecut/internal/render"
	"github.com/tapecut/tapecut/internal/resolve"
	"github.com/tapecut/tapecut/internal/system"
	"github.com/tapecut/tapecut/internal/tape"
)

var (
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "tapecut",
		Short: "Compose short video reels from tape documents",
		Long: `tapecut builds a reel from a tape document: an ordered list of video
and image clips with a global transition style, scale mode, and canvas
orientation.

Examples:
  # Show the computed timeline for a tape
  tapecut plan tape.yaml

  # Render the tape to an mp4
  tapecut export tape.yaml -o reel.mp4`,
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect <tape.yaml>",
		Short: "Print the tape's settings and clip list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tape.LoadDocument(args[0])
			if err != nil {
				return err
			}
			w, h := t.Orientation.CanvasSize()
			fmt.Printf("tape %s: %dx%d %s, %s %.2fs, %d clips\n",
				t.ID, w, h, t.Orientation, t.TransitionStyle, t.TransitionDuration, len(t.Clips))
			for i, c := range t.Clips {
				fmt.Printf("#%d %s %s dur=%.2fs rot=%d\n", i, c.Kind, c.Source, c.Duration, c.Rotation)
			}
			return nil
		},
	}

	planCmd = &cobra.Command{
		Use:   "plan <tape.yaml>",
		Short: "Resolve the tape's assets and print the computed timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, p, _, err := buildPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, line := range p.Describe() {
				fmt.Println(line)
			}
			for _, seg := range p.Timeline.Segments {
				if seg.Out != nil {
					fmt.Printf("#%d -> #%d %s %.3fs\n",
						seg.Index, seg.Index+1, seg.Out.Style, seg.Out.Duration)
				}
			}
			fmt.Printf("total: %.3fs\n", p.Timeline.Duration)
			return nil
		},
	}

	exportCmd = &cobra.Command{
		Use:   "export <tape.yaml>",
		Short: "Render the tape to an mp4 file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath, _ := cmd.Flags().GetString("output")
			quality, _ := cmd.Flags().GetInt("quality")
			fps, _ := cmd.Flags().GetInt("fps")

			log := logging.New(logLevel)
			system.InitResourceLimits(log)

			t, p, contexts, err := buildPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(p.Instructions) == 0 {
				return errors.New("no clips could be placed on the timeline")
			}

			exp := render.NewExporter(logging.WithComponent(log, "render"))
			exp.Quality = quality
			exp.FPS = fps
			log.Info("exporting", "tape", t.ID, "segments", len(p.Instructions),
				"duration", p.Timeline.Duration, "encoder", exp.Encoder)

			if err := exp.Export(cmd.Context(), t, p, contexts, outPath); err != nil {
				return err
			}
			log.Info("export complete", "output", outPath)
			return nil
		},
	}
)

// buildPlan loads a tape document, resolves every clip's media in
// parallel, and computes the render plan.
func buildPlan(ctx context.Context, path string) (tape.Tape, plan.Plan, map[string]resolve.Context, error) {
	t, err := tape.LoadDocument(path)
	if err != nil {
		return tape.Tape{}, plan.Plan{}, nil, err
	}

	resolver := resolve.NewCache(resolve.NewByKind())
	contexts, skips, err := resolve.ResolveAll(ctx, resolver, t.Clips, system.ProbeWorkers())
	if err != nil {
		return tape.Tape{}, plan.Plan{}, nil, err
	}
	for _, s := range skips {
		fmt.Fprintf(os.Stderr, "warning: clip %d unavailable: %s\n", s.Index, s.Reason)
	}

	p, err := plan.Build(t, contexts)
	if err != nil {
		return tape.Tape{}, plan.Plan{}, nil, err
	}
	return t, p, contexts, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	exportCmd.Flags().StringP("output", "o", "reel.mp4", "Output video path")
	exportCmd.Flags().IntP("quality", "q", 23, "Encoder quality (CRF or equivalent)")
	exportCmd.Flags().Int("fps", 30, "Output frame rate")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
