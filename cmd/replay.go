package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mapview/internal/progress"
	"github.com/ziadkadry99/mapview/internal/replay"
	"github.com/ziadkadry99/mapview/internal/session"
	"github.com/ziadkadry99/mapview/internal/viewport"
)

var replayTolerance float64

var replayCmd = &cobra.Command{
	Use:   "replay <trace.yml>",
	Short: "Replay a recorded gesture trace and check markers stay pinned",
	Long: `Feeds the image-load and drag samples of a YAML trace through a fresh
viewer session built from the config, prints the per-sample deltas and
fails if any marker drifts off the map by more than the tolerance.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		tr, err := replay.LoadTrace(args[0])
		if err != nil {
			return err
		}

		sess, err := session.New("replay", cfg.Map.Sensitivity, cfg.InitialMarkers(), log)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}

		var natural viewport.Vec
		if asset := loadAsset(cfg, log); asset != nil {
			natural = asset.NaturalSize()
		}

		res, err := replay.Run(cmd.Context(), sess, tr, natural, progress.NewReporter(os.Stderr))
		if err != nil {
			return fmt.Errorf("replaying %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		for _, f := range res.Frames {
			fmt.Fprintf(out, "%3d %-4s delta=(%g, %g) offset=(%g, %g)\n",
				f.Step, f.Kind, f.Delta.X, f.Delta.Y, f.Offset.X, f.Offset.Y)
		}
		fmt.Fprintln(out)
		for _, m := range res.Final.Markers {
			fmt.Fprintf(out, "%s at (%g, %g)\n", m.ID, m.Position.X, m.Position.Y)
		}
		fmt.Fprintf(out, "max drift: %g\n", res.MaxDrift)

		if res.MaxDrift > replayTolerance {
			return fmt.Errorf("markers drifted %g px (tolerance %g)", res.MaxDrift, replayTolerance)
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().Float64Var(&replayTolerance, "tolerance", 1e-6, "maximum allowed marker drift in pixels")
	rootCmd.AddCommand(replayCmd)
}
