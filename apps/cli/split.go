package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PhantomInTheWire/image-tiler/pkg/split"
)

func newSplitCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <image-path> <rows> <cols>",
		Short: "Split a PNG into a rows x cols grid of tiles",
		Long: `Split a PNG into a rows x cols grid of tiles.

Tiles in the last row and column absorb any remainder pixels, so they can be
larger than the others. Cells that would hold no pixels are skipped. A tile
that fails to write is reported and does not stop the others.`,
		Args: gridArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, v, args)
		},
	}
	cmd.Flags().Bool("no-manifest", false, "do not write manifest.json next to the tiles")
	return cmd
}

func runSplit(cmd *cobra.Command, v *viper.Viper, args []string) error {
	cmd.SilenceUsage = true
	rows, cols, err := parseGrid(args[1], args[2])
	if err != nil {
		return err
	}
	cfg, log, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}
	noManifest, _ := cmd.Flags().GetBool("no-manifest")

	rep, err := split.File(cmd.Context(), args[0], rows, cols, split.Options{
		OutDir:     cfg.OutputDir,
		Workers:    cfg.Workers,
		NoManifest: noManifest || cfg.NoManifest,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("error splitting the image: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Original dimensions: %dx%d\n", rep.Width, rep.Height)
	fmt.Fprintf(out, "Calculated split dimensions: %dx%d\n", rep.CellWidth, rep.CellHeight)
	fmt.Fprintln(out, renderSplitReport(out, rep))
	if n := rep.Count(split.StatusFailed); n > 0 {
		fmt.Fprintf(out, "Image split process completed with %d failed tile(s).\n", n)
		return nil
	}
	fmt.Fprintln(out, "Image split process completed!")
	return nil
}
