package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PhantomInTheWire/image-tiler/pkg/merge"
)

func newMergeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [dir]",
		Short: "Composite split-<row>-<col>.png tiles back into one image",
		Long: `Composite the tiles in dir (default: the output directory) into merged-image.png.

The grid size comes from the largest row and column found. Every tile is
resized to the cell size before it is placed; positions with no tile keep
the background colour. If manifest.json is present it lists the tiles,
otherwise file names are parsed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, log, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			dir := cfg.OutputDir
			if len(args) == 1 {
				dir = args[0]
			}

			res, err := merge.Dir(cmd.Context(), dir, cfg.MergeOptions(log))
			if err != nil {
				return fmt.Errorf("error completing the image merge process: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(res.Missing) > 0 {
				fmt.Fprintf(out, "%d tile(s) missing from the %dx%d grid.\n", len(res.Missing), res.Rows, res.Cols)
			}
			fmt.Fprintf(out, "Merged image saved to %s\n", res.Path)
			return nil
		},
	}

	cmd.Flags().Int("cell-width", merge.DefaultCellWidth, "width every tile is resized to")
	cmd.Flags().Int("cell-height", merge.DefaultCellHeight, "height every tile is resized to")
	cmd.Flags().String("background", "ffffff", "canvas colour as rrggbb or rrggbbaa")
	cmd.Flags().String("output-name", "merged-image.png", "merged file name inside the tile directory")

	v.BindPFlag("merge.cell-width", cmd.Flags().Lookup("cell-width"))
	v.BindPFlag("merge.cell-height", cmd.Flags().Lookup("cell-height"))
	v.BindPFlag("merge.background", cmd.Flags().Lookup("background"))
	v.BindPFlag("merge.output-name", cmd.Flags().Lookup("output-name"))
	return cmd
}
