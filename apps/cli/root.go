package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PhantomInTheWire/image-tiler/pkg/config"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)
	var cfgFile string

	root := &cobra.Command{
		Use:   "tiler <image-path> <rows> <cols>",
		Short: "Split PNG images into tiles, merge them back and verify the result",
		Long: `tiler cuts a PNG into a rows x cols grid of tiles named split-<row>-<col>.png,
composites such tiles back into merged-image.png and compares files by SHA-256.

Examples:
  # Split into 2 rows and 3 columns under ./output
  tiler split photo.png 2 3

  # Same, legacy form
  tiler photo.png 2 3

  # Merge the tiles in ./output using 400x225 cells
  tiler merge output --cell-width 400 --cell-height 225

  # Check the merged image against a reference
  tiler compare output/merged-image.png output/test.png`,
		Args:          gridArgs,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runSplit(cmd, v, args)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tiler.yaml)")
	root.PersistentFlags().StringP("output", "o", "output", "tile directory")
	root.PersistentFlags().Int("workers", 0, "concurrent tile jobs (0 = number of CPUs)")
	root.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	root.Flags().Bool("no-manifest", false, "do not write manifest.json next to the tiles")

	v.BindPFlag("output", root.PersistentFlags().Lookup("output"))
	v.BindPFlag("workers", root.PersistentFlags().Lookup("workers"))
	v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newSplitCmd(v),
		newMergeCmd(v),
		newCompareCmd(v),
		newPublishCmd(v),
	)
	return root
}

// initConfig reads the config file and environment overrides into v.
func initConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".tiler")
	}

	config.BindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", v.ConfigFileUsed())
	return nil
}

func loadConfig(cmd *cobra.Command, v *viper.Viper) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, &exitError{code: 1, err: fmt.Errorf("invalid configuration: %w", err)}
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	return cfg, newLogger(cmd.ErrOrStderr(), level), nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// gridArgs accepts no arguments (help) or <image-path> <rows> <cols>.
func gridArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && cmd.HasSubCommands() {
		return nil
	}
	if len(args) != 3 {
		return fmt.Errorf("expected <image-path> <rows> <cols>, got %d argument(s)", len(args))
	}
	_, _, err := parseGrid(args[1], args[2])
	return err
}

func parseGrid(rowsArg, colsArg string) (rows, cols int, err error) {
	rows, err = strconv.Atoi(rowsArg)
	if err != nil || rows <= 0 {
		return 0, 0, fmt.Errorf("rows must be a positive integer, got %q", rowsArg)
	}
	cols, err = strconv.Atoi(colsArg)
	if err != nil || cols <= 0 {
		return 0, 0, fmt.Errorf("cols must be a positive integer, got %q", colsArg)
	}
	return rows, cols, nil
}
