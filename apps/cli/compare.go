package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PhantomInTheWire/image-tiler/pkg/digest"
)

const exitMismatch = 2

func newCompareCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [path-a path-b]",
		Short: "Compare two files by SHA-256",
		Long: `Compare two files byte for byte using their SHA-256 digests.

Without arguments the merged image in the output directory is compared with
test.png in the same directory. Encoding or metadata differences count as a
mismatch even when the pixels are identical.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no arguments or two paths, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, _, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			a := filepath.Join(cfg.OutputDir, cfg.Merge.OutputName)
			b := filepath.Join(cfg.OutputDir, "test.png")
			if len(args) == 2 {
				a, b = args[0], args[1]
			}

			cmp, err := digest.Compare(cmd.Context(), a, b)
			if err != nil {
				return fmt.Errorf("error comparing images: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderComparison(out, cmp))
			fmt.Fprintln(out, cmp)

			failOnMismatch, _ := cmd.Flags().GetBool("fail-on-mismatch")
			if failOnMismatch && !cmp.Equal() {
				return &exitError{code: exitMismatch, silent: true}
			}
			return nil
		},
	}
	cmd.Flags().Bool("fail-on-mismatch", false, "exit with status 2 when the digests differ")
	return cmd
}
