package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PhantomInTheWire/image-tiler/pkg/storage"
)

func newPublishCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish [dir]",
		Short: "Upload tiles, manifest and merged image to an S3-compatible bucket",
		Long: `Upload the contents of a tile directory to an S3-compatible bucket such as MinIO.

The bucket is created when it does not exist. Objects are stored under the
configured prefix using their file names as keys.

Examples:
  tiler publish output --endpoint http://localhost:9000 --bucket tiles-bucket --prefix job1`,
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

			pub, err := storage.NewPublisher(cmd.Context(), cfg.Storage, log)
			if err != nil {
				return err
			}
			res, err := pub.Publish(cmd.Context(), dir, cfg.Merge.OutputName)
			if res != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d object(s) to %s\n", len(res.Uploaded), cfg.Storage.Bucket)
			}
			return err
		},
	}

	cmd.Flags().String("endpoint", "", "S3 endpoint URL, e.g. http://localhost:9000 for MinIO")
	cmd.Flags().String("region", "us-east-1", "bucket region")
	cmd.Flags().String("bucket", "", "destination bucket")
	cmd.Flags().String("prefix", "", "key prefix for uploaded objects")
	cmd.Flags().String("access-key", "", "access key (default: AWS credential chain)")
	cmd.Flags().String("secret-key", "", "secret key")

	v.BindPFlag("storage.endpoint", cmd.Flags().Lookup("endpoint"))
	v.BindPFlag("storage.region", cmd.Flags().Lookup("region"))
	v.BindPFlag("storage.bucket", cmd.Flags().Lookup("bucket"))
	v.BindPFlag("storage.prefix", cmd.Flags().Lookup("prefix"))
	v.BindPFlag("storage.access-key", cmd.Flags().Lookup("access-key"))
	v.BindPFlag("storage.secret-key", cmd.Flags().Lookup("secret-key"))
	return cmd
}
