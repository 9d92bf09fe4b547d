package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/PhantomInTheWire/image-tiler/pkg/merge"
	"github.com/PhantomInTheWire/image-tiler/pkg/storage"
	"github.com/PhantomInTheWire/image-tiler/pkg/tileset"
)

// EnvPrefix namespaces environment overrides, e.g. TILER_OUTPUT.
const EnvPrefix = "TILER"

// BindEnv lets TILER_* variables override any key; dots and dashes in a
// key become underscores, so merge.cell-width is TILER_MERGE_CELL_WIDTH.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Merge holds the canvas settings used by the merger.
type Merge struct {
	CellWidth  int
	CellHeight int
	Background string
	OutputName string
}

// Config is the resolved configuration for every command.
type Config struct {
	OutputDir  string
	Workers    int
	LogLevel   string
	NoManifest bool
	Merge      Merge
	Storage    storage.MinioConfig
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output", "output")
	v.SetDefault("workers", 0)
	v.SetDefault("log-level", "info")
	v.SetDefault("no-manifest", false)
	v.SetDefault("merge.cell-width", merge.DefaultCellWidth)
	v.SetDefault("merge.cell-height", merge.DefaultCellHeight)
	v.SetDefault("merge.background", "ffffff")
	v.SetDefault("merge.output-name", tileset.MergedName)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.prefix", "")
}

// Load reads the configuration out of v and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		OutputDir:  v.GetString("output"),
		Workers:    v.GetInt("workers"),
		LogLevel:   v.GetString("log-level"),
		NoManifest: v.GetBool("no-manifest"),
		Merge: Merge{
			CellWidth:  v.GetInt("merge.cell-width"),
			CellHeight: v.GetInt("merge.cell-height"),
			Background: v.GetString("merge.background"),
			OutputName: v.GetString("merge.output-name"),
		},
		Storage: storage.MinioConfig{
			Endpoint:  v.GetString("storage.endpoint"),
			Region:    v.GetString("storage.region"),
			AccessKey: v.GetString("storage.access-key"),
			SecretKey: v.GetString("storage.secret-key"),
			Bucket:    v.GetString("storage.bucket"),
			Prefix:    v.GetString("storage.prefix"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that viper cannot type-check on its own.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("output directory must not be empty"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Merge.CellWidth <= 0 || c.Merge.CellHeight <= 0 {
		errs = append(errs, fmt.Errorf("merge cell size must be positive, got %dx%d", c.Merge.CellWidth, c.Merge.CellHeight))
	}
	if _, err := merge.ParseHexColor(c.Merge.Background); err != nil {
		errs = append(errs, err)
	}
	if name := c.Merge.OutputName; name == "" || strings.ContainsAny(name, `/\`) {
		errs = append(errs, fmt.Errorf("merge output name %q must be a plain file name", name))
	} else if _, err := tileset.Parse(name); err == nil {
		errs = append(errs, fmt.Errorf("merge output name %q collides with the tile naming pattern", name))
	}
	return errors.Join(errs...)
}

// MergeOptions converts the merge settings into merge.Options.
func (c Config) MergeOptions(log *slog.Logger) merge.Options {
	bg, _ := merge.ParseHexColor(c.Merge.Background)
	return merge.Options{
		CellWidth:  c.Merge.CellWidth,
		CellHeight: c.Merge.CellHeight,
		Background: bg,
		OutputName: c.Merge.OutputName,
		Workers:    c.Workers,
		Logger:     log,
	}
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}
