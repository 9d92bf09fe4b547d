package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/PhantomInTheWire/image-tiler/pkg/digest"
	"github.com/PhantomInTheWire/image-tiler/pkg/merge"
	"github.com/PhantomInTheWire/image-tiler/pkg/split"
)

// outcome classifies one round trip.
type outcome int

const (
	exact outcome = iota
	// lossy marks images whose remainder rows or columns were squeezed into
	// the base cell, so the merge cannot reproduce them.
	lossy
	mismatch
	// notMerged marks grids finer than the image, with a zero base cell.
	notMerged
)

func (o outcome) String() string {
	switch o {
	case exact:
		return "exact"
	case lossy:
		return "lossy (expected)"
	case mismatch:
		return "MISMATCH"
	case notMerged:
		return "not merged (grid finer than image)"
	default:
		return "unknown"
	}
}

// roundTrip is the result for one input image.
type roundTrip struct {
	input      string
	tiles      int
	merged     string
	outcome    outcome
	bytesEqual bool
	elapsed    time.Duration
}

func main() {
	v := viper.New()
	v.SetEnvPrefix("BENCH")
	v.AutomaticEnv()
	v.SetDefault("shared_dir", "../../shared")
	v.SetDefault("rows", 4)
	v.SetDefault("cols", 4)
	v.SetDefault("max_workers", 8)
	v.SetDefault("log_level", "info")

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	sharedDir := v.GetString("shared_dir")
	inputDir := filepath.Join(sharedDir, "input")
	outputDir := filepath.Join(sharedDir, "output")
	rows, cols := v.GetInt("rows"), v.GetInt("cols")
	maxWorkers := v.GetInt("max_workers")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := os.RemoveAll(outputDir); err != nil {
		log.Error("clean output", slog.Any("error", err))
		os.Exit(1)
	}

	results, err := runBench(ctx, inputDir, outputDir, rows, cols, maxWorkers, log)
	if err != nil {
		log.Error("round trip failed", slog.Any("error", err))
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Printf("No PNGs in %s\n", inputDir)
		return
	}

	failed := 0
	for _, r := range results {
		if r.outcome == mismatch {
			failed++
		}
		fmt.Printf("%s: %d tiles, %s, bytes equal=%t, %s → %s\n",
			r.input, r.tiles, r.outcome, r.bytesEqual, r.elapsed.Round(time.Millisecond), r.merged)
	}
	if failed > 0 {
		fmt.Printf("%d of %d images did not survive the round trip\n", failed, len(results))
		os.Exit(1)
	}
	fmt.Println("Done")
}

// runBench round-trips every PNG under inputDir, mirroring its directory
// layout under outputDir.
func runBench(ctx context.Context, inputDir, outputDir string, rows, cols, maxWorkers int, log *slog.Logger) ([]roundTrip, error) {
	var inputs []string
	err := filepath.Walk(inputDir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() && strings.EqualFold(filepath.Ext(p), ".png") {
			inputs = append(inputs, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", inputDir, err)
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	log.Info("starting round trips",
		slog.Int("images", len(inputs)), slog.Int("rows", rows), slog.Int("cols", cols), slog.Int("workers", maxWorkers))

	results := make([]roundTrip, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, file := range inputs {
		g.Go(func() error {
			res, err := processImage(gctx, file, tileDir(inputDir, outputDir, file), rows, cols, log)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// tileDir is where the tiles of file go: its path below inputDir, without
// the extension, under outputDir.
func tileDir(inputDir, outputDir, file string) string {
	rel, err := filepath.Rel(inputDir, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(file)
	}
	return filepath.Join(outputDir, strings.TrimSuffix(rel, filepath.Ext(rel)))
}

// processImage splits file into dir, merges the tiles back with the base
// cell size and checks the result against the source.
func processImage(ctx context.Context, file, dir string, rows, cols int, log *slog.Logger) (roundTrip, error) {
	start := time.Now()
	log = log.With(slog.String("image", file))

	rep, err := split.File(ctx, file, rows, cols, split.Options{OutDir: dir, Workers: 1, Logger: log})
	if err != nil {
		return roundTrip{}, err
	}
	if n := rep.Count(split.StatusFailed); n > 0 {
		return roundTrip{}, fmt.Errorf("%d tiles failed", n)
	}
	rt := roundTrip{input: file, tiles: rep.Count(split.StatusWritten)}

	if rep.CellWidth == 0 || rep.CellHeight == 0 {
		log.Warn("grid finer than image, skipping merge",
			slog.Int("width", rep.Width), slog.Int("height", rep.Height))
		rt.outcome = notMerged
		rt.elapsed = time.Since(start)
		return rt, nil
	}

	res, err := merge.Dir(ctx, dir, merge.Options{
		CellWidth:  rep.CellWidth,
		CellHeight: rep.CellHeight,
		Workers:    1,
		Logger:     log,
	})
	if err != nil {
		return roundTrip{}, err
	}
	rt.merged = res.Path

	src, err := imaging.Open(file)
	if err != nil {
		return roundTrip{}, err
	}
	merged, err := imaging.Open(res.Path)
	if err != nil {
		return roundTrip{}, err
	}
	cmp, err := digest.Compare(ctx, file, res.Path)
	if err != nil {
		return roundTrip{}, err
	}
	rt.bytesEqual = cmp.Equal()
	rt.outcome = classify(rep, samePixels(src, merged))
	rt.elapsed = time.Since(start)
	return rt, nil
}

// classify judges a merge. Only evenly divisible images must come back
// pixel-identical.
func classify(rep *split.Report, pixelsEqual bool) outcome {
	switch {
	case pixelsEqual:
		return exact
	case rep.Width%rep.Cols != 0 || rep.Height%rep.Rows != 0:
		return lossy
	default:
		return mismatch
	}
}

func samePixels(a, b image.Image) bool {
	if a.Bounds().Size() != b.Bounds().Size() {
		return false
	}
	return bytes.Equal(imaging.Clone(a).Pix, imaging.Clone(b).Pix)
}
