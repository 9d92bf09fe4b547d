package split

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/PhantomInTheWire/image-tiler/pkg/tileset"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Options controls where and how tiles are written.
type Options struct {
	OutDir string
	// Workers bounds concurrent tile writes. Zero means GOMAXPROCS.
	Workers int
	// NoManifest disables writing manifest.json next to the tiles.
	NoManifest bool
	Logger     *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// File splits the PNG at inPath into rows×cols tiles in opts.OutDir.
// Failures on individual tiles are recorded in the report and do not stop
// the others; only a bad grid, an undecodable source or an unusable output
// directory fail the call.
func File(ctx context.Context, inPath string, rows, cols int, opts Options) (*Report, error) {
	if err := checkGrid(rows, cols); err != nil {
		return nil, err
	}
	src, err := decodePNG(inPath)
	if err != nil {
		return nil, err
	}
	return run(ctx, src, inPath, rows, cols, opts)
}

// Image splits an already decoded image. See File.
func Image(ctx context.Context, src image.Image, rows, cols int, opts Options) (*Report, error) {
	return run(ctx, src, "", rows, cols, opts)
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode source %s: %w", path, err)
	}
	if format != "png" {
		return nil, fmt.Errorf("%s is %s: %w", path, format, ErrUnsupportedFormat)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind source: %w", err)
	}
	img, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode source %s: %w", path, err)
	}
	return img, nil
}

func run(ctx context.Context, src image.Image, source string, rows, cols int, opts Options) (*Report, error) {
	log := opts.logger()
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	cells, err := Grid(w, h, rows, cols)
	if err != nil {
		return nil, err
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = "output"
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	rep := &Report{
		Source:     source,
		Dir:        outDir,
		Width:      w,
		Height:     h,
		Rows:       rows,
		Cols:       cols,
		CellWidth:  w / cols,
		CellHeight: h / rows,
		Results:    make([]Result, len(cells)),
	}
	log.Info("splitting image",
		slog.String("source", source),
		slog.String("size", fmt.Sprintf("%dx%d", w, h)),
		slog.String("cell", fmt.Sprintf("%dx%d", rep.CellWidth, rep.CellHeight)),
		slog.Int("rows", rows),
		slog.Int("cols", cols))

	g := new(errgroup.Group)
	g.SetLimit(opts.workers())
	for i, c := range cells {
		if c.Degenerate() {
			log.Info("skipping cell with no pixels", slog.Int("row", c.Row), slog.Int("col", c.Col))
			rep.Results[i] = Result{Cell: c, Status: StatusSkipped}
			continue
		}
		// Grid works in image space starting at 0,0.
		region := c.Rect.Add(b.Min)
		path := filepath.Join(outDir, tileset.Name(c.Row, c.Col))
		g.Go(func() error {
			res := Result{Cell: c, Path: path, Status: StatusWritten}
			if err := ctx.Err(); err != nil {
				res.Status, res.Err = StatusFailed, err
			} else if err := writeTile(src, region, path); err != nil {
				res.Status, res.Err = StatusFailed, err
				log.Error("tile extraction failed",
					slog.Int("row", c.Row), slog.Int("col", c.Col), slog.Any("error", err))
			} else {
				log.Debug("tile written",
					slog.Int("row", c.Row), slog.Int("col", c.Col),
					slog.String("rect", c.Rect.String()), slog.String("path", path))
			}
			rep.Results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("split interrupted: %w", err)
	}

	manifestPath := filepath.Join(outDir, tileset.ManifestName)
	if opts.NoManifest {
		// A manifest left by an earlier run would describe the wrong tiles.
		if err := os.Remove(manifestPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return rep, fmt.Errorf("remove stale manifest: %w", err)
		}
	} else {
		if err := tileset.WriteManifest(outDir, rep.manifest()); err != nil {
			return rep, err
		}
		rep.ManifestPath = manifestPath
	}

	log.Info("image split completed",
		slog.Int("written", rep.Count(StatusWritten)),
		slog.Int("skipped", rep.Count(StatusSkipped)),
		slog.Int("failed", rep.Count(StatusFailed)))
	return rep, nil
}

func writeTile(src image.Image, region image.Rectangle, path string) error {
	tile := imaging.Crop(src, region)
	if err := imaging.Save(tile, path); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}
