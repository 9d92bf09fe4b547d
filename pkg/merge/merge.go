package merge

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/PhantomInTheWire/image-tiler/pkg/tileset"
)

const (
	DefaultCellWidth  = 400
	DefaultCellHeight = 225

	// MaxCanvasPixels bounds the merged image, about 1 GiB of NRGBA.
	MaxCanvasPixels = 1 << 28
)

var (
	ErrNoTiles        = errors.New("no tiles found")
	ErrCanvasTooLarge = errors.New("canvas too large")
)

// Options controls the canvas the tiles are composited onto.
type Options struct {
	// CellWidth and CellHeight are the size every tile is resized to.
	CellWidth  int
	CellHeight int
	// Background fills canvas regions with no tile. Defaults to opaque white.
	Background color.Color
	// OutputName is the file written inside the tile directory.
	OutputName string
	Workers    int
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.CellWidth <= 0 {
		o.CellWidth = DefaultCellWidth
	}
	if o.CellHeight <= 0 {
		o.CellHeight = DefaultCellHeight
	}
	if o.Background == nil {
		o.Background = color.White
	}
	if o.OutputName == "" {
		o.OutputName = tileset.MergedName
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Result describes a finished merge.
type Result struct {
	Path    string
	Rows    int
	Cols    int
	Width   int
	Height  int
	Placed  int
	Missing []tileset.Coord
}

// Dir composites the tiles found in dir into a single image written to
// dir/opts.OutputName. The grid is inferred from the largest row and column
// present. Positions without a tile keep the background; any tile that
// cannot be decoded aborts the whole merge.
func Dir(ctx context.Context, dir string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	set, err := tileset.Scan(dir)
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("merge %s: %w", dir, ErrNoTiles)
	}
	rows, cols := set.Grid()
	cw, ch := opts.CellWidth, opts.CellHeight
	width, height, err := canvasSize(rows, cols, cw, ch)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", dir, err)
	}

	listed := make(map[tileset.Coord]bool, len(set.Missing))
	for _, c := range set.Missing {
		listed[c] = true
		attrs := []any{slog.Int("row", c.Row), slog.Int("col", c.Col)}
		if c.Row < rows && c.Col < cols {
			log.Warn("tile listed in manifest is missing", attrs...)
		} else {
			// Outside the grid the tiles on disk span.
			log.Debug("tile listed in manifest is missing", attrs...)
		}
	}

	res := &Result{
		Path:   filepath.Join(dir, opts.OutputName),
		Rows:   rows,
		Cols:   cols,
		Width:  width,
		Height: height,
	}
	log.Info("merging tiles",
		slog.String("dir", dir),
		slog.Int("rows", rows),
		slog.Int("cols", cols),
		slog.Bool("manifest", set.Manifest != nil),
		slog.String("canvas", fmt.Sprintf("%dx%d", res.Width, res.Height)))

	tiles := make([]*image.NRGBA, rows*cols)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c := tileset.Coord{Row: row, Col: col}
			path, ok := set.Path(c)
			if !ok {
				if !listed[c] {
					log.Warn("tile does not exist, skipping", slog.Int("row", row), slog.Int("col", col))
				}
				res.Missing = append(res.Missing, c)
				continue
			}
			idx := row*cols + col
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				img, err := loadCell(path, cw, ch)
				if err != nil {
					return err
				}
				tiles[idx] = img
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("merge %s: %w", dir, err)
	}

	canvas := imaging.New(res.Width, res.Height, opts.Background)
	for idx, tile := range tiles {
		if tile == nil {
			continue
		}
		at := image.Pt((idx%cols)*cw, (idx/cols)*ch)
		draw.Draw(canvas, tile.Bounds().Add(at), tile, tile.Bounds().Min, draw.Over)
		res.Placed++
	}

	if err := imaging.Save(canvas, res.Path); err != nil {
		return nil, fmt.Errorf("save merged image: %w", err)
	}
	log.Info("merged image saved", slog.String("path", res.Path), slog.Int("tiles", res.Placed))
	return res, nil
}

// canvasSize returns the merged image size for a rows×cols grid of cw×ch
// cells, refusing grids or canvases beyond the tile and pixel limits.
func canvasSize(rows, cols, cw, ch int) (w, h int, err error) {
	if rows > tileset.MaxTiles/cols {
		return 0, 0, fmt.Errorf("%dx%d grid exceeds %d tiles: %w", rows, cols, tileset.MaxTiles, ErrCanvasTooLarge)
	}
	if cw > MaxCanvasPixels/cols || ch > MaxCanvasPixels/rows {
		return 0, 0, fmt.Errorf("%dx%d cells of %dx%d: %w", rows, cols, cw, ch, ErrCanvasTooLarge)
	}
	w, h = cols*cw, rows*ch
	if w > MaxCanvasPixels/h {
		return 0, 0, fmt.Errorf("%dx%d canvas exceeds %d pixels: %w", w, h, MaxCanvasPixels, ErrCanvasTooLarge)
	}
	return w, h, nil
}

func loadCell(path string, w, h int) (*image.NRGBA, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	out := imaging.Resize(img, w, h, imaging.Lanczos)
	if out.Bounds().Dx() != w || out.Bounds().Dy() != h {
		return nil, fmt.Errorf("resize %s: got %dx%d", filepath.Base(path), out.Bounds().Dx(), out.Bounds().Dy())
	}
	return out, nil
}
