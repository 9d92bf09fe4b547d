package split

import (
	"errors"
	"fmt"
	"image"

	"github.com/PhantomInTheWire/image-tiler/pkg/tileset"
)

var ErrInvalidGrid = errors.New("invalid grid")

// Cell is one grid position and the source region it covers. Rect is empty
// for degenerate cells, which happen when the grid is finer than the image.
type Cell struct {
	Row, Col int
	Rect     image.Rectangle
}

// Degenerate reports whether the cell covers no pixels.
func (c Cell) Degenerate() bool {
	return c.Rect.Dx() <= 0 || c.Rect.Dy() <= 0
}

// Grid partitions a w×h image into rows×cols cells in row-major order. Every
// cell has the base size floor(w/cols)×floor(h/rows) except the last row and
// column, which absorb the remainder pixels.
func Grid(w, h, rows, cols int) ([]Cell, error) {
	if err := checkGrid(rows, cols); err != nil {
		return nil, err
	}
	cw, ch := w/cols, h/rows

	cells := make([]Cell, 0, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			left, top := col*cw, row*ch

			width := cw
			if col == cols-1 {
				width = w - left
			}
			height := ch
			if row == rows-1 {
				height = h - top
			}
			width = min(width, w-left)
			height = min(height, h-top)

			c := Cell{Row: row, Col: col}
			if width > 0 && height > 0 {
				c.Rect = image.Rect(left, top, left+width, top+height)
			}
			cells = append(cells, c)
		}
	}
	return cells, nil
}

// checkGrid rejects grids whose tiles could not be named or merged back.
func checkGrid(rows, cols int) error {
	switch {
	case rows <= 0 || cols <= 0:
		return fmt.Errorf("%dx%d: rows and cols must be positive: %w", rows, cols, ErrInvalidGrid)
	case rows > tileset.MaxIndex+1 || cols > tileset.MaxIndex+1:
		return fmt.Errorf("%dx%d: rows and cols must be at most %d: %w", rows, cols, tileset.MaxIndex+1, ErrInvalidGrid)
	case rows > tileset.MaxTiles/cols:
		return fmt.Errorf("%dx%d: more than %d tiles: %w", rows, cols, tileset.MaxTiles, ErrInvalidGrid)
	}
	return nil
}
