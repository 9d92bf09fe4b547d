package tileset

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// MergedName is the default file name the merger writes next to the tiles.
const MergedName = "merged-image.png"

const (
	// MaxIndex is the largest row or column a tile name or manifest may carry.
	MaxIndex = 1<<16 - 1
	// MaxTiles bounds rows*cols for a tile grid.
	MaxTiles = 1 << 20
)

var ErrNotTileName = errors.New("not a tile file name")

var tileNameRe = regexp.MustCompile(`^split-(\d+)-(\d+)\.png$`)

// Coord is a zero-based grid position.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Coord) String() string {
	return fmt.Sprintf("%d,%d", c.Row, c.Col)
}

// Name returns the file name used for the tile at row, col.
func Name(row, col int) string {
	return fmt.Sprintf("split-%d-%d.png", row, col)
}

// Parse extracts the grid position from a tile file name. The name must
// match the split-<row>-<col>.png pattern exactly, without leading zeros.
func Parse(name string) (Coord, error) {
	m := tileNameRe.FindStringSubmatch(name)
	if m == nil {
		return Coord{}, fmt.Errorf("%q: %w", name, ErrNotTileName)
	}
	row, err := strconv.Atoi(m[1])
	if err != nil {
		return Coord{}, fmt.Errorf("%q: row: %w", name, err)
	}
	col, err := strconv.Atoi(m[2])
	if err != nil {
		return Coord{}, fmt.Errorf("%q: col: %w", name, err)
	}
	if row > MaxIndex || col > MaxIndex {
		return Coord{}, fmt.Errorf("%q: index above %d: %w", name, MaxIndex, ErrNotTileName)
	}
	if Name(row, col) != name {
		return Coord{}, fmt.Errorf("%q: non-canonical: %w", name, ErrNotTileName)
	}
	return Coord{Row: row, Col: col}, nil
}
