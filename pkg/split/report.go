package split

import (
	"path/filepath"

	"github.com/PhantomInTheWire/image-tiler/pkg/tileset"
)

type Status int

const (
	StatusWritten Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result is the outcome for one cell.
type Result struct {
	Cell
	Path   string
	Status Status
	Err    error
}

// Report summarises a split run. Results are in row-major order.
type Report struct {
	Source       string
	Dir          string
	ManifestPath string
	Width        int
	Height       int
	Rows         int
	Cols         int
	CellWidth    int
	CellHeight   int
	Results      []Result
}

// Count returns how many cells ended with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Paths lists the written tile files.
func (r *Report) Paths() []string {
	var out []string
	for _, res := range r.Results {
		if res.Status == StatusWritten {
			out = append(out, res.Path)
		}
	}
	return out
}

func (r *Report) manifest() *tileset.Manifest {
	m := tileset.NewManifest(r.Source, r.Width, r.Height, r.Rows, r.Cols)
	m.CellWidth, m.CellHeight = r.CellWidth, r.CellHeight
	for _, res := range r.Results {
		if res.Status != StatusWritten {
			continue
		}
		m.Tiles = append(m.Tiles, tileset.Entry{
			Row:    res.Row,
			Col:    res.Col,
			Path:   filepath.Base(res.Path),
			Left:   res.Rect.Min.X,
			Top:    res.Rect.Min.Y,
			Width:  res.Rect.Dx(),
			Height: res.Rect.Dy(),
		})
	}
	return m
}
