package tileset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Set is the collection of tiles found in a directory.
type Set struct {
	Dir string
	// Manifest is nil when the set was built from file names alone.
	Manifest *Manifest
	// Missing lists positions the manifest names whose files are gone.
	Missing []Coord

	paths map[Coord]string
	rows  int
	cols  int
}

// Scan collects the tiles in dir. When dir holds a manifest it is the source
// of truth; otherwise every entry named split-<row>-<col>.png is a tile.
func Scan(dir string) (*Set, error) {
	m, err := ReadManifest(dir)
	switch {
	case err == nil:
		return fromManifest(dir, m)
	case isNotExist(err):
		return fromNames(dir)
	default:
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
}

func fromManifest(dir string, m *Manifest) (*Set, error) {
	s := newSet(dir)
	s.Manifest = m
	for _, e := range m.Tiles {
		c := Coord{Row: e.Row, Col: e.Col}
		p := filepath.Join(dir, e.Path)
		fi, err := os.Stat(p)
		if err != nil {
			if isNotExist(err) {
				s.Missing = append(s.Missing, c)
				continue
			}
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		if fi.IsDir() {
			s.Missing = append(s.Missing, c)
			continue
		}
		s.add(c, p)
	}
	return s, nil
}

func fromNames(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	s := newSet(dir)
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		c, err := Parse(de.Name())
		if err != nil {
			continue
		}
		s.add(c, filepath.Join(dir, de.Name()))
	}
	return s, nil
}

func newSet(dir string) *Set {
	return &Set{Dir: dir, paths: make(map[Coord]string)}
}

func (s *Set) add(c Coord, path string) {
	s.paths[c] = path
	if c.Row+1 > s.rows {
		s.rows = c.Row + 1
	}
	if c.Col+1 > s.cols {
		s.cols = c.Col + 1
	}
}

// Len reports how many tiles are present.
func (s *Set) Len() int { return len(s.paths) }

// Grid returns the row and column counts implied by the largest indices seen.
func (s *Set) Grid() (rows, cols int) { return s.rows, s.cols }

// Path returns the file for the tile at c.
func (s *Set) Path(c Coord) (string, bool) {
	p, ok := s.paths[c]
	return p, ok
}

// Paths returns every tile file in row-major order.
func (s *Set) Paths() []string {
	coords := make([]Coord, 0, len(s.paths))
	for c := range s.paths {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Row != coords[j].Row {
			return coords[i].Row < coords[j].Row
		}
		return coords[i].Col < coords[j].Col
	})
	out := make([]string, len(coords))
	for i, c := range coords {
		out[i] = s.paths[c]
	}
	return out
}
