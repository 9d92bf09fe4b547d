package tileset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	ManifestName    = "manifest.json"
	ManifestVersion = 1
)

// Entry describes one tile written by the splitter. Path is relative to the
// directory holding the manifest.
type Entry struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Path   string `json:"path"`
	Left   int    `json:"left"`
	Top    int    `json:"top"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Manifest is the explicit record of a split run.
type Manifest struct {
	Version    int       `json:"version"`
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	CellWidth  int       `json:"cell_width"`
	CellHeight int       `json:"cell_height"`
	CreatedAt  time.Time `json:"created_at"`
	Tiles      []Entry   `json:"tiles"`
}

// NewManifest returns a manifest stamped with a fresh id.
func NewManifest(source string, width, height, rows, cols int) *Manifest {
	return &Manifest{
		Version:   ManifestVersion,
		ID:        uuid.NewString(),
		Source:    source,
		Width:     width,
		Height:    height,
		Rows:      rows,
		Cols:      cols,
		CreatedAt: time.Now().UTC(),
		Tiles:     []Entry{},
	}
}

// WriteManifest stores m as dir/manifest.json, replacing any previous one.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	tmp := filepath.Join(dir, ManifestName+".tmp")
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, ManifestName)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads dir/manifest.json. A missing manifest is reported as an
// error wrapping os.ErrNotExist.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("manifest version %d not supported", m.Version)
	}
	for _, e := range m.Tiles {
		if e.Row < 0 || e.Col < 0 {
			return nil, fmt.Errorf("manifest tile %q: negative position", e.Path)
		}
		if e.Row > MaxIndex || e.Col > MaxIndex {
			return nil, fmt.Errorf("manifest tile %q: position above %d", e.Path, MaxIndex)
		}
		if e.Path == "" || filepath.IsAbs(e.Path) || filepath.Base(e.Path) != e.Path {
			return nil, fmt.Errorf("manifest tile %d,%d: invalid path %q", e.Row, e.Col, e.Path)
		}
	}
	return &m, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
