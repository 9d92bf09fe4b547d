package tileset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		want    Coord
		wantErr bool
	}{
		{name: "split-0-0.png", want: Coord{0, 0}},
		{name: "split-12-3.png", want: Coord{12, 3}},
		{name: "split-01-0.png", wantErr: true},
		{name: "split-0-0.PNG", wantErr: true},
		{name: "split-0-0.png.bak", wantErr: true},
		{name: "xsplit-0-0.png", wantErr: true},
		{name: "split--1-0.png", wantErr: true},
		{name: "split-a-0.png", wantErr: true},
		{name: "split-65535-65535.png", want: Coord{MaxIndex, MaxIndex}},
		{name: "split-65536-0.png", wantErr: true},
		{name: "split-0-23058430092136940.png", wantErr: true},
		{name: "split-9223372036854775807-0.png", wantErr: true},
		{name: MergedName, wantErr: true},
		{name: ManifestName, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotTileName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, Name(got.Row, got.Col))
		})
	}
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestScan_FileNames(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"split-0-0.png", "split-2-1.png", "split-1-0.png", "notes.txt", MergedName} {
		touch(t, dir, n)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "split-5-5.png"), 0o755))

	s, err := Scan(dir)
	require.NoError(t, err)
	assert.Nil(t, s.Manifest)
	assert.Equal(t, 3, s.Len())
	rows, cols := s.Grid()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)

	p, ok := s.Path(Coord{2, 1})
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "split-2-1.png"), p)
	_, ok = s.Path(Coord{0, 1})
	assert.False(t, ok)

	assert.Equal(t, []string{
		filepath.Join(dir, "split-0-0.png"),
		filepath.Join(dir, "split-1-0.png"),
		filepath.Join(dir, "split-2-1.png"),
	}, s.Paths())
}

func TestScan_EmptyDir(t *testing.T) {
	s, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, s.Len())
	rows, cols := s.Grid()
	assert.Zero(t, rows)
	assert.Zero(t, cols)
}

func TestScan_ManifestWins(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "split-0-0.png")
	touch(t, dir, "split-0-1.png")
	// Left over from an earlier, larger split; not in the manifest.
	touch(t, dir, "split-3-3.png")

	m := NewManifest("in.png", 20, 10, 1, 3)
	m.Tiles = []Entry{
		{Row: 0, Col: 0, Path: "split-0-0.png"},
		{Row: 0, Col: 1, Path: "split-0-1.png"},
		{Row: 0, Col: 2, Path: "split-0-2.png"},
	}
	require.NoError(t, WriteManifest(dir, m))

	s, err := Scan(dir)
	require.NoError(t, err)
	require.NotNil(t, s.Manifest)
	assert.Equal(t, m.ID, s.Manifest.ID)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []Coord{{0, 2}}, s.Missing)
	rows, cols := s.Grid()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 2, cols)
}

func TestScan_BadManifest(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "split-0-0.png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte("{not json"), 0o644))

	_, err := Scan(dir)
	assert.ErrorContains(t, err, "decode manifest")
}

func TestReadManifest_RejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest("in.png", 1, 1, 1, 1)
	m.Tiles = []Entry{{Row: 0, Col: 0, Path: "../split-0-0.png"}}
	require.NoError(t, WriteManifest(dir, m))

	_, err := ReadManifest(dir)
	assert.ErrorContains(t, err, "invalid path")
}

func TestReadManifest_RejectsHugePositions(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest("in.png", 1, 1, 1, 1)
	m.Tiles = []Entry{{Row: 0, Col: MaxIndex + 1, Path: "split-0-0.png"}}
	require.NoError(t, WriteManifest(dir, m))

	_, err := ReadManifest(dir)
	assert.ErrorContains(t, err, "position above")
}

func TestScan_IgnoresOutOfRangeNames(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "split-0-0.png")
	touch(t, dir, "split-0-23058430092136940.png")

	s, err := Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	rows, cols := s.Grid()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 1, cols)
}

func TestReadManifest_Version(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest("in.png", 1, 1, 1, 1)
	m.Version = 7
	require.NoError(t, WriteManifest(dir, m))

	_, err := ReadManifest(dir)
	assert.ErrorContains(t, err, "version 7")
}

func TestWriteManifest_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest("in.png", 800, 450, 2, 2)
	m.CellWidth, m.CellHeight = 400, 225
	m.Tiles = append(m.Tiles, Entry{Row: 1, Col: 1, Path: "split-1-1.png", Left: 400, Top: 225, Width: 400, Height: 225})
	require.NoError(t, WriteManifest(dir, m))
	assert.NoFileExists(t, filepath.Join(dir, ManifestName+".tmp"))

	got, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m.Tiles, got.Tiles)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, 400, got.CellWidth)
}
