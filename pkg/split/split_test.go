package split

import (
	"context"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhantomInTheWire/image-tiler/internal/testsupport"
	"github.com/PhantomInTheWire/image-tiler/pkg/tileset"
)

func quietOptions(dir string) Options {
	return Options{
		OutDir: dir,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestFile_TwoByTwo(t *testing.T) {
	tmp := t.TempDir()
	src := testsupport.Gradient(800, 450)
	in := testsupport.WritePNG(t, tmp, "source.png", src)
	out := filepath.Join(tmp, "output")

	rep, err := File(context.Background(), in, 2, 2, quietOptions(out))
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Count(StatusWritten))
	assert.Equal(t, 400, rep.CellWidth)
	assert.Equal(t, 225, rep.CellHeight)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"split-0-0.png", "split-0-1.png", "split-1-0.png", "split-1-1.png", tileset.ManifestName,
	}, names)

	for _, res := range rep.Results {
		tile := testsupport.ReadPNG(t, res.Path)
		require.Equal(t, image.Pt(400, 225), tile.Bounds().Size(), res.Path)
		for _, p := range []image.Point{{0, 0}, {399, 224}, {123, 45}} {
			want := src.NRGBAAt(res.Rect.Min.X+p.X, res.Rect.Min.Y+p.Y)
			assert.Equal(t, want, testsupport.NRGBAAt(tile, p.X, p.Y), "%s at %v", res.Path, p)
		}
	}
}

func TestFile_WritesManifest(t *testing.T) {
	tmp := t.TempDir()
	in := testsupport.WritePNG(t, tmp, "source.png", testsupport.Gradient(10, 7))
	out := filepath.Join(tmp, "tiles")

	rep, err := File(context.Background(), in, 2, 3, quietOptions(out))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, tileset.ManifestName), rep.ManifestPath)

	m, err := tileset.ReadManifest(out)
	require.NoError(t, err)
	assert.Equal(t, in, m.Source)
	assert.Equal(t, 10, m.Width)
	assert.Equal(t, 7, m.Height)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 3, m.Cols)
	assert.NotEmpty(t, m.ID)
	require.Len(t, m.Tiles, 6)

	last := m.Tiles[5]
	assert.Equal(t, tileset.Entry{Row: 1, Col: 2, Path: "split-1-2.png", Left: 6, Top: 3, Width: 4, Height: 4}, last)
}

func TestFile_SkipsDegenerateCells(t *testing.T) {
	tmp := t.TempDir()
	in := testsupport.WritePNG(t, tmp, "narrow.png", testsupport.Gradient(3, 4))
	out := filepath.Join(tmp, "output")

	rep, err := File(context.Background(), in, 1, 5, quietOptions(out))
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Count(StatusSkipped))
	assert.Equal(t, 1, rep.Count(StatusWritten))
	assert.Equal(t, []string{filepath.Join(out, "split-0-4.png")}, rep.Paths())
	assert.NoFileExists(t, filepath.Join(out, "split-0-0.png"))
}

func TestFile_TileFailureDoesNotStopSiblings(t *testing.T) {
	tmp := t.TempDir()
	in := testsupport.WritePNG(t, tmp, "source.png", testsupport.Gradient(20, 20))
	out := filepath.Join(tmp, "output")
	// A directory in the tile's place makes that one write fail.
	require.NoError(t, os.MkdirAll(filepath.Join(out, "split-0-1.png"), 0o755))

	rep, err := File(context.Background(), in, 2, 2, quietOptions(out))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Count(StatusWritten))
	require.Equal(t, 1, rep.Count(StatusFailed))

	failed := rep.Results[1]
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Error(t, failed.Err)

	m, err := tileset.ReadManifest(out)
	require.NoError(t, err)
	assert.Len(t, m.Tiles, 3)
	for _, e := range m.Tiles {
		assert.NotEqual(t, "split-0-1.png", e.Path)
	}
}

func TestFile_InvalidGridBeforeIO(t *testing.T) {
	_, err := File(context.Background(), "does-not-exist.png", 0, 2, quietOptions(t.TempDir()))
	assert.ErrorIs(t, err, ErrInvalidGrid)

	_, err = File(context.Background(), "does-not-exist.png", 1<<32, 1<<32, quietOptions(t.TempDir()))
	assert.ErrorIs(t, err, ErrInvalidGrid)
}

func TestFile_MissingSource(t *testing.T) {
	out := filepath.Join(t.TempDir(), "output")
	_, err := File(context.Background(), filepath.Join(t.TempDir(), "nope.png"), 2, 2, quietOptions(out))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoDirExists(t, out)
}

func TestFile_RejectsNonPNG(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "photo.jpg")
	f, err := os.Create(in)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, testsupport.Gradient(8, 8), nil))
	require.NoError(t, f.Close())

	_, err = File(context.Background(), in, 2, 2, quietOptions(filepath.Join(tmp, "out")))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFile_OutputDirCannotBeCreated(t *testing.T) {
	tmp := t.TempDir()
	in := testsupport.WritePNG(t, tmp, "source.png", testsupport.Gradient(4, 4))
	blocker := filepath.Join(tmp, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := File(context.Background(), in, 2, 2, quietOptions(filepath.Join(blocker, "out")))
	assert.ErrorContains(t, err, "create output dir")
}

func TestImage_NoManifestRemovesStaleOne(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, tileset.WriteManifest(out, tileset.NewManifest("old.png", 1, 1, 1, 1)))

	opts := quietOptions(out)
	opts.NoManifest = true
	rep, err := Image(context.Background(), testsupport.Gradient(4, 4), 2, 2, opts)
	require.NoError(t, err)
	assert.Empty(t, rep.ManifestPath)
	assert.NoFileExists(t, filepath.Join(out, tileset.ManifestName))
	assert.Len(t, rep.Paths(), 4)
}

func TestImage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := Image(ctx, testsupport.Gradient(4, 4), 2, 2, quietOptions(t.TempDir()))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, rep)
	assert.Equal(t, 4, rep.Count(StatusFailed))
}

func TestImage_NonZeroOrigin(t *testing.T) {
	src := testsupport.Gradient(20, 10)
	sub := src.SubImage(image.Rect(10, 0, 20, 10))
	out := t.TempDir()

	rep, err := Image(context.Background(), sub, 1, 2, quietOptions(out))
	require.NoError(t, err)
	tile := testsupport.ReadPNG(t, filepath.Join(out, "split-0-1.png"))
	assert.Equal(t, src.NRGBAAt(15, 3), testsupport.NRGBAAt(tile, 0, 3))
	assert.Equal(t, 2, rep.Count(StatusWritten))
}
