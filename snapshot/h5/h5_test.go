package h5

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swift-toolbox/snaptools/snapshot"
	"github.com/swift-toolbox/snaptools/snapshot/snaptest"
)

func writeFixture(t *testing.T) (FS, []string) {
	t.Helper()
	fs := New()
	s := &snaptest.Snapshot{
		Prefix: filepath.Join(t.TempDir(), "snap_0000"),
		Counts: [][snapshot.NumTypes]int64{
			{100, 40, 0, 0, 3, 2, 0},
			{150, 0, 0, 0, 5, 1, 0},
		},
		Redshift: 1,
	}
	names, err := snaptest.Write(fs, s)
	require.NoError(t, err)
	return fs, names
}

func TestHeaderAndAttrs(t *testing.T) {
	fs, names := writeFixture(t)
	f, err := fs.Open(names[1])
	require.NoError(t, err)
	defer f.Close()

	h, err := snapshot.ReadHeader(f)
	require.NoError(t, err)
	assert.Equal(t, []int64{150, 0, 0, 0, 5, 1, 0}, h.NumPartThisFile)
	assert.Equal(t, []int64{250, 40, 0, 0, 8, 3, 0}, h.NumPartTotal)
	assert.Equal(t, int64(1), h.ThisFile)
	assert.Equal(t, int64(2), h.NumFilesPerSnapshot)

	run, err := f.ReadAttr(snapshot.HeaderGroup, "RunName")
	require.NoError(t, err)
	assert.Equal(t, []string{"snaptest"}, run.Data)

	a, err := f.ReadAttr(snapshot.HeaderGroup, snapshot.AttrNumPartThisFile)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Uint32, a.Type)

	_, err = f.ReadAttr(snapshot.HeaderGroup, "Missing")
	assert.True(t, errors.Is(err, snapshot.ErrNotFound))
	assert.Error(t, f.WriteAttr(snapshot.HeaderGroup, "X", snapshot.Of([]int64{1})),
		"read-only handle")
}

func TestWalk(t *testing.T) {
	fs, names := writeFixture(t)
	f, err := fs.Open(names[0])
	require.NoError(t, err)
	defer f.Close()

	paths := map[string]snapshot.Kind{}
	require.NoError(t, f.Walk(func(n snapshot.Node) error {
		paths[n.Path] = n.Kind
		return nil
	}))
	assert.Equal(t, snapshot.Group, paths["/PartType0"])
	assert.Equal(t, snapshot.Dataset, paths["/PartType0/Masses"])
	assert.Equal(t, snapshot.Dataset, paths["/Cells/Counts/PartType4"])
	assert.NotContains(t, paths, "/GasParticles")
	assert.True(t, f.Exists("/GasParticles/Masses"))

	children, err := f.Children("/Cells")
	require.NoError(t, err)
	assert.Equal(t, []string{"Counts", "Files", "OffsetsInFile"}, children)
}

func TestDatasets(t *testing.T) {
	fs, names := writeFixture(t)
	src, err := fs.Open(names[0])
	require.NoError(t, err)
	defer src.Close()

	l, err := src.Layout("/PartType0/Coordinates")
	require.NoError(t, err)
	assert.Equal(t, []int{100, 3}, l.Shape)
	assert.Equal(t, []int{64, 3}, l.Chunk)
	assert.Equal(t, 4, l.Gzip)
	assert.True(t, l.Shuffle)

	ids, err := src.ReadDataset("/PartType0/ParticleIDs")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ids.Data.([]uint64)[0])

	dst, err := fs.Create(filepath.Join(filepath.Dir(names[0]), "out.hdf5"))
	require.NoError(t, err)
	defer dst.Close()
	require.NoError(t, dst.CreateGroup("/PartType0"))

	require.NoError(t, dst.CreateDatasetLike(src, "/PartType0/Coordinates", "/PartType0/Coordinates", 10))
	out, err := dst.Layout("/PartType0/Coordinates")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 3}, out.Shape)
	assert.Equal(t, []int{10, 3}, out.Chunk)
	assert.Equal(t, l.Type, out.Type)

	require.NoError(t, dst.CreateDatasetLike(src, "/PartType0/Masses", "/PartType0/Masses", 0))
	empty, err := dst.Layout("/PartType0/Masses")
	require.NoError(t, err)
	assert.Nil(t, empty.Chunk)
	assert.Empty(t, empty.Filters)

	xs, err := src.ReadDataset("/PartType0/Coordinates")
	require.NoError(t, err)
	first := xs.SliceRows(0, 10)
	require.NoError(t, dst.WriteDataset("/PartType0/Coordinates", first))
	back, err := dst.ReadDataset("/PartType0/Coordinates")
	require.NoError(t, err)
	assert.True(t, snapshot.Equal(first, back))

	assert.True(t, errors.Is(dst.WriteDataset("/PartType0/Coordinates", xs), snapshot.ErrShape))

	require.NoError(t, dst.CopyTree(src, "/Cells", "/Cells"))
	assert.True(t, dst.Exists("/Cells/Files/PartType5"))
	require.NoError(t, dst.CopyAttrs(src, "/Header", "/PartType0"))
	run, err := dst.ReadAttr("/PartType0", "RunName")
	require.NoError(t, err)
	assert.Equal(t, []string{"snaptest"}, run.Data)
}

func TestVirtual(t *testing.T) {
	fs, names := writeFixture(t)
	dir := filepath.Dir(names[0])
	f, err := fs.Create(filepath.Join(dir, "virtual.hdf5"))
	require.NoError(t, err)
	defer f.Close()

	layout := snapshot.Layout{Type: snapshot.Float32, Shape: []int{250}}
	sources := []snapshot.Source{
		{File: filepath.Base(names[0]), Dataset: "/PartType0/Masses", Rows: 100},
		{File: filepath.Base(names[1]), Dataset: "/PartType0/Masses", Rows: 150},
	}
	require.NoError(t, f.CreateGroup("/PartType0"))
	require.NoError(t, f.CreateVirtual("/PartType0/Masses", layout, sources))

	l, err := f.Layout("/PartType0/Masses")
	require.NoError(t, err)
	assert.True(t, l.Virtual)

	got, err := f.VirtualSources("/PartType0/Masses")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 150, got[1].Rows)

	a, err := f.ReadDataset("/PartType0/Masses")
	require.NoError(t, err)
	ms := a.Data.([]float32)
	require.Len(t, ms, 250)
	assert.Equal(t, float32(snaptest.Mass(1)), ms[0])
	assert.Equal(t, float32(snaptest.Mass(101)), ms[100])

	assert.True(t, errors.Is(f.CreateVirtual("/PartType0/Bad", layout, sources[:1]), snapshot.ErrShape))
}
