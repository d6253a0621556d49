package downsample

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swift-toolbox/snaptools/logging"
	"github.com/swift-toolbox/snaptools/math/rand"
	"github.com/swift-toolbox/snaptools/snapshot"
	"github.com/swift-toolbox/snaptools/snapshot/mem"
	"github.com/swift-toolbox/snaptools/snapshot/snaptest"
)

func runConfig(seed uint64) Config {
	return Config{
		Input: "snap/snap_0000", Output: "out/small.hdf5",
		Fraction: 0.5, Seed: seed, Workers: 2, Log: logging.Discard(),
	}
}

func TestShards(t *testing.T) {
	fs := mem.New()
	require.NoError(t, fs.MkdirAll("snap"))
	for _, name := range []string{
		"snap/s.10.hdf5", "snap/s.2.hdf5", "snap/s.0.hdf5", "snap/s.1.hdf5",
		"snap/s.x.hdf5", "snap/other.0.hdf5",
	} {
		_, err := fs.Create(name)
		require.NoError(t, err)
	}
	shards, err := Shards(fs, "snap/s")
	require.NoError(t, err)
	assert.Equal(t, []string{"snap/s.0.hdf5", "snap/s.1.hdf5", "snap/s.2.hdf5", "snap/s.10.hdf5"}, shards)

	_, err = fs.Create("snap/single.hdf5")
	require.NoError(t, err)
	shards, err = Shards(fs, "./snap/single")
	require.NoError(t, err)
	assert.Equal(t, []string{"snap/single.hdf5"}, shards)

	_, err = Shards(fs, "snap/missing")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	fs, _, names := fixture(t)
	require.NoError(t, fs.MkdirAll("out"))
	cfg := runConfig(7)
	require.NoError(t, Run(context.Background(), fs, cfg))

	assert.False(t, fs.Exists(cfg.TempDir()), "temporary folder is removed")
	assert.Equal(t, append(append([]string{}, "out/small.hdf5"), names...), fs.Files())

	out, err := fs.Open("out/small.hdf5")
	require.NoError(t, err)
	hd, err := snapshot.ReadHeader(out)
	require.NoError(t, err)
	assert.Equal(t, int64(0), hd.ThisFile)
	assert.Equal(t, int64(1), hd.NumFilesPerSnapshot)
	assert.Equal(t, hd.NumPartThisFile, hd.NumPartTotal)
	assert.Equal(t, int64(3), hd.NumPartThisFile[5])

	// The output holds the gas kept by each shard in file order.
	kept := []snapshot.Array{}
	for i, name := range names {
		in, err := fs.Open(name)
		require.NoError(t, err)
		all, err := in.ReadDataset("/PartType0/Coordinates")
		require.NoError(t, err)
		mask := rand.New(rand.Xorshift, 7+uint64(i)).Mask(all.Rows(), 0.5)
		sampled, err := all.MaskRows(mask)
		require.NoError(t, err)
		kept = append(kept, sampled)
	}
	want, err := snapshot.Concat(kept...)
	require.NoError(t, err)
	got, err := out.ReadDataset("/PartType0/Coordinates")
	require.NoError(t, err)
	assert.True(t, snapshot.Equal(want, got), "sampled coordinates")
	assert.Equal(t, int64(got.Rows()), hd.NumPartThisFile[0])

	err = out.Walk(func(n snapshot.Node) error {
		assert.NotEqual(t, snapshot.VirtualDataset, n.Kind, n.Path)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, out.Exists("/StarsParticles/Masses"))

	for _, typ := range []int{0, 1, 4, 5} {
		cells, err := snapshot.ReadCells(out, typ)
		require.NoError(t, err)
		for _, file := range cells.Files { assert.Equal(t, int64(0), file) }
		assert.NoError(t, cells.CheckShard(0, hd.NumPartThisFile[typ]), snapshot.TypeGroup(typ))
	}
}

func TestRunDeterministic(t *testing.T) {
	read := func(seed uint64) snapshot.Array {
		fs, _, _ := fixture(t)
		require.NoError(t, fs.MkdirAll("out"))
		require.NoError(t, Run(context.Background(), fs, runConfig(seed)))
		out, err := fs.Open("out/small.hdf5")
		require.NoError(t, err)
		a, err := out.ReadDataset("/PartType0/Coordinates")
		require.NoError(t, err)
		return a
	}

	a, b, c := read(7), read(7), read(8)
	assert.True(t, snapshot.Equal(a, b), "same seed")
	assert.False(t, snapshot.Equal(a, c), "different seed")
}

func TestRunSingle(t *testing.T) {
	fs := mem.New()
	require.NoError(t, fs.MkdirAll("snap"))
	require.NoError(t, fs.MkdirAll("out"))
	s := &snaptest.Snapshot{
		Prefix: "snap/snap_0000", Single: true,
		Counts: [][snapshot.NumTypes]int64{{60, 20, 0, 0, 0, 1, 0}},
	}
	_, err := snaptest.Write(fs, s)
	require.NoError(t, err)

	cfg := runConfig(3)
	cfg.KeepTemporary = true
	require.NoError(t, Run(context.Background(), fs, cfg))
	assert.True(t, fs.Exists(cfg.TempDir()))

	out, err := fs.Open("out/small.hdf5")
	require.NoError(t, err)
	hd, err := snapshot.ReadHeader(out)
	require.NoError(t, err)
	assert.Equal(t, hd.NumPartThisFile, hd.NumPartTotal)
	assert.Equal(t, int64(1), hd.NumPartThisFile[5])
	assert.Less(t, hd.NumPartThisFile[0], int64(60))
}

func readTotals(t *testing.T, f snapshot.File) []int64 {
	t.Helper()
	hd, err := snapshot.ReadHeader(f)
	require.NoError(t, err)
	return hd.NumPartTotal
}

func TestRunKeepNothing(t *testing.T) {
	fs, _, _ := fixture(t)
	require.NoError(t, fs.MkdirAll("out"))
	cfg := runConfig(1)
	cfg.Fraction = 0
	require.NoError(t, Run(context.Background(), fs, cfg))

	out, err := fs.Open("out/small.hdf5")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 0, 0, 0, 3, 0}, readTotals(t, out))

	for _, p := range []string{
		"/PartType0/Masses", "/PartType0/Coordinates",
		"/PartType1/Coordinates", "/PartType4/Masses",
	} {
		a, err := out.ReadDataset(p)
		require.NoError(t, err, p)
		assert.Equal(t, 0, a.Rows(), p)
	}
	bh, err := out.ReadDataset("/PartType5/Coordinates")
	require.NoError(t, err)
	assert.Equal(t, 3, bh.Rows())

	cells, err := snapshot.ReadCells(out, 0)
	require.NoError(t, err)
	for i := range cells.Counts { assert.Equal(t, int64(0), cells.Counts[i]) }
	assert.NoError(t, cells.CheckShard(0, 0))
}

func TestRunKeepEverything(t *testing.T) {
	fs, s, names := fixture(t)
	require.NoError(t, fs.MkdirAll("out"))
	cfg := runConfig(1)
	cfg.Fraction = 1
	require.NoError(t, Run(context.Background(), fs, cfg))

	out, err := fs.Open("out/small.hdf5")
	require.NoError(t, err)
	assert.Equal(t, s.Totals(), readTotals(t, out))
	assert.Equal(t, []int64{250, 40, 0, 0, 8, 3, 0}, readTotals(t, out))

	for _, p := range []string{
		"/PartType0/Coordinates", "/PartType0/Masses",
		"/PartType1/Masses", "/PartType4/Velocities",
	} {
		parts := []snapshot.Array{}
		for _, name := range names {
			in, err := fs.Open(name)
			require.NoError(t, err)
			a, err := in.ReadDataset(p)
			require.NoError(t, err, p)
			parts = append(parts, a)
		}
		want, err := snapshot.Concat(parts...)
		require.NoError(t, err)
		got, err := out.ReadDataset(p)
		require.NoError(t, err, p)
		assert.True(t, snapshot.Equal(want, got), "%s is unchanged", p)
	}

	for _, typ := range []int{0, 1, 4} {
		_, counts, _ := s.Cells(typ)
		cells, err := snapshot.ReadCells(out, typ)
		require.NoError(t, err)
		assert.Equal(t, counts, cells.Counts, snapshot.TypeGroup(typ))
	}
}

func TestRunErrors(t *testing.T) {
	fs, _, _ := fixture(t)
	cfg := runConfig(1)
	cfg.Fraction = -0.1
	assert.Error(t, Run(context.Background(), fs, cfg))

	cfg = runConfig(1)
	cfg.Input = "snap/missing"
	assert.Error(t, Run(context.Background(), fs, cfg))
}
