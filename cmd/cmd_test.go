package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swift-toolbox/snaptools/inspect"
	"github.com/swift-toolbox/snaptools/logging"
	"github.com/swift-toolbox/snaptools/snapshot"
	"github.com/swift-toolbox/snaptools/snapshot/mem"
	"github.com/swift-toolbox/snaptools/snapshot/snaptest"
)

func testEnv(t *testing.T) (*Env, *GlobalConfig, []string) {
	t.Helper()
	fs := mem.New()
	for _, dir := range []string{"snap", "out", "ic"} {
		require.NoError(t, fs.MkdirAll(dir))
	}
	names, err := snaptest.Write(fs, &snaptest.Snapshot{
		Prefix: "snap/snap_0000", Redshift: 1,
		Counts: [][snapshot.NumTypes]int64{
			{100, 40, 0, 0, 3, 2, 0},
			{150, 0, 0, 0, 5, 1, 0},
		},
	})
	require.NoError(t, err)

	g := &GlobalConfig{}
	require.NoError(t, g.ReadConfig(""))
	g.Workers = 2
	return &Env{FS: fs, Log: logging.Discard()}, g, names
}

func runMode(t *testing.T, mode Mode, config string, e *Env, g *GlobalConfig, args ...string) ([]string, error) {
	t.Helper()
	fname := ""
	if config != "" {
		fname = filepath.Join(t.TempDir(), "mode.config")
		require.NoError(t, os.WriteFile(fname, []byte(config), 0644))
	}
	require.NoError(t, mode.ReadConfig(fname))
	return mode.Run(context.Background(), args, g, e)
}

func hasVirtual(t *testing.T, f snapshot.File) bool {
	t.Helper()
	found := false
	require.NoError(t, f.Walk(func(n snapshot.Node) error {
		if n.Kind == snapshot.VirtualDataset { found = true }
		return nil
	}))
	return found
}

func TestDownsampleMode(t *testing.T) {
	e, g, _ := testEnv(t)
	out, err := runMode(t, &DownsampleConfig{}, "", e, g,
		"snap/snap_0000", "out/small", "0.5", "7")
	require.NoError(t, err)
	assert.Equal(t, []string{"Wrote out/small.hdf5"}, out)

	f, err := e.FS.Open("out/small.hdf5")
	require.NoError(t, err)
	defer f.Close()
	hd, err := snapshot.ReadHeader(f)
	require.NoError(t, err)
	assert.Equal(t, int64(3), hd.NumPartTotal[5], "black holes are kept")
	assert.Less(t, hd.NumPartTotal[0], int64(250))
	assert.False(t, hasVirtual(t, f))
	assert.False(t, e.FS.Exists("out/small_temporary_files"))
}

func TestDownsampleModeTypes(t *testing.T) {
	e, g, _ := testEnv(t)
	_, err := runMode(t, &DownsampleConfig{},
		"[downsample.config]\nTypes = 1, 5\nKeepAll = 1, 5\nKeepTemporary = true",
		e, g, "snap/snap_0000", "out/dm.hdf5", "0.5", "3")
	require.NoError(t, err)

	f, err := e.FS.Open("out/dm.hdf5")
	require.NoError(t, err)
	defer f.Close()
	hd, err := snapshot.ReadHeader(f)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 40, 0, 0, 0, 3, 0}, hd.NumPartTotal)
	assert.True(t, e.FS.Exists("out/dm_temporary_files"))
}

func TestDownsampleModeErrors(t *testing.T) {
	e, g, _ := testEnv(t)
	tests := [][]string{
		{"snap/snap_0000", "out/x.hdf5", "0.5"},
		{"snap/snap_0000", "out/x.hdf5", "half", "1"},
		{"snap/snap_0000", "out/x.hdf5", "0.5", "-1"},
		{"snap/snap_0000", "out/x.hdf5", "1.5", "1"},
		{"snap/missing", "out/x.hdf5", "0.5", "1"},
	}
	for i := range tests {
		_, err := runMode(t, &DownsampleConfig{}, "", e, g, tests[i]...)
		assert.Error(t, err, "%d) %v", i, tests[i])
	}

	_, err := runMode(t, &DownsampleConfig{}, "", e, g,
		"snap/snap_0000", "out/none.hdf5", "0", "1")
	require.NoError(t, err, "a fraction of 0 keeps only the black holes")
	f, err := e.FS.Open("out/none.hdf5")
	require.NoError(t, err)
	defer f.Close()
	hd, err := snapshot.ReadHeader(f)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 0, 0, 0, 3, 0}, hd.NumPartTotal)
}

func TestVirtualAndMaterializeModes(t *testing.T) {
	e, g, _ := testEnv(t)
	out, err := runMode(t, ModeNames["virtual"], "", e, g,
		"snap/snap_0000.0.hdf5", "snap/snap_0000.hdf5")
	require.NoError(t, err)
	assert.Equal(t, []string{"Combined 2 files into snap/snap_0000.hdf5"}, out)

	f, err := e.FS.Open("snap/snap_0000.hdf5")
	require.NoError(t, err)
	assert.True(t, hasVirtual(t, f))
	require.NoError(t, f.Close())

	_, err = runMode(t, &MaterializeConfig{}, "", e, g,
		"snap/snap_0000.hdf5", "out/full.hdf5")
	require.NoError(t, err)
	assert.False(t, e.FS.Exists("out/full_temporary_files"))

	f, err = e.FS.Open("out/full.hdf5")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, hasVirtual(t, f))
	ids, err := f.ReadDataset("/PartType0/ParticleIDs")
	require.NoError(t, err)
	assert.Equal(t, 250, ids.Len())
}

func TestMaterializeModeTemp(t *testing.T) {
	e, g, _ := testEnv(t)
	_, err := runMode(t, ModeNames["virtual"], "", e, g,
		"snap/snap_0000", "snap/snap_0000.hdf5")
	require.NoError(t, err)

	mode := &MaterializeConfig{}
	_, err = runMode(t, mode,
		"[materialize.config]\nTempDir = out/scratch\nKeepTemporary = true",
		e, g, "snap/snap_0000.hdf5", "out/full.hdf5")
	require.NoError(t, err)
	assert.True(t, e.FS.Exists("out/scratch"))
}

func TestICMode(t *testing.T) {
	e, g, _ := testEnv(t)
	_, err := snaptest.Write(e.FS, &snaptest.Snapshot{
		Prefix: "ic/snap", Single: true, BoxSize: 10, Redshift: 1,
		Counts: [][snapshot.NumTypes]int64{{12, 5, 0, 0, 0, 2, 0}},
	})
	require.NoError(t, err)

	out, err := runMode(t, &ICConfig{}, "[ic.config]\nTypes = 1\nReplicate = 2",
		e, g, "ic/snap.hdf5", "ic/ics.hdf5")
	require.NoError(t, err)
	assert.Equal(t, "Wrote ic/ics.hdf5", out[0])
	assert.Contains(t, out[1], "0.5")

	f, err := e.FS.Open("ic/ics.hdf5")
	require.NoError(t, err)
	defer f.Close()
	assert.True(t, f.Exists("/PartType1/Coordinates"))
	assert.False(t, f.Exists("/PartType0"))
	ids, err := f.ReadDataset("/PartType1/ParticleIDs")
	require.NoError(t, err)
	assert.Equal(t, 40, ids.Len())

	_, err = runMode(t, &ICConfig{}, "", e, g, "ic/snap.hdf5", "ic/bad.hdf5")
	assert.Error(t, err, "the default lists need gas datasets the file lacks")
}

func TestInspectModes(t *testing.T) {
	e, g, names := testEnv(t)

	paths, err := runMode(t, ModeNames["contents"], "", e, g, names[0])
	require.NoError(t, err)
	assert.Contains(t, paths, "PartType0/Coordinates")
	assert.Contains(t, paths, "Cells/Counts/PartType0")

	yml := filepath.Join(t.TempDir(), "sizes.yml")
	_, err = runMode(t, ModeNames["sizes"], "", e, g, names[0], yml)
	require.NoError(t, err)
	r, err := os.Open(yml)
	require.NoError(t, err)
	defer r.Close()
	sizes, err := inspect.ReadSizes(r)
	require.NoError(t, err)
	assert.Equal(t, int64(100*3*8), sizes["PartType0/Coordinates"])

	lines, err := runMode(t, ModeNames["redshifts"], "", e, g, names...)
	require.NoError(t, err)
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "snap_0000.0.hdf5")
	assert.Contains(t, lines[1], "1.00")

	_, err = runMode(t, ModeNames["redshifts"], "", e, g)
	assert.Error(t, err)
	_, err = runMode(t, ModeNames["contents"], "", e, g, "snap/missing.hdf5")
	assert.Error(t, err)
}
