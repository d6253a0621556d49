package inspect

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swift-toolbox/snaptools/catalog"
	"github.com/swift-toolbox/snaptools/logging"
	"github.com/swift-toolbox/snaptools/snapshot"
	"github.com/swift-toolbox/snaptools/snapshot/mem"
	"github.com/swift-toolbox/snaptools/snapshot/snaptest"
)

func write(t *testing.T, fs *mem.FS, prefix string, z float64) string {
	t.Helper()
	s := &snaptest.Snapshot{
		Prefix: prefix, Single: true, Redshift: z,
		Counts: [][snapshot.NumTypes]int64{{100, 0, 0, 0, 0, 0, 0}},
	}
	names, err := snaptest.Write(fs, s)
	require.NoError(t, err)
	return names[0]
}

func TestContentsAndSizes(t *testing.T) {
	fs := mem.New()
	f, err := fs.Open(write(t, fs, "snap_0000", 0))
	require.NoError(t, err)

	paths, err := Contents(f)
	require.NoError(t, err)
	assert.Contains(t, paths, "PartType0/Coordinates")
	assert.Contains(t, paths, "Cells/Counts/PartType0")
	assert.NotContains(t, paths, "PartType0")
	assert.NotContains(t, paths, "GasParticles/Coordinates")

	sizes, err := Sizes(f, logging.Discard())
	require.NoError(t, err)
	assert.Len(t, sizes, len(paths))
	assert.Equal(t, int64(100*3*8), sizes["PartType0/Coordinates"])
	assert.Equal(t, int64(100*4), sizes["PartType0/Masses"])

	buf := &bytes.Buffer{}
	require.NoError(t, WriteSizes(buf, sizes))
	assert.Contains(t, buf.String(), "PartType0/Coordinates: 2400")
	back, err := ReadSizes(buf)
	require.NoError(t, err)
	assert.Equal(t, sizes, back)
}

func TestRedshifts(t *testing.T) {
	fs := mem.New()
	require.NoError(t, fs.MkdirAll("run"))
	names := []string{
		write(t, fs, "run/colibre_0000", 20),
		write(t, fs, "run/colibre_0001", 0.1),
	}

	zs, err := Redshifts(fs, names)
	require.NoError(t, err)
	assert.Equal(t, []Redshift{{names[0], 20}, {names[1], 0.1}}, zs)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteRedshifts(buf, zs))
	assert.Contains(t, buf.String(), "colibre_0000.hdf5 20.00")
	assert.Contains(t, buf.String(), "colibre_0001.hdf5  0.10")

	_, fcols, scols, err := catalog.Parse(buf.Bytes(), nil, []int{1}, []int{0})
	require.NoError(t, err)
	assert.Equal(t, []string{"colibre_0000.hdf5", "colibre_0001.hdf5"}, scols[0])
	assert.InDelta(t, 0.1, fcols[0][1], 1e-9)

	_, err = Redshifts(fs, []string{"run/missing.hdf5"})
	assert.Error(t, err)
}
