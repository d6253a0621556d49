package snapshot

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayShape(t *testing.T) {
	a := Of([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	assert.Equal(t, Float32, a.Type)
	assert.Equal(t, 2, a.Rows())
	assert.Equal(t, 3, a.Width())
	assert.Equal(t, 6, a.Len())
	assert.NoError(t, a.Check())

	bad := Array{Type: Float64, Shape: []int{2}, Data: []float32{1, 2}}
	assert.True(t, errors.Is(bad.Check(), ErrShape))
	bad = Array{Type: Float32, Shape: []int{3}, Data: []float32{1, 2}}
	assert.True(t, errors.Is(bad.Check(), ErrShape))
}

func TestMaskRows(t *testing.T) {
	a := Of([]int64{0, 1, 10, 11, 20, 21}, 3, 2)
	out, err := a.MaskRows([]bool{true, false, true})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, out.Shape)
	assert.Equal(t, []int64{0, 1, 20, 21}, out.Data)

	out, err = a.MaskRows([]bool{false, false, false})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, out.Shape)
	assert.NoError(t, out.Check())

	_, err = a.MaskRows([]bool{true})
	assert.True(t, errors.Is(err, ErrShape))
}

func TestConcat(t *testing.T) {
	a := Of([]float64{1, 2}, 1, 2)
	b := Of([]float64{}, 0, 2)
	c := Of([]float64{3, 4, 5, 6}, 2, 2)

	out, err := Concat(a, b, c)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, out.Shape)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, out.Data)

	_, err = Concat(a, Of([]float64{1, 2, 3}, 1, 3))
	assert.True(t, errors.Is(err, ErrShape))
	_, err = Concat(a, Of([]float32{1, 2}, 1, 2))
	assert.True(t, errors.Is(err, ErrShape))
}

func TestDivide(t *testing.T) {
	a := Of([]float32{1, 2})
	require.NoError(t, a.Divide(0.5))
	assert.Equal(t, []float32{2, 4}, a.Data)

	b := Of([]float64{3, 6}, 1, 2)
	require.NoError(t, b.Divide(3))
	assert.Equal(t, []float64{1, 2}, b.Data)

	assert.True(t, errors.Is(Of([]int32{1}).Divide(2), ErrUnsupportedType))
}

func TestConvert(t *testing.T) {
	xs, err := Of([]uint32{1, 2, 3}).Int64s()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, xs)

	_, err = Of([]float32{1}).Int64s()
	assert.True(t, errors.Is(err, ErrUnsupportedType))

	a, err := Convert(Of([]float64{1.5, 2.5}, 2, 1), Float32)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, 2.5}, a.Data)
	assert.Equal(t, []int{2, 1}, a.Shape)

	a, err = Convert(Of([]int64{7, 8}), Uint32)
	require.NoError(t, err)
	assert.Equal(t, []uint32{7, 8}, a.Data)

	_, err = Convert(Strings("a"), Int32)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestCopyAndEqual(t *testing.T) {
	a := Of([]int32{1, 2, 3})
	b := a.Copy()
	assert.True(t, Equal(a, b))
	b.Data.([]int32)[0] = 5
	assert.False(t, Equal(a, b))
	assert.False(t, Equal(a, Of([]int64{1, 2, 3})))
	assert.True(t, Equal(Strings("a", "b"), Strings("a", "b")))
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/PartType0/Masses", Clean("PartType0//Masses/"))
	assert.Equal(t, "/", Clean(""))
	assert.Equal(t, "/Cells/Counts/PartType1", Join(CellCountsGroup, "PartType1"))

	dir, name := Split("PartType0/Masses")
	assert.Equal(t, "/PartType0", dir)
	assert.Equal(t, "Masses", name)

	assert.Equal(t, "PartType0_Coordinates", TempName("/PartType0/Coordinates"))
}

func TestNames(t *testing.T) {
	for i := 0; i < NumTypes; i++ {
		j, err := TypeIndex(TypeGroup(i))
		require.NoError(t, err)
		assert.Equal(t, i, j)
	}
	_, err := TypeIndex("PartType9")
	assert.Error(t, err)
	_, err = TypeIndex("Header")
	assert.Error(t, err)

	assert.True(t, IsParticleGroup("/PartType3"))
	assert.True(t, IsParticleGroup("BHParticles"))
	assert.False(t, IsParticleGroup("Cells"))
}
