package snapshot

import (
	"fmt"

	"github.com/pkg/errors"
)

// DType is the element type of an Array.
type DType int

const (
	Int32 DType = iota
	Uint32
	Int64
	Uint64
	Float32
	Float64
	// String is only used for attributes.
	String
)

func (t DType) String() string {
	switch t {
	case Int32: return "int32"
	case Uint32: return "uint32"
	case Int64: return "int64"
	case Uint64: return "uint64"
	case Float32: return "float32"
	case Float64: return "float64"
	case String: return "string"
	}
	return fmt.Sprintf("DType(%d)", int(t))
}

// Size returns the number of bytes in one element. Strings have size 0.
func (t DType) Size() int {
	switch t {
	case Int32, Uint32, Float32: return 4
	case Int64, Uint64, Float64: return 8
	}
	return 0
}

// IsInteger returns true for the integer types.
func (t DType) IsInteger() bool {
	return t == Int32 || t == Uint32 || t == Int64 || t == Uint64
}

// Scalar is the set of Go types an Array can hold.
type Scalar interface {
	~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// Array is a dense, row-major block of values. Data is a typed slice
// ([]float32, []int64, []string, ...) holding Len() elements. Datasets have
// rank 1 or 2; attributes have rank 1.
type Array struct {
	Type  DType
	Shape []int
	Data  any
}

// Of wraps a slice in an Array. With no shape the Array has rank 1.
func Of[T Scalar](data []T, shape ...int) Array {
	if len(shape) == 0 { shape = []int{len(data)} }
	return Array{Type: dtypeOf(data), Shape: shape, Data: data}
}

// Strings wraps a slice of strings in a rank 1 Array.
func Strings(data ...string) Array {
	return Array{Type: String, Shape: []int{len(data)}, Data: data}
}

func dtypeOf(data any) DType {
	switch data.(type) {
	case []int32: return Int32
	case []uint32: return Uint32
	case []int64: return Int64
	case []uint64: return Uint64
	case []float32: return Float32
	case []float64: return Float64
	case []string: return String
	}
	panic(fmt.Sprintf("unsupported array data type %T", data))
}

// Zeros returns an Array of zeros with the given type and shape.
func Zeros(t DType, shape ...int) Array {
	n := 1
	for _, s := range shape { n *= s }
	return Array{Type: t, Shape: append([]int{}, shape...), Data: makeData(t, n)}
}

func makeData(t DType, n int) any {
	switch t {
	case Int32: return make([]int32, n)
	case Uint32: return make([]uint32, n)
	case Int64: return make([]int64, n)
	case Uint64: return make([]uint64, n)
	case Float32: return make([]float32, n)
	case Float64: return make([]float64, n)
	case String: return make([]string, n)
	}
	panic(fmt.Sprintf("unsupported dtype %s", t))
}

// Rows returns the length of the first dimension.
func (a Array) Rows() int {
	if len(a.Shape) == 0 { return 0 }
	return a.Shape[0]
}

// Width returns the number of elements in one row.
func (a Array) Width() int {
	w := 1
	for _, s := range a.Shape[1:] { w *= s }
	return w
}

// Len returns the total number of elements.
func (a Array) Len() int {
	if len(a.Shape) == 0 { return 0 }
	return a.Rows() * a.Width()
}

// Check returns an error if the length of Data doesn't match Shape or Type.
func (a Array) Check() error {
	if a.Data == nil {
		return errors.Wrap(ErrShape, "array has no data")
	}
	if t := dtypeOf(a.Data); t != a.Type {
		return errors.Wrapf(ErrShape, "array has type %s but holds %s", a.Type, t)
	}
	if n := sliceLen(a.Data); n != a.Len() {
		return errors.Wrapf(ErrShape,
			"array of shape %v holds %d elements", a.Shape, n)
	}
	return nil
}

func sliceLen(data any) int {
	switch x := data.(type) {
	case []int32: return len(x)
	case []uint32: return len(x)
	case []int64: return len(x)
	case []uint64: return len(x)
	case []float32: return len(x)
	case []float64: return len(x)
	case []string: return len(x)
	}
	return -1
}

// Like returns a zeroed Array with the same type and row width as a but
// the given number of rows.
func (a Array) Like(rows int) Array {
	shape := append([]int{rows}, a.Shape[1:]...)
	return Zeros(a.Type, shape...)
}

// Copy returns a deep copy of a.
func (a Array) Copy() Array {
	out := a.Like(a.Rows())
	out.Shape = append([]int{}, a.Shape...)
	copyData(out.Data, a.Data)
	return out
}

func copyData(dst, src any) {
	switch d := dst.(type) {
	case []int32: copy(d, src.([]int32))
	case []uint32: copy(d, src.([]uint32))
	case []int64: copy(d, src.([]int64))
	case []uint64: copy(d, src.([]uint64))
	case []float32: copy(d, src.([]float32))
	case []float64: copy(d, src.([]float64))
	case []string: copy(d, src.([]string))
	}
}

// MaskRows returns a new Array containing the rows of a for which mask is
// true.
func (a Array) MaskRows(mask []bool) (Array, error) {
	if len(mask) != a.Rows() {
		return Array{}, errors.Wrapf(ErrShape,
			"mask of length %d applied to %d rows", len(mask), a.Rows())
	}
	kept := 0
	for _, ok := range mask {
		if ok { kept++ }
	}

	out := a.Like(kept)
	w := a.Width()
	switch d := a.Data.(type) {
	case []int32: maskRows(out.Data.([]int32), d, mask, w)
	case []uint32: maskRows(out.Data.([]uint32), d, mask, w)
	case []int64: maskRows(out.Data.([]int64), d, mask, w)
	case []uint64: maskRows(out.Data.([]uint64), d, mask, w)
	case []float32: maskRows(out.Data.([]float32), d, mask, w)
	case []float64: maskRows(out.Data.([]float64), d, mask, w)
	case []string: maskRows(out.Data.([]string), d, mask, w)
	}
	return out, nil
}

func maskRows[T any](dst, src []T, mask []bool, w int) {
	j := 0
	for i, ok := range mask {
		if !ok { continue }
		copy(dst[j*w:(j+1)*w], src[i*w:(i+1)*w])
		j++
	}
}

// SliceRows returns the rows [start, end) of a. The data is shared.
func (a Array) SliceRows(start, end int) Array {
	w := a.Width()
	shape := append([]int{end - start}, a.Shape[1:]...)
	var data any
	switch d := a.Data.(type) {
	case []int32: data = d[start*w : end*w]
	case []uint32: data = d[start*w : end*w]
	case []int64: data = d[start*w : end*w]
	case []uint64: data = d[start*w : end*w]
	case []float32: data = d[start*w : end*w]
	case []float64: data = d[start*w : end*w]
	case []string: data = d[start*w : end*w]
	}
	return Array{Type: a.Type, Shape: shape, Data: data}
}

// Concat stacks arrays with the same type and row width along their first
// dimension.
func Concat(arrays ...Array) (Array, error) {
	if len(arrays) == 0 {
		return Array{}, errors.Wrap(ErrShape, "nothing to concatenate")
	}
	rows := 0
	for _, a := range arrays {
		if a.Type != arrays[0].Type || a.Width() != arrays[0].Width() ||
			len(a.Shape) != len(arrays[0].Shape) {
			return Array{}, errors.Wrapf(ErrShape,
				"can't concatenate %s%v with %s%v",
				arrays[0].Type, arrays[0].Shape, a.Type, a.Shape)
		}
		rows += a.Rows()
	}

	out := arrays[0].Like(rows)
	row := 0
	for _, a := range arrays {
		out.SetRows(row, a)
		row += a.Rows()
	}
	return out, nil
}

// SetRows copies the rows of src into a starting at row start. The types
// and widths must match.
func (a Array) SetRows(start int, src Array) {
	dst := a.SliceRows(start, start+src.Rows())
	copyData(dst.Data, src.Data)
}

// Divide divides every element of a floating point Array by f in place.
func (a Array) Divide(f float64) error {
	switch d := a.Data.(type) {
	case []float32:
		for i := range d { d[i] = float32(float64(d[i]) / f) }
	case []float64:
		for i := range d { d[i] /= f }
	default:
		return errors.Wrapf(ErrUnsupportedType, "can't divide %s data", a.Type)
	}
	return nil
}

// Float64s returns the elements of a numeric Array as float64 values.
func (a Array) Float64s() ([]float64, error) {
	switch d := a.Data.(type) {
	case []int32: return convert[float64](d), nil
	case []uint32: return convert[float64](d), nil
	case []int64: return convert[float64](d), nil
	case []uint64: return convert[float64](d), nil
	case []float32: return convert[float64](d), nil
	case []float64: return append([]float64{}, d...), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedType, "%s is not numeric", a.Type)
}

// Int64s returns the elements of an integer Array as int64 values.
func (a Array) Int64s() ([]int64, error) {
	switch d := a.Data.(type) {
	case []int32: return convert[int64](d), nil
	case []uint32: return convert[int64](d), nil
	case []int64: return append([]int64{}, d...), nil
	case []uint64: return convert[int64](d), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedType, "%s is not an integer type", a.Type)
}

// FromInt64s converts xs into an Array of the integer type t.
func FromInt64s(t DType, xs []int64) (Array, error) {
	var data any
	switch t {
	case Int32: data = convert[int32](xs)
	case Uint32: data = convert[uint32](xs)
	case Int64: data = append([]int64{}, xs...)
	case Uint64: data = convert[uint64](xs)
	case Float32: data = convert[float32](xs)
	case Float64: data = convert[float64](xs)
	default:
		return Array{}, errors.Wrapf(ErrUnsupportedType, "can't store integers as %s", t)
	}
	return Array{Type: t, Shape: []int{len(xs)}, Data: data}, nil
}

// FromFloat64s converts xs into an Array of the floating point type t.
func FromFloat64s(t DType, xs []float64) (Array, error) {
	var data any
	switch t {
	case Float32: data = convert[float32](xs)
	case Float64: data = append([]float64{}, xs...)
	default:
		return Array{}, errors.Wrapf(ErrUnsupportedType, "can't store floats as %s", t)
	}
	return Array{Type: t, Shape: []int{len(xs)}, Data: data}, nil
}

func convert[Out, In Scalar](xs []In) []Out {
	out := make([]Out, len(xs))
	for i := range xs { out[i] = Out(xs[i]) }
	return out
}

// Equal returns true if two Arrays have the same type, shape and elements.
func Equal(a, b Array) bool {
	if a.Type != b.Type || len(a.Shape) != len(b.Shape) { return false }
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] { return false }
	}
	switch x := a.Data.(type) {
	case []int32: return sliceEqual(x, b.Data.([]int32))
	case []uint32: return sliceEqual(x, b.Data.([]uint32))
	case []int64: return sliceEqual(x, b.Data.([]int64))
	case []uint64: return sliceEqual(x, b.Data.([]uint64))
	case []float32: return sliceEqual(x, b.Data.([]float32))
	case []float64: return sliceEqual(x, b.Data.([]float64))
	case []string: return sliceEqual(x, b.Data.([]string))
	}
	return false
}

func sliceEqual[T comparable](x, y []T) bool {
	if len(x) != len(y) { return false }
	for i := range x {
		if x[i] != y[i] { return false }
	}
	return true
}

// Convert returns a with its elements converted to type t. Integer to
// integer conversions go through int64 and everything else through
// float64. Strings can't be converted.
func Convert(a Array, t DType) (Array, error) {
	if a.Type == t { return a, nil }
	if a.Type == String || t == String {
		return Array{}, errors.Wrapf(ErrUnsupportedType,
			"can't convert %s to %s", a.Type, t)
	}

	var out Array
	if a.Type.IsInteger() && t.IsInteger() {
		xs, err := a.Int64s()
		if err != nil { return Array{}, err }
		if out, err = FromInt64s(t, xs); err != nil { return Array{}, err }
	} else {
		xs, err := a.Float64s()
		if err != nil { return Array{}, err }
		if t.IsInteger() {
			ys := make([]int64, len(xs))
			for i := range xs { ys[i] = int64(xs[i]) }
			if out, err = FromInt64s(t, ys); err != nil { return Array{}, err }
		} else if out, err = FromFloat64s(t, xs); err != nil {
			return Array{}, err
		}
	}
	out.Shape = append([]int{}, a.Shape...)
	return out, nil
}
