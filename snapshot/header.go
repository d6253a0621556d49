package snapshot

import (
	"github.com/pkg/errors"
)

// Header attribute names.
const (
	AttrNumPartThisFile      = "NumPart_ThisFile"
	AttrNumPartTotal         = "NumPart_Total"
	AttrNumPartTotalHighWord = "NumPart_Total_HighWord"
	AttrThisFile             = "ThisFile"
	AttrNumFilesPerSnapshot  = "NumFilesPerSnapshot"
	AttrBoxSize              = "BoxSize"
	AttrScaleFactor          = "Scale-factor"
	AttrRedshift             = "Redshift"
	AttrVirtual              = "Virtual"
)

// Header holds the attributes of a snapshot's Header group which snaptools
// needs. Everything else in the group is copied verbatim.
type Header struct {
	NumPartThisFile      []int64
	NumPartTotal         []int64
	NumPartTotalHighWord []int64
	ThisFile             int64
	NumFilesPerSnapshot  int64
	BoxSize              []float64
	ScaleFactor          float64
	Redshift             float64
}

// ReadHeader reads the Header group of f. The group and the
// NumPart_ThisFile attribute are required. Missing optional attributes get
// the values of a single-file snapshot.
func ReadHeader(f File) (*Header, error) {
	if !f.Exists(HeaderGroup) {
		return nil, errors.Wrapf(ErrNotFound,
			"%s has no %s group", f.Name(), HeaderGroup)
	}

	hd := &Header{NumFilesPerSnapshot: 1}
	var err error
	if hd.NumPartThisFile, err = readInts(f, AttrNumPartThisFile, true); err != nil {
		return nil, err
	}
	if hd.NumPartTotal, err = readInts(f, AttrNumPartTotal, false); err != nil {
		return nil, err
	} else if hd.NumPartTotal == nil {
		hd.NumPartTotal = append([]int64{}, hd.NumPartThisFile...)
	}
	if hd.NumPartTotalHighWord, err = readInts(f, AttrNumPartTotalHighWord, false); err != nil {
		return nil, err
	} else if hd.NumPartTotalHighWord == nil {
		hd.NumPartTotalHighWord = make([]int64, len(hd.NumPartTotal))
	}

	if len(hd.NumPartTotal) != len(hd.NumPartThisFile) ||
		len(hd.NumPartTotalHighWord) != len(hd.NumPartThisFile) {
		return nil, errors.Wrapf(ErrShape,
			"%s has particle count attributes of different lengths", f.Name())
	}

	if x, err := readInts(f, AttrThisFile, false); err != nil {
		return nil, err
	} else if len(x) > 0 {
		hd.ThisFile = x[0]
	}
	if x, err := readInts(f, AttrNumFilesPerSnapshot, false); err != nil {
		return nil, err
	} else if len(x) > 0 {
		hd.NumFilesPerSnapshot = x[0]
	}
	if hd.BoxSize, err = readFloats(f, AttrBoxSize); err != nil {
		return nil, err
	}
	if x, err := readFloats(f, AttrScaleFactor); err != nil {
		return nil, err
	} else if len(x) > 0 {
		hd.ScaleFactor = x[0]
	}
	if x, err := readFloats(f, AttrRedshift); err != nil {
		return nil, err
	} else if len(x) > 0 {
		hd.Redshift = x[0]
	}

	return hd, nil
}

func readInts(f File, name string, required bool) ([]int64, error) {
	a, err := f.ReadAttr(HeaderGroup, name)
	if errors.Is(err, ErrNotFound) && !required {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "I couldn't read %s/%s from %s",
			HeaderGroup, name, f.Name())
	}
	xs, err := a.Int64s()
	return xs, errors.Wrapf(err, "%s/%s in %s", HeaderGroup, name, f.Name())
}

func readFloats(f File, name string) ([]float64, error) {
	a, err := f.ReadAttr(HeaderGroup, name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "I couldn't read %s/%s from %s",
			HeaderGroup, name, f.Name())
	}
	xs, err := a.Float64s()
	return xs, errors.Wrapf(err, "%s/%s in %s", HeaderGroup, name, f.Name())
}

// TotalCounts combines the low and high words of the total particle
// counts.
func (hd *Header) TotalCounts() []int64 {
	out := make([]int64, len(hd.NumPartTotal))
	for i := range out {
		out[i] = hd.NumPartTotal[i] + hd.NumPartTotalHighWord[i]<<32
	}
	return out
}

// SplitCounts splits 64-bit totals into 32-bit low and high words.
func SplitCounts(totals []int64) (low, high []int64) {
	low, high = make([]int64, len(totals)), make([]int64, len(totals))
	for i, n := range totals {
		low[i], high[i] = n&0xffffffff, n>>32
	}
	return low, high
}

// WriteInts writes an integer attribute, keeping the element type of the
// attribute it replaces. New attributes are stored as int64.
func WriteInts(f File, path, name string, xs []int64) error {
	t := Int64
	if old, err := f.ReadAttr(path, name); err == nil {
		t = old.Type
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	a, err := FromInt64s(t, xs)
	if err != nil { return errors.Wrapf(err, "%s/%s", path, name) }
	return errors.Wrapf(f.WriteAttr(path, name, a),
		"I couldn't write %s/%s to %s", path, name, f.Name())
}

// WriteFloats is the floating point version of WriteInts. New attributes
// are stored as float64.
func WriteFloats(f File, path, name string, xs []float64) error {
	t := Float64
	if old, err := f.ReadAttr(path, name); err == nil && !old.Type.IsInteger() {
		t = old.Type
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	a, err := FromFloat64s(t, xs)
	if err != nil { return errors.Wrapf(err, "%s/%s", path, name) }
	return errors.Wrapf(f.WriteAttr(path, name, a),
		"I couldn't write %s/%s to %s", path, name, f.Name())
}
