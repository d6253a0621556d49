package snapshot

import (
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a file, group, dataset or attribute does
	// not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotDataset is returned when a dataset operation is applied to a
	// group or link.
	ErrNotDataset = errors.New("not a dataset")
	// ErrUnsupportedType is returned for element types snaptools can't read
	// or convert.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrShape is returned when arrays don't have the expected shape.
	ErrShape = errors.New("shape mismatch")
	// ErrExists is returned when creating an object that already exists.
	ErrExists = errors.New("already exists")
)
