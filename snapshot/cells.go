package snapshot

import (
	"github.com/pkg/errors"

	"github.com/swift-toolbox/snaptools/math/sort"
)

const (
	CellOffsetsGroup = "/Cells/OffsetsInFile"
	CellCountsGroup  = "/Cells/Counts"
	CellFilesGroup   = "/Cells/Files"
)

// CellIndex is the spatial cell index of one particle type. Cell i holds
// the Counts[i] particles starting at Offsets[i] in file Files[i].
type CellIndex struct {
	Type    int
	Offsets []int64
	Counts  []int64
	Files   []int64

	offsetType, countType, fileType DType
}

// HasCells reports whether f has a cell index for particle type typ.
func HasCells(f File, typ int) bool {
	return f.Exists(Join(CellCountsGroup, TypeGroup(typ)))
}

// ReadCells reads the cell index of particle type typ.
func ReadCells(f File, typ int) (*CellIndex, error) {
	c := &CellIndex{Type: typ}
	var err error
	if c.Offsets, c.offsetType, err = readCellArray(f, CellOffsetsGroup, typ); err != nil {
		return nil, err
	}
	if c.Counts, c.countType, err = readCellArray(f, CellCountsGroup, typ); err != nil {
		return nil, err
	}
	if c.Files, c.fileType, err = readCellArray(f, CellFilesGroup, typ); err != nil {
		return nil, err
	}
	if len(c.Offsets) != len(c.Counts) || len(c.Files) != len(c.Counts) {
		return nil, errors.Wrapf(ErrShape,
			"the cell arrays of %s in %s have lengths %d, %d and %d",
			TypeGroup(typ), f.Name(), len(c.Offsets), len(c.Counts), len(c.Files))
	}
	return c, nil
}

func readCellArray(f File, group string, typ int) ([]int64, DType, error) {
	path := Join(group, TypeGroup(typ))
	a, err := f.ReadDataset(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "I couldn't read %s from %s", path, f.Name())
	}
	xs, err := a.Int64s()
	if err != nil {
		return nil, 0, errors.Wrapf(err, "%s in %s", path, f.Name())
	}
	return xs, a.Type, nil
}

// Len returns the number of cells.
func (c *CellIndex) Len() int { return len(c.Counts) }

// Copy returns a deep copy of c.
func (c *CellIndex) Copy() *CellIndex {
	out := *c
	out.Offsets = append([]int64{}, c.Offsets...)
	out.Counts = append([]int64{}, c.Counts...)
	out.Files = append([]int64{}, c.Files...)
	return &out
}

// Owned returns the indices of the cells stored in file fileIndex.
func (c *CellIndex) Owned(fileIndex int64) []int {
	idx := []int{}
	for i, file := range c.Files {
		if file == fileIndex { idx = append(idx, i) }
	}
	return idx
}

// Write overwrites the cell arrays of f with c, keeping their element
// types.
func (c *CellIndex) Write(f File) error {
	arrays := []struct {
		group string
		typ   DType
		xs    []int64
	}{
		{CellOffsetsGroup, c.offsetType, c.Offsets},
		{CellCountsGroup, c.countType, c.Counts},
		{CellFilesGroup, c.fileType, c.Files},
	}

	for _, arr := range arrays {
		path := Join(arr.group, TypeGroup(c.Type))
		a, err := FromInt64s(arr.typ, arr.xs)
		if err != nil { return errors.Wrapf(err, "%s", path) }
		if err := f.WriteDataset(path, a); err != nil {
			return errors.Wrapf(err, "I couldn't write %s to %s", path, f.Name())
		}
	}
	return nil
}

// CheckShard checks the cells stored in file fileIndex against a shard
// holding npart particles of this type: the owned counts must sum to npart
// and the owned non-empty ranges must lie inside the shard without
// overlapping.
func (c *CellIndex) CheckShard(fileIndex, npart int64) error {
	owned := c.Owned(fileIndex)
	sum := int64(0)
	offsets := make([]int64, len(owned))
	for j, i := range owned {
		if c.Counts[i] < 0 || c.Offsets[i] < 0 ||
			c.Offsets[i]+c.Counts[i] > npart {
			return errors.Errorf(
				"%s cell %d of file %d covers particles [%d, %d), but the "+
					"file only has %d particles.", TypeGroup(c.Type), i,
				fileIndex, c.Offsets[i], c.Offsets[i]+c.Counts[i], npart,
			)
		}
		sum += c.Counts[i]
		offsets[j] = c.Offsets[i]
	}

	if sum != npart {
		return errors.Errorf(
			"The %s cells of file %d hold %d particles, but the file has %d.",
			TypeGroup(c.Type), fileIndex, sum, npart,
		)
	}

	order := sort.Argsort(offsets)
	end := int64(0)
	for _, j := range order {
		i := owned[j]
		if c.Counts[i] == 0 { continue }
		if c.Offsets[i] < end {
			return errors.Errorf(
				"%s cell %d of file %d starts at particle %d, inside the "+
					"previous cell, which ends at %d.", TypeGroup(c.Type), i,
				fileIndex, c.Offsets[i], end,
			)
		}
		end = c.Offsets[i] + c.Counts[i]
	}
	return nil
}

// NewCellIndex builds a CellIndex with int64 arrays. Used when creating
// files from scratch.
func NewCellIndex(typ int, offsets, counts, files []int64) *CellIndex {
	return &CellIndex{
		Type: typ, Offsets: offsets, Counts: counts, Files: files,
		offsetType: Int64, countType: Int64, fileType: Int32,
	}
}
