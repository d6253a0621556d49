package downsample

import (
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/swift-toolbox/snaptools/snapshot"
)

// Summary is the cross-shard state gathered after sampling.
type Summary struct {
	// Totals is the summed NumPart_ThisFile of all shards.
	Totals []int64
	// Cells is the merged cell index of every particle type with one.
	Cells map[int]*snapshot.CellIndex
}

// Aggregate reads the sampled shards and merges their particle counts and
// cell indices. The merged index starts as the first shard's copy, and
// every shard then contributes the cells whose Files entry is its own
// ThisFile. Each shard's own cells must hold exactly its particles; all
// violations are reported together.
func Aggregate(fs snapshot.FS, shards []string) (*Summary, error) {
	sum := &Summary{
		Totals: make([]int64, snapshot.NumTypes),
		Cells:  map[int]*snapshot.CellIndex{},
	}
	var errs *multierror.Error

	for _, name := range shards {
		if err := sum.add(fs, name, &errs); err != nil { return nil, err }
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, errors.Wrap(err, "the sampled cell index is inconsistent")
	}
	return sum, nil
}

func (sum *Summary) add(fs snapshot.FS, name string, errs **multierror.Error) error {
	f, err := fs.Open(name)
	if err != nil { return err }
	defer f.Close()

	hd, err := snapshot.ReadHeader(f)
	if err != nil { return err }
	if len(hd.NumPartThisFile) > len(sum.Totals) {
		return errors.Errorf("%s lists %d particle types.", name, len(hd.NumPartThisFile))
	}
	for typ, n := range hd.NumPartThisFile { sum.Totals[typ] += n }

	for typ := range hd.NumPartThisFile {
		if !snapshot.HasCells(f, typ) { continue }
		cells, err := snapshot.ReadCells(f, typ)
		if err != nil { return err }

		if err := cells.CheckShard(hd.ThisFile, hd.NumPartThisFile[typ]); err != nil {
			*errs = multierror.Append(*errs, errors.Wrapf(err, "in %s", name))
		}

		merged, ok := sum.Cells[typ]
		if !ok {
			sum.Cells[typ] = cells
			continue
		}
		if merged.Len() != cells.Len() {
			return errors.Errorf("%s has %d %s cells, but earlier shards have %d.",
				name, cells.Len(), snapshot.TypeGroup(typ), merged.Len())
		}
		for _, i := range cells.Owned(hd.ThisFile) {
			merged.Offsets[i], merged.Counts[i] = cells.Offsets[i], cells.Counts[i]
		}
	}
	return nil
}

// WriteBack writes the cross-shard totals and merged cells into one shard.
// NumPart_Total keeps its stored element type and NumPart_Total_HighWord
// is zeroed.
func WriteBack(fs snapshot.FS, shard string, sum *Summary) (err error) {
	f, err := fs.OpenRW(shard)
	if err != nil { return err }
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil { err = cerr }
	}()

	old, err := f.ReadAttr(snapshot.HeaderGroup, snapshot.AttrNumPartTotal)
	if err != nil {
		return errors.Wrapf(err, "I couldn't read the particle totals of %s", shard)
	}
	if limit := maxValue(old.Type); limit > 0 {
		for typ, n := range sum.Totals {
			if n > limit {
				return errors.Errorf("%d %s particles don't fit in the %s "+
					"NumPart_Total of %s.", n, snapshot.TypeGroup(typ), old.Type, shard)
			}
		}
	}

	if err := snapshot.WriteInts(f, snapshot.HeaderGroup,
		snapshot.AttrNumPartTotal, sum.Totals); err != nil {
		return err
	}
	high := make([]int64, len(sum.Totals))
	if old, err := f.ReadAttr(snapshot.HeaderGroup,
		snapshot.AttrNumPartTotalHighWord); err == nil {
		high = make([]int64, old.Len())
	}
	if err := snapshot.WriteInts(f, snapshot.HeaderGroup,
		snapshot.AttrNumPartTotalHighWord, high); err != nil {
		return err
	}

	for typ := 0; typ < snapshot.NumTypes; typ++ {
		cells, ok := sum.Cells[typ]
		if !ok || !snapshot.HasCells(f, typ) { continue }
		if err := cells.Write(f); err != nil { return err }
	}
	return nil
}

// maxValue returns the largest count an integer type can hold, or zero if
// the type is 64 bits wide.
func maxValue(t snapshot.DType) int64 {
	switch t {
	case snapshot.Int32: return math.MaxInt32
	case snapshot.Uint32: return math.MaxUint32
	}
	return 0
}
