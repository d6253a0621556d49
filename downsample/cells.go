package downsample

import (
	"github.com/pkg/errors"

	"github.com/swift-toolbox/snaptools/math/sort"
	"github.com/swift-toolbox/snaptools/snapshot"
)

// RecomputeCells returns the cell index of a shard after sampling. mask
// has one entry per particle in the shard, in file order. The cells owned
// by fileIndex get the number of kept particles in their old range as
// their count, and new offsets which are the exclusive prefix sum of the
// new counts taken in the order of the old offsets. Cells owned by other
// files are left alone. The owned input ranges must partition the shard
// without overlapping, so the new ranges keep the old cell order.
func RecomputeCells(
	cells *snapshot.CellIndex, fileIndex int64, mask []bool,
) (*snapshot.CellIndex, error) {
	n := int64(len(mask))
	if err := cells.CheckShard(fileIndex, n); err != nil {
		return nil, errors.Wrap(err, "the cell index can't be sampled")
	}

	out := cells.Copy()
	owned := cells.Owned(fileIndex)
	oldOffsets := make([]int64, len(owned))
	for j, i := range owned {
		start, count := cells.Offsets[i], cells.Counts[i]
		kept := int64(0)
		for _, ok := range mask[start : start+count] {
			if ok { kept++ }
		}
		out.Counts[i] = kept
		oldOffsets[j] = start
	}

	order := sort.Argsort(oldOffsets)
	offset := int64(0)
	for _, j := range order {
		i := owned[j]
		out.Offsets[i] = offset
		offset += out.Counts[i]
	}

	return out, nil
}
