package downsample

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/swift-toolbox/snaptools/math/rand"
	"github.com/swift-toolbox/snaptools/snapshot"
)

// Options are the sampling parameters shared by every shard.
type Options struct {
	// Fraction is the probability that a particle is kept.
	Fraction   float64
	Transforms Transforms
	// KeepAll lists particle types which are copied in full.
	KeepAll   map[int]bool
	Generator rand.GeneratorType
	Log       logrus.FieldLogger
}

// ShardTask is the sampling job of one shard.
type ShardTask struct {
	Index  int
	Seed   uint64
	Input  string
	Output string
}

// MassSum is the summed mass of one particle type before and after
// sampling.
type MassSum struct {
	Dataset       string
	Before, After float64
}

// ShardResult describes a sampled shard.
type ShardResult struct {
	Index  int
	Output string
	// Kept is the new NumPart_ThisFile of the shard.
	Kept []int64
	// Masses holds the mass sums of each type with a transformed mass
	// dataset.
	Masses map[int]MassSum
}

func (opt *Options) fraction(typ int) float64 {
	if opt.KeepAll[typ] { return 1 }
	return opt.Fraction
}

func (opt *Options) log() logrus.FieldLogger {
	if opt.Log == nil { return logrus.New() }
	return opt.Log
}

// SampleShard writes a sampled copy of task.Input to task.Output. Every
// group other than the particle groups is copied as is, the particle
// datasets listed in opt.Transforms are masked and transformed, the
// shard's cells are recomputed and NumPart_ThisFile is updated. The
// totals and the cells owned by other shards are left for Aggregate and
// WriteBack.
func SampleShard(
	ctx context.Context, fs snapshot.FS, task ShardTask, opt Options,
) (res ShardResult, err error) {
	log := opt.log().WithField("shard", task.Input)

	in, err := fs.Open(task.Input)
	if err != nil { return res, err }
	defer in.Close()

	hd, err := snapshot.ReadHeader(in)
	if err != nil { return res, err }

	out, err := fs.Create(task.Output)
	if err != nil { return res, err }
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil { err = cerr }
	}()

	if err := snapshot.CopyOtherGroups(in, out); err != nil { return res, err }

	s := &sampler{
		in: in, out: out, opt: &opt, log: log, fileIndex: hd.ThisFile,
		gen: rand.New(opt.Generator, task.Seed),
	}
	res = ShardResult{
		Index: task.Index, Output: task.Output,
		Kept: append([]int64{}, hd.NumPartThisFile...), Masses: map[int]MassSum{},
	}

	for typ := range res.Kept {
		if err := ctx.Err(); err != nil { return res, err }
		if err := s.sampleType(typ, res.Kept, res.Masses); err != nil {
			return res, errors.Wrapf(err, "%s of %s", snapshot.TypeGroup(typ), task.Input)
		}
	}

	if err := snapshot.WriteInts(out, snapshot.HeaderGroup,
		snapshot.AttrNumPartThisFile, res.Kept); err != nil {
		return res, err
	}
	log.WithField("kept", res.Kept).Debug("Sampled shard")
	return res, nil
}

type sampler struct {
	in, out   snapshot.File
	opt       *Options
	gen       *rand.Generator
	log       logrus.FieldLogger
	fileIndex int64
}

// sampleType samples one particle type and updates npart[typ] and masses.
func (s *sampler) sampleType(typ int, npart []int64, masses map[int]MassSum) error {
	group := "/" + snapshot.TypeGroup(typ)
	transforms, listed := s.opt.Transforms[typ]
	if !listed || !s.in.Exists(group) {
		if npart[typ] > 0 {
			s.log.WithField("type", snapshot.TypeGroup(typ)).
				Debug("Dropping particle type")
		}
		npart[typ] = 0
		return s.clearCells(typ)
	}

	if err := s.out.CreateGroup(group); err != nil { return err }
	if err := s.out.CopyAttrs(s.in, group, group); err != nil { return err }

	fraction := s.opt.fraction(typ)
	mask := s.gen.Mask(int(npart[typ]), fraction)
	kept := 0
	for _, ok := range mask {
		if ok { kept++ }
	}

	for _, name := range s.opt.Transforms.Datasets(typ) {
		path := snapshot.Join(group, name)
		if !s.in.Exists(path) {
			s.log.WithField("dataset", path).Debug("Skipping missing dataset")
			continue
		}
		sum, err := s.sampleDataset(path, mask, kept, fraction, transforms[name])
		if err != nil { return err }
		if transforms[name] != nil && sum != nil {
			sum.Dataset = name
			masses[typ] = *sum
		}
	}

	if snapshot.HasCells(s.out, typ) {
		cells, err := snapshot.ReadCells(s.out, typ)
		if err != nil { return err }
		cells, err = RecomputeCells(cells, s.fileIndex, mask)
		if err != nil { return err }
		if err := cells.Write(s.out); err != nil { return err }
	}

	npart[typ] = int64(kept)
	if err := s.out.Link(group, "/"+snapshot.ParticleNames[typ]); err != nil {
		return errors.Wrapf(err, "I couldn't link %s", snapshot.ParticleNames[typ])
	}
	return nil
}

// sampleDataset writes the masked and transformed copy of one dataset. It
// returns the sums of the dataset before and after when it is transformed.
func (s *sampler) sampleDataset(
	path string, mask []bool, kept int, fraction float64, transform Transform,
) (*MassSum, error) {
	a, err := s.in.ReadDataset(path)
	if err != nil { return nil, err }
	if a.Rows() != len(mask) {
		return nil, errors.Wrapf(snapshot.ErrShape,
			"%s has %d rows, but the header lists %d particles",
			path, a.Rows(), len(mask))
	}

	if err := s.out.CreateDatasetLike(s.in, path, path, kept); err != nil {
		return nil, err
	}
	sampled, err := a.MaskRows(mask)
	if err != nil { return nil, errors.Wrapf(err, "masking %s", path) }

	var sum *MassSum
	if transform != nil {
		if err := transform(sampled, fraction); err != nil {
			return nil, errors.Wrapf(err, "transforming %s", path)
		}
		sum = &MassSum{}
		if before, err := a.Float64s(); err == nil { sum.Before = floats.Sum(before) }
		if after, err := sampled.Float64s(); err == nil { sum.After = floats.Sum(after) }
	}

	if err := s.out.WriteDataset(path, sampled); err != nil { return nil, err }
	return sum, s.out.CopyAttrs(s.in, path, path)
}

// clearCells empties the shard's cells of a type which isn't written.
func (s *sampler) clearCells(typ int) error {
	if !snapshot.HasCells(s.out, typ) { return nil }
	cells, err := snapshot.ReadCells(s.out, typ)
	if err != nil { return err }
	for _, i := range cells.Owned(s.fileIndex) {
		cells.Offsets[i], cells.Counts[i] = 0, 0
	}
	return cells.Write(s.out)
}
