/*package ic converts a SWIFT snapshot into an initial conditions file.

Only the datasets SWIFT reads from initial conditions are written, under
their initial conditions names. The box can be replicated n times along
each axis, which multiplies every particle count by n^3. Particle IDs are
regenerated so that they stay unique.*/
package ic

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/swift-toolbox/snaptools/snapshot"
)

// Rename maps a snapshot dataset onto its initial conditions name.
type Rename struct {
	IC, Snapshot string
}

// Lists gives the datasets written for each particle type.
type Lists map[int][]Rename

// DefaultLists returns the datasets needed to restart a COLIBRE run from
// a snapshot.
func DefaultLists() Lists {
	return Lists{
		0: {
			{"Coordinates", "Coordinates"},
			{"Velocities", "Velocities"},
			{"Masses", "Masses"},
			{"SmoothingLength", "SmoothingLengths"},
			{"InternalEnergy", "InternalEnergies"},
			{"ParticleIDs", "ParticleIDs"},
			{"Density", "Densities"},
			{"ElementAbundance", "ElementMassFractions"},
			{"Metallicity", "MetalMassFractions"},
			{"IronMassFracFromSNIa", "IronMassFractionsFromSNIa"},
		},
		1: {
			{"Coordinates", "Coordinates"},
			{"Velocities", "Velocities"},
			{"Masses", "Masses"},
			{"ParticleIDs", "ParticleIDs"},
		},
		4: {
			{"Coordinates", "Coordinates"},
			{"Velocities", "Velocities"},
			{"Masses", "Masses"},
			{"ParticleIDs", "ParticleIDs"},
			{"SmoothingLength", "SmoothingLengths"},
			{"StellarFormationTime", "BirthScaleFactors"},
			{"BirthDensities", "BirthDensities"},
			{"BirthTemperatures", "BirthTemperatures"},
		},
		5: {
			{"Coordinates", "Coordinates"},
			{"Velocities", "Velocities"},
			{"Masses", "DynamicalMasses"},
			{"ParticleIDs", "ParticleIDs"},
			{"SmoothingLength", "SmoothingLengths"},
			{"EnergyReservoir", "EnergyReservoirs"},
			{"SubgridMasses", "SubgridMasses"},
		},
	}
}

const (
	// CompressionLevel is the gzip level of compressed datasets.
	CompressionLevel = 9
	chunkRows        = 1 << 16
)

// Config describes one conversion.
type Config struct {
	Input, Output string
	// Replicate is the number of copies of the box along each axis.
	Replicate   int
	Compression bool
	Lists       Lists
	Log         logrus.FieldLogger
}

// Result reports what a conversion wrote.
type Result struct {
	// ScaleFactor must be used as the starting scale factor of any run
	// using the output.
	ScaleFactor float64
	Counts      []int64
}

type converter struct {
	in, out snapshot.File
	cfg     *Config
	hd      *snapshot.Header
	nextID  int64
}

// Convert writes the initial conditions version of cfg.Input to
// cfg.Output.
func Convert(fs snapshot.FS, cfg Config) (res Result, err error) {
	if cfg.Replicate < 1 {
		return res, errors.Errorf("The replication factor must be at least 1, but it's %d.", cfg.Replicate)
	}
	if cfg.Lists == nil { cfg.Lists = DefaultLists() }
	if cfg.Log == nil { cfg.Log = logrus.New() }

	in, err := fs.Open(cfg.Input)
	if err != nil { return res, err }
	defer in.Close()
	hd, err := snapshot.ReadHeader(in)
	if err != nil { return res, err }

	out, err := fs.Create(cfg.Output)
	if err != nil { return res, err }
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil { err = cerr }
	}()

	if err := snapshot.CopyOtherGroups(in, out, snapshot.CellsGroup); err != nil {
		return res, err
	}
	cfg.Log.WithField("scale_factor", hd.ScaleFactor).Info("Read snapshot header")

	c := &converter{in: in, out: out, cfg: &cfg, hd: hd, nextID: 1}
	counts, err := c.replicateHeader()
	if err != nil { return res, err }

	types := make([]int, 0, len(cfg.Lists))
	for typ := range cfg.Lists { types = append(types, typ) }
	sort.Ints(types)
	for _, typ := range types {
		if err := c.writeType(typ); err != nil {
			return res, errors.Wrapf(err, "%s of %s", snapshot.TypeGroup(typ), cfg.Input)
		}
	}

	return Result{ScaleFactor: hd.ScaleFactor, Counts: counts}, nil
}

func (c *converter) tiles() int { return c.cfg.Replicate * c.cfg.Replicate * c.cfg.Replicate }

// replicateHeader scales the box and the particle counts of the output
// header and checks that the split totals read back correctly.
func (c *converter) replicateHeader() ([]int64, error) {
	n := c.cfg.Replicate
	counts := make([]int64, len(c.hd.NumPartThisFile))
	for typ, np := range c.hd.NumPartThisFile { counts[typ] = np * int64(c.tiles()) }
	if n == 1 { return counts, nil }

	box := make([]float64, len(c.hd.BoxSize))
	for i, x := range c.hd.BoxSize { box[i] = x * float64(n) }
	if err := snapshot.WriteFloats(c.out, snapshot.HeaderGroup, snapshot.AttrBoxSize, box); err != nil {
		return nil, err
	}

	low, high := snapshot.SplitCounts(counts)
	for _, attr := range []struct {
		name string
		xs   []int64
	}{
		{snapshot.AttrNumPartThisFile, counts},
		{snapshot.AttrNumPartTotal, low},
		{snapshot.AttrNumPartTotalHighWord, high},
	} {
		if err := snapshot.WriteInts(c.out, snapshot.HeaderGroup, attr.name, attr.xs); err != nil {
			return nil, err
		}
	}

	hd, err := snapshot.ReadHeader(c.out)
	if err != nil { return nil, err }
	c.cfg.Log.WithFields(logrus.Fields{
		"this_file": hd.NumPartThisFile, "total": hd.NumPartTotal,
		"high_word": hd.NumPartTotalHighWord,
	}).Info("Replicated header")
	for typ, total := range hd.TotalCounts() {
		if total != counts[typ] {
			return nil, errors.Errorf("%s has %d particles after replication, but "+
				"NumPart_Total and NumPart_Total_HighWord read back as %d.",
				snapshot.TypeGroup(typ), counts[typ], total)
		}
	}
	return counts, nil
}

func (c *converter) writeType(typ int) error {
	group := "/" + snapshot.TypeGroup(typ)
	if !c.in.Exists(group) {
		c.cfg.Log.WithField("type", snapshot.TypeGroup(typ)).Info("Type not present, skipping")
		return nil
	}
	if err := c.out.CreateGroup(group); err != nil { return err }

	for _, r := range c.cfg.Lists[typ] {
		src := snapshot.Join(group, r.Snapshot)
		if !c.in.Exists(src) {
			return errors.Wrapf(snapshot.ErrNotFound, "%s is needed for %s", src, r.IC)
		}
		a, err := c.in.ReadDataset(src)
		if err != nil { return err }
		if err := c.writeDataset(snapshot.Join(group, r.IC), r.Snapshot, a); err != nil {
			return err
		}
	}
	return nil
}

func (c *converter) layout(a snapshot.Array) snapshot.Layout {
	rows := a.Rows() * c.tiles()
	shape := append([]int{rows}, a.Shape[1:]...)
	l := snapshot.Layout{Type: a.Type, Shape: shape}
	if c.cfg.Compression && rows > 0 {
		l.Chunk = append([]int{}, shape...)
		if l.Chunk[0] > chunkRows { l.Chunk[0] = chunkRows }
		l.Gzip = CompressionLevel
	}
	return l
}

// writeDataset writes every replica of a into path. Replica (x, y, z)
// starts at row (x n^2 + y n + z) rows(a).
func (c *converter) writeDataset(path, name string, a snapshot.Array) error {
	l := c.layout(a)
	c.cfg.Log.WithFields(logrus.Fields{
		"dataset": path, "old_shape": a.Shape, "new_shape": l.Shape,
	}).Debug("Writing dataset")
	if err := c.out.CreateDataset(path, l); err != nil { return err }
	if a.Rows() == 0 { return nil }

	n := c.cfg.Replicate
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				block, err := c.replica(name, a, [3]int{x, y, z})
				if err != nil { return errors.Wrapf(err, "replicating %s", path) }
				start := (x*n*n + y*n + z) * a.Rows()
				if err := c.out.WriteRows(path, start, block); err != nil { return err }
			}
		}
	}
	return nil
}

func (c *converter) replica(name string, a snapshot.Array, shift [3]int) (snapshot.Array, error) {
	switch name {
	case "Coordinates":
		var d [3]float64
		for k := range d {
			if k < len(c.hd.BoxSize) { d[k] = float64(shift[k]) * c.hd.BoxSize[k] }
		}
		return Shift(a, d)
	case "ParticleIDs":
		ids := make([]int64, a.Rows())
		for i := range ids { ids[i] = c.nextID + int64(i) }
		c.nextID += int64(len(ids))
		return snapshot.FromInt64s(a.Type, ids)
	}
	return a, nil
}

// Shift returns a copy of the (N, 3) coordinate array a translated by d.
func Shift(a snapshot.Array, d [3]float64) (snapshot.Array, error) {
	if len(a.Shape) != 2 || a.Width() != 3 {
		return snapshot.Array{}, errors.Wrapf(snapshot.ErrShape,
			"coordinates must have shape (N, 3), not %v", a.Shape)
	}
	out := a.Copy()
	switch data := out.Data.(type) {
	case []float64: shift(data, d)
	case []float32: shift(data, d)
	default:
		return snapshot.Array{}, errors.Wrapf(snapshot.ErrUnsupportedType,
			"%s coordinates", a.Type)
	}
	return out, nil
}

func shift[T float32 | float64](xs []T, d [3]float64) {
	for i := range xs { xs[i] = T(float64(xs[i]) + d[i%3]) }
}
