/*package virtual combines the shards of a multi-file snapshot into a single
file whose particle datasets are HDF5 virtual datasets backed by the
shards. No particle data is copied.*/
package virtual

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/swift-toolbox/snaptools/snapshot"
)

type shard struct {
	name string
	f    snapshot.File
	hd   *snapshot.Header
	// rel is the name of the shard relative to the virtual file.
	rel string
}

// Create writes a virtual snapshot over shards to output. The header and
// every other non-particle group come from the first shard, rewritten for
// a single file holding every particle, and the cell index is rewritten
// so that every cell points into file 0.
func Create(fs snapshot.FS, shards []string, output string, log logrus.FieldLogger) (err error) {
	if len(shards) == 0 { return errors.New("I need at least one shard.") }
	if log == nil { log = logrus.New() }

	files := make([]*shard, 0, len(shards))
	defer func() {
		for _, s := range files { s.f.Close() }
	}()
	for _, name := range shards {
		s, err := openShard(fs, name, output)
		if err != nil { return err }
		files = append(files, s)
	}

	out, err := fs.Create(output)
	if err != nil { return err }
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil { err = cerr }
	}()

	if err := snapshot.CopyOtherGroups(files[0].f, out); err != nil { return err }

	starts, totals, err := offsets(files)
	if err != nil { return err }
	if err := writeHeader(out, totals); err != nil { return err }

	for typ := 0; typ < snapshot.NumTypes; typ++ {
		if snapshot.HasCells(out, typ) {
			if err := writeCells(out, typ, files, starts); err != nil { return err }
		}
		if err := writeType(out, typ, files, totals[typ]); err != nil {
			return errors.Wrapf(err, "%s of %s", snapshot.TypeGroup(typ), output)
		}
	}

	if err := snapshot.LinkParticleGroups(out); err != nil { return err }
	log.WithFields(logrus.Fields{
		"shards": len(shards), "output": output,
	}).Debug("Created virtual snapshot")
	return nil
}

func openShard(fs snapshot.FS, name, output string) (*shard, error) {
	rel, err := filepath.Rel(filepath.Dir(output), name)
	if err != nil { rel = name }
	f, err := fs.Open(name)
	if err != nil { return nil, err }
	hd, err := snapshot.ReadHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &shard{name: name, f: f, hd: hd, rel: rel}, nil
}

// offsets returns, for each ThisFile index and particle type, the row at
// which the shard's particles start in the virtual file, along with the
// total particle counts.
func offsets(files []*shard) (map[int64][]int64, []int64, error) {
	starts := map[int64][]int64{}
	totals := make([]int64, snapshot.NumTypes)
	for _, s := range files {
		if _, ok := starts[s.hd.ThisFile]; ok {
			return nil, nil, errors.Errorf("%s and an earlier shard both have ThisFile = %d.",
				s.name, s.hd.ThisFile)
		}
		if len(s.hd.NumPartThisFile) > len(totals) {
			return nil, nil, errors.Errorf("%s lists %d particle types.",
				s.name, len(s.hd.NumPartThisFile))
		}
		starts[s.hd.ThisFile] = append([]int64{}, totals...)
		for typ, n := range s.hd.NumPartThisFile { totals[typ] += n }
	}
	return starts, totals, nil
}

func writeHeader(out snapshot.File, totals []int64) error {
	low, high := snapshot.SplitCounts(totals)
	ints := []struct {
		name string
		xs   []int64
	}{
		{snapshot.AttrNumPartThisFile, totals},
		{snapshot.AttrNumPartTotal, low},
		{snapshot.AttrNumPartTotalHighWord, high},
		{snapshot.AttrThisFile, []int64{0}},
		{snapshot.AttrNumFilesPerSnapshot, []int64{1}},
	}
	for _, attr := range ints {
		if err := snapshot.WriteInts(out, snapshot.HeaderGroup, attr.name, attr.xs); err != nil {
			return err
		}
	}
	return out.WriteAttr(snapshot.HeaderGroup, snapshot.AttrVirtual, snapshot.Of([]int32{1}))
}

// writeCells points every cell at its rows in the virtual file.
func writeCells(out snapshot.File, typ int, files []*shard, starts map[int64][]int64) error {
	cells, err := snapshot.ReadCells(out, typ)
	if err != nil { return err }
	for i, file := range cells.Files {
		start, ok := starts[file]
		if !ok {
			return errors.Errorf("%s cell %d is stored in file %d, which isn't one of the %d shards.",
				snapshot.TypeGroup(typ), i, file, len(files))
		}
		cells.Offsets[i] += start[typ]
		cells.Files[i] = 0
	}
	return cells.Write(out)
}

// writeType creates the virtual datasets of one particle type. The
// datasets and their attributes are those of the first shard with the
// group. Types without particles get empty real datasets.
func writeType(out snapshot.File, typ int, files []*shard, total int64) error {
	group := "/" + snapshot.TypeGroup(typ)
	var first *shard
	for _, s := range files {
		if s.f.Exists(group) {
			first = s
			break
		}
	}
	if first == nil { return nil }

	if err := out.CreateGroup(group); err != nil { return err }
	if err := out.CopyAttrs(first.f, group, group); err != nil { return err }

	names, err := first.f.Children(group)
	if err != nil { return err }
	for _, name := range names {
		path := snapshot.Join(group, name)
		layout, err := first.f.Layout(path)
		if err != nil { continue }

		if total == 0 {
			err = out.CreateDatasetLike(first.f, path, path, 0)
		} else {
			err = createVirtual(out, path, layout, typ, files, total)
		}
		if err != nil { return err }
		if err := out.CopyAttrs(first.f, path, path); err != nil { return err }
	}
	return nil
}

func createVirtual(
	out snapshot.File, path string, layout snapshot.Layout,
	typ int, files []*shard, total int64,
) error {
	sources := []snapshot.Source{}
	for _, s := range files {
		n := s.hd.NumPartThisFile[typ]
		if n == 0 { continue }
		l, err := s.f.Layout(path)
		if err != nil {
			return errors.Wrapf(err, "%s has %d particles but no %s", s.name, n, path)
		}
		if l.Rows() != int(n) {
			return errors.Wrapf(snapshot.ErrShape, "%s in %s has %d rows, but the header lists %d",
				path, s.name, l.Rows(), n)
		}
		sources = append(sources, snapshot.Source{File: s.rel, Dataset: path, Rows: int(n)})
	}

	shape := append([]int{int(total)}, layout.Shape[1:]...)
	return out.CreateVirtual(path, snapshot.Layout{Type: layout.Type, Shape: shape}, sources)
}
