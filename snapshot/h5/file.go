package h5

import (
	"github.com/pkg/errors"
	"gonum.org/v1/hdf5"

	"github.com/swift-toolbox/snaptools/snapshot"
)

// File is an open HDF5 snapshot file.
type File struct {
	name     string
	f        *hdf5.File
	writable bool
}

var _ snapshot.File = &File{}

func (f *File) Name() string { return f.name }

func (f *File) id() int64 { return f.f.ID() }

func (f *File) Close() error {
	lib.Lock()
	defer lib.Unlock()
	return errors.Wrapf(f.f.Close(), "I couldn't close %s", f.name)
}

func (f *File) checkWritable() error {
	if !f.writable {
		return errors.Errorf("%s was opened read-only", f.name)
	}
	return nil
}

func (f *File) source(src snapshot.File) (*File, error) {
	s, ok := src.(*File)
	if !ok {
		return nil, errors.Errorf("%s is not an HDF5 file", src.Name())
	}
	return s, nil
}

func (f *File) notFound(p string) error {
	return errors.Wrapf(snapshot.ErrNotFound, "%s in %s", p, f.name)
}

// Walk enumerates groups with gonum's by-index accessors, which visit
// members in name order.
func (f *File) Walk(fn func(snapshot.Node) error) error {
	lib.Lock()
	nodes, err := f.walkGroup("/", nil)
	lib.Unlock()
	if err != nil { return err }

	for _, n := range nodes {
		if err := fn(n); err != nil { return err }
	}
	return nil
}

func (f *File) walkGroup(p string, nodes []snapshot.Node) ([]snapshot.Node, error) {
	g, err := f.f.OpenGroup(p)
	if err != nil {
		return nil, errors.Wrapf(err, "I couldn't open %s in %s", p, f.name)
	}
	defer g.Close()

	n, err := g.NumObjects()
	if err != nil { return nil, errors.Wrapf(err, "%s in %s", p, f.name) }

	for i := uint(0); i < n; i++ {
		name, err := g.ObjectNameByIndex(i)
		if err != nil { return nil, errors.Wrapf(err, "%s in %s", p, f.name) }
		cp := snapshot.Join(p, name)
		if soft, err := isSoft(f.id(), cp); err != nil {
			return nil, err
		} else if soft {
			continue
		}

		typ, err := g.ObjectTypeByIndex(i)
		if err != nil { return nil, errors.Wrapf(err, "%s in %s", cp, f.name) }
		switch typ {
		case hdf5.H5G_GROUP:
			nodes = append(nodes, snapshot.Node{Kind: snapshot.Group, Path: cp})
			if nodes, err = f.walkGroup(cp, nodes); err != nil { return nil, err }
		case hdf5.H5G_DATASET:
			l, err := getLayout(f.id(), cp)
			if err != nil { return nil, errors.Wrapf(err, "in %s", f.name) }
			kind := snapshot.Dataset
			if l.Virtual { kind = snapshot.VirtualDataset }
			nodes = append(nodes, snapshot.Node{Kind: kind, Path: cp})
		}
	}
	return nodes, nil
}

func (f *File) Exists(p string) bool {
	lib.Lock()
	defer lib.Unlock()
	return exists(f.id(), p)
}

func (f *File) Children(p string) ([]string, error) {
	lib.Lock()
	defer lib.Unlock()
	g, err := f.f.OpenGroup(snapshot.Clean(p))
	if err != nil { return nil, f.notFound(p) }
	defer g.Close()

	n, err := g.NumObjects()
	if err != nil { return nil, errors.Wrapf(err, "%s in %s", p, f.name) }
	out := make([]string, 0, n)
	for i := uint(0); i < n; i++ {
		name, err := g.ObjectNameByIndex(i)
		if err != nil { return nil, errors.Wrapf(err, "%s in %s", p, f.name) }
		out = append(out, name)
	}
	return out, nil
}

func (f *File) CreateGroup(p string) error {
	if err := f.checkWritable(); err != nil { return err }
	lib.Lock()
	defer lib.Unlock()
	p = snapshot.Clean(p)
	if exists(f.id(), p) {
		return errors.Wrapf(snapshot.ErrExists, "%s in %s", p, f.name)
	}
	g, err := f.f.CreateGroup(p)
	if err != nil {
		return errors.Wrapf(err, "I couldn't create %s in %s", p, f.name)
	}
	return g.Close()
}

func (f *File) Link(target, name string) error {
	if err := f.checkWritable(); err != nil { return err }
	lib.Lock()
	defer lib.Unlock()
	return errors.Wrapf(softLink(f.id(), snapshot.Clean(target), snapshot.Clean(name)),
		"in %s", f.name)
}

func (f *File) AttrNames(p string) ([]string, error) {
	lib.Lock()
	defer lib.Unlock()
	if !exists(f.id(), p) { return nil, f.notFound(p) }
	names, err := attrNames(f.id(), snapshot.Clean(p))
	return names, errors.Wrapf(err, "in %s", f.name)
}

func (f *File) ReadAttr(p, name string) (snapshot.Array, error) {
	lib.Lock()
	defer lib.Unlock()
	if !exists(f.id(), p) { return snapshot.Array{}, f.notFound(p) }
	a, err := readAttr(f.id(), snapshot.Clean(p), name)
	return a, errors.Wrapf(err, "in %s", f.name)
}

func (f *File) WriteAttr(p, name string, a snapshot.Array) error {
	if err := f.checkWritable(); err != nil { return err }
	if err := a.Check(); err != nil { return err }
	lib.Lock()
	defer lib.Unlock()
	if !exists(f.id(), p) { return f.notFound(p) }
	return errors.Wrapf(writeAttr(f.id(), snapshot.Clean(p), name, a), "in %s", f.name)
}

func (f *File) CopyAttrs(src snapshot.File, srcPath, dstPath string) error {
	if err := f.checkWritable(); err != nil { return err }
	s, err := f.source(src)
	if err != nil { return err }
	lib.Lock()
	defer lib.Unlock()
	return errors.Wrapf(copyAttrs(s.id(), snapshot.Clean(srcPath), f.id(), snapshot.Clean(dstPath)),
		"from %s to %s", s.name, f.name)
}

func (f *File) Layout(p string) (snapshot.Layout, error) {
	lib.Lock()
	defer lib.Unlock()
	if !exists(f.id(), p) { return snapshot.Layout{}, f.notFound(p) }
	l, err := getLayout(f.id(), snapshot.Clean(p))
	return l, errors.Wrapf(err, "in %s", f.name)
}

func (f *File) ReadDataset(p string) (snapshot.Array, error) {
	lib.Lock()
	defer lib.Unlock()
	p = snapshot.Clean(p)
	if !exists(f.id(), p) { return snapshot.Array{}, f.notFound(p) }
	l, err := getLayout(f.id(), p)
	if err != nil { return snapshot.Array{}, errors.Wrapf(err, "in %s", f.name) }

	a := snapshot.Zeros(l.Type, l.Shape...)
	if a.Len() == 0 { return a, nil }

	d, err := f.f.OpenDataset(p)
	if err != nil { return snapshot.Array{}, errors.Wrapf(err, "%s in %s", p, f.name) }
	defer d.Close()
	if err := readInto(d, a); err != nil {
		return snapshot.Array{}, errors.Wrapf(err, "I couldn't read %s from %s", p, f.name)
	}
	return a, nil
}

// readInto reads a whole dataset into the typed slice of a. gonum picks
// the memory datatype from the element type of the slice.
func readInto(d *hdf5.Dataset, a snapshot.Array) error {
	switch data := a.Data.(type) {
	case []int32: return d.Read(&data)
	case []uint32: return d.Read(&data)
	case []int64: return d.Read(&data)
	case []uint64: return d.Read(&data)
	case []float32: return d.Read(&data)
	case []float64: return d.Read(&data)
	}
	return snapshot.ErrUnsupportedType
}

func writeFrom(d *hdf5.Dataset, a snapshot.Array) error {
	switch data := a.Data.(type) {
	case []int32: return d.Write(&data)
	case []uint32: return d.Write(&data)
	case []int64: return d.Write(&data)
	case []uint64: return d.Write(&data)
	case []float32: return d.Write(&data)
	case []float64: return d.Write(&data)
	}
	return snapshot.ErrUnsupportedType
}

func (f *File) CreateDataset(p string, l snapshot.Layout) error {
	if err := f.checkWritable(); err != nil { return err }
	if len(l.Shape) == 0 || len(l.Shape) > 2 {
		return errors.Wrapf(snapshot.ErrShape, "%s must have rank 1 or 2", p)
	}
	if l.Chunk != nil && len(l.Chunk) != len(l.Shape) {
		return errors.Wrapf(snapshot.ErrShape, "chunk %v of %s doesn't match shape %v",
			l.Chunk, p, l.Shape)
	}
	lib.Lock()
	defer lib.Unlock()
	p = snapshot.Clean(p)
	if exists(f.id(), p) {
		return errors.Wrapf(snapshot.ErrExists, "%s in %s", p, f.name)
	}
	return errors.Wrapf(createDataset(f.id(), p, l), "in %s", f.name)
}

func (f *File) CreateDatasetLike(src snapshot.File, srcPath, dstPath string, rows int) error {
	if err := f.checkWritable(); err != nil { return err }
	s, err := f.source(src)
	if err != nil { return err }
	lib.Lock()
	defer lib.Unlock()
	if !exists(s.id(), srcPath) { return s.notFound(srcPath) }
	return errors.Wrapf(createLike(s.id(), snapshot.Clean(srcPath), f.id(), snapshot.Clean(dstPath), rows),
		"from %s to %s", s.name, f.name)
}

func (f *File) WriteDataset(p string, a snapshot.Array) error {
	if err := f.checkWritable(); err != nil { return err }
	if err := a.Check(); err != nil { return err }
	lib.Lock()
	defer lib.Unlock()
	p = snapshot.Clean(p)
	if !exists(f.id(), p) { return f.notFound(p) }

	d, err := f.f.OpenDataset(p)
	if err != nil { return errors.Wrapf(err, "%s in %s", p, f.name) }
	defer d.Close()
	space := d.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil { return errors.Wrapf(err, "%s in %s", p, f.name) }
	if !sameShape(dims, a.Shape) {
		return errors.Wrapf(snapshot.ErrShape, "can't write %v to %s%v in %s",
			a.Shape, p, dims, f.name)
	}
	if a.Len() == 0 { return nil }
	return errors.Wrapf(writeFrom(d, a), "I couldn't write %s to %s", p, f.name)
}

func sameShape(dims []uint, shape []int) bool {
	if len(dims) != len(shape) { return false }
	for i := range dims {
		if int(dims[i]) != shape[i] { return false }
	}
	return true
}

func (f *File) WriteRows(p string, start int, a snapshot.Array) error {
	if err := f.checkWritable(); err != nil { return err }
	if err := a.Check(); err != nil { return err }
	lib.Lock()
	defer lib.Unlock()
	p = snapshot.Clean(p)
	l, err := getLayout(f.id(), p)
	if err != nil { return errors.Wrapf(err, "in %s", f.name) }
	if len(l.Shape) != len(a.Shape) || (len(l.Shape) == 2 && l.Shape[1] != a.Shape[1]) ||
		start < 0 || start+a.Rows() > l.Rows() {
		return errors.Wrapf(snapshot.ErrShape, "can't write %v at row %d of %s%v in %s",
			a.Shape, start, p, l.Shape, f.name)
	}
	return errors.Wrapf(writeRows(f.id(), p, start, a), "in %s", f.name)
}

func (f *File) CopyTree(src snapshot.File, srcPath, dstPath string) error {
	if err := f.checkWritable(); err != nil { return err }
	s, err := f.source(src)
	if err != nil { return err }
	lib.Lock()
	defer lib.Unlock()
	if !exists(s.id(), srcPath) { return s.notFound(srcPath) }
	if exists(f.id(), dstPath) {
		return errors.Wrapf(snapshot.ErrExists, "%s in %s", dstPath, f.name)
	}
	return errors.Wrapf(copyObject(s.id(), snapshot.Clean(srcPath), f.id(), snapshot.Clean(dstPath)),
		"from %s to %s", s.name, f.name)
}

func (f *File) VirtualSources(p string) ([]snapshot.Source, error) {
	lib.Lock()
	defer lib.Unlock()
	p = snapshot.Clean(p)
	l, err := getLayout(f.id(), p)
	if err != nil { return nil, errors.Wrapf(err, "in %s", f.name) }
	if !l.Virtual {
		return nil, errors.Errorf("%s in %s is not a virtual dataset", p, f.name)
	}
	srcs, err := virtualSources(f.id(), p)
	return srcs, errors.Wrapf(err, "in %s", f.name)
}

func (f *File) CreateVirtual(p string, l snapshot.Layout, sources []snapshot.Source) error {
	if err := f.checkWritable(); err != nil { return err }
	rows := 0
	for _, src := range sources { rows += src.Rows }
	if len(l.Shape) == 0 || len(l.Shape) > 2 || rows != l.Shape[0] {
		return errors.Wrapf(snapshot.ErrShape,
			"virtual dataset %s of shape %v has sources with %d rows", p, l.Shape, rows)
	}
	lib.Lock()
	defer lib.Unlock()
	return errors.Wrapf(createVirtual(f.id(), snapshot.Clean(p), l, sources), "in %s", f.name)
}

func (f *File) StorageSize(p string) (int64, error) {
	lib.Lock()
	defer lib.Unlock()
	if !exists(f.id(), p) { return 0, f.notFound(p) }
	size, err := storageSize(f.id(), snapshot.Clean(p))
	return size, errors.Wrapf(err, "in %s", f.name)
}
