package mem

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/swift-toolbox/snaptools/snapshot"
)

// maxLinkDepth bounds soft link resolution.
const maxLinkDepth = 16

// File is an open in-memory snapshot file.
type File struct {
	fs       *FS
	name     string
	st       *store
	writable bool
}

var _ snapshot.File = &File{}

func (f *File) Name() string { return f.name }

func (f *File) Close() error { return nil }

func (f *File) checkWritable() error {
	if !f.writable {
		return errors.Errorf("%s was opened read-only", f.name)
	}
	return nil
}

func splitPath(p string) []string {
	p = strings.Trim(snapshot.Clean(p), "/")
	if p == "" { return nil }
	return strings.Split(p, "/")
}

// lookup finds the object at p. Links in the middle of the path are always
// followed and the final one only if follow is set. The caller holds the
// store lock.
func (f *File) lookup(p string, follow bool) (*object, error) {
	return f.lookupDepth(p, follow, 0)
}

func (f *File) lookupDepth(p string, follow bool, depth int) (*object, error) {
	if depth > maxLinkDepth {
		return nil, errors.Errorf("too many soft links resolving %s in %s", p, f.name)
	}

	parts := splitPath(p)
	obj := f.st.root
	for i, part := range parts {
		if obj.kind != groupObj {
			return nil, errors.Wrapf(snapshot.ErrNotFound,
				"%s in %s (%s is not a group)", p, f.name,
				"/"+strings.Join(parts[:i], "/"))
		}
		child, ok := obj.children[part]
		if !ok {
			return nil, errors.Wrapf(snapshot.ErrNotFound, "%s in %s", p, f.name)
		}
		if child.kind == linkObj && (follow || i < len(parts)-1) {
			var err error
			child, err = f.lookupDepth(child.target, true, depth+1)
			if err != nil { return nil, err }
		}
		obj = child
	}
	return obj, nil
}

// parent returns the group which will hold a new object at p along with
// the object's name.
func (f *File) parent(p string) (*object, string, error) {
	dir, name := snapshot.Split(p)
	if name == "/" || name == "" {
		return nil, "", errors.Errorf("can't create the root group of %s", f.name)
	}
	group, err := f.lookup(dir, true)
	if err != nil { return nil, "", err }
	if group.kind != groupObj {
		return nil, "", errors.Errorf("%s in %s is not a group", dir, f.name)
	}
	if _, ok := group.children[name]; ok {
		return nil, "", errors.Wrapf(snapshot.ErrExists, "%s in %s", p, f.name)
	}
	return group, name, nil
}

func (f *File) dataset(p string) (*object, error) {
	obj, err := f.lookup(p, true)
	if err != nil { return nil, err }
	if obj.kind != datasetObj && obj.kind != virtualObj {
		return nil, errors.Wrapf(snapshot.ErrNotDataset, "%s in %s", p, f.name)
	}
	return obj, nil
}

func (f *File) Walk(fn func(snapshot.Node) error) error {
	f.st.mu.RLock()
	nodes := []snapshot.Node{}
	var visit func(obj *object, p string)
	visit = func(obj *object, p string) {
		for _, name := range obj.names() {
			child := obj.children[name]
			if child.kind == linkObj { continue }
			cp := snapshot.Join(p, name)
			nodes = append(nodes, snapshot.Node{Kind: child.nodeKind(), Path: cp})
			if child.kind == groupObj { visit(child, cp) }
		}
	}
	visit(f.st.root, "/")
	f.st.mu.RUnlock()

	for _, n := range nodes {
		if err := fn(n); err != nil { return err }
	}
	return nil
}

func (f *File) Exists(p string) bool {
	f.st.mu.RLock()
	defer f.st.mu.RUnlock()
	_, err := f.lookup(p, false)
	return err == nil
}

func (f *File) Children(p string) ([]string, error) {
	f.st.mu.RLock()
	defer f.st.mu.RUnlock()
	obj, err := f.lookup(p, true)
	if err != nil { return nil, err }
	if obj.kind != groupObj {
		return nil, errors.Errorf("%s in %s is not a group", p, f.name)
	}
	return obj.names(), nil
}

func (f *File) CreateGroup(p string) error {
	if err := f.checkWritable(); err != nil { return err }
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	group, name, err := f.parent(p)
	if err != nil { return err }
	group.children[name] = newGroup()
	return nil
}

func (f *File) Link(target, name string) error {
	if err := f.checkWritable(); err != nil { return err }
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	group, base, err := f.parent(name)
	if err != nil { return err }
	group.children[base] = &object{kind: linkObj, target: snapshot.Clean(target)}
	return nil
}

func (f *File) AttrNames(p string) ([]string, error) {
	f.st.mu.RLock()
	defer f.st.mu.RUnlock()
	obj, err := f.lookup(p, true)
	if err != nil { return nil, err }
	out := make([]string, 0, len(obj.attrs))
	for name := range obj.attrs { out = append(out, name) }
	sort.Strings(out)
	return out, nil
}

func (f *File) ReadAttr(p, name string) (snapshot.Array, error) {
	f.st.mu.RLock()
	defer f.st.mu.RUnlock()
	obj, err := f.lookup(p, true)
	if err != nil { return snapshot.Array{}, err }
	a, ok := obj.attrs[name]
	if !ok {
		return snapshot.Array{}, errors.Wrapf(snapshot.ErrNotFound,
			"attribute %s of %s in %s", name, p, f.name)
	}
	return a.Copy(), nil
}

func (f *File) WriteAttr(p, name string, a snapshot.Array) error {
	if err := f.checkWritable(); err != nil { return err }
	if err := a.Check(); err != nil { return err }
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	obj, err := f.lookup(p, true)
	if err != nil { return err }
	obj.attrs[name] = a.Copy()
	return nil
}

// source returns the in-memory file behind src.
func (f *File) source(src snapshot.File) (*File, error) {
	s, ok := src.(*File)
	if !ok || s.fs != f.fs {
		return nil, errors.Errorf(
			"%s and %s don't belong to the same in-memory file system",
			src.Name(), f.name)
	}
	return s, nil
}

func (f *File) CopyAttrs(src snapshot.File, srcPath, dstPath string) error {
	if err := f.checkWritable(); err != nil { return err }
	s, err := f.source(src)
	if err != nil { return err }

	s.st.mu.RLock()
	obj, err := s.lookup(srcPath, true)
	var attrs map[string]snapshot.Array
	if err == nil {
		attrs = make(map[string]snapshot.Array, len(obj.attrs))
		for name, a := range obj.attrs { attrs[name] = a.Copy() }
	}
	s.st.mu.RUnlock()
	if err != nil { return err }

	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	dst, err := f.lookup(dstPath, true)
	if err != nil { return err }
	for name, a := range attrs { dst.attrs[name] = a }
	return nil
}

func (f *File) Layout(p string) (snapshot.Layout, error) {
	f.st.mu.RLock()
	defer f.st.mu.RUnlock()
	obj, err := f.dataset(p)
	if err != nil { return snapshot.Layout{}, err }
	return cloneLayout(obj.layout), nil
}

func (f *File) ReadDataset(p string) (snapshot.Array, error) {
	f.st.mu.RLock()
	obj, err := f.dataset(p)
	if err != nil {
		f.st.mu.RUnlock()
		return snapshot.Array{}, err
	}
	if obj.kind == datasetObj {
		defer f.st.mu.RUnlock()
		return obj.data.Copy(), nil
	}
	layout := cloneLayout(obj.layout)
	sources := append([]snapshot.Source(nil), obj.sources...)
	f.st.mu.RUnlock()

	return f.resolve(p, layout, sources)
}

// resolve reads the sources of a virtual dataset.
func (f *File) resolve(
	p string, layout snapshot.Layout, sources []snapshot.Source,
) (snapshot.Array, error) {
	out := snapshot.Zeros(layout.Type, layout.Shape...)
	row := 0
	for _, src := range sources {
		name := src.File
		if !filepath.IsAbs(name) {
			name = filepath.Join(filepath.Dir(f.name), name)
		}
		sf, err := f.fs.Open(name)
		if err != nil {
			return snapshot.Array{}, errors.Wrapf(err,
				"I couldn't open the source of %s in %s", p, f.name)
		}
		a, err := sf.ReadDataset(src.Dataset)
		sf.Close()
		if err != nil { return snapshot.Array{}, err }

		if a.Rows() != src.Rows || a.Width() != out.Width() {
			return snapshot.Array{}, errors.Wrapf(snapshot.ErrShape,
				"source %s:%s of %s has shape %v, expected %d rows",
				name, src.Dataset, p, a.Shape, src.Rows)
		}
		if a, err = snapshot.Convert(a, layout.Type); err != nil {
			return snapshot.Array{}, err
		}
		out.SetRows(row, a)
		row += a.Rows()
	}
	return out, nil
}

func checkLayout(l snapshot.Layout) error {
	if len(l.Shape) == 0 || len(l.Shape) > 2 {
		return errors.Wrapf(snapshot.ErrShape, "datasets must have rank 1 or 2, not %d", len(l.Shape))
	}
	if l.Chunk == nil {
		if l.Gzip > 0 || l.Shuffle || len(l.Filters) > 0 {
			return errors.New("filters require a chunked layout")
		}
		return nil
	}
	if len(l.Chunk) != len(l.Shape) {
		return errors.Wrapf(snapshot.ErrShape,
			"chunk %v doesn't match shape %v", l.Chunk, l.Shape)
	}
	for i := range l.Chunk {
		if l.Chunk[i] <= 0 || l.Chunk[i] > l.Shape[i] {
			return errors.Wrapf(snapshot.ErrShape,
				"chunk %v must be positive and no larger than shape %v",
				l.Chunk, l.Shape)
		}
	}
	return nil
}

// filterNames gives the filter pipeline implied by a layout.
func filterNames(l snapshot.Layout) []string {
	out := append([]string(nil), l.Filters...)
	has := func(name string) bool {
		for _, f := range out {
			if f == name { return true }
		}
		return false
	}
	if l.Shuffle && !has("shuffle") { out = append(out, "shuffle") }
	if l.Gzip > 0 && !has("deflate") { out = append(out, "deflate") }
	return out
}

func (f *File) CreateDataset(p string, layout snapshot.Layout) error {
	if err := f.checkWritable(); err != nil { return err }
	if err := checkLayout(layout); err != nil {
		return errors.Wrapf(err, "%s in %s", p, f.name)
	}
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	group, name, err := f.parent(p)
	if err != nil { return err }

	layout = cloneLayout(layout)
	layout.Virtual = false
	layout.Filters = filterNames(layout)
	group.children[name] = &object{
		kind:   datasetObj,
		attrs:  map[string]snapshot.Array{},
		layout: layout,
		data:   snapshot.Zeros(layout.Type, layout.Shape...),
	}
	return nil
}

// LikeLayout is the layout CreateDatasetLike gives a dataset with rows rows
// based on the layout of src.
func LikeLayout(src snapshot.Layout, rows int) snapshot.Layout {
	out := cloneLayout(src)
	out.Virtual = false
	out.Shape[0] = rows
	if rows == 0 {
		out.Chunk, out.Filters, out.Gzip, out.Shuffle = nil, nil, 0, false
	} else if out.Chunk != nil && out.Chunk[0] > rows {
		out.Chunk[0] = rows
	}
	return out
}

func (f *File) CreateDatasetLike(src snapshot.File, srcPath, dstPath string, rows int) error {
	layout, err := src.Layout(srcPath)
	if err != nil { return err }
	if layout.Virtual {
		return errors.Errorf("%s in %s is virtual and has no creation "+
			"properties to copy", srcPath, src.Name())
	}
	return f.CreateDataset(dstPath, LikeLayout(layout, rows))
}

func (f *File) WriteDataset(p string, a snapshot.Array) error {
	return f.write(p, 0, a, true)
}

func (f *File) WriteRows(p string, start int, a snapshot.Array) error {
	return f.write(p, start, a, false)
}

func (f *File) write(p string, start int, a snapshot.Array, whole bool) error {
	if err := f.checkWritable(); err != nil { return err }
	if err := a.Check(); err != nil { return err }
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	obj, err := f.dataset(p)
	if err != nil { return err }
	if obj.kind == virtualObj {
		return errors.Errorf("can't write to the virtual dataset %s in %s", p, f.name)
	}

	if a.Width() != obj.data.Width() || len(a.Shape) != len(obj.data.Shape) ||
		(whole && a.Rows() != obj.data.Rows()) ||
		start < 0 || start+a.Rows() > obj.data.Rows() {
		return errors.Wrapf(snapshot.ErrShape,
			"can't write %v at row %d of %s%v in %s",
			a.Shape, start, p, obj.data.Shape, f.name)
	}
	a, err = snapshot.Convert(a, obj.layout.Type)
	if err != nil { return err }
	obj.data.SetRows(start, a)
	return nil
}

func (f *File) CopyTree(src snapshot.File, srcPath, dstPath string) error {
	if err := f.checkWritable(); err != nil { return err }
	s, err := f.source(src)
	if err != nil { return err }

	s.st.mu.RLock()
	obj, err := s.lookup(srcPath, true)
	var cp *object
	if err == nil { cp = obj.clone() }
	s.st.mu.RUnlock()
	if err != nil { return err }

	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	group, name, err := f.parent(dstPath)
	if err != nil { return err }
	group.children[name] = cp
	return nil
}

func (f *File) VirtualSources(p string) ([]snapshot.Source, error) {
	f.st.mu.RLock()
	defer f.st.mu.RUnlock()
	obj, err := f.dataset(p)
	if err != nil { return nil, err }
	if obj.kind != virtualObj {
		return nil, errors.Errorf("%s in %s is not a virtual dataset", p, f.name)
	}
	return append([]snapshot.Source{}, obj.sources...), nil
}

func (f *File) CreateVirtual(p string, layout snapshot.Layout, sources []snapshot.Source) error {
	if err := f.checkWritable(); err != nil { return err }
	rows := 0
	for _, src := range sources { rows += src.Rows }
	if len(layout.Shape) == 0 || rows != layout.Shape[0] {
		return errors.Wrapf(snapshot.ErrShape,
			"virtual dataset %s of shape %v has sources with %d rows",
			p, layout.Shape, rows)
	}

	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	group, name, err := f.parent(p)
	if err != nil { return err }

	layout = cloneLayout(layout)
	layout.Virtual, layout.Chunk, layout.Filters = true, nil, nil
	layout.Gzip, layout.Shuffle = 0, false
	srcs := append([]snapshot.Source{}, sources...)
	for i := range srcs { srcs[i].Dataset = snapshot.Clean(srcs[i].Dataset) }
	group.children[name] = &object{
		kind:    virtualObj,
		attrs:   map[string]snapshot.Array{},
		layout:  layout,
		sources: srcs,
	}
	return nil
}

func (f *File) StorageSize(p string) (int64, error) {
	f.st.mu.RLock()
	defer f.st.mu.RUnlock()
	obj, err := f.dataset(p)
	if err != nil { return 0, err }
	if obj.kind == virtualObj { return 0, nil }
	return int64(obj.data.Len() * obj.layout.Type.Size()), nil
}
