/*package snapshot describes SWIFT snapshot files and the storage boundary
that the rest of snaptools reads and writes them through.

A snapshot file is a tree of groups holding attributes and datasets. The
storage layer classifies every object into a Kind when the tree is walked, so
callers switch over Group, Dataset and VirtualDataset instead of inspecting
the underlying library's objects. Two implementations of FS exist: an HDF5
one in snapshot/h5 and an in-memory one in snapshot/mem.
*/
package snapshot

// Layout describes how a dataset is stored.
type Layout struct {
	Type  DType
	Shape []int
	// Chunk is nil for contiguous datasets.
	Chunk []int
	// Filters lists the names of the filters in the pipeline, in order.
	Filters []string
	// Gzip is the deflate level, 0 if deflate isn't used.
	Gzip    int
	Shuffle bool
	Virtual bool
}

// Rows returns the length of the first dimension.
func (l Layout) Rows() int {
	if len(l.Shape) == 0 { return 0 }
	return l.Shape[0]
}

// Source is one backing block of a virtual dataset: the whole of Dataset
// in File, mapped onto consecutive rows. File may be relative to the
// directory of the virtual file.
type Source struct {
	File    string
	Dataset string
	Rows    int
}

// FS opens and manages snapshot files.
type FS interface {
	// Open opens an existing file read-only.
	Open(name string) (File, error)
	// OpenRW opens an existing file for reading and writing.
	OpenRW(name string) (File, error)
	// Create creates a file, truncating it if it exists.
	Create(name string) (File, error)
	Glob(pattern string) ([]string, error)
	Exists(name string) bool
	MkdirAll(dir string) error
	Rename(from, to string) error
	Remove(name string) error
	RemoveAll(dir string) error
}

// File is an open snapshot file. Object paths are absolute within the file.
// Methods which take a src File require it to come from the same FS.
type File interface {
	Name() string

	// Walk visits every group and dataset below the root in depth-first,
	// name order. Soft links are not visited.
	Walk(fn func(Node) error) error
	// Exists reports whether an object (or link) exists at path.
	Exists(path string) bool
	// Children lists the names of the members of a group, links included.
	Children(path string) ([]string, error)
	CreateGroup(path string) error
	// Link creates a soft link at name pointing to target.
	Link(target, name string) error

	AttrNames(path string) ([]string, error)
	ReadAttr(path, name string) (Array, error)
	// WriteAttr creates or replaces an attribute.
	WriteAttr(path, name string, a Array) error
	// CopyAttrs copies every attribute of srcPath in src onto dstPath.
	CopyAttrs(src File, srcPath, dstPath string) error

	Layout(path string) (Layout, error)
	// ReadDataset reads a whole dataset. Virtual datasets are resolved.
	ReadDataset(path string) (Array, error)
	CreateDataset(path string, layout Layout) error
	// CreateDatasetLike creates a dataset with the datatype, filters and
	// row width of srcPath in src but with the given number of rows. Chunk
	// rows are clamped to rows, and an empty dataset is contiguous.
	CreateDatasetLike(src File, srcPath, dstPath string, rows int) error
	WriteDataset(path string, a Array) error
	// WriteRows writes a into the rows [start, start + a.Rows()).
	WriteRows(path string, start int, a Array) error
	// CopyTree copies the object at srcPath in src, and everything below
	// it, to dstPath.
	CopyTree(src File, srcPath, dstPath string) error

	VirtualSources(path string) ([]Source, error)
	// CreateVirtual creates a virtual dataset that concatenates sources.
	CreateVirtual(path string, layout Layout, sources []Source) error

	// StorageSize returns the number of bytes a dataset uses on disk.
	StorageSize(path string) (int64, error)
	Close() error
}

// Datasets returns the paths of every dataset in f, virtual ones included.
func Datasets(f File) ([]string, error) {
	paths := []string{}
	err := f.Walk(func(n Node) error {
		if n.Kind != Group { paths = append(paths, n.Path) }
		return nil
	})
	return paths, err
}
