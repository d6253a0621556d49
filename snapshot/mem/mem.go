/*package mem is an in-memory implementation of snapshot.FS. It follows the
rules of the HDF5 backend closely enough (chunk limits, read-only handles,
virtual sources resolved relative to the virtual file) that pipelines tested
against it behave the same way on disk.*/
package mem

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/swift-toolbox/snaptools/snapshot"
)

// FS is an in-memory file system of snapshot files. It is safe for
// concurrent use.
type FS struct {
	mu    sync.Mutex
	files map[string]*store
	dirs  map[string]bool
}

type store struct {
	mu   sync.RWMutex
	root *object
}

// New returns an empty FS.
func New() *FS {
	return &FS{files: map[string]*store{}, dirs: map[string]bool{}}
}

func clean(name string) string { return filepath.Clean(name) }

func (fs *FS) dirExists(dir string) bool {
	dir = clean(dir)
	return dir == "." || dir == "/" || fs.dirs[dir]
}

func (fs *FS) open(name string, writable bool) (snapshot.File, error) {
	name = clean(name)
	fs.mu.Lock()
	st, ok := fs.files[name]
	fs.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(snapshot.ErrNotFound, "file %s", name)
	}
	return &File{fs: fs, name: name, st: st, writable: writable}, nil
}

func (fs *FS) Open(name string) (snapshot.File, error) { return fs.open(name, false) }

func (fs *FS) OpenRW(name string) (snapshot.File, error) { return fs.open(name, true) }

func (fs *FS) Create(name string) (snapshot.File, error) {
	name = clean(name)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.dirExists(filepath.Dir(name)) {
		return nil, errors.Wrapf(snapshot.ErrNotFound,
			"directory %s", filepath.Dir(name))
	}
	st := &store{root: newGroup()}
	fs.files[name] = st
	return &File{fs: fs, name: name, st: st, writable: true}, nil
}

func (fs *FS) Glob(pattern string) ([]string, error) {
	pattern = clean(pattern)
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, errors.Wrapf(err, "pattern %s", pattern)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := []string{}
	for name := range fs.files {
		if ok, _ := filepath.Match(pattern, name); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (fs *FS) Exists(name string) bool {
	name = clean(name)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.files[name]
	return ok || fs.dirExists(name)
}

func (fs *FS) MkdirAll(dir string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for dir = clean(dir); dir != "." && dir != "/"; dir = filepath.Dir(dir) {
		if _, ok := fs.files[dir]; ok {
			return errors.Errorf("%s exists and is not a directory", dir)
		}
		fs.dirs[dir] = true
	}
	return nil
}

func (fs *FS) Rename(from, to string) error {
	from, to = clean(from), clean(to)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	st, ok := fs.files[from]
	if !ok {
		return errors.Wrapf(snapshot.ErrNotFound, "file %s", from)
	}
	if !fs.dirExists(filepath.Dir(to)) {
		return errors.Wrapf(snapshot.ErrNotFound, "directory %s", filepath.Dir(to))
	}
	delete(fs.files, from)
	fs.files[to] = st
	return nil
}

func (fs *FS) Remove(name string) error {
	name = clean(name)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[name]; !ok {
		return errors.Wrapf(snapshot.ErrNotFound, "file %s", name)
	}
	delete(fs.files, name)
	return nil
}

func (fs *FS) RemoveAll(dir string) error {
	dir = clean(dir)
	prefix := dir + string(filepath.Separator)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for name := range fs.files {
		if name == dir || strings.HasPrefix(name, prefix) { delete(fs.files, name) }
	}
	for name := range fs.dirs {
		if name == dir || strings.HasPrefix(name, prefix) { delete(fs.dirs, name) }
	}
	return nil
}

// Files returns the names of every file in fs, sorted.
func (fs *FS) Files() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]string, 0, len(fs.files))
	for name := range fs.files { out = append(out, name) }
	sort.Strings(out)
	return out
}
