/*package h5 implements snapshot.FS on HDF5 files. Files, groups, object
enumeration and whole-dataset I/O go through gonum.org/v1/hdf5; virtual
layouts, creation property lists, attribute copies and partial writes go
through a thin layer over the HDF5 C library.

The HDF5 library is not thread-safe in its default build, so every call into
it holds a single package-level lock. Workers still overlap their Go-side
work (masking, transforms) with each other's I/O.*/
package h5

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/hdf5"

	"github.com/swift-toolbox/snaptools/snapshot"
)

// lib serializes calls into libhdf5.
var lib sync.Mutex

// FS is the HDF5 file system rooted at the working directory.
type FS struct{}

var _ snapshot.FS = FS{}

// New returns an HDF5 FS.
func New() FS { return FS{} }

func (FS) open(name string, flags int, writable bool) (snapshot.File, error) {
	lib.Lock()
	defer lib.Unlock()
	if _, err := os.Stat(name); err != nil {
		return nil, errors.Wrapf(snapshot.ErrNotFound, "file %s", name)
	}
	f, err := hdf5.OpenFile(name, flags)
	if err != nil {
		return nil, errors.Wrapf(err, "I couldn't open %s", name)
	}
	return &File{name: name, f: f, writable: writable}, nil
}

func (fs FS) Open(name string) (snapshot.File, error) {
	return fs.open(name, hdf5.F_ACC_RDONLY, false)
}

func (fs FS) OpenRW(name string) (snapshot.File, error) {
	return fs.open(name, hdf5.F_ACC_RDWR, true)
}

func (FS) Create(name string) (snapshot.File, error) {
	lib.Lock()
	defer lib.Unlock()
	f, err := hdf5.CreateFile(name, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, errors.Wrapf(err, "I couldn't create %s", name)
	}
	return &File{name: name, f: f, writable: true}, nil
}

func (FS) Glob(pattern string) ([]string, error) {
	names, err := filepath.Glob(pattern)
	if err != nil { return nil, errors.Wrapf(err, "pattern %s", pattern) }
	sort.Strings(names)
	return names, nil
}

func (FS) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func (FS) MkdirAll(dir string) error {
	return errors.Wrapf(os.MkdirAll(dir, 0755), "I couldn't create %s", dir)
}

func (FS) Rename(from, to string) error {
	return errors.Wrapf(os.Rename(from, to), "I couldn't move %s to %s", from, to)
}

func (FS) Remove(name string) error {
	return errors.Wrapf(os.Remove(name), "I couldn't remove %s", name)
}

func (FS) RemoveAll(dir string) error {
	return errors.Wrapf(os.RemoveAll(dir), "I couldn't remove %s", dir)
}
