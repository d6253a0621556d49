/*package materialize turns a virtual snapshot into an ordinary HDF5 file.

Groups and real datasets are copied while walking the input. Each virtual
dataset is resolved by its own worker into a temporary file holding a single
"data" dataset with the creation properties of the first file backing it,
and the temporary datasets are then copied into the output.*/
package materialize

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/swift-toolbox/snaptools/snapshot"
	"github.com/swift-toolbox/snaptools/worker"
)

// TempDataset is the name of the dataset in every temporary file.
const TempDataset = "/data"

// Config describes one materialization.
type Config struct {
	Input  string
	Output string
	// Temp is the directory of the temporary files. It must exist.
	Temp     string
	Workers  int
	Progress io.Writer
	Log      logrus.FieldLogger
}

// TempFile returns the temporary file used for the virtual dataset at
// path.
func (cfg *Config) TempFile(path string) string {
	prefix := strings.TrimSuffix(filepath.Base(cfg.Output), ".hdf5")
	return filepath.Join(cfg.Temp, prefix+"_"+snapshot.TempName(path)+".hdf5")
}

// Copy writes a copy of cfg.Input to cfg.Output in which every virtual
// dataset is replaced by a real one.
func Copy(ctx context.Context, fs snapshot.FS, cfg Config) error {
	if cfg.Log == nil { cfg.Log = logrus.New() }

	virtual, err := copyStructure(fs, &cfg)
	if err != nil { return err }
	cfg.Log.WithField("datasets", len(virtual)).Debug("Copied real datasets and structure")

	tasks := make([]worker.Task[string], len(virtual))
	for i, path := range virtual {
		path := path
		tasks[i] = worker.Task[string]{
			Label: path,
			Run: func(ctx context.Context) (string, error) {
				tmp := cfg.TempFile(path)
				return tmp, ResolveVirtual(fs, cfg.Input, tmp, path)
			},
		}
	}
	temps, err := worker.Run(ctx, worker.Options{
		Workers: cfg.Workers, Progress: cfg.Progress,
		Stage: "Resolving virtual datasets", Log: cfg.Log,
	}, tasks)
	if err != nil { return err }

	return copyBack(fs, &cfg, virtual, temps)
}

// copyStructure copies everything except the virtual datasets, whose
// paths it returns.
func copyStructure(fs snapshot.FS, cfg *Config) (virtual []string, err error) {
	in, err := fs.Open(cfg.Input)
	if err != nil { return nil, err }
	defer in.Close()
	out, err := fs.Create(cfg.Output)
	if err != nil { return nil, err }
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil { err = cerr }
	}()

	err = in.Walk(func(n snapshot.Node) error {
		switch n.Kind {
		case snapshot.Group:
			if err := out.CreateGroup(n.Path); err != nil { return err }
			return out.CopyAttrs(in, n.Path, n.Path)
		case snapshot.Dataset:
			return out.CopyTree(in, n.Path, n.Path)
		case snapshot.VirtualDataset:
			virtual = append(virtual, n.Path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "I couldn't copy %s to %s", cfg.Input, cfg.Output)
	}
	if err := snapshot.LinkParticleGroups(out); err != nil { return nil, err }
	return virtual, nil
}

func copyBack(fs snapshot.FS, cfg *Config, paths, temps []string) (err error) {
	out, err := fs.OpenRW(cfg.Output)
	if err != nil { return err }
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil { err = cerr }
	}()

	for i, path := range paths {
		tmp, err := fs.Open(temps[i])
		if err != nil { return err }
		err = out.CopyTree(tmp, TempDataset, path)
		tmp.Close()
		if err != nil {
			return errors.Wrapf(err, "I couldn't copy %s back into %s", temps[i], cfg.Output)
		}
		if err := fs.Remove(temps[i]); err != nil { return err }
	}
	return nil
}

// ResolveVirtual writes the contents of the dataset at path in input to
// TempDataset in a new file output. A virtual dataset gets the datatype,
// chunking and filters of the first dataset backing it. A real dataset is
// copied with its own creation properties. Attributes are kept.
func ResolveVirtual(fs snapshot.FS, input, output, path string) (err error) {
	in, err := fs.Open(input)
	if err != nil { return err }
	defer in.Close()

	layout, err := in.Layout(path)
	if err != nil { return err }

	out, err := fs.Create(output)
	if err != nil { return err }
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil { err = cerr }
	}()

	if !layout.Virtual {
		if err := out.CreateDatasetLike(in, path, TempDataset, layout.Rows()); err != nil {
			return err
		}
	} else if err := createFromSource(fs, in, out, path, layout); err != nil {
		return err
	}

	a, err := in.ReadDataset(path)
	if err != nil { return err }
	if err := out.WriteDataset(TempDataset, a); err != nil { return err }
	return out.CopyAttrs(in, path, TempDataset)
}

func createFromSource(
	fs snapshot.FS, in, out snapshot.File, path string, layout snapshot.Layout,
) error {
	sources, err := in.VirtualSources(path)
	if err != nil { return err }
	if len(sources) == 0 {
		return errors.Errorf("The virtual dataset %s in %s has no sources.", path, in.Name())
	}

	name := sources[0].File
	if !filepath.IsAbs(name) { name = filepath.Join(filepath.Dir(in.Name()), name) }
	src, err := fs.Open(name)
	if err != nil {
		return errors.Wrapf(err, "I couldn't open the first source of %s", path)
	}
	defer src.Close()
	return out.CreateDatasetLike(src, sources[0].Dataset, TempDataset, layout.Rows())
}
