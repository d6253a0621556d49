/*package inspect reports on the contents of snapshot files: the datasets
they hold, the space each dataset takes on disk and the redshift of each
snapshot in a series.*/
package inspect

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/swift-toolbox/snaptools/catalog"
	"github.com/swift-toolbox/snaptools/snapshot"
)

func relative(p string) string { return strings.TrimPrefix(p, "/") }

// Contents returns the path of every dataset in f, virtual ones included,
// relative to the root group.
func Contents(f snapshot.File) ([]string, error) {
	paths, err := snapshot.Datasets(f)
	if err != nil { return nil, err }
	for i := range paths { paths[i] = relative(paths[i]) }
	return paths, nil
}

// Sizes returns the number of bytes every dataset of f takes on disk,
// after compression.
func Sizes(f snapshot.File, log logrus.FieldLogger) (map[string]int64, error) {
	start := time.Now()
	paths, err := snapshot.Datasets(f)
	if err != nil { return nil, err }

	sizes := make(map[string]int64, len(paths))
	for _, p := range paths {
		size, err := f.StorageSize(p)
		if err != nil { return nil, err }
		sizes[relative(p)] = size
	}
	if log != nil {
		log.WithField("elapsed", time.Since(start)).Info("Read dataset sizes")
	}
	return sizes, nil
}

// WriteSizes writes sizes as a YAML mapping.
func WriteSizes(w io.Writer, sizes map[string]int64) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(sizes); err != nil {
		return errors.Wrap(err, "I couldn't encode the dataset sizes")
	}
	return enc.Close()
}

// ReadSizes reads a mapping written by WriteSizes.
func ReadSizes(r io.Reader) (map[string]int64, error) {
	sizes := map[string]int64{}
	if err := yaml.NewDecoder(r).Decode(&sizes); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "I couldn't decode the dataset sizes")
	}
	return sizes, nil
}

// Redshift is the redshift of one snapshot file.
type Redshift struct {
	File     string
	Redshift float64
}

// Redshifts reads the header redshift of each named snapshot.
func Redshifts(fs snapshot.FS, names []string) ([]Redshift, error) {
	out := make([]Redshift, 0, len(names))
	for _, name := range names {
		f, err := fs.Open(name)
		if err != nil { return nil, err }
		hd, err := snapshot.ReadHeader(f)
		f.Close()
		if err != nil { return nil, err }
		out = append(out, Redshift{File: name, Redshift: hd.Redshift})
	}
	return out, nil
}

// WriteRedshifts writes a table of file base names and redshifts.
func WriteRedshifts(w io.Writer, zs []Redshift) error {
	files, reds := make([]string, len(zs)), make([]float64, len(zs))
	for i, z := range zs {
		files[i], reds[i] = filepath.Base(z.File), z.Redshift
	}
	return catalog.Write(w, []catalog.Column{
		{Name: "Snapshot", Strings: files},
		{Name: "Redshift", Floats: reds, Prec: 2, Fixed: true},
	})
}
