package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/swift-toolbox/snaptools/inspect"
)

// ContentsConfig runs the contents mode, which lists every dataset of a
// snapshot.
type ContentsConfig struct{ noConfig }

// SizesConfig runs the sizes mode, which writes the on-disk size of every
// dataset of a snapshot to a YAML file.
type SizesConfig struct{ noConfig }

// RedshiftsConfig runs the redshifts mode, which prints a table of
// snapshot redshifts.
type RedshiftsConfig struct{ noConfig }

var (
	_ Mode = &ContentsConfig{}
	_ Mode = &SizesConfig{}
	_ Mode = &RedshiftsConfig{}
)

func (config *ContentsConfig) Usage() string  { return "INPUT" }
func (config *SizesConfig) Usage() string     { return "INPUT OUTPUT.yml" }
func (config *RedshiftsConfig) Usage() string { return "SNAPSHOT..." }

// Run executes the contents mode.
func (config *ContentsConfig) Run(
	ctx context.Context, args []string, gConfig *GlobalConfig, e *Env,
) ([]string, error) {
	if err := checkArgs("contents", args, 1); err != nil { return nil, err }
	f, err := e.FS.Open(args[0])
	if err != nil { return nil, err }
	defer f.Close()
	return inspect.Contents(f)
}

// Run executes the sizes mode.
func (config *SizesConfig) Run(
	ctx context.Context, args []string, gConfig *GlobalConfig, e *Env,
) (out []string, err error) {
	if err := checkArgs("sizes", args, 2); err != nil { return nil, err }
	f, err := e.FS.Open(args[0])
	if err != nil { return nil, err }
	defer f.Close()

	sizes, err := inspect.Sizes(f, e.Log)
	if err != nil { return nil, err }

	w, err := os.Create(args[1])
	if err != nil { return nil, errors.Wrapf(err, "I couldn't create %s", args[1]) }
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil { err = cerr }
	}()
	if err := inspect.WriteSizes(w, sizes); err != nil { return nil, err }

	var total int64
	for _, size := range sizes { total += size }
	return []string{fmt.Sprintf("%d datasets take %d bytes", len(sizes), total)}, nil
}

// Run executes the redshifts mode.
func (config *RedshiftsConfig) Run(
	ctx context.Context, args []string, gConfig *GlobalConfig, e *Env,
) ([]string, error) {
	if len(args) == 0 {
		return nil, errors.New("The redshifts mode needs at least one snapshot.")
	}
	zs, err := inspect.Redshifts(e.FS, args)
	if err != nil { return nil, err }

	buf := &bytes.Buffer{}
	if err := inspect.WriteRedshifts(buf, zs); err != nil { return nil, err }
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n"), nil
}
