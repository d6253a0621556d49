package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/swift-toolbox/snaptools/materialize"
	"github.com/swift-toolbox/snaptools/parse"
)

// MaterializeConfig contains the config variables of the materialize mode.
type MaterializeConfig struct {
	tempDir       string
	keepTemporary bool
}

var _ Mode = &MaterializeConfig{}

// ReadConfig reads in a MaterializeConfig from a file.
func (config *MaterializeConfig) ReadConfig(fname string) error {
	vars := parse.NewConfigVars("materialize.config")
	vars.String(&config.tempDir, "TempDir", "")
	vars.Bool(&config.keepTemporary, "KeepTemporary", false)
	return readModeConfig(fname, vars)
}

// ExampleConfig returns an example config file for the materialize mode.
func (config *MaterializeConfig) ExampleConfig() string {
	return `[materialize.config]
# TempDir is the directory of the per-dataset temporary files. It defaults
# to OUTPUT_temporary_files. The --temp flag overrides it.
# TempDir = /scratch/materialize

# KeepTemporary leaves the temporary directory in place after the run.
KeepTemporary = false`
}

func (config *MaterializeConfig) Usage() string { return "INPUT OUTPUT" }

func (config *MaterializeConfig) Flags(flags *pflag.FlagSet) {
	flags.StringVar(&config.tempDir, "temp", "",
		"directory of the temporary files")
	flags.BoolVar(&config.keepTemporary, "keep-temporary", false,
		"leave the temporary directory in place")
}

// Run executes the materialize mode.
func (config *MaterializeConfig) Run(
	ctx context.Context, args []string, gConfig *GlobalConfig, e *Env,
) (out []string, err error) {
	if err := checkArgs("materialize", args, 2); err != nil { return nil, err }
	cfg := materialize.Config{
		Input:    args[0],
		Output:   args[1],
		Temp:     config.tempDir,
		Workers:  gConfig.Workers,
		Progress: e.Progress,
		Log:      e.Log,
	}
	if cfg.Temp == "" {
		cfg.Temp = strings.TrimSuffix(cfg.Output, ".hdf5") + "_temporary_files"
	}

	if err := e.FS.MkdirAll(cfg.Temp); err != nil { return nil, err }
	if !config.keepTemporary {
		defer func() {
			if rmErr := e.FS.RemoveAll(cfg.Temp); err == nil { err = rmErr }
		}()
	}

	if err := materialize.Copy(ctx, e.FS, cfg); err != nil { return nil, err }
	return []string{fmt.Sprintf("Wrote %s", cfg.Output)}, nil
}
