package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/swift-toolbox/snaptools/ic"
	"github.com/swift-toolbox/snaptools/parse"
)

// ICConfig contains the config variables of the ic mode.
type ICConfig struct {
	replicate   int64
	compression bool
	types       []int64
}

var _ Mode = &ICConfig{}

// ReadConfig reads in an ICConfig from a file.
func (config *ICConfig) ReadConfig(fname string) error {
	vars := parse.NewConfigVars("ic.config")
	vars.Int(&config.replicate, "Replicate", 1)
	vars.Bool(&config.compression, "Compression", false)
	vars.Ints(&config.types, "Types", []int64{})

	if err := readModeConfig(fname, vars); err != nil { return err }

	lists := ic.DefaultLists()
	for _, typ := range config.types {
		if _, ok := lists[int(typ)]; !ok {
			return errors.Errorf("The 'Types' variable contains %d, but "+
				"there is no dataset list for PartType%d.", typ, typ)
		}
	}
	return nil
}

// ExampleConfig returns an example config file for the ic mode.
func (config *ICConfig) ExampleConfig() string {
	return `[ic.config]
# Replicate is the number of copies of the box along each axis. The output
# holds Replicate^3 times as many particles. The --replicate flag
# overrides it.
Replicate = 1

# Compression turns on gzip compression of the output datasets. The
# --compression flag overrides it.
Compression = false

# Types lists the particle types written to the output. An empty list keeps
# every type with a dataset list.
# Types = 0, 1, 4, 5`
}

func (config *ICConfig) Usage() string { return "INPUT OUTPUT" }

func (config *ICConfig) Flags(flags *pflag.FlagSet) {
	flags.Int64Var(&config.replicate, "replicate", 1,
		"number of copies of the box along each axis")
	flags.BoolVar(&config.compression, "compression", false,
		"gzip the output datasets")
}

// lists returns the dataset lists of the selected types.
func (config *ICConfig) lists() ic.Lists {
	all := ic.DefaultLists()
	if len(config.types) == 0 { return all }
	out := ic.Lists{}
	for _, typ := range config.types { out[int(typ)] = all[int(typ)] }
	return out
}

// Run executes the ic mode.
func (config *ICConfig) Run(
	ctx context.Context, args []string, gConfig *GlobalConfig, e *Env,
) ([]string, error) {
	if err := checkArgs("ic", args, 2); err != nil { return nil, err }
	res, err := ic.Convert(e.FS, ic.Config{
		Input:       args[0],
		Output:      args[1],
		Replicate:   int(config.replicate),
		Compression: config.compression,
		Lists:       config.lists(),
		Log:         e.Log,
	})
	if err != nil { return nil, err }
	return []string{
		fmt.Sprintf("Wrote %s", args[1]),
		fmt.Sprintf("The starting scale factor of runs using these initial "+
			"conditions must be %g.", res.ScaleFactor),
	}, nil
}
