package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/swift-toolbox/snaptools/downsample"
	"github.com/swift-toolbox/snaptools/parse"
)

// DownsampleConfig contains the config variables of the downsample mode.
type DownsampleConfig struct {
	types         []int64
	keepAll       []int64
	keepTemporary bool
}

var _ Mode = &DownsampleConfig{}

// ReadConfig reads in a DownsampleConfig from a file.
func (config *DownsampleConfig) ReadConfig(fname string) error {
	vars := parse.NewConfigVars("downsample.config")
	vars.Ints(&config.types, "Types", []int64{})
	vars.Ints(&config.keepAll, "KeepAll", []int64{5})
	vars.Bool(&config.keepTemporary, "KeepTemporary", false)

	if err := readModeConfig(fname, vars); err != nil { return err }
	return config.validate()
}

func (config *DownsampleConfig) validate() error {
	transforms := downsample.DefaultTransforms()
	for _, typ := range config.types {
		if _, ok := transforms[int(typ)]; !ok {
			return errors.Errorf("The 'Types' variable contains %d, but "+
				"there is no sampling rule for PartType%d.", typ, typ)
		}
	}
	for _, typ := range config.keepAll {
		if typ < 0 {
			return errors.Errorf("The 'KeepAll' variable contains the "+
				"negative particle type %d.", typ)
		}
	}
	return nil
}

// ExampleConfig returns an example config file for the downsample mode.
func (config *DownsampleConfig) ExampleConfig() string {
	return `[downsample.config]
# Types lists the particle types written to the output. Types without a
# sampling rule are dropped. An empty list keeps every type with a rule.
# Types = 0, 1, 4, 5

# KeepAll lists the particle types which are copied without sampling.
KeepAll = 5

# KeepTemporary leaves the per-shard files in place after the run. The
# --keep-temporary flag overrides it.
KeepTemporary = false`
}

func (config *DownsampleConfig) Usage() string { return "INPUT OUTPUT FRACTION SEED" }

func (config *DownsampleConfig) Flags(flags *pflag.FlagSet) {
	flags.BoolVar(&config.keepTemporary, "keep-temporary", false,
		"leave the temporary per-shard files in place")
}

// Run executes the downsample mode.
func (config *DownsampleConfig) Run(
	ctx context.Context, args []string, gConfig *GlobalConfig, e *Env,
) ([]string, error) {
	if err := checkArgs("downsample", args, 4); err != nil { return nil, err }
	fraction, err := parseFloatArg("fraction", args[2])
	if err != nil { return nil, err }
	seed, err := parseUintArg("seed", args[3])
	if err != nil { return nil, err }

	keepAll := map[int]bool{}
	for _, typ := range config.keepAll { keepAll[int(typ)] = true }

	cfg := downsample.Config{
		Input:         args[0],
		Output:        args[1],
		Fraction:      fraction,
		Seed:          seed,
		Workers:       gConfig.Workers,
		Generator:     gConfig.Generator,
		Transforms:    downsample.DefaultTransforms().Select(config.types),
		KeepAll:       keepAll,
		KeepTemporary: config.keepTemporary,
		Progress:      e.Progress,
		Log:           e.Log,
	}
	if err := downsample.Run(ctx, e.FS, cfg); err != nil { return nil, err }
	return []string{fmt.Sprintf("Wrote %s.hdf5", cfg.Prefix())}, nil
}
