/*package cmd contains code for running snaptools in its various command
line modes.*/
package cmd

import (
	"context"
	"io"
	"runtime"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/swift-toolbox/snaptools/logging"
	"github.com/swift-toolbox/snaptools/math/rand"
	"github.com/swift-toolbox/snaptools/parse"
	"github.com/swift-toolbox/snaptools/snapshot"
	"github.com/swift-toolbox/snaptools/version"
)

// ModeNames lists every mode by its command line name.
var ModeNames = map[string]Mode{
	"downsample":  &DownsampleConfig{},
	"virtual":     &VirtualConfig{noConfig{"virtual"}},
	"materialize": &MaterializeConfig{},
	"ic":          &ICConfig{},
	"contents":    &ContentsConfig{noConfig{"contents"}},
	"sizes":       &SizesConfig{noConfig{"sizes"}},
	"redshifts":   &RedshiftsConfig{noConfig{"redshifts"}},
}

// Mode represents the interface used by the main binary when interacting
// with a given command line mode.
type Mode interface {
	// ReadConfig reads a mode-specific config file and stores its contents
	// within the Mode. An empty name sets every variable to its default.
	ReadConfig(fname string) error
	// ExampleConfig returns the text of an example config file of this
	// mode, or "" if the mode has no config file.
	ExampleConfig() string
	// Usage is the positional argument list shown in help text.
	Usage() string
	// Flags registers the mode's command line flags, which take precedence
	// over its config file.
	Flags(flags *pflag.FlagSet)
	// Run executes the mode on its positional arguments and returns the
	// lines that should be written to stdout.
	Run(ctx context.Context, args []string, gConfig *GlobalConfig, e *Env) ([]string, error)
}

// Env holds the resources shared by every mode.
type Env struct {
	FS       snapshot.FS
	Log      logrus.FieldLogger
	Progress io.Writer
}

// GlobalConfig is a config file used by every mode.
type GlobalConfig struct {
	version   string
	workers   int64
	logMode   string
	generator string

	// Workers is the size of the worker pool.
	Workers int
	// LogFlag and Generator are the parsed LogMode and Generator variables.
	LogFlag   logging.Flag
	Generator rand.GeneratorType
}

// ReadConfig reads a config file and returns an error, if applicable.
func (config *GlobalConfig) ReadConfig(fname string) error {
	vars := parse.NewConfigVars("snaptools.config")
	vars.String(&config.version, "Version", version.SourceVersion)
	vars.Int(&config.workers, "Workers", 0)
	vars.String(&config.logMode, "LogMode", "nil")
	vars.String(&config.generator, "Generator", rand.Xorshift.String())

	if err := readModeConfig(fname, vars); err != nil { return err }
	return config.validate()
}

// validate checks that all the user-generated fields of GlobalConfig are
// properly set and fills in the parsed fields.
func (config *GlobalConfig) validate() error {
	if err := version.Check(config.version); err != nil { return err }

	if config.workers < 0 {
		return errors.Errorf("The 'Workers' variable is set to %d, but it "+
			"can't be negative.", config.workers)
	}
	config.Workers = int(config.workers)
	if config.Workers == 0 { config.Workers = runtime.NumCPU() }

	var err error
	if config.LogFlag, err = logging.ParseFlag(config.logMode); err != nil {
		return errors.Wrap(err, "The 'LogMode' variable is invalid")
	}
	if config.Generator, err = rand.ParseGeneratorType(config.generator); err != nil {
		return errors.Wrap(err, "The 'Generator' variable is invalid")
	}
	return nil
}

// ExampleConfig returns an example configuration file.
func (config *GlobalConfig) ExampleConfig() string {
	return `[snaptools.config]
# Target version of snaptools. This option merely allows snaptools to notice
# when its source and configuration files are not from the same version.
#
# This variable defaults to the source version if not included.
Version = ` + version.SourceVersion + `

# Workers is the number of files processed in parallel. 0 means one per
# core. The -j flag of every mode overrides it.
Workers = 0

# LogMode is one of:
#   Nil         - stage transitions and their durations
#   Performance - also every task and the memory usage
#   Debug       - everything
LogMode = Nil

# Generator is the random number generator used for sampling: Xorshift,
# Golang or Tausworthe.
Generator = Xorshift`
}

// noConfig is embedded by modes without a config file.
type noConfig struct{ name string }

func (c noConfig) ReadConfig(fname string) error {
	if fname == "" { return nil }
	return errors.Errorf("The %s mode does not have a config file, but "+
		"I was given %s.", c.name, fname)
}

func (noConfig) ExampleConfig() string { return "" }

func (noConfig) Flags(*pflag.FlagSet) {}

// readModeConfig reads fname into vars, or leaves the defaults if it is
// empty.
func readModeConfig(fname string, vars *parse.ConfigVars) error {
	if fname == "" { return nil }
	return parse.ReadConfig(fname, vars)
}

// checkArgs checks the number of positional arguments of a mode.
func checkArgs(mode string, args []string, n int) error {
	if len(args) != n {
		return errors.Errorf("The %s mode takes %d arguments, but I was "+
			"given %d.", mode, n, len(args))
	}
	return nil
}

func parseFloatArg(name, s string) (float64, error) {
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("I couldn't parse the %s '%s' as a number.", name, s)
	}
	return x, nil
}

func parseUintArg(name, s string) (uint64, error) {
	x, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Errorf("I couldn't parse the %s '%s' as a "+
			"non-negative integer.", name, s)
	}
	return x, nil
}
