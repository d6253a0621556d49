/*snaptools downsamples, combines and converts SWIFT snapshots.*/
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/swift-toolbox/snaptools/cmd"
	"github.com/swift-toolbox/snaptools/logging"
	"github.com/swift-toolbox/snaptools/snapshot/h5"
	"github.com/swift-toolbox/snaptools/version"
)

// GlobalConfigEnv names the environment variable holding the global config
// file when --global-config isn't given.
const GlobalConfigEnv = "SNAPTOOLS_GLOBAL_CONFIG"

var modeDescriptions = map[string]string{
	"downsample": "Randomly keep a fraction of the particles of a snapshot",
	"virtual":    "Combine the files of a snapshot into one virtual file",
	"materialize": "Copy a virtual snapshot into one file without " +
		"virtual datasets",
	"ic":        "Convert a snapshot into initial conditions",
	"contents":  "List every dataset of a snapshot file",
	"sizes":     "Write the on-disk size of every dataset to a YAML file",
	"redshifts": "Print the redshifts of snapshot files",
}

type rootFlags struct {
	globalConfig string
	workers      int
	quiet        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		log.Fatalf("%s\n", err.Error())
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "snaptools",
		Short:         "Tools for downsampling and combining SWIFT snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.globalConfig, "global-config", "",
		"global config file (default $"+GlobalConfigEnv+")")
	root.PersistentFlags().IntVarP(&flags.workers, "nproc", "j", 0,
		"number of files processed in parallel (default from the global config)")
	root.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false,
		"don't draw progress bars")

	names := make([]string, 0, len(cmd.ModeNames))
	for name := range cmd.ModeNames { names = append(names, name) }
	sort.Strings(names)
	for _, name := range names {
		root.AddCommand(modeCmd(name, cmd.ModeNames[name], flags))
	}
	root.AddCommand(configCmd(names), versionCmd())
	return root
}

func modeCmd(name string, mode cmd.Mode, flags *rootFlags) *cobra.Command {
	var configFile string
	c := &cobra.Command{
		Use:   name + " [flags] " + mode.Usage(),
		Short: modeDescriptions[name],
		RunE: func(c *cobra.Command, args []string) error {
			gConfig, err := readGlobalConfig(flags)
			if err != nil { return err }
			if err := readModeConfig(c.Flags(), mode, configFile); err != nil {
				return err
			}

			e := &cmd.Env{
				FS:  h5.New(),
				Log: logging.New(gConfig.LogFlag, os.Stderr),
			}
			if !flags.quiet { e.Progress = os.Stderr }

			out, err := mode.Run(c.Context(), args, gConfig, e)
			if err != nil {
				return errors.Wrapf(err, "Error running mode %s", name)
			}
			for i := range out { fmt.Fprintln(c.OutOrStdout(), out[i]) }
			return nil
		},
	}
	if mode.ExampleConfig() != "" {
		c.Flags().StringVar(&configFile, "config", "",
			"config file of the "+name+" mode (see 'snaptools config "+name+"')")
	}
	mode.Flags(c.Flags())
	return c
}

// readGlobalConfig reads the global config file and applies the --nproc
// flag on top of it.
func readGlobalConfig(flags *rootFlags) (*cmd.GlobalConfig, error) {
	fname := flags.globalConfig
	if fname == "" { fname = os.Getenv(GlobalConfigEnv) }

	gConfig := &cmd.GlobalConfig{}
	if err := gConfig.ReadConfig(fname); err != nil { return nil, err }
	if flags.workers < 0 {
		return nil, errors.Errorf("--nproc is set to %d, but it can't be "+
			"negative", flags.workers)
	} else if flags.workers > 0 {
		gConfig.Workers = flags.workers
	}
	return gConfig, nil
}

// readModeConfig reads a mode's config file without losing the flags set
// on the command line, which take precedence.
func readModeConfig(flags *pflag.FlagSet, mode cmd.Mode, fname string) error {
	set := map[string]string{}
	flags.Visit(func(f *pflag.Flag) { set[f.Name] = f.Value.String() })

	if err := mode.ReadConfig(fname); err != nil { return err }
	for name, value := range set {
		if err := flags.Set(name, value); err != nil { return err }
	}
	return nil
}

func configCmd(names []string) *cobra.Command {
	return &cobra.Command{
		Use:   "config [MODE]",
		Short: "Print an example global or mode config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(c.OutOrStdout(), new(cmd.GlobalConfig).ExampleConfig())
				return nil
			}
			mode, ok := cmd.ModeNames[args[0]]
			if !ok {
				return errors.Errorf("I don't recognize the mode '%s'. The "+
					"modes are %s", args[0], strings.Join(names, ", "))
			}
			if text := mode.ExampleConfig(); text != "" {
				fmt.Fprintln(c.OutOrStdout(), text)
			} else {
				fmt.Fprintf(c.OutOrStdout(), "The %s mode does not have a config file.\n", args[0])
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of snaptools",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, args []string) {
			fmt.Fprintf(c.OutOrStdout(), "snaptools version %s\n", version.SourceVersion)
		},
	}
}
