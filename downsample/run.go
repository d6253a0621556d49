package downsample

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/swift-toolbox/snaptools/logging"
	"github.com/swift-toolbox/snaptools/materialize"
	"github.com/swift-toolbox/snaptools/math/rand"
	"github.com/swift-toolbox/snaptools/snapshot"
	"github.com/swift-toolbox/snaptools/virtual"
	"github.com/swift-toolbox/snaptools/worker"
)

// Config describes one downsampling run.
type Config struct {
	// Input is the snapshot name without the ".N.hdf5" suffix.
	Input string
	// Output is the name of the single output file. A trailing ".hdf5" is
	// optional.
	Output   string
	Fraction float64
	// Seed is the seed of the first shard. Shard i uses Seed + i.
	Seed    uint64
	Workers int

	Generator  rand.GeneratorType
	Transforms Transforms
	KeepAll    map[int]bool
	// KeepTemporary leaves the temporary folder in place.
	KeepTemporary bool

	Progress io.Writer
	Log      logrus.FieldLogger
}

// Prefix returns the output name without the ".hdf5" suffix.
func (cfg *Config) Prefix() string { return strings.TrimSuffix(cfg.Output, ".hdf5") }

// TempDir returns the folder holding the sampled shards and the virtual
// snapshot.
func (cfg *Config) TempDir() string { return cfg.Prefix() + "_temporary_files" }

// Shards returns the shards of the snapshot input, "input.N.hdf5", in
// numeric order of N. If there are none, "input.hdf5" is the only shard.
func Shards(fs snapshot.FS, input string) ([]string, error) {
	input = filepath.Clean(input)
	names, err := fs.Glob(input + ".*.hdf5")
	if err != nil { return nil, err }

	type numbered struct {
		name string
		n    int
	}
	shards := []numbered{}
	for _, name := range names {
		mid := strings.TrimSuffix(strings.TrimPrefix(name, input+"."), ".hdf5")
		n, err := strconv.Atoi(mid)
		if err != nil { continue }
		shards = append(shards, numbered{name, n})
	}
	sort.Slice(shards, func(i, j int) bool { return shards[i].n < shards[j].n })

	out := make([]string, len(shards))
	for i := range shards { out[i] = shards[i].name }
	if len(out) > 0 { return out, nil }

	single := input + ".hdf5"
	if !fs.Exists(single) {
		return nil, errors.Wrapf(snapshot.ErrNotFound,
			"no files match %s.*.hdf5 or %s", input, single)
	}
	return []string{single}, nil
}

func (cfg *Config) check() error {
	if cfg.Fraction < 0 || cfg.Fraction > 1 {
		return errors.Errorf("The sampling fraction must be in [0, 1], but it's %g.", cfg.Fraction)
	}
	cfg.Input = filepath.Clean(cfg.Input)
	if cfg.Transforms == nil { cfg.Transforms = DefaultTransforms() }
	if cfg.KeepAll == nil { cfg.KeepAll = DefaultKeepAll() }
	if cfg.Log == nil { cfg.Log = logrus.New() }
	return nil
}

// Run downsamples cfg.Input into cfg.Output.
func Run(ctx context.Context, fs snapshot.FS, cfg Config) error {
	if err := cfg.check(); err != nil { return err }
	log := cfg.Log

	shards, err := Shards(fs, cfg.Input)
	if err != nil { return err }
	log.Infof("Will downsample %d file(s).", len(shards))

	temp := cfg.TempDir()
	if err := fs.MkdirAll(temp); err != nil { return err }

	tasks := cfg.tasks(shards)
	opt := Options{
		Fraction: cfg.Fraction, Transforms: cfg.Transforms,
		KeepAll: cfg.KeepAll, Generator: cfg.Generator, Log: log,
	}

	timer := logging.Start(log, "sampling")
	results, err := worker.Run(ctx, cfg.pool("Sampling"), sampleTasks(fs, tasks, opt))
	if err != nil { return err }
	timer.Stop()
	reportMasses(log, results)

	outputs := make([]string, len(tasks))
	for i := range tasks { outputs[i] = tasks[i].Output }

	timer = logging.Start(log, "gathering cells")
	sum, err := Aggregate(fs, outputs)
	if err != nil { return err }
	timer.Stop()
	log.WithField("totals", sum.Totals).Info("Gathered particle numbers")

	timer = logging.Start(log, "write-back")
	if _, err := worker.Run(ctx, cfg.pool("Setting cell meta-data"),
		writeBackTasks(fs, outputs, sum)); err != nil {
		return err
	}
	timer.Stop()

	output := cfg.Prefix() + ".hdf5"
	if len(outputs) == 1 {
		if err := fs.Rename(outputs[0], output); err != nil { return err }
	} else if err := cfg.combine(ctx, fs, outputs, output); err != nil {
		return err
	}

	if cfg.KeepTemporary { return nil }
	log.Infof("Removing temporary folder %s", temp)
	return fs.RemoveAll(temp)
}

func (cfg *Config) combine(ctx context.Context, fs snapshot.FS, outputs []string, output string) error {
	vfile := filepath.Join(cfg.TempDir(), filepath.Base(cfg.Prefix())+".hdf5")
	timer := logging.Start(cfg.Log, "virtual snapshot")
	if err := virtual.Create(fs, outputs, vfile, cfg.Log); err != nil { return err }
	timer.Stop()

	timer = logging.Start(cfg.Log, "materialization")
	defer timer.Stop()
	return materialize.Copy(ctx, fs, materialize.Config{
		Input: vfile, Output: output, Temp: cfg.TempDir(),
		Workers: cfg.Workers, Progress: cfg.Progress, Log: cfg.Log,
	})
}

// tasks lays out the sampling jobs. The sampled copy of "input.N.hdf5"
// is "<temp>/<output>.N.hdf5".
func (cfg *Config) tasks(shards []string) []ShardTask {
	base := filepath.Base(cfg.Prefix())
	tasks := make([]ShardTask, len(shards))
	for i, name := range shards {
		suffix := strings.TrimPrefix(name, cfg.Input)
		tasks[i] = ShardTask{
			Index: i, Seed: cfg.Seed + uint64(i), Input: name,
			Output: filepath.Join(cfg.TempDir(), base+suffix),
		}
	}
	return tasks
}

func (cfg *Config) pool(stage string) worker.Options {
	return worker.Options{
		Workers: cfg.Workers, Progress: cfg.Progress, Stage: stage, Log: cfg.Log,
	}
}

func sampleTasks(fs snapshot.FS, tasks []ShardTask, opt Options) []worker.Task[ShardResult] {
	out := make([]worker.Task[ShardResult], len(tasks))
	for i := range tasks {
		task := tasks[i]
		out[i] = worker.Task[ShardResult]{
			Label: task.Input,
			Run: func(ctx context.Context) (ShardResult, error) {
				return SampleShard(ctx, fs, task, opt)
			},
		}
	}
	return out
}

func writeBackTasks(fs snapshot.FS, outputs []string, sum *Summary) []worker.Task[struct{}] {
	out := make([]worker.Task[struct{}], len(outputs))
	for i := range outputs {
		name := outputs[i]
		out[i] = worker.Task[struct{}]{
			Label: name,
			Run: func(ctx context.Context) (struct{}, error) {
				return struct{}{}, WriteBack(fs, name, sum)
			},
		}
	}
	return out
}

// reportMasses logs the total mass of every transformed type before and
// after sampling.
func reportMasses(log logrus.FieldLogger, results []ShardResult) {
	before, after := map[int]float64{}, map[int]float64{}
	for _, res := range results {
		for typ, m := range res.Masses {
			before[typ] += m.Before
			after[typ] += m.After
		}
	}
	for typ := 0; typ < snapshot.NumTypes; typ++ {
		if _, ok := before[typ]; !ok { continue }
		log.WithFields(logrus.Fields{
			"type": snapshot.TypeGroup(typ), "before": before[typ], "after": after[typ],
		}).Debug("Mass conservation")
	}
}
