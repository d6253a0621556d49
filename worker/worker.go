/*package worker runs independent file-level tasks on a bounded pool.

A task owns the files it touches for its whole lifetime, so tasks never
coordinate with each other. Results are only looked at once every task has
finished.*/
package worker

import (
	"context"
	"io"
	"runtime"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of work. Label names it in progress and error reports.
type Task[T any] struct {
	Label string
	Run   func(ctx context.Context) (T, error)
}

// Options configures a pool run.
type Options struct {
	// Workers is the maximum number of concurrent tasks. Values below one
	// mean runtime.NumCPU().
	Workers int
	// Progress receives a progress bar if non-nil.
	Progress io.Writer
	// Stage is the name of the run in logs and on the progress bar.
	Stage string
	Log   logrus.FieldLogger
}

// Size returns the number of workers used for n tasks.
func (opt Options) Size(n int) int {
	workers := opt.Workers
	if workers < 1 { workers = runtime.NumCPU() }
	if workers > n { workers = n }
	if workers < 1 { workers = 1 }
	return workers
}

// Run executes tasks with at most opt.Size(len(tasks)) running at once and
// returns their results in task order. The first error cancels the context
// handed to the remaining tasks and is returned once every started task
// has returned.
func Run[T any](ctx context.Context, opt Options, tasks []Task[T]) ([]T, error) {
	out := make([]T, len(tasks))
	if len(tasks) == 0 { return out, nil }

	workers := opt.Size(len(tasks))
	if opt.Log != nil {
		opt.Log.WithFields(logrus.Fields{
			"stage": opt.Stage, "tasks": len(tasks), "workers": workers,
		}).Debug("Starting pool")
	}

	bar := newBar(opt, len(tasks))
	defer bar.finish()

	parent := ctx
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range tasks {
		i := i
		if ctx.Err() != nil { break }
		eg.Go(func() error {
			if err := ctx.Err(); err != nil { return err }
			res, err := tasks[i].Run(ctx)
			if err != nil {
				return errors.Wrapf(err, "%s failed on %s", opt.Stage, tasks[i].Label)
			}
			out[i] = res
			bar.done(tasks[i].Label)
			if opt.Log != nil {
				opt.Log.WithFields(logrus.Fields{
					"stage": opt.Stage, "task": tasks[i].Label,
				}).Debug("Finished task")
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil { return nil, err }
	if err := parent.Err(); err != nil { return nil, err }
	return out, nil
}

// bar is a progress bar which may be absent.
type bar struct {
	mu sync.Mutex
	pb *pb.ProgressBar
}

func newBar(opt Options, n int) *bar {
	if opt.Progress == nil { return &bar{} }
	p := pb.New(n)
	p.SetWriter(opt.Progress)
	p.Set("prefix", opt.Stage+" ")
	p.Start()
	return &bar{pb: p}
}

func (b *bar) done(label string) {
	if b.pb == nil { return }
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pb.Set("suffix", " "+label)
	b.pb.Increment()
}

func (b *bar) finish() {
	if b.pb != nil { b.pb.Finish() }
}
