/*package logging builds the loggers used by snaptools. The amount of output
is controlled by a Flag which comes from the LogMode variable of the global
config file.*/
package logging

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Flag int

const (
	// Nil reports stage transitions only.
	Nil Flag = iota
	// Performance additionally reports stage timings and memory usage.
	Performance
	// Debug reports everything.
	Debug
)

func (f Flag) String() string {
	switch f {
	case Nil: return "nil"
	case Performance: return "performance"
	case Debug: return "debug"
	}
	return fmt.Sprintf("Flag(%d)", int(f))
}

// ParseFlag converts the value of a LogMode config variable into a Flag.
func ParseFlag(s string) (Flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nil", "none": return Nil, nil
	case "performance": return Performance, nil
	case "debug": return Debug, nil
	}
	return Nil, errors.Errorf(
		"The LogMode '%s' isn't recognized. The valid modes are 'nil', "+
			"'performance', and 'debug'.", s,
	)
}

// New returns a logger writing to w at the verbosity given by flag. Nil
// loggers report at the Info level, Performance loggers at the Debug level
// and Debug loggers at the Trace level.
func New(flag Flag, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	switch flag {
	case Performance:
		log.SetLevel(logrus.DebugLevel)
	case Debug:
		log.SetLevel(logrus.TraceLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// Discard returns a logger which drops everything. Used by tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

// MemString returns a string containing various statistics on the current
// memory usage of snaptools.
func MemString() string {
	ms := runtime.MemStats{}
	runtime.ReadMemStats(&ms)
	return fmt.Sprintf(
		"Alloc - %d MB; Sys - %d MB Integrated - %d MB",
		ms.Alloc>>20, ms.Sys>>20, ms.TotalAlloc>>20,
	)
}

// Timer measures the duration of a pipeline stage.
type Timer struct {
	log   logrus.FieldLogger
	stage string
	start time.Time
}

// Start logs the beginning of a stage and returns a Timer for it.
func Start(log logrus.FieldLogger, stage string) *Timer {
	log.WithField("stage", stage).Info("Starting")
	return &Timer{log: log, stage: stage, start: time.Now()}
}

// Stop logs the end of the stage along with its duration. Memory usage is
// only reported by Performance and Debug loggers.
func (t *Timer) Stop() time.Duration {
	dt := time.Since(t.start)
	t.log.WithFields(logrus.Fields{
		"stage":   t.stage,
		"elapsed": dt.Round(time.Millisecond).String(),
	}).Info("Finished")
	t.log.WithField("stage", t.stage).Debug(MemString())
	return dt
}
