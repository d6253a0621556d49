/*package rand provides seeded pseudo random number generators and the
Bernoulli masks used to subsample particles.

Here are some usage examples for these generators.

	// Generate a single value
	gen := New(Xorshift, 1337)
	x := gen.Uniform(3, 7)

	// Multiple random floats (faster)
	xs := make([]float64, 100)
	gen.UniformAt(3, 7, xs)

	// Keep roughly a tenth of a million particles
	keep := gen.Mask(1000000, 0.1)

Three types of generators are provided. Xorshift is very fast, Tausworthe is
slower (especially at start up) but has a much longer period, and Golang is a
wrapper around Go's standard library generator. Every generator is fully
determined by its type and seed, so the same seed always gives the same mask.
*/
package rand

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultBufSize is the number of values a Generator draws at a time when
// building masks.
const DefaultBufSize = 1 << 12

// generatorBackend is an interface which is used by the generators to supply
// the functionality needed for top-level functions like Uniform(). Next
// returns values in [0, 1).
type generatorBackend interface {
	Init(seed uint64)
	Next() float64
	NextSequence(target []float64)
}

// Generator is a random number generator.
type Generator struct {
	backend generatorBackend
	buf     []float64
}

// Generator type is a flag used to indicate the desired algorithm
// for a random number generator.
type GeneratorType uint8

const (
	Xorshift GeneratorType = iota
	Golang
	Tausworthe
)

func (gt GeneratorType) String() string {
	switch gt {
	case Xorshift: return "Xorshift"
	case Golang: return "Golang"
	case Tausworthe: return "Tausworthe"
	}
	return "Unknown"
}

// ParseGeneratorType converts the name of a generator (case-insensitive)
// into a GeneratorType.
func ParseGeneratorType(s string) (GeneratorType, error) {
	for _, gt := range []GeneratorType{Xorshift, Golang, Tausworthe} {
		if strings.EqualFold(strings.TrimSpace(s), gt.String()) {
			return gt, nil
		}
	}
	return Xorshift, errors.Errorf(
		"The generator '%s' isn't recognized. The valid generators are "+
			"'Xorshift', 'Golang', and 'Tausworthe'.", s,
	)
}

// NewTimeSeed returns a new random number generator that uses the current
// time as the seed.
func NewTimeSeed(gt GeneratorType) *Generator {
	return New(gt, uint64(time.Now().UnixNano()))
}

// New returns a new random number generator.
func New(gt GeneratorType, seed uint64) *Generator {
	var backend generatorBackend

	switch gt {
	case Xorshift:
		backend = new(xorshiftGenerator)
	case Golang:
		backend = new(golangGenerator)
	case Tausworthe:
		backend = new(tauswortheGenerator)
	default:
		panic("Unrecognized GeneratorType")
	}

	backend.Init(seed)
	return &Generator{backend: backend}
}

// UniformInt returns an integer uniformly at random within in the
// range [low, high).
func (gen *Generator) UniformInt(low, high int) int {
	f := gen.backend.Next()
	return int(math.Floor(float64(high-low)*f + float64(low)))
}

// Uniform returns a float uniformly at random within the range [low, high).
func (gen *Generator) Uniform(low, high float64) float64 {
	if low == 0.0 && high == 1.0 {
		return gen.backend.Next()
	}
	return (gen.backend.Next() * (high - low)) + low
}

// UniformAt writes floats generated uniformly at random in the range
// [low, high) to every element in a target slice. This is generally faster
// than calling Uniform the corresponding number of times.
func (gen *Generator) UniformAt(low, high float64, target []float64) {
	gen.backend.NextSequence(target)
	if low == 0.0 && high == 1.0 {
		return
	}
	for i := range target {
		target[i] = target[i]*(high-low) + low
	}
}

// Mask returns n independent Bernoulli draws which are true with
// probability fraction: element i is true when the i-th uniform value is
// less than fraction. A fraction of 1 or more keeps everything and a
// fraction of 0 or less keeps nothing, and neither consumes random values.
func (gen *Generator) Mask(n int, fraction float64) []bool {
	mask := make([]bool, n)
	if fraction >= 1 {
		for i := range mask { mask[i] = true }
		return mask
	} else if fraction <= 0 {
		return mask
	}

	if gen.buf == nil { gen.buf = make([]float64, DefaultBufSize) }
	for start := 0; start < n; start += len(gen.buf) {
		end := start + len(gen.buf)
		if end > n { end = n }
		buf := gen.buf[:end-start]
		gen.backend.NextSequence(buf)
		for i, x := range buf { mask[start+i] = x < fraction }
	}
	return mask
}

// splitMix64 advances a SplitMix64 state and returns the next output. It is
// used to spread a user-supplied seed over the state of a backend.
func splitMix64(state *uint64) uint64 {
	*state += 0x9e3779b97f4a7c15
	z := *state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
