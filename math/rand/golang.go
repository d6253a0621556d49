package rand

import (
	"math/rand"
)

// golangGenerator wraps the standard library's generator. It is seeded
// through SplitMix64 like the other backends.
type golangGenerator struct {
	r *rand.Rand
}

func (gen *golangGenerator) Init(seed uint64) {
	state := seed
	gen.r = rand.New(rand.NewSource(int64(splitMix64(&state))))
}

func (gen *golangGenerator) Next() float64 {
	return gen.r.Float64()
}

func (gen *golangGenerator) NextSequence(target []float64) {
	for i := range target {
		target[i] = gen.r.Float64()
	}
}
