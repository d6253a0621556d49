package rand

// xorshiftGenerator is Marsaglia's xorshift128 generator. The four state
// words are filled from the seed with SplitMix64 so that nearby seeds give
// unrelated streams.
type xorshiftGenerator struct {
	x, y, z, w uint32
}

const xorshiftNorm = 1.0 / (1 << 32)

func (gen *xorshiftGenerator) Init(seed uint64) {
	state := seed
	a, b := splitMix64(&state), splitMix64(&state)
	gen.x, gen.y = uint32(a), uint32(a>>32)
	gen.z, gen.w = uint32(b), uint32(b>>32)
	if gen.x|gen.y|gen.z|gen.w == 0 { gen.w = 88675123 }
}

func (gen *xorshiftGenerator) next() uint32 {
	t := gen.x ^ (gen.x << 11)
	gen.x, gen.y, gen.z = gen.y, gen.z, gen.w
	gen.w = gen.w ^ (gen.w >> 19) ^ (t ^ (t >> 8))
	return gen.w
}

func (gen *xorshiftGenerator) Next() float64 {
	return float64(gen.next()) * xorshiftNorm
}

func (gen *xorshiftGenerator) NextSequence(target []float64) {
	for i := range target {
		target[i] = float64(gen.next()) * xorshiftNorm
	}
}
