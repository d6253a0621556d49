package rand

const (
	tauswortheDigitsRandomized = 15

	tauswortheSeqLen       = 9689
	tauswortheFirstOffset  = 2444
	tauswortheSecondOffset = 4187
)

// tauswortheGenerator is a lagged subtractive generator over [0, 1). Its
// lag table is filled by a Golang generator with the same seed.
type tauswortheGenerator struct {
	seq                                   []float64
	leader, firstFollower, secondFollower int
}

func (gen *tauswortheGenerator) Init(seed uint64) {
	gen.seq = make([]float64, tauswortheSeqLen)

	digits := new(golangGenerator)
	digits.Init(seed)

	f := 1.0
	for digit := 0; digit < tauswortheDigitsRandomized; digit++ {
		for i := range gen.seq { gen.seq[i] += digits.Next() * f }
		f /= 2.0
	}

	for i := range gen.seq {
		for gen.seq[i] >= 1 { gen.seq[i] -= 1 }
	}

	gen.leader = 0
	gen.firstFollower = tauswortheFirstOffset
	gen.secondFollower = tauswortheSecondOffset
}

func (gen *tauswortheGenerator) Next() float64 {
	next := gen.seq[gen.firstFollower] - gen.seq[gen.secondFollower]
	if next < 0 { next += 1.0 }
	gen.seq[gen.leader] = next

	gen.leader = tauswortheStep(gen.leader)
	gen.firstFollower = tauswortheStep(gen.firstFollower)
	gen.secondFollower = tauswortheStep(gen.secondFollower)

	return next
}

func (gen *tauswortheGenerator) NextSequence(target []float64) {
	for i := range target { target[i] = gen.Next() }
}

// tauswortheStep moves an index one step back around the lag table.
func tauswortheStep(i int) int {
	if i == 0 { return tauswortheSeqLen - 1 }
	return i - 1
}
