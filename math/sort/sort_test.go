package sort

import (
	"math/rand"
	"sort"
	"testing"
)

func randKeys(n int, maxKey int64) []int64 {
	xs := make([]int64, n)
	for i := range xs {
		xs[i] = rand.Int63n(maxKey)
	}
	return xs
}

func checkArgsort(t *testing.T, keys []int64, idx []int) {
	t.Helper()
	if len(idx) != len(keys) {
		t.Fatalf("Argsort returned %d indices for %d keys.", len(idx), len(keys))
	}
	seen := make([]bool, len(keys))
	for _, i := range idx {
		if seen[i] {
			t.Fatalf("Index %d appears twice in %v.", i, idx)
		}
		seen[i] = true
	}
	for k := 1; k < len(idx); k++ {
		a, b := idx[k-1], idx[k]
		if keys[a] > keys[b] || (keys[a] == keys[b] && a > b) {
			t.Fatalf("Argsort out of order at %d: keys[%d] = %d, "+
				"keys[%d] = %d.", k, a, keys[a], b, keys[b])
		}
	}
}

func TestArgsort(t *testing.T) {
	tests := []struct {
		keys []int64
		idx  []int
	}{
		{[]int64{}, []int{}},
		{[]int64{4}, []int{0}},
		{[]int64{30, 10, 20}, []int{1, 2, 0}},
		{[]int64{5, 0, 5, 0}, []int{1, 3, 0, 2}},
	}

	for i, test := range tests {
		idx := Argsort(test.keys)
		if len(idx) != len(test.idx) {
			t.Errorf("%d) Argsort(%v) = %v, expected %v.",
				i, test.keys, idx, test.idx)
			continue
		}
		for j := range idx {
			if idx[j] != test.idx[j] {
				t.Errorf("%d) Argsort(%v) = %v, expected %v.",
					i, test.keys, idx, test.idx)
				break
			}
		}
	}
}

func TestArgsortRandom(t *testing.T) {
	for _, n := range []int{10, 100, 1000, 10000} {
		// Few distinct keys exercise the tie-breaking.
		for _, maxKey := range []int64{3, 1 << 40} {
			keys := randKeys(n, maxKey)
			checkArgsort(t, keys, Argsort(keys))
		}
	}

	sorted := make([]int64, 1000)
	for i := range sorted { sorted[i] = int64(i) }
	checkArgsort(t, sorted, Argsort(sorted))
	reversed := make([]int64, 1000)
	for i := range reversed { reversed[i] = int64(1000 - i) }
	checkArgsort(t, reversed, Argsort(reversed))
}

func TestArgsortMatchesStable(t *testing.T) {
	keys := randKeys(5000, 50)
	idx := Argsort(keys)

	exp := make([]int, len(keys))
	for i := range exp { exp[i] = i }
	sort.SliceStable(exp, func(i, j int) bool {
		return keys[exp[i]] < keys[exp[j]]
	})

	for i := range exp {
		if exp[i] != idx[i] {
			t.Fatalf("Argsort disagrees with a stable sort at %d.", i)
		}
	}
}

func TestIsSorted(t *testing.T) {
	if !IsSorted([]int64{}) || !IsSorted([]int64{1, 1, 2}) ||
		IsSorted([]int64{2, 1}) {
		t.Errorf("IsSorted gave the wrong answer.")
	}
}

func TestInversePermutation(t *testing.T) {
	perm := []int{2, 0, 3, 1}
	inv := InversePermutation(perm)
	for i := range perm {
		if inv[perm[i]] != i {
			t.Errorf("inv[perm[%d]] = %d.", i, inv[perm[i]])
		}
	}
}

func benchmarkArgsort(n int, b *testing.B) {
	keys := randKeys(n, 1<<40)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Argsort(keys)
	}
}

func BenchmarkArgsort10(b *testing.B)     { benchmarkArgsort(10, b) }
func BenchmarkArgsort1000(b *testing.B)   { benchmarkArgsort(1000, b) }
func BenchmarkArgsort100000(b *testing.B) { benchmarkArgsort(100000, b) }
