/*package sort provides index sorts over ordered slices without the overhead
of Go's sort.Interface. Argsort is used to visit the cells of a snapshot in
the order of their offsets.
*/
package sort

import (
	"cmp"
)

const (
	manualLen = 25
)

// Argsort returns the permutation of indices which visits keys in
// increasing order. Equal keys are visited in index order, so the result is
// the same as a stable sort and is independent of the algorithm used.
func Argsort[T cmp.Ordered](keys []T) []int {
	idx := make([]int, len(keys))
	for i := range idx { idx[i] = i }
	quick(keys, idx)
	return idx
}

// IsSorted returns true if xs is non-decreasing.
func IsSorted[T cmp.Ordered](xs []T) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[i-1] { return false }
	}
	return true
}

// InversePermutation returns inv such that inv[perm[i]] = i.
func InversePermutation(perm []int) []int {
	inv := make([]int, len(perm))
	for i, j := range perm { inv[j] = i }
	return inv
}

// less orders indices by key and then by index.
func less[T cmp.Ordered](keys []T, i, j int) bool {
	if keys[i] != keys[j] { return keys[i] < keys[j] }
	return i < j
}

// quick sorts idx in place by quicksort, switching to Shell's method on
// short segments.
func quick[T cmp.Ordered](keys []T, idx []int) {
	for len(idx) >= manualLen {
		p := partition(keys, idx)
		// Recurse on the smaller half to bound the stack depth.
		if p < len(idx)-p {
			quick(keys, idx[:p])
			idx = idx[p+1:]
		} else {
			quick(keys, idx[p+1:])
			idx = idx[:p]
		}
	}
	shell(keys, idx)
}

// partition moves the median of three sampled elements to its final
// position and returns that position. Everything before it is smaller and
// everything after it is larger.
func partition[T cmp.Ordered](keys []T, idx []int) int {
	n := len(idx)
	a, b, c := 0, n/2, n-1
	if less(keys, idx[b], idx[a]) { a, b = b, a }
	if less(keys, idx[c], idx[b]) {
		b = c
		if less(keys, idx[b], idx[a]) { b = a }
	}
	idx[b], idx[n-1] = idx[n-1], idx[b]
	pivot := idx[n-1]

	store := 0
	for i := 0; i < n-1; i++ {
		if less(keys, idx[i], pivot) {
			idx[i], idx[store] = idx[store], idx[i]
			store++
		}
	}
	idx[store], idx[n-1] = idx[n-1], idx[store]
	return store
}

// shell sorts idx in place via Shell's method.
func shell[T cmp.Ordered](keys []T, idx []int) {
	n := len(idx)
	if n <= 1 { return }

	inc := 1
	for inc <= n {
		inc = inc*3 + 1
	}
	for inc > 1 {
		inc /= 3
		for i := inc; i < n; i++ {
			v := idx[i]
			j := i
			for j >= inc && less(keys, v, idx[j-inc]) {
				idx[j] = idx[j-inc]
				j -= inc
			}
			idx[j] = v
		}
	}
}
