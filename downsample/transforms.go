/*package downsample reduces a multi-file SWIFT snapshot to a random subset
of its particles.

Every shard is sampled independently by a worker, with its own seed. Once
all shards are written, the cell index and the particle totals are
gathered across shards and written back into each of them. The shards are
then combined into a virtual snapshot, which is materialized into a single
output file.*/
package downsample

import (
	"sort"

	"github.com/swift-toolbox/snaptools/snapshot"
)

// Transform modifies sampled data in place. fraction is the fraction of
// particles of that type which was kept.
type Transform func(a snapshot.Array, fraction float64) error

// DivideByFraction rescales a quantity so that its sum over the sample
// matches the sum over the full snapshot on average.
func DivideByFraction(a snapshot.Array, fraction float64) error {
	return a.Divide(fraction)
}

// Transforms lists, for each particle type, the datasets kept in the
// output and the transform applied to each of them. A nil Transform copies
// the sampled values. Particle types without an entry are dropped.
type Transforms map[int]map[string]Transform

// DefaultTransforms returns the datasets kept by default.
func DefaultTransforms() Transforms {
	return Transforms{
		0: {
			"ComptonYParameters": nil,
			"Coordinates":        nil,
			"Masses":             DivideByFraction,
			"Velocities":         nil,
		},
		1: {
			"Coordinates": nil,
			"Masses":      DivideByFraction,
			"Velocities":  nil,
		},
		4: {
			"Coordinates": nil,
			"Masses":      DivideByFraction,
			"Velocities":  nil,
		},
		5: {
			"Coordinates":     nil,
			"DynamicalMasses": nil,
			"SubgridMasses":   nil,
			"Velocities":      nil,
		},
		6: {
			"Coordinates":   nil,
			"Masses":        DivideByFraction,
			"SampledSpeeds": nil,
			"Velocities":    nil,
			"Weights":       nil,
		},
	}
}

// DefaultKeepAll is the set of particle types which are never sampled.
// Black holes are too rare to thin out.
func DefaultKeepAll() map[int]bool { return map[int]bool{5: true} }

// Datasets returns the names of the datasets kept for a particle type in
// sorted order.
func (t Transforms) Datasets(typ int) []string {
	names := make([]string, 0, len(t[typ]))
	for name := range t[typ] { names = append(names, name) }
	sort.Strings(names)
	return names
}

// Select returns a copy of t restricted to the given particle types. An
// empty list keeps everything.
func (t Transforms) Select(types []int64) Transforms {
	if len(types) == 0 { return t }
	out := Transforms{}
	for _, typ := range types {
		if m, ok := t[int(typ)]; ok { out[int(typ)] = m }
	}
	return out
}
