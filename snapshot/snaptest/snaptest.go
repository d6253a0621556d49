/*package snaptest writes small synthetic SWIFT snapshots for tests. The
files have the structure of real SWIFT output: a Header, a global cell index
repeated in every shard, compressed particle datasets and the named soft
links of every particle type.*/
package snaptest

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/swift-toolbox/snaptools/snapshot"
)

// Snapshot describes a synthetic multi-file snapshot.
type Snapshot struct {
	// Prefix is the name of the snapshot without the ".N.hdf5" suffix.
	Prefix string
	// Counts[s][t] is the number of particles of type t in shard s.
	Counts [][snapshot.NumTypes]int64
	// CellsPerShard is the number of cells each shard owns for every
	// particle type.
	CellsPerShard int
	BoxSize       float64
	Redshift      float64
	// Omit lists datasets ("PartType0/Masses") to leave out of a shard.
	Omit map[int][]string
	// Single names the file "<Prefix>.hdf5" when there is only one shard.
	Single bool
}

// Datasets returns the datasets written for each particle type and whether
// they are rank 2.
func Datasets(typ int) map[string]bool {
	out := map[string]bool{
		"Coordinates": true,
		"Velocities":  true,
		"ParticleIDs": false,
	}
	switch typ {
	case 0:
		out["Masses"] = false
		out["ComptonYParameters"] = false
		out["Temperatures"] = false
	case 1, 2, 4:
		out["Masses"] = false
	case 5:
		out["DynamicalMasses"] = false
		out["SubgridMasses"] = false
	case 6:
		out["Masses"] = false
		out["SampledSpeeds"] = false
		out["Weights"] = false
	}
	return out
}

// Names returns the file names of every shard.
func (s *Snapshot) Names() []string {
	if s.Single && len(s.Counts) == 1 {
		return []string{s.Prefix + ".hdf5"}
	}
	out := make([]string, len(s.Counts))
	for i := range out { out[i] = fmt.Sprintf("%s.%d.hdf5", s.Prefix, i) }
	return out
}

// Totals returns the number of particles of each type over all shards.
func (s *Snapshot) Totals() []int64 {
	out := make([]int64, snapshot.NumTypes)
	for _, counts := range s.Counts {
		for t := range counts { out[t] += counts[t] }
	}
	return out
}

// Cells returns the global cell index of a particle type. Cell c belongs to
// shard c % len(Counts), so the cells of a shard are interleaved with the
// others. Within a shard the cells are stored in reverse index order and
// the first owned cell is empty.
func (s *Snapshot) Cells(typ int) (offsets, counts, files []int64) {
	nShard := len(s.Counts)
	nCell := nShard * s.CellsPerShard
	offsets = make([]int64, nCell)
	counts = make([]int64, nCell)
	files = make([]int64, nCell)

	for shard := 0; shard < nShard; shard++ {
		owned := []int{}
		for c := shard; c < nCell; c += nShard {
			owned = append(owned, c)
			files[c] = int64(shard)
		}

		n, k := s.Counts[shard][typ], int64(len(owned))
		for j, c := range owned {
			counts[c] = n / k
			if int64(j) < n%k { counts[c]++ }
		}
		if k >= 2 {
			counts[owned[1]] += counts[owned[0]]
			counts[owned[0]] = 0
		}

		offset := int64(0)
		for j := len(owned) - 1; j >= 0; j-- {
			offsets[owned[j]] = offset
			offset += counts[owned[j]]
		}
	}
	return offsets, counts, files
}

// Mass returns the mass of the particle with the given ID.
func Mass(id uint64) float64 { return 1 + float64(id%7) }

// Write creates every shard of s in fs and returns their names.
func Write(fs snapshot.FS, s *Snapshot) ([]string, error) {
	if s.CellsPerShard <= 0 { s.CellsPerShard = 4 }
	if s.BoxSize == 0 { s.BoxSize = 100 }
	names := s.Names()
	for i := range names {
		if err := s.writeShard(fs, names[i], i); err != nil {
			return nil, errors.Wrapf(err, "writing %s", names[i])
		}
	}
	return names, nil
}

func (s *Snapshot) omitted(shard int, path string) bool {
	for _, p := range s.Omit[shard] {
		if strings.Trim(p, "/") == strings.Trim(path, "/") { return true }
	}
	return false
}

func (s *Snapshot) writeShard(fs snapshot.FS, name string, shard int) error {
	f, err := fs.Create(name)
	if err != nil { return err }
	defer f.Close()

	totals := s.Totals()
	counts := s.Counts[shard]

	if err := writeHeader(f, s, shard, totals); err != nil { return err }

	for _, group := range []string{"/Units", "/Code"} {
		if err := f.CreateGroup(group); err != nil { return err }
	}
	if err := f.WriteAttr("/Units", "Unit length in cgs (U_L)", snapshot.Of([]float64{3.08567758e24})); err != nil {
		return err
	}
	if err := f.WriteAttr("/Code", "Code", snapshot.Strings("SWIFT")); err != nil {
		return err
	}

	for _, group := range []string{
		snapshot.CellsGroup, snapshot.CellOffsetsGroup,
		snapshot.CellCountsGroup, snapshot.CellFilesGroup,
	} {
		if err := f.CreateGroup(group); err != nil { return err }
	}
	if err := f.WriteAttr(snapshot.CellsGroup, "Dimension", snapshot.Of([]int32{2, 2, 2})); err != nil {
		return err
	}

	firstID := make([]uint64, snapshot.NumTypes)
	for prev := 0; prev < shard; prev++ {
		for t := range firstID { firstID[t] += uint64(s.Counts[prev][t]) }
	}
	for t := range firstID {
		for prev := 0; prev < t; prev++ { firstID[t] += uint64(totals[prev]) }
	}

	for typ := 0; typ < snapshot.NumTypes; typ++ {
		if totals[typ] == 0 { continue }
		if err := s.writeType(f, shard, typ, counts[typ], firstID[typ]+1); err != nil {
			return err
		}
	}
	return snapshot.LinkParticleGroups(f)
}

func writeHeader(f snapshot.File, s *Snapshot, shard int, totals []int64) error {
	counts := s.Counts[shard]
	thisFile := make([]uint32, snapshot.NumTypes)
	total := make([]uint32, snapshot.NumTypes)
	for t := range thisFile {
		thisFile[t], total[t] = uint32(counts[t]), uint32(totals[t])
	}

	a := 1 / (1 + s.Redshift)
	attrs := []struct {
		name string
		val  snapshot.Array
	}{
		{snapshot.AttrNumPartThisFile, snapshot.Of(thisFile)},
		{snapshot.AttrNumPartTotal, snapshot.Of(total)},
		{snapshot.AttrNumPartTotalHighWord, snapshot.Of(make([]uint32, snapshot.NumTypes))},
		{snapshot.AttrThisFile, snapshot.Of([]int32{int32(shard)})},
		{snapshot.AttrNumFilesPerSnapshot, snapshot.Of([]int32{int32(len(s.Counts))})},
		{snapshot.AttrBoxSize, snapshot.Of([]float64{s.BoxSize, s.BoxSize, s.BoxSize})},
		{snapshot.AttrScaleFactor, snapshot.Of([]float64{a})},
		{snapshot.AttrRedshift, snapshot.Of([]float64{s.Redshift})},
		{"RunName", snapshot.Strings("snaptest")},
	}

	if err := f.CreateGroup(snapshot.HeaderGroup); err != nil { return err }
	for _, attr := range attrs {
		if err := f.WriteAttr(snapshot.HeaderGroup, attr.name, attr.val); err != nil {
			return err
		}
	}
	return nil
}

func (s *Snapshot) writeType(
	f snapshot.File, shard, typ int, n int64, firstID uint64,
) error {
	group := "/" + snapshot.TypeGroup(typ)
	if err := f.CreateGroup(group); err != nil { return err }
	if err := f.WriteAttr(group, "NumberOfParticles", snapshot.Of([]int64{n})); err != nil {
		return err
	}

	offsets, counts, files := s.Cells(typ)
	cells := snapshot.NewCellIndex(typ, offsets, counts, files)
	for _, cg := range []string{snapshot.CellOffsetsGroup, snapshot.CellCountsGroup, snapshot.CellFilesGroup} {
		t := snapshot.Int64
		if cg == snapshot.CellFilesGroup { t = snapshot.Int32 }
		layout := snapshot.Layout{Type: t, Shape: []int{len(counts)}}
		if err := f.CreateDataset(snapshot.Join(cg, snapshot.TypeGroup(typ)), layout); err != nil {
			return err
		}
	}
	if err := cells.Write(f); err != nil { return err }

	ids := make([]uint64, n)
	for i := range ids { ids[i] = firstID + uint64(i) }

	for name, rank2 := range Datasets(typ) {
		path := group + "/" + name
		if s.omitted(shard, path) { continue }

		var a snapshot.Array
		switch {
		case name == "ParticleIDs":
			a = snapshot.Of(ids)
		case name == "Coordinates":
			xs := make([]float64, 3*n)
			for i, id := range ids {
				for k := 0; k < 3; k++ {
					xs[3*i+k] = float64((id*uint64(7+k*13))%1000) / 1000 * s.BoxSize
				}
			}
			a = snapshot.Of(xs, int(n), 3)
		case rank2:
			vs := make([]float32, 3*n)
			for i, id := range ids {
				for k := 0; k < 3; k++ { vs[3*i+k] = float32(id) + float32(k)/10 }
			}
			a = snapshot.Of(vs, int(n), 3)
		case strings.HasSuffix(name, "Masses"):
			ms := make([]float32, n)
			for i, id := range ids { ms[i] = float32(Mass(id)) }
			a = snapshot.Of(ms)
		default:
			ws := make([]float32, n)
			for i, id := range ids { ws[i] = float32(id) / 2 }
			a = snapshot.Of(ws)
		}

		layout := snapshot.Layout{Type: a.Type, Shape: append([]int{}, a.Shape...)}
		if n > 0 {
			layout.Chunk = append([]int{}, a.Shape...)
			if layout.Chunk[0] > 64 { layout.Chunk[0] = 64 }
			layout.Gzip, layout.Shuffle = 4, true
		}
		if err := f.CreateDataset(path, layout); err != nil { return err }
		if err := f.WriteDataset(path, a); err != nil { return err }
		if err := f.WriteAttr(path, "Description", snapshot.Strings(name+" of the particles")); err != nil {
			return err
		}
	}
	return nil
}
