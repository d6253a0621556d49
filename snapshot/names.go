package snapshot

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// NumTypes is the number of SWIFT particle types.
const NumTypes = 7

// ParticleNames are the names of the soft links to each particle type
// group.
var ParticleNames = [NumTypes]string{
	"GasParticles",
	"DMParticles",
	"DMBackgroundParticles",
	"SinkParticles",
	"StarsParticles",
	"BHParticles",
	"NeutrinoParticles",
}

const (
	HeaderGroup = "/Header"
	CellsGroup  = "/Cells"
)

// TypeGroup returns the group name of particle type i, e.g. "PartType0".
func TypeGroup(i int) string { return fmt.Sprintf("PartType%d", i) }

// TypeIndex is the inverse of TypeGroup.
func TypeIndex(group string) (int, error) {
	var i int
	_, err := fmt.Sscanf(strings.TrimPrefix(group, "/"), "PartType%d", &i)
	if err != nil || i < 0 || i >= NumTypes {
		return -1, errors.Errorf("'%s' is not a particle type group", group)
	}
	return i, nil
}

// IsParticleGroup returns true for the top-level particle groups and their
// soft links.
func IsParticleGroup(name string) bool {
	name = strings.TrimPrefix(name, "/")
	return strings.HasPrefix(name, "PartType") ||
		strings.HasSuffix(name, "Particles")
}

// LinkParticleGroups creates the named soft link of every particle type
// group present in f.
func LinkParticleGroups(f File) error {
	for i, name := range ParticleNames {
		group := "/" + TypeGroup(i)
		if !f.Exists(group) || f.Exists("/"+name) { continue }
		if err := f.Link(group, "/"+name); err != nil {
			return errors.Wrapf(err, "I couldn't link %s to %s", name, group)
		}
	}
	return nil
}

// CopyOtherGroups copies every top-level object of src which isn't a
// particle group (or link) and isn't listed in skip.
func CopyOtherGroups(src, dst File, skip ...string) error {
	names, err := src.Children("/")
	if err != nil { return err }

NameLoop:
	for _, name := range names {
		if IsParticleGroup(name) { continue }
		for _, s := range skip {
			if strings.TrimPrefix(s, "/") == name { continue NameLoop }
		}
		if err := dst.CopyTree(src, "/"+name, "/"+name); err != nil {
			return errors.Wrapf(err, "I couldn't copy /%s from %s",
				name, src.Name())
		}
	}
	return nil
}
