package snapshot

import (
	"fmt"
	"path"
	"strings"
)

// Kind classifies the objects of a snapshot file.
type Kind int

const (
	Group Kind = iota
	Dataset
	VirtualDataset
)

func (k Kind) String() string {
	switch k {
	case Group: return "group"
	case Dataset: return "dataset"
	case VirtualDataset: return "virtual dataset"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one object visited by File.Walk. Path is absolute ("/PartType0").
type Node struct {
	Kind Kind
	Path string
}

// Clean normalizes an object path to the absolute form used by Node.
func Clean(p string) string {
	return path.Clean("/" + strings.TrimPrefix(p, "/"))
}

// Join joins path elements into an absolute object path.
func Join(elem ...string) string {
	return Clean(path.Join(elem...))
}

// Split splits an object path into its parent group and base name.
func Split(p string) (parent, name string) {
	p = Clean(p)
	return path.Dir(p), path.Base(p)
}

// TempName converts an object path into a string usable in a file name:
// "/PartType0/Coordinates" becomes "PartType0_Coordinates".
func TempName(p string) string {
	return strings.ReplaceAll(strings.TrimPrefix(Clean(p), "/"), "/", "_")
}
