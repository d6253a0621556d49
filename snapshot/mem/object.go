package mem

import (
	"sort"

	"github.com/swift-toolbox/snaptools/snapshot"
)

type objKind int

const (
	groupObj objKind = iota
	datasetObj
	virtualObj
	linkObj
)

type object struct {
	kind     objKind
	attrs    map[string]snapshot.Array
	children map[string]*object
	layout   snapshot.Layout
	data     snapshot.Array
	sources  []snapshot.Source
	target   string
}

func newGroup() *object {
	return &object{
		kind:     groupObj,
		attrs:    map[string]snapshot.Array{},
		children: map[string]*object{},
	}
}

func (o *object) names() []string {
	out := make([]string, 0, len(o.children))
	for name := range o.children { out = append(out, name) }
	sort.Strings(out)
	return out
}

// clone returns a deep copy of o.
func (o *object) clone() *object {
	out := &object{kind: o.kind, target: o.target}
	out.attrs = make(map[string]snapshot.Array, len(o.attrs))
	for name, a := range o.attrs { out.attrs[name] = a.Copy() }
	if o.children != nil {
		out.children = make(map[string]*object, len(o.children))
		for name, child := range o.children { out.children[name] = child.clone() }
	}

	out.layout = cloneLayout(o.layout)
	if o.data.Data != nil { out.data = o.data.Copy() }
	out.sources = append([]snapshot.Source(nil), o.sources...)
	return out
}

func cloneLayout(l snapshot.Layout) snapshot.Layout {
	out := l
	out.Shape = append([]int(nil), l.Shape...)
	out.Chunk = append([]int(nil), l.Chunk...)
	out.Filters = append([]string(nil), l.Filters...)
	return out
}

func (o *object) nodeKind() snapshot.Kind {
	switch o.kind {
	case datasetObj: return snapshot.Dataset
	case virtualObj: return snapshot.VirtualDataset
	}
	return snapshot.Group
}
