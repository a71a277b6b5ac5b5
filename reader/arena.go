package reader

import (
	"github.com/tsawler/pdfgraph/core"
)

// handle indexes a node in an arena. Handle 0 is the document itself.
type handle int

const rootHandle handle = 0

// Child slots that are not dictionary keys or array indexes.
const (
	slotKey        = -1
	slotStreamDict = -2
	slotTarget     = -3
)

type node struct {
	parent handle
	raw    core.Object
}

// childKey identifies a wrapped child by its parent and position so repeated
// lookups reuse one node.
type childKey struct {
	parent   handle
	key      string
	index    int
	resolved bool
}

// arena owns the wrapper tree of one document. Nodes only point upward, by
// handle, and are never removed.
type arena struct {
	doc      *Document
	nodes    []node
	tops     map[core.RefKey]handle
	children map[childKey]handle
}

func newArena(doc *Document) *arena {
	return &arena{
		doc:      doc,
		nodes:    []node{{parent: -1}},
		tops:     make(map[core.RefKey]handle),
		children: make(map[childKey]handle),
	}
}

func (a *arena) add(parent handle, raw core.Object) handle {
	a.nodes = append(a.nodes, node{parent: parent, raw: raw})
	return handle(len(a.nodes) - 1)
}

// wrap adds raw as a new child of parent.
func (a *arena) wrap(parent handle, raw core.Object) (Object, error) {
	if raw == nil {
		return nil, nil
	}
	return newObject(raw, nodeRef{arena: a, h: a.add(parent, raw)})
}

// top wraps indirect object key directly under the document.
func (a *arena) top(key core.RefKey, raw core.Object) (Object, error) {
	h, ok := a.tops[key]
	if !ok {
		h = a.add(rootHandle, raw)
		a.tops[key] = h
	}
	return newObject(raw, nodeRef{arena: a, h: h})
}

func (a *arena) child(ck childKey, raw core.Object) (Object, error) {
	if raw == nil {
		return nil, nil
	}
	h, ok := a.children[ck]
	if !ok {
		h = a.add(ck.parent, raw)
		a.children[ck] = h
	} else {
		a.nodes[h].raw = raw
	}
	return newObject(raw, nodeRef{arena: a, h: h})
}

// object rebuilds the wrapper of an existing node.
func (a *arena) object(h handle) Object {
	obj, _ := newObject(a.nodes[h].raw, nodeRef{arena: a, h: h})
	return obj
}

// parentOf returns the parent handle, or -1 for the document and for handles
// outside the arena.
func (a *arena) parentOf(h handle) handle {
	if h <= rootHandle || int(h) >= len(a.nodes) {
		return -1
	}
	return a.nodes[h].parent
}

// FindAncestor returns the nearest ancestor of obj with wrapper type T. The
// walk visits each node at most once.
func FindAncestor[T Object](obj Object) (T, bool) {
	var zero T
	if obj == nil {
		return zero, false
	}
	ref := obj.node()
	if ref.arena == nil {
		return zero, false
	}
	a := ref.arena
	h := a.parentOf(ref.h)
	for steps := 0; h > rootHandle && steps < len(a.nodes); steps++ {
		if found, ok := a.object(h).(T); ok {
			return found, true
		}
		h = a.parentOf(h)
	}
	return zero, false
}
