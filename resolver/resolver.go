package resolver

import (
	"fmt"

	"github.com/tsawler/pdfgraph/core"
)

// ObjectResolver resolves indirect references in PDF objects
// It can recursively resolve references in dictionaries and arrays
type ObjectResolver struct {
	reader       ObjectReader
	visited      map[core.RefKey]bool // Cycle detection
	maxDepth     int                  // Maximum recursion depth
	currentDepth int                  // Current recursion depth
}

// ObjectReader is anything that can materialize an indirect reference. A
// reference the reader does not know yields nil and no error.
type ObjectReader interface {
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// Option configures the resolver
type Option func(*ObjectResolver)

// WithMaxDepth sets the maximum recursion depth (default: 100)
func WithMaxDepth(depth int) Option {
	return func(r *ObjectResolver) {
		r.maxDepth = depth
	}
}

// NewResolver creates a new object resolver
func NewResolver(reader ObjectReader, opts ...Option) *ObjectResolver {
	r := &ObjectResolver{
		reader:   reader,
		visited:  make(map[core.RefKey]bool),
		maxDepth: 100,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve follows obj if it is an indirect reference, otherwise returns it
// as-is. An unknown reference resolves to nil.
func (r *ObjectResolver) Resolve(obj core.Object) (core.Object, error) {
	return r.resolve(obj, false)
}

// ResolveDeep returns a copy of obj with every reference inside dictionaries,
// arrays and stream dictionaries replaced by its target. Unknown references
// become null. The cached originals are never modified.
func (r *ObjectResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	return r.resolve(obj, true)
}

func (r *ObjectResolver) resolve(obj core.Object, deep bool) (core.Object, error) {
	// A fresh walk starts with an empty visited set so that separate calls
	// may reach the same objects.
	if r.currentDepth == 0 {
		r.visited = make(map[core.RefKey]bool)
	}

	if r.currentDepth >= r.maxDepth {
		return nil, fmt.Errorf("maximum recursion depth (%d) exceeded", r.maxDepth)
	}

	switch v := obj.(type) {
	case core.IndirectRef:
		key := v.Key()
		if r.visited[key] {
			return nil, fmt.Errorf("circular reference detected for object %s", key)
		}

		r.visited[key] = true
		// Unmark afterwards so sibling branches may share a target.
		defer delete(r.visited, key)

		resolved, err := r.reader.ResolveReference(v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve reference %s: %w", v, err)
		}
		if resolved == nil {
			if deep {
				return core.Identifier{Value: "null", Position: v.Position}, nil
			}
			return nil, nil
		}

		if deep {
			r.currentDepth++
			resolved, err = r.resolve(resolved, deep)
			r.currentDepth--
			if err != nil {
				return nil, err
			}
		}

		return resolved, nil

	case *core.Dict:
		if !deep {
			return v, nil
		}
		return r.resolveDict(v)

	case *core.Array:
		if !deep {
			return v, nil
		}

		resolved := &core.Array{Position: v.Position, Items: make([]core.Object, len(v.Items))}
		for i, elem := range v.Items {
			r.currentDepth++
			resolvedElem, err := r.resolve(elem, deep)
			r.currentDepth--
			if err != nil {
				return nil, fmt.Errorf("failed to resolve array element %d: %w", i, err)
			}
			resolved.Items[i] = resolvedElem
		}
		return resolved, nil

	case *core.Stream:
		if !deep {
			return v, nil
		}

		dict, err := r.resolveDict(v.Dict)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve stream dict: %w", err)
		}

		return &core.Stream{
			Position:   v.Position,
			Dict:       dict,
			Data:       v.Data,
			DataOffset: v.DataOffset,
		}, nil

	default:
		return obj, nil
	}
}

func (r *ObjectResolver) resolveDict(d *core.Dict) (*core.Dict, error) {
	resolved := core.NewDict()
	resolved.Position = d.Position
	for _, key := range d.Keys() {
		r.currentDepth++
		value, err := r.resolve(d.Get(key), true)
		r.currentDepth--
		if err != nil {
			return nil, fmt.Errorf("failed to resolve dict key %s: %w", key, err)
		}
		resolved.Set(key, value)
	}
	return resolved, nil
}

// Reset clears the visited map and depth counter
// Call this between independent resolution operations
func (r *ObjectResolver) Reset() {
	r.visited = make(map[core.RefKey]bool)
	r.currentDepth = 0
}

// ResolveDict resolves a dictionary and all its values.
func (r *ObjectResolver) ResolveDict(dict *core.Dict) (*core.Dict, error) {
	defer r.Reset()
	return r.resolveDict(dict)
}

// ResolveArray resolves all elements in the array.
func (r *ObjectResolver) ResolveArray(arr *core.Array) (*core.Array, error) {
	defer r.Reset()
	resolved, err := r.ResolveDeep(arr)
	if err != nil {
		return nil, err
	}
	return resolved.(*core.Array), nil
}

// ResolveReference resolves a single indirect reference without recursing.
func (r *ObjectResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	defer r.Reset()
	return r.reader.ResolveReference(ref)
}

// ResolveReferenceDeep resolves a reference and all nested references
func (r *ObjectResolver) ResolveReferenceDeep(ref core.IndirectRef) (core.Object, error) {
	defer r.Reset()
	return r.ResolveDeep(ref)
}
