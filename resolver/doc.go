// Package resolver follows indirect references through PDF object graphs.
//
// PDF documents use indirect references (e.g., "5 0 R") to refer to objects
// stored elsewhere in the file. An [ObjectResolver] resolves them through any
// [ObjectReader], such as a document's registry.
//
// # Basic Usage
//
//	r := resolver.NewResolver(doc)
//	obj, err := r.Resolve(ref)
//
// # Deep Resolution
//
// ResolveDeep returns a copy of a dictionary, array or stream with every
// nested reference replaced by its target. The originals, which may be shared
// through the registry cache, are left untouched. References the reader does
// not know become null.
//
// # Cycle Detection
//
// A reference reached again on its own resolution path is reported as an
// error. The maximum recursion depth is configurable:
//
//	r := resolver.NewResolver(doc, resolver.WithMaxDepth(50))
package resolver
