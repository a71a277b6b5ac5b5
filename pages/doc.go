// Package pages flattens the PDF page tree into an ordered list of pages.
//
// # Page Tree
//
// PDF documents organize pages in a tree of /Pages nodes with /Page leaves.
// [PageTree] walks it depth first, in /Kids order, and rejects a node that is
// its own ancestor:
//
//	tree := pages.NewPageTree(pagesDict, doc)
//	count, _ := tree.Count()
//	page, _ := tree.GetPage(0)  // 0-indexed
//
// # Inheritance
//
// Resources, MediaBox, CropBox and Rotate may be set on any ancestor node.
// [Page] looks them up on the leaf first and then on each enclosing node,
// nearest first.
//
// # Object Resolution
//
// The [ObjectResolver] interface abstracts reference lookup so the page tree
// does not depend on the document type.
package pages
