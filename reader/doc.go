// Package reader opens PDF documents and exposes their objects as typed
// wrappers.
//
// # Opening Documents
//
// Use [Open] for a file on disk, or [New] and [Document.Load] for any
// io.ReadSeeker:
//
//	doc, err := reader.Open("document.pdf", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer doc.Close()
//
// Objects are parsed on first use and cached. Passing eager as true resolves
// every object up front and releases the file immediately; such a document
// remains fully usable after Close.
//
// Encrypted documents are decrypted transparently. Use [WithPassword] when
// the empty user password does not open the file.
//
// # Document Structure
//
//   - Version() - header version (e.g., 1.7)
//   - Catalog() - the /Root dictionary as a [Catalog]
//   - Info() - the /Info dictionary as an [Info], or nil
//   - Pages() and PageCount() - the flattened page tree
//   - Trailer() and XRef() - the newest trailer and the cross-reference chain
//
// # Typed Objects
//
// [Document.ResolveReference] returns an [Object]: one of [String], [Name],
// [Integer], [Real], [Boolean], [Identifier], [Dictionary], [Array],
// [Stream] or [ObjectReference]. Wrappers live in a tree owned by the
// document; Parent, Document, DecryptHandler and [FindAncestor] walk it
// upward. [Wrap] builds wrappers for nodes that did not come from a
// document.
//
// # Raw Objects
//
// ResolveRaw, Resolve and ResolveDeep work on core parse nodes directly.
package reader
