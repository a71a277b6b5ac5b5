// Package core implements the byte-level layers of the PDF reader: lexing,
// parsing, cross-reference reconstruction and the lazy object registry.
//
// # Parse Nodes
//
// Every parsed value satisfies [Object] and remembers the offset of its first
// token:
//
//   - [Identifier] - a bare keyword used as a value, normally null
//   - [Bool], [Int], [Real]
//   - [String] - literal or hexadecimal, bytes already unescaped
//   - [Name] - with #xx escapes decoded
//   - [Array] and [Dict] - a Dict keeps its keys in insertion order
//   - [IndirectRef] - an "id gen R" reference
//   - [Stream] - a dictionary plus the raw bytes between stream and endstream
//   - [IndirectObject] - the on-disk "id gen obj ... endobj" unit
//
// # Parsing
//
// [Lexer] turns bytes into tokens, skipping whitespace and comments. [Parser]
// consumes tokens from a seekable source and exposes the file-level grammar:
// the header, the startxref footer, classic cross-reference sections,
// trailers and indirect objects. A stream whose /Length is an indirect
// reference is resolved through the [ReferenceResolver] given to the parser.
//
// # Cross-Reference Chain
//
// [LoadXRefChain] walks every section from the newest back through /Prev and
// registers in-use entries in a [Registry]. The first entry seen for an
// object id wins, which makes the newest revision authoritative. Only classic
// table sections are understood; a cross-reference stream is a [FormatError].
//
// # Registry
//
// [Registry] resolves an (id, generation) pair at most once: it parses the
// object at the registered offset, passes strings and stream data through the
// document's [Decrypter] and caches the result for the life of the document.
//
// # Errors
//
// Malformed tokens yield [LexError]. Grammar violations yield [FormatError],
// which carries the offset and what was expected and found.
package core
