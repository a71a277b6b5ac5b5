// Package pdftest builds small PDF files with correct byte offsets for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"sort"
)

// Entry is one cross-reference line written by Builder.XRef.
type Entry struct {
	ID     int
	Gen    int
	Offset int64
	Free   bool
}

// Builder accumulates a PDF file. Objects remember their latest offset so
// cross-reference sections can be written without counting bytes by hand.
type Builder struct {
	buf     bytes.Buffer
	entries map[int]Entry
}

// New starts a file with a %PDF-<version> header.
func New(version string) *Builder {
	b := &Builder{entries: make(map[int]Entry)}
	fmt.Fprintf(&b.buf, "%%PDF-%s\n", version)
	return b
}

// Raw appends s verbatim and returns its offset.
func (b *Builder) Raw(s string) int64 {
	off := int64(b.buf.Len())
	b.buf.WriteString(s)
	return off
}

// Object appends "id gen obj body endobj" and returns its offset.
func (b *Builder) Object(id, gen int, body string) int64 {
	off := int64(b.buf.Len())
	fmt.Fprintf(&b.buf, "%d %d obj\n%s\nendobj\n", id, gen, body)
	b.entries[id] = Entry{ID: id, Gen: gen, Offset: off}
	return off
}

// Stream appends a stream object. dict is the dictionary body without the
// angle brackets; /Length is not added automatically.
func (b *Builder) Stream(id, gen int, dict string, data []byte) int64 {
	off := int64(b.buf.Len())
	fmt.Fprintf(&b.buf, "%d %d obj\n<< %s >>\nstream\n", id, gen, dict)
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
	b.entries[id] = Entry{ID: id, Gen: gen, Offset: off}
	return off
}

// Entry returns the in-use entry for the latest definition of id.
func (b *Builder) Entry(id int) Entry {
	return b.entries[id]
}

// Entries returns in-use entries for every object written so far.
func (b *Builder) Entries() []Entry {
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// XRef appends a classic cross-reference section, one subsection per entry,
// followed by "trailer" and the given dictionary literal. It returns the
// section's offset.
func (b *Builder) XRef(trailer string, entries ...Entry) int64 {
	off := int64(b.buf.Len())
	b.buf.WriteString("xref\n")
	for _, e := range entries {
		kind := 'n'
		if e.Free {
			kind = 'f'
		}
		fmt.Fprintf(&b.buf, "%d 1\n%010d %05d %c \n", e.ID, e.Offset, e.Gen, kind)
	}
	fmt.Fprintf(&b.buf, "trailer\n%s\n", trailer)
	return off
}

// StartXRef appends the startxref footer pointing at offset.
func (b *Builder) StartXRef(offset int64) {
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF\n", offset)
}

// Finish writes a single section for every object plus the footer, using
// trailer as the trailer dictionary, and returns the file.
func (b *Builder) Finish(trailer string) []byte {
	b.StartXRef(b.XRef(trailer, b.Entries()...))
	return b.Bytes()
}

// Bytes returns the file built so far.
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}
