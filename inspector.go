package pdfgraph

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tsawler/pdfgraph/core"
	"github.com/tsawler/pdfgraph/reader"
)

// Inspector provides a fluent interface for reading PDF object graphs.
// Each configuration method returns a new Inspector instance, so a base
// Inspector can be shared and specialised.
type Inspector struct {
	// Source
	filename string

	// Lifecycle
	doc       *reader.Document
	ownsDoc   bool // true if we opened the document and should close it
	docOpened bool

	options InspectOptions

	// Accumulated error (fail-fast)
	err error
}

// Metadata summarises a document: header version, page count, security and
// the /Info entries.
type Metadata struct {
	Version      string
	PageCount    int
	Encrypted    bool
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate time.Time
	ModDate      time.Time
	Trapped      string
}

// clone creates a shallow copy of the Inspector with a copy of options.
func (i *Inspector) clone() *Inspector {
	return &Inspector{
		filename:  i.filename,
		doc:       i.doc,
		ownsDoc:   i.ownsDoc,
		docOpened: i.docOpened || i.doc != nil,
		options:   i.options.clone(),
		err:       i.err,
	}
}

// ensureDocument opens the document if not already open.
func (i *Inspector) ensureDocument() error {
	if i.docOpened || i.doc != nil {
		return nil
	}
	if i.filename == "" {
		return fmt.Errorf("no filename specified")
	}

	doc, err := reader.Open(i.filename, i.options.eager, i.options.readerOptions()...)
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	i.doc = doc
	i.ownsDoc = true
	i.docOpened = true
	return nil
}

// Close releases resources associated with the Inspector.
// It is safe to call Close multiple times.
func (i *Inspector) Close() error {
	if i.ownsDoc && i.doc != nil {
		err := i.doc.Close()
		i.doc = nil
		i.ownsDoc = false
		i.docOpened = false
		return err
	}
	return nil
}

// ============================================================================
// Configuration Methods (return new Inspector instance)
// ============================================================================

// Password sets the user or owner password for an encrypted file.
//
// Example:
//
//	count, err := pdfgraph.Open("secret.pdf").Password("letmein").PageCount()
func (i *Inspector) Password(password string) *Inspector {
	n := i.clone()
	n.options.password = password
	return n
}

// Eager resolves every object while opening and releases the file before
// the first terminal operation returns.
func (i *Inspector) Eager() *Inspector {
	n := i.clone()
	n.options.eager = true
	return n
}

// Logger sets the logger handed to the reader.
func (i *Inspector) Logger(logger *slog.Logger) *Inspector {
	n := i.clone()
	n.options.logger = logger
	return n
}

// MaxDepth bounds recursion for deep resolution.
func (i *Inspector) MaxDepth(depth int) *Inspector {
	n := i.clone()
	if depth <= 0 {
		n.err = fmt.Errorf("invalid max depth %d", depth)
		return n
	}
	n.options.maxDepth = depth
	return n
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Document opens and returns the underlying document. The caller owns the
// result and must close it.
func (i *Inspector) Document() (*reader.Document, error) {
	if i.err != nil {
		return nil, i.err
	}
	if err := i.ensureDocument(); err != nil {
		return nil, err
	}
	i.ownsDoc = false
	return i.doc, nil
}

// PageCount returns the number of pages.
// Note: This does NOT close the document, allowing further operations.
func (i *Inspector) PageCount() (int, error) {
	if i.err != nil {
		return 0, i.err
	}
	if err := i.ensureDocument(); err != nil {
		return 0, err
	}
	return i.doc.PageCount()
}

// Metadata collects the document summary. A malformed /CreationDate or
// /ModDate fails with a *core.FormatError.
// This is a terminal operation that closes the underlying document.
//
// Example:
//
//	meta, err := pdfgraph.Open("document.pdf").Metadata()
//	fmt.Println(meta.Title, meta.PageCount)
func (i *Inspector) Metadata() (*Metadata, error) {
	if i.err != nil {
		return nil, i.err
	}
	if err := i.ensureDocument(); err != nil {
		return nil, err
	}
	defer i.Close()

	count, err := i.doc.PageCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}
	meta := &Metadata{
		Version:   i.doc.Version().String(),
		PageCount: count,
		Encrypted: i.doc.DecryptHandler().IsEncrypted(),
		Trapped:   "Unknown",
	}

	info, err := i.doc.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to read info: %w", err)
	}
	if info == nil {
		return meta, nil
	}
	meta.Title = info.Title()
	meta.Author = info.Author()
	meta.Subject = info.Subject()
	meta.Keywords = info.Keywords()
	meta.Creator = info.Creator()
	meta.Producer = info.Producer()
	meta.Trapped = info.Trapped()
	created, err := info.CreationDate()
	if err != nil {
		return nil, fmt.Errorf("failed to parse /CreationDate: %w", err)
	}
	if created != nil {
		meta.CreationDate = created.Time
	}
	modified, err := info.ModDate()
	if err != nil {
		return nil, fmt.Errorf("failed to parse /ModDate: %w", err)
	}
	if modified != nil {
		meta.ModDate = modified.Time
	}
	return meta, nil
}

// Object returns object (id, gen) with every nested reference replaced by
// its target, or nil when the pair is not registered. A reference cycle, such
// as a page's /Parent, is an error.
// This is a terminal operation that closes the underlying document.
func (i *Inspector) Object(id, gen int) (core.Object, error) {
	if i.err != nil {
		return nil, i.err
	}
	if err := i.ensureDocument(); err != nil {
		return nil, err
	}
	defer i.Close()

	obj, err := i.doc.ResolveRaw(id, gen)
	if err != nil || obj == nil {
		return nil, err
	}
	return i.doc.ResolveDeep(core.IndirectRef{ID: id, Gen: gen})
}
