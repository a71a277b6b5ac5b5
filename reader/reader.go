package reader

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tsawler/pdfgraph/core"
	"github.com/tsawler/pdfgraph/pages"
	"github.com/tsawler/pdfgraph/resolver"
	"github.com/tsawler/pdfgraph/security"
)

type state int

const (
	stateClosed state = iota
	stateOpen
)

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the logger for load and close events. The default discards
// everything.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Document) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithPassword sets the user or owner password for encrypted documents.
func WithPassword(password string) Option {
	return func(d *Document) {
		d.password = password
	}
}

// WithMaxDepth bounds ResolveDeep recursion (default: 100).
func WithMaxDepth(depth int) Option {
	return func(d *Document) {
		d.maxDepth = depth
	}
}

// Document is a PDF file opened for reading. It moves from closed to open on
// Load and back on Close. Objects are parsed on first use and cached for the
// life of the document.
//
// A Document is not safe for concurrent use.
type Document struct {
	logger   *slog.Logger
	password string
	maxDepth int

	state  state
	eager  bool
	source string
	closer io.Closer

	parser   *core.Parser
	registry *core.Registry
	chain    *core.XRefChain
	version  core.Version
	handler  security.Handler
	arena    *arena
	pageTree *pages.PageTree
}

// Ensure Document implements pages.ObjectResolver
var _ pages.ObjectResolver = (*Document)(nil)

// New returns a closed document.
func New(opts ...Option) *Document {
	d := &Document{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxDepth: 100,
		handler:  security.None{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open opens the file at path and loads it.
func Open(path string, eager bool, opts ...Option) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	d := New(opts...)
	d.source = path
	if err := d.Load(file, eager); err != nil {
		return nil, err
	}
	return d, nil
}

// Load reads the header and cross-reference chain of rs and opens the
// document. The document takes ownership of rs: if rs implements io.Closer
// it is closed on Close, and on every failed Load, including
// *AlreadyOpenError.
//
// With eager set, every registered object is resolved immediately and the
// source is released; the document stays usable after Close. The first
// object that fails aborts the load.
func (d *Document) Load(rs io.ReadSeeker, eager bool) (err error) {
	opened := false
	defer func() {
		if err == nil || opened {
			return
		}
		if c, ok := rs.(io.Closer); ok {
			c.Close()
		}
	}()

	if d.state == stateOpen {
		return &AlreadyOpenError{Source: d.source}
	}

	registry := core.NewRegistry()
	parser := core.NewParser(rs, core.WithResolver(registry))
	registry.Attach(parser)

	version, err := parser.ParseHeader()
	if err != nil {
		return fmt.Errorf("failed to parse header: %w", err)
	}

	chain, err := core.LoadXRefChain(parser, registry)
	if err != nil {
		return fmt.Errorf("failed to load xref: %w", err)
	}
	d.logger.Debug("loaded cross-reference chain",
		"version", version.String(),
		"sections", len(chain.Sections),
		"objects", registry.Len())

	handler, err := d.securityHandler(registry, chain)
	if err != nil {
		return err
	}
	if handler.IsEncrypted() {
		registry.SetDecrypter(handler)
	}

	d.parser = parser
	d.registry = registry
	d.chain = chain
	d.version = version
	d.handler = handler
	d.arena = newArena(d)
	d.pageTree = nil
	d.eager = false
	d.closer, _ = rs.(io.Closer)
	d.state = stateOpen
	opened = true

	if eager {
		return d.loadAll()
	}
	return nil
}

// securityHandler builds the handler from the trailer's /Encrypt entry. The
// dictionary is resolved before any decrypter is installed so its strings
// stay raw.
func (d *Document) securityHandler(registry *core.Registry, chain *core.XRefChain) (security.Handler, error) {
	if chain.Encrypt == nil {
		return security.None{}, nil
	}

	obj := chain.Encrypt
	if ref, ok := obj.(core.IndirectRef); ok {
		resolved, err := registry.ResolveReference(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve /Encrypt: %w", err)
		}
		obj = resolved
	}
	dict, ok := obj.(*core.Dict)
	if !ok {
		return nil, &core.FormatError{Offset: chain.Encrypt.Pos(), Expected: "encryption dictionary", Found: fmt.Sprint(obj)}
	}

	handler, err := security.New(dict, chain.FileID, d.password)
	if err != nil {
		return nil, fmt.Errorf("failed to set up decryption: %w", err)
	}
	filter, _ := dict.GetName("Filter")
	d.logger.Info("document is encrypted", "filter", filter, "permissions", uint32(handler.Permissions()))
	return handler, nil
}

// loadAll resolves every registered object and releases the source.
func (d *Document) loadAll() error {
	refs := d.registry.Refs()
	for _, ref := range refs {
		if _, err := d.registry.Resolve(ref.ID, ref.Gen); err != nil {
			d.Close()
			return fmt.Errorf("eager load of object %s: %w", ref, err)
		}
	}
	d.eager = true
	d.logger.Debug("eager load complete", "objects", len(refs), "parses", d.registry.ParseCount())
	return d.release()
}

// release drops the parser and closes the source. Cached objects stay
// available.
func (d *Document) release() error {
	var err error
	if d.registry != nil {
		d.registry.Detach()
	}
	if d.parser != nil {
		d.parser.Close()
		d.parser = nil
	}
	if d.closer != nil {
		err = d.closer.Close()
		d.closer = nil
	}
	return err
}

// Close releases the source. It is safe to call more than once. Objects of
// an eagerly loaded document remain accessible.
func (d *Document) Close() error {
	if d.state == stateClosed {
		return nil
	}
	d.state = stateClosed
	d.logger.Debug("document closed", "eager", d.eager)
	return d.release()
}

// IsOpen reports whether the document is open.
func (d *Document) IsOpen() bool {
	return d.state == stateOpen
}

func (d *Document) usable() error {
	if d.state == stateOpen || d.eager {
		return nil
	}
	return ErrClosed
}

// Version returns the version from the file header.
func (d *Document) Version() core.Version {
	return d.version
}

// DecryptHandler returns the document's security handler. Unencrypted and
// unloaded documents return security.None.
func (d *Document) DecryptHandler() security.Handler {
	return d.handler
}

// Trailer returns the newest trailer dictionary.
func (d *Document) Trailer() *core.Dict {
	if d.chain == nil {
		return nil
	}
	return d.chain.Trailer
}

// XRef returns the cross-reference chain, newest section first.
func (d *Document) XRef() *core.XRefChain {
	return d.chain
}

// Refs lists every registered (id, generation) pair in ascending order.
func (d *Document) Refs() []core.RefKey {
	if d.registry == nil {
		return nil
	}
	return d.registry.Refs()
}

// ParseCount reports how many objects have been parsed from the source.
func (d *Document) ParseCount() int {
	if d.registry == nil {
		return 0
	}
	return d.registry.ParseCount()
}

// ResolveRaw returns the parse node of object (id, gen), or nil when the pair
// is not registered.
func (d *Document) ResolveRaw(id, gen int) (core.Object, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	obj, err := d.registry.Resolve(id, gen)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve object %d %d: %w", id, gen, err)
	}
	return obj, nil
}

// ResolveReference returns the wrapped object (id, gen), or nil when the pair
// is not registered.
func (d *Document) ResolveReference(id, gen int) (Object, error) {
	raw, err := d.ResolveRaw(id, gen)
	if err != nil || raw == nil {
		return nil, err
	}
	return d.arena.top(core.RefKey{ID: id, Gen: gen}, raw)
}

// Resolve follows obj if it is an indirect reference, otherwise returns it
// as-is. An unregistered reference resolves to nil.
func (d *Document) Resolve(obj core.Object) (core.Object, error) {
	ref, ok := obj.(core.IndirectRef)
	if !ok {
		return obj, nil
	}
	return d.ResolveRaw(ref.ID, ref.Gen)
}

// ResolveDeep returns a copy of obj with every nested reference replaced by
// its target.
func (d *Document) ResolveDeep(obj core.Object) (core.Object, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	return resolver.NewResolver(d.registry, resolver.WithMaxDepth(d.maxDepth)).ResolveDeep(obj)
}

// Catalog returns the document catalog named by the trailer's /Root.
func (d *Document) Catalog() (*Catalog, error) {
	var root core.Object
	if d.chain != nil {
		root = d.chain.Root
	}
	dict, err := d.trailerDict("Root", root)
	if err != nil {
		return nil, err
	}
	if dict == nil {
		return nil, &core.MissingMandatoryKeyError{Key: "Root", Offset: d.chain.Trailer.Pos()}
	}
	return &Catalog{Dictionary: dict}, nil
}

// Info returns the document information dictionary, or nil when the trailer
// has no /Info.
func (d *Document) Info() (*Info, error) {
	var info core.Object
	if d.chain != nil {
		info = d.chain.Info
	}
	dict, err := d.trailerDict("Info", info)
	if err != nil || dict == nil {
		return nil, err
	}
	return &Info{Dictionary: dict}, nil
}

// trailerDict resolves a trailer entry that must be a dictionary and wraps it
// under the document.
func (d *Document) trailerDict(key string, entry core.Object) (*Dictionary, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	var (
		obj Object
		err error
	)
	if ref, ok := entry.(core.IndirectRef); ok {
		obj, err = d.ResolveReference(ref.ID, ref.Gen)
	} else {
		obj, err = d.arena.wrap(rootHandle, entry)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /%s: %w", key, err)
	}
	if obj == nil {
		return nil, nil
	}

	dict, ok := obj.(*Dictionary)
	if !ok {
		return nil, &core.FormatError{Offset: entry.Pos(), Expected: "/" + key + " dictionary", Found: obj.Raw().Type().String()}
	}
	return dict, nil
}

// Pages returns the pages of the document in order.
func (d *Document) Pages() ([]*pages.Page, error) {
	tree, err := d.ensurePageTree()
	if err != nil {
		return nil, err
	}
	return tree.Pages()
}

// PageCount returns the /Count of the page tree root.
func (d *Document) PageCount() (int, error) {
	tree, err := d.ensurePageTree()
	if err != nil {
		return 0, err
	}
	return tree.Count()
}

// ensurePageTree loads the page tree if not already loaded
func (d *Document) ensurePageTree() (*pages.PageTree, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	if d.pageTree != nil {
		return d.pageTree, nil
	}

	catalog, err := d.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	root, err := catalog.Pages()
	if err != nil {
		return nil, err
	}

	d.pageTree = pages.NewPageTree(root.Dict(), d)
	return d.pageTree, nil
}
