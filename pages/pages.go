package pages

import (
	"fmt"

	"github.com/tsawler/pdfgraph/core"
)

// ObjectResolver resolves an object that may be an indirect reference.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// inheritable lists the page attributes a leaf may take from its ancestors.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// PageTree represents the PDF page tree
type PageTree struct {
	root     *core.Dict
	resolver ObjectResolver
	pages    []*Page // Cached flattened page list
}

// NewPageTree creates a new page tree from the root pages dictionary
func NewPageTree(root *core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{
		root:     root,
		resolver: resolver,
	}
}

// Count returns the /Count of the root node.
func (t *PageTree) Count() (int, error) {
	countObj, err := t.resolver.Resolve(t.root.Get("Count"))
	if err != nil {
		return 0, fmt.Errorf("failed to resolve /Count: %w", err)
	}
	if countObj == nil {
		return 0, fmt.Errorf("page tree missing /Count entry")
	}

	count, ok := countObj.(core.Int)
	if !ok {
		return 0, fmt.Errorf("invalid /Count type: %s", countObj.Type())
	}

	return int(count.Value), nil
}

// GetPage returns the page at the given index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	pages, err := t.Pages()
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(pages))
	}

	return pages[index], nil
}

// Pages returns all leaves in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages == nil {
		if err := t.loadPages(); err != nil {
			return nil, err
		}
	}

	return t.pages, nil
}

// loadPages traverses the page tree and builds the flattened page list
func (t *PageTree) loadPages() error {
	pages := make([]*Page, 0)
	onPath := make(map[*core.Dict]bool)

	if err := t.traversePageNode(t.root, nil, onPath, &pages); err != nil {
		return fmt.Errorf("failed to traverse page tree: %w", err)
	}

	t.pages = pages
	return nil
}

// traversePageNode walks one node. ancestors holds the Pages nodes above it,
// nearest last, for inheritable attributes.
func (t *PageTree) traversePageNode(node *core.Dict, ancestors []*core.Dict, onPath map[*core.Dict]bool, out *[]*Page) error {
	if onPath[node] {
		return fmt.Errorf("page tree node at offset %d is its own ancestor", node.Pos())
	}

	typeName, ok := node.GetName("Type")
	if !ok {
		// /Type is required but often missing from leaves; a node with
		// /Kids is treated as an intermediate node.
		if node.Has("Kids") {
			typeName = "Pages"
		} else {
			typeName = "Page"
		}
	}

	switch typeName {
	case "Pages":
		kidsResolved, err := t.resolver.Resolve(node.Get("Kids"))
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}
		kids, ok := kidsResolved.(*core.Array)
		if !ok {
			return fmt.Errorf("Pages node at offset %d missing /Kids array", node.Pos())
		}

		onPath[node] = true
		defer delete(onPath, node)
		path := append(ancestors[:len(ancestors):len(ancestors)], node)

		for i, kidObj := range kids.Items {
			kidResolved, err := t.resolver.Resolve(kidObj)
			if err != nil {
				return fmt.Errorf("failed to resolve kid %d: %w", i, err)
			}

			kidDict, ok := kidResolved.(*core.Dict)
			if !ok {
				return fmt.Errorf("invalid kid %d: %v", i, kidResolved)
			}

			if err := t.traversePageNode(kidDict, path, onPath, out); err != nil {
				return err
			}
		}

	case "Page":
		*out = append(*out, NewPage(node, ancestors, t.resolver))

	default:
		return fmt.Errorf("unexpected page node type: %s", typeName)
	}

	return nil
}

// Page represents a single PDF page
type Page struct {
	dict      *core.Dict
	ancestors []*core.Dict // enclosing Pages nodes, nearest last
	resolver  ObjectResolver
}

// NewPage creates a page from its dictionary and the Pages nodes above it,
// nearest last.
func NewPage(dict *core.Dict, ancestors []*core.Dict, resolver ObjectResolver) *Page {
	return &Page{
		dict:      dict,
		ancestors: ancestors,
		resolver:  resolver,
	}
}

// Dict returns the raw page dictionary.
func (p *Page) Dict() *core.Dict {
	return p.dict
}

// Type returns the page type (should be "Page")
func (p *Page) Type() string {
	name, _ := p.dict.GetName("Type")
	return name
}

// Inherited returns key from the page or, failing that, from the nearest
// ancestor that defines it. The value is not resolved.
func (p *Page) Inherited(key string) core.Object {
	if v := p.dict.Get(key); v != nil {
		return v
	}
	for i := len(p.ancestors) - 1; i >= 0; i-- {
		if v := p.ancestors[i].Get(key); v != nil {
			return v
		}
	}
	return nil
}

// InheritedKeys lists the inheritable attributes present on the page or an
// ancestor.
func (p *Page) InheritedKeys() []string {
	var keys []string
	for _, key := range inheritable {
		if p.Inherited(key) != nil {
			keys = append(keys, key)
		}
	}
	return keys
}

// MediaBox returns the page media box [x1 y1 x2 y2]
// This is inheritable, so checks parent if not present
func (p *Page) MediaBox() ([]float64, error) {
	return p.getBox("MediaBox")
}

// CropBox returns the page crop box [x1 y1 x2 y2]
// This is inheritable, defaults to MediaBox if not present
func (p *Page) CropBox() ([]float64, error) {
	box, err := p.getBox("CropBox")
	if err != nil {
		return p.MediaBox()
	}
	return box, nil
}

// getBox retrieves a box attribute (inheritable)
func (p *Page) getBox(name string) ([]float64, error) {
	boxObj := p.Inherited(name)
	if boxObj == nil {
		return nil, fmt.Errorf("%s not found", name)
	}

	boxResolved, err := p.resolver.Resolve(boxObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}

	boxArr, ok := boxResolved.(*core.Array)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %v", name, boxResolved)
	}

	if boxArr.Len() != 4 {
		return nil, fmt.Errorf("invalid %s length: %d (expected 4)", name, boxArr.Len())
	}

	box := make([]float64, 4)
	for i, elem := range boxArr.Items {
		elem, err := p.resolver.Resolve(elem)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s[%d]: %w", name, i, err)
		}
		switch v := elem.(type) {
		case core.Int:
			box[i] = float64(v.Value)
		case core.Real:
			box[i] = v.Value
		default:
			return nil, fmt.Errorf("invalid %s element: %v", name, elem)
		}
	}

	return box, nil
}

// Resources returns the page resources dictionary
// This is inheritable
func (p *Page) Resources() (*core.Dict, error) {
	resourcesObj := p.Inherited("Resources")
	if resourcesObj == nil {
		return nil, fmt.Errorf("resources not found")
	}

	resourcesResolved, err := p.resolver.Resolve(resourcesObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Resources: %w", err)
	}

	resourcesDict, ok := resourcesResolved.(*core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid Resources: %v", resourcesResolved)
	}

	return resourcesDict, nil
}

// Contents returns the page content stream(s)
func (p *Page) Contents() ([]*core.Stream, error) {
	contentsObj := p.dict.Get("Contents")
	if contentsObj == nil {
		return nil, nil // Contents is optional
	}

	contentsResolved, err := p.resolver.Resolve(contentsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Contents: %w", err)
	}

	// Contents can be a single stream or array of streams
	switch v := contentsResolved.(type) {
	case nil:
		return nil, nil
	case *core.Stream:
		return []*core.Stream{v}, nil
	case *core.Array:
		streams := make([]*core.Stream, 0, v.Len())
		for i, elem := range v.Items {
			resolved, err := p.resolver.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve contents[%d]: %w", i, err)
			}
			stream, ok := resolved.(*core.Stream)
			if !ok {
				return nil, fmt.Errorf("contents[%d] is not a stream: %v", i, resolved)
			}
			streams = append(streams, stream)
		}
		return streams, nil
	default:
		return nil, fmt.Errorf("invalid Contents: %v", contentsResolved)
	}
}

// ContentData returns the decoded content streams joined in order.
func (p *Page) ContentData() ([]byte, error) {
	streams, err := p.Contents()
	if err != nil {
		return nil, err
	}
	var data []byte
	for i, s := range streams {
		decoded, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to decode contents[%d]: %w", i, err)
		}
		if i > 0 {
			data = append(data, '\n')
		}
		data = append(data, decoded...)
	}
	return data, nil
}

// Rotate returns the page rotation normalised to 0, 90, 180 or 270.
// This is inheritable
func (p *Page) Rotate() int {
	rotateObj, err := p.resolver.Resolve(p.Inherited("Rotate"))
	if err != nil {
		return 0
	}

	rotate, ok := rotateObj.(core.Int)
	if !ok {
		return 0
	}
	r := int(rotate.Value) % 360
	if r < 0 {
		r += 360
	}
	return r - r%90
}

// Width returns the page width (from MediaBox)
func (p *Page) Width() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[2] - box[0], nil
}

// Height returns the page height (from MediaBox)
func (p *Page) Height() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[3] - box[1], nil
}
