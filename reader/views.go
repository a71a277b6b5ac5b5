package reader

import (
	"github.com/tsawler/pdfgraph/core"
)

// Catalog is the document catalog, the dictionary named by the trailer's
// /Root.
type Catalog struct {
	*Dictionary
}

// Type returns the catalog type (should be "Catalog")
func (c *Catalog) Type() string {
	name, _ := c.Name("Type")
	return name
}

// PagesRef returns the /Pages reference as written.
func (c *Catalog) PagesRef() (core.IndirectRef, bool) {
	return c.raw.GetRef("Pages")
}

// Pages returns the root of the page tree.
func (c *Catalog) Pages() (*Dictionary, error) {
	if _, err := c.Mandatory("Pages"); err != nil {
		return nil, err
	}
	return c.Dictionary.Dictionary("Pages")
}

// Version returns the /Version override, or "" when absent.
func (c *Catalog) Version() string {
	name, _ := c.Name("Version")
	return name
}

// PageLayout returns /PageLayout, defaulting to SinglePage.
func (c *Catalog) PageLayout() string {
	if name, ok := c.Name("PageLayout"); ok {
		return name
	}
	return "SinglePage"
}

// PageMode returns /PageMode, defaulting to UseNone.
func (c *Catalog) PageMode() string {
	if name, ok := c.Name("PageMode"); ok {
		return name
	}
	return "UseNone"
}

// Metadata returns the XMP metadata stream, or nil when absent.
func (c *Catalog) Metadata() (*Stream, error) {
	return c.Stream("Metadata")
}

// Info is the document information dictionary.
type Info struct {
	*Dictionary
}

func (i *Info) text(key string) string {
	s, _ := i.Text(key)
	return s
}

func (i *Info) Title() string    { return i.text("Title") }
func (i *Info) Author() string   { return i.text("Author") }
func (i *Info) Subject() string  { return i.text("Subject") }
func (i *Info) Keywords() string { return i.text("Keywords") }
func (i *Info) Creator() string  { return i.text("Creator") }
func (i *Info) Producer() string { return i.text("Producer") }

// CreationDate parses /CreationDate. It returns nil when the entry is absent.
func (i *Info) CreationDate() (*Date, error) { return i.date("CreationDate") }

// ModDate parses /ModDate. It returns nil when the entry is absent.
func (i *Info) ModDate() (*Date, error) { return i.date("ModDate") }

func (i *Info) date(key string) (*Date, error) {
	s, err := i.StringEntry(key)
	if err != nil || s == nil {
		return nil, err
	}
	return NewDate(s)
}

// Trapped returns True, False or Unknown.
func (i *Info) Trapped() string {
	if name, ok := i.Name("Trapped"); ok {
		return name
	}
	if b, ok := i.Bool("Trapped"); ok {
		if b {
			return "True"
		}
		return "False"
	}
	return "Unknown"
}
