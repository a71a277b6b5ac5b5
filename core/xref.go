package core

import (
	"fmt"
	"strconv"
)

// XRefEntry is one line of a classic cross-reference section.
type XRefEntry struct {
	Position   int64 // offset of the entry in the file
	ID         int
	Generation int
	Offset     int64 // object offset, or next free object number for free entries
	InUse      bool
}

// Key returns the registry key for the entry.
func (e XRefEntry) Key() RefKey {
	return RefKey{ID: e.ID, Gen: e.Generation}
}

// XRefSection is one parsed cross-reference section with its trailer.
type XRefSection struct {
	Offset  int64
	Entries []XRefEntry
	Trailer *Dict
}

// XRefChain is the result of walking every section reachable from startxref.
// Root, Info, Encrypt and FileID come from the newest trailer only.
type XRefChain struct {
	Sections []XRefSection // newest first
	Trailer  *Dict
	Root     Object
	Info     Object
	Encrypt  Object
	FileID   []byte
}

// LoadXRefChain walks the cross-reference chain from the offset named by
// startxref, following /Prev, and registers every in-use entry below its
// section's /Size. Sections are visited newest first and the registry keeps
// the first entry seen per object id, so the newest revision wins.
func LoadXRefChain(p *Parser, reg *Registry) (*XRefChain, error) {
	offset, err := p.ParseXRefOffset()
	if err != nil {
		return nil, err
	}

	chain := &XRefChain{}
	visited := make(map[int64]bool)
	for {
		if visited[offset] {
			return nil, formatErr(offset, "acyclic /Prev chain", "section visited twice")
		}
		visited[offset] = true

		section, err := parseSection(p, offset)
		if err != nil {
			return nil, err
		}
		size, ok := section.Trailer.GetInt("Size")
		if !ok {
			return nil, &FormatError{Offset: section.Trailer.Position, Expected: "/Size in trailer"}
		}
		for _, entry := range section.Entries {
			if entry.InUse && int64(entry.ID) < size {
				reg.Register(entry)
			}
		}

		if chain.Trailer == nil {
			captureTrailer(chain, section.Trailer)
		}
		chain.Sections = append(chain.Sections, section)

		prev := section.Trailer.Get("Prev")
		if prev == nil {
			return chain, nil
		}
		next, ok := prev.(Int)
		if !ok || next.Value < 0 {
			return nil, formatErr(prev.Pos(), "non-negative integer /Prev", prev.String())
		}
		offset = next.Value
	}
}

func parseSection(p *Parser, offset int64) (XRefSection, error) {
	entries, err := p.ParseXRef(offset)
	if err != nil {
		return XRefSection{}, fmt.Errorf("cross-reference section at %d: %w", offset, err)
	}
	trailer, err := p.ParseTrailer()
	if err != nil {
		return XRefSection{}, fmt.Errorf("trailer of section at %d: %w", offset, err)
	}
	return XRefSection{Offset: offset, Entries: entries, Trailer: trailer}, nil
}

func captureTrailer(chain *XRefChain, trailer *Dict) {
	chain.Trailer = trailer
	chain.Root = trailer.Get("Root")
	chain.Info = trailer.Get("Info")
	chain.Encrypt = trailer.Get("Encrypt")
	if ids, ok := trailer.GetArray("ID"); ok {
		if first, ok := ids.Get(0).(String); ok {
			chain.FileID = first.Value
		}
	}
}

// String summarizes the chain for logs.
func (c *XRefChain) String() string {
	return "xref chain of " + strconv.Itoa(len(c.Sections)) + " section(s)"
}
