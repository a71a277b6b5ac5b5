package core

import (
	"fmt"
	"sort"
)

// Decrypter decrypts the strings and stream data of one indirect object. It is
// keyed by the object's own id and generation.
type Decrypter interface {
	DecryptString(id, gen int, data []byte) ([]byte, error)
	DecryptStream(id, gen int, data []byte) ([]byte, error)
	EncryptMetadata() bool
}

// NamedFilterDecrypter is implemented by decrypters that can apply a crypt
// filter named by a stream's own /Crypt decode parameters.
type NamedFilterDecrypter interface {
	DecryptStreamWith(filter string, id, gen int, data []byte) ([]byte, error)
}

type slot struct {
	entry    XRefEntry
	obj      Object
	resolved bool
}

// Registry maps (id, generation) to a file offset and caches the object parsed
// there. An object is parsed and decrypted at most once per registry; the
// cached node is never evicted.
type Registry struct {
	slots      map[RefKey]*slot
	ids        map[int]bool
	parser     *Parser
	decrypter  Decrypter
	inProgress map[RefKey]bool
	parses     int
}

// NewRegistry returns an empty registry. Attach a parser before resolving.
func NewRegistry() *Registry {
	return &Registry{
		slots:      make(map[RefKey]*slot),
		ids:        make(map[int]bool),
		inProgress: make(map[RefKey]bool),
	}
}

// Attach sets the parser used to materialize objects.
func (r *Registry) Attach(p *Parser) {
	r.parser = p
}

// Detach drops the parser. Objects already cached stay resolvable.
func (r *Registry) Detach() {
	r.parser = nil
}

// SetDecrypter sets the handler applied to every object parsed from now on.
func (r *Registry) SetDecrypter(d Decrypter) {
	r.decrypter = d
}

// Register adds entry unless an entry with the same object id is already
// present. It reports whether the entry was added.
func (r *Registry) Register(entry XRefEntry) bool {
	if r.ids[entry.ID] {
		return false
	}
	r.ids[entry.ID] = true
	r.slots[entry.Key()] = &slot{entry: entry}
	return true
}

// Lookup returns the registered entry for (id, gen).
func (r *Registry) Lookup(id, gen int) (XRefEntry, bool) {
	s, ok := r.slots[RefKey{ID: id, Gen: gen}]
	if !ok {
		return XRefEntry{}, false
	}
	return s.entry, true
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	return len(r.slots)
}

// Refs returns every registered pair ordered by id.
func (r *Registry) Refs() []RefKey {
	keys := make([]RefKey, 0, len(r.slots))
	for k := range r.slots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ID != keys[j].ID {
			return keys[i].ID < keys[j].ID
		}
		return keys[i].Gen < keys[j].Gen
	})
	return keys
}

// Cached reports whether (id, gen) has been materialized.
func (r *Registry) Cached(id, gen int) bool {
	s, ok := r.slots[RefKey{ID: id, Gen: gen}]
	return ok && s.resolved
}

// ParseCount returns how many objects the registry has parsed.
func (r *Registry) ParseCount() int {
	return r.parses
}

// ResolveReference resolves ref. It lets the registry serve as the parser's
// resolver for indirect stream lengths.
func (r *Registry) ResolveReference(ref IndirectRef) (Object, error) {
	return r.Resolve(ref.ID, ref.Gen)
}

// Resolve returns the object registered as (id, gen), parsing and decrypting
// it on first use. An unregistered pair yields nil and no error.
func (r *Registry) Resolve(id, gen int) (Object, error) {
	key := RefKey{ID: id, Gen: gen}
	s, ok := r.slots[key]
	if !ok {
		return nil, nil
	}
	if s.resolved {
		return s.obj, nil
	}
	if r.parser == nil {
		return nil, fmt.Errorf("object %s: %w", key, ErrDetached)
	}
	if r.inProgress[key] {
		return nil, formatErr(s.entry.Offset, "object "+key.String()+" to resolve without itself", "reference cycle")
	}
	r.inProgress[key] = true
	defer delete(r.inProgress, key)

	r.parses++
	ind, err := r.parser.ParseIndirectObject(s.entry.Offset)
	if err != nil {
		return nil, fmt.Errorf("object %s at offset %d: %w", key, s.entry.Offset, err)
	}
	if ind.ID != id || ind.Gen != gen {
		return nil, formatErr(ind.Position, "object "+key.String(), "object "+ind.Key().String())
	}

	obj := ind.Object
	if r.decrypter != nil {
		if obj, err = r.decrypt(obj, id, gen); err != nil {
			return nil, fmt.Errorf("decrypt object %s: %w", key, err)
		}
	}

	s.obj = obj
	s.resolved = true
	return obj, nil
}

// decrypt replaces every string and stream body inside obj with its
// plaintext. Containers are updated in place.
func (r *Registry) decrypt(obj Object, id, gen int) (Object, error) {
	switch v := obj.(type) {
	case String:
		plain, err := r.decrypter.DecryptString(id, gen, v.Value)
		if err != nil {
			return nil, err
		}
		v.Value = plain
		return v, nil

	case *Array:
		for i, item := range v.Items {
			plain, err := r.decrypt(item, id, gen)
			if err != nil {
				return nil, err
			}
			v.Items[i] = plain
		}
		return v, nil

	case *Dict:
		for _, key := range v.Keys() {
			plain, err := r.decrypt(v.Get(key), id, gen)
			if err != nil {
				return nil, err
			}
			v.Set(key, plain)
		}
		return v, nil

	case *Stream:
		if _, err := r.decrypt(v.Dict, id, gen); err != nil {
			return nil, err
		}
		encrypted, filter := r.streamEncrypted(v)
		if !encrypted {
			return v, nil
		}
		var plain []byte
		var err error
		if named, ok := r.decrypter.(NamedFilterDecrypter); ok && filter != "" {
			plain, err = named.DecryptStreamWith(filter, id, gen, v.Data)
		} else {
			plain, err = r.decrypter.DecryptStream(id, gen, v.Data)
		}
		if err != nil {
			return nil, err
		}
		v.Data = plain
		return v, nil
	}
	return obj, nil
}

// streamEncrypted reports whether a stream's body went through the document
// cipher and, for a leading Crypt filter, the crypt filter it names.
// Cross-reference streams never are, metadata streams may be exempt, and a
// Crypt filter naming Identity opts the stream out.
func (r *Registry) streamEncrypted(s *Stream) (bool, string) {
	switch t, _ := s.Dict.GetName("Type"); t {
	case "XRef":
		return false, ""
	case "Metadata":
		if !r.decrypter.EncryptMetadata() {
			return false, ""
		}
	}

	names, err := s.Filters()
	if err != nil || len(names) == 0 || names[0] != "Crypt" {
		return true, ""
	}
	var params *Dict
	switch p := s.Dict.Get("DecodeParms").(type) {
	case *Dict:
		params = p
	case *Array:
		params, _ = p.Get(0).(*Dict)
	}
	name, ok := params.GetName("Name")
	if !ok || name == "Identity" {
		return false, ""
	}
	return true, name
}
