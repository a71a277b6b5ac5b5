package reader

import (
	"fmt"

	"github.com/tsawler/pdfgraph/core"
	"github.com/tsawler/pdfgraph/security"
)

// Object is a typed view of a parse node. Every wrapper knows its place in
// the document's tree: Parent, Document and DecryptHandler walk upward and
// return nil for wrappers that belong to no document.
type Object interface {
	Raw() core.Object
	Parent() Object
	Document() *Document
	DecryptHandler() security.Handler
	String() string

	node() nodeRef
}

// nodeRef locates a wrapper in its arena. The zero value is unattached.
type nodeRef struct {
	arena *arena
	h     handle
}

func (r nodeRef) node() nodeRef { return r }

// Parent returns the enclosing wrapper, or nil at the top of the tree.
func (r nodeRef) Parent() Object {
	if r.arena == nil {
		return nil
	}
	p := r.arena.parentOf(r.h)
	if p <= rootHandle {
		return nil
	}
	return r.arena.object(p)
}

// Document returns the owning document.
func (r nodeRef) Document() *Document {
	if r.arena == nil {
		return nil
	}
	return r.arena.doc
}

// DecryptHandler returns the security handler of the owning document.
func (r nodeRef) DecryptHandler() security.Handler {
	doc := r.Document()
	if doc == nil {
		return nil
	}
	return doc.DecryptHandler()
}

// deref resolves obj through the owning document when it is a reference.
func (r nodeRef) deref(obj core.Object) (core.Object, error) {
	ref, ok := obj.(core.IndirectRef)
	if !ok {
		return obj, nil
	}
	doc := r.Document()
	if doc == nil {
		return nil, ErrUnattached
	}
	return doc.ResolveRaw(ref.ID, ref.Gen)
}

// child wraps raw as the child of r at slot ck, following a reference first
// when resolve is set.
func (r nodeRef) child(ck childKey, raw core.Object, resolve bool) (Object, error) {
	if resolve {
		if _, ok := raw.(core.IndirectRef); ok {
			target, err := r.deref(raw)
			if err != nil {
				return nil, err
			}
			raw = target
			ck.resolved = true
		}
	}
	if raw == nil {
		return nil, nil
	}
	if r.arena == nil {
		return newObject(raw, nodeRef{})
	}
	ck.parent = r.h
	return r.arena.child(ck, raw)
}

// Wrap returns the typed wrapper for raw as a child of parent. A nil parent
// gives an unattached wrapper. Indirect object nodes have no wrapper and
// yield *core.UnsupportedNodeError.
func Wrap(raw core.Object, parent Object) (Object, error) {
	if raw == nil {
		return nil, nil
	}
	if parent == nil {
		return newObject(raw, nodeRef{})
	}
	ref := parent.node()
	a, h := ref.arena, ref.h
	if a == nil {
		// an unattached parent gets an arena of its own
		a = newArena(nil)
		h = a.add(rootHandle, parent.Raw())
	}
	return a.wrap(h, raw)
}

func newObject(raw core.Object, ref nodeRef) (Object, error) {
	switch v := raw.(type) {
	case core.String:
		return &String{nodeRef: ref, raw: v}, nil
	case core.Name:
		return &Name{nodeRef: ref, raw: v}, nil
	case core.Int:
		return &Integer{nodeRef: ref, raw: v}, nil
	case core.Real:
		return &Real{nodeRef: ref, raw: v}, nil
	case core.Bool:
		return &Boolean{nodeRef: ref, raw: v}, nil
	case core.Identifier:
		return &Identifier{nodeRef: ref, raw: v}, nil
	case *core.Dict:
		return &Dictionary{nodeRef: ref, raw: v}, nil
	case core.IndirectRef:
		return &ObjectReference{nodeRef: ref, raw: v}, nil
	case *core.Stream:
		return &Stream{nodeRef: ref, raw: v}, nil
	case *core.Array:
		return &Array{nodeRef: ref, raw: v}, nil
	}
	// IndirectObject never reaches here from the registry, which unwraps it.
	return nil, &core.UnsupportedNodeError{Kind: raw.Type(), Offset: raw.Pos()}
}

// String wraps a literal or hexadecimal string.
type String struct {
	nodeRef
	raw core.String
}

func (s *String) Raw() core.Object { return s.raw }
func (s *String) String() string   { return s.raw.String() }

// Bytes returns the string's bytes, already decrypted.
func (s *String) Bytes() []byte { return s.raw.Value }

// IsHex reports whether the string was written in hexadecimal form.
func (s *String) IsHex() bool { return s.raw.Hex }

// Text decodes the string as a PDF text string: UTF-16 or UTF-8 with a byte
// order mark, PDFDocEncoding otherwise.
func (s *String) Text() string { return decodeText(s.raw.Value) }

// Date parses the string as a PDF date.
func (s *String) Date() (*Date, error) { return NewDate(s) }

// Name wraps a name object.
type Name struct {
	nodeRef
	raw core.Name
}

func (n *Name) Raw() core.Object { return n.raw }
func (n *Name) String() string   { return n.raw.String() }
func (n *Name) Value() string    { return n.raw.Value }

// Integer wraps an integer.
type Integer struct {
	nodeRef
	raw core.Int
}

func (i *Integer) Raw() core.Object { return i.raw }
func (i *Integer) String() string   { return i.raw.String() }
func (i *Integer) Value() int64     { return i.raw.Value }

// Real wraps a real number.
type Real struct {
	nodeRef
	raw core.Real
}

func (r *Real) Raw() core.Object { return r.raw }
func (r *Real) String() string   { return r.raw.String() }
func (r *Real) Value() float64   { return r.raw.Value }

// Boolean wraps true or false.
type Boolean struct {
	nodeRef
	raw core.Bool
}

func (b *Boolean) Raw() core.Object { return b.raw }
func (b *Boolean) String() string   { return b.raw.String() }
func (b *Boolean) Value() bool      { return b.raw.Value }

// Identifier wraps a bare keyword used as a value.
type Identifier struct {
	nodeRef
	raw core.Identifier
}

func (i *Identifier) Raw() core.Object { return i.raw }
func (i *Identifier) String() string   { return i.raw.String() }
func (i *Identifier) Value() string    { return i.raw.Value }
func (i *Identifier) IsNull() bool     { return i.raw.IsNull() }

// ObjectReference wraps an "id gen R" reference.
type ObjectReference struct {
	nodeRef
	raw core.IndirectRef
}

func (r *ObjectReference) Raw() core.Object { return r.raw }
func (r *ObjectReference) String() string   { return r.raw.String() }
func (r *ObjectReference) ID() int          { return r.raw.ID }
func (r *ObjectReference) Gen() int         { return r.raw.Gen }
func (r *ObjectReference) Key() core.RefKey { return r.raw.Key() }

// Resolve returns the referenced object, or nil when it is not registered.
func (r *ObjectReference) Resolve() (Object, error) {
	return r.child(childKey{index: slotTarget}, r.raw, true)
}

// Dictionary wraps a dictionary. Get returns entries as written; Resolve and
// the typed helpers follow references.
type Dictionary struct {
	nodeRef
	raw *core.Dict
}

func (d *Dictionary) Raw() core.Object { return d.raw }
func (d *Dictionary) String() string   { return d.raw.String() }

// Dict returns the underlying parse node.
func (d *Dictionary) Dict() *core.Dict { return d.raw }

func (d *Dictionary) Len() int            { return d.raw.Len() }
func (d *Dictionary) Keys() []string      { return d.raw.Keys() }
func (d *Dictionary) Has(key string) bool { return d.raw.Has(key) }

// Get wraps the entry for key without following references. It returns nil
// when the key is absent.
func (d *Dictionary) Get(key string) (Object, error) {
	return d.child(childKey{key: key, index: slotKey}, d.raw.Get(key), false)
}

// Resolve wraps the entry for key, following a reference.
func (d *Dictionary) Resolve(key string) (Object, error) {
	return d.child(childKey{key: key, index: slotKey}, d.raw.Get(key), true)
}

// Mandatory is Resolve for a key that must be present.
func (d *Dictionary) Mandatory(key string) (Object, error) {
	obj, err := d.Resolve(key)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, &core.MissingMandatoryKeyError{Key: key, Offset: d.raw.Pos()}
	}
	return obj, nil
}

func (d *Dictionary) value(key string) core.Object {
	v, err := d.deref(d.raw.Get(key))
	if err != nil {
		return nil
	}
	return v
}

// Name returns the name entry for key.
func (d *Dictionary) Name(key string) (string, bool) {
	n, ok := d.value(key).(core.Name)
	return n.Value, ok
}

// Int returns the integer entry for key.
func (d *Dictionary) Int(key string) (int64, bool) {
	i, ok := d.value(key).(core.Int)
	return i.Value, ok
}

// Number returns an integer or real entry as a float.
func (d *Dictionary) Number(key string) (float64, bool) {
	switch v := d.value(key).(type) {
	case core.Int:
		return float64(v.Value), true
	case core.Real:
		return v.Value, true
	}
	return 0, false
}

// Bool returns the boolean entry for key.
func (d *Dictionary) Bool(key string) (bool, bool) {
	b, ok := d.value(key).(core.Bool)
	return b.Value, ok
}

// Text returns the string entry for key decoded as a text string.
func (d *Dictionary) Text(key string) (string, bool) {
	s, ok := d.value(key).(core.String)
	if !ok {
		return "", false
	}
	return decodeText(s.Value), true
}

// Dictionary returns the dictionary entry for key, or nil when absent.
func (d *Dictionary) Dictionary(key string) (*Dictionary, error) {
	obj, err := d.Resolve(key)
	if err != nil || obj == nil {
		return nil, err
	}
	v, ok := obj.(*Dictionary)
	if !ok {
		return nil, d.typeError(key, "dictionary", obj)
	}
	return v, nil
}

// Array returns the array entry for key, or nil when absent.
func (d *Dictionary) Array(key string) (*Array, error) {
	obj, err := d.Resolve(key)
	if err != nil || obj == nil {
		return nil, err
	}
	v, ok := obj.(*Array)
	if !ok {
		return nil, d.typeError(key, "array", obj)
	}
	return v, nil
}

// Stream returns the stream entry for key, or nil when absent.
func (d *Dictionary) Stream(key string) (*Stream, error) {
	obj, err := d.Resolve(key)
	if err != nil || obj == nil {
		return nil, err
	}
	v, ok := obj.(*Stream)
	if !ok {
		return nil, d.typeError(key, "stream", obj)
	}
	return v, nil
}

// StringEntry returns the string entry for key, or nil when absent.
func (d *Dictionary) StringEntry(key string) (*String, error) {
	obj, err := d.Resolve(key)
	if err != nil || obj == nil {
		return nil, err
	}
	v, ok := obj.(*String)
	if !ok {
		return nil, d.typeError(key, "string", obj)
	}
	return v, nil
}

func (d *Dictionary) typeError(key, want string, got Object) error {
	return &core.FormatError{
		Offset:   got.Raw().Pos(),
		Expected: fmt.Sprintf("%s for /%s", want, key),
		Found:    got.Raw().Type().String(),
	}
}

// Array wraps an array.
type Array struct {
	nodeRef
	raw *core.Array
}

func (a *Array) Raw() core.Object { return a.raw }
func (a *Array) String() string   { return a.raw.String() }
func (a *Array) Len() int         { return a.raw.Len() }

// Get wraps element i without following references. It returns nil when i
// is out of range.
func (a *Array) Get(i int) (Object, error) {
	return a.child(childKey{index: i}, a.raw.Get(i), false)
}

// Resolve wraps element i, following a reference.
func (a *Array) Resolve(i int) (Object, error) {
	return a.child(childKey{index: i}, a.raw.Get(i), true)
}

// Numbers returns the elements as floats when every element is a number.
func (a *Array) Numbers() ([]float64, bool) {
	out := make([]float64, 0, a.raw.Len())
	for _, item := range a.raw.Items {
		v, err := a.deref(item)
		if err != nil {
			return nil, false
		}
		switch n := v.(type) {
		case core.Int:
			out = append(out, float64(n.Value))
		case core.Real:
			out = append(out, n.Value)
		default:
			return nil, false
		}
	}
	return out, true
}

// Stream wraps a stream.
type Stream struct {
	nodeRef
	raw *core.Stream
}

func (s *Stream) Raw() core.Object { return s.raw }
func (s *Stream) String() string   { return s.raw.String() }

// Dictionary returns the stream dictionary as a child of the stream.
func (s *Stream) Dictionary() *Dictionary {
	obj, _ := s.child(childKey{index: slotStreamDict}, s.raw.Dict, false)
	d, _ := obj.(*Dictionary)
	return d
}

// Data returns the bytes between stream and endstream, already decrypted.
func (s *Stream) Data() []byte { return s.raw.Data }

// Decode applies the stream's filters. References in /Filter and
// /DecodeParms are followed through the owning document.
func (s *Stream) Decode() ([]byte, error) {
	doc := s.Document()
	if doc == nil || doc.usable() != nil {
		return s.raw.Decode()
	}

	dict := core.NewDict()
	dict.Position = s.raw.Dict.Position
	for _, key := range s.raw.Dict.Keys() {
		v := s.raw.Dict.Get(key)
		if key == "Filter" || key == "DecodeParms" || key == "F" || key == "DP" {
			resolved, err := doc.ResolveDeep(v)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve /%s: %w", key, err)
			}
			v = resolved
		}
		dict.Set(key, v)
	}
	return (&core.Stream{Position: s.raw.Position, Dict: dict, Data: s.raw.Data, DataOffset: s.raw.DataOffset}).Decode()
}
