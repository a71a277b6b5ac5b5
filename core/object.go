package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Object represents a raw PDF parse node. Every node remembers the byte offset
// of its first token.
type Object interface {
	Type() ObjectType
	Pos() int64
	String() string
}

// ObjectType represents the type of PDF object
type ObjectType int

const (
	ObjIdentifier ObjectType = iota
	ObjBool
	ObjInt
	ObjReal
	ObjString
	ObjName
	ObjArray
	ObjDict
	ObjStream
	ObjRef
	ObjIndirect
)

// String returns the string representation of the object type
func (t ObjectType) String() string {
	switch t {
	case ObjIdentifier:
		return "Identifier"
	case ObjBool:
		return "Bool"
	case ObjInt:
		return "Int"
	case ObjReal:
		return "Real"
	case ObjString:
		return "String"
	case ObjName:
		return "Name"
	case ObjArray:
		return "Array"
	case ObjDict:
		return "Dict"
	case ObjStream:
		return "Stream"
	case ObjRef:
		return "IndirectRef"
	case ObjIndirect:
		return "IndirectObject"
	default:
		return "Unknown"
	}
}

// Version is the (major, minor) pair from the %PDF-M.m header.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// Identifier is a bare keyword used as a value. null is the common case.
type Identifier struct {
	Value    string
	Position int64
}

func (i Identifier) Type() ObjectType { return ObjIdentifier }
func (i Identifier) Pos() int64       { return i.Position }
func (i Identifier) String() string   { return i.Value }

// IsNull reports whether the identifier is the null object.
func (i Identifier) IsNull() bool { return i.Value == "null" }

// Bool represents a PDF boolean
type Bool struct {
	Value    bool
	Position int64
}

func (b Bool) Type() ObjectType { return ObjBool }
func (b Bool) Pos() int64       { return b.Position }
func (b Bool) String() string   { return strconv.FormatBool(b.Value) }

// Int represents a PDF integer
type Int struct {
	Value    int64
	Position int64
}

func (i Int) Type() ObjectType { return ObjInt }
func (i Int) Pos() int64       { return i.Position }
func (i Int) String() string   { return strconv.FormatInt(i.Value, 10) }

// Real represents a PDF real number
type Real struct {
	Value    float64
	Position int64
}

func (r Real) Type() ObjectType { return ObjReal }
func (r Real) Pos() int64       { return r.Position }
func (r Real) String() string   { return strconv.FormatFloat(r.Value, 'f', -1, 64) }

// String is a literal or hexadecimal string. Value holds the unescaped bytes
// and is encrypted until the registry has passed it through the document's
// decryption handler.
type String struct {
	Value    []byte
	Hex      bool
	Position int64
}

func (s String) Type() ObjectType { return ObjString }
func (s String) Pos() int64       { return s.Position }
func (s String) String() string {
	if s.Hex {
		return fmt.Sprintf("<%X>", s.Value)
	}
	return "(" + escapeLiteral(s.Value) + ")"
}

func escapeLiteral(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch c {
		case '(', ')', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Name represents a PDF name with #xx escapes already decoded.
type Name struct {
	Value    string
	Position int64
}

func (n Name) Type() ObjectType { return ObjName }
func (n Name) Pos() int64       { return n.Position }
func (n Name) String() string   { return "/" + n.Value }

// Array represents a PDF array
type Array struct {
	Items    []Object
	Position int64
}

func (a *Array) Type() ObjectType { return ObjArray }
func (a *Array) Pos() int64       { return a.Position }
func (a *Array) String() string {
	parts := make([]string, 0, len(a.Items))
	for _, obj := range a.Items {
		parts = append(parts, obj.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Len returns the length of the array
func (a *Array) Len() int {
	return len(a.Items)
}

// Get retrieves an element at the given index
func (a *Array) Get(index int) Object {
	if index < 0 || index >= len(a.Items) {
		return nil
	}
	return a.Items[index]
}

// GetInt retrieves an integer at the given index
func (a *Array) GetInt(index int) (int64, bool) {
	i, ok := a.Get(index).(Int)
	return i.Value, ok
}

// GetNumber retrieves an integer or real at the given index as a float.
func (a *Array) GetNumber(index int) (float64, bool) {
	return number(a.Get(index))
}

// GetName retrieves a name at the given index
func (a *Array) GetName(index int) (string, bool) {
	n, ok := a.Get(index).(Name)
	return n.Value, ok
}

func number(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Int:
		return float64(v.Value), true
	case Real:
		return v.Value, true
	}
	return 0, false
}

// Dict represents a PDF dictionary. Lookup is by key; Keys reports the order
// in which keys were first set.
type Dict struct {
	Position int64
	keys     []string
	entries  map[string]Object
}

// NewDict returns an empty dictionary.
func NewDict() *Dict {
	return &Dict{entries: make(map[string]Object)}
}

func (d *Dict) Type() ObjectType { return ObjDict }
func (d *Dict) Pos() int64       { return d.Position }
func (d *Dict) String() string {
	parts := make([]string, 0, len(d.keys))
	for _, key := range d.keys {
		parts = append(parts, fmt.Sprintf("/%s %s", key, d.entries[key].String()))
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Get retrieves a value from the dictionary
func (d *Dict) Get(key string) Object {
	if d == nil {
		return nil
	}
	return d.entries[key]
}

// GetName retrieves a name value
func (d *Dict) GetName(key string) (string, bool) {
	n, ok := d.Get(key).(Name)
	return n.Value, ok
}

// GetInt retrieves an integer value
func (d *Dict) GetInt(key string) (int64, bool) {
	i, ok := d.Get(key).(Int)
	return i.Value, ok
}

// GetNumber retrieves an integer or real value as a float
func (d *Dict) GetNumber(key string) (float64, bool) {
	return number(d.Get(key))
}

// GetBool retrieves a boolean value
func (d *Dict) GetBool(key string) (bool, bool) {
	b, ok := d.Get(key).(Bool)
	return b.Value, ok
}

// GetString retrieves a string value
func (d *Dict) GetString(key string) ([]byte, bool) {
	s, ok := d.Get(key).(String)
	return s.Value, ok
}

// GetDict retrieves a dictionary value
func (d *Dict) GetDict(key string) (*Dict, bool) {
	v, ok := d.Get(key).(*Dict)
	return v, ok
}

// GetArray retrieves an array value
func (d *Dict) GetArray(key string) (*Array, bool) {
	v, ok := d.Get(key).(*Array)
	return v, ok
}

// GetStream retrieves a stream value
func (d *Dict) GetStream(key string) (*Stream, bool) {
	v, ok := d.Get(key).(*Stream)
	return v, ok
}

// GetRef retrieves an indirect reference
func (d *Dict) GetRef(key string) (IndirectRef, bool) {
	v, ok := d.Get(key).(IndirectRef)
	return v, ok
}

// Has checks if a key exists in the dictionary
func (d *Dict) Has(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.entries[key]
	return ok
}

// Set sets a value in the dictionary. A later Set of an existing key replaces
// its value and keeps its original position in Keys.
func (d *Dict) Set(key string, value Object) {
	if d.entries == nil {
		d.entries = make(map[string]Object)
	}
	if _, ok := d.entries[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.entries[key] = value
}

// Delete removes a key from the dictionary
func (d *Dict) Delete(key string) {
	if _, ok := d.entries[key]; !ok {
		return
	}
	delete(d.entries, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns all keys in insertion order
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}

// Stream is a dictionary plus the raw bytes between stream and endstream.
type Stream struct {
	Dict       *Dict
	Data       []byte
	DataOffset int64
	Position   int64
}

func (s *Stream) Type() ObjectType { return ObjStream }
func (s *Stream) Pos() int64       { return s.Position }
func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict.String(), len(s.Data))
}

// RefKey identifies an indirect object by (id, generation).
type RefKey struct {
	ID  int
	Gen int
}

func (k RefKey) String() string { return fmt.Sprintf("%d %d", k.ID, k.Gen) }

// IndirectRef represents an indirect object reference
type IndirectRef struct {
	ID       int
	Gen      int
	Position int64
}

func (r IndirectRef) Type() ObjectType { return ObjRef }
func (r IndirectRef) Pos() int64       { return r.Position }
func (r IndirectRef) String() string {
	return fmt.Sprintf("%d %d R", r.ID, r.Gen)
}

// Key returns the registry key of the referenced object.
func (r IndirectRef) Key() RefKey { return RefKey{ID: r.ID, Gen: r.Gen} }

// IndirectObject is the on-disk "id gen obj ... endobj" unit.
type IndirectObject struct {
	ID       int
	Gen      int
	Object   Object
	Position int64
}

func (o *IndirectObject) Type() ObjectType { return ObjIndirect }
func (o *IndirectObject) Pos() int64       { return o.Position }
func (o *IndirectObject) String() string {
	return fmt.Sprintf("%d %d obj %s endobj", o.ID, o.Gen, o.Object.String())
}

// Key returns the registry key of the object.
func (o *IndirectObject) Key() RefKey { return RefKey{ID: o.ID, Gen: o.Gen} }
