package core

import (
	"strings"
	"testing"
)

func TestObjectTypeString(t *testing.T) {
	tests := []struct {
		typ  ObjectType
		want string
	}{
		{ObjIdentifier, "Identifier"},
		{ObjBool, "Bool"},
		{ObjInt, "Int"},
		{ObjReal, "Real"},
		{ObjString, "String"},
		{ObjName, "Name"},
		{ObjArray, "Array"},
		{ObjDict, "Dict"},
		{ObjStream, "Stream"},
		{ObjRef, "IndirectRef"},
		{ObjIndirect, "IndirectObject"},
		{ObjectType(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("ObjectType(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestStringRendering(t *testing.T) {
	tests := []struct {
		obj  String
		want string
	}{
		{String{Value: []byte("plain")}, "(plain)"},
		{String{Value: []byte(`a(b)\c`)}, `(a\(b\)\\c)`},
		{String{Value: []byte("x\ny")}, `(x\ny)`},
		{String{Value: []byte{0xAB, 0x01}, Hex: true}, "<AB01>"},
	}
	for _, tt := range tests {
		if got := tt.obj.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDictOrderAndMutation(t *testing.T) {
	d := NewDict()
	d.Set("B", Int{Value: 1})
	d.Set("A", Int{Value: 2})
	d.Set("C", Int{Value: 3})
	d.Set("B", Int{Value: 4})

	if got := strings.Join(d.Keys(), ""); got != "BAC" {
		t.Errorf("Keys() = %s, want BAC", got)
	}
	if v, _ := d.GetInt("B"); v != 4 {
		t.Errorf("B = %d, want 4", v)
	}
	if d.Len() != 3 {
		t.Errorf("Len() = %d", d.Len())
	}

	d.Delete("A")
	d.Delete("missing")
	if got := strings.Join(d.Keys(), ""); got != "BC" {
		t.Errorf("Keys() after Delete = %s, want BC", got)
	}
	if d.Has("A") {
		t.Error("A should be gone")
	}
	if got := d.String(); got != "<</B 4 /C 3>>" {
		t.Errorf("String() = %q", got)
	}
}

func TestDictTypedGetters(t *testing.T) {
	d := NewDict()
	d.Set("I", Int{Value: 7})
	d.Set("R", Real{Value: 1.5})
	d.Set("N", Name{Value: "Page"})
	d.Set("S", String{Value: []byte("s")})
	d.Set("B", Bool{Value: true})
	d.Set("A", &Array{Items: []Object{Int{Value: 1}}})
	d.Set("D", NewDict())
	d.Set("Ref", IndirectRef{ID: 3})

	if v, ok := d.GetInt("I"); !ok || v != 7 {
		t.Errorf("GetInt = %d, %v", v, ok)
	}
	if v, ok := d.GetNumber("I"); !ok || v != 7 {
		t.Errorf("GetNumber(int) = %v, %v", v, ok)
	}
	if v, ok := d.GetNumber("R"); !ok || v != 1.5 {
		t.Errorf("GetNumber(real) = %v, %v", v, ok)
	}
	if v, ok := d.GetName("N"); !ok || v != "Page" {
		t.Errorf("GetName = %q, %v", v, ok)
	}
	if v, ok := d.GetString("S"); !ok || string(v) != "s" {
		t.Errorf("GetString = %q, %v", v, ok)
	}
	if v, ok := d.GetBool("B"); !ok || !v {
		t.Errorf("GetBool = %v, %v", v, ok)
	}
	if _, ok := d.GetArray("A"); !ok {
		t.Error("GetArray failed")
	}
	if _, ok := d.GetDict("D"); !ok {
		t.Error("GetDict failed")
	}
	if ref, ok := d.GetRef("Ref"); !ok || ref.ID != 3 {
		t.Errorf("GetRef = %v, %v", ref, ok)
	}

	// wrong type or missing key
	if _, ok := d.GetInt("N"); ok {
		t.Error("GetInt on a name should fail")
	}
	if _, ok := d.GetName("missing"); ok {
		t.Error("GetName on a missing key should fail")
	}
	if _, ok := d.GetStream("D"); ok {
		t.Error("GetStream on a dict should fail")
	}

	var nilDict *Dict
	if nilDict.Get("X") != nil || nilDict.Has("X") || nilDict.Keys() != nil {
		t.Error("nil dict should behave as empty")
	}
}

func TestArrayGetters(t *testing.T) {
	a := &Array{Items: []Object{Int{Value: 1}, Real{Value: 2.5}, Name{Value: "X"}}}
	if v, ok := a.GetInt(0); !ok || v != 1 {
		t.Errorf("GetInt(0) = %d, %v", v, ok)
	}
	if v, ok := a.GetNumber(1); !ok || v != 2.5 {
		t.Errorf("GetNumber(1) = %v, %v", v, ok)
	}
	if v, ok := a.GetName(2); !ok || v != "X" {
		t.Errorf("GetName(2) = %q, %v", v, ok)
	}
	if a.Get(-1) != nil || a.Get(3) != nil {
		t.Error("out of range Get should return nil")
	}
	if _, ok := a.GetInt(5); ok {
		t.Error("GetInt out of range should fail")
	}
	if a.String() != "[1 2.5 /X]" {
		t.Errorf("String() = %q", a.String())
	}
}

func TestRefKeys(t *testing.T) {
	ref := IndirectRef{ID: 12, Gen: 1}
	if ref.String() != "12 1 R" {
		t.Errorf("String() = %q", ref.String())
	}
	if ref.Key() != (RefKey{ID: 12, Gen: 1}) {
		t.Errorf("Key() = %v", ref.Key())
	}
	obj := &IndirectObject{ID: 12, Gen: 1, Object: Int{Value: 5}}
	if obj.Key() != ref.Key() {
		t.Error("IndirectObject and IndirectRef keys differ")
	}
	if obj.String() != "12 1 obj 5 endobj" {
		t.Errorf("String() = %q", obj.String())
	}
}

func TestVersionString(t *testing.T) {
	if got := (Version{Major: 1, Minor: 7}).String(); got != "1.7" {
		t.Errorf("String() = %q", got)
	}
}
