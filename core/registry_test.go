package core

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/tsawler/pdfgraph/internal/pdftest"
)

func openRegistry(t *testing.T, b *pdftest.Builder, trailer string) *Registry {
	t.Helper()
	_, reg, err := loadChain(t, b.Finish(trailer))
	if err != nil {
		t.Fatalf("LoadXRefChain failed: %v", err)
	}
	return reg
}

func TestRegistryRegisterFirstSeenWins(t *testing.T) {
	reg := NewRegistry()
	if !reg.Register(XRefEntry{ID: 4, Generation: 1, Offset: 100, InUse: true}) {
		t.Fatal("first Register should succeed")
	}
	if reg.Register(XRefEntry{ID: 4, Generation: 1, Offset: 200, InUse: true}) {
		t.Error("second Register of the same id should be ignored")
	}
	if reg.Register(XRefEntry{ID: 4, Generation: 0, Offset: 300, InUse: true}) {
		t.Error("an older generation of a registered id should be ignored")
	}
	if e, _ := reg.Lookup(4, 1); e.Offset != 100 {
		t.Errorf("offset = %d, want 100", e.Offset)
	}
}

func TestRegistryRefsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []int{9, 2, 5} {
		reg.Register(XRefEntry{ID: id, InUse: true})
	}
	refs := reg.Refs()
	if len(refs) != 3 || refs[0].ID != 2 || refs[1].ID != 5 || refs[2].ID != 9 {
		t.Errorf("Refs() = %v", refs)
	}
}

func TestRegistryResolveOnce(t *testing.T) {
	b := pdftest.New("1.4")
	b.Object(1, 0, "<< /Type /Catalog >>")
	reg := openRegistry(t, b, "<< /Size 2 /Root 1 0 R >>")

	if reg.Cached(1, 0) {
		t.Error("nothing should be cached before first use")
	}
	first, err := reg.Resolve(1, 0)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := reg.Resolve(1, 0)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first.(*Dict) != second.(*Dict) {
		t.Error("repeated Resolve should return the cached instance")
	}
	if reg.ParseCount() != 1 {
		t.Errorf("ParseCount = %d, want 1", reg.ParseCount())
	}
	if !reg.Cached(1, 0) {
		t.Error("object should be cached")
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	b := pdftest.New("1.4")
	b.Object(1, 0, "1")
	reg := openRegistry(t, b, "<< /Size 2 >>")

	for _, key := range []RefKey{{ID: 7}, {ID: 1, Gen: 3}} {
		obj, err := reg.Resolve(key.ID, key.Gen)
		if obj != nil || err != nil {
			t.Errorf("Resolve(%s) = %v, %v; want nil, nil", key, obj, err)
		}
	}
	if reg.ParseCount() != 0 {
		t.Errorf("ParseCount = %d, want 0", reg.ParseCount())
	}
}

func TestRegistryIDMismatch(t *testing.T) {
	b := pdftest.New("1.4")
	off := b.Object(1, 0, "(one)")
	xref := b.XRef("<< /Size 3 >>", pdftest.Entry{ID: 2, Offset: off})
	b.StartXRef(xref)

	_, reg, err := loadChain(t, b.Bytes())
	if err != nil {
		t.Fatalf("LoadXRefChain failed: %v", err)
	}
	if _, err := reg.Resolve(2, 0); !isFormatError(err) {
		t.Errorf("expected *FormatError, got %v", err)
	}
	if reg.Cached(2, 0) {
		t.Error("failed resolution must not be cached")
	}
}

func TestRegistryLazyErrors(t *testing.T) {
	b := pdftest.New("1.4")
	b.Object(1, 0, "(fine)")
	b.Object(2, 0, "<< /Broken ")
	reg := openRegistry(t, b, "<< /Size 3 >>")

	if _, err := reg.Resolve(2, 0); err == nil {
		t.Error("expected error for the corrupt object")
	}
	if obj, err := reg.Resolve(1, 0); err != nil || obj == nil {
		t.Errorf("unrelated object should resolve, got %v, %v", obj, err)
	}
}

func TestRegistryIndirectLength(t *testing.T) {
	b := pdftest.New("1.4")
	b.Stream(1, 0, "/Length 2 0 R", []byte("abcdef"))
	b.Object(2, 0, "6")
	reg := openRegistry(t, b, "<< /Size 3 >>")

	obj, err := reg.Resolve(1, 0)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if s := obj.(*Stream); string(s.Data) != "abcdef" {
		t.Errorf("data = %q", s.Data)
	}
	if !reg.Cached(2, 0) {
		t.Error("length object should be cached by the nested resolution")
	}
}

func TestRegistryCycle(t *testing.T) {
	b := pdftest.New("1.4")
	b.Stream(1, 0, "/Length 1 0 R", []byte("abc"))
	reg := openRegistry(t, b, "<< /Size 2 >>")

	if _, err := reg.Resolve(1, 0); !isFormatError(err) {
		t.Errorf("expected *FormatError, got %v", err)
	}
}

func TestRegistryDetach(t *testing.T) {
	b := pdftest.New("1.4")
	b.Object(1, 0, "(one)")
	b.Object(2, 0, "(two)")
	reg := openRegistry(t, b, "<< /Size 3 >>")

	if _, err := reg.Resolve(1, 0); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	reg.Detach()
	if obj, err := reg.Resolve(1, 0); err != nil || obj == nil {
		t.Errorf("cached object should survive Detach, got %v, %v", obj, err)
	}
	if _, err := reg.Resolve(2, 0); !errors.Is(err, ErrDetached) {
		t.Errorf("expected ErrDetached, got %v", err)
	}
}

// xorDecrypter flips every byte with the object id so tests can see which
// key was used.
type xorDecrypter struct {
	calls           int
	encryptMetadata bool
}

func (x *xorDecrypter) xor(id int, data []byte) []byte {
	out := make([]byte, len(data))
	for i, c := range data {
		out[i] = c ^ byte(id)
	}
	return out
}

func (x *xorDecrypter) DecryptString(id, gen int, data []byte) ([]byte, error) {
	x.calls++
	return x.xor(id, data), nil
}

func (x *xorDecrypter) DecryptStream(id, gen int, data []byte) ([]byte, error) {
	x.calls++
	return x.xor(id, data), nil
}

func (x *xorDecrypter) EncryptMetadata() bool { return x.encryptMetadata }

func xorString(id int, s string) string {
	return string((&xorDecrypter{}).xor(id, []byte(s)))
}

func hexOf(s string) string {
	return fmt.Sprintf("<%X>", s)
}

func TestRegistryDecryptsOnce(t *testing.T) {
	b := pdftest.New("1.4")
	b.Object(3, 0, "<< /T "+hexOf(xorString(3, "title"))+" /K ["+hexOf(xorString(3, "a"))+" 1] >>")
	b.Stream(4, 0, "/Length 5", []byte(xorString(4, "hello")))
	reg := openRegistry(t, b, "<< /Size 5 >>")
	dec := &xorDecrypter{encryptMetadata: true}
	reg.SetDecrypter(dec)

	obj, err := reg.Resolve(3, 0)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	dict := obj.(*Dict)
	if s, _ := dict.GetString("T"); string(s) != "title" {
		t.Errorf("T = %q", s)
	}
	arr, _ := dict.GetArray("K")
	if s := arr.Get(0).(String); string(s.Value) != "a" {
		t.Errorf("K[0] = %q", s.Value)
	}
	reg.Resolve(3, 0)
	if dec.calls != 2 {
		t.Errorf("decrypter called %d times, want 2", dec.calls)
	}

	obj, err = reg.Resolve(4, 0)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if s := obj.(*Stream); string(s.Data) != "hello" {
		t.Errorf("stream data = %q", s.Data)
	}
}

func TestRegistryStreamExemptions(t *testing.T) {
	tests := []struct {
		name            string
		dict            string
		encryptMetadata bool
		encrypted       bool
	}{
		{"plain stream", "/Length 3", true, true},
		{"metadata encrypted", "/Type /Metadata /Length 3", true, true},
		{"metadata exempt", "/Type /Metadata /Length 3", false, false},
		{"xref stream", "/Type /XRef /Length 3", true, false},
		{"identity crypt filter", "/Filter /Crypt /Length 3", true, false},
		{"named identity", "/Filter [/Crypt] /DecodeParms [<< /Name /Identity >>] /Length 3", true, false},
		{"named crypt filter", "/Filter /Crypt /DecodeParms << /Name /StdCF >> /Length 3", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := pdftest.New("1.4")
			b.Stream(1, 0, tt.dict, []byte("abc"))
			reg := openRegistry(t, b, "<< /Size 2 >>")
			reg.SetDecrypter(&xorDecrypter{encryptMetadata: tt.encryptMetadata})

			obj, err := reg.Resolve(1, 0)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			data := string(obj.(*Stream).Data)
			if tt.encrypted && data != xorString(1, "abc") {
				t.Errorf("stream should have been decrypted, got %q", data)
			}
			if !tt.encrypted && data != "abc" {
				t.Errorf("stream should be untouched, got %q", data)
			}
		})
	}
}

// namedDecrypter applies a named crypt filter by upper-casing the data.
type namedDecrypter struct {
	xorDecrypter
	filters []string
}

func (n *namedDecrypter) DecryptStreamWith(filter string, id, gen int, data []byte) ([]byte, error) {
	n.filters = append(n.filters, filter)
	return bytes.ToUpper(data), nil
}

func TestRegistryNamedCryptFilter(t *testing.T) {
	b := pdftest.New("1.5")
	b.Stream(1, 0, "/Filter /Crypt /DecodeParms << /Name /Special >> /Length 3", []byte("abc"))
	b.Stream(2, 0, "/Length 3", []byte(xorString(2, "def")))
	reg := openRegistry(t, b, "<< /Size 3 >>")
	dec := &namedDecrypter{xorDecrypter: xorDecrypter{encryptMetadata: true}}
	reg.SetDecrypter(dec)

	obj, err := reg.Resolve(1, 0)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if data := string(obj.(*Stream).Data); data != "ABC" {
		t.Errorf("named filter data = %q", data)
	}
	if len(dec.filters) != 1 || dec.filters[0] != "Special" {
		t.Errorf("filters = %v, want [Special]", dec.filters)
	}

	obj, err = reg.Resolve(2, 0)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if data := string(obj.(*Stream).Data); data != "def" {
		t.Errorf("default stream data = %q", data)
	}
	if len(dec.filters) != 1 {
		t.Errorf("streams without /Crypt should use DecryptStream, filters = %v", dec.filters)
	}
}
