package reader

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/tsawler/pdfgraph/core"
	"github.com/tsawler/pdfgraph/internal/pdftest"
	"github.com/tsawler/pdfgraph/security"
)

// source is an in-memory file that records Close.
type source struct {
	*bytes.Reader
	closed int
}

func (s *source) Close() error {
	s.closed++
	return nil
}

func newSource(data []byte) *source {
	return &source{Reader: bytes.NewReader(data)}
}

func load(t *testing.T, data []byte, eager bool, opts ...Option) *Document {
	t.Helper()
	doc := New(opts...)
	if err := doc.Load(newSource(data), eager); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return doc
}

// singleRevisionCatalog is a single revision holding only a catalog.
func singleRevisionCatalog() []byte {
	b := pdftest.New("1.4")
	b.Object(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	return b.Finish("<< /Size 2 /Root 1 0 R >>")
}

// sampleDocument has a two-page tree, an info dictionary and a stream.
func sampleDocument() []byte {
	b := pdftest.New("1.7")
	b.Object(1, 0, "<< /Type /Catalog /Pages 2 0 R /PageMode /UseOutlines /Metadata 7 0 R >>")
	b.Object(2, 0, "<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 /MediaBox [0 0 612 792] >>")
	b.Object(3, 0, "<< /Type /Page /Parent 2 0 R /Contents 5 0 R >>")
	b.Object(4, 0, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] >>")
	b.Stream(5, 0, "/Length 10", []byte("BT (hi) Tj"))
	b.Object(6, 0, "<< /Title <FEFF00480069> /Author (Ann) /CreationDate (D:20240131120000+01'00') /Trapped /True >>")
	b.Stream(7, 0, "/Type /Metadata /Subtype /XML /Length 5", []byte("<xml>"))
	return b.Finish("<< /Size 8 /Root 1 0 R /Info 6 0 R >>")
}

func TestSingleRevisionCatalog(t *testing.T) {
	doc := load(t, singleRevisionCatalog(), false)
	defer doc.Close()

	if v := doc.Version(); v.Major != 1 || v.Minor != 4 {
		t.Errorf("Version = %s", v)
	}
	obj, err := doc.ResolveReference(1, 0)
	if err != nil {
		t.Fatalf("ResolveReference failed: %v", err)
	}
	dict, ok := obj.(*Dictionary)
	if !ok {
		t.Fatalf("expected *Dictionary, got %T", obj)
	}
	if name, _ := dict.Name("Type"); name != "Catalog" {
		t.Errorf("/Type = %q", name)
	}

	catalog, err := doc.Catalog()
	if err != nil {
		t.Fatalf("Catalog failed: %v", err)
	}
	if catalog.Type() != "Catalog" {
		t.Errorf("catalog type = %q", catalog.Type())
	}
	if ref, ok := catalog.PagesRef(); !ok || ref.ID != 2 {
		t.Errorf("PagesRef = %v, %v", ref, ok)
	}
}

func TestIncrementalUpdateNewestWins(t *testing.T) {
	b := pdftest.New("1.4")
	b.Object(1, 0, "<< /Type /Catalog >>")
	b.Object(5, 0, "(old)")
	xref1 := b.XRef("<< /Size 6 /Root 1 0 R >>", b.Entries()...)
	b.StartXRef(xref1)
	b.Object(5, 0, "(new)")
	xref2 := b.XRef("<< /Size 6 /Root 1 0 R /Prev "+itoa(xref1)+" >>", b.Entry(5))
	b.StartXRef(xref2)

	doc := load(t, b.Bytes(), false)
	defer doc.Close()

	obj, err := doc.ResolveReference(5, 0)
	if err != nil {
		t.Fatalf("ResolveReference failed: %v", err)
	}
	if s := obj.(*String); string(s.Bytes()) != "new" {
		t.Errorf("object 5 = %s, want (new)", s)
	}
	if len(doc.XRef().Sections) != 2 {
		t.Errorf("got %d sections", len(doc.XRef().Sections))
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestResolveReferenceCached(t *testing.T) {
	doc := load(t, sampleDocument(), false)
	defer doc.Close()

	first, _ := doc.ResolveRaw(3, 0)
	second, _ := doc.ResolveRaw(3, 0)
	if first.(*core.Dict) != second.(*core.Dict) {
		t.Error("ResolveRaw should return the cached node")
	}
	if doc.ParseCount() != 1 {
		t.Errorf("ParseCount = %d, want 1", doc.ParseCount())
	}

	obj, err := doc.ResolveReference(42, 0)
	if obj != nil || err != nil {
		t.Errorf("unregistered object = %v, %v", obj, err)
	}
}

func TestEagerLoad(t *testing.T) {
	src := newSource(sampleDocument())
	doc := New()
	if err := doc.Load(src, true); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if src.closed != 1 {
		t.Errorf("eager load should close the source, closed %d times", src.closed)
	}
	parses := doc.ParseCount()

	if err := doc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	refs := doc.Refs()
	if len(refs) != 7 {
		t.Fatalf("got %d refs", len(refs))
	}
	for _, ref := range refs {
		obj, err := doc.ResolveReference(ref.ID, ref.Gen)
		if err != nil || obj == nil {
			t.Errorf("object %s after close: %v, %v", ref, obj, err)
		}
	}
	if doc.ParseCount() != parses {
		t.Error("no parsing should happen after an eager load")
	}
	if _, err := doc.Catalog(); err != nil {
		t.Errorf("Catalog after close: %v", err)
	}
	if n, err := doc.PageCount(); err != nil || n != 2 {
		t.Errorf("PageCount after close = %d, %v", n, err)
	}
}

func TestEagerLoadAbortsOnCorruptObject(t *testing.T) {
	b := pdftest.New("1.4")
	b.Object(1, 0, "<< /Type /Catalog >>")
	b.Object(2, 0, "<< /Broken ")
	src := newSource(b.Finish("<< /Size 3 /Root 1 0 R >>"))

	doc := New()
	err := doc.Load(src, true)
	if err == nil {
		t.Fatal("expected eager load to fail")
	}
	var fe *core.FormatError
	var le *core.LexError
	if !errors.As(err, &fe) && !errors.As(err, &le) {
		t.Errorf("expected a parse error, got %v", err)
	}
	if doc.IsOpen() {
		t.Error("document should be closed after a failed eager load")
	}
	if src.closed != 1 {
		t.Errorf("source closed %d times, want 1", src.closed)
	}
}

func TestLazyLoadIsolatesCorruption(t *testing.T) {
	b := pdftest.New("1.4")
	b.Object(1, 0, "<< /Type /Catalog >>")
	b.Object(2, 0, "<< /Broken ")
	doc := load(t, b.Finish("<< /Size 3 /Root 1 0 R >>"), false)
	defer doc.Close()

	if _, err := doc.ResolveReference(2, 0); err == nil {
		t.Error("corrupt object should fail")
	}
	if _, err := doc.Catalog(); err != nil {
		t.Errorf("catalog should still load: %v", err)
	}
}

func TestStateMachine(t *testing.T) {
	data := singleRevisionCatalog()
	src := newSource(data)
	doc := New()

	if doc.IsOpen() {
		t.Error("new document should be closed")
	}
	if _, err := doc.Catalog(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed before load, got %v", err)
	}
	if err := doc.Load(src, false); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var already *AlreadyOpenError
	second := newSource(data)
	if err := doc.Load(second, false); !errors.As(err, &already) {
		t.Errorf("expected *AlreadyOpenError, got %v", err)
	}
	if second.closed != 1 {
		t.Errorf("refused source closed %d times, want 1", second.closed)
	}
	if src.closed != 0 {
		t.Error("a refused Load must not touch the open source")
	}

	if err := doc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := doc.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if src.closed != 1 {
		t.Errorf("source closed %d times, want 1", src.closed)
	}
	if _, err := doc.ResolveReference(1, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := doc.Info(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	if err := doc.Load(newSource(data), false); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !doc.IsOpen() {
		t.Error("document should be open again")
	}
	doc.Close()
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"no header", []byte("hello world, this is not a pdf file at all")},
		{"no startxref", []byte("%PDF-1.4\n1 0 obj\n1\nendobj\n")},
		{"wrong password", encryptedDocument("user", "owner")},
	}

	for _, tt := range tests {
		for _, eager := range []bool{false, true} {
			t.Run(tt.name, func(t *testing.T) {
				src := newSource(tt.data)
				doc := New()
				if err := doc.Load(src, eager); err == nil {
					t.Error("expected error")
				}
				if doc.IsOpen() {
					t.Error("failed load must leave the document closed")
				}
				if src.closed != 1 {
					t.Errorf("eager=%v: source closed %d times, want 1", eager, src.closed)
				}
			})
		}
	}
}

func TestCatalogMissingRoot(t *testing.T) {
	b := pdftest.New("1.4")
	b.Object(1, 0, "(x)")
	doc := load(t, b.Finish("<< /Size 2 >>"), false)
	defer doc.Close()

	var missing *core.MissingMandatoryKeyError
	if _, err := doc.Catalog(); !errors.As(err, &missing) || missing.Key != "Root" {
		t.Errorf("expected missing /Root, got %v", err)
	}
	if _, err := doc.PageCount(); !errors.As(err, &missing) {
		t.Errorf("PageCount should report the missing root, got %v", err)
	}
}

func TestCatalogRootNotDictionary(t *testing.T) {
	b := pdftest.New("1.4")
	b.Object(1, 0, "42")
	doc := load(t, b.Finish("<< /Size 2 /Root 1 0 R >>"), false)
	defer doc.Close()

	var fe *core.FormatError
	if _, err := doc.Catalog(); !errors.As(err, &fe) {
		t.Errorf("expected *core.FormatError, got %v", err)
	}
}

func TestCatalogView(t *testing.T) {
	doc := load(t, sampleDocument(), false)
	defer doc.Close()

	catalog, err := doc.Catalog()
	if err != nil {
		t.Fatalf("Catalog failed: %v", err)
	}
	if catalog.PageMode() != "UseOutlines" || catalog.PageLayout() != "SinglePage" {
		t.Errorf("PageMode = %s, PageLayout = %s", catalog.PageMode(), catalog.PageLayout())
	}
	if catalog.Version() != "" {
		t.Errorf("Version = %q", catalog.Version())
	}
	meta, err := catalog.Metadata()
	if err != nil || meta == nil {
		t.Fatalf("Metadata = %v, %v", meta, err)
	}
	if string(meta.Data()) != "<xml>" {
		t.Errorf("metadata = %q", meta.Data())
	}
	root, err := catalog.Pages()
	if err != nil {
		t.Fatalf("Pages failed: %v", err)
	}
	if n, _ := root.Int("Count"); n != 2 {
		t.Errorf("/Count = %d", n)
	}
}

func TestInfo(t *testing.T) {
	doc := load(t, sampleDocument(), false)
	defer doc.Close()

	info, err := doc.Info()
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Title() != "Hi" {
		t.Errorf("Title = %q", info.Title())
	}
	if info.Author() != "Ann" || info.Subject() != "" {
		t.Errorf("Author = %q, Subject = %q", info.Author(), info.Subject())
	}
	if info.Trapped() != "True" {
		t.Errorf("Trapped = %q", info.Trapped())
	}
	created, err := info.CreationDate()
	if err != nil {
		t.Fatalf("CreationDate failed: %v", err)
	}
	if got := created.Time.UTC().Format("2006-01-02T15:04"); got != "2024-01-31T11:00" {
		t.Errorf("CreationDate = %s", got)
	}
	if mod, err := info.ModDate(); mod != nil || err != nil {
		t.Errorf("ModDate = %v, %v; want nil", mod, err)
	}

	doc2 := load(t, singleRevisionCatalog(), false)
	defer doc2.Close()
	if info, err := doc2.Info(); info != nil || err != nil {
		t.Errorf("Info without /Info = %v, %v", info, err)
	}
}

func TestPages(t *testing.T) {
	doc := load(t, sampleDocument(), false)
	defer doc.Close()

	pages, err := doc.Pages()
	if err != nil {
		t.Fatalf("Pages failed: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages", len(pages))
	}
	if w, _ := pages[0].Width(); w != 612 {
		t.Errorf("page 1 width = %v (inherited)", w)
	}
	if w, _ := pages[1].Width(); w != 200 {
		t.Errorf("page 2 width = %v", w)
	}
	data, err := pages[0].ContentData()
	if err != nil {
		t.Fatalf("ContentData failed: %v", err)
	}
	if string(data) != "BT (hi) Tj" {
		t.Errorf("contents = %q", data)
	}
}

func TestResolveDeep(t *testing.T) {
	doc := load(t, sampleDocument(), false)
	defer doc.Close()

	// /Parent links make the page tree cyclic
	deep, err := doc.ResolveDeep(core.IndirectRef{ID: 3})
	if err == nil {
		t.Errorf("expected a circular reference error, got %v", deep)
	}

	deep, err = doc.ResolveDeep(core.IndirectRef{ID: 6})
	if err != nil {
		t.Fatalf("ResolveDeep failed: %v", err)
	}
	if title, _ := deep.(*core.Dict).GetString("Title"); len(title) != 6 {
		t.Errorf("Title = %x", title)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.pdf")
	if err := os.WriteFile(path, sampleDocument(), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if n, err := doc.PageCount(); err != nil || n != 2 {
		t.Errorf("PageCount = %d, %v", n, err)
	}
	if err := doc.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	var already *AlreadyOpenError
	doc, _ = Open(path, false)
	if err := doc.Load(newSource(nil), false); !errors.As(err, &already) || !strings.Contains(err.Error(), "sample.pdf") {
		t.Errorf("expected *AlreadyOpenError naming the file, got %v", err)
	}
	doc.Close()

	if _, err := Open(filepath.Join(t.TempDir(), "missing.pdf"), false); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	doc := load(t, sampleDocument(), true, WithLogger(logger))
	doc.Close()

	out := buf.String()
	for _, want := range []string{"loaded cross-reference chain", "sections=1", "eager load complete", "document closed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func encryptedDocument(user, owner string) []byte {
	id := []byte("0123456789abcdef")
	c := pdftest.NewRC4(user, owner, id, -1028)

	b := pdftest.New("1.6")
	b.Object(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.Object(2, 0, "<< /Type /Pages /Kids [] /Count 0 >>")
	b.Object(3, 0, "<< /Title "+c.Hex(3, 0, "Secret report")+" >>")
	b.Stream(4, 0, "/Length 5", c.Seal(4, 0, []byte("hello")))
	b.Object(5, 0, c.Encrypt)
	return b.Finish("<< /Size 6 /Root 1 0 R /Info 3 0 R /Encrypt 5 0 R /ID [<30313233343536373839616263646566> <00>] >>")
}

func TestEncryptedDocument(t *testing.T) {
	for _, eager := range []bool{false, true} {
		doc := load(t, encryptedDocument("", "owner"), eager)

		h := doc.DecryptHandler()
		if !h.IsEncrypted() {
			t.Fatal("expected an encrypted handler")
		}
		if !h.Permissions().Allows(security.PermPrint) {
			t.Error("printing should be allowed")
		}
		info, err := doc.Info()
		if err != nil {
			t.Fatalf("Info failed: %v", err)
		}
		if info.Title() != "Secret report" {
			t.Errorf("Title = %q", info.Title())
		}
		obj, err := doc.ResolveReference(4, 0)
		if err != nil {
			t.Fatalf("ResolveReference failed: %v", err)
		}
		if data := obj.(*Stream).Data(); string(data) != "hello" {
			t.Errorf("stream = %q", data)
		}
		if obj.DecryptHandler() != h {
			t.Error("wrappers should reach the document's handler")
		}
		doc.Close()
	}
}

func TestEncryptedDocumentPasswords(t *testing.T) {
	data := encryptedDocument("user", "owner")

	if err := New().Load(newSource(data), false); !errors.Is(err, security.ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}
	for _, pwd := range []string{"user", "owner"} {
		doc := load(t, data, false, WithPassword(pwd))
		info, err := doc.Info()
		if err != nil || info.Title() != "Secret report" {
			t.Errorf("password %q: Title = %v, %v", pwd, info, err)
		}
		doc.Close()
	}
}

func TestUnencryptedHandler(t *testing.T) {
	doc := load(t, singleRevisionCatalog(), false)
	defer doc.Close()
	if _, ok := doc.DecryptHandler().(security.None); !ok {
		t.Errorf("DecryptHandler = %T", doc.DecryptHandler())
	}
}
