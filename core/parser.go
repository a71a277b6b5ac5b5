package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// ReferenceResolver resolves indirect references on the parser's behalf. The
// parser needs one only for streams whose /Length is an indirect reference.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// ReferenceResolverFunc adapts a function to ReferenceResolver.
type ReferenceResolverFunc func(ref IndirectRef) (Object, error)

// ResolveReference calls f(ref).
func (f ReferenceResolverFunc) ResolveReference(ref IndirectRef) (Object, error) {
	return f(ref)
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithResolver sets the capability used to resolve indirect stream lengths.
func WithResolver(r ReferenceResolver) ParserOption {
	return func(p *Parser) {
		p.resolver = r
	}
}

// WithParseHook registers fn to be called with the offset of every indirect
// object the parser is asked to parse.
func WithParseHook(fn func(offset int64)) ParserOption {
	return func(p *Parser) {
		p.onParse = fn
	}
}

// tailSize is how far from the end of the file startxref is searched for.
const tailSize = 1024

var headerPattern = regexp.MustCompile(`^%PDF-(\d+)\.(\d+)`)

// reserved keywords never stand for a value.
var reserved = map[string]bool{
	"obj": true, "endobj": true, "stream": true, "endstream": true,
	"xref": true, "trailer": true, "startxref": true, "R": true,
}

// Parser parses PDF syntax from a seekable source. Every public parse
// operation positions the source itself, so callers may interleave them.
type Parser struct {
	rs       io.ReadSeeker
	lexer    *Lexer
	pending  []*Token // pushed-back lookahead, top of stack last
	resolver ReferenceResolver
	onParse  func(offset int64)
	size     int64
}

// NewParser creates a parser over rs.
func NewParser(rs io.ReadSeeker, opts ...ParserOption) *Parser {
	p := &Parser{rs: rs, size: -1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close releases the source. The source itself is not closed.
func (p *Parser) Close() {
	p.rs = nil
	p.lexer = nil
	p.pending = nil
}

// Seek positions the parser at offset and drops any lookahead.
func (p *Parser) Seek(offset int64) error {
	if p.rs == nil {
		return errors.New("parser is closed")
	}
	if _, err := p.rs.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", offset, err)
	}
	if p.lexer == nil {
		p.lexer = NewLexer(p.rs, offset)
	} else {
		p.lexer.Reset(p.rs, offset)
	}
	p.pending = p.pending[:0]
	return nil
}

// Size returns the length of the source in bytes.
func (p *Parser) Size() (int64, error) {
	if p.size >= 0 {
		return p.size, nil
	}
	if p.rs == nil {
		return 0, errors.New("parser is closed")
	}
	n, err := p.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("determine file size: %w", err)
	}
	p.size = n
	return n, nil
}

func (p *Parser) next() (*Token, error) {
	if n := len(p.pending); n > 0 {
		tok := p.pending[n-1]
		p.pending = p.pending[:n-1]
		return tok, nil
	}
	if p.lexer == nil {
		return nil, errors.New("parser is not positioned")
	}
	return p.lexer.NextToken()
}

func (p *Parser) unread(tok *Token) {
	p.pending = append(p.pending, tok)
}

func (p *Parser) peek() (*Token, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	p.unread(tok)
	return tok, nil
}

func (p *Parser) expectKeyword(kw string) (*Token, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if !tok.IsKeyword(kw) {
		return nil, formatErr(tok.Pos, "keyword '"+kw+"'", tok.Describe())
	}
	return tok, nil
}

func (p *Parser) expectInt(what string) (int64, *Token, error) {
	tok, err := p.next()
	if err != nil {
		return 0, nil, err
	}
	if tok.Type != TokenInteger {
		return 0, nil, formatErr(tok.Pos, what, tok.Describe())
	}
	v, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		return 0, nil, formatErr(tok.Pos, what, tok.Describe())
	}
	return v, tok, nil
}

// ParseHeader reads the %PDF-M.m marker at the start of the file.
func (p *Parser) ParseHeader() (Version, error) {
	if err := p.Seek(0); err != nil {
		return Version{}, err
	}
	buf := make([]byte, 32)
	n, err := io.ReadFull(p.rs, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Version{}, fmt.Errorf("read header: %w", err)
	}
	buf = buf[:n]
	m := headerPattern.FindSubmatch(buf)
	if m == nil {
		line := buf
		if i := bytes.IndexAny(line, "\r\n"); i >= 0 {
			line = line[:i]
		}
		return Version{}, formatErr(0, "%PDF-M.m header", strconv.Quote(string(line)))
	}
	major, err1 := strconv.Atoi(string(m[1]))
	minor, err2 := strconv.Atoi(string(m[2]))
	if err1 != nil || err2 != nil {
		return Version{}, formatErr(0, "%PDF-M.m header", strconv.Quote(string(m[0])))
	}
	return Version{Major: major, Minor: minor}, nil
}

// ParseXRefOffset finds the last startxref keyword near the end of the file
// and returns the offset that follows it.
func (p *Parser) ParseXRefOffset() (int64, error) {
	size, err := p.Size()
	if err != nil {
		return 0, err
	}
	start := size - tailSize
	if start < 0 {
		start = 0
	}
	if _, err := p.rs.Seek(start, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek to file tail: %w", err)
	}
	tail := make([]byte, size-start)
	if _, err := io.ReadFull(p.rs, tail); err != nil {
		return 0, fmt.Errorf("read file tail: %w", err)
	}

	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, formatErr(size, "keyword 'startxref' near end of file", "")
	}
	if err := p.Seek(start + int64(idx)); err != nil {
		return 0, err
	}
	if _, err := p.expectKeyword("startxref"); err != nil {
		return 0, err
	}
	offset, tok, err := p.expectInt("cross-reference offset")
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset >= size {
		return 0, formatErr(tok.Pos, "cross-reference offset inside the file", strconv.FormatInt(offset, 10))
	}
	return offset, nil
}

// ParseXRef parses the classic cross-reference section at offset. On success
// the parser is positioned at the trailer keyword that follows it.
func (p *Parser) ParseXRef(offset int64) ([]XRefEntry, error) {
	if err := p.Seek(offset); err != nil {
		return nil, err
	}
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if !tok.IsKeyword("xref") {
		found := tok.Describe()
		if tok.Type == TokenInteger {
			found += " (cross-reference streams are not supported)"
		}
		return nil, formatErr(tok.Pos, "keyword 'xref'", found)
	}

	var entries []XRefEntry
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.IsKeyword("trailer") {
			return entries, nil
		}
		if tok.Type != TokenInteger {
			return nil, formatErr(tok.Pos, "subsection header or 'trailer'", tok.Describe())
		}

		first, firstTok, err := p.expectInt("subsection start id")
		if err != nil {
			return nil, err
		}
		count, _, err := p.expectInt("subsection entry count")
		if err != nil {
			return nil, err
		}
		if first < 0 || count < 0 {
			return nil, formatErr(firstTok.Pos, "non-negative subsection bounds", fmt.Sprintf("%d %d", first, count))
		}
		for i := int64(0); i < count; i++ {
			entry, err := p.parseEntry(int(first + i))
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}
}

// parseEntry parses one "oooooooooo ggggg n" line.
func (p *Parser) parseEntry(id int) (XRefEntry, error) {
	off, offTok, err := p.expectInt("entry offset")
	if err != nil {
		return XRefEntry{}, err
	}
	gen, _, err := p.expectInt("entry generation")
	if err != nil {
		return XRefEntry{}, err
	}
	kind, err := p.next()
	if err != nil {
		return XRefEntry{}, err
	}
	if !kind.IsKeyword("n") && !kind.IsKeyword("f") {
		return XRefEntry{}, formatErr(kind.Pos, "entry type 'n' or 'f'", kind.Describe())
	}
	return XRefEntry{
		Position:   offTok.Pos,
		ID:         id,
		Generation: int(gen),
		Offset:     off,
		InUse:      kind.IsKeyword("n"),
	}, nil
}

// ParseTrailer parses "trailer << ... >>" at the current position.
func (p *Parser) ParseTrailer() (*Dict, error) {
	if _, err := p.expectKeyword("trailer"); err != nil {
		return nil, err
	}
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenDictStart {
		return nil, formatErr(tok.Pos, "trailer dictionary", tok.Describe())
	}
	return p.parseDict(tok)
}

// ParseIndirectObject parses "id gen obj <value> [stream ... endstream] endobj"
// at offset.
func (p *Parser) ParseIndirectObject(offset int64) (*IndirectObject, error) {
	if p.onParse != nil {
		p.onParse(offset)
	}
	if err := p.Seek(offset); err != nil {
		return nil, err
	}

	id, idTok, err := p.expectInt("object number")
	if err != nil {
		return nil, err
	}
	gen, _, err := p.expectInt("generation number")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("obj"); err != nil {
		return nil, err
	}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", id, gen, err)
	}

	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.IsKeyword("stream") {
		dict, ok := obj.(*Dict)
		if !ok {
			return nil, formatErr(tok.Pos, "dictionary before 'stream'", obj.Type().String())
		}
		stream, err := p.parseStream(dict, tok)
		if err != nil {
			return nil, fmt.Errorf("object %d %d: %w", id, gen, err)
		}
		obj = stream
		if tok, err = p.next(); err != nil {
			return nil, err
		}
	}
	if !tok.IsKeyword("endobj") {
		return nil, formatErr(tok.Pos, "keyword 'endobj'", tok.Describe())
	}

	return &IndirectObject{
		ID:       int(id),
		Gen:      int(gen),
		Object:   obj,
		Position: idTok.Pos,
	}, nil
}

// ParseObject parses the next value at the current position.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenKeyword:
		kw := string(tok.Value)
		switch {
		case kw == "true" || kw == "false":
			return Bool{Value: kw == "true", Position: tok.Pos}, nil
		case reserved[kw]:
			return nil, formatErr(tok.Pos, "value", tok.Describe())
		default:
			return Identifier{Value: kw, Position: tok.Pos}, nil
		}

	case TokenInteger:
		return p.parseNumber(tok)

	case TokenReal:
		val, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, formatErr(tok.Pos, "real number", tok.Describe())
		}
		return Real{Value: val, Position: tok.Pos}, nil

	case TokenString, TokenHexString:
		return String{Value: tok.Value, Hex: tok.Type == TokenHexString, Position: tok.Pos}, nil

	case TokenName:
		return Name{Value: string(tok.Value), Position: tok.Pos}, nil

	case TokenArrayStart:
		return p.parseArray(tok)

	case TokenDictStart:
		return p.parseDict(tok)

	default:
		return nil, formatErr(tok.Pos, "value", tok.Describe())
	}
}

// parseNumber parses an integer or an indirect reference. "id gen R" is told
// apart from two integers by looking two tokens ahead.
func (p *Parser) parseNumber(first *Token) (Object, error) {
	val, err := strconv.ParseInt(string(first.Value), 10, 64)
	if err != nil {
		return nil, formatErr(first.Pos, "integer", first.Describe())
	}
	n := Int{Value: val, Position: first.Pos}

	second, err := p.peek()
	if err != nil {
		return nil, err
	}
	if second.Type != TokenInteger {
		return n, nil
	}
	p.next()
	third, err := p.peek()
	if err != nil {
		return nil, err
	}
	if !third.IsKeyword("R") {
		p.unread(second)
		return n, nil
	}
	p.next()

	gen, err := strconv.ParseInt(string(second.Value), 10, 64)
	if err != nil || val < 0 || gen < 0 {
		return nil, formatErr(first.Pos, "object reference", fmt.Sprintf("%s %s R", first.Value, second.Value))
	}
	return IndirectRef{ID: int(val), Gen: int(gen), Position: first.Pos}, nil
}

// parseArray parses a PDF array "[obj1 obj2 ...]".
func (p *Parser) parseArray(open *Token) (Object, error) {
	arr := &Array{Position: open.Pos}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			p.next()
			return arr, nil
		case TokenEOF:
			return nil, formatErr(tok.Pos, "']'", tok.Describe())
		}

		obj, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		arr.Items = append(arr.Items, obj)
	}
}

// parseDict parses the body of a dictionary whose "<<" was already read.
func (p *Parser) parseDict(open *Token) (*Dict, error) {
	dict := NewDict()
	dict.Position = open.Pos
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenDictEnd {
			return dict, nil
		}
		if tok.Type != TokenName {
			return nil, formatErr(tok.Pos, "name as dictionary key or '>>'", tok.Describe())
		}
		key := string(tok.Value)

		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("value for /%s: %w", key, err)
		}
		dict.Set(key, value)
	}
}

// parseStream reads the stream body that follows the stream keyword, using
// /Length from dict. An indirect /Length is resolved through the parser's
// resolver, which may move the source, so the body is located from the
// keyword's end offset rather than from the current position.
func (p *Parser) parseStream(dict *Dict, kw *Token) (*Stream, error) {
	length, err := p.streamLength(dict, kw.Pos)
	if err != nil {
		return nil, err
	}
	size, err := p.Size()
	if err != nil {
		return nil, err
	}

	// stream is followed by LF or CRLF; a bare CR is accepted too
	start := kw.End
	if _, err := p.rs.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to stream data: %w", err)
	}
	eol := make([]byte, 2)
	n, _ := io.ReadFull(p.rs, eol)
	switch {
	case n >= 1 && eol[0] == '\n':
		start++
	case n == 2 && eol[0] == '\r' && eol[1] == '\n':
		start += 2
	case n >= 1 && eol[0] == '\r':
		start++
	}

	if length > size-start {
		return nil, formatErr(start, fmt.Sprintf("%d bytes of stream data", length),
			fmt.Sprintf("%d bytes before end of file", size-start))
	}
	if _, err := p.rs.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to stream data: %w", err)
	}
	data := make([]byte, length)
	if n, err := io.ReadFull(p.rs, data); err != nil {
		return nil, formatErr(start, fmt.Sprintf("%d bytes of stream data", length), fmt.Sprintf("%d bytes", n))
	}

	p.lexer.Reset(p.rs, start+length)
	p.pending = p.pending[:0]
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if !tok.IsKeyword("endstream") {
		return nil, formatErr(tok.Pos, "keyword 'endstream' after /Length bytes", tok.Describe())
	}

	return &Stream{
		Dict:       dict,
		Data:       data,
		DataOffset: start,
		Position:   dict.Position,
	}, nil
}

func (p *Parser) streamLength(dict *Dict, at int64) (int64, error) {
	lengthObj := dict.Get("Length")
	if lengthObj == nil {
		return 0, formatErr(dict.Position, "/Length in stream dictionary", "")
	}

	var length int64
	switch v := lengthObj.(type) {
	case Int:
		length = v.Value
	case IndirectRef:
		if p.resolver == nil {
			return 0, fmt.Errorf("stream /Length %s needs a reference resolver", v)
		}
		resolved, err := p.resolver.ResolveReference(v)
		if err != nil {
			return 0, fmt.Errorf("resolve stream length %s: %w", v, err)
		}
		n, ok := resolved.(Int)
		if !ok {
			found := "nothing"
			if resolved != nil {
				found = resolved.Type().String()
			}
			return 0, formatErr(v.Position, "integer stream length", found)
		}
		length = n.Value
	default:
		return 0, formatErr(lengthObj.Pos(), "integer or reference for /Length", lengthObj.Type().String())
	}

	if length < 0 {
		return 0, formatErr(at, "non-negative stream length", strconv.FormatInt(length, 10))
	}
	return length, nil
}
