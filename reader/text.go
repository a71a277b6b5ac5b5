package reader

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

// pdfDocDiffs holds the PDFDocEncoding code points that differ from
// ISO-8859-1.
var pdfDocDiffs = map[byte]rune{
	0x18: '˘', 0x19: 'ˇ', 0x1A: 'ˆ', 0x1B: '˙',
	0x1C: '˝', 0x1D: '˛', 0x1E: '˚', 0x1F: '˜',
	0x80: '•', 0x81: '†', 0x82: '‡', 0x83: '…',
	0x84: '—', 0x85: '–', 0x86: 'ƒ', 0x87: '⁄',
	0x88: '‹', 0x89: '›', 0x8A: '−', 0x8B: '‰',
	0x8C: '„', 0x8D: '“', 0x8E: '”', 0x8F: '‘',
	0x90: '’', 0x91: '‚', 0x92: '™', 0x93: 'ﬁ',
	0x94: 'ﬂ', 0x95: 'Ł', 0x96: 'Œ', 0x97: 'Š',
	0x98: 'Ÿ', 0x99: 'Ž', 0x9A: 'ı', 0x9B: 'ł',
	0x9C: 'œ', 0x9D: 'š', 0x9E: 'ž', 0x9F: '�',
	0xA0: '€', 0xAD: '�',
}

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// decodeText converts a PDF text string to NFC-normalised UTF-8.
func decodeText(b []byte) string {
	var (
		out []byte
		err error
	)
	switch {
	case bytes.HasPrefix(b, bomUTF16BE):
		out, err = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
	case bytes.HasPrefix(b, bomUTF16LE):
		out, err = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
	case bytes.HasPrefix(b, bomUTF8):
		out, err = unicode.UTF8BOM.NewDecoder().Bytes(b)
	default:
		return norm.NFC.String(pdfDocDecode(b))
	}
	if err != nil {
		return norm.NFC.String(pdfDocDecode(b))
	}
	return norm.NFC.String(string(out))
}

func pdfDocDecode(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		if r, ok := pdfDocDiffs[c]; ok {
			runes[i] = r
			continue
		}
		runes[i] = charmap.ISO8859_1.DecodeByte(c)
	}
	return string(runes)
}
