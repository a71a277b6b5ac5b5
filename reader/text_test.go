package reader

import "testing"

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"ascii", []byte("Hello"), "Hello"},
		{"latin-1", []byte{'c', 'a', 'f', 0xE9}, "café"},
		{"pdfdoc bullet and dash", []byte{0x80, ' ', 0x84}, "• —"},
		{"pdfdoc ligature", []byte{0x93}, "ﬁ"},
		{"pdfdoc euro", []byte{0xA0}, "€"},
		{"utf-16be", []byte{0xFE, 0xFF, 0x00, 'H', 0x00, 'i'}, "Hi"},
		{"utf-16be surrogate", []byte{0xFE, 0xFF, 0xD8, 0x3D, 0xDE, 0x00}, "😀"},
		{"utf-16le", []byte{0xFF, 0xFE, 'O', 0x00, 'K', 0x00}, "OK"},
		{"utf-8 bom", []byte{0xEF, 0xBB, 0xBF, 'z', 0xC3, 0xBC}, "zü"},
		{"nfc", []byte{0xFE, 0xFF, 0x00, 'e', 0x03, 0x01}, "é"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeText(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
