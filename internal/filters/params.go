package filters

// Params holds the entries of a /DecodeParms dictionary that the decoders
// understand. A zero numeric field means the entry was absent and the filter's
// default applies.
type Params struct {
	Predictor        int
	Colors           int
	BitsPerComponent int
	Columns          int

	// NoEarlyChange records /EarlyChange 0 for LZWDecode.
	NoEarlyChange bool

	// CCITTFaxDecode
	K        int
	Rows     int
	BlackIs1 bool
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
