package core

import (
	"fmt"

	"github.com/tsawler/pdfgraph/internal/filters"
)

// Filters returns the stream's filter names in application order.
func (s *Stream) Filters() ([]string, error) {
	switch f := s.Dict.Get("Filter").(type) {
	case nil:
		return nil, nil
	case Name:
		return []string{f.Value}, nil
	case *Array:
		names := make([]string, 0, f.Len())
		for i, item := range f.Items {
			n, ok := item.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is %s, not a name", i, item.Type())
			}
			names = append(names, n.Value)
		}
		return names, nil
	case Identifier:
		if f.IsNull() {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("invalid /Filter of type %s", s.Dict.Get("Filter").Type())
}

// Decode applies the stream's /Filter chain to Data. Image codecs (DCT, JPX,
// JBIG2) end the chain and return their input unchanged.
func (s *Stream) Decode() ([]byte, error) {
	names, err := s.Filters()
	if err != nil {
		return nil, err
	}

	data := s.Data
	for i, name := range names {
		params := s.decodeParams(i)
		var done bool
		data, done, err = decodeWithFilter(data, name, params)
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s): %w", i, name, err)
		}
		if done {
			break
		}
	}
	return data, nil
}

// decodeParams returns the parameters for the i-th filter. /DecodeParms is
// either one dictionary or an array parallel to /Filter.
func (s *Stream) decodeParams(i int) filters.Params {
	var dict *Dict
	switch p := s.Dict.Get("DecodeParms").(type) {
	case *Dict:
		dict = p
	case *Array:
		dict, _ = p.Get(i).(*Dict)
	}
	return paramsFromDict(dict)
}

func paramsFromDict(d *Dict) filters.Params {
	var p filters.Params
	if d == nil {
		return p
	}
	intOf := func(key string) int {
		v, _ := d.GetInt(key)
		return int(v)
	}
	p.Predictor = intOf("Predictor")
	p.Colors = intOf("Colors")
	p.BitsPerComponent = intOf("BitsPerComponent")
	p.Columns = intOf("Columns")
	p.K = intOf("K")
	p.Rows = intOf("Rows")
	p.BlackIs1, _ = d.GetBool("BlackIs1")
	if ec, ok := d.GetInt("EarlyChange"); ok && ec == 0 {
		p.NoEarlyChange = true
	}
	return p
}

// decodeWithFilter applies one filter. done reports that the data is now in an
// image codec's format and no further filters can apply.
func decodeWithFilter(data []byte, name string, params filters.Params) (out []byte, done bool, err error) {
	switch name {
	case "FlateDecode", "Fl":
		out, err = filters.FlateDecode(data, params)
	case "LZWDecode", "LZW":
		out, err = filters.LZWDecode(data, params)
	case "ASCIIHexDecode", "AHx":
		out, err = filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		out, err = filters.ASCII85Decode(data)
	case "RunLengthDecode", "RL":
		out, err = filters.RunLengthDecode(data)
	case "CCITTFaxDecode", "CCF":
		out, err = filters.CCITTFaxDecode(data, params)
	case "DCTDecode", "DCT", "JPXDecode", "JBIG2Decode":
		return data, true, nil
	case "Crypt":
		// strings and streams are already decrypted by the registry
		return data, false, nil
	default:
		return nil, false, fmt.Errorf("unknown filter")
	}
	return out, false, err
}
