package filters

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/image/ccitt"
)

// CCITTFaxDecode decodes Group 3 or Group 4 fax data into packed 1-bit rows.
// K < 0 selects Group 4; Columns defaults to 1728 and a missing Rows lets the
// decoder find the height itself.
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	sf := ccitt.Group3
	if params.K < 0 {
		sf = ccitt.Group4
	}
	rows := params.Rows
	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}

	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf,
		orDefault(params.Columns, 1728), rows, &ccitt.Options{Invert: params.BlackIs1})
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("CCITTFaxDecode: %w", err)
	}
	return out, nil
}
