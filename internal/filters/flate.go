package filters

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// FlateDecode inflates zlib data and undoes any predictor named in params.
// A truncated stream that still produced output is accepted; writers often
// omit the checksum.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("flate: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil && !(errors.Is(err, io.ErrUnexpectedEOF) && len(out) > 0) {
		return nil, fmt.Errorf("flate: %w", err)
	}
	return unpredict(out, params)
}

// unpredict reverses a TIFF (2) or PNG (10..15) predictor.
func unpredict(data []byte, params Params) ([]byte, error) {
	switch p := orDefault(params.Predictor, 1); {
	case p == 1 || (len(data) == 0 && (p == 2 || p >= 10 && p <= 15)):
		return data, nil
	case p == 2:
		return tiffUnpredict(data, params)
	case p >= 10 && p <= 15:
		return pngUnpredict(data, params)
	default:
		return nil, fmt.Errorf("unsupported predictor %d", p)
	}
}

// geometry returns bytes per complete pixel (at least 1) and bytes per row.
// A row longer than the data it decodes is rejected.
func geometry(params Params, dataLen int) (bpp, rowLen int, err error) {
	colors := orDefault(params.Colors, 1)
	bpc := orDefault(params.BitsPerComponent, 8)
	columns := orDefault(params.Columns, 1)

	if colors > 32 {
		return 0, 0, fmt.Errorf("predictor with %d colors", colors)
	}
	switch bpc {
	case 1, 2, 4, 8, 16:
	default:
		return 0, 0, fmt.Errorf("predictor with %d bits per component", bpc)
	}
	bitsPerPixel := colors * bpc
	if columns > (dataLen*8+7)/bitsPerPixel {
		return 0, 0, fmt.Errorf("predictor row of %d columns exceeds %d bytes of data", columns, dataLen)
	}

	bpp = (bitsPerPixel + 7) / 8
	rowLen = (columns*bitsPerPixel + 7) / 8
	if rowLen <= 0 {
		return 0, 0, fmt.Errorf("predictor row length %d", rowLen)
	}
	return bpp, rowLen, nil
}

func tiffUnpredict(data []byte, params Params) ([]byte, error) {
	if bpc := orDefault(params.BitsPerComponent, 8); bpc != 8 {
		return nil, fmt.Errorf("TIFF predictor with %d bits per component", bpc)
	}
	bpp, rowLen, err := geometry(params, len(data))
	if err != nil {
		return nil, err
	}
	if len(data)%rowLen != 0 {
		return nil, fmt.Errorf("TIFF predictor: %d bytes is not a whole number of %d-byte rows", len(data), rowLen)
	}

	out := make([]byte, len(data))
	copy(out, data)
	for row := 0; row < len(out); row += rowLen {
		line := out[row : row+rowLen]
		for i := bpp; i < len(line); i++ {
			line[i] += line[i-bpp]
		}
	}
	return out, nil
}

// pngUnpredict strips the per-row filter tag and reconstructs each row from
// the previous one.
func pngUnpredict(data []byte, params Params) ([]byte, error) {
	bpp, rowLen, err := geometry(params, len(data))
	if err != nil {
		return nil, err
	}
	stride := rowLen + 1

	rows := len(data) / stride
	if len(data)%stride != 0 {
		// a short final row is dropped
		data = data[:rows*stride]
	}

	out := make([]byte, 0, rows*rowLen)
	prev := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		tag := data[r*stride]
		cur := make([]byte, rowLen)
		copy(cur, data[r*stride+1:(r+1)*stride])

		for i := range cur {
			var left, upLeft byte
			up := prev[i]
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			switch tag {
			case 0:
			case 1:
				cur[i] += left
			case 2:
				cur[i] += up
			case 3:
				cur[i] += byte((int(left) + int(up)) / 2)
			case 4:
				cur[i] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("PNG predictor: unknown row filter %d in row %d", tag, r)
			}
		}
		out = append(out, cur...)
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
