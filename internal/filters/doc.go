// Package filters implements the standard PDF stream decoding filters.
//
// Each decoder takes the encoded bytes and the stream's decode parameters and
// returns the decoded bytes:
//
//	decoded, err := filters.FlateDecode(data, filters.Params{Predictor: 12, Columns: 5})
//
// Supported filters are FlateDecode and LZWDecode (both with TIFF and PNG
// predictors), ASCIIHexDecode, ASCII85Decode, RunLengthDecode and
// CCITTFaxDecode. Image codecs such as DCTDecode are left to callers.
package filters
