// Package filters implements the PDF stream decoding filters.
//
// [Decode] dispatches on the filter name (long or abbreviated form) and
// applies a size limit to the output:
//
//	out, err := filters.Decode("FlateDecode", raw, filters.Params{"Predictor": 12, "Columns": 5}, 64<<20)
//
// FlateDecode and LZWDecode honour the PNG and TIFF predictors. DCTDecode,
// JPXDecode and JBIG2Decode data is returned unchanged for the image
// consumer. Decoded output larger than the limit fails with
// [ErrLimitExceeded].
package filters
