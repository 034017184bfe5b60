package filters

import (
	"bytes"
	"fmt"

	"golang.org/x/image/ccitt"
)

// CCITTFaxDecode decodes Group 3 or Group 4 fax data into packed 1-bit rows.
//
// /K below zero selects Group 4, otherwise Group 3. /Columns defaults to
// 1728 and a missing /Rows lets the decoder find the end of the image.
// /EncodedByteAlign and /BlackIs1 map to the decoder's Align and Invert
// options.
func CCITTFaxDecode(data []byte, params Params, limit int64) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1728)
	rows := getIntParam(params, "Rows", 0)
	sf := ccitt.Group3
	if getIntParam(params, "K", 0) < 0 {
		sf = ccitt.Group4
	}
	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}
	opts := &ccitt.Options{
		Align:  getBoolParam(params, "EncodedByteAlign", false),
		Invert: getBoolParam(params, "BlackIs1", false),
	}
	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, columns, rows, opts)
	out, err := readLimited(r, limit)
	if err != nil {
		return nil, fmt.Errorf("ccitt: %w", err)
	}
	return out, nil
}
