package filters

import (
	"bytes"
	"compress/lzw"
	"errors"
	"fmt"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// LZWDecode decodes LZW data. With the default /EarlyChange 1 the code width
// grows one code early, which is the TIFF variant; /EarlyChange 0 matches the
// classic encoder.
func LZWDecode(data []byte, params Params, limit int64) ([]byte, error) {
	var r io.ReadCloser
	if getIntParam(params, "EarlyChange", 1) == 0 {
		r = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	} else {
		r = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
	}
	defer r.Close()

	out, err := readLimited(r, limit)
	if err != nil && (errors.Is(err, ErrLimitExceeded) || len(out) == 0) {
		return nil, fmt.Errorf("lzw: %w", err)
	}
	return Unpredict(out, params)
}
