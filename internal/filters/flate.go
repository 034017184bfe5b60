package filters

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// FlateDecode inflates zlib data and undoes any /Predictor transform.
// Streams cut short by a damaged file are returned up to the point of damage.
func FlateDecode(data []byte, params Params, limit int64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("flate: %w", err)
	}
	defer zr.Close()

	out, err := readLimited(zr, limit)
	if err != nil {
		if errors.Is(err, ErrLimitExceeded) || len(out) == 0 {
			return nil, fmt.Errorf("flate: %w", err)
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, zlib.ErrChecksum) {
			return nil, fmt.Errorf("flate: %w", err)
		}
	}
	return Unpredict(out, params)
}
