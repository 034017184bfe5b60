package filters

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrLimitExceeded is returned when decoded output would exceed the
// configured size limit.
var ErrLimitExceeded = errors.New("decoded data exceeds size limit")

// ErrUnsupported is returned for filters that are recognised but not decoded
// here (image codecs handled by the consumer are passed through instead).
var ErrUnsupported = errors.New("unsupported filter")

// Params represents decode parameters from a stream's /DecodeParms
// dictionary, already converted to Go primitives (int, float64, bool, string).
type Params map[string]interface{}

// Passthrough reports whether name is an image codec whose bytes are handed
// to the consumer undecoded.
func Passthrough(name string) bool {
	switch name {
	case "DCTDecode", "DCT", "JPXDecode", "JBIG2Decode":
		return true
	}
	return false
}

// Decode applies the filter called name to data. limit caps the output size;
// zero or negative means unlimited.
func Decode(name string, data []byte, params Params, limit int64) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return FlateDecode(data, params, limit)
	case "LZWDecode", "LZW":
		return LZWDecode(data, params, limit)
	case "ASCIIHexDecode", "AHx":
		return ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return ASCII85Decode(data)
	case "RunLengthDecode", "RL":
		return RunLengthDecode(data, limit)
	case "CCITTFaxDecode", "CCF":
		return CCITTFaxDecode(data, params, limit)
	}
	if Passthrough(name) {
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
}

// readLimited drains r, failing with ErrLimitExceeded past limit bytes.
// A truncated compressed stream still yields what was decoded before the
// break, together with the error.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	if limit <= 0 {
		_, err := io.Copy(&buf, r)
		return buf.Bytes(), err
	}
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if n > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrLimitExceeded, limit)
	}
	return buf.Bytes(), err
}

// getIntParam extracts an integer parameter, returning def when the key is
// missing or not numeric.
func getIntParam(params Params, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func getBoolParam(params Params, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}
