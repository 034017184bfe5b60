package filters

import "fmt"

// RunLengthDecode expands RunLengthDecode data. A length byte n in 0..127
// copies the next n+1 bytes, 129..255 repeats the next byte 257-n times and
// 128 ends the data.
func RunLengthDecode(data []byte, limit int64) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out, nil
		case n < 128:
			end := i + n + 1
			if end > len(data) {
				end = len(data)
			}
			out = append(out, data[i:end]...)
			i = end
		default:
			if i >= len(data) {
				return out, nil
			}
			for j := 0; j < 257-n; j++ {
				out = append(out, data[i])
			}
			i++
		}
		if limit > 0 && int64(len(out)) > limit {
			return nil, fmt.Errorf("runlength: %w (%d bytes)", ErrLimitExceeded, limit)
		}
	}
	return out, nil
}
