package filters

import "fmt"

// ASCIIHexDecode decodes hexadecimal data. Whitespace is ignored, '>' ends
// the data and an odd final digit is padded with zero.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	half := false
	for _, c := range data {
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		v, ok := hexValue(c)
		if !ok {
			return nil, fmt.Errorf("asciihex: invalid digit %q", c)
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out, nil
}

// ASCII85Decode decodes base-85 data. 'z' stands for four zero bytes and
// "~>" ends the data. A leading "<~" is tolerated.
func ASCII85Decode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*4/5)
	var group [5]byte
	n := 0

	i := 0
	if len(data) >= 2 && data[0] == '<' && data[1] == '~' {
		i = 2
	}
	for ; i < len(data); i++ {
		c := data[i]
		switch {
		case isWhitespace(c):
			continue
		case c == '~':
			i = len(data)
			continue
		case c == 'z' && n == 0:
			out = append(out, 0, 0, 0, 0)
			continue
		case c < '!' || c > 'u':
			return nil, fmt.Errorf("ascii85: invalid character %q", c)
		}
		group[n] = c - '!'
		n++
		if n == 5 {
			out = appendGroup(out, group, 4)
			n = 0
		}
	}
	if n == 1 {
		return nil, fmt.Errorf("ascii85: trailing single character")
	}
	if n > 1 {
		for j := n; j < 5; j++ {
			group[j] = 84
		}
		out = appendGroup(out, group, n-1)
	}
	return out, nil
}

func appendGroup(out []byte, g [5]byte, count int) []byte {
	var v uint32
	for _, d := range g {
		v = v*85 + uint32(d)
	}
	for j := 0; j < count; j++ {
		out = append(out, byte(v>>(24-8*j)))
	}
	return out
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
