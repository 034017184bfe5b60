package filters

import "fmt"

// Unpredict reverses the TIFF (2) or PNG (10-15) predictor named by
// params["Predictor"]. Data without a predictor is returned unchanged.
func Unpredict(data []byte, params Params) ([]byte, error) {
	predictor := getIntParam(params, "Predictor", 1)
	if predictor <= 1 {
		return data, nil
	}
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)
	columns := getIntParam(params, "Columns", 1)
	if colors < 1 || bpc < 1 || columns < 1 {
		return nil, fmt.Errorf("predictor: invalid geometry colors=%d bpc=%d columns=%d", colors, bpc, columns)
	}
	bpp := (colors*bpc + 7) / 8
	rowLen := (columns*colors*bpc + 7) / 8

	switch {
	case predictor == 2:
		return tiffUnpredict(data, rowLen, colors, bpc)
	case predictor >= 10 && predictor <= 15:
		return pngUnpredict(data, rowLen, bpp)
	}
	return nil, fmt.Errorf("predictor: unsupported value %d", predictor)
}

func tiffUnpredict(data []byte, rowLen, colors, bpc int) ([]byte, error) {
	if bpc != 8 {
		return nil, fmt.Errorf("predictor: TIFF predictor needs 8 bits per component, got %d", bpc)
	}
	out := make([]byte, len(data))
	copy(out, data)
	for start := 0; start < len(out); start += rowLen {
		end := start + rowLen
		if end > len(out) {
			end = len(out)
		}
		for i := start + colors; i < end; i++ {
			out[i] += out[i-colors]
		}
	}
	return out, nil
}

// pngUnpredict decodes rows that each start with a PNG filter-type byte. A
// short final row is decoded as far as it goes.
func pngUnpredict(data []byte, rowLen, bpp int) ([]byte, error) {
	stride := rowLen + 1
	out := make([]byte, 0, len(data)/stride*rowLen+rowLen)
	prev := make([]byte, rowLen)
	cur := make([]byte, rowLen)

	for start := 0; start < len(data); start += stride {
		end := start + stride
		if end > len(data) {
			end = len(data)
		}
		typ := data[start]
		row := data[start+1 : end]
		n := len(row)
		copy(cur, row)

		switch typ {
		case 0:
		case 1:
			for i := bpp; i < n; i++ {
				cur[i] += cur[i-bpp]
			}
		case 2:
			for i := 0; i < n; i++ {
				cur[i] += prev[i]
			}
		case 3:
			for i := 0; i < n; i++ {
				var left byte
				if i >= bpp {
					left = cur[i-bpp]
				}
				cur[i] += byte((int(left) + int(prev[i])) / 2)
			}
		case 4:
			for i := 0; i < n; i++ {
				var left, upLeft byte
				if i >= bpp {
					left = cur[i-bpp]
					upLeft = prev[i-bpp]
				}
				cur[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("predictor: unknown PNG filter type %d in row %d", typ, start/stride)
		}
		out = append(out, cur[:n]...)
		prev, cur = cur, prev
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
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
