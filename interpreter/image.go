package interpreter

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"github.com/tsawler/pagedecode/core"
	"github.com/tsawler/pagedecode/graphicsstate"
	"github.com/tsawler/pagedecode/model"
)

// ErrUnsupportedImage is returned by Decode for JPX and JBIG2 data.
var ErrUnsupportedImage = errors.New("unsupported image encoding")

// ImageData is an image XObject or inline image with its samples.
type ImageData struct {
	// Name is the XObject resource name; empty for inline images.
	Name   string
	Ref    core.ObjectRef
	Inline bool

	Width            int
	Height           int
	BitsPerComponent int
	// ColorSpace is nil for image masks.
	ColorSpace *graphicsstate.ColorSpace
	ImageMask  bool
	// MaskColor is the fill color a stencil mask paints with.
	MaskColor color.RGBA
	// DecodeArray is the /Decode array, or nil.
	DecodeArray []float64

	// Filter is the image codec still applied to Data (DCTDecode,
	// JPXDecode or JBIG2Decode), or "" for raw samples.
	Filter string
	Data   []byte
}

// IsCMYK reports whether the samples are CMYK.
func (im *ImageData) IsCMYK() bool {
	if im.ColorSpace == nil {
		return false
	}
	return graphicsstate.Color{Space: im.ColorSpace}.IsCMYK()
}

func (im *ImageData) components() int {
	if im.ImageMask || im.ColorSpace == nil {
		return 1
	}
	return im.ColorSpace.N
}

// Decode returns the image as pixels.
func (im *ImageData) Decode() (image.Image, error) {
	switch im.Filter {
	case "":
	case "DCTDecode", "DCT":
		img, err := jpeg.Decode(bytes.NewReader(im.Data))
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", im.label(), err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("image %s: %w: %s", im.label(), ErrUnsupportedImage, im.Filter)
	}
	if im.Width <= 0 || im.Height <= 0 {
		return nil, fmt.Errorf("image %s: bad size %dx%d", im.label(), im.Width, im.Height)
	}
	bpc := im.BitsPerComponent
	switch bpc {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("image %s: %d bits per component", im.label(), bpc)
	}
	n := im.components()
	stride := (im.Width*n*bpc + 7) / 8
	if len(im.Data) < stride*im.Height {
		return nil, fmt.Errorf("image %s: %d bytes of samples, want %d", im.label(), len(im.Data), stride*im.Height)
	}

	out := image.NewRGBA(image.Rect(0, 0, im.Width, im.Height))
	maxVal := float64(int(1)<<bpc - 1)
	indexed := im.ColorSpace != nil && im.ColorSpace.Family == "Indexed"
	comps := make([]float64, n)
	for y := 0; y < im.Height; y++ {
		row := im.Data[y*stride : (y+1)*stride]
		for x := 0; x < im.Width; x++ {
			for c := 0; c < n; c++ {
				v := float64(sample(row, x*n+c, bpc))
				if !indexed {
					v /= maxVal
				}
				if d := im.DecodeArray; len(d) >= 2*(c+1) {
					if indexed {
						v = d[2*c] + v*(d[2*c+1]-d[2*c])/maxVal
					} else {
						v = d[2*c] + v*(d[2*c+1]-d[2*c])
					}
				}
				comps[c] = v
			}
			if im.ImageMask {
				// Sample 0 paints unless /Decode is [1 0].
				if comps[0] < 0.5 {
					out.SetRGBA(x, y, im.MaskColor)
				}
				continue
			}
			r, g, b := im.ColorSpace.RGB(comps)
			out.SetRGBA(x, y, color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: 255})
		}
	}
	return out, nil
}

func (im *ImageData) label() string {
	if im.Inline {
		return "inline"
	}
	return im.Name
}

// sample reads the i-th bpc-bit value of row.
func sample(row []byte, i, bpc int) int {
	switch bpc {
	case 8:
		return int(row[i])
	case 16:
		return int(row[2*i])<<8 | int(row[2*i+1])
	}
	bit := i * bpc
	b := row[bit/8]
	shift := 8 - bpc - bit%8
	return int(b>>uint(shift)) & (1<<uint(bpc) - 1)
}

func to8(f float64) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(math.Round(f * 255))
}

// convertCMYK replaces CMYK samples with RGB samples. JPEG data is decoded.
func (im *ImageData) convertCMYK() error {
	if !im.IsCMYK() {
		return nil
	}
	switch im.Filter {
	case "DCTDecode", "DCT":
		img, err := im.Decode()
		if err != nil {
			return err
		}
		b := img.Bounds()
		rgb := make([]byte, 0, b.Dx()*b.Dy()*3)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
				rgb = append(rgb, c.R, c.G, c.B)
			}
		}
		im.Width, im.Height = b.Dx(), b.Dy()
		im.Data = rgb
	case "":
		if im.BitsPerComponent != 8 {
			return nil
		}
		px := len(im.Data) / 4
		rgb := make([]byte, px*3)
		for i := 0; i < px; i++ {
			c, m, y, k := im.Data[4*i], im.Data[4*i+1], im.Data[4*i+2], im.Data[4*i+3]
			r, g, b := color.CMYKToRGB(c, m, y, k)
			rgb[3*i], rgb[3*i+1], rgb[3*i+2] = r, g, b
		}
		im.Data = rgb
	default:
		return nil
	}
	im.Filter = ""
	im.BitsPerComponent = 8
	im.ColorSpace = graphicsstate.DeviceRGB
	im.DecodeArray = nil
	return nil
}

// sampleRegion maps the visible device box back to image samples. The
// image's unit square has row 0 at its top edge.
func sampleRegion(ctm model.Matrix, visible model.BBox, w, h int) image.Rectangle {
	inv, ok := ctm.Inverse()
	if !ok || visible.IsEmpty() {
		return image.Rectangle{}
	}
	u := visible.Transform(inv)
	x0 := int(math.Floor(u.Left() * float64(w)))
	x1 := int(math.Ceil(u.Right() * float64(w)))
	y0 := int(math.Floor((1 - u.Top()) * float64(h)))
	y1 := int(math.Ceil((1 - u.Bottom()) * float64(h)))
	return image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, w, h))
}
