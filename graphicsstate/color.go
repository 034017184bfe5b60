package graphicsstate

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/tsawler/pagedecode/core"
)

// ErrColorSpace is wrapped by color space parsing failures.
var ErrColorSpace = errors.New("unsupported color space")

// ColorSpace describes how color components are interpreted.
type ColorSpace struct {
	// Family is the PDF name, e.g. DeviceRGB, ICCBased or Indexed.
	Family string
	// N is the number of components of a color value.
	N int
	// Base is the underlying space of Indexed, ICCBased alternates,
	// Separation and DeviceN alternates, and uncolored patterns.
	Base *ColorSpace
	// HiVal and Lookup are set for Indexed spaces.
	HiVal  int
	Lookup []byte
}

var (
	DeviceGray = &ColorSpace{Family: "DeviceGray", N: 1}
	DeviceRGB  = &ColorSpace{Family: "DeviceRGB", N: 3}
	DeviceCMYK = &ColorSpace{Family: "DeviceCMYK", N: 4}
	Pattern    = &ColorSpace{Family: "Pattern", N: 0}
)

// ObjectResolver follows indirect references and decodes streams.
type ObjectResolver interface {
	ResolveObject(ctx context.Context, obj core.Object) (core.Object, error)
	StreamData(ctx context.Context, obj core.Object) (*core.Stream, []byte, error)
}

// DeviceSpace returns the color space for a family name that needs no
// resources, or nil.
func DeviceSpace(name core.Name) *ColorSpace {
	switch name {
	case "DeviceGray", "G", "CalGray":
		return DeviceGray
	case "DeviceRGB", "RGB", "CalRGB":
		return DeviceRGB
	case "DeviceCMYK", "CMYK":
		return DeviceCMYK
	case "Pattern":
		return Pattern
	}
	return nil
}

const maxColorSpaceDepth = 8

// ParseColorSpace builds a color space from a name or array.
func ParseColorSpace(ctx context.Context, r ObjectResolver, obj core.Object) (*ColorSpace, error) {
	return parseColorSpace(ctx, r, obj, 0)
}

func parseColorSpace(ctx context.Context, r ObjectResolver, obj core.Object, depth int) (*ColorSpace, error) {
	if depth > maxColorSpaceDepth {
		return nil, fmt.Errorf("%w: nested too deeply", ErrColorSpace)
	}
	obj, err := r.ResolveObject(ctx, obj)
	if err != nil {
		return nil, err
	}
	switch v := obj.(type) {
	case core.Name:
		if cs := DeviceSpace(v); cs != nil {
			return cs, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrColorSpace, v)
	case core.Array:
		return parseColorSpaceArray(ctx, r, v, depth)
	}
	return nil, fmt.Errorf("%w: %s", ErrColorSpace, obj.Kind())
}

func parseColorSpaceArray(ctx context.Context, r ObjectResolver, arr core.Array, depth int) (*ColorSpace, error) {
	family, _ := arr.At(0).(core.Name)
	switch family {
	case "DeviceGray", "DeviceRGB", "DeviceCMYK", "CalGray", "CalRGB", "G", "RGB", "CMYK":
		return DeviceSpace(family), nil
	case "Lab":
		return &ColorSpace{Family: "Lab", N: 3}, nil
	case "ICCBased":
		stream, _, err := r.StreamData(ctx, arr.At(1))
		if err != nil {
			return nil, fmt.Errorf("ICCBased profile: %w", err)
		}
		n, _ := stream.Dict.Int("N")
		cs := &ColorSpace{Family: "ICCBased", N: int(n)}
		if alt, ok := stream.Dict["Alternate"]; ok {
			if base, err := parseColorSpace(ctx, r, alt, depth+1); err == nil {
				cs.Base = base
			}
		}
		if cs.Base == nil {
			switch n {
			case 1:
				cs.Base = DeviceGray
			case 3:
				cs.Base = DeviceRGB
			case 4:
				cs.Base = DeviceCMYK
			default:
				return nil, fmt.Errorf("%w: ICCBased with %d components", ErrColorSpace, n)
			}
		}
		cs.N = cs.Base.N
		return cs, nil
	case "Indexed", "I":
		base, err := parseColorSpace(ctx, r, arr.At(1), depth+1)
		if err != nil {
			return nil, err
		}
		hival, _ := core.Number(arr.At(2))
		lookup, err := r.ResolveObject(ctx, arr.At(3))
		if err != nil {
			return nil, err
		}
		cs := &ColorSpace{Family: "Indexed", N: 1, Base: base, HiVal: int(hival)}
		switch l := lookup.(type) {
		case core.String:
			cs.Lookup = []byte(l)
		case *core.Stream:
			_, data, err := r.StreamData(ctx, arr.At(3))
			if err != nil {
				return nil, fmt.Errorf("Indexed lookup: %w", err)
			}
			cs.Lookup = data
		}
		return cs, nil
	case "Separation":
		alt, _ := parseColorSpace(ctx, r, arr.At(2), depth+1)
		return &ColorSpace{Family: "Separation", N: 1, Base: alt}, nil
	case "DeviceN":
		names, _ := r.ResolveObject(ctx, arr.At(1))
		n := 1
		if a, ok := names.(core.Array); ok && len(a) > 0 {
			n = len(a)
		}
		alt, _ := parseColorSpace(ctx, r, arr.At(2), depth+1)
		return &ColorSpace{Family: "DeviceN", N: n, Base: alt}, nil
	case "Pattern":
		cs := &ColorSpace{Family: "Pattern"}
		if len(arr) > 1 {
			if base, err := parseColorSpace(ctx, r, arr.At(1), depth+1); err == nil {
				cs.Base = base
				cs.N = base.N
			}
		}
		return cs, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrColorSpace, arr.At(0))
}

// Initial returns the initial color value selected by cs and CS.
func (cs *ColorSpace) Initial() []float64 {
	switch cs.Family {
	case "DeviceCMYK":
		return []float64{0, 0, 0, 1}
	case "Separation", "DeviceN":
		out := make([]float64, cs.N)
		for i := range out {
			out[i] = 1
		}
		return out
	case "Pattern":
		return nil
	case "ICCBased":
		return cs.Base.Initial()
	}
	return make([]float64, cs.N)
}

// RGB converts components to red, green and blue in [0, 1].
func (cs *ColorSpace) RGB(c []float64) (r, g, b float64) {
	at := func(i int) float64 {
		if i < len(c) {
			return clamp01(c[i])
		}
		return 0
	}
	switch cs.Family {
	case "DeviceGray":
		v := at(0)
		return v, v, v
	case "DeviceRGB":
		return at(0), at(1), at(2)
	case "DeviceCMYK":
		return cmykToRGB(at(0), at(1), at(2), at(3))
	case "ICCBased":
		return cs.Base.RGB(c)
	case "Lab":
		if len(c) < 3 {
			return 0, 0, 0
		}
		return labToRGB(c[0], c[1], c[2])
	case "Indexed":
		if cs.Base == nil || len(c) == 0 {
			return 0, 0, 0
		}
		i := int(math.Round(c[0]))
		if i < 0 {
			i = 0
		}
		if i > cs.HiVal {
			i = cs.HiVal
		}
		n := cs.Base.N
		if (i+1)*n > len(cs.Lookup) {
			return 0, 0, 0
		}
		vals := make([]float64, n)
		for k := range vals {
			vals[k] = float64(cs.Lookup[i*n+k]) / 255
		}
		return cs.Base.RGB(vals)
	case "Separation", "DeviceN":
		// Tints are shown as gray without evaluating the tint transform.
		t := 0.0
		for i := range c {
			t += at(i)
		}
		if len(c) > 0 {
			t /= float64(len(c))
		}
		return 1 - t, 1 - t, 1 - t
	case "Pattern":
		if cs.Base != nil {
			return cs.Base.RGB(c)
		}
	}
	return 0, 0, 0
}

// Color is a color value in a color space.
type Color struct {
	Space      *ColorSpace
	Components []float64
	// Pattern is the resource name given to scn in a Pattern space.
	Pattern string
}

func (c Color) clone() Color {
	c.Components = append([]float64(nil), c.Components...)
	return c
}

// RGBA converts the color to an opaque 8-bit RGB value.
func (c Color) RGBA() color.RGBA {
	if c.Space == nil {
		return color.RGBA{A: 255}
	}
	r, g, b := c.Space.RGB(c.Components)
	return color.RGBA{R: floatToUint8(r), G: floatToUint8(g), B: floatToUint8(b), A: 255}
}

// IsCMYK reports whether the color is given in a CMYK space.
func (c Color) IsCMYK() bool {
	s := c.Space
	for s != nil && s.Family == "ICCBased" {
		s = s.Base
	}
	return s != nil && s.Family == "DeviceCMYK"
}

// cmykToRGB converts CMYK to RGB (approximate conversion)
func cmykToRGB(c, m, y, k float64) (r, g, b float64) {
	r = (1 - c) * (1 - k)
	g = (1 - m) * (1 - k)
	b = (1 - y) * (1 - k)
	return
}

// labToRGB converts CIE L*a*b* with a D65 white point to sRGB.
func labToRGB(l, a, bb float64) (r, g, b float64) {
	fy := (l + 16) / 116
	fx := fy + a/500
	fz := fy - bb/200
	inv := func(t float64) float64 {
		if t > 6.0/29 {
			return t * t * t
		}
		return 3 * (6.0 / 29) * (6.0 / 29) * (t - 4.0/29)
	}
	x, y, z := 0.9505*inv(fx), inv(fy), 1.089*inv(fz)
	gamma := func(v float64) float64 {
		if v <= 0.0031308 {
			return clamp01(12.92 * v)
		}
		return clamp01(1.055*math.Pow(v, 1/2.4) - 0.055)
	}
	return gamma(3.2406*x - 1.5372*y - 0.4986*z),
		gamma(-0.9689*x + 1.8758*y + 0.0415*z),
		gamma(0.0557*x - 0.2040*y + 1.0570*z)
}

func clamp01(f float64) float64 {
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// floatToUint8 converts a float64 color value (0.0-1.0) to uint8 (0-255)
func floatToUint8(f float64) uint8 {
	return uint8(math.Round(clamp01(f) * 255))
}
