package ui

// Color is a 24-bit RGB value. Default marks "no color" and is never rendered.
type Color uint32

const (
	Red     Color = 0xcb2839
	Orange  Color = 0xd55f30
	Yellow  Color = 0xd69d27
	Green   Color = 0x37a93c
	Mint    Color = 0x25b18f
	Aqua    Color = 0x2ba1cd
	Blue    Color = 0x297bcd
	Violet  Color = 0x825ae7
	Pink    Color = 0xc8589a
	Default Color = 0xffffffff
)

// RGB builds a color from its channels
func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Gray builds a color with all channels equal
func Gray(v uint8) Color {
	return RGB(v, v, v)
}

// ColorFromHex keeps the low 24 bits of a 0xRRGGBB value
func ColorFromHex(hex uint32) Color {
	return Color(hex & 0xffffff)
}

// Hex returns the 0xRRGGBB value
func (c Color) Hex() uint32 {
	if c == Default {
		return uint32(Default)
	}
	return uint32(c) & 0xffffff
}

func (c Color) R() uint8 { return uint8(c >> 16) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c) }

// ColorFromHSV converts hue, saturation and value in 0..255
func ColorFromHSV(h, s, v uint8) Color {
	H := float64(h) / 255
	S := float64(s) / 255
	V := float64(v) / 255

	i := int(H * 6)
	f := H*6 - float64(i)
	p := V * (1 - S)
	q := V * (1 - f*S)
	t := V * (1 - (1-f)*S)

	var r, g, b float64
	switch i {
	case 0:
		r, g, b = V, t, p
	case 1:
		r, g, b = q, V, p
	case 2:
		r, g, b = p, V, t
	case 3:
		r, g, b = p, q, V
	case 4:
		r, g, b = t, p, V
	default:
		r, g, b = V, p, q
	}
	return RGB(uint8(r*255), uint8(g*255), uint8(b*255))
}

// WithHue returns a fully saturated color from the 0..255 hue wheel
func WithHue(hue uint8) Color {
	var shift uint8
	switch {
	case hue > 170:
		shift = (hue - 170) * 3
		return RGB(shift, 0, 255-shift)
	case hue > 85:
		shift = (hue - 85) * 3
		return RGB(0, 255-shift, shift)
	default:
		shift = hue * 3
		return RGB(255-shift, shift, 0)
	}
}
