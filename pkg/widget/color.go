package widget

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a 32-bit ARGB color with straight (non-premultiplied) alpha,
// matching the ARGB8888 buffer format the bar renders into.
type Color uint32

// Transparent is the zero Color; backgrounds with this value are not
// painted.
const Transparent Color = 0

// ARGB assembles a Color from components.
func ARGB(a, r, g, b uint8) Color {
	return Color(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// A, R, G, B return the individual channels.
func (c Color) A() uint8 { return uint8(c >> 24) }
func (c Color) R() uint8 { return uint8(c >> 16) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c) }

// Opaque reports whether the color is fully opaque.
func (c Color) Opaque() bool {
	return c.A() == 0xFF
}

// RGBA implements image/color.Color with alpha-premultiplied channels.
func (c Color) RGBA() (r, g, b, a uint32) {
	a = uint32(c.A())
	a |= a << 8
	r = uint32(c.R())
	r |= r << 8
	r = r * a / 0xFFFF
	g = uint32(c.G())
	g |= g << 8
	g = g * a / 0xFFFF
	b = uint32(c.B())
	b |= b << 8
	b = b * a / 0xFFFF
	return
}

// ParseColor parses "#RRGGBB" or "#RRGGBBAA". The empty string parses to
// Transparent, so optional color fields can be left unset.
func ParseColor(s string) (Color, error) {
	if s == "" {
		return Transparent, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return 0, fmt.Errorf("invalid color %q: want #RRGGBB or #RRGGBBAA", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		return Color(0xFF000000 | uint32(v)), nil
	}
	// RRGGBBAA on the wire, ARGB internally.
	return Color(uint32(v)>>8 | uint32(v)<<24), nil
}
