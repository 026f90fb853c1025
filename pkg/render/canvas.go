// Package render computes widget geometry and rasterizes the widget tree
// into an ARGB pixel buffer, tracking damage so unchanged widgets are never
// repainted. Layout runs in full every cycle (it is cheap relative to
// rasterization); rendering is incremental, driven by per-node dirty flags.
package render

import (
	"image"
	"image/color"

	"gitlab.com/tinyland/lab/slat/pkg/layout"
	"gitlab.com/tinyland/lab/slat/pkg/widget"
)

// Canvas wraps a raw ARGB8888 pixel buffer (B, G, R, A byte order, the
// little-endian wire layout) as a draw.Image so the font rasterizer can
// blend glyphs directly into it. Stored channels are alpha-premultiplied,
// which is also what the compositor expects.
type Canvas struct {
	Pix    []byte
	W, H   int
	stride int
}

// NewCanvas wraps pix, which must hold at least w*h*4 bytes.
func NewCanvas(pix []byte, w, h int) *Canvas {
	return &Canvas{Pix: pix, W: w, H: h, stride: w * 4}
}

// ColorModel implements image.Image.
func (c *Canvas) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.W, c.H)
}

// At implements image.Image.
func (c *Canvas) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= c.W || y >= c.H {
		return color.RGBA{}
	}
	i := y*c.stride + x*4
	return color.RGBA{B: c.Pix[i], G: c.Pix[i+1], R: c.Pix[i+2], A: c.Pix[i+3]}
}

// Set implements draw.Image.
func (c *Canvas) Set(x, y int, col color.Color) {
	if x < 0 || y < 0 || x >= c.W || y >= c.H {
		return
	}
	r, g, b, a := col.RGBA()
	i := y*c.stride + x*4
	c.Pix[i] = uint8(b >> 8)
	c.Pix[i+1] = uint8(g >> 8)
	c.Pix[i+2] = uint8(r >> 8)
	c.Pix[i+3] = uint8(a >> 8)
}

// Fill paints a rectangle with a solid color, clipped to the canvas.
func (c *Canvas) Fill(r layout.Rect, col widget.Color) {
	r = r.Intersect(layout.Rect{Width: c.W, Height: c.H})
	if r.Empty() {
		return
	}
	pr, pg, pb, pa := col.RGBA()
	px := [4]byte{uint8(pb >> 8), uint8(pg >> 8), uint8(pr >> 8), uint8(pa >> 8)}
	for y := r.Y; y < r.Bottom(); y++ {
		row := c.Pix[y*c.stride+r.X*4 : y*c.stride+r.Right()*4]
		for i := 0; i < len(row); i += 4 {
			copy(row[i:i+4], px[:])
		}
	}
}
