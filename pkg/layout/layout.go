// Package layout provides the pixel geometry primitives shared by the
// widget tree and the render engine: rectangles, sizes, per-edge insets,
// and alignment within an axis.
//
// All units are surface-local pixels. The coordinate origin is the top-left
// corner of the bar surface; X grows rightward and Y grows downward.
package layout

// Rect represents a rectangular area in surface pixels.
type Rect struct {
	X, Y, Width, Height int
}

// Area returns the number of pixels covered by this rectangle.
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Empty returns true if this rectangle has zero area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right returns the X coordinate of the right edge (exclusive).
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom returns the Y coordinate of the bottom edge (exclusive).
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// Contains returns true if the point (px, py) lies within this rectangle.
func (r Rect) Contains(px, py int) bool {
	return px >= r.X && px < r.Right() && py >= r.Y && py < r.Bottom()
}

// Intersect returns the overlapping region of two rectangles.
// If there is no overlap, returns a zero-size Rect.
func (r Rect) Intersect(other Rect) Rect {
	x1 := maxInt(r.X, other.X)
	y1 := maxInt(r.Y, other.Y)
	x2 := minInt(r.Right(), other.Right())
	y2 := minInt(r.Bottom(), other.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Union returns the smallest rectangle covering both r and other.
// A union with an empty rectangle returns the other operand unchanged.
func (r Rect) Union(other Rect) Rect {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	x1 := minInt(r.X, other.X)
	y1 := minInt(r.Y, other.Y)
	x2 := maxInt(r.Right(), other.Right())
	y2 := maxInt(r.Bottom(), other.Bottom())
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Size is a width/height pair in surface pixels.
type Size struct {
	Width, Height int
}

// Insets describes per-edge spacing around a widget, in pixels.
type Insets struct {
	Left, Right, Top, Bottom int
}

// Horizontal returns the combined left and right inset.
func (in Insets) Horizontal() int {
	return in.Left + in.Right
}

// Vertical returns the combined top and bottom inset.
func (in Insets) Vertical() int {
	return in.Top + in.Bottom
}

// Uniform returns an Insets with the same value on every edge.
func Uniform(v int) Insets {
	return Insets{Left: v, Right: v, Top: v, Bottom: v}
}

// Align controls where content is positioned along an axis when the
// available extent exceeds the content's size.
type Align int

const (
	// AlignStart packs content at the start of the axis.
	AlignStart Align = iota
	// AlignCenter centers content; surplus is split equally on both sides.
	AlignCenter
	// AlignEnd packs content at the end of the axis.
	AlignEnd
)

// Offset returns the starting coordinate for content of the given size
// within an extent, according to the alignment.
func (a Align) Offset(extent, content int) int {
	surplus := extent - content
	if surplus <= 0 {
		return 0
	}
	switch a {
	case AlignCenter:
		return surplus / 2
	case AlignEnd:
		return surplus
	default:
		return 0
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
