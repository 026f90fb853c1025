package render

import (
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"gitlab.com/tinyland/lab/slat/pkg/layout"
	"gitlab.com/tinyland/lab/slat/pkg/widget"
)

// Engine measures, lays out, and rasterizes a widget tree. It owns the
// font face; everything else is passed in per cycle. Engine methods run on
// the event loop goroutine only.
type Engine struct {
	face font.Face
}

// NewEngine returns an engine drawing text with the given face.
func NewEngine(face font.Face) *Engine {
	return &Engine{face: face}
}

// TextSize measures a string with the engine's face. The height is the
// face's full line extent (ascent plus descent) regardless of content, so
// value changes never alter a widget's height.
func (e *Engine) TextSize(s string) layout.Size {
	m := e.face.Metrics()
	return layout.Size{
		Width:  font.MeasureString(e.face, s).Ceil(),
		Height: (m.Ascent + m.Descent).Ceil(),
	}
}

// LineHeight returns the face's line extent, used to derive the bar height
// when the configuration does not fix one.
func (e *Engine) LineHeight() int {
	m := e.face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}

// Layout assigns a rectangle to every node. It is deterministic: a fixed
// tree and available size always produce identical assignments. Any node
// whose rectangle changed since the previous pass is marked dirty, and a
// geometry change anywhere promotes the root to dirty (the bar background
// must repaint vacated pixels). Reports whether any rectangle changed.
func (e *Engine) Layout(t *widget.Tree, avail layout.Size) bool {
	e.measure(t, t.Root())

	moved := e.assign(t, t.Root(), layout.Rect{Width: avail.Width, Height: avail.Height})
	if moved {
		// Repainting the bar repaints everything: vacated regions are
		// only recoverable from the root background down.
		t.MarkAllDirty()
	}
	return moved
}

// measure fills Intrinsic bottom-up: leaves take their text extent, rows
// sum child widths (plus margins) and take the tallest child.
func (e *Engine) measure(t *widget.Tree, idx widget.Index) layout.Size {
	n := t.Node(idx)
	switch n.Kind {
	case widget.KindBar, widget.KindRow:
		var size layout.Size
		for _, c := range n.Children {
			cs := e.measure(t, c)
			cm := t.Node(c).Style.Margin
			size.Width += cs.Width + cm.Horizontal()
			if h := cs.Height + cm.Vertical(); h > size.Height {
				size.Height = h
			}
		}
		n.Intrinsic = size
	default:
		n.Intrinsic = e.TextSize(n.Value)
	}
	return n.Intrinsic
}

// assign sets final rectangles top-down. The bar places each group row at
// its alignment within the full width; a group whose aligned position would
// overlap the group before it is pushed right past that group instead. Rows
// pack children left to right at intrinsic size. Children wider than the
// available extent keep their intrinsic rectangle and are clipped at draw
// time.
func (e *Engine) assign(t *widget.Tree, idx widget.Index, r layout.Rect) bool {
	n := t.Node(idx)
	moved := setRect(t, idx, r)

	switch n.Kind {
	case widget.KindBar:
		// Groups are ordered left, center, right; minX is the right edge
		// of everything placed so far.
		minX := r.X
		for _, c := range n.Children {
			cn := t.Node(c)
			cm := cn.Style.Margin
			w := cn.Intrinsic.Width
			x := r.X + cm.Left + cn.Group.Offset(r.Width-cm.Horizontal(), w)
			if x < minX+cm.Left {
				x = minX + cm.Left
			}
			cr := layout.Rect{
				X:      x,
				Y:      r.Y + cm.Top + (r.Height-cm.Vertical()-cn.Intrinsic.Height)/2,
				Width:  w,
				Height: cn.Intrinsic.Height,
			}
			if e.assign(t, c, cr) {
				moved = true
			}
			minX = x + w + cm.Right
		}
	case widget.KindRow:
		x := r.X
		for _, c := range n.Children {
			cn := t.Node(c)
			cm := cn.Style.Margin
			x += cm.Left
			cr := layout.Rect{
				X:      x,
				Y:      r.Y + cm.Top + (r.Height-cm.Vertical()-cn.Intrinsic.Height)/2,
				Width:  cn.Intrinsic.Width,
				Height: cn.Intrinsic.Height,
			}
			if e.assign(t, c, cr) {
				moved = true
			}
			x += cn.Intrinsic.Width + cm.Right
		}
	}
	return moved
}

// setRect installs a node's rectangle, marking it dirty when it moved or
// resized.
func setRect(t *widget.Tree, idx widget.Index, r layout.Rect) bool {
	n := t.Node(idx)
	if n.Rect == r {
		return false
	}
	n.Rect = r
	t.MarkDirty(idx)
	return true
}

// Render rasterizes every dirty node into the canvas and returns the
// damage: the union set of repainted rectangles, or the full surface when
// full is set (resize or first frame). Clean nodes are skipped; their
// pixels are still valid because their rectangles did not change (Layout
// dirties moved nodes). Dirty flags are cleared as nodes are painted.
func (e *Engine) Render(t *widget.Tree, c *Canvas, full bool) []layout.Rect {
	surface := layout.Rect{Width: c.W, Height: c.H}
	rootBG := t.Node(t.Root()).Style.Background

	var damage []layout.Rect
	if full {
		t.MarkAllDirty()
	}

	rootDirty := t.Node(t.Root()).Dirty
	if rootDirty {
		// Bar background underpaints everything, so everything repaints.
		t.MarkAllDirty()
		c.Fill(surface, rootBG)
		damage = []layout.Rect{surface}
	}
	t.ClearDirty(t.Root())

	e.renderChildren(t, t.Root(), rootBG, c, rootDirty, &damage)

	if rootDirty || full {
		return []layout.Rect{surface}
	}
	return damage
}

// renderChildren paints the subtree below idx. inherited is the effective
// background behind these nodes; covered reports whether an ancestor
// already repainted this region (so damage need not grow).
func (e *Engine) renderChildren(t *widget.Tree, idx widget.Index, inherited widget.Color, c *Canvas, covered bool, damage *[]layout.Rect) {
	for _, ci := range t.Node(idx).Children {
		n := t.Node(ci)
		bg := inherited
		if n.Style.Background != widget.Transparent {
			bg = n.Style.Background
		}
		dirty := n.Dirty
		if dirty {
			if n.Kind.Container() {
				// Container repaint floors its whole region, so every
				// descendant repaints over it.
				t.MarkAllDirtyBelow(ci)
				c.Fill(n.Rect, bg)
			} else {
				c.Fill(n.Rect, bg)
				e.drawText(c, n)
			}
			if !covered {
				*damage = append(*damage, n.Rect.Intersect(layout.Rect{Width: c.W, Height: c.H}))
			}
			t.ClearDirty(ci)
		}
		if n.Kind.Container() {
			e.renderChildren(t, ci, bg, c, covered || dirty, damage)
		}
	}
}

// drawText draws the node's value at its rectangle, clipped to the canvas.
func (e *Engine) drawText(c *Canvas, n *widget.Node) {
	if n.Value == "" {
		return
	}
	d := font.Drawer{
		Dst:  c,
		Src:  image.NewUniform(n.Style.Foreground),
		Face: e.face,
		Dot: fixed.Point26_6{
			X: fixed.I(n.Rect.X),
			Y: fixed.I(n.Rect.Y) + e.face.Metrics().Ascent,
		},
	}
	d.DrawString(n.Value)
}
