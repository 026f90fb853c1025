// Package widget implements the bar's widget tree: an arena of nodes
// indexed by stable integers, built once at startup from the configuration
// description and mutated only by the event loop. Containers (bar, row)
// hold ordered child indices; leaves hold a dynamic display value and a
// dirty flag that drives incremental rendering.
package widget

import (
	"errors"

	"gitlab.com/tinyland/lab/slat/pkg/layout"
	"gitlab.com/tinyland/lab/slat/pkg/sources"
)

// Errors returned by Build. Both are fatal at startup: a malformed tree
// description never produces a partial bar.
var (
	// ErrInvalidWidgetKind marks an unknown kind name in the description.
	ErrInvalidWidgetKind = errors.New("invalid widget kind")
	// ErrInvalidNesting marks a child declared under a kind that cannot
	// hold it.
	ErrInvalidNesting = errors.New("invalid widget nesting")
)

// Index identifies a node in the arena. Indices are stable for the life of
// the tree and never reused.
type Index int

// NoIndex is the out-of-band index value.
const NoIndex Index = -1

// Style holds the visual properties fixed at construction time.
type Style struct {
	Foreground Color
	Background Color
	Margin     layout.Insets
}

// Node is one arena entry. Layout fields (Intrinsic, Rect) are derived and
// recomputed every layout pass; Value and Dirty are mutated only through
// tree methods so the dirty bookkeeping stays consistent.
type Node struct {
	Kind     Kind
	Style    Style
	Children []Index

	// Value is the node's current display content. Containers have none.
	Value string

	// Dirty marks rendered output stale relative to Value or geometry.
	Dirty bool

	// Intrinsic is the measured natural size, filled by the layout pass.
	Intrinsic layout.Size

	// Rect is the assigned rectangle, filled by the layout pass.
	Rect layout.Rect

	// Source supplies new values on a timer; nil for containers, static
	// text, and IPC-driven kinds.
	Source sources.Source

	// Group places a Bar child at the start, center, or end of the bar.
	Group layout.Align

	// Keyboard state.
	layoutMappings map[string]string
	icon           string

	// Workspaces state.
	workspaces map[int]struct{}
	activeWS   int
}

// Leaf reports whether the node can never hold children.
func (n *Node) Leaf() bool {
	return !n.Kind.Container()
}
