package widget

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/slat/pkg/config"
	"gitlab.com/tinyland/lab/slat/pkg/layout"
	"gitlab.com/tinyland/lab/slat/pkg/sources"
)

// Tree is the widget arena. It is owned exclusively by the event loop
// goroutine; no locking happens here.
type Tree struct {
	nodes []Node
	root  Index
	dirty int
}

// Build constructs the arena from the configuration description. The bar
// root is implicit; each non-empty group (left, center, right) becomes a
// row child of the bar. Unknown kinds and illegal nesting fail
// construction; a malformed description never yields a partial tree.
func Build(bar *config.BarConfig) (*Tree, error) {
	t := &Tree{root: 0}

	barBG, err := ParseColor(bar.Background)
	if err != nil {
		return nil, fmt.Errorf("bar.background: %w", err)
	}
	defaultFG, err := ParseColor(bar.Foreground)
	if err != nil {
		return nil, fmt.Errorf("bar.foreground: %w", err)
	}
	if defaultFG == Transparent {
		defaultFG = ARGB(0xFF, 0xEB, 0xDB, 0xB2)
	}

	t.nodes = append(t.nodes, Node{
		Kind:  KindBar,
		Style: Style{Background: barBG, Foreground: defaultFG},
		Dirty: true,
	})

	groups := []struct {
		name    string
		align   layout.Align
		widgets []config.Widget
	}{
		{"left", layout.AlignStart, bar.Left},
		{"center", layout.AlignCenter, bar.Center},
		{"right", layout.AlignEnd, bar.Right},
	}
	for _, g := range groups {
		if len(g.widgets) == 0 {
			continue
		}
		row, err := t.addNode(KindBar, 0, config.Widget{Kind: "row"}, defaultFG)
		if err != nil {
			return nil, fmt.Errorf("bar.%s: %w", g.name, err)
		}
		t.nodes[row].Group = g.align
		for i, w := range g.widgets {
			if _, err := t.buildSubtree(row, w, defaultFG); err != nil {
				return nil, fmt.Errorf("bar.%s[%d]: %w", g.name, i, err)
			}
		}
	}
	return t, nil
}

// buildSubtree adds the node described by w under parent, recursing into
// row children.
func (t *Tree) buildSubtree(parent Index, w config.Widget, defaultFG Color) (Index, error) {
	idx, err := t.addNode(t.nodes[parent].Kind, parent, w, defaultFG)
	if err != nil {
		return NoIndex, err
	}
	if len(w.Children) > 0 && t.nodes[idx].Leaf() {
		return NoIndex, fmt.Errorf("%w: %s cannot hold children", ErrInvalidNesting, t.nodes[idx].Kind)
	}
	for i, child := range w.Children {
		if _, err := t.buildSubtree(idx, child, defaultFG); err != nil {
			return NoIndex, fmt.Errorf("children[%d]: %w", i, err)
		}
	}
	return idx, nil
}

// addNode validates and appends one node, linking it under parentIdx.
// parentKind is checked against the nesting rules: the bar accepts rows
// and leaves, rows accept rows and leaves, leaves accept nothing.
func (t *Tree) addNode(parentKind Kind, parentIdx Index, w config.Widget, defaultFG Color) (Index, error) {
	kind, err := ParseKind(w.Kind)
	if err != nil {
		return NoIndex, err
	}
	if !parentKind.Container() {
		return NoIndex, fmt.Errorf("%w: %s under %s", ErrInvalidNesting, kind, parentKind)
	}

	fg, err := ParseColor(w.Foreground)
	if err != nil {
		return NoIndex, fmt.Errorf("foreground: %w", err)
	}
	if fg == Transparent {
		fg = defaultFG
	}
	bg, err := ParseColor(w.Background)
	if err != nil {
		return NoIndex, fmt.Errorf("background: %w", err)
	}

	n := Node{
		Kind:  kind,
		Dirty: true,
		Style: Style{
			Foreground: fg,
			Background: bg,
			Margin: layout.Insets{
				Top:    w.Margin[0],
				Right:  w.Margin[1],
				Bottom: w.Margin[2],
				Left:   w.Margin[3],
			},
		},
	}

	switch kind {
	case KindRow:
		// Containers carry no value or source.
	case KindText:
		n.Value = w.Text
	case KindClock:
		n.Source = sources.NewClock(w.Format, w.Interval.Duration)
	case KindCPU:
		n.Source = sources.NewCPU(w.Icon, w.Interval.Duration)
	case KindBattery:
		src, err := sources.NewBattery(nilIfEmpty(w.ChargingIcons), nilIfEmpty(w.DischargingIcons), w.Interval.Duration)
		if err != nil {
			return NoIndex, err
		}
		n.Source = src
	case KindKeyboard:
		n.Value = sources.Placeholder
		n.icon = w.Icon
		n.layoutMappings = w.LayoutMappings
	case KindWorkspaces:
		n.Value = sources.Placeholder
		n.workspaces = make(map[int]struct{})
	}

	idx := Index(len(t.nodes))
	t.nodes = append(t.nodes, n)
	t.nodes[parentIdx].Children = append(t.nodes[parentIdx].Children, idx)
	t.dirty++
	return idx, nil
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// Root returns the bar node's index.
func (t *Tree) Root() Index { return t.root }

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the arena entry at idx. The pointer stays valid for the
// tree's lifetime; the arena never grows after Build.
func (t *Tree) Node(idx Index) *Node {
	return &t.nodes[idx]
}

// Walk visits every node reachable from the root, parents before children.
func (t *Tree) Walk(visit func(Index, *Node)) {
	t.walkFrom(t.root, visit)
}

func (t *Tree) walkFrom(idx Index, visit func(Index, *Node)) {
	visit(idx, &t.nodes[idx])
	for _, c := range t.nodes[idx].Children {
		t.walkFrom(c, visit)
	}
}

// PollEntry describes one node that needs a recurring timer.
type PollEntry struct {
	Index    Index
	Interval time.Duration
}

// PollEntries lists every node owning a pull source, for timer
// registration. Each such node owns exactly one timer entry.
func (t *Tree) PollEntries() []PollEntry {
	var out []PollEntry
	t.Walk(func(idx Index, n *Node) {
		if n.Source != nil {
			out = append(out, PollEntry{Index: idx, Interval: n.Source.Interval()})
		}
	})
	return out
}

// ApplyValue installs a freshly collected value on the node. If the value
// differs from the current one the node (and only that node) is marked
// dirty. Reports whether anything changed.
func (t *Tree) ApplyValue(idx Index, value string) bool {
	n := &t.nodes[idx]
	if n.Value == value {
		return false
	}
	n.Value = value
	t.MarkDirty(idx)
	return true
}

// ApplyFailure handles a failed collection: the node keeps its previous
// value, except on a first-poll failure where the placeholder is shown.
// Reports whether the displayed value changed.
func (t *Tree) ApplyFailure(idx Index) bool {
	if t.nodes[idx].Value == "" {
		return t.ApplyValue(idx, sources.Placeholder)
	}
	return false
}

// MarkDirty flags a node for re-rendering.
func (t *Tree) MarkDirty(idx Index) {
	n := &t.nodes[idx]
	if !n.Dirty {
		n.Dirty = true
		t.dirty++
	}
}

// ClearDirty resets a node's flag after a successful render.
func (t *Tree) ClearDirty(idx Index) {
	n := &t.nodes[idx]
	if n.Dirty {
		n.Dirty = false
		t.dirty--
	}
}

// AnyDirty is the cheap check the event loop uses to decide whether a
// redraw is worth requesting.
func (t *Tree) AnyDirty() bool {
	return t.dirty > 0
}

// MarkAllDirty flags every node, used when the whole surface must repaint
// (resize, first frame).
func (t *Tree) MarkAllDirty() {
	t.Walk(func(idx Index, _ *Node) { t.MarkDirty(idx) })
}

// MarkAllDirtyBelow flags a node and its whole subtree. Repainting a
// container's background invalidates everything drawn on top of it.
func (t *Tree) MarkAllDirtyBelow(idx Index) {
	t.MarkDirty(idx)
	for _, ci := range t.nodes[idx].Children {
		t.MarkAllDirtyBelow(ci)
	}
}

// DispatchIPC routes a compositor notification to the widget kinds that
// subscribe to it and returns the indices whose displayed value changed.
// Unknown event names are ignored.
func (t *Tree) DispatchIPC(name, payload string) []Index {
	var changed []Index
	t.Walk(func(idx Index, n *Node) {
		var updated bool
		switch n.Kind {
		case KindKeyboard:
			if name == "activelayout" {
				updated = t.ApplyValue(idx, n.keyboardValue(payload))
			}
		case KindWorkspaces:
			switch name {
			case "workspace", "createworkspace", "destroyworkspace":
				n.applyWorkspaceEvent(name, payload)
				updated = t.ApplyValue(idx, n.workspacesValue())
			}
		}
		if updated {
			changed = append(changed, idx)
		}
	})
	return changed
}

// keyboardValue formats an activelayout payload ("device,layout name")
// through the configured layout mappings.
func (n *Node) keyboardValue(payload string) string {
	name := payload
	if i := strings.LastIndexByte(payload, ','); i >= 0 {
		name = payload[i+1:]
	}
	if mapped, ok := n.layoutMappings[name]; ok {
		name = mapped
	}
	if n.icon != "" {
		return n.icon + " " + name
	}
	return name
}

// applyWorkspaceEvent folds one workspace notification into the node's
// workspace set.
func (n *Node) applyWorkspaceEvent(name, payload string) {
	id, err := parseWorkspaceID(payload)
	if err != nil {
		return
	}
	switch name {
	case "workspace":
		n.workspaces[id] = struct{}{}
		n.activeWS = id
	case "createworkspace":
		n.workspaces[id] = struct{}{}
	case "destroyworkspace":
		delete(n.workspaces, id)
	}
}

// workspacesValue renders the workspace set, bracketing the active one,
// e.g. "1 2 [3] 5".
func (n *Node) workspacesValue() string {
	if len(n.workspaces) == 0 {
		return sources.Placeholder
	}
	ids := make([]int, 0, len(n.workspaces))
	for id := range n.workspaces {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(' ')
		}
		if id == n.activeWS {
			fmt.Fprintf(&b, "[%d]", id)
		} else {
			fmt.Fprintf(&b, "%d", id)
		}
	}
	return b.String()
}

func parseWorkspaceID(payload string) (int, error) {
	// Payloads are "ID" or "ID,NAME".
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[:i]
	}
	var id int
	_, err := fmt.Sscanf(strings.TrimSpace(payload), "%d", &id)
	return id, err
}

// Validate checks the structural invariants: every node is reachable from
// the single root exactly once (no cycles, no shared children) and leaves
// are childless. Build cannot produce a violating tree; this exists for
// tests and debug assertions.
func (t *Tree) Validate() error {
	seen := make([]int, len(t.nodes))
	var walk func(Index) error
	walk = func(idx Index) error {
		if idx < 0 || int(idx) >= len(t.nodes) {
			return fmt.Errorf("child index %d out of range", idx)
		}
		seen[idx]++
		if seen[idx] > 1 {
			return fmt.Errorf("node %d reachable more than once", idx)
		}
		n := &t.nodes[idx]
		if n.Leaf() && len(n.Children) > 0 {
			return fmt.Errorf("leaf node %d (%s) has children", idx, n.Kind)
		}
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(t.root); err != nil {
		return err
	}
	for i, count := range seen {
		if count == 0 {
			return fmt.Errorf("node %d unreachable from root", i)
		}
	}
	return nil
}
