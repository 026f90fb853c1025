package widget

import "fmt"

// Kind is the closed set of widget types. Containers (Bar, Row) hold
// children; every other kind is a leaf.
type Kind uint8

const (
	// KindBar is the root container sized to the negotiated surface.
	KindBar Kind = iota
	// KindRow packs its children along the horizontal axis.
	KindRow
	// KindText shows a static string.
	KindText
	// KindClock shows the current time in a configurable format.
	KindClock
	// KindBattery shows charge percentage with a decile glyph ramp.
	KindBattery
	// KindCPU shows aggregate CPU utilization.
	KindCPU
	// KindKeyboard shows the active keyboard layout (IPC-driven).
	KindKeyboard
	// KindWorkspaces shows workspace ids with the active one marked
	// (IPC-driven).
	KindWorkspaces
)

var kindNames = map[Kind]string{
	KindBar:        "bar",
	KindRow:        "row",
	KindText:       "text",
	KindClock:      "clock",
	KindBattery:    "battery",
	KindCPU:        "cpu",
	KindKeyboard:   "keyboard",
	KindWorkspaces: "workspaces",
}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Container reports whether the kind may hold children.
func (k Kind) Container() bool {
	return k == KindBar || k == KindRow
}

// ParseKind maps a configuration kind name to a Kind. The bar is implicit
// (exactly one root, created by Build), so "bar" is not accepted here.
func ParseKind(name string) (Kind, error) {
	for k, s := range kindNames {
		if s == name && k != KindBar {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWidgetKind, name)
}
