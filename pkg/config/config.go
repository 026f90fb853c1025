package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration document.
type Config struct {
	General GeneralConfig `toml:"general" yaml:"general"`
	Font    FontConfig    `toml:"font" yaml:"font"`
	Bar     BarConfig     `toml:"bar" yaml:"bar"`
}

// GeneralConfig holds process-level settings.
type GeneralConfig struct {
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level" yaml:"log_level"`
}

// FontConfig selects the font used for all text rendering. An empty Path
// falls back to the built-in bitmap face.
type FontConfig struct {
	Path string  `toml:"path" yaml:"path"`
	Size float64 `toml:"size" yaml:"size"`
}

// BarConfig describes the bar surface and its three widget groups.
type BarConfig struct {
	// Height in logical pixels. Zero derives the height from font metrics.
	Height int `toml:"height" yaml:"height"`

	// Anchor is "top" or "bottom".
	Anchor string `toml:"anchor" yaml:"anchor"`

	// Layer is the stacking layer: "background", "bottom", "top", "overlay".
	Layer string `toml:"layer" yaml:"layer"`

	// Margin is the distance from the anchored screen edges:
	// top, right, bottom, left.
	Margin [4]int `toml:"margin" yaml:"margin"`

	// Exclusive reserves screen space for the bar so tiled windows do not
	// overlap it. Defaults to true.
	Exclusive *bool `toml:"exclusive" yaml:"exclusive"`

	// Background is the bar background color, "#RRGGBB" or "#RRGGBBAA".
	Background string `toml:"background" yaml:"background"`

	// Foreground is the default text color for widgets that set none.
	Foreground string `toml:"foreground" yaml:"foreground"`

	Left   []Widget `toml:"left" yaml:"left"`
	Center []Widget `toml:"center" yaml:"center"`
	Right  []Widget `toml:"right" yaml:"right"`
}

// Widget is one node specification in the abstract tree description:
// a kind, style properties, and (for rows) nested children. Fields not
// relevant to a kind are ignored by the tree builder.
type Widget struct {
	// Kind names the widget type: "row", "text", "clock", "battery",
	// "cpu", "keyboard", "workspaces".
	Kind string `toml:"kind" yaml:"kind"`

	// Text is the static content of a text widget.
	Text string `toml:"text" yaml:"text"`

	// Format is the clock's strftime-style format, default "%H:%M:%S".
	Format string `toml:"format" yaml:"format"`

	// Interval overrides the widget's polling cadence.
	Interval Duration `toml:"interval" yaml:"interval"`

	// Foreground and Background are "#RRGGBB" or "#RRGGBBAA" colors.
	Foreground string `toml:"foreground" yaml:"foreground"`
	Background string `toml:"background" yaml:"background"`

	// Margin is per-widget spacing: top, right, bottom, left.
	Margin [4]int `toml:"margin" yaml:"margin"`

	// LayoutMappings maps keyboard layout names to display labels.
	LayoutMappings map[string]string `toml:"layout_mappings" yaml:"layout_mappings"`

	// ChargingIcons and DischargingIcons are the battery glyph ramps, one
	// glyph per decile (11 entries: 0%, 10%, ... 100%). Empty uses the
	// built-in ramps.
	ChargingIcons    []string `toml:"charging_icons" yaml:"charging_icons"`
	DischargingIcons []string `toml:"discharging_icons" yaml:"discharging_icons"`

	// Icon is a leading glyph for cpu and keyboard widgets.
	Icon string `toml:"icon" yaml:"icon"`

	// Children holds nested widgets; only rows may have any.
	Children []Widget `toml:"children" yaml:"children"`
}

// Default returns the configuration used when no file exists: a top bar
// with a clock centered and cpu plus battery on the right.
func Default() *Config {
	return &Config{
		General: GeneralConfig{LogLevel: "info"},
		Font:    FontConfig{Size: 14},
		Bar: BarConfig{
			Height:     28,
			Anchor:     "top",
			Layer:      "top",
			Background: "#1d2021",
			Foreground: "#ebdbb2",
			Center: []Widget{
				{Kind: "clock", Format: "%H:%M:%S", Interval: Duration{time.Second}},
			},
			Right: []Widget{
				{Kind: "cpu", Interval: Duration{2 * time.Second}, Margin: [4]int{0, 8, 0, 0}},
				{Kind: "battery", Interval: Duration{30 * time.Second}, Margin: [4]int{0, 8, 0, 0}},
			},
		},
	}
}

// Validate checks the parts of the document the decoder cannot: enum
// fields and structural requirements. Widget-level validation (kind names,
// nesting rules, colors) happens in the tree builder so its errors carry
// tree context.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Bar.Anchor) {
	case "", "top", "bottom":
	default:
		return fmt.Errorf("bar.anchor: unknown edge %q (want top or bottom)", c.Bar.Anchor)
	}
	switch strings.ToLower(c.Bar.Layer) {
	case "", "background", "bottom", "top", "overlay":
	default:
		return fmt.Errorf("bar.layer: unknown layer %q", c.Bar.Layer)
	}
	switch strings.ToLower(c.General.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("general.log_level: unknown level %q", c.General.LogLevel)
	}
	if c.Bar.Height < 0 {
		return fmt.Errorf("bar.height: negative height %d", c.Bar.Height)
	}
	if c.Font.Size < 0 {
		return fmt.Errorf("font.size: negative size %v", c.Font.Size)
	}
	if len(c.Bar.Left)+len(c.Bar.Center)+len(c.Bar.Right) == 0 {
		return fmt.Errorf("bar: no widgets configured")
	}
	return nil
}

// ExclusiveZone reports whether the bar reserves screen space.
func (b *BarConfig) ExclusiveZone() bool {
	if b.Exclusive == nil {
		return true
	}
	return *b.Exclusive
}
