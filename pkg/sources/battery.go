package sources

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Battery glyph ramps, one glyph per decile from empty to full. These are
// the conventional nerd-font battery symbols.
var (
	defaultDischargingRamp = []string{
		"\U000F008E", "\U000F007A", "\U000F007B", "\U000F007C", "\U000F007D",
		"\U000F007E", "\U000F007F", "\U000F0080", "\U000F0081", "\U000F0082",
		"\U000F0079",
	}
	defaultChargingRamp = []string{
		"\U000F089F", "\U000F089C", "\U000F0086", "\U000F0087", "\U000F0088",
		"\U000F089D", "\U000F0089", "\U000F089E", "\U000F008A", "\U000F008B",
		"\U000F0085",
	}
)

// Battery reads charge state from the kernel's power_supply class. When
// several batteries are present their energy is summed before computing
// the percentage, and the pack is "charging" if any battery is.
type Battery struct {
	dir         string
	charging    []string
	discharging []string
	interval    time.Duration
}

// NewBattery returns a battery source reading /sys/class/power_supply.
// Ramps must have 11 entries (0% through 100% in deciles); nil selects the
// built-in glyphs. A zero interval defaults to thirty seconds.
func NewBattery(charging, discharging []string, interval time.Duration) (*Battery, error) {
	if charging == nil {
		charging = defaultChargingRamp
	}
	if discharging == nil {
		discharging = defaultDischargingRamp
	}
	if len(charging) != 11 || len(discharging) != 11 {
		return nil, fmt.Errorf("battery glyph ramps need 11 entries, got %d charging and %d discharging",
			len(charging), len(discharging))
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Battery{
		dir:         "/sys/class/power_supply",
		charging:    charging,
		discharging: discharging,
		interval:    interval,
	}, nil
}

// Name implements Source.
func (b *Battery) Name() string { return "battery" }

// Interval implements Source.
func (b *Battery) Interval() time.Duration { return b.interval }

// Collect implements Source.
func (b *Battery) Collect(ctx context.Context) (string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", b.dir, err)
	}

	var (
		energy, full float64
		capSum       int
		count        int
		charging     bool
	)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		supply := filepath.Join(b.dir, e.Name())
		if readTrimmed(filepath.Join(supply, "type")) != "Battery" {
			continue
		}
		status := readTrimmed(filepath.Join(supply, "status"))
		if status == "Charging" {
			charging = true
		}

		// Prefer energy counters; fall back to the capacity percentage.
		now, errNow := readFloat(filepath.Join(supply, "energy_now"))
		max, errMax := readFloat(filepath.Join(supply, "energy_full"))
		if errNow == nil && errMax == nil && max > 0 {
			energy += now
			full += max
			count++
			continue
		}
		if c, err := readFloat(filepath.Join(supply, "capacity")); err == nil {
			capSum += int(c)
			count++
		}
	}
	if count == 0 {
		return "", fmt.Errorf("no battery found under %s", b.dir)
	}

	var pct int
	if full > 0 {
		pct = int(math.Round(energy / full * 100))
	} else {
		pct = capSum / count
	}
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}

	ramp := b.discharging
	if charging {
		ramp = b.charging
	}
	return fmt.Sprintf("%s %d%%", ramp[pct/10], pct), nil
}

// readTrimmed returns the file's contents without surrounding whitespace,
// or "" on any error.
func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// readFloat parses the file's contents as a number.
func readFloat(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
}
