package sources

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
)

// CPU reports aggregate processor utilization as a percentage. It uses
// gopsutil's delta-based sampling: each call measures usage since the
// previous one, so the source carries no timing state of its own.
type CPU struct {
	icon     string
	interval time.Duration

	// percent is swappable for tests.
	percent func(ctx context.Context) ([]float64, error)
}

// NewCPU returns a CPU source. A zero interval defaults to two seconds.
func NewCPU(icon string, interval time.Duration) *CPU {
	if icon == "" {
		icon = "" // nf-oct-cpu
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &CPU{
		icon:     icon,
		interval: interval,
		percent: func(ctx context.Context) ([]float64, error) {
			return cpu.PercentWithContext(ctx, 0, false)
		},
	}
}

// Name implements Source.
func (c *CPU) Name() string { return "cpu" }

// Interval implements Source.
func (c *CPU) Interval() time.Duration { return c.interval }

// Collect implements Source.
func (c *CPU) Collect(ctx context.Context) (string, error) {
	usage, err := c.percent(ctx)
	if err != nil {
		return "", fmt.Errorf("cpu usage: %w", err)
	}
	if len(usage) == 0 {
		return "", fmt.Errorf("cpu usage: no samples")
	}
	return fmt.Sprintf("%s %d%%", c.icon, int(math.Round(usage[0]))), nil
}
