package sources

import (
	"context"
	"strings"
	"time"
)

// Clock formats the current wall-clock time. The configuration uses
// strftime-style directives (the original bar convention); they are
// translated to a Go layout once at construction.
type Clock struct {
	layout   string
	interval time.Duration
	now      func() time.Time
}

// NewClock returns a clock source. An empty format means "%H:%M:%S"; a
// zero interval defaults to one second.
func NewClock(format string, interval time.Duration) *Clock {
	if format == "" {
		format = "%H:%M:%S"
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Clock{
		layout:   StrftimeLayout(format),
		interval: interval,
		now:      time.Now,
	}
}

// Name implements Source.
func (c *Clock) Name() string { return "clock" }

// Interval implements Source.
func (c *Clock) Interval() time.Duration { return c.interval }

// Collect implements Source. It never fails.
func (c *Clock) Collect(context.Context) (string, error) {
	return c.now().Format(c.layout), nil
}

// strftimeMap translates the directive subset the bar supports. Unknown
// directives pass through literally.
var strftimeMap = map[byte]string{
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'd': "02",
	'e': "_2",
	'm': "01",
	'y': "06",
	'Y': "2006",
	'a': "Mon",
	'A': "Monday",
	'b': "Jan",
	'B': "January",
	'Z': "MST",
	'%': "%",
}

// StrftimeLayout converts a strftime-style format string into a Go time
// layout.
func StrftimeLayout(format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) {
			b.WriteByte(format[i])
			continue
		}
		i++
		if repl, ok := strftimeMap[format[i]]; ok {
			b.WriteString(repl)
		} else {
			b.WriteByte('%')
			b.WriteByte(format[i])
		}
	}
	return b.String()
}
