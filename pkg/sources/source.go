// Package sources defines the data-source collaborators behind the bar's
// polling widgets. Each source implements the Source interface and is
// invoked by the event loop on its own cadence; a failed collection is
// never fatal: the owning widget keeps its previous value and the next
// poll retries unconditionally.
package sources

import (
	"context"
	"time"
)

// Placeholder is displayed by a widget whose very first collection failed,
// so its rectangle never degenerates to zero width.
const Placeholder = "--"

// Source is the pull interface all polling data sources implement. Collect
// returns the widget's fully formatted display string; formatting lives
// here so the widget tree only ever stores opaque values.
type Source interface {
	// Name returns a unique identifier for this source (e.g., "cpu").
	Name() string

	// Collect performs one collection cycle. It must honor ctx: sources
	// that can block are run off the control thread with a deadline.
	Collect(ctx context.Context) (string, error)

	// Interval returns how often this source should be polled.
	Interval() time.Duration
}
