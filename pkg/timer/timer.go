// Package timer schedules periodic widget polls on a single min-heap so the
// event loop sleeps until exactly the next deadline instead of ticking per
// widget.
package timer

import (
	"container/heap"
	"time"

	"gitlab.com/tinyland/lab/slat/pkg/widget"
)

// Entry is one scheduled poll.
type Entry struct {
	Widget   widget.Index
	Interval time.Duration
	Next     time.Time

	seq int // insertion order, breaks deadline ties deterministically
}

// Wheel is a deadline queue over widget poll intervals. Not safe for
// concurrent use; the event loop is the sole owner.
type Wheel struct {
	entries entryHeap
	nextSeq int
}

// New returns an empty wheel.
func New() *Wheel {
	return &Wheel{}
}

// Add schedules a widget with the given interval, first firing one interval
// from now. Intervals of zero or less are ignored.
func (w *Wheel) Add(idx widget.Index, interval time.Duration, now time.Time) {
	if interval <= 0 {
		return
	}
	heap.Push(&w.entries, Entry{
		Widget:   idx,
		Interval: interval,
		Next:     now.Add(interval),
		seq:      w.nextSeq,
	})
	w.nextSeq++
}

// Len reports the number of scheduled entries.
func (w *Wheel) Len() int {
	return len(w.entries)
}

// NextDeadline returns the earliest deadline. The second result is false
// when nothing is scheduled.
func (w *Wheel) NextDeadline() (time.Time, bool) {
	if len(w.entries) == 0 {
		return time.Time{}, false
	}
	return w.entries[0].Next, true
}

// Expired pops every entry whose deadline is at or before now, rearming
// each one interval later. Deadlines missed by more than one interval slip
// forward rather than firing a burst of catch-up polls.
func (w *Wheel) Expired(now time.Time) []Entry {
	var fired []Entry
	for len(w.entries) > 0 && !w.entries[0].Next.After(now) {
		e := heap.Pop(&w.entries).(Entry)
		fired = append(fired, e)

		next := e.Next.Add(e.Interval)
		if !next.After(now) {
			next = now.Add(e.Interval)
		}
		e.Next = next
		heap.Push(&w.entries, e)
	}
	return fired
}

type entryHeap []Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if !h[i].Next.Equal(h[j].Next) {
		return h[i].Next.Before(h[j].Next)
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(Entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
