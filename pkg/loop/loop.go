// Package loop multiplexes every input the bar reacts to onto one
// goroutine: compositor messages, poll deadlines, compositor IPC
// notifications and the results of off-thread collector runs. Widget state
// and the render pipeline are only ever touched from here, so none of them
// need locks.
//
// Redraws are paced by the compositor. A state change marks widgets dirty
// and asks for a frame; everything that lands before the frame is granted
// collapses into the single repaint that follows.
package loop

import (
	"context"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/slat/pkg/ipc"
	"gitlab.com/tinyland/lab/slat/pkg/layout"
	"gitlab.com/tinyland/lab/slat/pkg/render"
	"gitlab.com/tinyland/lab/slat/pkg/surface"
	"gitlab.com/tinyland/lab/slat/pkg/timer"
	"gitlab.com/tinyland/lab/slat/pkg/wayland"
	"gitlab.com/tinyland/lab/slat/pkg/widget"
)

// defaultFetchTimeout bounds one collector run so a stuck data source can
// never wedge its widget permanently.
const defaultFetchTimeout = 5 * time.Second

// Presenter is what the loop needs from the surface layer. The concrete
// implementation is surface.Manager; tests substitute an in-memory fake.
type Presenter interface {
	Handle(msg wayland.Message) (surface.Event, error)
	RequestFrame() (bool, error)
	BeginFrame() (*render.Canvas, error)
	Submit(damage []layout.Rect) error
	Size() layout.Size
	Configured() bool
}

// state tracks where the loop is in the frame handshake.
type state int

const (
	stateIdle state = iota
	stateAwaitingFrame
	stateTerminating
)

// pollResult carries one collector outcome back onto the loop goroutine.
type pollResult struct {
	widget widget.Index
	value  string
	err    error
}

// Loop drives the bar. Construct with New and call Run once.
type Loop struct {
	log    *slog.Logger
	pres   Presenter
	engine *render.Engine
	tree   *widget.Tree

	wlEvents  <-chan wayland.Message
	wlErr     func() error
	ipcEvents <-chan ipc.Event

	wheel    *timer.Wheel
	results  chan pollResult
	inflight map[widget.Index]struct{}

	state        state
	needsFull    bool
	fetchTimeout time.Duration
	now          func() time.Time
}

// Options wires a Loop together. IPC may be nil when no compositor event
// stream is available; the subscribing widgets then keep their placeholders.
type Options struct {
	Logger    *slog.Logger
	Presenter Presenter
	Engine    *render.Engine
	Tree      *widget.Tree
	WlEvents  <-chan wayland.Message
	WlErr     func() error
	IPC       <-chan ipc.Event
}

// New builds a loop over the given inputs.
func New(opts Options) *Loop {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		log:          log,
		pres:         opts.Presenter,
		engine:       opts.Engine,
		tree:         opts.Tree,
		wlEvents:     opts.WlEvents,
		wlErr:        opts.WlErr,
		ipcEvents:    opts.IPC,
		wheel:        timer.New(),
		results:      make(chan pollResult, 32),
		inflight:     make(map[widget.Index]struct{}),
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
	}
}

// Run blocks until the surface is closed by the compositor, the context is
// cancelled, or the connection fails. Poll widgets are collected once
// immediately so the first frame shows data instead of placeholders.
func (l *Loop) Run(ctx context.Context) error {
	startAt := l.now()
	for _, e := range l.tree.PollEntries() {
		l.wheel.Add(e.Index, e.Interval, startAt)
		l.startPoll(ctx, e.Index)
	}

	deadline := time.NewTimer(time.Hour)
	defer deadline.Stop()

	for l.state != stateTerminating {
		timerC := l.armDeadline(deadline)

		select {
		case <-ctx.Done():
			l.state = stateTerminating

		case msg, ok := <-l.wlEvents:
			if !ok {
				return l.wlErr()
			}
			if err := l.handleWayland(msg); err != nil {
				return err
			}
			l.drain()
			if err := l.maybeRedraw(); err != nil {
				return err
			}

		case res := <-l.results:
			l.applyResult(res)
			l.drain()
			if err := l.maybeRedraw(); err != nil {
				return err
			}

		case ev, ok := <-l.ipcEvents:
			if !ok {
				// The IPC stream is best-effort: keep running with the
				// last known values.
				l.log.Warn("compositor ipc stream ended")
				l.ipcEvents = nil
				continue
			}
			l.tree.DispatchIPC(ev.Name, ev.Payload)
			l.drain()
			if err := l.maybeRedraw(); err != nil {
				return err
			}

		case <-timerC:
			for _, e := range l.wheel.Expired(l.now()) {
				l.startPoll(ctx, e.Widget)
			}
		}
	}
	return nil
}

// armDeadline resets the shared timer to the next poll deadline and
// returns its channel, or nil (blocking that select arm) when nothing is
// scheduled.
func (l *Loop) armDeadline(t *time.Timer) <-chan time.Time {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	next, ok := l.wheel.NextDeadline()
	if !ok {
		return nil
	}
	t.Reset(next.Sub(l.now()))
	return t.C
}

// handleWayland feeds one compositor message to the surface layer and
// reacts to its classification.
func (l *Loop) handleWayland(msg wayland.Message) error {
	ev, err := l.pres.Handle(msg)
	if err != nil {
		return err
	}
	switch ev {
	case surface.EventConfigure:
		// Geometry changed: the next frame repaints everything. If a
		// frame grant is already in flight it will pick up the new size.
		l.needsFull = true
	case surface.EventFrameReady:
		l.state = stateIdle
		if l.tree.AnyDirty() || l.needsFull {
			return l.renderFrame()
		}
	case surface.EventClosed:
		l.log.Info("surface closed by compositor")
		l.state = stateTerminating
	}
	return nil
}

// drain consumes everything already queued without blocking, so a burst of
// updates collapses into one redraw decision.
func (l *Loop) drain() {
	for {
		select {
		case res := <-l.results:
			l.applyResult(res)
		case ev, ok := <-l.ipcEvents:
			if !ok {
				l.ipcEvents = nil
				continue
			}
			l.tree.DispatchIPC(ev.Name, ev.Payload)
		default:
			return
		}
	}
}

// applyResult installs one collector outcome. Failures keep the previous
// value on screen; only a widget that has never produced one shows the
// placeholder.
func (l *Loop) applyResult(res pollResult) {
	delete(l.inflight, res.widget)
	if res.err != nil {
		n := l.tree.Node(res.widget)
		l.log.Warn("collector failed",
			"source", n.Source.Name(), "error", res.err)
		l.tree.ApplyFailure(res.widget)
		return
	}
	l.tree.ApplyValue(res.widget, res.value)
}

// startPoll launches one collector run off-thread. A widget with a run
// already in flight is skipped; its deadline has simply lapped a slow
// source, and a second concurrent run could deliver results out of order.
func (l *Loop) startPoll(ctx context.Context, idx widget.Index) {
	if _, busy := l.inflight[idx]; busy {
		return
	}
	src := l.tree.Node(idx).Source
	if src == nil {
		return
	}
	l.inflight[idx] = struct{}{}
	go func() {
		cctx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
		defer cancel()
		value, err := src.Collect(cctx)
		select {
		case l.results <- pollResult{widget: idx, value: value, err: err}:
		case <-ctx.Done():
		}
	}()
}

// maybeRedraw requests a frame when there is something to show and no
// request is already outstanding. When nothing has ever been submitted the
// grant is immediate and the frame renders right here.
func (l *Loop) maybeRedraw() error {
	if l.state != stateIdle || !l.pres.Configured() {
		return nil
	}
	if !l.tree.AnyDirty() && !l.needsFull {
		return nil
	}
	ready, err := l.pres.RequestFrame()
	if err != nil {
		return err
	}
	if ready {
		return l.renderFrame()
	}
	l.state = stateAwaitingFrame
	return nil
}

// renderFrame runs the full pipeline once: layout at the current surface
// size, paint the dirty set, submit with its damage.
func (l *Loop) renderFrame() error {
	moved := l.engine.Layout(l.tree, l.pres.Size())
	full := l.needsFull || moved

	canvas, err := l.pres.BeginFrame()
	if err != nil {
		return err
	}
	damage := l.engine.Render(l.tree, canvas, full)
	if err := l.pres.Submit(damage); err != nil {
		return err
	}
	l.needsFull = false
	l.state = stateIdle
	return nil
}
