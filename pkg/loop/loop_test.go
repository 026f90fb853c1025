package loop

import (
	"context"
	"encoding/binary"
	"errors"
	"regexp"
	"testing"
	"time"

	"golang.org/x/image/font/basicfont"

	"gitlab.com/tinyland/lab/slat/pkg/config"
	"gitlab.com/tinyland/lab/slat/pkg/ipc"
	"gitlab.com/tinyland/lab/slat/pkg/layout"
	"gitlab.com/tinyland/lab/slat/pkg/render"
	"gitlab.com/tinyland/lab/slat/pkg/surface"
	"gitlab.com/tinyland/lab/slat/pkg/wayland"
	"gitlab.com/tinyland/lab/slat/pkg/widget"
)

// The fake presenter interprets synthetic wayland messages by opcode.
const (
	opConfigure  uint16 = 100 // body: width, height
	opFrameReady uint16 = 101
	opClosed     uint16 = 102
)

func configureMsg(width, height uint32) wayland.Message {
	body := make([]byte, 8)
	binary.LittleEndian.PutUint32(body[0:], width)
	binary.LittleEndian.PutUint32(body[4:], height)
	return wayland.Message{Opcode: opConfigure, Body: body}
}

// fakePresenter mirrors the surface manager's frame pacing without a
// compositor. All methods run on the loop goroutine; tests inspect the
// recorded fields only after Run returns and listen on submitted while it
// runs.
type fakePresenter struct {
	size          layout.Size
	configured    bool
	framePending  bool
	everSubmitted bool
	autoGrant     bool

	requests    int
	submits     [][]layout.Rect
	submitSizes []layout.Size
	submitted   chan struct{}
}

func newFakePresenter(autoGrant bool) *fakePresenter {
	return &fakePresenter{
		autoGrant: autoGrant,
		submitted: make(chan struct{}, 16),
	}
}

func (f *fakePresenter) Handle(msg wayland.Message) (surface.Event, error) {
	switch msg.Opcode {
	case opConfigure:
		d := wayland.NewDecoder(msg.Body)
		f.size = layout.Size{Width: int(d.Uint32()), Height: int(d.Uint32())}
		f.configured = true
		return surface.EventConfigure, nil
	case opFrameReady:
		f.framePending = false
		return surface.EventFrameReady, nil
	case opClosed:
		return surface.EventClosed, nil
	}
	return surface.EventNone, nil
}

func (f *fakePresenter) RequestFrame() (bool, error) {
	if !f.configured {
		return false, surface.ErrNotConfigured
	}
	if f.framePending {
		return false, nil
	}
	if !f.everSubmitted || f.autoGrant {
		return true, nil
	}
	f.requests++
	f.framePending = true
	return false, nil
}

func (f *fakePresenter) BeginFrame() (*render.Canvas, error) {
	w, h := f.size.Width, f.size.Height
	return render.NewCanvas(make([]byte, w*h*4), w, h), nil
}

func (f *fakePresenter) Submit(damage []layout.Rect) error {
	f.submits = append(f.submits, damage)
	f.submitSizes = append(f.submitSizes, f.size)
	f.everSubmitted = true
	f.submitted <- struct{}{}
	return nil
}

func (f *fakePresenter) Size() layout.Size { return f.size }
func (f *fakePresenter) Configured() bool  { return f.configured }

type harness struct {
	pres    *fakePresenter
	tree    *widget.Tree
	wl      chan wayland.Message
	ipcCh   chan ipc.Event
	done    chan error
}

func startLoop(t *testing.T, bar *config.BarConfig, autoGrant bool) *harness {
	t.Helper()
	tree, err := widget.Build(bar)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	h := &harness{
		pres:  newFakePresenter(autoGrant),
		tree:  tree,
		wl:    make(chan wayland.Message),
		ipcCh: make(chan ipc.Event),
		done:  make(chan error, 1),
	}
	l := New(Options{
		Presenter: h.pres,
		Engine:    render.NewEngine(basicfont.Face7x13),
		Tree:      tree,
		WlEvents:  h.wl,
		WlErr:     func() error { return wayland.ErrConnectionLost },
		IPC:       h.ipcCh,
	})
	go func() { h.done <- l.Run(context.Background()) }()
	return h
}

func (h *harness) waitSubmit(t *testing.T) {
	t.Helper()
	select {
	case <-h.pres.submitted:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a submit")
	}
}

func (h *harness) finish(t *testing.T) {
	t.Helper()
	h.wl <- wayland.Message{Opcode: opClosed}
	select {
	case err := <-h.done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not terminate")
	}
}

func textBar() *config.BarConfig {
	return &config.BarConfig{
		Background: "#1d2021",
		Center:     []config.Widget{{Kind: "text", Text: "hello"}},
	}
}

func keyboardBar() *config.BarConfig {
	return &config.BarConfig{
		Background: "#1d2021",
		Right:      []config.Widget{{Kind: "keyboard"}},
	}
}

func TestFirstConfigureRendersFullFrame(t *testing.T) {
	h := startLoop(t, textBar(), false)
	h.wl <- configureMsg(640, 30)
	h.waitSubmit(t)
	h.finish(t)

	if len(h.pres.submits) != 1 {
		t.Fatalf("submits = %d, want 1", len(h.pres.submits))
	}
	if got := h.pres.submits[0]; len(got) != 1 || got[0] != (layout.Rect{Width: 640, Height: 30}) {
		t.Errorf("first damage = %+v, want full surface", got)
	}
	if h.pres.requests != 0 {
		t.Errorf("requests = %d, want 0 (first grant is synthetic)", h.pres.requests)
	}
}

func TestBurstCoalescesIntoOneFrame(t *testing.T) {
	h := startLoop(t, keyboardBar(), false)
	h.wl <- configureMsg(640, 30)
	h.waitSubmit(t)

	// Three updates while the frame grant is outstanding collapse into the
	// single repaint that follows it.
	h.ipcCh <- ipc.Event{Name: "activelayout", Payload: "kbd,A"}
	h.ipcCh <- ipc.Event{Name: "activelayout", Payload: "kbd,B"}
	h.ipcCh <- ipc.Event{Name: "activelayout", Payload: "kbd,C"}
	h.wl <- wayland.Message{Opcode: opFrameReady}
	h.waitSubmit(t)
	h.finish(t)

	if len(h.pres.submits) != 2 {
		t.Fatalf("submits = %d, want 2 (initial + coalesced)", len(h.pres.submits))
	}
	if h.pres.requests != 1 {
		t.Errorf("requests = %d, want 1", h.pres.requests)
	}
	var value string
	h.tree.Walk(func(_ widget.Index, n *widget.Node) {
		if n.Kind == widget.KindKeyboard {
			value = n.Value
		}
	})
	if value != "C" {
		t.Errorf("keyboard value = %q, want the last update %q", value, "C")
	}
}

func TestConfigureDuringAwaitingFrameRendersNewSize(t *testing.T) {
	h := startLoop(t, keyboardBar(), false)
	h.wl <- configureMsg(640, 30)
	h.waitSubmit(t)

	// Dirty the tree so a frame request goes out, then resize before the
	// grant arrives.
	h.ipcCh <- ipc.Event{Name: "activelayout", Payload: "kbd,A"}
	h.wl <- configureMsg(1024, 30)
	h.wl <- wayland.Message{Opcode: opFrameReady}
	h.waitSubmit(t)
	h.finish(t)

	last := len(h.pres.submitSizes) - 1
	if got := h.pres.submitSizes[last]; got.Width != 1024 {
		t.Errorf("frame rendered at width %d, want 1024", got.Width)
	}
	if got := h.pres.submits[last]; len(got) != 1 || got[0].Width != 1024 {
		t.Errorf("resize damage = %+v, want full 1024-wide surface", got)
	}
}

func TestPollResultsReachTheScreen(t *testing.T) {
	bar := &config.BarConfig{
		Background: "#1d2021",
		Center: []config.Widget{{
			Kind:     "clock",
			Interval: config.Duration{Duration: 5 * time.Millisecond},
		}},
	}
	h := startLoop(t, bar, true)
	h.wl <- configureMsg(640, 30)
	h.waitSubmit(t)
	// The clock repaints when its second flips.
	h.waitSubmit(t)
	h.finish(t)

	var value string
	h.tree.Walk(func(_ widget.Index, n *widget.Node) {
		if n.Kind == widget.KindClock {
			value = n.Value
		}
	})
	if ok, _ := regexp.MatchString(`^\d{2}:\d{2}:\d{2}$`, value); !ok {
		t.Errorf("clock value = %q, want HH:MM:SS", value)
	}
}

func TestIPCStreamEndingIsNotFatal(t *testing.T) {
	h := startLoop(t, keyboardBar(), false)
	h.wl <- configureMsg(640, 30)
	h.waitSubmit(t)

	close(h.ipcCh)
	h.ipcCh = nil

	// The loop keeps serving compositor events afterwards.
	h.wl <- wayland.Message{Opcode: 0}
	h.finish(t)
}

func TestConnectionLossIsFatal(t *testing.T) {
	h := startLoop(t, textBar(), false)
	close(h.wl)
	select {
	case err := <-h.done:
		if !errors.Is(err, wayland.ErrConnectionLost) {
			t.Errorf("Run returned %v, want ErrConnectionLost", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not terminate on connection loss")
	}
}
