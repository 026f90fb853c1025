package surface

import (
	"encoding/binary"
	"errors"
	"testing"

	"gitlab.com/tinyland/lab/slat/pkg/layout"
	"gitlab.com/tinyland/lab/slat/pkg/wayland"
	"gitlab.com/tinyland/lab/slat/pkg/widget"
)

// stubWire records every request the manager issues and allocates object
// ids the way the real connection does.
type stubWire struct {
	nextID wayland.ObjectID
	calls  []string
	acks   []uint32
	bound  []string
}

func newStubWire() *stubWire {
	return &stubWire{nextID: 2}
}

func (s *stubWire) id() wayland.ObjectID {
	id := s.nextID
	s.nextID++
	return id
}

func (s *stubWire) record(name string) {
	s.calls = append(s.calls, name)
}

func (s *stubWire) count(name string) int {
	n := 0
	for _, c := range s.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (s *stubWire) Bind(iface string, version uint32) (wayland.ObjectID, error) {
	s.record("bind")
	s.bound = append(s.bound, iface)
	return s.id(), nil
}

func (s *stubWire) CreateSurface(wayland.ObjectID) (wayland.ObjectID, error) {
	s.record("create_surface")
	return s.id(), nil
}

func (s *stubWire) GetLayerSurface(_, _, _ wayland.ObjectID, _ wayland.Layer, _ string) (wayland.ObjectID, error) {
	s.record("get_layer_surface")
	return s.id(), nil
}

func (s *stubWire) LayerSurfaceSetSize(_ wayland.ObjectID, _, _ uint32) error {
	s.record("set_size")
	return nil
}

func (s *stubWire) LayerSurfaceSetAnchor(wayland.ObjectID, wayland.Anchor) error {
	s.record("set_anchor")
	return nil
}

func (s *stubWire) LayerSurfaceSetExclusiveZone(wayland.ObjectID, int32) error {
	s.record("set_exclusive_zone")
	return nil
}

func (s *stubWire) LayerSurfaceSetMargin(wayland.ObjectID, int32, int32, int32, int32) error {
	s.record("set_margin")
	return nil
}

func (s *stubWire) LayerSurfaceAckConfigure(_ wayland.ObjectID, serial uint32) error {
	s.record("ack_configure")
	s.acks = append(s.acks, serial)
	return nil
}

func (s *stubWire) LayerSurfaceDestroy(wayland.ObjectID) error {
	s.record("layer_surface_destroy")
	return nil
}

func (s *stubWire) SurfaceAttach(_, _ wayland.ObjectID) error {
	s.record("attach")
	return nil
}

func (s *stubWire) SurfaceDamageBuffer(_ wayland.ObjectID, _, _, _, _ int32) error {
	s.record("damage")
	return nil
}

func (s *stubWire) SurfaceFrame(wayland.ObjectID) (wayland.ObjectID, error) {
	s.record("frame")
	return s.id(), nil
}

func (s *stubWire) SurfaceSetBufferScale(wayland.ObjectID, int32) error {
	s.record("set_buffer_scale")
	return nil
}

func (s *stubWire) SurfaceCommit(wayland.ObjectID) error {
	s.record("commit")
	return nil
}

func (s *stubWire) SurfaceDestroy(wayland.ObjectID) error {
	s.record("surface_destroy")
	return nil
}

func (s *stubWire) ShmCreatePool(_ wayland.ObjectID, _ int, _ int32) (wayland.ObjectID, error) {
	s.record("create_pool")
	return s.id(), nil
}

func (s *stubWire) ShmPoolCreateBuffer(_ wayland.ObjectID, _, _, _, _ int32, _ uint32) (wayland.ObjectID, error) {
	s.record("create_buffer")
	return s.id(), nil
}

func (s *stubWire) ShmPoolResize(wayland.ObjectID, int32) error {
	s.record("pool_resize")
	return nil
}

func (s *stubWire) ShmPoolDestroy(wayland.ObjectID) error {
	s.record("pool_destroy")
	return nil
}

func (s *stubWire) BufferDestroy(wayland.ObjectID) error {
	s.record("buffer_destroy")
	return nil
}

func testManager(t *testing.T) (*Manager, *stubWire) {
	t.Helper()
	w := newStubWire()
	m := NewManager(w, Options{
		Namespace: "slat",
		Layer:     wayland.LayerTop,
		Anchor:    wayland.AnchorTop | wayland.AnchorLeft | wayland.AnchorRight,
		Height:    30,
		Exclusive: 30,
	})
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize error: %v", err)
	}
	t.Cleanup(m.Destroy)
	return m, w
}

// configureMsg builds a zwlr_layer_surface_v1.configure event body.
func configureMsg(m *Manager, serial, width, height uint32) wayland.Message {
	body := make([]byte, 12)
	binary.LittleEndian.PutUint32(body[0:], serial)
	binary.LittleEndian.PutUint32(body[4:], width)
	binary.LittleEndian.PutUint32(body[8:], height)
	return wayland.Message{
		Object: m.layerSurface,
		Opcode: wayland.EvLayerSurfaceConfigure,
		Body:   body,
	}
}

func configure(t *testing.T, m *Manager, serial, width, height uint32) Event {
	t.Helper()
	ev, err := m.Handle(configureMsg(m, serial, width, height))
	if err != nil {
		t.Fatalf("Handle(configure) error: %v", err)
	}
	return ev
}

func TestInitializeNegotiation(t *testing.T) {
	_, w := testManager(t)

	wantBound := []string{"wl_compositor", "wl_shm", "zwlr_layer_shell_v1"}
	if len(w.bound) != len(wantBound) {
		t.Fatalf("bound = %v, want %v", w.bound, wantBound)
	}
	for i := range wantBound {
		if w.bound[i] != wantBound[i] {
			t.Errorf("bound[%d] = %q, want %q", i, w.bound[i], wantBound[i])
		}
	}
	for _, call := range []string{"set_size", "set_anchor", "set_exclusive_zone", "set_margin", "commit"} {
		if w.count(call) != 1 {
			t.Errorf("%s issued %d times, want 1", call, w.count(call))
		}
	}
}

func TestConfigureAppliesGeometry(t *testing.T) {
	m, w := testManager(t)

	if ev := configure(t, m, 1, 800, 30); ev != EventConfigure {
		t.Fatalf("first configure event = %v, want EventConfigure", ev)
	}
	if !m.Configured() {
		t.Error("Configured() = false after configure")
	}
	if got := m.Size(); got != (layout.Size{Width: 800, Height: 30}) {
		t.Errorf("Size() = %+v", got)
	}
	if len(w.acks) != 1 || w.acks[0] != 1 {
		t.Errorf("acks = %v, want [1]", w.acks)
	}
	if w.count("create_buffer") != bufferCount {
		t.Errorf("create_buffer issued %d times, want %d", w.count("create_buffer"), bufferCount)
	}
}

func TestConfigureIdempotentForSameSize(t *testing.T) {
	m, w := testManager(t)
	configure(t, m, 1, 800, 30)

	// A repeated configure with the same size is acked but triggers no
	// redraw and no buffer churn.
	buffers := w.count("create_buffer")
	if ev := configure(t, m, 2, 800, 30); ev != EventNone {
		t.Errorf("repeat configure event = %v, want EventNone", ev)
	}
	if len(w.acks) != 2 || w.acks[1] != 2 {
		t.Errorf("acks = %v, want [1 2]", w.acks)
	}
	if w.count("create_buffer") != buffers {
		t.Error("same-size configure should not recreate buffers")
	}
}

func TestConfigureZeroKeepsRequested(t *testing.T) {
	m, _ := testManager(t)
	if ev := configure(t, m, 1, 800, 0); ev != EventConfigure {
		t.Fatalf("configure event = %v", ev)
	}
	if got := m.Size(); got.Height != 30 {
		t.Errorf("height = %d, want requested 30", got.Height)
	}
}

func TestConfigureResize(t *testing.T) {
	m, _ := testManager(t)
	configure(t, m, 1, 800, 30)
	if ev := configure(t, m, 2, 1024, 30); ev != EventConfigure {
		t.Errorf("resize configure event = %v, want EventConfigure", ev)
	}
	if got := m.Size(); got.Width != 1024 {
		t.Errorf("width = %d, want 1024", got.Width)
	}
}

func TestFirstFrameGrantIsSynthetic(t *testing.T) {
	m, w := testManager(t)
	configure(t, m, 1, 100, 30)

	ready, err := m.RequestFrame()
	if err != nil {
		t.Fatalf("RequestFrame error: %v", err)
	}
	if !ready {
		t.Fatal("first frame grant should be immediate")
	}
	if w.count("frame") != 0 {
		t.Error("no wl_surface.frame should be sent before the first submit")
	}
}

func TestSubmitAttachesAndDamages(t *testing.T) {
	m, w := testManager(t)
	configure(t, m, 1, 100, 30)

	if _, err := m.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame error: %v", err)
	}
	commits := w.count("commit")
	err := m.Submit([]layout.Rect{{X: 10, Y: 0, Width: 20, Height: 13}})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if w.count("attach") != 1 {
		t.Errorf("attach issued %d times, want 1", w.count("attach"))
	}
	if w.count("damage") != 1 {
		t.Errorf("damage issued %d times, want 1", w.count("damage"))
	}
	if w.count("commit") != commits+1 {
		t.Error("Submit should commit exactly once")
	}
}

func TestFrameBackPressure(t *testing.T) {
	m, w := testManager(t)
	configure(t, m, 1, 100, 30)

	// Prime: first frame submits synthetically.
	if _, err := m.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := m.Submit(nil); err != nil {
		t.Fatal(err)
	}

	ready, err := m.RequestFrame()
	if err != nil {
		t.Fatalf("RequestFrame error: %v", err)
	}
	if ready {
		t.Fatal("grant should go through the compositor after a submit")
	}
	if !m.FramePending() {
		t.Fatal("FramePending() = false after a request")
	}
	frames := w.count("frame")

	// Extra requests while one is pending are dropped, not queued.
	if ready, _ := m.RequestFrame(); ready {
		t.Error("second request should not be granted")
	}
	if w.count("frame") != frames {
		t.Error("second request should not reach the compositor")
	}

	// Submitting while a callback is outstanding breaks pacing.
	if _, err := m.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := m.Submit(nil); !errors.Is(err, ErrFrameInFlight) {
		t.Errorf("Submit error = %v, want ErrFrameInFlight", err)
	}

	// The callback's done event releases the gate.
	ev, err := m.Handle(wayland.Message{Object: m.frameCB, Opcode: 0})
	if err != nil {
		t.Fatalf("Handle(done) error: %v", err)
	}
	if ev != EventFrameReady {
		t.Errorf("event = %v, want EventFrameReady", ev)
	}
	if m.FramePending() {
		t.Error("FramePending() = true after the grant")
	}
	if err := m.Submit(nil); err != nil {
		t.Errorf("Submit after grant error: %v", err)
	}
}

func TestBuffersAlternate(t *testing.T) {
	m, _ := testManager(t)
	configure(t, m, 1, 100, 30)

	if _, err := m.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	first := m.current.id
	if err := m.Submit(nil); err != nil {
		t.Fatal(err)
	}

	if _, err := m.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if m.current.id == first {
		t.Error("second frame should draw into the other buffer")
	}

	// A release event frees the first buffer again.
	ev, err := m.Handle(wayland.Message{Object: first, Opcode: wayland.EvBufferRelease})
	if err != nil || ev != EventNone {
		t.Fatalf("Handle(release) = %v, %v", ev, err)
	}
	if m.pool.bufs[0].busy && m.pool.bufs[1].busy {
		t.Error("released buffer still marked busy")
	}
}

func TestBackBufferCarriesPreviousFrame(t *testing.T) {
	m, _ := testManager(t)
	configure(t, m, 1, 100, 30)

	bg := widget.ARGB(0xFF, 0x10, 0x20, 0x30)
	fg := widget.ARGB(0xFF, 0xFF, 0xFF, 0xFF)
	text := layout.Rect{X: 4, Y: 8, Width: 35, Height: 13}

	c, err := m.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame error: %v", err)
	}
	c.Fill(layout.Rect{Width: 100, Height: 30}, bg)
	c.Fill(text, fg)
	if err := m.Submit(nil); err != nil {
		t.Fatal(err)
	}

	// The second frame lands in the other buffer. An attach replaces the
	// surface content wholesale, so everything outside the rects an
	// incremental repaint touches must already hold the previous frame.
	c2, err := m.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame error: %v", err)
	}
	at := func(x, y int) [4]byte {
		i := (y*c2.W + x) * 4
		return [4]byte{c2.Pix[i], c2.Pix[i+1], c2.Pix[i+2], c2.Pix[i+3]}
	}
	if got := at(text.X+1, text.Y+1); got != [4]byte{0xFF, 0xFF, 0xFF, 0xFF} {
		t.Errorf("pixel inside untouched text rect = %v, want previous glyph pixels", got)
	}
	if got := at(60, 2); got != [4]byte{0x30, 0x20, 0x10, 0xFF} {
		t.Errorf("background pixel = %v, want previous background", got)
	}
}

func TestResizeDropsCarriedPixels(t *testing.T) {
	m, _ := testManager(t)
	configure(t, m, 1, 100, 30)

	c, err := m.BeginFrame()
	if err != nil {
		t.Fatal(err)
	}
	c.Fill(layout.Rect{Width: 100, Height: 30}, widget.ARGB(0xFF, 0xAA, 0xBB, 0xCC))
	if err := m.Submit(nil); err != nil {
		t.Fatal(err)
	}

	// New geometry means new buffers; nothing from the old frame applies.
	configure(t, m, 2, 200, 30)
	if m.pool.last != -1 {
		t.Errorf("pool.last = %d after resize, want -1", m.pool.last)
	}
}

func TestClosedEvent(t *testing.T) {
	m, _ := testManager(t)
	ev, err := m.Handle(wayland.Message{
		Object: m.layerSurface,
		Opcode: wayland.EvLayerSurfaceClosed,
	})
	if err != nil {
		t.Fatalf("Handle(closed) error: %v", err)
	}
	if ev != EventClosed {
		t.Errorf("event = %v, want EventClosed", ev)
	}
}

func TestRequestFrameBeforeConfigure(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.RequestFrame(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("RequestFrame error = %v, want ErrNotConfigured", err)
	}
	if _, err := m.BeginFrame(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("BeginFrame error = %v, want ErrNotConfigured", err)
	}
}

func TestCanvasMatchesSurface(t *testing.T) {
	m, _ := testManager(t)
	configure(t, m, 1, 320, 24)

	c, err := m.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame error: %v", err)
	}
	if c.W != 320 || c.H != 24 {
		t.Errorf("canvas = %dx%d, want 320x24", c.W, c.H)
	}
	if len(c.Pix) < 320*24*4 {
		t.Errorf("canvas backing = %d bytes, want at least %d", len(c.Pix), 320*24*4)
	}
}
