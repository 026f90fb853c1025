// Package surface owns the compositor-facing lifecycle of the bar: binding
// the required globals, negotiating layer-surface geometry through the
// configure/ack handshake, double-buffered shared-memory rendering targets,
// and frame-callback pacing for submissions.
package surface

import (
	"errors"
	"fmt"

	"gitlab.com/tinyland/lab/slat/pkg/layout"
	"gitlab.com/tinyland/lab/slat/pkg/render"
	"gitlab.com/tinyland/lab/slat/pkg/wayland"
)

// ErrNotConfigured is returned when a frame is requested before the
// compositor has sent the first configure event.
var ErrNotConfigured = errors.New("surface not configured yet")

// ErrFrameInFlight is returned by Submit when called without a preceding
// frame grant, which would break compositor pacing.
var ErrFrameInFlight = errors.New("frame callback still outstanding")

// wire is the subset of the Wayland connection the surface layer drives.
// Tests substitute a recording stub for the real connection.
type wire interface {
	Bind(iface string, version uint32) (wayland.ObjectID, error)
	CreateSurface(compositor wayland.ObjectID) (wayland.ObjectID, error)
	GetLayerSurface(shell, surface, output wayland.ObjectID, layer wayland.Layer, namespace string) (wayland.ObjectID, error)
	LayerSurfaceSetSize(ls wayland.ObjectID, width, height uint32) error
	LayerSurfaceSetAnchor(ls wayland.ObjectID, anchor wayland.Anchor) error
	LayerSurfaceSetExclusiveZone(ls wayland.ObjectID, zone int32) error
	LayerSurfaceSetMargin(ls wayland.ObjectID, top, right, bottom, left int32) error
	LayerSurfaceAckConfigure(ls wayland.ObjectID, serial uint32) error
	LayerSurfaceDestroy(ls wayland.ObjectID) error
	SurfaceAttach(surface, buffer wayland.ObjectID) error
	SurfaceDamageBuffer(surface wayland.ObjectID, x, y, width, height int32) error
	SurfaceFrame(surface wayland.ObjectID) (wayland.ObjectID, error)
	SurfaceSetBufferScale(surface wayland.ObjectID, scale int32) error
	SurfaceCommit(surface wayland.ObjectID) error
	SurfaceDestroy(surface wayland.ObjectID) error
	ShmCreatePool(shm wayland.ObjectID, fd int, size int32) (wayland.ObjectID, error)
	ShmPoolCreateBuffer(pool wayland.ObjectID, offset, width, height, stride int32, format uint32) (wayland.ObjectID, error)
	ShmPoolResize(pool wayland.ObjectID, size int32) error
	ShmPoolDestroy(pool wayland.ObjectID) error
	BufferDestroy(buffer wayland.ObjectID) error
}

// Options describes the layer surface the bar asks the compositor for.
type Options struct {
	Namespace string
	Layer     wayland.Layer
	Anchor    wayland.Anchor
	// Height is the requested logical height; width is always
	// compositor-chosen via horizontal anchoring.
	Height uint32
	// Margin is the distance from the anchored edges, top right bottom left.
	Margin [4]int
	// Exclusive reserves that much screen space along the anchored edge.
	// Zero reserves nothing, -1 ignores other surfaces' exclusive zones.
	Exclusive int32
}

// Event classifies a compositor message after the Manager has absorbed its
// protocol bookkeeping.
type Event int

const (
	// EventNone carries no work for the event loop.
	EventNone Event = iota
	// EventConfigure means the surface geometry changed; a full redraw is
	// due once a frame can be submitted.
	EventConfigure
	// EventFrameReady means the compositor granted a frame; the loop may
	// render and submit exactly once.
	EventFrameReady
	// EventClosed means the compositor revoked the surface; the loop must
	// terminate.
	EventClosed
)

// Manager drives one layer-shell surface: geometry negotiation, buffer
// management and frame pacing. It is owned by the event loop goroutine and
// is not safe for concurrent use.
type Manager struct {
	conn wire
	opts Options

	compositor   wayland.ObjectID
	shm          wayland.ObjectID
	shell        wayland.ObjectID
	surface      wayland.ObjectID
	layerSurface wayland.ObjectID

	pool *pool

	width, height int
	scale         int32
	lastSerial    uint32
	configured    bool

	frameCB       wayland.ObjectID
	framePending  bool
	everSubmitted bool
	current       *buffer
}

// NewManager wraps an established connection. Initialize must be called
// before any other method.
func NewManager(conn wire, opts Options) *Manager {
	if opts.Namespace == "" {
		opts.Namespace = "slat"
	}
	return &Manager{conn: conn, opts: opts, scale: 1}
}

// Initialize binds the required globals, creates the layer surface with the
// configured geometry and commits it so the compositor answers with the
// first configure event. Returns wayland.ErrProtocolUnavailable when the
// compositor lacks wl_compositor, wl_shm or zwlr_layer_shell_v1.
func (m *Manager) Initialize() error {
	var err error
	if m.compositor, err = m.conn.Bind(wayland.IfaceCompositor, 4); err != nil {
		return err
	}
	if m.shm, err = m.conn.Bind(wayland.IfaceShm, 1); err != nil {
		return err
	}
	if m.shell, err = m.conn.Bind(wayland.IfaceLayerShell, 1); err != nil {
		return err
	}

	if m.surface, err = m.conn.CreateSurface(m.compositor); err != nil {
		return err
	}
	m.layerSurface, err = m.conn.GetLayerSurface(m.shell, m.surface, 0, m.opts.Layer, m.opts.Namespace)
	if err != nil {
		return err
	}

	if err := m.conn.LayerSurfaceSetSize(m.layerSurface, 0, m.opts.Height); err != nil {
		return err
	}
	if err := m.conn.LayerSurfaceSetAnchor(m.layerSurface, m.opts.Anchor); err != nil {
		return err
	}
	if err := m.conn.LayerSurfaceSetExclusiveZone(m.layerSurface, m.opts.Exclusive); err != nil {
		return err
	}
	mg := m.opts.Margin
	if err := m.conn.LayerSurfaceSetMargin(m.layerSurface,
		int32(mg[0]), int32(mg[1]), int32(mg[2]), int32(mg[3])); err != nil {
		return err
	}

	m.pool = newPool(m.conn, m.shm)

	// A bare commit with no buffer attached starts the configure handshake.
	return m.conn.SurfaceCommit(m.surface)
}

// Handle absorbs one compositor message and reports what the event loop
// should do about it.
func (m *Manager) Handle(msg wayland.Message) (Event, error) {
	switch {
	case msg.Object == m.layerSurface && msg.Opcode == wayland.EvLayerSurfaceConfigure:
		return m.handleConfigure(msg)
	case msg.Object == m.layerSurface && msg.Opcode == wayland.EvLayerSurfaceClosed:
		return EventClosed, nil
	case msg.Object == m.frameCB && msg.Opcode == 0 && m.frameCB != 0:
		m.frameCB = 0
		m.framePending = false
		return EventFrameReady, nil
	case msg.Opcode == wayland.EvBufferRelease && m.pool.release(msg.Object):
		return EventNone, nil
	}
	return EventNone, nil
}

// handleConfigure acks the configure and applies the new geometry. A
// configure that repeats the current size is acked but produces no event,
// so replayed serials cannot trigger redundant redraws.
func (m *Manager) handleConfigure(msg wayland.Message) (Event, error) {
	d := wayland.NewDecoder(msg.Body)
	serial := d.Uint32()
	width := int(d.Uint32())
	height := int(d.Uint32())
	if err := d.Err(); err != nil {
		return EventNone, fmt.Errorf("configure event: %w", err)
	}

	if err := m.conn.LayerSurfaceAckConfigure(m.layerSurface, serial); err != nil {
		return EventNone, err
	}
	m.lastSerial = serial

	// Zero means the compositor lets us keep the requested dimension.
	if width == 0 {
		width = m.width
	}
	if height == 0 {
		height = int(m.opts.Height)
	}
	if m.configured && width == m.width && height == m.height {
		return EventNone, nil
	}

	m.width, m.height = width, height
	m.configured = true
	if err := m.pool.ensure(width*int(m.scale), height*int(m.scale)); err != nil {
		return EventNone, err
	}
	return EventConfigure, nil
}

// Size returns the current logical surface size. Valid once Configured.
func (m *Manager) Size() layout.Size {
	return layout.Size{Width: m.width, Height: m.height}
}

// Scale returns the integer buffer scale.
func (m *Manager) Scale() int32 { return m.scale }

// Configured reports whether the first configure has been applied.
func (m *Manager) Configured() bool { return m.configured }

// FramePending reports whether a frame callback is outstanding.
func (m *Manager) FramePending() bool { return m.framePending }

// RequestFrame asks the compositor for permission to draw. At most one
// request is outstanding at a time; extra calls while one is pending are
// dropped. Before anything has ever been submitted there is no commit for
// the compositor to answer, so the grant is synthesized: the return value
// is true when the caller may render immediately.
func (m *Manager) RequestFrame() (bool, error) {
	if !m.configured {
		return false, ErrNotConfigured
	}
	if m.framePending {
		return false, nil
	}
	if !m.everSubmitted {
		return true, nil
	}
	cb, err := m.conn.SurfaceFrame(m.surface)
	if err != nil {
		return false, err
	}
	if err := m.conn.SurfaceCommit(m.surface); err != nil {
		return false, err
	}
	m.frameCB = cb
	m.framePending = true
	return false, nil
}

// BeginFrame returns the canvas for the next frame, backed by a buffer the
// compositor is not scanning out.
func (m *Manager) BeginFrame() (*render.Canvas, error) {
	if !m.configured {
		return nil, ErrNotConfigured
	}
	b, mem, err := m.pool.acquire()
	if err != nil {
		return nil, err
	}
	m.current = b
	pw := m.width * int(m.scale)
	ph := m.height * int(m.scale)
	return render.NewCanvas(mem, pw, ph), nil
}

// Submit attaches the frame begun with BeginFrame, posts its damage in
// buffer coordinates and commits. An empty damage list commits the whole
// buffer.
func (m *Manager) Submit(damage []layout.Rect) error {
	if m.current == nil {
		return errors.New("no frame begun")
	}
	if m.framePending {
		return ErrFrameInFlight
	}
	if m.scale != 1 {
		if err := m.conn.SurfaceSetBufferScale(m.surface, m.scale); err != nil {
			return err
		}
	}
	if err := m.conn.SurfaceAttach(m.surface, m.current.id); err != nil {
		return err
	}
	if len(damage) == 0 {
		damage = []layout.Rect{{Width: m.width * int(m.scale), Height: m.height * int(m.scale)}}
	}
	for _, r := range damage {
		if r.Empty() {
			continue
		}
		if err := m.conn.SurfaceDamageBuffer(m.surface,
			int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height)); err != nil {
			return err
		}
	}
	if err := m.conn.SurfaceCommit(m.surface); err != nil {
		return err
	}
	m.pool.markSubmitted(m.current)
	m.current = nil
	m.everSubmitted = true
	return nil
}

// Destroy tears down the protocol objects and the shared memory pool.
func (m *Manager) Destroy() {
	if m.pool != nil {
		m.pool.destroy()
	}
	if m.layerSurface != 0 {
		m.conn.LayerSurfaceDestroy(m.layerSurface)
		m.layerSurface = 0
	}
	if m.surface != 0 {
		m.conn.SurfaceDestroy(m.surface)
		m.surface = 0
	}
}
