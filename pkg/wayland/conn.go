// Package wayland implements the client side of the Wayland wire protocol
// over the compositor's unix socket, covering exactly the interface subset a
// layer-shell status bar needs: wl_display, wl_registry, wl_callback,
// wl_compositor, wl_surface, wl_shm, wl_shm_pool, wl_buffer, wl_output,
// zwlr_layer_shell_v1 and zwlr_layer_surface_v1.
//
// Messages are length-prefixed words in host byte order: an 8-byte header
// (object id, then size<<16|opcode) followed by 32-bit-aligned arguments.
// File descriptors travel out of band via SCM_RIGHTS control messages.
//
// The connection itself carries no widget or rendering logic. Registry
// bookkeeping (global announcements) and wl_display housekeeping (protocol
// errors, delete_id) are absorbed here; every other event is surfaced as an
// opaque Message for the owner to interpret.
package wayland

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// ErrProtocolUnavailable is returned when a required compositor global is
// not announced on the registry. Startup treats this as fatal.
var ErrProtocolUnavailable = errors.New("required wayland global not available")

// ErrConnectionLost is returned once the compositor connection is gone,
// either because the socket closed or a wl_display.error arrived. There is
// no reconnection: the bar's lifetime is scoped to one compositor session.
var ErrConnectionLost = errors.New("wayland connection lost")

// ObjectID identifies a protocol object within the connection.
type ObjectID uint32

// DisplayID is the fixed object id of wl_display.
const DisplayID ObjectID = 1

// Message is one event received from the compositor. Body holds the raw
// argument words; FDs holds any file descriptors attached via SCM_RIGHTS.
type Message struct {
	Object ObjectID
	Opcode uint16
	Body   []byte
	FDs    []int
}

// Global describes one announced registry global.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Conn is a connection to a Wayland compositor. It is not safe for
// concurrent senders; the event loop is the sole owner after startup, with
// the read pump as the only other goroutine touching the socket (reads and
// writes never share state).
type Conn struct {
	fd       int
	nextID   uint32
	registry ObjectID
	globals  map[string]Global

	readBuf []byte
	fdQueue []int

	events  chan Message
	readErr atomic.Pointer[error]
	closed  atomic.Bool
}

// Connect dials the compositor socket named by $WAYLAND_DISPLAY under
// $XDG_RUNTIME_DIR and performs the initial registry roundtrip so that
// Globals reflects every advertised interface.
func Connect() (*Conn, error) {
	path, err := socketPath()
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connect to %s: %w", path, err)
	}

	c := &Conn{
		fd:      fd,
		nextID:  2, // 1 is reserved for wl_display
		globals: make(map[string]Global),
		events:  make(chan Message, 64),
	}

	// wl_display.get_registry, then sync so all globals are known before
	// the caller binds anything.
	c.registry = c.NewID()
	if err := c.SendRequest(DisplayID, opDisplayGetRegistry, uint32(c.registry)); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.Roundtrip(nil); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// socketPath resolves the compositor socket location from the environment.
func socketPath() (string, error) {
	name := os.Getenv("WAYLAND_DISPLAY")
	if name == "" {
		name = "wayland-0"
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	runDir := os.Getenv("XDG_RUNTIME_DIR")
	if runDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR not set")
	}
	return filepath.Join(runDir, name), nil
}

// NewID allocates the next client-side object id.
func (c *Conn) NewID() ObjectID {
	id := c.nextID
	c.nextID++
	return ObjectID(id)
}

// Globals returns the registry global for the named interface.
func (c *Conn) Globals(iface string) (Global, bool) {
	g, ok := c.globals[iface]
	return g, ok
}

// Bind binds the named registry global to a freshly allocated object id.
// The bound version is the lower of the requested and advertised versions.
// Returns ErrProtocolUnavailable if the compositor never announced the
// interface.
func (c *Conn) Bind(iface string, version uint32) (ObjectID, error) {
	g, ok := c.globals[iface]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrProtocolUnavailable, iface)
	}
	if g.Version < version {
		version = g.Version
	}
	id := c.NewID()
	// wl_registry.bind carries a full new_id: interface string, version,
	// then the allocated id.
	err := c.SendRequest(c.registry, opRegistryBind, g.Name, iface, version, uint32(id))
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SendRequest marshals and sends one request with no file descriptors.
func (c *Conn) SendRequest(obj ObjectID, opcode uint16, args ...any) error {
	return c.SendRequestFDs(obj, opcode, nil, args...)
}

// SendRequestFDs marshals and sends one request, attaching fds via
// SCM_RIGHTS. Supported argument types: uint32, int32, string (wire strings
// carry a NUL terminator and 32-bit padding), []byte arrays, and ObjectID.
func (c *Conn) SendRequestFDs(obj ObjectID, opcode uint16, fds []int, args ...any) error {
	if c.closed.Load() {
		return ErrConnectionLost
	}
	body, err := marshalArgs(args)
	if err != nil {
		return fmt.Errorf("marshal request %d.%d: %w", obj, opcode, err)
	}
	size := 8 + len(body)
	if size > 0xFFFF {
		return fmt.Errorf("request %d.%d too large: %d bytes", obj, opcode, size)
	}

	msg := make([]byte, size)
	putUint32(msg[0:4], uint32(obj))
	putUint32(msg[4:8], uint32(size)<<16|uint32(opcode))
	copy(msg[8:], body)

	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	for len(msg) > 0 {
		n, err := unix.SendmsgN(c.fd, msg, oob, nil, 0)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			c.fail(fmt.Errorf("%w: send: %v", ErrConnectionLost, err))
			return ErrConnectionLost
		}
		msg = msg[n:]
		oob = nil // control data goes out with the first byte
	}
	return nil
}

// ReadMessage blocks until the next event the caller should see. Registry
// globals and wl_display housekeeping are consumed internally; a
// wl_display.error terminates the connection and is returned as
// ErrConnectionLost with the compositor's diagnostic attached.
func (c *Conn) ReadMessage() (Message, error) {
	for {
		m, err := c.readRaw()
		if err != nil {
			return Message{}, err
		}
		switch {
		case m.Object == DisplayID:
			if err := c.handleDisplay(m); err != nil {
				return Message{}, err
			}
		case m.Object == c.registry:
			c.handleRegistry(m)
		default:
			return m, nil
		}
	}
}

// readRaw reads exactly one wire message, header plus body.
func (c *Conn) readRaw() (Message, error) {
	if err := c.fill(8); err != nil {
		return Message{}, err
	}
	obj := getUint32(c.readBuf[0:4])
	sizeOp := getUint32(c.readBuf[4:8])
	size := int(sizeOp >> 16)
	opcode := uint16(sizeOp & 0xFFFF)
	if size < 8 {
		err := fmt.Errorf("%w: malformed header (size %d)", ErrConnectionLost, size)
		c.fail(err)
		return Message{}, err
	}
	if err := c.fill(size); err != nil {
		return Message{}, err
	}

	body := make([]byte, size-8)
	copy(body, c.readBuf[8:size])
	c.readBuf = c.readBuf[size:]

	fds := c.fdQueue
	c.fdQueue = nil

	return Message{Object: ObjectID(obj), Opcode: opcode, Body: body, FDs: fds}, nil
}

// fill blocks until at least n bytes are buffered, collecting any
// SCM_RIGHTS fds that arrive alongside the data.
func (c *Conn) fill(n int) error {
	for len(c.readBuf) < n {
		buf := make([]byte, 4096)
		oob := make([]byte, 256)
		nr, oobn, _, _, err := unix.Recvmsg(c.fd, buf, oob, unix.MSG_CMSG_CLOEXEC)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			werr := fmt.Errorf("%w: recv: %v", ErrConnectionLost, err)
			c.fail(werr)
			return werr
		}
		if nr == 0 {
			werr := fmt.Errorf("%w: compositor closed the socket", ErrConnectionLost)
			c.fail(werr)
			return werr
		}
		c.readBuf = append(c.readBuf, buf[:nr]...)
		if oobn > 0 {
			c.fdQueue = append(c.fdQueue, parseFDs(oob[:oobn])...)
		}
	}
	return nil
}

// parseFDs extracts file descriptors from SCM_RIGHTS control messages.
func parseFDs(oob []byte) []int {
	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil
	}
	var fds []int
	for _, cm := range cmsgs {
		got, err := unix.ParseUnixRights(&cm)
		if err != nil {
			continue
		}
		fds = append(fds, got...)
	}
	return fds
}

// handleDisplay processes wl_display events: error (fatal) and delete_id
// (object retirement; ids are not recycled here, so it is a no-op).
func (c *Conn) handleDisplay(m Message) error {
	switch m.Opcode {
	case evDisplayError:
		d := NewDecoder(m.Body)
		objID := d.Uint32()
		code := d.Uint32()
		text := d.String()
		err := fmt.Errorf("%w: protocol error on object %d code %d: %s",
			ErrConnectionLost, objID, code, text)
		c.fail(err)
		return err
	case evDisplayDeleteID:
		// Ids are allocated monotonically and never reused.
	}
	return nil
}

// handleRegistry records global announcements and removals.
func (c *Conn) handleRegistry(m Message) {
	d := NewDecoder(m.Body)
	switch m.Opcode {
	case evRegistryGlobal:
		name := d.Uint32()
		iface := d.String()
		version := d.Uint32()
		if d.Err() == nil {
			c.globals[iface] = Global{Name: name, Interface: iface, Version: version}
		}
	case evRegistryGlobalRemove:
		name := d.Uint32()
		for iface, g := range c.globals {
			if g.Name == name {
				delete(c.globals, iface)
				break
			}
		}
	}
}

// Roundtrip issues wl_display.sync and processes events until the
// compositor acknowledges it, guaranteeing all prior requests have been
// handled. Messages that arrive in between are passed to handle when it is
// non-nil and discarded otherwise.
func (c *Conn) Roundtrip(handle func(Message) error) error {
	cb := c.NewID()
	if err := c.SendRequest(DisplayID, opDisplaySync, uint32(cb)); err != nil {
		return err
	}
	for {
		m, err := c.ReadMessage()
		if err != nil {
			return err
		}
		if m.Object == cb && m.Opcode == evCallbackDone {
			return nil
		}
		if handle != nil {
			if err := handle(m); err != nil {
				return err
			}
		}
	}
}

// Pump starts the read goroutine feeding Events. After the connection
// fails or closes, the channel is closed and Err reports the cause.
// Call at most once, after all startup roundtrips are done.
func (c *Conn) Pump() {
	go func() {
		defer close(c.events)
		for {
			m, err := c.ReadMessage()
			if err != nil {
				return
			}
			c.events <- m
		}
	}()
}

// Events returns the channel fed by Pump.
func (c *Conn) Events() <-chan Message {
	return c.events
}

// Err returns the terminal connection error, or nil while healthy.
func (c *Conn) Err() error {
	if p := c.readErr.Load(); p != nil {
		return *p
	}
	return nil
}

// fail records the first terminal error.
func (c *Conn) fail(err error) {
	c.readErr.CompareAndSwap(nil, &err)
}

// Close shuts down and closes the socket, waking any blocked reader.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.fail(ErrConnectionLost)
	unix.Shutdown(c.fd, unix.SHUT_RDWR)
	return unix.Close(c.fd)
}
