// Package ipc talks to Hyprland over its two unix sockets. The event socket
// (.socket2.sock) streams newline-separated "EVENT>>payload" records; the
// request socket (.socket.sock) answers one command per connection and is
// used once at startup to learn the current state, since the stream only
// reports changes. Absence of a running Hyprland is not an error for the bar
// as a whole, only for the widgets that feed on these events.
package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// ErrNoCompositor is returned by Connect when the Hyprland instance
// environment is absent, meaning the bar runs under a different compositor.
var ErrNoCompositor = errors.New("hyprland instance signature not set")

// Event is one compositor notification.
type Event struct {
	Name    string
	Payload string
}

// Client reads the Hyprland socket2 event stream. Events arrive on the
// channel returned by Events; the channel is closed when the stream ends,
// and Err reports why.
type Client struct {
	conn    net.Conn
	events  chan Event
	readErr atomic.Pointer[error]
	closed  atomic.Bool
}

// Connect dials the event socket of the current Hyprland instance, located
// under $XDG_RUNTIME_DIR/hypr/$HYPRLAND_INSTANCE_SIGNATURE/, and seeds the
// stream with the instance's current state so subscribers do not wait for
// the first change.
func Connect() (*Client, error) {
	dir, err := instanceDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, ".socket2.sock")
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	return newClient(conn, seed(dir)), nil
}

func instanceDir() (string, error) {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if sig == "" {
		return "", ErrNoCompositor
	}
	runDir := os.Getenv("XDG_RUNTIME_DIR")
	if runDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR not set")
	}
	return filepath.Join(runDir, "hypr", sig), nil
}

func newClient(conn net.Conn, seed []Event) *Client {
	c := &Client{
		conn:   conn,
		events: make(chan Event, 16),
	}
	go c.read(seed)
	return c
}

// read delivers the seed ahead of the live stream, then pumps lines into the
// event channel until the socket fails.
func (c *Client) read(seed []Event) {
	defer close(c.events)
	for _, ev := range seed {
		c.events <- ev
	}
	sc := bufio.NewScanner(c.conn)
	for sc.Scan() {
		ev, ok := ParseEvent(sc.Text())
		if !ok {
			continue
		}
		c.events <- ev
	}
	err := sc.Err()
	if err == nil {
		err = errors.New("event socket closed")
	}
	c.readErr.CompareAndSwap(nil, &err)
}

// ParseEvent splits one "EVENT>>payload" line. Lines without the separator
// are not events and are dropped.
func ParseEvent(line string) (Event, bool) {
	name, payload, ok := strings.Cut(line, ">>")
	if !ok || name == "" {
		return Event{}, false
	}
	return Event{Name: name, Payload: payload}, true
}

// Events returns the stream of compositor notifications.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Err returns the terminal stream error, or nil while healthy.
func (c *Client) Err() error {
	if p := c.readErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Close terminates the stream; the events channel closes shortly after.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}
