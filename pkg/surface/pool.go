package surface

import (
	"fmt"

	"golang.org/x/sys/unix"

	"gitlab.com/tinyland/lab/slat/pkg/wayland"
)

// bufferCount is the number of wl_buffers carved from the pool. Two is
// enough under frame-callback throttling: the compositor scans out one
// buffer while the next frame is drawn into the other.
const bufferCount = 2

// buffer is one wl_buffer slot inside the pool. busy means the compositor
// holds it and has not yet sent wl_buffer.release.
type buffer struct {
	id     wayland.ObjectID
	offset int
	busy   bool
}

// pool owns the shared memory backing the surface: a memfd mapped into the
// client, exported to the compositor as a wl_shm_pool, and carved into two
// equally sized buffers that alternate between frames.
type pool struct {
	conn wire
	shm  wayland.ObjectID

	fd   int
	mem  []byte
	size int
	id   wayland.ObjectID

	width  int
	height int
	stride int

	bufs [bufferCount]buffer
	next int
	// last is the slot most recently submitted, or -1 when no frame with
	// the current geometry has been committed yet.
	last int
}

func newPool(conn wire, shm wayland.ObjectID) *pool {
	return &pool{conn: conn, shm: shm, fd: -1, last: -1}
}

// ensure makes the pool hold two buffers of the given pixel geometry,
// creating or growing the backing memory as needed. Safe to call on every
// configure; it is a no-op when the geometry is unchanged.
func (p *pool) ensure(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid buffer geometry %dx%d", width, height)
	}
	if width == p.width && height == p.height && p.id != 0 {
		return nil
	}

	stride := width * 4
	need := stride * height * bufferCount

	if p.fd < 0 {
		fd, err := unix.MemfdCreate("slat-shm", unix.MFD_CLOEXEC)
		if err != nil {
			return fmt.Errorf("memfd_create: %w", err)
		}
		p.fd = fd
	}

	if need > p.size {
		if err := unix.Ftruncate(p.fd, int64(need)); err != nil {
			return fmt.Errorf("grow shm file to %d: %w", need, err)
		}
		if p.mem != nil {
			unix.Munmap(p.mem)
			p.mem = nil
		}
		mem, err := unix.Mmap(p.fd, 0, need, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return fmt.Errorf("map shm file: %w", err)
		}
		p.mem = mem

		if p.id == 0 {
			id, err := p.conn.ShmCreatePool(p.shm, p.fd, int32(need))
			if err != nil {
				return err
			}
			p.id = id
		} else if err := p.conn.ShmPoolResize(p.id, int32(need)); err != nil {
			return err
		}
		p.size = need
	}

	// Geometry changed: retire the old buffers and carve new ones. A busy
	// buffer the compositor still holds is destroyed too; the attach that
	// replaced it has already superseded its content.
	for i := range p.bufs {
		if p.bufs[i].id != 0 {
			if err := p.conn.BufferDestroy(p.bufs[i].id); err != nil {
				return err
			}
		}
		offset := i * stride * height
		id, err := p.conn.ShmPoolCreateBuffer(p.id,
			int32(offset), int32(width), int32(height), int32(stride),
			wayland.FormatARGB8888)
		if err != nil {
			return err
		}
		p.bufs[i] = buffer{id: id, offset: offset}
	}

	p.width = width
	p.height = height
	p.stride = stride
	p.next = 0
	p.last = -1
	return nil
}

// acquire picks the buffer to draw the next frame into, preferring one the
// compositor has released. An attach replaces the surface content wholesale
// and damage is only a repaint hint, so when the chosen slot is not the one
// on screen its stale pixels are first overwritten with the last submitted
// frame. Incremental repaints then only need to touch their dirty rects.
func (p *pool) acquire() (*buffer, []byte, error) {
	if p.id == 0 {
		return nil, nil, ErrNotConfigured
	}
	idx := p.next
	if p.bufs[idx].busy {
		for i := range p.bufs {
			if !p.bufs[i].busy {
				idx = i
				break
			}
		}
	}
	p.next = idx
	b := &p.bufs[idx]
	frameSize := p.stride * p.height
	mem := p.mem[b.offset : b.offset+frameSize]
	if p.last >= 0 && p.last != idx {
		prev := p.bufs[p.last]
		copy(mem, p.mem[prev.offset:prev.offset+frameSize])
	}
	return b, mem, nil
}

// markSubmitted records that the buffer was attached and committed, and
// rotates to the other slot for the next frame.
func (p *pool) markSubmitted(b *buffer) {
	b.busy = true
	for i := range p.bufs {
		if &p.bufs[i] == b {
			p.last = i
			p.next = (i + 1) % bufferCount
			return
		}
	}
}

// release handles wl_buffer.release for the given object, if it is ours.
func (p *pool) release(id wayland.ObjectID) bool {
	for i := range p.bufs {
		if p.bufs[i].id == id {
			p.bufs[i].busy = false
			return true
		}
	}
	return false
}

// destroy releases protocol objects and the backing memory.
func (p *pool) destroy() {
	for i := range p.bufs {
		if p.bufs[i].id != 0 {
			p.conn.BufferDestroy(p.bufs[i].id)
			p.bufs[i] = buffer{}
		}
	}
	if p.id != 0 {
		p.conn.ShmPoolDestroy(p.id)
		p.id = 0
	}
	if p.mem != nil {
		unix.Munmap(p.mem)
		p.mem = nil
	}
	if p.fd >= 0 {
		unix.Close(p.fd)
		p.fd = -1
	}
	p.size = 0
	p.width, p.height = 0, 0
}
