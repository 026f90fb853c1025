package wayland

// Interface names as announced on the registry.
const (
	IfaceCompositor = "wl_compositor"
	IfaceShm        = "wl_shm"
	IfaceLayerShell = "zwlr_layer_shell_v1"
	IfaceOutput     = "wl_output"
)

// wl_display requests and events.
const (
	opDisplaySync        uint16 = 0
	opDisplayGetRegistry uint16 = 1

	evDisplayError    uint16 = 0
	evDisplayDeleteID uint16 = 1
)

// wl_registry requests and events.
const (
	opRegistryBind uint16 = 0

	evRegistryGlobal       uint16 = 0
	evRegistryGlobalRemove uint16 = 1
)

// wl_callback events.
const (
	evCallbackDone uint16 = 0
)

// wl_compositor requests.
const (
	opCompositorCreateSurface uint16 = 0
)

// wl_surface requests and events.
const (
	opSurfaceDestroy        uint16 = 0
	opSurfaceAttach         uint16 = 1
	opSurfaceFrame          uint16 = 3
	opSurfaceCommit         uint16 = 6
	opSurfaceSetBufferScale uint16 = 8
	opSurfaceDamageBuffer   uint16 = 9
)

// wl_shm requests; FormatARGB8888 is the buffer format every compositor
// must support.
const (
	opShmCreatePool uint16 = 0

	FormatARGB8888 uint32 = 0
)

// wl_shm_pool requests.
const (
	opShmPoolCreateBuffer uint16 = 0
	opShmPoolDestroy      uint16 = 1
	opShmPoolResize       uint16 = 2
)

// wl_buffer requests and events.
const (
	opBufferDestroy uint16 = 0

	EvBufferRelease uint16 = 0
)

// zwlr_layer_shell_v1 requests.
const (
	opLayerShellGetLayerSurface uint16 = 0
)

// zwlr_layer_surface_v1 requests and events.
const (
	opLayerSurfaceSetSize          uint16 = 0
	opLayerSurfaceSetAnchor        uint16 = 1
	opLayerSurfaceSetExclusiveZone uint16 = 2
	opLayerSurfaceSetMargin        uint16 = 3
	opLayerSurfaceAckConfigure     uint16 = 6
	opLayerSurfaceDestroy          uint16 = 7

	EvLayerSurfaceConfigure uint16 = 0
	EvLayerSurfaceClosed    uint16 = 1
)

// Layer selects the stacking layer a layer-shell surface lives on.
type Layer uint32

const (
	LayerBackground Layer = 0
	LayerBottom     Layer = 1
	LayerTop        Layer = 2
	LayerOverlay    Layer = 3
)

// Anchor is a bitmask of the edges a layer surface is anchored to.
type Anchor uint32

const (
	AnchorTop    Anchor = 1
	AnchorBottom Anchor = 2
	AnchorLeft   Anchor = 4
	AnchorRight  Anchor = 8
)

// CreateSurface issues wl_compositor.create_surface and returns the new
// wl_surface id.
func (c *Conn) CreateSurface(compositor ObjectID) (ObjectID, error) {
	id := c.NewID()
	return id, c.SendRequest(compositor, opCompositorCreateSurface, uint32(id))
}

// GetLayerSurface issues zwlr_layer_shell_v1.get_layer_surface for the
// given wl_surface on the given layer. A zero output lets the compositor
// pick one. The namespace identifies the surface role to the compositor.
func (c *Conn) GetLayerSurface(shell, surface, output ObjectID, layer Layer, namespace string) (ObjectID, error) {
	id := c.NewID()
	err := c.SendRequest(shell, opLayerShellGetLayerSurface,
		uint32(id), surface, output, uint32(layer), namespace)
	return id, err
}

// LayerSurfaceSetSize requests a logical size; zero for either dimension
// asks the compositor to choose (used with horizontal anchoring).
func (c *Conn) LayerSurfaceSetSize(ls ObjectID, width, height uint32) error {
	return c.SendRequest(ls, opLayerSurfaceSetSize, width, height)
}

// LayerSurfaceSetAnchor anchors the surface to the given edges.
func (c *Conn) LayerSurfaceSetAnchor(ls ObjectID, anchor Anchor) error {
	return c.SendRequest(ls, opLayerSurfaceSetAnchor, uint32(anchor))
}

// LayerSurfaceSetExclusiveZone reserves screen space along the anchored
// edge so tiled windows do not overlap the bar.
func (c *Conn) LayerSurfaceSetExclusiveZone(ls ObjectID, zone int32) error {
	return c.SendRequest(ls, opLayerSurfaceSetExclusiveZone, zone)
}

// LayerSurfaceSetMargin sets the distance from the anchored edges.
func (c *Conn) LayerSurfaceSetMargin(ls ObjectID, top, right, bottom, left int32) error {
	return c.SendRequest(ls, opLayerSurfaceSetMargin, top, right, bottom, left)
}

// LayerSurfaceAckConfigure acknowledges a configure event by serial.
func (c *Conn) LayerSurfaceAckConfigure(ls ObjectID, serial uint32) error {
	return c.SendRequest(ls, opLayerSurfaceAckConfigure, serial)
}

// LayerSurfaceDestroy destroys the layer surface role object.
func (c *Conn) LayerSurfaceDestroy(ls ObjectID) error {
	return c.SendRequest(ls, opLayerSurfaceDestroy)
}

// SurfaceAttach attaches a buffer to the surface at the origin.
func (c *Conn) SurfaceAttach(surface, buffer ObjectID) error {
	return c.SendRequest(surface, opSurfaceAttach, buffer, int32(0), int32(0))
}

// SurfaceDamageBuffer marks a buffer-coordinate region as needing repaint.
func (c *Conn) SurfaceDamageBuffer(surface ObjectID, x, y, width, height int32) error {
	return c.SendRequest(surface, opSurfaceDamageBuffer, x, y, width, height)
}

// SurfaceFrame requests a frame callback and returns the wl_callback id
// whose done event signals that the compositor is ready for a new frame.
func (c *Conn) SurfaceFrame(surface ObjectID) (ObjectID, error) {
	id := c.NewID()
	return id, c.SendRequest(surface, opSurfaceFrame, uint32(id))
}

// SurfaceSetBufferScale declares the integer scale of attached buffers.
func (c *Conn) SurfaceSetBufferScale(surface ObjectID, scale int32) error {
	return c.SendRequest(surface, opSurfaceSetBufferScale, scale)
}

// SurfaceCommit atomically applies pending surface state.
func (c *Conn) SurfaceCommit(surface ObjectID) error {
	return c.SendRequest(surface, opSurfaceCommit)
}

// SurfaceDestroy destroys a wl_surface.
func (c *Conn) SurfaceDestroy(surface ObjectID) error {
	return c.SendRequest(surface, opSurfaceDestroy)
}

// ShmCreatePool issues wl_shm.create_pool, passing the backing memory fd
// via SCM_RIGHTS, and returns the new wl_shm_pool id.
func (c *Conn) ShmCreatePool(shm ObjectID, fd int, size int32) (ObjectID, error) {
	id := c.NewID()
	err := c.SendRequestFDs(shm, opShmCreatePool, []int{fd}, uint32(id), size)
	return id, err
}

// ShmPoolCreateBuffer carves a wl_buffer out of a pool.
func (c *Conn) ShmPoolCreateBuffer(pool ObjectID, offset, width, height, stride int32, format uint32) (ObjectID, error) {
	id := c.NewID()
	err := c.SendRequest(pool, opShmPoolCreateBuffer,
		uint32(id), offset, width, height, stride, format)
	return id, err
}

// ShmPoolResize grows the pool after the backing file has been enlarged.
func (c *Conn) ShmPoolResize(pool ObjectID, size int32) error {
	return c.SendRequest(pool, opShmPoolResize, size)
}

// ShmPoolDestroy destroys a wl_shm_pool.
func (c *Conn) ShmPoolDestroy(pool ObjectID) error {
	return c.SendRequest(pool, opShmPoolDestroy)
}

// BufferDestroy destroys a wl_buffer.
func (c *Conn) BufferDestroy(buffer ObjectID) error {
	return c.SendRequest(buffer, opBufferDestroy)
}
