package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Wire words are little-endian, matching the compositors this bar targets.
var order = binary.LittleEndian

func putUint32(b []byte, v uint32) { order.PutUint32(b, v) }
func getUint32(b []byte) uint32    { return order.Uint32(b) }

// pad returns the number of bytes needed to round n up to a 32-bit boundary.
func pad(n int) int {
	return (4 - n%4) % 4
}

// marshalArgs encodes request arguments into wire format. Strings carry
// their NUL terminator inside the length and are padded to word boundaries;
// byte arrays are length-prefixed and padded the same way. File descriptors
// never appear in the body (they travel via SCM_RIGHTS).
func marshalArgs(args []any) ([]byte, error) {
	var out []byte
	for _, arg := range args {
		switch v := arg.(type) {
		case uint32:
			out = order.AppendUint32(out, v)
		case int32:
			out = order.AppendUint32(out, uint32(v))
		case ObjectID:
			out = order.AppendUint32(out, uint32(v))
		case string:
			withNul := len(v) + 1
			out = order.AppendUint32(out, uint32(withNul))
			out = append(out, v...)
			out = append(out, 0)
			for i := 0; i < pad(withNul); i++ {
				out = append(out, 0)
			}
		case []byte:
			out = order.AppendUint32(out, uint32(len(v)))
			out = append(out, v...)
			for i := 0; i < pad(len(v)); i++ {
				out = append(out, 0)
			}
		default:
			return nil, fmt.Errorf("unsupported argument type %T", arg)
		}
	}
	return out, nil
}

// errShortMessage marks a truncated event body.
var errShortMessage = errors.New("wayland: truncated event body")

// Decoder walks an event body argument by argument. After the first
// shortfall every accessor returns a zero value and Err reports the fault;
// callers check Err once after decoding.
type Decoder struct {
	body []byte
	off  int
	err  error
}

// NewDecoder wraps an event body.
func NewDecoder(body []byte) *Decoder {
	return &Decoder{body: body}
}

// Err returns the first decode error, or nil.
func (d *Decoder) Err() error {
	return d.err
}

// Uint32 decodes the next 32-bit word.
func (d *Decoder) Uint32() uint32 {
	if d.err != nil || d.off+4 > len(d.body) {
		d.fail()
		return 0
	}
	v := getUint32(d.body[d.off:])
	d.off += 4
	return v
}

// Int32 decodes the next signed 32-bit word.
func (d *Decoder) Int32() int32 {
	return int32(d.Uint32())
}

// String decodes a length-prefixed, NUL-terminated, padded wire string.
func (d *Decoder) String() string {
	n := int(d.Uint32())
	if d.err != nil {
		return ""
	}
	if n == 0 {
		return ""
	}
	end := d.off + n
	if end > len(d.body) {
		d.fail()
		return ""
	}
	s := string(d.body[d.off : end-1]) // strip the NUL
	d.off = end + pad(n)
	return s
}

func (d *Decoder) fail() {
	if d.err == nil {
		d.err = errShortMessage
	}
}
