// Package bytecursor implements an untyped byte-window with an advancing
// read cursor: endian-aware fixed-width integer reads, NUL-terminated
// string reads, and a ULEB128 reader. It is the bottom of the stack — the
// ELF and DWARF readers are built entirely out of Cursors over different
// byte windows.
package bytecursor

import (
	"encoding/binary"

	"github.com/brachet-dev/cedo/internal/cedoerr"
)

// Cursor reads sequentially forward through a byte slice it does not own.
// Out-of-bounds reads are a fatal malformed-input condition, reported as
// a cedoerr.MalformedObject error rather than a panic, since both the ELF
// and DWARF readers operate on untrusted input.
type Cursor struct {
	buf    []byte
	pos    int
	endian binary.ByteOrder
}

// New builds a Cursor over buf starting at offset 0, interpreting
// multi-byte integers in the given byte order.
func New(buf []byte, endian binary.ByteOrder) *Cursor {
	return &Cursor{buf: buf, endian: endian}
}

// Pos returns the current read offset into the underlying buffer.
func (c *Cursor) Pos() int { return c.pos }

// Seek repositions the cursor to an absolute offset within the buffer.
func (c *Cursor) Seek(pos int) { c.pos = pos }

// Len returns the size of the underlying buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining reports how many bytes are left to read.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

func (c *Cursor) require(n int) error {
	if c.pos < 0 || n < 0 || c.pos+n > len(c.buf) {
		return cedoerr.New(cedoerr.MalformedObject,
			"read of %d byte(s) at offset %d overruns buffer of length %d", n, c.pos, len(c.buf))
	}

	return nil
}

// ReadUint reads an unsigned integer of the given byte width (1, 2, 4, or
// 8) at the current position and advances the cursor by that width.
func (c *Cursor) ReadUint(width int) (uint64, error) {
	if err := c.require(width); err != nil {
		return 0, err
	}

	b := c.buf[c.pos : c.pos+width]

	var v uint64

	switch width {
	case 1:
		v = uint64(b[0])
	case 2:
		v = uint64(c.endian.Uint16(b))
	case 4:
		v = uint64(c.endian.Uint32(b))
	case 8:
		v = c.endian.Uint64(b)
	default:
		return 0, cedoerr.New(cedoerr.MalformedObject, "unsupported integer width %d", width)
	}

	c.pos += width

	return v, nil
}

// ReadByte reads a single byte and advances the cursor by one.
func (c *Cursor) ReadByte() (byte, error) {
	v, err := c.ReadUint(1)
	return byte(v), err
}

// ReadBytes returns a view of the next n bytes and advances the cursor,
// without copying.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.require(n); err != nil {
		return nil, err
	}

	b := c.buf[c.pos : c.pos+n]
	c.pos += n

	return b, nil
}

// ReadCString reads a NUL-terminated string starting at the current
// position and advances the cursor past the terminating NUL.
func (c *Cursor) ReadCString() (string, error) {
	start := c.pos

	for c.pos < len(c.buf) && c.buf[c.pos] != 0 {
		c.pos++
	}

	if c.pos >= len(c.buf) {
		return "", cedoerr.New(cedoerr.MalformedObject, "unterminated string starting at offset %d", start)
	}

	s := string(c.buf[start:c.pos])
	c.pos++ // past the NUL

	return s, nil
}

// ReadULEB128 reads an unsigned LEB128 value: 7-bit groups, MSB
// continuation bit, little-endian group order. Overflow beyond 64 bits
// saturates rather than erroring, since it is not expected to occur in
// well-formed DWARF v<=4 for the forms this repository supports.
func (c *Cursor) ReadULEB128() (uint64, error) {
	var (
		result uint64
		shift  uint
	)

	for {
		b, err := c.ReadByte()
		if err != nil {
			return 0, err
		}

		if shift < 64 {
			result |= uint64(b&0x7f) << shift
		}

		shift += 7

		if b&0x80 == 0 {
			break
		}
	}

	return result, nil
}

// CStringAt reads a NUL-terminated string out of buf at a raw byte
// offset, without disturbing the cursor's own position. Used by the
// DWARF reader to decode strings resolved via .debug_str or a relocation,
// which live outside the section currently being walked.
func CStringAt(buf []byte, offset int) (string, error) {
	tmp := Cursor{buf: buf, pos: offset, endian: binary.LittleEndian}
	return tmp.ReadCString()
}
