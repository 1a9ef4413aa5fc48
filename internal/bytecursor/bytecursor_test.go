package bytecursor

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/brachet-dev/cedo/internal/cedoerr"
)

func TestReadUintLittleEndianWidths(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	c := New(buf, binary.LittleEndian)

	v1, err := c.ReadUint(1)
	if err != nil || v1 != 0x01 {
		t.Fatalf("ReadUint(1) = %d, %v", v1, err)
	}

	v2, err := c.ReadUint(2)
	if err != nil || v2 != 0x0302 {
		t.Fatalf("ReadUint(2) = %#x, %v", v2, err)
	}

	v4, err := c.ReadUint(4)
	if err != nil || v4 != 0x07060504 {
		t.Fatalf("ReadUint(4) = %#x, %v", v4, err)
	}

	if c.Remaining() != 1 {
		t.Fatalf("Remaining() = %d, want 1", c.Remaining())
	}
}

func TestReadUintBigEndian(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x01, 0x02}
	c := New(buf, binary.BigEndian)

	v, err := c.ReadUint(4)
	if err != nil || v != 0x0102 {
		t.Fatalf("ReadUint(4) = %#x, %v", v, err)
	}
}

func TestReadUintOverrunsReturnsMalformedObject(t *testing.T) {
	c := New([]byte{0x01}, binary.LittleEndian)

	_, err := c.ReadUint(4)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var cerr *cedoerr.Error
	if !errors.As(err, &cerr) || cerr.Category != cedoerr.MalformedObject {
		t.Fatalf("got %v, want a MalformedObject cedoerr.Error", err)
	}
}

func TestSeekAndPos(t *testing.T) {
	c := New([]byte{1, 2, 3, 4}, binary.LittleEndian)
	c.Seek(2)

	if c.Pos() != 2 {
		t.Fatalf("Pos() = %d, want 2", c.Pos())
	}

	b, err := c.ReadByte()
	if err != nil || b != 3 {
		t.Fatalf("ReadByte() = %d, %v, want 3", b, err)
	}
}

func TestReadCString(t *testing.T) {
	c := New([]byte("hello\x00world"), binary.LittleEndian)

	s, err := c.ReadCString()
	if err != nil || s != "hello" {
		t.Fatalf("ReadCString() = %q, %v, want %q", s, err, "hello")
	}

	if c.Pos() != 6 {
		t.Fatalf("Pos() = %d, want 6 (past NUL)", c.Pos())
	}
}

func TestReadCStringUnterminatedErrors(t *testing.T) {
	c := New([]byte("noterm"), binary.LittleEndian)

	if _, err := c.ReadCString(); err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestReadULEB128SingleByte(t *testing.T) {
	c := New([]byte{0x7f}, binary.LittleEndian)

	v, err := c.ReadULEB128()
	if err != nil || v != 0x7f {
		t.Fatalf("ReadULEB128() = %d, %v, want 127", v, err)
	}
}

func TestReadULEB128MultiByte(t *testing.T) {
	// 624485 encodes as 0xE5 0x8E 0x26 per the DWARF spec's canonical example.
	c := New([]byte{0xE5, 0x8E, 0x26}, binary.LittleEndian)

	v, err := c.ReadULEB128()
	if err != nil || v != 624485 {
		t.Fatalf("ReadULEB128() = %d, %v, want 624485", v, err)
	}
}

func TestCStringAtDoesNotDisturbCursor(t *testing.T) {
	buf := []byte("AAAA\x00name\x00")
	c := New(buf, binary.LittleEndian)
	c.Seek(2)

	s, err := CStringAt(buf, 5)
	if err != nil || s != "name" {
		t.Fatalf("CStringAt() = %q, %v, want %q", s, err, "name")
	}

	if c.Pos() != 2 {
		t.Fatalf("Pos() = %d, want unchanged 2", c.Pos())
	}
}
