// Package objfile defines the format-independent contract every concrete
// object-file reader implements (section lookup, local relocation
// resolution, triple introspection) and the magic-matched registry that
// dispatches a mapped file to the right reader. Only ELF is registered
// today, but the table is built to admit more formats without touching
// callers, per the "pluggable format table" note in the design (spec.md
// §1).
package objfile

import (
	"encoding/binary"

	"github.com/brachet-dev/cedo/internal/cedoerr"
)

var errFormatRejected = cedoerr.New(cedoerr.FormatRejected, "no registered object format accepted this file")

// FileFormat identifies the on-disk object container.
type FileFormat uint8

const (
	FormatUnknown FileFormat = iota
	FormatELF
)

func (f FileFormat) String() string {
	switch f {
	case FormatELF:
		return "ELF"
	default:
		return "unknown"
	}
}

// AddressSize is the pointer width of a Triple, in bytes.
type AddressSize uint8

const (
	AddressSizeFour  AddressSize = 4
	AddressSizeEight AddressSize = 8
)

// Endianness is the byte order of a Triple.
type Endianness uint8

const (
	LittleEndian Endianness = iota
	BigEndian
)

// ByteOrder returns the encoding/binary.ByteOrder matching this Endianness,
// for use by bytecursor.Cursor and other raw readers.
func (e Endianness) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// Triple is the immutable (format, address-size, endianness) tuple that is
// threaded into every downstream reader. It is produced once, by a format
// acceptor, and never mutated.
type Triple struct {
	Format     FileFormat
	AddrSize   AddressSize
	Endianness Endianness
}

// AddrByteSize returns the numeric address width in bytes.
func (t Triple) AddrByteSize() int {
	if t.AddrSize == AddressSizeEight {
		return 8
	}

	return 4
}

// Reader is the capability surface every concrete object-file reader must
// implement: section lookup by name, and resolution of a local relocation
// to a concrete byte pointer (in practice, an offset into the mapped
// file). This replaces the original's virtual-base/downcast pattern with
// a plain interface, per the REDESIGN notes (spec.md §9).
type Reader interface {
	Triple() Triple
	// Section returns the raw bytes of the named section, or ok=false if
	// no section by that name exists.
	Section(name string) (data []byte, ok bool)
	// ResolveLocalReloc resolves a section-relative relocation recorded
	// against sectionName at byteOffset within that section, returning an
	// absolute offset into the mapped file where the relocation's target
	// bytes begin.
	ResolveLocalReloc(sectionName string, byteOffset int) (fileOffset int, err error)
	// FileBytes exposes the whole mapped file, since ResolveLocalReloc
	// returns offsets relative to it rather than to any one section.
	FileBytes() []byte
}

// Acceptor inspects a mapped file's magic/header bytes and, if it
// recognizes the format, returns the Triple it describes.
type Acceptor func(file []byte) (Triple, bool)

// ReaderFactory constructs a Reader for a file already known to match a
// given Triple.
type ReaderFactory func(file []byte, t Triple) (Reader, error)

type registryEntry struct {
	magicOffset int
	magic       []byte
	accept      Acceptor
	create      ReaderFactory
}

var registry []registryEntry

// Register adds a format to the registry. Called from each format
// package's init() (see internal/elfbin).
func Register(magicOffset int, magic []byte, accept Acceptor, create ReaderFactory) {
	registry = append(registry, registryEntry{magicOffset, magic, accept, create})
}

func matches(file []byte, e registryEntry) bool {
	end := e.magicOffset + len(e.magic)
	if end > len(file) {
		return false
	}

	for i, b := range e.magic {
		if file[e.magicOffset+i] != b {
			return false
		}
	}

	return true
}

// FindFileTriple scans the registry in order, returning the Triple
// produced by the first entry whose magic matches and whose acceptor
// succeeds.
func FindFileTriple(file []byte) (Triple, bool) {
	for _, e := range registry {
		if !matches(file, e) {
			continue
		}

		if t, ok := e.accept(file); ok {
			return t, true
		}
	}

	return Triple{}, false
}

// CreateReader scans the registry exactly like FindFileTriple but returns
// a constructed Reader instead of just the Triple.
func CreateReader(file []byte) (Reader, error) {
	for _, e := range registry {
		if !matches(file, e) {
			continue
		}

		t, ok := e.accept(file)
		if !ok {
			continue
		}

		return e.create(file, t)
	}

	return nil, errFormatRejected
}
