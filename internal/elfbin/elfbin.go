// Package elfbin implements objfile.Reader for ELF (32- and 64-bit,
// little- and big-endian): section lookup by name via the section-header
// string table, and resolution of local RELA relocations to a byte
// pointer into the mapped file. Debug sections frequently carry
// section-relative references the linker would normally materialize; for
// an unlinked or incompletely-linked object those fields read back as
// zero, accompanied by a relocation record that says what they should
// have been (spec.md §4.2).
package elfbin

import (
	"encoding/binary"

	"github.com/brachet-dev/cedo/internal/bytecursor"
	"github.com/brachet-dev/cedo/internal/cedoerr"
	"github.com/brachet-dev/cedo/internal/objfile"
)

var magic = []byte{0x7f, 'E', 'L', 'F'}

const (
	eiClass    = 4
	eiData     = 5
	classNone  = 0
	class32    = 1
	class64    = 2
	dataNone   = 0
	data2LSB   = 1
	data2MSB   = 2
)

func addressSizeFromClass(class byte) (objfile.AddressSize, bool) {
	switch class {
	case class32:
		return objfile.AddressSizeFour, true
	case class64:
		return objfile.AddressSizeEight, true
	default:
		return 0, false
	}
}

func endiannessFromData(data byte) (objfile.Endianness, bool) {
	switch data {
	case data2LSB:
		return objfile.LittleEndian, true
	case data2MSB:
		return objfile.BigEndian, true
	default:
		return 0, false
	}
}

func accept(file []byte) (objfile.Triple, bool) {
	if len(file) <= 6 {
		return objfile.Triple{}, false
	}

	addrSize, ok := addressSizeFromClass(file[eiClass])
	if !ok {
		return objfile.Triple{}, false
	}

	endianness, ok := endiannessFromData(file[eiData])
	if !ok {
		return objfile.Triple{}, false
	}

	return objfile.Triple{Format: objfile.FormatELF, AddrSize: addrSize, Endianness: endianness}, true
}

func create(file []byte, t objfile.Triple) (objfile.Reader, error) {
	return &Reader{file: file, triple: t}, nil
}

func init() {
	objfile.Register(0, magic, accept, create)
}

// layout is the set of field widths/offsets that differ between ELF32 and
// ELF64; Reader picks one based on its Triple at construction and never
// branches on address size again after that.
type layout struct {
	ehdrShoff     int
	ehdrShnum     int
	ehdrShstrndx  int
	ehdrShentsize int

	shdrSize       int
	shdrNameOff    int
	shdrOffsetOff  int
	shdrSizeOff    int
	shdrAddrOff    int

	symSize     int
	symNameOff  int
	symValueOff int
	symInfoOff  int

	relaSize       int
	relaOffsetOff  int
	relaInfoOff    int
	relaAddendOff  int
	relaAddrWidth  int
}

func layoutFor(addrSize objfile.AddressSize) layout {
	if addrSize == objfile.AddressSizeEight {
		return layout{
			ehdrShoff: 0x28, ehdrShnum: 0x3c, ehdrShstrndx: 0x3e, ehdrShentsize: 0x3a,
			shdrSize: 64, shdrNameOff: 0, shdrOffsetOff: 24, shdrSizeOff: 32, shdrAddrOff: 16,
			symSize: 24, symNameOff: 0, symInfoOff: 4, symValueOff: 8,
			relaSize: 24, relaOffsetOff: 0, relaInfoOff: 8, relaAddendOff: 16, relaAddrWidth: 8,
		}
	}

	return layout{
		ehdrShoff: 0x20, ehdrShnum: 0x30, ehdrShstrndx: 0x32, ehdrShentsize: 0x2e,
		shdrSize: 40, shdrNameOff: 0, shdrOffsetOff: 16, shdrSizeOff: 20, shdrAddrOff: 12,
		symSize: 16, symNameOff: 0, symInfoOff: 12, symValueOff: 4,
		relaSize: 12, relaOffsetOff: 0, relaInfoOff: 4, relaAddendOff: 8, relaAddrWidth: 4,
	}
}

// Reader implements objfile.Reader for one mapped ELF file. It is
// parameterized over (endianness, address-size) purely through the
// layout table and a binary.ByteOrder selected once in New — the 4-way
// split the design allows for is expressed here as data, not as four
// generated types, since ELF parsing is cold-path code where that
// indirection is free (spec.md §4.2's "a small runtime-dispatch table
// suffices with no measurable cost").
type Reader struct {
	file   []byte
	triple objfile.Triple
	lay    layout
	order  binary.ByteOrder
}

func New(file []byte, t objfile.Triple) *Reader {
	return &Reader{file: file, triple: t, lay: layoutFor(t.AddrSize), order: t.Endianness.ByteOrder()}
}

func (r *Reader) ensureLayout() {
	if r.order == nil {
		r.lay = layoutFor(r.triple.AddrSize)
		r.order = r.triple.Endianness.ByteOrder()
	}
}

func (r *Reader) Triple() objfile.Triple { return r.triple }

func (r *Reader) FileBytes() []byte { return r.file }

func (r *Reader) u16(off int) uint64 { return uint64(r.order.Uint16(r.file[off:])) }
func (r *Reader) u32(off int) uint64 { return uint64(r.order.Uint32(r.file[off:])) }
func (r *Reader) u64(off int) uint64 { return r.order.Uint64(r.file[off:]) }

func (r *Reader) addr(off int, width int) uint64 {
	if width == 8 {
		return r.u64(off)
	}

	return r.u32(off)
}

type shdr struct {
	name   uint32
	offset uint64
	size   uint64
	addr   uint64
}

func (r *Reader) readShdr(i int) (shdr, error) {
	r.ensureLayout()

	shoff := r.addr(r.lay.ehdrShoff, r.triple.AddrByteSize())
	entSize := r.u16(r.lay.ehdrShentsize)
	base := int(shoff) + i*int(entSize)

	if base+r.lay.shdrSize > len(r.file) || base < 0 {
		return shdr{}, cedoerr.New(cedoerr.MalformedObject, "section header %d out of range", i)
	}

	return shdr{
		name:   uint32(r.u32(base + r.lay.shdrNameOff)),
		offset: r.addr(base+r.lay.shdrOffsetOff, r.triple.AddrByteSize()),
		size:   r.addr(base+r.lay.shdrSizeOff, r.triple.AddrByteSize()),
		addr:   r.addr(base+r.lay.shdrAddrOff, r.triple.AddrByteSize()),
	}, nil
}

func (r *Reader) shnum() int { return int(r.u16(r.lay.ehdrShnum)) }

// Section locates a section by name via the section-header string table
// (e_shstrndx) and returns the byte range [file+sh_offset, file+sh_offset+sh_size).
func (r *Reader) Section(name string) ([]byte, bool) {
	r.ensureLayout()

	if len(r.file) < r.lay.ehdrShentsize+2 {
		return nil, false
	}

	shstrndx := int(r.u16(r.lay.ehdrShstrndx))

	shnum := r.shnum()
	if shstrndx >= shnum {
		return nil, false
	}

	shstrHdr, err := r.readShdr(shstrndx)
	if err != nil {
		return nil, false
	}

	strtab := r.file[shstrHdr.offset:]

	for i := 0; i < shnum; i++ {
		h, err := r.readShdr(i)
		if err != nil {
			return nil, false
		}

		n, err := bytecursor.CStringAt(strtab, int(h.name))
		if err != nil {
			continue
		}

		if n != name {
			continue
		}

		if int(h.offset)+int(h.size) > len(r.file) {
			return nil, false
		}

		return r.file[h.offset : h.offset+h.size], true
	}

	return nil, false
}

// Relocation types this repository understands. Extensible, per spec.md
// §4.2, but only these two are asserted.
const (
	rX86_64_32 = 10
	rX86_64_64 = 1
)

func rInfoSymType(info uint64, is64 bool) (sym uint32, typ uint32) {
	if is64 {
		return uint32(info >> 32), uint32(info)
	}

	return uint32(info >> 8), uint32(info & 0xff)
}

// ResolveLocalReloc constructs the name ".rela"+sectionName, scans that
// RELA section for an entry with r_offset == byteOffset, and resolves it
// to an absolute file offset: sh_offset(symbol's section) + st_value +
// r_addend.
func (r *Reader) ResolveLocalReloc(sectionName string, byteOffset int) (int, error) {
	r.ensureLayout()

	relaName := ".rela" + sectionName

	relaData, ok := r.Section(relaName)
	if !ok {
		return 0, cedoerr.New(cedoerr.MalformedObject, "missing relocation section %q", relaName)
	}

	is64 := r.triple.AddrSize == objfile.AddressSizeEight

	count := len(relaData) / r.lay.relaSize
	for i := 0; i < count; i++ {
		base := i * r.lay.relaSize

		offset := r.addrIn(relaData, base+r.lay.relaOffsetOff, r.lay.relaAddrWidth)
		if int(offset) != byteOffset {
			continue
		}

		info := r.addrIn(relaData, base+r.lay.relaInfoOff, r.lay.relaAddrWidth)
		addend := r.addrIn(relaData, base+r.lay.relaAddendOff, r.lay.relaAddrWidth)

		symIdx, relType := rInfoSymType(info, is64)
		if relType != rX86_64_32 && relType != rX86_64_64 {
			return 0, cedoerr.New(cedoerr.UnsupportedForm, "unsupported relocation type %d", relType)
		}

		return r.resolveSymbol(symIdx, int64(addend))
	}

	return 0, cedoerr.New(cedoerr.MalformedObject, "no relocation at offset %d in %q", byteOffset, relaName)
}

func (r *Reader) addrIn(buf []byte, off int, width int) uint64 {
	if width == 8 {
		return r.order.Uint64(buf[off:])
	}

	return uint64(r.order.Uint32(buf[off:]))
}

func (r *Reader) resolveSymbol(symIdx uint32, addend int64) (int, error) {
	symtab, ok := r.Section(".symtab")
	if !ok {
		return 0, cedoerr.New(cedoerr.MalformedObject, "missing .symtab")
	}

	count := len(symtab) / r.lay.symSize
	if int(symIdx) >= count {
		return 0, cedoerr.New(cedoerr.MalformedObject, "symbol index %d out of range (%d symbols)", symIdx, count)
	}

	base := int(symIdx) * r.lay.symSize

	shndx := int(r.order.Uint16(symtab[base+r.shndxOffset():]))
	value := r.addrIn(symtab, base+r.lay.symValueOff, r.triple.AddrByteSize())

	h, err := r.readShdr(shndx)
	if err != nil {
		return 0, cedoerr.New(cedoerr.MalformedObject, "symbol %d references invalid section %d", symIdx, shndx)
	}

	return int(h.offset) + int(value) + int(addend), nil
}

// shndxOffset returns st_shndx's byte offset within a symbol entry, which
// unlike every other field actually differs in position (not just width)
// between Elf32_Sym and Elf64_Sym.
func (r *Reader) shndxOffset() int {
	if r.triple.AddrSize == objfile.AddressSizeEight {
		return 6
	}

	return 14
}
