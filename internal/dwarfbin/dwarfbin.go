// Package dwarfbin rebuilds the DWARF (v<=4) DIE tree from .debug_abbrev
// + .debug_info, interpreting DW_FORM_* attribute encodings including
// ULEB128, string-pointer resolution via relocation, and the exprloc
// skip. It does not evaluate location expressions or read the line
// program; it only reconstructs the DIE tree and attribute values needed
// to project source-level types for named variables (spec.md §4.3).
package dwarfbin

import (
	"github.com/brachet-dev/cedo/internal/bytecursor"
	"github.com/brachet-dev/cedo/internal/cedoerr"
	"github.com/brachet-dev/cedo/internal/dwarfconst"
	"github.com/brachet-dev/cedo/internal/objfile"
)

// Value is a decoded DWARF attribute value: either an unsigned 64-bit
// integer or a string (the only two kinds spec.md's DIE model needs).
type Value struct {
	IsString bool
	Uint     uint64
	Str      string
}

// Attribute pairs a DW_AT code with its decoded value.
type Attribute struct {
	At    dwarfconst.Attr
	Value Value
}

// DIE is one Debugging Information Entry: a tag, its absolute offset
// within .debug_info, its attribute list in abbreviation order, and the
// offsets of its direct children in document order.
type DIE struct {
	Tag             dwarfconst.Tag
	Offset          int
	Info            []Attribute
	ChildrenOffsets []int
}

// AttrIfPresent returns the value of the first attribute with code at, if
// the DIE carries one.
func (d *DIE) AttrIfPresent(at dwarfconst.Attr) (Value, bool) {
	for _, a := range d.Info {
		if a.At == at {
			return a.Value, true
		}
	}

	return Value{}, false
}

// Dwarf is the result of reading one compile unit's worth of debug
// information: its version, the object's address size, and every DIE in
// document order.
type Dwarf struct {
	Version  uint16
	AddrSize objfile.AddressSize
	DIEs     []DIE

	byOffset map[int]*DIE
}

// Index (re)builds the offset→DIE lookup table DIEAt uses. Read calls this
// once after parsing; callers that build a Dwarf value by hand (tests,
// mainly) must call it themselves before using DIEAt.
func (d *Dwarf) Index() {
	d.byOffset = make(map[int]*DIE, len(d.DIEs))
	for i := range d.DIEs {
		d.byOffset[d.DIEs[i].Offset] = &d.DIEs[i]
	}
}

// DIEAt returns the DIE at the given absolute .debug_info offset, if any.
func (d *Dwarf) DIEAt(offset int) (*DIE, bool) {
	die, ok := d.byOffset[offset]
	return die, ok
}

type abbrevAttr struct {
	at   dwarfconst.Attr
	form dwarfconst.Form
}

type abbrevEntry struct {
	tag      dwarfconst.Tag
	children bool
	attrs    []abbrevAttr
}

// reader carries the mutable state of one DIE-tree walk: the abbreviation
// table, the object reader (for StringPtr relocation fallback), and the
// parent-offset stack used to attach children and detect the
// end-of-siblings marker.
type reader struct {
	obj objfile.Reader

	debugInfo  []byte
	debugStr   []byte
	debugStrOK bool

	abbrev []abbrevEntry // index 0 is the sentinel empty entry

	currentSecAddrSize int // 4 or 8, from the compile unit's initial-length field
	objAddrSize        int // 4 or 8, from the Triple

	dwarf Dwarf

	parents []int
}

// Read parses .debug_abbrev + .debug_info from obj and returns the
// reconstructed Dwarf value.
func Read(obj objfile.Reader) (*Dwarf, error) {
	abbrevSec, ok := obj.Section(".debug_abbrev")
	if !ok {
		return nil, cedoerr.New(cedoerr.MalformedObject, "missing .debug_abbrev section")
	}

	infoSec, ok := obj.Section(".debug_info")
	if !ok {
		return nil, cedoerr.New(cedoerr.MalformedObject, "missing .debug_info section")
	}

	r := &reader{
		obj:         obj,
		debugInfo:   infoSec,
		objAddrSize: obj.Triple().AddrByteSize(),
	}

	if str, ok := obj.Section(".debug_str"); ok {
		r.debugStr = str
		r.debugStrOK = true
	}

	if err := r.readAbbrevTable(abbrevSec); err != nil {
		return nil, err
	}

	if err := r.readDebugInfo(); err != nil {
		return nil, err
	}

	r.dwarf.Index()

	return &r.dwarf, nil
}

func (r *reader) readAbbrevTable(sec []byte) error {
	pos := 0
	r.abbrev = append(r.abbrev, abbrevEntry{}) // sentinel code 0

	readByte := func() (byte, error) {
		if pos >= len(sec) {
			return 0, cedoerr.New(cedoerr.MalformedDwarf, "truncated .debug_abbrev")
		}

		b := sec[pos]
		pos++

		return b, nil
	}

	readULEB := func() (uint64, error) {
		var (
			result uint64
			shift  uint
		)

		for {
			b, err := readByte()
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

	for expectedCode := 1; ; expectedCode++ {
		code, err := readByte()
		if err != nil {
			return err
		}

		if code == 0 {
			return nil
		}

		if int(code) != expectedCode {
			return cedoerr.New(cedoerr.MalformedDwarf,
				"expected abbreviation code %d but found %d", expectedCode, code)
		}

		tagVal, err := readULEB()
		if err != nil {
			return err
		}

		childrenVal, err := readByte()
		if err != nil {
			return err
		}

		entry := abbrevEntry{tag: dwarfconst.Tag(tagVal), children: childrenVal == byte(dwarfconst.ChildrenYes)}

		for {
			atVal, err := readULEB()
			if err != nil {
				return err
			}

			formVal, err := readULEB()
			if err != nil {
				return err
			}

			if atVal == 0 && formVal == 0 {
				break
			}

			form, ok := dwarfconst.Lookup(byte(formVal))
			if !ok {
				return cedoerr.New(cedoerr.UnsupportedForm, "unknown DW_FORM 0x%x", formVal)
			}

			entry.attrs = append(entry.attrs, abbrevAttr{at: dwarfconst.Attr(atVal), form: form})
		}

		r.abbrev = append(r.abbrev, entry)
	}
}

func (r *reader) readDebugInfo() error {
	pos := 0

	size, err := r.readUintAt(&pos, 4)
	if err != nil {
		return err
	}

	if size == 0xffffffff {
		size, err = r.readUintAt(&pos, 8)
		if err != nil {
			return err
		}

		r.currentSecAddrSize = 8
	} else {
		if size >= 0xfffffff0 {
			return cedoerr.New(cedoerr.MalformedDwarf,
				"initial length field has reserved value 0x%x", size)
		}

		r.currentSecAddrSize = 4
	}

	if size < 7 {
		return cedoerr.New(cedoerr.MalformedDwarf, "debug info section too small for compile unit header")
	}

	// The initial-length value counts bytes from right after the
	// initial-length field(s) itself; pos already sits there.
	unitEnd := pos + int(size)

	versionVal, err := r.readUintAt(&pos, 2)
	if err != nil {
		return err
	}

	_, err = r.readUintAt(&pos, 4) // abbrev offset; single compile unit, so always 0 here
	if err != nil {
		return err
	}

	addrSizeVal, err := r.readUintAt(&pos, 1)
	if err != nil {
		return err
	}

	if versionVal > 4 {
		return cedoerr.New(cedoerr.MalformedDwarf, "unknown DWARF version %d", versionVal)
	}

	if int(addrSizeVal) != r.objAddrSize {
		return cedoerr.New(cedoerr.MalformedDwarf,
			"DWARF address size %d does not match object address size %d", addrSizeVal, r.objAddrSize)
	}

	r.dwarf.Version = uint16(versionVal)
	r.dwarf.AddrSize = r.obj.Triple().AddrSize

	for pos < unitEnd {
		if err := r.readOneDIE(&pos, unitEnd); err != nil {
			return err
		}
	}

	if len(r.parents) != 0 {
		return cedoerr.New(cedoerr.MalformedDwarf, "unterminated DIE children at end of compile unit")
	}

	return nil
}

func (r *reader) readUintAt(pos *int, width int) (uint64, error) {
	if *pos < 0 || *pos+width > len(r.debugInfo) {
		return 0, cedoerr.New(cedoerr.MalformedDwarf, "truncated .debug_info at offset %d", *pos)
	}

	order := r.obj.Triple().Endianness.ByteOrder()

	var v uint64

	switch width {
	case 1:
		v = uint64(r.debugInfo[*pos])
	case 2:
		v = uint64(order.Uint16(r.debugInfo[*pos:]))
	case 4:
		v = uint64(order.Uint32(r.debugInfo[*pos:]))
	case 8:
		v = order.Uint64(r.debugInfo[*pos:])
	default:
		return 0, cedoerr.New(cedoerr.MalformedDwarf, "unsupported width %d", width)
	}

	*pos += width

	return v, nil
}

func (r *reader) readULEB128At(pos *int) (uint64, error) {
	var (
		result uint64
		shift  uint
	)

	for {
		if *pos >= len(r.debugInfo) {
			return 0, cedoerr.New(cedoerr.MalformedDwarf, "truncated ULEB128 at offset %d", *pos)
		}

		b := r.debugInfo[*pos]
		*pos++

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

func (r *reader) wireWidth(w dwarfconst.WireType) (int, bool) {
	switch w {
	case dwarfconst.WireFixed1:
		return 1, true
	case dwarfconst.WireFixed2:
		return 2, true
	case dwarfconst.WireFixed4:
		return 4, true
	case dwarfconst.WireFixed8:
		return 8, true
	case dwarfconst.WireDWARFAddr, dwarfconst.WireStringPtr:
		return r.currentSecAddrSize, true
	case dwarfconst.WireMachineAddr:
		return r.objAddrSize, true
	case dwarfconst.WireFlagPresent:
		return 0, true
	default:
		return 0, false
	}
}

func (r *reader) readAttrValue(pos *int, form dwarfconst.Form) (Value, error) {
	switch form.Wire {
	case dwarfconst.WireString:
		if *pos >= len(r.debugInfo) {
			return Value{}, cedoerr.New(cedoerr.MalformedDwarf, "truncated string at offset %d", *pos)
		}

		start := *pos
		for *pos < len(r.debugInfo) && r.debugInfo[*pos] != 0 {
			*pos++
		}

		if *pos >= len(r.debugInfo) {
			return Value{}, cedoerr.New(cedoerr.MalformedDwarf, "unterminated string at offset %d", start)
		}

		s := string(r.debugInfo[start:*pos])
		*pos++

		return Value{IsString: true, Str: s}, nil

	case dwarfconst.WireExprloc:
		n, err := r.readULEB128At(pos)
		if err != nil {
			return Value{}, err
		}

		if *pos+int(n) > len(r.debugInfo) {
			return Value{}, cedoerr.New(cedoerr.MalformedDwarf, "truncated exprloc at offset %d", *pos)
		}

		*pos += int(n)

		return Value{Uint: 0}, nil

	case dwarfconst.WireULEB128:
		v, err := r.readULEB128At(pos)
		return Value{Uint: v}, err

	case dwarfconst.WireLEB128:
		return Value{}, cedoerr.New(cedoerr.UnsupportedForm, "signed LEB128 is not implemented")

	case dwarfconst.WireIndirect:
		return Value{}, cedoerr.New(cedoerr.UnsupportedForm, "DW_FORM_indirect is not implemented")

	case dwarfconst.WireFlagPresent:
		return Value{Uint: 1}, nil
	}

	width, ok := r.wireWidth(form.Wire)
	if !ok {
		return Value{}, cedoerr.New(cedoerr.UnsupportedForm, "unhandled wire type for DW_FORM 0x%x", form.Code)
	}

	fieldOffset := *pos

	raw, err := r.readUintAt(pos, width)
	if err != nil {
		return Value{}, err
	}

	if form.Wire != dwarfconst.WireStringPtr {
		return Value{Uint: raw}, nil
	}

	return r.resolveStringPtr(raw, fieldOffset)
}

// resolveStringPtr implements StringPtr resolution exactly per spec.md
// §4.3.1: a non-zero value is an offset into .debug_str; a zero value
// means the linker hasn't materialized the pointer yet, so the actual
// offset must come from a local relocation against this field's position
// in .debug_info. Failure to resolve yields an empty string rather than
// an error — the attribute is simply absent of useful content.
func (r *reader) resolveStringPtr(raw uint64, fieldOffsetInSection int) (Value, error) {
	if raw != 0 {
		if !r.debugStrOK {
			return Value{IsString: true, Str: ""}, nil
		}

		s, err := bytecursor.CStringAt(r.debugStr, int(raw))
		if err != nil {
			return Value{IsString: true, Str: ""}, nil
		}

		return Value{IsString: true, Str: s}, nil
	}

	fileOffset, err := r.obj.ResolveLocalReloc(".debug_info", fieldOffsetInSection)
	if err != nil {
		return Value{IsString: true, Str: ""}, nil
	}

	s, err := bytecursor.CStringAt(r.obj.FileBytes(), fileOffset)
	if err != nil {
		return Value{IsString: true, Str: ""}, nil
	}

	return Value{IsString: true, Str: s}, nil
}

func (r *reader) readOneDIE(pos *int, end int) error {
	if *pos >= end {
		return cedoerr.New(cedoerr.MalformedDwarf, "expected another DIE but .debug_info ended")
	}

	offset := *pos

	code, err := r.readUintAt(pos, 1)
	if err != nil {
		return err
	}

	if code == 0 {
		if len(r.parents) == 0 {
			return cedoerr.New(cedoerr.MalformedDwarf, "unexpected end-of-siblings marker with no open parent")
		}

		r.parents = r.parents[:len(r.parents)-1]

		return nil
	}

	if int(code) >= len(r.abbrev) {
		return cedoerr.New(cedoerr.MalformedDwarf,
			"abbreviation code %d is larger than the largest known code %d", code, len(r.abbrev)-1)
	}

	ab := r.abbrev[code]

	die := DIE{Tag: ab.tag, Offset: offset}

	for _, a := range ab.attrs {
		v, err := r.readAttrValue(pos, a.form)
		if err != nil {
			return err
		}

		die.Info = append(die.Info, Attribute{At: a.at, Value: v})
	}

	r.dwarf.DIEs = append(r.dwarf.DIEs, die)

	if len(r.parents) > 0 {
		parentOffset := r.parents[len(r.parents)-1]

		for i := range r.dwarf.DIEs {
			if r.dwarf.DIEs[i].Offset == parentOffset {
				r.dwarf.DIEs[i].ChildrenOffsets = append(r.dwarf.DIEs[i].ChildrenOffsets, offset)
				break
			}
		}
	}

	if ab.children {
		r.parents = append(r.parents, offset)
	}

	return nil
}
