package dwarfbin

import (
	"testing"

	"github.com/brachet-dev/cedo/internal/dwarfconst"
	"github.com/brachet-dev/cedo/internal/objfile"
)

type fakeObj struct {
	sections map[string][]byte
	triple   objfile.Triple
}

func (f *fakeObj) Triple() objfile.Triple { return f.triple }

func (f *fakeObj) Section(name string) ([]byte, bool) {
	s, ok := f.sections[name]
	return s, ok
}

func (f *fakeObj) ResolveLocalReloc(sectionName string, byteOffset int) (int, error) {
	return 0, errNoReloc
}

func (f *fakeObj) FileBytes() []byte { return nil }

var errNoReloc = &noRelocErr{}

type noRelocErr struct{}

func (*noRelocErr) Error() string { return "no relocation recorded" }

// oneVariableAbbrev builds a .debug_abbrev table with a single abbreviation
// (code 1): DW_TAG_variable, no children, one DW_AT_name/DW_FORM_string
// attribute.
func oneVariableAbbrev() []byte {
	return []byte{
		0x01,                         // abbrev code 1
		byte(dwarfconst.TagVariable), // tag
		0x00,                         // DW_CHILDREN_no
		byte(dwarfconst.AttrName), dwarfconst.FormString.Code,
		0x00, 0x00, // attribute list terminator
		0x00, // abbrev table terminator
	}
}

// oneVariableInfo builds a single-compile-unit .debug_info section with one
// DW_TAG_variable DIE named "x", for an 8-byte-address-size object.
func oneVariableInfo() []byte {
	// content after the initial-length field: version(2) + abbrev_offset(4)
	// + address_size(1) + DIE(abbrev code 1 byte, "x\0" 2 bytes) = 10 bytes.
	return []byte{
		0x0a, 0x00, 0x00, 0x00, // initial length = 10
		0x04, 0x00, // version 4
		0x00, 0x00, 0x00, 0x00, // abbrev offset 0
		0x08,             // address size 8
		0x01, 'x', 0x00, // DIE: abbrev 1, name "x"
	}
}

func buildFakeObj() *fakeObj {
	return &fakeObj{
		sections: map[string][]byte{
			".debug_abbrev": oneVariableAbbrev(),
			".debug_info":   oneVariableInfo(),
		},
		triple: objfile.Triple{
			Format:     objfile.FormatELF,
			AddrSize:   objfile.AddressSizeEight,
			Endianness: objfile.LittleEndian,
		},
	}
}

func TestReadSingleVariableDIE(t *testing.T) {
	d, err := Read(buildFakeObj())
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	if d.Version != 4 {
		t.Fatalf("Version = %d, want 4", d.Version)
	}

	if len(d.DIEs) != 1 {
		t.Fatalf("len(DIEs) = %d, want 1", len(d.DIEs))
	}

	die := d.DIEs[0]
	if die.Tag != dwarfconst.TagVariable {
		t.Fatalf("Tag = %#x, want TagVariable", die.Tag)
	}

	v, ok := die.AttrIfPresent(dwarfconst.AttrName)
	if !ok || !v.IsString || v.Str != "x" {
		t.Fatalf("AttrName = %+v, %v, want string %q", v, ok, "x")
	}
}

func TestDIEAtLooksUpByOffset(t *testing.T) {
	d, err := Read(buildFakeObj())
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	want := d.DIEs[0]

	got, ok := d.DIEAt(want.Offset)
	if !ok || got.Offset != want.Offset {
		t.Fatalf("DIEAt(%d) = %+v, %v", want.Offset, got, ok)
	}

	if _, ok := d.DIEAt(9999); ok {
		t.Fatal("expected no DIE at an offset that was never written")
	}
}

func TestReadRejectsNonMonotonicAbbrevCodes(t *testing.T) {
	obj := buildFakeObj()
	// Code 1 then code 3, skipping 2: violates the strictly-increasing
	// abbrev code invariant.
	obj.sections[".debug_abbrev"] = []byte{
		0x01, byte(dwarfconst.TagVariable), 0x00, 0x00, 0x00,
		0x03, byte(dwarfconst.TagBaseType), 0x00, 0x00, 0x00,
		0x00,
	}

	if _, err := Read(obj); err == nil {
		t.Fatal("expected an error for non-monotonic abbreviation codes")
	}
}

func TestReadRejectsMissingSections(t *testing.T) {
	obj := &fakeObj{sections: map[string][]byte{}, triple: objfile.Triple{AddrSize: objfile.AddressSizeEight}}

	if _, err := Read(obj); err == nil {
		t.Fatal("expected an error when .debug_abbrev/.debug_info are missing")
	}
}

func TestReadRejectsAddressSizeMismatch(t *testing.T) {
	obj := buildFakeObj()
	obj.triple.AddrSize = objfile.AddressSizeFour // info section encodes address_size=8

	if _, err := Read(obj); err == nil {
		t.Fatal("expected an error when DWARF address size disagrees with the object's")
	}
}
