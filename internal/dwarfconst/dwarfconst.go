// Package dwarfconst holds the DWARF v<=4 tag, attribute, and form
// constants this repository understands, plus the static table mapping
// each DW_FORM to the wire encoding (DWARFType) used to decode it. Values
// come straight from the DWARF v4 standard, in the same numbering the
// original implementation used (include/cedo/Binfmt/DWARFConstants.h).
package dwarfconst

// Tag identifies the kind of a DIE (DW_TAG_*).
type Tag uint8

const (
	TagArrayType       Tag = 0x01
	TagClassType       Tag = 0x02
	TagEnumerationType Tag = 0x04
	TagMember          Tag = 0x0d
	TagPointerType     Tag = 0x0f
	TagCompileUnit     Tag = 0x11
	TagStructureType   Tag = 0x13
	TagSubroutineType  Tag = 0x15
	TagTypedef         Tag = 0x16
	TagUnionType       Tag = 0x17
	TagSubrangeType    Tag = 0x21
	TagBaseType        Tag = 0x24
	TagConstType       Tag = 0x26
	TagVariable        Tag = 0x34
	TagVolatileType    Tag = 0x35
	TagRestrictType    Tag = 0x37
)

// Attr identifies the kind of a DIE attribute (DW_AT_*). Only the subset
// this repository's TypeBuilder and reader consult are named; anything
// else still round-trips through the DIE's generic attribute list.
type Attr uint8

const (
	AttrSibling           Attr = 0x01
	AttrLocation          Attr = 0x02
	AttrName              Attr = 0x03
	AttrByteSize          Attr = 0x0b
	AttrBitOffset         Attr = 0x0c
	AttrBitSize           Attr = 0x0d
	AttrStmtList          Attr = 0x10
	AttrLowPC             Attr = 0x11
	AttrHighPC            Attr = 0x12
	AttrLanguage          Attr = 0x13
	AttrCompDir           Attr = 0x1b
	AttrConstValue        Attr = 0x1c
	AttrUpperBound        Attr = 0x2f
	AttrProducer          Attr = 0x25
	AttrPrototyped        Attr = 0x27
	AttrCount             Attr = 0x37
	AttrDataMemberLoc     Attr = 0x38
	AttrDeclFile          Attr = 0x3a
	AttrDeclLine          Attr = 0x3b
	AttrDeclaration       Attr = 0x3c
	AttrEncoding          Attr = 0x3e
	AttrExternal          Attr = 0x3f
	AttrFrameBase         Attr = 0x40
	AttrType              Attr = 0x49
)

// Children flags whether an abbreviation's DIEs own a sibling chain of
// children (DW_CHILDREN_yes/no).
type Children uint8

const (
	ChildrenNo  Children = 0x00
	ChildrenYes Children = 0x01
)

// WireType is the decoding strategy for a DW_FORM: either a fixed byte
// width, or one of the dynamically-sized / specially-resolved kinds.
type WireType uint8

const (
	WireFixed1 WireType = iota
	WireFixed2
	WireFixed4
	WireFixed8
	WireFlagPresent // zero-width; decodes to the constant 1
	WireDWARFAddr   // width = current compile unit's address size
	WireMachineAddr // width = object's address size
	WireString      // NUL-terminated inline string
	WireStringPtr   // offset into .debug_str, or a relocation target
	WireULEB128
	WireLEB128   // signed LEB128; unimplemented, see spec.md §9
	WireIndirect // unimplemented
	WireExprloc  // ULEB128 length prefix, bytes skipped and decoded as 0
)

// Form describes one DW_FORM_* encoding: its numeric code and the wire
// type used to decode attribute values carrying it.
type Form struct {
	Code byte
	Wire WireType
}

var (
	FormAddr        = Form{0x01, WireMachineAddr}
	FormBlock2      = Form{0x03, WireFixed2}
	FormBlock4      = Form{0x04, WireFixed4}
	FormData2       = Form{0x05, WireFixed2}
	FormData4       = Form{0x06, WireFixed4}
	FormData8       = Form{0x07, WireFixed8}
	FormString      = Form{0x08, WireString}
	FormBlock       = Form{0x09, WireLEB128}
	FormBlock1      = Form{0x0a, WireFixed1}
	FormData1       = Form{0x0b, WireFixed1}
	FormFlag        = Form{0x0c, WireFixed1}
	FormSdata       = Form{0x0d, WireLEB128}
	FormStrp        = Form{0x0e, WireStringPtr}
	FormUdata       = Form{0x0f, WireULEB128}
	FormRefAddr     = Form{0x10, WireDWARFAddr}
	FormRef1        = Form{0x11, WireFixed1}
	FormRef2        = Form{0x12, WireFixed2}
	FormRef4        = Form{0x13, WireFixed4}
	FormRef8        = Form{0x14, WireFixed8}
	FormRefUdata    = Form{0x15, WireULEB128}
	FormIndirect    = Form{0x16, WireIndirect}
	FormSecOffset   = Form{0x17, WireDWARFAddr}
	FormExprloc     = Form{0x18, WireExprloc}
	FormFlagPresent = Form{0x19, WireFlagPresent}
	FormRefSig8     = Form{0x20, WireFixed8}
)

var formsByCode = map[byte]Form{
	FormAddr.Code:        FormAddr,
	FormBlock2.Code:      FormBlock2,
	FormBlock4.Code:      FormBlock4,
	FormData2.Code:       FormData2,
	FormData4.Code:       FormData4,
	FormData8.Code:       FormData8,
	FormString.Code:      FormString,
	FormBlock.Code:       FormBlock,
	FormBlock1.Code:      FormBlock1,
	FormData1.Code:       FormData1,
	FormFlag.Code:        FormFlag,
	FormSdata.Code:       FormSdata,
	FormStrp.Code:        FormStrp,
	FormUdata.Code:       FormUdata,
	FormRefAddr.Code:     FormRefAddr,
	FormRef1.Code:        FormRef1,
	FormRef2.Code:        FormRef2,
	FormRef4.Code:        FormRef4,
	FormRef8.Code:        FormRef8,
	FormRefUdata.Code:    FormRefUdata,
	FormIndirect.Code:    FormIndirect,
	FormSecOffset.Code:   FormSecOffset,
	FormExprloc.Code:     FormExprloc,
	FormFlagPresent.Code: FormFlagPresent,
	FormRefSig8.Code:     FormRefSig8,
}

// Lookup returns the Form for a DW_FORM byte code, and whether it is
// known. Unknown forms surface as cedoerr.UnsupportedForm at the call
// site rather than here, since only the reader has enough context to
// build a useful error message.
func Lookup(code byte) (Form, bool) {
	f, ok := formsByCode[code]
	return f, ok
}
