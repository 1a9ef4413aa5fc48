// Package typebuilder projects a DWARF DIE subtree rooted at a named
// variable into a typemodel.TypeNode (spec.md §4.4): it looks up the
// DW_TAG_variable whose DW_AT_name matches, follows DW_AT_type, compresses
// the typedef chain, and recurses through base/pointer/array/aggregate
// tags. Missing required attributes or unsupported tags yield no type
// rather than an error — the driver treats that as "skip this symbol".
package typebuilder

import (
	"github.com/brachet-dev/cedo/internal/dwarfbin"
	"github.com/brachet-dev/cedo/internal/dwarfconst"
	"github.com/brachet-dev/cedo/internal/typemodel"
)

// maxTypedefChain bounds the recursion depth of buildType (typedef,
// qualifier, pointer, array and member follows all count) so a corrupt or
// cyclic DW_AT_type chain can't spin the builder forever; no legitimate
// type in practice nests anywhere near this deep.
const maxTypedefChain = 64

// Build locates the DW_TAG_variable named name in d and returns the
// TypeNode its DW_AT_type projects to. ok is false if no such variable
// exists, it carries no DW_AT_type, or the type DIE uses an attribute or
// tag this package does not project.
func Build(d *dwarfbin.Dwarf, name string, addrSize int) (node *typemodel.TypeNode, ok bool) {
	varDie := findVariable(d, name)
	if varDie == nil {
		return nil, false
	}

	typeOff, present := attrRef(varDie, dwarfconst.AttrType)
	if !present {
		return nil, false
	}

	return buildType(d, typeOff, addrSize, 0)
}

func findVariable(d *dwarfbin.Dwarf, name string) *dwarfbin.DIE {
	for i := range d.DIEs {
		die := &d.DIEs[i]
		if die.Tag != dwarfconst.TagVariable {
			continue
		}

		v, present := die.AttrIfPresent(dwarfconst.AttrName)
		if !present || !v.IsString {
			continue
		}

		if v.Str == name {
			return die
		}
	}

	return nil
}

// attrRef returns an attribute's value interpreted as a .debug_info offset
// (DW_AT_type and similar reference-class attributes carry their target's
// offset as an unsigned integer in this reader's model).
func attrRef(die *dwarfbin.DIE, at dwarfconst.Attr) (int, bool) {
	v, present := die.AttrIfPresent(at)
	if !present || v.IsString {
		return 0, false
	}

	return int(v.Uint), true
}

func attrUint(die *dwarfbin.DIE, at dwarfconst.Attr) (uint64, bool) {
	v, present := die.AttrIfPresent(at)
	if !present || v.IsString {
		return 0, false
	}

	return v.Uint, true
}

func buildType(d *dwarfbin.Dwarf, offset int, addrSize int, depth int) (*typemodel.TypeNode, bool) {
	if depth > maxTypedefChain {
		return nil, false
	}

	die, present := d.DIEAt(offset)
	if !present {
		return nil, false
	}

	switch die.Tag {
	case dwarfconst.TagTypedef:
		next, present := attrRef(die, dwarfconst.AttrType)
		if !present {
			return nil, false
		}

		return buildType(d, next, addrSize, depth+1)

	case dwarfconst.TagConstType, dwarfconst.TagVolatileType, dwarfconst.TagRestrictType:
		// Qualifier-only wrapper tags: the underlying type's shape is what
		// the emitter walks, so these are transparent here too.
		next, present := attrRef(die, dwarfconst.AttrType)
		if !present {
			return nil, false
		}

		return buildType(d, next, addrSize, depth+1)

	case dwarfconst.TagBaseType:
		size, present := attrUint(die, dwarfconst.AttrByteSize)
		if !present {
			return nil, false
		}

		return typemodel.NewBase(int(size)), true

	case dwarfconst.TagPointerType:
		pointeeOff, present := attrRef(die, dwarfconst.AttrType)
		if !present {
			// void* has no DW_AT_type; the pointer is still well-formed,
			// it just has no pointee to recurse into.
			return typemodel.NewPointer(nil, addrSize), true
		}

		pointee, ok := buildType(d, pointeeOff, addrSize, depth+1)
		if !ok {
			return nil, false
		}

		return typemodel.NewPointer(pointee, addrSize), true

	case dwarfconst.TagArrayType:
		elemOff, present := attrRef(die, dwarfconst.AttrType)
		if !present {
			return nil, false
		}

		count, ok := arrayCount(d, die)
		if !ok {
			return nil, false
		}

		elem, ok := buildType(d, elemOff, addrSize, depth+1)
		if !ok {
			return nil, false
		}

		return typemodel.NewArray(elem, count), true

	case dwarfconst.TagStructureType, dwarfconst.TagClassType, dwarfconst.TagUnionType:
		return buildAggregate(d, die, addrSize, depth)

	default:
		return nil, false
	}
}

// arrayCount requires exactly one DW_TAG_subrange_type child carrying
// DW_AT_count, per spec.md §4.4.
func arrayCount(d *dwarfbin.Dwarf, die *dwarfbin.DIE) (int, bool) {
	var (
		subrange *dwarfbin.DIE
		found    int
	)

	for _, childOff := range die.ChildrenOffsets {
		child, present := d.DIEAt(childOff)
		if !present || child.Tag != dwarfconst.TagSubrangeType {
			continue
		}

		subrange = child
		found++
	}

	if found != 1 {
		return 0, false
	}

	count, present := attrUint(subrange, dwarfconst.AttrCount)
	if !present {
		return 0, false
	}

	return int(count), true
}

func buildAggregate(d *dwarfbin.Dwarf, die *dwarfbin.DIE, addrSize int, depth int) (*typemodel.TypeNode, bool) {
	totalSize, present := attrUint(die, dwarfconst.AttrByteSize)
	if !present {
		return nil, false
	}

	var members []typemodel.Member

	for _, childOff := range die.ChildrenOffsets {
		child, present := d.DIEAt(childOff)
		if !present || child.Tag != dwarfconst.TagMember {
			continue
		}

		memberTypeOff, present := attrRef(child, dwarfconst.AttrType)
		if !present {
			return nil, false
		}

		memberType, ok := buildType(d, memberTypeOff, addrSize, depth+1)
		if !ok {
			return nil, false
		}

		// DW_AT_data_member_location is absent (and implicitly 0) for
		// union members; the builder treats a missing attribute the same
		// as an explicit 0.
		offset, _ := attrUint(child, dwarfconst.AttrDataMemberLoc)

		members = append(members, typemodel.Member{Offset: int(offset), Type: memberType})
	}

	return typemodel.NewAggregate(int(totalSize), members), true
}
