// Package typemodel is the tagged-variant representation of a source-level
// type that TypeBuilder projects DWARF DIEs into and AsmEmitter walks to
// drive emission (spec.md §3). A TypeNode is one of Base, Pointer, Array, or
// Aggregate; each node owns its children exclusively — copies are deep
// clones, there is no sharing and no cycles.
package typemodel

import "fmt"

// Qualifiers is a bitmask over a type's source-level qualifiers. Only
// Pointer, Array, and Compound contribute to the Kind classification; the
// rest (Signed, Unsigned, Const, Volatile) are carried for completeness but
// do not affect emission.
type Qualifiers uint8

const (
	Signed Qualifiers = 1 << iota
	Unsigned
	Const
	Volatile
	Pointer
	Array
	Compound
)

// Kind discriminates the TypeNode variant.
type Kind uint8

const (
	KindBase Kind = iota
	KindPointer
	KindArray
	KindAggregate
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindAggregate:
		return "aggregate"
	default:
		return "unknown"
	}
}

// Member is one (offset, type) entry of an Aggregate, in declaration order
// before sorting.
type Member struct {
	Offset int
	Type   *TypeNode
}

// TypeNode is the tagged variant itself. Which fields are meaningful depends
// on Kind: ByteSize for Base, Pointee for Pointer, (Element, Count) for
// Array, (TotalSize, Members) for Aggregate.
type TypeNode struct {
	Kind        Kind
	Qualifiers  Qualifiers
	AddressSize int // address-size of the owning object, needed by Pointer.Size

	ByteSize int // KindBase

	Pointee *TypeNode // KindPointer

	Element *TypeNode // KindArray
	Count   int       // KindArray

	TotalSize int      // KindAggregate
	Members   []Member // KindAggregate, sorted by Offset ascending
}

// NewBase builds a Base node of the given byte size.
func NewBase(byteSize int) *TypeNode {
	return &TypeNode{Kind: KindBase, ByteSize: byteSize}
}

// NewPointer builds a Pointer node over pointee, sized for addressSize bytes.
func NewPointer(pointee *TypeNode, addressSize int) *TypeNode {
	return &TypeNode{Kind: KindPointer, Qualifiers: Pointer, Pointee: pointee, AddressSize: addressSize}
}

// NewArray builds an Array node of count elements of element's type.
func NewArray(element *TypeNode, count int) *TypeNode {
	return &TypeNode{Kind: KindArray, Qualifiers: Array, Element: element, Count: count}
}

// NewAggregate builds an Aggregate node, sorting members by offset ascending
// as required by the member-sort-by-offset invariant. members is consumed;
// callers should not retain a reference to the slice they pass in.
func NewAggregate(totalSize int, members []Member) *TypeNode {
	sortMembersByOffset(members)
	return &TypeNode{Kind: KindAggregate, Qualifiers: Compound, TotalSize: totalSize, Members: members}
}

func sortMembersByOffset(members []Member) {
	// Insertion sort: member lists are small (a handful of fields), and this
	// keeps the package free of a sort.Slice closure allocation per call.
	for i := 1; i < len(members); i++ {
		for j := i; j > 0 && members[j].Offset < members[j-1].Offset; j-- {
			members[j], members[j-1] = members[j-1], members[j]
		}
	}
}

// Size returns the type's byte size, per spec.md §3's per-kind formulas:
// Base.ByteSize, Pointer → address-size, Array → element.Size()*Count,
// Aggregate → TotalSize.
func (t *TypeNode) Size() int {
	switch t.Kind {
	case KindBase:
		return t.ByteSize
	case KindPointer:
		return t.AddressSize
	case KindArray:
		return t.Element.Size() * t.Count
	case KindAggregate:
		return t.TotalSize
	default:
		return 0
	}
}

// Validate checks the invariants TypeBuilder is required to maintain:
// Aggregate.TotalSize ≥ max(offset + member.Size()) and members sorted
// ascending by offset; Array.Size() == Element.Size()*Count holds by
// construction and is not re-checked here.
func (t *TypeNode) Validate() error {
	switch t.Kind {
	case KindAggregate:
		prevOffset := -1
		for _, m := range t.Members {
			if m.Offset < prevOffset {
				return fmt.Errorf("typemodel: aggregate members not sorted by offset: %d after %d", m.Offset, prevOffset)
			}
			prevOffset = m.Offset

			if m.Offset+m.Type.Size() > t.TotalSize {
				return fmt.Errorf("typemodel: member at offset %d size %d exceeds total size %d",
					m.Offset, m.Type.Size(), t.TotalSize)
			}

			if err := m.Type.Validate(); err != nil {
				return err
			}
		}
	case KindArray:
		return t.Element.Validate()
	case KindPointer:
		if t.Pointee == nil {
			return nil
		}

		return t.Pointee.Validate()
	}

	return nil
}
