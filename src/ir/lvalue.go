package ir

import "flashcc/src/registry"

// ValueCategory is one of the three C++ value categories spec.md §4.1
// tracks per temporary.
type ValueCategory int

const (
	// Prvalue: function return, arithmetic result, literal, constructor
	// result. Has no LValueInfo.
	Prvalue ValueCategory = iota
	// Lvalue: identifier of a named object, member access, array
	// subscript, dereference, cast to T&.
	Lvalue
	// Xvalue: cast to T&&, function returning T&&.
	Xvalue
)

// LValueKind discriminates the address shape an LValueInfo describes.
type LValueKind int

const (
	Direct LValueKind = iota
	Indirect
	Member
	ArrayElement
	Global
	Temporary
)

// LValueInfo is the structured address descriptor spec.md §3 defines,
// attached to any temporary whose category is Lvalue or Xvalue.
type LValueInfo struct {
	Kind LValueKind

	// Base is either a named slot (BaseName) or a base temporary
	// (BaseTemp), discriminated by BaseIsTemp.
	BaseIsTemp bool
	BaseName   registry.StringHandle
	BaseTemp   TempVar

	Offset int64 // Cumulative member offset.

	MemberName  registry.StringHandle
	HasMember   bool
	ArrayIndex  *TypedValue
	IsPointerToMember bool // base is a pointer needing one dereference.
	IsPointerToArray  bool // ditto for arrays.

	BitfieldWidth     int
	HasBitfieldWidth  bool
	BitfieldBitOffset int
}

// Valid reports whether the LValueInfo is internally consistent per the
// spec §3 invariant: "Member ⇒ member_name.is_some(), ArrayElement ⇒
// array_index.is_some()".
func (l *LValueInfo) Valid() bool {
	switch l.Kind {
	case Member:
		return l.HasMember
	case ArrayElement:
		return l.ArrayIndex != nil
	default:
		return true
	}
}

// NewDirect builds a Direct LValueInfo addressing a named slot.
func NewDirect(name registry.StringHandle) LValueInfo {
	return LValueInfo{Kind: Direct, BaseName: name}
}

// NewIndirect builds an Indirect LValueInfo dereferencing a pointer
// temporary.
func NewIndirect(base TempVar) LValueInfo {
	return LValueInfo{Kind: Indirect, BaseIsTemp: true, BaseTemp: base}
}

// NewMember builds a Member LValueInfo.
func NewMember(baseIsTemp bool, baseName registry.StringHandle, baseTemp TempVar, member registry.StringHandle, offset int64, pointerToMember bool) LValueInfo {
	return LValueInfo{
		Kind:              Member,
		BaseIsTemp:        baseIsTemp,
		BaseName:          baseName,
		BaseTemp:          baseTemp,
		MemberName:        member,
		HasMember:         true,
		Offset:            offset,
		IsPointerToMember: pointerToMember,
	}
}

// NewArrayElement builds an ArrayElement LValueInfo.
func NewArrayElement(baseIsTemp bool, baseName registry.StringHandle, baseTemp TempVar, index TypedValue, memberOffset int64, pointerToArray bool) LValueInfo {
	idx := index
	return LValueInfo{
		Kind:             ArrayElement,
		BaseIsTemp:       baseIsTemp,
		BaseName:         baseName,
		BaseTemp:         baseTemp,
		ArrayIndex:       &idx,
		Offset:           memberOffset,
		IsPointerToArray: pointerToArray,
	}
}

// NewGlobal builds a Global LValueInfo addressed by mangled name.
func NewGlobal(name registry.StringHandle) LValueInfo {
	return LValueInfo{Kind: Global, BaseName: name}
}

// TempVarMetadata associates a temporary with its value category and, for
// lvalues/xvalues, its LValueInfo. Spec §9 design note: this table is a
// per-function dense vector indexed by var_number, constructed alongside
// the IR, rather than a global map — the one piece of non-local mutable
// state the teacher's llvm-transform package carries (its package-level
// `globals symTab`) that this core deliberately does not reproduce.
type TempVarMetadata struct {
	entries []tempEntry
}

type tempEntry struct {
	set      bool
	category ValueCategory
	lvalue   LValueInfo
	hasLV    bool
}

// NewTempVarMetadata returns an empty per-function metadata table.
func NewTempVarMetadata() *TempVarMetadata {
	return &TempVarMetadata{entries: make([]tempEntry, 0, 64)}
}

// SetPrvalue records t as a prvalue with no LValueInfo.
func (m *TempVarMetadata) SetPrvalue(t TempVar) {
	m.grow(t)
	m.entries[t] = tempEntry{set: true, category: Prvalue}
}

// SetLValue records t as an lvalue or xvalue with the given LValueInfo.
// Panics if category is Prvalue or info is not internally consistent,
// matching spec §3's invariant that every Lvalue/Xvalue temporary carries a
// kind-consistent LValueInfo.
func (m *TempVarMetadata) SetLValue(t TempVar, category ValueCategory, info LValueInfo) {
	if category == Prvalue {
		panic("ir: SetLValue called with Prvalue category")
	}
	if !info.Valid() {
		panic("ir: inconsistent LValueInfo for kind")
	}
	m.grow(t)
	m.entries[t] = tempEntry{set: true, category: category, lvalue: info, hasLV: true}
}

func (m *TempVarMetadata) grow(t TempVar) {
	for TempVar(len(m.entries)) <= t {
		m.entries = append(m.entries, tempEntry{})
	}
}

// Category returns the value category of t.
func (m *TempVarMetadata) Category(t TempVar) ValueCategory {
	if int(t) >= len(m.entries) || !m.entries[t].set {
		return Prvalue
	}
	return m.entries[t].category
}

// LValue returns the LValueInfo of t and whether one is present.
func (m *TempVarMetadata) LValue(t TempVar) (LValueInfo, bool) {
	if int(t) >= len(m.entries) || !m.entries[t].hasLV {
		return LValueInfo{}, false
	}
	return m.entries[t].lvalue, true
}
