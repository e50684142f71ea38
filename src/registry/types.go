package registry

import "sync"

// TypeIndex is a stable reference into Registry.Types. It is the "explicit
// index instead of pointer" design spec.md §9 asks for when breaking the
// struct<->member-function cycle.
type TypeIndex int32

// InvalidTypeIndex marks an unresolved type reference.
const InvalidTypeIndex TypeIndex = -1

// TypeKind discriminates the kind of record a TypeInfo holds.
type TypeKind int

const (
	KindPrimitive TypeKind = iota
	KindEnum
	KindStruct
	KindUnion
	KindFunctionPointer
)

// Access is the C++ access specifier of a member, base class or friend
// relation.
type Access int

const (
	AccessPublic Access = iota
	AccessProtected
	AccessPrivate
)

// Primitive enumerates the built-in scalar kinds a KindPrimitive TypeInfo
// can describe.
type Primitive int

const (
	PrimVoid Primitive = iota
	PrimBool
	PrimChar
	PrimInt
	PrimLong
	PrimLongLong
	PrimFloat
	PrimDouble
)

// Member describes one data member of a struct/class/union.
type Member struct {
	Name           StringHandle
	Type           TypeIndex
	ByteOffset     int64
	SizeBits       int
	Access         Access
	BitfieldWidth  int // 0 if not a bitfield.
	BitfieldOffset int
	IsReference    bool
}

// MemberFunction describes one member function declaration attached to a
// struct/class. DeclNode is an opaque pointer into the parser's AST arena
// (spec §9: "Treat the AST arena as the owner of nodes and everything else
// as an index into it" — member functions reference their declaration by
// this index rather than by value).
type MemberFunction struct {
	Name          StringHandle
	MangledName   StringHandle
	Access        Access
	IsVirtual     bool
	IsOverride    bool
	IsFinal       bool
	VtableIndex   int // -1 if not virtual.
	IsConstructor bool
	IsDestructor  bool
	IsOperator    bool
	OperatorSym   string // e.g. "+", "[]", "" for conversion operators.
	IsConversion  bool
	IsExplicit    bool
	DeclNode      int64 // Opaque index into the parser's AST arena.
}

// BaseClass describes one direct base class of a struct.
type BaseClass struct {
	Type    TypeIndex
	Access  Access
	Virtual bool
}

// StructInfo carries the full layout and declaration-set data for a
// struct/class/union TypeInfo.
type StructInfo struct {
	Members         []Member
	MemberFuncs     []MemberFunction
	Bases           []BaseClass
	HasVtable       bool
	Abstract        bool
	IsUnion         bool
	IsFinal         bool
	Enclosing       TypeIndex // InvalidTypeIndex if not a nested class.
	Friends         map[StringHandle]struct{}
	FriendClasses   map[TypeIndex]struct{}
	IsAggregate     bool
	IsTriviallyCtor bool
	IsTriviallyDtor bool
	HasUserDtor     bool
	HasUserCtor     bool
	InstantiatedOf  StringHandle // Pattern name, if this is a template instantiation; InvalidHandle otherwise.
}

// EnumInfo carries an enum's underlying type and enumerator list.
type EnumInfo struct {
	Underlying  TypeIndex
	Enumerators []EnumConst
}

// EnumConst is one enumerator of an enum type.
type EnumConst struct {
	Name  StringHandle
	Value int64
}

// FunctionPointerInfo describes a function-pointer type's signature.
type FunctionPointerInfo struct {
	Return TypeIndex
	Params []TypeIndex
}

// TypeInfo is one record of the global type table gTypeInfo.
type TypeInfo struct {
	Name      StringHandle
	Kind      TypeKind
	SizeBits  int
	AlignBits int

	Primitive Primitive            // Valid when Kind == KindPrimitive.
	Enum      *EnumInfo            // Valid when Kind == KindEnum.
	Struct    *StructInfo          // Valid when Kind == KindStruct || KindUnion.
	FuncPtr   *FunctionPointerInfo // Valid when Kind == KindFunctionPointer.
}

// Registry is the explicit, non-global type/name registry every lowering
// call threads through. Spec §9 flags the teacher-shaped global tables
// (gTypeInfo, gTypesByName, gTemplateRegistry, StringTable) as something a
// systems-language reimplementation should carry as explicit context fields
// instead of process globals; Registry is exactly that: one value owns all
// four tables and is passed by pointer everywhere lowering needs them.
type Registry struct {
	Strings *Interner

	mx         sync.RWMutex
	types      []TypeInfo
	byName     map[StringHandle]TypeIndex
	Templates  *TemplateRegistry
}

// NewRegistry returns a Registry pre-populated with the primitive types.
func NewRegistry() *Registry {
	r := &Registry{
		Strings:   NewInterner(),
		byName:    make(map[StringHandle]TypeIndex, 64),
		Templates: NewTemplateRegistry(),
	}
	for _, p := range []struct {
		name string
		prim Primitive
		bits int
	}{
		{"void", PrimVoid, 0},
		{"bool", PrimBool, 8},
		{"char", PrimChar, 8},
		{"int", PrimInt, 32},
		{"long", PrimLong, 32}, // overridden by abi.TargetAbi at context construction time.
		{"long long", PrimLongLong, 64},
		{"float", PrimFloat, 32},
		{"double", PrimDouble, 64},
	} {
		r.DefineType(TypeInfo{
			Name:      r.Strings.Intern(p.name),
			Kind:      KindPrimitive,
			Primitive: p.prim,
			SizeBits:  p.bits,
			AlignBits: p.bits,
		})
	}
	return r
}

// DefineType appends a new TypeInfo and indexes it by name, returning its
// TypeIndex. Types are append-only for the lifetime of a Registry: once
// created they live for the whole compilation (spec §3 Lifecycles).
func (r *Registry) DefineType(t TypeInfo) TypeIndex {
	r.mx.Lock()
	defer r.mx.Unlock()
	idx := TypeIndex(len(r.types))
	r.types = append(r.types, t)
	if t.Name != InvalidHandle {
		r.byName[t.Name] = idx
	}
	return idx
}

// Type returns the TypeInfo at idx. The caller must hold idx < Len(); this
// mirrors the invariant in spec §3 ("Struct types referenced from IR carry
// a valid type_index < gTypeInfo.len()").
func (r *Registry) Type(idx TypeIndex) *TypeInfo {
	r.mx.RLock()
	defer r.mx.RUnlock()
	if idx < 0 || int(idx) >= len(r.types) {
		return nil
	}
	return &r.types[idx]
}

// Len returns the number of defined types.
func (r *Registry) Len() int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return len(r.types)
}

// ByName looks up a type by its (mangled) name handle.
func (r *Registry) ByName(name StringHandle) (TypeIndex, bool) {
	r.mx.RLock()
	defer r.mx.RUnlock()
	idx, ok := r.byName[name]
	return idx, ok
}

// MutateType applies fn to the TypeInfo at idx under the write lock. Used
// for the append-only mutation template instantiation performs during
// lowering (spec §5: "read (with occasional append-only mutation during
// template instantiation) during lowering").
func (r *Registry) MutateType(idx TypeIndex, fn func(*TypeInfo)) {
	r.mx.Lock()
	defer r.mx.Unlock()
	if idx < 0 || int(idx) >= len(r.types) {
		return
	}
	fn(&r.types[idx])
}
