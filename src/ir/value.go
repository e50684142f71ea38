// Package ir defines the linear IR instruction stream the AstToIr lowering
// pass emits: opcodes, typed payloads, temporaries, value categories and
// LValueInfo address descriptors.
//
// Grounded on the teacher's src/ir/lir package as a whole: lir.Module /
// lir.Function / lir.Block establish the "one flat instruction stream per
// function, typed value payloads" shape this package generalizes from
// VSL's two-type (int/float) IR to the richer typed-value model spec.md §3
// describes.
package ir

import "flashcc/src/registry"

// TempVar is a monotonically increasing per-function temporary. Spec §3
// invariant: every TempVar is assigned exactly once.
type TempVar int32

// ValueKind discriminates the tagged union TypedValue.Value holds.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueTemp
	ValueString
	ValueUint
	ValueFloat
)

// Value is the tagged union `TempVar | StringHandle | u64 | f64` from
// spec.md §3.
type Value struct {
	Kind ValueKind
	Temp TempVar
	Str  registry.StringHandle
	U64  uint64
	F64  float64
}

// TempValue wraps a TempVar as a Value.
func TempValue(t TempVar) Value { return Value{Kind: ValueTemp, Temp: t} }

// StringValue wraps a StringHandle as a Value.
func StringValue(s registry.StringHandle) Value { return Value{Kind: ValueString, Str: s} }

// UintValue wraps a uint64 immediate as a Value.
func UintValue(v uint64) Value { return Value{Kind: ValueUint, U64: v} }

// FloatValue wraps a float64 immediate as a Value.
func FloatValue(v float64) Value { return Value{Kind: ValueFloat, F64: v} }

// RefQualifier distinguishes non-reference, lvalue-reference and
// rvalue-reference types.
type RefQualifier int

const (
	RefNone RefQualifier = iota
	RefLValue
	RefRValue
)

// CVQualifier packs const/volatile as bit flags.
type CVQualifier int

const (
	CVNone     CVQualifier = 0
	CVConst    CVQualifier = 1 << 0
	CVVolatile CVQualifier = 1 << 1
)

// TypedValue is the payload every IrInstruction operand carries: a type, its
// size, the value itself, and the qualifiers spec.md §3 lists. Type is the
// operand's registry TypeIndex, primitive types included (the registry
// defines them too); it is the TypeIndex backend and access-control code key
// off of (spec §3's optional `type_index?` field).
type TypedValue struct {
	Type         registry.TypeIndex
	SizeBits     int
	Value        Value
	PointerDepth int
	RefQualifier RefQualifier
	CVQualifier  CVQualifier
}

// IsPointer reports whether the value's static type is a pointer.
func (v TypedValue) IsPointer() bool { return v.PointerDepth > 0 }
