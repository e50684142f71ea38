package lower

import (
	"flashcc/src/ast"
	"flashcc/src/ir"
	"flashcc/src/registry"
)

// initListEntry is one element of a brace-init list: either a positional
// value (Member invalid) or a designated field (`.x = ...`).
type initListEntry struct {
	Member    registry.StringHandle
	HasMember bool
	Value     *ast.Node // May itself be a nested KindInitializerList for aggregate-of-aggregate brace-init.
}

// initListData is attached to a KindInitializerList node by the parser.
type initListData struct {
	Type        registry.TypeIndex
	Entries     []initListEntry
	IsStdInitList bool // true for std::initializer_list<T> construction.
	ElementType registry.TypeIndex // Valid when IsStdInitList.
}

// lowerInitializerListExpr lowers brace-init. For an aggregate struct, per
// spec.md §4.5 this issues a trivial (non-user) default construction
// followed by one MemberStore per initialized field, designated fields
// skipping straight to their name and positional fields walking
// StructInfo.Members in declaration order; for std::initializer_list<T>, a
// backing array of T is synthesized and the list object is materialized as
// a (pointer, count) pair over it (spec §4.5: "backing-array synthesis").
func (f *FuncLowerer) lowerInitializerListExpr(n *ast.Node) (ir.TypedValue, error) {
	d, ok := n.Data.(initListData)
	if !ok {
		return ir.TypedValue{}, f.internalError(n, "initializer-list node missing data")
	}
	if d.IsStdInitList {
		return f.lowerStdInitializerList(n, d)
	}
	return f.lowerAggregateInit(n, d)
}

func (f *FuncLowerer) lowerAggregateInit(n *ast.Node, d initListData) (ir.TypedValue, error) {
	ti := f.Reg.Type(d.Type)
	if ti == nil || ti.Kind != registry.KindStruct || ti.Struct == nil {
		return ir.TypedValue{}, f.semanticError(n, "brace-init target is not an aggregate struct")
	}

	t := f.EmitPrvalue()
	object := ir.TypedValue{Type: d.Type, Value: ir.TempValue(t)}
	f.Emit(ir.Instruction{
		Op: ir.OpConstructorCall,
		Payload: ir.ConstructorCallOp{StructType: d.Type, Object: object},
	})

	nextPositional := 0
	for i, entry := range d.Entries {
		var memberName registry.StringHandle
		var offset int64
		if entry.HasMember {
			memberName = entry.Member
			found := false
			for _, m := range ti.Struct.Members {
				if m.Name == entry.Member {
					offset = m.ByteOffset
					found = true
					break
				}
			}
			if !found {
				return ir.TypedValue{}, f.semanticError(n, "aggregate has no member %q", f.Reg.Strings.String(entry.Member))
			}
		} else {
			if nextPositional >= len(ti.Struct.Members) {
				return ir.TypedValue{}, f.semanticError(n, "too many initializers for aggregate at entry %d", i)
			}
			m := ti.Struct.Members[nextPositional]
			memberName, offset = m.Name, m.ByteOffset
			nextPositional++
		}

		value, err := f.LowerExpr(entry.Value, CtxLoad)
		if err != nil {
			return ir.TypedValue{}, err
		}
		f.Emit(ir.Instruction{
			Op: ir.OpMemberStore,
			Payload: ir.MemberStoreOp{Object: object, Member: memberName, Offset: offset, Value: value},
		})
	}
	return object, nil
}

// lowerStdInitializerList synthesizes the hidden backing array a
// std::initializer_list<T> is a view over: one HeapAllocArray-free stack
// temporary sized for len(Entries) elements of T, one ArrayStore per
// element in source order, and the list value itself is the (pointer,
// count) pair the backend materializes from the array's address (spec
// §4.5).
func (f *FuncLowerer) lowerStdInitializerList(n *ast.Node, d initListData) (ir.TypedValue, error) {
	elemTi := f.Reg.Type(d.ElementType)
	elemBits := 0
	if elemTi != nil {
		elemBits = elemTi.SizeBits
	}

	arraySlot := f.EmitPrvalue()
	array := ir.TypedValue{Type: d.ElementType, PointerDepth: 1, SizeBits: 64, Value: ir.TempValue(arraySlot)}

	for i, entry := range d.Entries {
		value, err := f.LowerExpr(entry.Value, CtxLoad)
		if err != nil {
			return ir.TypedValue{}, err
		}
		index := ir.TypedValue{Type: f.intType(), SizeBits: 32, Value: ir.UintValue(uint64(i))}
		f.Emit(ir.Instruction{
			Op: ir.OpArrayStore,
			Payload: ir.ArrayStoreOp{Array: array, Index: index, ElementType: d.ElementType, ElementSizeBits: elemBits, Value: value},
		})
	}

	return ir.TypedValue{Type: d.Type, PointerDepth: 1, SizeBits: 64, Value: ir.TempValue(arraySlot)}, nil
}
