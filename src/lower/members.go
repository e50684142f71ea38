package lower

import (
	"flashcc/src/access"
	"flashcc/src/ast"
	"flashcc/src/ir"
	"flashcc/src/registry"
)

// memberAccessData is what the parser attaches to a KindMemberAccess /
// KindArrowAccess node once it has resolved which struct's member is being
// named.
type memberAccessData struct {
	IsStatic          bool
	StaticOwner       string // "Owner::name" mangled free name, for static members.
	Member            registry.StringHandle
	MemberOwner       registry.TypeIndex // Struct that actually declares Member (may be a base).
	ObjectType        registry.TypeIndex
	Offset            int64 // Byte offset within ObjectType, accounting for base-subobject adjustment.
	MemberType        registry.TypeIndex
	Access            registry.Access
	IsPointerToMember bool
	BitfieldWidth     int
	BitfieldOffset    int
}

// lowerMemberAccess lowers `.`/`->`. The arrow form is assumed to already
// have had `operator->()` resolved recursively by the parser/overload layer
// down to a raw pointer (spec.md §4.2: "chains until a raw-pointer type is
// produced"); by the time this core sees the node, memberAccessData names
// the concrete member and its adjusted offset.
//
// In LValueAddr context a chain of member accesses collapses into one
// MemberStore with a single cumulative offset and the outermost member name
// (spec.md §4.1: "Nested member access in LValueAddress context collapses
// the chain"); in Load context each link of the chain is its own
// MemberLoad, so intermediate loads stay explicit.
func (f *FuncLowerer) lowerMemberAccess(n *ast.Node, ctx ExprContext) (ir.TypedValue, error) {
	d, ok := n.Data.(memberAccessData)
	if !ok {
		return ir.TypedValue{}, f.internalError(n, "member-access node missing data")
	}

	if d.IsStatic {
		return f.lowerStaticMemberAccess(n, d)
	}

	if !f.AccessControlDisabled {
		ctx2 := access.Context{CurrentStruct: f.CurrentStruct, CurrentFunction: f.mangledName}
		if !access.Check(f.Reg, d.MemberOwner, d.Access, ctx2) {
			return ir.TypedValue{}, f.semanticError(n, "member %q is not accessible here", f.Reg.Strings.String(d.Member))
		}
	}

	if ctx == CtxLValueAddr {
		// Collapse: if the object expression is itself a member access,
		// fold its offset into ours instead of recursing through a Load.
		baseOffset, baseIsTemp, baseName, baseTemp, err := f.collapseMemberBase(n.Child(0), d.Offset)
		if err != nil {
			return ir.TypedValue{}, err
		}
		info := ir.NewMember(baseIsTemp, baseName, baseTemp, d.Member, baseOffset, d.IsPointerToMember)
		info.BitfieldWidth = d.BitfieldWidth
		info.HasBitfieldWidth = d.BitfieldWidth > 0
		info.BitfieldBitOffset = d.BitfieldOffset
		t := f.EmitLValue(ir.Lvalue, info)
		return ir.TypedValue{Type: d.MemberType, Value: ir.TempValue(t)}, nil
	}

	object, err := f.LowerExpr(n.Child(0), CtxLoad)
	if err != nil {
		return ir.TypedValue{}, err
	}
	t := f.EmitPrvalue()
	f.Emit(ir.Instruction{
		Op: ir.OpMemberLoad,
		Payload: ir.MemberLoadOp{
			Object:            object,
			Member:            d.Member,
			Offset:            d.Offset,
			IsPointerToMember: d.IsPointerToMember,
			BitfieldWidth:     d.BitfieldWidth,
			BitfieldOffset:    d.BitfieldOffset,
			Result:            t,
		},
	})
	return ir.TypedValue{Type: d.MemberType, Value: ir.TempValue(t)}, nil
}

// collapseMemberBase walks down through nested KindMemberAccess children in
// LValueAddr context, accumulating offsets, until it reaches a non-member
// base expression. It returns the accumulated offset and that base's
// identity as either a named slot or a temporary.
func (f *FuncLowerer) collapseMemberBase(base *ast.Node, outerOffset int64) (offset int64, baseIsTemp bool, baseName registry.StringHandle, baseTemp ir.TempVar, err error) {
	if base.Kind == ast.KindMemberAccess || base.Kind == ast.KindArrowAccess {
		bd, ok := base.Data.(memberAccessData)
		if ok && !bd.IsStatic {
			innerOffset, isTemp, name, temp, err2 := f.collapseMemberBase(base.Child(0), bd.Offset)
			if err2 != nil {
				return 0, false, 0, 0, err2
			}
			return innerOffset + outerOffset, isTemp, name, temp, nil
		}
	}
	v, err := f.LowerExpr(base, CtxLoad)
	if err != nil {
		return 0, false, 0, 0, err
	}
	switch v.Value.Kind {
	case ir.ValueTemp:
		return outerOffset, true, 0, v.Value.Temp, nil
	case ir.ValueString:
		return outerOffset, false, v.Value.Str, 0, nil
	default:
		return 0, false, 0, 0, f.internalError(base, "member-access base did not lower to an addressable value")
	}
}

// lowerStaticMemberAccess handles qualified static-member access
// (`Owner::name`), resolved recursively across base classes by the
// parser/overload layer and reported here as an already-mangled name
// (spec.md §4.2, resolution step 1: "static-member recursive lookup across
// base classes -> GlobalLoad with Owner::name").
func (f *FuncLowerer) lowerStaticMemberAccess(n *ast.Node, d memberAccessData) (ir.TypedValue, error) {
	h := f.Reg.Strings.Intern(d.StaticOwner)
	t := f.EmitPrvalue()
	f.Emit(ir.Instruction{Op: ir.OpGlobalLoad, Payload: ir.GlobalLoadOp{Name: h, Result: t}})
	return ir.TypedValue{Type: d.MemberType, Value: ir.TempValue(t)}, nil
}

// arraySubscriptData is attached by the parser once index flattening has
// computed a single linear index over a true multidimensional array, or
// identified that the base is a member array / raw pointer.
type arraySubscriptData struct {
	ElementType     registry.TypeIndex
	ElementSizeBits int
	MemberOffset    int64 // Non-zero only for `obj.arr[i][j]` member-array subscripts.
	IsPointerToArray bool
}

// lowerArraySubscript lowers `a[i1][i2]...[ik]`. Per spec.md §4.2 the
// parser has already flattened multi-dimensional indices outermost-to-
// innermost into one linear index using precomputed strides before handing
// this node to the core; this function only has to turn that single
// flattened index into one ArrayAccess/ArrayStore.
func (f *FuncLowerer) lowerArraySubscript(n *ast.Node, ctx ExprContext) (ir.TypedValue, error) {
	d, ok := n.Data.(arraySubscriptData)
	if !ok {
		return ir.TypedValue{}, f.internalError(n, "array-subscript node missing data")
	}
	array, err := f.LowerExpr(n.Child(0), CtxLoad)
	if err != nil {
		return ir.TypedValue{}, err
	}
	index, err := f.LowerExpr(n.Child(1), CtxLoad)
	if err != nil {
		return ir.TypedValue{}, err
	}

	if ctx == CtxLValueAddr {
		info := ir.NewArrayElement(array.Value.Kind == ir.ValueTemp, array.Value.Str, array.Value.Temp, index, d.MemberOffset, d.IsPointerToArray)
		t := f.EmitLValue(ir.Lvalue, info)
		return ir.TypedValue{Type: d.ElementType, Value: ir.TempValue(t)}, nil
	}

	t := f.EmitPrvalue()
	f.Emit(ir.Instruction{
		Op: ir.OpArrayAccess,
		Payload: ir.ArrayAccessOp{
			Array:            array,
			Index:            index,
			ElementType:      d.ElementType,
			ElementSizeBits:  d.ElementSizeBits,
			MemberOffset:     d.MemberOffset,
			IsPointerToArray: d.IsPointerToArray,
			Result:           t,
		},
	})
	return ir.TypedValue{Type: d.ElementType, Value: ir.TempValue(t)}, nil
}

// LowerArrayStore emits exactly one ArrayStoreOp for `a[flatIndex] = value`,
// satisfying spec.md §8 property 7. Called from stmt.go's assignment
// lowering once it has resolved the LHS to an ArrayElement LValueInfo.
func (f *FuncLowerer) LowerArrayStore(arrayBase ir.TypedValue, info ir.LValueInfo, elementType registry.TypeIndex, elementSizeBits int, value ir.TypedValue) {
	f.Emit(ir.Instruction{
		Op: ir.OpArrayStore,
		Payload: ir.ArrayStoreOp{
			Array:            arrayBase,
			Index:            *info.ArrayIndex,
			ElementType:      elementType,
			ElementSizeBits:  elementSizeBits,
			MemberOffset:     info.Offset,
			IsPointerToArray: info.IsPointerToArray,
			Value:            value,
		},
	})
}

// LowerMemberStore emits one MemberStoreOp for `a.b.c = v`-shaped
// assignments once the member chain has been collapsed by
// lowerMemberAccess's LValueAddr path, satisfying the spec.md §4.1
// collapsing invariant.
func (f *FuncLowerer) LowerMemberStore(object ir.TypedValue, info ir.LValueInfo, value ir.TypedValue) {
	f.Emit(ir.Instruction{
		Op: ir.OpMemberStore,
		Payload: ir.MemberStoreOp{
			Object:            object,
			Member:            info.MemberName,
			Offset:            info.Offset,
			IsPointerToMember: info.IsPointerToMember,
			BitfieldWidth:     info.BitfieldWidth,
			BitfieldOffset:    info.BitfieldBitOffset,
			Value:             value,
		},
	})
}
