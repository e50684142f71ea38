package lower

import (
	"flashcc/src/ast"
	"flashcc/src/ir"
	"flashcc/src/registry"
)

// CastKind enumerates the cast forms spec.md §4.2 lists.
type CastKind int

const (
	CastStatic CastKind = iota
	CastStaticLValueRef
	CastStaticRValueRef
	CastConst
	CastReinterpret
	CastDynamic
	CastCStyle
)

// castData is what the parser attaches to a KindCast node: which cast form,
// the target type, and (for reference casts) whether an lvalue or xvalue
// result is requested.
type castData struct {
	Kind   CastKind
	Target registry.TypeIndex
}

// lowerCast dispatches to the cast-family lowering spec.md §4.2 describes.
// Grounded on src/ir/lir/cast.go's op-per-conversion-kind table.
func (f *FuncLowerer) lowerCast(n *ast.Node) (ir.TypedValue, error) {
	cd, ok := n.Data.(castData)
	if !ok {
		return ir.TypedValue{}, f.internalError(n, "cast node missing castData payload")
	}
	operand, err := f.LowerExpr(n.Child(0), CtxLoad)
	if err != nil {
		return ir.TypedValue{}, err
	}

	switch cd.Kind {
	case CastStaticRValueRef:
		return f.lowerReferenceCast(n, operand, cd.Target, ir.Xvalue)
	case CastStaticLValueRef:
		return f.lowerReferenceCast(n, operand, cd.Target, ir.Lvalue)
	case CastDynamic:
		return f.lowerDynamicCast(n, operand, cd.Target)
	case CastConst, CastReinterpret:
		// "preserve bits/address; only type metadata changes" (spec §4.2).
		kind := ir.ConvConstCast
		if cd.Kind == CastReinterpret {
			kind = ir.ConvReinterpretCast
		}
		return f.emitConversion(n, kind, operand, cd.Target)
	case CastStatic, CastCStyle:
		return f.lowerStaticCast(n, operand, cd.Target)
	default:
		return ir.TypedValue{}, f.semanticError(n, "unknown cast kind %d", cd.Kind)
	}
}

// lowerReferenceCast implements `static_cast<T&&>`/`static_cast<T&>`: spec
// §4.2 "allocate a new temporary, take the address of the source, tag with
// LValueInfo::Direct, category XValue/LValue."
func (f *FuncLowerer) lowerReferenceCast(n *ast.Node, operand ir.TypedValue, target registry.TypeIndex, cat ir.ValueCategory) (ir.TypedValue, error) {
	addr := f.EmitPrvalue()
	f.Emit(ir.Instruction{Op: ir.OpAddressOf, Payload: ir.AddressOfOp{Operand: operand, Result: addr}})

	info := ir.LValueInfo{Kind: ir.Direct, BaseIsTemp: true, BaseTemp: addr}
	t := f.EmitLValue(cat, info)
	return ir.TypedValue{Type: target, PointerDepth: 0, RefQualifier: refQualifierFor(cat), Value: ir.TempValue(t)}, nil
}

func refQualifierFor(cat ir.ValueCategory) ir.RefQualifier {
	if cat == ir.Xvalue {
		return ir.RefRValue
	}
	return ir.RefLValue
}

// lowerStaticCast covers the arithmetic-conversion family spec.md §4.2
// names: integer<->float, float<->float, integer/float-to-bool, and
// pointer-to-pointer bitcasts.
func (f *FuncLowerer) lowerStaticCast(n *ast.Node, operand ir.TypedValue, target registry.TypeIndex) (ir.TypedValue, error) {
	srcInfo := f.Reg.Type(operand.Type)
	dstInfo := f.Reg.Type(target)
	if srcInfo == nil || dstInfo == nil {
		return ir.TypedValue{}, f.internalError(n, "cast references unresolved type index")
	}

	if operand.IsPointer() {
		// "Pointer-to-pointer casts are bitcasts: re-tag type, 64-bit
		// size, no conversion op" (spec §4.2).
		return ir.TypedValue{Type: target, PointerDepth: operand.PointerDepth, SizeBits: 64, Value: operand.Value}, nil
	}

	srcFloat := isFloatPrim(srcInfo)
	dstFloat := isFloatPrim(dstInfo)
	dstBool := dstInfo.Kind == registry.KindPrimitive && dstInfo.Primitive == registry.PrimBool

	switch {
	case dstBool:
		return f.emitConversion(n, ir.ConvToBool, operand, target)
	case srcFloat && dstFloat:
		return f.emitConversion(n, ir.ConvFloatToFloat, operand, target)
	case srcFloat && !dstFloat:
		return f.emitConversion(n, ir.ConvFloatToInt, operand, target)
	case !srcFloat && dstFloat:
		return f.emitConversion(n, ir.ConvIntToFloat, operand, target)
	default:
		return f.emitConversion(n, ir.ConvBitcast, operand, target)
	}
}

func isFloatPrim(t *registry.TypeInfo) bool {
	return t.Kind == registry.KindPrimitive && (t.Primitive == registry.PrimFloat || t.Primitive == registry.PrimDouble)
}

func (f *FuncLowerer) emitConversion(n *ast.Node, kind ir.ConversionKind, operand ir.TypedValue, target registry.TypeIndex) (ir.TypedValue, error) {
	t := f.EmitPrvalue()
	f.Emit(ir.Instruction{
		Op:    ir.OpTypeConversion,
		Token: ir.SourceToken{Line: n.Line, Pos: n.Pos},
		Payload: ir.TypeConversionOp{Kind: kind, Operand: operand, TargetType: target, Result: t},
	})
	return ir.TypedValue{Type: target, Value: ir.TempValue(t)}, nil
}

// lowerDynamicCast emits a DynamicCastOp carrying the operand, the target
// type and whether the operand is reference-qualified. Whether the operand
// type is polymorphic is not recorded on the op. For a reference cast the
// result is additionally recorded as a Direct lvalue over the op's result.
func (f *FuncLowerer) lowerDynamicCast(n *ast.Node, operand ir.TypedValue, target registry.TypeIndex) (ir.TypedValue, error) {
	srcInfo := f.Reg.Type(operand.Type)
	isRef := operand.RefQualifier != ir.RefNone
	t := f.EmitPrvalue()
	f.Emit(ir.Instruction{
		Op: ir.OpDynamicCast,
		Payload: ir.DynamicCastOp{Operand: operand, TargetType: target, Reference: isRef, Result: t},
	})
	result := ir.TypedValue{Type: target, PointerDepth: operand.PointerDepth, Value: ir.TempValue(t)}
	if isRef {
		cat := ir.Lvalue
		info := ir.LValueInfo{Kind: ir.Direct, BaseIsTemp: true, BaseTemp: t}
		lv := f.EmitLValue(cat, info)
		result.Value = ir.TempValue(lv)
	}
	_ = srcInfo
	return result, nil
}

// lowerConstantTrait lowers sizeof/alignof/offsetof/type-traits; all are
// constant-folded per spec.md §4.2, so the result is always a prvalue
// integer immediate.
func (f *FuncLowerer) lowerConstantTrait(n *ast.Node) (ir.TypedValue, error) {
	switch n.Kind {
	case ast.KindSizeof:
		return f.lowerSizeof(n)
	case ast.KindAlignof:
		return f.lowerAlignof(n)
	case ast.KindOffsetof:
		return f.lowerOffsetof(n)
	case ast.KindTypeTrait:
		return f.lowerTypeTrait(n)
	default:
		return ir.TypedValue{}, f.internalError(n, "lowerConstantTrait called with non-trait node")
	}
}
