package lower

import (
	"flashcc/src/ast"
	"flashcc/src/ir"
	"flashcc/src/registry"
)

// newData is attached to KindNew/KindNewArray/KindPlacementNew nodes by the
// parser once the allocated type and (for arrays) the element count
// expression are resolved.
type newData struct {
	Type            registry.TypeIndex
	ElementSizeBits int
	IsArray         bool
	IsPlacement     bool
	CtorArgsStart   int // Index into n.Children where constructor arguments begin (after the optional count/address child).
}

// lowerNew implements `new`, `new[]`, and placement new (spec.md §4.2/§4.4).
// Instantiating an abstract class through new is a hard compile-time error
// (spec §4.4: "An abstract class can never be the operand of new"),
// independent of how the parser otherwise would have resolved the call.
func (f *FuncLowerer) lowerNew(n *ast.Node) (ir.TypedValue, error) {
	d, ok := n.Data.(newData)
	if !ok {
		return ir.TypedValue{}, f.internalError(n, "new node missing data")
	}
	ti := f.Reg.Type(d.Type)
	if ti != nil && ti.Kind == registry.KindStruct && ti.Struct != nil && ti.Struct.Abstract {
		return ir.TypedValue{}, f.semanticError(n, "cannot instantiate abstract class %q", f.Reg.Strings.String(ti.Name))
	}

	if d.IsPlacement {
		return f.lowerPlacementNew(n, d)
	}
	if d.IsArray {
		return f.lowerNewArray(n, d)
	}
	return f.lowerNewScalar(n, d)
}

func (f *FuncLowerer) lowerNewScalar(n *ast.Node, d newData) (ir.TypedValue, error) {
	slot := f.EmitPrvalue()
	f.Emit(ir.Instruction{Op: ir.OpHeapAlloc, Token: tokenOf(n), Payload: ir.HeapAllocOp{Type: d.Type, Result: slot}})

	object := ir.TypedValue{Type: d.Type, PointerDepth: 1, SizeBits: 64, Value: ir.TempValue(slot)}
	args, err := f.lowerArgs(n, d.CtorArgsStart, nil)
	if err != nil {
		return ir.TypedValue{}, err
	}
	f.Emit(ir.Instruction{
		Op: ir.OpConstructorCall,
		Payload: ir.ConstructorCallOp{StructType: d.Type, Object: object, Args: args, IsHeapAllocated: true},
	})
	return object, nil
}

func (f *FuncLowerer) lowerNewArray(n *ast.Node, d newData) (ir.TypedValue, error) {
	count, err := f.LowerExpr(n.Child(0), CtxLoad)
	if err != nil {
		return ir.TypedValue{}, err
	}
	slot := f.EmitPrvalue()
	f.Emit(ir.Instruction{
		Op: ir.OpHeapAllocArray,
		Token: tokenOf(n),
		Payload: ir.HeapAllocArrayOp{Type: d.Type, Count: count, ElementSizeBits: d.ElementSizeBits, Result: slot},
	})
	return ir.TypedValue{Type: d.Type, PointerDepth: 1, SizeBits: 64, Value: ir.TempValue(slot)}, nil
}

// lowerPlacementNew constructs d.Type at an already-allocated address
// (n.Child(0)) rather than allocating new storage (spec §4.2: placement new
// "constructs at a caller-supplied address").
func (f *FuncLowerer) lowerPlacementNew(n *ast.Node, d newData) (ir.TypedValue, error) {
	addr, err := f.LowerExpr(n.Child(0), CtxLoad)
	if err != nil {
		return ir.TypedValue{}, err
	}
	args, err := f.lowerArgs(n, d.CtorArgsStart, nil)
	if err != nil {
		return ir.TypedValue{}, err
	}
	f.Emit(ir.Instruction{
		Op: ir.OpPlacementNew,
		Token: tokenOf(n),
		Payload: ir.PlacementNewOp{Type: d.Type, Address: addr, Args: args},
	})
	return ir.TypedValue{Type: d.Type, PointerDepth: 1, SizeBits: 64, Value: addr.Value}, nil
}

// deleteData is attached to KindDelete/KindDeleteArray statement nodes.
type deleteData struct {
	Type    registry.TypeIndex
	IsArray bool
}

// LowerDelete implements `delete`/`delete[]` (spec.md §4.2/§4.4). Unlike
// expression lowering this is invoked from stmt.go, since delete is a
// statement producing no value; the destructor call per spec §4.3 precedes
// the HeapFree in program order so the object is still valid when its
// destructor inspects it.
func (f *FuncLowerer) LowerDelete(n *ast.Node) error {
	d, ok := n.Data.(deleteData)
	if !ok {
		return f.internalError(n, "delete node missing data")
	}
	pointer, err := f.LowerExpr(n.Child(0), CtxLoad)
	if err != nil {
		return err
	}
	ti := f.Reg.Type(d.Type)
	if ti != nil && ti.Kind == registry.KindStruct {
		f.Emit(ir.Instruction{Op: ir.OpDestructorCall, Payload: ir.DestructorCallOp{StructType: d.Type, Object: pointer}})
	}
	if d.IsArray {
		f.Emit(ir.Instruction{Op: ir.OpHeapFreeArray, Token: tokenOf(n), Payload: ir.HeapFreeArrayOp{Pointer: pointer}})
	} else {
		f.Emit(ir.Instruction{Op: ir.OpHeapFree, Token: tokenOf(n), Payload: ir.HeapFreeOp{Pointer: pointer}})
	}
	return nil
}

// constructorCallData is attached to a KindConstructorCall node: an
// explicit value-initialization expression (`T(args...)`, a base/member
// initializer-list entry, or a by-value local's implicit construction).
type constructorCallData struct {
	Type          registry.TypeIndex
	ObjectName    registry.StringHandle // Named local this constructs into, if any.
	HasObjectName bool
	UseReturnSlot bool // True when constructing directly into the caller-supplied RVO slot.
	ArgsStart     int
}

// lowerConstructorCallExpr lowers T(args...) both as a bare expression
// (temporary materialization) and, via ObjectName, direct-construction into
// a named local — avoiding a default-construct-then-copy step, matching
// spec.md §4.2's guarantee that RVO/direct-init paths issue exactly one
// ConstructorCall.
func (f *FuncLowerer) lowerConstructorCallExpr(n *ast.Node) (ir.TypedValue, error) {
	d, ok := n.Data.(constructorCallData)
	if !ok {
		return ir.TypedValue{}, f.internalError(n, "constructor-call node missing data")
	}
	args, err := f.lowerArgs(n, d.ArgsStart, nil)
	if err != nil {
		return ir.TypedValue{}, err
	}

	var object ir.TypedValue
	if d.HasObjectName {
		object = ir.TypedValue{Type: d.Type, Value: ir.StringValue(d.ObjectName)}
	} else if d.UseReturnSlot && f.hasReturnSlot {
		object = ir.TypedValue{Type: d.Type, Value: ir.TempValue(f.returnSlot)}
	} else {
		t := f.EmitPrvalue()
		object = ir.TypedValue{Type: d.Type, Value: ir.TempValue(t)}
	}

	f.Emit(ir.Instruction{
		Op: ir.OpConstructorCall,
		Token: tokenOf(n),
		Payload: ir.ConstructorCallOp{StructType: d.Type, Object: object, Args: args, UseReturnSlot: d.UseReturnSlot},
	})
	return object, nil
}
