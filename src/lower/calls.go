package lower

import (
	"flashcc/src/access"
	"flashcc/src/ast"
	"flashcc/src/ir"
	"flashcc/src/mangle"
	"flashcc/src/registry"
)

// CallResolutionKind names which step of the overload-resolution cascade
// (spec.md §4.2) produced this call node. The parser/overload-resolution
// layer (an external collaborator, spec.md §1) walks the cascade once and
// records which step matched directly on the node, so this core never
// re-derives overload resolution — it only emits the IR op the matched step
// implies.
type CallResolutionKind int

const (
	// ResolveIntrinsic matched a name on the fixed intrinsic table (spec
	// §4.2 step 1): no FunctionDecl is required before the call.
	ResolveIntrinsic CallResolutionKind = iota
	// ResolveInlineTemplate matched an `inline_always` template whose body
	// is a single pure expression (step 2): the call is replaced by
	// lowering that expression directly, with the template's parameters
	// substituted for the call's arguments.
	ResolveInlineTemplate
	// ResolveFunctionPointer matched a function-pointer-typed or
	// auto-callable-typed callee, including a generic lambda's own
	// operator() calling itself (step 3): lowered as an IndirectCall.
	ResolveFunctionPointer
	// ResolveDirect matched a free function or member function by the
	// parser's pointer-identity Decl (step 4, or step 5's recovery
	// search): lowered as a direct Call, emitting its FunctionDecl first
	// if this is the first reference.
	ResolveDirect
	// ResolveVirtual matched a virtual member function called through a
	// polymorphic object or pointer/reference to one: lowered as a
	// VirtualCall indexing the vtable.
	ResolveVirtual
)

// callData is what the parser attaches to a KindCall/KindMemberCall node
// once overload resolution has picked one of the cascade's five steps.
type callData struct {
	Resolution  CallResolutionKind
	MangledName string // Direct/Virtual/Intrinsic callee name; empty for FunctionPointer/InlineTemplate.
	ReturnType  registry.TypeIndex
	ParamTypes  []registry.TypeIndex
	VtableIndex int // Valid when Resolution == ResolveVirtual.
	Access      registry.Access
	Owner       registry.TypeIndex // Struct declaring the member function, for access checks.
	ArgsStart   int                // Index into n.Children where the argument list begins.
	InlineBody  *ast.Node          // The substituted expression body, when Resolution == ResolveInlineTemplate.
	ParamIsRef  []bool             // Per parameter, aligned with ParamTypes: true when the callee's parameter is a reference.

	// GenericLambdaClosure is the closure type when this call invokes a
	// generic lambda's operator() (spec §4.2/§4.6: `auto g=[](auto x){...};
	// g(1); g(1.5);`). InvalidTypeIndex otherwise. MangledName/ParamTypes
	// are irrelevant in this case — this core deduces the argument types
	// itself from the lowered arguments and mangles the specialization's
	// own name.
	GenericLambdaClosure registry.TypeIndex
}

// lowerCall is the AstToIr core's single entry point for both free-function
// and member-function call expressions, dispatching on the cascade step the
// parser already resolved (spec.md §4.2).
func (f *FuncLowerer) lowerCall(n *ast.Node) (ir.TypedValue, error) {
	d, ok := n.Data.(callData)
	if !ok {
		return ir.TypedValue{}, f.internalError(n, "call node missing callData")
	}

	if d.GenericLambdaClosure != registry.InvalidTypeIndex {
		return f.lowerGenericLambdaCall(n, d)
	}

	switch d.Resolution {
	case ResolveInlineTemplate:
		return f.lowerInlineTemplateCall(n, d)
	case ResolveFunctionPointer:
		return f.lowerIndirectCall(n, d)
	case ResolveVirtual:
		return f.lowerVirtualCall(n, d)
	case ResolveIntrinsic, ResolveDirect:
		return f.lowerDirectOrIntrinsicCall(n, d)
	default:
		return ir.TypedValue{}, f.internalError(n, "unknown call resolution kind %d", d.Resolution)
	}
}

// lowerArgs lowers every argument expression from n.Children[argsStart:] in
// source order, left to right (spec.md §8 property: argument evaluation
// order matches source order), adapting each one to the callee's parameter
// per paramIsRef (spec.md §4.2: reference-parameter binding is two-way — a
// plain value bound to a reference parameter is materialized with
// AddressOf, and a reference-typed argument bound to a value parameter is
// unwrapped with Dereference). paramIsRef may be shorter than the argument
// count (e.g. a variadic intrinsic or an unresolved indirect callee); args
// past its end are passed through as plain loads.
func (f *FuncLowerer) lowerArgs(n *ast.Node, argsStart int, paramIsRef []bool) ([]ir.TypedValue, error) {
	args := make([]ir.TypedValue, 0, len(n.Children)-argsStart)
	for i := argsStart; i < len(n.Children); i++ {
		paramIdx := i - argsStart
		wantsRef := paramIdx < len(paramIsRef) && paramIsRef[paramIdx]
		v, err := f.lowerArg(n.Children[i], wantsRef)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// lowerArg lowers one call argument, materializing its address when the
// callee parameter wantsRef and it isn't already reference-bound, and
// dereferencing it when the callee parameter is a plain value but the
// argument expression is itself reference-typed.
func (f *FuncLowerer) lowerArg(n *ast.Node, wantsRef bool) (ir.TypedValue, error) {
	if wantsRef {
		lv, err := f.LowerExpr(n, CtxLValueAddr)
		if err != nil {
			return ir.TypedValue{}, err
		}
		if lv.RefQualifier != ir.RefNone {
			return lv, nil
		}
		t := f.EmitPrvalue()
		f.Emit(ir.Instruction{Op: ir.OpAddressOf, Payload: ir.AddressOfOp{Operand: lv, Result: t}})
		return ir.TypedValue{Type: lv.Type, PointerDepth: lv.PointerDepth + 1, RefQualifier: ir.RefLValue, Value: ir.TempValue(t)}, nil
	}

	v, err := f.LowerExpr(n, CtxLoad)
	if err != nil {
		return ir.TypedValue{}, err
	}
	if v.RefQualifier == ir.RefNone {
		return v, nil
	}
	t := f.EmitPrvalue()
	f.Emit(ir.Instruction{Op: ir.OpDereference, Payload: ir.DereferenceOp{Operand: v, Result: t}})
	return ir.TypedValue{Type: v.Type, Value: ir.TempValue(t)}, nil
}

// wantsRVO reports whether ret's return type is large enough under abi to
// need a hidden return-slot parameter rather than returning in registers
// (spec.md §4.2: "Return Value Optimization — ABI-driven struct-return
// thresholds").
func (f *FuncLowerer) wantsRVO(ret registry.TypeIndex) bool {
	ti := f.Reg.Type(ret)
	if ti == nil || ti.Kind != registry.KindStruct {
		return false
	}
	return !f.Abi.FitsInRegisters(ti.SizeBits)
}

// lowerDirectOrIntrinsicCall covers cascade steps 1 and 4/5: intrinsics need
// no declaration; ordinary direct calls get their FunctionDecl emitted
// (idempotently) before the Call if this is the first reference, satisfying
// the "declaration precedes use" invariant (spec.md §3/§8 property 2).
func (f *FuncLowerer) lowerDirectOrIntrinsicCall(n *ast.Node, d callData) (ir.TypedValue, error) {
	if !f.AccessControlDisabled && d.Owner != registry.InvalidTypeIndex {
		ctx := access.Context{CurrentStruct: f.CurrentStruct, CurrentFunction: f.mangledName}
		if !access.Check(f.Reg, d.Owner, d.Access, ctx) {
			return ir.TypedValue{}, f.semanticError(n, "call to %q is not accessible here", d.MangledName)
		}
	}

	argsStart := d.ArgsStart
	if n.Kind == ast.KindMemberCall {
		argsStart = maxInt(argsStart, 1)
	}
	args, err := f.lowerArgs(n, argsStart, d.ParamIsRef)
	if err != nil {
		return ir.TypedValue{}, err
	}

	name := f.Reg.Strings.Intern(d.MangledName)
	if d.Resolution == ResolveDirect {
		f.DeclareFunction(name, d.ReturnType, d.ParamTypes)
	}

	op := ir.CallOp{FunctionName: name, Args: args}
	voidRet := d.ReturnType == registry.InvalidTypeIndex || isVoid(f.Reg, d.ReturnType)
	if f.wantsRVO(d.ReturnType) {
		slot := f.EmitPrvalue()
		op.ReturnSlot = slot
		op.UseRVO = true
		f.Emit(ir.Instruction{Op: ir.OpCall, Token: tokenOf(n), Payload: op})
		return ir.TypedValue{Type: d.ReturnType, Value: ir.TempValue(slot)}, nil
	}
	if !voidRet {
		t := f.EmitPrvalue()
		op.Result = t
		op.HasResult = true
		f.Emit(ir.Instruction{Op: ir.OpCall, Token: tokenOf(n), Payload: op})
		return ir.TypedValue{Type: d.ReturnType, Value: ir.TempValue(t)}, nil
	}
	f.Emit(ir.Instruction{Op: ir.OpCall, Token: tokenOf(n), Payload: op})
	return ir.TypedValue{Type: d.ReturnType}, nil
}

// lowerVirtualCall emits a VirtualCall indexing the object's vtable at
// d.VtableIndex rather than a direct Call by mangled name (spec.md §4.2:
// "virtual dispatch resolves to a vtable-indexed call rather than a direct
// one"). IsPointerAccess is set when the lowered object is a pointer or
// carries a reference qualifier.
func (f *FuncLowerer) lowerVirtualCall(n *ast.Node, d callData) (ir.TypedValue, error) {
	object, err := f.LowerExpr(n.Child(0), CtxLoad)
	if err != nil {
		return ir.TypedValue{}, err
	}
	args, err := f.lowerArgs(n, 1, d.ParamIsRef)
	if err != nil {
		return ir.TypedValue{}, err
	}

	isPointerAccess := object.IsPointer() || object.RefQualifier != ir.RefNone
	op := ir.VirtualCallOp{Object: object, VtableIndex: d.VtableIndex, IsPointerAccess: isPointerAccess, Args: args}
	voidRet := d.ReturnType == registry.InvalidTypeIndex || isVoid(f.Reg, d.ReturnType)
	if !voidRet {
		t := f.EmitPrvalue()
		op.Result = t
		op.HasResult = true
		f.Emit(ir.Instruction{Op: ir.OpVirtualCall, Token: tokenOf(n), Payload: op})
		return ir.TypedValue{Type: d.ReturnType, Value: ir.TempValue(t)}, nil
	}
	f.Emit(ir.Instruction{Op: ir.OpVirtualCall, Token: tokenOf(n), Payload: op})
	return ir.TypedValue{Type: d.ReturnType}, nil
}

// lowerIndirectCall covers a call through a function pointer, an
// auto-callable local, or a generic lambda's own operator() referencing
// itself (spec.md §4.2 step 3). The callee expression is whatever
// n.Child(0) lowers to in Load context.
func (f *FuncLowerer) lowerIndirectCall(n *ast.Node, d callData) (ir.TypedValue, error) {
	callee, err := f.LowerExpr(n.Child(0), CtxLoad)
	if err != nil {
		return ir.TypedValue{}, err
	}
	args, err := f.lowerArgs(n, 1, d.ParamIsRef)
	if err != nil {
		return ir.TypedValue{}, err
	}
	op := ir.IndirectCallOp{Callee: callee, Args: args}
	voidRet := d.ReturnType == registry.InvalidTypeIndex || isVoid(f.Reg, d.ReturnType)
	if !voidRet {
		t := f.EmitPrvalue()
		op.Result = t
		op.HasResult = true
		f.Emit(ir.Instruction{Op: ir.OpIndirectCall, Token: tokenOf(n), Payload: op})
		return ir.TypedValue{Type: d.ReturnType, Value: ir.TempValue(t)}, nil
	}
	f.Emit(ir.Instruction{Op: ir.OpIndirectCall, Token: tokenOf(n), Payload: op})
	return ir.TypedValue{Type: d.ReturnType}, nil
}

// lowerGenericLambdaCall instantiates and calls one argument-type
// specialization of a generic lambda's operator() (spec.md §4.2/§4.6): a
// generic lambda's operator() is a template, so `g(1)` and `g(1.5)` each
// deduce their own argument types here and queue their own specialization
// under a name mangled from those types, the same way two calls to a
// function template instantiate two distinct bodies.
func (f *FuncLowerer) lowerGenericLambdaCall(n *ast.Node, d callData) (ir.TypedValue, error) {
	argsStart := d.ArgsStart
	if n.Kind == ast.KindMemberCall {
		argsStart = maxInt(argsStart, 1)
	}
	args, err := f.lowerArgs(n, argsStart, nil)
	if err != nil {
		return ir.TypedValue{}, err
	}
	argTypes := make([]registry.TypeIndex, len(args))
	for i, a := range args {
		argTypes[i] = a.Type
	}

	mangledName := genericLambdaInvokeName(f.Reg, d.GenericLambdaClosure, argTypes)
	name := f.Reg.Strings.Intern(mangledName)

	if src, ok := f.genericLambdaSourceFor(d.GenericLambdaClosure); ok {
		f.Queues.PushGenericLambdaInstantiation(genericLambdaInstWork{
			ClosureType: d.GenericLambdaClosure,
			ArgTypes:    argTypes,
			Body:        src.Body,
			Syms:        src.Syms,
		})
	}
	f.DeclareFunction(name, d.ReturnType, argTypes)

	op := ir.CallOp{FunctionName: name, Args: args}
	voidRet := d.ReturnType == registry.InvalidTypeIndex || isVoid(f.Reg, d.ReturnType)
	if !voidRet {
		t := f.EmitPrvalue()
		op.Result = t
		op.HasResult = true
		f.Emit(ir.Instruction{Op: ir.OpCall, Token: tokenOf(n), Payload: op})
		return ir.TypedValue{Type: d.ReturnType, Value: ir.TempValue(t)}, nil
	}
	f.Emit(ir.Instruction{Op: ir.OpCall, Token: tokenOf(n), Payload: op})
	return ir.TypedValue{Type: d.ReturnType}, nil
}

// genericLambdaInvokeName mangles one generic lambda specialization's
// operator() name from its closure type and deduced argument types,
// threading an instantiation hash through mangle.LambdaClosureName so two
// specializations of the same closure never collide (spec.md §3: "deduced
// types are threaded through mangling so distinct instantiations link
// without collision").
func genericLambdaInvokeName(reg *registry.Registry, closureType registry.TypeIndex, argTypes []registry.TypeIndex) string {
	hash := argTypesHash(argTypes)
	closureName := mangle.LambdaClosureName(int(closureType), hash, true)
	params := make([]mangle.ParamType, len(argTypes))
	for i, t := range argTypes {
		params[i] = mangle.ParamType{TypeName: mangle.TypeName(reg, t)}
	}
	return mangle.CallOperator(closureName, params)
}

// argTypesHash is a 32-bit FNV-1a hash of a deduced argument-type list.
func argTypesHash(argTypes []registry.TypeIndex) uint32 {
	h := uint32(2166136261)
	for _, t := range argTypes {
		h ^= uint32(t)
		h *= 16777619
	}
	return h
}

// lowerInlineTemplateCall covers step 2: an `inline_always` template whose
// body is one pure expression is not emitted as a Call at all — the
// template engine (an external collaborator feeding queues.go's
// instantiation worklist) has already substituted the call's arguments into
// InlineBody, and this core just lowers that substituted expression
// in-place, leaving no trace of the call in the instruction stream (spec.md
// §4.2: "the call site is replaced by the substituted body").
func (f *FuncLowerer) lowerInlineTemplateCall(n *ast.Node, d callData) (ir.TypedValue, error) {
	if d.InlineBody == nil {
		return ir.TypedValue{}, f.internalError(n, "inline_always call missing substituted body")
	}
	return f.LowerExpr(d.InlineBody, CtxLoad)
}

func isVoid(reg *registry.Registry, idx registry.TypeIndex) bool {
	ti := reg.Type(idx)
	return ti != nil && ti.Kind == registry.KindPrimitive && ti.Primitive == registry.PrimVoid
}

func tokenOf(n *ast.Node) ir.SourceToken {
	if n == nil {
		return ir.SourceToken{}
	}
	return ir.SourceToken{Line: n.Line, Pos: n.Pos}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
