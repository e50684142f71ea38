package lower

import (
	"flashcc/src/ast"
	"flashcc/src/ir"
	"flashcc/src/registry"
	"flashcc/src/symtab"
)

// captureData describes one capture a lambda closure stores as a member:
// `[this]`/`[*this]` capture the enclosing object (by pointer or by value
// respectively), everything else captures a named local by value or by
// reference (spec.md §4.6).
type captureData struct {
	Name       registry.StringHandle
	IsThis     bool
	IsThisCopy bool // `[*this]`: copy the object itself rather than its pointer.
	ByRef      bool
}

// lambdaData is attached to a KindLambda node once the parser has
// synthesized the closure struct (ClosureType), named its invocation member
// function, and resolved every capture.
type lambdaData struct {
	ClosureType   registry.TypeIndex
	InvokeMangled string
	Captures      []captureData
	IsGeneric     bool // A template operator() deduced per call site.
	ParamTypes    []registry.TypeIndex
	ReturnType    registry.TypeIndex
}

// lowerLambdaExpr materializes a closure object at the lambda's source
// location: allocate the closure struct's storage and store one capture per
// member, then queue the body for deferred lowering (spec.md §4.6: "closure
// struct synthesis... captures resolved eagerly at the lambda expression;
// the operator() body lowers later, from the deferred queue").
//
// Grounded on src/ir/validate.go's two-pass shape (collect declarations,
// then validate bodies): the closure's member layout is fixed immediately,
// while its body is only lowered once the whole translation unit's queue
// drain reaches it.
func (f *FuncLowerer) lowerLambdaExpr(n *ast.Node) (ir.TypedValue, error) {
	d, ok := n.Data.(lambdaData)
	if !ok {
		return ir.TypedValue{}, f.internalError(n, "lambda node missing data")
	}

	t := f.EmitPrvalue()
	object := ir.TypedValue{Type: d.ClosureType, Value: ir.TempValue(t)}
	f.Emit(ir.Instruction{Op: ir.OpConstructorCall, Payload: ir.ConstructorCallOp{StructType: d.ClosureType, Object: object}})

	ti := f.Reg.Type(d.ClosureType)
	if ti == nil || ti.Struct == nil {
		return ir.TypedValue{}, f.internalError(n, "lambda closure type %d not registered", d.ClosureType)
	}

	for _, cap := range d.Captures {
		value, err := f.lowerCapture(n, cap)
		if err != nil {
			return ir.TypedValue{}, err
		}
		memberName := cap.Name
		if cap.IsThis || cap.IsThisCopy {
			memberName = f.Reg.Strings.Intern("__this_capture")
		}
		offset := offsetOfMember(ti, memberName)
		f.Emit(ir.Instruction{
			Op: ir.OpMemberStore,
			Payload: ir.MemberStoreOp{Object: object, Member: memberName, Offset: offset, Value: value},
		})
	}

	// operator() (and, for a capture-less closure, its FunctionAddress) is
	// emitted when this lambda's work item is drained from the lambda queue
	// (pipeline.go's drainQueues), not here.
	//
	// A generic lambda's operator() is a template (spec §4.2/§4.6): its
	// body isn't lowered here at all. It is registered so each call site
	// can later deduce its own argument types and queue that one
	// specialization (calls.go's lowerGenericLambdaCall), the same way
	// g(1) and g(1.5) each instantiate a distinct operator() body.
	if body := lambdaBody(n); body != nil {
		if d.IsGeneric {
			f.registerGenericLambdaSource(d.ClosureType, body, f.Syms)
		} else {
			f.Queues.PushLambda(lambdaWork{ClosureType: d.ClosureType, Body: body, Syms: f.Syms})
		}
	}

	return object, nil
}

func (f *FuncLowerer) lowerCapture(n *ast.Node, cap captureData) (ir.TypedValue, error) {
	if cap.IsThis {
		return f.lowerThis(n)
	}
	if cap.IsThisCopy {
		thisPtr, err := f.lowerThis(n)
		if err != nil {
			return ir.TypedValue{}, err
		}
		t := f.EmitPrvalue()
		f.Emit(ir.Instruction{Op: ir.OpDereference, Payload: ir.DereferenceOp{Operand: thisPtr, Result: t}})
		return ir.TypedValue{Type: thisPtr.Type, Value: ir.TempValue(t)}, nil
	}

	entry, ok := f.Syms.Lookup(cap.Name)
	if !ok {
		return ir.TypedValue{}, f.semanticError(n, "capture of undeclared name %q", f.Reg.Strings.String(cap.Name))
	}
	if cap.ByRef {
		info := ir.NewDirect(cap.Name)
		t := f.EmitLValue(ir.Lvalue, info)
		addr := f.EmitPrvalue()
		f.Emit(ir.Instruction{Op: ir.OpAddressOf, Payload: ir.AddressOfOp{Operand: ir.TypedValue{Type: entry.Type, Value: ir.TempValue(t)}, Result: addr}})
		return ir.TypedValue{Type: entry.Type, PointerDepth: 1, SizeBits: 64, Value: ir.TempValue(addr)}, nil
	}
	t := f.EmitPrvalue()
	f.Emit(ir.Instruction{Op: ir.OpGlobalLoad, Payload: ir.GlobalLoadOp{Name: cap.Name, Result: t}})
	return ir.TypedValue{Type: entry.Type, Value: ir.TempValue(t)}, nil
}

func offsetOfMember(ti *registry.TypeInfo, name registry.StringHandle) int64 {
	if ti.Struct == nil {
		return 0
	}
	for _, m := range ti.Struct.Members {
		if m.Name == name {
			return m.ByteOffset
		}
	}
	return 0
}

// lambdaBody extracts the lambda's operator() body node, the last child by
// convention (after capture-list and parameter-list children).
func lambdaBody(n *ast.Node) *ast.Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

// LowerLambdaInvoke declares and lowers one queued lambda closure's
// operator() body under invokeMangled. When the closure has no captures it
// also emits a FunctionAddress naming that same entry point, so the closure
// can decay to a plain function pointer; no separate __invoke thunk body is
// emitted.
//
// Called from the Lowerer's queue-drain loop (src/lower/pipeline.go), once
// per queued lambdaWork.
func (l *Lowerer) LowerLambdaInvoke(w lambdaWork, invokeMangled registry.StringHandle, params []registry.TypeIndex, ret registry.TypeIndex, nonCapturing bool) error {
	syms, _ := w.Syms.(*symtab.SymbolTable)
	if syms == nil {
		syms = symtab.NewSymbolTable()
	}
	l.DeclareFunction(invokeMangled, ret, params)

	fl := NewFuncLowerer(l, invokeMangled, syms, w.ClosureType)
	fl.PushScope()
	if err := fl.LowerBlock(w.Body); err != nil {
		return err
	}
	fl.PopScope()
	fl.Finish()

	if nonCapturing {
		// A capture-less closure decays to a plain function pointer: emit
		// a FunctionAddress naming the same invoke entry point, so the
		// backend can materialize that conversion without synthesizing a
		// second thunk body (spec §4.6).
		t := fl.EmitPrvalue()
		l.Program.Emit(ir.Instruction{Op: ir.OpFunctionAddress, Payload: ir.FunctionAddressOp{MangledName: invokeMangled, Result: t}})
	}
	return nil
}
