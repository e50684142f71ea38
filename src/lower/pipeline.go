package lower

import (
	"sync"

	"flashcc/src/ast"
	"flashcc/src/registry"
	"flashcc/src/symtab"
)

// FunctionWork is one top-level function body ready for lowering: a
// resolved mangled name, signature, and the symbol table the parser
// populated while parsing its body.
type FunctionWork struct {
	MangledName   string
	ReturnType    registry.TypeIndex
	ParamTypes    []registry.TypeIndex
	Body          *ast.Node
	Syms          *symtab.SymbolTable
	StructType    registry.TypeIndex // InvalidTypeIndex for a free function.
	UsesReturnSlot bool              // True when abi.FitsInRegisters(ReturnType) is false.
}

// functionResult pairs one FunctionWork with its lowered FuncLowerer, kept
// so LowerProgram can append bodies to Lowerer.Program in source order even
// though the lowering itself ran in concurrent goroutines.
type functionResult struct {
	fl  *FuncLowerer
	err error
}

// LowerProgram lowers every top-level function body, then drains every
// deferred-work queue to a fixed point, in the order spec.md §4.6
// specifies: lambdas, then local-struct members, then deferred member
// functions, then template instantiations, then static-member definitions,
// then trivial default constructors — looping back to the top whenever a
// later queue's drain pushes new work onto an earlier one (e.g. a template
// instantiation declares its own lambda), until every queue is empty.
//
// Grounded on src/ir/optimise.go's Optimise / src/ir/validate.go's
// ValidateTree: both run one worker per available core over an
// independent-unit slice, collecting errors through a buffered channel
// before returning the first one encountered. Function bodies are
// independent lowering units (none reads another's TempVarMetadata), so
// they are lowered concurrently here too, in a simpler shape: one goroutine
// per function with no worker cap and no thread-count setting, results kept
// in a slice, and the first error in source order returned. Only the final
// append to Program.Instructions is kept sequential, since Ir.Emit is not
// safe for concurrent callers.
func (l *Lowerer) LowerProgram(funcs []FunctionWork) error {
	if err := l.lowerFunctionsParallel(funcs); err != nil {
		return err
	}
	return l.drainQueues()
}

func (l *Lowerer) lowerFunctionsParallel(funcs []FunctionWork) error {
	results := make([]functionResult, len(funcs))
	var wg sync.WaitGroup
	for i := range funcs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := funcs[i]
			mangled := l.Reg.Strings.Intern(w.MangledName)
			l.DeclareFunction(mangled, w.ReturnType, w.ParamTypes)

			fl := NewFuncLowerer(l, mangled, w.Syms, w.StructType)
			if w.UsesReturnSlot {
				fl.hasReturnSlot = true
				fl.returnSlot = fl.EmitPrvalue()
			}
			fl.PushScope()
			if err := fl.LowerBlock(w.Body); err != nil {
				results[i] = functionResult{err: err}
				return
			}
			fl.PopScope()
			results[i] = functionResult{fl: fl}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return r.err
		}
		r.fl.Finish()
	}
	return nil
}

// drainQueues runs queue drains to a fixed point. Each round drains every
// queue once, in spec §4.6's fixed order; a round that produces no new work
// for any queue (Queues.Empty() after draining) ends the loop.
func (l *Lowerer) drainQueues() error {
	for !l.Queues.Empty() {
		for _, w := range l.Queues.drainLambdas() {
			nonCapturing := l.closureHasNoCaptures(w.ClosureType)
			invokeName, params, ret := l.lambdaSignature(w.ClosureType)
			if err := l.LowerLambdaInvoke(w, invokeName, params, ret, nonCapturing); err != nil {
				return err
			}
		}
		for _, w := range l.Queues.drainGenericLambdas() {
			if err := l.lowerQueuedGenericLambdaInstantiation(w); err != nil {
				return err
			}
		}
		for _, w := range l.drainLocalStructWork(l.Queues.drainLocalStructs()) {
			_ = w
		}
		for _, w := range l.Queues.drainMemberFuncs() {
			if err := l.lowerQueuedMemberFunc(w); err != nil {
				return err
			}
		}
		for _, w := range l.Queues.drainTemplates() {
			if err := l.lowerQueuedTemplateInstantiation(w); err != nil {
				return err
			}
		}
		for _, w := range l.Queues.drainStatics() {
			if err := l.lowerQueuedStaticMember(w); err != nil {
				return err
			}
		}
		for _, w := range l.Queues.drainTrivialCtors() {
			l.lowerTrivialCtor(w.StructType)
		}
	}
	return nil
}

// closureHasNoCaptures reports whether a closure type carries zero data
// members, i.e. whether the lambda it backs captured nothing and can
// therefore convert to a plain function pointer (spec §4.4).
func (l *Lowerer) closureHasNoCaptures(closureType registry.TypeIndex) bool {
	ti := l.Reg.Type(closureType)
	if ti == nil || ti.Struct == nil {
		return true
	}
	return len(ti.Struct.Members) == 0
}

// lambdaSignature looks up a closure type's operator() mangled name in the
// registry's member-function list. Only the name is resolved: the returned
// parameter list is always nil and the return type always InvalidTypeIndex,
// since registry.MemberFunction records carry no signature.
func (l *Lowerer) lambdaSignature(closureType registry.TypeIndex) (registry.StringHandle, []registry.TypeIndex, registry.TypeIndex) {
	ti := l.Reg.Type(closureType)
	if ti == nil || ti.Struct == nil {
		return registry.InvalidHandle, nil, registry.InvalidTypeIndex
	}
	for _, mf := range ti.Struct.MemberFuncs {
		if mf.IsOperator && mf.OperatorSym == "()" {
			return mf.MangledName, nil, registry.InvalidTypeIndex
		}
	}
	return registry.InvalidHandle, nil, registry.InvalidTypeIndex
}

// lowerQueuedGenericLambdaInstantiation lowers one argument-type
// specialization of a generic lambda's operator(), mangled with the same
// name a call site computed (calls.go's genericLambdaInvokeName), so the
// Call it already emitted resolves against the FunctionDecl this produces
// (spec §4.2/§4.6).
func (l *Lowerer) lowerQueuedGenericLambdaInstantiation(w genericLambdaInstWork) error {
	if w.Body == nil {
		return nil
	}
	syms, _ := w.Syms.(*symtab.SymbolTable)
	if syms == nil {
		syms = symtab.NewSymbolTable()
	}
	mangledName := genericLambdaInvokeName(l.Reg, w.ClosureType, w.ArgTypes)
	mangled := l.Reg.Strings.Intern(mangledName)
	l.DeclareFunction(mangled, registry.InvalidTypeIndex, w.ArgTypes)

	fl := NewFuncLowerer(l, mangled, syms, w.ClosureType)
	fl.PushScope()
	if err := fl.LowerBlock(w.Body); err != nil {
		return err
	}
	fl.PopScope()
	fl.Finish()
	return nil
}

// drainLocalStructWork lowers every member function of a struct declared
// inside a function body, queuing them the same way a file-scope struct's
// member functions would be (spec §4.6).
func (l *Lowerer) drainLocalStructWork(work []localStructWork) []localStructWork {
	for _, w := range work {
		ti := l.Reg.Type(w.StructType)
		if ti == nil || ti.Struct == nil {
			continue
		}
		for _, mf := range ti.Struct.MemberFuncs {
			l.Queues.PushMemberFunc(memberFuncWork{MangledName: mf.MangledName, StructType: w.StructType, Decl: w.Decl})
		}
	}
	return work
}

// lowerQueuedMemberFunc lowers one deferred member-function body. The
// parser attaches the body to w.Decl the same way a file-scope function's
// body is attached; this core treats a member function's body exactly like
// a free function's, differing only in CurrentStruct and the implicit
// `this` parameter the symbol table already carries.
func (l *Lowerer) lowerQueuedMemberFunc(w memberFuncWork) error {
	body := memberFuncBody(w.Decl)
	if body == nil {
		return nil
	}
	syms := memberFuncSyms(w.Decl)
	fl := NewFuncLowerer(l, w.MangledName, syms, w.StructType)
	fl.PushScope()
	if err := fl.LowerBlock(body); err != nil {
		return err
	}
	fl.PopScope()
	fl.Finish()
	return nil
}

func (l *Lowerer) lowerQueuedTemplateInstantiation(w templateInstWork) error {
	if w.Decl == nil {
		return nil
	}
	syms := memberFuncSyms(w.Decl)
	mangled := l.Reg.Strings.Intern(l.Reg.Strings.String(w.Key.QualifiedName))
	fl := NewFuncLowerer(l, mangled, syms, registry.InvalidTypeIndex)
	fl.PushScope()
	if body := memberFuncBody(w.Decl); body != nil {
		if err := fl.LowerBlock(body); err != nil {
			return err
		}
	}
	fl.PopScope()
	fl.Finish()
	return nil
}

func (l *Lowerer) lowerQueuedStaticMember(w staticMemberWork) error {
	body := memberFuncBody(w.Decl)
	if body == nil {
		return nil
	}
	fl := NewFuncLowerer(l, w.MangledName, symtab.NewSymbolTable(), registry.InvalidTypeIndex)
	fl.PushScope()
	if err := fl.LowerBlock(body); err != nil {
		return err
	}
	fl.PopScope()
	fl.Finish()
	return nil
}

// lowerTrivialCtor declares a compiler-generated default constructor,
// "<struct>::$trivial_ctor", with no explicit source to lower from (spec
// §4.5: "aggregates still need a constructor body token for RVO/ABI
// wiring"). Only the FunctionDecl is emitted.
func (l *Lowerer) lowerTrivialCtor(structType registry.TypeIndex) {
	ti := l.Reg.Type(structType)
	if ti == nil || ti.Struct == nil {
		return
	}
	mangledName := l.Reg.Strings.Intern(l.Reg.Strings.String(ti.Name) + "::$trivial_ctor")
	l.DeclareFunction(mangledName, registry.InvalidTypeIndex, nil)
	// No member-initialization instructions are emitted beyond the
	// FunctionDecl: a trivial constructor's members are left
	// default-initialized by the backend's zero-fill/no-op allocation
	// path, matching StructInfo.IsTriviallyCtor's meaning.
}

// memberFuncBody/memberFuncSyms extract a deferred declaration's body block
// and symbol table. Both are carried on ast.Node.Data by the parser for
// deferred declarations, exactly as FunctionWork.Body/Syms carry them for
// immediately-lowered top-level functions; the accessor pair exists so
// queues.go's work items do not need to depend on the parser's concrete
// attachment shape beyond "the last child is the body, Data carries a
// *symtab.SymbolTable when present."
func memberFuncBody(n *ast.Node) *ast.Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

func memberFuncSyms(n *ast.Node) *symtab.SymbolTable {
	if n != nil {
		if s, ok := n.Data.(*symtab.SymbolTable); ok {
			return s
		}
	}
	return symtab.NewSymbolTable()
}
