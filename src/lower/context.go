package lower

import (
	"sync"

	"flashcc/src/abi"
	"flashcc/src/ast"
	"flashcc/src/ir"
	"flashcc/src/registry"
	"flashcc/src/seh"
	"flashcc/src/symtab"
)

// Lowerer is the program-wide AstToIr context: the explicit, non-global
// replacement for the teacher's package-level ir.Root/Global (spec.md §9's
// "globals → explicit context" design note). One Lowerer is constructed per
// translation unit and threaded through every lowering call.
//
// Grounded on src/ir/llvm/transform.go's GenLLVM: a `globals symTab`
// (map[string]llvm.Value behind sync.RWMutex) tracking already-declared
// definitions so later references resolve without re-lowering; here it
// tracks which mangled names already have a FunctionDeclOp emitted, which
// is exactly the "declaration precedes use" invariant spec.md §3 requires.
type Lowerer struct {
	Reg  *registry.Registry
	Abi  abi.TargetAbi
	Diag *Diagnostics

	Program *ir.Ir

	declMx   sync.RWMutex
	declared map[registry.StringHandle]struct{}

	Queues *Queues
	Labels *seh.LabelGen

	AccessControlDisabled bool
	Verbose               bool

	genLambdaMx      sync.RWMutex
	genLambdaSources map[registry.TypeIndex]genericLambdaSource
}

// genericLambdaSource is a generic lambda's operator() body plus the symbol
// table it was parsed against, kept around from the lambda expression's
// lowering until a call site deduces argument types against it and queues
// the matching specialization (spec §4.2/§4.6).
type genericLambdaSource struct {
	Body *ast.Node
	Syms interface{} // *symtab.SymbolTable; untyped for the same reason as lambdaWork.Syms.
}

// registerGenericLambdaSource records closureType's operator() body so a
// later call site can instantiate it against deduced argument types.
func (l *Lowerer) registerGenericLambdaSource(closureType registry.TypeIndex, body *ast.Node, syms interface{}) {
	l.genLambdaMx.Lock()
	defer l.genLambdaMx.Unlock()
	if l.genLambdaSources == nil {
		l.genLambdaSources = make(map[registry.TypeIndex]genericLambdaSource)
	}
	l.genLambdaSources[closureType] = genericLambdaSource{Body: body, Syms: syms}
}

// genericLambdaSourceFor looks up a previously registered generic lambda
// body by its closure type.
func (l *Lowerer) genericLambdaSourceFor(closureType registry.TypeIndex) (genericLambdaSource, bool) {
	l.genLambdaMx.RLock()
	defer l.genLambdaMx.RUnlock()
	s, ok := l.genLambdaSources[closureType]
	return s, ok
}

// NewLowerer constructs a Lowerer over a fresh Registry and empty Ir.
func NewLowerer(target abi.TargetAbi) *Lowerer {
	reg := registry.NewRegistry()
	if long, ok := reg.ByName(reg.Strings.Intern("long")); ok {
		bits := target.LongBits()
		reg.MutateType(long, func(t *registry.TypeInfo) { t.SizeBits, t.AlignBits = bits, bits })
	}
	return &Lowerer{
		Reg:      reg,
		Abi:      target,
		Diag:     NewDiagnostics(),
		Program:  &ir.Ir{},
		declared: make(map[registry.StringHandle]struct{}, 64),
		Queues:   NewQueues(),
		Labels:   seh.NewLabelGen(),
	}
}

// DeclareFunction emits a FunctionDeclOp for mangledName at file scope if
// one has not already been emitted, satisfying the "declaration precedes
// use" invariant (spec.md §3) before any Call referencing it is emitted.
func (l *Lowerer) DeclareFunction(mangledName registry.StringHandle, ret registry.TypeIndex, params []registry.TypeIndex) {
	l.declMx.Lock()
	defer l.declMx.Unlock()
	if _, ok := l.declared[mangledName]; ok {
		return
	}
	l.declared[mangledName] = struct{}{}
	l.Program.Emit(ir.Instruction{
		Op: ir.OpFunctionDecl,
		Payload: ir.FunctionDeclOp{
			MangledName: mangledName,
			ReturnType:  ret,
			ParamTypes:  params,
		},
	})
}

// IsDeclared reports whether mangledName already has a FunctionDeclOp
// emitted — spec.md §8 property 2 ("either N is on the intrinsic list or
// some FunctionDecl{mangled_name=N} precedes it").
func (l *Lowerer) IsDeclared(mangledName registry.StringHandle) bool {
	l.declMx.RLock()
	defer l.declMx.RUnlock()
	_, ok := l.declared[mangledName]
	return ok
}

// destructorEntry is one (name, struct type) pair registered for
// destruction on scope exit, in the order it was declared.
type destructorEntry struct {
	name       registry.StringHandle
	structType registry.TypeIndex
}

// blockScope is one entered lexical block: its destructor registrations
// and whatever its Entry's locals are (opaque to this core — owned by the
// parser's SymbolTable, spec.md §6).
type blockScope struct {
	destructors []destructorEntry
}

// FuncLowerer lowers a single function body, owning everything that is
// "monotonically increasing per function" or "per-function dense vector"
// per spec.md §3/§9: the TempVar counter, the TempVarMetadata table, the
// destructor-scope stack, and the SEH context stack.
//
// Grounded on src/ir/optimise.go/validate.go's util.Stack-of-scopes idiom,
// generalized from a single symbol-table stack entry per block to a
// (symbol-scope, destructor-registrations) pair per block.
type FuncLowerer struct {
	*Lowerer

	mangledName registry.StringHandle
	Syms        *symtab.SymbolTable

	Meta    *ir.TempVarMetadata
	nextVar ir.TempVar

	body  *ir.Ir // This function's own instruction slice, appended to Lowerer.Program once complete.
	scopes []*blockScope

	Seh          *seh.Stack
	loopSehDepth []int // SEH stack depth recorded at each currently-active loop's entry.
	loopLabels   []loopLabelPair // break/continue targets for the innermost enclosing loop or switch.

	CurrentStruct registry.TypeIndex // InvalidTypeIndex outside a member function.

	inReturnWithRVO bool
	returnSlot      ir.TempVar
	hasReturnSlot   bool
}

// NewFuncLowerer starts lowering a new function body named mangledName.
func NewFuncLowerer(l *Lowerer, mangledName registry.StringHandle, syms *symtab.SymbolTable, currentStruct registry.TypeIndex) *FuncLowerer {
	return &FuncLowerer{
		Lowerer:       l,
		mangledName:   mangledName,
		Syms:          syms,
		Meta:          ir.NewTempVarMetadata(),
		body:          &ir.Ir{},
		Seh:           seh.NewStack(),
		CurrentStruct: currentStruct,
	}
}

// NewTemp allocates a fresh, never-before-used TempVar (spec.md §3
// invariant: "Every TempVar is assigned exactly once").
func (f *FuncLowerer) NewTemp() ir.TempVar {
	t := f.nextVar
	f.nextVar++
	return t
}

// Emit appends instr to this function's instruction stream.
func (f *FuncLowerer) Emit(instr ir.Instruction) int {
	return f.body.Emit(instr)
}

// EmitPrvalue allocates a new temporary, records it as a prvalue, and
// returns it — the common case for arithmetic results, literals, and
// function-call results.
func (f *FuncLowerer) EmitPrvalue() ir.TempVar {
	t := f.NewTemp()
	f.Meta.SetPrvalue(t)
	return t
}

// EmitLValue allocates a new temporary, records it as an lvalue or xvalue
// with info, and returns it.
func (f *FuncLowerer) EmitLValue(category ir.ValueCategory, info ir.LValueInfo) ir.TempVar {
	t := f.NewTemp()
	f.Meta.SetLValue(t, category, info)
	return t
}

// PushScope enters a new destructor-registration scope (spec.md §4.3:
// "Each block enters a destructor scope").
func (f *FuncLowerer) PushScope() {
	f.scopes = append(f.scopes, &blockScope{})
}

// RegisterDestructor records that name (of struct type st) must be
// destructed when the current scope exits, in declaration order.
func (f *FuncLowerer) RegisterDestructor(name registry.StringHandle, st registry.TypeIndex) {
	if len(f.scopes) == 0 {
		return
	}
	top := f.scopes[len(f.scopes)-1]
	top.destructors = append(top.destructors, destructorEntry{name: name, structType: st})
}

// PopScope exits the current scope, emitting one DestructorCallOp per
// registered variable in reverse registration order (spec.md §4.3/§8
// property 5).
func (f *FuncLowerer) PopScope() {
	if len(f.scopes) == 0 {
		return
	}
	top := f.scopes[len(f.scopes)-1]
	for i := len(top.destructors) - 1; i >= 0; i-- {
		d := top.destructors[i]
		f.Emit(ir.Instruction{
			Op: ir.OpDestructorCall,
			Payload: ir.DestructorCallOp{
				StructType: d.structType,
				Object:     ir.TypedValue{Type: d.structType, Value: ir.StringValue(d.name)},
			},
		})
	}
	f.scopes = f.scopes[:len(f.scopes)-1]
}

// AllDestructorsFromHere returns every (name, type) registered for
// destruction across every currently-open scope, innermost-scope-last
// reversed to outermost-last-declared-first — the order a `return`
// statement unwinds through every enclosing lexical scope (spec.md §4.3:
// "return — emit finally-calls first, then destructor calls for all
// enclosing lexical scopes").
func (f *FuncLowerer) AllDestructorsFromHere() []destructorEntry {
	var out []destructorEntry
	for i := len(f.scopes) - 1; i >= 0; i-- {
		sc := f.scopes[i]
		for j := len(sc.destructors) - 1; j >= 0; j-- {
			out = append(out, sc.destructors[j])
		}
	}
	return out
}

// EnterLoop records the current SEH depth so break/continue inside this
// loop know how many finally-funclets to call on exit (spec.md §4.3: "Each
// loop pushes its current SEH depth").
func (f *FuncLowerer) EnterLoop() {
	f.loopSehDepth = append(f.loopSehDepth, f.Seh.Depth())
}

// ExitLoop pops the current loop's recorded SEH depth.
func (f *FuncLowerer) ExitLoop() {
	if len(f.loopSehDepth) > 0 {
		f.loopSehDepth = f.loopSehDepth[:len(f.loopSehDepth)-1]
	}
}

// CurrentLoopSehDepth returns the SEH depth recorded when the innermost
// active loop was entered, for break/continue unwinding.
func (f *FuncLowerer) CurrentLoopSehDepth() int {
	if len(f.loopSehDepth) == 0 {
		return 0
	}
	return f.loopSehDepth[len(f.loopSehDepth)-1]
}

// Finish appends this function's instruction stream onto the program-wide
// Ir, in source order (spec.md §5: "IR instructions are emitted in source
// order within each function body").
func (f *FuncLowerer) Finish() {
	f.Program.Instructions = append(f.Program.Instructions, f.body.Instructions...)
}
