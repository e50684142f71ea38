package lower

import (
	"sync"

	"flashcc/src/ast"
	"flashcc/src/registry"
)

// lambdaWork is one closure body awaiting lowering, queued the moment a
// lambda expression is encountered (spec.md §4.6).
type lambdaWork struct {
	ClosureType registry.TypeIndex
	Body        *ast.Node
	Syms        interface{} // *symtab.SymbolTable; kept untyped here to avoid an import cycle with symtab.
}

// localStructWork is a struct declared inside a function body: its member
// functions are lowered after the enclosing function, since they may
// reference names the function only finishes declaring partway through its
// body (spec §4.6).
type localStructWork struct {
	StructType registry.TypeIndex
	Decl       *ast.Node
}

// memberFuncWork is a member function body whose lowering was deferred
// until the whole class's member list is known, so calls between sibling
// member functions resolve regardless of declaration order within the
// class body (spec §4.6).
type memberFuncWork struct {
	MangledName registry.StringHandle
	StructType  registry.TypeIndex
	Decl        *ast.Node
}

// templateInstWork is one concrete (pattern, arg-types) instantiation
// discovered during lowering, deferred so the same instantiation requested
// from two call sites only lowers once (spec §4.6/§8 idempotency).
type templateInstWork struct {
	Key  registry.InstantiationKey
	Decl *ast.Node
}

// staticMemberWork is a static data member's out-of-class definition.
type staticMemberWork struct {
	MangledName registry.StringHandle
	Decl        *ast.Node
}

// trivialCtorWork is a compiler-synthesized trivial default constructor
// that still needs a FunctionDecl emitted even though no user wrote one
// (spec §4.5: "aggregates still need a constructor body token for RVO/ABI
// wiring"). No member-initialization instructions are generated for it.
type trivialCtorWork struct {
	StructType registry.TypeIndex
}

// genericLambdaInstWork is one concrete argument-type specialization of a
// generic lambda's operator(), requested the first time a call site deduces
// those argument types against this closure. A generic lambda's operator()
// is a template the same way a function template is (spec §4.2/§4.6): each
// distinct call-site argument-type tuple re-instantiates its own body.
type genericLambdaInstWork struct {
	ClosureType registry.TypeIndex
	ArgTypes    []registry.TypeIndex
	Body        *ast.Node
	Syms        interface{} // *symtab.SymbolTable; untyped for the same reason as lambdaWork.Syms.
}

// genericLambdaKey identifies one (closure, argument-types) specialization,
// the generic-lambda analogue of registry.InstantiationKey.
type genericLambdaKey struct {
	ClosureType registry.TypeIndex
	ArgTypes    string
}

// Queues holds every deferred-work worklist spec.md §4.6 describes, plus
// the idempotency guard sets that keep re-requested work from lowering
// twice. Drained in the fixed order pipeline.go's drainQueues documents,
// after the main AST walk completes.
//
// Grounded on src/ir/optimise.go's Optimise: a fixed list of independent
// passes run to completion in sequence; generalized here from "apply N
// optimization passes once" to "drain N deferred-work queues in dependency
// order, where draining one queue may push new work onto a later one."
type Queues struct {
	mx sync.Mutex

	lambdas    []lambdaWork
	localStructs []localStructWork
	memberFuncs []memberFuncWork
	templates  []templateInstWork
	statics    []staticMemberWork
	trivialCtors []trivialCtorWork
	genericLambdas []genericLambdaInstWork

	templateSeen map[registry.InstantiationKey]struct{}
	ctorSeen     map[registry.TypeIndex]struct{}
	genericLambdaSeen map[genericLambdaKey]struct{}
}

// NewQueues returns empty, ready-to-use worklists.
func NewQueues() *Queues {
	return &Queues{
		templateSeen: make(map[registry.InstantiationKey]struct{}),
		ctorSeen:     make(map[registry.TypeIndex]struct{}),
		genericLambdaSeen: make(map[genericLambdaKey]struct{}),
	}
}

func (q *Queues) PushLambda(w lambdaWork) {
	q.mx.Lock()
	defer q.mx.Unlock()
	q.lambdas = append(q.lambdas, w)
}

func (q *Queues) PushLocalStruct(w localStructWork) {
	q.mx.Lock()
	defer q.mx.Unlock()
	q.localStructs = append(q.localStructs, w)
}

func (q *Queues) PushMemberFunc(w memberFuncWork) {
	q.mx.Lock()
	defer q.mx.Unlock()
	q.memberFuncs = append(q.memberFuncs, w)
}

// PushTemplateInstantiation enqueues w unless this exact (pattern, args)
// key was already requested, satisfying spec §4.6/§8's "instantiate at most
// once" property.
func (q *Queues) PushTemplateInstantiation(w templateInstWork) {
	q.mx.Lock()
	defer q.mx.Unlock()
	if _, ok := q.templateSeen[w.Key]; ok {
		return
	}
	q.templateSeen[w.Key] = struct{}{}
	q.templates = append(q.templates, w)
}

// PushGenericLambdaInstantiation enqueues w unless this exact
// (closure, argument-types) specialization was already requested, the
// generic-lambda analogue of PushTemplateInstantiation's idempotency guard
// (spec §4.6/§8 property 8).
func (q *Queues) PushGenericLambdaInstantiation(w genericLambdaInstWork) {
	q.mx.Lock()
	defer q.mx.Unlock()
	key := genericLambdaKey{ClosureType: w.ClosureType, ArgTypes: registry.ArgKey(w.ArgTypes)}
	if _, ok := q.genericLambdaSeen[key]; ok {
		return
	}
	q.genericLambdaSeen[key] = struct{}{}
	q.genericLambdas = append(q.genericLambdas, w)
}

func (q *Queues) PushStaticMember(w staticMemberWork) {
	q.mx.Lock()
	defer q.mx.Unlock()
	q.statics = append(q.statics, w)
}

// PushTrivialCtor enqueues a synthesized trivial default constructor body
// for structType at most once.
func (q *Queues) PushTrivialCtor(structType registry.TypeIndex) {
	q.mx.Lock()
	defer q.mx.Unlock()
	if _, ok := q.ctorSeen[structType]; ok {
		return
	}
	q.ctorSeen[structType] = struct{}{}
	q.trivialCtors = append(q.trivialCtors, trivialCtorWork{StructType: structType})
}

// drainLambdas, drainLocalStructs, ... each pop and clear their queue,
// returning a snapshot to iterate — draining one queue may push new work
// onto a later one (e.g. a lambda body declares a local struct), so the
// caller (drainQueues) loops queue-by-queue rather than all at once.
func (q *Queues) drainLambdas() []lambdaWork {
	q.mx.Lock()
	defer q.mx.Unlock()
	w := q.lambdas
	q.lambdas = nil
	return w
}

func (q *Queues) drainLocalStructs() []localStructWork {
	q.mx.Lock()
	defer q.mx.Unlock()
	w := q.localStructs
	q.localStructs = nil
	return w
}

func (q *Queues) drainMemberFuncs() []memberFuncWork {
	q.mx.Lock()
	defer q.mx.Unlock()
	w := q.memberFuncs
	q.memberFuncs = nil
	return w
}

func (q *Queues) drainTemplates() []templateInstWork {
	q.mx.Lock()
	defer q.mx.Unlock()
	w := q.templates
	q.templates = nil
	return w
}

func (q *Queues) drainStatics() []staticMemberWork {
	q.mx.Lock()
	defer q.mx.Unlock()
	w := q.statics
	q.statics = nil
	return w
}

func (q *Queues) drainTrivialCtors() []trivialCtorWork {
	q.mx.Lock()
	defer q.mx.Unlock()
	w := q.trivialCtors
	q.trivialCtors = nil
	return w
}

func (q *Queues) drainGenericLambdas() []genericLambdaInstWork {
	q.mx.Lock()
	defer q.mx.Unlock()
	w := q.genericLambdas
	q.genericLambdas = nil
	return w
}

// Empty reports whether every queue is currently empty, the fixed point
// drainQueues (in pipeline.go) runs toward.
func (q *Queues) Empty() bool {
	q.mx.Lock()
	defer q.mx.Unlock()
	return len(q.lambdas) == 0 && len(q.localStructs) == 0 && len(q.memberFuncs) == 0 &&
		len(q.templates) == 0 && len(q.statics) == 0 && len(q.trivialCtors) == 0 &&
		len(q.genericLambdas) == 0
}
