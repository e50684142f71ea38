package lower

import (
	"testing"

	"flashcc/src/abi"
	"flashcc/src/ast"
	"flashcc/src/ir"
	"flashcc/src/registry"
	"flashcc/src/symtab"
)

func newTestFuncLowerer() (*Lowerer, *FuncLowerer) {
	l := NewLowerer(abi.SysV)
	syms := symtab.NewSymbolTable()
	fl := NewFuncLowerer(l, l.Reg.Strings.Intern("test"), syms, registry.InvalidTypeIndex)
	return l, fl
}

func intLit(v int64) *ast.Node {
	return &ast.Node{Kind: ast.KindLiteralInt, Data: v}
}

func floatLit(v float64) *ast.Node {
	return &ast.Node{Kind: ast.KindLiteralFloat, Data: v}
}

func TestLowerExprLiteralInt(t *testing.T) {
	_, fl := newTestFuncLowerer()
	v, err := fl.LowerExpr(intLit(42), CtxLoad)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Value.Kind != ir.ValueUint || v.Value.U64 != 42 {
		t.Fatalf("got %+v, want a uint value of 42", v)
	}
	if v.Type != fl.intType() {
		t.Fatalf("literal int should have type int")
	}
}

func TestLowerExprLiteralBool(t *testing.T) {
	_, fl := newTestFuncLowerer()
	v, err := fl.LowerExpr(&ast.Node{Kind: ast.KindLiteralBool, Data: true}, CtxLoad)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Value.U64 != 1 || v.Type != fl.boolType() {
		t.Fatalf("got %+v, want bool-typed value 1", v)
	}
}

func TestLowerExprNilNode(t *testing.T) {
	_, fl := newTestFuncLowerer()
	if _, err := fl.LowerExpr(nil, CtxLoad); err == nil {
		t.Fatal("expected an internal error for a nil expression node")
	}
}

func TestLowerIdentifierUndeclared(t *testing.T) {
	_, fl := newTestFuncLowerer()
	n := &ast.Node{Kind: ast.KindIdentifier, Data: "missing"}
	if _, err := fl.LowerExpr(n, CtxLoad); err == nil {
		t.Fatal("expected a semantic error for an undeclared identifier")
	}
}

func TestLowerIdentifierDeclared(t *testing.T) {
	_, fl := newTestFuncLowerer()
	name := fl.Reg.Strings.Intern("x")
	fl.Syms.Insert(&symtab.Entry{Name: name, Type: fl.intType()})
	n := &ast.Node{Kind: ast.KindIdentifier, Data: "x"}
	v, err := fl.LowerExpr(n, CtxLoad)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Value.Kind != ir.ValueTemp {
		t.Fatalf("expected a temp-valued load, got %+v", v)
	}
	last := fl.body.Instructions[len(fl.body.Instructions)-1]
	if last.Op != ir.OpGlobalLoad {
		t.Fatalf("expected a GlobalLoad instruction, got %v", last.Op)
	}
}

func TestLowerIdentifierLValueAddr(t *testing.T) {
	_, fl := newTestFuncLowerer()
	name := fl.Reg.Strings.Intern("x")
	fl.Syms.Insert(&symtab.Entry{Name: name, Type: fl.intType()})
	n := &ast.Node{Kind: ast.KindIdentifier, Data: "x"}
	v, err := fl.LowerExpr(n, CtxLValueAddr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, ok := fl.Meta.LValue(v.Value.Temp)
	if !ok || info.Kind != ir.Direct || info.BaseName != name {
		t.Fatalf("expected a Direct LValueInfo for %q, got %+v (ok=%v)", "x", info, ok)
	}
}

func TestLowerBinaryFloatWins(t *testing.T) {
	_, fl := newTestFuncLowerer()
	n := &ast.Node{Kind: ast.KindBinaryExpr, Data: "+", Children: []*ast.Node{intLit(1), floatLit(2.5)}}
	v, err := fl.LowerExpr(n, CtxLoad)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Type != fl.floatType() {
		t.Fatalf("int + float should produce a float-typed result")
	}
	last := fl.body.Instructions[len(fl.body.Instructions)-1]
	bop, ok := last.Payload.(ir.BinaryOp)
	if !ok || last.Op != ir.OpBinary || bop.Op != "+" {
		t.Fatalf("expected a Binary(+) instruction, got %+v", last)
	}
}

func TestLowerShortCircuitResultIsBool(t *testing.T) {
	_, fl := newTestFuncLowerer()
	n := &ast.Node{Kind: ast.KindBinaryExpr, Data: "&&", Children: []*ast.Node{
		&ast.Node{Kind: ast.KindLiteralBool, Data: true},
		&ast.Node{Kind: ast.KindLiteralBool, Data: false},
	}}
	v, err := fl.LowerExpr(n, CtxLoad)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Type != fl.boolType() {
		t.Fatalf("&& should produce a bool-typed result")
	}
}

func TestSizeofPrimitive(t *testing.T) {
	_, fl := newTestFuncLowerer()
	n := &ast.Node{Kind: ast.KindSizeof, Data: sizeofTypeData{Type: fl.intType()}}
	v, err := fl.lowerSizeof(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Value.Kind != ir.ValueTemp {
		t.Fatalf("sizeof should return a constant-folded temp, got %+v", v)
	}
}

func TestVariableDeclWithInitEmitsGlobalStore(t *testing.T) {
	_, fl := newTestFuncLowerer()
	name := fl.Reg.Strings.Intern("y")
	n := &ast.Node{
		Kind:     ast.KindVariableDecl,
		Data:     variableDeclData{Name: name, Type: fl.intType(), HasInit: true},
		Children: []*ast.Node{intLit(7)},
	}
	if err := fl.LowerStmt(n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := fl.body.Instructions[len(fl.body.Instructions)-1]
	store, ok := last.Payload.(ir.GlobalStoreOp)
	if !ok || last.Op != ir.OpGlobalStore || store.Name != name {
		t.Fatalf("expected a GlobalStore to %q, got %+v", "y", last)
	}
}

func TestAssignmentToIdentifier(t *testing.T) {
	_, fl := newTestFuncLowerer()
	name := fl.Reg.Strings.Intern("y")
	fl.Syms.Insert(&symtab.Entry{Name: name, Type: fl.intType()})
	lhs := &ast.Node{Kind: ast.KindIdentifier, Data: "y"}
	n := &ast.Node{Kind: ast.KindAssignment, Children: []*ast.Node{lhs, intLit(9)}}
	if err := fl.LowerStmt(n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := fl.body.Instructions[len(fl.body.Instructions)-1]
	store, ok := last.Payload.(ir.GlobalStoreOp)
	if !ok || last.Op != ir.OpGlobalStore || store.Name != name || store.Value.Value.U64 != 9 {
		t.Fatalf("expected a GlobalStore of 9 to %q, got %+v", "y", last)
	}
}

func TestLowerIfEmitsCondBranchAndLabels(t *testing.T) {
	_, fl := newTestFuncLowerer()
	cond := &ast.Node{Kind: ast.KindLiteralBool, Data: true}
	then := &ast.Node{Kind: ast.KindBlock}
	n := &ast.Node{Kind: ast.KindIf, Children: []*ast.Node{cond, then}}
	if err := fl.LowerStmt(n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sawCondBranch, sawEndLabel bool
	for _, instr := range fl.body.Instructions {
		if instr.Op == ir.OpCondBranch {
			sawCondBranch = true
		}
		if instr.Op == ir.OpLabel {
			sawEndLabel = true
		}
	}
	if !sawCondBranch || !sawEndLabel {
		t.Fatalf("expected at least one CondBranch and one Label instruction, got %d instructions", len(fl.body.Instructions))
	}
}

func TestLowerIfWithElseBranches(t *testing.T) {
	_, fl := newTestFuncLowerer()
	cond := &ast.Node{Kind: ast.KindLiteralBool, Data: false}
	then := &ast.Node{Kind: ast.KindBlock}
	els := &ast.Node{Kind: ast.KindBlock}
	n := &ast.Node{Kind: ast.KindIf, Children: []*ast.Node{cond, then, els}}
	if err := fl.LowerStmt(n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	labelCount := 0
	for _, instr := range fl.body.Instructions {
		if instr.Op == ir.OpLabel {
			labelCount++
		}
	}
	if labelCount != 3 {
		t.Fatalf("if/then/else should emit 3 labels (then, else, end), got %d", labelCount)
	}
}

func TestLowerBreakOutsideLoopIsError(t *testing.T) {
	_, fl := newTestFuncLowerer()
	if err := fl.LowerStmt(&ast.Node{Kind: ast.KindBreak}); err == nil {
		t.Fatal("expected a semantic error for break outside any loop/switch")
	}
}

func TestLowerContinueOutsideLoopIsError(t *testing.T) {
	_, fl := newTestFuncLowerer()
	if err := fl.LowerStmt(&ast.Node{Kind: ast.KindContinue}); err == nil {
		t.Fatal("expected a semantic error for continue outside any loop")
	}
}

func TestLowerWhileBreakTargetsEndLabel(t *testing.T) {
	_, fl := newTestFuncLowerer()
	cond := &ast.Node{Kind: ast.KindLiteralBool, Data: true}
	body := &ast.Node{Kind: ast.KindBlock, Children: []*ast.Node{{Kind: ast.KindBreak}}}
	n := &ast.Node{Kind: ast.KindWhile, Children: []*ast.Node{cond, body}}
	if err := fl.LowerStmt(n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var branchCount int
	for _, instr := range fl.body.Instructions {
		if instr.Op == ir.OpBranch {
			branchCount++
		}
	}
	if branchCount < 2 {
		t.Fatalf("expected at least 2 unconditional branches (break + loop-back), got %d", branchCount)
	}
}

func TestLowerReturnVoid(t *testing.T) {
	_, fl := newTestFuncLowerer()
	if err := fl.LowerStmt(&ast.Node{Kind: ast.KindReturn}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := fl.body.Instructions[len(fl.body.Instructions)-1]
	ret, ok := last.Payload.(ir.ReturnOp)
	if !ok || last.Op != ir.OpReturn || ret.Value != nil {
		t.Fatalf("expected a void ReturnOp, got %+v", last)
	}
}

func TestLowerReturnWithValue(t *testing.T) {
	_, fl := newTestFuncLowerer()
	n := &ast.Node{Kind: ast.KindReturn, Children: []*ast.Node{intLit(5)}}
	if err := fl.LowerStmt(n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := fl.body.Instructions[len(fl.body.Instructions)-1]
	ret, ok := last.Payload.(ir.ReturnOp)
	if !ok || last.Op != ir.OpReturn || ret.Value == nil || ret.Value.Value.U64 != 5 {
		t.Fatalf("expected a ReturnOp carrying value 5, got %+v", last)
	}
}

func TestBlockRegistersAndRunsDestructors(t *testing.T) {
	_, fl := newTestFuncLowerer()
	structType := fl.Reg.DefineType(registry.TypeInfo{
		Name:   fl.Reg.Strings.Intern("Widget"),
		Kind:   registry.KindStruct,
		Struct: &registry.StructInfo{HasUserDtor: true},
	})
	name := fl.Reg.Strings.Intern("w")
	decl := &ast.Node{Kind: ast.KindVariableDecl, Data: variableDeclData{Name: name, Type: structType, IsStructLocal: true}}
	block := &ast.Node{Kind: ast.KindBlock, Children: []*ast.Node{decl}}
	if err := fl.LowerBlock(block); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, instr := range fl.body.Instructions {
		if instr.Op == ir.OpDestructorCall {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a DestructorCall to be emitted on block exit for a struct-typed local")
	}
}

func TestAccessCheckDeniesPrivateMemberFromOutside(t *testing.T) {
	l, fl := newTestFuncLowerer()
	owner := l.Reg.DefineType(registry.TypeInfo{Name: l.Reg.Strings.Intern("Widget"), Kind: registry.KindStruct, Struct: &registry.StructInfo{}})
	member := l.Reg.Strings.Intern("secret")
	n := &ast.Node{
		Kind: ast.KindMemberAccess,
		Data: memberAccessData{Member: member, MemberOwner: owner, ObjectType: owner, MemberType: fl.intType(), Access: registry.AccessPrivate},
		Children: []*ast.Node{
			{Kind: ast.KindIdentifier, Data: "obj"},
		},
	}
	fl.Syms.Insert(&symtab.Entry{Name: l.Reg.Strings.Intern("obj"), Type: owner})
	if _, err := fl.LowerExpr(n, CtxLoad); err == nil {
		t.Fatal("expected a semantic error accessing a private member from outside its class")
	}
}

func TestAccessControlDisabledBypassesCheck(t *testing.T) {
	l, fl := newTestFuncLowerer()
	l.AccessControlDisabled = true
	owner := l.Reg.DefineType(registry.TypeInfo{Name: l.Reg.Strings.Intern("Widget"), Kind: registry.KindStruct, Struct: &registry.StructInfo{}})
	member := l.Reg.Strings.Intern("secret")
	n := &ast.Node{
		Kind: ast.KindMemberAccess,
		Data: memberAccessData{Member: member, MemberOwner: owner, ObjectType: owner, MemberType: fl.intType(), Access: registry.AccessPrivate},
		Children: []*ast.Node{
			{Kind: ast.KindIdentifier, Data: "obj"},
		},
	}
	fl.Syms.Insert(&symtab.Entry{Name: l.Reg.Strings.Intern("obj"), Type: owner})
	if _, err := fl.LowerExpr(n, CtxLoad); err != nil {
		t.Fatalf("unexpected error with access control disabled: %v", err)
	}
}

func TestDeclareFunctionIdempotent(t *testing.T) {
	l, _ := newTestFuncLowerer()
	name := l.Reg.Strings.Intern("foo")
	l.DeclareFunction(name, registry.InvalidTypeIndex, nil)
	l.DeclareFunction(name, registry.InvalidTypeIndex, nil)
	count := 0
	for _, instr := range l.Program.Instructions {
		if instr.Op == ir.OpFunctionDecl {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("DeclareFunction should emit exactly one FunctionDecl per name, got %d", count)
	}
	if !l.IsDeclared(name) {
		t.Fatal("IsDeclared should report true after DeclareFunction")
	}
}
