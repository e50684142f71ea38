package ir

import (
	"testing"

	"flashcc/src/registry"
)

func TestIrEmitReturnsIndex(t *testing.T) {
	var p Ir
	i0 := p.Emit(Instruction{Op: OpLabel, Payload: LabelOp{Name: 1}})
	i1 := p.Emit(Instruction{Op: OpBranch, Payload: BranchOp{Target: 2}})
	if i0 != 0 || i1 != 1 {
		t.Fatalf("Emit indices = (%d, %d), want (0, 1)", i0, i1)
	}
	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", p.Len())
	}
}

func TestTempVarMetadataPrvalue(t *testing.T) {
	m := NewTempVarMetadata()
	m.SetPrvalue(TempVar(3))
	if got := m.Category(TempVar(3)); got != Prvalue {
		t.Fatalf("Category = %v, want Prvalue", got)
	}
	if _, ok := m.LValue(TempVar(3)); ok {
		t.Fatal("prvalue temp should have no LValueInfo")
	}
}

func TestTempVarMetadataUnsetDefaultsPrvalue(t *testing.T) {
	m := NewTempVarMetadata()
	if got := m.Category(TempVar(7)); got != Prvalue {
		t.Fatalf("Category of never-set temp = %v, want Prvalue", got)
	}
}

func TestTempVarMetadataLValue(t *testing.T) {
	m := NewTempVarMetadata()
	info := NewDirect(registry.StringHandle(5))
	m.SetLValue(TempVar(1), Lvalue, info)
	if got := m.Category(TempVar(1)); got != Lvalue {
		t.Fatalf("Category = %v, want Lvalue", got)
	}
	got, ok := m.LValue(TempVar(1))
	if !ok || got.Kind != Direct || got.BaseName != registry.StringHandle(5) {
		t.Fatalf("LValue = %+v, ok=%v", got, ok)
	}
}

func TestSetLValuePanicsOnPrvalueCategory(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic setting an Lvalue-category-less LValueInfo with Prvalue category")
		}
	}()
	m := NewTempVarMetadata()
	m.SetLValue(TempVar(0), Prvalue, NewDirect(registry.StringHandle(1)))
}

func TestSetLValuePanicsOnInvalidInfo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for a Member LValueInfo with no member name")
		}
	}()
	m := NewTempVarMetadata()
	m.SetLValue(TempVar(0), Lvalue, LValueInfo{Kind: Member})
}

func TestLValueInfoValid(t *testing.T) {
	cases := []struct {
		name string
		info LValueInfo
		want bool
	}{
		{"direct", NewDirect(registry.StringHandle(1)), true},
		{"member with name", NewMember(false, registry.StringHandle(1), 0, registry.StringHandle(2), 8, false), true},
		{"member without name", LValueInfo{Kind: Member}, false},
		{"array with index", NewArrayElement(false, registry.StringHandle(1), 0, TypedValue{}, 0, false), true},
		{"array without index", LValueInfo{Kind: ArrayElement}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.info.Valid(); got != c.want {
				t.Errorf("Valid() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestTypedValueIsPointer(t *testing.T) {
	if (TypedValue{PointerDepth: 0}).IsPointer() {
		t.Fatal("PointerDepth 0 should not be a pointer")
	}
	if !(TypedValue{PointerDepth: 1}).IsPointer() {
		t.Fatal("PointerDepth 1 should be a pointer")
	}
}
