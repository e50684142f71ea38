package symtab

import (
	"testing"

	"flashcc/src/registry"
)

func TestInsertAndLookup(t *testing.T) {
	s := NewSymbolTable()
	name := registry.StringHandle(1)
	s.Insert(&Entry{Name: name, Type: registry.TypeIndex(0)})
	e, ok := s.Lookup(name)
	if !ok || e.Name != name {
		t.Fatalf("Lookup(%d) = %+v, ok=%v", name, e, ok)
	}
}

func TestLookupMissing(t *testing.T) {
	s := NewSymbolTable()
	if _, ok := s.Lookup(registry.StringHandle(42)); ok {
		t.Fatal("Lookup of an undeclared name should fail")
	}
}

func TestScopeShadowing(t *testing.T) {
	s := NewSymbolTable()
	name := registry.StringHandle(1)
	s.Insert(&Entry{Name: name, Type: registry.TypeIndex(0)})

	s.EnterScope()
	s.Insert(&Entry{Name: name, Type: registry.TypeIndex(1)})
	inner, _ := s.Lookup(name)
	if inner.Type != registry.TypeIndex(1) {
		t.Fatalf("inner scope should shadow outer: got Type %d, want 1", inner.Type)
	}

	s.ExitScope()
	outer, _ := s.Lookup(name)
	if outer.Type != registry.TypeIndex(0) {
		t.Fatalf("after ExitScope, outer declaration should be visible again: got Type %d, want 0", outer.Type)
	}
}

func TestExitGlobalScopeIsNoop(t *testing.T) {
	s := NewSymbolTable()
	s.ExitScope()
	name := registry.StringHandle(1)
	s.Insert(&Entry{Name: name})
	if _, ok := s.Lookup(name); !ok {
		t.Fatal("ExitScope on the global scope should be a no-op, not corrupt the table")
	}
}

func TestLookupAllReturnsEveryShadowedEntry(t *testing.T) {
	s := NewSymbolTable()
	name := registry.StringHandle(1)
	s.Insert(&Entry{Name: name, Type: registry.TypeIndex(0)})
	s.EnterScope()
	s.Insert(&Entry{Name: name, Type: registry.TypeIndex(1)})
	all := s.LookupAll(name)
	if len(all) != 2 {
		t.Fatalf("LookupAll returned %d entries, want 2", len(all))
	}
	if all[0].Type != registry.TypeIndex(1) || all[1].Type != registry.TypeIndex(0) {
		t.Fatalf("LookupAll order = %+v, want innermost first", all)
	}
}

func TestLookupLocalDoesNotSeeOuterScope(t *testing.T) {
	s := NewSymbolTable()
	name := registry.StringHandle(1)
	s.Insert(&Entry{Name: name})
	s.EnterScope()
	if _, ok := s.LookupLocal(name); ok {
		t.Fatal("LookupLocal should not see a declaration from an enclosing scope")
	}
}

func TestDepth(t *testing.T) {
	s := NewSymbolTable()
	if s.Depth() != 0 {
		t.Fatalf("Depth() = %d, want 0 at global scope", s.Depth())
	}
	s.EnterScope()
	s.EnterScope()
	if s.Depth() != 2 {
		t.Fatalf("Depth() = %d, want 2", s.Depth())
	}
	s.ExitScope()
	if s.Depth() != 1 {
		t.Fatalf("Depth() = %d, want 1", s.Depth())
	}
}
