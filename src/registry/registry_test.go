package registry

import "testing"

func TestInternerStability(t *testing.T) {
	in := NewInterner()
	a := in.Intern("foo")
	b := in.Intern("bar")
	c := in.Intern("foo")
	if a != c {
		t.Fatalf("Intern(\"foo\") returned different handles: %d, %d", a, c)
	}
	if a == b {
		t.Fatalf("distinct strings got the same handle: %d", a)
	}
	if got := in.String(a); got != "foo" {
		t.Fatalf("String(%d) = %q, want %q", a, got, "foo")
	}
}

func TestInternerUnknownHandle(t *testing.T) {
	in := NewInterner()
	if got := in.String(StringHandle(99)); got != "" {
		t.Fatalf("String of unknown handle = %q, want \"\"", got)
	}
}

func TestNewRegistryPrimitives(t *testing.T) {
	r := NewRegistry()
	idx, ok := r.ByName(r.Strings.Intern("int"))
	if !ok {
		t.Fatal("expected primitive \"int\" to be pre-registered")
	}
	ti := r.Type(idx)
	if ti == nil || ti.Kind != KindPrimitive || ti.Primitive != PrimInt {
		t.Fatalf("unexpected TypeInfo for \"int\": %+v", ti)
	}
}

func TestDefineTypeAppendsAndIndexes(t *testing.T) {
	r := NewRegistry()
	before := r.Len()
	name := r.Strings.Intern("MyStruct")
	idx := r.DefineType(TypeInfo{Name: name, Kind: KindStruct, Struct: &StructInfo{}})
	if int(idx) != before {
		t.Fatalf("DefineType returned %d, want %d", idx, before)
	}
	if r.Len() != before+1 {
		t.Fatalf("Len() = %d, want %d", r.Len(), before+1)
	}
	got, ok := r.ByName(name)
	if !ok || got != idx {
		t.Fatalf("ByName(%q) = (%d, %v), want (%d, true)", "MyStruct", got, ok, idx)
	}
}

func TestTypeOutOfRange(t *testing.T) {
	r := NewRegistry()
	if r.Type(InvalidTypeIndex) != nil {
		t.Fatal("Type(InvalidTypeIndex) should be nil")
	}
	if r.Type(TypeIndex(r.Len() + 10)) != nil {
		t.Fatal("Type() past the end should be nil")
	}
}

func TestMutateType(t *testing.T) {
	r := NewRegistry()
	name := r.Strings.Intern("Widget")
	idx := r.DefineType(TypeInfo{Name: name, Kind: KindStruct, Struct: &StructInfo{}})
	r.MutateType(idx, func(ti *TypeInfo) {
		ti.Struct.Members = append(ti.Struct.Members, Member{Name: r.Strings.Intern("x")})
	})
	ti := r.Type(idx)
	if len(ti.Struct.Members) != 1 {
		t.Fatalf("MutateType did not persist: %+v", ti.Struct)
	}
}

func TestTemplateRegistryInstantiateOnce(t *testing.T) {
	tr := NewTemplateRegistry()
	strs := NewInterner()
	name := strs.Intern("Vector")
	calls := 0
	build := func() *Instantiation {
		calls++
		return &Instantiation{MangledName: strs.Intern("Vector_int")}
	}
	inst1, fresh1 := tr.Instantiate(name, []TypeIndex{0}, build)
	inst2, fresh2 := tr.Instantiate(name, []TypeIndex{0}, build)
	if !fresh1 || fresh2 {
		t.Fatalf("freshness flags = (%v, %v), want (true, false)", fresh1, fresh2)
	}
	if inst1 != inst2 {
		t.Fatal("second Instantiate with the same key returned a different record")
	}
	if calls != 1 {
		t.Fatalf("build() called %d times, want 1", calls)
	}
}

func TestTemplateRegistryDistinctArgs(t *testing.T) {
	tr := NewTemplateRegistry()
	strs := NewInterner()
	name := strs.Intern("Vector")
	instInt, _ := tr.Instantiate(name, []TypeIndex{0}, func() *Instantiation {
		return &Instantiation{MangledName: strs.Intern("Vector_int")}
	})
	instFloat, _ := tr.Instantiate(name, []TypeIndex{1}, func() *Instantiation {
		return &Instantiation{MangledName: strs.Intern("Vector_float")}
	})
	if instInt.MangledName == instFloat.MangledName {
		t.Fatal("distinct argument lists produced the same instantiation")
	}
}
