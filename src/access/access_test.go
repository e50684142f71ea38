package access

import (
	"testing"

	"flashcc/src/registry"
)

func newStructType(r *registry.Registry, name string) registry.TypeIndex {
	return r.DefineType(registry.TypeInfo{
		Name:   r.Strings.Intern(name),
		Kind:   registry.KindStruct,
		Struct: &registry.StructInfo{Enclosing: registry.InvalidTypeIndex},
	})
}

func TestCheckPublicAlwaysAllowed(t *testing.T) {
	r := registry.NewRegistry()
	owner := newStructType(r, "Widget")
	if !Check(r, owner, registry.AccessPublic, Context{CurrentStruct: registry.InvalidTypeIndex}) {
		t.Fatal("public member should be reachable from anywhere")
	}
}

func TestCheckPrivateOutsideClassDenied(t *testing.T) {
	r := registry.NewRegistry()
	owner := newStructType(r, "Widget")
	other := newStructType(r, "Other")
	if Check(r, owner, registry.AccessPrivate, Context{CurrentStruct: other}) {
		t.Fatal("private member should not be reachable from an unrelated class")
	}
}

func TestCheckPrivateSameClassAllowed(t *testing.T) {
	r := registry.NewRegistry()
	owner := newStructType(r, "Widget")
	if !Check(r, owner, registry.AccessPrivate, Context{CurrentStruct: owner}) {
		t.Fatal("private member should be reachable from its own class")
	}
}

func TestCheckPrivateFriendFunctionAllowed(t *testing.T) {
	r := registry.NewRegistry()
	owner := newStructType(r, "Widget")
	r.MutateType(owner, func(ti *registry.TypeInfo) {
		ti.Struct.Friends = map[registry.StringHandle]struct{}{
			r.Strings.Intern("helper"): {},
		}
	})
	ctx := Context{CurrentStruct: registry.InvalidTypeIndex, CurrentFunction: r.Strings.Intern("helper")}
	if !Check(r, owner, registry.AccessPrivate, ctx) {
		t.Fatal("private member should be reachable from a declared friend function")
	}
}

func TestCheckPrivateNestedClassAllowed(t *testing.T) {
	r := registry.NewRegistry()
	owner := newStructType(r, "Outer")
	inner := newStructType(r, "Outer::Inner")
	r.MutateType(inner, func(ti *registry.TypeInfo) { ti.Struct.Enclosing = owner })
	if !Check(r, owner, registry.AccessPrivate, Context{CurrentStruct: inner}) {
		t.Fatal("private member of an enclosing class should be reachable from a nested class")
	}
}

func TestCheckProtectedViaInheritance(t *testing.T) {
	r := registry.NewRegistry()
	base := newStructType(r, "Base")
	derived := newStructType(r, "Derived")
	r.MutateType(derived, func(ti *registry.TypeInfo) {
		ti.Struct.Bases = []registry.BaseClass{{Type: base, Access: registry.AccessPublic}}
	})
	if !Check(r, base, registry.AccessProtected, Context{CurrentStruct: derived}) {
		t.Fatal("protected member should be reachable from a publicly-derived class")
	}
}

func TestCheckProtectedNotInheritedDenied(t *testing.T) {
	r := registry.NewRegistry()
	base := newStructType(r, "Base")
	unrelated := newStructType(r, "Unrelated")
	if Check(r, base, registry.AccessProtected, Context{CurrentStruct: unrelated}) {
		t.Fatal("protected member should not be reachable from an unrelated class")
	}
}

func TestCheckProtectedViaPrivateBaseDenied(t *testing.T) {
	r := registry.NewRegistry()
	base := newStructType(r, "Base")
	derived := newStructType(r, "Derived")
	r.MutateType(derived, func(ti *registry.TypeInfo) {
		ti.Struct.Bases = []registry.BaseClass{{Type: base, Access: registry.AccessPrivate}}
	})
	if Check(r, base, registry.AccessProtected, Context{CurrentStruct: derived}) {
		t.Fatal("protected base member should not be reachable through a private base")
	}
}

func TestCheckSameClassAcrossTemplateInstantiations(t *testing.T) {
	r := registry.NewRegistry()
	a := r.DefineType(registry.TypeInfo{Name: r.Strings.Intern("Vector_int$abcd"), Kind: registry.KindStruct, Struct: &registry.StructInfo{Enclosing: registry.InvalidTypeIndex}})
	b := r.DefineType(registry.TypeInfo{Name: r.Strings.Intern("Vector_int$ef01"), Kind: registry.KindStruct, Struct: &registry.StructInfo{Enclosing: registry.InvalidTypeIndex}})
	if !Check(r, a, registry.AccessPrivate, Context{CurrentStruct: b}) {
		t.Fatal("two instantiations of the same template pattern should be treated as the same class for access control")
	}
}
