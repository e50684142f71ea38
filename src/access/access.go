// Package access enforces spec.md §4.7's public/protected/private/friend
// and nested-class access-control rules.
//
// Grounded on the teacher's src/ir/validate.go GetEntry: a "walk a stack of
// scopes outward until found or exhausted" search, adapted here to walk a
// class's base list outward (for protected-via-inheritance checks) instead
// of a lexical scope stack.
package access

import (
	"flashcc/src/mangle"
	"flashcc/src/registry"
)

// Context names the accessing site: which class (if any) and which mangled
// function the access check runs from.
type Context struct {
	CurrentStruct   registry.TypeIndex // InvalidTypeIndex outside any member function.
	CurrentFunction registry.StringHandle
}

// Check reports whether a member with access acc, owned by owner, is
// reachable from ctx. reg resolves nested-class and base-class
// relationships.
func Check(reg *registry.Registry, owner registry.TypeIndex, acc registry.Access, ctx Context) bool {
	switch acc {
	case registry.AccessPublic:
		return true
	case registry.AccessPrivate:
		return sameClass(reg, owner, ctx.CurrentStruct) || isFriend(reg, owner, ctx) || isNestedWithin(reg, ctx.CurrentStruct, owner)
	case registry.AccessProtected:
		if sameClass(reg, owner, ctx.CurrentStruct) || isFriend(reg, owner, ctx) || isNestedWithin(reg, ctx.CurrentStruct, owner) {
			return true
		}
		return derivesFrom(reg, ctx.CurrentStruct, owner)
	default:
		return false
	}
}

// sameClass compares two type indices for identity after stripping any
// template-instantiation "$hash" suffix, per spec.md §4.7.
func sameClass(reg *registry.Registry, a, b registry.TypeIndex) bool {
	if a == b {
		return true
	}
	if a == registry.InvalidTypeIndex || b == registry.InvalidTypeIndex {
		return false
	}
	ta, tb := reg.Type(a), reg.Type(b)
	if ta == nil || tb == nil {
		return false
	}
	na := mangle.StripInstantiationHash(reg.Strings.String(ta.Name))
	nb := mangle.StripInstantiationHash(reg.Strings.String(tb.Name))
	return na == nb
}

// isFriend reports whether ctx.CurrentFunction (or its enclosing struct) is
// named in owner's friend sets.
func isFriend(reg *registry.Registry, owner registry.TypeIndex, ctx Context) bool {
	t := reg.Type(owner)
	if t == nil || t.Struct == nil {
		return false
	}
	if t.Struct.Friends != nil {
		if _, ok := t.Struct.Friends[ctx.CurrentFunction]; ok {
			return true
		}
	}
	if t.Struct.FriendClasses != nil && ctx.CurrentStruct != registry.InvalidTypeIndex {
		if _, ok := t.Struct.FriendClasses[ctx.CurrentStruct]; ok {
			return true
		}
	}
	return false
}

// isNestedWithin reports whether inner is owner, or is lexically nested
// (directly or transitively) inside owner. Spec §4.7: "Inside a member
// function, the accessing struct is the current struct context... lexically
// nested classes" may access private members of their enclosing class.
func isNestedWithin(reg *registry.Registry, inner, owner registry.TypeIndex) bool {
	if inner == registry.InvalidTypeIndex || owner == registry.InvalidTypeIndex {
		return false
	}
	for cur := inner; cur != registry.InvalidTypeIndex; {
		t := reg.Type(cur)
		if t == nil || t.Struct == nil {
			return false
		}
		if cur == owner {
			return true
		}
		cur = t.Struct.Enclosing
	}
	return false
}

// derivesFrom reports whether derived inherits from base via a public or
// protected base-class path, reachable transitively.
func derivesFrom(reg *registry.Registry, derived, base registry.TypeIndex) bool {
	if derived == registry.InvalidTypeIndex {
		return false
	}
	t := reg.Type(derived)
	if t == nil || t.Struct == nil {
		return false
	}
	for _, b := range t.Struct.Bases {
		if b.Access == registry.AccessPrivate {
			continue
		}
		if b.Type == base {
			return true
		}
		if derivesFrom(reg, b.Type, base) {
			return true
		}
	}
	return false
}
