// Package mangle implements the deterministic, collision-free name mangling
// spec.md §4.4 and §6 describe: CV prefixes, reference/pointer/array
// suffixes on parameter types, struct-qualified member names, operator and
// conversion-operator names, and lambda closure names.
//
// Grounded on the teacher's src/ir/validate.go lutExp/lutAssign style: one
// small pure function per name class driven by a lookup table, here
// building strings instead of returning booleans (vslc itself has no
// mangling — a single global function namespace, see Global.Get(name) in
// validate.go — since it has no overloading or structs).
package mangle

import (
	"strconv"
	"strings"

	"flashcc/src/ir"
	"flashcc/src/registry"
)

// ParamType carries just what mangling a parameter needs: its underlying
// type name, qualifiers, pointer depth and (for arrays) extent.
type ParamType struct {
	TypeName     string
	CV           ir.CVQualifier
	Ref          ir.RefQualifier
	PointerDepth int
	ArrayExtent  int // 0 if not an array.
}

// Param renders one parameter-type mangling fragment: CV prefix, type name,
// pointer-depth P's, reference suffix, array extent suffix.
func Param(p ParamType) string {
	var b strings.Builder
	if p.CV&ir.CVConst != 0 {
		b.WriteByte('C')
	}
	if p.CV&ir.CVVolatile != 0 {
		b.WriteByte('V')
	}
	b.WriteString(p.TypeName)
	for i := 0; i < p.PointerDepth; i++ {
		b.WriteByte('P')
	}
	switch p.Ref {
	case ir.RefLValue:
		b.WriteByte('R')
	case ir.RefRValue:
		b.WriteString("RR")
	}
	if p.ArrayExtent > 0 {
		b.WriteString("A" + strconv.Itoa(p.ArrayExtent))
	}
	return b.String()
}

// Params renders a full parameter list suffix: "_<p1>_<p2>_...", or "" for
// a zero-arity function.
func Params(ps []ParamType) string {
	if len(ps) == 0 {
		return ""
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = Param(p)
	}
	return "_" + strings.Join(parts, "_")
}

// FreeFunction mangles a free (possibly namespace-qualified) function:
// "name_<argtype-list>".
func FreeFunction(qualifiedName string, params []ParamType) string {
	return qualifiedName + Params(params)
}

// MemberFunction mangles a struct member function: "Struct::name_<argtype-list>".
func MemberFunction(structName, methodName string, params []ParamType) string {
	return structName + "::" + methodName + Params(params)
}

// Operator mangles an operator overload. Conversion operators (isConversion)
// mangle as "operator <conversionTarget>"; every other operator mangles as
// "operator<symbol>" with the symbol included literally, per spec.md §6.
func Operator(structName, symbol string, isConversion bool, conversionTarget string, params []ParamType) string {
	var name string
	if isConversion {
		name = "operator " + conversionTarget
	} else {
		name = "operator" + symbol
	}
	if structName == "" {
		return FreeFunction(name, params)
	}
	return MemberFunction(structName, name, params)
}

// Constructor mangles a struct's constructor.
func Constructor(structName string, params []ParamType) string {
	return MemberFunction(structName, structName, params)
}

// Destructor mangles a struct's destructor.
func Destructor(structName string) string {
	return MemberFunction(structName, "~"+structName, nil)
}

// TemplateInstantiation mangles a template instantiation by appending the
// argument-type suffix to the pattern's qualified name, per spec.md §4.4:
// "template instantiations (parameter-type suffix)". Instantiated names are
// distinguished from pattern names by a "$<hash>" suffix (spec.md §3).
func TemplateInstantiation(patternQualifiedName string, params []ParamType, hash uint32) string {
	return patternQualifiedName + Params(params) + "$" + strconv.FormatUint(uint64(hash), 16)
}

// LambdaClosureName mangles the name of a lambda's synthesized closure
// struct, optionally suffixed with a generic-lambda instantiation hash so
// distinct `auto`-parameter specializations don't collide at link time
// (spec.md §4.2: "deduced types are threaded through mangling so distinct
// instantiations link without collision").
func LambdaClosureName(id int, instantiationHash uint32, hasHash bool) string {
	if hasHash {
		return "__lambda_" + strconv.Itoa(id) + "$" + strconv.FormatUint(uint64(instantiationHash), 16)
	}
	return "__lambda_" + strconv.Itoa(id)
}

// LambdaInvoke mangles the static, non-capturing-lambda-only `__invoke`
// trampoline of a closure.
func LambdaInvoke(closureName string, params []ParamType) string {
	return MemberFunction(closureName, "__invoke", params)
}

// CallOperator mangles a closure's `operator()`.
func CallOperator(closureName string, params []ParamType) string {
	return Operator(closureName, "()", false, "", params)
}

// StripInstantiationHash removes a trailing "$<hash>" suffix from a mangled
// name, used when comparing an instantiated struct's identity against its
// pattern for access-control purposes (spec.md §4.7: "Private is allowed
// for the same class (including template instantiations with a $hash
// suffix stripped for comparison)").
func StripInstantiationHash(mangled string) string {
	if i := strings.LastIndexByte(mangled, '$'); i >= 0 {
		return mangled[:i]
	}
	return mangled
}

// TypeName renders the mangling-visible name of a registry type: its
// interned name, looked up through strings. Returns "" for an unresolved
// index.
func TypeName(reg *registry.Registry, idx registry.TypeIndex) string {
	t := reg.Type(idx)
	if t == nil {
		return ""
	}
	return reg.Strings.String(t.Name)
}
