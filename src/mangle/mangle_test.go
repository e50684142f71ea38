package mangle

import (
	"testing"

	"flashcc/src/ir"
)

func TestParamPlain(t *testing.T) {
	got := Param(ParamType{TypeName: "int"})
	if got != "int" {
		t.Fatalf("Param = %q, want %q", got, "int")
	}
}

func TestParamQualifiersAndPointerAndRef(t *testing.T) {
	got := Param(ParamType{TypeName: "int", CV: ir.CVConst, PointerDepth: 2, Ref: ir.RefLValue})
	want := "CintPPR"
	if got != want {
		t.Fatalf("Param = %q, want %q", got, want)
	}
}

func TestParamArrayExtent(t *testing.T) {
	got := Param(ParamType{TypeName: "char", ArrayExtent: 16})
	want := "charA16"
	if got != want {
		t.Fatalf("Param = %q, want %q", got, want)
	}
}

func TestParamsEmpty(t *testing.T) {
	if got := Params(nil); got != "" {
		t.Fatalf("Params(nil) = %q, want \"\"", got)
	}
}

func TestFreeFunction(t *testing.T) {
	got := FreeFunction("add", []ParamType{{TypeName: "int"}, {TypeName: "int"}})
	want := "add_int_int"
	if got != want {
		t.Fatalf("FreeFunction = %q, want %q", got, want)
	}
}

func TestMemberFunction(t *testing.T) {
	got := MemberFunction("Widget", "resize", []ParamType{{TypeName: "int"}})
	want := "Widget::resize_int"
	if got != want {
		t.Fatalf("MemberFunction = %q, want %q", got, want)
	}
}

func TestOperatorPlain(t *testing.T) {
	got := Operator("Vec", "+", false, "", []ParamType{{TypeName: "Vec"}})
	want := "Vec::operator+_Vec"
	if got != want {
		t.Fatalf("Operator = %q, want %q", got, want)
	}
}

func TestOperatorConversion(t *testing.T) {
	got := Operator("Vec", "", true, "float", nil)
	want := "Vec::operator float"
	if got != want {
		t.Fatalf("Operator (conversion) = %q, want %q", got, want)
	}
}

func TestConstructorAndDestructor(t *testing.T) {
	if got := Constructor("Widget", []ParamType{{TypeName: "int"}}); got != "Widget::Widget_int" {
		t.Fatalf("Constructor = %q", got)
	}
	if got := Destructor("Widget"); got != "Widget::~Widget" {
		t.Fatalf("Destructor = %q", got)
	}
}

func TestTemplateInstantiation(t *testing.T) {
	got := TemplateInstantiation("Vector", []ParamType{{TypeName: "int"}}, 0xabcd)
	want := "Vector_int$abcd"
	if got != want {
		t.Fatalf("TemplateInstantiation = %q, want %q", got, want)
	}
}

func TestLambdaClosureName(t *testing.T) {
	if got := LambdaClosureName(3, 0, false); got != "__lambda_3" {
		t.Fatalf("LambdaClosureName (no hash) = %q", got)
	}
	if got := LambdaClosureName(3, 42, true); got != "__lambda_3$2a" {
		t.Fatalf("LambdaClosureName (hash) = %q", got)
	}
}

func TestCallOperator(t *testing.T) {
	got := CallOperator("__lambda_0", nil)
	want := "__lambda_0::operator()"
	if got != want {
		t.Fatalf("CallOperator = %q, want %q", got, want)
	}
}

func TestStripInstantiationHash(t *testing.T) {
	if got := StripInstantiationHash("Vector_int$abcd"); got != "Vector_int" {
		t.Fatalf("StripInstantiationHash = %q, want %q", got, "Vector_int")
	}
	if got := StripInstantiationHash("Widget"); got != "Widget" {
		t.Fatalf("StripInstantiationHash (no hash) = %q, want %q", got, "Widget")
	}
}
