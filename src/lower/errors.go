package lower

import (
	"fmt"

	"github.com/pkg/errors"

	"flashcc/src/ast"
)

// Severity classifies a LoweringError per spec.md §7's taxonomy.
type Severity int

const (
	// SeverityInternal is an internal invariant violation: missing
	// symbol, bad type index, unbalanced preprocessor stack. Always
	// fatal.
	SeverityInternal Severity = iota
	// SeveritySemantic is a hard error in the input program: access
	// violation, explicit-constructor implicit use, abstract-class
	// instantiation, unsatisfied requires clause, ambiguous/no matching
	// overload, non-SFINAE template substitution failure.
	SeveritySemantic
)

// LoweringError is the one error type every emitter in this package
// returns for internal-invariant and semantic failures (spec.md §7,
// resolving §9's note to unify the teacher's mixed throw/log-and-continue
// error model into a single explicit result type). It wraps
// github.com/pkg/errors so a failure deep in a recursive lowering call
// keeps its originating stack frame.
type LoweringError struct {
	Severity Severity
	Line     int
	Pos      int
	Function string // Enclosing function's mangled name, if known.
	cause    error
}

func (e *LoweringError) Error() string {
	loc := fmt.Sprintf("%d:%d", e.Line, e.Pos)
	if e.Function != "" {
		return fmt.Sprintf("%s: in %s: %s", loc, e.Function, e.cause)
	}
	return fmt.Sprintf("%s: %s", loc, e.cause)
}

// Unwrap exposes the wrapped cause so errors.Is/As work against it.
func (e *LoweringError) Unwrap() error { return e.cause }

// newError builds a LoweringError located at n, wrapping msg (formatted
// like fmt.Sprintf) with a stack trace via github.com/pkg/errors.
func newError(sev Severity, fn string, n *ast.Node, format string, args ...interface{}) *LoweringError {
	line, pos := 0, 0
	if n != nil {
		line, pos = n.Line, n.Pos
	}
	return &LoweringError{
		Severity: sev,
		Line:     line,
		Pos:      pos,
		Function: fn,
		cause:    errors.Errorf(format, args...),
	}
}

// internalError reports an internal invariant violation (spec §7: fatal,
// locates the offending token and enclosing function).
func (l *FuncLowerer) internalError(n *ast.Node, format string, args ...interface{}) *LoweringError {
	return newError(SeverityInternal, l.Reg.Strings.String(l.mangledName), n, format, args...)
}

// semanticError reports a hard semantic error (spec §7: emission halts for
// the affected function).
func (l *FuncLowerer) semanticError(n *ast.Node, format string, args ...interface{}) *LoweringError {
	return newError(SeveritySemantic, l.Reg.Strings.String(l.mangledName), n, format, args...)
}
