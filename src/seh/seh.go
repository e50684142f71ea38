// Package seh models Structured Exception Handling at IR level, per
// spec.md §4.5: a per-function stack of active __try contexts, and the
// finally-funclet call insertion every exit path (fall-through, return,
// break, continue, __leave) requires.
//
// Grounded on the teacher's src/util/label.go (a channel-serialized,
// monotonically increasing label generator) for finally/try-end label
// synthesis, and src/ir/lir/branch.go's labeled-block shape for the general
// "jump to a label, resume at the label after it" control flow SEH needs.
package seh

import (
	"fmt"
	"sync"

	"flashcc/src/registry"
)

// Context is one active __try's bookkeeping: where its lexical end is,
// which finally funclet (if any) guards it, and whether it has one.
type Context struct {
	TryEndLabel   registry.StringHandle
	FinallyLabel  registry.StringHandle
	HasFinally    bool
	LoopDepthAtEntry int // SEH depth recorded at the innermost enclosing loop's entry when this __try was entered (0 outside any loop); the unwind helpers below do not read it.
}

// Stack is the per-function seh_context_stack_ spec.md §4.5 names.
type Stack struct {
	contexts []Context
}

// NewStack returns an empty SEH context stack.
func NewStack() *Stack { return &Stack{} }

// Push enters a new __try context.
func (s *Stack) Push(c Context) { s.contexts = append(s.contexts, c) }

// Pop exits the innermost __try context.
func (s *Stack) Pop() {
	if len(s.contexts) > 0 {
		s.contexts = s.contexts[:len(s.contexts)-1]
	}
}

// Depth returns the number of currently active __try contexts.
func (s *Stack) Depth() int { return len(s.contexts) }

// Innermost returns the innermost active context and whether one exists
// (for __leave, which jumps to the innermost try_end_label).
func (s *Stack) Innermost() (Context, bool) {
	if len(s.contexts) == 0 {
		return Context{}, false
	}
	return s.contexts[len(s.contexts)-1], true
}

// UnwindForReturn walks the stack innermost-to-outermost, returning every
// context whose finally funclet must be called before a `return` completes
// (spec.md §4.5: "the lowerer walks the stack from innermost outward").
func (s *Stack) UnwindForReturn() []Context {
	out := make([]Context, 0, len(s.contexts))
	for i := len(s.contexts) - 1; i >= 0; i-- {
		if s.contexts[i].HasFinally {
			out = append(out, s.contexts[i])
		}
	}
	return out
}

// UnwindForLoopExit returns the finally contexts a `break`/`continue` must
// call: only those entered after loopDepth, per spec.md §4.5 ("On
// break/continue, only contexts deeper than the loop's recorded SEH depth
// are unwound").
func (s *Stack) UnwindForLoopExit(loopDepth int) []Context {
	out := make([]Context, 0, len(s.contexts))
	for i := len(s.contexts) - 1; i >= 0 && i >= loopDepth; i-- {
		if s.contexts[i].HasFinally {
			out = append(out, s.contexts[i])
		}
	}
	return out
}

// LabelGen hands out monotonically increasing label names, unique per prefix
// within one LabelGen. Grounded directly on the teacher's util/label.go
// channel-serialized generator; a mutex is used here in place of a
// goroutine+channel listener, and it serializes allocation from the function
// bodies that lower/pipeline.go lowers concurrently against one shared
// LabelGen.
type LabelGen struct {
	mx      sync.Mutex
	indices map[string]int
}

// NewLabelGen returns a ready-to-use LabelGen.
func NewLabelGen() *LabelGen {
	return &LabelGen{indices: make(map[string]int)}
}

// New returns a new label with the given prefix, e.g. New("__seh_finally")
// -> "__seh_finally_000", then "__seh_finally_001", ...
func (g *LabelGen) New(prefix string) string {
	g.mx.Lock()
	defer g.mx.Unlock()
	n := g.indices[prefix]
	g.indices[prefix] = n + 1
	return fmt.Sprintf("%s_%03d", prefix, n)
}
