package seh

import "testing"

func TestStackPushPopDepth(t *testing.T) {
	s := NewStack()
	if s.Depth() != 0 {
		t.Fatalf("Depth() = %d, want 0", s.Depth())
	}
	s.Push(Context{HasFinally: true})
	s.Push(Context{HasFinally: false})
	if s.Depth() != 2 {
		t.Fatalf("Depth() = %d, want 2", s.Depth())
	}
	s.Pop()
	if s.Depth() != 1 {
		t.Fatalf("Depth() = %d, want 1", s.Depth())
	}
}

func TestStackInnermost(t *testing.T) {
	s := NewStack()
	if _, ok := s.Innermost(); ok {
		t.Fatal("Innermost() on an empty stack should report false")
	}
	s.Push(Context{TryEndLabel: 1})
	s.Push(Context{TryEndLabel: 2})
	c, ok := s.Innermost()
	if !ok || c.TryEndLabel != 2 {
		t.Fatalf("Innermost() = %+v, ok=%v; want TryEndLabel=2", c, ok)
	}
}

func TestUnwindForReturnInnermostFirst(t *testing.T) {
	s := NewStack()
	s.Push(Context{FinallyLabel: 1, HasFinally: true})
	s.Push(Context{HasFinally: false})
	s.Push(Context{FinallyLabel: 3, HasFinally: true})
	got := s.UnwindForReturn()
	if len(got) != 2 || got[0].FinallyLabel != 3 || got[1].FinallyLabel != 1 {
		t.Fatalf("UnwindForReturn() = %+v, want [{3}, {1}]", got)
	}
}

func TestUnwindForLoopExitRespectsDepth(t *testing.T) {
	s := NewStack()
	s.Push(Context{FinallyLabel: 1, HasFinally: true}) // depth 0, outside the loop
	loopDepth := s.Depth()
	s.Push(Context{FinallyLabel: 2, HasFinally: true}) // depth 1, inside the loop
	got := s.UnwindForLoopExit(loopDepth)
	if len(got) != 1 || got[0].FinallyLabel != 2 {
		t.Fatalf("UnwindForLoopExit(%d) = %+v, want only the context entered inside the loop", loopDepth, got)
	}
}

func TestLabelGenMonotonicPerPrefix(t *testing.T) {
	g := NewLabelGen()
	a := g.New("__seh_finally")
	b := g.New("__seh_finally")
	c := g.New("__seh_try_end")
	if a == b {
		t.Fatalf("two labels with the same prefix collided: %q", a)
	}
	if a != "__seh_finally_000" || b != "__seh_finally_001" {
		t.Fatalf("labels = %q, %q; want __seh_finally_000, __seh_finally_001", a, b)
	}
	if c != "__seh_try_end_000" {
		t.Fatalf("label = %q, want __seh_try_end_000 (independent counter per prefix)", c)
	}
}
