// Package objwriter declares the shape of the out-of-scope object-file
// emission stage (spec.md §1/§6): the sink this core's lowered IR and
// frame/unwind metadata ultimately feed, via `backend.GenerateAssembler`'s
// role in the teacher (`src/backend/asm.go`) generalized from "emit one
// architecture's assembly text" to "emit a debug-capable object file."
package objwriter

import "flashcc/src/registry"

// ObjFileWriter_Debug is the boundary between this core and an object-file
// backend that also wants debug/unwind metadata, not just machine code.
// Spec §6 describes the normative shape this interface sketches: one call
// per function body, carrying the function's mangled name and unwind table;
// the machine code itself comes from the out-of-scope backend, not from the
// call's arguments.
type ObjFileWriter_Debug interface {
	// WriteFunction emits mangledName's machine code (already generated by
	// an out-of-scope backend from this core's ir.Ir) together with the
	// unwind information a debugger or exception unwinder needs to walk
	// past it.
	WriteFunction(mangledName registry.StringHandle, unwind UnwindInfo) error

	// Finish flushes and closes the object file, returning the first
	// error encountered across every WriteFunction call, if any.
	Finish() error
}

// UnwindInfo is the per-function frame-unwind record SEH (spec §4.5) and
// the calling convention's epilogue both need: where the frame pointer
// lives, how large the fixed frame is, and which byte ranges are covered by
// a `__finally` funclet that must run during unwind.
type UnwindInfo struct {
	// PrologEndOffset is the byte offset, relative to the function's
	// start, where the prologue ends and the steady-state frame layout
	// described by FrameSizeBytes/FrameRegister becomes valid.
	PrologEndOffset int

	// FrameSizeBytes is the fixed-size portion of the stack frame
	// (locals + spill slots + saved registers), excluding any
	// variable-sized alloca.
	FrameSizeBytes int

	// FrameRegister names the register the unwinder recovers other frame
	// slots relative to (e.g. "rbp", "x29").
	FrameRegister string

	// FuncletRanges lists every [start, end) byte range, relative to the
	// function's start, that a `__finally` funclet occupies — the unwinder
	// must invoke each one exactly once when unwinding past it (spec §4.5:
	// "every `__finally` block must execute exactly once").
	FuncletRanges []FuncletRange
}

// FuncletRange is one `__finally` funclet's [Start, End) byte extent within
// its owning function. It carries only the two offsets, not the
// TryEndLabel/FinallyLabel pair src/seh's Context uses during lowering.
type FuncletRange struct {
	Start int
	End   int
}
