package lower

import (
	"fmt"
	"sync"
)

// Diagnostics buffers warnings and debug-recovery notes without halting
// lowering (spec.md §7: "Warnings... logged; emission continues" and
// "Recoverable... silent recovery with debug logging").
//
// Grounded on the teacher's src/util/perror.go buffered error collector,
// adapted from a parallel multi-writer channel listener (vslc validates
// function bodies across a worker pool and funnels failures through a
// channel) to a plain mutex-guarded slice: this core's single-pass lowering
// of one function body is sequential, but the deferred-queue drain and the
// concurrent function-body lowering (pipeline.go) both append to one
// shared Diagnostics sink.
type Diagnostics struct {
	mx       sync.Mutex
	warnings []string
	debug    []string
}

// NewDiagnostics returns an empty Diagnostics sink.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Warnf records a warning.
func (d *Diagnostics) Warnf(format string, args ...interface{}) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

// Debugf records a recoverable-path debug note.
func (d *Diagnostics) Debugf(format string, args ...interface{}) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.debug = append(d.debug, fmt.Sprintf(format, args...))
}

// Warnings returns a snapshot of recorded warnings.
func (d *Diagnostics) Warnings() []string {
	d.mx.Lock()
	defer d.mx.Unlock()
	out := make([]string, len(d.warnings))
	copy(out, d.warnings)
	return out
}

// DebugNotes returns a snapshot of recorded recoverable-path notes.
func (d *Diagnostics) DebugNotes() []string {
	d.mx.Lock()
	defer d.mx.Unlock()
	out := make([]string, len(d.debug))
	copy(out, d.debug)
	return out
}
