// Command flashcc drives a single compilation: parse flags, hand source off
// to the (external, out-of-scope) frontend, lower the resulting AST, and
// hand the resulting IR off to the (external, out-of-scope) backend.
//
// Grounded on src/main.go's run() shape (read source -> parse -> optimise ->
// validate -> codegen), trimmed to what this repository actually owns: the
// AstToIr lowering core sits in the middle of that pipeline, with a real
// parser and a real object-file backend as the two stages this spec
// explicitly leaves external (spec.md §1/§6).
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"flashcc/src/abi"
	"flashcc/src/lower"
)

// options mirrors the teacher's util.Options: one flat struct threaded
// through the whole run, rather than a collection of implicit globals.
type options struct {
	src                   string
	threads               int
	verbose               bool
	accessControlDisabled bool
	llp64                 bool
}

const maxThreads = 64

func parseArgs(args []string) (options, error) {
	opt := options{threads: 1}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-vb":
			opt.verbose = true
		case "-llp64":
			opt.llp64 = true
		case "-no-access":
			opt.accessControlDisabled = true
		case "-t":
			if i+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i])
			}
			i++
			t, err := strconv.Atoi(args[i])
			if err != nil || t <= 0 || t > maxThreads {
				return opt, fmt.Errorf("thread count must be an integer in range [1, %d]", maxThreads)
			}
			opt.threads = t
		default:
			if strings.HasPrefix(args[i], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i])
			}
			opt.src = args[i]
		}
	}
	return opt, nil
}

func printHelp() {
	fmt.Println("usage: flashcc [-vb] [-llp64] [-no-access] [-t n] <source>")
	fmt.Println("  -vb         verbose: print lowering diagnostics to stdout")
	fmt.Println("  -llp64      target an LLP64 ABI (Windows x64) instead of SysV")
	fmt.Println("  -no-access  disable public/protected/private enforcement")
	fmt.Println("  -t n        thread count in [1, 64]; accepted but not used by lowering")
}

// frontend is the seam an external parser plugs into: given source text it
// returns the translation unit's top-level function bodies ready for
// lower.LowerProgram. spec.md §1/§6 name the lexer/parser as an
// out-of-scope collaborator, so no implementation is wired here — a real
// deployment replaces this variable before calling run.
var frontend func(src string) ([]lower.FunctionWork, error)

// backend is the seam an external object-file/assembly emitter plugs into,
// consuming the fully-lowered ir.Ir (spec.md §1/§6: "an out-of-scope
// collaborator"). Left nil for the same reason as frontend.
var backend func(l *lower.Lowerer) error

func run(opt options) error {
	if opt.src == "" {
		return fmt.Errorf("no source file given")
	}
	src, err := os.ReadFile(opt.src)
	if err != nil {
		return fmt.Errorf("could not read source: %w", err)
	}

	if frontend == nil {
		return fmt.Errorf("no frontend wired: flashcc's AstToIr core expects " +
			"an already-parsed translation unit (spec.md §1/§6); set " +
			"cmd/flashcc's frontend variable to a real parser before running")
	}
	funcs, err := frontend(string(src))
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	target := abi.SysV
	if opt.llp64 {
		target = abi.MSx64
	}
	l := lower.NewLowerer(target)
	l.Verbose = opt.verbose
	l.AccessControlDisabled = opt.accessControlDisabled

	if err := l.LowerProgram(funcs); err != nil {
		return fmt.Errorf("lowering error: %w", err)
	}
	for _, w := range l.Diag.Warnings() {
		fmt.Fprintln(os.Stderr, w)
	}
	if opt.verbose {
		for _, d := range l.Diag.DebugNotes() {
			fmt.Fprintln(os.Stdout, d)
		}
		fmt.Printf("lowered %d top-level functions, %d IR instructions\n", len(funcs), l.Program.Len())
	}

	if backend == nil {
		return nil
	}
	if err := backend(l); err != nil {
		return fmt.Errorf("backend error: %w", err)
	}
	return nil
}

func main() {
	opt, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "flashcc: %s\n", err)
		os.Exit(1)
	}
	if err := run(opt); err != nil {
		fmt.Fprintf(os.Stderr, "flashcc: %s\n", err)
		os.Exit(1)
	}
}
