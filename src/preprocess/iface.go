// Package preprocess declares the shape of the out-of-scope preprocessor
// and lexer stage (spec.md §1/§6: "consumed as a token stream and a line
// map, not implemented here"). Nothing in this package has a body; it
// exists so src/lower and cmd/flashcc can be written against a concrete
// Go interface instead of an implicit contract.
//
// Grounded on src/util/io.go's ReadSource/Writer pair: the teacher treats
// source acquisition and output emission as thin I/O boundaries the rest
// of the compiler depends on only through a narrow function/interface
// surface, never through direct os.File handling scattered across
// packages.
package preprocess

// FileReader loads translation-unit source text and resolves macro-expanded
// spans back to their originating file/line/column, the same "boundary
// between this repo and an upstream stage" role src/util.ReadSource plays
// for vslc's single-file lexer input.
type FileReader interface {
	// ReadSource returns the fully preprocessed token-ready source text for
	// path, with every #include expanded and every macro substituted.
	ReadSource(path string) (string, error)

	// LineMap returns the SourceLineMapping that resolves a byte offset in
	// the text ReadSource returned back to its original (possibly
	// included/macro-expanded) location.
	LineMap(path string) (SourceLineMapping, error)
}

// SourceLineMapping resolves an offset into preprocessed source text back
// to the file, line and column the programmer actually wrote, so
// diagnostics (spec.md §7) can report a useful location even after macro
// expansion and #include flattening have rewritten the text the lowering
// core actually walks.
type SourceLineMapping interface {
	// Resolve returns the originating file path, line and column for a
	// byte offset into the preprocessed text.
	Resolve(offset int) (file string, line, col int, ok bool)
}
