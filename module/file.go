package module

import (
	"os"
	"path/filepath"

	"github.com/emberlisp/ember/code"
	"github.com/emberlisp/ember/compiler"
	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/scope"
	"github.com/emberlisp/ember/value"
)

// Evaluator is the compiler.Evaluator a loaded module's forms are
// compiled against, extended with the ability to actually run a
// compiled top-level form. A `define`'s effect (scope.SetValue) only
// happens when its OpSetDef instruction executes, not when it is
// compiled (compiler/operators.go's compileDefine defers to runtime
// exactly like any other expression), so FileLoader must run each
// top-level form immediately after compiling it for later forms in the
// same file to see earlier ones' definitions — the same compile-then-
// execute-then-compile-next sequencing a REPL or script loader uses.
type Evaluator interface {
	compiler.Evaluator
	Run(c *code.Code) (value.Value, error)
}

// SourceExt and CompiledExt are the default extensions FileLoader
// searches for, matching spec.md §6.9's `.kts` source / `.ktsc`
// compiled-artifact pairing.
const (
	SourceExt   = ".kts"
	CompiledExt = ".ktsc"
)

// SourceParser turns a module file's bytes into the top-level forms to
// compile, decoupling module from the lexer/parser's concrete API (which
// a later rewrite may still be adjusting) the same way compiler decouples
// itself from the VM via compiler.Evaluator.
type SourceParser interface {
	ParseAll(src []byte, path string) ([]value.Value, error)
}

// CompiledArtifact is a stub for a `.ktsc` file already decoded from
// disk: spec.md §1 explicitly places the compiled bytecode file format
// out of scope, so FileLoader only carries the version tag a real
// decoder would check for staleness, and otherwise treats a present
// `.ktsc` as a cache-validity hint rather than a source of bytecode to
// execute directly.
type CompiledArtifact struct {
	Version int
}

// ArtifactDecoder decodes a `.ktsc` file's bytes into a CompiledArtifact.
// Injected so a real bytecode-file reader can be wired in later without
// changing FileLoader.
type ArtifactDecoder interface {
	Decode(data []byte) (CompiledArtifact, error)
}

// FileLoader resolves a module name to a `.kts` source file under one of
// SearchPaths, compiles it with a fresh Scope backed by the owning
// Registry, and returns the result as a Module. It follows GlyphLang's
// ModuleResolver shape (search-path list, extension probing, read
// failure wrapped as a loader error) adapted to Ember's one-file-per-
// module naming (a `use` name maps directly to `<name>.kts`, with no
// main.kts/index.kts directory-as-module fallback, since spec.md has no
// notion of a module directory).
type FileLoader struct {
	SearchPaths []string
	Interner    *name.Interner
	// NewEvaluator builds the Evaluator a single module's compile-and-run
	// pass uses, bound to that module's own Scope. A fresh one is built
	// per Load call (not shared across modules) since a running Code's
	// top-level lookups resolve against the Scope of the VM executing
	// it.
	NewEvaluator func(s *scope.Scope) Evaluator
	Parser       SourceParser
	Decoder      ArtifactDecoder // optional; nil disables the .ktsc freshness check
}

func (fl *FileLoader) Load(reg *Registry, moduleName string) (*Module, error) {
	srcPath, ok := fl.findSource(moduleName)
	if !ok {
		return nil, ErrNotFound{Name: moduleName}
	}

	if fl.Decoder != nil {
		if compiledPath, ok := fl.compiledSibling(srcPath); ok {
			if fresh, err := isFresh(srcPath, compiledPath); err == nil && fresh {
				data, err := os.ReadFile(compiledPath)
				if err == nil {
					if _, err := fl.Decoder.Decode(data); err == nil {
						// A real decoder would return executable code
						// directly here; ours only validates the tag,
						// so we fall through and recompile from source.
						_ = data
					}
				}
			}
		}
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, ErrLoad{Name: moduleName, Err: err}
	}
	forms, err := fl.Parser.ParseAll(data, srcPath)
	if err != nil {
		return nil, ErrLoad{Name: moduleName, Err: err}
	}

	s := scope.New(fl.Interner, reg)
	ev := fl.NewEvaluator(s)
	c := compiler.New(s, ev)
	for _, form := range forms {
		compiled, err := c.Compile(form)
		if err != nil {
			return nil, ErrLoad{Name: moduleName, Err: err}
		}
		if _, err := ev.Run(compiled); err != nil {
			return nil, ErrLoad{Name: moduleName, Err: err}
		}
	}

	return &Module{Name: moduleName, Path: srcPath, scope: s}, nil
}

func (fl *FileLoader) findSource(moduleName string) (string, bool) {
	rel := filepath.FromSlash(moduleName) + SourceExt
	for _, dir := range fl.SearchPaths {
		full := filepath.Join(dir, rel)
		if st, err := os.Stat(full); err == nil && !st.IsDir() {
			return full, true
		}
	}
	return "", false
}

func (fl *FileLoader) compiledSibling(srcPath string) (string, bool) {
	p := srcPath[:len(srcPath)-len(SourceExt)] + CompiledExt
	if st, err := os.Stat(p); err == nil && !st.IsDir() {
		return p, true
	}
	return "", false
}

// isFresh reports whether compiledPath's modification time is at least
// as recent as srcPath's — a stale .ktsc is ignored in favour of
// recompiling from source.
func isFresh(srcPath, compiledPath string) (bool, error) {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return false, err
	}
	compInfo, err := os.Stat(compiledPath)
	if err != nil {
		return false, err
	}
	return !compInfo.ModTime().Before(srcInfo.ModTime()), nil
}
