// Package config loads the compiler's ambient configuration: module
// search paths, source/compiled file extensions, the bytecode operand
// width, and the macro expansion recursion limit, from a YAML file.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/emberlisp/ember/module"
)

// DefaultMacroRecursionLimit matches compiler/macro.go's built-in
// MacroRecursionExceeded threshold (spec.md §4.2).
const DefaultMacroRecursionLimit = 100

// CompilerConfig is the YAML-decoded shape of an emberc config file.
type CompilerConfig struct {
	SearchPaths []string `yaml:"search_paths"`
	SourceExt   string   `yaml:"source_ext"`
	CompiledExt string   `yaml:"compiled_ext"`

	// WideOperands is informational only: code/assemble.go's chooseWidth
	// picks the operand width from its own size estimate and does not
	// read this field.
	WideOperands bool `yaml:"wide_operands"`

	// MacroRecursionLimit is informational only: spec.md §4.2 fixes the
	// real limit compiler.Compile enforces at 100
	// (compiler/compiler.go's maxMacroRecursion), so this field is
	// surfaced to the operator but not threaded into the compiler.
	MacroRecursionLimit int `yaml:"macro_recursion_limit"`
}

// Default returns a CompilerConfig with spec.md's default extensions
// and recursion limit, searching only the current directory.
func Default() CompilerConfig {
	return CompilerConfig{
		SearchPaths:         []string{"."},
		SourceExt:           module.SourceExt,
		CompiledExt:         module.CompiledExt,
		MacroRecursionLimit: DefaultMacroRecursionLimit,
	}
}

// Load reads and decodes a YAML config file at path, filling in any
// zero-valued field from Default().
func Load(path string) (CompilerConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return CompilerConfig{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CompilerConfig{}, err
	}
	if cfg.SourceExt == "" {
		cfg.SourceExt = module.SourceExt
	}
	if cfg.CompiledExt == "" {
		cfg.CompiledExt = module.CompiledExt
	}
	if cfg.MacroRecursionLimit == 0 {
		cfg.MacroRecursionLimit = DefaultMacroRecursionLimit
	}
	if len(cfg.SearchPaths) == 0 {
		cfg.SearchPaths = []string{"."}
	}
	return cfg, nil
}
