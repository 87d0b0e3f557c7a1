// Command emberc compiles and inspects Ember source files: a cobra CLI
// in GlyphLang's cmd/glyph shape (root command, subcommands, colored
// diagnostics) over Ember's parser/compiler/vm/module pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/emberlisp/ember/compiler"
	"github.com/emberlisp/ember/config"
	"github.com/emberlisp/ember/module"
	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/parser"
	"github.com/emberlisp/ember/scope"
	"github.com/emberlisp/ember/value"
	"github.com/emberlisp/ember/vm"
)

var version = "0.1.0"

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
)

func printInfo(msg string)    { infoColor.Fprintln(os.Stdout, "[info] "+msg) }
func printSuccess(msg string) { successColor.Fprintln(os.Stdout, "[ok] "+msg) }
func printErr(err error)      { errorColor.Fprintln(os.Stderr, "[error] "+err.Error()) }

func main() {
	rootCmd := &cobra.Command{
		Use:     "emberc",
		Short:   "Compiler and inspection tool for the Ember language",
		Version: version,
	}

	var cfgPath string
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to an emberc.yaml config file")

	compileCmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile and run an Ember source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args[0], cfgPath)
		},
	}

	disasmCmd := &cobra.Command{
		Use:   "disasm <file>",
		Short: "Compile an Ember source file and print its disassembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisasm(args[0])
		},
	}

	modulesCmd := &cobra.Command{
		Use:   "modules <file>",
		Short: "List the modules an Ember source file imports via `use`",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModules(args[0], cfgPath)
		},
	}

	rootCmd.AddCommand(compileCmd, disasmCmd, modulesCmd)

	if err := rootCmd.Execute(); err != nil {
		printErr(err)
		os.Exit(1)
	}
}

func loadConfig(cfgPath string) config.CompilerConfig {
	if cfgPath == "" {
		return config.Default()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		printErr(fmt.Errorf("reading config %s: %w", cfgPath, err))
		return config.Default()
	}
	return cfg
}

// newPipeline builds a fresh Interner, a module Registry wired with the
// builtin and filesystem loaders, and a SourceParser, sharing the same
// setup runCompile/runModules both need.
func newPipeline(cfg config.CompilerConfig) (*name.Interner, *module.Registry, *parser.Reader) {
	in := name.New()
	reg := module.New(
		module.NewBuiltinLoader(in),
		&module.FileLoader{
			SearchPaths: cfg.SearchPaths,
			Interner:    in,
			Parser:      &parser.Reader{Interner: in},
			NewEvaluator: func(s *scope.Scope) module.Evaluator {
				return vm.New(s)
			},
		},
	)
	return in, reg, &parser.Reader{Interner: in}
}

func runCompile(path string, cfgPath string) error {
	cfg := loadConfig(cfgPath)
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	in, reg, reader := newPipeline(cfg)
	forms, err := reader.ParseAll(src, path)
	if err != nil {
		return err
	}

	s := scope.New(in, reg)
	machine := vm.New(s)
	c := compiler.New(s, machine)

	var last value.Value = value.Unit{}
	for _, form := range forms {
		compiled, err := c.Compile(form)
		if err != nil {
			return fmt.Errorf("compile error: %w", err)
		}
		result, err := machine.Run(compiled)
		if err != nil {
			return fmt.Errorf("runtime error: %w", err)
		}
		last = result
	}

	printSuccess(fmt.Sprintf("compiled and ran %d form(s) from %s", len(forms), path))
	printInfo(fmt.Sprintf("result: %s", last.String()))
	return nil
}

func runDisasm(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	in := name.New()
	reader := &parser.Reader{Interner: in}
	forms, err := reader.ParseAll(src, path)
	if err != nil {
		return err
	}

	s := scope.New(in, module.New())
	machine := vm.New(s)
	c := compiler.New(s, machine)

	for i, form := range forms {
		compiled, err := c.Compile(form)
		if err != nil {
			return fmt.Errorf("compile error in form %d: %w", i, err)
		}
		fmt.Printf("; form %d\n", i)
		fmt.Print(Disassemble(compiled, in))
		fmt.Println()
	}
	return nil
}

func runModules(path string, cfgPath string) error {
	cfg := loadConfig(cfgPath)
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	in, _, reader := newPipeline(cfg)
	forms, err := reader.ParseAll(src, path)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, form := range forms {
		lst, ok := form.(value.List)
		if !ok || len(lst.Items) == 0 {
			continue
		}
		head, ok := lst.Items[0].(value.NameVal)
		if !ok || head.Name != name.OpUse || len(lst.Items) < 2 {
			continue
		}
		mn, ok := lst.Items[1].(value.NameVal)
		if !ok {
			continue
		}
		if !seen[mn.Text] {
			seen[mn.Text] = true
			fmt.Println(mn.Text)
		}
	}
	if len(seen) == 0 {
		printInfo(path + " imports no modules")
	}
	return nil
}
