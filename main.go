package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/emberlisp/ember/compiler"
	"github.com/emberlisp/ember/module"
	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/parser"
	"github.com/emberlisp/ember/scope"
	"github.com/emberlisp/ember/value"
	"github.com/emberlisp/ember/vm"
)

const version = "0.1.0"
const prompt = "ember>> "

const welcome = `Ember ` + version + ` -- a small Lisp-family language
Type an expression, or "exit" to quit.`

var (
	showVersion = flag.Bool("version", false, "Show version and exit")
	showHelp    = flag.Bool("help", false, "Show help and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("ember v%s\n", version)
		return
	}

	if *showHelp {
		printHelp()
		return
	}

	args := flag.Args()
	if len(args) > 0 {
		runFile(args[0])
		return
	}

	fmt.Println(welcome)
	fmt.Println()
	startREPL(os.Stdin, os.Stdout)
}

func printHelp() {
	fmt.Println("ember - a small Lisp-family language")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  ember [OPTIONS] [FILE]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --version     Show version and exit")
	fmt.Println("  --help        Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  ember                  # start the REPL")
	fmt.Println("  ember program.kts      # run a source file")
}

// newMachine wires a fresh Interner, Scope, Compiler and VM together,
// the module-level pipeline a REPL line or a whole file is compiled and
// run against. A builtin-and-file-backed Registry lets `use` resolve
// both the math/random/code modules and sibling .kts files.
func newMachine() (*name.Interner, *compiler.Compiler, *vm.VM) {
	in := name.New()
	reg := module.New(
		module.NewBuiltinLoader(in),
		&module.FileLoader{
			SearchPaths: []string{"."},
			Interner:    in,
			Parser:      &parser.Reader{Interner: in},
			NewEvaluator: func(s *scope.Scope) module.Evaluator {
				return vm.New(s)
			},
		},
	)
	sc := scope.New(in, reg)
	machine := vm.New(sc)
	return in, compiler.New(sc, machine), machine
}

func startREPL(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	interner, comp, machine := newMachine()
	reader := &parser.Reader{Interner: interner}

	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return
		}

		line := scanner.Text()
		if line == "exit" || line == "quit" {
			fmt.Fprintln(out, "bye")
			return
		}
		if line == "" {
			continue
		}

		forms, err := reader.ParseAll([]byte(line), "<repl>")
		if err != nil {
			fmt.Fprintf(out, "parse error: %s\n", err)
			continue
		}

		var result value.Value = value.Unit{}
		failed := false
		for _, form := range forms {
			compiled, err := comp.Compile(form)
			if err != nil {
				fmt.Fprintf(out, "compile error: %s\n", err)
				failed = true
				break
			}
			result, err = machine.Run(compiled)
			if err != nil {
				fmt.Fprintf(out, "runtime error: %s\n", err)
				failed = true
				break
			}
		}
		if !failed {
			io.WriteString(out, result.String())
			io.WriteString(out, "\n")
		}
	}
}

func runFile(filename string) {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read file: %s\n", err)
		os.Exit(1)
	}

	interner, comp, machine := newMachine()
	reader := &parser.Reader{Interner: interner}

	forms, err := reader.ParseAll(content, filename)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}

	for _, form := range forms {
		compiled, err := comp.Compile(form)
		if err != nil {
			fmt.Fprintln(os.Stderr, "compile error:", err)
			os.Exit(1)
		}
		if _, err := machine.Run(compiled); err != nil {
			fmt.Fprintln(os.Stderr, "runtime error:", err)
			os.Exit(1)
		}
	}
}
