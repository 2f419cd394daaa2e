// cmd/polytope/main.go
package main

import (
	"fmt"
	"os"

	"github.com/llir/llvm/asm"

	"github.com/sentra-lang/polytope"
)

var commandAliases = map[string]string{
	"o": "optimize",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "optimize":
		if err := runOptimize(args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, "polytope:", err)
			os.Exit(1)
		}
	default:
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("usage: polytope optimize <file.ll>")
}

// runOptimize parses path as LLVM IR, runs the pass over every
// function in the module, and writes the (possibly rewritten) module
// back to stdout.
func runOptimize(rest []string) error {
	if len(rest) != 1 {
		return fmt.Errorf("optimize requires exactly one .ll file")
	}

	mod, err := asm.ParseFile(rest[0])
	if err != nil {
		return fmt.Errorf("parsing %s: %w", rest[0], err)
	}

	pass := polytope.New(polytope.WithLogger(os.Stderr))
	for _, fn := range mod.Funcs {
		if len(fn.Blocks) == 0 {
			continue // declaration only
		}
		if _, err := pass.Run(mod, fn); err != nil {
			fmt.Fprintf(os.Stderr, "polytope: %s: %v\n", fn.Ident(), err)
		}
	}

	fmt.Print(mod.String())
	return nil
}
