package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/ripplelang/ripple/lang/compiler"
	"github.com/ripplelang/ripple/lang/vm"
)

// Parse compiles each file and dumps its disassembled bytecode, instead of
// running it. Ripple's compiler produces bytecode directly with no
// intermediate AST (unlike the teacher's parse/resolve commands, which
// print one), so disassembly is the closest equivalent debugging view.
func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var firstErr error
	for _, path := range args {
		if err := parseFile(stdio, path); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func parseFile(stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
		return err
	}

	prog, errs := compiler.Compile(src, compiler.Options{
		ModuleName:         path,
		AcceptTrailingSemi: true,
		KnownGlobals:       vm.CoreGlobalNames,
	})
	if errs != nil {
		for _, e := range errs {
			fmt.Fprintln(stdio.Stderr, e.Error())
		}
		return errs[0]
	}
	compiler.Disassemble(stdio.Stdout, prog)
	return nil
}
