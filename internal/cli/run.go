package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/ripplelang/ripple/lang/vm"
)

// Run compiles and executes each file in turn (spec §6: a bare script-path
// argument, the common case). The first file that fails to compile or run
// stops the whole invocation.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := LoadRuntimeConfig()
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "ripple: %s\n", err)
		return &exitError{code: mainer.Failure, err: err}
	}

	for _, path := range args {
		if err := runFile(stdio, cfg, path); err != nil {
			return err
		}
	}
	return nil
}

func runFile(stdio mainer.Stdio, cfg RuntimeConfig, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "ripple: %s\n", err)
		return &exitError{code: mainer.Failure, err: err}
	}

	sawCompileError := false
	config := cfg.toVMConfig(stdio)
	config.Error = func(_ *vm.VM, kind vm.ErrorKind, module string, line int, message string) {
		fmt.Fprintf(stdio.Stderr, "%s:%d: %s\n", module, line, message)
		if kind == vm.ErrorCompile {
			sawCompileError = true
		}
	}

	interp := vm.NewVM(config)
	if err := interp.Interpret(path, src); err != nil {
		code := exitRuntimeError
		if sawCompileError {
			code = exitCompileError
		}
		return &exitError{code: code, err: err}
	}
	return nil
}
