package cli

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/ripplelang/ripple/lang/vm"
)

// Repl runs an interactive read-compile-run loop over stdio.Stdin, running
// each line as its own module without printing its value: errors go to
// stderr and don't kill the session, only EOF does.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := LoadRuntimeConfig()
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "ripple: %s\n", err)
		return err
	}

	config := cfg.toVMConfig(stdio)
	config.Error = func(_ *vm.VM, kind vm.ErrorKind, module string, line int, message string) {
		fmt.Fprintf(stdio.Stderr, "%s:%d: %s\n", module, line, message)
	}
	interp := vm.NewVM(config)

	fmt.Fprintf(stdio.Stdout, "ripple interactive shell -- Ctrl-D to exit\n")
	scanner := bufio.NewScanner(stdio.Stdin)
	moduleNo := 0
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return scanner.Err()
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		moduleNo++
		name := fmt.Sprintf("<repl:%d>", moduleNo)
		_ = interp.Interpret(name, []byte(line))
	}
}
