// Package cli is the out-of-core CLI collaborator for the Ripple language
// (spec §1/§6): it owns argument parsing, the REPL, and the debugging
// commands, and is the one piece of this repository allowed to do I/O.
// Shaped after the teacher's internal/maincmd: a flag-tagged Cmd struct, a
// Validate method, and reflection-driven subcommand dispatch.
package cli

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "ripple"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<command>] [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<path>]
       %[1]s tokenize <path>...
       %[1]s parse <path>...
       %[1]s -h|--help
       %[1]s -v|--version

A small, embeddable, class-based scripting language.

With no arguments, starts an interactive REPL. With a single <path>
argument that isn't one of the commands below, compiles and runs that file.

The <command> can be one of:
       tokenize                  Dump the lexer's token stream for each
                                 file instead of running it.
       parse                     Compile each file and dump its
                                 disassembled bytecode instead of running
                                 it (Ripple's compiler has no separate AST
                                 to print).

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
`, binName)
)

// Cmd is the root command, populated by mainer.Parser from flags and
// positional arguments.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) { c.flags = flags }

// Validate picks the subcommand to run: an explicit "tokenize"/"parse", a
// bare file path (implicit "run"), or neither (the REPL).
func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		c.cmdFn = c.Repl
		return nil
	}

	commands := buildCmds(c)
	if fn, ok := commands[c.args[0]]; ok {
		rest := c.args[1:]
		if len(rest) == 0 {
			return fmt.Errorf("%s: at least one file must be provided", c.args[0])
		}
		c.cmdFn = fn
		c.args = rest
		return nil
	}

	c.cmdFn = c.Run
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args); err != nil {
		if ce, ok := err.(*exitError); ok {
			return ce.code
		}
		return mainer.Failure
	}
	return mainer.Success
}

// exitError carries a specific process exit code (spec §6: 65 for a compile
// error, 70 for a runtime error) through the mainer.ExitCode boundary.
type exitError struct {
	code mainer.ExitCode
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

const (
	exitCompileError mainer.ExitCode = 65
	exitRuntimeError mainer.ExitCode = 70
)

// buildCmds mirrors the teacher's reflection-based dispatch: any method
// matching func(context.Context, mainer.Stdio, []string) error becomes a
// subcommand named after its lowercased method name.
func buildCmds(v any) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
