// Command ripple is the standalone compiler, runner, and REPL for the
// Ripple language.
package main

import (
	"os"

	"github.com/mna/mainer"

	"github.com/ripplelang/ripple/internal/cli"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	c := cli.Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
