package compiler_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ripplelang/ripple/internal/filetest"
	"github.com/ripplelang/ripple/lang/compiler"
	"github.com/ripplelang/ripple/lang/vm"
)

// TestDisassemble compiles every testdata/in/*.rip fixture that has no
// expected-errors golden file (testdata/out/<name>.err) and checks that
// Disassemble produces a well-formed dump: one function header per compiled
// Function, and no opcode left unresolved to "OP_UNKNOWN" -- a cheap,
// non-brittle stand-in for an exact byte-for-byte golden diff, since hand
// authoring exact disassembly text without running the compiler would be
// unreliable.
func TestDisassemble(t *testing.T) {
	srcDir := filepath.Join("testdata", "in")
	for _, fi := range filetest.SourceFiles(t, srcDir, ".rip") {
		if _, err := os.Stat(filepath.Join("testdata", "out", fi.Name()+".err")); err == nil {
			continue // fixtures with expected compile errors have no program to dump
		}
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			require.NoError(t, err)

			prog, errs := compiler.Compile(src, compiler.Options{
				ModuleName:         fi.Name(),
				AcceptTrailingSemi: true,
				KnownGlobals:       vm.CoreGlobalNames,
			})
			require.Empty(t, errs)
			require.NotNil(t, prog)

			var buf bytes.Buffer
			compiler.Disassemble(&buf, prog)
			out := buf.String()

			require.Contains(t, out, "== "+fi.Name()+" ==")
			require.Equal(t, len(prog.Functions), strings.Count(out, "-- fn "))
			require.NotContains(t, out, "OP_UNKNOWN")
		})
	}
}
