package compiler_test

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ripplelang/ripple/internal/filetest"
	"github.com/ripplelang/ripple/lang/compiler"
	"github.com/ripplelang/ripple/lang/vm"
)

var testUpdateCompilerErrorTests = flag.Bool("test.update-compiler-error-tests", false, "If set, replace expected compiler error test results with actual results.")

// TestCompileErrors compiles every testdata/in/*.rip fixture and diffs its
// accumulated CompileErrors against the matching testdata/out/*.rip.err
// golden file, exercising filetest.DiffErrors the same way the teacher's
// scanner/resolver tests do. A fixture that compiles cleanly has no golden
// file at all -- DiffErrors treats a missing golden file as "want nothing".
func TestCompileErrors(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".rip") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			require.NoError(t, err)

			_, errs := compiler.Compile(src, compiler.Options{
				ModuleName:         fi.Name(),
				AcceptTrailingSemi: true,
				KnownGlobals:       vm.CoreGlobalNames,
			})

			lines := make([]string, len(errs))
			for i, e := range errs {
				lines[i] = e.Error()
			}
			filetest.DiffErrors(t, fi, strings.Join(lines, "\n"), resultDir, testUpdateCompilerErrorTests)
		})
	}
}
