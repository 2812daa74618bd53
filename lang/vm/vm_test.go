package vm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ripplelang/ripple/lang/vm"
)

// run compiles and interprets src as a fresh module, returning everything
// written via System.writeString_ and any reported compile/runtime errors.
func run(t *testing.T, src string) (output string, errs []string) {
	t.Helper()
	var out strings.Builder
	cfg := vm.Config{
		AcceptsTrailingSemicolons: true,
		Write: func(_ *vm.VM, text string) {
			out.WriteString(text)
		},
		Error: func(_ *vm.VM, kind vm.ErrorKind, module string, line int, message string) {
			errs = append(errs, message)
		},
	}
	interp := vm.NewVM(cfg)
	err := interp.Interpret("test", []byte(src))
	if err != nil {
		errs = append(errs, err.Error())
	}
	return out.String(), errs
}

func TestArithmetic(t *testing.T) {
	out, errs := run(t, `
		var x = 1 + 2 * 3
		System.writeString_(x.toString)
	`)
	require.Empty(t, errs)
	require.Equal(t, "7", out)
}

func TestStringConcatAndInterp(t *testing.T) {
	out, errs := run(t, `
		var name = "world"
		System.writeString_("hello " + name)
		System.writeString_(" / hello %(name)")
	`)
	require.Empty(t, errs)
	require.Equal(t, "hello world / hello world", out)
}

func TestListIterationViaForLoop(t *testing.T) {
	out, errs := run(t, `
		var list = [1, 2, 3]
		var sum = 0
		for (v in list) {
			sum = sum + v
		}
		System.writeString_(sum.toString)
	`)
	require.Empty(t, errs)
	require.Equal(t, "6", out)
}

func TestClassInheritanceAndSuper(t *testing.T) {
	out, errs := run(t, `
		class Animal {
			construct new(name) {
				_name = name
			}
			speak() {
				System.writeString_("...")
			}
			name { _name }
		}

		class Dog is Animal {
			speak() {
				System.writeString_(name + " says woof, ")
				super.speak()
			}
		}

		var d = Dog.new("Rex")
		d.speak()
	`)
	require.Empty(t, errs)
	require.Equal(t, "Rex says woof, ...", out)
}

func TestFnCall(t *testing.T) {
	out, errs := run(t, `
		var add = Fn.new { |a, b| a + b }
		System.writeString_(add.call(2, 3).toString)
	`)
	require.Empty(t, errs)
	require.Equal(t, "5", out)
}

func TestFiberPingPong(t *testing.T) {
	out, errs := run(t, `
		var fiber = Fiber.new { | |
			System.writeString_("a")
			var received = Fiber.yield()
			System.writeString_(received)
		}
		fiber.call()
		fiber.call("b")
	`)
	require.Empty(t, errs)
	require.Equal(t, "ab", out)
}

func TestMapContainsKeyAndRemove(t *testing.T) {
	out, errs := run(t, `
		var m = {}
		m["a"] = 1
		m["b"] = 2
		System.writeString_(m.containsKey("a").toString)
		m.remove("a")
		System.writeString_(m.containsKey("a").toString)
		System.writeString_(m.count.toString)
	`)
	require.Empty(t, errs)
	require.Equal(t, "truefalse1", out)
}

func TestFiberTryCatchesAbort(t *testing.T) {
	out, errs := run(t, `
		var fiber = Fiber.new { | |
			Fiber.abort("boom")
		}
		var err = fiber.try()
		System.writeString_(fiber.error)
	`)
	require.Empty(t, errs)
	require.Equal(t, "boom", out)
}

func TestRuntimeErrorReported(t *testing.T) {
	_, errs := run(t, `
		var x = null.nope()
	`)
	require.NotEmpty(t, errs)
}

func TestCompileErrorReported(t *testing.T) {
	_, errs := run(t, `
		var x =
	`)
	require.NotEmpty(t, errs)
}
