// Package vm implements the value/object model, garbage collector, fiber
// subsystem, bytecode interpreter, core class library, and embedding ABI
// described for Ripple: a small execution core that talks
// to its host only through the callbacks on Config.
package vm

import (
	"fmt"
	"math"
)

// Value is implemented by every value the interpreter can hold on its
// operand stack: the three singletons (null, true, false), numbers, and
// every heap object kind. Mirrors the teacher's Value-as-interface design
// rather than a NaN-boxed or tagged-union representation.
type Value interface {
	String() string
	Type() string
}

// Null is the language's single null value.
type Null struct{}

func (Null) String() string { return "null" }
func (Null) Type() string   { return "null" }

// NullValue is the shared null singleton.
var NullValue = Null{}

// Bool is the language's boolean value.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

// Num is the language's single numeric type (IEEE-754 double).
type Num float64

func (n Num) Type() string { return "num" }

func (n Num) String() string {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "infinity"
	case math.IsInf(f, -1):
		return "-infinity"
	}
	return fmt.Sprintf("%.14g", f)
}

// Truthy implements the language's truthiness rule: everything is truthy
// except null and false.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case Null:
		return false
	case Bool:
		return bool(x)
	default:
		return true
	}
}

// Obj is embedded by every heap-allocated value kind. It carries the GC
// mark bit, an approximate heap footprint (for the next-GC formula), and
// the value's runtime class (used for method dispatch and `Object.type`).
type Obj struct {
	class *ObjClass
	dark  bool    // GC mark bit; cleared by sweep on survivors
	size  int
	next  heapObj // intrusive link in the VM's all-objects list, walked by sweep
}

// heapObj is implemented by every Obj-embedding pointer type, giving the
// allocator and collector a uniform way to reach the embedded header
// without a type switch at every call site.
type heapObj interface {
	Value
	header() *Obj
}

func classOf(vm *VM, v Value) *ObjClass {
	switch x := v.(type) {
	case Null:
		return vm.nullClass
	case Bool:
		return vm.boolClass
	case Num:
		return vm.numClass
	case *ObjString:
		return vm.stringClass
	case *ObjList:
		return vm.listClass
	case *ObjMap:
		return vm.mapClass
	case *ObjRange:
		return vm.rangeClass
	case *ObjClosure:
		return vm.fnClass
	case *ObjFiber:
		return vm.fiberClass
	case *ObjInstance:
		return x.class
	case *ObjForeign:
		return x.class
	case *ObjClass:
		return x.meta
	}
	return nil
}
