package vm

import "fmt"

// methodKind distinguishes how a bound Method is invoked.
type methodKind int

const (
	methodNone methodKind = iota
	methodPrimitive
	methodFunctionCall // a user-defined method: closure stored in fn
	methodForeign
)

// primitiveFn is a host-implemented method. It receives the argument window
// (args[0] is the receiver) and must either compute a result into args[0]
// and return true, or set f.err/f.hasError (runtime error) or push a new
// call frame onto f itself (for methods like Fn.call that resume bytecode
// execution) and return false.
type primitiveFn func(vm *VM, f *ObjFiber, args []Value) bool

// Method is one entry in a class's method table, indexed by method symbol.
type Method struct {
	kind methodKind
	prim primitiveFn
	fn   *ObjClosure
}

// ObjClass is a class or metaclass object: a vtable indexed by method
// symbol, plus identity (name, supertype, field count).
type ObjClass struct {
	Obj
	name       string
	superclass *ObjClass
	numFields  int // -1 for foreign classes, matching spec §4.2
	isForeign  bool
	methods    []Method // indexed by method symbol; grows to fit
	meta       *ObjClass
	attributes Value
}

func newRawClass(name string, numFields int) *ObjClass {
	return &ObjClass{name: name, numFields: numFields, attributes: NullValue}
}

func (c *ObjClass) header() *Obj   { return &c.Obj }
func (c *ObjClass) Type() string   { return "class" }
func (c *ObjClass) String() string { return c.name }

// bindMethod installs fn/prim at symbol, growing the method table as
// needed and leaving any gap slots at methodNone.
func (c *ObjClass) bindMethod(symbol int, m Method) {
	for len(c.methods) <= symbol {
		c.methods = append(c.methods, Method{kind: methodNone})
	}
	c.methods[symbol] = m
}

func (c *ObjClass) bindPrimitive(vm *VM, sig string, fn primitiveFn) {
	sym := vm.methodSymbol(sig)
	c.bindMethod(sym, Method{kind: methodPrimitive, prim: fn})
}

// lookupMethod returns the method bound at symbol, walking up the
// superclass chain. ok is false if no class in the chain implements it.
func (c *ObjClass) lookupMethod(symbol int) (Method, bool) {
	for cls := c; cls != nil; cls = cls.superclass {
		if symbol < len(cls.methods) && cls.methods[symbol].kind != methodNone {
			return cls.methods[symbol], true
		}
	}
	return Method{}, false
}

func (vm *VM) newClassError(class *ObjClass, sig string) error {
	return fmt.Errorf("%s does not implement '%s'", class.name, sig)
}
