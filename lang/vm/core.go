package vm

import "fmt"

// bootstrapCore builds the core class library by hand (spec §4.6): Object,
// Class, and Object's metaclass are wired into their circular diagram first
// (Object <- Object metaclass <- Class, Class.class == Class) before any
// other object is allocated, so no GC can ever observe the half-formed
// graph (spec §9). The remaining built-in classes (Bool, Null, Num, String,
// List, Map, Range, Fiber, Fn, System) are then created as ordinary
// subclasses of Object and have their primitive methods attached by symbol.
func (vm *VM) bootstrapCore() {
	vm.objectClass = newRawClass("Object", 0)
	objectMeta := newRawClass("Object metaclass", 0)
	vm.classClass = newRawClass("Class", 0)

	vm.objectClass.meta = objectMeta
	objectMeta.superclass = vm.classClass
	objectMeta.meta = vm.classClass
	vm.classClass.superclass = vm.objectClass
	vm.classClass.meta = vm.classClass

	vm.objectClass.class = objectMeta
	objectMeta.class = vm.classClass
	vm.classClass.class = vm.classClass

	vm.track(vm.objectClass, 0)
	vm.track(objectMeta, 0)
	vm.track(vm.classClass, 0)

	vm.bindObjectPrimitives()
	vm.bindClassPrimitives()

	vm.boolClass = vm.defineCoreClass("Bool", vm.objectClass)
	vm.nullClass = vm.defineCoreClass("Null", vm.objectClass)
	vm.numClass = vm.defineCoreClass("Num", vm.objectClass)
	vm.stringClass = vm.defineCoreClass("String", vm.objectClass)
	vm.listClass = vm.defineCoreClass("List", vm.objectClass)
	vm.mapClass = vm.defineCoreClass("Map", vm.objectClass)
	vm.rangeClass = vm.defineCoreClass("Range", vm.objectClass)
	vm.fiberClass = vm.defineCoreClass("Fiber", vm.objectClass)
	vm.fnClass = vm.defineCoreClass("Fn", vm.objectClass)
	vm.systemClass = vm.defineCoreClass("System", vm.objectClass)

	vm.bindBoolPrimitives()
	vm.bindNullPrimitives()
	vm.bindNumPrimitives()
	vm.bindStringPrimitives()
	vm.bindListPrimitives()
	vm.bindMapPrimitives()
	vm.bindRangePrimitives()
	vm.bindFiberPrimitives()
	vm.bindFnPrimitives()
	vm.bindSystemPrimitives()
}

// defineCoreClass allocates a built-in class and its metaclass. For
// simplicity every core metaclass's superclass is Class directly (rather
// than chaining through the superclass's own metaclass); nothing in the
// core library binds inherited static methods across these classes, so the
// two shapes are behaviorally identical here. See DESIGN.md.
func (vm *VM) defineCoreClass(name string, super *ObjClass) *ObjClass {
	c := newRawClass(name, 0)
	meta := newRawClass(name+" metaclass", 0)
	meta.superclass = vm.classClass
	meta.class = vm.classClass
	c.superclass = super
	c.meta = meta
	c.class = meta
	vm.track(meta, 0)
	vm.track(c, 0)
	return c
}

// --- shared primitive helpers ------------------------------------------------

// primError reports a runtime error on f and returns false, the convention
// every primitive uses to signal failure (spec §4.3, §4.6).
func (vm *VM) primError(f *ObjFiber, format string, args ...any) bool {
	vm.runtimeError(f, format, args...)
	return false
}

// primResult sets args[0] (the primitive's return slot) to v and reports
// success.
func primResult(args []Value, v Value) bool {
	args[0] = v
	return true
}

func (vm *VM) wantNum(f *ObjFiber, v Value, what string) (Num, bool) {
	n, ok := v.(Num)
	if !ok {
		vm.primError(f, "%s must be a number", what)
		return 0, false
	}
	return n, true
}

func (vm *VM) wantString(f *ObjFiber, v Value, what string) (*ObjString, bool) {
	s, ok := v.(*ObjString)
	if !ok {
		vm.primError(f, "%s must be a string", what)
		return nil, false
	}
	return s, true
}

// equalValues implements the language's `==` for values that aren't
// user-overridden: identity for objects, value equality for Num/Bool/Null,
// and content equality for interned strings (which are separate Go
// allocations, so `==` can't rely on pointer identity the way the class
// pointer comparisons elsewhere in the VM do).
func equalValues(a, b Value) bool {
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Num:
		y, ok := b.(Num)
		return ok && x == y
	case *ObjString:
		y, ok := b.(*ObjString)
		return ok && x.s == y.s
	case *ObjRange:
		y, ok := b.(*ObjRange)
		return ok && x.From == y.From && x.To == y.To && x.IsInclusive == y.IsInclusive
	default:
		return a == b
	}
}

// --- Object -------------------------------------------------------------

func (vm *VM) bindObjectPrimitives() {
	c := vm.objectClass
	c.bindPrimitive(vm, "==(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Bool(equalValues(args[0], args[1])))
	})
	c.bindPrimitive(vm, "!=(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Bool(!equalValues(args[0], args[1])))
	})
	c.bindPrimitive(vm, "!", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Bool(false))
	})
	c.bindPrimitive(vm, "is(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		cls, ok := args[1].(*ObjClass)
		if !ok {
			return vm.primError(f, "right operand of 'is' must be a class")
		}
		for c := classOf(vm, args[0]); c != nil; c = c.superclass {
			if c == cls {
				return primResult(args, Bool(true))
			}
		}
		return primResult(args, Bool(false))
	})
	c.bindPrimitive(vm, "toString", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, newString(vm, fmt.Sprintf("instance of %s", classOf(vm, args[0]).name)))
	})
	c.bindPrimitive(vm, "type", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, classOf(vm, args[0]))
	})
}

// --- Class ----------------------------------------------------------------

func (vm *VM) bindClassPrimitives() {
	c := vm.classClass
	c.bindPrimitive(vm, "name", func(vm *VM, f *ObjFiber, args []Value) bool {
		cls := args[0].(*ObjClass)
		return primResult(args, newString(vm, cls.name))
	})
	c.bindPrimitive(vm, "supertype", func(vm *VM, f *ObjFiber, args []Value) bool {
		cls := args[0].(*ObjClass)
		if cls.superclass == nil {
			return primResult(args, NullValue)
		}
		return primResult(args, cls.superclass)
	})
	c.bindPrimitive(vm, "toString", func(vm *VM, f *ObjFiber, args []Value) bool {
		cls := args[0].(*ObjClass)
		return primResult(args, newString(vm, cls.name))
	})
	c.bindPrimitive(vm, "attributes", func(vm *VM, f *ObjFiber, args []Value) bool {
		cls := args[0].(*ObjClass)
		return primResult(args, cls.attributes)
	})
}

// --- Bool -------------------------------------------------------------------

func (vm *VM) bindBoolPrimitives() {
	c := vm.boolClass
	c.bindPrimitive(vm, "!", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Bool(!bool(args[0].(Bool))))
	})
	c.bindPrimitive(vm, "toString", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, newString(vm, args[0].(Bool).String()))
	})
}

// --- Null -------------------------------------------------------------------

func (vm *VM) bindNullPrimitives() {
	c := vm.nullClass
	c.bindPrimitive(vm, "!", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Bool(true))
	})
	c.bindPrimitive(vm, "toString", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, newString(vm, "null"))
	})
}
