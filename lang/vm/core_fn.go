package vm

// bindFnPrimitives attaches Fn's constructor and call(...) family (spec
// §4.2, §4.5's closure semantics). call(...) reuses the same frame-pushing
// convention CALL_n itself uses (invokeOnClass's methodFunctionCall case),
// relying on slot 0 always being reserved for the receiver/closure so a
// pushed Fn.call frame looks identical to an ordinary method call frame.
func (vm *VM) bindFnPrimitives() {
	c := vm.fnClass
	meta := c.meta

	meta.bindPrimitive(vm, "new(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		if _, ok := args[1].(*ObjClosure); !ok {
			return vm.primError(f, "Fn.new expects a block argument")
		}
		return primResult(args, args[1])
	})

	c.bindPrimitive(vm, "arity", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Num(args[0].(*ObjClosure).fn.Arity))
	})
	c.bindPrimitive(vm, "toString", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, newString(vm, args[0].(*ObjClosure).String()))
	})

	for n := 0; n <= 16; n++ {
		sig := "call(" + underscoresFn(n) + ")"
		c.bindPrimitive(vm, sig, callClosurePrimitive)
	}
}

// underscoresFn builds "_,_,...,_"  (n commas-separated underscores), the
// same convention the compiler uses for multi-arg signatures.
func underscoresFn(n int) string {
	if n == 0 {
		return ""
	}
	s := "_"
	for i := 1; i < n; i++ {
		s += ",_"
	}
	return s
}

// callClosurePrimitive pushes a fresh call frame for the receiver closure
// directly onto the calling fiber, exactly as invokeOnClass's
// methodFunctionCall branch would for a user-defined method.
func callClosurePrimitive(vm *VM, f *ObjFiber, args []Value) bool {
	cl, ok := args[0].(*ObjClosure)
	if !ok {
		return vm.primError(f, "receiver must be a Fn")
	}
	nargs := len(args) - 1
	if cl.fn.Arity != nargs {
		return vm.primError(f, "function expects %d argument(s) but got %d", cl.fn.Arity, nargs)
	}
	stackStart := len(f.stack) - len(args)
	f.ensureStack(cl.fn.NumLocals - len(args))
	for len(f.stack) < stackStart+cl.fn.Arity+1 {
		f.push(NullValue)
	}
	f.frames = append(f.frames, callFrame{closure: cl, stackStart: stackStart})
	return true
}
