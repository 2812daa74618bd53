package vm

// bindSystemPrimitives attaches System's static diagnostic/IO methods (spec
// §4.2). System itself is never instantiated; every method here is static.
func (vm *VM) bindSystemPrimitives() {
	meta := vm.systemClass.meta

	meta.bindPrimitive(vm, "writeString_(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		s, ok := vm.wantString(f, args[1], "argument")
		if !ok {
			return false
		}
		vm.write(s.s)
		return primResult(args, args[1])
	})
	meta.bindPrimitive(vm, "clock", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Num(vm.clockSeconds()))
	})
	meta.bindPrimitive(vm, "gc()", func(vm *VM, f *ObjFiber, args []Value) bool {
		vm.collectGarbage()
		return primResult(args, NullValue)
	})
	meta.bindPrimitive(vm, "isDebugBuild", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Bool(vm.Config.StressGC))
	})
}
