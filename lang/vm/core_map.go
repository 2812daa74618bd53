package vm

// bindMapPrimitives attaches Map's primitives (spec §4.2). Keys are
// compared by the swiss.Map's Go equality/hashing of the Value interface,
// not by equalValues: singletons, Num, and Bool compare by value since
// they are non-pointer dynamic types, while *ObjString compares by pointer
// identity (strings are not interned, so equal-content strings from
// different allocations are distinct keys).
func (vm *VM) bindMapPrimitives() {
	c := vm.mapClass
	meta := c.meta

	m := func(v Value) *ObjMap { return v.(*ObjMap) }

	meta.bindPrimitive(vm, "new()", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, newMap(vm))
	})

	c.bindPrimitive(vm, "[_]", func(vm *VM, f *ObjFiber, args []Value) bool {
		v, ok := m(args[0]).m.Get(args[1])
		if !ok {
			return primResult(args, NullValue)
		}
		return primResult(args, v)
	})
	c.bindPrimitive(vm, "[_]=(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		m(args[0]).m.Put(args[1], args[2])
		return primResult(args, args[2])
	})
	c.bindPrimitive(vm, "addCore_(_,_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		m(args[0]).m.Put(args[1], args[2])
		return primResult(args, args[0])
	})
	c.bindPrimitive(vm, "remove(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		mm := m(args[0])
		v, ok := mm.m.Get(args[1])
		if !ok {
			return primResult(args, NullValue)
		}
		mm.m.Delete(args[1])
		return primResult(args, v)
	})
	c.bindPrimitive(vm, "clear()", func(vm *VM, f *ObjFiber, args []Value) bool {
		m(args[0]).m.Clear()
		return primResult(args, NullValue)
	})
	c.bindPrimitive(vm, "containsKey(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		_, ok := m(args[0]).m.Get(args[1])
		return primResult(args, Bool(ok))
	})
	c.bindPrimitive(vm, "count", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Num(m(args[0]).m.Count()))
	})
	c.bindPrimitive(vm, "toString", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, newString(vm, m(args[0]).String()))
	})

	// iterate/iteratorValue walk entries in an arbitrary but stable order by
	// snapshotting keys into a slice on the first call and threading an
	// index as the iterator value, since swiss.Map has no stable cursor type
	// to resume an Iter callback from.
	c.bindPrimitive(vm, "iterate(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		mm := m(args[0])
		keys := mapKeySnapshot(mm)
		if len(keys) == 0 {
			return primResult(args, Bool(false))
		}
		if _, isNull := args[1].(Null); isNull {
			return primResult(args, Num(0))
		}
		n, ok := vm.wantNum(f, args[1], "iterator")
		if !ok {
			return false
		}
		i := int(n) + 1
		if i >= len(keys) {
			return primResult(args, Bool(false))
		}
		return primResult(args, Num(i))
	})
	c.bindPrimitive(vm, "keyIteratorValue_(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		mm := m(args[0])
		n, ok := vm.wantNum(f, args[1], "iterator")
		if !ok {
			return false
		}
		keys := mapKeySnapshot(mm)
		i := int(n)
		if i < 0 || i >= len(keys) {
			return vm.primError(f, "iterator out of bounds")
		}
		return primResult(args, keys[i])
	})
	c.bindPrimitive(vm, "valueIteratorValue_(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		mm := m(args[0])
		n, ok := vm.wantNum(f, args[1], "iterator")
		if !ok {
			return false
		}
		keys := mapKeySnapshot(mm)
		i := int(n)
		if i < 0 || i >= len(keys) {
			return vm.primError(f, "iterator out of bounds")
		}
		v, _ := mm.m.Get(keys[i])
		return primResult(args, v)
	})
}

func mapKeySnapshot(m *ObjMap) []Value {
	keys := make([]Value, 0, m.m.Count())
	m.m.Iter(func(k, v Value) bool {
		keys = append(keys, k)
		return false
	})
	return keys
}
