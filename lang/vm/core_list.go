package vm

// normalizeRangeBounds resolves a Range's From/To (which may be negative,
// fractional-free indices counting from the end, and either ascending or
// descending) against a sequence of length n, returning inclusive Go slice
// bounds [from, to]. Shared by List and String subscript-by-range.
func normalizeRangeBounds(r *ObjRange, n int) (from, to int) {
	from = int(r.From)
	to = int(r.To)
	if from < 0 {
		from += n
	}
	if to < 0 {
		to += n
	}
	if !r.IsInclusive {
		if to >= from {
			to--
		} else {
			to++
		}
	}
	return from, to
}

// bindListPrimitives attaches List's primitives (spec §4.2).
func (vm *VM) bindListPrimitives() {
	c := vm.listClass
	meta := c.meta

	list := func(v Value) *ObjList { return v.(*ObjList) }

	meta.bindPrimitive(vm, "new()", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, newList(vm))
	})
	meta.bindPrimitive(vm, "filled(_,_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		n, ok := vm.wantNum(f, args[1], "count")
		if !ok {
			return false
		}
		l := newList(vm)
		l.elems = make([]Value, int(n))
		for i := range l.elems {
			l.elems[i] = args[2]
		}
		return primResult(args, l)
	})

	c.bindPrimitive(vm, "count", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Num(len(list(args[0]).elems)))
	})
	c.bindPrimitive(vm, "add(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		l := list(args[0])
		l.elems = append(l.elems, args[1])
		return primResult(args, args[1])
	})
	c.bindPrimitive(vm, "addCore_(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		l := list(args[0])
		l.elems = append(l.elems, args[1])
		return primResult(args, args[0])
	})
	c.bindPrimitive(vm, "clear()", func(vm *VM, f *ObjFiber, args []Value) bool {
		list(args[0]).elems = nil
		return primResult(args, NullValue)
	})
	c.bindPrimitive(vm, "[_]", func(vm *VM, f *ObjFiber, args []Value) bool {
		l := list(args[0])
		switch idx := args[1].(type) {
		case Num:
			i, err := listIndex(l, int(idx))
			if err != "" {
				return vm.primError(f, err)
			}
			return primResult(args, l.elems[i])
		case *ObjRange:
			from, to := normalizeRangeBounds(idx, len(l.elems))
			sub := newList(vm)
			for i := from; i <= to && i < len(l.elems); i++ {
				if i < 0 {
					continue
				}
				sub.elems = append(sub.elems, l.elems[i])
			}
			return primResult(args, sub)
		default:
			return vm.primError(f, "subscript must be a number or range")
		}
	})
	c.bindPrimitive(vm, "[_]=(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		l := list(args[0])
		n, ok := vm.wantNum(f, args[1], "index")
		if !ok {
			return false
		}
		i, errs := listIndex(l, int(n))
		if errs != "" {
			return vm.primError(f, errs)
		}
		l.elems[i] = args[2]
		return primResult(args, args[2])
	})
	c.bindPrimitive(vm, "insert(_,_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		l := list(args[0])
		n, ok := vm.wantNum(f, args[1], "index")
		if !ok {
			return false
		}
		i := int(n)
		if i < 0 {
			i += len(l.elems) + 1
		}
		if i < 0 || i > len(l.elems) {
			return vm.primError(f, "index out of bounds")
		}
		l.elems = append(l.elems, NullValue)
		copy(l.elems[i+1:], l.elems[i:])
		l.elems[i] = args[2]
		return primResult(args, args[2])
	})
	c.bindPrimitive(vm, "removeAt(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		l := list(args[0])
		n, ok := vm.wantNum(f, args[1], "index")
		if !ok {
			return false
		}
		i, errs := listIndex(l, int(n))
		if errs != "" {
			return vm.primError(f, errs)
		}
		removed := l.elems[i]
		l.elems = append(l.elems[:i], l.elems[i+1:]...)
		return primResult(args, removed)
	})
	c.bindPrimitive(vm, "remove(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		l := list(args[0])
		for i, e := range l.elems {
			if equalValues(e, args[1]) {
				l.elems = append(l.elems[:i], l.elems[i+1:]...)
				return primResult(args, args[1])
			}
		}
		return primResult(args, NullValue)
	})
	c.bindPrimitive(vm, "indexOf(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		l := list(args[0])
		for i, e := range l.elems {
			if equalValues(e, args[1]) {
				return primResult(args, Num(i))
			}
		}
		return primResult(args, Num(-1))
	})
	c.bindPrimitive(vm, "swap(_,_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		l := list(args[0])
		a, ok := vm.wantNum(f, args[1], "first index")
		if !ok {
			return false
		}
		b, ok := vm.wantNum(f, args[2], "second index")
		if !ok {
			return false
		}
		ia, errs := listIndex(l, int(a))
		if errs != "" {
			return vm.primError(f, errs)
		}
		ib, errs := listIndex(l, int(b))
		if errs != "" {
			return vm.primError(f, errs)
		}
		l.elems[ia], l.elems[ib] = l.elems[ib], l.elems[ia]
		return primResult(args, NullValue)
	})

	c.bindPrimitive(vm, "iterate(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		l := list(args[0])
		if len(l.elems) == 0 {
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
		if i >= len(l.elems) {
			return primResult(args, Bool(false))
		}
		return primResult(args, Num(i))
	})
	c.bindPrimitive(vm, "iteratorValue(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		l := list(args[0])
		n, ok := vm.wantNum(f, args[1], "iterator")
		if !ok {
			return false
		}
		i := int(n)
		if i < 0 || i >= len(l.elems) {
			return vm.primError(f, "iterator out of bounds")
		}
		return primResult(args, l.elems[i])
	})
	c.bindPrimitive(vm, "toString", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, newString(vm, list(args[0]).String()))
	})
}

// listIndex resolves a (possibly negative) user-facing index against l,
// returning "" on success or an error message.
func listIndex(l *ObjList, i int) (int, string) {
	if i < 0 {
		i += len(l.elems)
	}
	if i < 0 || i >= len(l.elems) {
		return 0, "list index out of bounds"
	}
	return i, ""
}
