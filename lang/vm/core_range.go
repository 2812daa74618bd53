package vm

// bindRangePrimitives attaches Range's primitives (spec §4.2, §8): iterate
// walks from From to To inclusive/exclusive in whichever direction From/To
// imply, matching the boundary cases called out in the spec (an empty
// descending-but-ascending-looking range yields no iterations rather than
// erroring).
func (vm *VM) bindRangePrimitives() {
	c := vm.rangeClass

	r := func(v Value) *ObjRange { return v.(*ObjRange) }

	c.bindPrimitive(vm, "from", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Num(r(args[0]).From))
	})
	c.bindPrimitive(vm, "to", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Num(r(args[0]).To))
	})
	c.bindPrimitive(vm, "min", func(vm *VM, f *ObjFiber, args []Value) bool {
		rr := r(args[0])
		if rr.From < rr.To {
			return primResult(args, Num(rr.From))
		}
		return primResult(args, Num(rr.To))
	})
	c.bindPrimitive(vm, "max", func(vm *VM, f *ObjFiber, args []Value) bool {
		rr := r(args[0])
		if rr.From > rr.To {
			return primResult(args, Num(rr.From))
		}
		return primResult(args, Num(rr.To))
	})
	c.bindPrimitive(vm, "isInclusive", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Bool(r(args[0]).IsInclusive))
	})
	c.bindPrimitive(vm, "==(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Bool(equalValues(args[0], args[1])))
	})
	c.bindPrimitive(vm, "!=(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Bool(!equalValues(args[0], args[1])))
	})
	c.bindPrimitive(vm, "toString", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, newString(vm, r(args[0]).String()))
	})

	c.bindPrimitive(vm, "iterate(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		rr := r(args[0])
		if rr.From == rr.To && !rr.IsInclusive {
			return primResult(args, Bool(false))
		}
		ascending := rr.From <= rr.To

		_, isNull := args[1].(Null)
		if isNull {
			return primResult(args, Num(rr.From))
		}
		n, ok := vm.wantNum(f, args[1], "iterator")
		if !ok {
			return false
		}
		cur := float64(n)
		var next float64
		if ascending {
			next = cur + 1
		} else {
			next = cur - 1
		}
		limit := rr.To
		if ascending {
			if rr.IsInclusive && next > limit {
				return primResult(args, Bool(false))
			}
			if !rr.IsInclusive && next >= limit {
				return primResult(args, Bool(false))
			}
		} else {
			if rr.IsInclusive && next < limit {
				return primResult(args, Bool(false))
			}
			if !rr.IsInclusive && next <= limit {
				return primResult(args, Bool(false))
			}
		}
		return primResult(args, Num(next))
	})
	c.bindPrimitive(vm, "iteratorValue(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		n, ok := vm.wantNum(f, args[1], "iterator")
		if !ok {
			return false
		}
		return primResult(args, n)
	})
}
