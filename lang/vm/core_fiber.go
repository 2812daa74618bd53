package vm

// resumeMode distinguishes call/transfer/try's effect on the caller/callee
// link, per spec §4.4.
type resumeMode int

const (
	resumeCall resumeMode = iota
	resumeTransfer
	resumeTry
)

func (m resumeMode) verb() string {
	switch m {
	case resumeTransfer:
		return "transfer to"
	case resumeTry:
		return "try"
	default:
		return "call"
	}
}

// bindFiberPrimitives attaches Fiber's static (new/yield/abort/current/
// suspend) and instance (call/transfer/try/error/isDone) methods, implementing
// the coroutine state machine described in spec §4.4.
func (vm *VM) bindFiberPrimitives() {
	c := vm.fiberClass
	meta := c.meta

	meta.bindPrimitive(vm, "new(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		cl, ok := args[1].(*ObjClosure)
		if !ok {
			return vm.primError(f, "Fiber.new expects a function argument")
		}
		return primResult(args, newFiber(vm, cl))
	})
	meta.bindPrimitive(vm, "current", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, f)
	})
	meta.bindPrimitive(vm, "yield()", fiberYield(false))
	meta.bindPrimitive(vm, "yield(_)", fiberYield(true))
	meta.bindPrimitive(vm, "abort(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		msg, ok := vm.wantString(f, args[1], "error message")
		if !ok {
			return false
		}
		f.err = msg
		f.hasError = true
		return false
	})
	meta.bindPrimitive(vm, "suspend()", func(vm *VM, f *ObjFiber, args []Value) bool {
		vm.fiber = nil
		return false
	})

	c.bindPrimitive(vm, "call()", fiberResume(resumeCall, false))
	c.bindPrimitive(vm, "call(_)", fiberResume(resumeCall, true))
	c.bindPrimitive(vm, "transfer()", fiberResume(resumeTransfer, false))
	c.bindPrimitive(vm, "transfer(_)", fiberResume(resumeTransfer, true))
	c.bindPrimitive(vm, "try()", fiberResume(resumeTry, false))
	c.bindPrimitive(vm, "try(_)", fiberResume(resumeTry, true))

	c.bindPrimitive(vm, "isDone", func(vm *VM, f *ObjFiber, args []Value) bool {
		target := args[0].(*ObjFiber)
		return primResult(args, Bool(target.isDone()))
	})
	c.bindPrimitive(vm, "error", func(vm *VM, f *ObjFiber, args []Value) bool {
		target := args[0].(*ObjFiber)
		if target.hasError {
			return primResult(args, target.err)
		}
		return primResult(args, NullValue)
	})
	c.bindPrimitive(vm, "toString", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, newString(vm, "<fiber>"))
	})
}

// fiberYield builds the yield()/yield(_) static primitive. It suspends the
// currently running fiber and hands control back to whichever fiber
// called/transferred into it, passing value as that call's result.
func fiberYield(hasArg bool) primitiveFn {
	return func(vm *VM, f *ObjFiber, args []Value) bool {
		caller := f.caller
		if caller == nil {
			return vm.primError(f, "cannot yield from the root fiber")
		}
		value := Value(NullValue)
		if hasArg {
			value = args[1]
		}
		// Trim back to the pre-call position so the eventual resume value
		// (from a later .call()/.transfer() into this fiber) lands exactly
		// where this yield() expression's result belongs.
		f.stack = f.stack[:len(f.stack)-len(args)]
		f.caller = nil
		f.state = fiberOther

		caller.push(value)
		caller.state = fiberCurrent
		vm.fiber = caller
		return false
	}
}

// fiberResume builds the call()/call(_)/transfer()/transfer(_)/try()/try(_)
// instance primitives. All six share the same stack-splicing logic; they
// differ only in whether the callee gets a caller link back (so its result
// or error returns here) and, if so, whether errors unwind normally or are
// caught as this call's result (spec §4.4's try semantics).
func fiberResume(mode resumeMode, hasArg bool) primitiveFn {
	return func(vm *VM, f *ObjFiber, args []Value) bool {
		target := args[0].(*ObjFiber)
		if target == f {
			return vm.primError(f, "fiber cannot %s itself", mode.verb())
		}
		if target.isDone() {
			return vm.primError(f, "cannot %s a finished fiber", mode.verb())
		}
		value := Value(NullValue)
		if hasArg {
			value = args[1]
		}

		// Trim f's stack back to the pre-call position; run()'s resume
		// logic (on target finishing, yielding, or erroring back to a
		// try-ancestor) pushes the eventual result directly into this slot.
		f.stack = f.stack[:len(f.stack)-len(args)]

		if mode == resumeTransfer {
			target.caller = nil
			f.state = fiberOther
		} else {
			target.caller = f
			if mode == resumeTry {
				f.state = fiberTry
			} else {
				f.state = fiberCalled
			}
		}

		if !target.started {
			target.started = true
			if len(target.frames) > 0 && target.frames[0].closure.fn.Arity > 0 {
				target.stack[1] = value
			}
		} else {
			target.push(value)
		}
		target.state = fiberCurrent
		vm.fiber = target
		return false
	}
}
