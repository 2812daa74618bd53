package vm

import (
	"math"
	"strconv"
)

// bindNumPrimitives attaches Num's arithmetic, comparison, bitwise, and math
// operators, plus its static constants (spec §4.2's Num section).
func (vm *VM) bindNumPrimitives() {
	c := vm.numClass
	meta := c.meta

	binop := func(sig string, f func(a, b float64) Value) {
		c.bindPrimitive(vm, sig, func(vm *VM, fib *ObjFiber, args []Value) bool {
			a := float64(args[0].(Num))
			b, ok := vm.wantNum(fib, args[1], "right operand")
			if !ok {
				return false
			}
			return primResult(args, f(a, float64(b)))
		})
	}

	binop("+(_)", func(a, b float64) Value { return Num(a + b) })
	binop("-(_)", func(a, b float64) Value { return Num(a - b) })
	binop("*(_)", func(a, b float64) Value { return Num(a * b) })
	binop("/(_)", func(a, b float64) Value { return Num(a / b) })
	binop("%(_)", func(a, b float64) Value { return Num(math.Mod(a, b)) })
	binop("<(_)", func(a, b float64) Value { return Bool(a < b) })
	binop(">(_)", func(a, b float64) Value { return Bool(a > b) })
	binop("<=(_)", func(a, b float64) Value { return Bool(a <= b) })
	binop(">=(_)", func(a, b float64) Value { return Bool(a >= b) })
	binop("&(_)", func(a, b float64) Value { return Num(float64(int64(a) & int64(b))) })
	binop("|(_)", func(a, b float64) Value { return Num(float64(int64(a) | int64(b))) })
	binop("^(_)", func(a, b float64) Value { return Num(float64(int64(a) ^ int64(b))) })
	binop("<<(_)", func(a, b float64) Value { return Num(float64(int64(a) << uint64(int64(b)))) })
	binop(">>(_)", func(a, b float64) Value { return Num(float64(int64(a) >> uint64(int64(b)))) })

	c.bindPrimitive(vm, "..(_)", func(vm *VM, fib *ObjFiber, args []Value) bool {
		a := float64(args[0].(Num))
		b, ok := vm.wantNum(fib, args[1], "range end")
		if !ok {
			return false
		}
		return primResult(args, newRange(vm, a, float64(b), true))
	})
	c.bindPrimitive(vm, "...(_)", func(vm *VM, fib *ObjFiber, args []Value) bool {
		a := float64(args[0].(Num))
		b, ok := vm.wantNum(fib, args[1], "range end")
		if !ok {
			return false
		}
		return primResult(args, newRange(vm, a, float64(b), false))
	})

	c.bindPrimitive(vm, "==(_)", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Bool(equalValues(args[0], args[1])))
	})
	c.bindPrimitive(vm, "!=(_)", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Bool(!equalValues(args[0], args[1])))
	})

	c.bindPrimitive(vm, "-", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Num(-float64(args[0].(Num))))
	})
	c.bindPrimitive(vm, "~", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Num(float64(^int64(args[0].(Num)))))
	})

	unary := func(sig string, f func(float64) float64) {
		c.bindPrimitive(vm, sig, func(vm *VM, fib *ObjFiber, args []Value) bool {
			return primResult(args, Num(f(float64(args[0].(Num)))))
		})
	}
	unary("abs", math.Abs)
	unary("ceil", math.Ceil)
	unary("floor", math.Floor)
	unary("round", math.Round)
	unary("sqrt", math.Sqrt)
	unary("cbrt", math.Cbrt)
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)
	unary("asin", math.Asin)
	unary("acos", math.Acos)
	unary("atan", math.Atan)
	unary("exp", math.Exp)
	unary("log", math.Log)
	unary("log2", math.Log2)

	c.bindPrimitive(vm, "pow(_)", func(vm *VM, fib *ObjFiber, args []Value) bool {
		b, ok := vm.wantNum(fib, args[1], "exponent")
		if !ok {
			return false
		}
		return primResult(args, Num(math.Pow(float64(args[0].(Num)), float64(b))))
	})
	c.bindPrimitive(vm, "atan(_)", func(vm *VM, fib *ObjFiber, args []Value) bool {
		x, ok := vm.wantNum(fib, args[1], "argument")
		if !ok {
			return false
		}
		return primResult(args, Num(math.Atan2(float64(args[0].(Num)), float64(x))))
	})

	c.bindPrimitive(vm, "isInfinity", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Bool(math.IsInf(float64(args[0].(Num)), 0)))
	})
	c.bindPrimitive(vm, "isNan", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Bool(math.IsNaN(float64(args[0].(Num)))))
	})
	c.bindPrimitive(vm, "isInteger", func(vm *VM, fib *ObjFiber, args []Value) bool {
		n := float64(args[0].(Num))
		return primResult(args, Bool(!math.IsInf(n, 0) && !math.IsNaN(n) && n == math.Trunc(n)))
	})
	c.bindPrimitive(vm, "sign", func(vm *VM, fib *ObjFiber, args []Value) bool {
		n := float64(args[0].(Num))
		switch {
		case n > 0:
			return primResult(args, Num(1))
		case n < 0:
			return primResult(args, Num(-1))
		default:
			return primResult(args, Num(0))
		}
	})
	c.bindPrimitive(vm, "truncate", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Num(math.Trunc(float64(args[0].(Num)))))
	})
	c.bindPrimitive(vm, "fraction", func(vm *VM, fib *ObjFiber, args []Value) bool {
		n := float64(args[0].(Num))
		return primResult(args, Num(n-math.Trunc(n)))
	})

	c.bindPrimitive(vm, "toString", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, newString(vm, args[0].(Num).String()))
	})

	// static constants and constructors
	meta.bindPrimitive(vm, "infinity", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Num(math.Inf(1)))
	})
	meta.bindPrimitive(vm, "nan", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Num(math.NaN()))
	})
	meta.bindPrimitive(vm, "pi", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Num(math.Pi))
	})
	meta.bindPrimitive(vm, "tau", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Num(2*math.Pi))
	})
	meta.bindPrimitive(vm, "largest", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Num(math.MaxFloat64))
	})
	meta.bindPrimitive(vm, "smallest", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Num(math.SmallestNonzeroFloat64))
	})
	meta.bindPrimitive(vm, "maxSafeInteger", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Num(1<<53-1))
	})
	meta.bindPrimitive(vm, "minSafeInteger", func(vm *VM, fib *ObjFiber, args []Value) bool {
		return primResult(args, Num(-(1<<53 - 1)))
	})
	meta.bindPrimitive(vm, "fromString(_)", func(vm *VM, fib *ObjFiber, args []Value) bool {
		s, ok := vm.wantString(fib, args[1], "argument")
		if !ok {
			return false
		}
		f, err := strconv.ParseFloat(s.s, 64)
		if err != nil {
			return primResult(args, NullValue)
		}
		return primResult(args, Num(f))
	})
}
