package vm

import (
	"strings"
	"unicode/utf8"
)

// bindStringPrimitives attaches String's primitives (spec §4.2, §8's UTF-8
// boundary rules): byte- vs. code-point-indexed accessors are kept
// deliberately distinct, matching the source language's split between
// `byteAt(_)`/`byteCount` and `codePointAt(_)`/`iterate(_)`/`iteratorValue(_)`.
func (vm *VM) bindStringPrimitives() {
	c := vm.stringClass
	meta := c.meta

	str := func(v Value) string { return v.(*ObjString).s }

	c.bindPrimitive(vm, "+(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		other, ok := vm.wantString(f, args[1], "right operand")
		if !ok {
			return false
		}
		return primResult(args, newString(vm, str(args[0])+other.s))
	})
	c.bindPrimitive(vm, "==(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Bool(equalValues(args[0], args[1])))
	})
	c.bindPrimitive(vm, "!=(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Bool(!equalValues(args[0], args[1])))
	})
	c.bindPrimitive(vm, "toString", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, args[0])
	})

	c.bindPrimitive(vm, "byteCount", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Num(len(str(args[0]))))
	})
	c.bindPrimitive(vm, "count", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, Num(utf8.RuneCountInString(str(args[0]))))
	})
	c.bindPrimitive(vm, "byteAt(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		s := str(args[0])
		i, ok := vm.wantNum(f, args[1], "index")
		if !ok {
			return false
		}
		idx := int(i)
		if idx < 0 || idx >= len(s) {
			return vm.primError(f, "string index out of bounds")
		}
		return primResult(args, Num(s[idx]))
	})
	c.bindPrimitive(vm, "codePointAt(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		s := str(args[0])
		i, ok := vm.wantNum(f, args[1], "index")
		if !ok {
			return false
		}
		idx := int(i)
		if idx < 0 || idx >= len(s) {
			return vm.primError(f, "string index out of bounds")
		}
		r, _ := utf8.DecodeRuneInString(s[idx:])
		if r == utf8.RuneError {
			return primResult(args, Num(-1))
		}
		return primResult(args, Num(r))
	})
	c.bindPrimitive(vm, "[_]", func(vm *VM, f *ObjFiber, args []Value) bool {
		s := str(args[0])
		switch idx := args[1].(type) {
		case Num:
			// Shares codePointAt's byte-offset index space (spec §8): an
			// offset that doesn't land on a UTF-8 sequence start yields the
			// single raw byte at that offset rather than erroring or
			// snapping to the enclosing code point.
			i := int(idx)
			if i < 0 || i >= len(s) {
				return vm.primError(f, "string index out of bounds")
			}
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size <= 1 {
				return primResult(args, newString(vm, s[i:i+1]))
			}
			return primResult(args, newString(vm, s[i:i+size]))
		case *ObjRange:
			return primResult(args, newString(vm, sliceByRange(s, idx)))
		default:
			return vm.primError(f, "subscript must be a number or range")
		}
	})
	c.bindPrimitive(vm, "contains(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		other, ok := vm.wantString(f, args[1], "argument")
		if !ok {
			return false
		}
		return primResult(args, Bool(strings.Contains(str(args[0]), other.s)))
	})
	c.bindPrimitive(vm, "startsWith(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		other, ok := vm.wantString(f, args[1], "argument")
		if !ok {
			return false
		}
		return primResult(args, Bool(strings.HasPrefix(str(args[0]), other.s)))
	})
	c.bindPrimitive(vm, "endsWith(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		other, ok := vm.wantString(f, args[1], "argument")
		if !ok {
			return false
		}
		return primResult(args, Bool(strings.HasSuffix(str(args[0]), other.s)))
	})
	c.bindPrimitive(vm, "indexOf(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		other, ok := vm.wantString(f, args[1], "argument")
		if !ok {
			return false
		}
		return primResult(args, Num(strings.Index(str(args[0]), other.s)))
	})
	c.bindPrimitive(vm, "replace(_,_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		from, ok := vm.wantString(f, args[1], "first argument")
		if !ok {
			return false
		}
		to, ok := vm.wantString(f, args[2], "second argument")
		if !ok {
			return false
		}
		return primResult(args, newString(vm, strings.ReplaceAll(str(args[0]), from.s, to.s)))
	})
	c.bindPrimitive(vm, "split(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		sep, ok := vm.wantString(f, args[1], "argument")
		if !ok {
			return false
		}
		parts := strings.Split(str(args[0]), sep.s)
		list := newList(vm)
		for _, p := range parts {
			list.elems = append(list.elems, newString(vm, p))
		}
		return primResult(args, list)
	})
	c.bindPrimitive(vm, "trim()", func(vm *VM, f *ObjFiber, args []Value) bool {
		return primResult(args, newString(vm, strings.TrimSpace(str(args[0]))))
	})

	// iterate/iteratorValue implement the language's `for` desugaring over
	// code points (spec §8): iterate returns the next byte offset to resume
	// from, or false when exhausted; iteratorValue decodes the code point at
	// that offset into its own one-rune string.
	c.bindPrimitive(vm, "iterate(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		s := str(args[0])
		if len(s) == 0 {
			return primResult(args, Bool(false))
		}
		if _, isNull := args[1].(Null); isNull {
			return primResult(args, Num(0))
		}
		n, ok := vm.wantNum(f, args[1], "iterator")
		if !ok {
			return false
		}
		i := int(n)
		if i < 0 || i >= len(s) {
			return vm.primError(f, "iterator out of bounds")
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		next := i + size
		if next >= len(s) {
			return primResult(args, Bool(false))
		}
		return primResult(args, Num(next))
	})
	c.bindPrimitive(vm, "iteratorValue(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		s := str(args[0])
		n, ok := vm.wantNum(f, args[1], "iterator")
		if !ok {
			return false
		}
		i := int(n)
		if i < 0 || i >= len(s) {
			return vm.primError(f, "iterator out of bounds")
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		return primResult(args, newString(vm, s[i:i+size]))
	})

	meta.bindPrimitive(vm, "fromCodePoint(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		n, ok := vm.wantNum(f, args[1], "argument")
		if !ok {
			return false
		}
		return primResult(args, newString(vm, string(rune(int32(n)))))
	})
	meta.bindPrimitive(vm, "fromByte(_)", func(vm *VM, f *ObjFiber, args []Value) bool {
		n, ok := vm.wantNum(f, args[1], "argument")
		if !ok {
			return false
		}
		return primResult(args, newString(vm, string([]byte{byte(int(n))})))
	})
}

// sliceByRange resolves a (possibly negative, possibly descending) Range
// against a string's rune sequence, matching List's subscript-by-range
// semantics so `str[a..b]` and `list[a..b]` agree.
func sliceByRange(s string, r *ObjRange) string {
	runes := []rune(s)
	n := len(runes)
	from, to := normalizeRangeBounds(r, n)
	if from > to {
		return ""
	}
	return string(runes[from : to+1])
}
