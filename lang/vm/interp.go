package vm

import (
	"fmt"

	"github.com/ripplelang/ripple/lang/compiler"
)

// CoreGlobalNames lists the core class library's names in the fixed order
// every compiled module reserves module-variable slots 0..len-1 for (spec
// §4.6): referencing one never trips the "used before it was defined"
// check, and every module agrees on the same slot layout for them. Exported
// so other packages (the parse/disassemble CLI command, tests) can
// pre-declare the same slots compiler.Compile expects.
var CoreGlobalNames = []string{
	"Object", "Class", "Bool", "Null", "Num", "String",
	"List", "Map", "Range", "Fiber", "Fn", "System",
}

// Interpret compiles src as a fresh module named name and runs its
// top-level body to completion. Module bodies have no caller to return a
// value to, so only the error (compile or runtime) is reported.
func (vm *VM) Interpret(name string, src []byte) error {
	prog, errs := compiler.Compile(src, compiler.Options{
		ModuleName:         name,
		AcceptTrailingSemi: vm.AcceptsTrailingSemicolons,
		KnownGlobals:       CoreGlobalNames,
	})
	if errs != nil {
		for _, e := range errs {
			vm.reportError(ErrorCompile, e.Module, int(e.Line), "%s", e.Message)
		}
		return fmt.Errorf("compile error in module %s", name)
	}
	mod := newModule(vm, prog)
	vm.bindCoreGlobals(mod)
	vm.modules[name] = mod
	vm.progModules[prog] = mod

	closure := newClosure(vm, prog.Functions[0])
	fiber := newFiber(vm, closure)
	fiber.state = fiberRoot

	prevFiber := vm.fiber
	vm.fiber = fiber
	_, err := vm.run(fiber)
	if err != nil {
		vm.reportError(ErrorRuntime, name, -1, "%s", err.Error())
	}
	if prevFiber != nil {
		vm.fiber = prevFiber
	}
	return err
}

// bindCoreGlobals populates the module-variable slots reserved for
// CoreGlobalNames with the VM's actual core class objects.
func (vm *VM) bindCoreGlobals(mod *ObjModule) {
	classes := vm.coreClassesByGlobalName()
	for i, name := range CoreGlobalNames {
		if i >= len(mod.Variables) {
			break
		}
		if c, ok := classes[name]; ok {
			mod.Variables[i] = c
		}
	}
}

func (vm *VM) coreClassesByGlobalName() map[string]*ObjClass {
	return map[string]*ObjClass{
		"Object": vm.objectClass,
		"Class":  vm.classClass,
		"Bool":   vm.boolClass,
		"Null":   vm.nullClass,
		"Num":    vm.numClass,
		"String": vm.stringClass,
		"List":   vm.listClass,
		"Map":    vm.mapClass,
		"Range":  vm.rangeClass,
		"Fiber":  vm.fiberClass,
		"Fn":     vm.fnClass,
		"System": vm.systemClass,
	}
}

// moduleOf returns the runtime module owning fn's variable slots.
func (vm *VM) moduleOf(fn *compiler.Function) *ObjModule {
	return vm.progModules[fn.Module]
}

// realizeConstant returns the Value for constant index idx in fn's module,
// converting the compiler's untyped literal into a Num or ObjString and
// caching the result on the module so repeated executions of
// the same CONSTANT instruction don't re-allocate a fresh string each time.
func (vm *VM) realizeConstant(mod *ObjModule, idx uint16) Value {
	if mod.constCache == nil {
		mod.constCache = make([]Value, len(mod.Program.Constants))
	}
	if v := mod.constCache[idx]; v != nil {
		return v
	}
	var v Value
	switch c := mod.Program.Constants[idx].(type) {
	case int64:
		v = Num(float64(c))
	case float64:
		v = Num(c)
	case string:
		v = newString(vm, c)
	default:
		panic(fmt.Sprintf("vm: unrecognized constant kind %T", c))
	}
	mod.constCache[idx] = v
	return v
}

func decodeU16(code []byte, ip int) uint16 {
	return uint16(code[ip])<<8 | uint16(code[ip+1])
}

// runtimeError records a Go-formatted error message on the fiber, to be
// picked up by the nearest TRY-state ancestor (or, failing that, returned
// from run as the final error).
func (vm *VM) runtimeError(f *ObjFiber, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	f.err = newString(vm, msg)
	f.hasError = true
}

// run drives fiber (and, transitively, whatever it calls/transfers to)
// until it finishes or a runtime error escapes every TRY ancestor.
func (vm *VM) run(fiber *ObjFiber) (Value, error) {
	f := fiber
	for {
		result, ok := vm.runFiber(f)
		if ok {
			// f ran to completion. If something called into it, resume that
			// caller with f's result; otherwise the whole interpretation
			// this run() call is driving is done (spec §4.3 fiber termination).
			caller := f.caller
			if caller == nil {
				return result, nil
			}
			f.caller = nil
			caller.push(result)
			caller.state = fiberCurrent
			f = caller
			vm.fiber = f
			continue
		}
		if !f.hasError {
			// fiber yielded/transferred control elsewhere; the callee left
			// vm.fiber pointing at the new current fiber.
			nf := vm.fiber
			if nf == nil || nf == f {
				return result, nil
			}
			f = nf
			continue
		}
		// Unwind to the nearest TRY-state ancestor.
		errVal := f.err
		caller := f.caller
		for caller != nil && caller.state != fiberTry {
			caller = caller.caller
		}
		if caller == nil {
			return nil, fmt.Errorf("%s", errVal.String())
		}
		caller.push(errVal)
		caller.hasError = false
		caller.state = fiberCurrent
		f = caller
		vm.fiber = f
	}
}

// runFiber executes bytecode starting from fiber's current frame until
// either its frame stack empties (ok=true, result is the module's/fiber
// entry closure's return value), a runtime error is raised (ok=false,
// fiber.hasError set), or the fiber yields/transfers to another fiber
// (ok=false, fiber.hasError false).
func (vm *VM) runFiber(fiber *ObjFiber) (Value, bool) {
	if len(fiber.frames) == 0 {
		return NullValue, true
	}
	frame := &fiber.frames[len(fiber.frames)-1]
	closure := frame.closure
	fn := closure.fn
	code := fn.Code
	mod := vm.moduleOf(fn)
	ip := frame.ip

	defer func() { frame.ip = ip }()

loop:
	for {
		op := compiler.Opcode(code[ip])
		ip++

		switch op {
		case compiler.NULL:
			fiber.push(NullValue)
		case compiler.TRUE:
			fiber.push(Bool(true))
		case compiler.FALSE:
			fiber.push(Bool(false))

		case compiler.CONSTANT:
			idx := decodeU16(code, ip)
			ip += 2
			fiber.push(vm.realizeConstant(mod, idx))

		case compiler.DOLLAR:
			idx := decodeU16(code, ip)
			ip += 2
			text := mod.Program.Constants[idx].(string)
			if vm.Config.DollarOperator == nil {
				fiber.push(NullValue)
				break
			}
			v, err := vm.Config.DollarOperator(vm, text)
			if err != nil {
				vm.runtimeError(fiber, "%s", err.Error())
				break loop
			}
			fiber.push(v)

		case compiler.POP:
			fiber.pop()

		case compiler.LOAD_LOCAL_0, compiler.LOAD_LOCAL_1, compiler.LOAD_LOCAL_2,
			compiler.LOAD_LOCAL_3, compiler.LOAD_LOCAL_4, compiler.LOAD_LOCAL_5,
			compiler.LOAD_LOCAL_6, compiler.LOAD_LOCAL_7, compiler.LOAD_LOCAL_8:
			slot := int(op - compiler.LOAD_LOCAL_0)
			fiber.push(fiber.stack[frame.stackStart+slot])

		case compiler.LOAD_LOCAL:
			slot := int(code[ip])
			ip++
			fiber.push(fiber.stack[frame.stackStart+slot])

		case compiler.STORE_LOCAL:
			slot := int(code[ip])
			ip++
			fiber.stack[frame.stackStart+slot] = fiber.peek()

		case compiler.LOAD_UPVALUE:
			idx := int(code[ip])
			ip++
			fiber.push(*closure.upvalues[idx].value)

		case compiler.STORE_UPVALUE:
			idx := int(code[ip])
			ip++
			*closure.upvalues[idx].value = fiber.peek()

		case compiler.LOAD_MODULE_VAR:
			idx := decodeU16(code, ip)
			ip += 2
			fiber.push(mod.Variables[idx])

		case compiler.STORE_MODULE_VAR:
			idx := decodeU16(code, ip)
			ip += 2
			mod.Variables[idx] = fiber.peek()

		case compiler.LOAD_FIELD_THIS:
			idx := int(code[ip])
			ip++
			this := fiber.stack[frame.stackStart].(*ObjInstance)
			fiber.push(this.fields[idx])

		case compiler.STORE_FIELD_THIS:
			idx := int(code[ip])
			ip++
			this := fiber.stack[frame.stackStart].(*ObjInstance)
			this.fields[idx] = fiber.peek()

		case compiler.LOAD_FIELD:
			idx := int(code[ip])
			ip++
			recv := fiber.pop().(*ObjInstance)
			fiber.push(recv.fields[idx])

		case compiler.STORE_FIELD:
			idx := int(code[ip])
			ip++
			v := fiber.pop()
			recv := fiber.pop().(*ObjInstance)
			recv.fields[idx] = v
			fiber.push(v)

		case compiler.JUMP:
			target := decodeU16(code, ip)
			ip = int(target)

		case compiler.LOOP:
			target := decodeU16(code, ip)
			ip = int(target)

		case compiler.JUMP_IF:
			target := decodeU16(code, ip)
			ip += 2
			if !Truthy(fiber.pop()) {
				ip = int(target)
			}

		case compiler.AND:
			target := decodeU16(code, ip)
			ip += 2
			if !Truthy(fiber.peek()) {
				ip = int(target)
			} else {
				fiber.pop()
			}

		case compiler.OR:
			target := decodeU16(code, ip)
			ip += 2
			if Truthy(fiber.peek()) {
				ip = int(target)
			} else {
				fiber.pop()
			}

		case compiler.CLOSE_UPVALUE:
			fiber.closeUpvaluesFrom(len(fiber.stack) - 1)
			fiber.pop()

		case compiler.CLOSURE:
			idx := decodeU16(code, ip)
			ip += 2
			childFn := mod.Program.Functions[idx]
			cl := newClosure(vm, childFn)
			for i := range cl.upvalues {
				isLocal := code[ip]
				index := code[ip+1]
				ip += 2
				if isLocal != 0 {
					cl.upvalues[i] = fiber.captureUpvalue(frame.stackStart + int(index))
				} else {
					cl.upvalues[i] = closure.upvalues[index]
				}
			}
			fiber.push(cl)

		case compiler.CONSTRUCT:
			recvSlot := frame.stackStart
			class := fiber.stack[recvSlot].(*ObjClass)
			fiber.stack[recvSlot] = newInstance(vm, class)

		case compiler.FOREIGN_CONSTRUCT:
			recvSlot := frame.stackStart
			class := fiber.stack[recvSlot].(*ObjClass)
			inst := newForeign(vm, class)
			if vm.Config.BindForeignClass != nil {
				if alloc, finalize := vm.Config.BindForeignClass(vm, mod.Name, class.name); alloc != nil {
					args := fiber.stack[recvSlot : recvSlot+1+fn.Arity]
					inst.Data = alloc(vm, args)
					inst.onFinalize = finalize
				}
			}
			fiber.stack[recvSlot] = inst

		case compiler.CLASS, compiler.FOREIGN_CLASS:
			isForeign := op == compiler.FOREIGN_CLASS
			numFields := -1
			if !isForeign {
				numFields = int(code[ip])
				ip++
			}
			nameConst := fiber.pop()
			super := fiber.pop()
			name := nameConst.(*ObjString).s
			cls := newRawClass(name, numFields)
			cls.isForeign = isForeign
			if sc, ok := super.(*ObjClass); ok {
				cls.superclass = sc
				cls.meta = newRawClass(name+" metaclass", 0)
				cls.meta.superclass = sc.meta
			} else {
				cls.superclass = vm.objectClass
				cls.meta = newRawClass(name+" metaclass", 0)
				cls.meta.superclass = vm.classClass
			}
			cls.class = cls.meta
			vm.track(cls, 0)
			vm.track(cls.meta, 0)
			fiber.push(cls)

		case compiler.METHOD_INSTANCE, compiler.METHOD_STATIC:
			nameIdx := decodeU16(code, ip)
			ip += 2
			sym := vm.methodSymbol(mod.Program.Names[nameIdx])
			closureVal := fiber.pop().(*ObjClosure)
			class := fiber.pop().(*ObjClass)
			target := class
			if op == compiler.METHOD_STATIC {
				target = class.meta
			}
			target.bindMethod(sym, Method{kind: methodFunctionCall, fn: closureVal})

		case compiler.END_CLASS:
			classVal := fiber.pop().(*ObjClass) // reloaded class (top of stack)
			attrs := fiber.pop()                // attributes placeholder, below it
			classVal.attributes = attrs

		case compiler.RETURN:
			result := fiber.pop()
			fiber.closeUpvaluesFrom(frame.stackStart)
			fiber.stack = fiber.stack[:frame.stackStart]
			fiber.frames = fiber.frames[:len(fiber.frames)-1]
			fiber.push(result)
			if len(fiber.frames) == 0 {
				return result, true
			}
			frame = &fiber.frames[len(fiber.frames)-1]
			closure = frame.closure
			fn = closure.fn
			code = fn.Code
			mod = vm.moduleOf(fn)
			ip = frame.ip

		case compiler.END_MODULE:
			fiber.push(NullValue)

		case compiler.IMPORT_MODULE:
			idx := decodeU16(code, ip)
			ip += 2
			name := mod.Program.Constants[idx].(string)
			imported, err := vm.importModule(mod.Name, name)
			if err != nil {
				vm.runtimeError(fiber, "%s", err.Error())
				break loop
			}
			fiber.push(imported)

		case compiler.IMPORT_VARIABLE:
			idx := decodeU16(code, ip)
			ip += 2
			name := mod.Program.Constants[idx].(string)
			importedMod := fiber.pop().(*ObjModule)
			varIdx := -1
			for i, n := range importedMod.Program.ModuleVarNames {
				if n == name {
					varIdx = i
					break
				}
			}
			if varIdx < 0 {
				vm.runtimeError(fiber, "module %s has no variable named %q", importedMod.Name, name)
				break loop
			}
			fiber.push(importedMod.Variables[varIdx])

		default:
			if op >= compiler.CALL_0 && op <= compiler.CALL_16 {
				n := op.NumArgs()
				nameIdx := decodeU16(code, ip)
				ip += 2
				sym := vm.methodSymbol(mod.Program.Names[nameIdx])
				frame.ip = ip
				if !vm.invoke(fiber, sym, n) {
					if fiber.hasError {
						break loop
					}
					// fiber switched away (e.g. Fiber primitives); resume
					// from the VM's outer run loop.
					return NullValue, false
				}
				if len(fiber.frames) == 0 || &fiber.frames[len(fiber.frames)-1] != frame {
					frame = &fiber.frames[len(fiber.frames)-1]
					closure = frame.closure
					fn = closure.fn
					code = fn.Code
					mod = vm.moduleOf(fn)
				}
				ip = frame.ip
				break
			}
			if op >= compiler.SUPER_0 && op <= compiler.SUPER_16 {
				n := op.NumArgs()
				nameIdx := decodeU16(code, ip)
				ip += 2
				sym := vm.methodSymbol(mod.Program.Names[nameIdx])
				superConstIdx := decodeU16(code, ip)
				ip += 2
				superName := mod.Program.Constants[superConstIdx].(string)
				superclass := vm.lookupSuperclass(superName)
				frame.ip = ip
				if !vm.invokeOn(fiber, superclass, sym, n) {
					if fiber.hasError {
						break loop
					}
					return NullValue, false
				}
				if len(fiber.frames) == 0 || &fiber.frames[len(fiber.frames)-1] != frame {
					frame = &fiber.frames[len(fiber.frames)-1]
					closure = frame.closure
					fn = closure.fn
					code = fn.Code
					mod = vm.moduleOf(fn)
				}
				ip = frame.ip
				break
			}
			panic(fmt.Sprintf("vm: unimplemented opcode %v", op))
		}

		if fiber.hasError {
			return NullValue, false
		}
	}

	return NullValue, false
}

// invoke dispatches CALL_n: the receiver is nargs+1 slots below the stack
// top (itself included). classOf resolves which class's method table to
// search.
func (vm *VM) invoke(fiber *ObjFiber, sym, nargs int) bool {
	recv := fiber.peekAt(nargs)
	class := classOf(vm, recv)
	return vm.invokeOnClass(fiber, class, sym, nargs)
}

// invokeOn dispatches SUPER_n against an explicit starting class rather
// than the receiver's own runtime class.
func (vm *VM) invokeOn(fiber *ObjFiber, class *ObjClass, sym, nargs int) bool {
	return vm.invokeOnClass(fiber, class, sym, nargs)
}

func (vm *VM) invokeOnClass(fiber *ObjFiber, class *ObjClass, sym, nargs int) bool {
	m, ok := class.lookupMethod(sym)
	if !ok {
		sig := "?"
		if sym < vm.methodSymbols.Len() {
			sig = vm.methodSymbols.Name(int32(sym))
		}
		vm.runtimeError(fiber, "%s", vm.newClassError(class, sig).Error())
		return false
	}
	args := fiber.stack[len(fiber.stack)-nargs-1:]
	switch m.kind {
	case methodPrimitive, methodForeign:
		framesBefore := len(fiber.frames)
		ok := m.prim(vm, fiber, args)
		if ok && len(fiber.frames) != framesBefore {
			// The primitive pushed its own call frame onto this same fiber
			// (Fn.call resuming a closure) instead of computing an immediate
			// result; let that frame run rather than trimming args to a
			// result slot.
			return true
		}
		if ok {
			result := args[0]
			fiber.stack = fiber.stack[:len(fiber.stack)-nargs]
			fiber.stack[len(fiber.stack)-1] = result
		}
		return ok
	case methodFunctionCall:
		stackStart := len(fiber.stack) - nargs - 1
		fiber.ensureStack(m.fn.fn.NumLocals - nargs - 1)
		for len(fiber.stack) < stackStart+m.fn.fn.Arity+1 {
			fiber.push(NullValue)
		}
		fiber.frames = append(fiber.frames, callFrame{closure: m.fn, stackStart: stackStart})
		return true
	}
	vm.runtimeError(fiber, "cannot call unbound method")
	return false
}

// lookupSuperclass resolves a SUPER_n constant ("super:" + the name of the
// class whose method makes the call) to that class's superclass.
func (vm *VM) lookupSuperclass(name string) *ObjClass {
	if len(name) > len("super:") && name[:len("super:")] == "super:" {
		name = name[len("super:"):]
	}
	for _, c := range vm.coreClasses() {
		if c != nil && c.name == name && c.superclass != nil {
			return c.superclass
		}
	}
	for _, m := range vm.modules {
		for _, v := range m.Variables {
			if c, ok := v.(*ObjClass); ok && c.name == name && c.superclass != nil {
				return c.superclass
			}
		}
	}
	return vm.objectClass
}

// importModule returns the cached module for name, compiling and running
// it to completion on first reference.
func (vm *VM) importModule(importer, name string) (*ObjModule, error) {
	resolved := name
	if vm.Config.ResolveModule != nil {
		var err error
		resolved, err = vm.Config.ResolveModule(vm, importer, name)
		if err != nil {
			return nil, err
		}
	}
	if m, ok := vm.modules[resolved]; ok {
		return m, nil
	}
	if vm.Config.LoadModule == nil {
		return nil, fmt.Errorf("cannot import %q: no module loader configured", resolved)
	}
	src, err := vm.Config.LoadModule(vm, resolved)
	if err != nil {
		return nil, err
	}
	if err := vm.Interpret(resolved, src); err != nil {
		return nil, err
	}
	return vm.modules[resolved], nil
}
