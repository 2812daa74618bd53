package vm

import "fmt"

// CallHandle is a compiled stub that drives CALL_n dispatch over a
// pre-populated slot window (spec §4.7): the host places the receiver in
// slot 0 and its arguments in slots 1..arity, then calls Call.
type CallHandle struct {
	sig   string
	nargs int
}

// MakeCallHandle compiles sig (e.g. "call(_)", "+(_)", "toString") into a
// reusable CallHandle. Unlike a real compiled CALL_n/RETURN/END stub this
// just records the signature, which Call resolves to a method symbol on
// each call before replaying vm.invoke directly -- it
// reaches the exact same dispatch path CALL_n does, without the overhead of
// running a trivial function through the fiber loop for every call.
func (vm *VM) MakeCallHandle(sig string) *CallHandle {
	return &CallHandle{sig: sig, nargs: countCallArgs(sig)}
}

func countCallArgs(sig string) int {
	n := 0
	for _, r := range sig {
		if r == '_' {
			n++
		}
	}
	return n
}

// apiBase returns the slot-0 offset into f's value stack: the start of the
// topmost call frame's locals, or the stack top if f has no frames (a
// freshly created, not-yet-started fiber).
func (vm *VM) apiBase(f *ObjFiber) int {
	if len(f.frames) == 0 {
		return len(f.stack)
	}
	return f.frames[len(f.frames)-1].stackStart
}

// EnsureSlots grows the current fiber's slot window to hold at least n
// slots, padding with null.
func (vm *VM) EnsureSlots(n int) {
	f := vm.fiber
	base := vm.apiBase(f)
	for len(f.stack) < base+n {
		f.push(NullValue)
	}
}

func (vm *VM) slotIndex(slot int) int { return vm.apiBase(vm.fiber) + slot }

// GetSlot and SetSlot are the untyped core of the slot API; the typed
// Get/SetSlot* helpers below are thin wrappers over these two.
func (vm *VM) GetSlot(slot int) Value        { return vm.fiber.stack[vm.slotIndex(slot)] }
func (vm *VM) SetSlot(slot int, v Value)     { vm.fiber.stack[vm.slotIndex(slot)] = v }

func (vm *VM) GetSlotDouble(slot int) float64 {
	n, _ := vm.GetSlot(slot).(Num)
	return float64(n)
}
func (vm *VM) SetSlotDouble(slot int, v float64) { vm.SetSlot(slot, Num(v)) }

func (vm *VM) GetSlotString(slot int) string {
	if s, ok := vm.GetSlot(slot).(*ObjString); ok {
		return s.s
	}
	return ""
}
func (vm *VM) SetSlotString(slot int, s string) { vm.SetSlot(slot, newString(vm, s)) }

func (vm *VM) GetSlotBool(slot int) bool {
	b, _ := vm.GetSlot(slot).(Bool)
	return bool(b)
}
func (vm *VM) SetSlotBool(slot int, b bool) { vm.SetSlot(slot, Bool(b)) }

func (vm *VM) SetSlotNull(slot int) { vm.SetSlot(slot, NullValue) }

// SetSlotNewList/SetSlotNewMap create a fresh List/Map directly in a slot,
// for a foreign method building a return value.
func (vm *VM) SetSlotNewList(slot int) { vm.SetSlot(slot, newList(vm)) }
func (vm *VM) SetSlotNewMap(slot int)  { vm.SetSlot(slot, newMap(vm)) }

// GetListCount, GetListElement, SetListElement, and InsertInList give the
// host index-level access to a List living in a slot, without going
// through core method dispatch.
func (vm *VM) GetListCount(slot int) int {
	l, _ := vm.GetSlot(slot).(*ObjList)
	if l == nil {
		return 0
	}
	return len(l.elems)
}

func (vm *VM) GetListElement(listSlot, index, elemSlot int) {
	l := vm.GetSlot(listSlot).(*ObjList)
	vm.SetSlot(elemSlot, l.elems[index])
}

func (vm *VM) SetListElement(listSlot, index, elemSlot int) {
	l := vm.GetSlot(listSlot).(*ObjList)
	l.elems[index] = vm.GetSlot(elemSlot)
}

func (vm *VM) InsertInList(listSlot, index, elemSlot int) {
	l := vm.GetSlot(listSlot).(*ObjList)
	v := vm.GetSlot(elemSlot)
	l.elems = append(l.elems, NullValue)
	copy(l.elems[index+1:], l.elems[index:])
	l.elems[index] = v
}

// GetMapValue and SetMapValue give the host key-level access to a Map
// living in a slot.
func (vm *VM) GetMapValue(mapSlot, keySlot, valueSlot int) {
	m := vm.GetSlot(mapSlot).(*ObjMap)
	if v, ok := m.m.Get(vm.GetSlot(keySlot)); ok {
		vm.SetSlot(valueSlot, v)
		return
	}
	vm.SetSlotNull(valueSlot)
}

func (vm *VM) SetMapValue(mapSlot, keySlot, valueSlot int) {
	m := vm.GetSlot(mapSlot).(*ObjMap)
	m.m.Put(vm.GetSlot(keySlot), vm.GetSlot(valueSlot))
}

// SetSlotNewForeign allocates a foreign instance of the class sitting in
// classSlot, attaches data as its host-owned payload, and stores the
// result in slot -- the one call a foreign class's allocate callback is
// expected to make (spec §4.7).
func (vm *VM) SetSlotNewForeign(slot, classSlot int, data any, onFinalize func(any)) {
	class := vm.GetSlot(classSlot).(*ObjClass)
	f := newForeign(vm, class)
	f.Data = data
	f.onFinalize = onFinalize
	vm.SetSlot(slot, f)
}

// GetSlotForeign returns the host payload of the foreign instance in slot.
func (vm *VM) GetSlotForeign(slot int) any {
	if f, ok := vm.GetSlot(slot).(*ObjForeign); ok {
		return f.Data
	}
	return nil
}

// Call drives handle against the receiver/arguments currently sitting in
// slots 0..handle.nargs of the current fiber, per spec §4.7. The result is
// left in slot 0.
func (vm *VM) Call(handle *CallHandle) error {
	f := vm.fiber
	sym := vm.methodSymbol(handle.sig)
	if vm.invoke(f, sym, handle.nargs) {
		return nil
	}
	if f.hasError {
		err := fmt.Errorf("%s", f.err.String())
		f.hasError = false
		f.err = nil
		return err
	}
	// The primitive pushed a frame or switched fibers (e.g. the receiver was
	// a Fn or the call entered a Fiber); drive it to completion before
	// returning control to the host, exactly as the outer run loop would for
	// a CALL_n reached from bytecode.
	_, err := vm.run(vm.fiber)
	return err
}

// GetVariable resolves module.name into slot, reporting whether it exists.
func (vm *VM) GetVariable(module, name string, slot int) bool {
	mod, ok := vm.modules[module]
	if !ok {
		return false
	}
	for i, n := range mod.Program.ModuleVarNames {
		if n == name {
			vm.SetSlot(slot, mod.Variables[i])
			return true
		}
	}
	return false
}

func (vm *VM) HasVariable(module, name string) bool {
	mod, ok := vm.modules[module]
	if !ok {
		return false
	}
	for _, n := range mod.Program.ModuleVarNames {
		if n == name {
			return true
		}
	}
	return false
}

func (vm *VM) HasModule(module string) bool {
	_, ok := vm.modules[module]
	return ok
}

// MakeHandle pins v against collection until ReleaseHandle is called,
// threading a node into the VM's handle list (spec §4.7).
func (vm *VM) MakeHandle(v Value) *Handle {
	h := &Handle{Value: v}
	h.next = vm.handles
	if vm.handles != nil {
		vm.handles.prev = h
	}
	vm.handles = h
	return h
}

// ReleaseHandle unlinks h from the VM's handle list; v becomes collectible
// again once nothing else references it.
func (vm *VM) ReleaseHandle(h *Handle) {
	if h.prev != nil {
		h.prev.next = h.next
	} else if vm.handles == h {
		vm.handles = h.next
	}
	if h.next != nil {
		h.next.prev = h.prev
	}
	h.next, h.prev = nil, nil
}

// AbortFiber copies the value in slot into the current fiber's error field
// and signals an abort, the same outcome Fiber.abort(_) produces from
// script code.
func (vm *VM) AbortFiber(slot int) {
	f := vm.fiber
	f.err = vm.GetSlot(slot)
	f.hasError = true
}
