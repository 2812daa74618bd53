package vm

import (
	"reflect"

	"github.com/ripplelang/ripple/lang/compiler"
)

// collectGarbage runs one full mark-sweep cycle: mark every root and
// everything reachable from it, then sweep the all-objects list, freeing
// anything still white (running a foreign finalizer first) and clearing the
// dark bit on survivors so the next cycle starts over.
func (vm *VM) collectGarbage() {
	vm.gray = vm.gray[:0]

	for _, m := range vm.modules {
		vm.markObject(m)
	}
	for i := 0; i < vm.numTempRoots; i++ {
		vm.markObject(vm.tempRoots[i])
	}
	if vm.fiber != nil {
		vm.markObject(vm.fiber)
	}
	for h := vm.handles; h != nil; h = h.next {
		vm.markObject(h)
		vm.markValue(h.Value)
	}
	for _, c := range vm.compilerRoots {
		vm.markFunctionConstants(c)
	}
	for _, cls := range vm.coreClasses() {
		vm.markObject(cls)
	}

	vm.blackenAll()
	vm.sweep()
	vm.nextGC = vm.bytesAllocated + vm.bytesAllocated*vm.HeapGrowthPercent/100
	if vm.nextGC < vm.MinHeapSize {
		vm.nextGC = vm.MinHeapSize
	}
}

func (vm *VM) coreClasses() []*ObjClass {
	return []*ObjClass{
		vm.objectClass, vm.classClass, vm.nullClass, vm.boolClass, vm.numClass,
		vm.stringClass, vm.listClass, vm.mapClass, vm.rangeClass, vm.fiberClass,
		vm.fnClass, vm.systemClass,
	}
}

// markObject grays o if it is not already marked, pushing it onto the
// worklist so blackenAll can trace its children later. Safe to call with a
// nil interface value or a nil concrete pointer boxed in one (Object's
// superclass, a caller-less fiber, ...): Go's `o == nil` only catches the
// former, so a reflect-based check covers the latter.
func (vm *VM) markObject(o heapObj) {
	if o == nil {
		return
	}
	if v := reflect.ValueOf(o); v.Kind() == reflect.Ptr && v.IsNil() {
		return
	}
	h := o.header()
	if h == nil || h.dark {
		return
	}
	h.dark = true
	vm.gray = append(vm.gray, o)
}

// markValue grays v's underlying object, if it has one (Null/Bool/Num carry
// no heap allocation and are ignored).
func (vm *VM) markValue(v Value) {
	if o, ok := v.(heapObj); ok {
		vm.markObject(o)
	}
}

// blackenAll drains the gray worklist, tracing each object's references in
// turn. Newly grayed objects discovered while tracing are appended to the
// same slice, so the loop naturally continues until the worklist is empty.
func (vm *VM) blackenAll() {
	for len(vm.gray) > 0 {
		o := vm.gray[len(vm.gray)-1]
		vm.gray = vm.gray[:len(vm.gray)-1]
		vm.blacken(o)
	}
}

func (vm *VM) blacken(o heapObj) {
	vm.markObject(o.header().class)
	switch x := o.(type) {
	case *ObjString:
		// no references
	case *ObjRange:
		// no heap references
	case *ObjList:
		for _, e := range x.elems {
			vm.markValue(e)
		}
	case *ObjMap:
		x.m.Iter(func(k, v Value) bool {
			vm.markValue(k)
			vm.markValue(v)
			return false
		})
	case *ObjUpvalue:
		vm.markValue(*x.value)
	case *ObjClosure:
		for _, uv := range x.upvalues {
			vm.markObject(uv)
		}
		vm.markFunctionConstants(x.fn)
	case *ObjInstance:
		vm.markObject(x.class)
		for _, f := range x.fields {
			vm.markValue(f)
		}
	case *ObjForeign:
		vm.markObject(x.class)
	case *ObjModule:
		for _, v := range x.Variables {
			vm.markValue(v)
		}
		for _, v := range x.constCache {
			vm.markValue(v)
		}
	case *ObjClass:
		vm.markObject(x.superclass)
		vm.markObject(x.meta)
		vm.markValue(x.attributes)
		for _, m := range x.methods {
			if m.kind == methodFunctionCall && m.fn != nil {
				vm.markObject(m.fn)
			}
		}
	case *ObjFiber:
		for _, v := range x.stack {
			vm.markValue(v)
		}
		for _, fr := range x.frames {
			vm.markObject(fr.closure)
		}
		for _, uv := range x.openUpvals {
			vm.markObject(uv)
		}
		vm.markObject(x.caller)
		vm.markValue(x.err)
	case *Handle:
		vm.markValue(x.Value)
	}
}

// markFunctionConstants marks nothing: a compiled function's constants are
// plain Go values on its Program, and the strings realized from them live
// in the owning module's constCache, which blacken marks with the module.
func (vm *VM) markFunctionConstants(fn *compiler.Function) {
	if fn == nil || fn.Module == nil {
		return
	}
	// Constants are owned by the Program, not per-Function; nothing further
	// to mark here beyond what's already reachable via the closures that
	// reference this Function, since Program.Constants holds only
	// interpreter-independent Go values (int64/float64/string) realized into
	// ObjString lazily by CONSTANT, not stored as Values directly.
}

// sweep walks the intrusive all-objects list, reclaiming every object still
// white (unreached this cycle) and clearing the mark bit on survivors.
func (vm *VM) sweep() {
	var prev heapObj
	cur := vm.allObjects
	for cur != nil {
		h := cur.header()
		next := h.next
		if h.dark {
			h.dark = false
			prev = cur
		} else {
			if f, ok := cur.(*ObjForeign); ok && f.onFinalize != nil {
				f.onFinalize(f.Data)
			}
			vm.bytesAllocated -= h.size
			if prev == nil {
				vm.allObjects = next
			} else {
				prev.header().next = next
			}
		}
		cur = next
	}
}
