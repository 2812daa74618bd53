package vm

import "golang.org/x/exp/slices"

// fiberState tracks how a fiber may currently be resumed, mirroring spec
// §4.4's call/transfer/try/yield state machine.
type fiberState int

const (
	fiberOther fiberState = iota // freshly created, or yielded: resumable by call/transfer
	fiberRoot                    // the initial, caller-less fiber driving Interpret
	fiberCurrent
	fiberCalled // currently running because something called/transferred into it
	fiberTry    // like fiberCalled, but catches runtime errors instead of propagating them
)

// callFrame is one activation record: which closure is running, the
// instruction pointer into its Code, and where its locals begin on the
// fiber's value stack.
type callFrame struct {
	closure    *ObjClosure
	ip         int
	stackStart int
}

// ObjFiber owns a growable value stack and call-frame array, plus the
// fiber's own list of open upvalues, kept sorted ascending by stack slot so
// captureUpvalue/closeUpvaluesFrom can binary-search it instead of scanning.
type ObjFiber struct {
	Obj
	stack       []Value
	frames      []callFrame
	openUpvals  []*ObjUpvalue
	caller      *ObjFiber
	state       fiberState
	err      Value
	hasError bool
	started  bool // false until its entry closure has run at least one instruction
}

func newFiber(vm *VM, closure *ObjClosure) *ObjFiber {
	f := &ObjFiber{
		stack: make([]Value, 0, 64),
		state: fiberOther,
	}
	vm.track(f, 0)
	f.class = vm.fiberClass
	if closure != nil {
		f.stack = append(f.stack, Value(closure))
		for len(f.stack) < closure.fn.Arity+1 {
			f.stack = append(f.stack, NullValue)
		}
		f.frames = append(f.frames, callFrame{closure: closure, stackStart: 0})
	}
	return f
}

func (f *ObjFiber) header() *Obj   { return &f.Obj }
func (f *ObjFiber) Type() string   { return "fiber" }
func (f *ObjFiber) String() string { return "<fiber>" }

func (f *ObjFiber) isDone() bool {
	return len(f.frames) == 0 || f.hasError
}

// push appends v, pre-growing (and relocating open upvalues) through
// ensureStack so a hidden slice reallocation never invalidates an upvalue's
// pointer into the backing array.
func (f *ObjFiber) push(v Value) {
	f.ensureStack(1)
	f.stack = append(f.stack, v)
}
func (f *ObjFiber) pop() Value     { v := f.stack[len(f.stack)-1]; f.stack = f.stack[:len(f.stack)-1]; return v }
func (f *ObjFiber) peek() Value    { return f.stack[len(f.stack)-1] }
func (f *ObjFiber) peekAt(n int) Value { return f.stack[len(f.stack)-1-n] }

// ensureStack grows the value stack by at least extra slots. Because
// ObjUpvalue.value points directly into this slice while open, growth must
// relocate every open upvalue to the new backing array.
func (f *ObjFiber) ensureStack(extra int) {
	need := len(f.stack) + extra
	if need <= cap(f.stack) {
		return
	}
	newCap := cap(f.stack) * 2
	if newCap < need {
		newCap = need
	}
	old := f.stack
	f.stack = make([]Value, len(old), newCap)
	copy(f.stack, old)

	// Every open upvalue now knows its own slot index, so relocating it to
	// the new backing array needs no address search.
	for _, uv := range f.openUpvals {
		uv.value = &f.stack[uv.idx]
	}
}

// upvalAt orders the open-upvalue list ascending by slot index for
// slices.BinarySearchFunc.
func upvalAt(uv *ObjUpvalue, idx int) int { return uv.idx - idx }

// captureUpvalue finds or creates the open upvalue for the local at stack
// index idx, keeping the open list sorted ascending by slot index.
func (f *ObjFiber) captureUpvalue(idx int) *ObjUpvalue {
	pos, found := slices.BinarySearchFunc(f.openUpvals, idx, upvalAt)
	if found {
		return f.openUpvals[pos]
	}
	uv := &ObjUpvalue{value: &f.stack[idx], idx: idx}
	f.openUpvals = slices.Insert(f.openUpvals, pos, uv)
	return uv
}

// closeUpvaluesFrom closes (boxes) every open upvalue at or above stack
// index idx, matching CLOSE_UPVALUE/scope-exit semantics. Since the list is
// sorted ascending, those are exactly the upvalues from the first one
// binary-searched at-or-past idx through the end.
func (f *ObjFiber) closeUpvaluesFrom(idx int) {
	pos, _ := slices.BinarySearchFunc(f.openUpvals, idx, upvalAt)
	for _, uv := range f.openUpvals[pos:] {
		uv.close()
	}
	f.openUpvals = f.openUpvals[:pos]
}
