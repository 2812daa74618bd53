package vm

import (
	"fmt"
	"strings"

	"github.com/dolthub/swiss"

	"github.com/ripplelang/ripple/lang/compiler"
)

// ObjString is an immutable, heap-allocated string.
type ObjString struct {
	Obj
	s string
}

func newString(vm *VM, s string) *ObjString {
	o := &ObjString{s: s}
	vm.track(o, len(s))
	o.class = vm.stringClass
	return o
}

func (s *ObjString) String() string { return s.s }
func (s *ObjString) Type() string   { return "string" }
func (s *ObjString) header() *Obj   { return &s.Obj }

// ObjRange is a numeric range, inclusive or exclusive of `to`.
type ObjRange struct {
	Obj
	From, To    float64
	IsInclusive bool
}

func newRange(vm *VM, from, to float64, inclusive bool) *ObjRange {
	o := &ObjRange{From: from, To: to, IsInclusive: inclusive}
	vm.track(o, 24)
	o.class = vm.rangeClass
	return o
}

func (r *ObjRange) header() *Obj { return &r.Obj }
func (r *ObjRange) Type() string { return "range" }
func (r *ObjRange) String() string {
	op := "..."
	if r.IsInclusive {
		op = ".."
	}
	return fmt.Sprintf("%s%s%s", Num(r.From), op, Num(r.To))
}

// ObjList is a growable array of Values.
type ObjList struct {
	Obj
	elems []Value
}

func newList(vm *VM) *ObjList {
	o := &ObjList{}
	vm.track(o, 0)
	o.class = vm.listClass
	return o
}

func (l *ObjList) header() *Obj { return &l.Obj }
func (l *ObjList) Type() string { return "list" }
func (l *ObjList) String() string {
	parts := make([]string, len(l.elems))
	for i, e := range l.elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ObjMap is a hash map keyed by any hashable Value (swiss open-addressing,
// matching the teacher's `lang/machine/map.go` use of the same library).
type ObjMap struct {
	Obj
	m *swiss.Map[Value, Value]
}

func newMap(vm *VM) *ObjMap {
	o := &ObjMap{m: swiss.NewMap[Value, Value](8)}
	vm.track(o, 0)
	o.class = vm.mapClass
	return o
}

func (m *ObjMap) header() *Obj { return &m.Obj }
func (m *ObjMap) Type() string { return "map" }
func (m *ObjMap) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	m.m.Iter(func(k, v Value) bool {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(k.String())
		sb.WriteString(": ")
		sb.WriteString(v.String())
		return false
	})
	sb.WriteByte('}')
	return sb.String()
}

// ObjUpvalue is a reference cell for one captured local. While open, value
// points into a live fiber's stack; CLOSE_UPVALUE moves the value into
// closed and repoints value at it.
type ObjUpvalue struct {
	Obj
	value  *Value
	closed Value
	idx    int // stack slot this upvalue is open over; meaningless once closed
}

func (u *ObjUpvalue) header() *Obj   { return &u.Obj }
func (u *ObjUpvalue) Type() string   { return "upvalue" }
func (u *ObjUpvalue) String() string { return "<upvalue>" }

func (u *ObjUpvalue) close() {
	u.closed = *u.value
	u.value = &u.closed
}

// ObjClosure pairs a compiled function with the upvalues it captured at the
// point its CLOSURE instruction ran.
type ObjClosure struct {
	Obj
	fn       *compiler.Function
	upvalues []*ObjUpvalue
}

func newClosure(vm *VM, fn *compiler.Function) *ObjClosure {
	o := &ObjClosure{fn: fn, upvalues: make([]*ObjUpvalue, fn.NumUpvalues)}
	vm.track(o, 0)
	o.class = vm.fnClass
	return o
}

func (c *ObjClosure) header() *Obj   { return &c.Obj }
func (c *ObjClosure) Type() string   { return "fn" }
func (c *ObjClosure) String() string { return fmt.Sprintf("<fn %s>", c.fn.Name) }

// ObjInstance is an instance of a non-foreign, user-defined class.
type ObjInstance struct {
	Obj
	fields []Value
}

func newInstance(vm *VM, class *ObjClass) *ObjInstance {
	o := &ObjInstance{fields: make([]Value, class.numFields)}
	for i := range o.fields {
		o.fields[i] = NullValue
	}
	vm.track(o, len(o.fields)*8)
	o.class = class
	return o
}

func (i *ObjInstance) header() *Obj   { return &i.Obj }
func (i *ObjInstance) Type() string   { return i.class.name }
func (i *ObjInstance) String() string { return fmt.Sprintf("<instance of %s>", i.class.name) }

// ObjForeign is an instance of a foreign class: its state lives entirely in
// host-owned memory reached through Data, not in a fields slice.
type ObjForeign struct {
	Obj
	Data       any
	onFinalize func(any)
}

func newForeign(vm *VM, class *ObjClass) *ObjForeign {
	o := &ObjForeign{}
	vm.track(o, 0)
	o.class = class
	return o
}

func (f *ObjForeign) header() *Obj   { return &f.Obj }
func (f *ObjForeign) Type() string   { return f.class.name }
func (f *ObjForeign) String() string { return fmt.Sprintf("<foreign %s>", f.class.name) }

// ObjModule represents one compiled and (possibly partially) executed
// module: its compiled Program plus the live module-variable slots.
type ObjModule struct {
	Obj
	Name      string
	Program   *compiler.Program
	Variables []Value

	constCache []Value // lazily realized CONSTANT values, indexed like Program.Constants
}

func newModule(vm *VM, prog *compiler.Program) *ObjModule {
	vars := make([]Value, prog.NumModuleVars)
	for i := range vars {
		vars[i] = NullValue
	}
	o := &ObjModule{Name: prog.ModuleName, Program: prog, Variables: vars}
	vm.track(o, len(vars)*8)
	return o
}

func (m *ObjModule) header() *Obj   { return &m.Obj }
func (m *ObjModule) Type() string   { return "module" }
func (m *ObjModule) String() string { return fmt.Sprintf("<module %s>", m.Name) }

// Handle pins a value against collection for as long as the host holds it.
type Handle struct {
	Obj
	Value Value
	next  *Handle
	prev  *Handle
}

func (h *Handle) header() *Obj   { return &h.Obj }
func (h *Handle) Type() string   { return "handle" }
func (h *Handle) String() string { return "<handle>" }
