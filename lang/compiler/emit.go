package compiler

import (
	"encoding/binary"

	"github.com/ripplelang/ripple/lang/token"
)

// local describes one slot in a function's locals region.
type local struct {
	name       string
	depth      int
	isCaptured bool
}

// loopCtx tracks the patch points needed to compile break/continue inside a
// loop body.
type loopCtx struct {
	continueTarget uint32 // absolute address to jump back to for "continue"
	breakJumps     []uint32 // addresses of JUMP instructions to patch to the loop's end
	scopeDepth     int
}

// fcomp holds the compiler state for a single Function (top-level module
// body, function expression, or method).
type fcomp struct {
	pc *pcomp

	enclosing *fcomp
	fn        *Function

	locals     []local
	scopeDepth int
	loops      []loopCtx

	curClass *classCtx // non-nil while compiling a method body
	lastLine int32
}

func newFcomp(pc *pcomp, enclosing *fcomp, name string, pos token.Pos) *fcomp {
	fc := &fcomp{
		pc:        pc,
		enclosing: enclosing,
		fn: &Function{
			Name:   name,
			Pos:    pos,
			Module: pc.prog,
		},
	}
	if enclosing != nil {
		fc.curClass = enclosing.curClass
	}
	// Slot 0 is always reserved for the closure/receiver the call convention
	// passes in (CALL_n's receiver, or the pushed closure when a fiber is
	// first entered): every function, block, and module body has it, even
	// when nothing names it. Method/constructor bodies rename it to "this"
	// right after creation so `this` resolves to it.
	fc.locals = append(fc.locals, local{name: "", depth: fc.scopeDepth})
	return fc
}

func (fc *fcomp) emitByte(b byte, line int32) {
	fc.fn.Code = append(fc.fn.Code, b)
	if len(fc.fn.lines) == 0 || fc.fn.lines[len(fc.fn.lines)-1].Line != line {
		fc.fn.lines = append(fc.fn.lines, lineEntry{Pc: uint32(len(fc.fn.Code) - 1), Line: line})
	}
}

func (fc *fcomp) emitOp(op Opcode, line int32) { fc.emitByte(byte(op), line) }

func (fc *fcomp) emitU8(op Opcode, arg byte, line int32) {
	fc.emitByte(byte(op), line)
	fc.emitByte(arg, line)
}

func (fc *fcomp) emitU16(op Opcode, arg uint16, line int32) {
	fc.emitByte(byte(op), line)
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], arg)
	fc.fn.Code = append(fc.fn.Code, buf[:]...)
}

// emitJump emits a jump opcode with a placeholder 2-byte operand and
// returns the byte offset of that operand, to be fixed up later by
// patchJump.
func (fc *fcomp) emitJump(op Opcode, line int32) uint32 {
	fc.emitByte(byte(op), line)
	pos := uint32(len(fc.fn.Code))
	fc.fn.Code = append(fc.fn.Code, 0, 0)
	return pos
}

func (fc *fcomp) patchJump(operandPos uint32) {
	target := uint32(len(fc.fn.Code))
	binary.BigEndian.PutUint16(fc.fn.Code[operandPos:operandPos+2], uint16(target))
}

func (fc *fcomp) emitLoop(target uint32, line int32) {
	fc.emitByte(byte(LOOP), line)
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(target))
	fc.fn.Code = append(fc.fn.Code, buf[:]...)
}

func (fc *fcomp) currentAddr() uint32 { return uint32(len(fc.fn.Code)) }

// --- constants & names -----------------------------------------------------

// constant adds v to the module-wide constant pool, deduplicating by value
// through constTable, and returns its index. Cap is 65536 per spec §3.4.
func (pc *pcomp) constant(v any) uint16 {
	if id, ok := pc.constTable.Lookup(v); ok {
		return uint16(id)
	}
	if pc.constTable.Len() >= 1<<16 {
		pc.errorAt(0, "too many constants in one module")
		return 0
	}
	id := pc.constTable.Intern(v)
	pc.prog.Constants = append(pc.prog.Constants, v)
	return uint16(id)
}

// name interns s in the module-wide name table used by CALL_n/SUPER_n and
// method-binding opcodes, returning its index.
func (pc *pcomp) name(s string) uint16 {
	if id, ok := pc.nameTable.Lookup(s); ok {
		return uint16(id)
	}
	id := pc.nameTable.Intern(s)
	pc.prog.Names = append(pc.prog.Names, s)
	return uint16(id)
}

// addFunction registers a compiled function (module body, method, or
// function literal) in the module's function table and returns its index,
// used as CLOSURE's operand.
func (pc *pcomp) addFunction(fn *Function) uint16 {
	idx := len(pc.prog.Functions)
	pc.prog.Functions = append(pc.prog.Functions, fn)
	return uint16(idx)
}

// emitClosure emits a CLOSURE instruction that builds a closure over fn,
// followed by one (isLocal, index) pair per upvalue fn captures.
func (fc *fcomp) emitClosure(fn *Function, line int32) {
	idx := fc.pc.addFunction(fn)
	fc.emitU16(CLOSURE, idx, line)
	for _, uv := range fn.Upvalues {
		var isLocal byte
		if uv.IsLocal {
			isLocal = 1
		}
		fc.emitByte(isLocal, line)
		fc.emitByte(uv.Index, line)
	}
}

// --- scope / locals ---------------------------------------------------------

func (fc *fcomp) beginScope() { fc.scopeDepth++ }

func (fc *fcomp) endScope(line int32) {
	fc.scopeDepth--
	for len(fc.locals) > 0 && fc.locals[len(fc.locals)-1].depth > fc.scopeDepth {
		last := fc.locals[len(fc.locals)-1]
		if last.isCaptured {
			fc.emitOp(CLOSE_UPVALUE, line)
		} else {
			fc.emitOp(POP, line)
		}
		fc.locals = fc.locals[:len(fc.locals)-1]
	}
}

// declareLocal adds name as a new local in the current scope. It returns
// the local's slot index.
func (fc *fcomp) declareLocal(name string) int {
	fc.locals = append(fc.locals, local{name: name, depth: fc.scopeDepth})
	if len(fc.locals) > 256 {
		fc.pc.errorAt(0, "too many local variables in one function")
	}
	return len(fc.locals) - 1
}

// resolveLocal looks up name among this function's locals (innermost scope
// first). It returns (-1, false) if not found.
func (fc *fcomp) resolveLocal(name string) (int, bool) {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			return i, true
		}
	}
	return -1, false
}

// resolveUpvalue walks outward through enclosing functions looking for name,
// recording an upvalue chain as needed. Returns (-1, false) if name is not
// found in any enclosing function (it must then be a module variable or
// undeclared).
func (fc *fcomp) resolveUpvalue(name string) (int, bool) {
	if fc.enclosing == nil {
		return -1, false
	}
	if slot, ok := fc.enclosing.resolveLocal(name); ok {
		fc.enclosing.locals[slot].isCaptured = true
		return fc.addUpvalue(true, uint8(slot)), true
	}
	if idx, ok := fc.enclosing.resolveUpvalue(name); ok {
		return fc.addUpvalue(false, uint8(idx)), true
	}
	return -1, false
}

// addUpvalue records a new upvalue capture, deduplicating identical
// (isLocal, index) pairs.
func (fc *fcomp) addUpvalue(isLocal bool, index uint8) int {
	for i, uv := range fc.fn.Upvalues {
		if uv.IsLocal == isLocal && uv.Index == index {
			return i
		}
	}
	fc.fn.Upvalues = append(fc.fn.Upvalues, UpvalueDesc{IsLocal: isLocal, Index: index})
	if len(fc.fn.Upvalues) > 256 {
		fc.pc.errorAt(0, "too many upvalues in one function")
	}
	fc.fn.NumUpvalues = len(fc.fn.Upvalues)
	return len(fc.fn.Upvalues) - 1
}

// --- local/upvalue/module-variable load & store -----------------------------

func (fc *fcomp) emitLoadName(name string, line int32) {
	if slot, ok := fc.resolveLocal(name); ok {
		fc.emitLoadLocal(slot, line)
		return
	}
	if idx, ok := fc.resolveUpvalue(name); ok {
		fc.emitU8(LOAD_UPVALUE, byte(idx), line)
		return
	}
	idx := fc.pc.moduleVar(name, line)
	fc.emitU16(LOAD_MODULE_VAR, idx, line)
}

func (fc *fcomp) emitStoreName(name string, line int32) {
	if slot, ok := fc.resolveLocal(name); ok {
		fc.emitU8(STORE_LOCAL, byte(slot), line)
		return
	}
	if idx, ok := fc.resolveUpvalue(name); ok {
		fc.emitU8(STORE_UPVALUE, byte(idx), line)
		return
	}
	idx := fc.pc.moduleVar(name, line)
	fc.emitU16(STORE_MODULE_VAR, idx, line)
}

func (fc *fcomp) emitLoadLocal(slot int, line int32) {
	if slot <= 8 {
		fc.emitOp(LOAD_LOCAL_0+Opcode(slot), line)
		return
	}
	fc.emitU8(LOAD_LOCAL, byte(slot), line)
}
