package compiler

import (
	"fmt"
	"io"
)

// Disassemble writes a human-readable dump of every function in prog (the
// module body plus every nested function/method literal it compiled), for
// the `ripple parse` debugging command -- the closest Ripple's single-pass,
// AST-less compiler gets to printing a parse tree.
func Disassemble(w io.Writer, prog *Program) {
	fmt.Fprintf(w, "== %s ==\n", prog.ModuleName)
	for i, fn := range prog.Functions {
		fmt.Fprintf(w, "\n-- fn %d: %s (arity %d, locals %d, upvalues %d) --\n",
			i, fnLabel(fn), fn.Arity, fn.NumLocals, fn.NumUpvalues)
		disassembleFunction(w, fn)
	}
}

func fnLabel(fn *Function) string {
	if fn.Name == "" {
		return "<anonymous>"
	}
	return fn.Name
}

// disassembleFunction walks fn's bytecode linearly, printing one line per
// instruction. Jump targets are printed as absolute byte offsets, matching
// how JUMP/LOOP/JUMP_IF/AND/OR encode them.
func disassembleFunction(w io.Writer, fn *Function) {
	code := fn.Code
	for ip := 0; ip < len(code); {
		start := ip
		op := Opcode(code[ip])
		ip++
		fmt.Fprintf(w, "%04d  %-16s", start, op)

		switch {
		case op == CONSTANT || op == DOLLAR:
			idx := u16(code, ip)
			ip += 2
			fmt.Fprintf(w, " %d (%v)", idx, constantAt(fn, idx))
		case op == LOAD_LOCAL || op == STORE_LOCAL ||
			op == LOAD_UPVALUE || op == STORE_UPVALUE ||
			op == LOAD_FIELD_THIS || op == STORE_FIELD_THIS ||
			op == LOAD_FIELD || op == STORE_FIELD || op == CLASS:
			fmt.Fprintf(w, " %d", code[ip])
			ip++
		case op == LOAD_MODULE_VAR || op == STORE_MODULE_VAR:
			idx := u16(code, ip)
			ip += 2
			name := ""
			if int(idx) < len(fn.Module.ModuleVarNames) {
				name = fn.Module.ModuleVarNames[idx]
			}
			fmt.Fprintf(w, " %d (%s)", idx, name)
		case op == JUMP || op == LOOP || op == JUMP_IF || op == AND || op == OR:
			target := u16(code, ip)
			ip += 2
			fmt.Fprintf(w, " -> %d", target)
		case op == CLOSURE:
			idx := u16(code, ip)
			ip += 2
			fmt.Fprintf(w, " fn %d", idx)
			if int(idx) < len(fn.Module.Functions) {
				nup := fn.Module.Functions[idx].NumUpvalues
				for i := 0; i < nup; i++ {
					isLocal := code[ip]
					uidx := code[ip+1]
					ip += 2
					kind := "upvalue"
					if isLocal != 0 {
						kind = "local"
					}
					fmt.Fprintf(w, " (%s %d)", kind, uidx)
				}
			}
		case op == METHOD_INSTANCE || op == METHOD_STATIC || op == IMPORT_MODULE || op == IMPORT_VARIABLE:
			idx := u16(code, ip)
			ip += 2
			fmt.Fprintf(w, " %d", idx)
		case op >= CALL_0 && op <= CALL_16:
			sym := u16(code, ip)
			ip += 2
			name := ""
			if int(sym) < len(fn.Module.Names) {
				name = fn.Module.Names[sym]
			}
			fmt.Fprintf(w, " %d (%s)", sym, name)
		case op >= SUPER_0 && op <= SUPER_16:
			sym := u16(code, ip)
			ip += 2
			superIdx := u16(code, ip)
			ip += 2
			name := ""
			if int(sym) < len(fn.Module.Names) {
				name = fn.Module.Names[sym]
			}
			fmt.Fprintf(w, " %d (%s) super-const %d", sym, name, superIdx)
		}
		fmt.Fprintln(w)
	}
}

func u16(code []byte, ip int) uint16 { return uint16(code[ip])<<8 | uint16(code[ip+1]) }

func constantAt(fn *Function, idx uint16) any {
	if fn.Module == nil || int(idx) >= len(fn.Module.Constants) {
		return nil
	}
	return fn.Module.Constants[idx]
}
