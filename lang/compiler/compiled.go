package compiler

import (
	"sort"

	"github.com/ripplelang/ripple/lang/token"
)

// UpvalueDesc describes how a closure captures one of its free variables:
// either directly from a local slot of the immediately enclosing function
// (IsLocal), or by forwarding an upvalue already captured by that enclosing
// function.
type UpvalueDesc struct {
	IsLocal bool
	Index   uint8
}

// lineEntry records that the instruction starting at byte offset Pc in a
// Function's Code originates from source line Line. Entries are appended in
// increasing Pc order as the compiler emits bytecode.
type lineEntry struct {
	Pc   uint32
	Line int32
}

// Function is the compiled form of a top-level module body, a function
// expression, or a method body. It owns its bytecode and a sparse,
// byte-offset-indexed table of source lines used to resolve runtime errors
// back to a position.
type Function struct {
	Name          string
	Pos           token.Pos
	Arity         int
	NumUpvalues   int
	NumLocals     int // parameters + declared locals, i.e. the frame's "locals" region size
	MaxStack      int // size of the operand-stack region beyond NumLocals
	IsInitializer bool

	Code     []byte
	Upvalues []UpvalueDesc
	Module   *Program

	lines []lineEntry
}

// LineForPC returns the source line of the instruction that contains byte
// offset pc. Used only for error reporting.
func (f *Function) LineForPC(pc int) int32 {
	i := sort.Search(len(f.lines), func(i int) bool { return f.lines[i].Pc > uint32(pc) })
	if i == 0 {
		return 0
	}
	return f.lines[i-1].Line
}

// Program is the compiled form of one module (one source file). Function 0
// is always the module's top-level code.
type Program struct {
	ModuleName string
	Constants  []any // int64 | float64 | string
	Names      []string
	Functions  []*Function

	NumModuleVars  int
	ModuleVarNames []string
}
