package vm

import (
	"fmt"
	"time"

	"github.com/ripplelang/ripple/lang/compiler"
	"github.com/ripplelang/ripple/lang/symtab"
)

// ReallocateFunc mirrors a host-provided allocator hook: newSize 0 means
// free, oldPtr nil means fresh allocation. Most embedders never need to set
// this. The VM allocates through the Go runtime and never calls
// Reallocate, even when it is set.
type ReallocateFunc func(oldPtr any, oldSize, newSize int) any

// ResolveModuleFunc rewrites an import name relative to the module that is
// importing it (e.g. resolving a relative path), returning the canonical
// name under which the module should be cached.
type ResolveModuleFunc func(vm *VM, importer, name string) (string, error)

// LoadModuleFunc returns the source text for a resolved module name.
type LoadModuleFunc func(vm *VM, name string) ([]byte, error)

// BindForeignMethodFunc resolves a foreign method declaration to a Go
// function at class-definition time.
type BindForeignMethodFunc func(vm *VM, module, className, sig string, isStatic bool) primitiveFn

// BindForeignClassFunc resolves a foreign class's allocate/finalize pair.
type BindForeignClassFunc func(vm *VM, module, className string) (allocate func(*VM, []Value) any, finalize func(any))

// WriteFunc receives text written by the core `System.writeString_(_)`
// method.
type WriteFunc func(vm *VM, text string)

// ErrorFunc receives compile errors and runtime errors. A runtime error
// that escapes Interpret is reported once, with line -1; no ErrorStackTrace
// lines are produced.
type ErrorFunc func(vm *VM, kind ErrorKind, module string, line int, message string)

// DollarOperatorFunc implements the `$"..."` host-hook string literal: it
// receives the literal text between the quotes and returns the Value it
// should evaluate to.
type DollarOperatorFunc func(vm *VM, text string) (Value, error)

// ErrorKind distinguishes the three situations ErrorFunc can be called for.
type ErrorKind int

const (
	ErrorCompile ErrorKind = iota
	ErrorRuntime
	ErrorStackTrace
)

// Config holds every host-supplied knob and callback. The zero Config is
// usable: all callbacks are optional, and the heap-sizing fields fall back
// to their defaults in NewVM.
type Config struct {
	Reallocate          ReallocateFunc
	ResolveModule       ResolveModuleFunc
	LoadModule          LoadModuleFunc
	BindForeignMethod   BindForeignMethodFunc
	BindForeignClass    BindForeignClassFunc
	Write               WriteFunc
	Error               ErrorFunc
	DollarOperator      DollarOperatorFunc

	InitialHeapSize   int // default 10 MiB
	MinHeapSize       int // default 1 MiB
	HeapGrowthPercent int // default 50

	AcceptsTrailingSemicolons bool
	StressGC                  bool // collect on every allocation; for GC testing

	UserData any
}

const (
	defaultInitialHeapSize   = 10 * 1024 * 1024
	defaultMinHeapSize       = 1024 * 1024
	defaultHeapGrowthPercent = 50
)

// VM is one interpreter instance: its heap, its loaded modules, its core
// class library, and the fiber currently executing. Nothing here is safe
// for concurrent use from more than one goroutine at a time, matching the
// teacher's single-threaded Thread/machine design.
type VM struct {
	Config

	modules map[string]*ObjModule
	// progModules maps a compiled Program back to the runtime module that
	// owns its variable slots, so a closure's LOAD_MODULE_VAR/STORE_MODULE_VAR
	// always resolves against the module that defined it, never the caller's.
	progModules map[*compiler.Program]*ObjModule

	// Core classes, bound once in bootstrap and consulted by classOf and by
	// the primitive methods that construct new instances of them.
	objectClass *ObjClass
	classClass  *ObjClass
	nullClass   *ObjClass
	boolClass   *ObjClass
	numClass    *ObjClass
	stringClass *ObjClass
	listClass   *ObjClass
	mapClass    *ObjClass
	rangeClass  *ObjClass
	fiberClass  *ObjClass
	fnClass     *ObjClass
	systemClass *ObjClass

	methodSymbols *symtab.Table[string]

	fiber *ObjFiber // the fiber currently running, or the root fiber between calls

	// GC bookkeeping.
	allObjects     heapObj
	bytesAllocated int
	nextGC         int
	gray           []heapObj
	tempRoots      [maxTempRoots]heapObj
	numTempRoots   int
	handles        *Handle

	// compilerRoots lists compiled Functions that collectGarbage passes to
	// markFunctionConstants; nothing adds entries to it.
	compilerRoots []*compiler.Function

	startTime time.Time // for System.clock
}

const maxTempRoots = 8

// NewVM creates a VM, applying Config defaults and bootstrapping the core
// class library (Object/Class/Bool/Null/Num/String/List/Map/Range/Fiber/Fn/
// System).
func NewVM(cfg Config) *VM {
	if cfg.InitialHeapSize <= 0 {
		cfg.InitialHeapSize = defaultInitialHeapSize
	}
	if cfg.MinHeapSize <= 0 {
		cfg.MinHeapSize = defaultMinHeapSize
	}
	if cfg.HeapGrowthPercent <= 0 {
		cfg.HeapGrowthPercent = defaultHeapGrowthPercent
	}
	vm := &VM{
		Config:        cfg,
		modules:       make(map[string]*ObjModule),
		progModules:   make(map[*compiler.Program]*ObjModule),
		methodSymbols: symtab.NewTable[string](),
		nextGC:        cfg.InitialHeapSize,
		startTime:     time.Now(),
	}
	vm.bootstrapCore()
	vm.fiber = newFiber(vm, nil)
	vm.fiber.state = fiberRoot
	return vm
}

// methodSymbol interns sig in the shared method-name symbol table, returning
// a stable id usable as a method-table index across every class.
func (vm *VM) methodSymbol(sig string) int { return int(vm.methodSymbols.Intern(sig)) }

// track registers a freshly allocated heap object with the collector: it is
// linked into the all-objects list, its approximate size is added to
// bytesAllocated, and a collection runs first if that crosses nextGC (or
// always, under StressGC).
func (vm *VM) track(o heapObj, size int) {
	h := o.header()
	h.size = size
	vm.bytesAllocated += size
	if vm.StressGC || vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}
	h.next = vm.allObjects
	vm.allObjects = o
}

// pushTempRoot protects v from collection until the matching popTempRoot,
// for objects under construction that are not yet reachable from the stack
// (e.g. a List being filled in from a Go loop that itself allocates).
func (vm *VM) pushTempRoot(v heapObj) {
	if vm.numTempRoots >= maxTempRoots {
		panic("vm: too many temporary GC roots")
	}
	vm.tempRoots[vm.numTempRoots] = v
	vm.numTempRoots++
}

func (vm *VM) popTempRoot() {
	vm.numTempRoots--
}

// NewString allocates an interpreter string from a Go string.
func (vm *VM) NewString(s string) *ObjString { return newString(vm, s) }

// NewList allocates an empty interpreter list.
func (vm *VM) NewList() *ObjList { return newList(vm) }

// NewMap allocates an empty interpreter map.
func (vm *VM) NewMap() *ObjMap { return newMap(vm) }

// reportError funnels a message through Config.Error if set, else does
// nothing (embedders that don't care about diagnostics just miss them).
func (vm *VM) reportError(kind ErrorKind, module string, line int, format string, args ...any) {
	if vm.Config.Error == nil {
		return
	}
	vm.Config.Error(vm, kind, module, line, fmt.Sprintf(format, args...))
}

// clockSeconds returns elapsed wall-clock seconds since the VM started, for
// System.clock.
func (vm *VM) clockSeconds() float64 { return time.Since(vm.startTime).Seconds() }

func (vm *VM) write(text string) {
	if vm.Config.Write != nil {
		vm.Config.Write(vm, text)
	}
}
