package compiler

import (
	"fmt"

	"github.com/ripplelang/ripple/lang/token"
)

// classCtx holds the compile-time state for one class body: its field
// table (fields are declared implicitly by their first use inside an
// instance method, mirroring how locals are declared) and the method
// signature sets used to catch duplicate method definitions.
type classCtx struct {
	enclosing *classCtx

	name      string
	isForeign bool

	fields map[string]uint8

	instanceMethods map[string]bool
	staticMethods   map[string]bool
}

// fieldSlot returns name's field index within the current class, declaring
// it if this is the first time it has been referenced.
func (cls *classCtx) fieldSlot(pc *pcomp, name string, line int32) uint8 {
	if idx, ok := cls.fields[name]; ok {
		return idx
	}
	if cls.isForeign {
		pc.errorAt(line, "foreign classes cannot have fields")
	}
	idx := uint8(len(cls.fields))
	if len(cls.fields) >= 255 {
		pc.errorAt(line, "too many fields in one class")
	}
	cls.fields[name] = idx
	return idx
}

// classDecl compiles `[foreign] class Name [is Superclass] { ... }`, binding
// the new class to a variable named after it the same way a `var` would.
// END_CLASS consumes the attributes and the reloaded class, so the
// declaration leaves nothing on the stack.
func (fc *fcomp) classDecl() {
	pc := fc.pc
	line := pc.line()
	isForeign := pc.match(token.FOREIGN)
	pc.consume(token.CLASS, "'class'")
	nameTok := pc.consume(token.IDENT, "class name")
	name := nameTok.val.String

	if pc.match(token.IS) {
		fc.expression()
	} else {
		fc.emitOp(NULL, line)
	}
	fc.emitU16(CONSTANT, pc.constant(name), line)

	classOp := CLASS
	if isForeign {
		classOp = FOREIGN_CLASS
	}
	fc.emitOp(classOp, line)

	var fieldCountPos uint32
	if !isForeign {
		fieldCountPos = fc.currentAddr()
		fc.emitByte(0, line) // patched below, once the field count is known
	}

	// The class name is bound to its variable (module or local) right away,
	// before the body is parsed, so methods can refer to their own class
	// (e.g. a static factory returning `new(_)`) and so each method
	// definition below can simply reload it by name.
	fc.declareAndInitVariable(name, line)

	cls := &classCtx{
		enclosing:       fc.curClass,
		name:            name,
		isForeign:       isForeign,
		fields:          make(map[string]uint8),
		instanceMethods: make(map[string]bool),
		staticMethods:   make(map[string]bool),
	}
	fc.curClass = cls

	pc.consume(token.LBRACE, "'{'")
	pc.skipNewlines()
	for !pc.check(token.RBRACE) && !pc.check(token.EOF) {
		fc.methodDecl(cls, name)
		pc.skipNewlines()
	}
	pc.consume(token.RBRACE, "'}'")

	if !isForeign {
		fc.fn.Code[fieldCountPos] = byte(len(cls.fields))
	}
	fc.curClass = cls.enclosing

	fc.emitOp(NULL, line) // attributes: no attribute-literal syntax is defined, so always absent
	fc.emitLoadName(name, line)
	fc.emitOp(END_CLASS, line)
}

// methodDecl compiles one method, constructor, or static-method definition
// inside a class body. It reloads the class by name, compiles the method
// body into a closure, and emits the METHOD_INSTANCE/METHOD_STATIC
// instruction that binds the two together (spec: pops class and closure).
func (fc *fcomp) methodDecl(cls *classCtx, className string) {
	pc := fc.pc
	line := pc.line()

	isStatic := pc.match(token.STATIC_KW)
	isConstruct := false
	if !isStatic && pc.check(token.CONSTRUCT) {
		isConstruct = true
		pc.advance()
	}

	sig, arity, params := fc.parseMethodSignature()
	if arity > 16 {
		pc.errorAt(line, "methods may take at most 16 parameters")
	}

	methodSet := cls.instanceMethods
	if isStatic {
		methodSet = cls.staticMethods
	}
	if methodSet[sig] {
		pc.errorAt(line, fmt.Sprintf("%s redefines an existing method", sig))
	}
	methodSet[sig] = true
	if isConstruct {
		if cls.staticMethods[sig] {
			pc.errorAt(line, fmt.Sprintf("%s redefines an existing static method", sig))
		}
		cls.staticMethods[sig] = true
	}

	mfc := newFcomp(pc, fc, sig, 0)
	mfc.fn.Arity = arity
	mfc.fn.IsInitializer = isConstruct
	mfc.locals[0].name = "this"
	for _, p := range params {
		mfc.declareLocal(p)
	}

	if pc.check(token.LBRACE) && !isConstruct && pc.ahead.tok != token.NEWLINE && pc.ahead.tok != token.RBRACE {
		// A body on the same line as its '{' is a single expression whose
		// value the method returns.
		pc.advance() // '{'
		mfc.expression()
		mfc.emitOp(RETURN, line)
		pc.consume(token.RBRACE, "'}'")
	} else if pc.check(token.LBRACE) {
		mfc.block()
	} else {
		pc.errorAt(line, "expected '{' to begin method body")
	}
	if isConstruct {
		mfc.emitLoadLocal(0, line)
	} else {
		mfc.emitOp(NULL, line)
	}
	mfc.emitOp(RETURN, line)
	mfc.fn.NumLocals = len(mfc.locals)

	fc.emitLoadName(className, line)
	fc.emitClosure(mfc.fn, line)

	symName := sig
	if isConstruct {
		symName = "init " + sig
	}
	symIdx := pc.name(symName)
	if isStatic {
		fc.emitU16(METHOD_STATIC, symIdx, line)
	} else {
		fc.emitU16(METHOD_INSTANCE, symIdx, line)
	}

	if isConstruct {
		fc.emitConstructorFactory(cls, className, sig, arity, line)
	}
}

// emitConstructorFactory synthesizes the static `new`-style factory method
// that every `construct` declaration implies: allocate a (possibly foreign)
// instance, run the instance-side initializer just defined above, and
// return the instance.
func (fc *fcomp) emitConstructorFactory(cls *classCtx, className, sig string, arity int, line int32) {
	pc := fc.pc
	ffc := newFcomp(pc, fc, sig, 0)
	ffc.fn.Arity = arity
	ffc.locals[0].name = "this" // slot 0: the class, as receiver of the static call
	for i := 0; i < arity; i++ {
		ffc.declareLocal(fmt.Sprintf(" a%d", i))
	}

	constructOp := CONSTRUCT
	if cls.isForeign {
		constructOp = FOREIGN_CONSTRUCT
	}
	ffc.emitOp(constructOp, line)

	ffc.emitLoadLocal(0, line)
	for i := 0; i < arity; i++ {
		ffc.emitLoadLocal(i+1, line)
	}
	initSym := pc.name("init " + sig)
	ffc.emitU16(CALL_0+Opcode(arity), initSym, line)
	ffc.emitOp(POP, line) // discard the initializer's own return value (always `this`)
	ffc.emitLoadLocal(0, line)
	ffc.emitOp(RETURN, line)
	ffc.fn.NumLocals = len(ffc.locals)

	fc.emitLoadName(className, line)
	fc.emitClosure(ffc.fn, line)
	staticSym := pc.name(sig)
	fc.emitU16(METHOD_STATIC, staticSym, line)
}

// parseMethodSignature parses a method's name/operator and parameter list,
// returning its canonical signature string (used to intern a stable method
// symbol shared with the VM's dispatch tables), its arity, and the parsed
// parameter names.
func (fc *fcomp) parseMethodSignature() (sig string, arity int, params []string) {
	pc := fc.pc

	if pc.check(token.LBRACK) {
		pc.advance()
		for !pc.check(token.RBRACK) {
			p := pc.consume(token.IDENT, "parameter name")
			params = append(params, p.val.String)
			if !pc.match(token.COMMA) {
				break
			}
		}
		pc.consume(token.RBRACK, "']'")
		if pc.match(token.EQ) {
			pc.consume(token.LPAREN, "'('")
			v := pc.consume(token.IDENT, "parameter name")
			params = append(params, v.val.String)
			pc.consume(token.RPAREN, "')'")
			sig = fmt.Sprintf("[%s]=(_)", underscores(len(params)-1))
		} else {
			sig = fmt.Sprintf("[%s]", underscores(len(params)))
		}
		arity = len(params)
		return
	}

	if isOperatorToken(pc.cur.tok) {
		opName := pc.cur.tok.String()
		pc.advance()
		if pc.match(token.LPAREN) {
			p := pc.consume(token.IDENT, "parameter name")
			params = append(params, p.val.String)
			pc.consume(token.RPAREN, "')'")
			sig = fmt.Sprintf("%s(_)", opName)
			arity = 1
		} else {
			sig = opName
			arity = 0
		}
		return
	}

	nameTok := pc.consume(token.IDENT, "method name")
	name := nameTok.val.String
	if pc.match(token.EQ) {
		pc.consume(token.LPAREN, "'('")
		p := pc.consume(token.IDENT, "parameter name")
		params = append(params, p.val.String)
		pc.consume(token.RPAREN, "')'")
		sig = fmt.Sprintf("%s=(_)", name)
		arity = 1
		return
	}
	if pc.match(token.LPAREN) {
		for !pc.check(token.RPAREN) {
			p := pc.consume(token.IDENT, "parameter name")
			params = append(params, p.val.String)
			if !pc.match(token.COMMA) {
				break
			}
		}
		pc.consume(token.RPAREN, "')'")
		sig = fmt.Sprintf("%s(%s)", name, underscores(len(params)))
		arity = len(params)
		return
	}
	sig = name
	return
}

func underscores(n int) string {
	if n == 0 {
		return ""
	}
	s := "_"
	for i := 1; i < n; i++ {
		s += ",_"
	}
	return s
}

func isOperatorToken(t token.Token) bool {
	switch t {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.LT, token.GT, token.LE, token.GE, token.EQEQ, token.BANGEQ,
		token.AMP, token.PIPE, token.CARET, token.TILDE, token.LTLT, token.GTGT,
		token.DOTDOT, token.DOTDOTDOT:
		return true
	}
	return false
}
