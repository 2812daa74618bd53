package compiler

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/ripplelang/ripple/lang/token"
)

// precedence levels, lowest to highest. Binary operator method calls (`+`,
// `==`, `..`, etc.) are desugared to ordinary method dispatch, exactly like
// any other call -- only assignment, the ternary, and the short-circuiting
// `&&`/`||` forms get their own bytecode shapes.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precConditional
	precOr
	precAnd
	precEquality
	precIs
	precComparison
	precBitOr
	precBitXor
	precBitAnd
	precRange
	precShift
	precTerm
	precFactor
	precUnary
	precCall
)

type parseRule struct {
	prefix func(fc *fcomp, tok tokenInfo, canAssign bool)
	infix  func(fc *fcomp, tok tokenInfo, canAssign bool)
	prec   precedence
}

var rules map[token.Token]parseRule

func init() {
	rules = map[token.Token]parseRule{
		token.NULL:          {prefix: litNull},
		token.TRUE:          {prefix: litTrue},
		token.FALSE:         {prefix: litFalse},
		token.INT:           {prefix: litInt},
		token.FLOAT:         {prefix: litFloat},
		token.STRING:        {prefix: litString},
		token.DOLLAR_STRING: {prefix: litDollarString},
		token.INTERP_BEGIN:  {prefix: litInterp},
		token.IDENT:         {prefix: primIdent},
		token.FIELD:         {prefix: primField},
		token.STATIC:        {prefix: primStaticField},
		token.THIS:          {prefix: primThis},
		token.SUPER:         {prefix: primSuper},
		token.LPAREN:        {prefix: primGroup},
		token.LBRACK:        {prefix: primList, infix: infixSubscript, prec: precCall},
		token.LBRACE:        {prefix: primMapOrBlock},

		token.MINUS: {prefix: unaryOp, infix: binaryOp, prec: precTerm},
		token.BANG:  {prefix: unaryOp},
		token.TILDE: {prefix: unaryOp},

		token.PLUS:      {infix: binaryOp, prec: precTerm},
		token.STAR:      {infix: binaryOp, prec: precFactor},
		token.SLASH:     {infix: binaryOp, prec: precFactor},
		token.PERCENT:   {infix: binaryOp, prec: precFactor},
		token.LTLT:      {infix: binaryOp, prec: precShift},
		token.GTGT:      {infix: binaryOp, prec: precShift},
		token.DOTDOT:    {infix: binaryOp, prec: precRange},
		token.DOTDOTDOT: {infix: binaryOp, prec: precRange},
		token.AMP:       {infix: binaryOp, prec: precBitAnd},
		token.PIPE:      {infix: binaryOp, prec: precBitOr},
		token.CARET:     {infix: binaryOp, prec: precBitXor},
		token.LT:        {infix: binaryOp, prec: precComparison},
		token.GT:        {infix: binaryOp, prec: precComparison},
		token.LE:        {infix: binaryOp, prec: precComparison},
		token.GE:        {infix: binaryOp, prec: precComparison},
		token.EQEQ:      {infix: binaryOp, prec: precEquality},
		token.BANGEQ:    {infix: binaryOp, prec: precEquality},
		token.IS:        {infix: isInfix, prec: precIs},
		token.ANDAND:    {infix: andInfix, prec: precAnd},
		token.PIPEPIPE:  {infix: orInfix, prec: precOr},
		token.QUESTION:  {infix: conditionalInfix, prec: precConditional},
		token.DOT:       {infix: dotInfix, prec: precCall},
	}
}

// expression parses and compiles one full expression, including assignment.
func (fc *fcomp) expression() { fc.parsePrecedence(precAssignment) }

func (fc *fcomp) parsePrecedence(prec precedence) {
	pc := fc.pc
	tok := pc.cur
	rule := rules[tok.tok]
	if rule.prefix == nil {
		pc.errorAt(0, fmt.Sprintf("unexpected %s in expression", tok.tok))
		pc.advance()
		return
	}
	pc.advance()
	canAssign := prec <= precAssignment
	rule.prefix(fc, tok, canAssign)

	for {
		nrule := rules[pc.cur.tok]
		if nrule.infix == nil || prec > nrule.prec {
			break
		}
		itok := pc.cur
		pc.advance()
		nrule.infix(fc, itok, canAssign)
	}

	if canAssign && pc.check(token.EQ) {
		pc.errorAt(0, "invalid assignment target")
		pc.advance()
		fc.expression()
	}
}

func lineOf(tok tokenInfo) int32 {
	l, _ := tok.pos.LineCol()
	return int32(l)
}

// --- literals ----------------------------------------------------------------

func litNull(fc *fcomp, tok tokenInfo, _ bool)  { fc.emitOp(NULL, lineOf(tok)) }
func litTrue(fc *fcomp, tok tokenInfo, _ bool)  { fc.emitOp(TRUE, lineOf(tok)) }
func litFalse(fc *fcomp, tok tokenInfo, _ bool) { fc.emitOp(FALSE, lineOf(tok)) }

func litInt(fc *fcomp, tok tokenInfo, _ bool) {
	fc.emitU16(CONSTANT, fc.pc.constant(tok.val.Int), lineOf(tok))
}

func litFloat(fc *fcomp, tok tokenInfo, _ bool) {
	fc.emitU16(CONSTANT, fc.pc.constant(tok.val.Float), lineOf(tok))
}

func litString(fc *fcomp, tok tokenInfo, _ bool) {
	fc.emitU16(CONSTANT, fc.pc.constant(tok.val.String), lineOf(tok))
}

func litDollarString(fc *fcomp, tok tokenInfo, _ bool) {
	fc.emitU16(DOLLAR, fc.pc.constant(tok.val.String), lineOf(tok))
}

// litInterp compiles an interpolated string, alternating literal fragments
// (pushed as constants) with compiled sub-expressions coerced to strings,
// all folded together with String#+.
func litInterp(fc *fcomp, tok tokenInfo, _ bool) {
	line := lineOf(tok)
	fc.emitU16(CONSTANT, fc.pc.constant(tok.val.String), line)
	for {
		fc.expression()
		fc.emitCallSig("toString", 0, line)
		fc.emitCallSig("+(_)", 1, line)

		switch fc.pc.cur.tok {
		case token.INTERP_MID:
			mid := fc.pc.cur
			fc.pc.advance()
			fc.emitU16(CONSTANT, fc.pc.constant(mid.val.String), line)
			fc.emitCallSig("+(_)", 1, line)
			continue
		case token.INTERP_END:
			end := fc.pc.cur
			fc.pc.advance()
			fc.emitU16(CONSTANT, fc.pc.constant(end.val.String), line)
			fc.emitCallSig("+(_)", 1, line)
		default:
			fc.pc.errorAt(line, "malformed interpolated string")
		}
		return
	}
}

// --- names, fields, this/super -----------------------------------------------

func primIdent(fc *fcomp, tok tokenInfo, canAssign bool) {
	name := tok.val.String
	line := lineOf(tok)

	if slot, ok := fc.resolveLocal(name); ok {
		fc.namedVariable(canAssign, line,
			func() { fc.emitLoadLocal(slot, line) },
			func() { fc.emitU8(STORE_LOCAL, byte(slot), line) })
		return
	}
	if idx, ok := fc.resolveUpvalue(name); ok {
		fc.namedVariable(canAssign, line,
			func() { fc.emitU8(LOAD_UPVALUE, byte(idx), line) },
			func() { fc.emitU8(STORE_UPVALUE, byte(idx), line) })
		return
	}
	if fc.curClass != nil && isLowerFirst(name) {
		// An unqualified lowercase name inside a method body that isn't a
		// local or upvalue is an implicit call on `this`.
		fc.emitLoadLocal(0, line)
		fc.dispatch(name, canAssign, line)
		return
	}
	idx := fc.pc.moduleVar(name, line)
	fc.namedVariable(canAssign, line,
		func() { fc.emitU16(LOAD_MODULE_VAR, idx, line) },
		func() { fc.emitU16(STORE_MODULE_VAR, idx, line) })
}

func isLowerFirst(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || unicode.IsLower(r)
}

func (fc *fcomp) namedVariable(canAssign bool, line int32, load, store func()) {
	if canAssign && fc.pc.match(token.EQ) {
		fc.expression()
		store()
		return
	}
	load()
}

func primField(fc *fcomp, tok tokenInfo, canAssign bool) {
	line := lineOf(tok)
	if fc.curClass == nil {
		fc.pc.errorAt(line, "fields may only be used inside a method")
		return
	}
	idx := fc.curClass.fieldSlot(fc.pc, tok.val.String, line)
	if canAssign && fc.pc.match(token.EQ) {
		fc.expression()
		fc.emitU8(STORE_FIELD_THIS, idx, line)
		return
	}
	fc.emitU8(LOAD_FIELD_THIS, idx, line)
}

func primStaticField(fc *fcomp, tok tokenInfo, canAssign bool) {
	// Static fields behave like ordinary module variables, namespaced by
	// their owning class, so two classes' `__count` fields never collide.
	line := lineOf(tok)
	className := "<no class>"
	if fc.curClass != nil {
		className = fc.curClass.name
	} else {
		fc.pc.errorAt(line, "static fields may only be used inside a class")
	}
	name := "$static " + className + " " + tok.val.String
	idx := fc.pc.moduleVar(name, line)
	fc.namedVariable(canAssign, line,
		func() { fc.emitU16(LOAD_MODULE_VAR, idx, line) },
		func() { fc.emitU16(STORE_MODULE_VAR, idx, line) })
}

func primThis(fc *fcomp, tok tokenInfo, _ bool) {
	line := lineOf(tok)
	if fc.curClass == nil {
		fc.pc.errorAt(line, "'this' may only be used inside a method")
	}
	if _, ok := fc.resolveLocal("this"); ok {
		fc.emitLoadLocal(0, line)
		return
	}
	if idx, ok := fc.resolveUpvalue("this"); ok {
		fc.emitU8(LOAD_UPVALUE, byte(idx), line)
		return
	}
	fc.pc.errorAt(line, "'this' may only be used inside a method")
}

func primSuper(fc *fcomp, tok tokenInfo, canAssign bool) {
	line := lineOf(tok)
	if fc.curClass == nil {
		fc.pc.errorAt(line, "'super' may only be used inside a method")
	}
	fc.emitLoadLocal(0, line) // receiver (this)

	if fc.pc.match(token.DOT) {
		nameTok := fc.pc.consume(token.IDENT, "method name after 'super.'")
		fc.superDispatch(nameTok.val.String, canAssign, line)
		return
	}
	// Bare `super` (no `.name`) leaves only the receiver on the stack; it
	// does not dispatch to the overridden implementation of the method.
}

// --- dispatch: `.name`, `.name(...)`, `.name = v`, and implicit-this calls --

func (fc *fcomp) dispatch(name string, canAssign bool, line int32) {
	if canAssign && fc.pc.match(token.EQ) {
		fc.expression()
		sym := fc.pc.name(name + "=(_)")
		fc.emitCallSymU16(sym, 1, line)
		return
	}
	if fc.pc.match(token.LPAREN) {
		n := fc.argList(token.RPAREN)
		sym := fc.pc.name(fmt.Sprintf("%s(%s)", name, underscores(n)))
		fc.emitCallSymU16(sym, n, line)
		return
	}
	if fc.pc.check(token.LBRACE) {
		// Trailing block sugar: `name { |a, b| ... }` passes the block as the
		// call's single argument, e.g. `Fn.new { |x| x + 1 }` or
		// `Fiber.new { ... }`.
		fc.pc.advance()
		fc.blockLiteral(line)
		sym := fc.pc.name(name + "(_)")
		fc.emitCallSymU16(sym, 1, line)
		return
	}
	sym := fc.pc.name(name)
	fc.emitCallSymU16(sym, 0, line)
}

func (fc *fcomp) superDispatch(name string, canAssign bool, line int32) {
	// Super calls resolve against the immediate superclass rather than the
	// receiver's own class, so they use SUPER_n instead of CALL_n. The
	// constant names the enclosing class, prefixed "super:"; the VM looks
	// that class up at call time and dispatches in its superclass.
	superConst := fc.pc.constant("super:" + fc.curClass.name)
	if canAssign && fc.pc.match(token.EQ) {
		fc.expression()
		sym := fc.pc.name(name + "=(_)")
		fc.emitSuperCall(sym, 1, superConst, line)
		return
	}
	if fc.pc.match(token.LPAREN) {
		n := fc.argList(token.RPAREN)
		sym := fc.pc.name(fmt.Sprintf("%s(%s)", name, underscores(n)))
		fc.emitSuperCall(sym, n, superConst, line)
		return
	}
	sym := fc.pc.name(name)
	fc.emitSuperCall(sym, 0, superConst, line)
}

func (fc *fcomp) emitCallSymU16(sym uint16, nargs int, line int32) {
	fc.emitU16(CALL_0+Opcode(nargs), sym, line)
}

func (fc *fcomp) emitSuperCall(sym uint16, nargs int, superConst uint16, line int32) {
	fc.emitByte(byte(SUPER_0+Opcode(nargs)), line)
	var buf [4]byte
	buf[0] = byte(sym >> 8)
	buf[1] = byte(sym)
	buf[2] = byte(superConst >> 8)
	buf[3] = byte(superConst)
	fc.fn.Code = append(fc.fn.Code, buf[:]...)
}

func dotInfix(fc *fcomp, tok tokenInfo, canAssign bool) {
	line := lineOf(tok)
	fc.pc.skipNewlines()
	nameTok := fc.pc.consume(token.IDENT, "property name after '.'")
	fc.dispatch(nameTok.val.String, canAssign, line)
}

func infixSubscript(fc *fcomp, tok tokenInfo, canAssign bool) {
	line := lineOf(tok)
	n := fc.argList(token.RBRACK)
	if canAssign && fc.pc.match(token.EQ) {
		fc.expression()
		sym := fc.pc.name(fmt.Sprintf("[%s]=(_)", underscores(n)))
		fc.emitCallSymU16(sym, n+1, line)
		return
	}
	sym := fc.pc.name(fmt.Sprintf("[%s]", underscores(n)))
	fc.emitCallSymU16(sym, n, line)
}

// argList parses a comma-separated expression list up to (and consuming)
// closeTok, returning the argument count.
func (fc *fcomp) argList(closeTok token.Token) int {
	pc := fc.pc
	pc.skipNewlines()
	n := 0
	if !pc.check(closeTok) {
		for {
			pc.skipNewlines()
			fc.expression()
			n++
			pc.skipNewlines()
			if !pc.match(token.COMMA) {
				break
			}
		}
	}
	pc.skipNewlines()
	pc.consume(closeTok, closeTok.String())
	return n
}

// --- operators ---------------------------------------------------------------

func unaryOp(fc *fcomp, tok tokenInfo, _ bool) {
	line := lineOf(tok)
	fc.parsePrecedence(precUnary)
	sym := fc.pc.name(tok.tok.String())
	fc.emitCallSymU16(sym, 0, line)
}

func binaryOp(fc *fcomp, tok tokenInfo, _ bool) {
	line := lineOf(tok)
	rule := rules[tok.tok]
	fc.pc.skipNewlines()
	fc.parsePrecedence(rule.prec + 1)
	sym := fc.pc.name(tok.tok.String() + "(_)")
	fc.emitCallSymU16(sym, 1, line)
}

func isInfix(fc *fcomp, tok tokenInfo, _ bool) {
	line := lineOf(tok)
	fc.pc.skipNewlines()
	fc.parsePrecedence(precIs + 1)
	sym := fc.pc.name("is(_)")
	fc.emitCallSymU16(sym, 1, line)
}

func andInfix(fc *fcomp, tok tokenInfo, _ bool) {
	line := lineOf(tok)
	fc.pc.skipNewlines()
	j := fc.emitJump(AND, line)
	fc.parsePrecedence(precAnd + 1)
	fc.patchJump(j)
}

func orInfix(fc *fcomp, tok tokenInfo, _ bool) {
	line := lineOf(tok)
	fc.pc.skipNewlines()
	j := fc.emitJump(OR, line)
	fc.parsePrecedence(precOr + 1)
	fc.patchJump(j)
}

func conditionalInfix(fc *fcomp, tok tokenInfo, _ bool) {
	line := lineOf(tok)
	fc.pc.skipNewlines()
	thenJump := fc.emitJump(JUMP_IF, line)
	fc.parsePrecedence(precConditional)
	elseJump := fc.emitJump(JUMP, line)
	fc.patchJump(thenJump)
	fc.pc.skipNewlines()
	fc.pc.consume(token.COLON, "':' in conditional expression")
	fc.pc.skipNewlines()
	fc.parsePrecedence(precConditional)
	fc.patchJump(elseJump)
}

// --- grouping, list/map literals, blocks -------------------------------------

func primGroup(fc *fcomp, tok tokenInfo, _ bool) {
	fc.pc.skipNewlines()
	fc.expression()
	fc.pc.skipNewlines()
	fc.pc.consume(token.RPAREN, "')'")
}

func primList(fc *fcomp, tok tokenInfo, _ bool) {
	line := lineOf(tok)
	sym := fc.pc.name("new()")
	listClassIdx := fc.pc.moduleVar("List", line)
	fc.emitU16(LOAD_MODULE_VAR, listClassIdx, line)
	fc.emitCallSymU16(sym, 0, line)

	fc.pc.skipNewlines()
	for !fc.pc.check(token.RBRACK) {
		fc.pc.skipNewlines()
		fc.expression()
		addSym := fc.pc.name("addCore_(_)") // returns the list, leaving it on the stack
		fc.emitCallSymU16(addSym, 1, line)
		fc.pc.skipNewlines()
		if !fc.pc.match(token.COMMA) {
			break
		}
	}
	fc.pc.skipNewlines()
	fc.pc.consume(token.RBRACK, "']'")
}

// primMapOrBlock disambiguates `{` used as a map literal (`{}` or
// `{key: val, ...}`) from `{` used as a function-literal block, which
// always declares its (possibly empty) parameter list with `|...|`.
func primMapOrBlock(fc *fcomp, tok tokenInfo, _ bool) {
	pc := fc.pc
	line := lineOf(tok)
	pc.skipNewlines()
	if pc.check(token.PIPE) {
		fc.blockLiteral(line)
		return
	}
	fc.mapLiteral(line)
}

func (fc *fcomp) mapLiteral(line int32) {
	pc := fc.pc
	sym := pc.name("new()")
	mapClassIdx := pc.moduleVar("Map", line)
	fc.emitU16(LOAD_MODULE_VAR, mapClassIdx, line)
	fc.emitCallSymU16(sym, 0, line)

	for !pc.check(token.RBRACE) {
		pc.skipNewlines()
		fc.expression()
		pc.skipNewlines()
		pc.consume(token.COLON, "':' in map literal")
		pc.skipNewlines()
		fc.expression()
		setSym := pc.name("addCore_(_,_)") // returns the map, leaving it on the stack
		fc.emitCallSymU16(setSym, 2, line)
		pc.skipNewlines()
		if !pc.match(token.COMMA) {
			break
		}
		pc.skipNewlines()
	}
	pc.skipNewlines()
	pc.consume(token.RBRACE, "'}'")
}

// blockLiteral compiles `{ |a, b| stmt* }` into a Function constant wrapped
// in a closure value, the same representation used for methods. A body on
// the same line as the parameter list is a single expression whose value
// the block returns; a body starting on a new line returns null.
func (fc *fcomp) blockLiteral(line int32) {
	pc := fc.pc
	pc.consume(token.PIPE, "'|'")
	var params []string
	for !pc.check(token.PIPE) {
		p := pc.consume(token.IDENT, "block parameter name")
		params = append(params, p.val.String)
		if !pc.match(token.COMMA) {
			break
		}
	}
	pc.consume(token.PIPE, "'|'")

	bfc := newFcomp(pc, fc, "<block>", 0)
	bfc.fn.Arity = len(params)
	for _, p := range params {
		bfc.declareLocal(p)
	}
	if !pc.check(token.NEWLINE) && !pc.check(token.RBRACE) {
		bfc.expression()
		bfc.emitOp(RETURN, line)
		pc.consume(token.RBRACE, "'}'")
	} else {
		pc.skipNewlines()
		for !pc.check(token.RBRACE) && !pc.check(token.EOF) {
			bfc.statement()
			pc.skipNewlines()
		}
		pc.consume(token.RBRACE, "'}'")
		bfc.emitOp(NULL, line)
		bfc.emitOp(RETURN, line)
	}
	bfc.fn.NumLocals = len(bfc.locals)

	fc.emitClosure(bfc.fn, line)
}
