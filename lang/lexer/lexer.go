// Some of the lexer package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lexer tokenizes Ripple source text into the token stream consumed
// by the compiler: punctuation, operators, keywords, identifiers, field and
// static-field names, numbers, strings (including interpolation fragments
// and the `$"..."` host-hook form), and significant newlines.
package lexer

import (
	"fmt"
	"go/scanner"
	"unicode"
	"unicode/utf8"

	"github.com/ripplelang/ripple/lang/token"
)

type (
	// Error and ErrorList are reused from go/scanner: they already provide
	// exactly the position-sorted, multi-error accumulation behavior the
	// lexer and compiler need.
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

// PrintError is a convenience function for printing an ErrorList (or any
// error) to the given writer.
var PrintError = scanner.PrintError

const maxInterpDepth = 8

// interpLevel tracks one level of string interpolation: the count of
// unmatched '(' seen since the `%(` that opened this expression. A ')' that
// would drop the count below zero instead closes the interpolated
// expression and resumes string lexing.
type interpLevel struct {
	parenDepth int
}

// Lexer tokenizes a single module's source text.
type Lexer struct {
	file *token.File
	src  []byte
	err  func(pos token.Pos, msg string)

	offset    int
	rdOffset  int
	ch        rune
	line, col int

	interp  []interpLevel // stack of active string interpolations
	quoteOf []byte        // quote byte of the string enclosing each interpolation level
}

// Init prepares the lexer to scan src, which is the content of file. errFn is
// called for each lexical error encountered; it may be nil to ignore errors
// (ILLEGAL tokens are still produced).
func (lx *Lexer) Init(file *token.File, src []byte, errFn func(pos token.Pos, msg string)) {
	lx.file = file
	lx.src = src
	lx.err = errFn
	lx.offset = 0
	lx.rdOffset = 0
	lx.line = 1
	lx.col = 0
	lx.interp = lx.interp[:0]
	lx.quoteOf = lx.quoteOf[:0]
	lx.next()
}

func (lx *Lexer) next() {
	if lx.rdOffset < len(lx.src) {
		lx.offset = lx.rdOffset
		if lx.ch == '\n' {
			lx.line++
			lx.col = 0
		}
		r, w := rune(lx.src[lx.rdOffset]), 1
		switch {
		case r == 0:
			lx.error(lx.pos(), "illegal NUL byte")
		case r >= utf8.RuneSelf:
			r, w = utf8.DecodeRune(lx.src[lx.rdOffset:])
			if r == utf8.RuneError && w == 1 {
				lx.error(lx.pos(), "illegal UTF-8 encoding")
			}
		}
		lx.rdOffset += w
		lx.ch = r
		lx.col++
	} else {
		lx.offset = len(lx.src)
		if lx.ch == '\n' {
			lx.line++
			lx.col = 0
		}
		lx.ch = -1 // EOF sentinel
	}
}

func (lx *Lexer) peek() byte {
	if lx.rdOffset < len(lx.src) {
		return lx.src[lx.rdOffset]
	}
	return 0
}

func (lx *Lexer) pos() token.Pos { return token.MakePos(lx.line, lx.col) }

func (lx *Lexer) error(pos token.Pos, msg string) {
	if lx.err != nil {
		lx.err(pos, msg)
	}
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}
func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func (lx *Lexer) skipSpaceAndComments() {
	for {
		switch {
		case lx.ch == ' ' || lx.ch == '\t' || lx.ch == '\r':
			lx.next()
		case lx.ch == '/' && lx.peek() == '/':
			for lx.ch != '\n' && lx.ch >= 0 {
				lx.next()
			}
		case lx.ch == '/' && lx.peek() == '*':
			lx.next()
			lx.next()
			for {
				if lx.ch < 0 {
					lx.error(lx.pos(), "unterminated block comment")
					return
				}
				if lx.ch == '*' && lx.peek() == '/' {
					lx.next()
					lx.next()
					break
				}
				lx.next()
			}
		default:
			return
		}
	}
}

// Scan returns the next token, its starting position, and, for tokens that
// carry a payload (idents, numbers, strings), the decoded value.
func (lx *Lexer) Scan() (tok token.Token, pos token.Pos, val token.Value) {
	lx.skipSpaceAndComments()
	pos = lx.pos()

	switch ch := lx.ch; {
	case ch < 0:
		return token.EOF, pos, val
	case ch == '\n':
		lx.next()
		return token.NEWLINE, pos, val
	case isLetter(ch):
		return lx.scanIdentOrKeyword(pos)
	case isDigit(ch):
		return lx.scanNumber(pos)
	case ch == '"' || ch == '\'':
		return lx.scanString(pos, ch, false)
	case ch == '$' && (lx.peek() == '"' || lx.peek() == '\''):
		lx.next()
		q := byte(lx.ch)
		return lx.scanString(pos, rune(q), true)
	case ch == ')' && len(lx.interp) > 0 && lx.interp[len(lx.interp)-1].parenDepth == 0:
		// closes the current interpolation expression; resume string lexing.
		lx.interp = lx.interp[:len(lx.interp)-1]
		lx.next()
		return lx.scanStringContinuation(pos)
	}

	lx.next()
	switch ch {
	case '(':
		if n := len(lx.interp); n > 0 {
			lx.interp[n-1].parenDepth++
		}
		return token.LPAREN, pos, val
	case ')':
		if n := len(lx.interp); n > 0 {
			lx.interp[n-1].parenDepth--
		}
		return token.RPAREN, pos, val
	case '[':
		return token.LBRACK, pos, val
	case ']':
		return token.RBRACK, pos, val
	case '{':
		return token.LBRACE, pos, val
	case '}':
		return token.RBRACE, pos, val
	case ',':
		return token.COMMA, pos, val
	case ':':
		if lx.ch == ':' {
			lx.next()
			return token.COLONCOLON, pos, val
		}
		return token.COLON, pos, val
	case '?':
		return token.QUESTION, pos, val
	case '+':
		return token.PLUS, pos, val
	case '-':
		return token.MINUS, pos, val
	case '*':
		return token.STAR, pos, val
	case '/':
		return token.SLASH, pos, val
	case '%':
		return token.PERCENT, pos, val
	case '^':
		return token.CARET, pos, val
	case '~':
		return token.TILDE, pos, val
	case '&':
		if lx.ch == '&' {
			lx.next()
			return token.ANDAND, pos, val
		}
		return token.AMP, pos, val
	case '|':
		if lx.ch == '|' {
			lx.next()
			return token.PIPEPIPE, pos, val
		}
		return token.PIPE, pos, val
	case '<':
		if lx.ch == '<' {
			lx.next()
			return token.LTLT, pos, val
		}
		if lx.ch == '=' {
			lx.next()
			return token.LE, pos, val
		}
		return token.LT, pos, val
	case '>':
		if lx.ch == '>' {
			lx.next()
			return token.GTGT, pos, val
		}
		if lx.ch == '=' {
			lx.next()
			return token.GE, pos, val
		}
		return token.GT, pos, val
	case '=':
		if lx.ch == '=' {
			lx.next()
			return token.EQEQ, pos, val
		}
		return token.EQ, pos, val
	case '!':
		if lx.ch == '=' {
			lx.next()
			return token.BANGEQ, pos, val
		}
		return token.BANG, pos, val
	case ';':
		return token.SEMI, pos, val
	case '.':
		if lx.ch == '.' {
			lx.next()
			if lx.ch == '.' {
				lx.next()
				return token.DOTDOTDOT, pos, val
			}
			return token.DOTDOT, pos, val
		}
		return token.DOT, pos, val
	}

	lx.error(pos, fmt.Sprintf("illegal character %#U", ch))
	return token.ILLEGAL, pos, val
}

func (lx *Lexer) scanIdentOrKeyword(pos token.Pos) (token.Token, token.Pos, token.Value) {
	start := lx.offset
	underscores := 0
	for lx.ch == '_' {
		underscores++
		lx.next()
	}
	for isLetter(lx.ch) || isDigit(lx.ch) {
		lx.next()
	}
	name := string(lx.src[start:lx.offset])

	switch {
	case underscores >= 2:
		return token.STATIC, pos, token.Value{String: name}
	case underscores == 1:
		return token.FIELD, pos, token.Value{String: name}
	}

	if kw, ok := token.Keywords[name]; ok {
		return kw, pos, token.Value{String: name}
	}
	return token.IDENT, pos, token.Value{String: name}
}
