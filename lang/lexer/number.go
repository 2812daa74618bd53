package lexer

import (
	"strconv"
	"strings"

	"github.com/ripplelang/ripple/lang/token"
)

// scanNumber lexes a decimal or hexadecimal number literal. A number may
// have a fractional part and an `eE` exponent (decimal only), and may carry
// one trailing type-marker letter (`l L f F`) which is consumed and
// ignored.
func (lx *Lexer) scanNumber(pos token.Pos) (token.Token, token.Pos, token.Value) {
	start := lx.offset
	isFloat := false

	if lx.ch == '0' && (lx.peek() == 'x' || lx.peek() == 'X') {
		lx.next()
		lx.next()
		for isHexDigit(lx.ch) {
			lx.next()
		}
		lit := string(lx.src[start:lx.offset])
		consumeTypeMarker(lx)
		n, err := strconv.ParseInt(lit, 0, 64)
		if err != nil {
			lx.error(pos, "invalid hexadecimal literal: "+err.Error())
		}
		return token.INT, pos, token.Value{Int: n}
	}

	for isDigit(lx.ch) {
		lx.next()
	}
	if lx.ch == '.' && isDigit(rune(lx.peek())) {
		isFloat = true
		lx.next() // consume '.'
		for isDigit(lx.ch) {
			lx.next()
		}
	}
	if lx.ch == 'e' || lx.ch == 'E' {
		la := lx.peek()
		if isDigit(rune(la)) || ((la == '+' || la == '-') && la != 0) {
			isFloat = true
			lx.next()
			if lx.ch == '+' || lx.ch == '-' {
				lx.next()
			}
			for isDigit(lx.ch) {
				lx.next()
			}
		}
	}

	lit := string(lx.src[start:lx.offset])
	consumeTypeMarker(lx)

	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			lx.error(pos, "invalid float literal: "+err.Error())
		}
		return token.FLOAT, pos, token.Value{Float: f}
	}
	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		// overflow: fall back to float, matching the language's single numeric
		// runtime type.
		f, ferr := strconv.ParseFloat(lit, 64)
		if ferr == nil {
			return token.FLOAT, pos, token.Value{Float: f}
		}
		lx.error(pos, "invalid integer literal: "+err.Error())
	}
	return token.INT, pos, token.Value{Int: n}
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// consumeTypeMarker eats one trailing `l L f F` marker letter, if present,
// without affecting the numeric value: it exists purely for source
// compatibility with literals like `1L` or `2.0f`.
func consumeTypeMarker(lx *Lexer) {
	if strings.ContainsRune("lLfF", lx.ch) {
		lx.next()
	}
}
