package lexer

import (
	"strings"

	"github.com/ripplelang/ripple/lang/token"
)

// scanString lexes a (possibly interpolated) string literal starting at the
// opening quote, which has already been identified as lx.ch. dollar
// indicates the `$"..."` host-hook form, which never interpolates.
func (lx *Lexer) scanString(pos token.Pos, quote rune, dollar bool) (token.Token, token.Pos, token.Value) {
	lx.next() // consume opening quote
	var sb strings.Builder
	for {
		switch {
		case lx.ch < 0 || lx.ch == '\n':
			lx.error(pos, "unterminated string literal")
			if dollar {
				return token.DOLLAR_STRING, pos, token.Value{String: sb.String()}
			}
			return token.STRING, pos, token.Value{String: sb.String()}

		case lx.ch == quote:
			lx.next()
			if dollar {
				return token.DOLLAR_STRING, pos, token.Value{String: sb.String()}
			}
			return token.STRING, pos, token.Value{String: sb.String()}

		case lx.ch == '\\':
			lx.scanEscape(&sb)

		case !dollar && lx.ch == '%' && lx.peek() == '(':
			if len(lx.interp) >= maxInterpDepth {
				lx.error(pos, "interpolation nested too deeply")
			}
			lx.next() // consume '%'
			lx.next() // consume '('
			lx.quoteOf = append(lx.quoteOf, byte(quote))
			lx.interp = append(lx.interp, interpLevel{})
			return token.INTERP_BEGIN, pos, token.Value{String: sb.String()}

		default:
			sb.WriteRune(lx.ch)
			lx.next()
		}
	}
}

// scanStringContinuation resumes lexing the literal text of a string after
// an interpolated expression's closing ')'. It returns INTERP_MID if another
// `%(` follows, or INTERP_END once the closing quote is reached.
func (lx *Lexer) scanStringContinuation(pos token.Pos) (token.Token, token.Pos, token.Value) {
	quote := rune(lx.quoteOf[len(lx.quoteOf)-1])
	var sb strings.Builder
	for {
		switch {
		case lx.ch < 0 || lx.ch == '\n':
			lx.error(pos, "unterminated string literal")
			lx.quoteOf = lx.quoteOf[:len(lx.quoteOf)-1]
			return token.INTERP_END, pos, token.Value{String: sb.String()}

		case lx.ch == quote:
			lx.next()
			lx.quoteOf = lx.quoteOf[:len(lx.quoteOf)-1]
			return token.INTERP_END, pos, token.Value{String: sb.String()}

		case lx.ch == '\\':
			lx.scanEscape(&sb)

		case lx.ch == '%' && lx.peek() == '(':
			if len(lx.interp) >= maxInterpDepth {
				lx.error(pos, "interpolation nested too deeply")
			}
			lx.next()
			lx.next()
			lx.interp = append(lx.interp, interpLevel{})
			return token.INTERP_MID, pos, token.Value{String: sb.String()}

		default:
			sb.WriteRune(lx.ch)
			lx.next()
		}
	}
}

func (lx *Lexer) scanEscape(sb *strings.Builder) {
	lx.next() // consume backslash
	switch lx.ch {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case '0':
		sb.WriteByte(0)
	case '"':
		sb.WriteByte('"')
	case '\'':
		sb.WriteByte('\'')
	case '\\':
		sb.WriteByte('\\')
	case '%':
		sb.WriteByte('%')
	default:
		sb.WriteRune(lx.ch)
	}
	lx.next()
}
