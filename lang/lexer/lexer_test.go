package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ripplelang/ripple/lang/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	var lx Lexer
	var errs []string
	file := token.NewFile("test", len(src))
	lx.Init(file, []byte(src), func(pos token.Pos, msg string) {
		errs = append(errs, file.Position(pos).String()+": "+msg)
	})

	var toks []token.Token
	for {
		tok, _, _ := lx.Scan()
		toks = append(toks, tok)
		if tok == token.EOF {
			break
		}
	}
	require.Empty(t, errs)
	return toks
}

func TestScanPunctuation(t *testing.T) {
	toks := scanAll(t, "1 + 2 * 3")
	require.Equal(t, []token.Token{token.INT, token.PLUS, token.INT, token.STAR, token.INT, token.EOF}, toks)
}

func TestScanKeywordsAndFields(t *testing.T) {
	toks := scanAll(t, "class Foo { foo { _x = __y } }")
	require.Equal(t, []token.Token{
		token.CLASS, token.IDENT, token.LBRACE,
		token.IDENT, token.LBRACE,
		token.FIELD, token.EQ, token.STATIC,
		token.RBRACE, token.RBRACE, token.EOF,
	}, toks)
}

func TestScanOperators(t *testing.T) {
	toks := scanAll(t, "a..b a...b a&&b a||b a<<b a>>b a<=b a>=b a==b a!=b")
	want := []token.Token{
		token.IDENT, token.DOTDOT, token.IDENT,
		token.IDENT, token.DOTDOTDOT, token.IDENT,
		token.IDENT, token.ANDAND, token.IDENT,
		token.IDENT, token.PIPEPIPE, token.IDENT,
		token.IDENT, token.LTLT, token.IDENT,
		token.IDENT, token.GTGT, token.IDENT,
		token.IDENT, token.LE, token.IDENT,
		token.IDENT, token.GE, token.IDENT,
		token.IDENT, token.EQEQ, token.IDENT,
		token.IDENT, token.BANGEQ, token.IDENT,
		token.EOF,
	}
	require.Equal(t, want, toks)
}

func TestScanNumberTypeMarker(t *testing.T) {
	var lx Lexer
	file := token.NewFile("test", 0)
	lx.Init(file, []byte("1L 2.5f"), nil)
	tok, _, val := lx.Scan()
	require.Equal(t, token.INT, tok)
	require.EqualValues(t, 1, val.Int)

	tok, _, val = lx.Scan()
	require.Equal(t, token.FLOAT, tok)
	require.InDelta(t, 2.5, val.Float, 1e-9)
}

func TestScanInterpolation(t *testing.T) {
	toks := scanAll(t, `"a %(b) c"`)
	require.Equal(t, []token.Token{token.INTERP_BEGIN, token.IDENT, token.INTERP_END, token.EOF}, toks)
}

func TestScanDollarString(t *testing.T) {
	toks := scanAll(t, `$"select %(unused)"`)
	require.Equal(t, []token.Token{token.DOLLAR_STRING, token.EOF}, toks)
}
