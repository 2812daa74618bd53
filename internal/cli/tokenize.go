package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/ripplelang/ripple/lang/lexer"
	"github.com/ripplelang/ripple/lang/token"
)

// Tokenize dumps the lexer's token stream for each file, one token per
// line, instead of compiling and running it. Grounded on the teacher's
// tokenize command, adapted to Ripple's own lexer/token packages.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var firstErr error
	for _, path := range args {
		if err := tokenizeFile(stdio, path); err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func tokenizeFile(stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	file := token.NewFile(path, len(src))
	var lx lexer.Lexer
	var lexErr error
	lx.Init(file, src, func(pos token.Pos, msg string) {
		if lexErr == nil {
			line, col := pos.LineCol()
			lexErr = fmt.Errorf("%d:%d: %s", line, col, msg)
		}
	})

	for {
		tok, pos, val := lx.Scan()
		position := file.Position(pos)
		fmt.Fprintf(stdio.Stdout, "%s: %s", position, tok)
		if lit := literalOf(tok, val); lit != "" {
			fmt.Fprintf(stdio.Stdout, " %s", lit)
		}
		fmt.Fprintln(stdio.Stdout)
		if tok == token.EOF {
			break
		}
	}
	return lexErr
}

// literalOf renders a token's payload for display, if it has one.
func literalOf(tok token.Token, val token.Value) string {
	switch tok {
	case token.IDENT, token.FIELD, token.STATIC, token.STRING,
		token.INTERP_BEGIN, token.INTERP_MID, token.INTERP_END, token.DOLLAR_STRING:
		return val.String
	case token.INT:
		return fmt.Sprintf("%d", val.Int)
	case token.FLOAT:
		return fmt.Sprintf("%g", val.Float)
	default:
		return ""
	}
}
