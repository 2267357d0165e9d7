package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Token kinds produced by the lexer. Anything outside this whitelist is a
// lex error, which callers treat as "condition never fires".
type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp     // < > <= >= == != && || ! + - * /
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

// lex tokenizes a condition expression. Identifiers are letters, digits,
// underscores and dots (dots allow the Math.abs spelling). Any other
// character is rejected outright.
func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := rune(input[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < len(input) && (input[j] >= '0' && input[j] <= '9' || input[j] == '.') {
				j++
			}
			n, err := strconv.ParseFloat(input[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", input[i:j])
			}
			toks = append(toks, token{kind: tokNumber, num: n, text: input[i:j]})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(input) && (isIdentChar(rune(input[j]))) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: input[i:j]})
			i = j
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")"})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ","})
			i++
		case strings.ContainsRune("<>=!&|+-*/", c):
			j := i + 1
			for j < len(input) && strings.ContainsRune("=&|", rune(input[j])) {
				j++
			}
			op := input[i:j]
			switch op {
			case "<", ">", "<=", ">=", "==", "!=", "&&", "||", "!", "+", "-", "*", "/":
				toks = append(toks, token{kind: tokOp, text: op})
			default:
				return nil, fmt.Errorf("bad operator %q", op)
			}
			i = j
		default:
			return nil, fmt.Errorf("disallowed character %q", string(c))
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

func isIdentChar(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.'
}
