package dsl

import "fmt"

// node is an evaluable expression tree. The grammar, lowest precedence
// first: || , && , comparisons (including the crossesAbove / crossesBelow /
// near keywords), + -, * /, unary ! -, primary.
type node interface {
	eval(vars map[string]float64) (float64, error)
}

type numberNode float64

type varNode string

type unaryNode struct {
	op string
	x  node
}

type binaryNode struct {
	op   string
	l, r node
}

type callNode struct {
	fn  string
	arg node
}

// crossNode captures "X crossesAbove Y" style sugar. Both operands must be
// bare indicator names so their previous-bar values can be looked up.
type crossNode struct {
	above bool
	l, r  string
}

// nearNode captures "X near Y": |X-Y| < 0.002·X.
type nearNode struct {
	l, r string
}

type parser struct {
	toks []token
	pos  int
}

// Parse compiles a condition expression into an evaluable tree. Any
// construct outside the whitelisted grammar is an error.
func Parse(input string) (node, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing token %q", p.peek().text)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (node, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && p.peek().text == "||" {
		p.next()
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = &binaryNode{op: "||", l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseAnd() (node, error) {
	l, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && p.peek().text == "&&" {
		p.next()
		r, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		l = &binaryNode{op: "&&", l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseCmp() (node, error) {
	l, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind == tokOp {
		switch t.text {
		case "<", ">", "<=", ">=", "==", "!=":
			p.next()
			r, err := p.parseAdd()
			if err != nil {
				return nil, err
			}
			return &binaryNode{op: t.text, l: l, r: r}, nil
		}
	}
	if t.kind == tokIdent {
		switch t.text {
		case "crossesAbove", "crossesBelow", "near":
			lv, ok := l.(varNode)
			if !ok {
				return nil, fmt.Errorf("%s requires a bare indicator name on the left", t.text)
			}
			p.next()
			rt := p.next()
			if rt.kind != tokIdent {
				return nil, fmt.Errorf("%s requires a bare indicator name on the right", t.text)
			}
			if t.text == "near" {
				return &nearNode{l: string(lv), r: rt.text}, nil
			}
			return &crossNode{above: t.text == "crossesAbove", l: string(lv), r: rt.text}, nil
		}
	}
	return l, nil
}

func (p *parser) parseAdd() (node, error) {
	l, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && (p.peek().text == "+" || p.peek().text == "-") {
		op := p.next().text
		r, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		l = &binaryNode{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseMul() (node, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && (p.peek().text == "*" || p.peek().text == "/") {
		op := p.next().text
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = &binaryNode{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseUnary() (node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "!" || t.text == "-") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: t.text, x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return numberNode(t.num), nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			p.next()
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if p.next().kind != tokRParen {
				return nil, fmt.Errorf("missing ) after %s argument", t.text)
			}
			return &callNode{fn: t.text, arg: arg}, nil
		}
		return varNode(t.text), nil
	case tokLParen:
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}
