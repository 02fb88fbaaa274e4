package guard

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type parser struct {
	src string
	off int
	cur token
}

func newParser(src string) *parser {
	p := &parser{src: src}
	p.next()
	return p
}

func (p *parser) next() {
	for p.off < len(p.src) && (p.src[p.off] == ' ' || p.src[p.off] == '\t') {
		p.off++
	}
	start := p.off
	if p.off >= len(p.src) {
		p.cur = token{kind: tokEOF, pos: start}
		return
	}
	c := p.src[p.off]
	switch {
	case isIdentStart(c):
		for p.off < len(p.src) && isIdentPart(p.src[p.off]) {
			p.off++
		}
		p.cur = token{kind: tokIdent, text: p.src[start:p.off], pos: start}
	case c >= '0' && c <= '9':
		for p.off < len(p.src) && (p.src[p.off] >= '0' && p.src[p.off] <= '9' || p.src[p.off] == '.') {
			p.off++
		}
		p.cur = token{kind: tokNumber, text: p.src[start:p.off], pos: start}
	case c == '\'' || c == '"':
		quote := c
		p.off++
		for p.off < len(p.src) && p.src[p.off] != quote {
			p.off++
		}
		if p.off >= len(p.src) {
			p.cur = token{kind: tokString, text: "\x00unterminated", pos: start}
			return
		}
		p.cur = token{kind: tokString, text: p.src[start+1 : p.off], pos: start}
		p.off++
	case c == '(':
		p.off++
		p.cur = token{kind: tokLParen, text: "(", pos: start}
	case c == ')':
		p.off++
		p.cur = token{kind: tokRParen, text: ")", pos: start}
	default:
		// Longest-match the two-character operators first.
		for _, op := range []string{"&&", "||", "==", "!=", "<=", ">=", "<", ">", "!", "+", "-", "*", "/"} {
			if strings.HasPrefix(p.src[p.off:], op) {
				p.off += len(op)
				p.cur = token{kind: tokOp, text: op, pos: start}
				return
			}
		}
		p.cur = token{kind: tokOp, text: string(c), pos: start}
		p.off++
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.'
}

// Grammar, loosest-binding first:
//
//	expr    = and { "||" and }
//	and     = eq { "&&" eq }
//	eq      = rel { ("==" | "!=") rel }
//	rel     = add { ("<" | "<=" | ">" | ">=") add }
//	add     = mul { ("+" | "-") mul }
//	mul     = unary { ("*" | "/") unary }
//	unary   = [ "!" | "-" ] primary
//	primary = number | string | "true" | "false" | ident | "(" expr ")"
func (p *parser) parseExpr() (node, error) { return p.parseBinary(0) }

var precedence = []([]string){
	{"||"},
	{"&&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"+", "-"},
	{"*", "/"},
}

func (p *parser) parseBinary(level int) (node, error) {
	if level >= len(precedence) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokOp && contains(precedence[level], p.cur.text) {
		op := p.cur.text
		p.next()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.cur.kind == tokOp && (p.cur.text == "!" || p.cur.text == "-") {
		op := p.cur.text
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.cur
	switch tok.kind {
	case tokNumber:
		d, err := decimal.NewFromString(tok.text)
		if err != nil {
			return nil, fmt.Errorf("guard: bad number %q at offset %d", tok.text, tok.pos)
		}
		p.next()
		return litNode{val: Number(d)}, nil
	case tokString:
		if strings.HasPrefix(tok.text, "\x00") {
			return nil, fmt.Errorf("guard: unterminated string at offset %d", tok.pos)
		}
		p.next()
		return litNode{val: String(tok.text)}, nil
	case tokIdent:
		p.next()
		switch tok.text {
		case "true":
			return litNode{val: Bool(true)}, nil
		case "false":
			return litNode{val: Bool(false)}, nil
		}
		return identNode{name: tok.text}, nil
	case tokLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokRParen {
			return nil, fmt.Errorf("guard: missing ')' at offset %d", p.cur.pos)
		}
		p.next()
		return inner, nil
	case tokEOF:
		return nil, fmt.Errorf("guard: unexpected end of expression")
	default:
		return nil, fmt.Errorf("guard: unexpected %q at offset %d", tok.text, tok.pos)
	}
}

func contains(ops []string, op string) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}
