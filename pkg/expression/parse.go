package expression

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/llm-d/llm-d-configspace/pkg/binding"
	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/parameter"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokOperator
	tokLBracket
	tokRBracket
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind  tokenKind
	text  string
	value core.Datum
	pos   int
}

// operand reports whether t ends an operand, which makes a following '-' a
// binary operator.
func (t token) operand() bool {
	switch t.kind {
	case tokNumber, tokString, tokIdent, tokRBracket, tokRParen:
		return true
	}
	return false
}

var operators = []string{"||", "&&", "==", "!=", "<=", ">=", "<", ">", "+", "-", "*", "/", "%", "!", "#"}

func lex(src string) ([]token, error) {
	var toks []token
	prev := token{kind: tokEOF}
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
			continue
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			t, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, t)
		case c == '-' && !prev.operand() && i+1 < len(src) && (isDigit(src[i+1]) || src[i+1] == '.'):
			t, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, t)
		case c == '"' || c == '\'':
			t, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, t)
		case c == '_' || unicode.IsLetter(rune(c)):
			j := i + 1
			for j < len(src) && (src[j] == '_' || src[j] == '.' || isDigit(src[j]) || unicode.IsLetter(rune(src[j]))) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], pos: i})
		default:
			t, ok := lexPunct(src, i)
			if !ok {
				return nil, fmt.Errorf("%w: unexpected character %q at %d", core.ErrInvalidExpression, c, i)
			}
			toks = append(toks, t)
		}
		prev = toks[len(toks)-1]
		i = prev.pos + len(prev.text)
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func lexNumber(src string, start int) (token, error) {
	i := start
	if src[i] == '-' {
		i++
	}
	float := false
scan:
	for i < len(src) {
		c := src[i]
		switch {
		case isDigit(c):
		case c == '.':
			float = true
		case c == 'e' || c == 'E':
			float = true
			if i+1 < len(src) && (src[i+1] == '+' || src[i+1] == '-') {
				i++
			}
		default:
			break scan
		}
		i++
	}
	text := src[start:i]
	t := token{kind: tokNumber, text: text, pos: start}
	if !float {
		v, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			t.value = core.Int(v)
			return t, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return t, fmt.Errorf("%w: bad number %q at %d", core.ErrInvalidExpression, text, start)
	}
	t.value = core.Float(f)
	return t, nil
}

func lexString(src string, start int) (token, error) {
	quote := src[start]
	i := start + 1
	for i < len(src) && src[i] != quote {
		if src[i] == '\\' {
			i++
		}
		i++
	}
	if i >= len(src) {
		return token{}, fmt.Errorf("%w: unterminated string at %d", core.ErrInvalidExpression, start)
	}
	text := src[start : i+1]
	lit := text
	if quote == '\'' {
		inner := strings.ReplaceAll(text[1:len(text)-1], `\'`, `'`)
		lit = `"` + strings.ReplaceAll(inner, `"`, `\"`) + `"`
	}
	s, err := strconv.Unquote(lit)
	if err != nil {
		return token{}, fmt.Errorf("%w: bad string %s at %d", core.ErrInvalidExpression, text, start)
	}
	return token{kind: tokString, text: text, value: core.String(s), pos: start}, nil
}

func lexPunct(src string, i int) (token, bool) {
	switch src[i] {
	case '[':
		return token{kind: tokLBracket, text: "[", pos: i}, true
	case ']':
		return token{kind: tokRBracket, text: "]", pos: i}, true
	case '(':
		return token{kind: tokLParen, text: "(", pos: i}, true
	case ')':
		return token{kind: tokRParen, text: ")", pos: i}, true
	case ',':
		return token{kind: tokComma, text: ",", pos: i}, true
	}
	for _, op := range operators {
		if strings.HasPrefix(src[i:], op) {
			return token{kind: tokOperator, text: op, pos: i}, true
		}
	}
	return token{}, false
}

var binaryOperators = map[string]Kind{}

func init() {
	for k := KindOr; k < kindMax; k++ {
		if k.binary() {
			binaryOperators[k.Symbol()] = k
		}
	}
}

type parser struct {
	toks     []token
	pos      int
	contexts []*binding.Context
}

// Parse reads an expression in the syntax printed by String. Identifiers are
// resolved by name against contexts, in order.
func Parse(src string, contexts ...*binding.Context) (*Expression, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, contexts: contexts}
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		_ = core.Release(e)
		return nil, fmt.Errorf("%w: unexpected %q at %d", core.ErrInvalidExpression, t.text, t.pos)
	}
	return e, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, text string) error {
	t := p.next()
	if t.kind != kind {
		return fmt.Errorf("%w: expected %q at %d, got %q", core.ErrInvalidExpression, text, t.pos, t.text)
	}
	return nil
}

func (p *parser) parseExpr(minPrec int) (*Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOperator {
			return left, nil
		}
		kind, ok := binaryOperators[t.text]
		if !ok || kind.Precedence() < minPrec {
			return left, nil
		}
		p.next()
		next := kind.Precedence() + 1
		if kind.Associativity() == AssociativityRight {
			next = kind.Precedence()
		}
		right, err := p.parseExpr(next)
		if err != nil {
			_ = core.Release(left)
			return nil, err
		}
		if left, err = combine(kind, left, right); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseUnary() (*Expression, error) {
	t := p.peek()
	if t.kind == tokOperator {
		var kind Kind
		switch t.text {
		case "+":
			kind = KindPositive
		case "-":
			kind = KindNegative
		case "!":
			kind = KindNot
		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d", core.ErrInvalidExpression, t.text, t.pos)
		}
		p.next()
		operand, err := p.parseExpr(kind.Precedence() + 1)
		if err != nil {
			return nil, err
		}
		return combine(kind, operand)
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*Expression, error) {
	t := p.next()
	switch t.kind {
	case tokNumber, tokString:
		return NewLiteral(t.value)
	case tokIdent:
		switch t.text {
		case "true":
			return NewLiteral(core.Bool(true))
		case "false":
			return NewLiteral(core.Bool(false))
		case "none":
			return NewLiteral(core.None())
		}
		param, err := p.resolve(t.text)
		if err != nil {
			return nil, err
		}
		return NewVariable(param)
	case tokLParen:
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			_ = core.Release(e)
			return nil, err
		}
		return e, nil
	case tokLBracket:
		return p.parseList()
	case tokEOF:
		return nil, fmt.Errorf("%w: unexpected end of input", core.ErrInvalidExpression)
	default:
		return nil, fmt.Errorf("%w: unexpected %q at %d", core.ErrInvalidExpression, t.text, t.pos)
	}
}

func (p *parser) parseList() (*Expression, error) {
	var items []*Expression
	if p.peek().kind == tokRBracket {
		p.next()
		return combine(KindList)
	}
	for {
		item, err := p.parseExpr(0)
		if err != nil {
			_ = core.ReleaseAll(items...)
			return nil, err
		}
		items = append(items, item)
		t := p.next()
		if t.kind == tokRBracket {
			return combine(KindList, items...)
		}
		if t.kind != tokComma {
			_ = core.ReleaseAll(items...)
			return nil, fmt.Errorf("%w: expected ',' or ']' at %d, got %q", core.ErrInvalidExpression, t.pos, t.text)
		}
	}
}

func (p *parser) resolve(name string) (parameter.Parameter, error) {
	for _, c := range p.contexts {
		if c == nil {
			continue
		}
		if param, err := c.ParameterByName(name); err == nil {
			return param, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown parameter %q", core.ErrInvalidName, name)
}

// combine builds a kind node over children and drops the caller's references
// to them.
func combine(kind Kind, children ...*Expression) (*Expression, error) {
	nodes := make([]core.Datum, len(children))
	for i, c := range children {
		nodes[i] = core.ObjectDatum(c)
	}
	e, err := New(kind, nodes)
	_ = core.ReleaseAll(children...)
	if err != nil {
		return nil, err
	}
	return e, nil
}
