package expression

import (
	"strings"
)

// String renders the tree with the fewest parentheses Parse needs to read it
// back into the same tree.
func (e *Expression) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *Expression) write(sb *strings.Builder) {
	switch {
	case e.kind == KindLiteral:
		sb.WriteString(e.value.String())
	case e.kind == KindVariable:
		sb.WriteString(e.param.Name())
	case e.kind == KindList:
		sb.WriteByte('[')
		for i, n := range e.nodes {
			if i > 0 {
				sb.WriteString(", ")
			}
			n.write(sb)
		}
		sb.WriteByte(']')
	case e.kind.unary():
		e.writeUnary(sb)
	default:
		e.writeBinary(sb)
	}
}

func (e *Expression) writeUnary(sb *strings.Builder) {
	sb.WriteString(e.kind.Symbol())
	operand := e.nodes[0]
	if operand.kind.Precedence() < e.kind.Precedence() {
		sb.WriteByte('(')
		operand.write(sb)
		sb.WriteByte(')')
		return
	}
	text := operand.String()
	// keep "- 1" from reading back as the literal -1, and "- -x" from "--x"
	if text != "" && strings.ContainsRune("0123456789+-.", rune(text[0])) {
		sb.WriteByte(' ')
	}
	sb.WriteString(text)
}

func (e *Expression) writeBinary(sb *strings.Builder) {
	prec := e.kind.Precedence()
	assoc := e.kind.Associativity()
	left, right := e.nodes[0], e.nodes[1]

	lp := left.kind.Precedence()
	writeOperand(sb, left, lp < prec || (lp == prec && assoc == AssociativityRight))
	sb.WriteByte(' ')
	sb.WriteString(e.kind.Symbol())
	sb.WriteByte(' ')
	rp := right.kind.Precedence()
	writeOperand(sb, right, rp < prec || (rp == prec && assoc == AssociativityLeft))
}

func writeOperand(sb *strings.Builder, n *Expression, parens bool) {
	if parens {
		sb.WriteByte('(')
	}
	n.write(sb)
	if parens {
		sb.WriteByte(')')
	}
}
