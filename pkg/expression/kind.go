package expression

import "fmt"

// Kind is the operator of an expression node.
type Kind int32

// enumeration of Kind
const (
	KindOr Kind = iota
	KindAnd
	KindEqual
	KindNotEqual
	KindLess
	KindGreater
	KindLessOrEqual
	KindGreaterOrEqual
	KindAdd
	KindSubtract
	KindMultiply
	KindDivide
	KindModulo
	KindPositive
	KindNegative
	KindNot
	KindIn
	KindList
	KindLiteral
	KindVariable
	kindMax
)

// Associativity of an operator.
type Associativity int32

// enumeration of Associativity
const (
	AssociativityNone Associativity = iota
	AssociativityLeft
	AssociativityRight
)

// Variadic is the arity of List nodes.
const Variadic = -1

// MaxPrecedence is the precedence of leaves.
const MaxPrecedence = 9

type kindInfo struct {
	name       string
	arity      int
	precedence int
	assoc      Associativity
	symbol     string
}

var kinds = [kindMax]kindInfo{
	KindOr:             {"or", 2, 0, AssociativityLeft, "||"},
	KindAnd:            {"and", 2, 1, AssociativityLeft, "&&"},
	KindEqual:          {"equal", 2, 2, AssociativityLeft, "=="},
	KindNotEqual:       {"not_equal", 2, 2, AssociativityLeft, "!="},
	KindLess:           {"less", 2, 3, AssociativityLeft, "<"},
	KindGreater:        {"greater", 2, 3, AssociativityLeft, ">"},
	KindLessOrEqual:    {"less_or_equal", 2, 3, AssociativityLeft, "<="},
	KindGreaterOrEqual: {"greater_or_equal", 2, 3, AssociativityLeft, ">="},
	KindAdd:            {"add", 2, 4, AssociativityLeft, "+"},
	KindSubtract:       {"subtract", 2, 4, AssociativityLeft, "-"},
	KindMultiply:       {"multiply", 2, 5, AssociativityLeft, "*"},
	KindDivide:         {"divide", 2, 5, AssociativityLeft, "/"},
	KindModulo:         {"modulo", 2, 5, AssociativityLeft, "%"},
	KindPositive:       {"positive", 1, 6, AssociativityRight, "+"},
	KindNegative:       {"negative", 1, 6, AssociativityRight, "-"},
	KindNot:            {"not", 1, 6, AssociativityRight, "!"},
	KindIn:             {"in", 2, 7, AssociativityLeft, "#"},
	KindList:           {"list", Variadic, MaxPrecedence - 1, AssociativityLeft, ""},
	KindLiteral:        {"literal", 0, MaxPrecedence, AssociativityNone, ""},
	KindVariable:       {"variable", 0, MaxPrecedence, AssociativityNone, ""},
}

func (k Kind) valid() bool {
	return k >= 0 && k < kindMax
}

// info returns the table entry of k, the zero entry for unknown kinds.
func (k Kind) info() kindInfo {
	if k.valid() {
		return kinds[k]
	}
	return kindInfo{}
}

func (k Kind) String() string {
	if k.valid() {
		return kinds[k].name
	}
	return fmt.Sprintf("expression_kind(%d)", int32(k))
}

// Arity returns the number of children of k nodes, or Variadic. Unknown
// kinds have arity 0.
func (k Kind) Arity() int {
	return k.info().arity
}

// Precedence returns the binding strength of k, 0 being the weakest.
func (k Kind) Precedence() int {
	return k.info().precedence
}

// Associativity returns the associativity of k, AssociativityNone for
// unknown kinds.
func (k Kind) Associativity() Associativity {
	return k.info().assoc
}

// Symbol returns the operator symbol of k, empty for lists, leaves and
// unknown kinds.
func (k Kind) Symbol() string {
	return k.info().symbol
}

func (k Kind) binary() bool {
	return k.valid() && kinds[k].arity == 2
}

func (k Kind) unary() bool {
	return k == KindPositive || k == KindNegative || k == KindNot
}
