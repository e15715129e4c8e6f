package expression

import (
	"fmt"
	"math"
	"strings"

	"github.com/llm-d/llm-d-configspace/pkg/binding"
	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/parameter"
)

// Eval computes the value of the tree. Variables take their value from the
// first binding whose context holds their parameter.
func (e *Expression) Eval(bindings ...*binding.Binding) (core.Datum, error) {
	if _, err := core.CheckType(e, core.ObjectTypeExpression); err != nil {
		return core.None(), err
	}
	return e.eval(bindings)
}

// ListEvalNode evaluates child index of a list node.
func (e *Expression) ListEvalNode(index int, bindings ...*binding.Binding) (core.Datum, error) {
	if _, err := core.CheckType(e, core.ObjectTypeExpression); err != nil {
		return core.None(), err
	}
	if e.kind != KindList {
		return core.None(), fmt.Errorf("%w: %s node is not a list", core.ErrInvalidExpression, e.kind)
	}
	if index < 0 || index >= len(e.nodes) {
		return core.None(), fmt.Errorf("%w: list index %d of %d", core.ErrOutOfBounds, index, len(e.nodes))
	}
	return e.nodes[index].eval(bindings)
}

func (e *Expression) eval(bindings []*binding.Binding) (core.Datum, error) {
	switch e.kind {
	case KindLiteral:
		return e.value, nil
	case KindVariable:
		return e.lookup(bindings)
	case KindList:
		return core.None(), fmt.Errorf("%w: lists are evaluated element by element", core.ErrUnsupportedOperation)
	case KindIn:
		return e.evalIn(bindings)
	}

	args := make([]core.Datum, len(e.nodes))
	for i, n := range e.nodes {
		v, err := n.eval(bindings)
		if err != nil {
			return core.None(), err
		}
		args[i] = v
	}
	for _, a := range args {
		if a.IsInactive() {
			return core.Inactive(), nil
		}
	}

	switch e.kind {
	case KindOr, KindAnd:
		return evalLogical(e.kind, args[0], args[1])
	case KindNot:
		if args[0].Type != core.DataTypeBoolean {
			return core.None(), fmt.Errorf("%w: ! applied to %s", core.ErrInvalidValue, args[0].Type)
		}
		return core.Bool(!args[0].Bool()), nil
	case KindEqual, KindNotEqual:
		if err := e.checkLiterals(); err != nil {
			return core.None(), err
		}
		eq, err := equalValues(args[0], args[1])
		if err != nil {
			return core.None(), err
		}
		return core.Bool(eq == (e.kind == KindEqual)), nil
	case KindLess, KindGreater, KindLessOrEqual, KindGreaterOrEqual:
		if err := e.checkLiterals(); err != nil {
			return core.None(), err
		}
		c, err := e.compareArgs(args[0], args[1])
		if err != nil {
			return core.None(), err
		}
		return core.Bool(compareResult(e.kind, c)), nil
	case KindPositive, KindNegative:
		return evalSign(e.kind, args[0])
	default:
		return evalArithmetic(e.kind, args[0], args[1])
	}
}

func (e *Expression) lookup(bindings []*binding.Binding) (core.Datum, error) {
	for _, b := range bindings {
		if b == nil {
			continue
		}
		ctx := b.Context()
		if ctx == nil || !ctx.Contains(e.param) {
			continue
		}
		i, err := ctx.ParameterIndex(e.param)
		if err != nil {
			return core.None(), err
		}
		return b.Value(i)
	}
	return core.None(), fmt.Errorf("%w: no binding holds parameter %q", core.ErrInvalidValue, e.param.Name())
}

func evalLogical(kind Kind, a, b core.Datum) (core.Datum, error) {
	if a.Type != core.DataTypeBoolean || b.Type != core.DataTypeBoolean {
		return core.None(), fmt.Errorf("%w: %s applied to %s and %s", core.ErrInvalidValue, kind.Symbol(), a.Type, b.Type)
	}
	if kind == KindAnd {
		return core.Bool(a.Bool() && b.Bool()), nil
	}
	return core.Bool(a.Bool() || b.Bool()), nil
}

// variableAndLiteral returns the parameter and literal of a node comparing a
// variable with a literal.
func variableAndLiteral(x, y *Expression) (parameter.Parameter, *Expression, bool) {
	switch {
	case x.kind == KindVariable && y.kind == KindLiteral:
		return x.param, y, true
	case y.kind == KindVariable && x.kind == KindLiteral:
		return y.param, x, true
	default:
		return nil, nil, false
	}
}

// checkLiteral verifies lit can be a value of p. Numerical parameters only
// require a numeric literal.
func checkLiteral(p parameter.Parameter, lit core.Datum) error {
	if p.Kind() == parameter.KindNumerical {
		if !lit.IsNumeric() {
			return fmt.Errorf("%w: %s compared with numerical parameter %q", core.ErrInvalidValue, lit, p.Name())
		}
		return nil
	}
	ok, err := p.CheckValue(lit)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not a value of parameter %q", core.ErrInvalidValue, lit, p.Name())
	}
	return nil
}

func (e *Expression) checkLiterals() error {
	p, lit, ok := variableAndLiteral(e.nodes[0], e.nodes[1])
	if !ok {
		return nil
	}
	return checkLiteral(p, lit.value)
}

// equalValues compares with numeric coercion. Booleans and None only compare
// with their own type.
func equalValues(a, b core.Datum) (bool, error) {
	if a.IsNumeric() && b.IsNumeric() {
		x, _ := core.NumericOf(a)
		y, _ := core.NumericOf(b)
		return core.CompareNumeric(x, y) == 0, nil
	}
	if (a.Type == core.DataTypeBoolean) != (b.Type == core.DataTypeBoolean) {
		return false, fmt.Errorf("%w: comparing %s with %s", core.ErrInvalidValue, a.Type, b.Type)
	}
	if (a.Type == core.DataTypeNone) != (b.Type == core.DataTypeNone) {
		return false, fmt.Errorf("%w: comparing %s with %s", core.ErrInvalidValue, a.Type, b.Type)
	}
	return core.Equal(a, b), nil
}

// looseEqual is the membership test of In: numeric coercion, never failing.
func looseEqual(a, b core.Datum) bool {
	if a.IsNumeric() && b.IsNumeric() {
		x, _ := core.NumericOf(a)
		y, _ := core.NumericOf(b)
		return core.CompareNumeric(x, y) == 0
	}
	return core.Equal(a, b)
}

// ordinalOf returns the ordinal parameter of a variable operand, if any.
func ordinalOf(x, y *Expression) *parameter.Ordinal {
	for _, n := range []*Expression{x, y} {
		if n.kind != KindVariable {
			continue
		}
		if o, ok := n.param.(*parameter.Ordinal); ok {
			return o
		}
	}
	return nil
}

func (e *Expression) compareArgs(a, b core.Datum) (int, error) {
	if o := ordinalOf(e.nodes[0], e.nodes[1]); o != nil {
		return o.CompareValues(a, b)
	}
	switch {
	case a.IsNumeric() && b.IsNumeric():
		x, _ := core.NumericOf(a)
		y, _ := core.NumericOf(b)
		return core.CompareNumeric(x, y), nil
	case a.Type == core.DataTypeString && b.Type == core.DataTypeString:
		return strings.Compare(a.Str(), b.Str()), nil
	default:
		return 0, fmt.Errorf("%w: %s cannot be ordered against %s", core.ErrInvalidValue, a.Type, b.Type)
	}
}

func compareResult(kind Kind, c int) bool {
	switch kind {
	case KindLess:
		return c < 0
	case KindGreater:
		return c > 0
	case KindLessOrEqual:
		return c <= 0
	default:
		return c >= 0
	}
}

func evalSign(kind Kind, a core.Datum) (core.Datum, error) {
	switch a.Type {
	case core.DataTypeInteger:
		if kind == KindNegative {
			return core.Int(-a.Int()), nil
		}
		return a, nil
	case core.DataTypeFloat:
		if kind == KindNegative {
			return core.Float(-a.Float()), nil
		}
		return a, nil
	default:
		return core.None(), fmt.Errorf("%w: unary %s applied to %s", core.ErrInvalidValue, kind.Symbol(), a.Type)
	}
}

func evalArithmetic(kind Kind, a, b core.Datum) (core.Datum, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return core.None(), fmt.Errorf("%w: %s applied to %s and %s", core.ErrInvalidValue, kind.Symbol(), a.Type, b.Type)
	}
	if a.Type == core.DataTypeInteger && b.Type == core.DataTypeInteger {
		x, y := a.Int(), b.Int()
		switch kind {
		case KindAdd:
			return core.Int(x + y), nil
		case KindSubtract:
			return core.Int(x - y), nil
		case KindMultiply:
			return core.Int(x * y), nil
		}
		if y == 0 {
			return core.None(), fmt.Errorf("%w: integer %s by zero", core.ErrInvalidValue, kind.Symbol())
		}
		if kind == KindDivide {
			return core.Int(x / y), nil
		}
		// Go's % truncates toward zero like C: the sign follows the dividend.
		return core.Int(x % y), nil
	}
	x, y := a.Float(), b.Float()
	switch kind {
	case KindAdd:
		return core.Float(x + y), nil
	case KindSubtract:
		return core.Float(x - y), nil
	case KindMultiply:
		return core.Float(x * y), nil
	case KindDivide:
		return core.Float(x / y), nil
	default:
		return core.Float(math.Mod(x, y)), nil
	}
}

func (e *Expression) evalIn(bindings []*binding.Binding) (core.Datum, error) {
	left, list := e.nodes[0], e.nodes[1]
	if list.kind != KindList {
		return core.None(), fmt.Errorf("%w: right operand of # must be a list, got %s", core.ErrInvalidValue, list.kind)
	}
	v, err := left.eval(bindings)
	if err != nil {
		return core.None(), err
	}
	if left.kind == KindVariable {
		for _, n := range list.nodes {
			if n.kind == KindLiteral {
				if err := checkLiteral(left.param, n.value); err != nil {
					return core.None(), err
				}
			}
		}
	}
	if v.IsInactive() {
		return core.Inactive(), nil
	}
	found := false
	for _, n := range list.nodes {
		item, err := n.eval(bindings)
		if err != nil {
			return core.None(), err
		}
		if item.IsInactive() {
			return core.Inactive(), nil
		}
		if !found && looseEqual(v, item) {
			found = true
		}
	}
	return core.Bool(found), nil
}
