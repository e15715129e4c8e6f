package expression

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/llm-d/llm-d-configspace/pkg/binding"
	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/parameter"
)

// Expression is a node of an expression tree. Operator and list nodes own
// their children; variables own a reference to their parameter.
type Expression struct {
	core.Base

	kind  Kind
	nodes []*Expression
	value core.Datum
	param parameter.Parameter
}

func newNode(kind Kind) *Expression {
	e := &Expression{kind: kind}
	e.Init(core.ObjectTypeExpression, e, e.finalize)
	return e
}

func (e *Expression) finalize() {
	_ = core.ReleaseAll(e.nodes...)
	if e.param != nil {
		_ = core.Release(e.param)
	}
}

// NewLiteral returns a literal node. Only None, Integer, Float, Boolean and
// String values are literals.
func NewLiteral(v core.Datum) (*Expression, error) {
	switch v.Type {
	case core.DataTypeNone, core.DataTypeInteger, core.DataTypeFloat, core.DataTypeBoolean, core.DataTypeString:
	default:
		return nil, fmt.Errorf("%w: %s cannot be a literal", core.ErrInvalidValue, v.Type)
	}
	e := newNode(KindLiteral)
	e.value = v.WithFlags(0)
	return e, nil
}

// NewVariable returns a node evaluating to the value of p.
func NewVariable(p parameter.Parameter) (*Expression, error) {
	if _, err := core.CheckType(p, core.ObjectTypeParameter); err != nil {
		return nil, err
	}
	if err := core.Retain(p); err != nil {
		return nil, err
	}
	e := newNode(KindVariable)
	e.param = p
	return e, nil
}

// nodeOf turns a datum into a child node: scalars become literals, parameters
// variables, and expressions are retained as is.
func nodeOf(d core.Datum) (*Expression, error) {
	if d.Type != core.DataTypeObject {
		return NewLiteral(d)
	}
	switch o := d.Object().(type) {
	case *Expression:
		if _, err := core.CheckType(o, core.ObjectTypeExpression); err != nil {
			return nil, err
		}
		if err := core.Retain(o); err != nil {
			return nil, err
		}
		return o, nil
	case parameter.Parameter:
		return NewVariable(o)
	default:
		return nil, fmt.Errorf("%w: node %s is neither a parameter nor an expression", core.ErrInvalidValue, d)
	}
}

// New returns an operator or list node over nodes. The number of nodes must
// match the arity of kind.
func New(kind Kind, nodes []core.Datum) (*Expression, error) {
	if !kind.valid() || kind == KindLiteral || kind == KindVariable {
		return nil, fmt.Errorf("%w: cannot build %s nodes from children", core.ErrInvalidValue, kind)
	}
	if arity := kind.Arity(); arity != Variadic && arity != len(nodes) {
		return nil, fmt.Errorf("%w: %s takes %d nodes, got %d", core.ErrInvalidValue, kind, arity, len(nodes))
	}
	children := make([]*Expression, 0, len(nodes))
	for _, d := range nodes {
		child, err := nodeOf(d)
		if err != nil {
			_ = core.ReleaseAll(children...)
			return nil, err
		}
		children = append(children, child)
	}
	e := newNode(kind)
	e.nodes = children
	return e, nil
}

// NewBinary returns a binary operator node.
func NewBinary(kind Kind, left, right core.Datum) (*Expression, error) {
	if !kind.binary() {
		return nil, fmt.Errorf("%w: %s is not a binary operator", core.ErrInvalidValue, kind)
	}
	return New(kind, []core.Datum{left, right})
}

// NewUnary returns a unary operator node.
func NewUnary(kind Kind, node core.Datum) (*Expression, error) {
	if !kind.unary() {
		return nil, fmt.Errorf("%w: %s is not a unary operator", core.ErrInvalidValue, kind)
	}
	return New(kind, []core.Datum{node})
}

// NewList returns a list node.
func NewList(nodes []core.Datum) (*Expression, error) {
	return New(KindList, nodes)
}

// Kind returns the operator of the node.
func (e *Expression) Kind() Kind {
	return e.kind
}

// NumNodes returns the number of children.
func (e *Expression) NumNodes() int {
	return len(e.nodes)
}

// Nodes returns the children of the node.
func (e *Expression) Nodes() []*Expression {
	return append([]*Expression(nil), e.nodes...)
}

// Node returns the child at index i.
func (e *Expression) Node(i int) (*Expression, error) {
	if i < 0 || i >= len(e.nodes) {
		return nil, fmt.Errorf("%w: node %d of %d", core.ErrOutOfBounds, i, len(e.nodes))
	}
	return e.nodes[i], nil
}

// Literal returns the value of a literal node.
func (e *Expression) Literal() (core.Datum, error) {
	if e.kind != KindLiteral {
		return core.None(), fmt.Errorf("%w: %s node is not a literal", core.ErrInvalidExpression, e.kind)
	}
	return e.value, nil
}

// Parameter returns the parameter of a variable node.
func (e *Expression) Parameter() (parameter.Parameter, error) {
	if e.kind != KindVariable {
		return nil, fmt.Errorf("%w: %s node is not a variable", core.ErrInvalidExpression, e.kind)
	}
	return e.param, nil
}

// Parameters returns the distinct parameters referenced by the tree, in
// order of first appearance.
func (e *Expression) Parameters() ([]parameter.Parameter, error) {
	if _, err := core.CheckType(e, core.ObjectTypeExpression); err != nil {
		return nil, err
	}
	seen := sets.New[core.Handle]()
	var out []parameter.Parameter
	var walk func(*Expression)
	walk = func(n *Expression) {
		if n.kind == KindVariable {
			if !seen.Has(n.param.Handle()) {
				seen.Insert(n.param.Handle())
				out = append(out, n.param)
			}
			return
		}
		for _, c := range n.nodes {
			walk(c)
		}
	}
	walk(e)
	return out, nil
}

// CheckContext verifies every parameter of the tree belongs to one of
// contexts.
func (e *Expression) CheckContext(contexts ...*binding.Context) error {
	params, err := e.Parameters()
	if err != nil {
		return err
	}
	for _, p := range params {
		found := false
		for _, c := range contexts {
			if c != nil && c.Contains(p) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: parameter %q is not in any context", core.ErrInvalidParameter, p.Name())
		}
	}
	return nil
}

// Serialize writes the tree. Variables are written as handle placeholders of
// their parameters.
func (e *Expression) Serialize(enc *core.Encoder) error {
	enc.Int32(int32(e.kind))
	switch e.kind {
	case KindLiteral:
		enc.Datum(e.value)
	case KindVariable:
		enc.Handle(e.param.Handle())
	default:
		enc.Uint64(uint64(len(e.nodes)))
		for _, n := range e.nodes {
			if err := enc.Object(n); err != nil {
				return err
			}
		}
	}
	return nil
}

func deserialize(dec *core.Decoder) (core.Object, error) {
	k, err := dec.Int32()
	if err != nil {
		return nil, err
	}
	kind := Kind(k)
	switch kind {
	case KindLiteral:
		v, err := dec.Datum()
		if err != nil {
			return nil, err
		}
		return NewLiteral(v)
	case KindVariable:
		obj, err := dec.ObjectRef()
		if err != nil {
			return nil, err
		}
		p, ok := obj.(parameter.Parameter)
		if !ok {
			return nil, fmt.Errorf("%w: variable refers to a %s", core.ErrInvalidHandle, obj.ObjectType())
		}
		return NewVariable(p)
	}
	if !kind.valid() {
		return nil, fmt.Errorf("%w: expression kind %d", core.ErrInvalidType, k)
	}
	n, err := dec.Length()
	if err != nil {
		return nil, err
	}
	nodes := make([]core.Datum, 0, n)
	release := func() {
		for _, d := range nodes {
			_ = core.Release(d.Object())
		}
	}
	for range n {
		obj, err := dec.ExpectObject(core.ObjectTypeExpression)
		if err != nil {
			release()
			return nil, err
		}
		nodes = append(nodes, core.ObjectDatum(obj))
	}
	defer release()
	return New(kind, nodes)
}

func init() {
	core.RegisterDeserializer(core.ObjectTypeExpression, deserialize)
}
