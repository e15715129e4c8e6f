package binding

import (
	"fmt"

	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/parameter"
)

// Context is an ordered set of uniquely named parameters. Objects embedding
// a Context call InitContext from their constructor and ReleaseParameters
// from their finalizer.
type Context struct {
	owner    core.Object
	params   []parameter.Parameter
	byName   map[string]int
	byHandle map[core.Handle]int
}

// InitContext prepares an empty context owned by owner.
func (c *Context) InitContext(owner core.Object) {
	c.owner = owner
	c.byName = make(map[string]int)
	c.byHandle = make(map[core.Handle]int)
}

// Owner returns the object embedding the context.
func (c *Context) Owner() core.Object {
	return c.owner
}

// ReleaseParameters drops every parameter reference held by the context.
func (c *Context) ReleaseParameters() {
	_ = core.ReleaseAll(c.params...)
	c.params = nil
	c.byName = nil
	c.byHandle = nil
}

// AddParameter appends p, retaining it. Names and parameters must be unique
// within the context.
func (c *Context) AddParameter(p parameter.Parameter) error {
	if _, err := core.CheckType(p, core.ObjectTypeParameter); err != nil {
		return err
	}
	name := p.Name()
	if _, ok := c.byName[name]; ok {
		return fmt.Errorf("%w: duplicate parameter name %q", core.ErrInvalidParameter, name)
	}
	if _, ok := c.byHandle[p.Handle()]; ok {
		return fmt.Errorf("%w: parameter %q already in context", core.ErrInvalidParameter, name)
	}
	if err := core.Retain(p); err != nil {
		return err
	}
	idx := len(c.params)
	c.params = append(c.params, p)
	c.byName[name] = idx
	c.byHandle[p.Handle()] = idx
	return nil
}

// AddParameters appends ps in order. Either all are added or none.
func (c *Context) AddParameters(ps []parameter.Parameter) error {
	start := len(c.params)
	for _, p := range ps {
		if err := c.AddParameter(p); err != nil {
			c.truncate(start)
			return err
		}
	}
	return nil
}

func (c *Context) truncate(n int) {
	for _, p := range c.params[n:] {
		delete(c.byName, p.Name())
		delete(c.byHandle, p.Handle())
		_ = core.Release(p)
	}
	c.params = c.params[:n]
}

// NumParameters returns the number of parameters.
func (c *Context) NumParameters() int {
	return len(c.params)
}

// Parameter returns the parameter at index i.
func (c *Context) Parameter(i int) (parameter.Parameter, error) {
	if i < 0 || i >= len(c.params) {
		return nil, fmt.Errorf("%w: parameter index %d of %d", core.ErrOutOfBounds, i, len(c.params))
	}
	return c.params[i], nil
}

// Parameters returns the parameters in index order.
func (c *Context) Parameters() []parameter.Parameter {
	return append([]parameter.Parameter(nil), c.params...)
}

// ParameterByName returns the parameter called name.
func (c *Context) ParameterByName(name string) (parameter.Parameter, error) {
	i, err := c.ParameterIndexByName(name)
	if err != nil {
		return nil, err
	}
	return c.params[i], nil
}

// ParameterIndexByName returns the index of the parameter called name.
func (c *Context) ParameterIndexByName(name string) (int, error) {
	i, ok := c.byName[name]
	if !ok {
		return -1, fmt.Errorf("%w: no parameter named %q", core.ErrInvalidName, name)
	}
	return i, nil
}

// ParameterIndex returns the index of p.
func (c *Context) ParameterIndex(p parameter.Parameter) (int, error) {
	if _, err := core.Check(p); err != nil {
		return -1, err
	}
	i, ok := c.byHandle[p.Handle()]
	if !ok {
		return -1, fmt.Errorf("%w: parameter %q not in context", core.ErrInvalidParameter, p.Name())
	}
	return i, nil
}

// Contains reports whether p belongs to the context.
func (c *Context) Contains(p parameter.Parameter) bool {
	_, ok := c.byHandle[p.Handle()]
	return ok
}

// ParameterIndexes returns the index of each parameter of ps.
func (c *Context) ParameterIndexes(ps []parameter.Parameter) ([]int, error) {
	out := make([]int, len(ps))
	for i, p := range ps {
		idx, err := c.ParameterIndex(p)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// DefaultValues returns the default value of every parameter.
func (c *Context) DefaultValues() []core.Datum {
	out := make([]core.Datum, len(c.params))
	for i, p := range c.params {
		out[i] = p.DefaultValue()
	}
	return out
}

// Validate checks that values holds one in-domain value per parameter.
func (c *Context) Validate(values []core.Datum) error {
	if len(values) != len(c.params) {
		return fmt.Errorf("%w: %d values for %d parameters", core.ErrInvalidValue, len(values), len(c.params))
	}
	for i, p := range c.params {
		ok, err := p.CheckValue(values[i])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: value %s of parameter %q", core.ErrInvalidValue, values[i], p.Name())
		}
	}
	return nil
}

// SerializeParameters writes the parameters in index order.
func (c *Context) SerializeParameters(enc *core.Encoder) error {
	enc.Uint64(uint64(len(c.params)))
	for _, p := range c.params {
		if err := enc.Object(p); err != nil {
			return err
		}
	}
	return nil
}

// DeserializeParameters reads parameters written by SerializeParameters. The
// caller owns the returned references.
func DeserializeParameters(dec *core.Decoder) ([]parameter.Parameter, error) {
	n, err := dec.Length()
	if err != nil {
		return nil, err
	}
	params := make([]parameter.Parameter, 0, n)
	for range n {
		obj, err := dec.ExpectObject(core.ObjectTypeParameter)
		if err != nil {
			_ = core.ReleaseAll(params...)
			return nil, err
		}
		params = append(params, obj.(parameter.Parameter))
	}
	return params, nil
}
