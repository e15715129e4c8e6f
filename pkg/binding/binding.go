package binding

import (
	"cmp"
	"fmt"

	"github.com/llm-d/llm-d-configspace/pkg/core"
)

// Binding holds one value per parameter of a context. Objects embedding a
// Binding call InitBinding from their constructor.
type Binding struct {
	ctx    *Context
	values []core.Datum
}

// InitBinding binds values to ctx. A nil values slice yields the default
// values of the context. Transient values are validated into durable
// representatives.
func (b *Binding) InitBinding(ctx *Context, values []core.Datum) error {
	if values == nil {
		values = ctx.DefaultValues()
	}
	if len(values) != ctx.NumParameters() {
		return fmt.Errorf("%w: %d values for %d parameters", core.ErrInvalidValue, len(values), ctx.NumParameters())
	}
	owned := make([]core.Datum, len(values))
	for i, v := range values {
		d, err := b.own(ctx, i, v)
		if err != nil {
			return err
		}
		owned[i] = d
	}
	b.ctx = ctx
	b.values = owned
	return nil
}

func (b *Binding) own(ctx *Context, i int, v core.Datum) (core.Datum, error) {
	if v.Flags&core.FlagTransient == 0 {
		return v.WithFlags(0), nil
	}
	p := ctx.params[i]
	d, ok, err := p.ValidateValue(v)
	if err != nil {
		return core.Datum{}, err
	}
	if !ok {
		return core.Datum{}, fmt.Errorf("%w: value %s of parameter %q", core.ErrInvalidValue, v, p.Name())
	}
	return d, nil
}

// Context returns the context of the binding.
func (b *Binding) Context() *Context {
	return b.ctx
}

// NumValues returns the number of values, which is the number of parameters
// of the context.
func (b *Binding) NumValues() int {
	return len(b.values)
}

// Value returns the value at index i.
func (b *Binding) Value(i int) (core.Datum, error) {
	if i < 0 || i >= len(b.values) {
		return core.None(), fmt.Errorf("%w: value index %d of %d", core.ErrOutOfBounds, i, len(b.values))
	}
	return b.values[i], nil
}

// SetValue replaces the value at index i.
func (b *Binding) SetValue(i int, v core.Datum) error {
	if i < 0 || i >= len(b.values) {
		return fmt.Errorf("%w: value index %d of %d", core.ErrOutOfBounds, i, len(b.values))
	}
	d, err := b.own(b.ctx, i, v)
	if err != nil {
		return err
	}
	b.values[i] = d
	return nil
}

// ValueByName returns the value of the parameter called name.
func (b *Binding) ValueByName(name string) (core.Datum, error) {
	i, err := b.ctx.ParameterIndexByName(name)
	if err != nil {
		return core.None(), err
	}
	return b.values[i], nil
}

// Values copies the values into buf and returns how many were written. Slots
// past the values are set to None.
func (b *Binding) Values(buf []core.Datum) (int, error) {
	if len(buf) < len(b.values) {
		return 0, fmt.Errorf("%w: buffer of %d values, need %d", core.ErrInvalidValue, len(buf), len(b.values))
	}
	n := copy(buf, b.values)
	for i := n; i < len(buf); i++ {
		buf[i] = core.None()
	}
	return n, nil
}

// AllValues returns a copy of the values.
func (b *Binding) AllValues() []core.Datum {
	return append([]core.Datum(nil), b.values...)
}

// Hash combines the context identity with every value in index order.
func (b *Binding) Hash() uint32 {
	h := core.IDDatum(b.ctx.owner).Hash()
	for _, v := range b.values {
		h = core.HashCombine(h, v.Hash())
	}
	return h
}

// Compare orders bindings by context handle, then number of values, then
// values in index order.
func (b *Binding) Compare(o *Binding) int {
	if c := cmp.Compare(b.ctx.owner.Handle(), o.ctx.owner.Handle()); c != 0 {
		return c
	}
	if c := cmp.Compare(len(b.values), len(o.values)); c != 0 {
		return c
	}
	for i, v := range b.values {
		if c := core.Compare(v, o.values[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Equal reports whether Compare(o) is zero.
func (b *Binding) Equal(o *Binding) bool {
	return b.Compare(o) == 0
}

// SerializeValues writes the values.
func (b *Binding) SerializeValues(enc *core.Encoder) {
	enc.Uint64(uint64(len(b.values)))
	for _, v := range b.values {
		enc.Datum(v)
	}
}

// DeserializeValues reads values written by SerializeValues.
func DeserializeValues(dec *core.Decoder) ([]core.Datum, error) {
	n, err := dec.Length()
	if err != nil {
		return nil, err
	}
	values := make([]core.Datum, n)
	for i := range values {
		if values[i], err = dec.Datum(); err != nil {
			return nil, err
		}
	}
	return values, nil
}
