package parameter

import (
	"fmt"
	"slices"

	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/distribution"
)

// list is the body shared by Categorical, Ordinal and Discrete: a declared
// list of values indexed for constant time membership.
type list struct {
	common

	values       []core.Datum
	index        *core.Map
	defaultIndex int
}

func (l *list) build(self Parameter, kind Kind, name string, values []core.Datum, defaultIndex int) error {
	if err := checkName(name); err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: parameter %q has no possible values", core.ErrInvalidValue, name)
	}
	if defaultIndex < 0 || defaultIndex >= len(values) {
		return fmt.Errorf("%w: parameter %q default index %d out of %d values", core.ErrInvalidValue, name, defaultIndex, len(values))
	}
	for i, v := range values {
		switch v.Type {
		case core.DataTypeInteger, core.DataTypeFloat:
		case core.DataTypeNone, core.DataTypeBoolean, core.DataTypeString:
			if kind == KindDiscrete {
				return fmt.Errorf("%w: discrete parameter %q value %d is %s, not numeric", core.ErrInvalidValue, name, i, v.Type)
			}
		default:
			return fmt.Errorf("%w: parameter %q value %d has type %s", core.ErrInvalidValue, name, i, v.Type)
		}
	}
	index, err := core.NewMap()
	if err != nil {
		return err
	}
	stored := make([]core.Datum, len(values))
	for i, v := range values {
		found, err := index.Exist(v)
		if err == nil && found {
			err = fmt.Errorf("%w: parameter %q has duplicate value %s", core.ErrInvalidValue, name, v)
		}
		if err == nil {
			err = index.Set(v, core.Int(int64(i)))
		}
		if err != nil {
			_ = core.Release(index)
			return err
		}
		stored[i] = v.WithFlags(0)
	}
	l.values = stored
	l.index = index
	l.defaultIndex = defaultIndex
	interval := core.Interval{
		Type:          core.NumericTypeInt,
		Lower:         core.IntNumeric(0),
		Upper:         core.IntNumeric(int64(len(values))),
		LowerIncluded: true,
	}
	l.init(self, l, kind, name, stored[defaultIndex], interval, func() { _ = core.Release(l.index) })
	return nil
}

// PossibleValues returns the declared values in order.
func (l *list) PossibleValues() []core.Datum {
	return slices.Clone(l.values)
}

// DefaultIndex returns the position of the default value.
func (l *list) DefaultIndex() int {
	return l.defaultIndex
}

// position returns the declaration index of v, or -1.
func (l *list) position(v core.Datum) int {
	idx, found, err := l.index.Get(v)
	if err != nil || !found {
		return -1
	}
	return int(idx.Int())
}

func (l *list) checkValue(v core.Datum) bool {
	return l.position(v) >= 0
}

func (l *list) validateValue(v core.Datum) (core.Datum, bool) {
	i := l.position(v)
	if i < 0 {
		return core.Inactive(), false
	}
	return l.values[i], true
}

func (l *list) convertSamples(oversampling bool, values []core.Numeric) ([]core.Datum, error) {
	out := make([]core.Datum, len(values))
	for i, v := range values {
		idx := v.Int()
		if idx < 0 || idx >= int64(len(l.values)) {
			if oversampling {
				out[i] = core.Inactive()
				continue
			}
			return nil, fmt.Errorf("%w: sample index %d for parameter %q of %d values",
				core.ErrOutOfBounds, idx, l.name, len(l.values))
		}
		out[i] = l.values[idx]
	}
	return out, nil
}

func (l *list) defaultDistribution() (distribution.Distribution, error) {
	return distribution.NewUniformInt(0, int64(len(l.values)), distribution.ScaleLinear, 0)
}

func (l *list) serializeBody(enc *core.Encoder) error {
	enc.Uint64(uint64(len(l.values)))
	for _, v := range l.values {
		enc.Datum(v)
	}
	enc.Uint64(uint64(l.defaultIndex))
	return nil
}

func deserializeList(kind Kind) func(string, *core.Decoder) (Parameter, error) {
	return func(name string, dec *core.Decoder) (Parameter, error) {
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
		def, err := dec.Uint64()
		if err != nil {
			return nil, err
		}
		switch kind {
		case KindOrdinal:
			return NewOrdinal(name, values, int(def))
		case KindDiscrete:
			return NewDiscrete(name, values, int(def))
		default:
			return NewCategorical(name, values, int(def))
		}
	}
}

// Categorical is a parameter taking one of a list of unordered values.
type Categorical struct {
	list
}

// NewCategorical returns a categorical parameter over values, defaulting to
// values[defaultIndex].
func NewCategorical(name string, values []core.Datum, defaultIndex int) (*Categorical, error) {
	p := &Categorical{}
	if err := p.build(p, KindCategorical, name, values, defaultIndex); err != nil {
		return nil, err
	}
	return p, nil
}

// Ordinal is a parameter taking one of a list of values ordered by their
// declaration position.
type Ordinal struct {
	list
}

// NewOrdinal returns an ordinal parameter over values, defaulting to
// values[defaultIndex].
func NewOrdinal(name string, values []core.Datum, defaultIndex int) (*Ordinal, error) {
	p := &Ordinal{}
	if err := p.build(p, KindOrdinal, name, values, defaultIndex); err != nil {
		return nil, err
	}
	return p, nil
}

// CompareValues orders v1 and v2 by declaration position.
func (p *Ordinal) CompareValues(v1, v2 core.Datum) (int, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	i1, i2 := p.position(v1), p.position(v2)
	if i1 < 0 {
		return 0, fmt.Errorf("%w: %s is not a value of ordinal %q", core.ErrInvalidValue, v1, p.name)
	}
	if i2 < 0 {
		return 0, fmt.Errorf("%w: %s is not a value of ordinal %q", core.ErrInvalidValue, v2, p.name)
	}
	switch {
	case i1 < i2:
		return -1, nil
	case i1 > i2:
		return 1, nil
	default:
		return 0, nil
	}
}

// Discrete is a parameter taking one of a list of numeric values.
type Discrete struct {
	list
}

// NewDiscrete returns a discrete parameter over numeric values, defaulting
// to values[defaultIndex].
func NewDiscrete(name string, values []core.Datum, defaultIndex int) (*Discrete, error) {
	p := &Discrete{}
	if err := p.build(p, KindDiscrete, name, values, defaultIndex); err != nil {
		return nil, err
	}
	return p, nil
}
