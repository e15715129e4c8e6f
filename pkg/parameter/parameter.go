package parameter

import (
	"fmt"

	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/distribution"
)

// Kind identifies the concrete type of a Parameter.
type Kind int32

// enumeration of Kind
const (
	KindNumerical Kind = iota
	KindCategorical
	KindOrdinal
	KindDiscrete
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumerical:
		return "numerical"
	case KindCategorical:
		return "categorical"
	case KindOrdinal:
		return "ordinal"
	case KindDiscrete:
		return "discrete"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("parameter_kind(%d)", int32(k))
	}
}

// Parameter is implemented by every parameter kind of this package.
type Parameter interface {
	core.Serializable
	distribution.SampleConverter

	// Kind returns the concrete kind of the parameter.
	Kind() Kind
	// Name returns the name of the parameter.
	Name() string
	// DefaultValue returns the value of the parameter in default configurations.
	DefaultValue() core.Datum
	// DefaultDistribution returns a new distribution matching the domain.
	DefaultDistribution() (distribution.Distribution, error)
	// CheckValue reports whether v belongs to the domain.
	CheckValue(v core.Datum) (bool, error)
	// CheckValues is the batch form of CheckValue.
	CheckValues(vs []core.Datum) ([]bool, error)
	// ValidateValue returns the canonical representative of v, or Inactive
	// and false when v is not in the domain.
	ValidateValue(v core.Datum) (core.Datum, bool, error)
	// ValidateValues is the batch form of ValidateValue.
	ValidateValues(vs []core.Datum) ([]core.Datum, []bool, error)
	// Sample draws one value from a one dimensional distribution.
	Sample(d distribution.Distribution, rng *core.RNG) (core.Datum, error)
	// Samples draws n values from a one dimensional distribution.
	Samples(d distribution.Distribution, rng *core.RNG, n int) ([]core.Datum, error)
}

// kindOps are the operations each kind implements on top of common.
type kindOps interface {
	checkValue(v core.Datum) bool
	validateValue(v core.Datum) (core.Datum, bool)
	convertSamples(oversampling bool, values []core.Numeric) ([]core.Datum, error)
	defaultDistribution() (distribution.Distribution, error)
	serializeBody(enc *core.Encoder) error
}

// common holds the state shared by every kind.
type common struct {
	core.Base

	kind     Kind
	name     string
	def      core.Datum
	interval core.Interval
	self     Parameter
	ops      kindOps
}

func (c *common) init(self Parameter, ops kindOps, kind Kind, name string, def core.Datum, interval core.Interval, finalize func()) {
	c.kind = kind
	c.name = name
	c.def = def
	c.interval = interval
	c.self = self
	c.ops = ops
	c.Init(core.ObjectTypeParameter, self, finalize)
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty parameter name", core.ErrInvalidName)
	}
	return nil
}

func (c *common) check() error {
	_, err := core.CheckType(c, core.ObjectTypeParameter)
	return err
}

// Kind returns the concrete kind of the parameter.
func (c *common) Kind() Kind {
	return c.kind
}

// Name returns the name of the parameter.
func (c *common) Name() string {
	return c.name
}

// DefaultValue returns the default value of the parameter.
func (c *common) DefaultValue() core.Datum {
	return c.def
}

// SamplingInterval returns the domain raw draws must fall in.
func (c *common) SamplingInterval() (core.Interval, error) {
	if err := c.check(); err != nil {
		return core.Interval{}, err
	}
	return c.interval, nil
}

// DefaultDistribution returns a new distribution matching the domain.
func (c *common) DefaultDistribution() (distribution.Distribution, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.ops.defaultDistribution()
}

// CheckValue reports whether v belongs to the domain.
func (c *common) CheckValue(v core.Datum) (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	return c.ops.checkValue(v), nil
}

// CheckValues reports, for each value, whether it belongs to the domain.
func (c *common) CheckValues(vs []core.Datum) ([]bool, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	res := make([]bool, len(vs))
	for i, v := range vs {
		res[i] = c.ops.checkValue(v)
	}
	return res, nil
}

// ValidateValue returns the canonical representative of v.
func (c *common) ValidateValue(v core.Datum) (core.Datum, bool, error) {
	if err := c.check(); err != nil {
		return core.Inactive(), false, err
	}
	out, ok := c.ops.validateValue(v)
	return out, ok, nil
}

// ValidateValues is the batch form of ValidateValue.
func (c *common) ValidateValues(vs []core.Datum) ([]core.Datum, []bool, error) {
	if err := c.check(); err != nil {
		return nil, nil, err
	}
	out := make([]core.Datum, len(vs))
	ok := make([]bool, len(vs))
	for i, v := range vs {
		out[i], ok[i] = c.ops.validateValue(v)
	}
	return out, ok, nil
}

// ConvertSamples maps raw draws into the domain.
func (c *common) ConvertSamples(oversampling bool, values []core.Numeric) ([]core.Datum, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.ops.convertSamples(oversampling, values)
}

// Sample draws one value from d.
func (c *common) Sample(d distribution.Distribution, rng *core.RNG) (core.Datum, error) {
	vs, err := c.Samples(d, rng, 1)
	if err != nil {
		return core.Inactive(), err
	}
	return vs[0], nil
}

// Samples draws n values from d, re-sampling draws that fall outside the
// domain.
func (c *common) Samples(d distribution.Distribution, rng *core.RNG, n int) ([]core.Datum, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.kind == KindString {
		return nil, fmt.Errorf("%w: string parameter %q cannot be sampled", core.ErrUnsupportedOperation, c.name)
	}
	rows, err := distribution.ParametersSamples(d, rng, []distribution.SampleConverter{c.self}, n)
	if err != nil {
		return nil, fmt.Errorf("sampling parameter %q: %w", c.name, err)
	}
	out := make([]core.Datum, len(rows))
	for i, row := range rows {
		out[i] = row[0]
	}
	return out, nil
}

// Serialize writes the kind, name and kind-specific body.
func (c *common) Serialize(enc *core.Encoder) error {
	enc.Int32(int32(c.kind))
	enc.String(c.name)
	return c.ops.serializeBody(enc)
}

var deserializers = map[Kind]func(name string, dec *core.Decoder) (Parameter, error){
	KindNumerical:   deserializeNumerical,
	KindCategorical: deserializeList(KindCategorical),
	KindOrdinal:     deserializeList(KindOrdinal),
	KindDiscrete:    deserializeList(KindDiscrete),
	KindString:      deserializeString,
}

func deserialize(dec *core.Decoder) (core.Object, error) {
	k, err := dec.Int32()
	if err != nil {
		return nil, err
	}
	fn, ok := deserializers[Kind(k)]
	if !ok {
		return nil, fmt.Errorf("%w: parameter kind %s", core.ErrInvalidType, Kind(k))
	}
	name, err := dec.String()
	if err != nil {
		return nil, err
	}
	p, err := fn(name, dec)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func init() {
	core.RegisterDeserializer(core.ObjectTypeParameter, deserialize)
}
