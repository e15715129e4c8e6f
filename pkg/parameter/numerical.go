package parameter

import (
	"fmt"

	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/distribution"
)

// Numerical is an integer or float parameter over [lower, upper).
type Numerical struct {
	common

	dataType     core.NumericType
	lower        core.Numeric
	upper        core.Numeric
	quantization core.Numeric
}

// NewNumerical returns a numerical parameter. Bounds, quantization and
// default value are converted to typ. Integer parameters reject fractional
// floats.
func NewNumerical(name string, typ core.NumericType, lower, upper, quantization, defaultValue core.Numeric) (*Numerical, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: numeric type %s", core.ErrInvalidType, typ)
	}
	for _, n := range []*core.Numeric{&lower, &upper, &quantization, &defaultValue} {
		v, err := n.Convert(typ)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		*n = v
	}
	if core.CompareNumeric(lower, upper) >= 0 {
		return nil, fmt.Errorf("%w: parameter %q lower bound %s not below upper bound %s", core.ErrInvalidValue, name, lower, upper)
	}
	if quantization.Float() < 0 {
		return nil, fmt.Errorf("%w: parameter %q has negative quantization %s", core.ErrInvalidValue, name, quantization)
	}
	var tooCoarse bool
	if typ == core.NumericTypeInt {
		tooCoarse = uint64(quantization.Int()) > uint64(upper.Int())-uint64(lower.Int())
	} else {
		tooCoarse = quantization.Float() > upper.Float()-lower.Float()
	}
	if tooCoarse {
		return nil, fmt.Errorf("%w: parameter %q quantization %s exceeds its range", core.ErrInvalidValue, name, quantization)
	}
	interval := core.Interval{Type: typ, Lower: lower, Upper: upper, LowerIncluded: true}
	if !interval.Include(defaultValue) {
		return nil, fmt.Errorf("%w: parameter %q default %s outside %s", core.ErrInvalidValue, name, defaultValue, interval)
	}
	p := &Numerical{
		dataType:     typ,
		lower:        lower,
		upper:        upper,
		quantization: quantization,
	}
	p.init(p, p, KindNumerical, name, defaultValue.Datum(), interval, nil)
	return p, nil
}

// NewNumericalFloat is NewNumerical for floating point values.
func NewNumericalFloat(name string, lower, upper, quantization, defaultValue float64) (*Numerical, error) {
	return NewNumerical(name, core.NumericTypeFloat,
		core.FloatNumeric(lower), core.FloatNumeric(upper), core.FloatNumeric(quantization), core.FloatNumeric(defaultValue))
}

// NewNumericalInt is NewNumerical for integer values.
func NewNumericalInt(name string, lower, upper, quantization, defaultValue int64) (*Numerical, error) {
	return NewNumerical(name, core.NumericTypeInt,
		core.IntNumeric(lower), core.IntNumeric(upper), core.IntNumeric(quantization), core.IntNumeric(defaultValue))
}

// DataType returns the numeric type of the parameter.
func (p *Numerical) DataType() core.NumericType { return p.dataType }

// Lower returns the inclusive lower bound.
func (p *Numerical) Lower() core.Numeric { return p.lower }

// Upper returns the exclusive upper bound.
func (p *Numerical) Upper() core.Numeric { return p.upper }

// Quantization returns the quantization step, zero when continuous.
func (p *Numerical) Quantization() core.Numeric { return p.quantization }

func (p *Numerical) checkValue(v core.Datum) bool {
	if v.Type != p.dataType.DataType() {
		return false
	}
	n, _ := core.NumericOf(v)
	return p.interval.Include(n)
}

func (p *Numerical) validateValue(v core.Datum) (core.Datum, bool) {
	if !p.checkValue(v) {
		return core.Inactive(), false
	}
	return v.WithFlags(0), true
}

func (p *Numerical) convertSamples(oversampling bool, values []core.Numeric) ([]core.Datum, error) {
	out := make([]core.Datum, len(values))
	for i, v := range values {
		var n core.Numeric
		if p.dataType == core.NumericTypeInt {
			n = core.IntNumeric(v.Int())
		} else {
			n = core.FloatNumeric(v.Float())
		}
		if oversampling && !p.interval.Include(n) {
			out[i] = core.Inactive()
			continue
		}
		out[i] = n.Datum()
	}
	return out, nil
}

func (p *Numerical) defaultDistribution() (distribution.Distribution, error) {
	return distribution.NewUniform(p.dataType, p.lower, p.upper, distribution.ScaleLinear, p.quantization)
}

func (p *Numerical) serializeBody(enc *core.Encoder) error {
	enc.Int32(int32(p.dataType))
	enc.Numeric(p.lower)
	enc.Numeric(p.upper)
	enc.Numeric(p.quantization)
	enc.Datum(p.def)
	return nil
}

func deserializeNumerical(name string, dec *core.Decoder) (Parameter, error) {
	typ, err := dec.Int32()
	if err != nil {
		return nil, err
	}
	lower, err := dec.Numeric()
	if err != nil {
		return nil, err
	}
	upper, err := dec.Numeric()
	if err != nil {
		return nil, err
	}
	q, err := dec.Numeric()
	if err != nil {
		return nil, err
	}
	def, err := dec.Datum()
	if err != nil {
		return nil, err
	}
	n, ok := core.NumericOf(def)
	if !ok {
		return nil, fmt.Errorf("%w: numerical default %s", core.ErrInvalidValue, def)
	}
	return NewNumerical(name, core.NumericType(typ), lower, upper, q, n)
}
