package distribution

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/llm-d/llm-d-configspace/pkg/core"
)

// Uniform draws values uniformly from [lower, upper), in linear or
// logarithmic space. A positive quantization snaps draws to the grid
// lower + k*quantization.
type Uniform struct {
	common

	dataType     core.NumericType
	lower        core.Numeric
	upper        core.Numeric
	scale        Scale
	quantization core.Numeric
}

// NewUniform returns a uniform distribution over [lower, upper). Bounds and
// quantization are converted to typ; a fractional float is rejected for
// integer distributions.
func NewUniform(typ core.NumericType, lower, upper core.Numeric, scale Scale, quantization core.Numeric) (*Uniform, error) {
	if err := checkNumeric(typ, scale); err != nil {
		return nil, err
	}
	if err := toType(typ, &lower, &upper, &quantization); err != nil {
		return nil, err
	}
	if core.CompareNumeric(lower, upper) >= 0 {
		return nil, fmt.Errorf("%w: uniform lower bound %s not below upper bound %s", core.ErrInvalidValue, lower, upper)
	}
	if quantization.Float() < 0 {
		return nil, fmt.Errorf("%w: negative quantization %s", core.ErrInvalidValue, quantization)
	}
	if typ == core.NumericTypeInt {
		if uint64(quantization.Int()) > uint64(upper.Int())-uint64(lower.Int()) {
			return nil, fmt.Errorf("%w: quantization %s exceeds range [%s, %s)", core.ErrInvalidValue, quantization, lower, upper)
		}
	} else {
		l, u := lower.Float(), upper.Float()
		if math.IsInf(l, 0) || math.IsInf(u, 0) || math.IsNaN(l) || math.IsNaN(u) {
			return nil, fmt.Errorf("%w: uniform bounds must be finite", core.ErrInvalidValue)
		}
		if quantization.Float() > u-l {
			return nil, fmt.Errorf("%w: quantization %s exceeds range [%s, %s)", core.ErrInvalidValue, quantization, lower, upper)
		}
	}
	if scale == ScaleLogarithmic && lower.Float() <= 0 {
		return nil, fmt.Errorf("%w: logarithmic scale requires a positive lower bound, got %s", core.ErrInvalidScale, lower)
	}
	u := &Uniform{
		dataType:     typ,
		lower:        lower,
		upper:        upper,
		scale:        scale,
		quantization: quantization,
	}
	bounds := core.Interval{Type: typ, Lower: lower, Upper: upper, LowerIncluded: true}
	u.init(u, KindUniform, []core.NumericType{typ}, []core.Interval{bounds}, u.fill, nil)
	return u, nil
}

// NewUniformFloat is NewUniform for floating point values.
func NewUniformFloat(lower, upper float64, scale Scale, quantization float64) (*Uniform, error) {
	return NewUniform(core.NumericTypeFloat, core.FloatNumeric(lower), core.FloatNumeric(upper), scale, core.FloatNumeric(quantization))
}

// NewUniformInt is NewUniform for integer values.
func NewUniformInt(lower, upper int64, scale Scale, quantization int64) (*Uniform, error) {
	return NewUniform(core.NumericTypeInt, core.IntNumeric(lower), core.IntNumeric(upper), scale, core.IntNumeric(quantization))
}

// DataType returns the numeric type of the drawn values.
func (u *Uniform) DataType() core.NumericType { return u.dataType }

// Lower returns the inclusive lower bound.
func (u *Uniform) Lower() core.Numeric { return u.lower }

// Upper returns the exclusive upper bound.
func (u *Uniform) Upper() core.Numeric { return u.upper }

// Scale returns the scale of the distribution.
func (u *Uniform) Scale() Scale { return u.scale }

// Quantization returns the quantization step, zero when continuous.
func (u *Uniform) Quantization() core.Numeric { return u.quantization }

func (u *Uniform) fill(rng *core.RNG, n int, dst [][]core.Numeric) {
	col := dst[0]
	if u.dataType == core.NumericTypeInt {
		for i := 0; i < n; i++ {
			v := u.drawInt(rng)
			if col != nil {
				col[i] = core.IntNumeric(v)
			}
		}
		return
	}
	for i := 0; i < n; i++ {
		v := u.drawFloat(rng)
		if col != nil {
			col[i] = core.FloatNumeric(v)
		}
	}
}

func (u *Uniform) drawFloat(rng *core.RNG) float64 {
	lower, upper, q := u.lower.Float(), u.upper.Float(), u.quantization.Float()
	if u.scale == ScaleLinear && q > 0 {
		steps := uint64(math.Ceil((upper - lower) / q))
		v := lower + float64(rng.UniformInt(steps))*q
		if v >= upper {
			v -= q
		}
		return v
	}
	var v float64
	if u.scale == ScaleLogarithmic {
		g := distuv.Uniform{Min: math.Log(lower), Max: math.Log(upper), Src: rng.Source()}
		v = math.Exp(g.Rand())
	} else {
		g := distuv.Uniform{Min: lower, Max: upper, Src: rng.Source()}
		v = g.Rand()
	}
	if q > 0 {
		v = lower + math.Floor((v-lower)/q)*q
	}
	return clampFloat(v, lower, upper)
}

func (u *Uniform) drawInt(rng *core.RNG) int64 {
	lower, upper, q := u.lower.Int(), u.upper.Int(), u.quantization.Int()
	width := uint64(upper) - uint64(lower)
	if u.scale == ScaleLinear {
		if q > 0 {
			steps := (width + uint64(q) - 1) / uint64(q)
			return lower + int64(rng.UniformInt(steps)*uint64(q))
		}
		return lower + int64(rng.UniformInt(width))
	}
	lo, hi := math.Log(float64(lower)), math.Log(float64(upper))
	v := int64(math.Floor(math.Exp(lo + rng.Uniform()*(hi-lo))))
	v = max(lower, min(v, upper-1))
	if q > 0 {
		v = lower + (v-lower)/q*q
	}
	return v
}

// clampFloat keeps v in [lower, upper) despite rounding.
func clampFloat(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v >= upper {
		return math.Nextafter(upper, lower)
	}
	return v
}

// Serialize writes the uniform parameters.
func (u *Uniform) Serialize(enc *core.Encoder) error {
	enc.Int32(int32(KindUniform))
	enc.Int32(int32(u.dataType))
	enc.Numeric(u.lower)
	enc.Numeric(u.upper)
	enc.Int32(int32(u.scale))
	enc.Numeric(u.quantization)
	return nil
}

func deserializeUniform(dec *core.Decoder) (Distribution, error) {
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
	scale, err := dec.Int32()
	if err != nil {
		return nil, err
	}
	q, err := dec.Numeric()
	if err != nil {
		return nil, err
	}
	return NewUniform(core.NumericType(typ), lower, upper, Scale(scale), q)
}
