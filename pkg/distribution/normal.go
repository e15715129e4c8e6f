package distribution

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/llm-d/llm-d-configspace/pkg/core"
)

// Normal draws Gaussian values of mean mu and standard deviation sigma. Under
// the logarithmic scale the Gaussian draw is exponentiated. A positive
// quantization rounds draws to the nearest multiple of it.
type Normal struct {
	common

	dataType     core.NumericType
	mu           float64
	sigma        float64
	scale        Scale
	quantization core.Numeric
}

// NewNormal returns a normal distribution. Quantization is converted to typ.
func NewNormal(typ core.NumericType, mu, sigma float64, scale Scale, quantization core.Numeric) (*Normal, error) {
	if err := checkNumeric(typ, scale); err != nil {
		return nil, err
	}
	if err := toType(typ, &quantization); err != nil {
		return nil, err
	}
	if quantization.Float() < 0 {
		return nil, fmt.Errorf("%w: negative quantization %s", core.ErrInvalidValue, quantization)
	}
	if sigma < 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) || math.IsNaN(mu) || math.IsInf(mu, 0) {
		return nil, fmt.Errorf("%w: normal mu %v sigma %v", core.ErrInvalidValue, mu, sigma)
	}
	d := &Normal{
		dataType:     typ,
		mu:           mu,
		sigma:        sigma,
		scale:        scale,
		quantization: quantization,
	}
	d.init(d, KindNormal, []core.NumericType{typ}, []core.Interval{normalBounds(typ, scale, quantization)}, d.fill, nil)
	return d, nil
}

// NewNormalFloat is NewNormal for floating point values.
func NewNormalFloat(mu, sigma float64, scale Scale, quantization float64) (*Normal, error) {
	return NewNormal(core.NumericTypeFloat, mu, sigma, scale, core.FloatNumeric(quantization))
}

// NewNormalInt is NewNormal for integer values.
func NewNormalInt(mu, sigma float64, scale Scale, quantization int64) (*Normal, error) {
	return NewNormal(core.NumericTypeInt, mu, sigma, scale, core.IntNumeric(quantization))
}

func normalBounds(typ core.NumericType, scale Scale, q core.Numeric) core.Interval {
	full := core.FullInterval(typ)
	if scale == ScaleLinear {
		return full
	}
	if typ == core.NumericTypeInt {
		full.Lower = core.IntNumeric(max(q.Int(), 0))
		return full
	}
	if q.Float() > 0 {
		full.Lower, full.LowerIncluded = q, true
	} else {
		full.Lower = core.FloatNumeric(0)
	}
	return full
}

// DataType returns the numeric type of the drawn values.
func (d *Normal) DataType() core.NumericType { return d.dataType }

// Mu returns the mean of the underlying Gaussian.
func (d *Normal) Mu() float64 { return d.mu }

// Sigma returns the standard deviation of the underlying Gaussian.
func (d *Normal) Sigma() float64 { return d.sigma }

// Scale returns the scale of the distribution.
func (d *Normal) Scale() Scale { return d.scale }

// Quantization returns the quantization step, zero when continuous.
func (d *Normal) Quantization() core.Numeric { return d.quantization }

func (d *Normal) fill(rng *core.RNG, n int, dst [][]core.Numeric) {
	g := distuv.Normal{Mu: d.mu, Sigma: d.sigma, Src: rng.Source()}
	col := dst[0]
	for i := 0; i < n; i++ {
		v := d.drawOne(g)
		if col == nil {
			continue
		}
		if d.dataType == core.NumericTypeInt {
			col[i] = core.IntNumeric(toInt64(v))
		} else {
			col[i] = core.FloatNumeric(v)
		}
	}
}

// drawOne returns a draw already scaled and quantized. Logarithmic draws
// that quantize to zero are redrawn so they stay inside the bounds.
func (d *Normal) drawOne(g distuv.Normal) float64 {
	q := d.quantization.Float()
	for {
		v := g.Rand()
		if d.scale == ScaleLogarithmic {
			v = math.Exp(v)
		}
		switch {
		case q > 0:
			v = math.Round(v/q) * q
		case d.dataType == core.NumericTypeInt:
			v = math.Round(v)
		}
		if d.scale == ScaleLogarithmic && q > 0 && v == 0 {
			continue
		}
		return v
	}
}

// toInt64 converts with saturation at the int64 range.
func toInt64(v float64) int64 {
	switch {
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(v)
	}
}

// Serialize writes the normal parameters.
func (d *Normal) Serialize(enc *core.Encoder) error {
	enc.Int32(int32(KindNormal))
	enc.Int32(int32(d.dataType))
	enc.Float64(d.mu)
	enc.Float64(d.sigma)
	enc.Int32(int32(d.scale))
	enc.Numeric(d.quantization)
	return nil
}

func deserializeNormal(dec *core.Decoder) (Distribution, error) {
	typ, err := dec.Int32()
	if err != nil {
		return nil, err
	}
	mu, err := dec.Float64()
	if err != nil {
		return nil, err
	}
	sigma, err := dec.Float64()
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
	return NewNormal(core.NumericType(typ), mu, sigma, Scale(scale), q)
}
