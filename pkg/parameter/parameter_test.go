package parameter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/distribution"
)

func newRNG(t *testing.T) *core.RNG {
	t.Helper()
	rng, err := core.NewRNGWithSeed(99)
	require.NoError(t, err)
	t.Cleanup(func() { _ = core.Release(rng) })
	return rng
}

func values(ds ...core.Datum) []core.Datum { return ds }

func TestNumericalConstruction(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (*Numerical, error)
		wantErr error
	}{
		{"valid float", func() (*Numerical, error) { return NewNumericalFloat("x", -5, 5, 0, 0) }, nil},
		{"valid int", func() (*Numerical, error) { return NewNumericalInt("x", 0, 100, 5, 50) }, nil},
		{"empty name", func() (*Numerical, error) { return NewNumericalFloat("", 0, 1, 0, 0) }, core.ErrInvalidName},
		{"lower equals upper", func() (*Numerical, error) { return NewNumericalFloat("x", 1, 1, 0, 1) }, core.ErrInvalidValue},
		{"negative quantization", func() (*Numerical, error) { return NewNumericalFloat("x", 0, 1, -0.1, 0) }, core.ErrInvalidValue},
		{"quantization too large", func() (*Numerical, error) { return NewNumericalInt("x", 0, 10, 11, 0) }, core.ErrInvalidValue},
		{"default at upper", func() (*Numerical, error) { return NewNumericalFloat("x", 0, 1, 0, 1) }, core.ErrInvalidValue},
		{"default below lower", func() (*Numerical, error) { return NewNumericalInt("x", 0, 10, 0, -1) }, core.ErrInvalidValue},
		{"fractional int default", func() (*Numerical, error) {
			return NewNumerical("x", core.NumericTypeInt, core.IntNumeric(0), core.IntNumeric(10), core.IntNumeric(0), core.FloatNumeric(9.9))
		}, core.ErrInvalidValue},
		{"fractional int bounds", func() (*Numerical, error) {
			return NewNumerical("x", core.NumericTypeInt, core.FloatNumeric(0.5), core.FloatNumeric(1.5), core.IntNumeric(0), core.IntNumeric(1))
		}, core.ErrInvalidValue},
		{"fractional int quantization", func() (*Numerical, error) {
			return NewNumerical("x", core.NumericTypeInt, core.IntNumeric(0), core.IntNumeric(10), core.FloatNumeric(2.5), core.IntNumeric(0))
		}, core.ErrInvalidValue},
		{"integral floats for int", func() (*Numerical, error) {
			return NewNumerical("x", core.NumericTypeInt, core.FloatNumeric(0), core.FloatNumeric(10), core.FloatNumeric(2), core.FloatNumeric(4))
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.build()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, core.Release(p))
		})
	}
}

func TestNumericalValues(t *testing.T) {
	p, err := NewNumericalInt("threads", 1, 65, 0, 8)
	require.NoError(t, err)
	defer core.Release(p)

	assert.Equal(t, KindNumerical, p.Kind())
	assert.Equal(t, "threads", p.Name())
	assert.Equal(t, core.Int(8), p.DefaultValue())

	ok, err := p.CheckValues(values(core.Int(1), core.Int(64), core.Int(65), core.Float(8), core.String("8")))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false, false, false}, ok)

	v, valid, err := p.ValidateValue(core.Int(3))
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, core.Int(3), v)
	v, valid, err = p.ValidateValue(core.Int(0))
	require.NoError(t, err)
	assert.False(t, valid)
	assert.True(t, v.IsInactive())

	out, err := p.ConvertSamples(true, []core.Numeric{core.IntNumeric(0), core.IntNumeric(5), core.FloatNumeric(70)})
	require.NoError(t, err)
	assert.Equal(t, []core.Datum{core.Inactive(), core.Int(5), core.Inactive()}, out)
}

func TestListParameters(t *testing.T) {
	c, err := NewCategorical("algo", values(core.String("a"), core.Int(1), core.Float(1), core.True, core.None()), 2)
	require.NoError(t, err)
	defer core.Release(c)
	assert.Equal(t, core.Float(1), c.DefaultValue())
	assert.Len(t, c.PossibleValues(), 5)

	for _, v := range c.PossibleValues() {
		ok, err := c.CheckValue(v)
		require.NoError(t, err)
		assert.True(t, ok, "value %s", v)
	}
	ok, _ := c.CheckValue(core.TransientString("a"))
	assert.True(t, ok)
	ok, _ = c.CheckValue(core.String("b"))
	assert.False(t, ok)
	ok, _ = c.CheckValue(core.False)
	assert.False(t, ok)

	v, valid, err := c.ValidateValue(core.TransientString("a"))
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, core.DatumFlags(0), v.Flags)

	_, err = NewCategorical("dup", values(core.Int(1), core.Int(1)), 0)
	assert.ErrorIs(t, err, core.ErrInvalidValue)
	_, err = NewCategorical("idx", values(core.Int(1)), 1)
	assert.ErrorIs(t, err, core.ErrInvalidValue)
	_, err = NewDiscrete("disc", values(core.Int(1), core.String("x")), 0)
	assert.ErrorIs(t, err, core.ErrInvalidValue)
	_, err = NewCategorical("inactive", values(core.Inactive()), 0)
	assert.ErrorIs(t, err, core.ErrInvalidValue)

	out, err := c.ConvertSamples(true, []core.Numeric{core.IntNumeric(0), core.IntNumeric(5), core.IntNumeric(-1)})
	require.NoError(t, err)
	assert.Equal(t, []core.Datum{core.String("a"), core.Inactive(), core.Inactive()}, out)
	_, err = c.ConvertSamples(false, []core.Numeric{core.IntNumeric(5)})
	assert.ErrorIs(t, err, core.ErrOutOfBounds)
}

func TestOrdinalCompareByPosition(t *testing.T) {
	p, err := NewOrdinal("size", values(core.Int(2), core.Int(8), core.Int(4), core.Int(6)), 0)
	require.NoError(t, err)
	defer core.Release(p)

	tests := []struct {
		v1, v2 int64
		want   int
	}{
		{2, 8, -1},
		{8, 2, 1},
		{6, 6, 0},
		{8, 4, -1},
		{6, 4, 1},
	}
	for _, tt := range tests {
		got, err := p.CompareValues(core.Int(tt.v1), core.Int(tt.v2))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "compare(%d, %d)", tt.v1, tt.v2)
	}
	_, err = p.CompareValues(core.Int(3), core.Int(2))
	assert.ErrorIs(t, err, core.ErrInvalidValue)
	_, err = p.CompareValues(core.Int(2), core.Float(8))
	assert.ErrorIs(t, err, core.ErrInvalidValue)
}

func TestStringParameter(t *testing.T) {
	rng := newRNG(t)
	p, err := NewString("label")
	require.NoError(t, err)
	defer core.Release(p)

	ok, _ := p.CheckValue(core.String("anything"))
	assert.True(t, ok)
	ok, _ = p.CheckValue(core.Int(1))
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		v, valid, err := p.ValidateValue(core.TransientString("foo"))
		require.NoError(t, err)
		assert.True(t, valid)
		assert.Equal(t, "foo", v.Str())
	}
	_, _, _ = p.ValidateValue(core.String("bar"))
	assert.Equal(t, 2, p.PoolSize())

	_, err = p.DefaultDistribution()
	assert.ErrorIs(t, err, core.ErrUnsupportedOperation)
	d, _ := distribution.NewUniformInt(0, 2, distribution.ScaleLinear, 0)
	defer core.Release(d)
	_, err = p.Sample(d, rng)
	assert.ErrorIs(t, err, core.ErrUnsupportedOperation)
}

func TestSampleDefaultDistribution(t *testing.T) {
	rng := newRNG(t)
	params := []Parameter{}
	num, _ := NewNumericalFloat("lr", 0.001, 0.1, 0, 0.01)
	quant, _ := NewNumericalInt("batch", 16, 257, 16, 32)
	cat, _ := NewCategorical("opt", values(core.String("sgd"), core.String("adam")), 0)
	ord, _ := NewOrdinal("level", values(core.String("low"), core.String("mid"), core.String("high")), 1)
	disc, _ := NewDiscrete("ratio", values(core.Float(0.25), core.Float(0.5), core.Int(1)), 2)
	params = append(params, num, quant, cat, ord, disc)
	defer core.ReleaseAll(params...)

	for _, p := range params {
		t.Run(p.Name(), func(t *testing.T) {
			d, err := p.DefaultDistribution()
			require.NoError(t, err)
			defer core.Release(d)
			samples, err := p.Samples(d, rng, 500)
			require.NoError(t, err)
			require.Len(t, samples, 500)
			for _, s := range samples {
				ok, err := p.CheckValue(s)
				require.NoError(t, err)
				require.True(t, ok, "sample %s", s)
			}
		})
	}

	d, err := quant.DefaultDistribution()
	require.NoError(t, err)
	defer core.Release(d)
	s, err := quant.Sample(d, rng)
	require.NoError(t, err)
	assert.Zero(t, (s.Int()-16)%16)
}

func TestOversampling(t *testing.T) {
	rng := newRNG(t)
	p, err := NewNumericalFloat("x", 0, 1, 0, 0.5)
	require.NoError(t, err)
	defer core.Release(p)

	wide, err := distribution.NewNormalFloat(0.5, 1, distribution.ScaleLinear, 0)
	require.NoError(t, err)
	defer core.Release(wide)

	samples, err := p.Samples(wide, rng, 1000)
	require.NoError(t, err)
	require.Len(t, samples, 1000)
	for _, s := range samples {
		require.GreaterOrEqual(t, s.Float(), 0.0)
		require.Less(t, s.Float(), 1.0)
	}

	far, err := distribution.NewNormalFloat(1000, 0.001, distribution.ScaleLinear, 0)
	require.NoError(t, err)
	defer core.Release(far)
	_, err = p.Samples(far, rng, 10)
	assert.ErrorIs(t, err, core.ErrSamplingUnsuccessful)

	c, _ := NewCategorical("c", values(core.Int(10), core.Int(20)), 0)
	defer core.Release(c)
	roulette, _ := distribution.NewRoulette([]float64{1, 1, 1, 1})
	defer core.Release(roulette)
	vs, err := c.Samples(roulette, rng, 200)
	require.NoError(t, err)
	for _, v := range vs {
		ok, _ := c.CheckValue(v)
		require.True(t, ok)
	}
}

func TestParametersSampleMultivariate(t *testing.T) {
	rng := newRNG(t)
	x, _ := NewNumericalFloat("x", -1, 1, 0, 0)
	k, _ := NewCategorical("k", values(core.String("a"), core.String("b"), core.String("c")), 0)
	defer core.ReleaseAll[Parameter](x, k)

	dx, _ := distribution.NewNormalFloat(0, 1, distribution.ScaleLinear, 0)
	dk, _ := distribution.NewUniformInt(0, 3, distribution.ScaleLinear, 0)
	mv, err := distribution.NewMultivariate([]distribution.Distribution{dx, dk})
	require.NoError(t, err)
	require.NoError(t, core.ReleaseAll[distribution.Distribution](dx, dk))
	defer core.Release(mv)

	rows, err := distribution.ParametersSamples(mv, rng, []distribution.SampleConverter{x, k}, 300)
	require.NoError(t, err)
	require.Len(t, rows, 300)
	for _, row := range rows {
		ok, _ := x.CheckValue(row[0])
		require.True(t, ok)
		ok, _ = k.CheckValue(row[1])
		require.True(t, ok)
	}

	_, err = distribution.ParametersSample(mv, rng, []distribution.SampleConverter{x})
	assert.ErrorIs(t, err, core.ErrInvalidValue)
}

func TestRoundTrip(t *testing.T) {
	num, _ := NewNumericalInt("n", -3, 30, 3, 0)
	cat, _ := NewCategorical("c", values(core.String("x"), core.Float(2.5), core.None()), 1)
	ord, _ := NewOrdinal("o", values(core.Int(2), core.Int(8), core.Int(4)), 2)
	disc, _ := NewDiscrete("d", values(core.Int(1), core.Float(1.5)), 0)
	str, _ := NewString("s")
	params := []Parameter{num, cat, ord, disc, str}
	defer core.ReleaseAll(params...)

	for _, p := range params {
		t.Run(p.Kind().String(), func(t *testing.T) {
			buf := make([]byte, 256)
			n, err := core.SerializeToMemory(p, buf)
			require.NoError(t, err)
			obj, read, err := core.Deserialize(buf[:n])
			require.NoError(t, err)
			assert.Equal(t, n, read)
			got := obj.(Parameter)
			defer core.Release(got)

			assert.Equal(t, p.Kind(), got.Kind())
			assert.Equal(t, p.Name(), got.Name())
			assert.True(t, core.Equal(p.DefaultValue(), got.DefaultValue()))
			if p.Kind() == KindString {
				return
			}
			iv, _ := p.SamplingInterval()
			giv, _ := got.SamplingInterval()
			assert.True(t, iv.Equal(giv))
			if l, ok := p.(interface{ PossibleValues() []core.Datum }); ok {
				assert.Equal(t, l.PossibleValues(), got.(interface{ PossibleValues() []core.Datum }).PossibleValues())
			}
		})
	}
	assert.Equal(t, int64(3), num.Quantization().Int())
}
