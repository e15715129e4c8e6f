package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatIv(t *testing.T, lo, hi float64, li, ui bool) Interval {
	t.Helper()
	iv, err := NewInterval(NumericTypeFloat, FloatNumeric(lo), FloatNumeric(hi), li, ui)
	require.NoError(t, err)
	return iv
}

func intIv(t *testing.T, lo, hi int64, li, ui bool) Interval {
	t.Helper()
	iv, err := NewInterval(NumericTypeInt, IntNumeric(lo), IntNumeric(hi), li, ui)
	require.NoError(t, err)
	return iv
}

func TestNumericConvert(t *testing.T) {
	tests := []struct {
		name    string
		n       Numeric
		typ     NumericType
		want    Numeric
		wantErr bool
	}{
		{"int to float", IntNumeric(3), NumericTypeFloat, FloatNumeric(3), false},
		{"integral float to int", FloatNumeric(-4), NumericTypeInt, IntNumeric(-4), false},
		{"fractional float to int", FloatNumeric(9.9), NumericTypeInt, Numeric{}, true},
		{"infinite float to int", FloatNumeric(math.Inf(1)), NumericTypeInt, Numeric{}, true},
		{"nan to int", FloatNumeric(math.NaN()), NumericTypeInt, Numeric{}, true},
		{"too large for int", FloatNumeric(1e19), NumericTypeInt, Numeric{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.n.Convert(tt.typ)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntervalInclude(t *testing.T) {
	tests := []struct {
		name string
		iv   Interval
		v    Numeric
		want bool
	}{
		{"closed lower", floatIv(t, 0, 1, true, false), FloatNumeric(0), true},
		{"open upper", floatIv(t, 0, 1, true, false), FloatNumeric(1), false},
		{"open lower", floatIv(t, 0, 1, false, true), FloatNumeric(0), false},
		{"nan", floatIv(t, 0, 1, true, true), FloatNumeric(math.NaN()), false},
		{"int inside", intIv(t, -10, 11, true, false), IntNumeric(10), true},
		{"int excluded upper", intIv(t, -10, 11, true, false), IntNumeric(11), false},
		{"int fractional", intIv(t, -10, 11, true, false), FloatNumeric(1.5), false},
		{"full float", FullInterval(NumericTypeFloat), FloatNumeric(1e308), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.iv.Include(tt.v))
		})
	}
}

func TestIntervalEmpty(t *testing.T) {
	assert.False(t, floatIv(t, 1, 1, true, true).Empty())
	assert.True(t, floatIv(t, 1, 1, true, false).Empty())
	assert.True(t, floatIv(t, 2, 1, true, true).Empty())
	assert.True(t, intIv(t, 1, 2, false, false).Empty())
	assert.False(t, intIv(t, 1, 3, false, false).Empty())
}

func TestIntervalSetOperations(t *testing.T) {
	a := floatIv(t, 0, 10, true, false)
	b := floatIv(t, 5, 20, false, true)

	inter, err := a.Intersect(b)
	require.NoError(t, err)
	assert.True(t, inter.Equal(floatIv(t, 5, 10, false, false)))
	assert.True(t, inter.Subset(a))
	assert.True(t, inter.Subset(b))

	union, err := a.Union(b)
	require.NoError(t, err)
	assert.True(t, union.Equal(floatIv(t, 0, 20, true, true)))
	assert.True(t, a.Subset(union))
	assert.False(t, union.Subset(a))

	disjoint, err := a.Intersect(floatIv(t, 10, 12, true, true))
	require.NoError(t, err)
	assert.True(t, disjoint.Empty())

	_, err = a.Intersect(intIv(t, 0, 1, true, true))
	assert.ErrorIs(t, err, ErrInvalidType)

	// [1, 4) and (0, 3] hold the same integers
	assert.True(t, intIv(t, 1, 4, true, false).Equal(intIv(t, 0, 3, false, true)))
	assert.Equal(t, "[0.0, 10.0)", a.String())
}
