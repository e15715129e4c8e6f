package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleData() []Datum {
	return []Datum{
		None(),
		Int(-3), Int(0), Int(7),
		Float(-1.5), Float(0), Float(2.25), Float(math.Inf(1)),
		False, True,
		String(""), String("bar"), String("foo"),
		Inactive(),
	}
}

func TestDatumTotalOrder(t *testing.T) {
	data := sampleData()
	for _, a := range data {
		assert.Equal(t, 0, Compare(a, a), "reflexive %s", a)
		for _, b := range data {
			assert.Equal(t, Compare(a, b), -Compare(b, a), "antisymmetric %s %s", a, b)
			for _, c := range data {
				if Compare(a, b) <= 0 && Compare(b, c) <= 0 {
					assert.LessOrEqual(t, Compare(a, c), 0, "transitive %s %s %s", a, b, c)
				}
			}
		}
	}
}

func TestDatumTypeTiers(t *testing.T) {
	assert.Equal(t, -1, Compare(None(), Int(math.MinInt64)))
	assert.Equal(t, -1, Compare(Int(math.MaxInt64), Float(math.Inf(-1))))
	assert.Equal(t, -1, Compare(Float(math.Inf(1)), False))
	assert.Equal(t, -1, Compare(True, String("")))
	assert.Equal(t, -1, Compare(String("zzz"), Inactive()))
	assert.Equal(t, 0, Compare(None(), None()))
	assert.Equal(t, 0, Compare(Inactive(), Inactive()))
}

func TestDatumHashIgnoresFlags(t *testing.T) {
	a := String("foo")
	b := TransientString("f" + "oo")
	assert.True(t, Equal(a, b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, Float(0).Hash(), Float(math.Copysign(0, -1)).Hash())
	assert.NotEqual(t, Int(1).Hash(), Float(1).Hash())
	assert.NotEqual(t, String("foo").Hash(), String("bar").Hash())

	m, _ := NewMap()
	defer Release(m)
	assert.Equal(t, ObjectDatum(m).Hash(), IDDatum(m).Hash())
	assert.True(t, Equal(ObjectDatum(m), HandleDatum(m.Handle())))
}

func TestHashCombine(t *testing.T) {
	// boost::hash_combine reference values
	assert.Equal(t, uint32(0x9e3779b9), HashCombine(0, 0))
	assert.Equal(t, uint32(0x9e3779f8), HashCombine(1, 0))
}

func TestDatumString(t *testing.T) {
	tests := []struct {
		d    Datum
		want string
	}{
		{None(), "none"},
		{Inactive(), "inactive"},
		{True, "true"},
		{Int(-4), "-4"},
		{Float(3), "3.0"},
		{Float(0.5), "0.5"},
		{Float(1e300), "1e+300"},
		{String("a\"b"), `"a\"b"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.d.String())
	}
}

func TestNumeric(t *testing.T) {
	n, ok := NumericOf(Int(3))
	assert.True(t, ok)
	assert.Equal(t, NumericTypeInt, n.Type())
	assert.Equal(t, 3.0, n.Float())
	_, ok = NumericOf(String("3"))
	assert.False(t, ok)
	assert.Equal(t, 0, CompareNumeric(IntNumeric(1), FloatNumeric(1)))
	assert.Equal(t, Float(2.5), FloatNumeric(2.5).Datum())
}
