package core

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
)

// NumericType is the type of a Numeric. Its values coincide with the
// corresponding DataType values.
type NumericType int32

// enumeration of NumericType
const (
	NumericTypeInt   = NumericType(DataTypeInteger)
	NumericTypeFloat = NumericType(DataTypeFloat)
)

func (t NumericType) String() string {
	switch t {
	case NumericTypeInt:
		return "int"
	case NumericTypeFloat:
		return "float"
	default:
		return fmt.Sprintf("numeric_type(%d)", int32(t))
	}
}

// Valid reports whether t is NumericTypeInt or NumericTypeFloat.
func (t NumericType) Valid() bool {
	return t == NumericTypeInt || t == NumericTypeFloat
}

// DataType returns the Datum type matching t.
func (t NumericType) DataType() DataType {
	return DataType(t)
}

// Numeric is an integer or floating point value, as produced by distributions.
type Numeric struct {
	typ NumericType
	i   int64
	f   float64
}

// IntNumeric returns an integer Numeric.
func IntNumeric(i int64) Numeric {
	return Numeric{typ: NumericTypeInt, i: i}
}

// FloatNumeric returns a floating point Numeric.
func FloatNumeric(f float64) Numeric {
	return Numeric{typ: NumericTypeFloat, f: f}
}

// NumericOf converts a numeric datum. ok is false for any other datum.
func NumericOf(d Datum) (Numeric, bool) {
	switch d.Type {
	case DataTypeInteger:
		return IntNumeric(d.i), true
	case DataTypeFloat:
		return FloatNumeric(d.f), true
	default:
		return Numeric{}, false
	}
}

// Type returns the type of n.
func (n Numeric) Type() NumericType {
	return n.typ
}

// Int returns n as an integer, truncating floats.
func (n Numeric) Int() int64 {
	if n.typ == NumericTypeFloat {
		return int64(n.f)
	}
	return n.i
}

// Float returns n as a float.
func (n Numeric) Float() float64 {
	if n.typ == NumericTypeInt {
		return float64(n.i)
	}
	return n.f
}

// Convert returns n as a value of type typ. A float converts to an integer
// only when it is finite, integral and within the int64 range.
func (n Numeric) Convert(typ NumericType) (Numeric, error) {
	if typ == NumericTypeFloat {
		return FloatNumeric(n.Float()), nil
	}
	if n.typ == NumericTypeInt {
		return n, nil
	}
	if n.f != math.Trunc(n.f) || n.f < math.MinInt64 || n.f >= math.MaxInt64 {
		return Numeric{}, fmt.Errorf("%w: %s is not an integer", ErrInvalidValue, n)
	}
	return IntNumeric(int64(n.f)), nil
}

// Datum converts n to an Integer or Float datum.
func (n Numeric) Datum() Datum {
	if n.typ == NumericTypeInt {
		return Int(n.i)
	}
	return Float(n.f)
}

// CompareNumeric compares two numerics of possibly different types by value.
func CompareNumeric(a, b Numeric) int {
	if a.typ == NumericTypeInt && b.typ == NumericTypeInt {
		return cmp.Compare(a.i, b.i)
	}
	return cmp.Compare(a.Float(), b.Float())
}

func (n Numeric) String() string {
	if n.typ == NumericTypeInt {
		return strconv.FormatInt(n.i, 10)
	}
	return FormatFloat(n.f)
}

// Interval is a typed range of numeric values with inclusive or exclusive
// bounds. Float intervals may have infinite bounds.
type Interval struct {
	Type          NumericType
	Lower         Numeric
	Upper         Numeric
	LowerIncluded bool
	UpperIncluded bool
}

// NewInterval builds an interval of type typ. Bounds are converted to typ.
func NewInterval(typ NumericType, lower, upper Numeric, lowerIncluded, upperIncluded bool) (Interval, error) {
	if !typ.Valid() {
		return Interval{}, fmt.Errorf("%w: interval type %s", ErrInvalidType, typ)
	}
	return Interval{
		Type:          typ,
		Lower:         convertNumeric(typ, lower),
		Upper:         convertNumeric(typ, upper),
		LowerIncluded: lowerIncluded,
		UpperIncluded: upperIncluded,
	}, nil
}

// FullInterval returns the interval covering every value of typ.
func FullInterval(typ NumericType) Interval {
	if typ == NumericTypeInt {
		return Interval{
			Type:          NumericTypeInt,
			Lower:         IntNumeric(math.MinInt64),
			Upper:         IntNumeric(math.MaxInt64),
			LowerIncluded: true,
			UpperIncluded: true,
		}
	}
	return Interval{
		Type:  NumericTypeFloat,
		Lower: FloatNumeric(math.Inf(-1)),
		Upper: FloatNumeric(math.Inf(1)),
	}
}

func convertNumeric(typ NumericType, n Numeric) Numeric {
	if typ == NumericTypeInt {
		return IntNumeric(n.Int())
	}
	return FloatNumeric(n.Float())
}

// closedInt returns the inclusive integer bounds of iv. ok is false when the
// interval is empty.
func (iv Interval) closedInt() (lo, hi int64, ok bool) {
	lo, hi = iv.Lower.i, iv.Upper.i
	if !iv.LowerIncluded {
		if lo == math.MaxInt64 {
			return 0, 0, false
		}
		lo++
	}
	if !iv.UpperIncluded {
		if hi == math.MinInt64 {
			return 0, 0, false
		}
		hi--
	}
	return lo, hi, lo <= hi
}

// Empty reports whether iv contains no value.
func (iv Interval) Empty() bool {
	if iv.Type == NumericTypeInt {
		_, _, ok := iv.closedInt()
		return !ok
	}
	l, u := iv.Lower.f, iv.Upper.f
	if l < u {
		return false
	}
	return !(l == u && iv.LowerIncluded && iv.UpperIncluded)
}

// Include reports whether v lies in iv.
func (iv Interval) Include(v Numeric) bool {
	if iv.Type == NumericTypeInt {
		if v.typ == NumericTypeFloat && v.f != math.Trunc(v.f) {
			return false
		}
		lo, hi, ok := iv.closedInt()
		x := v.Int()
		return ok && x >= lo && x <= hi
	}
	x := v.Float()
	if math.IsNaN(x) {
		return false
	}
	if iv.LowerIncluded {
		if x < iv.Lower.f {
			return false
		}
	} else if x <= iv.Lower.f {
		return false
	}
	if iv.UpperIncluded {
		return x <= iv.Upper.f
	}
	return x < iv.Upper.f
}

// lowerCmp orders lower bounds: a bound that admits more values is smaller.
func lowerCmp(v1 Numeric, inc1 bool, v2 Numeric, inc2 bool) int {
	if c := CompareNumeric(v1, v2); c != 0 {
		return c
	}
	switch {
	case inc1 == inc2:
		return 0
	case inc1:
		return -1
	default:
		return 1
	}
}

// upperCmp orders upper bounds: a bound that admits more values is larger.
func upperCmp(v1 Numeric, inc1 bool, v2 Numeric, inc2 bool) int {
	if c := CompareNumeric(v1, v2); c != 0 {
		return c
	}
	switch {
	case inc1 == inc2:
		return 0
	case inc1:
		return 1
	default:
		return -1
	}
}

// normalized rewrites integer intervals with inclusive bounds so that
// inclusivity comparisons become exact.
func (iv Interval) normalized() Interval {
	if iv.Type != NumericTypeInt {
		return iv
	}
	lo, hi, ok := iv.closedInt()
	if !ok {
		return iv
	}
	return Interval{Type: NumericTypeInt, Lower: IntNumeric(lo), Upper: IntNumeric(hi), LowerIncluded: true, UpperIncluded: true}
}

// Intersect returns the intersection of iv and o, which must share a type.
func (iv Interval) Intersect(o Interval) (Interval, error) {
	if iv.Type != o.Type {
		return Interval{}, fmt.Errorf("%w: intersecting %s and %s intervals", ErrInvalidType, iv.Type, o.Type)
	}
	a, b := iv.normalized(), o.normalized()
	res := Interval{Type: iv.Type}
	if lowerCmp(a.Lower, a.LowerIncluded, b.Lower, b.LowerIncluded) >= 0 {
		res.Lower, res.LowerIncluded = a.Lower, a.LowerIncluded
	} else {
		res.Lower, res.LowerIncluded = b.Lower, b.LowerIncluded
	}
	if upperCmp(a.Upper, a.UpperIncluded, b.Upper, b.UpperIncluded) <= 0 {
		res.Upper, res.UpperIncluded = a.Upper, a.UpperIncluded
	} else {
		res.Upper, res.UpperIncluded = b.Upper, b.UpperIncluded
	}
	return res, nil
}

// Union returns the smallest interval containing both iv and o.
func (iv Interval) Union(o Interval) (Interval, error) {
	if iv.Type != o.Type {
		return Interval{}, fmt.Errorf("%w: joining %s and %s intervals", ErrInvalidType, iv.Type, o.Type)
	}
	if iv.Empty() {
		return o, nil
	}
	if o.Empty() {
		return iv, nil
	}
	a, b := iv.normalized(), o.normalized()
	res := Interval{Type: iv.Type}
	if lowerCmp(a.Lower, a.LowerIncluded, b.Lower, b.LowerIncluded) <= 0 {
		res.Lower, res.LowerIncluded = a.Lower, a.LowerIncluded
	} else {
		res.Lower, res.LowerIncluded = b.Lower, b.LowerIncluded
	}
	if upperCmp(a.Upper, a.UpperIncluded, b.Upper, b.UpperIncluded) >= 0 {
		res.Upper, res.UpperIncluded = a.Upper, a.UpperIncluded
	} else {
		res.Upper, res.UpperIncluded = b.Upper, b.UpperIncluded
	}
	return res, nil
}

// Subset reports whether every value of iv lies in o.
func (iv Interval) Subset(o Interval) bool {
	if iv.Empty() {
		return true
	}
	if o.Empty() {
		return false
	}
	a, b := iv.normalized(), o.normalized()
	if a.Type != b.Type {
		// compare a float interval against an integer one through floats
		a, b = a.asFloat(), b.asFloat()
	}
	return lowerCmp(a.Lower, a.LowerIncluded, b.Lower, b.LowerIncluded) >= 0 &&
		upperCmp(a.Upper, a.UpperIncluded, b.Upper, b.UpperIncluded) <= 0
}

func (iv Interval) asFloat() Interval {
	return Interval{
		Type:          NumericTypeFloat,
		Lower:         FloatNumeric(iv.Lower.Float()),
		Upper:         FloatNumeric(iv.Upper.Float()),
		LowerIncluded: iv.LowerIncluded,
		UpperIncluded: iv.UpperIncluded,
	}
}

// Equal reports whether iv and o contain the same values.
func (iv Interval) Equal(o Interval) bool {
	if iv.Type != o.Type {
		return false
	}
	if iv.Empty() || o.Empty() {
		return iv.Empty() == o.Empty()
	}
	return iv.Subset(o) && o.Subset(iv)
}

func (iv Interval) String() string {
	lb, ub := "(", ")"
	if iv.LowerIncluded {
		lb = "["
	}
	if iv.UpperIncluded {
		ub = "]"
	}
	return lb + iv.Lower.String() + ", " + iv.Upper.String() + ub
}
