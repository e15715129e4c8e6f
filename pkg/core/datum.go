package core

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DataType is the type tag of a Datum. The declaration order is the order
// used by Compare across types.
type DataType int32

// enumeration of DataType
const (
	DataTypeNone DataType = iota
	DataTypeInteger
	DataTypeFloat
	DataTypeBoolean
	DataTypeString
	DataTypeInactive
	DataTypeObject
	dataTypeMax
)

var dataTypeNames = [...]string{
	DataTypeNone:     "none",
	DataTypeInteger:  "integer",
	DataTypeFloat:    "float",
	DataTypeBoolean:  "boolean",
	DataTypeString:   "string",
	DataTypeInactive: "inactive",
	DataTypeObject:   "object",
}

func (t DataType) String() string {
	if t >= 0 && t < dataTypeMax {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("data_type(%d)", int32(t))
}

// Valid reports whether t is a known data type.
func (t DataType) Valid() bool {
	return t >= 0 && t < dataTypeMax
}

// DatumFlags alter ownership semantics of a Datum. They never take part in
// comparison or hashing.
type DatumFlags uint32

const (
	// FlagTransient marks string or object content that is not guaranteed to
	// outlive the call; anything storing the datum copies or retains it.
	FlagTransient DatumFlags = 1 << iota
	// FlagUnpooled marks content owned by the caller.
	FlagUnpooled
	// FlagID marks an object reference used as an identifier only. Such
	// references are never retained.
	FlagID
)

// Datum is the tagged value type of the library.
type Datum struct {
	Type  DataType
	Flags DatumFlags

	i int64
	f float64
	s string
	o Object
	h Handle
}

// None returns the None datum.
func None() Datum {
	return Datum{Type: DataTypeNone}
}

// Inactive returns the Inactive datum.
func Inactive() Datum {
	return Datum{Type: DataTypeInactive}
}

// Bool returns a Boolean datum.
func Bool(b bool) Datum {
	d := Datum{Type: DataTypeBoolean}
	if b {
		d.i = 1
	}
	return d
}

// True and False are the two Boolean datums.
var (
	True  = Bool(true)
	False = Bool(false)
)

// Int returns an Integer datum.
func Int(i int64) Datum {
	return Datum{Type: DataTypeInteger, i: i}
}

// Float returns a Float datum.
func Float(f float64) Datum {
	return Datum{Type: DataTypeFloat, f: f}
}

// String returns a String datum.
func String(s string) Datum {
	return Datum{Type: DataTypeString, s: s}
}

// TransientString returns a String datum flagged Transient.
func TransientString(s string) Datum {
	return Datum{Type: DataTypeString, s: s, Flags: FlagTransient}
}

// ObjectDatum wraps o in an Object datum. The nil object yields None.
func ObjectDatum(o Object) Datum {
	if isNil(o) {
		return None()
	}
	return Datum{Type: DataTypeObject, o: o, h: o.Handle()}
}

// IDDatum wraps o in an Object datum flagged ID: containers use it as an
// identifier and never retain it.
func IDDatum(o Object) Datum {
	d := ObjectDatum(o)
	if d.Type == DataTypeObject {
		d.Flags |= FlagID
	}
	return d
}

// HandleDatum returns an ID datum referring to an object only by handle, as
// read back from a serialized stream.
func HandleDatum(h Handle) Datum {
	return Datum{Type: DataTypeObject, h: h, Flags: FlagID}
}

// Int returns the integer value (Integer and Boolean datums).
func (d Datum) Int() int64 {
	return d.i
}

// Float returns the float value of a Float datum, or the converted integer
// value of an Integer datum.
func (d Datum) Float() float64 {
	if d.Type == DataTypeInteger {
		return float64(d.i)
	}
	return d.f
}

// Bool returns the value of a Boolean datum.
func (d Datum) Bool() bool {
	return d.i != 0
}

// Str returns the value of a String datum.
func (d Datum) Str() string {
	return d.s
}

// Object returns the object of an Object datum. It is nil for datums built
// with HandleDatum.
func (d Datum) Object() Object {
	return d.o
}

// Handle returns the handle of the object referenced by an Object datum.
func (d Datum) Handle() Handle {
	return d.h
}

// IsNumeric reports whether d is an Integer or a Float.
func (d Datum) IsNumeric() bool {
	return d.Type == DataTypeInteger || d.Type == DataTypeFloat
}

// IsInactive reports whether d is the Inactive datum.
func (d Datum) IsInactive() bool {
	return d.Type == DataTypeInactive
}

// WithFlags returns a copy of d with flags replaced.
func (d Datum) WithFlags(flags DatumFlags) Datum {
	d.Flags = flags
	return d
}

// Compare orders two datums: by type first, then by value. Strings compare
// bytewise, objects by handle. Flags are ignored.
func Compare(a, b Datum) int {
	if a.Type != b.Type {
		return cmp.Compare(a.Type, b.Type)
	}
	switch a.Type {
	case DataTypeInteger, DataTypeBoolean:
		return cmp.Compare(a.i, b.i)
	case DataTypeFloat:
		return cmp.Compare(a.f, b.f)
	case DataTypeString:
		return strings.Compare(a.s, b.s)
	case DataTypeObject:
		return cmp.Compare(a.h, b.h)
	default:
		return 0
	}
}

// Equal reports whether Compare(a, b) == 0.
func Equal(a, b Datum) bool {
	return Compare(a, b) == 0
}

// Equal reports whether d and o compare equal.
func (d Datum) Equal(o Datum) bool {
	return Compare(d, o) == 0
}

// HashCombine mixes h2 into h1.
func HashCombine(h1, h2 uint32) uint32 {
	h1 ^= h2 + 0x9e3779b9 + (h1 << 6) + (h1 >> 2)
	return h1
}

func fold64(h uint64) uint32 {
	return uint32(h) ^ uint32(h>>32)
}

func hashUint64(v uint64) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return fold64(xxhash.Sum64(buf[:]))
}

// Hash returns a 32-bit hash of d. Datums that compare equal hash equal.
func (d Datum) Hash() uint32 {
	h := hashUint64(uint64(d.Type))
	var vh uint32
	switch d.Type {
	case DataTypeInteger, DataTypeBoolean:
		vh = hashUint64(uint64(d.i))
	case DataTypeFloat:
		f := d.f
		switch {
		case f == 0:
			// -0 and 0 compare equal
			f = 0
		case math.IsNaN(f):
			f = math.NaN()
		}
		vh = hashUint64(math.Float64bits(f))
	case DataTypeString:
		vh = fold64(xxhash.Sum64String(d.s))
	case DataTypeObject:
		vh = hashUint64(uint64(d.h))
	}
	return HashCombine(h, vh)
}

// Hash is a function form of Datum.Hash.
func Hash(d Datum) uint32 {
	return d.Hash()
}

// FormatFloat renders f so that it reads back as a float.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eEnN") {
		return s
	}
	return s + ".0"
}

func (d Datum) String() string {
	switch d.Type {
	case DataTypeNone:
		return "none"
	case DataTypeInactive:
		return "inactive"
	case DataTypeBoolean:
		if d.Bool() {
			return "true"
		}
		return "false"
	case DataTypeInteger:
		return strconv.FormatInt(d.i, 10)
	case DataTypeFloat:
		return FormatFloat(d.f)
	case DataTypeString:
		return strconv.Quote(d.s)
	case DataTypeObject:
		if d.o != nil {
			return fmt.Sprintf("<%s %d>", d.o.ObjectType(), uint64(d.h))
		}
		return fmt.Sprintf("<handle %d>", uint64(d.h))
	default:
		return d.Type.String()
	}
}
