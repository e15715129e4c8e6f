package core

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encoder appends the binary representation of values to a buffer. A
// counting encoder only measures the size the representation would take.
// All integers are little endian and fixed width.
type Encoder struct {
	buf      []byte
	size     int
	counting bool
}

// NewEncoder returns an encoder writing into a fresh buffer.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// NewSizeEncoder returns an encoder that only counts bytes.
func NewSizeEncoder() *Encoder {
	return &Encoder{counting: true}
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Size returns the number of bytes encoded so far.
func (e *Encoder) Size() int {
	return e.size
}

func (e *Encoder) grow(n int) []byte {
	e.size += n
	if e.counting {
		return nil
	}
	e.buf = append(e.buf, make([]byte, n)...)
	return e.buf[len(e.buf)-n:]
}

// Uint32 writes v on 4 bytes.
func (e *Encoder) Uint32(v uint32) {
	if b := e.grow(4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

// Int32 writes v on 4 bytes.
func (e *Encoder) Int32(v int32) {
	e.Uint32(uint32(v))
}

// Uint64 writes v on 8 bytes.
func (e *Encoder) Uint64(v uint64) {
	if b := e.grow(8); b != nil {
		binary.LittleEndian.PutUint64(b, v)
	}
}

// Int64 writes v on 8 bytes.
func (e *Encoder) Int64(v int64) {
	e.Uint64(uint64(v))
}

// Float64 writes the IEEE-754 representation of v.
func (e *Encoder) Float64(v float64) {
	e.Uint64(math.Float64bits(v))
}

// Bool writes v as a 4 byte integer.
func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint32(1)
	} else {
		e.Uint32(0)
	}
}

// Blob writes a length-prefixed byte string.
func (e *Encoder) Blob(v []byte) {
	e.Uint64(uint64(len(v)))
	if b := e.grow(len(v)); b != nil {
		copy(b, v)
	}
}

// String writes a length-prefixed string.
func (e *Encoder) String(v string) {
	e.Uint64(uint64(len(v)))
	if b := e.grow(len(v)); b != nil {
		copy(b, v)
	}
}

// Handle writes a handle placeholder for an object.
func (e *Encoder) Handle(h Handle) {
	e.Uint64(uint64(h))
}

// Datum writes a type tag followed by the value. Objects are written as
// handle placeholders.
func (e *Encoder) Datum(d Datum) {
	e.Int32(int32(d.Type))
	switch d.Type {
	case DataTypeInteger:
		e.Int64(d.i)
	case DataTypeFloat:
		e.Float64(d.f)
	case DataTypeBoolean:
		e.Bool(d.i != 0)
	case DataTypeString:
		e.String(d.s)
	case DataTypeObject:
		e.Handle(d.h)
	}
}

// Numeric writes a type tag followed by the value.
func (e *Encoder) Numeric(n Numeric) {
	e.Int32(int32(n.typ))
	if n.typ == NumericTypeInt {
		e.Int64(n.i)
	} else {
		e.Float64(n.f)
	}
}

// Interval writes the type, bounds and inclusivity of iv.
func (e *Encoder) Interval(iv Interval) {
	e.Int32(int32(iv.Type))
	e.Numeric(iv.Lower)
	e.Numeric(iv.Upper)
	e.Bool(iv.LowerIncluded)
	e.Bool(iv.UpperIncluded)
}

// Decoder reads values written by an Encoder and resolves handle
// placeholders through the handle map of its options.
type Decoder struct {
	buf  []byte
	off  int
	opts *deserializeOptions
}

func newDecoder(buf []byte, opts *deserializeOptions) *Decoder {
	return &Decoder{buf: buf, opts: opts}
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.off
}

func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || len(d.buf)-d.off < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrNotEnoughData, n, d.off, len(d.buf)-d.off)
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

// Uint32 reads a 4 byte integer.
func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Int32 reads a 4 byte signed integer.
func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

// Uint64 reads an 8 byte integer.
func (d *Decoder) Uint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Int64 reads an 8 byte signed integer.
func (d *Decoder) Int64() (int64, error) {
	v, err := d.Uint64()
	return int64(v), err
}

// Float64 reads an IEEE-754 double.
func (d *Decoder) Float64() (float64, error) {
	v, err := d.Uint64()
	return math.Float64frombits(v), err
}

// Bool reads a boolean written by Encoder.Bool.
func (d *Decoder) Bool() (bool, error) {
	v, err := d.Uint32()
	return v != 0, err
}

// Length reads a collection length. Every element takes at least one byte,
// so lengths beyond the remaining input are rejected before allocating.
func (d *Decoder) Length() (int, error) {
	v, err := d.Uint64()
	if err != nil {
		return 0, err
	}
	if v > uint64(len(d.buf)-d.off) {
		return 0, fmt.Errorf("%w: length %d exceeds input", ErrNotEnoughData, v)
	}
	return int(v), nil
}

// Blob reads a length-prefixed byte string.
func (d *Decoder) Blob() ([]byte, error) {
	n, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(d.buf)-d.off) {
		return nil, fmt.Errorf("%w: blob of %d bytes exceeds input", ErrNotEnoughData, n)
	}
	b, err := d.take(int(n))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// String reads a length-prefixed string.
func (d *Decoder) String() (string, error) {
	b, err := d.Blob()
	return string(b), err
}

// Handle reads a handle placeholder without resolving it.
func (d *Decoder) Handle() (Handle, error) {
	v, err := d.Uint64()
	return Handle(v), err
}

// ResolveHandle maps a handle read from the stream to the object registered
// for it in the handle map.
func (d *Decoder) ResolveHandle(h Handle) (Object, error) {
	if d.opts == nil || d.opts.handleMap == nil {
		return nil, fmt.Errorf("%w: no handle map to resolve handle %d", ErrInvalidHandle, uint64(h))
	}
	v, found, err := d.opts.handleMap.Get(HandleDatum(h))
	if err != nil {
		return nil, err
	}
	if !found || v.Type != DataTypeObject || v.o == nil {
		return nil, fmt.Errorf("%w: handle %d not found in handle map", ErrInvalidHandle, uint64(h))
	}
	return v.o, nil
}

// ObjectRef reads a handle placeholder and resolves it.
func (d *Decoder) ObjectRef() (Object, error) {
	h, err := d.Handle()
	if err != nil {
		return nil, err
	}
	return d.ResolveHandle(h)
}

// Datum reads a datum. Object datums are resolved through the handle map.
func (d *Decoder) Datum() (Datum, error) {
	t, err := d.Int32()
	if err != nil {
		return Datum{}, err
	}
	switch DataType(t) {
	case DataTypeNone:
		return None(), nil
	case DataTypeInactive:
		return Inactive(), nil
	case DataTypeInteger:
		v, err := d.Int64()
		return Int(v), err
	case DataTypeFloat:
		v, err := d.Float64()
		return Float(v), err
	case DataTypeBoolean:
		v, err := d.Bool()
		return Bool(v), err
	case DataTypeString:
		v, err := d.String()
		return String(v), err
	case DataTypeObject:
		o, err := d.ObjectRef()
		if err != nil {
			return Datum{}, err
		}
		return ObjectDatum(o), nil
	default:
		return Datum{}, fmt.Errorf("%w: datum type %d", ErrInvalidType, t)
	}
}

// Numeric reads a numeric value.
func (d *Decoder) Numeric() (Numeric, error) {
	t, err := d.Int32()
	if err != nil {
		return Numeric{}, err
	}
	switch NumericType(t) {
	case NumericTypeInt:
		v, err := d.Int64()
		return IntNumeric(v), err
	case NumericTypeFloat:
		v, err := d.Float64()
		return FloatNumeric(v), err
	default:
		return Numeric{}, fmt.Errorf("%w: numeric type %d", ErrInvalidType, t)
	}
}

// Interval reads an interval.
func (d *Decoder) Interval() (Interval, error) {
	t, err := d.Int32()
	if err != nil {
		return Interval{}, err
	}
	lower, err := d.Numeric()
	if err != nil {
		return Interval{}, err
	}
	upper, err := d.Numeric()
	if err != nil {
		return Interval{}, err
	}
	li, err := d.Bool()
	if err != nil {
		return Interval{}, err
	}
	ui, err := d.Bool()
	if err != nil {
		return Interval{}, err
	}
	return NewInterval(NumericType(t), lower, upper, li, ui)
}
