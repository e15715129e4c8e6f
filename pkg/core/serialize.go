package core

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// SerializeFormat selects the representation of serialized objects. Only
// the binary format exists.
type SerializeFormat int32

const (
	FormatBinary SerializeFormat = iota
)

const (
	streamMagic   uint32 = 0x00534343 // "CCS\0"
	streamVersion uint32 = 1
)

// Serializable is implemented by objects that can be written to a stream.
// Serialize writes the type-specific body; the object header is written by
// the encoder.
type Serializable interface {
	Object
	Serialize(enc *Encoder) error
}

// DeserializeFunc reads the body of an object of a registered type.
type DeserializeFunc func(dec *Decoder) (Object, error)

var (
	registryMu sync.RWMutex
	registry   = map[ObjectType]DeserializeFunc{}
)

// RegisterDeserializer installs the body reader of objects of type t.
// Packages register their types from init functions.
func RegisterDeserializer(t ObjectType, fn DeserializeFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = fn
}

func lookupDeserializer(t ObjectType) (DeserializeFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[t]
	return fn, ok
}

// Object writes the header and body of o. Nested owned objects are written
// through this method too.
func (e *Encoder) Object(o Object) error {
	b, err := Check(o)
	if err != nil {
		return err
	}
	s, ok := o.(Serializable)
	if !ok {
		return fmt.Errorf("%w: %s objects cannot be serialized", ErrUnsupportedOperation, b.typ)
	}
	b.mu.Lock()
	cb, data := b.serializeCB, b.serializeData
	b.mu.Unlock()
	var blob []byte
	if cb != nil {
		if blob, err = cb(o, data); err != nil {
			return fmt.Errorf("serializing user data of %s object: %w", b.typ, err)
		}
	}
	e.Int32(int32(b.typ))
	e.Handle(b.handle)
	e.Blob(blob)
	return s.Serialize(e)
}

func encode(e *Encoder, o Object) error {
	e.Uint32(streamMagic)
	e.Uint32(streamVersion)
	return e.Object(o)
}

// SerializeSize returns the number of bytes Serialize would produce.
func SerializeSize(o Object) (int, error) {
	e := NewSizeEncoder()
	if err := encode(e, o); err != nil {
		return 0, err
	}
	return e.Size(), nil
}

// Serialize returns the binary representation of o.
func Serialize(o Object) ([]byte, error) {
	e := NewEncoder()
	if err := encode(e, o); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// SerializeToMemory writes o into buf and returns the number of bytes
// written. buf too small is an ErrNotEnoughData.
func SerializeToMemory(o Object, buf []byte) (int, error) {
	size, err := SerializeSize(o)
	if err != nil {
		return 0, err
	}
	if len(buf) < size {
		return 0, fmt.Errorf("%w: buffer of %d bytes, need %d", ErrNotEnoughData, len(buf), size)
	}
	data, err := Serialize(o)
	if err != nil {
		return 0, err
	}
	return copy(buf, data), nil
}

// SerializeTo writes o to w.
func SerializeTo(o Object, w io.Writer) error {
	data, err := Serialize(o)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrSystem, err)
	}
	return nil
}

// SerializeToFile writes o to the file at path, creating or truncating it.
func SerializeToFile(o Object, path string) error {
	data, err := Serialize(o)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrSystem, err)
	}
	return nil
}

// UserDataDeserializer rebuilds user data from the blob written by a
// SerializeCallback.
type UserDataDeserializer func(obj Object, data []byte) (any, error)

type deserializeOptions struct {
	handleMap  *Map
	mapHandles bool
	userData   UserDataDeserializer
}

// DeserializeOption configures Deserialize.
type DeserializeOption func(*deserializeOptions)

// WithHandleMap resolves handle placeholders through m. Keys are ID datums
// of original objects, values the objects replacing them.
func WithHandleMap(m *Map) DeserializeOption {
	return func(o *deserializeOptions) {
		o.handleMap = m
	}
}

// WithMapHandles records every deserialized object in the handle map, keyed
// by the handle it had when serialized. Requires WithHandleMap.
func WithMapHandles() DeserializeOption {
	return func(o *deserializeOptions) {
		o.mapHandles = true
	}
}

// WithUserDataDeserializer rebuilds user data of deserialized objects.
func WithUserDataDeserializer(fn UserDataDeserializer) DeserializeOption {
	return func(o *deserializeOptions) {
		o.userData = fn
	}
}

// Object reads the header and body of an object.
func (d *Decoder) Object() (Object, error) {
	t, err := d.Int32()
	if err != nil {
		return nil, err
	}
	typ := ObjectType(t)
	fn, ok := lookupDeserializer(typ)
	if !ok {
		return nil, fmt.Errorf("%w: no deserializer for object type %s", ErrInvalidType, typ)
	}
	h, err := d.Handle()
	if err != nil {
		return nil, err
	}
	blob, err := d.Blob()
	if err != nil {
		return nil, err
	}
	obj, err := fn(d)
	if err != nil {
		return nil, err
	}
	if d.opts != nil && d.opts.userData != nil && len(blob) > 0 {
		ud, err := d.opts.userData(obj, blob)
		if err != nil {
			_ = Release(obj)
			return nil, fmt.Errorf("deserializing user data of %s object: %w", typ, err)
		}
		_ = SetUserData(obj, ud)
	}
	if err := d.Register(h, obj); err != nil {
		_ = Release(obj)
		return nil, err
	}
	return obj, nil
}

// ExpectObject reads an object and checks its type.
func (d *Decoder) ExpectObject(typ ObjectType) (Object, error) {
	obj, err := d.Object()
	if err != nil {
		return nil, err
	}
	if obj.ObjectType() != typ {
		_ = Release(obj)
		return nil, fmt.Errorf("%w: expected %s object, got %s", ErrInvalidType, typ, obj.ObjectType())
	}
	return obj, nil
}

// Register records obj as the replacement of the original handle h when
// handle mapping is enabled.
func (d *Decoder) Register(h Handle, obj Object) error {
	if d.opts == nil || !d.opts.mapHandles || d.opts.handleMap == nil {
		return nil
	}
	key := HandleDatum(h)
	found, err := d.opts.handleMap.Exist(key)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: handle %d already mapped", ErrHandleDuplicate, uint64(h))
	}
	return d.opts.handleMap.Set(key, ObjectDatum(obj))
}

// EnsureHandleMap makes sure objects read until the returned function is
// called are registered in a handle map, creating a private one if needed.
// Deserializers of composite objects use it to resolve references between
// their own parts.
func (d *Decoder) EnsureHandleMap() (restore func(), err error) {
	prev := d.opts
	if prev != nil && prev.handleMap != nil && prev.mapHandles {
		return func() {}, nil
	}
	next := &deserializeOptions{mapHandles: true}
	if prev != nil {
		*next = *prev
		next.mapHandles = true
	}
	var private *Map
	if next.handleMap == nil {
		if private, err = NewMap(); err != nil {
			return nil, err
		}
		next.handleMap = private
	}
	d.opts = next
	return func() {
		d.opts = prev
		if private != nil {
			_ = Release(private)
		}
	}, nil
}

// Deserialize reads an object from buf and returns it with the number of
// bytes consumed.
func Deserialize(buf []byte, opts ...DeserializeOption) (Object, int, error) {
	o := &deserializeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.mapHandles && o.handleMap == nil {
		return nil, 0, fmt.Errorf("%w: mapping handles requires a handle map", ErrInvalidValue)
	}
	if o.handleMap != nil {
		if _, err := CheckType(o.handleMap, ObjectTypeMap); err != nil {
			return nil, 0, err
		}
	}
	d := newDecoder(buf, o)
	magic, err := d.Uint32()
	if err != nil {
		return nil, 0, err
	}
	if magic != streamMagic {
		return nil, 0, fmt.Errorf("%w: bad stream magic %#x", ErrInvalidValue, magic)
	}
	version, err := d.Uint32()
	if err != nil {
		return nil, 0, err
	}
	if version != streamVersion {
		return nil, 0, fmt.Errorf("%w: unsupported stream version %d", ErrInvalidValue, version)
	}
	obj, err := d.Object()
	if err != nil {
		return nil, 0, err
	}
	return obj, d.Offset(), nil
}

// DeserializeFrom reads an object from r.
func DeserializeFrom(r io.Reader, opts ...DeserializeOption) (Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSystem, err)
	}
	obj, _, err := Deserialize(data, opts...)
	return obj, err
}

// DeserializeFromFile reads an object from the file at path.
func DeserializeFromFile(path string, opts ...DeserializeOption) (Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSystem, err)
	}
	obj, _, err := Deserialize(data, opts...)
	return obj, err
}
