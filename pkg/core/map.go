package core

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
)

// mapKey is the comparable projection of a Datum used for indexing: it
// ignores flags and identifies objects by handle.
type mapKey struct {
	typ DataType
	i   int64
	f   float64
	s   string
	h   Handle
}

func keyOf(d Datum) mapKey {
	k := mapKey{typ: d.Type}
	switch d.Type {
	case DataTypeInteger, DataTypeBoolean:
		k.i = d.i
	case DataTypeFloat:
		k.f = d.f
		if k.f == 0 {
			k.f = 0
		}
		if math.IsNaN(k.f) {
			// NaN never equals itself in a Go map key; store its bits instead
			k.f, k.i = 0, 1
		}
	case DataTypeString:
		k.s = d.s
	case DataTypeObject:
		k.h = d.h
	}
	return k
}

type mapEntry struct {
	key   Datum
	value Datum
}

// Map is an insertion-ordered Datum to Datum store. Object keys and values
// are retained unless flagged ID; transient strings are copied. All
// operations are serialized by a mutex.
type Map struct {
	Base

	mu      sync.Mutex
	index   map[mapKey]int
	entries []mapEntry
}

// NewMap returns an empty map.
func NewMap() (*Map, error) {
	m := &Map{index: make(map[mapKey]int)}
	m.Init(ObjectTypeMap, m, m.finalize)
	return m, nil
}

func (m *Map) finalize() {
	m.mu.Lock()
	entries := m.entries
	m.entries = nil
	m.index = nil
	m.mu.Unlock()
	for _, e := range entries {
		dropDatum(e.key)
		dropDatum(e.value)
	}
}

// own prepares d for storage: retains objects and copies transient strings.
func own(d Datum) (Datum, error) {
	switch d.Type {
	case DataTypeString:
		if d.Flags&FlagTransient != 0 {
			d.s = strings.Clone(d.s)
		}
		d.Flags = 0
	case DataTypeObject:
		if d.Flags&FlagID == 0 {
			if err := Retain(d.o); err != nil {
				return Datum{}, err
			}
		}
		d.Flags &= FlagID
	default:
		d.Flags = 0
	}
	return d, nil
}

// dropDatum releases the reference own took, if any.
func dropDatum(d Datum) {
	if d.Type == DataTypeObject && d.Flags&FlagID == 0 && d.o != nil {
		_ = Release(d.o)
	}
}

func (m *Map) check() error {
	_, err := CheckType(m, ObjectTypeMap)
	return err
}

// Set stores value under key, replacing and releasing any previous value.
func (m *Map) Set(key, value Datum) error {
	if err := m.check(); err != nil {
		return err
	}
	if key.Type == DataTypeObject && key.o == nil && key.Flags&FlagID == 0 {
		return fmt.Errorf("%w: object key without object must be flagged ID", ErrInvalidValue)
	}
	v, err := own(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	k := keyOf(key)
	if i, found := m.index[k]; found {
		old := m.entries[i].value
		m.entries[i].value = v
		m.mu.Unlock()
		dropDatum(old)
		return nil
	}
	owned, err := own(key)
	if err != nil {
		m.mu.Unlock()
		dropDatum(v)
		return err
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, mapEntry{key: owned, value: v})
	m.mu.Unlock()
	return nil
}

// Get returns the value stored under key. found is false when absent, in
// which case the value is None.
func (m *Map) Get(key Datum) (value Datum, found bool, err error) {
	if err := m.check(); err != nil {
		return None(), false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.index[keyOf(key)]
	if !ok {
		return None(), false, nil
	}
	return m.entries[i].value, true, nil
}

// Exist reports whether key is present.
func (m *Map) Exist(key Datum) (bool, error) {
	_, found, err := m.Get(key)
	return found, err
}

// Unset removes key and releases its entry. Removing an absent key is an
// ErrInvalidValue.
func (m *Map) Unset(key Datum) error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	k := keyOf(key)
	i, ok := m.index[k]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: key %s not found", ErrInvalidValue, key)
	}
	e := m.entries[i]
	m.entries = slices.Delete(m.entries, i, i+1)
	delete(m.index, k)
	for j := i; j < len(m.entries); j++ {
		m.index[keyOf(m.entries[j].key)] = j
	}
	m.mu.Unlock()
	dropDatum(e.key)
	dropDatum(e.value)
	return nil
}

// Clear removes every entry.
func (m *Map) Clear() error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	entries := m.entries
	m.entries = nil
	m.index = make(map[mapKey]int)
	m.mu.Unlock()
	for _, e := range entries {
		dropDatum(e.key)
		dropDatum(e.value)
	}
	return nil
}

// Len returns the number of entries.
func (m *Map) Len() (int, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() ([]Datum, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]Datum, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys, nil
}

// Values returns the values in insertion order of their keys.
func (m *Map) Values() ([]Datum, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	values := make([]Datum, len(m.entries))
	for i, e := range m.entries {
		values[i] = e.value
	}
	return values, nil
}

// Pairs returns keys and values in insertion order.
func (m *Map) Pairs() (keys, values []Datum, err error) {
	if err := m.check(); err != nil {
		return nil, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	keys = make([]Datum, len(m.entries))
	values = make([]Datum, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
		values[i] = e.value
	}
	return keys, values, nil
}

// Serialize writes the entries of the map. Object entries are written as
// handle placeholders.
func (m *Map) Serialize(enc *Encoder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	enc.Uint64(uint64(len(m.entries)))
	for _, e := range m.entries {
		enc.Datum(e.key)
		enc.Datum(e.value)
	}
	return nil
}

func deserializeMap(dec *Decoder) (Object, error) {
	n, err := dec.Length()
	if err != nil {
		return nil, err
	}
	m, _ := NewMap()
	for range n {
		k, err := dec.Datum()
		if err != nil {
			_ = Release(m)
			return nil, err
		}
		v, err := dec.Datum()
		if err != nil {
			_ = Release(m)
			return nil, err
		}
		if err := m.Set(k, v); err != nil {
			_ = Release(m)
			return nil, err
		}
	}
	return m, nil
}

func init() {
	RegisterDeserializer(ObjectTypeMap, deserializeMap)
}
