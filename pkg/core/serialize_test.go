package core

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNGRoundTrip(t *testing.T) {
	g, err := NewRNGWithSeed(42)
	require.NoError(t, err)
	defer Release(g)
	_ = g.Uniform()

	buf, err := Serialize(g)
	require.NoError(t, err)
	size, err := SerializeSize(g)
	require.NoError(t, err)
	assert.Equal(t, len(buf), size)

	obj, n, err := Deserialize(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	g2 := obj.(*RNG)
	defer Release(g2)

	for i := 0; i < 10; i++ {
		assert.Equal(t, g.Uint64(), g2.Uint64())
	}
}

func TestSerializeToMemory(t *testing.T) {
	g, _ := NewRNGWithSeed(1)
	defer Release(g)
	size, err := SerializeSize(g)
	require.NoError(t, err)

	_, err = SerializeToMemory(g, make([]byte, size-1))
	assert.ErrorIs(t, err, ErrNotEnoughData)

	buf := make([]byte, size)
	n, err := SerializeToMemory(g, buf)
	require.NoError(t, err)
	assert.Equal(t, size, n)

	_, _, err = Deserialize(buf[:size-3])
	assert.ErrorIs(t, err, ErrNotEnoughData)

	bad := bytes.Clone(buf)
	bad[0] ^= 0xff
	_, _, err = Deserialize(bad)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestMapRoundTripWithHandleMap(t *testing.T) {
	ref, _ := NewRNGWithSeed(7)
	defer Release(ref)

	m, _ := NewMap()
	defer Release(m)
	require.NoError(t, m.Set(String("x"), Float(1.5)))
	require.NoError(t, m.Set(String("rng"), ObjectDatum(ref)))

	buf, err := Serialize(m)
	require.NoError(t, err)

	// Without a handle map the rng reference cannot be resolved.
	_, _, err = Deserialize(buf)
	assert.ErrorIs(t, err, ErrInvalidHandle)

	handles, _ := NewMap()
	defer Release(handles)
	require.NoError(t, handles.Set(IDDatum(ref), ObjectDatum(ref)))

	obj, _, err := Deserialize(buf, WithHandleMap(handles))
	require.NoError(t, err)
	m2 := obj.(*Map)
	defer Release(m2)

	v, found, err := m2.Get(String("rng"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, ref, v.Object())
	v, _, _ = m2.Get(String("x"))
	assert.Equal(t, Float(1.5), v)
}

func TestMapHandles(t *testing.T) {
	g, _ := NewRNGWithSeed(3)
	defer Release(g)
	buf, err := Serialize(g)
	require.NoError(t, err)

	_, _, err = Deserialize(buf, WithMapHandles())
	assert.ErrorIs(t, err, ErrInvalidValue)

	handles, _ := NewMap()
	defer Release(handles)
	obj, _, err := Deserialize(buf, WithHandleMap(handles), WithMapHandles())
	require.NoError(t, err)
	defer Release(obj)

	v, found, err := handles.Get(HandleDatum(g.Handle()))
	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, obj, v.Object())

	_, _, err = Deserialize(buf, WithHandleMap(handles), WithMapHandles())
	assert.ErrorIs(t, err, ErrHandleDuplicate)
}

func TestUserDataCallbacks(t *testing.T) {
	g, _ := NewRNGWithSeed(3)
	defer Release(g)
	require.NoError(t, SetUserData(g, "hello"))
	require.NoError(t, SetSerializeCallback(g, func(obj Object, _ any) ([]byte, error) {
		ud, err := UserData(obj)
		if err != nil {
			return nil, err
		}
		return []byte(ud.(string)), nil
	}, nil))

	path := filepath.Join(t.TempDir(), "rng.ccs")
	require.NoError(t, SerializeToFile(g, path))

	obj, err := DeserializeFromFile(path, WithUserDataDeserializer(func(_ Object, data []byte) (any, error) {
		return string(data) + "!", nil
	}))
	require.NoError(t, err)
	defer Release(obj)
	ud, err := UserData(obj)
	require.NoError(t, err)
	assert.Equal(t, "hello!", ud)
}
