package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefCount(t *testing.T) {
	m, err := NewMap()
	require.NoError(t, err)

	rc, err := RefCount(m)
	require.NoError(t, err)
	assert.Equal(t, int32(1), rc)

	for i := 0; i < 5; i++ {
		require.NoError(t, Retain(m))
	}
	rc, _ = RefCount(m)
	assert.Equal(t, int32(6), rc)

	for i := 0; i < 5; i++ {
		require.NoError(t, Release(m))
	}
	rc, _ = RefCount(m)
	assert.Equal(t, int32(1), rc)

	require.NoError(t, Release(m))
	_, err = RefCount(m)
	assert.ErrorIs(t, err, ErrInvalidObject)
	assert.ErrorIs(t, Retain(m), ErrInvalidObject)
	assert.ErrorIs(t, Release(m), ErrInvalidObject)
}

func TestInvalidObjects(t *testing.T) {
	var m *Map
	assert.ErrorIs(t, Retain(nil), ErrInvalidObject)
	assert.ErrorIs(t, Release(nil), ErrInvalidObject)
	assert.ErrorIs(t, Retain(m), ErrInvalidObject)
	_, err := TypeOf(m)
	assert.ErrorIs(t, err, ErrInvalidObject)
	assert.Equal(t, KindInvalidObject, KindOf(err))
}

func TestDestroyCallback(t *testing.T) {
	m, err := NewMap()
	require.NoError(t, err)

	typ, err := TypeOf(m)
	require.NoError(t, err)
	assert.Equal(t, ObjectTypeMap, typ)

	assert.ErrorIs(t, SetDestroyCallback(m, nil, nil), ErrInvalidValue)

	calls := 0
	var seen any
	first := func(obj Object, data any) error {
		calls += 100
		return nil
	}
	second := func(obj Object, data any) error {
		calls++
		seen = data
		return errors.New("ignored")
	}
	require.NoError(t, SetDestroyCallback(m, first, nil))
	require.NoError(t, SetDestroyCallback(m, second, "payload"))

	require.NoError(t, SetUserData(m, 42))
	ud, err := UserData(m)
	require.NoError(t, err)
	assert.Equal(t, 42, ud)

	require.NoError(t, Retain(m))
	require.NoError(t, Release(m))
	assert.Equal(t, 0, calls)

	require.NoError(t, Release(m))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "payload", seen)
}

func TestDestroyCallbackSeesLiveObject(t *testing.T) {
	m, err := NewMap()
	require.NoError(t, err)
	require.NoError(t, SetUserData(m, "owner"))

	var (
		ud      any
		typ     ObjectType
		rc      int32
		errs    []error
		retainE error
	)
	cb := func(obj Object, _ any) error {
		var err error
		ud, err = UserData(obj)
		errs = append(errs, err)
		typ, err = TypeOf(obj)
		errs = append(errs, err)
		rc, err = RefCount(obj)
		errs = append(errs, err)
		retainE = Retain(obj)
		return nil
	}
	require.NoError(t, SetDestroyCallback(m, cb, nil))
	require.NoError(t, Release(m))

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, "owner", ud)
	assert.Equal(t, ObjectTypeMap, typ)
	assert.Equal(t, int32(0), rc)
	assert.ErrorIs(t, retainE, ErrInvalidObject)

	_, err = UserData(m)
	assert.ErrorIs(t, err, ErrInvalidObject)
	assert.False(t, m.Alive())
}

func TestHandlesAreUnique(t *testing.T) {
	a, _ := NewMap()
	b, _ := NewMap()
	defer ReleaseAll(a, b)
	assert.NotEqual(t, a.Handle(), b.Handle())
}

func TestConcurrentRetainRelease(t *testing.T) {
	m, err := NewMap()
	require.NoError(t, err)
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_ = Retain(m)
				_ = Release(m)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}
	rc, err := RefCount(m)
	require.NoError(t, err)
	assert.Equal(t, int32(1), rc)
	require.NoError(t, Release(m))
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind ErrorKind
	}{
		{ErrInvalidValue, KindInvalidValue},
		{ErrOutOfBounds, KindOutOfBounds},
		{ErrSamplingUnsuccessful, KindSamplingUnsuccessful},
		{errors.New("other"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}
