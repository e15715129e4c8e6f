package core

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/llm-d/llm-d-configspace/internal/logging"
	"github.com/llm-d/llm-d-configspace/internal/metrics"
)

// ObjectType is the type tag carried by every object.
type ObjectType int32

// enumeration of ObjectType
const (
	ObjectTypeRng ObjectType = iota
	ObjectTypeDistribution
	ObjectTypeParameter
	ObjectTypeExpression
	ObjectTypeConfigurationSpace
	ObjectTypeConfiguration
	ObjectTypeObjectiveSpace
	ObjectTypeEvaluation
	ObjectTypeTuner
	ObjectTypeFeatureSpace
	ObjectTypeFeatures
	ObjectTypeMap
	ObjectTypeError
	ObjectTypeTree
	ObjectTypeTreeSpace
	ObjectTypeTreeConfiguration
	ObjectTypeTreeEvaluation
	ObjectTypeTreeTuner
	objectTypeMax
)

var objectTypeNames = [...]string{
	ObjectTypeRng:                "rng",
	ObjectTypeDistribution:       "distribution",
	ObjectTypeParameter:          "parameter",
	ObjectTypeExpression:         "expression",
	ObjectTypeConfigurationSpace: "configuration_space",
	ObjectTypeConfiguration:      "configuration",
	ObjectTypeObjectiveSpace:     "objective_space",
	ObjectTypeEvaluation:         "evaluation",
	ObjectTypeTuner:              "tuner",
	ObjectTypeFeatureSpace:       "feature_space",
	ObjectTypeFeatures:           "features",
	ObjectTypeMap:                "map",
	ObjectTypeError:              "error",
	ObjectTypeTree:               "tree",
	ObjectTypeTreeSpace:          "tree_space",
	ObjectTypeTreeConfiguration:  "tree_configuration",
	ObjectTypeTreeEvaluation:     "tree_evaluation",
	ObjectTypeTreeTuner:          "tree_tuner",
}

func (t ObjectType) String() string {
	if t >= 0 && t < objectTypeMax {
		return objectTypeNames[t]
	}
	return fmt.Sprintf("object_type(%d)", int32(t))
}

// Valid reports whether t is a known object type.
func (t ObjectType) Valid() bool {
	return t >= 0 && t < objectTypeMax
}

// Handle identifies an object for the lifetime of the process. Handles are
// never reused, which lets serialized streams refer to objects by handle.
type Handle uint64

var lastHandle atomic.Uint64

// Object is implemented by every reference-counted entity of the library,
// by embedding Base.
type Object interface {
	ObjectType() ObjectType
	Handle() Handle
	base() *Base
}

// DestroyCallback is invoked once, right before an object is destroyed.
// Its error is logged and otherwise ignored.
type DestroyCallback func(obj Object, userData any) error

// SerializeCallback produces the user-data blob stored alongside an object
// when it is serialized.
type SerializeCallback func(obj Object, userData any) ([]byte, error)

// Base carries the state shared by all objects. Concrete types embed it and
// call Init from their constructor.
type Base struct {
	typ    ObjectType
	handle Handle
	refs   atomic.Int32
	// destroying is set while the destroy callback and finalize run, so the
	// object still passes Check after its count dropped to zero.
	destroying atomic.Bool
	self       Object
	// finalize releases the references owned by the concrete type.
	finalize func()

	mu              sync.Mutex
	userData        any
	destroyCallback DestroyCallback
	destroyData     any
	serializeCB     SerializeCallback
	serializeData   any
}

// Init initializes the base of self. finalize, which may be nil, runs when the
// reference count drops to zero.
func (b *Base) Init(typ ObjectType, self Object, finalize func()) {
	b.typ = typ
	b.handle = Handle(lastHandle.Add(1))
	b.refs.Store(1)
	b.self = self
	b.finalize = finalize
	metrics.LiveObjects.WithLabelValues(typ.String()).Inc()
}

// ObjectType returns the type tag of the object.
func (b *Base) ObjectType() ObjectType {
	return b.typ
}

// Handle returns the process-unique handle of the object.
func (b *Base) Handle() Handle {
	return b.handle
}

func (b *Base) base() *Base {
	return b
}

// Alive reports whether the object has not been destroyed yet.
func (b *Base) Alive() bool {
	return b.refs.Load() > 0
}

// isNil catches both untyped nil and typed nil pointers stored in an interface.
func isNil(o Object) bool {
	if o == nil {
		return true
	}
	v := reflect.ValueOf(o)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Check returns the base of o, or ErrInvalidObject if o is nil or destroyed.
func Check(o Object) (*Base, error) {
	if isNil(o) {
		return nil, fmt.Errorf("%w: nil object", ErrInvalidObject)
	}
	b := o.base()
	if b.refs.Load() <= 0 && !b.destroying.Load() {
		return nil, fmt.Errorf("%w: %s object %d was destroyed", ErrInvalidObject, b.typ, b.handle)
	}
	return b, nil
}

// CheckType is Check with an additional object type constraint.
func CheckType(o Object, typ ObjectType) (*Base, error) {
	b, err := Check(o)
	if err != nil {
		return nil, err
	}
	if b.typ != typ {
		return nil, fmt.Errorf("%w: expected %s object, got %s", ErrInvalidObject, typ, b.typ)
	}
	return b, nil
}

// Retain increments the reference count of o.
func Retain(o Object) error {
	if isNil(o) {
		return fmt.Errorf("%w: nil object", ErrInvalidObject)
	}
	b := o.base()
	for {
		n := b.refs.Load()
		if n <= 0 {
			return fmt.Errorf("%w: %s object %d was destroyed", ErrInvalidObject, b.typ, b.handle)
		}
		if b.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Release decrements the reference count of o and destroys it when the count
// reaches zero: the destroy callback runs first, then the references owned by
// the object are released. The object stays valid for Check, UserData and
// TypeOf until both are done, but can no longer be retained.
func Release(o Object) error {
	if isNil(o) {
		return fmt.Errorf("%w: nil object", ErrInvalidObject)
	}
	b := o.base()
	for {
		n := b.refs.Load()
		if n <= 0 {
			return fmt.Errorf("%w: %s object %d was destroyed", ErrInvalidObject, b.typ, b.handle)
		}
		if b.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				b.destroy()
			}
			return nil
		}
	}
}

func (b *Base) destroy() {
	b.destroying.Store(true)
	defer b.destroying.Store(false)
	b.mu.Lock()
	cb, data := b.destroyCallback, b.destroyData
	b.mu.Unlock()
	if cb != nil {
		if err := cb(b.self, data); err != nil {
			logging.Logger().V(logging.DEBUG).Info("Destroy callback failed, ignoring",
				"type", b.typ.String(),
				"handle", uint64(b.handle),
				"error", err)
		}
	}
	if b.finalize != nil {
		b.finalize()
	}
	metrics.LiveObjects.WithLabelValues(b.typ.String()).Dec()
}

// ReleaseAll releases every non-nil object of objs. It is meant for cleanup
// paths and destructors; the first error is returned.
func ReleaseAll[T Object](objs ...T) error {
	var first error
	for _, o := range objs {
		if isNil(o) {
			continue
		}
		if err := Release(o); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RefCount returns the current strong reference count of o.
func RefCount(o Object) (int32, error) {
	b, err := Check(o)
	if err != nil {
		return 0, err
	}
	return b.refs.Load(), nil
}

// TypeOf returns the type tag of o.
func TypeOf(o Object) (ObjectType, error) {
	b, err := Check(o)
	if err != nil {
		return 0, err
	}
	return b.typ, nil
}

// SetUserData attaches arbitrary data to o.
func SetUserData(o Object, data any) error {
	b, err := Check(o)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userData = data
	return nil
}

// UserData returns the data attached with SetUserData.
func UserData(o Object) (any, error) {
	b, err := Check(o)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.userData, nil
}

// SetDestroyCallback installs cb, replacing any previous callback.
func SetDestroyCallback(o Object, cb DestroyCallback, userData any) error {
	b, err := Check(o)
	if err != nil {
		return err
	}
	if cb == nil {
		return fmt.Errorf("%w: nil destroy callback", ErrInvalidValue)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyCallback = cb
	b.destroyData = userData
	return nil
}

// SetSerializeCallback installs the callback producing the user-data blob
// written when o is serialized.
func SetSerializeCallback(o Object, cb SerializeCallback, userData any) error {
	b, err := Check(o)
	if err != nil {
		return err
	}
	if cb == nil {
		return fmt.Errorf("%w: nil serialize callback", ErrInvalidValue)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.serializeCB = cb
	b.serializeData = userData
	return nil
}
