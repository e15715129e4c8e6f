// Package core provides the object model shared by every other package of the
// configspace library.
//
// This package contains the foundational types:
//
//   - Object/Base: reference-counted objects with handles, user data and destroy callbacks
//   - Datum: the tagged value type (none, inactive, bool, int, float, string, object)
//   - Numeric/Interval: typed numeric values and the domains they live in
//   - Map: a thread-safe Datum to Datum store that owns object references
//   - RNG: a serializable random number generator object
//   - Encoder/Decoder: the binary serialization format and handle resolution
//
// Errors are reported as wrapped sentinel errors (ErrInvalidValue, ErrOutOfBounds, ...)
// which callers match with errors.Is, or classify with KindOf.
//
// Example usage:
//
//	m, err := core.NewMap()
//	if err != nil {
//	    return err
//	}
//	defer core.Release(m)
//
//	// object keys are retained by the map
//	if err := m.Set(core.ObjectDatum(param), core.Int(3)); err != nil {
//	    return err
//	}
//
// The core package is designed to be:
//   - Explicit about ownership: Retain and Release drive destruction
//   - Safe for concurrent reference counting
//   - Free of Kubernetes or transport concerns
package core
