// Package parameter defines the named, typed dimensions configurations are
// made of.
//
// Five kinds exist:
//
//   - Numerical: an integer or float in [lower, upper) with an optional
//     quantization step.
//   - Categorical: one of a declared list of values, without order.
//   - Ordinal: one of a declared list of values, ordered by declaration
//     position rather than magnitude.
//   - Discrete: one of a declared list of numeric values.
//   - String: any string. String parameters cannot be sampled.
//
// Parameters are immutable once built. Values drawn from a distribution are
// mapped into the parameter domain by ConvertSamples: list-valued kinds use
// the draw as an index into their possible values.
package parameter
