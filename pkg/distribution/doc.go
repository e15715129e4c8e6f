// Package distribution provides the probability distributions used to sample
// parameter values.
//
// Five kinds exist. Uniform and Normal draw one numeric dimension, with an
// optional logarithmic scale and quantization grid. Roulette draws an index
// with probability proportional to a table of areas. Mixture picks one of
// several distributions of identical shape according to normalized weights.
// Multivariate concatenates independent draws of its components.
//
// Every distribution can fill its samples in three layouts: array of
// structs (Samples), strided (StridedSamples) to interleave values into a
// larger record, and structure of arrays (SoaSamples) where any destination
// column may be nil to skip it.
//
// ParametersSample and ParametersSamples convert raw draws into parameter
// values. When the distribution bounds exceed a parameter domain, draws are
// rejected and re-sampled in growing batches, up to the oversampling factor
// cap configured in pkg/config.
package distribution
