package distribution

import (
	"fmt"

	"github.com/llm-d/llm-d-configspace/internal/metrics"
	"github.com/llm-d/llm-d-configspace/pkg/core"
)

// Kind identifies the concrete type of a Distribution.
type Kind int32

// enumeration of Kind
const (
	KindUniform Kind = iota
	KindNormal
	KindRoulette
	KindMixture
	KindMultivariate
)

func (k Kind) String() string {
	switch k {
	case KindUniform:
		return "uniform"
	case KindNormal:
		return "normal"
	case KindRoulette:
		return "roulette"
	case KindMixture:
		return "mixture"
	case KindMultivariate:
		return "multivariate"
	default:
		return fmt.Sprintf("distribution_kind(%d)", int32(k))
	}
}

// Scale selects the space a numeric distribution is defined in.
type Scale int32

// enumeration of Scale
const (
	ScaleLinear Scale = iota
	ScaleLogarithmic
)

func (s Scale) String() string {
	switch s {
	case ScaleLinear:
		return "linear"
	case ScaleLogarithmic:
		return "logarithmic"
	default:
		return fmt.Sprintf("scale(%d)", int32(s))
	}
}

// Valid reports whether s is a known scale.
func (s Scale) Valid() bool {
	return s == ScaleLinear || s == ScaleLogarithmic
}

// Distribution is implemented by every distribution kind of this package.
type Distribution interface {
	core.Serializable
	// Kind returns the concrete kind of the distribution.
	Kind() Kind
	// Dimension returns the number of values of one sample.
	Dimension() int
	// DataTypes returns the numeric type of each dimension.
	DataTypes() []core.NumericType
	// Bounds returns, for each dimension, the interval samples fall in.
	Bounds() []core.Interval
	// CheckOversampling reports, for each dimension, whether samples may
	// fall outside the corresponding target interval.
	CheckOversampling(targets []core.Interval) ([]bool, error)
	// Sample draws one sample.
	Sample(rng *core.RNG) ([]core.Numeric, error)
	// Samples draws n samples, each sample stored contiguously.
	Samples(rng *core.RNG, n int) ([]core.Numeric, error)
	// StridedSamples draws n samples into out, sample i starting at i*stride.
	StridedSamples(rng *core.RNG, n, stride int, out []core.Numeric) error
	// SoaSamples draws n samples into one column per dimension. Nil columns
	// are skipped.
	SoaSamples(rng *core.RNG, n int, out [][]core.Numeric) error

	shared() *common
}

// drawFunc fills dst[d][0:n] for every non-nil column d.
type drawFunc func(rng *core.RNG, n int, dst [][]core.Numeric)

// common holds the state and sampling entry points shared by all kinds.
type common struct {
	core.Base

	kind   Kind
	types  []core.NumericType
	bounds []core.Interval
	draw   drawFunc
}

func (c *common) init(self Distribution, kind Kind, types []core.NumericType, bounds []core.Interval, draw drawFunc, finalize func()) {
	c.kind = kind
	c.types = types
	c.bounds = bounds
	c.draw = draw
	c.Init(core.ObjectTypeDistribution, self, finalize)
}

func (c *common) shared() *common {
	return c
}

// Kind returns the concrete kind of the distribution.
func (c *common) Kind() Kind {
	return c.kind
}

// Dimension returns the number of values of one sample.
func (c *common) Dimension() int {
	return len(c.types)
}

// DataTypes returns the numeric type of each dimension.
func (c *common) DataTypes() []core.NumericType {
	return append([]core.NumericType(nil), c.types...)
}

// Bounds returns the interval each dimension samples from.
func (c *common) Bounds() []core.Interval {
	return append([]core.Interval(nil), c.bounds...)
}

// CheckOversampling reports which dimensions may produce values outside targets.
func (c *common) CheckOversampling(targets []core.Interval) ([]bool, error) {
	if _, err := core.Check(c); err != nil {
		return nil, err
	}
	if len(targets) != len(c.bounds) {
		return nil, fmt.Errorf("%w: %d target intervals for a distribution of dimension %d",
			core.ErrInvalidValue, len(targets), len(c.bounds))
	}
	res := make([]bool, len(targets))
	for i, b := range c.bounds {
		res[i] = !b.Subset(targets[i])
	}
	return res, nil
}

func (c *common) check(rng *core.RNG, n int) error {
	if _, err := core.Check(c); err != nil {
		return err
	}
	if _, err := core.CheckType(rng, core.ObjectTypeRng); err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("%w: negative sample count %d", core.ErrInvalidValue, n)
	}
	return nil
}

func (c *common) run(rng *core.RNG, n int, dst [][]core.Numeric) {
	if n == 0 {
		return
	}
	c.draw(rng, n, dst)
	metrics.SamplesTotal.WithLabelValues(c.kind.String()).Add(float64(n))
}

// Sample draws a single sample.
func (c *common) Sample(rng *core.RNG) ([]core.Numeric, error) {
	return c.Samples(rng, 1)
}

// Samples draws n samples; sample i occupies [i*dim, (i+1)*dim).
func (c *common) Samples(rng *core.RNG, n int) ([]core.Numeric, error) {
	dim := len(c.types)
	out := make([]core.Numeric, n*dim)
	if err := c.StridedSamples(rng, n, dim, out); err != nil {
		return nil, err
	}
	return out, nil
}

// StridedSamples draws n samples into out with sample i starting at
// out[i*stride]. Slots between samples are left untouched.
func (c *common) StridedSamples(rng *core.RNG, n, stride int, out []core.Numeric) error {
	if err := c.check(rng, n); err != nil {
		return err
	}
	dim := len(c.types)
	if stride < dim {
		return fmt.Errorf("%w: stride %d smaller than dimension %d", core.ErrInvalidValue, stride, dim)
	}
	if n > 0 && len(out) < (n-1)*stride+dim {
		return fmt.Errorf("%w: output of %d values too small for %d samples of stride %d",
			core.ErrInvalidValue, len(out), n, stride)
	}
	cols := newColumns(dim, n)
	c.run(rng, n, cols)
	for i := 0; i < n; i++ {
		for d := 0; d < dim; d++ {
			out[i*stride+d] = cols[d][i]
		}
	}
	return nil
}

// SoaSamples draws n samples into out[d][0:n] for each dimension d. Nil
// columns are skipped.
func (c *common) SoaSamples(rng *core.RNG, n int, out [][]core.Numeric) error {
	if err := c.check(rng, n); err != nil {
		return err
	}
	if len(out) != len(c.types) {
		return fmt.Errorf("%w: %d columns for a distribution of dimension %d",
			core.ErrInvalidValue, len(out), len(c.types))
	}
	for d, col := range out {
		if col != nil && len(col) < n {
			return fmt.Errorf("%w: column %d holds %d values, need %d", core.ErrInvalidValue, d, len(col), n)
		}
	}
	c.run(rng, n, out)
	return nil
}

func newColumns(dim, n int) [][]core.Numeric {
	cols := make([][]core.Numeric, dim)
	for d := range cols {
		cols[d] = make([]core.Numeric, n)
	}
	return cols
}

// checkNumeric validates the numeric type and scale shared by Uniform and Normal.
func checkNumeric(typ core.NumericType, scale Scale) error {
	if !typ.Valid() {
		return fmt.Errorf("%w: numeric type %s", core.ErrInvalidType, typ)
	}
	if !scale.Valid() {
		return fmt.Errorf("%w: %s", core.ErrInvalidScale, scale)
	}
	return nil
}

func toType(typ core.NumericType, ns ...*core.Numeric) error {
	for _, n := range ns {
		v, err := n.Convert(typ)
		if err != nil {
			return err
		}
		*n = v
	}
	return nil
}

func releaseDistributions(dists []Distribution) {
	for _, d := range dists {
		_ = core.Release(d)
	}
}
