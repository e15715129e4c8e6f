package distribution

import (
	"fmt"
	"slices"

	"github.com/llm-d/llm-d-configspace/pkg/core"
)

// Multivariate draws each component independently and concatenates the
// results. Its dimension is the sum of the component dimensions.
type Multivariate struct {
	common

	dists   []Distribution
	offsets []int
}

// NewMultivariate returns the product of dists. The distribution retains its
// components.
func NewMultivariate(dists []Distribution) (*Multivariate, error) {
	if len(dists) == 0 {
		return nil, fmt.Errorf("%w: multivariate of no distributions", core.ErrInvalidValue)
	}
	var (
		types   []core.NumericType
		bounds  []core.Interval
		offsets = make([]int, len(dists))
	)
	for i, d := range dists {
		if _, err := core.CheckType(d, core.ObjectTypeDistribution); err != nil {
			return nil, fmt.Errorf("multivariate component %d: %w", i, err)
		}
		offsets[i] = len(types)
		types = append(types, d.DataTypes()...)
		bounds = append(bounds, d.Bounds()...)
	}
	owned := make([]Distribution, 0, len(dists))
	for _, d := range dists {
		if err := core.Retain(d); err != nil {
			releaseDistributions(owned)
			return nil, err
		}
		owned = append(owned, d)
	}
	m := &Multivariate{dists: owned, offsets: offsets}
	m.init(m, KindMultivariate, types, bounds, m.fill, func() { releaseDistributions(m.dists) })
	return m, nil
}

// Distributions returns the components in dimension order.
func (m *Multivariate) Distributions() []Distribution {
	return slices.Clone(m.dists)
}

func (m *Multivariate) fill(rng *core.RNG, n int, dst [][]core.Numeric) {
	for i, d := range m.dists {
		off := m.offsets[i]
		d.shared().run(rng, n, dst[off:off+d.Dimension()])
	}
}

// Serialize writes the components in order.
func (m *Multivariate) Serialize(enc *core.Encoder) error {
	enc.Int32(int32(KindMultivariate))
	enc.Uint64(uint64(len(m.dists)))
	for _, d := range m.dists {
		if err := enc.Object(d); err != nil {
			return err
		}
	}
	return nil
}

func deserializeMultivariate(dec *core.Decoder) (Distribution, error) {
	dists, err := readComponents(dec)
	if err != nil {
		return nil, err
	}
	defer releaseDistributions(dists)
	return NewMultivariate(dists)
}
