package distribution

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/llm-d/llm-d-configspace/pkg/core"
)

// Mixture picks one of several distributions of identical shape with
// probability given by normalized weights, and draws from it.
type Mixture struct {
	common

	dists   []Distribution
	weights []float64
}

// NewMixture returns a mixture of dists. Every distribution must have the
// same dimension and data types. The mixture retains its components.
func NewMixture(dists []Distribution, weights []float64) (*Mixture, error) {
	if len(dists) == 0 {
		return nil, fmt.Errorf("%w: mixture of no distributions", core.ErrInvalidValue)
	}
	if len(weights) != len(dists) {
		return nil, fmt.Errorf("%w: %d weights for %d distributions", core.ErrInvalidValue, len(weights), len(dists))
	}
	for i, d := range dists {
		if _, err := core.CheckType(d, core.ObjectTypeDistribution); err != nil {
			return nil, fmt.Errorf("mixture component %d: %w", i, err)
		}
	}
	types := dists[0].DataTypes()
	for i, d := range dists[1:] {
		if !slices.Equal(types, d.DataTypes()) {
			return nil, fmt.Errorf("%w: mixture component %d has data types %v, expected %v",
				core.ErrInvalidDistribution, i+1, d.DataTypes(), types)
		}
	}
	norm, err := normalize(weights)
	if err != nil {
		return nil, err
	}
	bounds := dists[0].Bounds()
	for _, d := range dists[1:] {
		for j, b := range d.Bounds() {
			if bounds[j], err = bounds[j].Union(b); err != nil {
				return nil, err
			}
		}
	}
	owned := make([]Distribution, 0, len(dists))
	for _, d := range dists {
		if err := core.Retain(d); err != nil {
			releaseDistributions(owned)
			return nil, err
		}
		owned = append(owned, d)
	}
	m := &Mixture{dists: owned, weights: norm}
	m.init(m, KindMixture, types, bounds, m.fill, func() { releaseDistributions(m.dists) })
	return m, nil
}

// Distributions returns the components of the mixture.
func (m *Mixture) Distributions() []Distribution {
	return slices.Clone(m.dists)
}

// Weights returns the normalized weights of the components.
func (m *Mixture) Weights() []float64 {
	return slices.Clone(m.weights)
}

// fill picks a component for every sample, then draws each component's
// share in one batch and scatters it back.
func (m *Mixture) fill(rng *core.RNG, n int, dst [][]core.Numeric) {
	cat := distuv.NewCategorical(m.weights, rng.Source())
	picks := make([][]int, len(m.dists))
	for i := 0; i < n; i++ {
		k := int(cat.Rand())
		picks[k] = append(picks[k], i)
	}
	dim := len(m.types)
	for k, rows := range picks {
		if len(rows) == 0 {
			continue
		}
		tmp := make([][]core.Numeric, dim)
		for d := range tmp {
			if dst[d] != nil {
				tmp[d] = make([]core.Numeric, len(rows))
			}
		}
		m.dists[k].shared().run(rng, len(rows), tmp)
		for d, col := range tmp {
			if col == nil {
				continue
			}
			for j, row := range rows {
				dst[d][row] = col[j]
			}
		}
	}
}

// Serialize writes the components followed by the weights.
func (m *Mixture) Serialize(enc *core.Encoder) error {
	enc.Int32(int32(KindMixture))
	enc.Uint64(uint64(len(m.dists)))
	for _, d := range m.dists {
		if err := enc.Object(d); err != nil {
			return err
		}
	}
	for _, w := range m.weights {
		enc.Float64(w)
	}
	return nil
}

func readComponents(dec *core.Decoder) ([]Distribution, error) {
	n, err := dec.Length()
	if err != nil {
		return nil, err
	}
	dists := make([]Distribution, 0, n)
	for range n {
		obj, err := dec.ExpectObject(core.ObjectTypeDistribution)
		if err != nil {
			releaseDistributions(dists)
			return nil, err
		}
		dists = append(dists, obj.(Distribution))
	}
	return dists, nil
}

func deserializeMixture(dec *core.Decoder) (Distribution, error) {
	dists, err := readComponents(dec)
	if err != nil {
		return nil, err
	}
	defer releaseDistributions(dists)
	weights := make([]float64, len(dists))
	for i := range weights {
		if weights[i], err = dec.Float64(); err != nil {
			return nil, err
		}
	}
	return NewMixture(dists, weights)
}
