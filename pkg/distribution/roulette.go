package distribution

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/llm-d/llm-d-configspace/pkg/core"
)

// Roulette draws an integer index in [0, n) with probability proportional to
// the area of that index. Areas are kept normalized to sum to one.
type Roulette struct {
	common

	mu    sync.RWMutex
	areas []float64
}

// normalize returns a normalized copy of weights. Weights must be finite and
// non-negative with a positive sum.
func normalize(weights []float64) ([]float64, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: no weights", core.ErrInvalidValue)
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight %d is %v", core.ErrInvalidValue, i, w)
		}
	}
	sum := floats.Sum(weights)
	if sum <= 0 || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("%w: weights sum to %v", core.ErrInvalidValue, sum)
	}
	out := make([]float64, len(weights))
	floats.ScaleTo(out, 1/sum, weights)
	return out, nil
}

// NewRoulette returns a roulette distribution over len(areas) indexes.
func NewRoulette(areas []float64) (*Roulette, error) {
	norm, err := normalize(areas)
	if err != nil {
		return nil, err
	}
	r := &Roulette{areas: norm}
	bounds := core.Interval{
		Type:          core.NumericTypeInt,
		Lower:         core.IntNumeric(0),
		Upper:         core.IntNumeric(int64(len(norm))),
		LowerIncluded: true,
	}
	r.init(r, KindRoulette, []core.NumericType{core.NumericTypeInt}, []core.Interval{bounds}, r.fill, nil)
	return r, nil
}

// Areas returns the normalized areas.
func (r *Roulette) Areas() []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]float64(nil), r.areas...)
}

// SetAreas replaces the areas. Exactly as many areas as the distribution was
// built with must be given.
func (r *Roulette) SetAreas(areas []float64) error {
	if _, err := core.Check(r); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(areas) != len(r.areas) {
		return fmt.Errorf("%w: %d areas given, roulette has %d", core.ErrInvalidValue, len(areas), len(r.areas))
	}
	norm, err := normalize(areas)
	if err != nil {
		return err
	}
	r.areas = norm
	return nil
}

func (r *Roulette) fill(rng *core.RNG, n int, dst [][]core.Numeric) {
	r.mu.RLock()
	cat := distuv.NewCategorical(r.areas, rng.Source())
	r.mu.RUnlock()
	col := dst[0]
	for i := 0; i < n; i++ {
		v := int64(cat.Rand())
		if col != nil {
			col[i] = core.IntNumeric(v)
		}
	}
}

// Serialize writes the areas.
func (r *Roulette) Serialize(enc *core.Encoder) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enc.Int32(int32(KindRoulette))
	enc.Uint64(uint64(len(r.areas)))
	for _, a := range r.areas {
		enc.Float64(a)
	}
	return nil
}

func readFloats(dec *core.Decoder) ([]float64, error) {
	n, err := dec.Length()
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		if out[i], err = dec.Float64(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func deserializeRoulette(dec *core.Decoder) (Distribution, error) {
	areas, err := readFloats(dec)
	if err != nil {
		return nil, err
	}
	return NewRoulette(areas)
}
