package core

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// RNG is a seedable random number generator object. It wraps a PCG source
// so its exact state can be serialized.
type RNG struct {
	Base

	mu  sync.Mutex
	src *rand.PCG
	r   *rand.Rand
}

// NewRNG returns a generator seeded from the runtime seed sequence.
func NewRNG() (*RNG, error) {
	return NewRNGWithSeed(nextSeed())
}

// NewRNGWithSeed returns a generator seeded with seed.
func NewRNGWithSeed(seed uint64) (*RNG, error) {
	src := rand.NewPCG(seed, seed^0xda3e39cb94b95bdb)
	g := &RNG{src: src, r: rand.New(src)}
	g.Init(ObjectTypeRng, g, nil)
	return g, nil
}

// Seed resets the generator state from seed.
func (g *RNG) Seed(seed uint64) error {
	if _, err := CheckType(g, ObjectTypeRng); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.src.Seed(seed, seed^0xda3e39cb94b95bdb)
	return nil
}

// Uniform returns a float in [0, 1).
func (g *RNG) Uniform() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.Float64()
}

// UniformInt returns an integer in [0, n). n must be positive.
func (g *RNG) UniformInt(n uint64) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.Uint64N(n)
}

// Normal returns a standard normal variate.
func (g *RNG) Normal() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.NormFloat64()
}

// Uint64 returns 64 random bits.
func (g *RNG) Uint64() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.src.Uint64()
}

// Source exposes the generator as a rand.Source, e.g. for gonum
// distributions. Draws through the source share the generator state.
func (g *RNG) Source() rand.Source {
	return lockedSource{g}
}

type lockedSource struct {
	g *RNG
}

func (s lockedSource) Uint64() uint64 {
	return s.g.Uint64()
}

// Serialize writes the generator state.
func (g *RNG) Serialize(enc *Encoder) error {
	g.mu.Lock()
	state, err := g.src.MarshalBinary()
	g.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSystem, err)
	}
	enc.Blob(state)
	return nil
}

func deserializeRNG(dec *Decoder) (Object, error) {
	state, err := dec.Blob()
	if err != nil {
		return nil, err
	}
	g, _ := NewRNGWithSeed(0)
	if err := g.src.UnmarshalBinary(state); err != nil {
		_ = Release(g)
		return nil, fmt.Errorf("%w: rng state: %v", ErrInvalidValue, err)
	}
	return g, nil
}

func init() {
	RegisterDeserializer(ObjectTypeRng, deserializeRNG)
}
