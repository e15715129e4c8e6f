package core

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/llm-d/llm-d-configspace/internal/logging"
	"github.com/llm-d/llm-d-configspace/pkg/config"
)

// Version of the library and of its serialization format.
const Version = "0.4.0"

// runtime is the process-wide state established by Init.
type runtime struct {
	mu          sync.Mutex
	initialized bool
	cfg         *config.Config
	seeds       *rand.Rand
}

var rt = &runtime{}

// Init establishes the process-wide state of the library from cfg (nil
// means defaults). Calling it again before Fini is a no-op.
func Init(cfg *config.Config) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.initialized {
		return nil
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	verbosity, _ := logging.ParseLevel(cfg.LogLevel)
	if verbosity > logging.INFO {
		l, err := logging.NewLogger(verbosity)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSystem, err)
		}
		logging.SetLogger(l)
	}
	rt.cfg = cfg
	rt.seeds = newSeedSequence(cfg.Seed)
	rt.initialized = true
	logging.Logger().V(logging.DEBUG).Info("Initialized configspace runtime",
		"version", Version,
		"seed", cfg.Seed)
	return nil
}

// Fini tears down the state established by Init.
func Fini() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.initialized {
		return nil
	}
	rt.initialized = false
	rt.cfg = nil
	rt.seeds = nil
	logging.Logger().V(logging.DEBUG).Info("Finalized configspace runtime")
	return nil
}

func newSeedSequence(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// Config returns the active configuration, or defaults before Init.
func Config() *config.Config {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.cfg == nil {
		return config.Default()
	}
	return rt.cfg
}

// nextSeed returns the next seed of the runtime seed sequence.
func nextSeed() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.seeds == nil {
		return rand.Uint64()
	}
	return rt.seeds.Uint64()
}
