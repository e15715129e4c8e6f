package tuner

import (
	"fmt"
	"slices"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/llm-d/llm-d-configspace/internal/logging"
	"github.com/llm-d/llm-d-configspace/internal/metrics"
	"github.com/llm-d/llm-d-configspace/pkg/configspace"
	"github.com/llm-d/llm-d-configspace/pkg/core"
)

// Tuner is the ask/tell interface of configuration tuners.
type Tuner interface {
	core.Object
	Name() string
	ConfigurationSpace() *configspace.ConfigurationSpace
	ObjectiveSpace() *ObjectiveSpace
	Ask(n int) ([]*configspace.Configuration, error)
	Tell(evals []*Evaluation) error
	History() []*Evaluation
	Optimums() []*Evaluation
	Suggest() (*configspace.Configuration, error)
}

// RandomTuner proposes configurations sampled from the configuration space
// and keeps every evaluation it is told, along with the Pareto front of the
// successful ones.
type RandomTuner struct {
	core.Base

	name string
	cs   *configspace.ConfigurationSpace
	os   *ObjectiveSpace

	mu      sync.Mutex
	history []*Evaluation
	told    sets.Set[core.Handle]
	optima  []*Evaluation
}

var _ Tuner = (*RandomTuner)(nil)

// NewRandomTuner returns a tuner searching cs for configurations optimizing
// the objectives of os.
func NewRandomTuner(name string, cs *configspace.ConfigurationSpace, os *ObjectiveSpace) (*RandomTuner, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty tuner name", core.ErrInvalidName)
	}
	if _, err := core.CheckType(cs, core.ObjectTypeConfigurationSpace); err != nil {
		return nil, err
	}
	if _, err := core.CheckType(os, core.ObjectTypeObjectiveSpace); err != nil {
		return nil, err
	}
	if err := core.Retain(cs); err != nil {
		return nil, err
	}
	if err := core.Retain(os); err != nil {
		_ = core.Release(cs)
		return nil, err
	}
	t := &RandomTuner{name: name, cs: cs, os: os, told: sets.New[core.Handle]()}
	t.Init(core.ObjectTypeTuner, t, func() {
		_ = core.ReleaseAll(t.history...)
		t.history, t.optima, t.told = nil, nil, nil
		_ = core.Release(t.os)
		_ = core.Release(t.cs)
		metrics.ParetoFrontSize.DeleteLabelValues(t.name)
	})
	logging.Logger().V(logging.DEBUG).Info("Created random tuner",
		"name", name,
		"configurationSpace", cs.Name(),
		"objectiveSpace", os.Name())
	return t, nil
}

// Name returns the name of the tuner.
func (t *RandomTuner) Name() string {
	return t.name
}

// ConfigurationSpace returns the searched configuration space.
func (t *RandomTuner) ConfigurationSpace() *configspace.ConfigurationSpace {
	return t.cs
}

// ObjectiveSpace returns the objective space evaluations are told in.
func (t *RandomTuner) ObjectiveSpace() *ObjectiveSpace {
	return t.os
}

// Ask returns n configurations to evaluate. The caller owns them.
func (t *RandomTuner) Ask(n int) ([]*configspace.Configuration, error) {
	if _, err := core.Check(t); err != nil {
		return nil, err
	}
	return t.cs.Samples(nil, n)
}

// Tell records evals. Either every evaluation is recorded or none: each must
// belong to the objective space of the tuner, evaluate a configuration of its
// configuration space and not have been told before.
func (t *RandomTuner) Tell(evals []*Evaluation) error {
	if _, err := core.Check(t); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	batch := sets.New[core.Handle]()
	for i, ev := range evals {
		if _, err := core.CheckType(ev, core.ObjectTypeEvaluation); err != nil {
			return err
		}
		if ev.space != t.os {
			return fmt.Errorf("%w: evaluation %d belongs to objective space %q", core.ErrInvalidEvaluation, i, ev.space.Name())
		}
		if ev.configuration.ConfigurationSpace() != t.cs {
			return fmt.Errorf("%w: evaluation %d evaluates a configuration of %q",
				core.ErrInvalidEvaluation, i, ev.configuration.ConfigurationSpace().Name())
		}
		if t.told.Has(ev.Handle()) || batch.Has(ev.Handle()) {
			return fmt.Errorf("%w: evaluation %d was already told", core.ErrInvalidEvaluation, i)
		}
		batch.Insert(ev.Handle())
		if ev.result == ResultSuccess {
			if _, err := ev.numericObjectives(); err != nil {
				return err
			}
		}
	}

	for _, ev := range evals {
		if err := core.Retain(ev); err != nil {
			return err
		}
		t.history = append(t.history, ev)
		t.told.Insert(ev.Handle())
		metrics.EvaluationsTotal.WithLabelValues(t.name, ev.result.String()).Inc()
		if ev.result != ResultSuccess {
			continue
		}
		if err := t.updateFront(ev); err != nil {
			return err
		}
	}
	metrics.ParetoFrontSize.WithLabelValues(t.name).Set(float64(len(t.optima)))
	logging.Logger().V(logging.DEBUG).Info("Told evaluations",
		"tuner", t.name,
		"count", len(evals),
		"history", len(t.history),
		"optimums", len(t.optima))
	return nil
}

// updateFront adds ev to the Pareto front unless an optimum is at least as
// good, dropping the optima it dominates.
func (t *RandomTuner) updateFront(ev *Evaluation) error {
	for _, opt := range t.optima {
		c, err := opt.Compare(ev)
		if err != nil {
			return err
		}
		if c == Better || c == Equivalent {
			return nil
		}
	}
	kept := t.optima[:0]
	for _, opt := range t.optima {
		c, err := ev.Compare(opt)
		if err != nil {
			return err
		}
		if c != Better {
			kept = append(kept, opt)
		}
	}
	t.optima = append(kept, ev)
	return nil
}

// History returns every evaluation told so far, in order. The tuner keeps
// ownership of them.
func (t *RandomTuner) History() []*Evaluation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.history)
}

// Optimums returns the successful evaluations no other evaluation
// dominates. The tuner keeps ownership of them.
func (t *RandomTuner) Optimums() []*Evaluation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.optima)
}

// Suggest returns the configuration of a randomly chosen optimum, or a fresh
// sample while no optimum is known. The caller owns the returned reference.
func (t *RandomTuner) Suggest() (*configspace.Configuration, error) {
	if _, err := core.Check(t); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.optima) == 0 {
		return t.cs.Sample(nil)
	}
	opt := t.optima[t.cs.RNG().UniformInt(uint64(len(t.optima)))]
	if err := core.Retain(opt.configuration); err != nil {
		return nil, err
	}
	return opt.configuration, nil
}

// Serialize writes the name, the configuration space, the objective space,
// every evaluated configuration once and the history. The Pareto front is
// rebuilt when reading.
func (t *RandomTuner) Serialize(enc *core.Encoder) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	enc.String(t.name)
	if err := enc.Object(t.cs); err != nil {
		return err
	}
	if err := enc.Object(t.os); err != nil {
		return err
	}
	var configs []*configspace.Configuration
	seen := make(map[core.Handle]bool, len(t.history))
	for _, ev := range t.history {
		if h := ev.configuration.Handle(); !seen[h] {
			seen[h] = true
			configs = append(configs, ev.configuration)
		}
	}
	enc.Uint64(uint64(len(configs)))
	for _, c := range configs {
		if err := enc.Object(c); err != nil {
			return err
		}
	}
	enc.Uint64(uint64(len(t.history)))
	for _, ev := range t.history {
		if err := enc.Object(ev); err != nil {
			return err
		}
	}
	return nil
}

func deserializeRandomTuner(dec *core.Decoder) (core.Object, error) {
	restore, err := dec.EnsureHandleMap()
	if err != nil {
		return nil, err
	}
	defer restore()

	name, err := dec.String()
	if err != nil {
		return nil, err
	}
	csObj, err := dec.ExpectObject(core.ObjectTypeConfigurationSpace)
	if err != nil {
		return nil, err
	}
	defer func() { _ = core.Release(csObj) }()
	osObj, err := dec.ExpectObject(core.ObjectTypeObjectiveSpace)
	if err != nil {
		return nil, err
	}
	defer func() { _ = core.Release(osObj) }()
	t, err := NewRandomTuner(name, csObj.(*configspace.ConfigurationSpace), osObj.(*ObjectiveSpace))
	if err != nil {
		return nil, err
	}
	fail := func(err error) (core.Object, error) {
		_ = core.Release(t)
		return nil, err
	}
	nconfigs, err := dec.Length()
	if err != nil {
		return fail(err)
	}
	configs := make([]core.Object, 0, nconfigs)
	defer func() { _ = core.ReleaseAll(configs...) }()
	for range nconfigs {
		obj, err := dec.ExpectObject(core.ObjectTypeConfiguration)
		if err != nil {
			return fail(err)
		}
		configs = append(configs, obj)
	}
	n, err := dec.Length()
	if err != nil {
		return fail(err)
	}
	for range n {
		obj, err := dec.ExpectObject(core.ObjectTypeEvaluation)
		if err != nil {
			return fail(err)
		}
		err = t.Tell([]*Evaluation{obj.(*Evaluation)})
		_ = core.Release(obj)
		if err != nil {
			return fail(err)
		}
	}
	return t, nil
}

func init() {
	core.RegisterDeserializer(core.ObjectTypeObjectiveSpace, deserializeObjectiveSpace)
	core.RegisterDeserializer(core.ObjectTypeEvaluation, deserializeEvaluation)
	core.RegisterDeserializer(core.ObjectTypeTuner, deserializeRandomTuner)
}
