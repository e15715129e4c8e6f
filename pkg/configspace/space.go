package configspace

import (
	"fmt"
	"slices"
	"sync"

	"github.com/llm-d/llm-d-configspace/internal/logging"
	"github.com/llm-d/llm-d-configspace/pkg/binding"
	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/distribution"
	"github.com/llm-d/llm-d-configspace/pkg/expression"
	"github.com/llm-d/llm-d-configspace/pkg/parameter"
)

// distEntry assigns a distribution to parameters: dimension j of dist draws
// parameter indices[j].
type distEntry struct {
	dist    distribution.Distribution
	indices []int
}

// ConfigurationSpace is a context of parameters with sampling distributions,
// activation conditions and forbidden clauses.
type ConfigurationSpace struct {
	core.Base
	binding.Context

	name string

	mu         sync.RWMutex
	conditions []*expression.Expression
	parents    [][]int
	order      []int
	forbidden  []*expression.Expression
	dists      []*distEntry
	rng        *core.RNG
}

// NewConfigurationSpace returns a space over params, each sampled from its
// default distribution. String parameters cannot be sampled and are rejected.
func NewConfigurationSpace(name string, params []parameter.Parameter) (*ConfigurationSpace, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty configuration space name", core.ErrInvalidName)
	}
	for _, p := range params {
		if _, err := core.CheckType(p, core.ObjectTypeParameter); err != nil {
			return nil, err
		}
		if p.Kind() == parameter.KindString {
			return nil, fmt.Errorf("%w: string parameter %q cannot be part of a configuration space",
				core.ErrInvalidParameter, p.Name())
		}
	}
	cs := &ConfigurationSpace{name: name}
	cs.InitContext(cs)
	if err := cs.Context.AddParameters(params); err != nil {
		return nil, err
	}

	n := len(params)
	cs.conditions = make([]*expression.Expression, n)
	cs.parents = make([][]int, n)
	cs.order = make([]int, n)
	for i := range cs.order {
		cs.order[i] = i
	}
	for i, p := range params {
		d, err := p.DefaultDistribution()
		if err != nil {
			cs.releaseAll()
			return nil, err
		}
		cs.dists = append(cs.dists, &distEntry{dist: d, indices: []int{i}})
	}
	rng, err := core.NewRNG()
	if err != nil {
		cs.releaseAll()
		return nil, err
	}
	cs.rng = rng

	cs.Init(core.ObjectTypeConfigurationSpace, cs, cs.releaseAll)
	logging.Logger().V(logging.DEBUG).Info("Created configuration space",
		"name", name,
		"parameters", n)
	return cs, nil
}

func (cs *ConfigurationSpace) releaseAll() {
	_ = core.ReleaseAll(slices.DeleteFunc(cs.conditions, func(e *expression.Expression) bool { return e == nil })...)
	_ = core.ReleaseAll(cs.forbidden...)
	for _, e := range cs.dists {
		_ = core.Release(e.dist)
	}
	if cs.rng != nil {
		_ = core.Release(cs.rng)
	}
	cs.conditions, cs.forbidden, cs.dists, cs.rng = nil, nil, nil, nil
	cs.ReleaseParameters()
}

// AddParameter is not supported: the parameters of a space are fixed at
// creation.
func (cs *ConfigurationSpace) AddParameter(parameter.Parameter) error {
	return fmt.Errorf("%w: parameters of a configuration space are fixed", core.ErrUnsupportedOperation)
}

// AddParameters is not supported, see AddParameter.
func (cs *ConfigurationSpace) AddParameters([]parameter.Parameter) error {
	return fmt.Errorf("%w: parameters of a configuration space are fixed", core.ErrUnsupportedOperation)
}

// Name returns the name of the space.
func (cs *ConfigurationSpace) Name() string {
	return cs.name
}

// RNG returns the generator used when sampling without an explicit one.
func (cs *ConfigurationSpace) RNG() *core.RNG {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.rng
}

// SetRNG replaces the default generator of the space.
func (cs *ConfigurationSpace) SetRNG(rng *core.RNG) error {
	if _, err := core.CheckType(rng, core.ObjectTypeRng); err != nil {
		return err
	}
	if err := core.Retain(rng); err != nil {
		return err
	}
	cs.mu.Lock()
	old := cs.rng
	cs.rng = rng
	cs.mu.Unlock()
	return core.Release(old)
}

func (cs *ConfigurationSpace) checkIndex(i int) error {
	if i < 0 || i >= cs.NumParameters() {
		return fmt.Errorf("%w: parameter index %d of %d", core.ErrOutOfBounds, i, cs.NumParameters())
	}
	return nil
}

// Condition returns the condition of parameter i, nil when it is always
// active.
func (cs *ConfigurationSpace) Condition(i int) (*expression.Expression, error) {
	if err := cs.checkIndex(i); err != nil {
		return nil, err
	}
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.conditions[i], nil
}

// Conditions returns the condition of every parameter, in index order.
func (cs *ConfigurationSpace) Conditions() []*expression.Expression {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return slices.Clone(cs.conditions)
}

// SetCondition makes parameter i active only when e evaluates to true. A nil
// e removes the condition. Conditions may not form a cycle.
func (cs *ConfigurationSpace) SetCondition(i int, e *expression.Expression) error {
	if err := cs.checkIndex(i); err != nil {
		return err
	}
	var parents []int
	if e != nil {
		if _, err := core.CheckType(e, core.ObjectTypeExpression); err != nil {
			return err
		}
		if err := e.CheckContext(&cs.Context); err != nil {
			return err
		}
		params, err := e.Parameters()
		if err != nil {
			return err
		}
		if parents, err = cs.ParameterIndexes(params); err != nil {
			return err
		}
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	next := slices.Clone(cs.parents)
	next[i] = parents
	order, ok := topologicalOrder(next)
	if !ok {
		p, _ := cs.Parameter(i)
		return fmt.Errorf("%w: condition of %q creates a cycle", core.ErrInvalidConfiguration, p.Name())
	}
	if e != nil {
		if err := core.Retain(e); err != nil {
			return err
		}
	}
	if old := cs.conditions[i]; old != nil {
		_ = core.Release(old)
	}
	cs.conditions[i] = e
	cs.parents = next
	cs.order = order
	logging.Logger().V(logging.TRACE).Info("Set condition",
		"space", cs.name,
		"parameter", i,
		"order", order)
	return nil
}

// topologicalOrder sorts parameter indices so that every parameter comes
// after the ones its condition reads, smallest index first among ready ones.
func topologicalOrder(parents [][]int) ([]int, bool) {
	n := len(parents)
	pending := make([]int, n)
	children := make([][]int, n)
	for i, ps := range parents {
		pending[i] = len(ps)
		for _, p := range ps {
			children[p] = append(children[p], i)
		}
	}
	var ready []int
	for i := range pending {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}
	order := make([]int, 0, n)
	for len(ready) > 0 {
		slices.Sort(ready)
		i := ready[0]
		ready = ready[1:]
		order = append(order, i)
		for _, c := range children[i] {
			pending[c]--
			if pending[c] == 0 {
				ready = append(ready, c)
			}
		}
	}
	return order, len(order) == n
}

// EvaluationOrder returns the parameter indices in the order conditions are
// evaluated.
func (cs *ConfigurationSpace) EvaluationOrder() []int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return slices.Clone(cs.order)
}

// ForbiddenClauses returns the forbidden clauses of the space.
func (cs *ConfigurationSpace) ForbiddenClauses() []*expression.Expression {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return slices.Clone(cs.forbidden)
}

// AddForbiddenClause excludes every configuration for which e evaluates to
// true. The default configuration must not be excluded.
func (cs *ConfigurationSpace) AddForbiddenClause(e *expression.Expression) error {
	if _, err := core.CheckType(e, core.ObjectTypeExpression); err != nil {
		return err
	}
	if err := e.CheckContext(&cs.Context); err != nil {
		return err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	b, err := cs.defaultBinding()
	if err != nil {
		return err
	}
	hit, err := matches(e, b)
	if err != nil {
		return err
	}
	if hit {
		return fmt.Errorf("%w: forbidden clause %s excludes the default configuration",
			core.ErrInvalidConfiguration, e)
	}
	if err := core.Retain(e); err != nil {
		return err
	}
	cs.forbidden = append(cs.forbidden, e)
	return nil
}

// AddForbiddenClauses adds each of es in turn, stopping at the first failure.
func (cs *ConfigurationSpace) AddForbiddenClauses(es []*expression.Expression) error {
	for _, e := range es {
		if err := cs.AddForbiddenClause(e); err != nil {
			return err
		}
	}
	return nil
}

// matches reports whether e evaluates to true. Inactive results never match.
func matches(e *expression.Expression, b *binding.Binding) (bool, error) {
	v, err := e.Eval(b)
	if err != nil {
		return false, err
	}
	return v.Type == core.DataTypeBoolean && v.Bool(), nil
}

// Distribution returns the distribution drawing parameter i and the dimension
// of that distribution assigned to it.
func (cs *ConfigurationSpace) Distribution(i int) (distribution.Distribution, int, error) {
	if err := cs.checkIndex(i); err != nil {
		return nil, 0, err
	}
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	for _, e := range cs.dists {
		if j := slices.Index(e.indices, i); j >= 0 {
			return e.dist, j, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: parameter %d has no distribution", core.ErrInvalidParameter, i)
}

// SetDistribution makes d draw the parameters at indices, dimension j drawing
// indices[j]. Parameters sharing a previous distribution with one of indices
// fall back to their default distribution.
func (cs *ConfigurationSpace) SetDistribution(d distribution.Distribution, indices []int) error {
	if _, err := core.CheckType(d, core.ObjectTypeDistribution); err != nil {
		return err
	}
	if len(indices) != d.Dimension() {
		return fmt.Errorf("%w: %d indices for a distribution of dimension %d",
			core.ErrInvalidValue, len(indices), d.Dimension())
	}
	for k, i := range indices {
		if err := cs.checkIndex(i); err != nil {
			return err
		}
		if slices.Contains(indices[:k], i) {
			return fmt.Errorf("%w: parameter index %d given twice", core.ErrInvalidValue, i)
		}
	}
	if err := core.Retain(d); err != nil {
		return err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	var (
		kept    []*distEntry
		dropped []distribution.Distribution
		orphans []int
	)
	for _, e := range cs.dists {
		overlap := false
		for _, i := range e.indices {
			if slices.Contains(indices, i) {
				overlap = true
				break
			}
		}
		if !overlap {
			kept = append(kept, e)
			continue
		}
		dropped = append(dropped, e.dist)
		for _, i := range e.indices {
			if !slices.Contains(indices, i) {
				orphans = append(orphans, i)
			}
		}
	}
	var fresh []*distEntry
	for _, i := range orphans {
		p, _ := cs.Parameter(i)
		def, err := p.DefaultDistribution()
		if err != nil {
			for _, e := range fresh {
				_ = core.Release(e.dist)
			}
			_ = core.Release(d)
			return err
		}
		fresh = append(fresh, &distEntry{dist: def, indices: []int{i}})
	}
	kept = append(kept, fresh...)
	cs.dists = append(kept, &distEntry{dist: d, indices: slices.Clone(indices)})
	for _, old := range dropped {
		_ = core.Release(old)
	}
	return nil
}
