package configspace

import (
	"fmt"

	"github.com/llm-d/llm-d-configspace/internal/logging"
	"github.com/llm-d/llm-d-configspace/internal/metrics"
	"github.com/llm-d/llm-d-configspace/pkg/binding"
	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/distribution"
)

// scratch returns a binding of values over the space, used to evaluate
// conditions and forbidden clauses.
func (cs *ConfigurationSpace) scratch(values []core.Datum) (*binding.Binding, error) {
	b := &binding.Binding{}
	if err := b.InitBinding(&cs.Context, values); err != nil {
		return nil, err
	}
	return b, nil
}

// activate walks the parameters in evaluation order and sets to Inactive
// every parameter whose condition does not evaluate to true. Callers hold
// cs.mu.
func (cs *ConfigurationSpace) activate(b *binding.Binding) error {
	for _, i := range cs.order {
		cond := cs.conditions[i]
		if cond == nil {
			continue
		}
		ok, err := matches(cond, b)
		if err != nil {
			return err
		}
		if !ok {
			if err := b.SetValue(i, core.Inactive()); err != nil {
				return err
			}
		}
	}
	return nil
}

// forbiddenBy returns the first forbidden clause matching b, or -1. Callers
// hold cs.mu.
func (cs *ConfigurationSpace) forbiddenBy(b *binding.Binding) (int, error) {
	for k, f := range cs.forbidden {
		hit, err := matches(f, b)
		if err != nil {
			return -1, err
		}
		if hit {
			return k, nil
		}
	}
	return -1, nil
}

// defaultBinding returns the default values with conditions applied. Callers
// hold cs.mu.
func (cs *ConfigurationSpace) defaultBinding() (*binding.Binding, error) {
	b, err := cs.scratch(cs.DefaultValues())
	if err != nil {
		return nil, err
	}
	if err := cs.activate(b); err != nil {
		return nil, err
	}
	return b, nil
}

// DefaultConfiguration returns the configuration made of the default value of
// every active parameter.
func (cs *ConfigurationSpace) DefaultConfiguration() (*Configuration, error) {
	if _, err := core.CheckType(cs, core.ObjectTypeConfigurationSpace); err != nil {
		return nil, err
	}
	cs.mu.RLock()
	b, err := cs.defaultBinding()
	cs.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return newConfiguration(cs, b.AllValues())
}

// Sample draws one valid configuration. A nil rng uses the generator of the
// space.
func (cs *ConfigurationSpace) Sample(rng *core.RNG) (*Configuration, error) {
	out, err := cs.Samples(rng, 1)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Samples draws n valid configurations. Candidates matching a forbidden
// clause are discarded; sampling fails with ErrSamplingUnsuccessful once
// n times the configured retry budget of candidates has been drawn.
func (cs *ConfigurationSpace) Samples(rng *core.RNG, n int) ([]*Configuration, error) {
	if _, err := core.CheckType(cs, core.ObjectTypeConfigurationSpace); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative sample count %d", core.ErrInvalidValue, n)
	}
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if rng == nil {
		rng = cs.rng
	}

	budget := n * core.Config().MaxSamplingRetries
	out := make([]*Configuration, 0, n)
	fail := func(err error) ([]*Configuration, error) {
		_ = core.ReleaseAll(out...)
		return nil, err
	}
	drawn, rejected := 0, 0
	for len(out) < n {
		if drawn >= budget {
			metrics.SamplingFailuresTotal.WithLabelValues("configuration_space").Inc()
			return fail(fmt.Errorf("%w: %d of %d configurations after %d candidates",
				core.ErrSamplingUnsuccessful, len(out), n, drawn))
		}
		want := n - len(out)
		rows, err := cs.draw(rng, want)
		if err != nil {
			return fail(err)
		}
		drawn += want
		for _, values := range rows {
			b, err := cs.scratch(values)
			if err != nil {
				return fail(err)
			}
			if err := cs.activate(b); err != nil {
				return fail(err)
			}
			k, err := cs.forbiddenBy(b)
			if err != nil {
				return fail(err)
			}
			if k >= 0 {
				rejected++
				continue
			}
			c, err := newConfiguration(cs, b.AllValues())
			if err != nil {
				return fail(err)
			}
			out = append(out, c)
		}
	}
	if rejected > 0 {
		logging.Logger().V(logging.DEBUG).Info("Rejected forbidden configurations",
			"space", cs.name,
			"rejected", rejected,
			"accepted", n)
	}
	return out, nil
}

// draw samples n rows of parameter values from the distributions of the
// space. Callers hold cs.mu.
func (cs *ConfigurationSpace) draw(rng *core.RNG, n int) ([][]core.Datum, error) {
	rows := make([][]core.Datum, n)
	for r := range rows {
		rows[r] = make([]core.Datum, cs.NumParameters())
	}
	for _, e := range cs.dists {
		converters := make([]distribution.SampleConverter, len(e.indices))
		for j, i := range e.indices {
			p, err := cs.Parameter(i)
			if err != nil {
				return nil, err
			}
			converters[j] = p
		}
		samples, err := distribution.ParametersSamples(e.dist, rng, converters, n)
		if err != nil {
			return nil, err
		}
		for r, sample := range samples {
			for j, i := range e.indices {
				rows[r][i] = sample[j]
			}
		}
	}
	return rows, nil
}

// CheckConfiguration verifies c belongs to the space and is valid: see
// CheckValues.
func (cs *ConfigurationSpace) CheckConfiguration(c *Configuration) error {
	if _, err := core.CheckType(c, core.ObjectTypeConfiguration); err != nil {
		return err
	}
	if c.space != cs {
		return fmt.Errorf("%w: configuration of space %q checked against %q",
			core.ErrInvalidConfiguration, c.space.name, cs.name)
	}
	return cs.CheckValues(c.AllValues())
}

// CheckValues verifies values form a valid configuration: a parameter is
// Inactive exactly when its condition does not hold, active values belong to
// their parameter domain and no forbidden clause matches.
func (cs *ConfigurationSpace) CheckValues(values []core.Datum) error {
	if len(values) != cs.NumParameters() {
		return fmt.Errorf("%w: %d values for %d parameters",
			core.ErrInvalidConfiguration, len(values), cs.NumParameters())
	}
	b, err := cs.scratch(values)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidConfiguration, err)
	}
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	for _, i := range cs.order {
		p, _ := cs.Parameter(i)
		active := true
		if cond := cs.conditions[i]; cond != nil {
			if active, err = matches(cond, b); err != nil {
				return err
			}
		}
		v, _ := b.Value(i)
		switch {
		case !active && !v.IsInactive():
			return fmt.Errorf("%w: parameter %q should be inactive", core.ErrInvalidConfiguration, p.Name())
		case active && v.IsInactive():
			return fmt.Errorf("%w: parameter %q should be active", core.ErrInvalidConfiguration, p.Name())
		case active:
			ok, err := p.CheckValue(v)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: value %s of parameter %q", core.ErrInvalidConfiguration, v, p.Name())
			}
		}
	}
	k, err := cs.forbiddenBy(b)
	if err != nil {
		return err
	}
	if k >= 0 {
		return fmt.Errorf("%w: matches forbidden clause %s", core.ErrInvalidConfiguration, cs.forbidden[k])
	}
	return nil
}
