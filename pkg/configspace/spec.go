package configspace

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"

	"github.com/llm-d/llm-d-configspace/api/v1alpha1"
	"github.com/llm-d/llm-d-configspace/internal/logging"
	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/distribution"
	"github.com/llm-d/llm-d-configspace/pkg/expression"
	"github.com/llm-d/llm-d-configspace/pkg/parameter"
)

// LoadYAML builds a configuration space from a YAML document.
func LoadYAML(data []byte) (*ConfigurationSpace, error) {
	var spec v1alpha1.ConfigurationSpaceSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: parsing configuration space document: %v", core.ErrInvalidValue, err)
	}
	return FromSpec(&spec)
}

// LoadYAMLFile builds a configuration space from the YAML document at path.
func LoadYAMLFile(path string) (*ConfigurationSpace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSystem, err)
	}
	return LoadYAML(data)
}

// FromSpec validates spec and builds the configuration space it describes.
func FromSpec(spec *v1alpha1.ConfigurationSpaceSpec) (*ConfigurationSpace, error) {
	if errs := spec.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidValue, errs.ToAggregate())
	}

	params := make([]parameter.Parameter, 0, len(spec.Parameters))
	defer func() { _ = core.ReleaseAll(params...) }()
	for i := range spec.Parameters {
		p, err := parameterFromSpec(&spec.Parameters[i])
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", spec.Parameters[i].Name, err)
		}
		params = append(params, p)
	}

	cs, err := NewConfigurationSpace(spec.Name, params)
	if err != nil {
		return nil, err
	}
	if err := applySpec(cs, spec); err != nil {
		_ = core.Release(cs)
		return nil, err
	}
	logging.Logger().V(logging.DEBUG).Info("Loaded configuration space",
		"name", spec.Name,
		"parameters", len(spec.Parameters),
		"distributions", len(spec.Distributions),
		"conditions", len(spec.Conditions),
		"forbiddenClauses", len(spec.ForbiddenClauses))
	return cs, nil
}

func applySpec(cs *ConfigurationSpace, spec *v1alpha1.ConfigurationSpaceSpec) error {
	for i := range spec.Distributions {
		d := &spec.Distributions[i]
		indices := make([]int, len(d.Parameters))
		for j, name := range d.Parameters {
			idx, err := cs.ParameterIndexByName(name)
			if err != nil {
				return err
			}
			indices[j] = idx
		}
		dist, err := distributionFromSpec(cs, d, indices)
		if err != nil {
			return fmt.Errorf("distribution %d: %w", i, err)
		}
		err = cs.SetDistribution(dist, indices)
		_ = core.Release(dist)
		if err != nil {
			return err
		}
	}

	for _, c := range spec.Conditions {
		idx, err := cs.ParameterIndexByName(c.Parameter)
		if err != nil {
			return err
		}
		e, err := expression.Parse(c.Expression, &cs.Context)
		if err != nil {
			return fmt.Errorf("condition of %q: %w", c.Parameter, err)
		}
		err = cs.SetCondition(idx, e)
		_ = core.Release(e)
		if err != nil {
			return err
		}
	}

	for _, src := range spec.ForbiddenClauses {
		e, err := expression.Parse(src, &cs.Context)
		if err != nil {
			return fmt.Errorf("forbidden clause %q: %w", src, err)
		}
		err = cs.AddForbiddenClause(e)
		_ = core.Release(e)
		if err != nil {
			return err
		}
	}
	return nil
}

func parameterFromSpec(p *v1alpha1.ParameterSpec) (parameter.Parameter, error) {
	switch p.Type {
	case v1alpha1.ParameterTypeNumerical:
		lower, upper := *p.Lower, *p.Upper
		q := ptr.Deref(p.Quantization, 0)
		def := ptr.Deref(p.Default, lower)
		if p.DataType == v1alpha1.DataTypeInt {
			return parameter.NewNumericalInt(p.Name, int64(lower), int64(upper), int64(q), int64(def))
		}
		return parameter.NewNumericalFloat(p.Name, lower, upper, q, def)
	}

	values := make([]core.Datum, len(p.Values))
	for i, v := range p.Values {
		d, err := datumOf(v)
		if err != nil {
			return nil, err
		}
		values[i] = d
	}
	def := ptr.Deref(p.DefaultIndex, 0)
	switch p.Type {
	case v1alpha1.ParameterTypeCategorical:
		return parameter.NewCategorical(p.Name, values, def)
	case v1alpha1.ParameterTypeOrdinal:
		return parameter.NewOrdinal(p.Name, values, def)
	default:
		return parameter.NewDiscrete(p.Name, values, def)
	}
}

// datumOf converts a scalar decoded from YAML or JSON.
func datumOf(v any) (core.Datum, error) {
	switch x := v.(type) {
	case string:
		return core.String(x), nil
	case bool:
		return core.Bool(x), nil
	case int:
		return core.Int(int64(x)), nil
	case int64:
		return core.Int(x), nil
	case float64:
		return core.Float(x), nil
	default:
		return core.None(), fmt.Errorf("%w: unsupported value %v of type %T", core.ErrInvalidValue, v, v)
	}
}

// domain returns the numeric type, bounds and quantization raw draws of p
// live in. List parameters are drawn by index.
func domain(p parameter.Parameter) (core.NumericType, core.Numeric, core.Numeric, core.Numeric) {
	if num, ok := p.(*parameter.Numerical); ok {
		return num.DataType(), num.Lower(), num.Upper(), num.Quantization()
	}
	n := 0
	if l, ok := p.(interface{ PossibleValues() []core.Datum }); ok {
		n = len(l.PossibleValues())
	}
	return core.NumericTypeInt, core.IntNumeric(0), core.IntNumeric(int64(n)), core.IntNumeric(0)
}

func numericOf(typ core.NumericType, f *float64, def core.Numeric) core.Numeric {
	if f == nil {
		return def
	}
	if typ == core.NumericTypeInt {
		return core.IntNumeric(int64(*f))
	}
	return core.FloatNumeric(*f)
}

func distributionFromSpec(cs *ConfigurationSpace, d *v1alpha1.DistributionSpec, indices []int) (distribution.Distribution, error) {
	components := make([]distribution.Distribution, 0, len(d.Components))
	defer func() { _ = core.ReleaseAll(components...) }()
	for j := range d.Components {
		p, err := cs.Parameter(indices[j])
		if err != nil {
			return nil, err
		}
		c, err := componentFromSpec(&d.Components[j], p)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", j, err)
		}
		components = append(components, c)
	}
	if len(components) == 1 {
		c := components[0]
		if err := core.Retain(c); err != nil {
			return nil, err
		}
		return c, nil
	}
	return distribution.NewMultivariate(components)
}

func componentFromSpec(c *v1alpha1.ComponentSpec, p parameter.Parameter) (distribution.Distribution, error) {
	typ, lower, upper, q := domain(p)
	scale := distribution.ScaleLinear
	if c.Scale == v1alpha1.ScaleLog {
		scale = distribution.ScaleLogarithmic
	}
	q = numericOf(typ, c.Quantization, q)

	switch c.Type {
	case v1alpha1.DistributionTypeUniform:
		return distribution.NewUniform(typ, numericOf(typ, c.Lower, lower), numericOf(typ, c.Upper, upper), scale, q)
	case v1alpha1.DistributionTypeNormal:
		return distribution.NewNormal(typ, *c.Mu, *c.Sigma, scale, q)
	default:
		return distribution.NewRoulette(c.Areas)
	}
}
