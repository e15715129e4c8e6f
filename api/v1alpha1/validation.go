package v1alpha1

import (
	"fmt"
	"math"
	"regexp"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/utils/ptr"
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

var (
	parameterTypes    = []string{string(ParameterTypeNumerical), string(ParameterTypeCategorical), string(ParameterTypeOrdinal), string(ParameterTypeDiscrete)}
	dataTypes         = []string{string(DataTypeInt), string(DataTypeFloat)}
	distributionTypes = []string{string(DistributionTypeUniform), string(DistributionTypeNormal), string(DistributionTypeRoulette)}
	scales            = []string{string(ScaleLinear), string(ScaleLog)}
)

// Validate checks the document for structural errors. Expressions are only
// checked for presence; their syntax is checked when the space is built.
func (s *ConfigurationSpaceSpec) Validate() field.ErrorList {
	var errs field.ErrorList
	if s.APIVersion != "" && s.APIVersion != GroupVersion {
		errs = append(errs, field.NotSupported(field.NewPath("apiVersion"), s.APIVersion, []string{GroupVersion}))
	}
	if s.Kind != "" && s.Kind != KindConfigurationSpace {
		errs = append(errs, field.NotSupported(field.NewPath("kind"), s.Kind, []string{KindConfigurationSpace}))
	}
	if s.Name == "" {
		errs = append(errs, field.Required(field.NewPath("name"), ""))
	}

	paramsPath := field.NewPath("parameters")
	if len(s.Parameters) == 0 {
		errs = append(errs, field.Required(paramsPath, "at least one parameter"))
	}
	names := sets.New[string]()
	for i := range s.Parameters {
		p := &s.Parameters[i]
		path := paramsPath.Index(i)
		errs = append(errs, p.Validate(path)...)
		if names.Has(p.Name) {
			errs = append(errs, field.Duplicate(path.Child("name"), p.Name))
		}
		names.Insert(p.Name)
	}

	distributed := sets.New[string]()
	for i := range s.Distributions {
		d := &s.Distributions[i]
		path := field.NewPath("distributions").Index(i)
		errs = append(errs, d.Validate(path)...)
		for j, name := range d.Parameters {
			ppath := path.Child("parameters").Index(j)
			if !names.Has(name) {
				errs = append(errs, field.NotFound(ppath, name))
			}
			if distributed.Has(name) {
				errs = append(errs, field.Duplicate(ppath, name))
			}
			distributed.Insert(name)
		}
	}

	conditioned := sets.New[string]()
	for i, c := range s.Conditions {
		path := field.NewPath("conditions").Index(i)
		if !names.Has(c.Parameter) {
			errs = append(errs, field.NotFound(path.Child("parameter"), c.Parameter))
		}
		if conditioned.Has(c.Parameter) {
			errs = append(errs, field.Duplicate(path.Child("parameter"), c.Parameter))
		}
		conditioned.Insert(c.Parameter)
		if c.Expression == "" {
			errs = append(errs, field.Required(path.Child("expression"), ""))
		}
	}

	for i, f := range s.ForbiddenClauses {
		if f == "" {
			errs = append(errs, field.Required(field.NewPath("forbiddenClauses").Index(i), ""))
		}
	}
	return errs
}

// Validate checks a parameter description at path.
func (p *ParameterSpec) Validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if p.Name == "" {
		errs = append(errs, field.Required(path.Child("name"), ""))
	} else if !namePattern.MatchString(p.Name) {
		errs = append(errs, field.Invalid(path.Child("name"), p.Name, "must be an identifier usable in expressions"))
	}

	switch p.Type {
	case ParameterTypeNumerical:
		errs = append(errs, p.validateNumerical(path)...)
	case ParameterTypeCategorical, ParameterTypeOrdinal, ParameterTypeDiscrete:
		errs = append(errs, p.validateList(path)...)
	default:
		errs = append(errs, field.NotSupported(path.Child("type"), p.Type, parameterTypes))
	}
	return errs
}

func (p *ParameterSpec) validateNumerical(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if p.DataType != "" && p.DataType != DataTypeInt && p.DataType != DataTypeFloat {
		errs = append(errs, field.NotSupported(path.Child("dataType"), p.DataType, dataTypes))
	}
	if p.Lower == nil {
		errs = append(errs, field.Required(path.Child("lower"), ""))
	}
	if p.Upper == nil {
		errs = append(errs, field.Required(path.Child("upper"), ""))
	}
	if len(p.Values) > 0 {
		errs = append(errs, field.Forbidden(path.Child("values"), "numerical parameters take bounds, not values"))
	}
	if p.Lower == nil || p.Upper == nil {
		return errs
	}
	lower, upper := *p.Lower, *p.Upper
	if lower >= upper {
		errs = append(errs, field.Invalid(path.Child("upper"), upper, fmt.Sprintf("must be greater than lower (%g)", lower)))
	}
	q := ptr.Deref(p.Quantization, 0)
	if q < 0 || math.IsNaN(q) {
		errs = append(errs, field.Invalid(path.Child("quantization"), q, "must be >= 0"))
	}
	if q > upper-lower {
		errs = append(errs, field.Invalid(path.Child("quantization"), q, "must not exceed upper - lower"))
	}
	if p.DataType == DataTypeInt {
		for name, v := range map[string]*float64{"lower": p.Lower, "upper": p.Upper, "quantization": p.Quantization, "default": p.Default} {
			if v != nil && *v != math.Trunc(*v) {
				errs = append(errs, field.Invalid(path.Child(name), *v, "must be an integer"))
			}
		}
	}
	if p.Default != nil && (*p.Default < lower || *p.Default >= upper) {
		errs = append(errs, field.Invalid(path.Child("default"), *p.Default, "must be in [lower, upper)"))
	}
	return errs
}

func (p *ParameterSpec) validateList(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if p.Lower != nil || p.Upper != nil || p.Quantization != nil || p.Default != nil {
		errs = append(errs, field.Forbidden(path, fmt.Sprintf("%s parameters take values, not bounds", p.Type)))
	}
	vpath := path.Child("values")
	if len(p.Values) == 0 {
		errs = append(errs, field.Required(vpath, ""))
	}
	seen := sets.New[string]()
	for i, v := range p.Values {
		switch v.(type) {
		case int, int64, float64:
		case string, bool:
			if p.Type == ParameterTypeDiscrete {
				errs = append(errs, field.Invalid(vpath.Index(i), v, "discrete values must be numbers"))
				continue
			}
		default:
			errs = append(errs, field.Invalid(vpath.Index(i), v, "must be a string, boolean or number"))
			continue
		}
		key := fmt.Sprintf("%T:%v", v, v)
		if seen.Has(key) {
			errs = append(errs, field.Duplicate(vpath.Index(i), v))
		}
		seen.Insert(key)
	}
	if idx := ptr.Deref(p.DefaultIndex, 0); idx < 0 || (len(p.Values) > 0 && idx >= len(p.Values)) {
		errs = append(errs, field.Invalid(path.Child("defaultIndex"), idx, "must index values"))
	}
	return errs
}

// Validate checks a distribution description at path.
func (d *DistributionSpec) Validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if len(d.Parameters) == 0 {
		errs = append(errs, field.Required(path.Child("parameters"), ""))
	}
	if len(d.Components) != len(d.Parameters) {
		errs = append(errs, field.Invalid(path.Child("components"), len(d.Components),
			fmt.Sprintf("must hold one component per parameter (%d)", len(d.Parameters))))
	}
	for i := range d.Components {
		errs = append(errs, d.Components[i].Validate(path.Child("components").Index(i))...)
	}
	return errs
}

// Validate checks a distribution component at path.
func (c *ComponentSpec) Validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if c.Scale != "" && c.Scale != ScaleLinear && c.Scale != ScaleLog {
		errs = append(errs, field.NotSupported(path.Child("scale"), c.Scale, scales))
	}
	if q := ptr.Deref(c.Quantization, 0); q < 0 {
		errs = append(errs, field.Invalid(path.Child("quantization"), q, "must be >= 0"))
	}
	switch c.Type {
	case DistributionTypeUniform:
		if c.Lower != nil && c.Upper != nil && *c.Lower >= *c.Upper {
			errs = append(errs, field.Invalid(path.Child("upper"), *c.Upper, "must be greater than lower"))
		}
	case DistributionTypeNormal:
		if c.Mu == nil {
			errs = append(errs, field.Required(path.Child("mu"), ""))
		}
		if c.Sigma == nil {
			errs = append(errs, field.Required(path.Child("sigma"), ""))
		} else if *c.Sigma < 0 {
			errs = append(errs, field.Invalid(path.Child("sigma"), *c.Sigma, "must be >= 0"))
		}
	case DistributionTypeRoulette:
		if len(c.Areas) == 0 {
			errs = append(errs, field.Required(path.Child("areas"), ""))
		}
		for i, a := range c.Areas {
			if a < 0 || math.IsNaN(a) || math.IsInf(a, 0) {
				errs = append(errs, field.Invalid(path.Child("areas").Index(i), a, "must be a finite non-negative weight"))
			}
		}
	default:
		errs = append(errs, field.NotSupported(path.Child("type"), c.Type, distributionTypes))
	}
	return errs
}
