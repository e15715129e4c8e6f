package tuner

import (
	"fmt"
	"slices"

	"github.com/llm-d/llm-d-configspace/internal/logging"
	"github.com/llm-d/llm-d-configspace/pkg/binding"
	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/expression"
	"github.com/llm-d/llm-d-configspace/pkg/parameter"
)

// ObjectiveType tells whether an objective is minimized or maximized.
type ObjectiveType int32

// enumeration of ObjectiveType
const (
	Minimize ObjectiveType = iota
	Maximize
)

func (t ObjectiveType) String() string {
	switch t {
	case Minimize:
		return "minimize"
	case Maximize:
		return "maximize"
	default:
		return fmt.Sprintf("objective_type(%d)", int32(t))
	}
}

// Objective is an expression over result parameters and its direction.
type Objective struct {
	Expression *expression.Expression
	Type       ObjectiveType
}

// ObjectiveSpace is the context of the values measured for a configuration,
// together with the objectives derived from them.
type ObjectiveSpace struct {
	core.Base
	binding.Context

	name       string
	objectives []Objective
}

// NewObjectiveSpace returns an objective space over params. Every objective
// expression may only refer to params.
func NewObjectiveSpace(name string, params []parameter.Parameter, objectives []Objective) (*ObjectiveSpace, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty objective space name", core.ErrInvalidName)
	}
	if len(objectives) == 0 {
		return nil, fmt.Errorf("%w: objective space %q has no objectives", core.ErrInvalidValue, name)
	}
	s := &ObjectiveSpace{name: name}
	s.InitContext(s)
	if err := s.AddParameters(params); err != nil {
		return nil, err
	}
	for _, o := range objectives {
		if o.Type != Minimize && o.Type != Maximize {
			s.ReleaseParameters()
			return nil, fmt.Errorf("%w: objective type %s", core.ErrInvalidValue, o.Type)
		}
		if _, err := core.CheckType(o.Expression, core.ObjectTypeExpression); err != nil {
			s.ReleaseParameters()
			return nil, err
		}
		if err := o.Expression.CheckContext(&s.Context); err != nil {
			s.ReleaseParameters()
			return nil, err
		}
	}
	for _, o := range objectives {
		_ = core.Retain(o.Expression)
	}
	s.objectives = slices.Clone(objectives)
	s.Init(core.ObjectTypeObjectiveSpace, s, func() {
		for _, o := range s.objectives {
			_ = core.Release(o.Expression)
		}
		s.ReleaseParameters()
	})
	logging.Logger().V(logging.DEBUG).Info("Created objective space",
		"name", name,
		"parameters", len(params),
		"objectives", len(objectives))
	return s, nil
}

// ParseObjective parses src against params, the result parameters of the
// objective space it is meant for. The caller owns the returned expression.
func ParseObjective(src string, typ ObjectiveType, params []parameter.Parameter) (Objective, error) {
	var ctx binding.Context
	ctx.InitContext(nil)
	if err := ctx.AddParameters(params); err != nil {
		return Objective{}, err
	}
	defer ctx.ReleaseParameters()
	e, err := expression.Parse(src, &ctx)
	if err != nil {
		return Objective{}, err
	}
	return Objective{Expression: e, Type: typ}, nil
}

// Name returns the name of the objective space.
func (s *ObjectiveSpace) Name() string {
	return s.name
}

// NumObjectives returns the number of objectives.
func (s *ObjectiveSpace) NumObjectives() int {
	return len(s.objectives)
}

// Objective returns objective i.
func (s *ObjectiveSpace) Objective(i int) (Objective, error) {
	if i < 0 || i >= len(s.objectives) {
		return Objective{}, fmt.Errorf("%w: objective %d of %d", core.ErrOutOfBounds, i, len(s.objectives))
	}
	return s.objectives[i], nil
}

// Objectives returns every objective.
func (s *ObjectiveSpace) Objectives() []Objective {
	return slices.Clone(s.objectives)
}

// Serialize writes the name, the parameters and the objectives.
func (s *ObjectiveSpace) Serialize(enc *core.Encoder) error {
	enc.String(s.name)
	if err := s.SerializeParameters(enc); err != nil {
		return err
	}
	enc.Uint64(uint64(len(s.objectives)))
	for _, o := range s.objectives {
		enc.Int32(int32(o.Type))
		if err := enc.Object(o.Expression); err != nil {
			return err
		}
	}
	return nil
}

func deserializeObjectiveSpace(dec *core.Decoder) (core.Object, error) {
	restore, err := dec.EnsureHandleMap()
	if err != nil {
		return nil, err
	}
	defer restore()

	name, err := dec.String()
	if err != nil {
		return nil, err
	}
	params, err := binding.DeserializeParameters(dec)
	if err != nil {
		return nil, err
	}
	defer func() { _ = core.ReleaseAll(params...) }()
	n, err := dec.Length()
	if err != nil {
		return nil, err
	}
	objectives := make([]Objective, 0, n)
	defer func() {
		for _, o := range objectives {
			_ = core.Release(o.Expression)
		}
	}()
	for range n {
		t, err := dec.Int32()
		if err != nil {
			return nil, err
		}
		obj, err := dec.ExpectObject(core.ObjectTypeExpression)
		if err != nil {
			return nil, err
		}
		objectives = append(objectives, Objective{Expression: obj.(*expression.Expression), Type: ObjectiveType(t)})
	}
	return NewObjectiveSpace(name, params, objectives)
}
