package tuner

import (
	"fmt"

	"github.com/llm-d/llm-d-configspace/pkg/binding"
	"github.com/llm-d/llm-d-configspace/pkg/configspace"
	"github.com/llm-d/llm-d-configspace/pkg/core"
)

// Result is the outcome of running a configuration. Anything other than
// ResultSuccess marks a failed run.
type Result int32

// enumeration of Result
const (
	ResultSuccess Result = iota
	ResultFailure
	ResultTimeout
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("result(%d)", int32(r))
	}
}

// Comparison is the dominance relation between two evaluations.
type Comparison int

// enumeration of Comparison
const (
	Better        Comparison = -1
	Equivalent    Comparison = 0
	Worse         Comparison = 1
	NotComparable Comparison = 2
)

func (c Comparison) String() string {
	switch c {
	case Better:
		return "better"
	case Equivalent:
		return "equivalent"
	case Worse:
		return "worse"
	case NotComparable:
		return "not_comparable"
	default:
		return fmt.Sprintf("comparison(%d)", int(c))
	}
}

// Evaluation holds the values measured when running a configuration, bound
// to the parameters of an objective space.
type Evaluation struct {
	core.Base
	binding.Binding

	space         *ObjectiveSpace
	configuration *configspace.Configuration
	result        Result
}

// NewEvaluation returns the evaluation of conf in s. Successful evaluations
// need one in-domain value per result parameter. A failed evaluation may
// pass nil values, which leaves every value None.
func NewEvaluation(s *ObjectiveSpace, conf *configspace.Configuration, result Result, values []core.Datum) (*Evaluation, error) {
	if _, err := core.CheckType(s, core.ObjectTypeObjectiveSpace); err != nil {
		return nil, err
	}
	if _, err := core.CheckType(conf, core.ObjectTypeConfiguration); err != nil {
		return nil, err
	}
	if values == nil && result != ResultSuccess {
		values = make([]core.Datum, s.NumParameters())
		for i := range values {
			values[i] = core.None()
		}
	}
	e := &Evaluation{space: s, configuration: conf, result: result}
	if err := e.InitBinding(&s.Context, values); err != nil {
		return nil, err
	}
	if result == ResultSuccess {
		if err := s.Validate(e.AllValues()); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidEvaluation, err)
		}
	}
	if err := core.Retain(s); err != nil {
		return nil, err
	}
	if err := core.Retain(conf); err != nil {
		_ = core.Release(s)
		return nil, err
	}
	e.Init(core.ObjectTypeEvaluation, e, func() {
		_ = core.Release(e.configuration)
		_ = core.Release(e.space)
	})
	return e, nil
}

// ObjectiveSpace returns the objective space of the evaluation.
func (e *Evaluation) ObjectiveSpace() *ObjectiveSpace {
	return e.space
}

// Configuration returns the evaluated configuration.
func (e *Evaluation) Configuration() *configspace.Configuration {
	return e.configuration
}

// Result returns the outcome of the run.
func (e *Evaluation) Result() Result {
	return e.result
}

// Check verifies the evaluated configuration and, for successful runs, the
// measured values.
func (e *Evaluation) Check() error {
	if err := e.configuration.Check(); err != nil {
		return err
	}
	if e.result != ResultSuccess {
		return nil
	}
	if err := e.space.Validate(e.AllValues()); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidEvaluation, err)
	}
	return nil
}

// Objectives evaluates every objective of the space against the values.
func (e *Evaluation) Objectives() ([]core.Datum, error) {
	out := make([]core.Datum, len(e.space.objectives))
	for i, o := range e.space.objectives {
		v, err := o.Expression.Eval(&e.Binding)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Evaluation) numericObjectives() ([]core.Numeric, error) {
	values, err := e.Objectives()
	if err != nil {
		return nil, err
	}
	out := make([]core.Numeric, len(values))
	for i, v := range values {
		n, ok := core.NumericOf(v)
		if !ok {
			return nil, fmt.Errorf("%w: objective %d evaluates to %s, not a number", core.ErrInvalidEvaluation, i, v)
		}
		out[i] = n
	}
	return out, nil
}

// Compare reports how e ranks against o by Pareto dominance. Failed
// evaluations are never comparable.
func (e *Evaluation) Compare(o *Evaluation) (Comparison, error) {
	if _, err := core.CheckType(o, core.ObjectTypeEvaluation); err != nil {
		return NotComparable, err
	}
	if e.space != o.space {
		return NotComparable, fmt.Errorf("%w: evaluations of different objective spaces", core.ErrInvalidEvaluation)
	}
	if e.result != ResultSuccess || o.result != ResultSuccess {
		return NotComparable, nil
	}
	mine, err := e.numericObjectives()
	if err != nil {
		return NotComparable, err
	}
	theirs, err := o.numericObjectives()
	if err != nil {
		return NotComparable, err
	}
	better, worse := false, false
	for i, obj := range e.space.objectives {
		c := core.CompareNumeric(mine[i], theirs[i])
		if obj.Type == Maximize {
			c = -c
		}
		switch {
		case c < 0:
			better = true
		case c > 0:
			worse = true
		}
	}
	switch {
	case better && worse:
		return NotComparable, nil
	case better:
		return Better, nil
	case worse:
		return Worse, nil
	default:
		return Equivalent, nil
	}
}

// Serialize writes references to the objective space and the configuration,
// then the result and the values.
func (e *Evaluation) Serialize(enc *core.Encoder) error {
	enc.Handle(e.space.Handle())
	enc.Handle(e.configuration.Handle())
	enc.Int32(int32(e.result))
	e.SerializeValues(enc)
	return nil
}

func deserializeEvaluation(dec *core.Decoder) (core.Object, error) {
	obj, err := dec.ObjectRef()
	if err != nil {
		return nil, err
	}
	s, ok := obj.(*ObjectiveSpace)
	if !ok {
		return nil, fmt.Errorf("%w: evaluation refers to a %s", core.ErrInvalidHandle, obj.ObjectType())
	}
	obj, err = dec.ObjectRef()
	if err != nil {
		return nil, err
	}
	conf, ok := obj.(*configspace.Configuration)
	if !ok {
		return nil, fmt.Errorf("%w: evaluation refers to a %s as configuration", core.ErrInvalidHandle, obj.ObjectType())
	}
	result, err := dec.Int32()
	if err != nil {
		return nil, err
	}
	values, err := binding.DeserializeValues(dec)
	if err != nil {
		return nil, err
	}
	return NewEvaluation(s, conf, Result(result), values)
}
