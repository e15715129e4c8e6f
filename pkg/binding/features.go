package binding

import (
	"fmt"

	"github.com/llm-d/llm-d-configspace/internal/logging"
	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/parameter"
)

// FeatureSpace is a named context describing the environment of a run.
type FeatureSpace struct {
	core.Base
	Context

	name string
}

// NewFeatureSpace returns a feature space over params, retaining them.
func NewFeatureSpace(name string, params []parameter.Parameter) (*FeatureSpace, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty feature space name", core.ErrInvalidName)
	}
	fs := &FeatureSpace{name: name}
	fs.InitContext(fs)
	if err := fs.AddParameters(params); err != nil {
		return nil, err
	}
	fs.Init(core.ObjectTypeFeatureSpace, fs, fs.ReleaseParameters)
	logging.Logger().V(logging.TRACE).Info("Created feature space",
		"name", name,
		"parameters", len(params))
	return fs, nil
}

// Name returns the name of the feature space.
func (fs *FeatureSpace) Name() string {
	return fs.name
}

// Serialize writes the name and parameters.
func (fs *FeatureSpace) Serialize(enc *core.Encoder) error {
	enc.String(fs.name)
	return fs.SerializeParameters(enc)
}

func deserializeFeatureSpace(dec *core.Decoder) (core.Object, error) {
	name, err := dec.String()
	if err != nil {
		return nil, err
	}
	params, err := DeserializeParameters(dec)
	if err != nil {
		return nil, err
	}
	defer func() { _ = core.ReleaseAll(params...) }()
	return NewFeatureSpace(name, params)
}

// Features binds values to the parameters of a feature space.
type Features struct {
	core.Base
	Binding

	space *FeatureSpace
}

// NewFeatures returns features of fs. A nil values slice takes the default
// value of each parameter. Every value must be in its parameter domain.
func NewFeatures(fs *FeatureSpace, values []core.Datum) (*Features, error) {
	if _, err := core.CheckType(fs, core.ObjectTypeFeatureSpace); err != nil {
		return nil, err
	}
	f := &Features{space: fs}
	if err := f.InitBinding(&fs.Context, values); err != nil {
		return nil, err
	}
	if err := fs.Validate(f.values); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidFeatures, err)
	}
	if err := core.Retain(fs); err != nil {
		return nil, err
	}
	f.Init(core.ObjectTypeFeatures, f, func() { _ = core.Release(f.space) })
	return f, nil
}

// FeatureSpace returns the feature space of the features.
func (f *Features) FeatureSpace() *FeatureSpace {
	return f.space
}

// SetValue replaces the value at index i after checking it against its
// parameter.
func (f *Features) SetValue(i int, v core.Datum) error {
	p, err := f.space.Parameter(i)
	if err != nil {
		return err
	}
	ok, err := p.CheckValue(v)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: value %s of parameter %q", core.ErrInvalidFeatures, v, p.Name())
	}
	return f.Binding.SetValue(i, v)
}

// Serialize writes a reference to the feature space and the values.
func (f *Features) Serialize(enc *core.Encoder) error {
	enc.Handle(f.space.Handle())
	f.SerializeValues(enc)
	return nil
}

func deserializeFeatures(dec *core.Decoder) (core.Object, error) {
	obj, err := dec.ObjectRef()
	if err != nil {
		return nil, err
	}
	fs, ok := obj.(*FeatureSpace)
	if !ok {
		return nil, fmt.Errorf("%w: features refer to a %s", core.ErrInvalidHandle, obj.ObjectType())
	}
	values, err := DeserializeValues(dec)
	if err != nil {
		return nil, err
	}
	return NewFeatures(fs, values)
}

func init() {
	core.RegisterDeserializer(core.ObjectTypeFeatureSpace, deserializeFeatureSpace)
	core.RegisterDeserializer(core.ObjectTypeFeatures, deserializeFeatures)
}
