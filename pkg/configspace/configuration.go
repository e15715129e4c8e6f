package configspace

import (
	"fmt"

	"github.com/llm-d/llm-d-configspace/pkg/binding"
	"github.com/llm-d/llm-d-configspace/pkg/core"
)

// Configuration binds one value, possibly Inactive, to every parameter of a
// configuration space.
type Configuration struct {
	core.Base
	binding.Binding

	space *ConfigurationSpace
}

// NewConfiguration returns a configuration of cs. A nil values slice takes
// the default value of each parameter, conditions not applied. Values are
// not checked; see Check.
func NewConfiguration(cs *ConfigurationSpace, values []core.Datum) (*Configuration, error) {
	if _, err := core.CheckType(cs, core.ObjectTypeConfigurationSpace); err != nil {
		return nil, err
	}
	return newConfiguration(cs, values)
}

func newConfiguration(cs *ConfigurationSpace, values []core.Datum) (*Configuration, error) {
	c := &Configuration{space: cs}
	if err := c.InitBinding(&cs.Context, values); err != nil {
		return nil, err
	}
	if err := core.Retain(cs); err != nil {
		return nil, err
	}
	c.Init(core.ObjectTypeConfiguration, c, func() { _ = core.Release(c.space) })
	return c, nil
}

// ConfigurationSpace returns the space of the configuration.
func (c *Configuration) ConfigurationSpace() *ConfigurationSpace {
	return c.space
}

// Check verifies the configuration against its space.
func (c *Configuration) Check() error {
	return c.space.CheckConfiguration(c)
}

// Serialize writes a reference to the space and the values.
func (c *Configuration) Serialize(enc *core.Encoder) error {
	enc.Handle(c.space.Handle())
	c.SerializeValues(enc)
	return nil
}

func deserializeConfiguration(dec *core.Decoder) (core.Object, error) {
	obj, err := dec.ObjectRef()
	if err != nil {
		return nil, err
	}
	cs, ok := obj.(*ConfigurationSpace)
	if !ok {
		return nil, fmt.Errorf("%w: configuration refers to a %s", core.ErrInvalidHandle, obj.ObjectType())
	}
	values, err := binding.DeserializeValues(dec)
	if err != nil {
		return nil, err
	}
	return NewConfiguration(cs, values)
}
