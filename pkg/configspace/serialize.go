package configspace

import (
	"github.com/llm-d/llm-d-configspace/pkg/binding"
	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/distribution"
	"github.com/llm-d/llm-d-configspace/pkg/expression"
)

// Serialize writes the name, the parameters, the distributions with the
// indices they draw, the conditions and the forbidden clauses.
func (cs *ConfigurationSpace) Serialize(enc *core.Encoder) error {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	enc.String(cs.name)
	if err := cs.SerializeParameters(enc); err != nil {
		return err
	}

	enc.Uint64(uint64(len(cs.dists)))
	for _, e := range cs.dists {
		enc.Uint64(uint64(len(e.indices)))
		for _, i := range e.indices {
			enc.Uint64(uint64(i))
		}
		if err := enc.Object(e.dist); err != nil {
			return err
		}
	}

	var conditioned []int
	for i, c := range cs.conditions {
		if c != nil {
			conditioned = append(conditioned, i)
		}
	}
	enc.Uint64(uint64(len(conditioned)))
	for _, i := range conditioned {
		enc.Uint64(uint64(i))
		if err := enc.Object(cs.conditions[i]); err != nil {
			return err
		}
	}

	enc.Uint64(uint64(len(cs.forbidden)))
	for _, f := range cs.forbidden {
		if err := enc.Object(f); err != nil {
			return err
		}
	}
	return nil
}

func readIndex(dec *core.Decoder) (int, error) {
	v, err := dec.Uint64()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func deserializeSpace(dec *core.Decoder) (core.Object, error) {
	// expressions refer to the parameters read below by their original handles
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
	cs, err := NewConfigurationSpace(name, params)
	_ = core.ReleaseAll(params...)
	if err != nil {
		return nil, err
	}
	if err := readSpaceBody(dec, cs); err != nil {
		_ = core.Release(cs)
		return nil, err
	}
	return cs, nil
}

func readSpaceBody(dec *core.Decoder, cs *ConfigurationSpace) error {
	n, err := dec.Length()
	if err != nil {
		return err
	}
	for range n {
		dim, err := dec.Length()
		if err != nil {
			return err
		}
		indices := make([]int, dim)
		for j := range indices {
			if indices[j], err = readIndex(dec); err != nil {
				return err
			}
		}
		obj, err := dec.ExpectObject(core.ObjectTypeDistribution)
		if err != nil {
			return err
		}
		err = cs.SetDistribution(obj.(distribution.Distribution), indices)
		_ = core.Release(obj)
		if err != nil {
			return err
		}
	}

	if n, err = dec.Length(); err != nil {
		return err
	}
	for range n {
		i, err := readIndex(dec)
		if err != nil {
			return err
		}
		obj, err := dec.ExpectObject(core.ObjectTypeExpression)
		if err != nil {
			return err
		}
		err = cs.SetCondition(i, obj.(*expression.Expression))
		_ = core.Release(obj)
		if err != nil {
			return err
		}
	}

	if n, err = dec.Length(); err != nil {
		return err
	}
	for range n {
		obj, err := dec.ExpectObject(core.ObjectTypeExpression)
		if err != nil {
			return err
		}
		err = cs.AddForbiddenClause(obj.(*expression.Expression))
		_ = core.Release(obj)
		if err != nil {
			return err
		}
	}
	return nil
}

func init() {
	core.RegisterDeserializer(core.ObjectTypeConfigurationSpace, deserializeSpace)
	core.RegisterDeserializer(core.ObjectTypeConfiguration, deserializeConfiguration)
}

