package distribution

import (
	"fmt"

	"github.com/llm-d/llm-d-configspace/pkg/core"
)

var deserializers = map[Kind]func(*core.Decoder) (Distribution, error){
	KindUniform:      deserializeUniform,
	KindNormal:       deserializeNormal,
	KindRoulette:     deserializeRoulette,
	KindMixture:      deserializeMixture,
	KindMultivariate: deserializeMultivariate,
}

func deserialize(dec *core.Decoder) (core.Object, error) {
	k, err := dec.Int32()
	if err != nil {
		return nil, err
	}
	fn, ok := deserializers[Kind(k)]
	if !ok {
		return nil, fmt.Errorf("%w: distribution kind %s", core.ErrInvalidType, Kind(k))
	}
	d, err := fn(dec)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func init() {
	core.RegisterDeserializer(core.ObjectTypeDistribution, deserialize)
}
