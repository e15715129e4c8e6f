package parameter

import (
	"fmt"
	"strings"
	"sync"

	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/distribution"
)

// String is a parameter accepting any string. Validated strings are interned
// in a pool owned by the parameter, so repeated values share storage.
type String struct {
	common

	mu   sync.Mutex
	pool map[string]string
}

// NewString returns a string parameter. Its default value is None.
func NewString(name string) (*String, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	p := &String{pool: make(map[string]string)}
	p.init(p, p, KindString, name, core.None(), core.Interval{}, func() {
		p.mu.Lock()
		p.pool = nil
		p.mu.Unlock()
	})
	return p, nil
}

// SamplingInterval fails: string parameters have no numeric domain.
func (p *String) SamplingInterval() (core.Interval, error) {
	return core.Interval{}, fmt.Errorf("%w: string parameter %q has no sampling interval", core.ErrUnsupportedOperation, p.name)
}

func (p *String) intern(s string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.pool[s]; ok {
		return v
	}
	v := strings.Clone(s)
	p.pool[v] = v
	return v
}

// PoolSize returns the number of distinct strings validated so far.
func (p *String) PoolSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pool)
}

func (p *String) checkValue(v core.Datum) bool {
	return v.Type == core.DataTypeString
}

func (p *String) validateValue(v core.Datum) (core.Datum, bool) {
	if v.Type != core.DataTypeString {
		return core.Inactive(), false
	}
	return core.String(p.intern(v.Str())), true
}

func (p *String) convertSamples(bool, []core.Numeric) ([]core.Datum, error) {
	return nil, fmt.Errorf("%w: string parameter %q cannot convert samples", core.ErrUnsupportedOperation, p.name)
}

func (p *String) defaultDistribution() (distribution.Distribution, error) {
	return nil, fmt.Errorf("%w: string parameter %q has no default distribution", core.ErrUnsupportedOperation, p.name)
}

func (p *String) serializeBody(*core.Encoder) error {
	return nil
}

func deserializeString(name string, _ *core.Decoder) (Parameter, error) {
	return NewString(name)
}
