package distribution

import (
	"fmt"

	"github.com/llm-d/llm-d-configspace/internal/logging"
	"github.com/llm-d/llm-d-configspace/internal/metrics"
	"github.com/llm-d/llm-d-configspace/pkg/core"
)

// SampleConverter turns raw numeric draws into values of a domain. It is
// implemented by parameters.
type SampleConverter interface {
	core.Object
	// SamplingInterval returns the domain raw draws must fall in.
	SamplingInterval() (core.Interval, error)
	// ConvertSamples maps raw draws to values. With oversampling set, draws
	// outside the domain become Inactive instead of failing.
	ConvertSamples(oversampling bool, values []core.Numeric) ([]core.Datum, error)
}

// ParametersSample draws one sample from d and converts dimension i through
// params[i].
func ParametersSample(d Distribution, rng *core.RNG, params []SampleConverter) ([]core.Datum, error) {
	rows, err := ParametersSamples(d, rng, params, 1)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// ParametersSamples draws n samples from d and converts them; row i holds
// the values of sample i. When d may draw outside a parameter domain, samples
// with any rejected value are discarded and re-drawn in batches that grow
// geometrically up to the configured oversampling cap, after which sampling
// fails with ErrSamplingUnsuccessful.
func ParametersSamples(d Distribution, rng *core.RNG, params []SampleConverter, n int) ([][]core.Datum, error) {
	if _, err := core.CheckType(d, core.ObjectTypeDistribution); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative sample count %d", core.ErrInvalidValue, n)
	}
	if len(params) != d.Dimension() {
		return nil, fmt.Errorf("%w: %d parameters for a distribution of dimension %d",
			core.ErrInvalidValue, len(params), d.Dimension())
	}
	targets := make([]core.Interval, len(params))
	for i, p := range params {
		if _, err := core.Check(p); err != nil {
			return nil, err
		}
		iv, err := p.SamplingInterval()
		if err != nil {
			return nil, err
		}
		targets[i] = iv
	}
	oversampling, err := d.CheckOversampling(targets)
	if err != nil {
		return nil, err
	}
	rows := make([][]core.Datum, 0, n)
	if n == 0 {
		return rows, nil
	}

	cfg := core.Config()
	factor := 1
	for {
		want := n - len(rows)
		batch, err := drawConverted(d, rng, params, oversampling, want*factor)
		if err != nil {
			return nil, err
		}
		accepted := 0
		for _, row := range batch {
			if len(rows) == n {
				break
			}
			if hasInactive(row) {
				continue
			}
			rows = append(rows, row)
			accepted++
		}
		if rejected := len(batch) - accepted; rejected > 0 && len(rows) < n {
			metrics.OversamplingRejectionsTotal.WithLabelValues(d.Kind().String()).Add(float64(rejected))
		}
		if len(rows) == n {
			return rows, nil
		}
		if factor == 1 {
			factor = cfg.InitialOversamplingFactor
		} else {
			factor *= 2
		}
		if factor > cfg.MaxOversamplingFactor {
			metrics.SamplingFailuresTotal.WithLabelValues("parameters").Inc()
			return nil, fmt.Errorf("%w: %d of %d samples fell inside the parameter domains",
				core.ErrSamplingUnsuccessful, len(rows), n)
		}
		logging.Logger().V(logging.DEBUG).Info("Re-sampling out of domain values",
			"distribution", d.Kind().String(),
			"missing", n-len(rows),
			"factor", factor)
	}
}

// drawConverted draws n samples and converts every dimension, returning rows.
func drawConverted(d Distribution, rng *core.RNG, params []SampleConverter, oversampling []bool, n int) ([][]core.Datum, error) {
	cols := newColumns(len(params), n)
	if err := d.SoaSamples(rng, n, cols); err != nil {
		return nil, err
	}
	rows := make([][]core.Datum, n)
	for i := range rows {
		rows[i] = make([]core.Datum, len(params))
	}
	for j, p := range params {
		values, err := p.ConvertSamples(oversampling[j], cols[j])
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			rows[i][j] = v
		}
	}
	return rows, nil
}

func hasInactive(row []core.Datum) bool {
	for _, v := range row {
		if v.IsInactive() {
			return true
		}
	}
	return false
}
