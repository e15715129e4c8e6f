/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes prometheus collectors describing sampling activity
// and object lifetimes. Collectors live on a private registry so embedding
// applications decide whether and where to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "configspace"

var (
	// Registry holds every collector of the library.
	Registry = prometheus.NewRegistry()

	// SamplesTotal counts values drawn from distributions, by distribution kind.
	SamplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "samples_total",
		Help:      "Number of values drawn from distributions.",
	}, []string{"distribution"})

	// OversamplingRejectionsTotal counts samples discarded because they fell
	// outside a parameter domain, by kind of the distribution drawing them.
	OversamplingRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oversampling_rejections_total",
		Help:      "Number of samples rejected because they fell outside a parameter domain.",
	}, []string{"distribution"})

	// SamplingFailuresTotal counts sampling calls that exhausted their retry budget.
	SamplingFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sampling_failures_total",
		Help:      "Number of sampling calls that gave up after the retry budget was exhausted.",
	}, []string{"source"})

	// EvaluationsTotal counts evaluations told to tuners, by tuner name and
	// result.
	EvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_total",
		Help:      "Number of evaluations told to tuners.",
	}, []string{"tuner", "result"})

	// ParetoFrontSize is the number of optimal evaluations kept by a tuner.
	ParetoFrontSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pareto_front_size",
		Help:      "Number of non-dominated evaluations kept by a tuner.",
	}, []string{"tuner"})

	// LiveObjects tracks objects created and not yet destroyed, by object type.
	LiveObjects = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_objects",
		Help:      "Number of reference-counted objects currently alive.",
	}, []string{"type"})
)

func init() {
	Registry.MustRegister(
		SamplesTotal,
		OversamplingRejectionsTotal,
		SamplingFailuresTotal,
		EvaluationsTotal,
		ParetoFrontSize,
		LiveObjects,
	)
}
