/*
Copyright 2025.

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

package e2e

import (
	"fmt"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/llm-d-configspace/pkg/configspace"
	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/parameter"
	"github.com/llm-d/llm-d-configspace/pkg/tuner"
)

// measure stands in for a benchmark run of a serving configuration. CPU runs
// without tensor parallelism fail.
func measure(c *configspace.Configuration) (tuner.Result, []core.Datum) {
	value := func(name string) core.Datum {
		v, err := c.ValueByName(name)
		Expect(err).NotTo(HaveOccurred())
		return v
	}
	seqs := float64(value("max_num_seqs").Int())
	mem := value("gpu_memory_utilization").Float()
	tp := value("tp")
	if tp.IsInactive() {
		return tuner.ResultFailure, nil
	}
	throughput := seqs * mem * float64(tp.Int())
	latency := 10 + seqs/float64(tp.Int())
	return tuner.ResultSuccess, []core.Datum{core.Float(latency), core.Float(throughput)}
}

var _ = Describe("Tuning a serving configuration space", Ordered, func() {
	var (
		cs         *configspace.ConfigurationSpace
		objectives *tuner.ObjectiveSpace
		t          *tuner.RandomTuner
	)

	BeforeAll(func() {
		By("loading the configuration space from " + spacePath)
		var err error
		cs, err = configspace.LoadYAMLFile(spacePath)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = core.Release(cs) })

		By("declaring latency and throughput objectives")
		latency, err := parameter.NewNumericalFloat("latency", 0, 1e6, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		throughput, err := parameter.NewNumericalFloat("throughput", 0, 1e6, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		params := []parameter.Parameter{latency, throughput}
		defer func() { _ = core.ReleaseAll(params...) }()
		minLatency, err := tuner.ParseObjective("latency", tuner.Minimize, params)
		Expect(err).NotTo(HaveOccurred())
		defer core.Release(minLatency.Expression)
		maxThroughput, err := tuner.ParseObjective("throughput", tuner.Maximize, params)
		Expect(err).NotTo(HaveOccurred())
		defer core.Release(maxThroughput.Expression)
		objectives, err = tuner.NewObjectiveSpace("serving-performance", params,
			[]tuner.Objective{minLatency, maxThroughput})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = core.Release(objectives) })

		t, err = tuner.NewRandomTuner("e2e", cs, objectives)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = core.Release(t) })
	})

	It("should run ask/tell rounds over valid configurations", func() {
		for round := range rounds {
			By(fmt.Sprintf("round %d", round))
			configs, err := t.Ask(batchSize)
			Expect(err).NotTo(HaveOccurred())
			Expect(configs).To(HaveLen(batchSize))

			evals := make([]*tuner.Evaluation, 0, len(configs))
			for _, c := range configs {
				Expect(c.Check()).To(Succeed())
				backend, err := c.ValueByName("backend")
				Expect(err).NotTo(HaveOccurred())
				tp, err := c.ValueByName("tp")
				Expect(err).NotTo(HaveOccurred())
				Expect(tp.IsInactive()).To(Equal(backend.Str() == "cpu"))
				Expect(backend.Str() == "rocm" && !tp.IsInactive() && tp.Int() == 8).To(BeFalse())

				result, values := measure(c)
				ev, err := tuner.NewEvaluation(objectives, c, result, values)
				Expect(err).NotTo(HaveOccurred())
				evals = append(evals, ev)
			}
			Expect(t.Tell(evals)).To(Succeed())
			Expect(core.ReleaseAll(evals...)).To(Succeed())
			Expect(core.ReleaseAll(configs...)).To(Succeed())
		}
		Expect(t.History()).To(HaveLen(rounds * batchSize))
	})

	It("should keep a front of mutually non-dominated evaluations", func() {
		optima := t.Optimums()
		Expect(optima).NotTo(BeEmpty())
		for i, a := range optima {
			Expect(a.Result()).To(Equal(tuner.ResultSuccess))
			for j, b := range optima {
				if i == j {
					continue
				}
				c, err := a.Compare(b)
				Expect(err).NotTo(HaveOccurred())
				Expect(c).To(Equal(tuner.NotComparable))
			}
		}
		for _, ev := range t.History() {
			for _, opt := range optima {
				c, err := ev.Compare(opt)
				Expect(err).NotTo(HaveOccurred())
				Expect(c).NotTo(Equal(tuner.Better))
			}
		}
	})

	It("should suggest one of the optimal configurations", func() {
		c, err := t.Suggest()
		Expect(err).NotTo(HaveOccurred())
		defer core.Release(c)
		var configs []*configspace.Configuration
		for _, opt := range t.Optimums() {
			configs = append(configs, opt.Configuration())
		}
		Expect(configs).To(ContainElement(BeIdenticalTo(c)))
	})

	It("should persist and restore the tuner", func() {
		path := filepath.Join(GinkgoT().TempDir(), "tuner.bin")
		Expect(core.SerializeToFile(t, path)).To(Succeed())

		obj, err := core.DeserializeFromFile(path)
		Expect(err).NotTo(HaveOccurred())
		defer core.Release(obj)
		restored, ok := obj.(*tuner.RandomTuner)
		Expect(ok).To(BeTrue())

		Expect(restored.ConfigurationSpace().Name()).To(Equal(cs.Name()))
		Expect(restored.ConfigurationSpace().NumParameters()).To(Equal(cs.NumParameters()))
		Expect(restored.History()).To(HaveLen(len(t.History())))
		Expect(restored.Optimums()).To(HaveLen(len(t.Optimums())))

		By("continuing to tune the restored copy")
		configs, err := restored.Ask(batchSize)
		Expect(err).NotTo(HaveOccurred())
		defer core.ReleaseAll(configs...)
		for _, c := range configs {
			Expect(c.Check()).To(Succeed())
		}
	})
})
