package tuner

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/llm-d-configspace/pkg/configspace"
	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/parameter"
)

// fixture is a two-parameter search space measured by latency (minimized)
// and throughput (maximized).
type fixture struct {
	cs         *configspace.ConfigurationSpace
	objectives *ObjectiveSpace
	latency    parameter.Parameter
	throughput parameter.Parameter
}

func newFixture() *fixture {
	batch, err := parameter.NewNumericalInt("batch", 1, 65, 0, 8)
	Expect(err).NotTo(HaveOccurred())
	ratio, err := parameter.NewNumericalFloat("ratio", 0, 1, 0, 0.5)
	Expect(err).NotTo(HaveOccurred())
	cs, err := configspace.NewConfigurationSpace("search", []parameter.Parameter{batch, ratio})
	Expect(err).NotTo(HaveOccurred())
	Expect(core.ReleaseAll[parameter.Parameter](batch, ratio)).To(Succeed())

	latency, err := parameter.NewNumericalFloat("latency", 0, 1e9, 0, 0)
	Expect(err).NotTo(HaveOccurred())
	throughput, err := parameter.NewNumericalFloat("throughput", 0, 1e9, 0, 0)
	Expect(err).NotTo(HaveOccurred())
	params := []parameter.Parameter{latency, throughput}
	minLatency, err := ParseObjective("latency", Minimize, params)
	Expect(err).NotTo(HaveOccurred())
	maxThroughput, err := ParseObjective("throughput", Maximize, params)
	Expect(err).NotTo(HaveOccurred())
	os, err := NewObjectiveSpace("perf", params, []Objective{minLatency, maxThroughput})
	Expect(err).NotTo(HaveOccurred())
	Expect(core.ReleaseAll(minLatency.Expression, maxThroughput.Expression)).To(Succeed())

	f := &fixture{cs: cs, objectives: os, latency: latency, throughput: throughput}
	DeferCleanup(func() {
		_ = core.ReleaseAll[parameter.Parameter](latency, throughput)
		_ = core.Release(os)
		_ = core.Release(cs)
	})
	return f
}

func (f *fixture) configuration() *configspace.Configuration {
	c, err := f.cs.Sample(nil)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { _ = core.Release(c) })
	return c
}

func (f *fixture) evaluate(c *configspace.Configuration, latency, throughput float64) *Evaluation {
	ev, err := NewEvaluation(f.objectives, c, ResultSuccess, []core.Datum{core.Float(latency), core.Float(throughput)})
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { _ = core.Release(ev) })
	return ev
}

func (f *fixture) fail(c *configspace.Configuration) *Evaluation {
	ev, err := NewEvaluation(f.objectives, c, ResultFailure, nil)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { _ = core.Release(ev) })
	return ev
}

var _ = Describe("ObjectiveSpace", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture()
	})

	It("should expose its objectives in order", func() {
		Expect(f.objectives.Name()).To(Equal("perf"))
		Expect(f.objectives.NumObjectives()).To(Equal(2))
		o, err := f.objectives.Objective(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(o.Type).To(Equal(Maximize))
		Expect(o.Expression.String()).To(Equal("throughput"))
		_, err = f.objectives.Objective(2)
		Expect(err).To(MatchError(core.ErrOutOfBounds))
	})

	It("should reject an empty name", func() {
		_, err := NewObjectiveSpace("", nil, nil)
		Expect(err).To(MatchError(core.ErrInvalidName))
	})

	It("should reject a space without objectives", func() {
		_, err := NewObjectiveSpace("empty", []parameter.Parameter{f.latency}, nil)
		Expect(err).To(MatchError(core.ErrInvalidValue))
	})

	It("should reject objectives over parameters outside the space", func() {
		o, err := ParseObjective("latency + throughput", Minimize, []parameter.Parameter{f.latency, f.throughput})
		Expect(err).NotTo(HaveOccurred())
		defer core.Release(o.Expression)
		_, err = NewObjectiveSpace("partial", []parameter.Parameter{f.latency}, []Objective{o})
		Expect(err).To(MatchError(core.ErrInvalidParameter))
	})

	It("should reject unknown names when parsing", func() {
		_, err := ParseObjective("cost", Minimize, []parameter.Parameter{f.latency})
		Expect(err).To(MatchError(core.ErrInvalidName))
	})
})

var _ = Describe("Evaluation", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture()
	})

	It("should compute objectives from the measured values", func() {
		ev := f.evaluate(f.configuration(), 12.5, 300)
		values, err := ev.Objectives()
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(Equal([]core.Datum{core.Float(12.5), core.Float(300)}))
		Expect(ev.Check()).To(Succeed())
	})

	It("should reject out of domain values on success", func() {
		_, err := NewEvaluation(f.objectives, f.configuration(), ResultSuccess,
			[]core.Datum{core.Float(-1), core.Float(1)})
		Expect(err).To(MatchError(core.ErrInvalidEvaluation))
	})

	It("should accept failed runs without values", func() {
		ev := f.fail(f.configuration())
		Expect(ev.Result()).To(Equal(ResultFailure))
		v, err := ev.ValueByName("latency")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(core.None()))
	})

	DescribeTable("Compare",
		func(l1, t1, l2, t2 float64, want Comparison) {
			c := f.configuration()
			got, err := f.evaluate(c, l1, t1).Compare(f.evaluate(c, l2, t2))
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("dominating on both", 1.0, 20.0, 2.0, 10.0, Better),
		Entry("dominating on one", 1.0, 10.0, 2.0, 10.0, Better),
		Entry("dominated", 3.0, 5.0, 1.0, 10.0, Worse),
		Entry("equal", 1.0, 10.0, 1.0, 10.0, Equivalent),
		Entry("trade-off", 1.0, 5.0, 2.0, 10.0, NotComparable),
	)

	It("should never rank failed runs", func() {
		c := f.configuration()
		got, err := f.fail(c).Compare(f.evaluate(c, 1, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(NotComparable))
	})

	It("should refuse to compare across objective spaces", func() {
		g := newFixture()
		_, err := f.evaluate(f.configuration(), 1, 1).Compare(g.evaluate(g.configuration(), 1, 1))
		Expect(err).To(MatchError(core.ErrInvalidEvaluation))
	})
})

var _ = Describe("RandomTuner", func() {
	var (
		f *fixture
		t *RandomTuner
	)

	BeforeEach(func() {
		f = newFixture()
		var err error
		t, err = NewRandomTuner("random", f.cs, f.objectives)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = core.Release(t) })
	})

	It("should ask for valid configurations", func() {
		configs, err := t.Ask(16)
		Expect(err).NotTo(HaveOccurred())
		defer core.ReleaseAll(configs...)
		Expect(configs).To(HaveLen(16))
		for _, c := range configs {
			Expect(c.Check()).To(Succeed())
			Expect(c.ConfigurationSpace()).To(BeIdenticalTo(f.cs))
		}
	})

	It("should keep only non-dominated evaluations", func() {
		a := f.evaluate(f.configuration(), 1, 10)
		b := f.evaluate(f.configuration(), 2, 20)
		c := f.evaluate(f.configuration(), 3, 5)
		d := f.evaluate(f.configuration(), 1, 10)
		Expect(t.Tell([]*Evaluation{a, b, c, d})).To(Succeed())
		Expect(t.History()).To(HaveLen(4))
		Expect(t.Optimums()).To(ConsistOf(a, b))

		e := f.evaluate(f.configuration(), 0.5, 30)
		failed := f.fail(f.configuration())
		Expect(t.Tell([]*Evaluation{e, failed})).To(Succeed())
		Expect(t.History()).To(HaveLen(6))
		Expect(t.Optimums()).To(ConsistOf(e))
	})

	It("should retain told evaluations", func() {
		a := f.evaluate(f.configuration(), 1, 10)
		Expect(t.Tell([]*Evaluation{a})).To(Succeed())
		Expect(core.RefCount(a)).To(BeEquivalentTo(2))
	})

	It("should reject foreign evaluations atomically", func() {
		g := newFixture()
		ok := f.evaluate(f.configuration(), 1, 10)
		foreign := g.evaluate(g.configuration(), 1, 10)
		Expect(t.Tell([]*Evaluation{ok, foreign})).To(MatchError(core.ErrInvalidEvaluation))
		Expect(t.History()).To(BeEmpty())
	})

	It("should refuse to be told the same evaluation twice", func() {
		a := f.evaluate(f.configuration(), 1, 10)
		Expect(t.Tell([]*Evaluation{a, a})).To(MatchError(core.ErrInvalidEvaluation))
		Expect(t.Tell([]*Evaluation{a})).To(Succeed())
		Expect(t.Tell([]*Evaluation{a})).To(MatchError(core.ErrInvalidEvaluation))
		Expect(t.History()).To(HaveLen(1))
	})

	It("should reject configurations of another space", func() {
		g := newFixture()
		ev, err := NewEvaluation(f.objectives, g.configuration(), ResultSuccess,
			[]core.Datum{core.Float(1), core.Float(1)})
		Expect(err).NotTo(HaveOccurred())
		defer core.Release(ev)
		Expect(t.Tell([]*Evaluation{ev})).To(MatchError(core.ErrInvalidEvaluation))
	})

	It("should suggest a sample before any optimum is known", func() {
		c, err := t.Suggest()
		Expect(err).NotTo(HaveOccurred())
		defer core.Release(c)
		Expect(c.Check()).To(Succeed())
	})

	It("should suggest the configuration of an optimum", func() {
		best := f.configuration()
		Expect(t.Tell([]*Evaluation{
			f.evaluate(f.configuration(), 5, 5),
			f.evaluate(best, 0.1, 100),
		})).To(Succeed())
		c, err := t.Suggest()
		Expect(err).NotTo(HaveOccurred())
		defer core.Release(c)
		Expect(c).To(BeIdenticalTo(best))
	})

	It("should round trip through serialization", func() {
		rerun := f.configuration()
		Expect(t.Tell([]*Evaluation{
			f.evaluate(rerun, 1, 10),
			f.evaluate(f.configuration(), 2, 20),
			f.evaluate(f.configuration(), 3, 5),
			f.fail(f.configuration()),
			f.evaluate(rerun, 1.5, 9),
		})).To(Succeed())

		buf, err := core.Serialize(t)
		Expect(err).NotTo(HaveOccurred())
		obj, n, err := core.Deserialize(buf)
		Expect(err).NotTo(HaveOccurred())
		defer core.Release(obj)
		Expect(n).To(Equal(len(buf)))

		restored, ok := obj.(*RandomTuner)
		Expect(ok).To(BeTrue())
		Expect(restored.Name()).To(Equal("random"))
		Expect(restored.ConfigurationSpace().Name()).To(Equal("search"))
		Expect(restored.ObjectiveSpace().NumObjectives()).To(Equal(2))
		Expect(restored.History()).To(HaveLen(5))
		Expect(restored.Optimums()).To(HaveLen(2))
		Expect(restored.History()[0].Configuration()).To(BeIdenticalTo(restored.History()[4].Configuration()))

		for i, ev := range restored.History() {
			orig := t.History()[i]
			Expect(ev.Result()).To(Equal(orig.Result()))
			Expect(ev.AllValues()).To(Equal(orig.AllValues()))
			Expect(ev.Configuration().AllValues()).To(Equal(orig.Configuration().AllValues()))
			Expect(ev.Configuration().ConfigurationSpace()).To(BeIdenticalTo(restored.ConfigurationSpace()))
		}
	})
})
