package binding_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/llm-d-configspace/pkg/binding"
	"github.com/llm-d/llm-d-configspace/pkg/core"
	"github.com/llm-d/llm-d-configspace/pkg/parameter"
)

func refCount(o core.Object) int32 {
	rc, err := core.RefCount(o)
	Expect(err).NotTo(HaveOccurred())
	return rc
}

var _ = Describe("FeatureSpace", func() {
	var (
		cores *parameter.Numerical
		arch  *parameter.Categorical
		label *parameter.String
	)

	BeforeEach(func() {
		var err error
		cores, err = parameter.NewNumericalInt("cores", 1, 129, 0, 8)
		Expect(err).NotTo(HaveOccurred())
		arch, err = parameter.NewCategorical("arch", []core.Datum{core.String("x86"), core.String("arm")}, 0)
		Expect(err).NotTo(HaveOccurred())
		label, err = parameter.NewString("label")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(core.ReleaseAll[parameter.Parameter](cores, arch, label)).To(Succeed())
	})

	Context("when adding parameters", func() {
		It("indexes parameters by position, name and handle", func() {
			fs, err := binding.NewFeatureSpace("env", []parameter.Parameter{cores, arch})
			Expect(err).NotTo(HaveOccurred())
			defer core.Release(fs)

			Expect(fs.NumParameters()).To(Equal(2))
			Expect(refCount(cores)).To(Equal(int32(2)))

			p, err := fs.Parameter(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeIdenticalTo(arch))

			i, err := fs.ParameterIndexByName("cores")
			Expect(err).NotTo(HaveOccurred())
			Expect(i).To(Equal(0))

			idx, err := fs.ParameterIndexes([]parameter.Parameter{arch, cores})
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).To(Equal([]int{1, 0}))

			_, err = fs.Parameter(2)
			Expect(err).To(MatchError(core.ErrOutOfBounds))
			_, err = fs.ParameterByName("missing")
			Expect(err).To(MatchError(core.ErrInvalidName))
			_, err = fs.ParameterIndex(label)
			Expect(err).To(MatchError(core.ErrInvalidParameter))
		})

		It("rejects duplicate names without partial insertion", func() {
			other, err := parameter.NewNumericalFloat("cores", 0, 1, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			defer core.Release(other)

			fs, err := binding.NewFeatureSpace("env", []parameter.Parameter{label})
			Expect(err).NotTo(HaveOccurred())
			defer core.Release(fs)

			err = fs.AddParameters([]parameter.Parameter{cores, arch, other})
			Expect(err).To(MatchError(core.ErrInvalidParameter))
			Expect(fs.NumParameters()).To(Equal(1))
			Expect(refCount(cores)).To(Equal(int32(1)))
			Expect(refCount(arch)).To(Equal(int32(1)))

			Expect(fs.AddParameter(label)).To(MatchError(core.ErrInvalidParameter))
		})

		It("releases its parameters when destroyed", func() {
			fs, err := binding.NewFeatureSpace("env", []parameter.Parameter{cores, arch})
			Expect(err).NotTo(HaveOccurred())
			Expect(refCount(arch)).To(Equal(int32(2)))
			Expect(core.Release(fs)).To(Succeed())
			Expect(refCount(arch)).To(Equal(int32(1)))
		})
	})

	Context("with features", func() {
		var fs *binding.FeatureSpace

		BeforeEach(func() {
			var err error
			fs, err = binding.NewFeatureSpace("env", []parameter.Parameter{cores, arch, label})
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(core.Release(fs)).To(Succeed())
		})

		It("validates values", func() {
			_, err := binding.NewFeatures(fs, []core.Datum{core.Int(0), core.String("x86"), core.String("a")})
			Expect(err).To(MatchError(core.ErrInvalidFeatures))
			_, err = binding.NewFeatures(fs, []core.Datum{core.Int(1)})
			Expect(err).To(MatchError(core.ErrInvalidValue))

			f, err := binding.NewFeatures(fs, []core.Datum{core.Int(4), core.TransientString("arm"), core.TransientString("run")})
			Expect(err).NotTo(HaveOccurred())
			defer core.Release(f)

			v, err := f.ValueByName("arch")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(core.String("arm")))

			Expect(f.SetValue(0, core.Int(200))).To(MatchError(core.ErrInvalidFeatures))
			Expect(f.SetValue(0, core.Int(16))).To(Succeed())
			Expect(f.SetValue(3, core.Int(16))).To(MatchError(core.ErrOutOfBounds))

			buf := make([]core.Datum, 5)
			n, err := f.Values(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(3))
			Expect(buf[0]).To(Equal(core.Int(16)))
			Expect(buf[3]).To(Equal(core.None()))
			Expect(buf[4]).To(Equal(core.None()))
			_, err = f.Values(make([]core.Datum, 2))
			Expect(err).To(MatchError(core.ErrInvalidValue))
		})

		It("hashes and compares in index order", func() {
			a, err := binding.NewFeatures(fs, []core.Datum{core.Int(4), core.String("arm"), core.String("x")})
			Expect(err).NotTo(HaveOccurred())
			b, err := binding.NewFeatures(fs, []core.Datum{core.Int(4), core.String("arm"), core.String("x")})
			Expect(err).NotTo(HaveOccurred())
			c, err := binding.NewFeatures(fs, []core.Datum{core.Int(4), core.String("x86"), core.String("x")})
			Expect(err).NotTo(HaveOccurred())
			defer core.ReleaseAll(a, b, c)

			Expect(a.Equal(&b.Binding)).To(BeTrue())
			Expect(a.Hash()).To(Equal(b.Hash()))
			Expect(a.Compare(&c.Binding)).To(Equal(-1))
			Expect(c.Compare(&a.Binding)).To(Equal(1))
			Expect(a.Hash()).NotTo(Equal(c.Hash()))
		})

		It("hashes values by position", func() {
			owner, err := parameter.NewString("owner")
			Expect(err).NotTo(HaveOccurred())
			defer core.Release(owner)
			names, err := binding.NewFeatureSpace("names", []parameter.Parameter{label, owner})
			Expect(err).NotTo(HaveOccurred())
			defer core.Release(names)

			a, err := binding.NewFeatures(names, []core.Datum{core.String("x"), core.String("y")})
			Expect(err).NotTo(HaveOccurred())
			b, err := binding.NewFeatures(names, []core.Datum{core.String("y"), core.String("x")})
			Expect(err).NotTo(HaveOccurred())
			defer core.ReleaseAll(a, b)

			Expect(a.Equal(&b.Binding)).To(BeFalse())
			Expect(a.Hash()).NotTo(Equal(b.Hash()))
		})

		It("keeps its feature space alive", func() {
			f, err := binding.NewFeatures(fs, nil)
			Expect(err).To(MatchError(core.ErrInvalidFeatures), "string parameters default to none")

			fs2, err := binding.NewFeatureSpace("small", []parameter.Parameter{cores})
			Expect(err).NotTo(HaveOccurred())
			f, err = binding.NewFeatures(fs2, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(core.Release(fs2)).To(Succeed())
			Expect(fs2.Alive()).To(BeTrue())
			Expect(f.Value(0)).To(Equal(core.Int(8)))
			Expect(core.Release(f)).To(Succeed())
			Expect(fs2.Alive()).To(BeFalse())
		})

		It("round trips through serialization with a handle map", func() {
			f, err := binding.NewFeatures(fs, []core.Datum{core.Int(2), core.String("x86"), core.String("a")})
			Expect(err).NotTo(HaveOccurred())
			defer core.Release(f)

			spaceBuf, err := core.Serialize(fs)
			Expect(err).NotTo(HaveOccurred())
			featBuf, err := core.Serialize(f)
			Expect(err).NotTo(HaveOccurred())

			_, _, err = core.Deserialize(featBuf)
			Expect(err).To(MatchError(core.ErrInvalidHandle))

			handles, err := core.NewMap()
			Expect(err).NotTo(HaveOccurred())
			defer core.Release(handles)

			obj, _, err := core.Deserialize(spaceBuf, core.WithHandleMap(handles), core.WithMapHandles())
			Expect(err).NotTo(HaveOccurred())
			fs2 := obj.(*binding.FeatureSpace)
			defer core.Release(fs2)
			Expect(fs2.Name()).To(Equal("env"))
			Expect(fs2.NumParameters()).To(Equal(3))

			obj, _, err = core.Deserialize(featBuf, core.WithHandleMap(handles))
			Expect(err).NotTo(HaveOccurred())
			f2 := obj.(*binding.Features)
			defer core.Release(f2)
			Expect(f2.FeatureSpace()).To(BeIdenticalTo(fs2))
			Expect(f2.AllValues()).To(Equal(f.AllValues()))
		})
	})
})
