package embeddings_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/keepsakeco/keepsake/pkg/embeddings"
)

var _ = Describe("CosineSimilarity", func() {
	It("returns 1.0 for a non-zero vector compared with itself", func() {
		v := []float32{0.3, -0.7, 0.2}
		sim, err := embeddings.CosineSimilarity(v, v)
		Expect(err).NotTo(HaveOccurred())
		Expect(sim).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("is symmetric", func() {
		a := []float32{1, 2, 3}
		b := []float32{-2, 0.5, 4}

		ab, err := embeddings.CosineSimilarity(a, b)
		Expect(err).NotTo(HaveOccurred())
		ba, err := embeddings.CosineSimilarity(b, a)
		Expect(err).NotTo(HaveOccurred())
		Expect(ab).To(Equal(ba))
	})

	It("returns 0.0 for orthogonal vectors", func() {
		sim, err := embeddings.CosineSimilarity([]float32{1, 0}, []float32{0, 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(sim).To(BeNumerically("~", 0.0, 1e-9))
	})

	It("returns -1.0 for opposite vectors", func() {
		sim, err := embeddings.CosineSimilarity([]float32{1, 1}, []float32{-1, -1})
		Expect(err).NotTo(HaveOccurred())
		Expect(sim).To(BeNumerically("~", -1.0, 1e-9))
	})

	It("returns 0.0 when either vector has zero magnitude", func() {
		sim, err := embeddings.CosineSimilarity([]float32{0, 0}, []float32{1, 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(sim).To(BeZero())

		sim, err = embeddings.CosineSimilarity([]float32{1, 2}, []float32{0, 0})
		Expect(err).NotTo(HaveOccurred())
		Expect(sim).To(BeZero())
	})

	It("fails on mismatched dimensions", func() {
		_, err := embeddings.CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
		Expect(err).To(MatchError(embeddings.ErrDimensionMismatch))
	})

	It("stays within [-1, 1]", func() {
		a := []float32{0.0001, 9999, -42}
		b := []float32{-3.5, 0.002, 17}
		sim, err := embeddings.CosineSimilarity(a, b)
		Expect(err).NotTo(HaveOccurred())
		Expect(sim).To(BeNumerically(">=", -1.0))
		Expect(sim).To(BeNumerically("<=", 1.0))
	})
})

var _ = Describe("Normalize", func() {
	It("scales a vector to unit length", func() {
		out := embeddings.Normalize([]float32{3, 4})
		sim, err := embeddings.CosineSimilarity(out, []float32{3, 4})
		Expect(err).NotTo(HaveOccurred())
		Expect(sim).To(BeNumerically("~", 1.0, 1e-6))

		var norm float64
		for _, f := range out {
			norm += float64(f) * float64(f)
		}
		Expect(norm).To(BeNumerically("~", 1.0, 1e-6))
	})

	It("returns a zero vector unchanged", func() {
		zero := []float32{0, 0, 0}
		Expect(embeddings.Normalize(zero)).To(Equal(zero))
	})
})
