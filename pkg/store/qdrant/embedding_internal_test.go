package qdrant

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/keepsakeco/keepsake/pkg/embeddings"
	"github.com/keepsakeco/keepsake/pkg/memory"
	testutils "github.com/keepsakeco/keepsake/pkg/utils/test"
)

var _ = Describe("ensureEmbedding", func() {
	var (
		s        *Store
		embedder *testutils.MockEmbedder
		ctx      context.Context
	)

	BeforeEach(func() {
		embedder = testutils.NewMockEmbedder(8)
		s = &Store{embedder: embedder, dims: 8, logger: zap.NewNop()}
		ctx = context.Background()
	})

	It("generates an embedding for a record without one", func() {
		rec := memory.New("needs a vector", memory.KindSemantic)
		Expect(rec.Embedding).To(BeNil())

		Expect(s.ensureEmbedding(ctx, rec)).To(Succeed())
		Expect(rec.Embedding).To(HaveLen(8))
	})

	It("re-generates a wrong-length embedding instead of truncating or padding", func() {
		want := []float32{9, 8, 7, 6, 5, 4, 3, 2}
		embedder.Embeddings["short vector"] = want

		rec := memory.New("short vector", memory.KindSemantic)
		rec.Embedding = []float32{1, 2, 3, 4}

		Expect(s.ensureEmbedding(ctx, rec)).To(Succeed())
		Expect(rec.Embedding).To(Equal(want))
	})

	It("leaves a correct-length embedding alone without calling the embedder", func() {
		rec := memory.New("already embedded", memory.KindSemantic)
		rec.Embedding = []float32{1, 2, 3, 4, 5, 6, 7, 8}
		embedder.FailOn = rec.Content

		Expect(s.ensureEmbedding(ctx, rec)).To(Succeed())
		Expect(rec.Embedding).To(Equal([]float32{1, 2, 3, 4, 5, 6, 7, 8}))
	})

	It("fails when the embedder output disagrees with the collection dimensionality", func() {
		s.embedder = testutils.NewMockEmbedder(5)

		rec := memory.New("mismatched model", memory.KindSemantic)
		err := s.ensureEmbedding(ctx, rec)
		Expect(err).To(MatchError(embeddings.ErrDimensionMismatch))
		Expect(rec.Embedding).To(BeNil())
	})
})

var _ = Describe("Save preconditions", func() {
	It("rejects a record whose ID is not a UUID before touching the server", func() {
		s := &Store{embedder: testutils.NewMockEmbedder(8), dims: 8, logger: zap.NewNop()}

		rec := memory.New("opaque ID elsewhere, uuid here", memory.KindSemantic)
		rec.ID = "custom-key-1"

		Expect(s.Save(context.Background(), rec)).To(BeFalse())
	})
})
