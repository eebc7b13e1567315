package memory_test

import (
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/keepsakeco/keepsake/pkg/memory"
)

var _ = Describe("Record", func() {
	Describe("New", func() {
		It("generates an ID, creation time, and default importance", func() {
			rec := memory.New("the sky was clear", memory.KindEpisodic)

			Expect(rec.ID).NotTo(BeEmpty())
			Expect(rec.CreatedAt).NotTo(BeZero())
			Expect(rec.Importance).To(Equal(5.0))
			Expect(rec.Kind).To(Equal(memory.KindEpisodic))
		})

		It("generates unique IDs", func() {
			a := memory.New("a", memory.KindSemantic)
			b := memory.New("b", memory.KindSemantic)
			Expect(a.ID).NotTo(Equal(b.ID))
		})
	})

	Describe("Validate", func() {
		var rec *memory.Record

		BeforeEach(func() {
			rec = memory.New("content", memory.KindSemantic)
		})

		It("accepts a well-formed record", func() {
			Expect(rec.Validate()).To(Succeed())
		})

		It("rejects an empty ID", func() {
			rec.ID = ""
			Expect(rec.Validate()).To(MatchError(ContainSubstring("id")))
		})

		It("rejects an unknown kind", func() {
			rec.Kind = "procedural"
			var verr *memory.ValidationError
			Expect(errors.As(rec.Validate(), &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("kind"))
		})

		It("rejects a zero creation time", func() {
			rec.CreatedAt = time.Time{}
			Expect(rec.Validate()).To(MatchError(ContainSubstring("created_at")))
		})

		It("rejects importance outside [0, 10]", func() {
			rec.Importance = 10.5
			Expect(rec.Validate()).To(MatchError(ContainSubstring("importance")))

			rec.Importance = -0.1
			Expect(rec.Validate()).To(MatchError(ContainSubstring("importance")))
		})
	})

	Describe("ParseKind", func() {
		It("accepts the three supported kinds", func() {
			for _, s := range []string{"episodic", "semantic", "temporal"} {
				kind, err := memory.ParseKind(s)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(kind)).To(Equal(s))
			}
		})

		It("rejects unknown values", func() {
			_, err := memory.ParseKind("working")
			Expect(err).To(HaveOccurred())
		})

		It("rejects the empty string", func() {
			_, err := memory.ParseKind("")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Tier", func() {
		DescribeTable("buckets importance at 3 and 7",
			func(importance float64, want memory.Tier) {
				rec := memory.New("x", memory.KindSemantic)
				rec.Importance = importance
				Expect(rec.Tier()).To(Equal(want))
			},
			Entry("zero", 0.0, memory.TierLow),
			Entry("boundary low", 3.0, memory.TierLow),
			Entry("just above low", 3.1, memory.TierMedium),
			Entry("default", 5.0, memory.TierMedium),
			Entry("boundary medium", 7.0, memory.TierMedium),
			Entry("just above medium", 7.1, memory.TierHigh),
			Entry("max", 10.0, memory.TierHigh),
		)
	})

	Describe("ToMap / FromMap", func() {
		It("round-trips a fully populated record exactly", func() {
			accessed := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
			rec := &memory.Record{
				ID:           "rec-1",
				Content:      "met the maintainer at the conference",
				Kind:         memory.KindEpisodic,
				OwnerID:      "agent-7",
				SessionID:    "sess-42",
				CreatedAt:    time.Date(2025, 5, 30, 9, 0, 0, 123456789, time.UTC),
				Metadata:     map[string]any{"location": "berlin", "confidence": 0.9},
				Embedding:    []float32{0.1, -0.2, 0.3},
				Importance:   8.5,
				Tags:         []string{"travel", "people", "travel"},
				LastAccessed: &accessed,
			}

			got, err := memory.FromMap(rec.ToMap())
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(rec))
		})

		It("keeps absent optional fields absent", func() {
			rec := memory.New("bare", memory.KindTemporal)

			got, err := memory.FromMap(rec.ToMap())
			Expect(err).NotTo(HaveOccurred())
			Expect(got.OwnerID).To(BeEmpty())
			Expect(got.SessionID).To(BeEmpty())
			Expect(got.Metadata).To(BeNil())
			Expect(got.Embedding).To(BeNil())
			Expect(got.Tags).To(BeNil())
			Expect(got.LastAccessed).To(BeNil())
		})

		It("preserves tag order and duplicates", func() {
			rec := memory.New("tagged", memory.KindSemantic)
			rec.Tags = []string{"b", "a", "b"}

			got, err := memory.FromMap(rec.ToMap())
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Tags).To(Equal([]string{"b", "a", "b"}))
		})

		It("survives a JSON round-trip of the map", func() {
			rec := memory.New("jsonable", memory.KindSemantic)
			rec.Embedding = []float32{0.25, 0.5}
			rec.Metadata = map[string]any{"k": "v"}

			encoded, err := json.Marshal(rec.ToMap())
			Expect(err).NotTo(HaveOccurred())

			var decoded map[string]any
			Expect(json.Unmarshal(encoded, &decoded)).To(Succeed())

			got, err := memory.FromMap(decoded)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(rec.ID))
			Expect(got.Embedding).To(Equal(rec.Embedding))
			Expect(got.Metadata).To(Equal(rec.Metadata))
		})

		It("generates a fresh ID when the map has none", func() {
			m := memory.New("anonymous", memory.KindSemantic).ToMap()
			delete(m, "id")

			first, err := memory.FromMap(m)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.ID).NotTo(BeEmpty())
			Expect(first.Validate()).To(Succeed())

			second, err := memory.FromMap(m)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID).NotTo(Equal(first.ID))
		})

		It("defaults importance when the key is missing", func() {
			m := memory.New("x", memory.KindSemantic).ToMap()
			delete(m, "importance")

			got, err := memory.FromMap(m)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Importance).To(Equal(5.0))
		})

		It("rejects a map with an unknown kind", func() {
			m := memory.New("x", memory.KindSemantic).ToMap()
			m["kind"] = "imaginary"

			_, err := memory.FromMap(m)
			Expect(err).To(HaveOccurred())
		})

		It("rejects a map without created_at", func() {
			m := memory.New("x", memory.KindSemantic).ToMap()
			delete(m, "created_at")

			_, err := memory.FromMap(m)
			Expect(err).To(HaveOccurred())
		})
	})
})
