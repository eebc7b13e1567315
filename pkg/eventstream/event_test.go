package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/keepsakeco/keepsake/pkg/eventstream"
	"github.com/keepsakeco/keepsake/pkg/memory"
)

var _ = Describe("MemoryChangedEvent", func() {
	Describe("NewSavedEvent", func() {
		It("carries the record and a fresh identity", func() {
			rec := memory.New("something worth remembering", memory.KindSemantic)

			event := eventstream.NewSavedEvent("sqlite", rec)

			Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
			Expect(event.EventType).To(Equal(eventstream.EventTypeMemorySaved))
			Expect(event.EventID).NotTo(BeEmpty())
			Expect(event.EmittedAt).To(BeTemporally("~", time.Now(), time.Minute))
			Expect(event.Backend).To(Equal("sqlite"))
			Expect(event.RecordID).To(Equal(rec.ID))
			Expect(event.Record).To(Equal(rec))
		})

		It("gives every event a distinct ID", func() {
			rec := memory.New("once", memory.KindEpisodic)
			first := eventstream.NewSavedEvent("sqlite", rec)
			second := eventstream.NewSavedEvent("sqlite", rec)
			Expect(first.EventID).NotTo(Equal(second.EventID))
		})
	})

	Describe("NewDeletedEvent", func() {
		It("carries only the record ID", func() {
			event := eventstream.NewDeletedEvent("postgres", "rec-123")

			Expect(event.EventType).To(Equal(eventstream.EventTypeMemoryDeleted))
			Expect(event.Backend).To(Equal("postgres"))
			Expect(event.RecordID).To(Equal("rec-123"))
			Expect(event.Record).To(BeNil())
		})
	})

	It("serializes with stable wire keys and omits the record when absent", func() {
		event := eventstream.NewDeletedEvent("qdrant", "rec-9")

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]any
		Expect(json.Unmarshal(payload, &decoded)).To(Succeed())
		Expect(decoded).To(HaveKey("schema_version"))
		Expect(decoded).To(HaveKey("event_type"))
		Expect(decoded).To(HaveKey("event_id"))
		Expect(decoded).To(HaveKey("emitted_at"))
		Expect(decoded).To(HaveKey("backend"))
		Expect(decoded).To(HaveKey("record_id"))
		Expect(decoded).NotTo(HaveKey("record"))
	})
})
