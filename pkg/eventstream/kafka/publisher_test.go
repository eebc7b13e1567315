package kafka_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/keepsakeco/keepsake/pkg/eventstream"
	"github.com/keepsakeco/keepsake/pkg/eventstream/kafka"
	"github.com/keepsakeco/keepsake/pkg/logger"
)

var _ = Describe("Publisher", func() {
	It("implements the eventstream.Publisher interface", func() {
		var _ eventstream.Publisher = (*kafka.Publisher)(nil)
	})

	Describe("NewPublisher", func() {
		It("requires at least one broker", func() {
			_, err := kafka.NewPublisher(kafka.Config{Topic: "events"}, logger.Nop())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("broker"))
		})

		It("requires a topic", func() {
			_, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}}, logger.Nop())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("topic"))
		})

		It("constructs without contacting the brokers", func() {
			// The writer connects lazily, so an unreachable broker is fine
			// until the first Publish.
			p, err := kafka.NewPublisher(kafka.Config{
				Brokers: []string{"127.0.0.1:1"},
				Topic:   "keepsake.memory.events",
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Close()).To(Succeed())
		})
	})

	It("rejects a nil event", func() {
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: []string{"127.0.0.1:1"},
			Topic:   "keepsake.memory.events",
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer p.Close()

		Expect(p.Publish(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})
})
