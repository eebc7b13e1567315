package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/keepsakeco/keepsake/pkg/eventstream"
	"github.com/keepsakeco/keepsake/pkg/eventstream/nop"
	"github.com/keepsakeco/keepsake/pkg/memory"
)

var _ = Describe("Publisher", func() {
	It("implements the eventstream.Publisher interface", func() {
		var _ eventstream.Publisher = (*nop.Publisher)(nil)
	})

	It("accepts events without error", func() {
		p := nop.NewPublisher()
		defer p.Close()

		rec := memory.New("ignored", memory.KindEpisodic)
		event := eventstream.NewSavedEvent("sqlite", rec)

		Expect(p.Publish(context.Background(), event)).To(Succeed())
	})

	It("rejects a nil event", func() {
		p := nop.NewPublisher()
		defer p.Close()

		Expect(p.Publish(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})
})
