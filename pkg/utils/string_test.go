package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Truncate", func() {
	It("leaves short content alone", func() {
		Expect(Truncate("noted", 10)).To(Equal("noted"))
	})

	It("leaves content exactly at the limit alone", func() {
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("cuts long content and marks the cut", func() {
		Expect(Truncate("the agent remembered everything", 9)).To(Equal("the agent..."))
	})

	It("handles the empty string", func() {
		Expect(Truncate("", 5)).To(BeEmpty())
	})
})
