package db_test

import (
	"context"

	. "github.com/coachworks/agentchat/db"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("UsageTracker", func() {
	It("sums the current window per owner", func() {
		ctx := context.Background()
		tracker := NewUsageTracker(openTestDB())

		Expect(tracker.Record(ctx, "op-1", 100, 20)).To(Succeed())
		Expect(tracker.Record(ctx, "op-1", 50, 5)).To(Succeed())
		Expect(tracker.Record(ctx, "op-2", 1, 1)).To(Succeed())

		u, err := tracker.CurrentWindow(ctx, "op-1")
		Expect(err).ToNot(HaveOccurred())
		Expect(u.Owner).To(Equal("op-1"))
		Expect(u.InputTokens).To(BeEquivalentTo(150))
		Expect(u.OutputTokens).To(BeEquivalentTo(25))
		Expect(u.TotalTokens).To(BeEquivalentTo(175))
		Expect(u.Calls).To(BeEquivalentTo(2))

		empty, err := tracker.CurrentWindow(ctx, "op-3")
		Expect(err).ToNot(HaveOccurred())
		Expect(empty.Calls).To(BeZero())
	})
})
