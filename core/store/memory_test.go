package store_test

import (
	"context"
	"time"

	. "github.com/coachworks/agentchat/core/store"
	"github.com/coachworks/agentchat/core/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Memory store", func() {
	var (
		ctx   context.Context
		store *Memory
	)

	BeforeEach(func() {
		ctx = context.TODO()
		store = NewMemory()
	})

	It("returns not found for unknown ids", func() {
		_, err := store.Get(ctx, "nope")
		Expect(err).To(MatchError(types.ErrConversationNotFound))
		Expect(store.Save(ctx, types.NewConversation("op-1"))).To(MatchError(types.ErrConversationNotFound))
	})

	It("copies conversations in and out", func() {
		conv := types.NewConversation("op-1", types.NewMessage(types.KindSystem, "seed"))
		Expect(store.Create(ctx, conv)).To(Succeed())

		conv.Append(types.NewMessage(types.KindUser, "not saved"))
		got, err := store.Get(ctx, conv.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(got.Transcript).To(HaveLen(1))

		got.Append(types.NewMessage(types.KindUser, "saved"))
		Expect(store.Save(ctx, got)).To(Succeed())
		again, _ := store.Get(ctx, conv.ID)
		Expect(again.Transcript).To(HaveLen(2))
		Expect(again.Transcript[1].Text).To(Equal("saved"))
	})

	It("lists an owner's conversations newest first", func() {
		base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
		var ids []string
		for i := range 4 {
			c := types.NewConversation("op-1")
			c.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			Expect(store.Create(ctx, c)).To(Succeed())
			ids = append(ids, c.ID)
		}
		Expect(store.Create(ctx, types.NewConversation("op-2"))).To(Succeed())

		got, err := store.History(ctx, "op-1", 3)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(HaveLen(3))
		Expect(got[0].ID).To(Equal(ids[3]))
		Expect(got[2].ID).To(Equal(ids[1]))
	})
})
