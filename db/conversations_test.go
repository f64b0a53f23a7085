package db_test

import (
	"context"
	"time"

	"github.com/coachworks/agentchat/core/types"
	. "github.com/coachworks/agentchat/db"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ConversationStore", func() {
	var (
		ctx   context.Context
		store *ConversationStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = NewConversationStore(openTestDB())
	})

	It("round trips transcripts and pending tool calls", func() {
		conv := types.NewConversation("op-1",
			types.NewMessage(types.KindSystem, "platform"),
			types.NewAgentInternal("plan", []types.PlanStep{{Step: "email", Tool: "send_email"}}),
		)
		Expect(store.Create(ctx, conv)).To(Succeed())

		call := types.NewToolExecute("", "send_email", map[string]string{"to": "coach@example.com"}, types.True)
		conv.Append(call.Clone())
		conv.Pending = []types.Message{call}
		Expect(store.Save(ctx, conv)).To(Succeed())

		got, err := store.Get(ctx, conv.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(got.Owner).To(Equal("op-1"))
		Expect(got.Transcript).To(HaveLen(3))
		Expect(got.Transcript[1].Plan[0].Tool).To(Equal("send_email"))
		Expect(got.Pending).To(HaveLen(1))
		Expect(got.Pending[0].ID).To(Equal(call.ID))
		Expect(got.Pending[0].Tool.ApprovalRequired).To(Equal(types.True))
		Expect(got.Pending[0].Tool.Approved).To(Equal(types.Unset))
		Expect(got.Suspended()).To(BeTrue())
	})

	It("reports unknown conversations", func() {
		_, err := store.Get(ctx, "00000000-0000-0000-0000-000000000000")
		Expect(err).To(MatchError(types.ErrConversationNotFound))
		_, err = store.Get(ctx, "")
		Expect(err).To(MatchError(types.ErrConversationNotFound))
	})

	It("refuses to save a conversation it never created", func() {
		conv := types.NewConversation("op-1", types.NewMessage(types.KindSystem, "platform"))
		Expect(store.Save(ctx, conv)).To(MatchError(types.ErrConversationNotFound))

		_, err := store.Get(ctx, conv.ID)
		Expect(err).To(MatchError(types.ErrConversationNotFound))
	})

	It("saves a conversation that did not change", func() {
		conv := types.NewConversation("op-1", types.NewMessage(types.KindSystem, "platform"))
		Expect(store.Create(ctx, conv)).To(Succeed())
		Expect(store.Save(ctx, conv)).To(Succeed())
		Expect(store.Save(ctx, conv)).To(Succeed())
	})

	It("lists an owner's conversations newest first", func() {
		base := time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)
		var ids []string
		for i := range 3 {
			c := types.NewConversation("op-1")
			c.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			Expect(store.Create(ctx, c)).To(Succeed())
			ids = append(ids, c.ID)
		}
		Expect(store.Create(ctx, types.NewConversation("op-2"))).To(Succeed())

		got, err := store.History(ctx, "op-1", 2)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(HaveLen(2))
		Expect(got[0].ID).To(Equal(ids[2]))
		Expect(got[1].ID).To(Equal(ids[1]))

		none, err := store.History(ctx, "", 10)
		Expect(err).ToNot(HaveOccurred())
		Expect(none).To(BeEmpty())
	})
})
