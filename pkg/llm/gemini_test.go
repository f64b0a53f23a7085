package llm_test

import (
	"context"
	"errors"

	"github.com/coachworks/agentchat/core/types"
	"github.com/coachworks/agentchat/core/usage"
	. "github.com/coachworks/agentchat/pkg/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	res      *genai.GenerateContentResponse
	err      error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.contents = contents
	f.config = config
	return f.res, f.err
}

var _ = Describe("GeminiModel", func() {
	var (
		ctx  context.Context
		gen  *fakeGenerator
		conv *types.Conversation
	)

	BeforeEach(func() {
		ctx = context.Background()
		gen = &fakeGenerator{
			res: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: genai.NewContentFromText(`{"actions": [{"type": "AGENT", "message": "Hello from Gemini"}]}`, genai.RoleModel),
				}},
				UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 40, CandidatesTokenCount: 8},
			},
		}
		conv = types.NewConversation("op-1",
			types.NewMessage(types.KindSystem, "platform"),
			types.NewMessage(types.KindSystem, "tools"),
			types.NewMessage(types.KindAgent, "hi"),
			types.NewMessage(types.KindUser, "hello"),
			types.NewMessage(types.KindToolResult, "counter is 3"),
		)
	})

	It("lifts leading system messages into the instruction", func() {
		instruction, contents := NewGeminiModel(gen, "gemini-test").Contents(conv)
		Expect(instruction).ToNot(BeNil())
		Expect(instruction.Parts[0].Text).To(Equal("platform\n\ntools"))

		Expect(contents).To(HaveLen(3))
		Expect(contents[0].Role).To(BeEquivalentTo(genai.RoleModel))
		Expect(contents[1].Role).To(BeEquivalentTo(genai.RoleUser))
		Expect(contents[2].Role).To(BeEquivalentTo(genai.RoleUser))
		Expect(contents[2].Parts[0].Text).To(Equal("[system] counter is 3"))
	})

	It("asks for JSON and parses the answer", func() {
		tracker := usage.NewMemoryTracker()
		out := NewGeminiModel(gen, "gemini-test", WithUsageTracker(tracker), WithMaxTokens(200)).Complete(ctx, conv)
		Expect(out).To(HaveLen(1))
		Expect(out[0].Text).To(Equal("Hello from Gemini"))

		Expect(gen.config.ResponseMIMEType).To(Equal("application/json"))
		Expect(gen.config.ResponseSchema).ToNot(BeNil())
		Expect(gen.config.MaxOutputTokens).To(BeEquivalentTo(200))

		u, _ := tracker.CurrentWindow(ctx, "op-1")
		Expect(u.TotalTokens).To(BeEquivalentTo(48))
	})

	It("apologizes on errors and blocked prompts", func() {
		gen.err = errors.New("quota exceeded")
		Expect(NewGeminiModel(gen, "gemini-test").Complete(ctx, conv)[0].Text).To(Equal(types.ApologyText))

		gen.err = nil
		gen.res = &genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
		}
		Expect(NewGeminiModel(gen, "gemini-test").Complete(ctx, conv)[0].Text).To(Equal(types.ApologyText))
	})
})
