package action_test

import (
	"context"

	. "github.com/coachworks/agentchat/core/action"
	"github.com/coachworks/agentchat/core/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sashabaranov/go-openai/jsonschema"
)

type echoTool struct {
	name    string
	preview bool
	got     map[string]string
	panics  bool
}

func (e *echoTool) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        types.ToolName(e.name),
		Description: "echoes its input",
		Properties: map[string]jsonschema.Definition{
			"text": {Type: jsonschema.String},
		},
	}
}

func (e *echoTool) PreviewRequired() bool { return e.preview }

func (e *echoTool) Execute(_ context.Context, inputs map[string]string) string {
	if e.panics {
		panic("boom")
	}
	e.got = inputs
	return "echo: " + inputs["text"]
}

var _ = Describe("Registry", func() {
	var (
		echo   *echoTool
		mailer *echoTool
		reg    *Registry
	)

	BeforeEach(func() {
		echo = &echoTool{name: "echo"}
		mailer = &echoTool{name: "send_email", preview: true}
		var err error
		reg, err = NewRegistry(echo, mailer)
		Expect(err).ToNot(HaveOccurred())
	})

	It("keeps registration order", func() {
		Expect(reg.Names()).To(Equal([]string{"echo", "send_email"}))
		defs := reg.Definitions()
		Expect(defs).To(HaveLen(2))
		Expect(defs[0].Name.String()).To(Equal("echo"))
	})

	It("refuses duplicate names", func() {
		Expect(reg.Register(&echoTool{name: "echo"})).To(MatchError(ErrToolAlreadyRegistered))
	})

	It("reports the default approval policy", func() {
		Expect(reg.PreviewRequired("send_email")).To(BeTrue())
		Expect(reg.PreviewRequired("echo")).To(BeFalse())
		Expect(reg.PreviewRequired("missing")).To(BeFalse())
	})

	It("injects the caller over whatever the model sent", func() {
		res := reg.Execute(context.TODO(), "echo", map[string]string{"text": "hi", CallerKey: "spoofed"}, "op-1")
		Expect(res).To(Equal("echo: hi"))
		Expect(Params(echo.got).Caller()).To(Equal("op-1"))
	})

	It("does not mutate the inputs it was given", func() {
		inputs := map[string]string{"text": "hi"}
		reg.Execute(context.TODO(), "echo", inputs, "op-1")
		Expect(inputs).ToNot(HaveKey(CallerKey))
	})

	It("describes unknown tools in the result", func() {
		res := reg.Execute(context.TODO(), "launch_rocket", nil, "op-1")
		Expect(res).To(ContainSubstring(`"launch_rocket" is not available`))
		Expect(res).To(ContainSubstring("echo, send_email"))
		_, err := reg.Lookup("launch_rocket")
		Expect(err).To(MatchError(ErrToolNotRegistered))
	})

	It("turns a panic into a failure text", func() {
		echo.panics = true
		Expect(reg.Execute(context.TODO(), "echo", nil, "op-1")).To(Equal(`Tool "echo" failed unexpectedly.`))
	})
})

var _ = Describe("Params", func() {
	It("decodes into a struct", func() {
		var v struct {
			To      string `json:"to"`
			Subject string `json:"subject"`
		}
		Expect(Params{"to": "a@b.c", "subject": "hi"}.Unmarshal(&v)).To(Succeed())
		Expect(v.To).To(Equal("a@b.c"))
		Expect(v.Subject).To(Equal("hi"))
	})
})
