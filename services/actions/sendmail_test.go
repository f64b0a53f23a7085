package actions_test

import (
	"context"
	"errors"
	"io"
	"strings"

	sasl "github.com/emersion/go-sasl"

	"github.com/coachworks/agentchat/core/action"
	. "github.com/coachworks/agentchat/services/actions"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sentMail struct {
	addr string
	auth sasl.Client
	from string
	to   []string
	body string
}

var _ = Describe("SendMailAction", func() {
	var (
		sent   []sentMail
		failOn error
		a      *SendMailAction
	)

	BeforeEach(func() {
		sent = nil
		failOn = nil
		a = NewSendMail(map[string]string{
			"smtpServer": "smtp.example.com:587",
			"username":   "bot",
			"password":   "secret",
			"email":      "assistant@example.com",
			"name":       "Coach Assistant",
		}).WithTransport(func(addr string, auth sasl.Client, from string, to []string, r io.Reader) error {
			if failOn != nil {
				return failOn
			}
			b, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			sent = append(sent, sentMail{addr: addr, auth: auth, from: from, to: to, body: string(b)})
			return nil
		})
	})

	It("requires approval", func() {
		Expect(a.PreviewRequired()).To(BeTrue())
		Expect(a.Definition().Name.String()).To(Equal("send_email"))
	})

	It("sends a markdown message as text and html", func() {
		res := a.Execute(context.TODO(), map[string]string{
			"to":             "Coach <coach@example.com>, lead@example.com",
			"subject":        "Weekly summary",
			"message":        "Hello **great** coach",
			action.CallerKey: "op-1",
		})
		Expect(res).To(Equal(SendMailSuccess))
		Expect(sent).To(HaveLen(1))

		m := sent[0]
		Expect(m.addr).To(Equal("smtp.example.com:587"))
		Expect(m.from).To(Equal("assistant@example.com"))
		Expect(m.to).To(Equal([]string{"coach@example.com", "lead@example.com"}))
		Expect(m.auth).ToNot(BeNil())
		Expect(m.body).To(ContainSubstring("Subject: Weekly summary"))
		Expect(m.body).To(ContainSubstring("Hello **great** coach"))
		Expect(m.body).To(ContainSubstring("<strong>great</strong>"))
		Expect(strings.ToLower(m.body)).To(ContainSubstring("x-operator-id: op-1"))
	})

	It("reports missing inputs without sending", func() {
		res := a.Execute(context.TODO(), map[string]string{"subject": "hi"})
		Expect(res).To(HavePrefix("Failed to send email"))
		Expect(sent).To(BeEmpty())
	})

	It("reports bad recipients", func() {
		res := a.Execute(context.TODO(), map[string]string{"to": "not an address", "message": "hi"})
		Expect(res).To(HavePrefix("Failed to send email: invalid recipient"))
	})

	It("reports delivery failures in the result", func() {
		failOn = errors.New("535 authentication failed")
		res := a.Execute(context.TODO(), map[string]string{"to": "coach@example.com", "message": "hi"})
		Expect(res).To(Equal("Failed to send email: 535 authentication failed"))
	})

	It("does not authenticate without a username", func() {
		var gotAuth sasl.Client = sasl.NewAnonymousClient("x")
		anon := NewSendMail(map[string]string{"smtpServer": "relay:25", "email": "a@example.com"}).
			WithTransport(func(_ string, auth sasl.Client, _ string, _ []string, _ io.Reader) error {
				gotAuth = auth
				return nil
			})
		Expect(anon.Execute(context.TODO(), map[string]string{"to": "coach@example.com", "message": "hi"})).To(Equal(SendMailSuccess))
		Expect(gotAuth).To(BeNil())
	})
})
