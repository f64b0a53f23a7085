package actions

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	sasl "github.com/emersion/go-sasl"
	smtp "github.com/emersion/go-smtp"
	"github.com/emersion/go-message/mail"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mudler/xlog"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/coachworks/agentchat/core/action"
	"github.com/coachworks/agentchat/core/types"
	"github.com/coachworks/agentchat/pkg/config"
)

const SendMailSuccess = "Email Sent Successfully"

// SendFunc delivers a composed message; smtp.SendMail has this shape.
type SendFunc func(addr string, a sasl.Client, from string, to []string, r io.Reader) error

func NewSendMail(cfg map[string]string) *SendMailAction {
	cfg = config.WithDefaults(SendMailConfigMeta(), cfg)
	a := &SendMailAction{
		username:     cfg["username"],
		password:     cfg["password"],
		email:        cfg["email"],
		name:         cfg["name"],
		smtpServer:   cfg["smtpServer"],
		smtpInsecure: cfg["smtpInsecure"] == "true",
	}
	if a.smtpInsecure {
		a.send = sendInsecure
	} else {
		a.send = smtp.SendMail
	}
	return a
}

type SendMailAction struct {
	username     string
	password     string
	email        string
	name         string
	smtpServer   string
	smtpInsecure bool
	send         SendFunc
}

// WithTransport replaces the SMTP delivery.
func (a *SendMailAction) WithTransport(fn SendFunc) *SendMailAction {
	a.send = fn
	return a
}

func (a *SendMailAction) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "send_email",
		Description: "Send an email. The message is written in markdown.",
		Properties: map[string]jsonschema.Definition{
			"to": {
				Type:        jsonschema.String,
				Description: "Recipient addresses, comma separated.",
			},
			"subject": {
				Type:        jsonschema.String,
				Description: "The subject of the email.",
			},
			"message": {
				Type:        jsonschema.String,
				Description: "The message to send, in markdown.",
			},
		},
		Required: []string{"to", "subject", "message"},
	}
}

// PreviewRequired is true: sending mail cannot be undone.
func (a *SendMailAction) PreviewRequired() bool { return true }

func (a *SendMailAction) Execute(ctx context.Context, inputs map[string]string) string {
	params := action.Params(inputs)
	result := struct {
		Message string `json:"message"`
		To      string `json:"to"`
		Subject string `json:"subject"`
	}{}
	if err := params.Unmarshal(&result); err != nil {
		return fmt.Sprintf("Failed to send email: invalid inputs: %v", err)
	}
	if strings.TrimSpace(result.To) == "" || strings.TrimSpace(result.Message) == "" {
		return "Failed to send email: both a recipient and a message are required."
	}

	to, err := mail.ParseAddressList(result.To)
	if err != nil {
		return fmt.Sprintf("Failed to send email: invalid recipient %q: %v", result.To, err)
	}

	body, err := a.compose(to, result.Subject, result.Message, params.Caller())
	if err != nil {
		return fmt.Sprintf("Failed to send email: %v", err)
	}

	recipients := make([]string, len(to))
	for i, addr := range to {
		recipients[i] = addr.Address
	}

	var auth sasl.Client
	if a.username != "" {
		auth = sasl.NewPlainClient("", a.username, a.password)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Sprintf("Failed to send email: %v", err)
	}
	if err := a.send(a.smtpServer, auth, a.email, recipients, bytes.NewReader(body)); err != nil {
		xlog.Error("Error sending email", "to", recipients, "error", err)
		return fmt.Sprintf("Failed to send email: %v", err)
	}

	xlog.Info("Email sent", "to", recipients, "caller", params.Caller())
	return SendMailSuccess
}

// compose builds a multipart/alternative message with the markdown source
// as the plain text part and its HTML rendering as the rich part.
func (a *SendMailAction) compose(to []*mail.Address, subject, content, caller string) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(subject)
	h.SetAddressList("From", []*mail.Address{{Name: a.name, Address: a.email}})
	h.SetAddressList("To", to)
	if caller != "" {
		h.Set("X-Operator-ID", caller)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}

	parts := []struct {
		contentType string
		body        []byte
	}{
		{"text/plain", []byte(content)},
		{"text/html", markdownToHTML(content)},
	}
	for _, p := range parts {
		var ph mail.InlineHeader
		ph.Set("Content-Type", p.contentType+"; charset=utf-8")
		w, err := tw.CreatePart(ph)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(p.body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func markdownToHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.Render(doc, renderer)
}

// sendInsecure delivers without TLS, for local relays.
func sendInsecure(addr string, auth sasl.Client, from string, to []string, r io.Reader) error {
	c, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Hello("localhost"); err != nil {
		return err
	}
	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.SendMail(from, to, r); err != nil {
		return err
	}
	return c.Quit()
}

// SendMailConfigMeta returns the metadata for send_email configuration fields
func SendMailConfigMeta() []config.Field {
	return []config.Field{
		{
			Name:     "smtpServer",
			Label:    "SMTP Host:port",
			Type:     config.FieldTypeText,
			Required: true,
			HelpText: "SMTP server host:port (e.g., smtp.gmail.com:587)",
		},
		{
			Name:         "smtpInsecure",
			Label:        "Insecure SMTP",
			Type:         config.FieldTypeCheckbox,
			DefaultValue: "false",
		},
		{
			Name:     "username",
			Label:    "SMTP Username",
			Type:     config.FieldTypeText,
			HelpText: "Leave empty for relays without authentication",
		},
		{
			Name:     "password",
			Label:    "SMTP Password",
			Type:     config.FieldTypeText,
			HelpText: "SMTP password or app password",
		},
		{
			Name:     "email",
			Label:    "From Email",
			Type:     config.FieldTypeText,
			Required: true,
			HelpText: "Sender email address",
		},
		{
			Name:     "name",
			Label:    "Friendly Name",
			Type:     config.FieldTypeText,
			HelpText: "Display name of the sender",
		},
	}
}
