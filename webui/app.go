package webui

import (
	"context"
	"errors"
	"net/http"
	"strings"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/mudler/xlog"

	"github.com/coachworks/agentchat/core/state"
	"github.com/coachworks/agentchat/core/types"
)

const operatorHeader = "X-Operator-ID"

type App struct {
	config *Config
	*fiber.App
}

func NewApp(opts ...Option) *App {
	config := NewConfig(opts...)

	webapp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return errorJSONMessage(c, fe.Code, fe.Message)
			}
			return errorJSONMessage(c, http.StatusInternalServerError, err.Error())
		},
	})

	a := &App{
		config: config,
		App:    webapp,
	}
	a.registerRoutes(webapp)
	return a
}

func errorJSONMessage(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(struct {
		Error string `json:"error"`
	}{Error: message})
}

// chatError maps AgentChat errors onto HTTP statuses.
func chatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, types.ErrConversationNotFound):
		return errorJSONMessage(c, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrNotOwner):
		return errorJSONMessage(c, http.StatusForbidden, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errorJSONMessage(c, http.StatusServiceUnavailable, "conversation is busy, try again")
	}
	xlog.Error("Request failed", "path", c.Path(), "error", err)
	return errorJSONMessage(c, http.StatusInternalServerError, "internal error")
}

func operator(c *fiber.Ctx) (string, error) {
	op := strings.TrimSpace(c.Get(operatorHeader))
	if op == "" {
		return "", fiber.NewError(http.StatusUnauthorized, "missing "+operatorHeader+" header")
	}
	return op, nil
}

func (a *App) Initiate(c *fiber.Ctx) error {
	op, err := operator(c)
	if err != nil {
		return err
	}
	conv, err := a.config.Chat.Initiate(c.UserContext(), op)
	if err != nil {
		return chatError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(conv)
}

func (a *App) History(c *fiber.Ctx) error {
	op, err := operator(c)
	if err != nil {
		return err
	}
	entries, err := a.config.Chat.History(c.UserContext(), op)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(entries)
}

func (a *App) Transcript(c *fiber.Ctx) error {
	op, err := operator(c)
	if err != nil {
		return err
	}
	count := c.QueryInt("count", state.DefaultTranscriptCount)
	messages, err := a.config.Chat.Transcript(c.UserContext(), c.Params("id"), count, op)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(messages)
}

type submitMessageRequest struct {
	Text string `json:"text"`
}

func (a *App) SubmitMessage(c *fiber.Ctx) error {
	op, err := operator(c)
	if err != nil {
		return err
	}
	var req submitMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return fiber.NewError(http.StatusBadRequest, "text is required")
	}

	res, err := a.config.Chat.SubmitMessage(c.UserContext(), c.Params("id"), req.Text, op)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(res)
}

type submitDecisionRequest struct {
	MessageID string `json:"messageId"`
	Approved  *bool  `json:"approved"`
}

func (a *App) SubmitDecision(c *fiber.Ctx) error {
	op, err := operator(c)
	if err != nil {
		return err
	}
	var req submitDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if req.MessageID == "" {
		return fiber.NewError(http.StatusBadRequest, "messageId is required")
	}

	approved := types.Unset
	if req.Approved != nil {
		approved = types.Bool(*req.Approved)
	}

	res, err := a.config.Chat.SubmitDecision(c.UserContext(), c.Params("id"), req.MessageID, approved, op)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(res)
}

type toolInfo struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	PreviewRequired bool     `json:"previewRequired"`
	Inputs          []string `json:"inputs"`
}

func (a *App) ListTools(c *fiber.Ctx) error {
	out := []toolInfo{}
	if a.config.Tools != nil {
		for _, d := range a.config.Tools.Definitions() {
			out = append(out, toolInfo{
				Name:            d.Name.String(),
				Description:     d.Description,
				PreviewRequired: a.config.Tools.PreviewRequired(d.Name.String()),
				Inputs:          d.InputNames(),
			})
		}
	}
	return c.JSON(out)
}

func (a *App) Usage(c *fiber.Ctx) error {
	op, err := operator(c)
	if err != nil {
		return err
	}
	if a.config.Usage == nil {
		return fiber.NewError(http.StatusNotFound, "usage tracking is disabled")
	}
	u, err := a.config.Usage.CurrentWindow(c.UserContext(), op)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(u)
}
