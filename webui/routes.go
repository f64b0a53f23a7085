package webui

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"

	"github.com/dave-gray101/v2keyauth"
	fiber "github.com/gofiber/fiber/v2"
	"github.com/mudler/xlog"
)

func (a *App) registerRoutes(webapp *fiber.App) {
	webapp.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := webapp.Group("/api")
	if len(a.config.ApiKeys) > 0 {
		guard, err := a.apiKeyGuard()
		if err != nil {
			panic(err)
		}
		api.Use(guard)
	} else {
		xlog.Warn("No API keys configured, the API is open")
	}

	api.Post("/conversations", a.Initiate)
	api.Get("/conversations", a.History)
	api.Get("/conversations/:id/messages", a.Transcript)
	api.Post("/conversations/:id/messages", a.SubmitMessage)
	api.Post("/conversations/:id/decisions", a.SubmitDecision)
	api.Get("/tools", a.ListTools)
	api.Get("/usage", a.Usage)
}

// apiKeyGuard accepts a configured key as a bearer token, either in
// Authorization or in x-api-key.
func (a *App) apiKeyGuard() (fiber.Handler, error) {
	lookup, err := v2keyauth.MultipleKeySourceLookup([]string{"header:" + fiber.HeaderAuthorization, "header:x-api-key"}, "Bearer")
	if err != nil {
		return nil, fmt.Errorf("building API key lookup: %w", err)
	}

	keys := a.config.ApiKeys
	known := func(key string) bool {
		return slices.ContainsFunc(keys, func(k string) bool {
			return subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1
		})
	}

	return v2keyauth.New(v2keyauth.Config{
		CustomKeyLookup: lookup,
		AuthScheme:      "Bearer",
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if known(key) {
				return true, nil
			}
			return false, v2keyauth.ErrMissingOrMalformedAPIKey
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if !errors.Is(err, v2keyauth.ErrMissingOrMalformedAPIKey) {
				xlog.Error("API key check failed", "error", err)
				return errorJSONMessage(c, fiber.StatusInternalServerError, "internal error")
			}
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return errorJSONMessage(c, fiber.StatusUnauthorized, "missing or invalid API key")
		},
	}), nil
}
