package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/bilgisen/folio/internal/logger"
	"github.com/gofiber/fiber/v2"
)

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
	// Next defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Validator is a function to validate the API key.
	// Required.
	Validator func(key string) (bool, error)

	// ErrorHandler defines a function which is executed for an invalid API key.
	// Optional. Default: 401 Invalid or missing API Key
	ErrorHandler fiber.ErrorHandler

	// ContextKey is the key used to store the API key in the context.
	// Optional. Default: "apiKey"
	ContextKey string

	// Header is the header key where to get the API key from.
	// Optional. Default: "X-API-Key"
	Header string
}

var (
	errMissingKey = errors.New("missing API key")
	errInvalidKey = errors.New("invalid API key")
	errNoAdminKey = errors.New("admin API key is not configured")
)

// ConfigDefault is the default config
var ConfigDefault = AuthConfig{
	Next: nil,
	ErrorHandler: func(c *fiber.Ctx, err error) error {
		logger.Get().Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Err(err).
			Msg("Authentication failed")

		status := fiber.StatusUnauthorized
		switch {
		case errors.Is(err, errInvalidKey):
			status = fiber.StatusForbidden
		case errors.Is(err, errNoAdminKey):
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	},
	ContextKey: "apiKey",
	Header:     "X-API-Key",
}

// NewAuth creates a new API key middleware handler
func NewAuth(config ...AuthConfig) fiber.Handler {
	cfg := ConfigDefault

	if len(config) > 0 {
		cfg = config[0]

		if cfg.ErrorHandler == nil {
			cfg.ErrorHandler = ConfigDefault.ErrorHandler
		}
		if cfg.ContextKey == "" {
			cfg.ContextKey = ConfigDefault.ContextKey
		}
		if cfg.Header == "" {
			cfg.Header = ConfigDefault.Header
		}
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		key := c.Get(cfg.Header)
		if key == "" {
			// fall back to a bearer token
			key = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		}
		if key == "" {
			return cfg.ErrorHandler(c, errMissingKey)
		}

		valid, err := cfg.Validator(key)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
		if !valid {
			return cfg.ErrorHandler(c, errInvalidKey)
		}

		c.Locals(cfg.ContextKey, key)
		return c.Next()
	}
}

// AdminOnly only lets requests carrying the admin API key through.
// With no admin key configured every admin request is refused.
func AdminOnly(adminKey string) fiber.Handler {
	return NewAuth(AuthConfig{
		Validator: func(key string) (bool, error) {
			if adminKey == "" {
				return false, errNoAdminKey
			}
			return subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1, nil
		},
	})
}
