package middleware

import (
	"errors"

	"github.com/bilgisen/folio/internal/logger"
	"github.com/bilgisen/folio/internal/models"
	"github.com/gofiber/fiber/v2"
)

// statusOf maps an error kind to its HTTP status
func statusOf(err error) int {
	var (
		fe        *fiber.Error
		verr      *models.ValidationError
		malformed *models.MalformedSlugError
		notFound  *models.NotFoundError
		conflict  *models.SlugConflictError
		schema    *models.SchemaError
		storeErr  *models.StoreError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &verr):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &malformed):
		return fiber.StatusBadRequest
	case errors.As(err, &notFound):
		return fiber.StatusNotFound
	case errors.As(err, &conflict):
		return fiber.StatusConflict
	case errors.As(err, &schema):
		return fiber.StatusInternalServerError
	case errors.As(err, &storeErr):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error as a JSON body with a status chosen by its kind
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := statusOf(err)

	body := fiber.Map{"error": err.Error()}

	var verr *models.ValidationError
	if errors.As(err, &verr) {
		body["error"] = "validation failed"
		body["fields"] = verr.Fields
	}

	if code >= fiber.StatusInternalServerError {
		logger.Get().Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", code).
			Msg("HTTP error")

		// internal details stay in the log
		var schema *models.SchemaError
		var storeErr *models.StoreError
		switch {
		case errors.As(err, &schema):
			body["error"] = "stored post is malformed"
		case errors.As(err, &storeErr):
			body["error"] = "post store unavailable"
		}
	}

	return c.Status(code).JSON(body)
}
