package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/bilgisen/folio/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const bodyKey = "validatedBody"

// Validator checks request bodies against their struct tags
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports fields by their JSON names
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate returns a *models.ValidationError listing every failing field
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		msg := "failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fields = append(fields, models.FieldError{Field: field, Message: msg})
	}
	return &models.ValidationError{Fields: fields}
}

// ValidateBody parses the JSON body into a fresh T, validates it and stores it for Body
func ValidateBody[T any](v *Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := new(T)
		if err := c.BodyParser(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}

		if err := v.Validate(body); err != nil {
			return err
		}

		c.Locals(bodyKey, body)
		return c.Next()
	}
}

// Body returns the body stored by ValidateBody
func Body[T any](c *fiber.Ctx) *T {
	body, _ := c.Locals(bodyKey).(*T)
	return body
}
