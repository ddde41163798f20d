package serverutils

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest checks struct tags and returns a 400 APIError naming the
// first failing field.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			return NewAPIError(fiber.StatusBadRequest,
				fmt.Sprintf("Field '%s' failed on the '%s' rule", fe.Field(), fe.Tag()))
		}
		return NewAPIError(fiber.StatusBadRequest, "Invalid request payload")
	}
	return nil
}
