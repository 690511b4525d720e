package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventrack-api/internal/application/dto"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Los errores reportan el nombre JSON del campo.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// decimal.Decimal se valida por su representación textual.
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "money", isMoney)
	mustRegister(v, "qty", isQuantity)
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// isMoney importe decimal no negativo.
func isMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && !d.IsNegative()
}

// isQuantity entero positivo. El rango lo revisa inventory.ParseQuantity.
func isQuantity(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && d.IsInteger() && d.IsPositive()
}

// decodeBody parsea el JSON y aplica las reglas `validate` del DTO.
// Devuelve nil si el cuerpo es válido.
func decodeBody(c *fiber.Ctx, dst any) *dto.ErrorResponse {
	if err := c.BodyParser(dst); err != nil {
		return &dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "qty" {
				return &dto.ErrorResponse{Code: "INVALID_QUANTITY", Message: fieldMessage(fe)}
			}
			return &dto.ErrorResponse{Code: "VALIDATION", Message: fieldMessage(fe)}
		}
		return &dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " es requerido"
	case "gt":
		return fe.Field() + " debe ser mayor que " + fe.Param()
	case "money":
		return fe.Field() + " no puede ser negativo"
	case "qty":
		return fe.Field() + " debe ser un entero positivo"
	case "email":
		return fe.Field() + " debe ser un email válido"
	case "min":
		return fe.Field() + " debe tener al menos " + fe.Param() + " caracteres"
	case "max":
		return fe.Field() + " admite como máximo " + fe.Param() + " caracteres"
	case "oneof":
		return fe.Field() + " debe ser uno de: " + fe.Param()
	}
	return fe.Field() + " no cumple " + fe.Tag()
}

func invalid(c *fiber.Ctx, e *dto.ErrorResponse) error {
	return c.Status(fiber.StatusBadRequest).JSON(e)
}
