package handler

import (
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const blankMessage = "This value should not be blank."

// fieldMessages overrides the default message for a field/tag pair.
var fieldMessages = map[string]string{
	"product.gt":             "Product ID must be a positive number",
	"paymentProcessor.oneof": "Need appropriate payment processor",
	"amount.gt":              "Amount must be a positive number",
	"amount.gte":             "Amount must not be negative",
}

var tagMessages = map[string]string{
	"required": blankMessage,
	"notnil":   blankMessage,
}

// FieldError is one entry of the validation failure details.
type FieldError struct {
	Field   string
	Message string
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// notnil only rejects absent or null values, leaving zero values to the
	// tags that follow it.
	if err := v.RegisterValidation("notnil", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		return f.Kind() != reflect.Ptr || !f.IsNil()
	}, true); err != nil {
		panic(err)
	}
	return v
}

// validationErrors converts validator output into FieldErrors in struct
// field order. It returns nil when err is not a validation failure.
func validationErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return msg
	}
	return "This value is not valid."
}
