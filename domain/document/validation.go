package document

import (
	"docflow/bizerror"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validateStruct collects every failing field into verr instead of stopping at the first one.
func validateStruct(s interface{}, verr *bizerror.ValidationError) {
	err := validate.Struct(s)
	if err == nil {
		return
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		verr.Add("", "invalid", err.Error())
		return
	}
	for _, fe := range fieldErrors {
		verr.Add(fe.Field(), fe.Tag(), fieldMessage(fe))
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "notblank":
		return fe.Field() + " must not be blank"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must contain at least %s entries", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must contain exactly %s entries", fe.Field(), fe.Param())
	case "url":
		return fe.Field() + " must be a valid url"
	}
	return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
}
