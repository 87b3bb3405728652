package server

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	casedomain "github.com/macfixkou/repair-manager/internal/repaircase/domain"
)

var validatorsOnce sync.Once

// registerValidators installs the enum tags on gin's validator and makes field
// errors report JSON names. Blank values pass; required-ness is the service's call.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("case_status", enumValidator(func(s string) bool {
			return casedomain.Status(s).Valid()
		}))
		_ = v.RegisterValidation("case_outcome", enumValidator(func(s string) bool {
			return casedomain.Outcome(s).Valid()
		}))
		_ = v.RegisterValidation("final_decision", enumValidator(func(s string) bool {
			return casedomain.FinalDecision(s).Valid()
		}))
	})
}

func enumValidator(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		return value == "" || valid(value)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
		if name == "" {
			return f.Name
		}
	}
	return name
}

func fromFieldErrors(errs validator.ValidationErrors) []ValidationError {
	out := make([]ValidationError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Code:    fe.Tag(),
			Message: fieldErrorMessage(fe),
		})
	}
	return out
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "email":
		return "must be an email address"
	case "case_status", "case_outcome", "final_decision":
		return "is not a known value"
	default:
		return "invalid value"
	}
}

// bindError keeps field errors from the validator and collapses anything else
// (malformed JSON, wrong types) into a generic invalid request.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return fieldErrs
	}
	return invalidRequestError()
}
