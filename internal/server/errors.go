package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	attachmentdomain "github.com/macfixkou/repair-manager/internal/attachment/domain"
	auditdomain "github.com/macfixkou/repair-manager/internal/audit/domain"
	authdomain "github.com/macfixkou/repair-manager/internal/auth/domain"
	"github.com/macfixkou/repair-manager/internal/authorization"
	identitydomain "github.com/macfixkou/repair-manager/internal/identity/domain"
	orgdomain "github.com/macfixkou/repair-manager/internal/organization/domain"
	casedomain "github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInternal          = errors.New("internal_error")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidRequest    = errors.New("invalid_request")
	ErrRateLimited       = errors.New("rate_limited")
	ErrDependencyFailure = errors.New("dependency_failure")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "validation error",
			Errors:  fromFieldErrors(fieldErrs),
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrUnauthorized),
		errors.Is(err, identitydomain.ErrInvalidCredentials),
		errors.Is(err, identitydomain.ErrInvalidToken),
		errors.Is(err, casedomain.ErrInvalidOrganization),
		errors.Is(err, attachmentdomain.ErrInvalidOrganization),
		errors.Is(err, auditdomain.ErrInvalidOrganization):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidRole),
		errors.Is(err, authorization.ErrInvalidObject),
		errors.Is(err, authdomain.ErrProfileNotFound),
		errors.Is(err, casedomain.ErrNotShareable):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: forbiddenMessage(err),
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, identitydomain.ErrEmailTaken):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, attachmentdomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrDependencyFailure),
		errors.Is(err, attachmentdomain.ErrStorageFailure):
		return http.StatusBadGateway, errorPayload{
			Type:    "dependency_failure",
			Message: "upstream dependency failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded on the request log line.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	switch {
	case len(payload.Errors) > 0:
		return payload.Type, payload.Errors[0].Code
	case isDomainCode(err.Error()):
		return payload.Type, err.Error()
	default:
		return payload.Type, payload.Type
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, attachmentdomain.ErrLimitReached):
		return true
	case errors.Is(err, casedomain.ErrInvalidOrganization),
		errors.Is(err, attachmentdomain.ErrInvalidOrganization),
		errors.Is(err, auditdomain.ErrInvalidOrganization),
		errors.Is(err, identitydomain.ErrInvalidCredentials),
		errors.Is(err, identitydomain.ErrInvalidToken),
		errors.Is(err, authorization.ErrInvalidRole),
		errors.Is(err, authorization.ErrInvalidObject):
		return false
	}
	return strings.HasPrefix(err.Error(), "invalid_") && isDomainCode(err.Error())
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, casedomain.ErrNotFound),
		errors.Is(err, casedomain.ErrHistoryNotFound),
		errors.Is(err, attachmentdomain.ErrNotFound),
		errors.Is(err, orgdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// isDomainCode reports whether msg is a bare snake_case sentinel rather than a
// wrapped driver message.
func isDomainCode(msg string) bool {
	if msg == "" {
		return false
	}
	for _, r := range msg {
		if (r < 'a' || r > 'z') && r != '_' {
			return false
		}
	}
	return true
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, attachmentdomain.ErrLimitReached):
		return attachmentdomain.ErrLimitReached.Error()
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case attachmentdomain.ErrLimitReached.Error():
		return "file"
	}
	if strings.HasPrefix(code, "invalid_") {
		return snakeToCamel(strings.TrimPrefix(code, "invalid_"))
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case attachmentdomain.ErrLimitReached.Error():
		return "attachment limit reached"
	default:
		return "invalid value"
	}
}

func forbiddenMessage(err error) string {
	if errors.Is(err, casedomain.ErrNotShareable) {
		return "case is not marked for anonymous sharing"
	}
	return "forbidden"
}

func snakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
