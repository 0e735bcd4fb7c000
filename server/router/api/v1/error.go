package v1

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/studydeck/server/internal/errors"
	"github.com/hrygo/studydeck/server/internal/observability"
)

type errorResponse struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

// handleError writes every error as {"code","message"} with the status of its code.
func (s *APIV1Service) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := errorResponse{Code: apperrors.CodeOf(err), Message: "internal error"}
	var coded *apperrors.Error
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &coded):
		resp.Message = coded.Message
	case errors.As(err, &httpErr):
		resp.Code = codeOfStatus(httpErr.Code)
		resp.Message = fmt.Sprint(httpErr.Message)
	}

	status := apperrors.HTTPStatus(resp.Code)
	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(c.Request().Context()).Error("request failed",
			slog.String(observability.LogFieldErrorCode, string(resp.Code)),
			slog.String("error", err.Error()),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, resp)
	}
	if err != nil {
		slog.Error("failed to write error response", slog.String("error", err.Error()))
	}
}

func codeOfStatus(status int) apperrors.ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return apperrors.ErrCodeInvalidArgument
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.ErrCodeUnauthorized
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperrors.ErrCodeNotFound
	case http.StatusConflict:
		return apperrors.ErrCodeConflict
	case http.StatusTooManyRequests:
		return apperrors.ErrCodeRateLimitExceeded
	default:
		return apperrors.ErrCodeInternal
	}
}

// requestValidator adapts go-playground/validator to echo.Validator.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: validate}
}

func (v *requestValidator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Param() != "" {
			return apperrors.InvalidArgument("invalid %s: must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return apperrors.InvalidArgument("invalid %s: must satisfy %s", fe.Field(), fe.Tag())
	}
	return apperrors.InvalidArgument("%s", err.Error())
}

// bindAndValidate decodes the request body into req and validates it.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperrors.InvalidArgument("malformed request body")
	}
	return c.Validate(req)
}
