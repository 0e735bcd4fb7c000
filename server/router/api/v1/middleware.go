package v1

import (
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studydeck/server/auth"
	apperrors "github.com/hrygo/studydeck/server/internal/errors"
	"github.com/hrygo/studydeck/server/internal/observability"
)

// requestContext attaches an observability.RequestContext to the request and
// records its outcome in the metrics.
func (s *APIV1Service) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		operation := req.Method + " " + c.Path()

		var reqCtx *observability.RequestContext
		if id := req.Header.Get(echo.HeaderXRequestID); id != "" {
			reqCtx = observability.NewRequestContextWithID(slog.Default(), id, operation, 0)
		} else {
			reqCtx = observability.NewRequestContext(slog.Default(), operation, 0)
		}
		c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)
		c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))

		err := next(c)

		failed := err != nil && apperrors.HTTPStatus(apperrors.CodeOf(err)) >= 500
		s.Metrics.RecordRequest(operation, reqCtx.Duration(), failed)
		if err != nil {
			reqCtx.Debug("request failed",
				slog.String(observability.LogFieldErrorCode, string(apperrors.CodeOf(err))),
				slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
			)
		}
		return err
	}
}

// authenticate resolves the bearer token to the current learner.
func (s *APIV1Service) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		userID, err := s.authenticator.Authenticate(req.Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return apperrors.Unauthorized("authentication required")
		}
		ctx := auth.WithUserID(req.Context(), userID)
		if reqCtx, ok := observability.FromContext(ctx); ok {
			reqCtx.UserID = userID
		}
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

// userKey rate limits authenticated learners individually.
func userKey(c echo.Context) string {
	if userID, ok := auth.UserIDFromContext(c.Request().Context()); ok {
		return "user:" + strconv.Itoa(int(userID))
	}
	return c.RealIP()
}

func currentUserID(c echo.Context) (int32, error) {
	userID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return 0, apperrors.Unauthorized("authentication required")
	}
	return userID, nil
}
