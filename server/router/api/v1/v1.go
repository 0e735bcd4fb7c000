package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/studydeck/internal/profile"
	"github.com/hrygo/studydeck/server/auth"
	"github.com/hrygo/studydeck/server/internal/observability"
	ratelimit "github.com/hrygo/studydeck/server/middleware"
	"github.com/hrygo/studydeck/server/service/review"
)

type APIV1Service struct {
	Profile       *profile.Profile
	ReviewService *review.Service
	Metrics       *observability.Metrics

	authenticator *auth.Authenticator
	limiter       *ratelimit.RateLimiter
}

func NewAPIV1Service(profile *profile.Profile, reviewService *review.Service, metrics *observability.Metrics) *APIV1Service {
	if metrics == nil {
		metrics = observability.NewMetrics(0)
	}
	return &APIV1Service{
		Profile:       profile,
		ReviewService: reviewService,
		Metrics:       metrics,
		authenticator: auth.NewAuthenticator(profile.Secret),
		limiter:       ratelimit.NewRateLimiter(profile.RateLimit, profile.RateBurst),
	}
}

// Register installs the error handler, the validator and all v1 routes on echoServer.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	echoServer.Validator = newRequestValidator()
	echoServer.HTTPErrorHandler = s.handleError

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": s.Profile.Version})
	})

	api := echoServer.Group("/api/v1",
		middleware.Recover(),
		s.requestContext,
		s.authenticate,
		ratelimit.RateLimit(s.limiter, userKey),
	)

	api.POST("/cards/:id/review", s.ReviewCard)
	api.POST("/cards/:id/skip", s.SkipCard)
	api.POST("/cards/:id/suspend", s.SuspendCard)
	api.POST("/cards/:id/resume", s.ResumeCard)
	api.GET("/cards/due", s.ListDueCards)

	api.GET("/users/me/study-profile", s.GetStudyProfile)
	api.PUT("/users/me/study-profile", s.UpdateStudyProfile)

	api.GET("/stats", s.GetStats)
	api.GET("/system/metrics/overview", s.GetMetricsOverview)
}
