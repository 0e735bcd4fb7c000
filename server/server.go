package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/studydeck/internal/profile"
	"github.com/hrygo/studydeck/plugin/progression"
	"github.com/hrygo/studydeck/server/internal/observability"
	apiv1 "github.com/hrygo/studydeck/server/router/api/v1"
	"github.com/hrygo/studydeck/server/service/review"
	"github.com/hrygo/studydeck/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

func NewServer(_ context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Store:   store,
		Profile: profile,
	}

	echoServer := echo.New()
	echoServer.Debug = true
	echoServer.HideBanner = true
	echoServer.HidePort = true
	s.echoServer = echoServer

	policy, err := progression.ParseRewardPolicy(profile.RewardPolicy)
	if err != nil {
		return nil, errors.Wrap(err, "invalid reward policy")
	}
	metrics := observability.NewMetrics(1000)
	reviewService := review.NewServiceWithConfig(review.NewStore(store), review.Config{
		DefaultTimezone: profile.Timezone,
		RewardPolicy:    policy,
		MaxAttempts:     review.DefaultMaxAttempts,
		Notifier:        review.LogNotifier{Logger: slog.Default()},
		Metrics:         metrics,
	})

	apiv1.NewAPIV1Service(profile, reviewService, metrics).Register(echoServer)
	return s, nil
}

// Start serves HTTP until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	address := net.JoinHostPort(s.Profile.Addr, fmt.Sprint(s.Profile.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", slog.String("error", err.Error()))
		}
	}()
	slog.InfoContext(ctx, "studydeck started", slog.String("address", listener.Addr().String()), slog.String("mode", s.Profile.Mode))
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}
	slog.Info("studydeck stopped properly")
}
