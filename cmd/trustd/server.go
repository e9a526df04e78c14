package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"

	"github.com/michaeltrefry/Yapplr-sub003/store"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/policy"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/ratelimit"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/trust"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/visibility"
)

type Server struct {
	logger   *slog.Logger
	echo     *echo.Echo
	httpd    *http.Server
	readonly bool

	store   store.Store
	engine  *trust.Engine
	feeds   *visibility.FeedService
	limiter *ratelimit.Limiter
	policy  *policy.Policy
}

type Config struct {
	Logger   *slog.Logger
	Bind     string
	Readonly bool
	Store    store.Store
	Engine   *trust.Engine
	Feeds    *visibility.FeedService
	Limiter  *ratelimit.Limiter
	Policy   *policy.Policy
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	srv := &Server{
		logger:   logger,
		echo:     e,
		readonly: config.Readonly,
		store:    config.Store,
		engine:   config.Engine,
		feeds:    config.Feeds,
		limiter:  config.Limiter,
		policy:   config.Policy,
	}
	srv.httpd = &http.Server{
		Handler:        e,
		Addr:           config.Bind,
		ReadTimeout:    time.Minute,
		WriteTimeout:   time.Minute,
		MaxHeaderBytes: 1 * (1024 * 1024),
	}

	e.GET("/_health", srv.HandleHealthCheck)

	e.GET("/feeds/personalized", srv.HandlePersonalizedFeed)
	e.GET("/feeds/public", srv.HandlePublicFeed)

	e.GET("/users/:id/trust", srv.HandleGetTrust)
	e.GET("/users/:id/trust/history", srv.HandleGetTrustHistory)
	e.POST("/users/:id/trust/adjust", srv.HandleAdjustTrust)
	e.POST("/users/:id/trust/action", srv.HandleApplyAction)
	e.GET("/users/:id/actions/check", srv.HandleCheckAction)

	e.GET("/users/:id/ratelimit/check", srv.HandleCheckRateLimit)
	e.POST("/users/:id/ratelimit/record", srv.HandleRecordRequest)
	e.POST("/users/:id/ratelimit/block", srv.HandleBlockUser)
	e.DELETE("/users/:id/ratelimit/block", srv.HandleUnblockUser)
	e.GET("/ratelimit/stats", srv.HandleRateLimitStats)

	e.POST("/posts/:id/hide", srv.HandleHidePost)
	e.GET("/reports", srv.HandleListReports)

	return srv, nil
}

// RunAPI serves the HTTP API until the context is cancelled, then shuts down
// gracefully.
func (srv *Server) RunAPI(ctx context.Context) error {
	srv.logger.Info("starting API server", "bind", srv.httpd.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	srv.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.httpd.Shutdown(shutdownCtx)
}

func (srv *Server) RunMetrics(ctx context.Context, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	hs := &http.Server{Addr: listen, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}
