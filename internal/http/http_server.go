package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/fcv-grader.net/internal/config"
	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/services/grading"
	"gitlab.com/fcv-grader.net/internal/core/services/submission"
	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/handlers"
	"gitlab.com/fcv-grader.net/internal/handlers/execution"
)

type ServiceProvider struct {
	gradingService    grading.IGradingService
	submissionService submission.ISubmissionService

	sandboxName string
	runtimes    map[domain.Language]*domain.RuntimeProfile
}

func NewServiceProvider(
	gradingService grading.IGradingService,
	submissionService submission.ISubmissionService,
	sandboxName string,
	runtimes map[domain.Language]*domain.RuntimeProfile,
) *ServiceProvider {
	return &ServiceProvider{
		gradingService:    gradingService,
		submissionService: submissionService,
		sandboxName:       sandboxName,
		runtimes:          runtimes,
	}
}

type Server struct {
	router          *mux.Router
	srv             *http.Server
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	httpCfg         *config.HttpConfig
	rateLimitCfg    *config.RateLimitConfig
	jwtCfg          *config.JwtConfig
	limiter         *handlers.RateLimiter
	stopCleanup     chan struct{}
	logger          primary.Logger
}

func NewServer(
	httpCfg *config.HttpConfig,
	rateLimitCfg *config.RateLimitConfig,
	jwtCfg *config.JwtConfig,
	serviceProvider ServiceProvider,
	logger primary.Logger,
) *Server {
	return &Server{
		Port:            httpCfg.Port,
		ServiceName:     httpCfg.ServiceName,
		ServiceProvider: serviceProvider,
		httpCfg:         httpCfg,
		rateLimitCfg:    rateLimitCfg,
		jwtCfg:          jwtCfg,
		stopCleanup:     make(chan struct{}),
		logger:          logger,
	}
}

func (s *Server) Init() error {
	if s.ServiceProvider.gradingService == nil || s.ServiceProvider.submissionService == nil {
		return errors.New("grading and submission services are required")
	}

	r := mux.NewRouter()
	middleware := handlers.New(s.jwtCfg)
	s.limiter = handlers.NewRateLimiter(s.rateLimitCfg)

	handlers.NewHealthHandler(s.ServiceName, s.ServiceProvider.sandboxName, s.ServiceProvider.runtimes).
		RegisterRoutes(r)

	api := r.NewRoute().Subrouter()
	api.Use(middleware.JWTMiddleware)
	execution.
		NewHandler(s.ServiceProvider.gradingService, s.ServiceProvider.submissionService, s.logger).
		RegisterRoutes(api, s.limiter.Middleware)

	s.router = r
	return nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) {
	// Set up server
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.httpCfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go s.limiter.RunCleanup(s.stopCleanup)

	// Start the server in a goroutine
	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr, "service", s.ServiceName)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("Shutting down http server...")
	close(s.stopCleanup)
	if s.srv == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
	}
}
