// Package server wires handlers, middleware and routes into an HTTP server.
//
// This is the composition point for the HTTP side: cmd/server builds the
// collaborators (store, token service, optional clients) and hands them
// over in Deps; NewRouter creates the services and handlers and mounts
// them. Keeping this out of main lets tests build the real router
// against an in-memory store.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/gameratings/internal/auth"
	"github.com/sakif/gameratings/internal/config"
	"github.com/sakif/gameratings/internal/handler"
	"github.com/sakif/gameratings/internal/middleware"
	"github.com/sakif/gameratings/internal/recommend"
	"github.com/sakif/gameratings/internal/repository"
	"github.com/sakif/gameratings/internal/service"
)

// Auth routes get a tighter per-IP budget than the rest of the API.
const (
	authRateLimitRequests = 20
	authRateLimitWindow   = time.Minute
)

// Store is the persistence the router needs: the repositories plus a
// health probe. *sqlstore.Store implements it.
type Store interface {
	repository.Store
	handler.Pinger
}

// Deps are the collaborators the router is built from. The optional ones
// are nil when their configuration is missing, and the routes that need
// them answer 503.
type Deps struct {
	Store     Store
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	Logger    *slog.Logger

	Google      handler.GoogleExchanger  // optional
	Recommender recommend.Recommender    // optional
	Cache       service.CacheInvalidator // optional
	Uploader    service.AvatarUploader   // optional
}

// NewRouter builds the chi router.
//
// ROUTES:
//
//	GET    /healthz                               → DB ping
//	GET    /metrics                               → Prometheus
//	/api/auth      register, login, logout, status, google, google/callback
//	/api/games     all, search, {gameId}  (writes behind the gate)
//	/api/reviews   create, {id}, game/{gameId}  (writes behind the gate)
//	/api/userdata  all behind the gate, {id} is the user id
//	/api/users     all behind the gate
//	/*             static files when server.static_dir is set
//
// MIDDLEWARE ORDER (outermost first):
// RequestID → RealIP → Logger → Metrics → Recoverer → CORS → RateLimit.
// Recoverer sits inside Logger and Metrics so a panic is still logged and
// counted as the 500 it becomes.
func NewRouter(cfg config.ServerConfig, d Deps) http.Handler {
	logger := d.Logger

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.RateLimit("api", cfg.RateLimitRequests, cfg.RateLimitWindow))

	// === Services ===
	authSvc := service.NewAuthService(d.Store, d.Tokens, d.Passwords, logger)
	gameSvc := service.NewGameService(d.Store.Games(), logger)
	reviewSvc := service.NewReviewService(d.Store, logger)
	userDataSvc := service.NewUserDataService(d.Store, d.Cache, logger)
	recSvc := service.NewRecommendationService(d.Store, userDataSvc, d.Recommender, logger)
	userSvc := service.NewUserService(d.Store.Users(), d.Uploader, logger)

	// === Handlers ===
	authH := handler.NewAuthHandler(authSvc, d.Google, cfg.SecureCookies, logger)
	gameH := handler.NewGameHandler(gameSvc, logger)
	reviewH := handler.NewReviewHandler(reviewSvc, logger)
	userDataH := handler.NewUserDataHandler(userDataSvc, recSvc, logger)
	userH := handler.NewUserHandler(userSvc, logger)
	healthH := handler.NewHealthHandler(d.Store, logger)

	requireAuth := auth.RequireAuth(d.Tokens, d.Store.Users(), logger)
	optionalAuth := auth.OptionalAuth(d.Tokens, d.Store.Users(), logger)

	r.Get("/healthz", healthH.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimit("auth", authRateLimitRequests, authRateLimitWindow))
			r.Post("/register", authH.HandleRegister)
			r.Post("/login", authH.HandleLogin)
			r.Post("/logout", authH.HandleLogout)
			r.With(optionalAuth).Get("/status", authH.HandleStatus)
			r.Get("/google", authH.HandleGoogleLogin)
			r.Get("/google/callback", authH.HandleGoogleCallback)
		})

		r.Route("/games", func(r chi.Router) {
			r.Get("/all", gameH.HandleList)
			r.Get("/search", gameH.HandleSearch)
			r.Get("/{gameId}", gameH.HandleGet)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/create", gameH.HandleCreate)
				r.Put("/{gameId}", gameH.HandleUpdate)
				r.Delete("/{gameId}", gameH.HandleDelete)
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/{id}", reviewH.HandleGet)
			r.Get("/game/{gameId}", reviewH.HandleListByGame)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", reviewH.HandleCreate)
				r.Put("/{id}", reviewH.HandleUpdate)
				r.Delete("/{id}", reviewH.HandleDelete)
			})
		})

		r.Route("/userdata", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", userDataH.HandleCreate)
			r.Get("/{id}", userDataH.HandleGet)
			r.Put("/{id}", userDataH.HandleUpdate)
			r.Delete("/{id}", userDataH.HandleDelete)
			r.Get("/{id}/recommendations", userDataH.HandleRecommendations)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", userH.HandleMe)
			r.Put("/me/profile-picture", userH.HandleUploadAvatar)
			r.Get("/email/{email}", userH.HandleByEmail)
			r.Get("/username/{name}", userH.HandleByName)
			r.Get("/{id}", userH.HandleGet)
			r.Put("/{id}", userH.HandleUpdate)
		})
	})

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}

// Server runs the HTTP listener and owns the resources that must be
// released after it stops.
type Server struct {
	http            *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration
	closers         []io.Closer
}

// New creates a Server for h. closers (store, redis client) are closed in
// order once the listener has drained.
func New(cfg config.ServerConfig, h http.Handler, logger *slog.Logger, closers ...io.Closer) *Server {
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second, // recommendations wait on the model
			IdleTimeout:       60 * time.Second,
		},
		logger:          logger,
		shutdownTimeout: timeout,
		closers:         closers,
	}
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully:
//  1. stop accepting connections
//  2. wait for in-flight requests, up to the shutdown timeout
//  3. close the store and other resources
func (s *Server) Start(ctx context.Context) error {
	defer s.closeAll()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", s.http.Addr))
		serverErrors <- s.http.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

func (s *Server) closeAll() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Warn("closing resource", slog.String("error", err.Error()))
		}
	}
}
