// Package server wires the sudolite HTTP service together.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/sudolite/sudolite/auth"
	"github.com/sudolite/sudolite/config"
	"github.com/sudolite/sudolite/database"
	"github.com/sudolite/sudolite/elevation"
	"github.com/sudolite/sudolite/middleware"
	"github.com/sudolite/sudolite/tasks"
	"github.com/sudolite/sudolite/types"
)

// Server is the sudolite HTTP service plus its background sweep worker.
type Server struct {
	cfg *config.Config
	db  *database.Database

	httpServer  *http.Server
	tasksClient *tasks.Client
	tasksServer *tasks.Server
	stopSweep   chan struct{}
}

// New builds a fully wired server from configuration. Optional skip
// observers suppress guard processing for matching requests.
func New(cfg *config.Config, skipFuncs ...elevation.SkipFunc) (*Server, error) {
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	users := database.NewUserStore(db)
	audit := database.NewAuditStore(db)

	cookieStore := sessions.NewCookieStore(
		[]byte(cfg.Session.AuthenticationKey),
		[]byte(cfg.Session.EncryptionKey),
	)
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Session.CookieExpiry.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	sessionMiddleware := auth.NewSessionMiddleware(cookieStore, cfg.Session.CookieName, users)

	verifier := auth.BcryptVerifier{}
	svc := elevation.NewService(users, verifier, audit, cfg.ElevationTimeout)
	guard := elevation.NewGuard(svc, sessionMiddleware, skipFuncs...)
	elevationHandlers := elevation.NewHandlers(svc, sessionMiddleware)

	loginHandlers := auth.NewLoginHandlers(sessionMiddleware, users, verifier, audit,
		func(ctx context.Context, user *types.User, ip, userAgent string) error {
			return svc.ClearOnLogout(ctx, user, elevation.RequestMeta{IPAddress: ip, UserAgent: userAgent})
		},
	)

	router := mux.NewRouter()
	router.Use(
		middleware.Recovery(),
		middleware.Logging(log.Logger),
		middleware.Metrics(),
		sessionMiddleware.WithUser,
		guard.Middleware,
	)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/api/login", loginHandlers.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/logout", loginHandlers.LogoutHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/elevation", elevationHandlers.ActionHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/elevation/status", sessionMiddleware.RequireAuth(elevationHandlers.StatusHandler)).Methods(http.MethodGet)

	s := &Server{
		cfg: cfg,
		db:  db,
		httpServer: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	if cfg.Redis.Addr != "" {
		s.tasksClient = tasks.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		s.tasksServer = tasks.NewServer(&tasks.ServerConfig{
			RedisAddr:     cfg.Redis.Addr,
			RedisPassword: cfg.Redis.Password,
			RedisDB:       cfg.Redis.DB,
			Concurrency:   cfg.Worker.Concurrency,
		})
		s.tasksServer.Handle(elevation.TaskTypeSweep, elevation.NewSweeper(users, audit, cfg.ElevationTimeout))
	}

	return s, nil
}

// Run starts the HTTP server and the background sweep, blocking until the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.tasksServer != nil {
		if err := s.tasksServer.Start(); err != nil {
			return err
		}
		s.startSweepLoop()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return s.Shutdown()
}

// Shutdown stops the HTTP server, the sweep, and closes the database.
func (s *Server) Shutdown() error {
	log.Info().Msg("Shutting down")

	if s.stopSweep != nil {
		close(s.stopSweep)
	}
	if s.tasksServer != nil {
		s.tasksServer.Shutdown()
	}
	if s.tasksClient != nil {
		s.tasksClient.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if closeErr := s.db.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (s *Server) startSweepLoop() {
	interval := s.cfg.Worker.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	s.stopSweep = make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.tasksClient.Enqueue(elevation.TaskTypeSweep, nil); err != nil {
					log.Error().Err(err).Msg("Failed to enqueue elevation sweep")
				}
			case <-s.stopSweep:
				return
			}
		}
	}()
}
