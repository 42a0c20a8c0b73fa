package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/ai"
	apihttp "github.com/GriffinCanCode/VeraDesk/backend/internal/api/http"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/api/middleware"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/api/ws"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/catalog"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/domain/adblock"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/domain/space"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/domain/surface"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/icons"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/store"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http     *http.Server
	router   *gin.Engine
	store    *store.Store
	registry *space.Registry
	surfaces *surface.Manager
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// New builds a fully wired server: store, registries, surface manager, AI
// bridge, and routes. backend is the window backend to drive; pass nil for
// the default shell-process backend.
func New(cfg *config.Config, backend surface.Backend, logger *logging.Logger) (*Server, error) {
	logger.Info("initializing control service",
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Path))

	metrics := monitoring.NewMetrics()

	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return nil, err
	}
	st.SetMetrics(metrics)

	registry, err := space.NewRegistry(st, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	filter := adblock.Default()
	if cfg.AdBlock.PatternsFile != "" {
		custom, err := adblock.LoadFile(cfg.AdBlock.PatternsFile)
		if err != nil {
			logger.Warn("blocklist override rejected, using built-in patterns",
				zap.String("file", cfg.AdBlock.PatternsFile), zap.Error(err))
		} else {
			filter = custom
			logger.Info("blocklist override loaded", zap.Int("patterns", custom.Len()))
		}
	}

	if backend == nil {
		backend = &surface.ShellBackend{Command: "vera-shell"}
	}
	keepAlive := cfg.Lifecycle.KeepAliveAllClosed || runtime.GOOS == "darwin"
	surfaces := surface.NewManager(backend, registry, st, filter, keepAlive, logger)
	surfaces.SetMetrics(metrics)

	cat, err := catalog.Load(cfg.Catalog.File)
	if err != nil {
		st.Close()
		return nil, err
	}

	iconSvc, err := icons.NewService(cfg.Icons.Dir)
	if err != nil {
		st.Close()
		return nil, err
	}

	aiClient := ai.NewClient(ai.ClientConfig{
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
	}, logger)
	chats := ai.NewConversations(aiClient, registry, ai.NewExtractor(logger), logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS())
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(registry, surfaces, cat, iconSvc, chats, logger)
	handlers.Register(router)

	streamHandler := ws.NewHandler(chats, metrics, logger)
	router.GET("/stream", streamHandler.Stream)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("control service initialized", zap.Int("catalog_apps", len(cat.Entries())))

	return &Server{
		router:   router,
		store:    st,
		registry: registry,
		surfaces: surfaces,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	s.http = &http.Server{Addr: addr, Handler: s.router}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown closes every surface, drains the HTTP server, and releases the
// store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	s.surfaces.CloseAll()

	if s.http != nil {
		drain, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(drain); err != nil {
			s.logger.Warn("http drain failed", zap.Error(err))
		}
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("store close failed", zap.Error(err))
		return err
	}

	s.logger.Sync()
	return nil
}

// Surfaces exposes the surface manager (lifecycle hooks in cmd).
func (s *Server) Surfaces() *surface.Manager {
	return s.surfaces
}
