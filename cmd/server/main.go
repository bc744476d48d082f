package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/asifZaman0362/zgm-srv/internal/v1/config"
	"github.com/asifZaman0362/zgm-srv/internal/v1/game"
	"github.com/asifZaman0362/zgm-srv/internal/v1/health"
	"github.com/asifZaman0362/zgm-srv/internal/v1/logging"
	"github.com/asifZaman0362/zgm-srv/internal/v1/middleware"
	"github.com/asifZaman0362/zgm-srv/internal/v1/room"
	"github.com/asifZaman0362/zgm-srv/internal/v1/session"
)

func main() {
	// Load .env for local development; in deployment the environment is
	// injected directly.
	if err := godotenv.Load(); err == nil {
		logging.Info(context.Background(), "loaded environment from .env")
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		logging.Error(context.Background(), "invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	development := cfg.GoEnv != "production"
	if err := logging.Initialize(development, cfg.LogLevel); err != nil {
		logging.Error(context.Background(), "failed to initialize logger", zap.Error(err))
		os.Exit(1)
	}
	ctx := context.Background()
	logging.Info(ctx, "configuration validated",
		zap.String("addr", cfg.Addr),
		zap.String("ws_path", cfg.WSPath),
		zap.Duration("hb_check_interval", cfg.HBCheckInterval),
		zap.Duration("hb_time_limit", cfg.HBTimeLimit),
		zap.Duration("reconnection_time_limit", cfg.ReconnectionTimeLimit),
		zap.Int("max_player_count", cfg.MaxPlayerCount),
	)

	// --- Core wiring ---
	roomManager := room.NewManager(room.Config{
		Public:     true,
		MaxPlayers: cfg.MaxPlayerCount,
	}, game.ModeStandard)

	sessionManager := session.NewManager(roomManager, session.Timings{
		HBCheckInterval:       cfg.HBCheckInterval,
		HBTimeLimit:           cfg.HBTimeLimit,
		ReconnectionTimeLimit: cfg.ReconnectionTimeLimit,
	}, cfg.AllowedOrigins)

	// --- HTTP surface ---
	if !development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	router.Use(cors.New(corsConfig))

	router.GET(cfg.WSPath, sessionManager.ServeWs)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthHandler := health.NewHandler(sessionManager, roomManager)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logging.Info(ctx, "server starting", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logging.Error(ctx, "failed to run server", zap.Error(err))
			os.Exit(1)
		}
	case <-quit:
		logging.Info(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error(ctx, "server forced to shutdown", zap.Error(err))
		}
	}

	logging.Info(ctx, "server exiting")
}
