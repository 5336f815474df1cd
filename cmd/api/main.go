// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/authgate/internal/auth"
	"github.com/yourusername/authgate/internal/backend"
	"github.com/yourusername/authgate/internal/config"
	"github.com/yourusername/authgate/internal/identity"
	"github.com/yourusername/authgate/internal/logger"
	"github.com/yourusername/authgate/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if cfg.SessionSecretEphemeral {
		appLogger.Warn("SESSION_SECRET is not set, using a random secret; sessions will not survive a restart")
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)
	// 未知のフィールドを含むリクエストは拒否する
	binding.EnableDecoderDisallowUnknownFields = true

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// セッションストアの設定（署名鍵と暗号鍵は SESSION_SECRET から導出）
	release := cfg.GinMode == gin.ReleaseMode
	store, err := identity.NewCookieStore(cfg.SessionSecret, identity.CookieOptions(cfg.SessionMaxAgeSeconds, release))
	if err != nil {
		appLogger.Error("failed to create session store", "error", err)
		os.Exit(1)
	}
	router.Use(identity.Middleware(store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
	}
	router.Use(cors.New(corsConfig))

	// バックエンド接続プール
	pool, err := backend.NewPool(backend.Options{
		BaseURL:  cfg.BackendURL,
		MaxConns: cfg.BackendMaxConns,
		Timeout:  cfg.BackendTimeout(),
	}, appLogger)
	if err != nil {
		appLogger.Error("failed to create backend pool", "error", err)
		os.Exit(1)
	}

	// Prometheus 指標
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	authMetrics := metrics.New(registry)
	metrics.RegisterPool(registry, pool.InUse, pool.Capacity())

	opts := auth.Options{
		Metrics: authMetrics,
		Logger:  appLogger,
	}

	// 監査ログ（AUDIT_REDIS_URL が空なら無効）
	auditManager, err := setupAudit(cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to set up audit trail", "error", err)
		os.Exit(1)
	}
	if auditManager != nil {
		auditManager.StartWorkers()
		opts.Auditor = auditManager
		defer func() {
			if err := auditManager.Shutdown(); err != nil {
				appLogger.Warn("failed to shut down audit manager", "error", err)
			}
		}()
	} else {
		appLogger.Info("audit trail disabled")
	}

	// ルーティングの設定
	setupRoutes(router, auth.NewHandler(pool, opts), registry)

	// サーバーの起動
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("starting API server", "addr", srv.Addr, "mode", cfg.GinMode, "backend", cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			appLogger.Error("failed to start server", "error", err)
			return
		}
	case <-ctx.Done():
	}

	appLogger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("graceful shutdown failed", "error", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "authgate-api",
		"version": "0.1.0",
	})
}

// setupRoutes はヘルスチェック、指標、認証APIを登録します。
func setupRoutes(router *gin.Engine, handler *auth.Handler, registry *prometheus.Registry) {
	router.GET("/health", handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
	})))

	api := router.Group("/api/v0")
	handler.Register(api)
}
