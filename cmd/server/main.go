package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmacy-pos/internal/auth"
	"pharmacy-pos/internal/config"
	"pharmacy-pos/internal/database"
	"pharmacy-pos/internal/handlers"
	"pharmacy-pos/internal/metrics"
	"pharmacy-pos/internal/middleware"
	"pharmacy-pos/internal/models"
	"pharmacy-pos/internal/pos"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, envFound, err := config.Load()
	if err != nil {
		// No logger yet.
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if !envFound {
		log.Warn("no .env file found, using the environment only")
	}

	db, err := database.Connect(cfg.DSN, log)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("schema migration failed", zap.Error(err))
	}
	log.Info("database schema synced")

	store := database.NewStore(db, log)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	policy, _ := pos.PolicyFor(cfg.DiscountTieBreak)
	var opts []pos.Option
	if cfg.CheckoutMode == pos.CheckoutAtomic {
		opts = append(opts, pos.WithAtomicCommitter(store))
	}
	orchestrator := pos.NewOrchestrator(store, store, store, log.Named("checkout"), opts...)
	sessions := pos.NewSessionManager(pos.NewCatalogLoader(store), orchestrator, policy, log.Named("pos"),
		pos.WithIdleTimeout(cfg.SessionIdle))
	evictCtx, stopEviction := context.WithCancel(context.Background())
	defer stopEviction()
	go sessions.RunEviction(evictCtx, cfg.SessionIdle/4)
	log.Info("checkout configured",
		zap.String("mode", string(cfg.CheckoutMode)),
		zap.String("discount_tie_break", cfg.DiscountTieBreak),
		zap.Duration("timeout", cfg.CheckoutTimeout),
		zap.Duration("session_idle_timeout", cfg.SessionIdle))

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log.Named("http")))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	system := handlers.NewSystemHandler(store)
	authHandler := handlers.NewAuthHandler(store, tokens, log.Named("auth"))

	r.GET("/health", system.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.POST("/login", authHandler.Login)

	// --- FEATURE FLAG: Registration ---
	if cfg.AllowRegistration {
		r.POST("/register", authHandler.Register)
		log.Warn("registration route is OPEN, disable it in production")
	} else {
		log.Info("registration route is disabled")
	}

	// --- PROTECTED ROUTES ---
	api := r.Group("/api", middleware.AuthMiddleware(tokens))
	handlers.NewPOSHandler(sessions, store, cfg.CheckoutTimeout, log.Named("pos")).Register(api.Group("/pos"))

	admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	handlers.NewProductHandler(store, log.Named("admin")).Register(admin)
	admin.GET("/reports/sales", handlers.NewReportHandler(store).GetSalesReport)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", cfg.Addr()), zap.String("base_url", cfg.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	stopEviction()

	// Leave room for a checkout in flight to finish.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.CheckoutTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.GinMode != gin.ReleaseMode {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
