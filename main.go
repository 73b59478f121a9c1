package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apirest "github.com/duskhollow/server/api/rest"
	"github.com/duskhollow/server/api/sse"
	"github.com/duskhollow/server/audit"
	"github.com/duskhollow/server/cache"
	"github.com/duskhollow/server/config"
	dbadapter "github.com/duskhollow/server/db"
	"github.com/duskhollow/server/game/character"
	"github.com/duskhollow/server/game/dungeon"
	"github.com/duskhollow/server/game/event"
	"github.com/duskhollow/server/game/ranking"
	"github.com/duskhollow/server/imagegen"
	mw "github.com/duskhollow/server/middleware"
	"github.com/duskhollow/server/resource"
	"github.com/duskhollow/server/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}
	if cfg.Security.JWTSecret == "" {
		logger.Fatal("security.jwt_secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	st, err := dbadapter.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer st.Close()
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(st, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		RedisPrefix:     cfg.Cache.RedisPrefix,
		RedisPoolSize:   cfg.Cache.RedisPoolSize,
		RedisTimeout:    cfg.Cache.RedisTimeout,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		logger.Fatal("pubsub", zap.Error(err))
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Game data ----
	cat, err := resource.Load(cfg.Data.CatalogPath)
	if err != nil {
		logger.Fatal("catalog", zap.Error(err))
	}
	logger.Info("catalog loaded",
		zap.Int("classes", len(cat.Classes)),
		zap.Int("enemies", len(cat.Enemies)),
		zap.Int("difficulties", len(cat.Difficulties)))

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	sched.SetLocker(c)
	defer sched.Stop()

	// ---- Services ----
	bus := event.NewBus(pubsub, logger)
	board := ranking.NewBoard(c, st, logger)
	images := imagegen.New(cfg.ImageGen, nil)
	if !images.Enabled() {
		logger.Info("imagegen.api_key is not set; portrait generation is disabled")
	}
	chars := character.NewService(st, cat, cfg.Game, bus, auditSvc, logger,
		character.WithLeaderboard(board),
		character.WithDelayer(sched),
		character.WithImages(images))
	dungeons := dungeon.NewService(st, cat, cfg.Game, bus, auditSvc, logger,
		dungeon.WithLeaderboard(board))

	// ---- Periodic Scheduler Tasks ----
	if cfg.Game.RankingRefresh > 0 {
		sched.AddTicker("ranking_refresh", cfg.Game.RankingRefresh, func(ctx context.Context) error {
			_, err := board.Refresh(ctx)
			return err
		})
	}
	if cfg.Game.StaleDungeonAfter > 0 {
		// sweep four times per timeout window
		sched.AddTicker("stale_dungeons", cfg.Game.StaleDungeonAfter/4, func(ctx context.Context) error {
			_, err := dungeons.ForfeitStale(ctx, cfg.Game.StaleDungeonAfter)
			return err
		})
	}
	if _, err := board.Refresh(ctx); err != nil {
		logger.Warn("initial ranking refresh failed", zap.Error(err))
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := mw.Auth(cfg.Security, c)
	sseH := sse.NewHandler(pubsub, c, bus, st, logger)
	apirest.Mount(r.Group("/api"), apirest.Handlers{
		Auth:       apirest.NewAuthHandler(st, c, cfg.Security, logger),
		Characters: apirest.NewCharacterHandler(chars, st, logger),
		Dungeons:   apirest.NewDungeonHandler(dungeons, logger),
		Ranking:    apirest.NewRankingHandler(board, logger),
		Admin:      apirest.NewAdminHandler(st, c, sched, board, sseH, auditSvc, logger),
	}, auth, mw.IPWhitelist(cfg.Server.AdminIPs), mw.AdminKey(cfg.Server.AdminKey))
	r.GET("/sse", auth, sseH.ServeSSE)

	// ---- Browser client ----
	if cfg.Server.StaticDir != "" {
		r.Static("/assets", cfg.Server.StaticDir+"/assets")
		r.StaticFile("/", cfg.Server.StaticDir+"/index.html")
		r.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		})
		logger.Info("Serving browser client", zap.String("dir", cfg.Server.StaticDir))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
