package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "loveletter/backend/docs" // Swagger docs
	"loveletter/backend/internal/auth"
	"loveletter/backend/internal/config"
	"loveletter/backend/internal/health"
	"loveletter/backend/internal/logger"
	"loveletter/backend/internal/monitoring"
	"loveletter/backend/internal/pool"
	"loveletter/backend/internal/service"
	"loveletter/backend/internal/storage"
	"loveletter/backend/internal/storage/hybrid"
	"loveletter/backend/internal/storage/memory"
	redisstorage "loveletter/backend/internal/storage/redis"
	httptransport "loveletter/backend/internal/transport/http"
	"loveletter/backend/internal/websocket"
)

// @title           Dearly Backend API
// @version         1.0.0
// @description     情侣信件应用后端，提供信件、纪念日与配对接口
// @BasePath        /
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                格式: Bearer {access_token}

// main 启动 HTTP API 与后台任务（信件释放、邀请码轮换、告警巡检）。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     "",
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting dearly server",
		zap.String("version", "1.0.0"),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	//
	// 配置了数据库时使用 SQL + Redis 混合存储，
	// 否则退化为内存存储（开发环境），Redis 附属能力一并关闭。
	var (
		store        storage.Store
		redisClient  *redisstorage.Client
		sessions     storage.SessionRepository
		rateCounters storage.RateLimitRepository
		redisPing    func(ctx context.Context) error
	)

	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		redisClient, err = redisstorage.New(&cfg.Redis, log)
		if err != nil {
			panic(fmt.Sprintf("failed to connect redis: %v", err))
		}
		userCache := redisstorage.NewUserCache(redisClient, cfg.Redis.CacheTTL)

		store, err = hybrid.NewStoreWithType(&cfg.Database, userCache, log)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}

		sessions = redisstorage.NewSessionStore(redisClient)
		rateCounters = redisstorage.NewRateLimiter(redisClient)
		redisPing = redisClient.Ping

		log.Info("using database storage",
			zap.String("type", cfg.Database.Type),
			zap.String("redis_address", cfg.Redis.Address),
		)
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 初始化健康检查
	healthChecker := health.NewChecker(store, redisPing, log)

	// 初始化告警系统
	alertManager := monitoring.NewAlertManager(log)
	alertManager.AddReceiver(monitoring.NewLogAlertReceiver(log))
	alertManager.AddRule(monitoring.HighMemoryUsageRule(512.0)) // 512MB
	alertManager.AddRule(monitoring.HighGoroutineCountRule(500))
	alertManager.AddRule(monitoring.DatabaseConnectionRule(store))

	log.Info("monitoring system initialized")

	// 初始化认证服务
	authService := auth.NewService(store, cfg.Invite.CodeTTL)
	tokenService := auth.NewTokenService(&cfg.JWT, sessions)

	log.Info("JWT configuration",
		zap.String("issuer", cfg.JWT.Issuer),
		zap.Duration("access_expiry", cfg.JWT.AccessExpiry),
		zap.Duration("refresh_expiry", cfg.JWT.RefreshExpiry),
	)

	// 创建 WebSocket Hub 与通知协程池
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, tokenService.Manager(), log)
	workers := pool.NewWorkerPool(4, 256, log)

	// 初始化服务层
	letterService := service.NewLetterService(store, wsHub, workers, metrics, log)
	momentService := service.NewMomentService(store, metrics, log)
	coupleService := service.NewCoupleService(store, cfg.Invite.CodeTTL, metrics, log)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:        cfg,
		AuthService:   authService,
		TokenService:  tokenService,
		LetterService: letterService,
		MomentService: momentService,
		CoupleService: coupleService,
		WebSocketHub:  wsHub,
		Metrics:       metrics,
		RateCounters:  rateCounters,
		Health:        healthChecker,
		Logger:        log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	workers.Start(groupCtx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 预约信件释放 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(cfg.Letter.ReleaseInterval)
		defer ticker.Stop()

		log.Info("starting scheduled letter release task",
			zap.Duration("interval", cfg.Letter.ReleaseInterval))

		for {
			select {
			case <-groupCtx.Done():
				log.Info("letter release task stopped")
				return nil
			case <-ticker.C:
				count, err := letterService.ReleaseDueScheduled(groupCtx)
				if err != nil {
					log.Error("failed to release scheduled letters", zap.Error(err))
				} else if count > 0 {
					log.Info("scheduled letters released", zap.Int("count", count))
				}
			}
		}
	})

	// 过期邀请码轮换 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(cfg.Invite.RotationInterval)
		defer ticker.Stop()

		log.Info("starting invite code rotation task",
			zap.Duration("interval", cfg.Invite.RotationInterval))

		for {
			select {
			case <-groupCtx.Done():
				log.Info("invite code rotation task stopped")
				return nil
			case <-ticker.C:
				count, err := coupleService.RotateExpiredCodes(groupCtx)
				if err != nil {
					log.Error("failed to rotate expired invite codes", zap.Error(err))
				} else if count > 0 {
					log.Info("expired invite codes rotated", zap.Int("count", count))
				}
			}
		}
	})

	// 运行时指标刷新 goroutine
	group.Go(func() error {
		start := time.Now()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				metrics.UpdateUsersOnline(wsHub.OnlineUsers())
				metrics.UpdateSystemUptime(time.Since(start))
			}
		}
	})

	// 告警巡检 goroutine
	group.Go(func() error {
		log.Info("starting alert monitoring")
		alertManager.StartMonitoring(groupCtx, 1*time.Minute)
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		workers.Stop()

		if err := store.Close(); err != nil {
			log.Warn("storage close warning", zap.Error(err))
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Warn("redis close warning", zap.Error(err))
			}
		}

		log.Info("server stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
