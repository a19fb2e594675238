package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"loveletter/backend/internal/auth"
	"loveletter/backend/internal/config"
	"loveletter/backend/internal/health"
	"loveletter/backend/internal/middleware"
	"loveletter/backend/internal/monitoring"
	"loveletter/backend/internal/service"
	"loveletter/backend/internal/storage"
	"loveletter/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config        *config.Config
	AuthService   *auth.Service
	TokenService  *auth.TokenService
	LetterService *service.LetterService
	MomentService *service.MomentService
	CoupleService *service.CoupleService
	WebSocketHub  *websocket.Hub
	Metrics       *monitoring.Metrics
	RateCounters  storage.RateLimitRepository // 可为 nil，退化为进程内限流
	Health        *health.Checker             // 可为 nil
	Logger        *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	monitor := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
	router.Use(monitor.PanicRecovery())
	router.Use(monitor.HTTPMetrics())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"X-Max-Body-Size",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	authHandler := NewAuthHandler(deps.AuthService, deps.TokenService, deps.Metrics, deps.Logger)
	letterHandler := NewLetterHandler(deps.LetterService, deps.Logger)
	momentHandler := NewMomentHandler(deps.MomentService, deps.Logger)
	coupleHandler := NewCoupleHandler(deps.CoupleService, deps.Logger)

	// 创建中间件
	jwtAuth := middleware.NewJWTAuth(deps.TokenService.Manager(), deps.Logger)
	authLimit := middleware.NewRateLimiter("auth", deps.Config.RateLimit.AuthPerMinute,
		deps.RateCounters, deps.Metrics, deps.Logger)
	connectLimit := middleware.NewRateLimiter("connect", deps.Config.RateLimit.ConnectPerMinute,
		deps.RateCounters, deps.Metrics, deps.Logger)

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Health != nil {
		probe := gin.WrapH(deps.Health.Handler())
		router.GET("/live", probe)
		router.GET("/ready", probe)
	}

	// Prometheus 指标
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", authLimit.Handler(), authHandler.Register)
			authRoutes.POST("/login", authLimit.Handler(), authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", jwtAuth.RequireAuth(), authHandler.Me)
			authRoutes.PATCH("/profile", jwtAuth.RequireAuth(), authHandler.UpdateProfile)
			authRoutes.PUT("/password", jwtAuth.RequireAuth(), authHandler.ChangePassword)
		}

		// ========== Couple Routes ==========
		coupleRoutes := v1.Group("/couples")
		coupleRoutes.Use(jwtAuth.RequireAuth())
		{
			coupleRoutes.GET("/status", coupleHandler.Status)
			coupleRoutes.POST("/connect", connectLimit.Handler(), coupleHandler.Connect)
			coupleRoutes.GET("/invite-code", coupleHandler.InviteCode)
			coupleRoutes.POST("/invite-code/regenerate", coupleHandler.RegenerateInviteCode)
		}

		// ========== Letter Routes ==========
		letterRoutes := v1.Group("/letters")
		letterRoutes.Use(jwtAuth.RequireAuth())
		{
			letterRoutes.POST("", letterHandler.Send)
			letterRoutes.GET("", letterHandler.List)
			letterRoutes.GET("/archive", letterHandler.Archive)
			letterRoutes.GET("/:id", letterHandler.Get)
			letterRoutes.PATCH("/:id/read", letterHandler.MarkRead)
		}

		// ========== Moment Routes ==========
		momentRoutes := v1.Group("/moments")
		momentRoutes.Use(jwtAuth.RequireAuth())
		{
			momentRoutes.POST("", momentHandler.Create)
			momentRoutes.GET("", momentHandler.List)
			momentRoutes.GET("/upcoming", momentHandler.Upcoming)
			momentRoutes.PUT("/:id", momentHandler.Update)
			momentRoutes.DELETE("/:id", momentHandler.Delete)
		}

		// ========== WebSocket Routes ==========
		if deps.WebSocketHub != nil {
			v1.GET("/ws", websocket.HandleWebSocket(deps.WebSocketHub))
		}
	}

	return router
}
