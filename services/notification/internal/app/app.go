package internal

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kedoo/pkg/cache"
	"kedoo/pkg/config"
	"kedoo/pkg/identity"
	"kedoo/pkg/jwt"
	"kedoo/pkg/logger"
	"kedoo/pkg/middleware"
	"kedoo/pkg/queue"
	notificationHTTP "kedoo/services/notification/internal/controller/http"
	"kedoo/services/notification/internal/repo/persistent"
	"kedoo/services/notification/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "kedoo/services/notification/docs" // Swagger docs
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	redisClient *redis.Client
	jwtService  *jwt.Service
	queueClient *queue.Client
	httpServer  *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New()

	// the inbox lives in Redis, so unlike the other services it is required here
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v", err)
		return nil, err
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without queue)", err)
		queueClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		redisClient: redisClient,
		jwtService:  jwt.NewServiceWithTTL(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour),
		queueClient: queueClient,
	}, nil
}

func (a *App) Run() error {
	gin.SetMode(a.cfg.GinMode)

	notificationRepo := persistent.NewNotificationRepository(a.redisClient)

	var inspector usecase.QueueInspector
	if a.queueClient != nil {
		inspector = a.queueClient
	}
	notificationUseCase := usecase.NewNotificationUseCase(notificationRepo, inspector, a.log)
	notificationHandler := notificationHTTP.NewNotificationHandler(notificationUseCase, a.redisClient, a.log, a.jwtService)

	if a.queueClient != nil {
		a.log.Info("Starting notification queue processor...")
		if err := a.queueClient.ConsumeNotificationTasks(notificationUseCase.HandleTask); err != nil {
			a.log.Error("Error starting notification queue consumer: %v", err)
			return err
		}
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	// the WebSocket authenticates through its token query parameter
	api.GET("/notifications/ws", notificationHandler.HandleWebSocket)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(a.jwtService))
	protected.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute, a.log))
	{
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/queue", middleware.RequireRole(string(identity.RoleModerator)), notificationHandler.GetQueueStatus)
	}

	a.httpServer = &http.Server{
		Addr:    ":" + a.cfg.ServerPort,
		Handler: r,
	}

	go func() {
		a.log.Info("Notification service starting on port %s", a.cfg.ServerPort)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return nil
}

func (a *App) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("Shutting down notification service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("Server forced to shutdown: %v", err)
		return err
	}

	if a.queueClient != nil {
		a.queueClient.Close()
	}

	if err := a.redisClient.Close(); err != nil {
		a.log.Error("Error closing Redis: %v", err)
	}

	a.log.Info("Notification service exited")
	return nil
}
