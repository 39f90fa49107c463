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
	"kedoo/pkg/database"
	"kedoo/pkg/identity"
	"kedoo/pkg/jwt"
	"kedoo/pkg/logger"
	"kedoo/pkg/middleware"
	"kedoo/pkg/queue"
	ticketHTTP "kedoo/services/ticket/internal/controller/http"
	"kedoo/services/ticket/internal/model"
	"kedoo/services/ticket/internal/repo/persistent"
	"kedoo/services/ticket/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "kedoo/services/ticket/docs" // Swagger docs
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	jwtService  *jwt.Service
	queueClient *queue.Client
	httpServer  *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New()

	db, err := database.NewDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	if cfg.DBDriver == "sqlite" {
		if err := db.AutoMigrate(&model.TicketModel{}); err != nil {
			log.Error("Failed to migrate sqlite database: %v", err)
			return nil, err
		}
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (continuing without rate limits)", err)
		redisClient = nil
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without queue)", err)
		queueClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		jwtService:  jwt.NewServiceWithTTL(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour),
		queueClient: queueClient,
	}, nil
}

func (a *App) Run() error {
	gin.SetMode(a.cfg.GinMode)

	ticketRepo := persistent.NewTicketRepository(a.db)

	var notifier usecase.Notifier
	if a.queueClient != nil {
		notifier = a.queueClient
	}
	ticketUseCase := usecase.NewTicketUseCase(ticketRepo, notifier, a.log)
	ticketHandler := ticketHTTP.NewTicketHandler(ticketUseCase, a.log)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute, a.log))
	{
		api.POST("/tickets", ticketHandler.CreateTicket)
		api.GET("/tickets", ticketHandler.ListTickets)
		api.GET("/tickets/:id", ticketHandler.GetTicket)
		api.POST("/tickets/:id/answer", middleware.RequireRole(string(identity.RoleModerator)), ticketHandler.AnswerTicket)
		api.POST("/tickets/:id/close", ticketHandler.CloseTicket)
	}

	a.httpServer = &http.Server{
		Addr:    ":" + a.cfg.ServerPort,
		Handler: r,
	}

	go func() {
		a.log.Info("Ticket service starting on port %s", a.cfg.ServerPort)
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
	a.log.Info("Shutting down ticket service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("Server forced to shutdown: %v", err)
		return err
	}

	sqlDB, err := a.db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Error("Error closing database: %v", err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Error closing Redis: %v", err)
		}
	}

	if a.queueClient != nil {
		a.queueClient.Close()
	}

	a.log.Info("Ticket service exited")
	return nil
}
