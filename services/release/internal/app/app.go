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
	"kedoo/pkg/s3"
	releaseHTTP "kedoo/services/release/internal/controller/http"
	"kedoo/services/release/internal/model"
	"kedoo/services/release/internal/repo/persistent"
	"kedoo/services/release/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "kedoo/services/release/docs" // Swagger docs
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	s3Client    *s3.Client
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

	// Postgres schemas are owned by goose, see cmd/migrate
	if cfg.DBDriver == "sqlite" {
		if err := db.AutoMigrate(&model.ReleaseModel{}, &model.TrackModel{}); err != nil {
			log.Error("Failed to migrate sqlite database: %v", err)
			return nil, err
		}
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (continuing without rate limits and moderation channel)", err)
		redisClient = nil
	}

	var s3Client *s3.Client
	if cfg.AWSAccessKeyID != "" {
		s3Client, err = s3.NewClient(cfg)
		if err != nil {
			log.Error("Failed to create S3 client: %v", err)
			return nil, err
		}
	} else {
		log.Warn("AWS credentials not set, uploads are disabled")
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without queue)", err)
		queueClient = nil
	}

	jwtService := jwt.NewServiceWithTTL(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		s3Client:    s3Client,
		jwtService:  jwtService,
		queueClient: queueClient,
	}, nil
}

func (a *App) Run() error {
	gin.SetMode(a.cfg.GinMode)

	trackRepo := persistent.NewTrackRepository(a.db)
	releaseRepo := persistent.NewReleaseRepository(a.db, trackRepo)

	var notifier usecase.Notifier
	if a.queueClient != nil {
		notifier = a.queueClient
	}
	releaseUseCase := usecase.NewReleaseUseCase(releaseRepo, trackRepo, notifier, a.redisClient, a.log)

	releaseHandler := releaseHTTP.NewReleaseHandler(releaseUseCase, a.log)
	moderationHandler := releaseHTTP.NewModerationHandler(releaseUseCase, a.log)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute, a.log))
	{
		api.POST("/releases", releaseHandler.CreateRelease)
		api.GET("/releases", releaseHandler.ListReleases)
		api.GET("/releases/trash", releaseHandler.ListTrash)
		api.GET("/releases/:id", releaseHandler.GetRelease)
		api.GET("/releases/:id/tracks", releaseHandler.ListTracks)
		api.PUT("/releases/:id", releaseHandler.UpdateRelease)
		api.POST("/releases/:id/submit", releaseHandler.SubmitRelease)
		api.POST("/releases/:id/withdraw", releaseHandler.WithdrawRelease)
		api.POST("/releases/:id/restore", releaseHandler.RestoreRelease)
		api.DELETE("/releases/:id", releaseHandler.DeleteRelease)
		api.DELETE("/releases/:id/permanent", releaseHandler.PurgeRelease)

		moderation := api.Group("/moderation")
		moderation.Use(middleware.RequireRole(string(identity.RoleModerator)))
		{
			moderation.GET("/pending", moderationHandler.GetPendingReleases)
			moderation.POST("/approve/:release_id", moderationHandler.ApproveRelease)
			moderation.POST("/reject/:release_id", moderationHandler.RejectRelease)
		}

		if a.s3Client != nil {
			uploadHandler := releaseHTTP.NewUploadHandler(a.s3Client, a.log)
			api.POST("/uploads/cover", uploadHandler.UploadCover)
			api.POST("/uploads/audio", uploadHandler.UploadAudio)
		}
	}

	a.httpServer = &http.Server{
		Addr:    ":" + a.cfg.ServerPort,
		Handler: r,
	}

	go func() {
		a.log.Info("Release service starting on port %s", a.cfg.ServerPort)
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
	a.log.Info("Shutting down release service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Stop accepting requests before the stores go away
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

	a.log.Info("Release service exited")
	return nil
}
