package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskzen/backend/internal/assets"
	"taskzen/backend/internal/cache"
	"taskzen/backend/internal/chat"
	"taskzen/backend/internal/config"
	"taskzen/backend/internal/database"
	"taskzen/backend/internal/handlers"
	"taskzen/backend/internal/middleware"
	"taskzen/backend/internal/monitoring"
	"taskzen/backend/internal/services"
	"taskzen/backend/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	redisCache := cache.NewRedisCache(&cache.CacheConfig{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisCache.Close()

	assetStore := assets.NewClient(cfg.Cloudinary)
	chatClient := chat.NewClient(cfg.Chat.APIKey, cfg.Chat.Model)
	if !chatClient.Configured() {
		log.Println("GROQ_API_KEY not set; /api/chat will return errors")
	}

	jobQueue := worker.NewJobQueue(redisCache.Client())
	cleaner := worker.NewAssetCleaner(assetStore, jobQueue)

	jobWorker := worker.NewWorker(worker.WorkerConfig{
		RedisClient:  redisCache.Client(),
		Queues:       cfg.Worker.Queues,
		PollInterval: cfg.Worker.PollInterval,
	})
	jobWorker.RegisterHandler(worker.JobTypeAssetRelease, worker.ReleaseHandler(assetStore))
	jobWorker.RegisterHandler(worker.JobTypeOverdueSweep, func(ctx context.Context, job *worker.Job) error {
		updated, err := services.SweepOverdue(db, time.Now())
		if err != nil {
			return err
		}
		if updated > 0 {
			log.Printf("Overdue sweep marked %d tasks", updated)
		}
		return nil
	})
	jobWorker.Start(cfg.Worker.Concurrency)

	sweepStop := startOverdueSweeper(jobQueue, cfg.Worker.SweepInterval)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)

	monitoring.RegisterHealthCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	monitoring.RegisterHealthCheck("redis", func(ctx context.Context) error {
		return redisCache.Health(ctx)
	})

	router := buildRouter(cfg, db, redisCache, assetStore, chatClient, cleaner, rateLimiter)

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	close(sweepStop)
	rateLimiter.Stop()
	jobWorker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// startOverdueSweeper enqueues a sweep job on a fixed interval so stale
// statuses converge even when their tasks see no traffic.
func startOverdueSweeper(queue *worker.JobQueue, interval time.Duration) chan struct{} {
	stop := make(chan struct{})
	if interval <= 0 {
		return stop
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := queue.Enqueue(worker.QueueCleanup, worker.JobTypeOverdueSweep, nil); err != nil {
					log.Printf("Failed to enqueue overdue sweep: %v", err)
				}
			case <-stop:
				return
			}
		}
	}()
	return stop
}

func buildRouter(
	cfg *config.Config,
	db *gorm.DB,
	redisCache *cache.RedisCache,
	assetStore *assets.Client,
	chatClient *chat.Client,
	cleaner *worker.AssetCleaner,
	rateLimiter *middleware.RateLimiter,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.RecoveryWithLog())
	router.Use(monitoring.MetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	if cfg.RateLimit.Enabled {
		router.Use(rateLimiter.Middleware())
	}

	registerService := services.NewRegisterService(cfg.Auth.BCryptCost)
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	userService := services.NewUserService()
	taskService := services.NewTaskService(cleaner)
	statsService := services.NewCachedStatsService(services.NewStatsService(), redisCache)

	registerHandler := handlers.NewRegisterHandler(db, registerService, authService)
	authHandler := handlers.NewAuthHandler(db, authService)
	userHandler := handlers.NewUserHandler(db, userService)
	taskHandler := handlers.NewTaskHandler(db, taskService, statsService)
	statsHandler := handlers.NewStatsHandler(db, statsService)
	uploadHandler := handlers.NewUploadHandler(assetStore)
	chatHandler := handlers.NewChatHandler(chatClient)

	router.GET("/healthz", monitoring.HealthHandler())
	router.GET("/metrics", monitoring.MetricsHandler())

	api := router.Group("/api")
	{
		api.POST("/auth/register", registerHandler.Registration)
		api.POST("/auth/login", authHandler.Login)

		authed := api.Group("")
		authed.Use(middleware.AuthRequired([]byte(cfg.Auth.JWTSecret)))
		{
			authed.GET("/auth/me", userHandler.Me)
			authed.PUT("/auth/profile", userHandler.UpdateProfile)

			authed.POST("/tasks", taskHandler.CreateTask)
			authed.GET("/tasks", taskHandler.GetTasks)
			authed.GET("/tasks/stats/status-distribution", statsHandler.StatusDistribution)
			authed.GET("/tasks/stats/category-distribution", statsHandler.CategoryDistribution)
			authed.GET("/tasks/stats/daily-completion", statsHandler.DailyCompletion)
			authed.GET("/tasks/:id", taskHandler.GetTaskByID)
			authed.PUT("/tasks/:id", taskHandler.UpdateTask)
			authed.DELETE("/tasks/:id", taskHandler.DeleteTask)

			authed.POST("/upload", uploadHandler.UploadImage)
			authed.POST("/chat", chatHandler.Chat)
		}
	}

	return router
}
