package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/renoplan/renoplan/handlers"
	"github.com/renoplan/renoplan/internal/authclient"
	"github.com/renoplan/renoplan/internal/config"
	"github.com/renoplan/renoplan/internal/database"
	"github.com/renoplan/renoplan/internal/project/handler"
	projectrepo "github.com/renoplan/renoplan/internal/project/repository"
	projectsvc "github.com/renoplan/renoplan/internal/project/service"
	"github.com/renoplan/renoplan/internal/sessions"
	"github.com/renoplan/renoplan/internal/storage"
	"github.com/renoplan/renoplan/internal/users"
	"github.com/renoplan/renoplan/pkg/logger"
	"github.com/renoplan/renoplan/pkg/metrics"
	"github.com/renoplan/renoplan/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: oidc=%v mongo=%v redis=%v", cfg.OIDC.IssuerURL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS middleware for dev/test. Production should sit behind a
	// stricter policy.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	// Redis first: it feeds the token blacklist, the rate limiter and the
	// callback code guard.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("redis unreachable (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			sessions.SetBlacklistClient(redisClient)
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// MongoDB with retry/backoff to tolerate startup races; memory-backed
	// repositories keep the service usable without it.
	ctx := context.Background()
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			mongoClient, err = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if err == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if mongoClient == nil {
			logger.Warnf("could not connect to MongoDB, falling back to in-memory repositories")
		} else {
			defer func() { _ = mongoClient.Disconnect(ctx) }()
		}
	}

	var userSvc *users.Service
	var sessionsSvc *sessions.Service
	var projectSvc projectsvc.Service
	if mongoClient != nil {
		db := mongoClient.Database(cfg.MongoDB.Database)
		userSvc = users.NewService(users.NewMongoUserRepository(db.Collection("users")))
		sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")), userSvc)
		projectSvc = projectsvc.New(projectrepo.NewMongoRepo(db))
	} else {
		userSvc = users.NewService(users.NewMemoryUserRepository())
		sessionsSvc = sessions.NewService(sessions.NewMemoryRepository(), userSvc)
		projectSvc = projectsvc.New(projectrepo.NewMemoryRepo())
	}

	authClient := authclient.New(cfg.OIDC)

	var codeGuard handlers.CodeGuard
	if redisClient != nil {
		codeGuard = handlers.NewRedisCodeGuard(redisClient)
	} else {
		codeGuard = handlers.NewMemoryCodeGuard()
	}

	// MinIO object storage for attachments and rendered reports (optional)
	var objectStore handlers.ObjectStore
	if mcfg := storage.LoadMinIOConfig(); mcfg.Endpoint != "" {
		ms, err := storage.NewMinIOStorage(mcfg)
		if err != nil {
			logger.Warnf("object storage unavailable: %v", err)
		} else {
			objectStore = ms
			logger.Infof("connected to MinIO at %s (bucket %s)", mcfg.Endpoint, mcfg.Bucket)
		}
	}

	authRequired := middleware.Auth(sessionsSvc, authClient)

	api := r.Group("/api")
	authH := handlers.NewAuthHandler(authClient, userSvc, sessionsSvc, codeGuard, cfg.Auth.DefaultSessionTTL)
	authH.Register(api, authRequired)

	protected := api.Group("", authRequired)
	handler.RegisterProjectRoutes(protected, projectSvc)
	handlers.NewAttachmentHandler(objectStore, projectSvc, cfg.MongoDB.URI, cfg.MongoDB.Database).Register(protected)

	handlers.RegisterSwagger(r)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{
			"oidc":    cfg.OIDC.IssuerURL != "",
			"storage": true,
			"redis":   true,
		}
		if cfg.MongoDB.URI != "" && mongoClient == nil {
			deps["storage"] = false
			ready = false
		}
		if cfg.Redis.Host != "" && redisClient == nil {
			deps["redis"] = false
			if cfg.RateLimit.UseRedis {
				ready = false
			}
		}
		status := gin.H{"deps": deps, "uptime": time.Since(startTime).String()}
		if !ready {
			status["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["status"] = "ready"
		c.JSON(http.StatusOK, status)
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// background expired-session sweep
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go sessionsSvc.RunSweeper(sweepCtx, cfg.Auth.SweepInterval)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	logger.Infof("starting renoplan API on %s", addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
