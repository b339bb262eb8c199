// Package server contains the HTTP handlers and wiring for the socialgrid API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"socialgrid/internal/cache"
	"socialgrid/internal/config"
	"socialgrid/internal/featureflags"
	"socialgrid/internal/middleware"
	"socialgrid/internal/models"
	"socialgrid/internal/quiz"
	"socialgrid/internal/repository"
	"socialgrid/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	closeStore     func(context.Context) error
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	postRepo       repository.PostRepository
	postService    *service.PostService
	quizBank       *quiz.Bank
	featureFlags   *featureflags.Manager
}

// NewServer connects the store selected by cfg.StoreDriver and Redis, then
// builds the server around them.
func NewServer(cfg *config.Config) (*Server, error) {
	postRepo, closeStore, err := repository.Open(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional; without it the feed aggregates are read from the store.
	cache.InitRedis(cfg.RedisURL)

	s, err := newServer(cfg, postRepo, cache.GetClient())
	if err != nil {
		_ = closeStore(context.Background())
		return nil, err
	}
	s.closeStore = closeStore
	s.promMiddleware = middleware.InitMetrics("socialgrid-api")
	return s, nil
}

// NewServerWithDeps creates a Server using an already-initialized SQL store and
// optional Redis client. Use this in tests or from bootstrap commands.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	cache.SetClient(redisClient)

	s, err := newServer(cfg, repository.NewPostRepository(db), redisClient)
	if err != nil {
		return nil, err
	}
	s.closeStore = func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return s, nil
}

func newServer(cfg *config.Config, postRepo repository.PostRepository, redisClient *redis.Client) (*Server, error) {
	bank, err := quiz.Load()
	if err != nil {
		return nil, fmt.Errorf("quiz bank: %w", err)
	}

	flags := featureflags.NewManager(cfg.FeatureFlags)
	return &Server{
		config:       cfg,
		redis:        redisClient,
		postRepo:     postRepo,
		postService:  service.NewPostService(postRepo, flags),
		quizBank:     bank,
		featureFlags: flags,
	}, nil
}

// NewApp builds the Fiber application with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	bodyLimit := s.config.BodyLimitMB * 1024 * 1024
	if bodyLimit <= 0 {
		bodyLimit = 5 * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:   "socialgrid",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate request and trace IDs
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/", s.HealthCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "SocialGrid Metrics Dashboard",
	}))

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", s.CreatePost)

	users := api.Group("/users")
	users.Get("/:userId/posts", s.GetUserPosts)
	users.Get("/:userId/quota", s.GetUserQuota)

	quizzes := api.Group("/quiz", s.QuizEnabled())
	quizzes.Get("/", s.GetQuizPage)
	quizzes.Post("/:id/answer", s.AnswerQuestion)

	api.Get("/feature-flags", s.GetFeatureFlags)
}

// HealthCheck handles basic health check requests
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports 503 when the post store is unreachable. Redis is an
// optional cache and only degrades the status.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if err := s.postRepo.Ping(ctx); err != nil {
		storeStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case storeStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus != "healthy":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store": storeStatus,
			"redis": redisStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown releases the store and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.closeStore != nil {
		if cerr := s.closeStore(ctx); cerr != nil {
			log.Printf("error closing post store: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
