// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "kinship/docs" // swagger docs
	"kinship/internal/bootstrap"
	"kinship/internal/config"
	"kinship/internal/featureflags"
	"kinship/internal/middleware"
	"kinship/internal/models"
	"kinship/internal/notifications"
	"kinship/internal/repository"
	"kinship/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultOrigins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	authService         *service.AuthService
	userService         *service.UserService
	profileService      *service.ProfileService
	followService       *service.FollowService
	postService         *service.PostService
	interactionService  *service.InteractionService
	commentService      *service.CommentService
	notificationService *service.NotificationService
	searchService       *service.SearchService
	conversationService *service.ConversationService
}

// NewServer connects to the database and redis and wires every service.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{
		ApplySchema: true,
		SeedDemo:    cfg.SeedDemo,
	})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: token revocation, rate limits, caching and
// realtime push are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("server requires config and database")
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)

	notifier := notifications.NewNotifier(redisClient)

	tokenTTL := time.Duration(cfg.JWTTTLHours) * time.Hour
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("kinship-api"),
		notifier:       notifier,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),

		authService:    service.NewAuthService(userRepo, redisClient, cfg.JWTSecret, tokenTTL),
		userService:    service.NewUserService(userRepo),
		profileService: service.NewProfileService(userRepo, followRepo, postRepo),
		followService:  service.NewFollowService(followRepo, userRepo, notifier),
		postService:    service.NewPostService(postRepo),
		interactionService: service.NewInteractionService(
			repository.NewInteractionRepository(db), postRepo, notifier),
		commentService: service.NewCommentService(
			repository.NewCommentRepository(db), postRepo, notifier),
		notificationService: service.NewNotificationService(repository.NewNotificationRepository(db)),
		searchService:       service.NewSearchService(repository.NewSearchRepository(db)),
		conversationService: service.NewConversationService(
			repository.NewConversationRepository(db), repository.NewMessageRepository(db), userRepo, notifier),
	}

	if notifier.Enabled() {
		s.hub = notifications.NewHub()
	}

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagates request and user ids into the request context for slog.
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected browser requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = defaultOrigins
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api")
	auth := middleware.AuthRequired(s.config.JWTSecret, s.redis)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	authRoutes.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	authRoutes.Get("/me", auth, s.Me)
	authRoutes.Post("/logout", auth, s.Logout)

	profile := api.Group("/profile")
	profile.Get("/", auth, s.GetMyProfile)
	profile.Put("/", auth, s.UpdateMyProfile)
	profile.Get("/:id", s.GetPublicProfile)

	users := api.Group("/users", auth)
	users.Get("/", s.DiscoverUsers)
	users.Get("/:id", s.GetUser)

	// Public author timeline must be registered before the protected group.
	api.Get("/posts/user/:userId", s.GetUserPosts)
	posts := api.Group("/posts", auth)
	posts.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/", s.GetFeed)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	likes := api.Group("/likes", auth)
	likes.Post("/", s.LikePost)
	likes.Delete("/:postId", s.UnlikePost)

	saves := api.Group("/saves", auth)
	saves.Get("/", s.GetSavedPosts)
	saves.Post("/", s.SavePost)
	saves.Delete("/:postId", s.UnsavePost)

	comments := api.Group("/comments", auth)
	comments.Post("/:postId", middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	comments.Get("/:postId", s.GetComments)
	comments.Delete("/:commentId", s.DeleteComment)

	follows := api.Group("/follows", auth)
	follows.Post("/", middleware.RateLimit(s.redis, 30, time.Minute, "follow"), s.Follow)
	follows.Get("/me/following/:userId", s.IsFollowing)
	follows.Delete("/:followingId", s.Unfollow)

	api.Get("/friends", auth, s.GetFriends)

	notifs := api.Group("/notifications", auth)
	notifs.Get("/", s.GetNotifications)
	notifs.Get("/unread-count", s.GetUnreadCount)
	notifs.Patch("/", s.MarkAllNotificationsRead)
	notifs.Patch("/:id", s.MarkNotificationRead)

	api.Get("/search", auth, middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.Search)
	api.Get("/features", auth, s.GetFeatureFlags)

	// Both prefixes serve the same messaging API.
	for _, prefix := range []string{"/messages", "/conversations"} {
		s.registerMessagingRoutes(api.Group(prefix, auth))
	}

	api.Get("/ws", middleware.WebSocketAuthRequired(s.config.JWTSecret, s.redis), s.WebSocketUpgrade, s.WebsocketHandler())
}

func (s *Server) registerMessagingRoutes(r fiber.Router) {
	r.Get("/", s.GetConversations)
	r.Post("/create", s.CreateConversation)
	r.Post("/", middleware.RateLimit(s.redis, 30, time.Minute, "send_message"), s.SendMessage)

	// Group routes come before the generic /:id routes.
	group := r.Group("/group")
	group.Post("/create", s.CreateGroup)
	group.Get("/:id", s.GetGroup)
	group.Post("/:id/members", s.AddGroupMembers)
	group.Put("/:id/name", s.RenameGroup)
	group.Put("/:id/photo", s.SetGroupPhoto)
	group.Put("/:id/description", s.SetGroupDescription)
	group.Delete("/:id/leave", s.LeaveGroup)

	r.Get("/:id/info", s.GetConversationInfo)
	r.Get("/:id", s.GetMessages)
	r.Delete("/:messageId", s.DeleteMessage)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// An unconfigured redis is reported but ready; a configured one that fails
	// to answer is not, since token revocation and rate limits depend on it.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds the fiber app with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Kinship API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
				slog.String("path", c.Path()), slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start wires the realtime hub and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub",
				slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
