// Package httpapi exposes the Kairos backend over HTTP/JSON. Handlers are
// stateless: they validate input shape, call the services, and translate
// results and errors into status codes and JSON bodies.
package httpapi

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/kairosweb/kairos/internal/logging"
	"github.com/kairosweb/kairos/internal/server/config"
	"github.com/kairosweb/kairos/internal/server/models"
	"github.com/kairosweb/kairos/internal/server/repositories/users"
	"github.com/kairosweb/kairos/internal/server/services"
)

// Authenticator is the slice of UserService the auth routes need.
type Authenticator interface {
	CheckEmail(ctx context.Context, email string) (bool, error)
	Signup(ctx context.Context, in services.SignupInput) (*services.AuthResult, error)
	Signin(ctx context.Context, email, password string) (*services.AuthResult, error)
}

// ProfileManager is the slice of ProfileService the user routes need.
type ProfileManager interface {
	Get(ctx context.Context, userID int64) (*models.User, error)
	Update(ctx context.Context, userID int64, upd users.ProfileUpdate) error
	AvatarStorageEnabled() bool
	AvatarUploadURL(ctx context.Context, userID int64) (string, string, error)
	AvatarURL(ctx context.Context, ref string) (string, error)
}

// HealthChecker is what the health endpoint needs from the store.
type HealthChecker interface {
	Ping(ctx context.Context) error
	DatabaseName() string
}

type Server struct {
	app      *fiber.App
	config   *config.Config
	logger   logging.Logger
	users    Authenticator
	profiles ProfileManager
	store    HealthChecker
}

func NewServer(cfg *config.Config, logger logging.Logger, users Authenticator, profiles ProfileManager, store HealthChecker) *Server {
	s := &Server{
		config:   cfg,
		logger:   logger,
		users:    users,
		profiles: profiles,
		store:    store,
	}

	s.app = fiber.New(fiber.Config{
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))
	s.app.Use(s.requestLogger())

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")

	api.Get("/health", s.health)

	authGroup := api.Group("/auth")
	authGroup.Post("/check-email", s.checkEmail)
	authGroup.Post("/signup", s.signup)
	authGroup.Post("/signin", s.signin)

	userGroup := api.Group("/user", s.authRequired())
	userGroup.Get("/profile/:id", s.getProfile)
	userGroup.Put("/profile/:id", s.updateProfile)
	userGroup.Post("/profile/:id/avatar-url", s.avatarUploadURL)
	userGroup.Get("/profile/:id/avatar", s.avatarGetURL)

	// The SPA build is served by this process in production only; in
	// development it runs on its own dev server behind CORS.
	if s.config.StaticDir != "" && s.config.Env == "production" {
		s.app.Static("/", s.config.StaticDir)
		index := filepath.Join(s.config.StaticDir, "index.html")
		s.app.Get("/*", func(c *fiber.Ctx) error {
			return c.SendFile(index)
		})
	}
}

// errorHandler is the single place mapping errors to HTTP responses.
// Anything that is not a *fiber.Error is an unexpected failure: it is logged
// with detail and answered with a generic message.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	s.logger.Error(c.UserContext(), "unhandled error",
		"method", c.Method(), "path", c.Path(), "error", err.Error())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

// Listen blocks serving HTTP until Shutdown is called.
func (s *Server) Listen() error {
	return s.app.Listen(s.config.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
