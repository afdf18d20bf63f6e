package stub

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/aqarlink/aqarlink/internal/config"
	"github.com/aqarlink/aqarlink/internal/notification"
)

// Deps aggregates shared dependencies for the stub server. DB and Cache
// are optional: when nil the stub runs on in-memory stores, which is the
// normal development mode.
type Deps struct {
	Cfg    config.Server
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Notifier overrides the code delivery channel; nil means log-only.
	Notifier notification.Notifier
}

// Server is the development stub implementing the lead-intake REST
// contract.
type Server struct {
	app *fiber.App
	cfg config.Server
}

// New instantiates the stub server and wires all routes.
func New(d Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:      d.Cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		// Clients expect every error as {"error": string}.
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := http.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	var users UserStore
	if d.DB != nil {
		users = NewPostgresUserStore(d.DB)
	} else {
		users = NewMemoryUserStore()
	}
	var requests RequestStore
	if d.DB != nil {
		requests = NewPostgresRequestStore(d.DB)
	} else {
		requests = NewMemoryRequestStore()
	}
	var codes CodeStore
	if d.Cache != nil {
		codes = NewRedisCodeStore(d.Cache)
	} else {
		codes = NewMemoryCodeStore()
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}
	secret := []byte(d.Cfg.JWTSecret)
	authHandler := NewAuthHandler(users, codes, notifier, secret, d.Cfg.CodeTTL, d.Cfg.TokenTTL, d.Logger)
	estateHandler := NewEstateHandler(requests, d.Logger)

	registerHealth(app, d)

	auth := app.Group("/api/auth")
	auth.Post("/send-verification", authHandler.SendVerification)
	auth.Post("/verify", authHandler.Verify)
	auth.Post("/complete-registration", authHandler.CompleteRegistration)

	estate := app.Group("/api/estate", RequireAuth(secret))
	estate.Get("/requests", estateHandler.List)
	estate.Get("/my-requests", estateHandler.ListMine)
	estate.Post("/requests", estateHandler.Create)
	estate.Get("/requests/:id", estateHandler.GetByID)
	estate.Patch("/requests/:id/status", estateHandler.UpdateStatus)

	return &Server{app: app, cfg: d.Cfg}
}

func registerHealth(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		redisStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if d.Cache != nil {
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		status := http.StatusOK
		if dbStatus != "ok" || redisStatus != "ok" {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber application for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}
