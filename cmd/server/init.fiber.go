package main

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rugvedkadu06/aggrigator/config"
	"github.com/rugvedkadu06/aggrigator/internal/api/middleware"
	apirouter "github.com/rugvedkadu06/aggrigator/internal/api/router"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
)

// InitFiberApp creates the Fiber app with the middleware stack and the given routes.
func InitFiberApp(cfg *config.Configuration, regs ...apirouter.RegisterFunc) (*fiber.App, error) {
	writeTimeout := 30 * time.Second
	// A sync request holds the connection for the whole run.
	if t := cfg.Timeout(); t+5*time.Second > writeTimeout {
		writeTimeout = t + 5*time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:       "Report View Aggregator",
		ServerHeader:  "Report View Aggregator",
		StrictRouting: false,
		CaseSensitive: true,

		BodyLimit:       1 * 1024 * 1024,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,

		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,

		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))

	// CORS goes first so preflight requests never reach the limiter.
	allowOrigins := []string{"*"}
	if cfg.CORS_Origins != "*" {
		allowOrigins = strings.Split(cfg.CORS_Origins, ",")
		for i, origin := range allowOrigins {
			allowOrigins[i] = strings.TrimSpace(origin)
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"X-Request-ID",
			"X-Requested-With",
			middleware.ReporterIDHeader,
		},
		AllowCredentials: cfg.CORS_AllowCredentials && cfg.CORS_Origins != "*",
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		MaxAge:           24 * 60 * 60,
	}))

	app.Use(func(c fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	})

	log := logger.GetAppLogger()
	if cfg.RateLimit_Enabled && cfg.RateLimit_Max > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit_Max,
			Expiration: time.Duration(cfg.RateLimit_Window) * time.Second,
			KeyGenerator: func(c fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"code":    "RATE_LIMIT",
					"message": "Too many requests, please retry later",
					"status":  "error",
				})
			},
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/api/v1/system/health" || c.Method() == fiber.MethodOptions
			},
		}))
		log.Infof("Rate limiting enabled: %d requests per %d seconds", cfg.RateLimit_Max, cfg.RateLimit_Window)
	} else {
		log.Info("Rate limiting disabled")
	}

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			logger.ErrorWithRequest(c).WithFields(logrus.Fields{
				"panic": e,
			}).Error("Panic recovered")
		},
	}))

	if err := apirouter.SetupRoutes(app, regs...); err != nil {
		return nil, err
	}
	return app, nil
}
