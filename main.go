// main.go - degentalk progression and rewards service
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"degentalk/config"
	"degentalk/database"
	"degentalk/handlers"
	"degentalk/handlers/admin"
	"degentalk/logger"
	"degentalk/middleware"
	"degentalk/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, warnings := config.Load()

	mode := "development"
	if cfg.IsProduction() {
		mode = "production"
	}
	log, err := logger.New(mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	for _, w := range warnings {
		log.Warn(w)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	seeds, err := config.DefaultSeeds()
	if err != nil {
		log.Fatal("failed to load seed catalog", "error", err)
	}

	db, err := database.InitDB(cfg.DatabaseURL, cfg.IsProduction(), log)
	if err != nil {
		log.Fatal("database initialization failed", "error", err)
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := services.NewEngine(db, log)
	if cfg.SeedOnStart {
		summary, err := engine.SeedDefaults(ctx, seeds)
		if err != nil {
			log.Fatal("seeding defaults failed", "error", err)
		}
		log.Info("defaults seeded",
			"achievements", summary.Achievements,
			"action_values", summary.ActionValues,
			"emoji_rules", summary.EmojiRules,
			"reputation_achievements", summary.ReputationAchievements)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	services.RegisterMetrics(reg)
	middleware.RegisterMetrics(reg)

	hub := handlers.NewNotificationHub(log)
	publishers := []services.Publisher{hub}
	if rdb := openRedis(ctx, cfg.RedisURL, log); rdb != nil {
		defer rdb.Close()
		publishers = append(publishers, services.NewRedisPublisher(rdb, ""))
	}
	dispatcher := services.NewDispatcher(db, log, cfg.NotifyPollInterval, cfg.NotifyBatchSize, publishers...)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Cleanup(ctx, time.Minute)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler(cfg.IsProduction()),
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))
	app.Use(middleware.Monitoring())
	app.Use(middleware.FiberRateLimitMiddleware(limiter))

	setupRoutes(app, routeDeps{
		auth:     middleware.NewAuth(cfg.JWTSecret),
		api:      handlers.New(engine, log, seeds.Prices()),
		admin:    admin.New(engine, seeds, log),
		hub:      hub,
		registry: reg,
	})

	go func() {
		log.Info("HTTP server starting", "port", cfg.Port, "env", cfg.AppEnv, "redis", cfg.RedisURL != "")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("HTTP server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// openRedis returns nil when no URL is configured or the server is unreachable;
// notifications then only reach local websocket clients.
func openRedis(ctx context.Context, url string, log *logger.Logger) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("invalid REDIS_URL, redis fan-out disabled", "error", err)
		return nil
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable, redis fan-out disabled", "error", err)
		_ = client.Close()
		return nil
	}
	log.Info("redis connected", "addr", opts.Addr)
	return client
}

func customErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		}

		// Don't expose internal errors in production
		if production && code == fiber.StatusInternalServerError {
			message = "An error occurred. Please try again later."
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}
