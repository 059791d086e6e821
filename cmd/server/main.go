package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/vc8bp/salesflow/internal/config"
	"github.com/vc8bp/salesflow/internal/outbox"
	"github.com/vc8bp/salesflow/internal/repository"
	"github.com/vc8bp/salesflow/internal/service"
	transport "github.com/vc8bp/salesflow/internal/transport/http"
	"github.com/vc8bp/salesflow/internal/transport/http/handler"
	"github.com/vc8bp/salesflow/pkg/auth"
	"github.com/vc8bp/salesflow/pkg/db"
	"github.com/vc8bp/salesflow/pkg/kafka"
	"github.com/vc8bp/salesflow/pkg/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := tracing.InitTracer(ctx, "salesflow", cfg.Tracing.Endpoint)
	if err != nil {
		log.Fatalf("Failed to init trace: %v", err)
	}

	logger, err := cfg.BuildLogger()
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	m, err := migrate.New("file://migrations", cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Error creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Error applying migrations: %v", err)
	}

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Error connecting to postgres: %v", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing redis client: %v\n", err)
		}
	}()

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("Error creating kafka producer: %v", err)
	}
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			log.Printf("Error closing kafka producer: %v\n", err)
		}
	}()

	userRepo := repository.NewUserRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	customerRepo := repository.NewCustomerRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	outboxRepo := outbox.NewRepository(pool, logger)

	outboxProcessor := outbox.NewProcessor(pool, outboxRepo, kafkaProducer, logger)
	go outboxProcessor.Start(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(reg)

	tokens := auth.NewManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	userService := service.NewUserService(userRepo, tokens, logger)
	productService := service.NewCachedProductService(
		service.NewProductService(pool, logger, productRepo),
		redisClient,
		logger,
	)
	customerService := service.NewCustomerService(customerRepo, logger)
	orderService := service.NewOrderService(
		pool,
		logger,
		orderRepo,
		productRepo,
		customerRepo,
		outboxRepo,
		productService,
		metrics,
		cfg.Kafka.Topic,
	)

	if err := userService.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Number); err != nil {
		log.Fatalf("Error ensuring admin account: %v", err)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			Registry: reg,
		}))
		log.Printf("Metrics server is listening on %s 📈\n", cfg.HTTP.MetricsPort)

		if err := http.ListenAndServe(cfg.HTTP.MetricsPort, mux); err != nil {
			log.Printf("Metrics serving failed: %v", err)
		}
	}()

	app := fiber.New(fiber.Config{
		ReadTimeout: cfg.HTTP.Timeout,
	})

	app.Use(otelfiber.Middleware())

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Limiter.Max,
		Expiration: cfg.Limiter.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	handlers := &transport.Handlers{
		Auth:     handler.NewAuthHandler(userService, logger),
		Product:  handler.NewProductHandler(productService, logger),
		Order:    handler.NewOrderHandler(orderService, logger),
		Customer: handler.NewCustomerHandler(customerService, logger),
	}

	transport.RegisterRoutes(app, handlers, tokens)

	logger.Info("SalesFlow started!")

	go func() {
		log.Println("HTTP Service listening on: " + cfg.HTTP.Port)
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("Error listening on HTTP port %v: %v\n", cfg.HTTP.Port, err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down gracefully...")
	shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownContext); err != nil {
		log.Printf("Error shutting down HTTP app: %v\n", err)
	} else {
		log.Println("HTTP App stopped gracefully")
	}

	if err := tp.Shutdown(shutdownContext); err != nil {
		log.Printf("Error shutting down tracer provider: %v\n", err)
	}
}
