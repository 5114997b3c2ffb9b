package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contactkar/internal/apperror"
	"contactkar/internal/config"
	"contactkar/internal/database"
	"contactkar/internal/handlers"
	"contactkar/internal/logger"
	"contactkar/internal/middleware"
	"contactkar/internal/notify"
	"contactkar/internal/qr"
	"contactkar/internal/repositories"
	"contactkar/internal/services"
	"contactkar/internal/telephony"
	"contactkar/pkg/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	// --- Notifications ---
	var notifier notify.Notifier = notify.NewLogNotifier(log)
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			log.Fatal("failed to initialize RabbitMQ client", zap.Error(err))
		}
		defer mqClient.Close()
		notifier = notify.NewQueueNotifier(mqClient)

		if err := mqClient.Consume(rabbitmq.OrderQueue, orderEventHandler(log)); err != nil {
			log.Error("failed to start order consumer", zap.Error(err))
		}
	} else {
		log.Warn("RABBITMQ_URL not set, notifications are only logged")
	}

	// --- Telephony ---
	var bridger telephony.Bridger = telephony.NewLogBridger(log)
	if cfg.TwilioEnabled() {
		bridger, err = telephony.NewTwilioBridger(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, log)
		if err != nil {
			log.Fatal("failed to initialize Twilio", zap.Error(err))
		}
	} else {
		log.Warn("Twilio credentials not set, bridge calls are simulated")
	}

	app := newApp(cfg, log, db, notifier, bridger)

	go func() {
		log.Info("starting server", zap.String("port", cfg.AppPort), zap.String("env", cfg.Env))
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("error during fiber shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
}

// newApp wires repositories, services and handlers into a fiber app.
func newApp(cfg *config.Config, log *zap.Logger, db *gorm.DB, notifier notify.Notifier, bridger telephony.Bridger) *fiber.App {
	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	tagRepo := repositories.NewGORMTagRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	contactLog := repositories.NewGORMContactLogRepository(db)
	otpRepo := repositories.NewGORMOTPRepository(db)
	transactor := repositories.NewGORMTransactor(db)

	// --- Services ---
	otpService := services.NewOTPService(otpRepo, cfg.OTPTTL, cfg.OTPMaxAttempts, log)
	authService := services.NewAuthService(userRepo, otpService, notifier, cfg.JWTSecret, cfg.TokenTTL, log)
	tagService := services.NewTagService(tagRepo, qr.NewRenderer(cfg.PublicBaseURL, qr.DefaultSize), cfg.TagCodeAttempts, log)
	contactService := services.NewContactService(tagService, userRepo, contactLog, bridger, notifier, log)
	orderService := services.NewOrderService(orderRepo, tagService, transactor, notifier, cfg.DeliveryFee, log)

	// --- Handlers ---
	validate := handlers.NewValidator()
	authHandler := handlers.NewAuthHandler(authService, validate, log)
	tagHandler := handlers.NewTagHandler(tagService, validate)
	contactHandler := handlers.NewContactHandler(contactService, validate)
	orderHandler := handlers.NewOrderHandler(orderService, validate)

	app := fiber.New(fiber.Config{
		AppName:      "ContactKar",
		ErrorHandler: handlers.ErrorHandler(log),
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	requireAuth := middleware.AuthRequired(authService, log)
	publicLimit := limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return apperror.New(apperror.CodeRateLimited, "too many requests, slow down")
		},
	})

	// Public finder and sign-in endpoints are rate limited per client IP.
	api := app.Group("/api")
	authHandler.RegisterRoutes(api, requireAuth, publicLimit)
	tagHandler.RegisterRoutes(api, requireAuth)
	tagHandler.RegisterPublicRoutes(api, publicLimit)
	contactHandler.RegisterRoutes(api, publicLimit)
	orderHandler.RegisterRoutes(api, requireAuth)

	return app
}

// orderEventHandler logs placed orders as they reach the fulfilment queue.
func orderEventHandler(log *zap.Logger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event notify.Message
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("failed to decode order event: %w", err)
		}
		log.Info("order event received",
			zap.String("kind", event.Kind),
			zap.String("user_id", event.UserID),
			zap.Any("data", event.Data),
			zap.Uint64("delivery_tag", msg.DeliveryTag))
		return nil
	}
}
