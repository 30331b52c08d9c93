package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/internal/handlers"
	"github.com/stagelink/talent-bookings/internal/identifier"
	"github.com/stagelink/talent-bookings/internal/mailer"
	"github.com/stagelink/talent-bookings/internal/otp"
	"github.com/stagelink/talent-bookings/internal/repository"
	"github.com/stagelink/talent-bookings/internal/service"
	"github.com/stagelink/talent-bookings/pkg/config"
	"github.com/stagelink/talent-bookings/pkg/database"
	"github.com/stagelink/talent-bookings/pkg/events"
	"github.com/stagelink/talent-bookings/pkg/logger"
	mw "github.com/stagelink/talent-bookings/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}
	redisOpts.Password = cfg.Redis.Password
	redisOpts.DB = cfg.Redis.DB
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Initialize repositories
	bookingRepo := repository.NewBookingRepository(pool)
	rateLimitRepo := repository.NewRateLimitRepository(redisClient)

	// Initialize mailer
	var mail mailer.Service
	if cfg.Email.DevMode {
		mail = mailer.NewDevMailer()
	} else {
		mail = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	// Initialize core services
	allocator := identifier.NewAllocator(bookingRepo.Exists)
	otpStore := otp.NewStore(
		otp.WithTTL(cfg.Auth.OtpTTL),
		otp.WithMaxAttempts(cfg.Auth.OtpMaxAttempts),
	)
	workflow := service.NewSubmissionWorkflow(bookingRepo, allocator, otpStore, mail, eventBus, domain.DefaultTierLookup)
	authenticator := service.NewSessionAuthenticator(bookingRepo)
	issuer := service.NewImpersonationIssuer(authenticator, eventBus, cfg.Auth.JWTSecret, cfg.Auth.ImpersonationTTL)
	adminService := service.NewAdminService(bookingRepo, allocator, eventBus, domain.DefaultTierLookup)

	// Initialize handlers
	h := handlers.New(workflow, authenticator, issuer, adminService, bookingRepo, rateLimitRepo, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("bookings"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	r.Mount("/v1", h.Routes())

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down bookings service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Bookings service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting bookings service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Bookings service error", "error", err)
		os.Exit(1)
	}
}
