package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/quickserve-api/internal/config"
	"github.com/jwalitptl/quickserve-api/internal/email"
	"github.com/jwalitptl/quickserve-api/internal/handler"
	authHandler "github.com/jwalitptl/quickserve-api/internal/handler/auth"
	bookingHandler "github.com/jwalitptl/quickserve-api/internal/handler/booking"
	categoryHandler "github.com/jwalitptl/quickserve-api/internal/handler/category"
	paymentHandler "github.com/jwalitptl/quickserve-api/internal/handler/payment"
	providerHandler "github.com/jwalitptl/quickserve-api/internal/handler/provider"
	"github.com/jwalitptl/quickserve-api/internal/middleware"
	"github.com/jwalitptl/quickserve-api/internal/repository/postgres"
	"github.com/jwalitptl/quickserve-api/internal/router"
	bookingService "github.com/jwalitptl/quickserve-api/internal/service/booking"
	categoryService "github.com/jwalitptl/quickserve-api/internal/service/category"
	eventService "github.com/jwalitptl/quickserve-api/internal/service/event"
	paymentService "github.com/jwalitptl/quickserve-api/internal/service/payment"
	providerService "github.com/jwalitptl/quickserve-api/internal/service/provider"
	userService "github.com/jwalitptl/quickserve-api/internal/service/user"
	"github.com/jwalitptl/quickserve-api/pkg/auth"
	"github.com/jwalitptl/quickserve-api/pkg/cache"
	"github.com/jwalitptl/quickserve-api/pkg/logger"
	"github.com/jwalitptl/quickserve-api/pkg/metrics"
	"github.com/jwalitptl/quickserve-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.NewLogger(&logger.Config{
		Level:   logger.InfoLevel,
		Service: "quickserve-api",
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	providerRepo := postgres.NewProviderRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Shared infrastructure
	store := cache.NewMemoryStore(5*time.Minute, 10*time.Minute)
	tokens := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	hasher := security.NewBcryptHasher(0)
	emails := email.NewSMTPService(cfg.SMTP)
	m := metrics.NewMetrics("quickserve", "api")

	// Services
	eventSvc := eventService.NewService(outboxRepo)
	userSvc := userService.NewService(userRepo, hasher, tokens, emails)
	providerSvc := providerService.NewService(providerRepo, categoryRepo, userRepo, store)
	categorySvc := categoryService.NewService(categoryRepo, store)
	bookingSvc := bookingService.NewService(bookingRepo, providerRepo, userRepo, eventSvc, emails, store, m, nil)
	paymentSvc := paymentService.NewService(paymentRepo, bookingRepo, eventSvc)

	// HTTP layer
	authMiddleware := middleware.NewAuthMiddleware(tokens)
	h := handler.NewHandler(db)

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(userSvc),
		bookingHandler.NewHandler(bookingSvc),
		providerHandler.NewHandler(providerSvc),
		categoryHandler.NewHandler(categorySvc),
		paymentHandler.NewHandler(paymentSvc),
		h,
		m,
		cfg.RateLimit,
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
