package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"threadloom/internal/config"
	"threadloom/internal/database"
	"threadloom/internal/events"
	"threadloom/internal/handler"
	"threadloom/internal/media"
	"threadloom/internal/notify"
	"threadloom/internal/otp"
	"threadloom/internal/payment"
	"threadloom/internal/repository"
	"threadloom/internal/router"
	"threadloom/internal/service"
	"threadloom/internal/session"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting threadloom API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	connString := cfg.Database.ConnectionString()
	pool, err := database.NewPool(ctx, connString, database.PoolConfigFrom(cfg.Database), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(connString, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// OTP store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	var mailer notify.Mailer
	if cfg.SMTP.Host != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, logger)
	} else {
		logger.Warn().Msg("SMTP not configured, OTP codes will only be logged")
		mailer = notify.NewLogMailer(logger)
	}

	publisher := newPublisher(cfg.RabbitMQ, logger)
	defer publisher.Close()

	storage, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize media storage: %w", err)
	}

	paypal := payment.NewPayPalClient(
		payment.BaseURLForMode(cfg.PayPal.Mode),
		cfg.PayPal.ClientID,
		cfg.PayPal.ClientSecret,
		cfg.PayPal.Timeout,
		logger,
	)
	sessions := session.NewManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	categoryRepo := repository.NewCategoryRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	addressRepo := repository.NewAddressRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	wishlistRepo := repository.NewWishlistRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)

	// Initialize services
	productService := service.NewProductService(productRepo, categoryRepo, storage, logger)
	orderService := service.NewOrderService(
		orderRepo, productRepo, cartRepo, addressRepo, paypal, publisher,
		service.OrderConfig{PublicBaseURL: cfg.Server.PublicBaseURL, Currency: cfg.PayPal.Currency},
		logger,
	)
	cartService := service.NewCartService(cartRepo, productRepo, logger)
	couponService := service.NewCouponService(couponRepo, cartRepo, logger)
	userService := service.NewUserService(userRepo, otp.NewRedisStore(redisClient), mailer, sessions, logger)

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Product: handler.NewProductHandler(productService, logger),
		Order:   handler.NewOrderHandler(orderService, logger),
		User: handler.NewUserHandler(userService, handler.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
			MaxAge: cfg.Auth.SessionTTL,
		}, logger),
		Cart:     handler.NewCartHandler(cartService, couponService, logger),
		Wishlist: handler.NewWishlistHandler(service.NewWishlistService(wishlistRepo, logger), logger),
		Address:  handler.NewAddressHandler(service.NewAddressService(addressRepo, logger), logger),
		Admin:    handler.NewAdminHandler(orderService, productService, couponService, logger),
	}

	// Initialize router
	mux := router.New(handlers, router.Config{
		APIKey:           cfg.Auth.APIKey,
		Sessions:         sessions,
		CookieName:       cfg.Auth.CookieName,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		UploadsDir:       cfg.Uploads.Dir,
		UploadsURLPrefix: cfg.Uploads.URLPrefix,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newPublisher connects to RabbitMQ when enabled. A broker that cannot be
// reached downgrades to the no-op publisher so orders keep flowing.
func newPublisher(cfg config.RabbitMQConfig, logger zerolog.Logger) events.Publisher {
	if !cfg.Enabled {
		logger.Info().Msg("RabbitMQ disabled, order events will not be published")
		return events.NewNopPublisher(logger)
	}

	publisher, err := events.NewRabbitMQPublisher(cfg.URL, cfg.Exchange, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to connect to RabbitMQ, falling back to no-op publisher")
		return events.NewNopPublisher(logger)
	}
	return publisher
}

// newStorage builds local media storage and, when enabled, S3 in front of it.
func newStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (media.Storage, error) {
	local, err := media.NewLocalStorage(cfg.Uploads.Dir, cfg.Uploads.URLPrefix, logger)
	if err != nil {
		return nil, err
	}

	var s3Storage media.Storage
	if cfg.S3.Enabled {
		s3Storage, err = media.NewS3Storage(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 storage, falling back to local file system only")
			s3Storage = nil
		}
	} else {
		logger.Info().Msg("using local file system for product images (S3 disabled)")
	}

	return media.NewFallbackStorage(s3Storage, local, cfg.S3.Prefix, cfg.S3.Enabled, logger), nil
}
