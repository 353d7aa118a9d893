package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ridemax/service-booking/internal/application"
	"github.com/ridemax/service-booking/internal/config"
	"github.com/ridemax/service-booking/internal/domain/fare"
	"github.com/ridemax/service-booking/internal/domain/geo"
	"github.com/ridemax/service-booking/internal/domain/route"
	bookingEvents "github.com/ridemax/service-booking/internal/events"
	"github.com/ridemax/service-booking/internal/handler"
	"github.com/ridemax/service-booking/internal/platform/auth"
	"github.com/ridemax/service-booking/internal/platform/database"
	"github.com/ridemax/service-booking/internal/platform/health"
	"github.com/ridemax/service-booking/internal/platform/kafka"
	"github.com/ridemax/service-booking/internal/platform/logger"
	"github.com/ridemax/service-booking/internal/platform/middleware"
	"github.com/ridemax/service-booking/internal/provider"
	"github.com/ridemax/service-booking/internal/provider/geoapify"
	"github.com/ridemax/service-booking/internal/provider/openroute"
	"github.com/ridemax/service-booking/internal/repository"
	"go.uber.org/zap"
)

const serviceName = "service-booking"

// eventSink is the publisher used by the booking service, closed on shutdown.
type eventSink interface {
	application.EventPublisher
	Close() error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.BookingModel{},
			&repository.CustomerModel{},
			&repository.RateTableModel{},
			&repository.OutstationSettingsModel{},
			&repository.OutstationFareModel{},
		); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), cfg.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize pricing and seed empty tables
	seed, err := application.LoadPricingSeed(cfg.PricingSeedFile)
	if err != nil {
		log.Fatal("failed to load pricing seed", zap.Error(err))
	}
	airportKeywords := cfg.AirportKeywords
	if len(airportKeywords) == 0 {
		airportKeywords = seed.AirportKeywords
	}
	pricingRepo := repository.NewGormPricingRepository(db)
	pricingService := application.NewPricingService(pricingRepo, fare.NewAirportMatcher(airportKeywords), log)
	if err := pricingService.SeedDefaults(ctx, seed); err != nil {
		log.Fatal("failed to seed pricing", zap.Error(err))
	}

	// Initialize geo providers
	router, geocoder := buildProviders(cfg.ProviderConfig, log)
	estimator := route.NewEstimator(router, cfg.ProviderConfig.Timeout, log)
	estimateService := application.NewEstimateService(estimator, router, geocoder, pricingService, log)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.AccessTTL)

	// Initialize event publisher
	var publisher eventSink
	if cfg.KafkaConfig.Enabled {
		publisher = kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	} else {
		log.Warn("kafka disabled, booking events will only be logged")
		publisher = bookingEvents.NewLogPublisher(log)
	}
	defer func() { _ = publisher.Close() }()

	// Initialize repositories and application services
	bookingRepo := repository.NewGormBookingRepository(db)
	customerRepo := repository.NewGormCustomerRepository(db)

	customerService := application.NewCustomerService(customerRepo, log)
	bookingService := application.NewBookingService(
		bookingRepo,
		estimateService,
		customerService,
		publisher,
		cfg.WhatsAppNumber,
		log,
	)

	// Start dispatch event consumer in a goroutine
	if cfg.KafkaConfig.Enabled {
		groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
		dispatchConsumer := bookingEvents.NewDispatchEventConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			bookingService,
			log,
		)
		defer func() { _ = dispatchConsumer.Close() }()

		go func() {
			log.Info("starting dispatch event consumer")
			if err := dispatchConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("dispatch event consumer error", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	estimateHandler := handler.NewEstimateHandler(estimateService, pricingService)
	bookingHandler := handler.NewBookingHandler(bookingService)
	liveHandler := handler.NewLiveEstimateHandler(estimateService, cfg.EstimateDebounce, cfg.AllowedOrigins, log)
	adminHandler := handler.NewAdminHandler(
		bookingService,
		customerService,
		jwtManager,
		handler.AdminCredentials{
			Username:     cfg.AdminConfig.Username,
			PasswordHash: cfg.AdminConfig.PasswordHash,
		},
		log,
	)
	pricingHandler := handler.NewPricingHandler(pricingService)

	if cfg.AdminConfig.PasswordHash == "" {
		log.Warn("ADMIN_PASSWORD_HASH not set, admin login is disabled")
	}

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	// Apply global middleware
	engine.Use(middleware.RecoveryMiddleware(log))
	engine.Use(middleware.LoggerMiddleware(log))
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.CORSMiddleware(cfg.AllowedOrigins...))
	engine.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, serviceName)
	healthHandler.RegisterRoutes(engine)

	// Register routes
	estimateHandler.RegisterRoutes(&engine.RouterGroup)
	bookingHandler.RegisterRoutes(&engine.RouterGroup)
	liveHandler.RegisterRoutes(&engine.RouterGroup)
	adminHandler.RegisterRoutes(&engine.RouterGroup, jwtManager)
	pricingHandler.RegisterRoutes(&engine.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}

// buildProviders wires the configured routing and geocoding providers.
// Geoapify is tried before OpenRouteService. With no keys the router is nil
// and every estimate uses the great-circle fallback.
func buildProviders(cfg config.ProviderConfig, log *zap.Logger) (route.Router, route.Geocoder) {
	var (
		routers  []route.Router
		geocoder route.Geocoder
	)

	if cfg.GeoapifyAPIKey != "" {
		client := geoapify.NewClient(geoapify.Config{
			APIKey:        cfg.GeoapifyAPIKey,
			BaseURL:       cfg.GeoapifyBaseURL,
			Timeout:       cfg.Timeout,
			DefaultBias:   geo.Coordinate{Latitude: cfg.DefaultBiasLat, Longitude: cfg.DefaultBiasLon},
			CountryFilter: cfg.CountryFilter,
			Limit:         cfg.AutocompleteLimit,
		})
		routers = append(routers, client)
		geocoder = client
	}
	if cfg.ORSAPIKey != "" {
		routers = append(routers, openroute.NewClient(cfg.ORSAPIKey, cfg.ORSBaseURL, cfg.Timeout))
	}

	if len(routers) == 0 {
		log.Warn("no routing provider configured, estimates will use the great-circle fallback")
		return nil, geocoder
	}

	chain := provider.NewChainRouter(routers...)
	log.Info("routing providers configured", zap.String("chain", chain.Name()))
	return chain, geocoder
}
