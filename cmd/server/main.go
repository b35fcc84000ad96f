package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"eventregistration/config"
	_ "eventregistration/docs"
	"eventregistration/internal/adapters/auth"
	"eventregistration/internal/adapters/email"
	httpdelivery "eventregistration/internal/delivery/http"
	"eventregistration/internal/delivery/http/controllers"
	"eventregistration/internal/delivery/http/middleware"
	"eventregistration/internal/repository/postgres"
	"eventregistration/internal/services"
)

// @title Event Registration API
// @version 1.0
// @description Event registration, pricing, capacity, and cancellation API.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	eventRepo := postgres.NewEventRepository(db)
	regConfRepo := postgres.NewRegConfRepository(db)
	pricingRepo := postgres.NewPricingRepository(db)
	registrationRepo := postgres.NewRegistrationRepository(db)
	registrantRepo := postgres.NewRegistrantRepository(db)
	ledger := postgres.NewInvoiceLedger(db)

	notifier, err := email.NewNotifier(email.Config{
		Provider:        cfg.Mailer.Provider,
		FromAddress:     cfg.Mailer.FromAddress,
		FromName:        cfg.Mailer.FromName,
		AdminRecipients: cfg.Mailer.AdminRecipients,
		SES: email.SESConfig{
			Region:          cfg.Mailer.SESRegion,
			AccessKeyID:     cfg.Mailer.SESAccessKeyID,
			SecretAccessKey: cfg.Mailer.SESSecretAccessKey,
		},
	})
	if err != nil {
		log.Fatalf("failed to create notifier: %v", err)
	}

	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.TokenTTL)

	catalogService := services.NewCatalogService(eventRepo, regConfRepo, pricingRepo)
	pricingService := services.NewPricingService(regConfRepo, pricingRepo, cfg.Settings)
	registrantService := services.NewRegistrantService(registrationRepo, registrantRepo, regConfRepo, pricingRepo, ledger, notifier, cfg.Settings)
	registrationService := services.NewRegistrationService(
		eventRepo, regConfRepo, pricingRepo, registrationRepo, registrantRepo,
		ledger, notifier, pricingService, registrantService, cfg.Settings,
	)

	eventController := controllers.NewEventController(logger, catalogService)
	pricingController := controllers.NewPricingController(logger, pricingService)
	registrationController := controllers.NewRegistrationController(logger, registrationService, catalogService)
	registrantController := controllers.NewRegistrantController(logger, registrantService)

	mux := httpdelivery.NewRouter(verifier, eventController, pricingController, registrationController, registrantController)

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(logger, handler)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		handler = middleware.CORS(splitOrigins(origins), handler)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown: %v", err)
	}
	logger.Info("server exited")
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
