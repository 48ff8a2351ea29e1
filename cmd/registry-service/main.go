package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/certflow/certportal-backend/internal/registry/consumers"
	"github.com/certflow/certportal-backend/internal/registry/events"
	"github.com/certflow/certportal-backend/internal/registry/handler"
	"github.com/certflow/certportal-backend/internal/registry/repository"
	"github.com/certflow/certportal-backend/internal/registry/service"
	"github.com/certflow/certportal-backend/pkg/config"
	"github.com/certflow/certportal-backend/pkg/database"
	"github.com/certflow/certportal-backend/pkg/httputil"
	"github.com/certflow/certportal-backend/pkg/identity"
	"github.com/certflow/certportal-backend/pkg/logger"
	"github.com/certflow/certportal-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("registry-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("registry-service", cfg.Server.Environment)
	log.Info().Msg("starting Registry Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewRegistryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	appRepo := repository.NewApplicationRepository(db)
	criteriaRepo := repository.NewCriteriaRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	// Initialize services
	criteriaService := service.NewCriteriaService(criteriaRepo, log)
	documentService := service.NewDocumentService(docRepo, appRepo, publisher, log)
	billingService := service.NewBillingService(invoiceRepo, publisher, cfg.Billing, log)
	workflowService := service.NewWorkflowService(
		appRepo, documentService, criteriaService, billingService,
		service.NewScorer(), publisher, cfg.Registry, log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed stock criteria and level bands on a fresh install
	if err := criteriaService.SeedDefaults(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to seed scoring configuration")
	}

	// Start billing event consumer (invoice.paid drives activation)
	billingConsumer, err := consumers.NewBillingEventConsumer(rmq, workflowService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create billing event consumer")
	}
	if err := billingConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start billing event consumer")
	}

	// Start background sweeps (expiry transitions, overdue invoices)
	scheduler := service.NewSweepScheduler(workflowService, billingService, cfg.Registry.SweepInterval, log)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Initialize handlers
	applicationHandler := handler.NewApplicationHandler(workflowService, log)
	criteriaHandler := handler.NewCriteriaHandler(criteriaService, log)
	documentHandler := handler.NewDocumentHandler(documentService, log)
	invoiceHandler := handler.NewInvoiceHandler(billingService, log)

	jwtManager := identity.NewManager(&cfg.JWT)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(httputil.Authenticator(jwtManager))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "registry-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/registry", func(r chi.Router) {
		// Application workflow
		r.Route("/applications", func(r chi.Router) {
			r.Get("/", applicationHandler.List)
			r.Post("/", applicationHandler.Create)
			r.Get("/{id}", applicationHandler.Get)
			r.Post("/{id}/submit", applicationHandler.Submit)
			r.Post("/{id}/claim", applicationHandler.Claim)
			r.Post("/{id}/approve", applicationHandler.Approve)
			r.Post("/{id}/reject", applicationHandler.Reject)
			r.Post("/{id}/activate", applicationHandler.Activate)
			r.Post("/{id}/suspend", applicationHandler.Suspend)
			r.Post("/{id}/resume", applicationHandler.Resume)
			r.Post("/{id}/revoke", applicationHandler.Revoke)
			r.Post("/{id}/renew", applicationHandler.RequestRenewal)
			r.Post("/{id}/renewal-complete", applicationHandler.CompleteRenewal)
			r.Put("/{id}/profile", applicationHandler.EditProfile)
			r.Get("/{id}/audit", applicationHandler.Audit)
			r.Get("/{id}/score", applicationHandler.Score)
			r.Get("/{id}/documents", documentHandler.ListByApplication)
		})

		// Scoring criteria and level bands
		r.Route("/criteria", func(r chi.Router) {
			r.Get("/", criteriaHandler.List)
			r.Post("/", criteriaHandler.Create)
			r.Get("/balance", criteriaHandler.Balance)
			r.Get("/{id}", criteriaHandler.Get)
			r.Put("/{id}", criteriaHandler.Update)
			r.Delete("/{id}", criteriaHandler.Delete)
		})
		r.Route("/level-bands", func(r chi.Router) {
			r.Get("/", criteriaHandler.ListLevelBands)
			r.Get("/for-years", criteriaHandler.LevelForYears)
			r.Post("/", criteriaHandler.CreateLevelBand)
			r.Put("/{id}", criteriaHandler.UpdateLevelBand)
			r.Delete("/{id}", criteriaHandler.DeleteLevelBand)
		})

		// Document verification ledger
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documentHandler.Submit)
			r.Post("/{id}/verify", documentHandler.Verify)
			r.Post("/{id}/reject", documentHandler.Reject)
		})

		// Billing ledger
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", invoiceHandler.List)
			r.Get("/{id}", invoiceHandler.Get)
			r.Post("/{id}/pay", invoiceHandler.Pay)
			r.Post("/{id}/cancel", invoiceHandler.Cancel)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers and sweeps
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
