package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/prestamos/ledger-engine/internal/config"
	"github.com/prestamos/ledger-engine/internal/handler"
	"github.com/prestamos/ledger-engine/internal/repository"
	"github.com/prestamos/ledger-engine/internal/service"
	"github.com/prestamos/ledger-engine/internal/validation"
	"github.com/prestamos/ledger-engine/pkg/response"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the persistence store
	store, err := initStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	// Initialize repositories
	rosterRepo := repository.NewRosterRepository(store)
	ledgerRepo := repository.NewLedgerRepository(store)

	// Initialize service
	ledgerService := service.NewLedgerService(rosterRepo, ledgerRepo, validation.New(), cfg)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	healthHandler := handler.NewHealthHandler(store)

	// Setup routes
	router := setupRoutes(ledgerHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      response.LoggingMiddleware(response.CORSMiddleware(router)),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s (storage backend: %s)", server.Addr, cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initStore(cfg *config.Config) (repository.KVStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return repository.NewMemoryStore(), nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return repository.NewRedisStore(client), nil

	case config.BackendPostgres:
		db, err := sqlx.Connect("postgres", cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		store := repository.NewPostgresStore(db)
		if err := store.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func setupRoutes(ledgerHandler *handler.LedgerHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", ledgerHandler.ListLoans).Methods("GET")
	api.HandleFunc("/loans", ledgerHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/installments", ledgerHandler.GetInstallments).Methods("GET")
	api.HandleFunc("/loans/{loanId}/installments", ledgerHandler.ResetLedger).Methods("DELETE")
	api.HandleFunc("/loans/{loanId}/installments/{index:[0-9]+}/split", ledgerHandler.Split).Methods("POST")
	api.HandleFunc("/loans/{loanId}/installments/{index:[0-9]+}/rebalance", ledgerHandler.Rebalance).Methods("POST")
	api.HandleFunc("/loans/{loanId}/installments/{installmentId}/pay", ledgerHandler.Pay).Methods("POST")
	api.HandleFunc("/loans/{loanId}/installments/{installmentId}", ledgerHandler.UpdateInstallment).Methods("PATCH")

	return router
}
