package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/prestamos/ledger-engine/internal/config"
	"github.com/prestamos/ledger-engine/internal/repository"
	"github.com/prestamos/ledger-engine/internal/service"
	"github.com/prestamos/ledger-engine/internal/validation"
)

// The auditor periodically recomputes every loan's installment sum and logs
// any ledger whose amounts have drifted away from the loan total beyond the
// configured epsilon.
func main() {
	_ = godotenv.Load()

	log.Println("Starting ledger auditor...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := initStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	rosterRepo := repository.NewRosterRepository(store)
	ledgerRepo := repository.NewLedgerRepository(store)
	ledgerService := service.NewLedgerService(rosterRepo, ledgerRepo, validation.New(), cfg)

	location, err := time.LoadLocation(cfg.Auditor.Timezone)
	if err != nil {
		log.Fatalf("Invalid auditor timezone %q: %v", cfg.Auditor.Timezone, err)
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	_, err = c.AddFunc(cfg.Auditor.Schedule, func() {
		runAudit(ledgerService)
	})
	if err != nil {
		log.Fatalf("Error scheduling conservation audit: %v", err)
	}

	// Run once at startup so a bad deploy is caught immediately
	runAudit(ledgerService)

	c.Start()
	log.Printf("Auditor started, schedule %q", cfg.Auditor.Schedule)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down auditor...")
	c.Stop()
	log.Println("Auditor stopped")
}

func runAudit(ledgerService *service.LedgerService) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reports, err := ledgerService.AuditConservation(ctx)
	if err != nil {
		log.Printf("Conservation audit failed: %v", err)
		return
	}

	broken := 0
	for _, report := range reports {
		if report.OK {
			continue
		}
		broken++
		log.Printf("Conservation broken for loan %s (%s): installments sum to %s, total is %s (drift %s)",
			report.LoanID, report.Client, report.Sum, report.Total, report.Drift)
	}

	log.Printf("Conservation audit done: %d ledgers checked, %d broken", len(reports), broken)
}

func initStore(cfg *config.Config) (repository.KVStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		// An in-process store has nothing persisted to audit, but stays
		// valid for dry runs.
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
