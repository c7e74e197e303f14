package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/notebell/notebell/internal/ai"
	"github.com/notebell/notebell/internal/alarm"
	"github.com/notebell/notebell/internal/config"
	"github.com/notebell/notebell/internal/database"
	"github.com/notebell/notebell/internal/delivery"
	"github.com/notebell/notebell/internal/httpapi"
	"github.com/notebell/notebell/internal/notify"
	"github.com/notebell/notebell/internal/orchestrate"
	"github.com/notebell/notebell/internal/reconcile"
	"github.com/notebell/notebell/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DatabaseURI == "" {
		log.Fatal("DATABASE_URI is required")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Initialize AI client (optional)
	var aiClient *ai.Client
	if cfg.AIAPIKey != "" {
		aiClient = ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
		log.Printf("AI client initialized (model: %s)", cfg.AIModel)
	} else {
		log.Println("AI client not configured, natural language parsing disabled")
	}

	// Pick the notification display channel
	var notifier delivery.Notifier
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken)
		if err != nil {
			log.Fatalf("Failed to create Telegram notifier: %v", err)
		}
		notifier = tg
		log.Println("Telegram notifier initialized")
	} else {
		notifier = notify.LogNotifier{}
		log.Println("TELEGRAM_TOKEN not set, notifications go to the log")
	}

	// Repositories
	reminderRepo := repository.NewReminderRepository(db)
	scheduleRepo := repository.NewScheduleMetaRepository(db)
	ledgerRepo := repository.NewNotificationLedgerRepository(db)
	alarmRepo := repository.NewArmedAlarmRepository(db)

	// Scheduling core
	reconciler := reconcile.New(scheduleRepo, alarmRepo)
	orchestrator := orchestrate.New(reconciler, reminderRepo)
	handler := delivery.NewHandler(ledgerRepo, notifier, orchestrator, cfg.RetentionDays)

	// Cold-start sweep: re-arm everything that should be armed
	if reminders, err := reminderRepo.GetActive(ctx); err != nil {
		log.Printf("Failed to load active reminders for startup sweep: %v", err)
	} else {
		count := orchestrator.RescheduleAllActive(ctx, reminders)
		log.Printf("Startup sweep rescheduled %d of %d active reminders", count, len(reminders))
	}

	// Start the alarm dispatcher
	dispatcher := alarm.NewDispatcher(alarmRepo, reminderRepo, handler, orchestrator, cfg.CheckInterval)
	go dispatcher.Start(ctx)

	// HTTP trigger surface
	deps := &httpapi.Deps{
		Reminders: reminderRepo,
		Scheduler: orchestrator,
		Push:      handler,
		Ledger:    ledgerRepo,
		Waker:     dispatcher,
	}
	if aiClient != nil {
		deps.Parser = aiClient
	}
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(deps),
	}

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	log.Printf("Starting HTTP server on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server error: %v", err)
	}
}
