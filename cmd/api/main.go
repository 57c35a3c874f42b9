package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/abanremit/mpesa-relay/internal/config"
	"github.com/abanremit/mpesa-relay/internal/daraja"
	"github.com/abanremit/mpesa-relay/internal/handler"
	"github.com/abanremit/mpesa-relay/internal/logging"
	"github.com/abanremit/mpesa-relay/internal/middleware"
	"github.com/abanremit/mpesa-relay/internal/repository"
	"github.com/abanremit/mpesa-relay/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("mpesa-relay", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	gateway := daraja.NewClient(daraja.Config{
		BaseURL:        cfg.DarajaBaseURL,
		ConsumerKey:    cfg.DarajaConsumerKey,
		ConsumerSecret: cfg.DarajaConsumerSecret,
		Shortcode:      cfg.DarajaShortcode,
		Passkey:        cfg.DarajaPasskey,
		CallbackURL:    cfg.CallbackURL,
		Timeout:        time.Duration(cfg.GatewayTimeoutS) * time.Second,
	})

	transactionRepo := repository.NewTransactionRepository(db)
	walletRepo := repository.NewWalletRepository(db)

	depositSvc := service.NewDepositService(transactionRepo, gateway)
	reconcileSvc := service.NewReconcileService(transactionRepo, walletRepo, db)

	healthHandler := handler.NewHealthHandler(db)
	stkPushHandler := handler.NewSTKPushHandler(depositSvc)
	callbackHandler := handler.NewCallbackHandler(reconcileSvc)
	transactionHandler := handler.NewTransactionHandler(transactionRepo, walletRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", healthHandler.Liveness)
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.HandleFunc("POST /stkpush", stkPushHandler.InitiateDeposit)
	mux.HandleFunc("POST /callback", callbackHandler.ReceiveCallback)
	mux.HandleFunc("GET /transactions/{checkoutRequestId}", transactionHandler.GetTransaction)
	mux.HandleFunc("GET /wallets/{ownerId}", transactionHandler.GetWallet)

	var root http.Handler = mux
	root = middleware.Recovery(root)
	root = middleware.Logging(root)
	root = middleware.Tracing(root)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connectDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeS) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeS) * time.Second)

	for i := range 30 {
		if err = db.Ping(); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	db.Close()
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
