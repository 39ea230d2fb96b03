package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/badgepay/badgepay/internal/config"
	"github.com/badgepay/badgepay/internal/handler"
	"github.com/badgepay/badgepay/internal/middleware"
	"github.com/badgepay/badgepay/internal/repository"
	"github.com/badgepay/badgepay/internal/service"
	"github.com/badgepay/badgepay/internal/utils/email"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	alerts := email.NewSender(cfg, logger)
	svc := service.NewService(repo, logger, cfg, alerts)
	h := handler.NewHandler(svc, logger)

	// Periodic cleanup of expired challenges; lookups are expiry-aware, so
	// the sweep only keeps the table small.
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", svc.SweepExpiredChallenges); err != nil {
		logger.Fatalf("Failed to schedule challenge sweep: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Setup router
	r := mux.NewRouter()
	// Card authentication protocol
	r.HandleFunc("/v1/auth/challenge", h.GetChallenge).Methods("GET")
	r.HandleFunc("/v1/auth/card", h.CardAuth).Methods("POST")
	// PIN provisioning happens before any token exists
	r.HandleFunc("/v1/card/{card_id}/setup-pin", h.SetupPin).Methods("POST")
	r.HandleFunc("/v1/card/{card_id}/verify-pin", h.VerifyPin).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/v1").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg, repo, logger))
	authRouter.HandleFunc("/transaction", h.CreateTransaction).Methods("POST")
	authRouter.HandleFunc("/transaction", h.ListTransactions).Methods("GET")
	authRouter.HandleFunc("/account/{id}/balance", middleware.RequireHuman(h.GetBalance)).Methods("GET")
	authRouter.HandleFunc("/ledger/export", middleware.RequireAdmin(h.ExportLedger)).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
