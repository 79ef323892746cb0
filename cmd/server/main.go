package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audix/internal/api"
	"audix/internal/config"
	"audix/internal/db"
	"audix/internal/hashpool"
	"audix/internal/identity"
	"audix/internal/session"
)

const hashPoolWorkers = 4

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting Audix...")

	database, err := db.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()
	log.Printf("Database opened at %s", cfg.Database.URL)

	requestRepo := db.NewFlatRequestRepository(database)
	flatRepo := db.NewFlatRepository(database)
	setupCodeRepo := db.NewSetupCodeRepository(database)
	sessionRepo := db.NewSessionRepository(database)

	cleanupService := db.NewCleanupService(setupCodeRepo, sessionRepo)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go cleanupService.Start(cleanupCtx)

	hashes := hashpool.New(hashPoolWorkers)
	defer hashes.Close()

	identityService := identity.NewService(requestRepo, flatRepo, setupCodeRepo, hashes)
	sessionService := session.New(sessionRepo, cfg.Server.Production)

	server, err := api.NewServer(cfg, database, identityService, sessionService)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server,
	}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")

	cleanupCancel()

	server.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
