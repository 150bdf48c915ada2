package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/masterrlv/log-2/internal/config"
	"github.com/masterrlv/log-2/internal/db"
	"github.com/masterrlv/log-2/internal/queue"
	"github.com/masterrlv/log-2/internal/repository"
	"github.com/masterrlv/log-2/internal/search"
	"github.com/masterrlv/log-2/internal/server"
	"github.com/masterrlv/log-2/internal/storage"
	"github.com/masterrlv/log-2/internal/uploads"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	jobQueue, err := queue.NewRedisQueue(ctx, queue.RedisConfig{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		Database: cfg.Redis.Database,
	})
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer jobQueue.Close()

	artifactStore, err := storage.NewLocalStore(cfg.Ingest.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	uploadRepo := repository.NewUploadRepository(conn.Pool)
	entryRepo := repository.NewLogEntryRepository(conn)

	uploadSvc := uploads.NewService(uploadRepo, entryRepo, artifactStore, jobQueue)
	searchSvc := search.NewService(entryRepo)

	srv := server.New(cfg.Server, uploadSvc, searchSvc)

	go func() {
		log.Printf("Starting API server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
