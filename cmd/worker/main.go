package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/masterrlv/log-2/internal/config"
	"github.com/masterrlv/log-2/internal/db"
	"github.com/masterrlv/log-2/internal/pipeline"
	"github.com/masterrlv/log-2/internal/queue"
	"github.com/masterrlv/log-2/internal/repository"
	"github.com/masterrlv/log-2/internal/storage"
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

	pipe := pipeline.New(uploadRepo, entryRepo, artifactStore)
	worker := pipeline.NewWorker(jobQueue, pipe, artifactStore, pipeline.RetryPolicy{
		MaxAttempts: cfg.Ingest.MaxAttempts,
		RetryDelay:  cfg.Ingest.RetryDelay,
		JobTimeout:  cfg.Ingest.JobTimeout,
	}, cfg.Ingest.Workers)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down worker...")
		cancel()
	}()

	log.Printf("Starting %d ingestion workers", cfg.Ingest.Workers)
	worker.Run(ctx)
	log.Println("Worker exited")
}
