package main

import (
	"Go_Share/config"
	"Go_Share/internal/mq"
	"Go_Share/internal/repo"
	"Go_Share/internal/service"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// Standalone ingest consumer for INGEST_QUEUE=rabbitmq deployments.
// Run exactly one so placement stays sequential.
func main() {
	config.InitConfig()
	cfg := config.AppConfig
	if cfg.IngestQueue != "rabbitmq" {
		log.Fatalf("ingest worker: INGEST_QUEUE=%q, the standalone worker needs rabbitmq", cfg.IngestQueue)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.OpenMysql(cfg)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	shares, closeCache := repo.NewShareStore(ctx, cfg, db)
	defer closeCache()

	queue := mq.NewRabbitQueue(cfg)
	defer queue.Close()

	ingest := service.NewIngestWorker(cfg, db, shares)
	if err := ingest.Run(ctx, queue); err != nil {
		log.Fatalf("ingest worker stopped: %v", err)
	}
}
