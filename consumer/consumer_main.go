package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tnqbao/gau-playbook-orchestrator/config"
	"github.com/tnqbao/gau-playbook-orchestrator/consumer/worker"
	infraPkg "github.com/tnqbao/gau-playbook-orchestrator/infra"
	"github.com/tnqbao/gau-playbook-orchestrator/repository"
)

func main() {
	err := godotenv.Load("../staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	if infra.RabbitMQ == nil {
		log.Fatalf("RabbitMQ is required by the execution log consumer")
	}

	// Initialize context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if infra.Minio != nil {
		if err := infra.Minio.EnsureBucket(ctx); err != nil {
			infra.Logger.WarningWithContextf(ctx, "[Consumer] Failed to ensure log bucket %s: %v", infra.Minio.Bucket, err)
		}
	}

	logConsumer := worker.NewExecutionLogConsumer(infra.RabbitMQ.Channel, infra, repo, cfg.EnvConfig.Paths.Logs)
	if err := logConsumer.Start(ctx); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Failed to start execution log consumer: %v", err)
		log.Fatalf("Failed to start execution log consumer: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down consumer...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	infra.Close(shutdownCtx)

	infra.Logger.InfoWithContextf(shutdownCtx, "Consumer exited properly")
}
