package infra

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/tnqbao/gau-playbook-orchestrator/config"
	"github.com/tnqbao/gau-playbook-orchestrator/infra/produce"
)

type Infra struct {
	Database  *DatabaseClient
	Redis     *RedisClient
	Logger    *LoggerClient
	Telemetry *TelemetryClient
	RabbitMQ  *RabbitMQClient
	Produce   *produce.Produce
	Minio     *MinioClient
	Ansible   *AnsibleClient
}

var infraInstance *Infra

func InitInfra(cfg *config.Config) *Infra {
	if infraInstance != nil {
		return infraInstance
	}

	for _, dir := range []string{
		cfg.EnvConfig.Paths.Playbooks,
		cfg.EnvConfig.Paths.Inventory,
		cfg.EnvConfig.Paths.Logs,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			panic(fmt.Sprintf("Failed to create directory %s: %v", dir, err))
		}
	}

	logger := InitLoggerClient(cfg.EnvConfig)
	if logger == nil {
		panic("Failed to initialize Logger service")
	}

	telemetry := InitTelemetryClient(cfg.EnvConfig)
	if telemetry == nil {
		panic("Failed to initialize Telemetry service")
	}

	database := InitDatabaseClient(cfg.EnvConfig)
	if database == nil {
		panic("Failed to initialize Database service")
	}

	ansible := InitAnsibleClient(cfg.EnvConfig)
	if ansible == nil {
		panic("Failed to initialize Ansible service")
	}

	// Redis, RabbitMQ and MinIO are optional; without them the service
	// still runs on a single replica with local websocket notifications.
	redis, err := InitRedisClient(cfg.EnvConfig)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis service: %v (cross-replica notifications disabled)", err)
		redis = nil
	}

	rabbitMQ, err := InitRabbitMQClient(cfg.EnvConfig)
	if err != nil {
		log.Printf("Warning: Failed to initialize RabbitMQ service: %v (completion events will not be published)", err)
		rabbitMQ = nil
	}

	var produceService *produce.Produce
	if rabbitMQ != nil {
		produceService = produce.InitProduce(rabbitMQ.Channel)
	}

	minio, err := NewMinioClient(cfg.EnvConfig)
	if err != nil {
		log.Printf("Warning: Failed to initialize MinIO service: %v (execution logs stay on local disk)", err)
		minio = nil
	}

	infraInstance = &Infra{
		Database:  database,
		Redis:     redis,
		Logger:    logger,
		Telemetry: telemetry,
		RabbitMQ:  rabbitMQ,
		Produce:   produceService,
		Minio:     minio,
		Ansible:   ansible,
	}

	return infraInstance
}

// Close releases every connection opened by InitInfra
func (i *Infra) Close(ctx context.Context) {
	if i.RabbitMQ != nil {
		if err := i.RabbitMQ.Close(); err != nil {
			log.Printf("Warning: failed to close RabbitMQ: %v", err)
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			log.Printf("Warning: failed to close Redis: %v", err)
		}
	}
	if err := i.Database.Close(); err != nil {
		log.Printf("Warning: failed to close database: %v", err)
	}
	if err := i.Telemetry.Shutdown(ctx); err != nil {
		log.Printf("Warning: failed to shutdown telemetry: %v", err)
	}
	if err := i.Logger.Shutdown(ctx); err != nil {
		log.Printf("Warning: failed to shutdown logger: %v", err)
	}
}
