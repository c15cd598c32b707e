package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	Database struct {
		Driver     string
		HOST       string
		Name       string
		Username   string
		Password   string
		Port       string
		SQLitePath string
	}
	JWT struct {
		SecretKey string
		Algorithm string
	}
	CORS struct {
		AllowDomains string
	}
	Redis struct {
		Password  string
		Database  int
		RedisHost string
		RedisPort string
		Channel   string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	Minio struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		UseSSL    bool
		LogBucket string
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	Paths struct {
		Playbooks string
		Inventory string
		Logs      string
	}
	Ansible struct {
		PlaybookBinary  string
		AdHocBinary     string
		SSHCommonArgs   string
		ExtraArgs       string
		PlaybookTimeout time.Duration
		PingTimeout     time.Duration
	}
	Runner struct {
		Workers      int
		QueueSize    int
		HistoryLimit int
	}
	Environment struct {
		Mode  string
		Group string
	}
	HTTPPort string
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Database: Postgres when PGPOOL_HOST is set, SQLite otherwise
	config.Database.HOST = os.Getenv("PGPOOL_HOST")
	config.Database.Name = os.Getenv("PGPOOL_DB")
	config.Database.Username = os.Getenv("PGPOOL_USER")
	config.Database.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Database.Port = os.Getenv("PGPOOL_PORT")
	if config.Database.Port == "" {
		config.Database.Port = "5432"
	}
	config.Database.Driver = strings.ToLower(os.Getenv("DB_DRIVER"))
	if config.Database.Driver == "" {
		if config.Database.HOST != "" {
			config.Database.Driver = "postgres"
		} else {
			config.Database.Driver = "sqlite"
		}
	}
	config.Database.SQLitePath = getEnv("SQLITE_PATH", "data/playbook_portal.db")

	// JWT is optional; an empty secret disables the auth middleware
	config.JWT.SecretKey = os.Getenv("JWT_SECRET_KEY")
	config.JWT.Algorithm = getEnv("JWT_ALGORITHM", "HS256")

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")

	// Redis
	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.RedisHost = os.Getenv("REDIS_HOST")
	config.Redis.RedisPort = getEnv("REDIS_PORT", "6379")
	config.Redis.Channel = getEnv("REDIS_EVENT_CHANNEL", "playbook:events")

	// RabbitMQ
	config.RabbitMQ.Host = os.Getenv("RABBITMQ_HOST")
	config.RabbitMQ.Port = getEnv("RABBITMQ_PORT", "5672")
	config.RabbitMQ.Username = getEnv("RABBITMQ_USER", "guest")
	config.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", "guest")

	// MinIO (execution log archive)
	config.Minio.Endpoint = os.Getenv("MINIO_ENDPOINT")
	config.Minio.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	config.Minio.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	config.Minio.UseSSL, _ = strconv.ParseBool(os.Getenv("MINIO_USE_SSL"))
	config.Minio.LogBucket = getEnv("MINIO_LOG_BUCKET", "execution-logs")

	// Grafana/OpenTelemetry
	grafanaEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	// Remove protocol for OpenTelemetry client to avoid duplicate protocols
	if strings.HasPrefix(grafanaEndpoint, "https://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "https://")
	} else if strings.HasPrefix(grafanaEndpoint, "http://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "http://")
	} else {
		config.Grafana.OTLPEndpoint = grafanaEndpoint
	}
	config.Grafana.ServiceName = getEnv("SERVICE_NAME", "gau-playbook-orchestrator")

	// Filesystem collaborators
	config.Paths.Playbooks = getEnv("PLAYBOOKS_DIR", "data/playbooks")
	config.Paths.Inventory = getEnv("INVENTORY_DIR", "data/inventory")
	config.Paths.Logs = getEnv("LOGS_DIR", "data/logs")

	// Ansible
	config.Ansible.PlaybookBinary = getEnv("ANSIBLE_PLAYBOOK_BIN", "ansible-playbook")
	config.Ansible.AdHocBinary = getEnv("ANSIBLE_BIN", "ansible")
	config.Ansible.SSHCommonArgs = getEnv("ANSIBLE_SSH_COMMON_ARGS", "-o StrictHostKeyChecking=no")
	config.Ansible.ExtraArgs = os.Getenv("ANSIBLE_EXTRA_ARGS")
	config.Ansible.PlaybookTimeout = getDuration("PLAYBOOK_TIMEOUT", time.Hour)
	config.Ansible.PingTimeout = getDuration("PING_TIMEOUT", 30*time.Second)

	// Runner pool
	config.Runner.Workers = getInt("RUNNER_WORKERS", 4)
	config.Runner.QueueSize = getInt("RUNNER_QUEUE_SIZE", 64)
	config.Runner.HistoryLimit = getInt("EXECUTION_HISTORY_LIMIT", 50)

	config.Environment.Mode = getEnv("DEPLOY_ENV", "development")
	config.Environment.Group = getEnv("GROUP_NAME", "local")

	config.HTTPPort = getEnv("HTTP_PORT", "5000")

	return &config
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil || val <= 0 {
		return fallback
	}
	return val
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
