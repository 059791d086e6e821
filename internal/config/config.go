package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Env      string   `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTP     `yaml:"http"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Auth     Auth     `yaml:"auth"`
	Admin    Admin    `yaml:"admin"`
	Log      Log      `yaml:"log"`
	Limiter  Limiter  `yaml:"limiter"`
	Tracing  Tracing  `yaml:"tracing"`
}

type Tracing struct {
	Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4318"`
}

type HTTP struct {
	Port        string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	MetricsPort string        `yaml:"metrics_port" env:"METRICS_PORT" env-default:":9091"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
}

type Postgres struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"order_events"`
}

type Auth struct {
	Secret   string        `yaml:"secret" env:"ACCESS_SECRET"`
	TokenTTL time.Duration `yaml:"token_ttl" env-default:"12h"`
}

// Admin describes the bootstrap admin account ensured at startup.
type Admin struct {
	Name     string `yaml:"name" env-default:"Admin"`
	Email    string `yaml:"email" env:"ADMIN_EMAIL" env-default:"admin@salesflow.local"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD"`
	Number   string `yaml:"number" env-default:"1234567890"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Limiter struct {
	Max        int           `yaml:"max" env-default:"20"`
	Expiration time.Duration `yaml:"expiration" env-default:"5s"`
}

func MustLoad() *Config {
	configPath := ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exists: %v\n", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}

// BuildLogger constructs the process logger from the Env and Log sections:
// development encoding everywhere except prod.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", c.Log.Level, err)
	}

	zapCfg := zap.NewDevelopmentConfig()
	if c.Env == "prod" {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

func ParseWithFallback(envName string, fallback string) string {
	result := os.Getenv(envName)
	if result == "" {
		result = fallback
	}

	return result
}
