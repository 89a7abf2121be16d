package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":8080"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	DB  DBConfig
	JWT JWTConfig
	S3  S3Config

	OTelEndpoint    string `env:"OTEL_ENDPOINT"`
	OTelServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"vmestego"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST,required"`
	User     string `env:"DB_USER,required"`
	Password string `env:"DB_PASS,required"`
	Name     string `env:"DB_NAME,required"`
	Port     string `env:"DB_PORT,required"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN renders the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET,required,notEmpty"`
	TTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

type S3Config struct {
	Endpoint     string        `env:"S3_ENDPOINT,required"`
	Bucket       string        `env:"S3_BUCKET,required"`
	AccessKey    string        `env:"S3_ACCESS_KEY,required"`
	SecretKey    string        `env:"S3_SECRET_KEY,required"`
	Region       string        `env:"S3_REGION" envDefault:"us-east-1"`
	UploadURLTTL time.Duration `env:"S3_UPLOAD_URL_TTL" envDefault:"15m"`
}

// Load reads an optional .env file and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Warning: .env file not found, using system environment variables")
	}
	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
