package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"0"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"0"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"eduquery-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// ConfidenceThreshold is the routing cutoff on the unified [0,1]
	// confidence scale, where higher confidence means the reference corpus
	// already covers the query. confidence >= threshold routes to the
	// synthesizer; anything below escalates to a teacher. Raising it only
	// ever moves questions toward escalation.
	ConfidenceThreshold float64 `envconfig:"CONFIDENCE_THRESHOLD" default:"0.8"`

	// RetrievalLimit is the number of document chunks handed to the synthesizer
	RetrievalLimit int `envconfig:"RETRIEVAL_LIMIT" default:"4"`

	// ProviderTimeoutSeconds bounds each embedding/synthesizer call
	ProviderTimeoutSeconds int `envconfig:"PROVIDER_TIMEOUT_SECONDS" default:"30"`

	// Bootstrap: create an initial teacher account on startup
	InitTeacherUsername string `envconfig:"INIT_TEACHER_USERNAME"`
	InitTeacherPassword string `envconfig:"INIT_TEACHER_PASSWORD"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("EDUQUERY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("EDUQUERY_CONFIDENCE_THRESHOLD must be in [0, 1], got %v", cfg.ConfidenceThreshold)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
