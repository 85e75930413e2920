package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration of the service.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	GeoIPDBPath string `env:"GEOIP_DB_PATH"`

	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"180s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RateLimitPerMin  int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	AllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	DefaultLocale    string        `env:"DEFAULT_LOCALE" envDefault:"en"`

	Storage   StorageConfig
	Providers ProviderConfig
	Poll      PollConfig
}

// StorageConfig selects and configures the durable object store.
type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"generated-media"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
	PublicURL string `env:"STORAGE_PUBLIC_URL"`
	BasePath  string `env:"STORAGE_BASE_PATH" envDefault:"./storage"`
}

// ProviderConfig holds credentials and ordering for the generation providers.
type ProviderConfig struct {
	GeminiAPIKey    string   `env:"GEMINI_API_KEY"`
	GeminiBaseURL   string   `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModel     string   `env:"GEMINI_IMAGE_MODEL" envDefault:"gemini-2.5-flash-image"`
	VeoModel        string   `env:"VEO_MODEL" envDefault:"veo-3.1-generate-preview"`
	OpenAIAPIKey    string   `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string   `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel     string   `env:"OPENAI_IMAGE_MODEL" envDefault:"dall-e-3"`
	DashScopeAPIKey string   `env:"DASHSCOPE_API_KEY"`
	DashScopeURL    string   `env:"DASHSCOPE_BASE_URL" envDefault:"https://dashscope-intl.aliyuncs.com/api/v1"`
	DashScopeModel  string   `env:"DASHSCOPE_IMAGE_MODEL" envDefault:"qwen-image-plus"`
	ImageOrder      []string `env:"IMAGE_PROVIDER_ORDER" envSeparator:"," envDefault:"gemini,openai,qwen"`
	VideoOrder      []string `env:"VIDEO_PROVIDER_ORDER" envSeparator:"," envDefault:"veo"`
}

// PollConfig bounds the async job poll loops.
type PollConfig struct {
	Interval     time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	ImageBudget  int           `env:"POLL_IMAGE_MAX_ATTEMPTS" envDefault:"30"`
	VideoBudget  int           `env:"POLL_VIDEO_MAX_ATTEMPTS" envDefault:"120"`
	StageRetries int           `env:"REFERENCE_STAGE_RETRIES" envDefault:"1"`
}

// LoadConfig parses configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}
