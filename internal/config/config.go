package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port          int    `env:"PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	RedisURL      string `env:"REDIS_URL,required"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Chat gateway (outbound sends and media downloads)
	GatewayBaseURL string `env:"GATEWAY_BASE_URL,required"`
	GatewayToken   string `env:"GATEWAY_TOKEN"`

	// Allow-list roster
	RosterPath        string `env:"ROSTER_PATH" envDefault:"config/collaborators.yaml"`
	AllowAllWhenEmpty bool   `env:"ALLOW_ALL_WHEN_EMPTY" envDefault:"true"`

	// Batch collection
	MinPhotosPerBatch int `env:"MIN_PHOTOS_PER_BATCH" envDefault:"3"`
	ReminderSeconds   int `env:"REMINDER_SECONDS" envDefault:"120"`
	TimeoutSeconds    int `env:"TIMEOUT_SECONDS" envDefault:"300"`
	DebounceSeconds   int `env:"DEBOUNCE_SECONDS" envDefault:"5"`

	// Supervisor broadcast forwarding
	SupervisorChatID    string `env:"SUPERVISOR_CHAT_ID"`
	ForwardAttempts     int    `env:"FORWARD_ATTEMPTS" envDefault:"3"`
	ForwardDelaySeconds int    `env:"FORWARD_DELAY_SECONDS" envDefault:"2"`

	// Storage
	PhotosDir string `env:"PHOTOS_DIR" envDefault:"photos"`
	SpoolDir  string `env:"SPOOL_DIR" envDefault:"spool"`

	// Microsoft Graph drive (local storage when unset)
	GraphClientID     string `env:"GRAPH_CLIENT_ID"`
	GraphClientSecret string `env:"GRAPH_CLIENT_SECRET"`
	GraphTenantID     string `env:"GRAPH_TENANT_ID"`
	GraphDriveFolder  string `env:"GRAPH_DRIVE_FOLDER" envDefault:"Fotos_WhatsApp"`

	// Daily report email
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	ReportTo string `env:"REPORT_TO"`

	RateLimitPerMin int `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
}

func (c *Config) Reminder() time.Duration {
	return time.Duration(c.ReminderSeconds) * time.Second
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceSeconds) * time.Second
}

func (c *Config) ForwardDelay() time.Duration {
	return time.Duration(c.ForwardDelaySeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) GraphConfigured() bool {
	return c.GraphClientID != "" && c.GraphClientSecret != "" && c.GraphTenantID != ""
}

func (c *Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.ReportTo != ""
}

func (c *Config) Validate(isProduction bool) error {
	if c.MinPhotosPerBatch < 1 {
		return fmt.Errorf("MIN_PHOTOS_PER_BATCH must be at least 1")
	}
	if c.DebounceSeconds >= c.ReminderSeconds {
		return fmt.Errorf("DEBOUNCE_SECONDS must be shorter than REMINDER_SECONDS")
	}

	if isProduction {
		if c.WebhookSecret == "" {
			log.Warn().Msg("WEBHOOK_SECRET is empty in production: webhook signature verification disabled")
		}
		if !c.GraphConfigured() {
			log.Warn().Msg("Graph credentials not configured: batches will be stored on the local filesystem")
		}
		if !c.MailConfigured() {
			log.Warn().Msg("SMTP not configured: daily reports will only be persisted, not emailed")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
