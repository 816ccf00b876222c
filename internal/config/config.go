package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// Outbound channel gateways.
	WhatsAppGatewayURL string `env:"WHATSAPP_GATEWAY_URL"`
	SMSGatewayURL      string `env:"SMS_GATEWAY_URL"`
	SMTPHost           string `env:"SMTP_HOST"`
	SMTPPort           int    `env:"SMTP_PORT,default=587"`
	SMTPUsername       string `env:"SMTP_USERNAME"`
	SMTPPassword       string `env:"SMTP_PASSWORD"`
	SMTPSender         string `env:"SMTP_SENDER"`

	// Bulk dispatch.
	WorkerConcurrency    int `env:"WORKER_CONCURRENCY,default=4"`
	DispatchBatchSize    int `env:"DISPATCH_BATCH_SIZE,default=30"`
	BatchPauseSeconds    int `env:"DISPATCH_BATCH_PAUSE_SECONDS,default=20"`
	RateLimitPerSec      int `env:"RATE_LIMIT_PER_SEC,default=10"`
	RateLimitWaitSeconds int `env:"RATE_LIMIT_WAIT_SECONDS,default=30"`

	// Scoring decay.
	StalenessWindowDays int `env:"DECAY_STALENESS_WINDOW_DAYS,default=14"`
	DecayDecrement      int `env:"DECAY_DECREMENT,default=10"`
	DecaySweepHours     int `env:"DECAY_SWEEP_HOURS,default=24"`

	// Sequences.
	SequenceSweepMinutes int `env:"SEQUENCE_SWEEP_MINUTES,default=180"`
	SequenceSweepLimit   int `env:"SEQUENCE_SWEEP_LIMIT,default=500"`
	MaxStepSendAttempts  int `env:"MAX_STEP_SEND_ATTEMPTS,default=3"`

	// Template selection.
	SelectorMinSamples int `env:"SELECTOR_MIN_SAMPLES,default=10"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) BatchPause() time.Duration {
	return time.Duration(c.BatchPauseSeconds) * time.Second
}

func (c *Config) RateLimitWait() time.Duration {
	return time.Duration(c.RateLimitWaitSeconds) * time.Second
}

func (c *Config) StalenessWindow() time.Duration {
	return time.Duration(c.StalenessWindowDays) * 24 * time.Hour
}

func (c *Config) DecaySweepInterval() time.Duration {
	return time.Duration(c.DecaySweepHours) * time.Hour
}

func (c *Config) SequenceSweepInterval() time.Duration {
	return time.Duration(c.SequenceSweepMinutes) * time.Minute
}
