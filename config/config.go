package config

import (
	"fmt"
	"strings"

	"hotelpro-backend/logger"
	"hotelpro-backend/pricing"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config is read from the environment, optionally seeded from a .env file.
type Config struct {
	Port        string   `env:"PORT" envDefault:"8080"`
	DBURL       string   `env:"DB_URL"`
	JWTSecret   string   `env:"JWT_SECRET,required,notEmpty"`
	TaxRate     string   `env:"TAX_RATE" envDefault:"0"` // percent, e.g. "8.25"
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	GuestName   string   `env:"GUEST_CUSTOMER_NAME" envDefault:"Walk-in Guest"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"text"`
	LogOutput     string `env:"LOG_OUTPUT" envDefault:"stdout"`
	LogPath       string `env:"LOG_PATH" envDefault:"logs"`
	LogMaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"50"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAge     int    `env:"LOG_MAX_AGE" envDefault:"28"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"hotel-events"`

	TwilioAccountSID   string   `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string   `env:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber  string   `env:"TWILIO_PHONE_NUMBER"`
	StockAlertTo       []string `env:"STOCK_ALERT_RECIPIENTS" envSeparator:","`
	StockAlertSchedule string   `env:"STOCK_ALERT_SCHEDULE" envDefault:"0 9 * * *"`
}

// Load reads .env when present and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	bp, err := pricing.ParseRateBasisPoints(c.TaxRate)
	if err != nil {
		return fmt.Errorf("TAX_RATE: %w", err)
	}
	if bp < 0 || bp > pricing.BasisPointsPerUnit {
		return fmt.Errorf("TAX_RATE must be between 0 and 100, got %s", c.TaxRate)
	}
	if _, err := cron.ParseStandard(c.StockAlertSchedule); err != nil {
		return fmt.Errorf("STOCK_ALERT_SCHEDULE: %w", err)
	}
	switch c.LogOutput {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("LOG_OUTPUT must be stdout, file or both, got %q", c.LogOutput)
	}
	return nil
}

// TaxBasisPoints returns TAX_RATE in basis points. Call after Validate.
func (c *Config) TaxBasisPoints() int64 {
	bp, _ := pricing.ParseRateBasisPoints(c.TaxRate)
	return bp
}

// SMSEnabled reports whether Twilio credentials are complete.
func (c *Config) SMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}

func (c *Config) Logging() logger.Config {
	return logger.Config{
		Level:      strings.ToLower(c.LogLevel),
		Format:     c.LogFormat,
		Output:     c.LogOutput,
		Path:       c.LogPath,
		MaxSize:    c.LogMaxSize,
		MaxBackups: c.LogMaxBackups,
		MaxAge:     c.LogMaxAge,
	}
}
