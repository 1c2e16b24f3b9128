package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "Walk-in Guest", cfg.GuestName)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "0 9 * * *", cfg.StockAlertSchedule)
	assert.Equal(t, int64(0), cfg.TaxBasisPoints())
	assert.False(t, cfg.SMSEnabled())
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadParsesLists(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TAX_RATE", "8.25")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("STOCK_ALERT_RECIPIENTS", "+15550000001,+15550000002")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15550000000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(825), cfg.TaxBasisPoints())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Len(t, cfg.StockAlertTo, 2)
	assert.True(t, cfg.SMSEnabled())
}

func TestValidate(t *testing.T) {
	valid := Config{TaxRate: "10", StockAlertSchedule: "@hourly", LogOutput: "stdout"}
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Config){
		"tax above 100":  func(c *Config) { c.TaxRate = "101" },
		"tax negative":   func(c *Config) { c.TaxRate = "-1" },
		"tax not number": func(c *Config) { c.TaxRate = "ten" },
		"bad schedule":   func(c *Config) { c.StockAlertSchedule = "every day" },
		"bad log output": func(c *Config) { c.LogOutput = "syslog" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoggingConfig(t *testing.T) {
	c := Config{LogLevel: "DEBUG", LogFormat: "json", LogOutput: "both", LogPath: "/tmp/logs", LogMaxSize: 10}
	lc := c.Logging()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "both", lc.Output)
	assert.Equal(t, 10, lc.MaxSize)
}
