// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Quotes        QuotesConfig        `yaml:"quotes"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Tracing       TracingConfig       `yaml:"tracing"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	QueueSize    int           `yaml:"queue_size"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// RedisConfig defines the Redis used for per-booking locks. When disabled
// locks are held in process.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// QuotesConfig defines the quote service client.
type QuotesConfig struct {
	BaseURL   string          `yaml:"base_url"`
	APIKey    string          `yaml:"api_key"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines quote API rate limiting settings. A zero daily
// limit means unlimited.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// MonitorConfig defines price check behavior.
type MonitorConfig struct {
	Concurrency       int           `yaml:"concurrency"`
	MinCheckInterval  time.Duration `yaml:"min_check_interval"`
	ArrivalCutoff     time.Duration `yaml:"arrival_cutoff"`
	Retention         time.Duration `yaml:"retention"`
	CycleTimeout      time.Duration `yaml:"cycle_timeout"` // 0 = none
	MinPlausibleRatio float64       `yaml:"min_plausible_ratio"`
}

// ScheduleConfig defines cron intervals and digest times.
type ScheduleConfig struct {
	CheckInterval   time.Duration `yaml:"check_interval"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	DigestDaily     string        `yaml:"digest_daily"`  // cron spec
	DigestWeekly    string        `yaml:"digest_weekly"` // cron spec
}

// NotificationsConfig defines channel backends. A channel without a
// backend logs and discards its messages.
type NotificationsConfig struct {
	Email EmailConfig `yaml:"email"`
	Push  PushConfig  `yaml:"push"`
	SMS   SMSConfig   `yaml:"sms"`
}

// EmailConfig defines SMTP settings.
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"smtp_host"`
	Port     int    `yaml:"smtp_port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// PushConfig defines the push webhook.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// SMSConfig defines the SMS gateway.
type SMSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	GatewayURL string `yaml:"gateway_url"`
}

// TracingConfig defines OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, pretty
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyRedisDefaults(&cfg.Redis)
	applyQuotesDefaults(&cfg.Quotes)
	applyMonitorDefaults(&cfg.Monitor)
	applyScheduleDefaults(&cfg.Schedule)
	applyNotificationDefaults(&cfg.Notifications)
	applyTracingDefaults(&cfg.Tracing)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
	if s.QueueSize == 0 {
		s.QueueSize = 64
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyRedisDefaults(r *RedisConfig) {
	if r.Addr == "" {
		r.Addr = "localhost:6379"
	}
}

func applyQuotesDefaults(q *QuotesConfig) {
	if q.Timeout == 0 {
		q.Timeout = 10 * time.Second
	}
	if q.RateLimit.PerSecond == 0 {
		q.RateLimit.PerSecond = 5.0
	}
	if q.RateLimit.Burst == 0 {
		q.RateLimit.Burst = 10
	}
}

func applyMonitorDefaults(m *MonitorConfig) {
	if m.Concurrency == 0 {
		m.Concurrency = 4
	}
	if m.MinCheckInterval == 0 {
		m.MinCheckInterval = time.Hour
	}
	if m.ArrivalCutoff == 0 {
		m.ArrivalCutoff = 24 * time.Hour
	}
	if m.Retention == 0 {
		m.Retention = 30 * 24 * time.Hour
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.CheckInterval == 0 {
		s.CheckInterval = time.Hour
	}
	if s.CleanupInterval == 0 {
		s.CleanupInterval = 24 * time.Hour
	}
	if s.DigestDaily == "" {
		s.DigestDaily = "0 8 * * *"
	}
	if s.DigestWeekly == "" {
		s.DigestWeekly = "0 8 * * 1"
	}
}

func applyNotificationDefaults(n *NotificationsConfig) {
	if n.Email.Port == 0 {
		n.Email.Port = 587
	}
}

func applyTracingDefaults(t *TracingConfig) {
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4317"
	}
	if t.ServiceName == "" {
		t.ServiceName = "hotel-price-tracker"
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}

	if cfg.Quotes.BaseURL == "" {
		errs = append(errs, fmt.Errorf("quotes.base_url is required"))
	}
	if cfg.Quotes.RateLimit.DailyLimit < 0 {
		errs = append(errs, fmt.Errorf("quotes.rate_limit.daily_limit must not be negative"))
	}

	if cfg.Monitor.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("monitor.concurrency must not be negative"))
	}
	if cfg.Monitor.CycleTimeout < 0 {
		errs = append(errs, fmt.Errorf("monitor.cycle_timeout must not be negative"))
	}
	if cfg.Monitor.MinPlausibleRatio < 0 || cfg.Monitor.MinPlausibleRatio >= 1 {
		errs = append(errs, fmt.Errorf("monitor.min_plausible_ratio must be in [0, 1) (got %v)", cfg.Monitor.MinPlausibleRatio))
	}

	n := cfg.Notifications
	if n.Email.Enabled && (n.Email.Host == "" || n.Email.From == "") {
		errs = append(errs, fmt.Errorf("notifications.email.smtp_host and from are required when email is enabled"))
	}
	if n.Push.Enabled && n.Push.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("notifications.push.webhook_url is required when push is enabled"))
	}
	if n.SMS.Enabled && n.SMS.GatewayURL == "" {
		errs = append(errs, fmt.Errorf("notifications.sms.gateway_url is required when sms is enabled"))
	}

	switch cfg.Logging.Format {
	case "text", "json", "pretty":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be one of: text, json, pretty (got %q)", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}
