package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  host: localhost
  name: testdb
  user: testuser
quotes:
  base_url: http://localhost:9999
`

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid minimal config",
			yaml: minimalYAML,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "testdb", cfg.Database.Name)
				assert.Equal(t, "testuser", cfg.Database.User)
				assert.Equal(t, "http://localhost:9999", cfg.Quotes.BaseURL)
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: minimalYAML,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 64, cfg.Server.QueueSize)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.Database.PoolSize)
				assert.False(t, cfg.Redis.Enabled)
				assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
				assert.Equal(t, 10*time.Second, cfg.Quotes.Timeout)
				assert.InDelta(t, 5.0, cfg.Quotes.RateLimit.PerSecond, 1e-9)
				assert.Equal(t, 10, cfg.Quotes.RateLimit.Burst)
				assert.Zero(t, cfg.Quotes.RateLimit.DailyLimit)
				assert.Equal(t, 4, cfg.Monitor.Concurrency)
				assert.Equal(t, time.Hour, cfg.Monitor.MinCheckInterval)
				assert.Equal(t, 24*time.Hour, cfg.Monitor.ArrivalCutoff)
				assert.Equal(t, 30*24*time.Hour, cfg.Monitor.Retention)
				assert.Zero(t, cfg.Monitor.CycleTimeout)
				assert.Zero(t, cfg.Monitor.MinPlausibleRatio)
				assert.Equal(t, time.Hour, cfg.Schedule.CheckInterval)
				assert.Equal(t, 24*time.Hour, cfg.Schedule.CleanupInterval)
				assert.Equal(t, "0 8 * * *", cfg.Schedule.DigestDaily)
				assert.Equal(t, "0 8 * * 1", cfg.Schedule.DigestWeekly)
				assert.Equal(t, 587, cfg.Notifications.Email.Port)
				assert.False(t, cfg.Tracing.Enabled)
				assert.Equal(t, "hotel-price-tracker", cfg.Tracing.ServiceName)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "env var substitution",
			yaml: minimalYAML + `
  api_key: "${TEST_QUOTES_API_KEY}"
`,
			envVars: map[string]string{
				"TEST_QUOTES_API_KEY": "secret123",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "secret123", cfg.Quotes.APIKey)
			},
		},
		{
			name: "missing required database.host",
			yaml: `
database:
  name: testdb
  user: testuser
quotes:
  base_url: http://localhost:9999
`,
			wantErr: "database.host is required",
		},
		{
			name: "missing quotes.base_url",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
`,
			wantErr: "quotes.base_url is required",
		},
		{
			name: "errors are joined",
			yaml: `
quotes:
  base_url: http://localhost:9999
`,
			wantErr: "database.name is required",
		},
		{
			name: "implausible ratio out of range",
			yaml: minimalYAML + `
monitor:
  min_plausible_ratio: 1.5
`,
			wantErr: "monitor.min_plausible_ratio must be in [0, 1)",
		},
		{
			name: "push enabled without url",
			yaml: minimalYAML + `
notifications:
  push:
    enabled: true
`,
			wantErr: "notifications.push.webhook_url is required",
		},
		{
			name: "sms enabled without gateway",
			yaml: minimalYAML + `
notifications:
  sms:
    enabled: true
`,
			wantErr: "notifications.sms.gateway_url is required",
		},
		{
			name: "email enabled without host",
			yaml: minimalYAML + `
notifications:
  email:
    enabled: true
`,
			wantErr: "notifications.email.smtp_host and from are required",
		},
		{
			name: "invalid log format",
			yaml: minimalYAML + `
logging:
  format: xml
`,
			wantErr: `logging.format must be one of: text, json, pretty (got "xml")`,
		},
		{
			name:    "invalid YAML",
			yaml:    `{{{not valid yaml`,
			wantErr: "parsing config YAML",
		},
		{
			name: "full config with overrides",
			yaml: `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 60s
  write_timeout: 60s
  queue_size: 16
database:
  host: db.example.com
  port: 5433
  name: hotels_prod
  user: admin
  password: pass
  sslmode: require
  pool_size: 20
redis:
  enabled: true
  addr: redis:6379
  db: 2
quotes:
  base_url: https://quotes.example.com
  timeout: 5s
  rate_limit:
    per_second: 2
    burst: 4
    daily_limit: 1000
monitor:
  concurrency: 8
  min_check_interval: 2h
  arrival_cutoff: 48h
  retention: 720h
  cycle_timeout: 10m
  min_plausible_ratio: 0.3
schedule:
  check_interval: 30m
  cleanup_interval: 12h
  digest_daily: "0 7 * * *"
  digest_weekly: "0 7 * * 0"
notifications:
  email:
    enabled: true
    smtp_host: smtp.example.com
    smtp_port: 2525
    from: alerts@example.com
  push:
    enabled: true
    webhook_url: https://discord.com/api/webhooks/123
  sms:
    enabled: true
    gateway_url: https://sms.example.com/send
tracing:
  enabled: true
  endpoint: otel:4317
  insecure: true
logging:
  level: debug
  format: json
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 16, cfg.Server.QueueSize)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.True(t, cfg.Redis.Enabled)
				assert.Equal(t, "redis:6379", cfg.Redis.Addr)
				assert.Equal(t, 2, cfg.Redis.DB)
				assert.Equal(t, 5*time.Second, cfg.Quotes.Timeout)
				assert.Equal(t, int64(1000), cfg.Quotes.RateLimit.DailyLimit)
				assert.Equal(t, 8, cfg.Monitor.Concurrency)
				assert.Equal(t, 2*time.Hour, cfg.Monitor.MinCheckInterval)
				assert.Equal(t, 48*time.Hour, cfg.Monitor.ArrivalCutoff)
				assert.Equal(t, 10*time.Minute, cfg.Monitor.CycleTimeout)
				assert.InDelta(t, 0.3, cfg.Monitor.MinPlausibleRatio, 1e-9)
				assert.Equal(t, 30*time.Minute, cfg.Schedule.CheckInterval)
				assert.Equal(t, "0 7 * * 0", cfg.Schedule.DigestWeekly)
				assert.Equal(t, 2525, cfg.Notifications.Email.Port)
				assert.Equal(t, "https://sms.example.com/send", cfg.Notifications.SMS.GatewayURL)
				assert.True(t, cfg.Tracing.Enabled)
				assert.True(t, cfg.Tracing.Insecure)
				assert.Equal(t, "otel:4317", cfg.Tracing.Endpoint)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only parallelize tests that don't modify env vars.
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("HPT_TEST_DOTENV=from-file\n"), 0o600))

	t.Setenv("HPT_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("HPT_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "from-file", os.Getenv("HPT_TEST_DOTENV"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML+"  api_key: ${HPT_TEST_DOTENV}\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Quotes.APIKey)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	cfg := DatabaseConfig{
		Host:     "db.example.com",
		Port:     5433,
		Name:     "hotels",
		User:     "admin",
		Password: "s3cret",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.example.com port=5433 dbname=hotels user=admin password=s3cret sslmode=require",
		cfg.DSN(),
	)
}
