package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/donaldgifford/hotel-price-tracker/internal/config"
	"github.com/donaldgifford/hotel-price-tracker/internal/engine"
	"github.com/donaldgifford/hotel-price-tracker/internal/lock"
	"github.com/donaldgifford/hotel-price-tracker/internal/notify"
	"github.com/donaldgifford/hotel-price-tracker/internal/quotes"
	"github.com/donaldgifford/hotel-price-tracker/internal/store"
	"github.com/donaldgifford/hotel-price-tracker/internal/tracing"
	"github.com/donaldgifford/hotel-price-tracker/pkg/logger"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// runtime holds the components shared by serve, check and cleanup.
type runtime struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *store.PostgresStore
	limiter *quotes.RateLimiter
	monitor *engine.Monitor
	redis   *redis.Client

	shutdownTracing tracing.ShutdownFunc
}

// loadConfig reads the dotenv file and the YAML config and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, fmt.Errorf("loading env file: %w", err)
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)
	return cfg, log, nil
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, log: log}

	rt.shutdownTracing, err = tracing.Setup(ctx, tracing.Options{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     Version,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	rt.store, err = store.NewPostgresStore(ctx, cfg.Database.DSN(), int32(cfg.Database.PoolSize)) //nolint:gosec // pool size is small
	if err != nil {
		rt.close(ctx)
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	locker := lock.Locker(lock.NewLocalLocker())
	if cfg.Redis.Enabled {
		rt.redis, err = lock.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			rt.close(ctx)
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		locker = lock.NewRedisLocker(rt.redis)
	}

	rt.limiter = quotes.NewRateLimiter(
		cfg.Quotes.RateLimit.PerSecond,
		cfg.Quotes.RateLimit.Burst,
		cfg.Quotes.RateLimit.DailyLimit,
	)
	httpSource := quotes.NewHTTPSource(cfg.Quotes.BaseURL,
		quotes.WithAPIKey(cfg.Quotes.APIKey),
		quotes.WithHTTPClient(&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Quotes.Timeout,
		}),
	)
	source := quotes.WithTimeout(quotes.RateLimited(httpSource, rt.limiter), cfg.Quotes.Timeout)

	dispatcher := notify.NewChannelDispatcher(dispatcherOptions(cfg.Notifications, rt.store, log)...)

	rt.monitor = engine.NewMonitor(rt.store, source, dispatcher,
		engine.WithLogger(log),
		engine.WithLocker(locker),
		engine.WithConcurrency(cfg.Monitor.Concurrency),
		engine.WithRetention(cfg.Monitor.Retention),
		engine.WithCycleTimeout(cfg.Monitor.CycleTimeout),
		engine.WithMinPlausibleRatio(cfg.Monitor.MinPlausibleRatio),
		engine.WithPolicy(engine.EligibilityPolicy{
			MinInterval:   cfg.Monitor.MinCheckInterval,
			ArrivalCutoff: cfg.Monitor.ArrivalCutoff,
		}),
	)

	return rt, nil
}

// dispatcherOptions registers a sender per channel. Channels without a
// configured backend get a sender that only logs.
func dispatcherOptions(n config.NotificationsConfig, contacts notify.ContactLookup, log *slog.Logger) []notify.DispatcherOption {
	opts := []notify.DispatcherOption{
		notify.WithLogger(log),
		notify.WithContacts(contacts),
	}

	if n.Email.Enabled {
		opts = append(opts, notify.WithSender(notify.NewEmailSender(
			n.Email.Host, n.Email.Port, n.Email.Username, n.Email.Password, n.Email.From,
		)))
	} else {
		opts = append(opts, notify.WithSender(notify.NewNoOpSender(domain.ChannelEmail, log)))
	}

	hc := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	if n.Push.Enabled {
		opts = append(opts, notify.WithSender(notify.NewPushSender(n.Push.WebhookURL, notify.WithHTTPClient(hc))))
	} else {
		opts = append(opts, notify.WithSender(notify.NewNoOpSender(domain.ChannelPush, log)))
	}

	if n.SMS.Enabled {
		opts = append(opts, notify.WithSender(notify.NewSMSSender(n.SMS.GatewayURL, notify.WithHTTPClient(hc))))
	} else {
		opts = append(opts, notify.WithSender(notify.NewNoOpSender(domain.ChannelSMS, log)))
	}

	return opts
}

func (rt *runtime) close(ctx context.Context) {
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.log.Warn("closing redis", "error", err)
		}
	}
	if rt.store != nil {
		rt.store.Close()
	}
	if rt.shutdownTracing != nil {
		if err := rt.shutdownTracing(ctx); err != nil {
			rt.log.Warn("flushing telemetry", "error", err)
		}
	}
}
