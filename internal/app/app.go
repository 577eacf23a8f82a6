package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Gundoganfa/SomeNiceLinks/internal/auth"
	"github.com/Gundoganfa/SomeNiceLinks/internal/config"
	"github.com/Gundoganfa/SomeNiceLinks/internal/connect"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/deps"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
	"github.com/Gundoganfa/SomeNiceLinks/internal/quotes"
	"github.com/Gundoganfa/SomeNiceLinks/internal/scheduler"
	"github.com/Gundoganfa/SomeNiceLinks/internal/store"
	"github.com/Gundoganfa/SomeNiceLinks/internal/store/postgres"
	redisstore "github.com/Gundoganfa/SomeNiceLinks/internal/store/redis"
	"github.com/Gundoganfa/SomeNiceLinks/internal/utils"
	"github.com/Gundoganfa/SomeNiceLinks/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	pool        *pgxpool.Pool
	refresher   *scheduler.QuoteRefresher
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Backing services are connected early so a bad config fails fast.
	ctx := context.Background()
	retry := connect.RetryOptions{
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}

	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		client, err := connect.Redis(ctx, connect.RedisOptions{
			Addr:         cfg.RedisAddr,
			User:         cfg.RedisUser,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  cfg.RedisDT,
			ReadTimeout:  cfg.RedisRT,
			WriteTimeout: cfg.RedisWT,
			PoolSize:     cfg.RedisPoolSize,
			Retry:        retry,
		}, loggerClient)
		if err != nil {
			loggerClient.Error("failed to connect to redis", logger.Error(err))
			os.Exit(1)
		}
		redisClient = client
	}

	var (
		linkStore store.LinkStore
		pool      *pgxpool.Pool
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		p, err := connect.Postgres(ctx, connect.PostgresOptions{
			DSN:      cfg.PostgresDSN,
			MaxConns: cfg.PostgresMaxConns,
			Retry:    retry,
		}, loggerClient)
		if err != nil {
			loggerClient.Error("failed to connect to postgres", logger.Error(err))
			os.Exit(1)
		}
		pgStore := postgres.NewStore(p)
		if err := pgStore.Migrate(ctx); err != nil {
			loggerClient.Error("failed to migrate postgres schema", logger.Error(err))
			os.Exit(1)
		}
		pool = p
		linkStore = pgStore
	default:
		linkStore = redisstore.NewStore(redisClient)
	}
	loggerClient.Info("link store initialized", logger.String("driver", cfg.StoreDriver))

	// Quote payloads are cached in Redis when one is configured.
	var quoteCache quotes.Cache
	if redisClient != nil {
		quoteCache = redisstore.NewCache(redisClient)
	}
	quoteService := quotes.NewService(quotes.Options{
		Timeout: cfg.QuoteTimeout,
		TTL:     cfg.QuoteTTL,
	}, quoteCache, loggerClient)

	var refresher *scheduler.QuoteRefresher
	if cfg.QuoteRefreshInterval > 0 {
		refresher = scheduler.NewQuoteRefresher(quoteService, loggerClient, cfg.QuoteRefreshInterval)
	} else {
		loggerClient.Info("quote refresh disabled")
	}

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Build:           version.Current(),
		TimeNow:         time.Now,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		CORSOrigins:     cfg.CORSOrigins,
		StoreDriver:     cfg.StoreDriver,
		Store:           linkStore,
		RedisClient:     redisClient,
		Verifier:        auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
		Quotes:          quoteService,
		QuoteSymbol:     cfg.QuoteSymbol,
		ClickRatePerMin: cfg.ClickRatePerMin,
		ClickBurst:      cfg.ClickBurst,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		pool:        pool,
		refresher:   refresher,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting SomeNiceLinks v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("SomeNiceLinks %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.refresher != nil {
		a.refresher.Start(ctx)
		a.logger.Info("quote refresher started",
			logger.Duration("interval", a.cfg.QuoteRefreshInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.closeBackends()
		return err
	}

	if a.refresher != nil {
		a.refresher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.closeBackends()
	a.logger.Info("✅ SomeNiceLinks stopped cleanly")
	return nil
}

func (a *App) closeBackends() {
	if a.redisClient != nil {
		utils.MustClose(a.redisClient, a.logger, "redis")
	}
	if a.pool != nil {
		a.pool.Close()
		a.logger.Info("✅ Postgres pool closed")
	}
}
