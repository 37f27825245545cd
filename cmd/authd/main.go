package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/internal/config"
	"github.com/MrEthical07/authcore/internal/httpapi"
	"github.com/MrEthical07/authcore/internal/logging"
	"github.com/MrEthical07/authcore/mail"
	"github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/MrEthical07/authcore/oauth"
	boltstore "github.com/MrEthical07/authcore/store/bolt"
	"github.com/MrEthical07/authcore/store/postgres"
)

var Version = "dev"

func main() {
	dev := flag.Bool("dev", false, "use in-process redis, log mail and generate a signing key")
	flag.Parse()

	if *dev {
		_ = os.Setenv(config.Prefix+"DEV", "true")
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Environment, cfg.LogLevel)
	logger.Info("authd starting",
		slog.String("version", Version),
		slog.Bool("dev", cfg.Dev),
		slog.String("listen", cfg.ListenAddr),
	)

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rdb, closeRedis, err := openRedis(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	providers, err := buildProviders(cfg)
	if err != nil {
		return err
	}

	builder := authcore.New().
		WithConfig(engineCfg).
		WithStore(store).
		WithRedis(rdb).
		WithMailer(newMailer(cfg, logger)).
		WithLogger(logger)
	for _, p := range providers {
		builder.WithProvider(p)
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	defer engine.Close()

	handler := httpapi.New(httpapi.Config{
		Engine:         engine,
		Logger:         logger,
		Metrics:        prometheus.NewPrometheusExporter(engine).Handler(),
		TrustForwarded: cfg.TrustForwarded,
		SecureCookies:  cfg.SecureCookies,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.SweepInterval > 0 {
		g.Go(func() error {
			runSweeper(gctx, engine, cfg.SweepInterval, logger)
			return nil
		})
	}

	return g.Wait()
}

// openStore picks PostgreSQL when a DSN is configured and the bbolt file
// otherwise.
func openStore(ctx context.Context, cfg *config.Config) (credential.Store, error) {
	if cfg.DatabaseURL != "" {
		s, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return s, nil
	}

	s, err := boltstore.Open(cfg.BoltPath, boltstore.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening bolt store: %w", err)
	}
	return s, nil
}

// openRedis connects to the configured Redis, or in dev mode starts an
// in-process miniredis that lives until the returned close func runs.
func openRedis(cfg *config.Config, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if cfg.Dev {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("starting miniredis: %w", err)
		}
		logger.Warn("dev mode: using in-process redis", slog.String("addr", mr.Addr()))
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return client, func() { _ = client.Close() }, nil
}

func newMailer(cfg *config.Config, logger *slog.Logger) mail.Sender {
	if cfg.SMTP.Host == "" {
		if !cfg.Dev {
			logger.Warn("no SMTP host configured; verification mail is logged, not sent")
		}
		return mail.LogSender{Logger: logger, IncludeBody: cfg.Dev}
	}

	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		Timeout:  cfg.SMTP.Timeout,
	})
	if err != nil {
		logger.Error("invalid SMTP settings; falling back to log sender", slog.Any("error", err))
		return mail.LogSender{Logger: logger}
	}
	return sender
}

func buildProviders(cfg *config.Config) ([]oauth.Provider, error) {
	var out []oauth.Provider

	if cfg.Google.Enabled() {
		p, err := oauth.New(oauth.Google(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL))
		if err != nil {
			return nil, fmt.Errorf("google provider: %w", err)
		}
		out = append(out, p)
	}
	if cfg.GitHub.Enabled() {
		p, err := oauth.New(oauth.GitHub(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.RedirectURL))
		if err != nil {
			return nil, fmt.Errorf("github provider: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

type sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// runSweeper deletes inactive refresh credentials every interval until ctx
// is done.
func runSweeper(ctx context.Context, s sweeper, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("credential sweep failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.Info("swept inactive credentials", slog.Int64("count", n))
			}
		}
	}
}
