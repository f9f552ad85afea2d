package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kvadminer/kvadminer/internal/audit"
	"github.com/kvadminer/kvadminer/internal/config"
	"github.com/kvadminer/kvadminer/internal/keys"
	"github.com/kvadminer/kvadminer/internal/logger"
	"github.com/kvadminer/kvadminer/internal/session"
	"github.com/kvadminer/kvadminer/internal/store"
	"github.com/kvadminer/kvadminer/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		envFile string
		listen  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.ListenAddr = listen
			}

			log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to a .env file (default ./.env when present)")
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides KVADMIN_LISTEN_ADDR")
	return cmd
}

// factoryConfig maps the store settings onto the connection factory.
func factoryConfig(cfg *config.Config) store.FactoryConfig {
	return store.FactoryConfig{
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.StoreReadTimeout,
		WriteTimeout: cfg.StoreWriteTimeout,
		PoolSize:     cfg.StorePoolSize,
	}
}

// serve runs the HTTP server and the session sweeper until ctx is cancelled
// or either fails. Cached store connections are closed only after both
// have stopped.
func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("version", version).
		Str("listen_addr", cfg.ListenAddr).
		Dur("session_timeout", cfg.SessionTimeout).
		Dur("sweep_interval", cfg.SweepInterval).
		Int64("scan_count", cfg.ScanCount).
		Bool("audit", cfg.NATSURL != "").
		Msg("kvadminer starting")

	var pub audit.Publisher = audit.Nop{}
	if cfg.NATSURL != "" {
		p, err := audit.Connect(audit.DefaultNATSConfig(cfg.NATSURL), log)
		if err != nil {
			return err
		}
		pub = p
	}
	defer pub.Close()

	factory := store.NewFactory(factoryConfig(cfg))
	cache := session.NewCache(factory, session.WithLogger(logger.Component(log, "session")))

	server := web.NewServer(web.ServerConfig{
		ListenAddr:   cfg.ListenAddr,
		StaticDir:    cfg.StaticDir,
		CookieSecure: cfg.CookieSecure,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, cache, keys.NewLister(cfg.ScanCount), pub, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		cache.Run(gctx, cfg.SweepInterval, cfg.SessionTimeout)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if cerr := cache.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("closing cached store connections")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("kvadminer stopped")
	return nil
}
