package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"riskscan/internal/chain"
	"riskscan/internal/config"
	"riskscan/internal/fetcher"
	"riskscan/internal/i18n"
	"riskscan/internal/preferences"
	"riskscan/internal/riskapi"
	"riskscan/internal/server"
	"riskscan/internal/storage"
	"riskscan/internal/storage/postgres"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bundle, err := loadBundle(cfg.LocalesDir, logger)
	if err != nil {
		return err
	}

	var sinks storage.Multi
	if cfg.ScanLog != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.ScanLog))
	}

	var prefStore preferences.Store
	var serverOpts []server.Option
	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		sinks = append(sinks, pg)
		prefStore = &preferences.DBStore{Store: pg}
		serverOpts = append(serverOpts, server.WithHistory(pg))
	} else if cfg.PreferencesFile != "" {
		prefStore = &preferences.FileStore{Path: cfg.PreferencesFile}
	}

	f := fetcher.New(
		riskapi.NewClient(riskapi.Config{Endpoint: cfg.Risk.Endpoint, Timeout: cfg.Risk.Timeout}, logger),
		fetcher.WithLogger(logger),
		fetcher.WithTimeout(cfg.Risk.Timeout),
	)
	defer f.Close()

	if len(sinks) > 0 {
		recorder := storage.NewRecorder(sinks, 100, time.Second, logger)
		defer recorder.Stop()
		unsubscribe := f.Subscribe(recorder.Observe)
		defer unsubscribe()
	}

	var enricher server.Enricher
	if cfg.RPC.URL != "" {
		client, err := chain.NewClient(ctx, cfg.RPC.URL, chain.Config{
			MaxRetries:   cfg.RPC.MaxRetries,
			RetryBackoff: cfg.RPC.RetryBackoff,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer client.Close()
		enricher = client
	}

	srv := server.New(server.Config{
		Addr:           cfg.Addr,
		TrustedOrigins: cfg.TrustedOrigins,
	}, f, preferences.NewResolver(prefStore, cfg.DefaultShowRisk, logger), bundle, enricher, logger, serverOpts...)

	logger.Info("riskscan start",
		zap.String("addr", cfg.Addr),
		zap.String("risk_endpoint", cfg.Risk.Endpoint),
		zap.Duration("risk_timeout", cfg.Risk.Timeout),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.String("scan_log", cfg.ScanLog),
		zap.Bool("default_show_risk", cfg.DefaultShowRisk),
		zap.Bool("rpc", cfg.RPC.URL != ""),
	)

	return srv.Run(ctx)
}

func loadBundle(dir string, logger *zap.Logger) (*i18n.Bundle, error) {
	bundle := i18n.NewBundle()
	if dir == "" {
		return bundle, nil
	}
	n, err := bundle.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load locales: %w", err)
	}
	logger.Info("locales loaded", zap.String("dir", dir), zap.Int("count", n))
	return bundle, nil
}
