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

	"riskscan/internal/badge"
	"riskscan/internal/chain"
	"riskscan/internal/config"
	"riskscan/internal/fetcher"
	"riskscan/internal/model"
	"riskscan/internal/riskapi"
	"riskscan/internal/storage"
)

func runScan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadScan(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	chainID, err := model.ParseChainID(cfg.ChainID)
	if err != nil {
		return err
	}
	token, err := model.ParseToken(chainID, cfg.Address)
	if err != nil {
		return err
	}
	token.Symbol = cfg.Symbol

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Wait)
	defer cancel()

	if cfg.RPC.URL != "" {
		client, err := chain.NewClient(ctx, cfg.RPC.URL, chain.Config{
			MaxRetries:   cfg.RPC.MaxRetries,
			RetryBackoff: cfg.RPC.RetryBackoff,
		}, logger)
		if err != nil {
			logger.Warn("rpc unavailable, symbol lookup skipped", zap.Error(err))
		} else {
			client.Enrich(ctx, &token)
			client.Close()
		}
	}

	bundle, err := loadBundle(cfg.LocalesDir, logger)
	if err != nil {
		return err
	}

	f := fetcher.New(
		riskapi.NewClient(riskapi.Config{Endpoint: cfg.Risk.Endpoint, Timeout: cfg.Risk.Timeout}, logger),
		fetcher.WithLogger(logger),
		fetcher.WithTimeout(cfg.Risk.Timeout),
	)
	defer f.Close()

	if cfg.ScanLog != "" {
		recorder := storage.NewRecorder(storage.NewJsonlStorage(cfg.ScanLog), 10, time.Second, logger)
		defer recorder.Stop()
		unsubscribe := f.Subscribe(recorder.Observe)
		defer unsubscribe()
	}

	// Asking for a scan on the command line implies the user wants to see it.
	b := badge.New(f, badge.PreferenceFunc(func() bool { return true }), bundle.Translator(cfg.Lang), logger)
	defer b.Close()

	views := make(chan *badge.View, 8)
	b.OnChange(func(view *badge.View) {
		select {
		case views <- view:
		default:
		}
	})

	b.SetToken(&token)
	view := b.Render()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, badge.RenderText(view))

	key, _ := model.KeyOf(&token)
	if _, err := f.Load(ctx, key); err != nil {
		return fmt.Errorf("scan did not finish: %w", err)
	}
	view = b.Render()
	fmt.Fprintln(out, badge.RenderText(view))

	if view.Kind != badge.KindUnknown || !cfg.Retry {
		return nil
	}

	// Drop notifications from the first lookup before retrying.
	for len(views) > 0 {
		<-views
	}
	if !b.Retry() {
		return nil
	}

	retrying := false
	for {
		select {
		case view := <-views:
			if view == nil {
				continue
			}
			if view.Kind == badge.KindScanning {
				retrying = true
				fmt.Fprintln(out, badge.RenderText(view))
				continue
			}
			if retrying {
				fmt.Fprintln(out, badge.RenderText(view))
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("retry did not finish: %w", ctx.Err())
		}
	}
}
