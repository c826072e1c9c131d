package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"riskscan/internal/config"
	"riskscan/internal/storage/migrations"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMigrate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	command := "up"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("migrate start", zap.String("command", command), zap.Strings("args", args))
	if err := migrations.Run(ctx, cfg.PGDSN, command, args...); err != nil {
		return err
	}
	logger.Info("migrate done", zap.String("command", command))
	return nil
}
