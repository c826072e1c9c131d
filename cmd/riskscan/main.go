package main

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"riskscan/internal/riskapi"
	"riskscan/internal/storage/migrations"
)

func main() {
	root := &cobra.Command{
		Use:          "riskscan",
		Short:        "Token risk scan badge service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve risk badges over HTTP and websocket",
		RunE:  runServe,
	}

	serveCmd.Flags().String("addr", ":8080", "listen address")
	addRiskFlags(serveCmd)
	addRPCFlags(serveCmd)
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN for scan audit and preferences")
	serveCmd.Flags().String("scan-log", "", "optional scan audit JSONL path")
	serveCmd.Flags().String("preferences-file", "", "preferences JSON file (used without pg-dsn)")
	serveCmd.Flags().Bool("default-show-risk", false, "show risk scanning for users without a stored preference")
	serveCmd.Flags().String("locales-dir", "", "directory of <locale>.json translation catalogs")
	serveCmd.Flags().StringSlice("trusted-origin", nil, "extra websocket origins (comma-separated)")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan one token and print its risk badge",
		RunE:  runScan,
	}

	scanCmd.Flags().String("chain-id", "56", "chain id")
	scanCmd.Flags().String("address", "", "token address")
	scanCmd.Flags().String("symbol", "", "token symbol shown next to the badge")
	addRiskFlags(scanCmd)
	addRPCFlags(scanCmd)
	scanCmd.Flags().Bool("retry", false, "retry once when the scan fails")
	scanCmd.Flags().Duration("wait", 30*time.Second, "maximum time to wait for a result")
	scanCmd.Flags().String("lang", "en", "preferred language")
	scanCmd.Flags().String("locales-dir", "", "directory of <locale>.json translation catalogs")
	scanCmd.Flags().String("scan-log", "", "optional scan audit JSONL path")
	scanCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(scanCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate [command] [args]",
		Short: "Apply database migrations (" + strings.Join(migrations.Commands, ", ") + ")",
		Args:  cobra.ArbitraryArgs,
		RunE:  runMigrate,
	}

	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRiskFlags(cmd *cobra.Command) {
	cmd.Flags().String("risk-endpoint", riskapi.DefaultEndpoint, "risk provider endpoint")
	cmd.Flags().Duration("risk-timeout", 10*time.Second, "risk provider request timeout")
}

func addRPCFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "optional RPC URL used to look up token symbols")
	cmd.Flags().Int("max-retries", 3, "maximum RPC retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
