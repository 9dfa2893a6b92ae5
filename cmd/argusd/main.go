// Package main is the entry point for the argusd binary, the collection
// endpoint the argus agent reports to.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/argusops/argus-go/pkg/collector"
	"github.com/argusops/argus-go/pkg/logging"
	"github.com/argusops/argus-go/pkg/telemetry"
)

const (
	defaultAddr     = ":8717"
	defaultLogLevel = "info"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "argusd",
		Short: "Argus report collector",
		Long: `argusd accepts error reports, usage beacons, and fault beacons from the
argus agent. Recent reports are kept in memory for inspection on /reports;
Prometheus metrics are served on /metrics.

Example:
  argusd --addr :8717 --token my-account-token`,
		RunE: runCollector,
	}

	rootCmd.Flags().StringP("addr", "a", defaultAddr, "Address to listen on")
	rootCmd.Flags().StringP("token", "t", "", "Account token required on reports (empty accepts any)")
	rootCmd.Flags().IntP("store", "s", collector.DefaultStoreCapacity, "Recent reports kept in memory")
	rootCmd.Flags().StringP("log-level", "l", defaultLogLevel, "Log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("pretty", false, "Human-readable log output")
	rootCmd.Flags().String("otlp-endpoint", "", "OTLP gRPC endpoint for trace export (empty disables tracing)")
	rootCmd.Flags().Bool("otlp-insecure", false, "Disable TLS on the OTLP connection")

	return rootCmd
}

func runCollector(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	token, _ := cmd.Flags().GetString("token")
	storeCap, _ := cmd.Flags().GetInt("store")
	logLevel, _ := cmd.Flags().GetString("log-level")
	pretty, _ := cmd.Flags().GetBool("pretty")
	otlpEndpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	otlpInsecure, _ := cmd.Flags().GetBool("otlp-insecure")

	logger := logging.NewLogger(logging.Config{Level: logLevel, Pretty: pretty})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: "argusd",
		Endpoint:    otlpEndpoint,
		Insecure:    otlpInsecure,
	})
	if err != nil {
		logger.Error("Failed to initialise tracing", "error", err)
		return err
	}

	server := collector.NewServer(collector.Options{
		Logger:        logger,
		StoreCapacity: storeCap,
		Token:         token,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	select {
	case err := <-errCh:
		logger.Error("Collector failed to start", "error", err)
		return err
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", "error", err)
		return err
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Error flushing traces", "error", err)
	}

	logger.Info("Collector stopped")
	return nil
}
