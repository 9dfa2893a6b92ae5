// Package main is a small instrumented application demonstrating the agent:
// install, function watching, console and network capture, HTTP middleware,
// and configuration hot reload.
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

	"github.com/argusops/argus-go/pkg/agent"
	"github.com/argusops/argus-go/pkg/capture"
	"github.com/argusops/argus-go/pkg/config"
	"github.com/argusops/argus-go/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to agent configuration file")
	addr := flag.String("addr", ":8080", "Address to serve the demo app on")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger := logging.NewLogger(logging.Config{Level: *logLevel})

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath, logger)
		if err != nil {
			logger.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if !agent.InstallWithOptions(cfg, agent.Options{Logger: logger}) {
		logger.Error("Agent already installed")
		os.Exit(1)
	}
	a := agent.Installed()
	agent.AddMetadata("demo", "true")

	// Route the application's own logging through console capture. The
	// agent's logger stays on the plain handler.
	appLogger := slog.New(capture.NewLogHandler(logger.Handler(), a))
	slog.SetDefault(appLogger)

	// Hot-reload watcher applies runtime-safe changes to the running agent.
	if *configPath != "" {
		reloader, err := config.NewReloader(*configPath, a.ApplyConfig, logger)
		if err != nil {
			logger.Warn("Config reload unavailable", "error", err)
		} else if err := reloader.Start(context.Background()); err != nil {
			logger.Warn("Config reload unavailable", "error", err)
		} else {
			defer reloader.Stop()
		}
	}

	// Outbound requests from this client land in the network telemetry log.
	client := capture.Client(a)

	// A watched handler function: panics inside are reported and re-raised.
	flaky := agent.Watch(func(mode string) error {
		switch mode {
		case "panic":
			panic("demo panic: the cache is on fire")
		case "error":
			return errors.New("demo error: upstream said no")
		}
		return nil
	}).(func(string) error)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		appLogger.Info("Serving index")
		fmt.Fprintln(w, "argus demo. Try /fail?mode=panic, /fail?mode=error, /fetch?url=...")
	})
	mux.HandleFunc("/fail", func(w http.ResponseWriter, r *http.Request) {
		a.RecordAction("request", "/fail")
		if err := flaky(r.URL.Query().Get("mode")); err != nil {
			agent.Track(err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintln(w, "nothing failed")
	})
	mux.HandleFunc("/fetch", func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		resp, err := client.Get(target)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		fmt.Fprintf(w, "upstream answered %d\n", resp.StatusCode)
	})

	server := &http.Server{
		Addr:              *addr,
		Handler:           recoverToStatus(capture.Middleware(a, mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Demo app listening", "addr", *addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)

	if !agent.Flush(5 * time.Second) {
		logger.Warn("Timed out waiting for report delivery")
	}
	logger.Info("Shutdown complete")
}

// recoverToStatus converts a reported panic into a 500 so the demo keeps
// serving. It wraps the capture middleware, which reports and re-raises.
func recoverToStatus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recover() != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
