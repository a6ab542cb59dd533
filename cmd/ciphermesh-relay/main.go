package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"ciphermesh/internal/config"
	"ciphermesh/internal/logging"
	"ciphermesh/internal/relayserver"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var port int
	var logLevel string
	pflag.IntVarP(&port, "port", "p", cfg.Port, "port to listen on")
	pflag.StringVar(&logLevel, "log-level", cfg.LogLevel, "debug, info, warn, error, silent")
	pflag.Parse()

	logging.Setup(logLevel)

	srv := relayserver.New(fmt.Sprintf(":%d", port))

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("relay failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
