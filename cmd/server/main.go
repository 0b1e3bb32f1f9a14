package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/akeren/clariolane-waitlist/config"
	"github.com/akeren/clariolane-waitlist/domain"
	"github.com/akeren/clariolane-waitlist/domain/schema"
	"github.com/akeren/clariolane-waitlist/internal/log"
)

// shutdownGrace covers draining HTTP requests and in-flight welcome emails.
const shutdownGrace = 30 * time.Second

const provisionTimeout = 2 * time.Minute

type startupFlags struct {
	autoMigrate bool
	provision   bool
}

func parseFlags(args []string) startupFlags {
	var flags startupFlags
	for _, arg := range args {
		switch strings.ToLower(arg) {
		case "--auto-migrate", "-m":
			flags.autoMigrate = true
		case "--provision", "-p":
			flags.provision = true
		}
	}
	return flags
}

func main() {
	logger := log.NewLoggerWithJSONOutput()

	logger.Info("Waitlist server starting")

	flags := parseFlags(os.Args[1:])

	appConfig, err := config.LoadApplicationConfiguration(logger, flags.autoMigrate)
	if err != nil {
		logger.Error("Failed to load application configuration", "error", err.Error())
		os.Exit(1)
	}

	// The table and its policies must exist before the first submission.
	if flags.provision {
		ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
		_, err := schema.NewProvisioner(logger, domain.SchemaSettings(appConfig.Config.Provisioning)).Provision(ctx)
		cancel()
		if err != nil {
			logger.Error("Schema provisioning failed at startup", "error", err.Error())
			appConfig.Cleanup()
			os.Exit(1)
		}
	}

	domain.SetupCoreDomain(appConfig)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := appConfig.RouterService.RunHTTPServer(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error("Server error", "error", err)
		appConfig.Cleanup()
		os.Exit(1)
	case sig := <-quit:
		logger.Info("Shutdown signal received, draining", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()

		if err := appConfig.RouterService.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown did not complete cleanly", "error", err)
		} else {
			logger.Info("HTTP server and background sends drained")
		}
		appConfig.Cleanup()

		logger.Info("Graceful shutdown completed")
	}
}
