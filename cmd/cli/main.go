package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/akeren/clariolane-waitlist/config"
	"github.com/akeren/clariolane-waitlist/domain"
	"github.com/akeren/clariolane-waitlist/domain/schema"
	"github.com/akeren/clariolane-waitlist/internal/log"
	"github.com/akeren/clariolane-waitlist/pkg/migrations"
	"github.com/akeren/clariolane-waitlist/pkg/utils"
	"github.com/akeren/clariolane-waitlist/pkg/waitlistclient"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.InitializeEnvFile(logger) // Load envs early for CLI consistency

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "migrate":
		direction := "up"
		if len(args) > 1 {
			direction = strings.ToLower(args[1])
		}
		if err := runMigrate(logger, direction); err != nil {
			logger.Error("Database migration failed", "direction", direction, "error", err.Error())
			os.Exit(1)
		}
		return

	case "provision":
		if err := runProvision(logger); err != nil {
			logger.Error("Schema provisioning failed", "error", err.Error())
			os.Exit(1)
		}
		return

	case "join":
		os.Exit(runJoin(args[1:]))

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func runMigrate(logger *log.Logger, direction string) error {
	db, err := config.NewDatabase(logger, nil)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get SQL DB instance: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close SQL DB after migration", "error", err.Error())
		}
	}()

	cfg := migrations.Config{
		Dir:    utils.GetEnvTrimmedOrDefault("MIGRATIONS_DIR", "migrations"),
		Logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch direction {
	case "up":
		if err := migrations.Up(ctx, sqlDB, cfg); err != nil {
			return err
		}
		logger.Info("Database migrations completed")
	case "down":
		if err := migrations.Down(ctx, sqlDB, cfg); err != nil {
			return err
		}
		logger.Info("Database migration reverted")
	case "status", "version":
		status, err := migrations.Version(ctx, sqlDB, cfg)
		if err != nil {
			return err
		}
		if status.Pristine {
			fmt.Println("no migrations applied")
			return nil
		}
		fmt.Printf("version %d (dirty: %t)\n", status.Version, status.Dirty)
	default:
		return fmt.Errorf("unknown migrate direction %q (want up, down or status)", direction)
	}
	return nil
}

func runProvision(logger *log.Logger) error {
	settings := domain.SchemaSettings(config.NewProvisioningConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := schema.NewProvisioner(logger, settings).Provision(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("table %s ready (roles created: %s; policies created: %s)\n",
		report.Table, listOrNone(report.RolesCreated), listOrNone(report.PoliciesCreated))
	return nil
}

func runJoin(args []string) int {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	endpoint := fs.String("endpoint", defaultEndpoint(), "base URL of the waitlist API")
	apiKey := fs.String("api-key", utils.FirstEnvTrimmed("SUPABASE_ANON_KEY", "WAITLIST_API_KEY"), "public API key sent as apikey")
	timeout := fs.Duration("timeout", 15*time.Second, "request timeout")

	// Accept the address before or after the flags.
	var email string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		email, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if email == "" {
		email = fs.Arg(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	form := waitlistclient.NewForm(waitlistclient.NewClient(*endpoint, waitlistclient.WithAPIKey(*apiKey)))
	form.SetEmail(email)

	switch form.Submit(ctx) {
	case waitlistclient.StateSuccess:
		fmt.Println("You're on the list! We'll notify you when we launch.")
		fmt.Println(form.Message())
		return 0
	case waitlistclient.StateError:
		fmt.Fprintln(os.Stderr, form.Message())
		return 1
	default:
		fmt.Fprintln(os.Stderr, "usage: cli join <email> [--endpoint URL]")
		return 2
	}
}

func defaultEndpoint() string {
	if v := utils.GetEnvTrimmed("WAITLIST_ENDPOINT"); v != "" {
		return v
	}
	return "http://localhost:" + utils.GetEnvTrimmedOrDefault("APP_PORT", "8080")
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func printUsage() {
	fmt.Println("Usage: cli <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate [up|down|status]  Apply, revert or inspect the SQL migrations")
	fmt.Println("  provision                 Create the waitlist table, roles and policies (idempotent)")
	fmt.Println("  join <email> [--endpoint URL]")
	fmt.Println("                            Submit an address to a running waitlist API")
}
