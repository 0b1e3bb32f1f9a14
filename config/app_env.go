package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/akeren/clariolane-waitlist/internal/log"
	"github.com/joho/godotenv"
)

const AppEnvKey = "APP_ENV"

// envFiles lists the dotenv files to load, in priority order. ENV_FILE (comma-separated)
// replaces the default ".env".
func envFiles() []string {
	raw := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if raw == "" {
		return []string{".env"}
	}

	var files []string
	for _, part := range strings.Split(raw, ",") {
		if f := strings.TrimSpace(part); f != "" {
			files = append(files, f)
		}
	}
	return files
}

// InitializeEnvFile loads dotenv files into the process environment. Variables already set
// win over file values. SKIP_DOTENV=true turns loading off.
func InitializeEnvFile(logger *log.Logger) {
	if os.Getenv("SKIP_DOTENV") == "true" {
		logger.Info("Skipping .env file load (SKIP_DOTENV=true)")
		return
	}

	var present []string
	for _, file := range envFiles() {
		if _, err := os.Stat(file); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("Cannot read env file", "file", file, "error", err.Error())
			}
			continue
		}
		present = append(present, file)
	}

	if len(present) == 0 {
		logger.Info("No .env file found; using process environment only")
		return
	}

	if err := godotenv.Load(present...); err != nil {
		logger.Warn("Failed to load env file", "files", strings.Join(present, ","), "error", err.Error())
		return
	}

	logger.Info("Environment variables loaded", "files", strings.Join(present, ","))
}

func GetValueFromEnvironmentVariable(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func GetAppEnv() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv(AppEnvKey)))
}

// ValidateAutoMigrateAllowed keeps --auto-migrate out of shared environments, where the SQL
// migrations or the provisioner own the waitlist schema.
func ValidateAutoMigrateAllowed(appEnv string) error {
	env := strings.ToLower(strings.TrimSpace(appEnv))

	switch env {
	case "", "dev", "development", "local", "test", "testing":
		return nil
	default:
		return fmt.Errorf("--auto-migrate is not allowed when %s=%q; use `cli migrate` or `cli provision` instead", AppEnvKey, env)
	}
}
