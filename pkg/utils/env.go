package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func GetEnvTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetEnvTrimmedOrDefault(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))

	if v == "" {
		return defaultValue
	}

	return v
}

// FirstEnvTrimmed returns the first non-empty value among keys. Used for settings that
// accept both a hosted-platform name and a generic alias.
func FirstEnvTrimmed(keys ...string) string {
	for _, key := range keys {
		if v := GetEnvTrimmed(key); v != "" {
			return v
		}
	}
	return ""
}

// GetEnvDurationOrDefault parses key as a positive time.Duration.
func GetEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if raw := GetEnvTrimmed(key); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvPositiveIntOrDefault parses key as an integer greater than zero.
func GetEnvPositiveIntOrDefault(key string, defaultValue int) int {
	if raw := GetEnvTrimmed(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
