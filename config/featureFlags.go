package config

import (
	"os"
	"strings"
)

const (
	ShortagePolicyReject  = "reject"
	ShortagePolicyPartial = "partial"
)

// FifoShortagePolicy decides what a stock consumption does when the cost layers
// cannot cover the requested quantity.
//
// Set via env:
// - FIFO_SHORTAGE_POLICY=reject (default) fails the whole consumption
// - FIFO_SHORTAGE_POLICY=partial consumes what exists and reports the shortfall
func FifoShortagePolicy() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("FIFO_SHORTAGE_POLICY")))
	if v == ShortagePolicyPartial {
		return ShortagePolicyPartial
	}
	return ShortagePolicyReject
}

// SkipMigrations disables AutoMigrate on startup (run cmd tools instead).
//
// Set via env:
// - SKIP_MIGRATIONS=true
func SkipMigrations() bool {
	return envBool("SKIP_MIGRATIONS")
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
