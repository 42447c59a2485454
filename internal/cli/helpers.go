package cli

import (
	"time"

	"github.com/codefionn/gatewayd/internal/config"
)

const (
	// requestLogMaxEntries bounds how many rows /auth/activity retains.
	requestLogMaxEntries = 500

	defaultRequestTimeout = 120 * time.Second
)

func defaultTimeout(cfg *config.Config) time.Duration {
	if cfg.DefaultTimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(cfg.DefaultTimeoutSeconds) * time.Second
}
