package utils

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry enables error reporting when dsn is set. It reports whether
// Sentry is active.
func InitSentry(dsn, environment string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// FlushSentry waits for buffered events before the process exits.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
