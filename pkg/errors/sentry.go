package errors

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

var sentryEnabled bool

// InitSentry enables Sentry. Empty dsn keeps it disabled.
func InitSentry(dsn, env string) error {
	if dsn == "" {
		return nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	}); err != nil {
		return Wrap(err, "Failed sentry.Init").With("env", env)
	}
	sentryEnabled = true
	return nil
}

// EmitSentry sends err to Sentry with values of *Error as extra data.
func EmitSentry(err error) {
	if !sentryEnabled || err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		if e, ok := err.(*Error); ok {
			for key, value := range e.Values {
				scope.SetExtra(key, fmt.Sprintf("%v", value))
			}
		}
		sentry.CaptureException(err)
	})
}

// FlushSentry waits for buffered events to be sent.
func FlushSentry() {
	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}
