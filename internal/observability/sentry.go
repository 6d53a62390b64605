package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry enables error reporting when dsn is set. The returned func
// flushes buffered events and is safe to call when Sentry is disabled.
func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr reports err tagged with the incident id handed to the client.
func CaptureErr(err error, incidentID string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if incidentID != "" {
			scope.SetTag("incident_id", incidentID)
		}
		sentry.CaptureException(err)
	})
}
