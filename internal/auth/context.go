package auth

import "context"

type contextKey string

// VerifiedEmailKey is the context key for the caller's verified email.
const VerifiedEmailKey = contextKey("verifiedEmail")

// WithEmail returns a copy of ctx carrying the verified email.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, VerifiedEmailKey, email)
}

// EmailFromContext returns the verified email placed by the Verify stage.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(VerifiedEmailKey).(string)
	return email, ok && email != ""
}
