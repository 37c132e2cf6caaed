// Package correlation ties together the log lines and spans of one logical operation.
//
// HTTP requests get a ULID unless the caller sends one. Webhook deliveries are
// re-keyed on the provider event id, so the first delivery, provider retries and
// replays of the same event all share a correlation id.
package correlation

import (
	"context"
	"strings"
	"unicode"

	"github.com/oklog/ulid/v2"
)

const maxIDLength = 128

type correlationKey struct{}

// ExtractCorrelationID returns the id on ctx, or "".
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// ContextWithCorrelationID stores id on ctx. Caller-supplied ids are trimmed and
// capped; empty or non-printable ids leave ctx unchanged.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	id = sanitize(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// EnsureCorrelationID keeps an existing id or mints a ULID.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := ExtractCorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return context.WithValue(ctx, correlationKey{}, id), id
}

// ForEvent re-keys ctx on a provider event id, replacing any request-level id.
// An empty event id keeps whatever ctx already carries.
func ForEvent(ctx context.Context, eventID string) context.Context {
	return ContextWithCorrelationID(ctx, eventID)
}

func sanitize(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > maxIDLength {
		id = id[:maxIDLength]
	}
	for _, r := range id {
		if !unicode.IsPrint(r) {
			return ""
		}
	}
	return id
}
