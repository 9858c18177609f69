// Package correlation carries the id that ties together every log line and
// span of one payment reconciliation, whichever path started it.
package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

type key struct{}

// ID returns the correlation id on ctx, or "" when none is set.
func ID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key{}).(string)
	return id
}

// WithID sets id on ctx. An empty id leaves ctx unchanged.
func WithID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, key{}, id)
}

// WithWebhookEvent correlates on the gateway event id so redeliveries of the
// same event share one id.
func WithWebhookEvent(ctx context.Context, eventID string) context.Context {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return ctx
	}
	return WithID(ctx, "webhook:"+eventID)
}

// Ensure keeps an existing id or starts a new one tagged with origin,
// such as "sweep:01hv...".
func Ensure(ctx context.Context, origin string) (context.Context, string) {
	if id := ID(ctx); id != "" {
		return ctx, id
	}
	id := strings.ToLower(ulid.Make().String())
	if origin = strings.TrimSpace(origin); origin != "" {
		id = origin + ":" + id
	}
	return WithID(ctx, id), id
}
