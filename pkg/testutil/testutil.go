// Package testutil holds small helpers shared by service and transport
// tests.
package testutil

import (
	"context"
	"time"

	id "pledger/pkg/domain"
	"pledger/pkg/requestcontext"
)

// Context returns a context with a fixed clock and a caller identity, the
// shape every authenticated request carries in production.
func Context(at time.Time, caller id.Identity) context.Context {
	ctx := requestcontext.WithTime(context.Background(), at)
	return requestcontext.WithCallerID(ctx, caller)
}

// ContextAt returns a context with only a fixed clock.
func ContextAt(at time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), at)
}
