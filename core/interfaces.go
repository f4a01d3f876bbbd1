package core

import "context"

// Notifier is an interface to receive change notifications. Resource is the
// affected resource, payload its JSON representation after the operation.
type Notifier interface {
	Notify(ctx context.Context, resource string, operation Operation, payload []byte)
}

// NotifierFunc is an adapter to use an ordinary function as Notifier
type NotifierFunc func(ctx context.Context, resource string, operation Operation, payload []byte)

// Notify calls f(ctx, resource, operation, payload)
func (f NotifierFunc) Notify(ctx context.Context, resource string, operation Operation, payload []byte) {
	f(ctx, resource, operation, payload)
}
