// Package notify delivers user-facing error messages raised by cart operations.
package notify

import "context"

// Notifier surfaces a human-readable message to the user. It is fire-and-forget.
type Notifier interface {
	Error(ctx context.Context, message string)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, message string)

func (f Func) Error(ctx context.Context, message string) { f(ctx, message) }

// Multi forwards every message to each notifier in order.
type Multi []Notifier

func (m Multi) Error(ctx context.Context, message string) {
	for _, n := range m {
		if n != nil {
			n.Error(ctx, message)
		}
	}
}
