package notify

import "context"

// Notifier delivers an operator-facing alert string. Implementations must
// treat delivery as best-effort: the caller logs errors and moves on, it
// never retries synchronously.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, text string) error

func (f Func) Notify(ctx context.Context, text string) error { return f(ctx, text) }

// Nop discards every message. Useful in tests.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }
