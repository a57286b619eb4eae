// Package notify delivers alert text to operator-facing sinks.
//
// The Notifier interface is deliberately narrow — one string in, one error
// out — so the liveness checker and the service monitor share sinks, and
// tests substitute a Func or Nop. The production implementation fans out to
// webhook targets (Slack, Teams, generic HTTP) whose URLs are resolved from
// the environment at send time.
package notify
