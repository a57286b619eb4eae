// Package config loads the pidwatch configuration from a YAML file and the
// environment.
//
// Precedence: defaults, then the file, then environment overrides
// (PID_WATCH_FIFO, PID_WATCH_INTERVAL_SEC, PID_WATCH_STALE_SEC). Webhook
// URLs are never stored in the file — each target names the environment
// variable that holds its URL. A bare SLACK_WEBHOOK_URL with no configured
// webhooks yields an implicit Slack target, so the daemon is a drop-in
// replacement for its predecessor.
//
// Watch re-loads the file on change via fsnotify; the daemon uses it to
// swap webhook targets without a restart.
package config
