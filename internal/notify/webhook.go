package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pidwatch/pidwatch/internal/config"
)

const postTimeout = 5 * time.Second

// Webhooks delivers alerts to every configured webhook target. When no
// target resolves to a URL the message is written to the log instead, so an
// unconfigured deployment still surfaces alerts locally.
//
// SetTargets may be called concurrently with Notify; the config watcher
// uses it to swap targets on reload.
type Webhooks struct {
	client *http.Client

	mu      sync.RWMutex
	targets []config.WebhookConfig
}

// NewWebhooks creates a Webhooks notifier for the given targets.
func NewWebhooks(targets []config.WebhookConfig) *Webhooks {
	return &Webhooks{
		client:  &http.Client{Timeout: postTimeout},
		targets: targets,
	}
}

// SetTargets replaces the delivery target list.
func (w *Webhooks) SetTargets(targets []config.WebhookConfig) {
	w.mu.Lock()
	w.targets = targets
	w.mu.Unlock()
}

// Notify posts text to every target with a resolvable URL. Per-target
// failures are collected and returned joined; the remaining targets are
// still attempted. With no resolvable target it logs the message and
// returns nil.
func (w *Webhooks) Notify(ctx context.Context, text string) error {
	w.mu.RLock()
	targets := make([]config.WebhookConfig, len(w.targets))
	copy(targets, w.targets)
	w.mu.RUnlock()

	delivered := false
	var errs []error
	for _, t := range targets {
		url := t.URL()
		if url == "" {
			continue
		}
		if err := w.post(ctx, t.Type, url, text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Type, err))
			continue
		}
		delivered = true
	}

	if !delivered && len(errs) == 0 {
		slog.Warn("notify: no webhook configured, alert logged only", "text", text)
	}
	return errors.Join(errs...)
}

func (w *Webhooks) post(ctx context.Context, kind, url, text string) error {
	body, err := json.Marshal(payloadFor(kind, text))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// payloadFor shapes the JSON body per webhook flavor.
func payloadFor(kind, text string) any {
	switch kind {
	case "teams":
		return map[string]any{
			"@type":    "MessageCard",
			"@context": "http://schema.org/extensions",
			"summary":  "pidwatch alert",
			"text":     text,
		}
	case "http":
		return map[string]string{"message": text}
	default: // slack
		return map[string]string{"text": text}
	}
}
