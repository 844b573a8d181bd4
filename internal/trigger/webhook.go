package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

const defaultWebhookTimeout = 10 * time.Second

// Notifier posts trigger responses to caller-supplied webhook URLs.
type Notifier struct {
	client  *http.Client
	timeout time.Duration
}

// NewNotifier creates a Notifier. A nil client uses http.DefaultClient.
func NewNotifier(client *http.Client, timeout time.Duration) *Notifier {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &Notifier{client: client, timeout: timeout}
}

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return schema.NewErrorf(schema.ErrCodeValidation, "webhookUrl %q must be an absolute http(s) URL", raw)
	}
	return nil
}

// Notify POSTs payload as JSON. Any non-2xx status is an EXTERNAL_ERROR.
func (n *Notifier) Notify(ctx context.Context, rawURL string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "webhook request: %s", err.Error()).WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "workflowd")

	resp, err := n.client.Do(req)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeExternal, "webhook delivery failed: %s", err.Error()).WithCause(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return schema.NewErrorf(schema.ErrCodeExternal, "webhook returned %d", resp.StatusCode).
			WithDetails(map[string]any{"status_code": resp.StatusCode})
	}
	return nil
}
