package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of the response body is kept on the
// attempt record.
const maxResponseBytes = 2000

// Outcome is the result of one HTTP delivery: either a response (status code
// plus truncated body) or a transport error. StatusCode is nil iff no
// response was received.
type Outcome struct {
	StatusCode *int
	Body       string
	Err        string
}

// Success reports whether a 2xx response was received.
func (o Outcome) Success() bool {
	return o.StatusCode != nil && *o.StatusCode >= 200 && *o.StatusCode < 300
}

// Deliverer issues one signed webhook POST.
type Deliverer interface {
	Deliver(ctx context.Context, targetURL string, body []byte, signature string) Outcome
}

// HTTPDeliverer delivers webhook payloads over HTTP with a bounded timeout.
type HTTPDeliverer struct {
	client *http.Client
}

func NewHTTPDeliverer(timeout time.Duration) *HTTPDeliverer {
	return &HTTPDeliverer{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Deliver POSTs body to targetURL. Any failure before a response is seen
// (DNS, connect, TLS, timeout, read error) collapses into a transport-error
// outcome; HTTP status codes, including 5xx, come back as responses.
func (d *HTTPDeliverer) Deliver(ctx context.Context, targetURL string, body []byte, signature string) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return Outcome{Err: fmt.Sprintf("building request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)

	resp, err := d.client.Do(req)
	if err != nil {
		return Outcome{Err: err.Error()}
	}
	defer resp.Body.Close()

	snippet, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Outcome{Err: fmt.Sprintf("reading response body: %v", err)}
	}

	return Outcome{StatusCode: &resp.StatusCode, Body: string(snippet)}
}
