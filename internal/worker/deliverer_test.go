package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Priya8975/webhook-dispatcher/internal/sign"
)

func TestHTTPDeliverer_Success(t *testing.T) {
	var receivedHeaders http.Header
	var receivedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header.Clone()
		buf := make([]byte, 4096)
		n, _ := r.Body.Read(buf)
		receivedBody = buf[:n]
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"received":true}`))
	}))
	defer server.Close()

	body := []byte(`{"order_id":"abc-123"}`)
	signature := sign.Sign("test-secret", body)

	d := NewHTTPDeliverer(5 * time.Second)
	outcome := d.Deliver(context.Background(), server.URL, body, signature)

	if !outcome.Success() {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if *outcome.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", *outcome.StatusCode)
	}
	if outcome.Body != `{"received":true}` {
		t.Errorf("Body = %q", outcome.Body)
	}
	if outcome.Err != "" {
		t.Errorf("Err should be empty, got %q", outcome.Err)
	}

	if receivedHeaders.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", receivedHeaders.Get("Content-Type"))
	}
	if receivedHeaders.Get("X-Webhook-Signature") != signature {
		t.Errorf("X-Webhook-Signature = %q, want %q", receivedHeaders.Get("X-Webhook-Signature"), signature)
	}
	if string(receivedBody) != string(body) {
		t.Errorf("body = %q, want %q — transmitted bytes must match signed bytes", receivedBody, body)
	}
}

func TestHTTPDeliverer_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	d := NewHTTPDeliverer(5 * time.Second)
	outcome := d.Deliver(context.Background(), server.URL, []byte(`{}`), "sha256=x")

	if outcome.Success() {
		t.Fatal("5xx should not be a success")
	}
	if outcome.StatusCode == nil || *outcome.StatusCode != http.StatusInternalServerError {
		t.Fatalf("5xx is a response, not a transport error: %+v", outcome)
	}
	if outcome.Body != "boom" {
		t.Errorf("Body = %q, want %q", outcome.Body, "boom")
	}
	if outcome.Err != "" {
		t.Errorf("Err should be empty for HTTP errors, got %q", outcome.Err)
	}
}

func TestHTTPDeliverer_TransportError(t *testing.T) {
	// Grab a port that refuses connections
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	d := NewHTTPDeliverer(2 * time.Second)
	outcome := d.Deliver(context.Background(), url, []byte(`{}`), "sha256=x")

	if outcome.StatusCode != nil {
		t.Fatalf("transport failure must not carry a status code: %+v", outcome)
	}
	if outcome.Err == "" {
		t.Fatal("transport failure must populate Err")
	}
	if outcome.Success() {
		t.Fatal("transport failure is never a success")
	}
}

func TestHTTPDeliverer_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewHTTPDeliverer(100 * time.Millisecond)
	outcome := d.Deliver(context.Background(), server.URL, []byte(`{}`), "sha256=x")

	if outcome.StatusCode != nil {
		t.Fatalf("timeout must collapse into a transport error: %+v", outcome)
	}
	if outcome.Err == "" {
		t.Fatal("timeout must populate Err")
	}
}

func TestHTTPDeliverer_TruncatesResponseBody(t *testing.T) {
	long := strings.Repeat("x", 5000)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(long))
	}))
	defer server.Close()

	d := NewHTTPDeliverer(5 * time.Second)
	outcome := d.Deliver(context.Background(), server.URL, []byte(`{}`), "sha256=x")

	if len(outcome.Body) != maxResponseBytes {
		t.Errorf("Body length = %d, want %d", len(outcome.Body), maxResponseBytes)
	}
}

func TestOutcome_Success(t *testing.T) {
	codes := map[int]bool{
		199: false,
		200: true,
		201: true,
		204: true,
		299: true,
		300: false,
		404: false,
		500: false,
	}
	for code, want := range codes {
		c := code
		o := Outcome{StatusCode: &c}
		if o.Success() != want {
			t.Errorf("Success() for %d = %v, want %v", code, o.Success(), want)
		}
	}

	if (Outcome{Err: "connection refused"}).Success() {
		t.Error("transport error is never a success")
	}
}
