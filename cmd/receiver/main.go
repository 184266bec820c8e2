// Chaotic mock webhook receiver: verifies the HMAC signature, then fails,
// delays, or hangs at configurable rates. Useful for proving the
// dispatcher's backoff and eventual delivery against a flaky target.
package main

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Priya8975/webhook-dispatcher/internal/sign"
)

var requestCount atomic.Int64

func main() {
	port := getEnv("PORT", "9090")
	secret := getEnv("WEBHOOK_SECRET", "change-me-in-production")
	failureRate := getEnvFloat("FAILURE_RATE", 0.7)
	maxDelay := getEnvFloat("MAX_DELAY_SEC", 5)
	hangRate := getEnvFloat("HANG_RATE", 0.08)

	http.HandleFunc("GET /webhook", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"message": "Webhook receiver. Use POST with X-Webhook-Signature to deliver webhooks."}`)
	})

	http.HandleFunc("POST /webhook", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			logRequest(r, count, http.StatusBadRequest)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if !sign.Verify(secret, body, r.Header.Get("X-Webhook-Signature")) {
			logRequest(r, count, http.StatusUnauthorized)
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		// Occasional "offline": hold the connection until the client
		// times out.
		if rand.Float64() < hangRate {
			log.Printf("[#%d] simulating offline: holding connection", count)
			time.Sleep(60 * time.Second)
			logRequest(r, count, http.StatusGatewayTimeout)
			http.Error(w, "Gateway Timeout (simulated)", http.StatusGatewayTimeout)
			return
		}

		delay := time.Duration(rand.Float64() * maxDelay * float64(time.Second))
		time.Sleep(delay)

		if rand.Float64() < failureRate {
			logRequest(r, count, http.StatusInternalServerError)
			http.Error(w, "Internal Server Error (chaos)", http.StatusInternalServerError)
			return
		}

		logRequest(r, count, http.StatusOK)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"received": true}`)
	})

	http.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"total_requests": %d}`, requestCount.Load())
	})

	log.Printf("Mock receiver starting on :%s (failure_rate=%.2f, max_delay=%.1fs, hang_rate=%.2f)",
		port, failureRate, maxDelay, hangRate)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func logRequest(r *http.Request, count int64, status int) {
	fmt.Printf("[#%d] %s %s -> %d | sig=%s\n",
		count,
		r.Method,
		r.URL.Path,
		status,
		truncate(r.Header.Get("X-Webhook-Signature"), 16),
	)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
