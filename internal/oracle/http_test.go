package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPSourceFetchParsesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models/gpt-4/metrics" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != "chatten-test" {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"avg_latency_ms": 50.0,
			"p95_latency_ms": 100.0,
			"p99_latency_ms": 200.0,
			"throughput_tokens_per_sec": 1000.0,
			"requests_per_minute": 600.0,
			"accuracy_score": 0.95,
			"benchmark_score": 85.0,
			"uptime_percentage": 99.9,
			"error_rate": 0.001,
			"cost_per_1k_tokens": 0.002,
			"total_inferences": 15000,
			"last_updated": "2025-06-01T12:00:00Z"
		}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPOptions{BaseURL: srv.URL, UserAgent: "chatten-test"}, noopLogger())
	snap, err := src.Fetch(context.Background(), "gpt-4")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.AvgLatencyMS != 50.0 || snap.ThroughputTPS != 1000.0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.P95LatencyMS != 100.0 || snap.CostPer1KTokens != 0.002 {
		t.Fatalf("metadata fields not parsed: %+v", snap)
	}
	if snap.SampleCount != 15000 {
		t.Fatalf("sample count = %d, want 15000", snap.SampleCount)
	}
	if snap.Timestamp.IsZero() {
		t.Fatal("timestamp should be parsed")
	}
}

func TestHTTPSourceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unknown model"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPOptions{BaseURL: srv.URL}, noopLogger())
	if _, err := src.Fetch(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHTTPSourceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"oracle exploded"}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPOptions{BaseURL: srv.URL}, noopLogger())
	_, err := src.Fetch(context.Background(), "gpt-4")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "oracle api error (500)") {
		t.Fatalf("unexpected error text: %v", err)
	}
	if !strings.Contains(err.Error(), "oracle exploded") {
		t.Fatalf("error should carry server message: %v", err)
	}
}

func TestHTTPSourceRequiresBaseURL(t *testing.T) {
	src := NewHTTPSource(HTTPOptions{}, noopLogger())
	if _, err := src.Fetch(context.Background(), "gpt-4"); err == nil {
		t.Fatal("期望缺少 base URL 配置时返回错误")
	}
}

func TestHTTPSourceDefaultsTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"avg_latency_ms": 10}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPOptions{BaseURL: srv.URL}, noopLogger())
	snap, err := src.Fetch(context.Background(), "gpt-4")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.Timestamp.IsZero() {
		t.Fatal("missing last_updated should default to now")
	}
}
