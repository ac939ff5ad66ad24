package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"knowledge-assistant-go/internal/apperr"
	"knowledge-assistant-go/internal/config"
)

func newTestClient(baseURL string) Client {
	return NewClient(config.SearchConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		MaxResults: 5,
		Language:   "zh-CN",
	})
}

func TestSearchNormalizesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected authorization header: %s", got)
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["query"] != "golang" {
			t.Fatalf("unexpected query: %v", req["query"])
		}
		if req["max_results"] != float64(5) {
			t.Fatalf("unexpected max_results: %v", req["max_results"])
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[
			{"title":"A","snippet":"s1","link":"u1"},
			{"title":"B","link":"u2"},
			{"snippet":"s3"}
		]}`)
	}))
	defer server.Close()

	results, err := newTestClient(server.URL).Search(context.Background(), "golang")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0] != (Result{Title: "A", Snippet: "s1", URL: "u1"}) {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	// 缺失字段按空字符串处理
	if results[1].Snippet != "" || results[2].Title != "" || results[2].URL != "" {
		t.Fatalf("missing fields should default to empty strings: %+v", results)
	}
}

func TestSearchSkipsMalformedResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[{"title":"A","snippet":"s1","link":"u1"},42,{"title":"B","snippet":"s2","link":"u2"}]}`)
	}))
	defer server.Close()

	results, err := newTestClient(server.URL).Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected malformed record to be skipped, got %d results", len(results))
	}
	if results[1].Title != "B" {
		t.Fatalf("unexpected second result: %+v", results[1])
	}
}

func TestSearchUpstreamErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "q")
	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Provider != apperr.ProviderSearch || ue.Status != http.StatusTooManyRequests || ue.Message != "rate limited" {
		t.Fatalf("unexpected error: %+v", ue)
	}
}

func TestSearchUpstreamErrorRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "q")
	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusBadGateway || ue.Message != "upstream exploded" {
		t.Fatalf("unexpected error: %+v", ue)
	}
}

func TestSearchInvalidResponseShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "q")
	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusInternalServerError || ue.Message != "invalid response shape" {
		t.Fatalf("unexpected error: %+v", ue)
	}
}
