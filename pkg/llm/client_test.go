package llm

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
	return NewClient(config.CompletionConfig{
		APIKey:       "test-key",
		BaseURL:      baseURL,
		DefaultModel: "default-model",
	})
}

func TestCompleteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["model"] != "my-model" {
			t.Fatalf("unexpected model: %v", req["model"])
		}
		if req["temperature"] != 0.7 || req["max_tokens"] != float64(1000) || req["stream"] != false {
			t.Fatalf("unexpected generation params: %v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`)
	}))
	defer server.Close()

	text, err := newTestClient(server.URL).Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, "my-model")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("unexpected completion text: %q", text)
	}
}

func TestCompleteUsesDefaultModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["model"] != "default-model" {
			t.Fatalf("expected default model, got %v", req["model"])
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, ""); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Provider != apperr.ProviderCompletion || ue.Status != http.StatusUnauthorized || ue.Message != "invalid api key" {
		t.Fatalf("unexpected error: %+v", ue)
	}
}

func TestCompleteInvalidResponseShape(t *testing.T) {
	cases := map[string]string{
		"no choices":      `{"choices":[]}`,
		"missing content": `{"choices":[{"message":{}}]}`,
		"not json":        `garbage`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
			var ue *apperr.UpstreamError
			if !errors.As(err, &ue) {
				t.Fatalf("expected UpstreamError, got %v", err)
			}
			if ue.Status != http.StatusInternalServerError || ue.Message != "invalid response shape" {
				t.Fatalf("unexpected error: %+v", ue)
			}
		})
	}
}

func TestListModelsPassthrough(t *testing.T) {
	const catalog = `{"object":"list","data":[{"id":"m1"},{"id":"m2"}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, catalog)
	}))
	defer server.Close()

	raw, err := newTestClient(server.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if string(raw) != catalog {
		t.Fatalf("catalog should pass through untouched, got %s", raw)
	}
}

func TestListModelsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"down for maintenance"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListModels(context.Background())
	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusServiceUnavailable || ue.Message != "down for maintenance" {
		t.Fatalf("unexpected error: %+v", ue)
	}
}
