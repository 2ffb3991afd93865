package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestOllamaProvider_Summarize_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream || req.System != systemPrompt || !strings.Contains(req.Prompt, "- CSC 101") {
			t.Errorf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "llama3.1",
			Response:        "Students take CSC 101.",
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL + "/", Model: "llama3.1", Timeout: 5, StrictCodes: true})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Summarize(context.Background(), SummarizeRequest{
		Report:       testReport(),
		AllowedCodes: []string{"CSC 101"},
	})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if resp.Summary != "Students take CSC 101." || resp.TokensUsed != 30 {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if len(resp.CitedCodes) != 1 || resp.CitedCodes[0] != "CSC 101" {
		t.Errorf("Unexpected cited codes: %v", resp.CitedCodes)
	}
}

func TestOllamaProvider_Summarize_CodeLeak(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Model: "llama3.1", Response: "Also take PHYS 999.", Done: true})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", StrictCodes: true})
	_, err := provider.Summarize(context.Background(), SummarizeRequest{Report: testReport(), AllowedCodes: []string{"CSC 101"}})
	if err == nil || !strings.Contains(err.Error(), "CODE LEAK") {
		t.Fatalf("Expected CODE LEAK, got %v", err)
	}
}

func TestOllamaProvider_Summarize_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "Internal Server Error"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5})
	_, err := provider.Summarize(context.Background(), SummarizeRequest{Report: testReport()})
	if err == nil || !strings.Contains(err.Error(), "Internal Server Error") {
		t.Errorf("Expected Internal Server Error, got %v", err)
	}
}

func TestOllamaProvider_Summarize_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{malformed json`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5})
	if _, err := provider.Summarize(context.Background(), SummarizeRequest{Report: testReport()}); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	status.Store(http.StatusInternalServerError)
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}

func TestOllamaProvider_Summarize_NoModel(t *testing.T) {
	provider, _ := NewOllamaProvider(Config{BaseURL: "http://localhost:11434"})
	_, err := provider.Summarize(context.Background(), SummarizeRequest{Report: testReport()})
	if err == nil || !strings.Contains(err.Error(), "must be specified") {
		t.Errorf("Expected error about missing model, got %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{Provider: "OLLAMA", Model: "llama3.1"})
	if err != nil || p.Name() != "ollama" {
		t.Errorf("NewProvider(ollama) = %v, %v", p, err)
	}
	p, err = NewProvider(Config{})
	if err != nil || p != nil {
		t.Errorf("NewProvider(\"\") = %v, %v", p, err)
	}
}
