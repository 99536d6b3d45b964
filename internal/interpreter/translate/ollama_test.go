package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
)

func newOllamaServer(t *testing.T, installed []string, pullLines []string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var pulls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		resp := ListModelsResponse{}
		for _, name := range installed {
			resp.Models = append(resp.Models, ModelInfo{Name: name})
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		pulls.Add(1)
		var req PullRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Stream {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		for _, line := range pullLines {
			fmt.Fprintln(w, line)
		}
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.Stream || len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		if !strings.Contains(req.Messages[0].Content, "Russian") {
			http.Error(w, "prompt missing language", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(ChatResponse{
			Model:   req.Model,
			Message: ChatMessage{Role: "assistant", Content: `"Good morning"`},
			Done:    true,
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &pulls
}

func TestOllama_ProvisionPresent(t *testing.T) {
	server, pulls := newOllamaServer(t, []string{"qwen2.5:3b"}, nil)
	backend := NewOllama(OllamaConfig{BaseURL: server.URL, Model: "qwen2.5:3b"})

	if err := backend.Provision(context.Background(), "ru", "en", nil); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if pulls.Load() != 0 {
		t.Error("present model must not be pulled")
	}
}

func TestOllama_ProvisionLatestTag(t *testing.T) {
	server, pulls := newOllamaServer(t, []string{"llama3:latest"}, nil)
	backend := NewOllama(OllamaConfig{BaseURL: server.URL, Model: "llama3"})

	if err := backend.Provision(context.Background(), "ru", "en", nil); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if pulls.Load() != 0 {
		t.Error("name should match its :latest tag")
	}
}

func TestOllama_ProvisionPulls(t *testing.T) {
	lines := []string{
		`{"status":"pulling manifest"}`,
		`{"status":"downloading","digest":"sha256:abc","total":100,"completed":40}`,
		`{"status":"downloading","digest":"sha256:abc","total":100,"completed":100}`,
		`{"status":"success"}`,
	}
	server, pulls := newOllamaServer(t, nil, lines)
	backend := NewOllama(OllamaConfig{BaseURL: server.URL, Model: "qwen2.5:3b"})

	var progress []Progress
	err := backend.Provision(context.Background(), "ru", "en", func(p Progress) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if pulls.Load() != 1 {
		t.Errorf("pulls = %d, want 1", pulls.Load())
	}
	if len(progress) != len(lines) {
		t.Fatalf("progress events = %d, want %d", len(progress), len(lines))
	}
	if progress[1].Percent() != 40 {
		t.Errorf("Percent() = %v, want 40", progress[1].Percent())
	}
}

func TestOllama_ProvisionPullErrors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"error line", []string{`{"status":"pulling manifest"}`, `{"error":"model not found"}`}},
		{"truncated stream", []string{`{"status":"pulling manifest"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newOllamaServer(t, nil, tt.lines)
			backend := NewOllama(OllamaConfig{BaseURL: server.URL, Model: "missing"})

			err := backend.Provision(context.Background(), "ru", "en", nil)
			if !mdwerror.HasCode(err, mdwerror.CodeModelDownloadFailed) {
				t.Errorf("error = %v, want MODEL_DOWNLOAD_FAILED", err)
			}
		})
	}
}

func TestOllama_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	backend := NewOllama(OllamaConfig{BaseURL: url})
	err := backend.Provision(context.Background(), "ru", "en", nil)
	if !mdwerror.HasCode(err, mdwerror.CodeModelDownloadFailed) {
		t.Errorf("error = %v, want MODEL_DOWNLOAD_FAILED", err)
	}
}

func TestOllama_TranslateThroughService(t *testing.T) {
	server, _ := newOllamaServer(t, []string{"qwen2.5:3b"}, nil)
	svc := NewService(NewOllama(OllamaConfig{BaseURL: server.URL + "/"}), DefaultConfig())
	defer svc.Close()

	out, err := svc.Translate(context.Background(), "Доброе утро", "ru", "en")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if out != "Good morning" {
		t.Errorf("Translate() = %q, want %q", out, "Good morning")
	}
}

func TestGemini_MissingKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"unexpanded", "${GEMINI_API_KEY}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewGemini(GeminiConfig{APIKey: tt.key})
			defer backend.Close()

			err := backend.Provision(context.Background(), "ru", "en", nil)
			if !mdwerror.HasCode(err, mdwerror.CodeModelDownloadFailed) {
				t.Errorf("error = %v, want MODEL_DOWNLOAD_FAILED", err)
			}
		})
	}
}

func TestGemini_TranslateWithoutProvision(t *testing.T) {
	backend := NewGemini(GeminiConfig{})
	_, err := backend.Translate(context.Background(), "привет", "ru", "en")
	if !mdwerror.HasCode(err, mdwerror.CodeTranslationFailed) {
		t.Errorf("error = %v, want TRANSLATION_FAILED", err)
	}
}
