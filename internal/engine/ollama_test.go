package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newOllamaTestServer(t *testing.T, handler http.HandlerFunc) *Ollama {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOllama(srv.URL)
}

func TestOllamaChat(t *testing.T) {
	o := newOllamaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "llama3.1" || req.Stream {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(chatResponse{Message: Message{Role: "assistant", Content: "hello"}})
	})

	got, err := o.Chat(context.Background(), "llama3.1", []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if got != "hello" {
		t.Errorf("Chat() = %q", got)
	}
}

func TestOllamaEmbed(t *testing.T) {
	o := newOllamaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1, 0.2}}})
	})

	vec, err := o.Embed(context.Background(), "nomic-embed-text", "some text")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.1 {
		t.Errorf("Embed() = %v", vec)
	}
}

func TestOllamaEmbedEmptyResponse(t *testing.T) {
	o := newOllamaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{})
	})

	if _, err := o.Embed(context.Background(), "m", "text"); err == nil {
		t.Fatal("empty embeddings array should be an error")
	}
}

func TestOllamaHasModel(t *testing.T) {
	o := newOllamaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3.1:latest"},{"name":"nomic-embed-text:latest"}]}`))
	})
	ctx := context.Background()

	if !o.HasModel(ctx, "llama3.1") {
		t.Error("tag suffix should not prevent a match")
	}
	if !o.HasModel(ctx, "nomic-embed-text:latest") {
		t.Error("exact name should match")
	}
	if o.HasModel(ctx, "mistral") {
		t.Error("absent model should not match")
	}
}

func TestOllamaIsRunning(t *testing.T) {
	o := newOllamaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	})
	if !o.IsRunning(context.Background()) {
		t.Error("IsRunning() = false against a live server")
	}

	down := NewOllama("http://127.0.0.1:1")
	if down.IsRunning(context.Background()) {
		t.Error("IsRunning() = true against a dead address")
	}
}
