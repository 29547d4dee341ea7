// Package engine abstracts the LLM backends: a local Ollama instance or
// any OpenAI-compatible server. Embedding and summarization depend on this
// interface instead of a concrete client.
package engine

import "context"

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Engine is an inference backend providing the two capabilities the rest
// of the system consumes: chat completion and text embedding.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's
	// response.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// Embed returns the embedding vector for the given text using the
	// specified model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// IsRunning reports whether the backend is reachable.
	IsRunning(ctx context.Context) bool
}

// PullProgress is one line of a streamed model pull.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// ModelPuller is implemented by backends that manage a local model
// library. Remote OpenAI-compatible backends do not.
type ModelPuller interface {
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
