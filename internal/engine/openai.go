package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Compile-time check.
var _ Engine = (*OpenAI)(nil)

const openAITimeout = 60 * time.Second

// OpenAI talks to any OpenAI-compatible API (OpenAI, Azure OpenAI, Groq)
// using bearer-token auth. Model availability is the provider's concern,
// so it does not implement ModelPuller.
type OpenAI struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewOpenAI creates an engine targeting an OpenAI-compatible base URL,
// e.g. "https://api.openai.com/v1" or "https://api.groq.com/openai/v1".
func NewOpenAI(baseURL, apiKey string) *OpenAI {
	return &OpenAI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: openAITimeout},
	}
}

type oaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type oaChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Chat sends a chat completion request and returns the first choice.
func (o *OpenAI) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	var result oaChatResponse
	if err := o.post(ctx, "/chat/completions", oaChatRequest{Model: model, Messages: messages}, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat: empty choices array")
	}
	return result.Choices[0].Message.Content, nil
}

type oaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type oaEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for the given text.
func (o *OpenAI) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	var result oaEmbedResponse
	if err := o.post(ctx, "/embeddings", oaEmbedRequest{Model: model, Input: text}, &result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("embeddings: empty data array")
	}
	return result.Data[0].Embedding, nil
}

// IsRunning reports whether the API answers GET /models.
func (o *OpenAI) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (o *OpenAI) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
