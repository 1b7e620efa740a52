package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/rcliao/channel-memory/internal/config"
)

const defaultOllamaModel = "llama3.2"

// OllamaSummarizer uses a local Ollama instance.
type OllamaSummarizer struct {
	baseURL string
	model   string
	client  *http.Client
	limiter *rate.Limiter
}

type ollamaRequest struct {
	Model  string      `json:"model"`
	System string      `json:"system,omitempty"`
	Prompt string      `json:"prompt"`
	Format interface{} `json:"format,omitempty"`
	Stream bool        `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// NewOllamaSummarizer creates a summarizer using Ollama's generate API.
// The base URL falls back to OLLAMA_HOST, then the local default.
func NewOllamaSummarizer(cfg config.LLM) *OllamaSummarizer {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaSummarizer{
		baseURL: baseURL,
		model:   modelName,
		client:  &http.Client{Timeout: timeout},
		limiter: newLimiter(cfg.RequestsPerMinute),
	}
}

func (s *OllamaSummarizer) Model() string { return s.model }

func (s *OllamaSummarizer) Summarize(ctx context.Context, instructions, input string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, _ := json.Marshal(ollamaRequest{
		Model:  s.model,
		System: instructions,
		Prompt: input,
		Format: summarySchema,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(b))
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return decodeSummary(result.Response)
}
