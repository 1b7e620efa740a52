// Package llm provides the language model collaborators used to write
// period summaries.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rcliao/channel-memory/internal/config"
	"github.com/rcliao/channel-memory/internal/model"
)

// Summarizer turns a prompt and an input transcript into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, instructions, input string) (string, error)
	Model() string
}

// summaryResponse is the structured output requested from providers.
type summaryResponse struct {
	Summary string `json:"summary" jsonschema:"required,description=One to three sentence chronology of the excerpt"`
}

// ErrEmptySummary is returned when a provider answers without any text.
var ErrEmptySummary = errors.New("empty summary")

// decodeSummary reads the summary from a provider reply. Replies that are
// not the expected JSON object are taken as plain text.
func decodeSummary(out string) (string, error) {
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	out = strings.TrimSpace(out)

	var resp summaryResponse
	if strings.HasPrefix(out, "{") {
		if err := json.Unmarshal([]byte(out), &resp); err == nil {
			out = strings.TrimSpace(resp.Summary)
		}
	}
	if out == "" {
		return "", ErrEmptySummary
	}
	return out, nil
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// New creates a summarizer from configuration. It returns nil, nil when no
// provider is configured.
func New(cfg config.LLM) (Summarizer, error) {
	switch cfg.Provider {
	case "":
		return nil, nil // summaries disabled
	case "openai":
		if cfg.APIKey == "" {
			return nil, &model.ConfigError{Field: "llm.api_key"}
		}
		return NewOpenAISummarizer(cfg), nil
	case "ollama":
		return NewOllamaSummarizer(cfg), nil
	default:
		return nil, &model.ConfigError{Field: "llm.provider", Err: fmt.Errorf("unknown provider %q", cfg.Provider)}
	}
}
