package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"golang.org/x/time/rate"

	"github.com/rcliao/channel-memory/internal/config"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAISummarizer uses the OpenAI Responses API with a strict JSON schema.
type OpenAISummarizer struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter

	rateLimitWaits   []time.Duration
	serverErrorWaits []time.Duration
}

var summarySchema = generateSchema[summaryResponse]()

// NewOpenAISummarizer creates a summarizer for any OpenAI-compatible
// Responses endpoint.
func NewOpenAISummarizer(cfg config.LLM) *OpenAISummarizer {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	client := openai.NewClient(opts...)
	return &OpenAISummarizer{
		client:           &client,
		model:            modelName,
		limiter:          newLimiter(cfg.RequestsPerMinute),
		rateLimitWaits:   []time.Duration{65 * time.Second, 100 * time.Second},
		serverErrorWaits: []time.Duration{5 * time.Second, 30 * time.Second},
	}
}

func (s *OpenAISummarizer) Model() string { return s.model }

func (s *OpenAISummarizer) Summarize(ctx context.Context, instructions, input string) (string, error) {
	params := responses.ResponseNewParams{
		Model:           s.model,
		MaxOutputTokens: openai.Int(400),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(input, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "PeriodSummary",
					Schema:      summarySchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Period summary JSON"),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := s.callWithRetry(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai summarize: %w", err)
	}
	return decodeSummary(resp.OutputText())
}

func (s *OpenAISummarizer) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	attempts := len(s.rateLimitWaits) + 1
	if n := len(s.serverErrorWaits) + 1; n > attempts {
		attempts = n
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := s.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}

		var waits []time.Duration
		switch {
		case isRateLimitError(err):
			waits = s.rateLimitWaits
		case isServerError(err):
			waits = s.serverErrorWaits
		}
		if attempt >= len(waits) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waits[attempt]):
		}
	}
	return nil, fmt.Errorf("failed after %d attempts due to OpenAI API issues", attempts)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}

func generateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	b, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	// Strict mode rejects these keywords and needs every property required.
	delete(m, "$schema")
	delete(m, "$id")
	m["additionalProperties"] = false
	if props, ok := m["properties"].(map[string]interface{}); ok {
		required := make([]string, 0, len(props))
		for name := range props {
			required = append(required, name)
		}
		m["required"] = required
	}
	return m
}
