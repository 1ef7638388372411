package reasoner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/config"
	"github.com/agenttrace/xray/internal/pkg/circuitbreaker"
	"github.com/agenttrace/xray/internal/pkg/metrics"
)

const systemPrompt = "You are a helpful assistant that outputs strictly valid JSON."

// OpenAI calls an OpenAI-compatible chat completions endpoint
type OpenAI struct {
	cfg        config.ReasonerConfig
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	logger     *zap.Logger
}

// NewOpenAI creates a new OpenAI reasoner
func NewOpenAI(cfg config.ReasonerConfig, logger *zap.Logger) *OpenAI {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &OpenAI{
		cfg:        cfg,
		httpClient: &http.Client{},
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:        "openai",
			MaxFailures: cfg.BreakerFailures,
			Cooldown:    cfg.BreakerCooldown,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
		logger: logger,
	}
}

// Model returns the configured model name
func (o *OpenAI) Model() string {
	return o.cfg.Model
}

// Reason sends the prompt and returns the JSON object in the reply
func (o *OpenAI) Reason(ctx context.Context, prompt string) (json.RawMessage, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	content, err := circuitbreaker.Do(ctx, o.breaker, func(ctx context.Context) (string, error) {
		return o.complete(ctx, prompt)
	})
	metrics.RecordReasonerCall("openai", time.Since(start), err)
	if err != nil {
		o.logger.Warn("reasoner call failed", zap.String("model", o.cfg.Model), zap.Error(err))
		return nil, Failure(err)
	}

	raw, err := extractJSON(content)
	if err != nil {
		return nil, Failure(err)
	}
	return raw, nil
}

func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"model": o.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]string{"type": "json_object"},
	}
	if o.cfg.Temperature > 0 {
		requestBody["temperature"] = o.cfg.Temperature
	}
	if o.cfg.MaxTokens > 0 {
		requestBody["max_tokens"] = o.cfg.MaxTokens
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(o.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if o.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error: %s - %s", resp.Status, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return result.Choices[0].Message.Content, nil
}

// extractJSON returns the reply when it is valid JSON, else the outermost
// {...} span inside it.
func extractJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty answer")
	}
	if json.Valid([]byte(content)) {
		return json.RawMessage(content), nil
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		candidate := content[start : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}
	return nil, fmt.Errorf("answer is not JSON: %.80q", content)
}
