package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"tandem/pkg/circuitbreaker"
	"tandem/pkg/config"
	"tandem/pkg/metrics"
	"tandem/pkg/otel"
	"tandem/pkg/trace"
	"tandem/pkg/util"
)

const (
	defaultPredictionsURL = "https://api.replicate.com/v1/predictions"
	defaultTimeout        = 60 * time.Second

	maxTokens   = 1024
	temperature = 0.7
	topP        = 0.9

	maxPromptTurns = 20
)

// LLMResponder calls a Replicate-style predictions endpoint.
type LLMResponder struct {
	url        string
	token      string
	model      string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewLLMResponder(cfg config.AssistantConfig, logger *zap.Logger) *LLMResponder {
	url := cfg.URL
	if url == "" {
		url = defaultPredictionsURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 2,
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("Assistant circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &LLMResponder{
		url:        url,
		token:      cfg.Token,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		cb:         circuitbreaker.NewCircuitBreaker(cbConfig),
		logger:     logger,
	}
}

type predictionInput struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type predictionRequest struct {
	Version string          `json:"version,omitempty"`
	Input   predictionInput `json:"input"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

// BuildPrompt flattens the conversation into a single completion prompt.
func BuildPrompt(systemPrompt string, history []Message) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nCurrent conversation:\n")
	for i, m := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// decodeOutput accepts both a streamed token array and a plain string.
func decodeOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("empty output")
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, ""), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("decode output: %w", err)
	}
	return s, nil
}

// Respond completes the conversation. Only the last maxPromptTurns messages
// go into the prompt.
func (r *LLMResponder) Respond(ctx context.Context, history []Message, systemPrompt string) (Message, error) {
	ctx, span := otel.StartSpan(ctx, "assistant.respond")
	defer span.End()

	if len(history) > maxPromptTurns {
		history = history[len(history)-maxPromptTurns:]
	}

	var reply string
	err := r.cb.Execute(func() error {
		start := time.Now()
		text, status, err := r.predict(ctx, BuildPrompt(systemPrompt, history))
		metrics.RecordAssistantCallLatency("llm", status, time.Since(start))
		if err != nil {
			return err
		}
		reply = text
		return nil
	})
	if err != nil {
		span.RecordError(err)
		r.logger.Error("Assistant completion failed",
			zap.String("trace_id", trace.FromContext(ctx)),
			zap.String("breaker", r.cb.GetState().String()),
			zap.Error(err),
		)
		return Message{}, err
	}
	return Message{Role: RoleAssistant, Content: strings.TrimSpace(reply)}, nil
}

func (r *LLMResponder) predict(ctx context.Context, prompt string) (string, string, error) {
	body, err := json.Marshal(predictionRequest{
		Version: r.model,
		Input: predictionInput{
			Prompt:      prompt,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			TopP:        topP,
		},
	})
	if err != nil {
		return "", "error", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return "", "error", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName, traceID)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", "error", &util.Upstream{Service: "assistant", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Sprintf("%d", resp.StatusCode), &util.Upstream{
			Service: "assistant",
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	var pr predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", "decode_error", &util.Upstream{Service: "assistant", Status: resp.StatusCode, Err: err}
	}
	if pr.Status != "" && pr.Status != "succeeded" {
		return "", pr.Status, &util.Upstream{
			Service: "assistant",
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("prediction %s %s: %v", pr.ID, pr.Status, pr.Error),
		}
	}
	text, err := decodeOutput(pr.Output)
	if err != nil {
		return "", "decode_error", &util.Upstream{Service: "assistant", Status: resp.StatusCode, Err: err}
	}
	return text, "success", nil
}
