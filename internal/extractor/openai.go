package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/intentsql/intentsql/internal/intent"
)

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type OpenAIExtractor struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func NewOpenAIExtractor(cfg OpenAIConfig) (*OpenAIExtractor, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-5"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAIExtractor{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (e *OpenAIExtractor) Extract(ctx context.Context, req Request) (Result, error) {
	payload, err := buildPayload(e.model, e.temperature, req)
	if err != nil {
		return Result{}, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, fmt.Errorf("empty chat completion choices")
	}

	raw, err := decodeIntent(parsed.Choices[0].Message.Content)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Intent:   raw,
		Provider: "openai-compatible",
		Model:    e.model,
	}, nil
}

func decodeIntent(content string) (intent.RawIntent, error) {
	text := stripMarkdownJSON(content)
	if text == "" {
		return intent.RawIntent{}, fmt.Errorf("model returned empty intent")
	}
	var raw intent.RawIntent
	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		return intent.RawIntent{}, fmt.Errorf("decode model intent: %w", err)
	}
	return raw, nil
}

func buildPayload(model string, temperature float64, req Request) (map[string]any, error) {
	tablesJSON, err := json.Marshal(req.Tables)
	if err != nil {
		return nil, fmt.Errorf("marshal table context: %w", err)
	}
	systemPrompt := "You extract the analytics intent behind a question as JSON. " +
		"Return ONLY a JSON object with keys table, metrics, dimensions, filters, order_by, limit. " +
		"No markdown, no SQL, no explanation."
	userPrompt := fmt.Sprintf(
		"Tables (JSON):\n%s\n\nQuestion:\n%s\n\nRules:\n"+
			"- metrics is a list of {column, aggregation, alias}; aggregation is one of SUM, AVG, COUNT, MIN, MAX.\n"+
			"- Leave metrics empty when no listed column clearly matches.\n"+
			"- filters is a list of {column, operator, value}.\n"+
			"- order_by is a list of {column, direction}.\n"+
			"- Use only listed tables and columns.",
		string(tablesJSON),
		strings.TrimSpace(req.Question),
	)

	return map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature":     temperature,
		"response_format": map[string]string{"type": "json_object"},
	}, nil
}

func stripMarkdownJSON(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
