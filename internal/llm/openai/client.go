package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"contract-decoder/internal/llm"
	"contract-decoder/internal/shared/telemetry"
)

var apiURL = "https://api.openai.com/v1/chat/completions"

const (
	DefaultModel   = "gpt-4o-mini"
	defaultTimeout = 120 * time.Second
	// wrapKey holds non-object schemas, since structured outputs require an object root.
	wrapKey = "items"
)

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client. A non-positive timeout uses the default.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

func (c *Client) Available() bool {
	return c != nil && c.apiKey != ""
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature(req.Temperature),
	}
	wrapped := false
	if req.Schema != nil {
		body.ResponseFormat, wrapped = structuredFormat(req.Name, req.Schema)
	}

	content, err := c.complete(ctx, req.Name, body)
	if err != nil && body.Temperature != nil && isTemperatureUnsupported(err) {
		telemetry.Warn("llm temperature unsupported, retrying without", map[string]any{"model": c.model})
		body.Temperature = nil
		content, err = c.complete(ctx, req.Name, body)
	}
	if err != nil {
		return "", err
	}
	if wrapped {
		return unwrap(content)
	}
	return content, nil
}

func (c *Client) complete(ctx context.Context, name string, body chatRequest) (string, error) {
	resp, err := c.post(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("openai http status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return "", fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai http status %d: %s (%s)", resp.StatusCode, parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("openai http status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}
	if parsed.Usage != nil {
		logUsage(c.model, name, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, parsed.Usage.TotalTokens)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai: %w", llm.ErrEmptyResponse)
	}
	return content, nil
}

func (c *Client) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) NewConversation(ctx context.Context, cfg llm.ConversationConfig) (llm.Conversation, error) {
	_ = ctx
	conv := &conversation{client: c, temperature: c.temperature(cfg.Temperature)}
	if strings.TrimSpace(cfg.SystemInstruction) != "" {
		conv.history = append(conv.history, chatMessage{Role: "system", Content: cfg.SystemInstruction})
	}
	for _, turn := range cfg.History {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		role := "user"
		if turn.Role == llm.RoleModel {
			role = "assistant"
		}
		conv.history = append(conv.history, chatMessage{Role: role, Content: turn.Text})
	}
	return conv, nil
}

type conversation struct {
	client      *Client
	temperature *float32

	mu      sync.Mutex
	history []chatMessage
}

// SendStream streams one assistant turn. The exchange is recorded in history only when it completes.
func (cv *conversation) SendStream(ctx context.Context, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		cv.mu.Lock()
		messages := append(append([]chatMessage(nil), cv.history...), chatMessage{Role: "user", Content: message})
		cv.mu.Unlock()

		resp, err := cv.client.post(ctx, chatRequest{
			Model:       cv.client.model,
			Messages:    messages,
			Temperature: cv.temperature,
			Stream:      true,
		})
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			yield("", fmt.Errorf("openai http status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
			return
		}

		var reply strings.Builder
		for delta, err := range readStream(resp.Body) {
			if err != nil {
				if ctx.Err() != nil {
					err = context.Cause(ctx)
				}
				yield("", err)
				return
			}
			reply.WriteString(delta)
			if !yield(delta, nil) {
				return
			}
		}
		if ctx.Err() != nil {
			yield("", context.Cause(ctx))
			return
		}

		cv.mu.Lock()
		cv.history = append(cv.history,
			chatMessage{Role: "user", Content: message},
			chatMessage{Role: "assistant", Content: reply.String()},
		)
		cv.mu.Unlock()
	}
}

// readStream decodes server-sent "data:" lines until [DONE].
func readStream(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}
			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				yield("", fmt.Errorf("openai stream parse: %w", err))
				return
			}
			if chunk.Error != nil {
				yield("", fmt.Errorf("openai stream error: %s (%s)", chunk.Error.Message, chunk.Error.Type))
				return
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !yield(choice.Delta.Content, nil) {
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("openai stream read: %w", err))
		}
	}
}

func structuredFormat(name string, schema *llm.Schema) (*responseFormat, bool) {
	if name == "" {
		name = "response"
	}
	doc := schema.JSONSchema()
	wrapped := schema.Type != llm.TypeObject
	if wrapped {
		doc = map[string]any{
			"type":                 "object",
			"properties":           map[string]any{wrapKey: doc},
			"required":             []string{wrapKey},
			"additionalProperties": false,
		}
	}
	return &responseFormat{
		Type:       "json_schema",
		JSONSchema: &jsonSchema{Name: name, Strict: true, Schema: doc},
	}, wrapped
}

func unwrap(content string) (string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return "", fmt.Errorf("openai structured output: %w", err)
	}
	inner, ok := obj[wrapKey]
	if !ok {
		return "", fmt.Errorf("openai structured output missing %q", wrapKey)
	}
	return string(inner), nil
}

func (c *Client) temperature(requested *float32) *float32 {
	if requested == nil || isGPT5(c.model) || noTemperatureModel(c.model) {
		return nil
	}
	v := *requested
	return &v
}

func noTemperatureModel(model string) bool {
	model = strings.ToLower(strings.TrimSpace(model))
	for _, m := range strings.Split(os.Getenv("LLM_NO_TEMP0_MODELS"), ",") {
		if strings.ToLower(strings.TrimSpace(m)) == model && model != "" {
			return true
		}
	}
	return false
}

func isTemperatureUnsupported(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "temperature") && (strings.Contains(msg, "unsupported") || strings.Contains(msg, "does not support"))
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

func logUsage(model, name string, prompt, completion, total int) {
	telemetry.Debug("llm response", map[string]any{
		"model":             model,
		"request":           name,
		"prompt_tokens":     prompt,
		"completion_tokens": completion,
		"total_tokens":      total,
	})
}

var _ llm.Client = (*Client)(nil)
