// Package gemini implements llm.Client on the Google Gen AI SDK.
package gemini

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"contract-decoder/internal/llm"
	"contract-decoder/internal/shared/telemetry"
)

const DefaultModel = "gemini-2.5-flash"

// Client implements llm.Client using the Gemini API backend.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient constructs a Gemini client for model.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API_KEY is required for Gemini")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Available() bool {
	return c != nil && c.client != nil
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	cfg := generateConfig(req.System, req.Temperature, req.Schema)
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	logUsage(c.model, req.Name, resp)
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: %w", llm.ErrEmptyResponse)
	}
	return text, nil
}

func (c *Client) NewConversation(ctx context.Context, cfg llm.ConversationConfig) (llm.Conversation, error) {
	history := make([]*genai.Content, 0, len(cfg.History))
	for _, turn := range cfg.History {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if turn.Role == llm.RoleModel {
			role = genai.RoleModel
		}
		history = append(history, genai.NewContentFromText(turn.Text, role))
	}
	chat, err := c.client.Chats.Create(ctx, c.model, generateConfig(cfg.SystemInstruction, cfg.Temperature, nil), history)
	if err != nil {
		return nil, fmt.Errorf("gemini chat: %w", err)
	}
	return &conversation{chat: chat}, nil
}

type conversation struct {
	chat *genai.Chat
}

func (c *conversation) SendStream(ctx context.Context, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range c.chat.SendMessageStream(ctx, genai.Part{Text: message}) {
			if err != nil {
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			if resp == nil {
				continue
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

func generateConfig(system string, temperature *float32, schema *llm.Schema) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: temperature}
	if strings.TrimSpace(system) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toSchema(schema)
	}
	return cfg
}

func toSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toType(s.Type),
		Description: s.Description,
		Enum:        append([]string(nil), s.Enum...),
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
		Items:       toSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
		out.PropertyOrdering = s.PropertyNames()
		out.Required = append([]string(nil), s.Required...)
	}
	return out
}

func toType(t llm.SchemaType) genai.Type {
	switch t {
	case llm.TypeObject:
		return genai.TypeObject
	case llm.TypeArray:
		return genai.TypeArray
	case llm.TypeInteger:
		return genai.TypeInteger
	case llm.TypeNumber:
		return genai.TypeNumber
	case llm.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func logUsage(model, name string, resp *genai.GenerateContentResponse) {
	fields := map[string]any{"model": model, "request": name}
	if resp != nil && resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		fields["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	telemetry.Debug("llm response", fields)
}

var _ llm.Client = (*Client)(nil)
