package llm

import (
	"context"
	"errors"
	"iter"
)

// Client abstracts LLM providers for contract analysis, chat and comparison.
type Client interface {
	// Generate returns the full completion. A non-nil Schema asks for JSON matching it.
	Generate(ctx context.Context, req Request) (string, error)
	// NewConversation opens a multi-turn chat seeded with a system instruction and history.
	NewConversation(ctx context.Context, cfg ConversationConfig) (Conversation, error)
	// Available reports whether the provider is configured to serve requests.
	Available() bool
}

// Conversation is one chat context held by the provider.
type Conversation interface {
	// SendStream sends message and yields text deltas until the reply is complete.
	SendStream(ctx context.Context, message string) iter.Seq2[string, error]
}

// Request is a single-shot completion request.
type Request struct {
	// Name labels the request in logs and metrics (e.g. "clauses", "header").
	Name        string
	System      string
	Prompt      string
	Schema      *Schema
	Temperature *float32
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one prior message replayed into a new conversation.
type Turn struct {
	Role Role
	Text string
}

// ConversationConfig seeds a conversation.
type ConversationConfig struct {
	SystemInstruction string
	History           []Turn
	Temperature       *float32
}

// Temperature returns a pointer to v for Request and ConversationConfig.
func Temperature(v float32) *float32 {
	return &v
}

var (
	// ErrNotConfigured is returned by the placeholder client.
	ErrNotConfigured = errors.New("LLM provider is not configured")
	// ErrEmptyResponse is returned when the provider answers with no text.
	ErrEmptyResponse = errors.New("LLM returned an empty response")
)

// PlaceholderClient stands in when no API key is configured.
type PlaceholderClient struct{}

// Generate returns ErrNotConfigured.
func (PlaceholderClient) Generate(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotConfigured
}

// NewConversation returns ErrNotConfigured.
func (PlaceholderClient) NewConversation(ctx context.Context, cfg ConversationConfig) (Conversation, error) {
	_ = ctx
	_ = cfg
	return nil, ErrNotConfigured
}

func (PlaceholderClient) Available() bool { return false }

var _ Client = PlaceholderClient{}
