package llm

import (
	"context"
	"errors"
	"iter"
	"net"
	"strings"
	"time"

	"contract-decoder/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

type retrying struct {
	base  Client
	delay time.Duration
}

// WithRetry wraps base so that a transient failure is retried once.
// Cancellation and caller deadlines are never retried.
func WithRetry(base Client) Client {
	if base == nil {
		return nil
	}
	return retrying{base: base, delay: retryBaseDelay}
}

func (r retrying) Available() bool { return r.base.Available() }

func (r retrying) Generate(ctx context.Context, req Request) (string, error) {
	out, err := r.base.Generate(ctx, req)
	if err == nil || !r.retryable(ctx, err) {
		return out, err
	}
	telemetry.Warn("llm retry", map[string]any{
		"attempt": 1,
		"request": req.Name,
		"error":   sanitizeError(err),
	})
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.base.Generate(ctx, req)
}

func (r retrying) NewConversation(ctx context.Context, cfg ConversationConfig) (Conversation, error) {
	conv, err := r.base.NewConversation(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return retryingConversation{base: conv, r: r}, nil
}

type retryingConversation struct {
	base Conversation
	r    retrying
}

// SendStream retries only when the first attempt failed before yielding any text.
func (c retryingConversation) SendStream(ctx context.Context, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for attempt := 0; attempt < 2; attempt++ {
			sent := false
			var failure error
			for delta, err := range c.base.SendStream(ctx, message) {
				if err != nil {
					failure = err
					break
				}
				sent = true
				if !yield(delta, nil) {
					return
				}
			}
			if failure == nil {
				return
			}
			if sent || attempt > 0 || !c.r.retryable(ctx, failure) {
				yield("", failure)
				return
			}
			telemetry.Warn("llm stream retry", map[string]any{
				"attempt": 1,
				"error":   sanitizeError(failure),
			})
			if err := c.r.wait(ctx); err != nil {
				yield("", err)
				return
			}
		}
	}
}

func (r retrying) wait(ctx context.Context) error {
	t := time.NewTimer(r.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (r retrying) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return ShouldRetry(err)
}

// ShouldRetry reports whether err looks like a transient provider or network failure.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") ||
		strings.Contains(msg, "http status 429") || strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "unavailable") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "gemini") || strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
