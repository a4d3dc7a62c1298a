// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"errors"
	"iter"
	"sync"

	"contract-decoder/internal/llm"
)

// ErrNoReply is returned when a test did not script enough replies.
var ErrNoReply = errors.New("llmtest: no scripted reply")

// Reply scripts one Generate call.
type Reply struct {
	Text string
	Err  error
	// Before runs when the call is made, before the reply is returned.
	Before func(req llm.Request)
	// Block makes the call wait until its context is cancelled.
	Block bool
}

// StreamReply scripts one SendStream call.
type StreamReply struct {
	Deltas []string
	Err    error
	// Before runs before each delta is yielded with the delta's index.
	Before func(i int)
	// Block makes the stream wait for cancellation after its deltas.
	Block bool
}

// Fake is a goroutine-safe scripted client.
type Fake struct {
	mu          sync.Mutex
	unavailable bool
	convErr     error
	replies     []Reply
	streams     []StreamReply
	requests    []llm.Request
	configs     []llm.ConversationConfig
	messages    []string
}

func New() *Fake {
	return &Fake{}
}

// Reply appends scripted Generate replies.
func (f *Fake) Reply(replies ...Reply) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, replies...)
	return f
}

// Text appends successful Generate replies.
func (f *Fake) Text(texts ...string) *Fake {
	for _, t := range texts {
		f.Reply(Reply{Text: t})
	}
	return f
}

// Stream appends scripted SendStream replies.
func (f *Fake) Stream(streams ...StreamReply) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams = append(f.streams, streams...)
	return f
}

// SetAvailable toggles Available and makes NewConversation fail when false.
func (f *Fake) SetAvailable(ok bool) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailable = !ok
	return f
}

// FailConversations makes NewConversation return err.
func (f *Fake) FailConversations(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convErr = err
	return f
}

func (f *Fake) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.unavailable
}

func (f *Fake) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	if len(f.replies) == 0 {
		f.mu.Unlock()
		return "", ErrNoReply
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	f.mu.Unlock()

	if r.Before != nil {
		r.Before(req)
	}
	if r.Block {
		<-ctx.Done()
		return "", context.Cause(ctx)
	}
	if err := ctx.Err(); err != nil {
		return "", context.Cause(ctx)
	}
	return r.Text, r.Err
}

func (f *Fake) NewConversation(ctx context.Context, cfg llm.ConversationConfig) (llm.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return nil, llm.ErrNotConfigured
	}
	if f.convErr != nil {
		return nil, f.convErr
	}
	f.configs = append(f.configs, cfg)
	return conversation{f: f}, nil
}

// Requests returns every Generate request received so far.
func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// Conversations returns the config of every conversation opened so far.
func (f *Fake) Conversations() []llm.ConversationConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.ConversationConfig(nil), f.configs...)
}

// Messages returns every chat message sent so far.
func (f *Fake) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type conversation struct {
	f *Fake
}

func (c conversation) SendStream(ctx context.Context, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		c.f.mu.Lock()
		c.f.messages = append(c.f.messages, message)
		if len(c.f.streams) == 0 {
			c.f.mu.Unlock()
			yield("", ErrNoReply)
			return
		}
		s := c.f.streams[0]
		c.f.streams = c.f.streams[1:]
		c.f.mu.Unlock()

		for i, d := range s.Deltas {
			if s.Before != nil {
				s.Before(i)
			}
			if ctx.Err() != nil {
				yield("", context.Cause(ctx))
				return
			}
			if !yield(d, nil) {
				return
			}
		}
		if s.Block {
			<-ctx.Done()
			yield("", context.Cause(ctx))
			return
		}
		if s.Err != nil {
			yield("", s.Err)
		}
	}
}

var _ llm.Client = (*Fake)(nil)
