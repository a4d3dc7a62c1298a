// Package chat wraps one model conversation about the current analysis.
package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"contract-decoder/internal/contract"
	"contract-decoder/internal/llm"
	"contract-decoder/internal/opslot"
	"contract-decoder/internal/prompts"
	"contract-decoder/internal/shared/telemetry"
	"contract-decoder/internal/shared/util"
)

var (
	// ErrUnavailable means the conversation could not be created; the caller may retry Initialize.
	ErrUnavailable    = errors.New("chat is unavailable")
	ErrNotInitialized = errors.New("chat session is not initialized")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrConsumed       = errors.New("chat stream already consumed")
)

// Session owns the conversation handle. Its lifecycle is Initialize, any number of
// SendMessageStream calls, and Dispose.
type Session struct {
	client llm.Client
	slot   *opslot.Slot

	mu       sync.Mutex
	conv     llm.Conversation
	active   *opslot.Lease
	disposed bool
}

func New(client llm.Client, slot *opslot.Slot) *Session {
	return &Session{client: client, slot: slot}
}

// Initialize (re)creates the conversation for analysis, replaying completed
// exchanges from history.
func (s *Session) Initialize(ctx context.Context, analysis contract.ContractAnalysis, persona contract.Persona, history []contract.ChatMessage) error {
	if s.client == nil || !s.client.Available() {
		return ErrUnavailable
	}
	conv, err := s.client.NewConversation(ctx, llm.ConversationConfig{
		SystemInstruction: prompts.ChatSystemInstruction(analysis, persona),
		History:           Turns(history),
		Temperature:       prompts.ChatTemperature(),
	})
	if err != nil {
		telemetry.Warn("chat initialize failed", map[string]any{"error": err})
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv = conv
	s.disposed = false
	return nil
}

// Ready reports whether a conversation exists.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv != nil
}

// SendMessageStream acquires the shared slot, cancelling analysis or a previous
// chat turn, and returns the reply stream.
func (s *Session) SendMessageStream(ctx context.Context, message string) *Stream {
	lease := s.slot.Acquire(ctx, opslot.KindChat)
	s.mu.Lock()
	conv := s.conv
	s.active = lease
	s.mu.Unlock()
	return &Stream{
		session: s,
		lease:   lease,
		conv:    conv,
		message: strings.TrimSpace(util.SanitizePromptText(message)),
	}
}

// Cancel aborts the session's in-flight stream, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	lease := s.active
	s.active = nil
	s.mu.Unlock()
	if lease != nil {
		s.slot.Release(lease)
	}
}

// Dispose cancels any stream and drops the conversation.
func (s *Session) Dispose() {
	s.Cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv = nil
	s.disposed = true
}

func (s *Session) finished(lease *opslot.Lease) {
	s.mu.Lock()
	if s.active == lease {
		s.active = nil
	}
	s.mu.Unlock()
	s.slot.Release(lease)
}

// Stream is one reply in flight.
type Stream struct {
	session *Session
	lease   *opslot.Lease
	conv    llm.Conversation
	message string
	used    atomic.Bool
}

func (st *Stream) ID() string { return st.lease.ID() }

// Message is the sanitized text that is sent.
func (st *Stream) Message() string { return st.message }

// Close releases the slot without reading the reply.
func (st *Stream) Close() { st.session.finished(st.lease) }

// Deltas yields reply text as it arrives. Losing the slot mid-reply ends the
// sequence with opslot.ErrCanceled.
func (st *Stream) Deltas() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !st.used.CompareAndSwap(false, true) {
			yield("", ErrConsumed)
			return
		}
		defer st.Close()
		if err := st.lease.Err(); err != nil {
			yield("", err)
			return
		}
		if st.conv == nil {
			yield("", ErrNotInitialized)
			return
		}
		if st.message == "" {
			yield("", ErrEmptyMessage)
			return
		}
		for delta, err := range st.conv.SendStream(st.lease.Context(), st.message) {
			if lerr := st.lease.Err(); lerr != nil {
				yield("", lerr)
				return
			}
			if err != nil {
				if opslot.IsCanceled(err) {
					err = opslot.ErrCanceled
				}
				yield("", err)
				return
			}
			if !yield(delta, nil) {
				return
			}
		}
		if err := st.lease.Err(); err != nil {
			yield("", err)
		}
	}
}

// Turns converts a transcript into replayable history. Only user messages that
// received a successful reply are kept, with that reply.
func Turns(history []contract.ChatMessage) []llm.Turn {
	out := make([]llm.Turn, 0, len(history))
	for i := 0; i < len(history); i++ {
		m := history[i]
		if m.Sender != contract.SenderUser || strings.TrimSpace(m.Text) == "" {
			continue
		}
		if i+1 >= len(history) {
			break
		}
		reply := history[i+1]
		if reply.Sender != contract.SenderAI || reply.Error != "" || strings.TrimSpace(reply.Text) == "" {
			continue
		}
		out = append(out, llm.Turn{Role: llm.RoleUser, Text: m.Text}, llm.Turn{Role: llm.RoleModel, Text: reply.Text})
		i++
	}
	return out
}

var citationPattern = regexp.MustCompile(`\[Citation:\s*([^\]\s]+)\s*\]`)

// ExtractCitations returns the distinct clause ids cited in text, in order of first appearance.
func ExtractCitations(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
