package workspace

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"contract-decoder/internal/analyses"
	"contract-decoder/internal/appstate"
	"contract-decoder/internal/chat"
	"contract-decoder/internal/contract"
	"contract-decoder/internal/llm"
	"contract-decoder/internal/opslot"
	"contract-decoder/internal/shared/metrics"
	"contract-decoder/internal/shared/telemetry"
)

const msgChatFailed = "The reply could not be completed. You can retry this message."

// SendChat sends text about the current analysis and streams the reply to emit.
func (w *Workspace) SendChat(ctx context.Context, text string, emit func(delta string)) (appstate.State, error) {
	if err := w.requireDisclaimer(); err != nil {
		return w.State(), err
	}
	if strings.TrimSpace(text) == "" {
		return w.State(), chat.ErrEmptyMessage
	}
	if err := w.chatUsable(); err != nil {
		return w.State(), err
	}

	stream := w.chat.SendMessageStream(ctx, text)
	opID := stream.ID()
	w.dispatch(appstate.ChatSendStarted{
		OpID:    opID,
		Message: contract.ChatMessage{ID: uuid.NewString(), Sender: contract.SenderUser, Text: stream.Message()},
		ReplyID: uuid.NewString(),
	})
	return w.consumeReply(ctx, stream, opID, emit)
}

// RetryChat resends the original text of the failed reply messageID.
func (w *Workspace) RetryChat(ctx context.Context, messageID string, emit func(delta string)) (appstate.State, error) {
	if err := w.requireDisclaimer(); err != nil {
		return w.State(), err
	}
	text, ok := w.State().RetryText(messageID)
	if !ok {
		return w.State(), ErrMessageNotFound
	}
	if err := w.chatUsable(); err != nil {
		return w.State(), err
	}

	stream := w.chat.SendMessageStream(ctx, text)
	opID := stream.ID()
	w.dispatch(appstate.ChatRetryStarted{OpID: opID, FailedID: messageID, ReplyID: uuid.NewString()})
	return w.consumeReply(ctx, stream, opID, emit)
}

// ResetChat clears the transcript and starts a fresh conversation.
func (w *Workspace) ResetChat(ctx context.Context) (appstate.State, error) {
	w.chat.Cancel()
	s := w.dispatch(appstate.ChatReset{})
	if s.Analysis.RecordID == "" || len(s.Analysis.Result.Clauses) == 0 {
		return s, nil
	}
	w.initChat(ctx, s.Analysis.Result, s.Analysis.Options.Persona, nil)
	return w.State(), w.persistChat(ctx, s.Analysis.RecordID, nil)
}

func (w *Workspace) chatUsable() error {
	s := w.State()
	switch s.Chat.Status {
	case appstate.ChatReady, appstate.ChatError, appstate.ChatTyping:
	default:
		return ErrChatUnavailable
	}
	if !w.chat.Ready() {
		return ErrChatUnavailable
	}
	return nil
}

func (w *Workspace) consumeReply(ctx context.Context, stream *chat.Stream, opID string, emit func(string)) (appstate.State, error) {
	metrics.IncChatMessage()
	for delta, err := range stream.Deltas() {
		if err != nil {
			if opslot.IsCanceled(err) {
				return w.dispatch(appstate.ChatCanceled{OpID: opID}), opslot.ErrCanceled
			}
			metrics.IncChatFailed()
			telemetry.Warn("chat reply failed", map[string]any{"op_id": opID, "error": err})
			s := w.dispatch(appstate.ChatFailed{OpID: opID, Message: msgChatFailed})
			w.persistTranscript(ctx, s)
			return w.State(), err
		}
		w.dispatch(appstate.ChatDelta{OpID: opID, Text: delta})
		if emit != nil {
			emit(delta)
		}
	}

	s := w.dispatch(appstate.ChatCompleted{OpID: opID})
	var replyErr error
	if s.Chat.Status == appstate.ChatError {
		metrics.IncChatFailed()
		replyErr = llm.ErrEmptyResponse
	}
	w.persistTranscript(ctx, s)
	return w.State(), replyErr
}

// persistTranscript stores the settled transcript of the current record.
func (w *Workspace) persistTranscript(ctx context.Context, s appstate.State) {
	if s.Analysis.RecordID == "" || s.Chat.StreamingID != "" {
		return
	}
	if err := w.persistChat(ctx, s.Analysis.RecordID, s.Chat.Messages); err != nil && !errors.Is(err, ErrRecordDeleted) {
		telemetry.Error("chat save failed", map[string]any{"record_id": s.Analysis.RecordID, "error": err})
	}
}

func (w *Workspace) persistChat(ctx context.Context, recordID string, msgs []contract.ChatMessage) error {
	ok, err := w.repo.Update(context.WithoutCancel(ctx), recordID, analyses.WithChatHistory(msgs))
	if err != nil {
		return err
	}
	if !ok {
		w.dispatch(appstate.RecordDeletedExternally{RecordID: recordID})
		return ErrRecordDeleted
	}
	return nil
}
