package appstate

import (
	"contract-decoder/internal/contract"
	"contract-decoder/internal/opslot"
)

const msgEmptyReply = "The assistant returned an empty reply."

// ChatInitialized reports a successfully (re)created conversation.
type ChatInitialized struct{}

func (ChatInitialized) apply(s State) State {
	if moveChat(&s, ChatReady) {
		s.Chat.Error = ""
	}
	return s
}

// ChatDisabled reports that the conversation could not be created.
type ChatDisabled struct {
	Message string
}

func (a ChatDisabled) apply(s State) State {
	if s.Chat.Status == ChatTyping {
		s = settle(s)
	}
	if moveChat(&s, ChatUnavailable) {
		s.Chat.Error = a.Message
	}
	return s
}

// ChatSendStarted appends the user's message and exactly one typing placeholder.
type ChatSendStarted struct {
	OpID    string
	Message contract.ChatMessage
	ReplyID string
}

func (a ChatSendStarted) apply(s State) State {
	s = settle(s)
	if !moveChat(&s, ChatTyping) {
		return s
	}
	s.Chat.Messages = append(s.Chat.Messages, a.Message, contract.ChatMessage{ID: a.ReplyID, Sender: contract.SenderAI})
	s.Chat.StreamingID = a.ReplyID
	s.Chat.Error = ""
	s.ActiveOp = ActiveOp{ID: a.OpID, Kind: opslot.KindChat}
	return s
}

// ChatRetryStarted replaces the failed bubble FailedID with a new placeholder.
type ChatRetryStarted struct {
	OpID     string
	FailedID string
	ReplyID  string
}

func (a ChatRetryStarted) apply(s State) State {
	s = settle(s)
	idx := -1
	for i, m := range s.Chat.Messages {
		if m.ID == a.FailedID && m.Error != "" {
			idx = i
			break
		}
	}
	if idx < 0 || !moveChat(&s, ChatTyping) {
		return s
	}
	msgs := make([]contract.ChatMessage, 0, len(s.Chat.Messages))
	msgs = append(msgs, s.Chat.Messages[:idx]...)
	msgs = append(msgs, s.Chat.Messages[idx+1:]...)
	s.Chat.Messages = append(msgs, contract.ChatMessage{ID: a.ReplyID, Sender: contract.SenderAI})
	s.Chat.StreamingID = a.ReplyID
	s.Chat.Error = ""
	s.ActiveOp = ActiveOp{ID: a.OpID, Kind: opslot.KindChat}
	return s
}

type ChatDelta struct {
	OpID string
	Text string
}

func (a ChatDelta) opID() string { return a.OpID }

func (a ChatDelta) apply(s State) State {
	if i := streamingIndex(s); i >= 0 {
		s.Chat.Messages[i].Text += a.Text
	}
	return s
}

type ChatCompleted struct {
	OpID string
}

func (a ChatCompleted) opID() string { return a.OpID }

func (a ChatCompleted) apply(s State) State {
	i := streamingIndex(s)
	if i < 0 {
		return settle(s)
	}
	if s.Chat.Messages[i].Text == "" {
		return failTurn(s, i, msgEmptyReply)
	}
	s.Chat.StreamingID = ""
	s.Chat.Status = ChatReady
	s.ActiveOp = ActiveOp{}
	return s
}

// ChatFailed turns the reply bubble into an error that keeps the user's text for retry.
type ChatFailed struct {
	OpID    string
	Message string
}

func (a ChatFailed) opID() string { return a.OpID }

func (a ChatFailed) apply(s State) State {
	i := streamingIndex(s)
	if i < 0 {
		return settle(s)
	}
	return failTurn(s, i, a.Message)
}

type ChatCanceled struct {
	OpID string
}

func (a ChatCanceled) opID() string { return a.OpID }

func (a ChatCanceled) apply(s State) State { return settle(s) }

// ChatReset drops the transcript. The conversation itself is recreated by the caller.
type ChatReset struct{}

func (ChatReset) apply(s State) State {
	if s.ActiveOp.Kind == opslot.KindChat {
		s = settle(s)
	}
	s.Chat.Messages = nil
	s.Chat.StreamingID = ""
	s.Chat.Error = ""
	if s.Chat.Status == ChatError {
		s.Chat.Status = ChatReady
	}
	return s
}

func streamingIndex(s State) int {
	if s.Chat.StreamingID == "" {
		return -1
	}
	for i := len(s.Chat.Messages) - 1; i >= 0; i-- {
		if s.Chat.Messages[i].ID == s.Chat.StreamingID {
			return i
		}
	}
	return -1
}

func failTurn(s State, i int, message string) State {
	s.Chat.Messages[i] = contract.ChatMessage{
		ID:              s.Chat.Messages[i].ID,
		Sender:          contract.SenderAI,
		Error:           message,
		OriginalMessage: lastUserText(s.Chat.Messages[:i]),
	}
	s.Chat.StreamingID = ""
	s.Chat.Status = ChatError
	s.Chat.Error = message
	s.ActiveOp = ActiveOp{}
	return s
}

func lastUserText(msgs []contract.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Sender == contract.SenderUser {
			return msgs[i].Text
		}
	}
	return ""
}

// RetryText returns the original text of failed bubble id.
func (s State) RetryText(id string) (string, bool) {
	for _, m := range s.Chat.Messages {
		if m.ID == id && m.Error != "" {
			return m.OriginalMessage, m.OriginalMessage != ""
		}
	}
	return "", false
}
