package workspace

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"contract-decoder/internal/appstate"
	"contract-decoder/internal/chat"
	"contract-decoder/internal/contract"
	"contract-decoder/internal/opslot"
)

// sseWriter starts the event stream lazily so that failures before the first
// event can still be answered with a JSON error.
type sseWriter struct {
	c       *gin.Context
	started bool
}

func newSSE(c *gin.Context) *sseWriter {
	return &sseWriter{c: c}
}

func (s *sseWriter) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.c.Status(http.StatusOK)
}

func (s *sseWriter) send(event string, data any) {
	s.start()
	s.c.SSEvent(event, data)
	s.c.Writer.Flush()
}

// sendReply reports the last AI message and the clause ids it cites.
func (s *sseWriter) sendReply(state appstate.State) {
	if !s.started {
		return
	}
	msgs := state.Chat.Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Sender != contract.SenderAI {
			continue
		}
		s.send("reply", gin.H{
			"message":   m,
			"citations": chat.ExtractCitations(m.Text),
		})
		return
	}
}

// finish ends the stream with an error event, if any, and the final state.
// Cancellation is not an error for the client.
func (s *sseWriter) finish(err error, state appstate.State, fallbackStatus int, fallbackCode string) {
	if err != nil && !s.started && !opslot.IsCanceled(err) {
		writeError(s.c, err, fallbackStatus, fallbackCode)
		return
	}
	if err != nil && !opslot.IsCanceled(err) {
		status, code, ok := classify(err)
		message := err.Error()
		if !ok {
			status, code, message = fallbackStatus, fallbackCode, userMessage(err)
		}
		s.send("error", gin.H{"status": status, "code": code, "message": message})
	}
	s.send("state", state)
}
