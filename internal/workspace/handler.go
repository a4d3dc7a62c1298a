package workspace

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"contract-decoder/internal/analyses"
	"contract-decoder/internal/appstate"
	"contract-decoder/internal/chat"
	"contract-decoder/internal/contract"
	"contract-decoder/internal/drafting"
	"contract-decoder/internal/extract"
	"contract-decoder/internal/llm"
	"contract-decoder/internal/opslot"
	"contract-decoder/internal/orchestrator"
	"contract-decoder/internal/prompts"
	"contract-decoder/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the workspace.
type Handler struct {
	WS *Workspace
}

// NewHandler constructs a Handler.
func NewHandler(ws *Workspace) *Handler {
	return &Handler{WS: ws}
}

// RegisterRoutes attaches workspace routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/state", h.getState)
	rg.POST("/disclaimer/accept", h.acceptDisclaimer)
	rg.POST("/disclaimer/dismiss", h.dismissDisclaimer)
	rg.POST("/tool", h.navigate)

	rg.PUT("/document", h.setDocument)
	rg.POST("/document/upload", h.uploadDocument)
	rg.DELETE("/document", h.clearDocument)

	rg.POST("/analyze", h.analyze)
	rg.POST("/analyze/cancel", h.cancel)
	rg.POST("/analyze/persona", h.reanalyze)

	rg.POST("/chat/messages", h.sendChat)
	rg.POST("/chat/messages/:id/retry", h.retryChat)
	rg.POST("/chat/reset", h.resetChat)

	rg.POST("/compare", h.compare)
	rg.POST("/draft", h.draft)

	rg.GET("/analyses", h.listAnalyses)
	rg.POST("/analyses/resave", h.resave)
	rg.POST("/analyses/:id/load", h.loadAnalysis)
	rg.DELETE("/analyses/:id", h.deleteAnalysis)
	rg.DELETE("/analyses", h.clearAnalyses)
}

func (h *Handler) getState(c *gin.Context) {
	respond.OK(c, h.WS.State())
}

func (h *Handler) acceptDisclaimer(c *gin.Context) {
	respond.OK(c, h.WS.AcceptDisclaimer())
}

func (h *Handler) dismissDisclaimer(c *gin.Context) {
	respond.OK(c, h.WS.DismissDisclaimer())
}

type toolRequest struct {
	Tool string `json:"tool"`
}

func (h *Handler) navigate(c *gin.Context) {
	var req toolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	s, err := h.WS.Navigate(appstate.Tool(strings.ToLower(strings.TrimSpace(req.Tool))))
	if err != nil {
		writeError(c, err, http.StatusBadRequest, "validation_error")
		return
	}
	respond.OK(c, s)
}

type documentRequest struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

func (h *Handler) setDocument(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	s, err := h.WS.SetContractText(req.Text, req.Title)
	if err != nil {
		writeError(c, err, http.StatusBadRequest, "validation_error")
		return
	}
	respond.OK(c, s)
}

func (h *Handler) uploadDocument(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", []map[string]string{
			{"field": "file", "issue": "required"},
		})
		return
	}
	if header.Size > extract.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "input_too_large", "file exceeds the upload limit", nil)
		return
	}
	f, err := header.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file could not be read", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, extract.MaxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file could not be read", nil)
		return
	}

	s, err := h.WS.Upload(c.Request.Context(), data, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		writeError(c, err, http.StatusUnprocessableEntity, "unreadable_file")
		return
	}
	respond.OK(c, s)
}

func (h *Handler) clearDocument(c *gin.Context) {
	respond.OK(c, h.WS.ClearContractText())
}

type analyzeRequest struct {
	Persona string `json:"persona"`
	Focus   string `json:"focus"`
}

// analyze streams progress, clause and header events, then the final state.
func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	opts := contract.AnalysisOptions{Persona: contract.Persona(req.Persona), Focus: req.Focus}

	stream := newSSE(c)
	s, err := h.WS.Analyze(c.Request.Context(), opts, func(ev orchestrator.Event) {
		switch ev.Kind {
		case orchestrator.EventProgress:
			stream.send("progress", ev.Progress)
		case orchestrator.EventClause:
			stream.send("clause", ev.Clause)
		case orchestrator.EventHeader:
			stream.send("header", ev.Header)
		}
	})
	stream.finish(err, s, http.StatusBadGateway, "llm_error")
}

func (h *Handler) cancel(c *gin.Context) {
	s, canceled := h.WS.Cancel()
	respond.Result(c, canceled, s)
}

type personaRequest struct {
	Persona string `json:"persona"`
}

func (h *Handler) reanalyze(c *gin.Context) {
	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Persona) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "persona is required", nil)
		return
	}
	s, err := h.WS.Reanalyze(c.Request.Context(), contract.Persona(req.Persona))
	if err != nil {
		writeError(c, err, http.StatusBadGateway, "llm_error")
		return
	}
	respond.OK(c, s)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) sendChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	stream := newSSE(c)
	s, err := h.WS.SendChat(c.Request.Context(), req.Message, func(delta string) {
		stream.send("delta", gin.H{"text": delta})
	})
	stream.sendReply(s)
	stream.finish(err, s, http.StatusBadGateway, "llm_error")
}

func (h *Handler) retryChat(c *gin.Context) {
	stream := newSSE(c)
	s, err := h.WS.RetryChat(c.Request.Context(), c.Param("id"), func(delta string) {
		stream.send("delta", gin.H{"text": delta})
	})
	stream.sendReply(s)
	stream.finish(err, s, http.StatusBadGateway, "llm_error")
}

func (h *Handler) resetChat(c *gin.Context) {
	s, err := h.WS.ResetChat(c.Request.Context())
	if err != nil {
		writeError(c, err, http.StatusInternalServerError, "internal_error")
		return
	}
	respond.OK(c, s)
}

type compareRequest struct {
	DocumentA string `json:"documentA"`
	DocumentB string `json:"documentB"`
}

func (h *Handler) compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	s, err := h.WS.Compare(c.Request.Context(), req.DocumentA, req.DocumentB)
	if err != nil {
		writeError(c, err, http.StatusBadGateway, "llm_error")
		return
	}
	respond.OK(c, s)
}

func (h *Handler) draft(c *gin.Context) {
	var req prompts.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	s, err := h.WS.Draft(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, http.StatusBadGateway, "llm_error")
		return
	}
	respond.OK(c, s)
}

func (h *Handler) listAnalyses(c *gin.Context) {
	items, err := h.WS.History(c.Request.Context())
	if err != nil {
		writeError(c, err, http.StatusInternalServerError, "internal_error")
		return
	}
	respond.OK(c, gin.H{"analyses": items})
}

func (h *Handler) loadAnalysis(c *gin.Context) {
	s, err := h.WS.LoadRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, http.StatusInternalServerError, "internal_error")
		return
	}
	respond.OK(c, s)
}

func (h *Handler) deleteAnalysis(c *gin.Context) {
	s, err := h.WS.DeleteRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, http.StatusInternalServerError, "internal_error")
		return
	}
	respond.OK(c, s)
}

func (h *Handler) clearAnalyses(c *gin.Context) {
	s, err := h.WS.ClearHistory(c.Request.Context())
	if err != nil {
		writeError(c, err, http.StatusInternalServerError, "internal_error")
		return
	}
	respond.OK(c, s)
}

func (h *Handler) resave(c *gin.Context) {
	s, err := h.WS.ResaveDeleted(c.Request.Context())
	if err != nil {
		writeError(c, err, http.StatusInternalServerError, "internal_error")
		return
	}
	respond.OK(c, s)
}

// classify maps known errors to a status and code. ok is false for errors that
// need the caller's fallback.
func classify(err error) (status int, code string, ok bool) {
	switch {
	case errors.Is(err, ErrDisclaimerRequired):
		return http.StatusForbidden, "disclaimer_required", true
	case errors.Is(err, contract.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge, "input_too_large", true
	case errors.Is(err, contract.ErrEmptyDocument),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, drafting.ErrEmptyDetails),
		errors.Is(err, ErrUnknownTool):
		return http.StatusBadRequest, "validation_error", true
	case errors.Is(err, extract.ErrUnsupported), errors.Is(err, extract.ErrNoText):
		return http.StatusUnprocessableEntity, "unreadable_file", true
	case errors.Is(err, analyses.ErrNotFound), errors.Is(err, ErrMessageNotFound):
		return http.StatusNotFound, "not_found", true
	case errors.Is(err, ErrRecordDeleted):
		return http.StatusConflict, "record_deleted", true
	case errors.Is(err, ErrNothingToReanalyze), errors.Is(err, ErrNothingToResave), errors.Is(err, ErrChatUnavailable):
		return http.StatusConflict, "conflict", true
	case errors.Is(err, opslot.ErrCanceled):
		return http.StatusConflict, "canceled", true
	case errors.Is(err, orchestrator.ErrNoClauses):
		return http.StatusUnprocessableEntity, "no_clauses", true
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusServiceUnavailable, "llm_unavailable", true
	}
	return 0, "", false
}

func writeError(c *gin.Context, err error, fallbackStatus int, fallbackCode string) {
	status, code, ok := classify(err)
	if !ok {
		status, code = fallbackStatus, fallbackCode
	}
	message := err.Error()
	if !ok && status >= http.StatusInternalServerError {
		message = userMessage(err)
		if fallbackCode == "internal_error" {
			message = "internal server error"
		}
	}
	respond.Error(c, status, code, message, nil)
}
