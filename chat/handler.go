package chat

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"legalbot-backend/conversations"
	"legalbot-backend/login"
	"legalbot-backend/quota"
	"legalbot-backend/sse"
)

// Handler exposes the answering pipeline over HTTP.
type Handler struct {
	Orchestrator *Orchestrator
}

type chatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
}

type contractRequest struct {
	Message   string                  `json:"message" binding:"required"`
	Variables map[string]string       `json:"variables"`
	Messages  []conversations.Message `json:"messages"`
}

// Chat handles POST /chat.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message and session_id are required"})
		return
	}
	user := login.CurrentUser(c)

	answer, err := h.Orchestrator.Answer(c.Request.Context(), user, req.Message, req.SessionID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"response": answer.Text,
		"sources":  answer.Sources,
	})
}

// ChatStream handles POST /chat/stream, emitting answer tokens as SSE lines.
func (h *Handler) ChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message and session_id are required"})
		return
	}
	user := login.CurrentUser(c)

	ch, err := h.Orchestrator.AnswerStream(c.Request.Context(), user, req.Message, req.SessionID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sse.Stream(c, ch)
}

// ChatContract handles POST /chat-contract, the template fill-in loop.
func (h *Handler) ChatContract(c *gin.Context) {
	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if req.Variables == nil {
		req.Variables = map[string]string{}
	}
	user := login.CurrentUser(c)

	result, err := h.Orchestrator.AnswerContract(c.Request.Context(), user, req.Message, req.Variables, req.Messages)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCredentialUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please configure your API Key in settings or upgrade to Premium."})
	case errors.Is(err, quota.ErrLimitExceeded):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Daily limit reached. Please upgrade or add your own API Key."})
	case errors.Is(err, ErrRetrievalUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Document index not configured by Admin."})
	case errors.Is(err, ErrGenerationFormat):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Model reply could not be parsed."})
	default:
		log.Printf("[chat][handler] unexpected err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Generation error."})
	}
}
