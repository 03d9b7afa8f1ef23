package conversations

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"legalbot-backend/login"
)

// Handler serves the conversation history endpoints.
type Handler struct {
	Repo *Repository
}

// History handles GET /history: newest-first summaries for the caller.
func (h *Handler) History(c *gin.Context) {
	user := login.CurrentUser(c)
	summaries, err := h.Repo.History(user.Username)
	if err != nil {
		log.Printf("[conversations][history] user=%s err=%v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load history"})
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// Detail handles GET /history/:session_id. Only the owner sees a
// conversation; anyone else gets the same 404 as a missing session.
func (h *Handler) Detail(c *gin.Context) {
	user := login.CurrentUser(c)
	sessionID := c.Param("session_id")

	conv, err := h.Repo.Get(sessionID, user.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		log.Printf("[conversations][detail] session=%s err=%v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load conversation"})
		return
	}
	c.JSON(http.StatusOK, conv)
}
