package contracts

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves template inspection for the contract chat flow.
type Handler struct {
	Renderer *FileRenderer
}

// DownloadTemplate handles POST /download-template: fetches the named
// template and returns its fill-in variables so the client can drive the
// collection dialogue.
func (h *Handler) DownloadTemplate(c *gin.Context) {
	var req struct {
		Filename string `json:"filename" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename is required"})
		return
	}

	template, err := h.Renderer.FetchTemplate(c.Request.Context(), req.Filename)
	if err != nil {
		log.Printf("[contracts][template] file=%s fetch err=%v", req.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error downloading template"})
		return
	}
	variables, err := ExtractVariables(template)
	if err != nil {
		log.Printf("[contracts][template] file=%s parse err=%v", req.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error reading template"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"variables": variables})
}
