// Package admin serves the operator endpoints: document ingestion, index
// lifecycle, user administration and the file catalogue.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"legalbot-backend/chunker"
	"legalbot-backend/files"
	"legalbot-backend/login"
	"legalbot-backend/rag"
)

// Indexer is the slice of the retrieval engine the admin surface drives.
// Satisfied by *rag.Engine.
type Indexer interface {
	EnsureReady(ctx context.Context) error
	Upsert(ctx context.Context, chunks []chunker.Chunk) error
	DeleteSource(ctx context.Context, sourceID string) error
	DeleteAll(ctx context.Context) error
	Reconfigure(ctx context.Context, store rag.Store, indexName string) error
}

// ConversationWiper clears chat history during a full reset.
type ConversationWiper interface {
	DeleteAll() error
}

// FileStore is the catalogue surface the handlers need. Satisfied by
// *FileRepo.
type FileStore interface {
	Save(rec FileRecord) error
	List() ([]FileRecord, error)
	Exists(filename string) (bool, error)
	Remove(filename string) (bool, error)
	RemoveAll() error
	MarkPendingDelete(filename string) error
	MarkVectorsDeleted(filename string) error
	ClearPendingDelete(filename string) error
	PendingDeletes() ([]PendingDelete, error)
}

type Handler struct {
	Engine        Indexer
	Files         FileStore
	Conversations ConversationWiper
	// NewStore builds a vector-store client for a fresh credential set,
	// used by the runtime reconfiguration endpoint.
	NewStore func(apiKey string) rag.Store
	// DownloadDir is where generated contract documents are written.
	DownloadDir string
}

// formUpload adapts one multipart part to the document loader.
type formUpload struct {
	header *multipart.FileHeader
}

func (u formUpload) Name() string { return filepath.Base(u.header.Filename) }

func (u formUpload) Bytes() ([]byte, error) {
	f, err := u.header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Upload handles POST /admin/upload: extract, chunk, embed and index every
// file in the multipart request, then record it in the catalogue.
func (h *Handler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	ctx := c.Request.Context()
	if err := h.Engine.EnsureReady(ctx); err != nil {
		h.writeEngineError(c, err)
		return
	}

	uploads := make([]files.Upload, 0, len(headers))
	for _, header := range headers {
		uploads = append(uploads, formUpload{header: header})
	}

	docs := files.LoadDocuments(uploads)
	if len(docs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No documents processed"})
		return
	}

	chunks := chunker.NewSplitter().Split(docs)
	if err := h.Engine.Upsert(ctx, chunks); err != nil {
		h.writeEngineError(c, err)
		return
	}

	user := login.CurrentUser(c)
	now := time.Now().UTC()
	for _, header := range headers {
		rec := FileRecord{
			Filename:   filepath.Base(header.Filename),
			Size:       header.Size,
			UploadDate: now,
			UploadedBy: user.Username,
			Status:     "processed",
		}
		if err := h.Files.Save(rec); err != nil {
			log.Printf("[admin][upload] catalogue save file=%s err=%v", rec.Filename, err)
		}
	}

	log.Printf("[admin][upload] user=%s files=%d documents=%d chunks=%d", user.Username, len(headers), len(docs), len(chunks))
	c.JSON(http.StatusOK, gin.H{
		"message":         fmt.Sprintf("Successfully processed %d documents", len(docs)),
		"processed_count": len(docs),
	})
}

// DeleteFile handles DELETE /admin/delete-file/:filename with a durable
// marker so a crash between the vector delete and the catalogue delete leaves
// a record for the startup sweep instead of orphaned state.
func (h *Handler) DeleteFile(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))

	exists, err := h.Files.Exists(filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Catalogue unavailable"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	ctx := c.Request.Context()
	if err := h.Files.MarkPendingDelete(filename); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start delete"})
		return
	}
	if err := h.Engine.DeleteSource(ctx, filename); err != nil {
		h.writeEngineError(c, err)
		return
	}
	if err := h.Files.MarkVectorsDeleted(filename); err != nil {
		log.Printf("[admin][delete] mark vectors file=%s err=%v", filename, err)
	}
	if _, err := h.Files.Remove(filename); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not remove file record"})
		return
	}
	if err := h.Files.ClearPendingDelete(filename); err != nil {
		log.Printf("[admin][delete] clear marker file=%s err=%v", filename, err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "File " + filename + " deleted"})
}

// DeleteAllData handles DELETE /admin/deleteAll: wipes vectors, the file
// catalogue and all chat history.
func (h *Handler) DeleteAllData(c *gin.Context) {
	if err := h.Engine.DeleteAll(c.Request.Context()); err != nil {
		h.writeEngineError(c, err)
		return
	}
	if err := h.Files.RemoveAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not clear file catalogue"})
		return
	}
	if err := h.Conversations.DeleteAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not clear chat history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "All chat history and index data deleted"})
}

// ListFiles handles GET /admin/list-file.
func (h *Handler) ListFiles(c *gin.Context) {
	records, err := h.Files.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Catalogue unavailable"})
		return
	}
	c.JSON(http.StatusOK, records)
}

// CheckFile handles GET /admin/check-file/:filename.
func (h *Handler) CheckFile(c *gin.Context) {
	exists, err := h.Files.Exists(filepath.Base(c.Param("filename")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Catalogue unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// Configure handles POST /admin/config: swaps the vector-store credentials
// and index at runtime. In-flight requests finish on the old handle.
func (h *Handler) Configure(c *gin.Context) {
	var req struct {
		PineconeAPIKey    string `json:"pinecone_api_key" binding:"required"`
		PineconeIndexName string `json:"pinecone_index_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pinecone_api_key and pinecone_index_name are required"})
		return
	}

	store := h.NewStore(req.PineconeAPIKey)
	err := h.Engine.Reconfigure(c.Request.Context(), store, req.PineconeIndexName)
	connected := err == nil
	if err != nil {
		log.Printf("[admin][config] index=%s connect err=%v", req.PineconeIndexName, err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "pinecone_connected": connected})
}

// Download handles GET /download/:filename for generated contract documents.
func (h *Handler) Download(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	if filename == "." || strings.HasPrefix(filename, "..") {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	path := filepath.Join(h.DownloadDir, filename)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.FileAttachment(path, filename)
}

// ReconcilePendingDeletes finishes deletes interrupted by a crash. Called
// once at startup.
func (h *Handler) ReconcilePendingDeletes(ctx context.Context) {
	pending, err := h.Files.PendingDeletes()
	if err != nil {
		log.Printf("[admin][reconcile] list err=%v", err)
		return
	}
	for _, p := range pending {
		if !p.VectorsDeleted {
			if err := h.Engine.DeleteSource(ctx, p.Filename); err != nil {
				log.Printf("[admin][reconcile] vectors file=%s err=%v", p.Filename, err)
				continue
			}
			if err := h.Files.MarkVectorsDeleted(p.Filename); err != nil {
				log.Printf("[admin][reconcile] mark file=%s err=%v", p.Filename, err)
			}
		}
		if _, err := h.Files.Remove(p.Filename); err != nil {
			log.Printf("[admin][reconcile] record file=%s err=%v", p.Filename, err)
			continue
		}
		if err := h.Files.ClearPendingDelete(p.Filename); err != nil {
			log.Printf("[admin][reconcile] clear file=%s err=%v", p.Filename, err)
			continue
		}
		log.Printf("[admin][reconcile] finished delete file=%s", p.Filename)
	}
}

func (h *Handler) writeEngineError(c *gin.Context, err error) {
	if errors.Is(err, rag.ErrIndexUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "RAG System not configured"})
		return
	}
	log.Printf("[admin][engine] err=%v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Index operation failed"})
}
