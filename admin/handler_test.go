package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"legalbot-backend/chunker"
	"legalbot-backend/migrations"
	"legalbot-backend/rag"
)

type fakeIndexer struct {
	chunks       []chunker.Chunk
	deleted      []string
	deletedAll   bool
	reconfigured string
	err          error
}

func (f *fakeIndexer) EnsureReady(ctx context.Context) error { return f.err }

func (f *fakeIndexer) Upsert(ctx context.Context, chunks []chunker.Chunk) error {
	f.chunks = append(f.chunks, chunks...)
	return f.err
}

func (f *fakeIndexer) DeleteSource(ctx context.Context, sourceID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, sourceID)
	return nil
}

func (f *fakeIndexer) DeleteAll(ctx context.Context) error {
	f.deletedAll = true
	return f.err
}

func (f *fakeIndexer) Reconfigure(ctx context.Context, store rag.Store, indexName string) error {
	if f.err != nil {
		return f.err
	}
	f.reconfigured = indexName
	return nil
}

type fakeFiles struct {
	records map[string]FileRecord
	pending map[string]bool // filename -> vectors_deleted
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{records: map[string]FileRecord{}, pending: map[string]bool{}}
}

func (f *fakeFiles) Save(rec FileRecord) error {
	f.records[rec.Filename] = rec
	return nil
}

func (f *fakeFiles) List() ([]FileRecord, error) {
	out := []FileRecord{}
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeFiles) Exists(filename string) (bool, error) {
	_, ok := f.records[filename]
	return ok, nil
}

func (f *fakeFiles) Remove(filename string) (bool, error) {
	_, ok := f.records[filename]
	delete(f.records, filename)
	return ok, nil
}

func (f *fakeFiles) RemoveAll() error {
	f.records = map[string]FileRecord{}
	return nil
}

func (f *fakeFiles) MarkPendingDelete(filename string) error {
	if _, ok := f.pending[filename]; !ok {
		f.pending[filename] = false
	}
	return nil
}

func (f *fakeFiles) MarkVectorsDeleted(filename string) error {
	f.pending[filename] = true
	return nil
}

func (f *fakeFiles) ClearPendingDelete(filename string) error {
	delete(f.pending, filename)
	return nil
}

func (f *fakeFiles) PendingDeletes() ([]PendingDelete, error) {
	var out []PendingDelete
	for name, vectors := range f.pending {
		out = append(out, PendingDelete{Filename: name, VectorsDeleted: vectors})
	}
	return out, nil
}

type fakeWiper struct{ wiped bool }

func (f *fakeWiper) DeleteAll() error {
	f.wiped = true
	return nil
}

func newTestHandler() (*Handler, *fakeIndexer, *fakeFiles, *fakeWiper) {
	engine := &fakeIndexer{}
	files := newFakeFiles()
	wiper := &fakeWiper{}
	h := &Handler{
		Engine:        engine,
		Files:         files,
		Conversations: wiper,
		NewStore:      func(apiKey string) rag.Store { return nil },
	}
	return h, engine, files, wiper
}

func testContext(t *testing.T, req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("auth_user", &migrations.User{ID: 1, Username: "root", Role: "admin"})
	return c, w
}

func TestUploadIndexesTextFile(t *testing.T) {
	h, engine, files, _ := newTestHandler()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "law.txt")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write([]byte("Article 1. All contracts require consent.")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/admin/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c, w := testContext(t, req)

	h.Upload(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(engine.chunks) == 0 {
		t.Fatalf("no chunks indexed")
	}
	if engine.chunks[0].SourceID != "law.txt" {
		t.Fatalf("chunk source = %q", engine.chunks[0].SourceID)
	}
	rec, ok := files.records["law.txt"]
	if !ok {
		t.Fatalf("catalogue entry missing")
	}
	if rec.UploadedBy != "root" || rec.Status != "processed" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestUploadEngineUnavailable(t *testing.T) {
	h, engine, _, _ := newTestHandler()
	engine.err = rag.ErrIndexUnavailable

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("files", "law.txt")
	part.Write([]byte("text"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/admin/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c, w := testContext(t, req)

	h.Upload(c)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestDeleteFileRemovesEverything(t *testing.T) {
	h, engine, files, _ := newTestHandler()
	files.records["law.pdf"] = FileRecord{Filename: "law.pdf"}

	req := httptest.NewRequest(http.MethodDelete, "/admin/delete-file/law.pdf", nil)
	c, w := testContext(t, req)
	c.Params = gin.Params{{Key: "filename", Value: "law.pdf"}}

	h.DeleteFile(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(engine.deleted) != 1 || engine.deleted[0] != "law.pdf" {
		t.Fatalf("vector deletes = %v", engine.deleted)
	}
	if _, ok := files.records["law.pdf"]; ok {
		t.Fatalf("catalogue entry survived")
	}
	if len(files.pending) != 0 {
		t.Fatalf("pending marker survived a completed delete")
	}
}

func TestDeleteFileKeepsMarkerOnVectorFailure(t *testing.T) {
	h, engine, files, _ := newTestHandler()
	files.records["law.pdf"] = FileRecord{Filename: "law.pdf"}
	engine.err = rag.ErrUpstreamStore

	req := httptest.NewRequest(http.MethodDelete, "/admin/delete-file/law.pdf", nil)
	c, w := testContext(t, req)
	c.Params = gin.Params{{Key: "filename", Value: "law.pdf"}}

	h.DeleteFile(c)

	if w.Code == http.StatusOK {
		t.Fatalf("delete reported success despite vector failure")
	}
	if _, ok := files.records["law.pdf"]; !ok {
		t.Fatalf("catalogue entry removed before vectors were gone")
	}
	if vectors, ok := files.pending["law.pdf"]; !ok || vectors {
		t.Fatalf("pending marker = %v/%v, want present with vectors_deleted=false", vectors, ok)
	}
}

func TestDeleteFileUnknownIs404(t *testing.T) {
	h, _, _, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodDelete, "/admin/delete-file/ghost.pdf", nil)
	c, w := testContext(t, req)
	c.Params = gin.Params{{Key: "filename", Value: "ghost.pdf"}}

	h.DeleteFile(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestReconcileFinishesInterruptedDelete(t *testing.T) {
	h, engine, files, _ := newTestHandler()
	files.records["stuck.pdf"] = FileRecord{Filename: "stuck.pdf"}
	files.pending["stuck.pdf"] = false

	h.ReconcilePendingDeletes(context.Background())

	if len(engine.deleted) != 1 || engine.deleted[0] != "stuck.pdf" {
		t.Fatalf("vector deletes = %v", engine.deleted)
	}
	if _, ok := files.records["stuck.pdf"]; ok {
		t.Fatalf("catalogue entry survived reconciliation")
	}
	if len(files.pending) != 0 {
		t.Fatalf("marker survived reconciliation")
	}
}

func TestReconcileSkipsVectorsAlreadyDeleted(t *testing.T) {
	h, engine, files, _ := newTestHandler()
	files.records["half.pdf"] = FileRecord{Filename: "half.pdf"}
	files.pending["half.pdf"] = true

	h.ReconcilePendingDeletes(context.Background())

	if len(engine.deleted) != 0 {
		t.Fatalf("vector delete repeated: %v", engine.deleted)
	}
	if len(files.pending) != 0 {
		t.Fatalf("marker survived reconciliation")
	}
}

func TestDeleteAllData(t *testing.T) {
	h, engine, files, wiper := newTestHandler()
	files.records["a.pdf"] = FileRecord{Filename: "a.pdf"}

	req := httptest.NewRequest(http.MethodDelete, "/admin/deleteAll", nil)
	c, w := testContext(t, req)

	h.DeleteAllData(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !engine.deletedAll || !wiper.wiped || len(files.records) != 0 {
		t.Fatalf("reset incomplete: engine=%v wiper=%v records=%d", engine.deletedAll, wiper.wiped, len(files.records))
	}
}

func TestConfigureReportsConnection(t *testing.T) {
	h, engine, _, _ := newTestHandler()

	body := strings.NewReader(`{"pinecone_api_key": "pk", "pinecone_index_name": "legal-docs"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/config", body)
	req.Header.Set("Content-Type", "application/json")
	c, w := testContext(t, req)

	h.Configure(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["pinecone_connected"] != true {
		t.Fatalf("pinecone_connected = %v", resp["pinecone_connected"])
	}
	if engine.reconfigured != "legal-docs" {
		t.Fatalf("reconfigured index = %q", engine.reconfigured)
	}
}

func TestCheckFile(t *testing.T) {
	h, _, files, _ := newTestHandler()
	files.records["law.pdf"] = FileRecord{Filename: "law.pdf"}

	req := httptest.NewRequest(http.MethodGet, "/admin/check-file/law.pdf", nil)
	c, w := testContext(t, req)
	c.Params = gin.Params{{Key: "filename", Value: "law.pdf"}}
	h.CheckFile(c)
	if !strings.Contains(w.Body.String(), `"exists":true`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}
