package files

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Upload is the minimal shape the loader needs from an uploaded file,
// regardless of the transport type that carried it.
type Upload interface {
	Name() string
	Bytes() ([]byte, error)
}

// Document is one extracted text unit with provenance. PDFs produce one
// Document per page; plain text files produce a single Document with page 0.
type Document struct {
	SourceID   string
	PageNumber int
	Text       string
}

// LoadDocuments extracts text from a batch of uploads. Dispatch is by file
// extension (.pdf, .txt); unrecognized extensions are skipped. A single
// unreadable file is logged and skipped; it never aborts the rest of the
// batch. Temporary storage used during extraction is removed on every exit
// path.
func LoadDocuments(uploads []Upload) []Document {
	var docs []Document
	for _, up := range uploads {
		ext := strings.ToLower(filepath.Ext(up.Name()))
		switch ext {
		case ".pdf":
			pages, err := loadPDF(up)
			if err != nil {
				log.Printf("[files][skip] file=%s err=%v", up.Name(), err)
				continue
			}
			docs = append(docs, pages...)
		case ".txt":
			data, err := up.Bytes()
			if err != nil {
				log.Printf("[files][skip] file=%s err=%v", up.Name(), err)
				continue
			}
			docs = append(docs, Document{SourceID: up.Name(), PageNumber: 0, Text: string(data)})
		default:
			log.Printf("[files][skip] file=%s reason=unsupported_extension", up.Name())
		}
	}
	return docs
}

// loadPDF writes the upload to a temp file for rsc.io/pdf (which needs a
// ReaderAt with known size) and extracts one Document per page.
func loadPDF(up Upload) ([]Document, error) {
	data, err := up.Bytes()
	if err != nil {
		return nil, err
	}
	tmpDir := os.TempDir()
	tmp := filepath.Join(tmpDir, "ingest_"+uuid.NewString()+".pdf")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	texts, err := ExtractPDFPages(tmp)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, Document{SourceID: up.Name(), PageNumber: i, Text: text})
	}
	return docs, nil
}
