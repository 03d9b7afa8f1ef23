package contracts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileRenderer fetches a DOCX template over HTTP, fills it and writes the
// result under OutputDir. The returned handle is the output filename, served
// later by the download endpoint.
type FileRenderer struct {
	TemplateURL string
	OutputDir   string
	HTTP        *http.Client
}

func NewFileRenderer(templateURL, outputDir string) *FileRenderer {
	return &FileRenderer{
		TemplateURL: templateURL,
		OutputDir:   outputDir,
		HTTP:        &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchTemplate downloads template bytes from the configured base URL.
func (r *FileRenderer) FetchTemplate(ctx context.Context, name string) ([]byte, error) {
	url := r.TemplateURL + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch template: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch template: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Render fills the named template and writes the document to disk,
// returning its filename.
func (r *FileRenderer) Render(ctx context.Context, templateName string, values map[string]string) (string, error) {
	templateBytes, err := r.FetchTemplate(ctx, templateName)
	if err != nil {
		return "", err
	}
	rendered, err := Render(templateBytes, values)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", err
	}
	name := "contract_" + uuid.NewString() + ".docx"
	if err := os.WriteFile(filepath.Join(r.OutputDir, name), rendered, 0o644); err != nil {
		return "", err
	}
	return name, nil
}
