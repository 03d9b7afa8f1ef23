package contracts

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

var (
	variablePattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)
	xmlTagPattern   = regexp.MustCompile(`<[^>]+>`)
)

const documentEntry = "word/document.xml"

// ExtractVariables returns the sorted set of {{variable}} names found in a
// DOCX template's main document part.
func ExtractVariables(templateBytes []byte) ([]string, error) {
	text, err := documentText(templateBytes)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, m := range variablePattern.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Render substitutes values for {{variable}} placeholders and returns the
// rewritten DOCX. Placeholders with no value render as empty strings.
func Render(templateBytes []byte, values map[string]string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(templateBytes), int64(len(templateBytes)))
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}

	var out bytes.Buffer
	writer := zip.NewWriter(&out)
	rendered := false
	for _, entry := range reader.File {
		rc, err := entry.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		if entry.Name == documentEntry {
			data = []byte(variablePattern.ReplaceAllStringFunc(string(data), func(m string) string {
				name := variablePattern.FindStringSubmatch(m)[1]
				return xmlEscape(values[name])
			}))
			rendered = true
		}
		w, err := writer.Create(entry.Name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}
	if !rendered {
		return nil, errors.New("template has no word/document.xml")
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func documentText(templateBytes []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(templateBytes), int64(len(templateBytes)))
	if err != nil {
		return "", fmt.Errorf("open template: %w", err)
	}
	for _, entry := range reader.File {
		if entry.Name != documentEntry {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		// Drop the XML markup so placeholders read as plain text.
		return xmlTagPattern.ReplaceAllString(string(data), ""), nil
	}
	return "", errors.New("template has no word/document.xml")
}

func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}
