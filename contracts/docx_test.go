package contracts

import (
	"archive/zip"
	"bytes"
	"io"
	"reflect"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types/>`,
		"word/document.xml":   documentXML,
	} {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const rentalTemplate = `<w:document><w:body>` +
	`<w:p><w:r><w:t>Contrato de arrendamiento entre {{tenant}} y el propietario.</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>Renta mensual: {{rent}}. Firma: {{tenant}}</w:t></w:r></w:p>` +
	`</w:body></w:document>`

func TestExtractVariables(t *testing.T) {
	doc := buildDocx(t, rentalTemplate)
	vars, err := ExtractVariables(doc)
	if err != nil {
		t.Fatalf("ExtractVariables: %v", err)
	}
	if !reflect.DeepEqual(vars, []string{"rent", "tenant"}) {
		t.Fatalf("variables = %v", vars)
	}
}

func TestRenderSubstitutesValues(t *testing.T) {
	doc := buildDocx(t, rentalTemplate)
	out, err := Render(doc, map[string]string{"tenant": "Nguyễn Văn An", "rent": "500 & thuế"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	reader, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("rendered output is not a valid docx: %v", err)
	}
	var rendered string
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			rc, _ := f.Open()
			data, _ := io.ReadAll(rc)
			rc.Close()
			rendered = string(data)
		}
	}
	if strings.Contains(rendered, "{{") {
		t.Fatalf("unsubstituted placeholders remain: %s", rendered)
	}
	if !strings.Contains(rendered, "Nguyễn Văn An") || !strings.Contains(rendered, "500 &amp; thuế") {
		t.Fatalf("values missing or unescaped: %s", rendered)
	}
}

func TestExtractVariablesRejectsNonDocx(t *testing.T) {
	if _, err := ExtractVariables([]byte("plain text, not a zip")); err == nil {
		t.Fatal("expected error for non-docx input")
	}
}
