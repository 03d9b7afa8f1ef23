package files

import (
	"bytes"
	"errors"

	pdf "rsc.io/pdf"
)

// ExtractPDFPages opens a PDF at filePath and returns the extracted text of
// each page, index 0 = first page. Pages without a text layer come back as
// empty strings rather than failing the whole document.
func ExtractPDFPages(filePath string) ([]string, error) {
	r, err := pdf.Open(filePath)
	if err != nil {
		return nil, err
	}

	total := r.NumPage()
	if total == 0 {
		return nil, errors.New("pdf has no pages")
	}
	pages := make([]string, 0, total)
	for pageIndex := 1; pageIndex <= total; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		var buf bytes.Buffer
		var lastY float64
		for _, t := range p.Content().Text {
			// Text items arrive in draw order; a Y jump means a new line.
			if lastY != 0 && t.Y != lastY {
				buf.WriteByte('\n')
			}
			lastY = t.Y
			buf.WriteString(t.S)
		}
		pages = append(pages, buf.String())
	}
	return pages, nil
}
