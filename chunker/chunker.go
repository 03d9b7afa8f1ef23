package chunker

import (
	"strings"

	"legalbot-backend/files"
)

// Chunk is the unit indexed and retrieved: a bounded span of source text
// plus provenance. ChunkIndex counts chunks within one page, so
// (SourceID, PageNumber, ChunkIndex) is a stable identity across
// re-ingestions of the same text.
type Chunk struct {
	Text       string
	SourceID   string
	PageNumber int
	ChunkIndex int
}

// Splitter windows document text into overlapping chunks. Splitting prefers
// paragraph breaks, then line breaks, then spaces, then single characters.
// Boundaries are deterministic for a given text and configuration.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

var separators = []string{"\n\n", "\n", " ", ""}

// NewSplitter returns a splitter with the production window: 1000 characters
// with a 300 character overlap.
func NewSplitter() *Splitter {
	return &Splitter{ChunkSize: 1000, Overlap: 300}
}

// Split chunks every document independently, preserving chunk order and
// carrying the parent document's provenance forward.
func (s *Splitter) Split(docs []files.Document) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		idx := 0
		for _, text := range s.splitText(doc.Text, separators) {
			if strings.TrimSpace(text) == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Text:       text,
				SourceID:   doc.SourceID,
				PageNumber: doc.PageNumber,
				ChunkIndex: idx,
			})
			idx++
		}
	}
	return chunks
}

// splitText recursively splits on the first separator present in the text,
// re-splitting any oversized piece with the remaining separators, then merges
// pieces back into windows of at most ChunkSize with Overlap carried between
// consecutive windows.
func (s *Splitter) splitText(text string, seps []string) []string {
	if len(text) <= s.ChunkSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	sep := seps[len(seps)-1]
	rest := seps
	for i, candidate := range seps {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		for start := 0; start < len(text); start += s.ChunkSize {
			end := start + s.ChunkSize
			if end > len(text) {
				end = len(text)
			}
			pieces = append(pieces, text[start:end])
		}
		return pieces
	}
	for _, part := range strings.Split(text, sep) {
		if len(part) > s.ChunkSize {
			pieces = append(pieces, s.splitText(part, rest)...)
		} else {
			pieces = append(pieces, part)
		}
	}
	return s.merge(pieces, sep)
}

// merge joins small pieces into chunks up to ChunkSize, keeping a tail of at
// most Overlap characters of the previous chunk at the start of the next.
func (s *Splitter) merge(pieces []string, sep string) []string {
	var out []string
	var window []string
	total := 0
	sepLen := len(sep)

	flush := func() {
		if len(window) == 0 {
			return
		}
		joined := strings.Join(window, sep)
		if strings.TrimSpace(joined) != "" {
			out = append(out, joined)
		}
		// Retain trailing pieces as overlap for the next window.
		for len(window) > 0 && total > s.Overlap {
			total -= len(window[0])
			window = window[1:]
		}
	}

	for _, piece := range pieces {
		pieceLen := len(piece)
		if total+pieceLen+sepLen*len(window) > s.ChunkSize && len(window) > 0 {
			flush()
		}
		window = append(window, piece)
		total += pieceLen
	}
	if len(window) > 0 {
		joined := strings.Join(window, sep)
		if strings.TrimSpace(joined) != "" && (len(out) == 0 || out[len(out)-1] != joined) {
			out = append(out, joined)
		}
	}
	return out
}
