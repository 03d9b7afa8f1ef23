package chunker

import (
	"reflect"
	"strings"
	"testing"

	"legalbot-backend/files"
)

func docOf(text string) []files.Document {
	return []files.Document{{SourceID: "law.pdf", PageNumber: 1, Text: text}}
}

func TestSplitDeterministic(t *testing.T) {
	s := NewSplitter()
	text := strings.Repeat("Dieu 1. Moi nguoi deu co quyen bao chua truoc phap luat.\n\n", 80)
	first := s.Split(docOf(text))
	second := s.Split(docOf(text))
	if !reflect.DeepEqual(first, second) {
		t.Fatal("splitting the same text twice produced different chunk boundaries")
	}
	if len(first) < 2 {
		t.Fatalf("expected multiple chunks for %d chars, got %d", len(text), len(first))
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := NewSplitter()
	text := strings.Repeat("van ban ", 2000)
	for _, c := range s.Split(docOf(text)) {
		if len(c.Text) > s.ChunkSize {
			t.Fatalf("chunk of %d chars exceeds limit %d", len(c.Text), s.ChunkSize)
		}
	}
}

func TestSplitOverlapBetweenChunks(t *testing.T) {
	s := NewSplitter()
	text := strings.Repeat("mot hai ba bon nam sau bay ", 200)
	chunks := s.Split(docOf(text))
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	// Consecutive chunks must share text: the head of chunk i+1 appears in chunk i.
	for i := 0; i < len(chunks)-1; i++ {
		head := chunks[i+1].Text
		if len(head) > 50 {
			head = head[:50]
		}
		if !strings.Contains(chunks[i].Text, head) {
			t.Fatalf("chunk %d does not overlap chunk %d", i, i+1)
		}
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	s := &Splitter{ChunkSize: 40, Overlap: 0}
	text := "doan van thu nhat\n\ndoan van thu hai o day"
	chunks := s.Split(docOf(text))
	if len(chunks) != 2 {
		t.Fatalf("expected split at paragraph break, got %d chunks: %#v", len(chunks), chunks)
	}
	if chunks[0].Text != "doan van thu nhat" || chunks[1].Text != "doan van thu hai o day" {
		t.Fatalf("unexpected boundaries: %#v", chunks)
	}
}

func TestSplitCharacterFallback(t *testing.T) {
	s := &Splitter{ChunkSize: 10, Overlap: 0}
	text := strings.Repeat("x", 25) // no separators at all
	chunks := s.Split(docOf(text))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 character-window chunks, got %d", len(chunks))
	}
	if chunks[0].Text != strings.Repeat("x", 10) || chunks[2].Text != strings.Repeat("x", 5) {
		t.Fatalf("unexpected windows: %#v", chunks)
	}
}

func TestSplitProvenanceAndOrder(t *testing.T) {
	s := NewSplitter()
	docs := []files.Document{
		{SourceID: "law.pdf", PageNumber: 0, Text: strings.Repeat("trang mot. ", 150)},
		{SourceID: "law.pdf", PageNumber: 1, Text: strings.Repeat("trang hai. ", 150)},
	}
	chunks := s.Split(docs)
	lastIdx := map[int]int{}
	for _, c := range chunks {
		if c.SourceID != "law.pdf" {
			t.Fatalf("chunk lost source: %#v", c)
		}
		if prev, seen := lastIdx[c.PageNumber]; seen && c.ChunkIndex != prev+1 {
			t.Fatalf("chunk order broken on page %d: %d after %d", c.PageNumber, c.ChunkIndex, prev)
		}
		lastIdx[c.PageNumber] = c.ChunkIndex
	}
	if lastIdx[0] < 1 || lastIdx[1] < 1 {
		t.Fatalf("expected multiple chunks per page, got %v", lastIdx)
	}
}

func TestSplitEmptyDocument(t *testing.T) {
	s := NewSplitter()
	if got := s.Split(docOf("   \n\n  ")); len(got) != 0 {
		t.Fatalf("whitespace-only document produced chunks: %#v", got)
	}
}
