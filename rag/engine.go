// Package rag owns the vector index lifecycle and semantic retrieval. One
// Engine is shared process-wide; its index handle sits behind an atomic
// pointer so admin reconfiguration never races in-flight searches.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"legalbot-backend/chunker"
)

var (
	// ErrIndexUnavailable means no vector store credential or index name is
	// configured, or no index handle could be attached.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrCreationTimeout means the store never reported the index ready
	// within the polling window.
	ErrCreationTimeout = errors.New("index creation timed out")
	// ErrUpstreamStore wraps transport failures from the vector store.
	ErrUpstreamStore = errors.New("vector store error")
)

// Passage is one retrieved chunk with provenance, ordered by similarity.
type Passage struct {
	Text       string
	SourceID   string
	PageNumber int
	ChunkIndex int
	Score      float64
}

// Embedder turns text into fixed-length vectors. Ingestion and query share
// the same instance.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// VectorIndex is a live data-plane handle to one remote index.
type VectorIndex interface {
	Upsert(ctx context.Context, vectors []Vector) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	DeleteByFilter(ctx context.Context, filter map[string]any) error
	DeleteAll(ctx context.Context) error
}

// Vector and Match mirror the store's wire entities without tying the
// engine to one vendor client.
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Store is the control-plane contract: index lifecycle plus handle minting.
type Store interface {
	ListIndexes(ctx context.Context) ([]string, error)
	CreateIndex(ctx context.Context, name string, dimension int) error
	DescribeIndex(ctx context.Context, name string) (host string, ready bool, err error)
	Index(host string) VectorIndex
}

type handle struct {
	name  string
	index VectorIndex
}

// Engine coordinates chunk indexing and top-k retrieval against one logical
// index name.
type Engine struct {
	embedder Embedder

	// configMu guards store/indexName during admin reconfiguration only;
	// it is never held across a store call.
	configMu  sync.Mutex
	store     Store
	indexName string

	handle atomic.Pointer[handle]

	topKDefault  int
	topKCeiling  int
	pollInterval time.Duration
	pollAttempts int
}

// New builds an Engine. store may be nil when the vector store is not
// configured; every operation then fails with ErrIndexUnavailable instead of
// crashing the process.
func New(store Store, embedder Embedder, indexName string) *Engine {
	topK := 20
	if v := os.Getenv("RETRIEVAL_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			topK = n
		}
	}
	return &Engine{
		store:        store,
		embedder:     embedder,
		indexName:    indexName,
		topKDefault:  topK,
		topKCeiling:  100,
		pollInterval: time.Second,
		pollAttempts: 60,
	}
}

func (e *Engine) config() (Store, string) {
	e.configMu.Lock()
	defer e.configMu.Unlock()
	return e.store, e.indexName
}

// Reconfigure swaps the store credentials and index name, drops the old
// handle and attaches a new one. In-flight searches finish against the old
// handle or observe the new one, never a torn state.
func (e *Engine) Reconfigure(ctx context.Context, store Store, indexName string) error {
	e.configMu.Lock()
	e.store = store
	e.indexName = indexName
	e.configMu.Unlock()
	e.handle.Store(nil)
	return e.Connect(ctx)
}

// Connect attaches to an already-existing index without creating one. The
// new handle replaces any previous one in a single atomic swap.
func (e *Engine) Connect(ctx context.Context) error {
	store, name := e.config()
	if store == nil || name == "" {
		return ErrIndexUnavailable
	}
	host, _, err := store.DescribeIndex(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: describe %s: %v", ErrUpstreamStore, name, err)
	}
	e.handle.Store(&handle{name: name, index: store.Index(host)})
	log.Printf("[rag][connect] index=%s", name)
	return nil
}

// current returns the live handle, attempting one lazy connect when none is
// attached yet.
func (e *Engine) current(ctx context.Context) (*handle, error) {
	if h := e.handle.Load(); h != nil {
		return h, nil
	}
	if err := e.Connect(ctx); err != nil {
		if errors.Is(err, ErrIndexUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	return e.handle.Load(), nil
}

// EnsureReady makes sure the configured index exists and is ready,
// creating it with the embedder's dimension when absent. Calling it on an
// existing index performs no duplicate creation.
func (e *Engine) EnsureReady(ctx context.Context) error {
	store, name := e.config()
	if store == nil || name == "" {
		return ErrIndexUnavailable
	}
	existing, err := store.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("%w: list indexes: %v", ErrUpstreamStore, err)
	}
	found := false
	for _, n := range existing {
		if n == name {
			found = true
			break
		}
	}
	if !found {
		log.Printf("[rag][create] index=%s dimension=%d", name, e.embedder.Dimension())
		if err := store.CreateIndex(ctx, name, e.embedder.Dimension()); err != nil {
			return fmt.Errorf("%w: create %s: %v", ErrUpstreamStore, name, err)
		}
		if err := e.waitReady(ctx, store, name); err != nil {
			return err
		}
	}
	return e.Connect(ctx)
}

func (e *Engine) waitReady(ctx context.Context, store Store, name string) error {
	for attempt := 0; attempt < e.pollAttempts; attempt++ {
		_, ready, err := store.DescribeIndex(ctx, name)
		if err != nil {
			return fmt.Errorf("%w: describe %s: %v", ErrUpstreamStore, name, err)
		}
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.pollInterval):
		}
	}
	return fmt.Errorf("%w: index %s after %d attempts", ErrCreationTimeout, name, e.pollAttempts)
}

// Upsert embeds chunks and writes them to the index. Vector ids are derived
// from (sourceId, chunkIndex), so re-ingesting the same source overwrites
// its previous vectors rather than duplicating them.
func (e *Engine) Upsert(ctx context.Context, chunks []chunker.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	h, err := e.current(ctx)
	if err != nil {
		return err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	batch := make([]Vector, len(chunks))
	for i, c := range chunks {
		batch[i] = Vector{
			ID:     fmt.Sprintf("%s#p%d#%d", c.SourceID, c.PageNumber, c.ChunkIndex),
			Values: vectors[i],
			Metadata: map[string]any{
				"sourceId":   c.SourceID,
				"pageNumber": c.PageNumber,
				"chunkIndex": c.ChunkIndex,
				"text":       c.Text,
			},
		}
	}
	if err := h.index.Upsert(ctx, batch); err != nil {
		return fmt.Errorf("%w: upsert: %v", ErrUpstreamStore, err)
	}
	log.Printf("[rag][upsert] index=%s chunks=%d", h.name, len(chunks))
	return nil
}

// Search embeds the query and returns the k nearest chunks, descending
// similarity, ties broken by (sourceId, pageNumber, chunkIndex).
func (e *Engine) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	h, err := e.current(ctx)
	if err != nil {
		return nil, err
	}
	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := h.index.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrUpstreamStore, err)
	}
	passages := make([]Passage, 0, len(matches))
	for _, m := range matches {
		passages = append(passages, passageFromMatch(m))
	}
	sort.SliceStable(passages, func(i, j int) bool {
		a, b := passages[i], passages[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.PageNumber != b.PageNumber {
			return a.PageNumber < b.PageNumber
		}
		return a.ChunkIndex < b.ChunkIndex
	})
	if len(passages) > k {
		passages = passages[:k]
	}
	return passages, nil
}

// Retrieve is the question-answering entry point: top-k search with the
// configured default k, clamped to the ceiling. An empty result is an empty
// slice, not an error.
func (e *Engine) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		k = e.topKDefault
	}
	if k > e.topKCeiling {
		k = e.topKCeiling
	}
	return e.Search(ctx, query, k)
}

// DeleteSource removes every vector produced by one source document. A
// source with no vectors is a no-op.
func (e *Engine) DeleteSource(ctx context.Context, sourceID string) error {
	h, err := e.current(ctx)
	if err != nil {
		return err
	}
	if err := h.index.DeleteByFilter(ctx, map[string]any{"sourceId": sourceID}); err != nil {
		return fmt.Errorf("%w: delete source %s: %v", ErrUpstreamStore, sourceID, err)
	}
	log.Printf("[rag][delete] index=%s source=%s", h.name, sourceID)
	return nil
}

// DeleteAll removes every vector in the index.
func (e *Engine) DeleteAll(ctx context.Context) error {
	h, err := e.current(ctx)
	if err != nil {
		return err
	}
	if err := h.index.DeleteAll(ctx); err != nil {
		return fmt.Errorf("%w: delete all: %v", ErrUpstreamStore, err)
	}
	log.Printf("[rag][delete_all] index=%s", h.name)
	return nil
}

func passageFromMatch(m Match) Passage {
	p := Passage{Score: m.Score}
	if v, ok := m.Metadata["text"].(string); ok {
		p.Text = v
	}
	if v, ok := m.Metadata["sourceId"].(string); ok {
		p.SourceID = v
	}
	if v, ok := m.Metadata["pageNumber"].(float64); ok {
		p.PageNumber = int(v)
	} else if v, ok := m.Metadata["pageNumber"].(int); ok {
		p.PageNumber = v
	}
	if v, ok := m.Metadata["chunkIndex"].(float64); ok {
		p.ChunkIndex = int(v)
	} else if v, ok := m.Metadata["chunkIndex"].(int); ok {
		p.ChunkIndex = v
	}
	return p
}
