package rag

import (
	"context"

	"legalbot-backend/pinecone"
)

// pineconeStore adapts the pinecone client to the engine's Store contract.
type pineconeStore struct {
	client *pinecone.Client
}

// NewPineconeStore wraps a pinecone client as an engine Store.
func NewPineconeStore(client *pinecone.Client) Store {
	return &pineconeStore{client: client}
}

func (s *pineconeStore) ListIndexes(ctx context.Context) ([]string, error) {
	return s.client.ListIndexes(ctx)
}

func (s *pineconeStore) CreateIndex(ctx context.Context, name string, dimension int) error {
	return s.client.CreateIndex(ctx, name, dimension)
}

func (s *pineconeStore) DescribeIndex(ctx context.Context, name string) (string, bool, error) {
	status, err := s.client.DescribeIndex(ctx, name)
	if err != nil {
		return "", false, err
	}
	return status.Host, status.Ready, nil
}

func (s *pineconeStore) Index(host string) VectorIndex {
	return &pineconeIndex{index: s.client.Index(host)}
}

type pineconeIndex struct {
	index *pinecone.Index
}

func (i *pineconeIndex) Upsert(ctx context.Context, vectors []Vector) error {
	batch := make([]pinecone.Vector, len(vectors))
	for j, v := range vectors {
		batch[j] = pinecone.Vector{ID: v.ID, Values: v.Values, Metadata: v.Metadata}
	}
	return i.index.Upsert(ctx, batch)
}

func (i *pineconeIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	matches, err := i.index.Query(ctx, vector, topK)
	if err != nil {
		return nil, err
	}
	out := make([]Match, len(matches))
	for j, m := range matches {
		out[j] = Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}
	return out, nil
}

func (i *pineconeIndex) DeleteByFilter(ctx context.Context, filter map[string]any) error {
	return i.index.DeleteByFilter(ctx, filter)
}

func (i *pineconeIndex) DeleteAll(ctx context.Context) error {
	return i.index.DeleteAll(ctx)
}
