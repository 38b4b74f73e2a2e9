package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// DefaultTopK is the number of chunks returned per lookup.
const DefaultTopK = 3

// Retriever ranks indexed chunks by cosine similarity to the query. The index
// file is opened read-only for every call, so a rebuilt index is picked up
// without restarting.
type Retriever struct {
	indexPath string
	embedder  embedding.Embedder
	topK      int
	model     string
}

var _ retriever.Retriever = (*Retriever)(nil)

// RetrieverConfig configures NewRetriever.
type RetrieverConfig struct {
	IndexPath string
	Embedder  embedding.Embedder
	TopK      int
	// EmbeddingModel, when set, must match the model recorded in the index.
	EmbeddingModel string
}

// NewRetriever validates the configuration; it does not touch the index.
func NewRetriever(cfg RetrieverConfig) (*Retriever, error) {
	if cfg.IndexPath == "" {
		return nil, errors.New("index path is required")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Retriever{
		indexPath: cfg.IndexPath,
		embedder:  cfg.Embedder,
		topK:      cfg.TopK,
		model:     cfg.EmbeddingModel,
	}, nil
}

// Retrieve returns up to TopK documents, most similar first, each carrying
// its score and source in the metadata.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	topK := r.topK
	options := retriever.GetCommonOptions(&retriever.Options{TopK: &topK}, opts...)
	if options.TopK != nil && *options.TopK > 0 {
		topK = *options.TopK
	}

	idx, err := Open(r.indexPath)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	if r.model != "" {
		built, err := idx.Meta(ctx, MetaEmbeddingModel)
		if err != nil {
			return nil, err
		}
		if built != "" && built != r.model {
			return nil, fmt.Errorf("index built with embedding model %q, configured %q", built, r.model)
		}
	}

	chunks, err := idx.Chunks(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := r.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	return rank(chunks, vectors[0], topK)
}

type scored struct {
	chunk Chunk
	score float64
}

func rank(chunks []Chunk, query []float64, topK int) ([]*schema.Document, error) {
	results := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != len(query) {
			return nil, fmt.Errorf("dimension mismatch: chunk %s has %d, query has %d", c.ID, len(c.Embedding), len(query))
		}
		results = append(results, scored{chunk: c, score: CosineSimilarity(c.Embedding, query)})
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].score > results[b].score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	docs := make([]*schema.Document, 0, len(results))
	for _, res := range results {
		doc := &schema.Document{
			ID:      res.chunk.ID,
			Content: res.chunk.Text,
			MetaData: map[string]any{
				"source": res.chunk.Source,
				"seq":    res.chunk.Seq,
			},
		}
		docs = append(docs, doc.WithScore(res.score))
	}
	return docs, nil
}

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
